package crawler

import (
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func walkString(t *testing.T, raw string, base string, maxImages int) *textWalker {
	t.Helper()
	root, err := html.Parse(strings.NewReader(raw))
	require.NoError(t, err)
	u, err := url.Parse(base)
	require.NoError(t, err)
	w := newTextWalker(u, maxImages)
	w.walk(findMain(root))
	return w
}

func TestTextWalker_StructuredText(t *testing.T) {
	raw := `<div><h2>Programmes</h2><p>Le cycle  ingénieur
 dure <b>cinq</b> ans.</p><ul><li>Finance</li><li>Data</li></ul><img src="/img/a.png" alt="Campus"><p>Suite</p>` +
		`<nav>Menu</nav><div class="cookie-banner">Accept cookies</div><script>var x = 1;</script></div>`

	w := walkString(t, raw, "https://www.esilv.fr/formations/", 10)

	before := "## Programmes\n\nLe cycle ingénieur dure cinq ans.\n\n- Finance\n- Data\n\n"
	assert.Equal(t, before+"Suite\n\n", w.sb.String())

	require.Len(t, w.images, 1)
	img := w.images[0]
	assert.Equal(t, "https://www.esilv.fr/img/a.png", img.URL)
	assert.Equal(t, "Campus", img.Alt)
	assert.Equal(t, utf8.RuneCountInString(before), img.Position)
	assert.Equal(t, "- Finance\n- Data", img.Context)
}

func TestTextWalker_Images(t *testing.T) {
	raw := `<body><p>Photos</p>` +
		`<img src="data:image/png;base64,AAAA" data-src="lazy.jpg">` +
		`<img src="https://cdn.example.com/a.jpg" title="A">` +
		`<img src="https://cdn.example.com/a.jpg">` +
		`<img src="javascript:alert(1)">` +
		`<img src="/b.jpg"><img src="/c.jpg"></body>`

	w := walkString(t, raw, "https://www.esilv.fr/news/item", 3)

	var urls []string
	for _, img := range w.images {
		urls = append(urls, img.URL)
	}
	assert.Equal(t, []string{
		"https://www.esilv.fr/news/lazy.jpg",
		"https://cdn.example.com/a.jpg",
		"https://www.esilv.fr/b.jpg",
	}, urls)
	assert.Equal(t, "A", w.images[1].Alt)
}

func TestExtract_Page(t *testing.T) {
	raw := `<html><head><title>Admissions</title></head><body>
<header><a href="/">Home</a></header>
<nav><ul><li>Menu entry</li></ul></nav>
<main><article>
<h1>Admissions</h1>
<p>Les candidatures pour le cycle ingénieur sont ouvertes jusqu'au 15 mars. Les étudiants passent un concours commun
et un entretien de motivation avec l'équipe pédagogique de l'école.</p>
<h2>Calendrier</h2>
<p>Les résultats sont publiés en avril et les inscriptions administratives se font en juillet sur la plateforme dédiée.</p>
<img src="/media/campus.jpg" alt="Le campus">
<p>Pour toute question, l'équipe admissions répond du lundi au vendredi par téléphone et par courriel.</p>
</article></main>
<div id="cookie-consent">We use cookies</div>
<footer>Copyright ESILV</footer>
</body></html>`

	doc := Extract("https://www.esilv.fr/admissions", raw, 10)

	assert.Equal(t, "https://www.esilv.fr/admissions", doc.SourceID)
	assert.Equal(t, commonModels.OriginCrawl, doc.Origin)
	assert.Equal(t, commonModels.HTML, doc.FileType)
	assert.True(t, strings.HasPrefix(doc.Text, "# "), doc.Text)
	assert.Contains(t, doc.Text, "candidatures pour le cycle ingénieur")
	assert.Contains(t, doc.Text, "inscriptions administratives")
	assert.NotContains(t, doc.Text, "We use cookies")
	assert.NotContains(t, doc.Text, "Copyright ESILV")
	assert.NotContains(t, doc.Text, "Menu entry")

	for _, img := range doc.Images {
		assert.True(t, strings.HasPrefix(img.URL, "https://"), img.URL)
		assert.LessOrEqual(t, img.Position, utf8.RuneCountInString(doc.Text)+1)
	}
}

func TestExtract_NotHTML(t *testing.T) {
	doc := Extract("https://www.esilv.fr/empty", "", 10)
	assert.Empty(t, strings.TrimSpace(doc.Text))
	assert.Empty(t, doc.Images)
}

func TestFindTitle_FallsBackToH1(t *testing.T) {
	root, err := html.Parse(strings.NewReader(`<html><body><h1> Bachelor  Tech </h1></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, "Bachelor Tech", findTitle(root))
}
