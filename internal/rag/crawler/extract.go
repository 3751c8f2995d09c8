package crawler

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

const imageContextRunes = 160

var skippedTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "iframe": true, "template": true,
	"nav": true, "footer": true, "aside": true, "header": true, "form": true,
	"svg": true, "canvas": true, "button": true, "select": true, "input": true,
}

var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true, "blockquote": true,
	"ul": true, "ol": true, "table": true, "figure": true, "figcaption": true, "pre": true,
	"dl": true, "dt": true, "dd": true, "address": true, "hr": true,
}

// Extract turns a page into structured text ("# title", markdown headings, "- " list items,
// blank lines between blocks) and collects its images with their offset in that text.
// Readability picks the main content; when it finds too little the main/article/body
// element is walked instead.
func Extract(pageURL string, rawHTML string, maxImages int) commonModels.Document {
	base, err := url.Parse(pageURL)
	if err != nil || base == nil {
		base = &url.URL{}
	}

	var title string
	var content *html.Node

	article, err := readability.FromReader(strings.NewReader(rawHTML), base)
	if err == nil {
		title = collapseSpaces(article.Title)
		if utf8.RuneCountInString(strings.TrimSpace(article.TextContent)) >= config.MinPageContentLength {
			if node, perr := html.Parse(strings.NewReader(article.Content)); perr == nil {
				content = node
			}
		}
	}

	if root, perr := html.Parse(strings.NewReader(rawHTML)); perr == nil {
		if title == "" {
			title = findTitle(root)
		}
		if content == nil {
			content = findMain(root)
		}
	}

	w := newTextWalker(base, maxImages)
	if title != "" {
		w.write("# " + title)
		w.newline(2)
	}
	if content != nil {
		w.walk(content)
	}

	return commonModels.Document{
		SourceID: pageURL,
		Title:    title,
		Text:     strings.TrimRightFunc(w.sb.String(), unicode.IsSpace),
		Origin:   commonModels.OriginCrawl,
		FileType: commonModels.HTML,
		Images:   w.images,
	}
}

type textWalker struct {
	sb           strings.Builder
	runes        int
	last         rune
	newlines     int
	pendingSpace bool

	base      *url.URL
	maxImages int
	images    []commonModels.Image
	seen      map[string]bool
}

func newTextWalker(base *url.URL, maxImages int) *textWalker {
	return &textWalker{base: base, maxImages: maxImages, seen: make(map[string]bool)}
}

func (w *textWalker) write(s string) {
	if s == "" {
		return
	}
	w.sb.WriteString(s)
	w.runes += utf8.RuneCountInString(s)
	w.last, _ = utf8.DecodeLastRuneInString(s)
	w.newlines = 0
}

func (w *textWalker) newline(n int) {
	if w.runes == 0 {
		return
	}
	w.pendingSpace = false
	for w.newlines < n {
		w.sb.WriteByte('\n')
		w.runes++
		w.newlines++
		w.last = '\n'
	}
}

func (w *textWalker) text(s string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" {
			w.pendingSpace = true
		}
		return
	}
	first, _ := utf8.DecodeRuneInString(s)
	if unicode.IsSpace(first) {
		w.pendingSpace = true
	}
	if w.pendingSpace && w.runes > 0 && w.last != '\n' && w.last != ' ' {
		w.write(" ")
	}
	w.pendingSpace = false
	w.write(strings.Join(fields, " "))

	lastRune, _ := utf8.DecodeLastRuneInString(s)
	if unicode.IsSpace(lastRune) {
		w.pendingSpace = true
	}
}

func (w *textWalker) walkChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *textWalker) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.DocumentNode:
		w.walkChildren(n)
		return
	case html.ElementNode:
	default:
		return
	}

	if isBoilerplate(n) {
		return
	}

	tag := strings.ToLower(n.Data)
	switch {
	case tag == "img":
		w.image(n)
	case tag == "br":
		w.newline(1)
	case len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6':
		heading := collapseSpaces(extractText(n))
		if heading == "" {
			w.walkChildren(n)
			return
		}
		level := int(tag[1] - '0')
		if level < 2 {
			level = 2
		}
		if level > 4 {
			level = 4
		}
		w.newline(2)
		w.write(strings.Repeat("#", level) + " ")
		w.walkChildren(n)
		w.newline(2)
	case tag == "li":
		w.newline(1)
		w.write("- ")
		w.walkChildren(n)
		w.newline(1)
	case tag == "tr":
		w.newline(1)
		w.walkChildren(n)
		w.newline(1)
	case tag == "td" || tag == "th":
		w.pendingSpace = true
		w.walkChildren(n)
		w.pendingSpace = true
	case blockTags[tag]:
		w.newline(2)
		w.walkChildren(n)
		w.newline(2)
	default:
		w.walkChildren(n)
	}
}

func (w *textWalker) image(n *html.Node) {
	if len(w.images) >= w.maxImages {
		return
	}
	src := getAttr(n, "src")
	if src == "" || strings.HasPrefix(src, "data:") {
		src = firstNonEmpty(getAttr(n, "data-src"), getAttr(n, "data-lazy-src"))
	}
	src = strings.TrimSpace(src)
	if src == "" || strings.HasPrefix(src, "data:") {
		return
	}
	resolved, err := w.base.Parse(src)
	if err != nil || (resolved.Scheme != "http" && resolved.Scheme != "https") {
		return
	}
	abs := resolved.String()
	if w.seen[abs] {
		return
	}
	w.seen[abs] = true

	alt := collapseSpaces(firstNonEmpty(getAttr(n, "alt"), getAttr(n, "title")))
	w.images = append(w.images, commonModels.Image{
		URL:      abs,
		Alt:      alt,
		Context:  w.recentText(),
		Position: w.runes,
	})
}

// recentText is the tail of the current paragraph, used as the image context
func (w *textWalker) recentText() string {
	s := w.sb.String()
	if idx := strings.LastIndex(strings.TrimRight(s, "\n "), "\n\n"); idx >= 0 {
		s = s[idx+2:]
	}
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= imageContextRunes {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[len(runes)-imageContextRunes:]))
}

func isBoilerplate(n *html.Node) bool {
	if skippedTags[strings.ToLower(n.Data)] {
		return true
	}
	if getAttr(n, "aria-hidden") == "true" || hasAttr(n, "hidden") {
		return true
	}
	marker := strings.ToLower(getAttr(n, "id") + " " + getAttr(n, "class"))
	return strings.Contains(marker, "cookie") || strings.Contains(marker, "consent") || strings.Contains(marker, "gdpr")
}

func findMain(root *html.Node) *html.Node {
	for _, tag := range []string{"main", "article", "body"} {
		if n := findElement(root, tag); n != nil {
			return n
		}
	}
	return root
}

func findTitle(root *html.Node) string {
	if n := findElement(root, "title"); n != nil {
		if t := collapseSpaces(extractText(n)); t != "" {
			return t
		}
	}
	if n := findElement(root, "h1"); n != nil {
		return collapseSpaces(extractText(n))
	}
	return ""
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func extractText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(extractText(c))
		sb.WriteByte(' ')
	}
	return sb.String()
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
