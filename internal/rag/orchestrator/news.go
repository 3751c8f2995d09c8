package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/akolanti/CampusRAG/internal/rag/crawler"
	"github.com/akolanti/CampusRAG/internal/rag/retrieval"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
	"github.com/blevesearch/bleve"
	"golang.org/x/net/html"
)

type PageFetcher interface {
	Fetch(ctx context.Context, url string) (crawler.Page, error)
}

// NewsCapability reads the news pages live, nothing it finds is indexed.
type NewsCapability struct {
	fetcher  PageFetcher
	urls     []string
	maxItems int
}

func NewNewsCapability(fetcher PageFetcher, urls []string) *NewsCapability {
	return &NewsCapability{fetcher: fetcher, urls: urls, maxItems: config.MaxNewsItems}
}

func (n *NewsCapability) Kind() Kind { return KindNews }

func (n *NewsCapability) Run(ctx context.Context, req Request) (CapabilityOutput, error) {
	log := logger_i.FromContext(ctx, "NewsCapability")

	var items []commonModels.NewsItem
	var errs []error
	for _, u := range n.urls {
		page, err := n.fetcher.Fetch(ctx, u)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		base := page.URL
		if base == "" {
			base = u
		}
		items = append(items, ParseNews(page.HTML, base, n.maxItems)...)
	}
	if len(items) == 0 && len(errs) > 0 {
		return CapabilityOutput{}, errors.Join(errs...)
	}

	ranked, err := RankNews(req.Message, dedupeNews(items), n.maxItems)
	if err != nil {
		return CapabilityOutput{}, err
	}
	log.Debug("News collected", "pages", len(n.urls), "items", len(ranked), "failedPages", len(errs))
	return CapabilityOutput{Kind: KindNews, Text: FormatNews(ranked), News: ranked}, nil
}

func FormatNews(items []commonModels.NewsItem) string {
	if len(items) == 0 {
		return "No news article was found on the school website."
	}
	var sb strings.Builder
	sb.WriteString("Latest news from the school website:")
	for i, it := range items {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, it.Title)
		if it.Summary != "" {
			sb.WriteString(": " + it.Summary)
		}
		if it.Link != "" {
			sb.WriteString(" (" + it.Link + ")")
		}
	}
	return sb.String()
}

var newsClasses = []string{"news-item", "post", "actualite"}

// ParseNews reads up to limit articles in page order: article elements and the usual news
// classes first, any element whose class mentions news otherwise.
func ParseNews(rawHTML string, pageURL string, limit int) []commonModels.NewsItem {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}
	base, _ := url.Parse(pageURL)

	elements := collect(root, isNewsElement)
	if len(elements) == 0 {
		elements = collect(root, looseNewsElement)
	}

	var items []commonModels.NewsItem
	for _, el := range elements {
		if len(items) >= limit {
			break
		}
		if item, ok := newsItem(el, base); ok {
			items = append(items, item)
		}
	}
	return items
}

func newsItem(el *html.Node, base *url.URL) (commonModels.NewsItem, bool) {
	titleNode := first(el, "h1", "h2", "h3", "h4", "a")
	if titleNode == nil && el.Data == "a" {
		titleNode = el
	}
	if titleNode == nil {
		return commonModels.NewsItem{}, false
	}
	item := commonModels.NewsItem{Title: nodeText(titleNode)}
	if item.Title == "" {
		return item, false
	}

	var link *html.Node
	switch {
	case el.Data == "a":
		link = el
	case titleNode.Data == "a":
		link = titleNode
	default:
		link = first(el, "a")
	}
	if link != nil {
		if href := attr(link, "href"); href != "" && base != nil {
			if resolved, err := base.Parse(href); err == nil {
				item.Link = resolved.String()
			}
		}
	}

	if p := first(el, "p"); p != nil {
		item.Summary = retrieval.TrimContent(nodeText(p), config.NewsSummaryChars-3)
	}
	return item, true
}

func isNewsElement(n *html.Node) bool {
	if n.Data == "article" {
		return true
	}
	classes := strings.Fields(strings.ToLower(attr(n, "class")))
	for _, c := range classes {
		for _, want := range newsClasses {
			if c == want {
				return true
			}
		}
	}
	return false
}

func looseNewsElement(n *html.Node) bool {
	if n.Data != "a" && n.Data != "div" {
		return false
	}
	class := strings.ToLower(attr(n, "class"))
	return strings.Contains(class, "news") || strings.Contains(class, "actualite") || strings.Contains(class, "article")
}

// collect returns matching elements without descending into a match.
func collect(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// first returns the first descendant, in document order, with one of the tags.
func first(n *html.Node, tags ...string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			for _, t := range tags {
				if c.Data == t {
					return c
				}
			}
		}
		if found := first(c, tags...); found != nil {
			return found
		}
	}
	return nil
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func dedupeNews(items []commonModels.NewsItem) []commonModels.NewsItem {
	seen := make(map[string]bool)
	out := items[:0]
	for _, it := range items {
		key := it.Link
		if key == "" {
			key = it.Title
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}
	return out
}

type newsDocument struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// RankNews orders items by bleve TF-IDF relevance to the query. Items that do not match keep
// their page order after the matching ones, so "latest news" still lists something.
func RankNews(query string, items []commonModels.NewsItem, limit int) ([]commonModels.NewsItem, error) {
	if len(items) == 0 {
		return nil, nil
	}
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	defer index.Close()

	for i, it := range items {
		if err := index.Index(strconv.Itoa(i), newsDocument{Title: it.Title, Summary: it.Summary}); err != nil {
			return nil, err
		}
	}

	ranked := make([]commonModels.NewsItem, 0, len(items))
	used := make([]bool, len(items))
	if strings.TrimSpace(query) != "" {
		req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(query), len(items), 0, false)
		res, err := index.Search(req)
		if err != nil {
			return nil, err
		}
		for _, hit := range res.Hits {
			i, err := strconv.Atoi(hit.ID)
			if err != nil || used[i] {
				continue
			}
			used[i] = true
			it := items[i]
			it.Score = hit.Score
			ranked = append(ranked, it)
		}
	}
	for i, it := range items {
		if !used[i] {
			ranked = append(ranked, it)
		}
	}
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}
