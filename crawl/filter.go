package crawl

import (
	"bytes"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// LinkFilter selects crawlable links from a page.
type LinkFilter interface {
	Links(page []byte, baseURL string) ([]string, error)
}

// LinkFilterFunc adapts a function to LinkFilter.
type LinkFilterFunc func(page []byte, baseURL string) ([]string, error)

// Links calls f.
func (f LinkFilterFunc) Links(page []byte, baseURL string) ([]string, error) {
	return f(page, baseURL)
}

// AnchorTextFilter keeps links whose anchor text looks like a headline:
// between MinWords and MaxWords words, not every word capitalized.
// Navigation links ("Home", "Sign In", "Terms Of Service") fail the test.
type AnchorTextFilter struct {
	MinWords int
	MaxWords int
	MaxLinks int // zero means no cap
}

// DefaultLinkFilter returns the headline heuristic used when none is configured.
func DefaultLinkFilter() *AnchorTextFilter {
	return &AnchorTextFilter{MinWords: 3, MaxWords: 20}
}

// Links returns absolute URLs of the accepted anchors in document order,
// without duplicates.
func (f *AnchorTextFilter) Links(page []byte, baseURL string) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	var links []string
	seen := make(map[string]struct{})
	walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "a" {
			return true
		}
		href := attr(n, "href")
		if href == "" || !f.accept(textOf(n)) {
			return false
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return false
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return false
		}
		abs.Fragment = ""
		link := abs.String()
		if _, ok := seen[link]; ok {
			return false
		}
		if f.MaxLinks > 0 && len(links) >= f.MaxLinks {
			return false
		}
		seen[link] = struct{}{}
		links = append(links, link)
		return false
	})
	return links, nil
}

func (f *AnchorTextFilter) accept(text string) bool {
	words := strings.Fields(text)
	if len(words) < f.MinWords {
		return false
	}
	if f.MaxWords > 0 && len(words) > f.MaxWords {
		return false
	}
	for _, w := range words {
		r, _ := utf8.DecodeRuneInString(w)
		if !unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

// walk visits nodes depth first. visit returns false to skip children.
func walk(n *html.Node, visit func(*html.Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// textOf returns the concatenated text below n.
func textOf(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return sb.String()
}
