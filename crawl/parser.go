package crawl

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// ContentParser extracts article text from a fetched page.
type ContentParser interface {
	Parse(page []byte) (string, error)
}

// ContentParserFunc adapts a function to ContentParser.
type ContentParserFunc func(page []byte) (string, error)

// Parse calls f.
func (f ContentParserFunc) Parse(page []byte) (string, error) {
	return f(page)
}

// ParagraphParser joins the text of every <p> element with newlines.
type ParagraphParser struct{}

// DefaultContentParser returns the parser used when none is configured.
func DefaultContentParser() ParagraphParser {
	return ParagraphParser{}
}

// Parse implements ContentParser.
func (ParagraphParser) Parse(page []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return "", err
	}

	var paragraphs []string
	walk(doc, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "p" {
			paragraphs = append(paragraphs, textOf(n))
			return false
		}
		return true
	})
	return strings.Join(paragraphs, "\n"), nil
}
