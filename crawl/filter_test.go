package crawl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frontPage = `<html><body>
<nav><a href="/">Home</a> <a href="/login">Sign In Now Please</a></nav>
<a href="/news/fed-holds-rates">Fed holds rates steady as inflation cools</a>
<a href="https://other.test/uaw">UAW strike widens to <b>more plants</b></a>
<a href="/news/fed-holds-rates#comments">Fed holds rates steady as inflation cools</a>
<a href="/too-short">Read more</a>
<a href="mailto:tips@news.test">send us your news tips today</a>
<a href="/long">one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen seventeen eighteen nineteen twenty twentyone</a>
</body></html>`

func TestAnchorTextFilter(t *testing.T) {
	links, err := DefaultLinkFilter().Links([]byte(frontPage), "https://news.test/front")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://news.test/news/fed-holds-rates",
		"https://other.test/uaw",
	}, links)
}

func TestAnchorTextFilter_MaxLinks(t *testing.T) {
	f := &AnchorTextFilter{MinWords: 3, MaxWords: 20, MaxLinks: 1}
	links, err := f.Links([]byte(frontPage), "https://news.test/front")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://news.test/news/fed-holds-rates"}, links)
}

func TestAnchorTextFilter_Accept(t *testing.T) {
	f := DefaultLinkFilter()
	tests := []struct {
		text string
		want bool
	}{
		{"Terms Of Service", false},
		{"Fed holds rates", true},
		{"two words", false},
		{"  spaced   out   anchor  text ", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.accept(tt.text), tt.text)
	}
}

func TestParagraphParser(t *testing.T) {
	page := `<html><body><h1>Title</h1><p>First <em>paragraph</em>.</p><div><p>Second.</p></div></body></html>`

	text, err := ParagraphParser{}.Parse([]byte(page))
	require.NoError(t, err)
	assert.Equal(t, "First paragraph.\nSecond.", text)
}

func TestParagraphParser_NoParagraphs(t *testing.T) {
	text, err := DefaultContentParser().Parse([]byte("<html><body>nothing</body></html>"))
	require.NoError(t, err)
	assert.Equal(t, "", text)
}
