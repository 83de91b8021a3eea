package search

import "strings"

// stopWords never count toward a verbatim entity match.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`the a an be is are was were to of and in that have has it
		for not on with as you do does did at this but by from who whom what which when where how`) {
		stopWords[w] = struct{}{}
	}
}

// words returns the lowercased content words of text with surrounding
// punctuation removed.
func words(text string) []string {
	fields := strings.Fields(text)
	out := fields[:0]
	for _, f := range fields {
		w := strings.ToLower(strings.Trim(f, ".,!?;:'\"-()[]{}"))
		if w == "" {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

// mentionsEntity reports whether every content word of an entity name
// appears in the question. A name made only of stop words never matches.
func mentionsEntity(question, name string) bool {
	nameWords := words(name)
	if len(nameWords) == 0 {
		return false
	}
	inQuestion := make(map[string]struct{})
	for _, w := range words(question) {
		inQuestion[w] = struct{}{}
	}
	for _, w := range nameWords {
		if _, ok := inQuestion[w]; !ok {
			return false
		}
	}
	return true
}
