// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import "strings"

// cleanJSON strips markdown fences and any prose around the outermost JSON
// object of a model response.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if start, end := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}'); start >= 0 && end > start {
		s = s[start : end+1]
	}
	return s
}

// repairJSON fixes two mistakes small models make when listing
// relationships: a key missing its opening quote (`, object":`) and a
// trailing comma before a closing bracket.
func repairJSON(s string) string {
	return dropTrailingCommas(quoteBareKeys(s))
}

func quoteBareKeys(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); {
		c := s[i]
		b.WriteByte(c)
		i++
		if c != '{' && c != ',' {
			continue
		}
		for i < len(s) && isSpace(s[i]) {
			b.WriteByte(s[i])
			i++
		}
		if end, ok := bareKey(s, i); ok {
			b.WriteByte('"')
			b.WriteString(strings.TrimSpace(s[i:end]))
			i = end
		}
	}
	return b.String()
}

// bareKey reports whether s[i:] starts with an unquoted key closed by `":`
// and returns the index of that closing quote.
func bareKey(s string, i int) (int, bool) {
	if i >= len(s) || !isLetter(rune(s[i])) {
		return 0, false
	}
	j := i
	for j < len(s) && (isLetter(rune(s[j])) || s[j] == '_' || s[j] == ' ') {
		j++
	}
	if j+1 < len(s) && s[j] == '"' && s[j+1] == ':' {
		return j, true
	}
	return 0, false
}

func dropTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == ',':
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\r'
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
