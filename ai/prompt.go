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

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/poiesic/knownet/core"
)

const relationshipResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "relationships": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "subject": {"type": "string"},
          "predicate": {"type": "string"},
          "object": {"type": "string"}
        },
        "required": ["subject", "predicate", "object"],
        "additionalProperties": false
      }
    }
  },
  "required": ["relationships"],
  "additionalProperties": false
}`

const extractionPromptTemplate = `You are a seasoned analyst who extracts fact-based relationships from news articles.

Every relationship follows this schema:
- subject: the entity or cause
- predicate: the relation or event, a short verb phrase
- object: the entity or effect

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Use the shortest name that identifies an entity ("Tesla", not "the electric car maker Tesla").
- When the text says something is a kind of something else, use the predicate "is a".
- Include only relationships stated or clearly implied by the text. Do not hallucinate.
- If there are no relationships, return "relationships": [].
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "Rising energy prices drove surprises in economic data. Tesla is an automaker founded by Martin Eberhard."
Output:
{
  "relationships": [
    {"subject":"Rising energy prices","predicate":"drove surprises in","object":"economic data"},
    {"subject":"Tesla","predicate":"is a","object":"automaker"},
    {"subject":"Tesla","predicate":"founded by","object":"Martin Eberhard"}
  ]
}`

// ExtractionPrompt returns the system prompt for triple extraction.
func ExtractionPrompt() string {
	return fmt.Sprintf(extractionPromptTemplate, relationshipResponseSchema)
}

type relationship struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

type relationshipResponse struct {
	Relationships []relationship `json:"relationships"`
}

// ParseTripleResponse decodes a model response produced for ExtractionPrompt.
// Markdown fences and surrounding prose are stripped and common JSON
// mistakes repaired.
// Relationships with an empty field are dropped.
func ParseTripleResponse(text string) ([]core.Triple, error) {
	text = cleanJSON(text)
	if text == "" {
		return nil, ErrEmptyResponse
	}

	var resp relationshipResponse
	if err := json.Unmarshal([]byte(repairJSON(text)), &resp); err != nil {
		return nil, err
	}

	triples := make([]core.Triple, 0, len(resp.Relationships))
	for _, r := range resp.Relationships {
		t := core.Triple{
			Subject:   cleanMention(r.Subject),
			Predicate: cleanMention(r.Predicate),
			Object:    cleanMention(r.Object),
		}
		if t.Subject == "" || t.Predicate == "" || t.Object == "" {
			continue
		}
		triples = append(triples, t)
	}
	return triples, nil
}

// cleanMention trims whitespace and trailing sentence punctuation.
func cleanMention(s string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), ".,;:!?"))
}
