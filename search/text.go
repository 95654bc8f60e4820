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

package search

import (
	"regexp"
	"strings"
)

// Stop words excluded from term matching during reranking
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"for": true, "in": true, "on": true, "with": true, "to": true,
	"of": true, "is": true, "are": true, "what": true, "when": true,
	"where": true, "how": true, "should": true, "can": true,
}

var wordPattern = regexp.MustCompile(`\b[a-z]{3,}\b`)

// queryTerms extracts meaningful terms from a query for term matching:
// lowercased words of three or more letters, stop words removed.
func queryTerms(query string) []string {
	words := wordPattern.FindAllString(strings.ToLower(query), -1)
	terms := make([]string, 0, len(words))
	for _, word := range words {
		if !stopWords[word] {
			terms = append(terms, word)
		}
	}
	return terms
}
