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

// Package bm25 provides a local sparse lexical encoder.
//
// The encoder produces term-frequency weights with BM25-style saturation.
// Inverse document frequency is not computed here: the vector store applies
// it server-side via its sparse index modifier, so the client only needs
// stable term indices and per-text term weights.
package bm25

import (
	"hash/fnv"
	"regexp"
	"sort"
	"strings"

	"github.com/poiesic/policyquery/ai"
)

// k1 controls term frequency saturation. Standard BM25 default.
const k1 = 1.2

// wordPattern matches unicode letter runs, keeping internal apostrophes.
var wordPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {},
}

// Encoder implements ai.SparseEncoder. The zero value is not usable;
// construct with NewEncoder. An Encoder is stateless and safe for
// concurrent use.
type Encoder struct{}

// NewEncoder creates a sparse term-weight encoder.
//
// Returns ai.SparseEncoder interface to enforce abstraction.
func NewEncoder() ai.SparseEncoder {
	return &Encoder{}
}

// EncodeSparse tokenizes text, drops stop words, and emits one (index,
// weight) pair per distinct term. Indices are FNV-1a hashes of the term,
// so the same term always lands on the same dimension. Weights are BM25
// saturated term frequencies: tf*(k1+1)/(tf+k1).
func (e *Encoder) EncodeSparse(text string) ai.SparseVector {
	counts := make(map[string]int)
	for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if _, skip := stopWords[word]; skip {
			continue
		}
		if len(word) < 2 {
			continue
		}
		counts[word]++
	}

	if len(counts) == 0 {
		return ai.SparseVector{}
	}

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	// Deterministic output order for the same input text.
	sort.Strings(terms)

	vec := ai.SparseVector{
		Indices: make([]uint32, 0, len(terms)),
		Values:  make([]float32, 0, len(terms)),
	}
	for _, term := range terms {
		tf := float32(counts[term])
		vec.Indices = append(vec.Indices, termIndex(term))
		vec.Values = append(vec.Values, tf*(k1+1)/(tf+k1))
	}
	return vec
}

// termIndex maps a term to its sparse dimension via FNV-1a.
func termIndex(term string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(term))
	return h.Sum32()
}
