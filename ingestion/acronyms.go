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

package ingestion

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

// acronymEntry pairs a medical acronym with its full clinical form.
type acronymEntry struct {
	acronym  string
	fullForm string
}

var medicalAcronyms = []acronymEntry{
	{"T2D", "type 2 diabetes"},
	{"T2DM", "type 2 diabetes mellitus"},
	{"CGM", "continuous glucose monitoring"},
	{"IFR", "individual funding request"},
	{"ICB", "integrated care board"},
	{"CPICS", "cambridgeshire and peterborough integrated care system"},
	{"SGLT2", "sodium-glucose cotransporter 2"},
	{"SGLT2i", "sodium-glucose cotransporter 2 inhibitor"},
	{"GLP-1", "glucagon-like peptide-1"},
	{"DPP-4", "dipeptidyl peptidase-4"},
	{"eGFR", "estimated glomerular filtration rate"},
	{"HbA1c", "glycated hemoglobin"},
	{"BMI", "body mass index"},
	{"CKD", "chronic kidney disease"},
	{"HF", "heart failure"},
	{"DKA", "diabetic ketoacidosis"},
	{"ACE", "angiotensin-converting enzyme"},
	{"ARB", "angiotensin receptor blocker"},
}

// contextWindow is how far around a match the full form is looked for
// before deciding an expansion is needed.
const contextWindow = 50

var (
	acronymPatternsOnce sync.Once
	acronymPatterns     []acronymPattern
)

type acronymPattern struct {
	pattern  *regexp.Regexp
	fullForm string
}

// compiledAcronymPatterns compiles whole-word case-insensitive patterns,
// longest acronym first so SGLT2i is matched before SGLT2.
func compiledAcronymPatterns() []acronymPattern {
	acronymPatternsOnce.Do(func() {
		entries := make([]acronymEntry, len(medicalAcronyms))
		copy(entries, medicalAcronyms)
		sort.SliceStable(entries, func(i, j int) bool {
			return len(entries[i].acronym) > len(entries[j].acronym)
		})

		acronymPatterns = make([]acronymPattern, len(entries))
		for i, entry := range entries {
			acronymPatterns[i] = acronymPattern{
				pattern:  regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(entry.acronym) + `\b`),
				fullForm: entry.fullForm,
			}
		}
	})
	return acronymPatterns
}

// NormalizeAcronyms inserts the full clinical form in parentheses after the
// first occurrence of each known acronym, improving lexical recall for
// queries that use the spelled-out term. An occurrence is left alone when
// the full form already appears within 50 characters of it. At most one
// expansion is made per acronym per text.
func NormalizeAcronyms(text string) string {
	normalized := text

	for _, ap := range compiledAcronymPatterns() {
		matches := ap.pattern.FindAllStringIndex(normalized, -1)
		for _, match := range matches {
			start, end := match[0], match[1]

			contextStart := start - contextWindow
			if contextStart < 0 {
				contextStart = 0
			}
			contextEnd := end + contextWindow
			if contextEnd > len(normalized) {
				contextEnd = len(normalized)
			}
			context := strings.ToLower(normalized[contextStart:contextEnd])

			if strings.Contains(context, ap.fullForm) {
				continue
			}

			normalized = normalized[:end] + " (" + ap.fullForm + ")" + normalized[end:]
			// First occurrence only; further repeats stay compact.
			break
		}
	}

	return normalized
}
