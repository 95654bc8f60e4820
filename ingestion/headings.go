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
	"strings"
	"unicode"
)

// Heading is a detected section heading anchored to its line index within
// the document text.
type Heading struct {
	Line int
	Text string
}

// drugNames promote lines naming a drug to heading candidates so retrieval
// context stays drug-specific.
var drugNames = []string{
	"dapagliflozin", "tirzepatide", "empagliflozin", "insulin", "metformin",
	"glp-1", "sglt2", "sglt2i", "dpp-4", "canagliflozin", "semaglutide",
}

// headingKeywords are terms that commonly open a section in clinical policy
// documents.
var headingKeywords = []string{
	"what is", "where", "when", "who", "how", "why",
	"introduction", "overview", "summary", "conclusion",
	"background", "method", "result", "discussion",
	"recommendation", "guidance", "policy", "procedure",
	"contraindication", "indication", "dosage", "administration",
	"adverse effect", "side effect", "monitoring", "preparation",
	"pregnancy", "breastfeeding", "interaction", "cautions",
	"licenced indication", "prescribing", "stopping therapy",
	"advice and support", "reference", "document ratification",
	"nice guidance", "nice technology", "drug interactions",
	"preparations and dosage", "contraindications and cautions",
}

// strongShortKeywords rescue short headings from the weak filter and mark a
// preceding line as a better heading during lookback.
var strongShortKeywords = []string{"guidance", "dosage", "drug", "contraindication", "interaction"}

// lookbackKeywords qualify a nearby earlier line as a replacement for a
// rejected weak heading.
var lookbackKeywords = []string{
	"guidance", "dosage", "drug", "contraindication", "interaction",
	"nice", "preparation", "administration",
}

var (
	sentenceMidLine = regexp.MustCompile(`[.!?]\s+[a-z]`)
	numberedSection = regexp.MustCompile(`^(\d+\.?\s+|\d+\.\d+\.?\s+|\d+\.\d+\.\d+\.?\s+|[A-Z][a-z]+\s+\d+[.:]\s+)`)
	collapseSpaces  = regexp.MustCompile(`\s+`)

	weakPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\d+\s*(ml|mg|units?|mm|cm|kg|g|%)`),
		regexp.MustCompile(`^\d+\.\d+`),
		regexp.MustCompile(`^[a-z]+\s+[a-z]+\s+[a-z]+$`),
		regexp.MustCompile(`^(and|or|the|a|an)\s+`),
		regexp.MustCompile(`^page\s+\d+`),
	}
)

// DetectSectionHeadings finds section headings in document text.
//
// Candidate rules run in order per line; the first rule that fires claims
// the line:
//
//  1. Short lines ending with a colon (excluding URLs and email addresses)
//  2. Numbered sections ("1. ", "2.1 ", "Section 2:")
//  3. Short all-caps lines followed by a blank or lowercase line
//  4. Short title-case lines followed by a blank or lowercase line
//  5. Lines containing a known section keyword, similarly followed
//  6. Short lines naming a drug, when shaped like a heading
//
// Candidates then pass a weak-heading filter (measurements, decimals,
// article-led phrases, page numbers, short generic text). A rejected weak
// heading may be replaced by a stronger line up to 3 lines above it.
func DetectSectionHeadings(text string) []Heading {
	lines := strings.Split(text, "\n")
	var candidates []Heading

	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		if len(stripped) > 120 {
			continue
		}
		// Sentence-ending punctuation mid-line means running prose.
		if sentenceMidLine.MatchString(stripped) {
			continue
		}

		if strings.HasSuffix(stripped, ":") &&
			len(stripped) < 100 &&
			!strings.Contains(stripped, "://") &&
			!strings.Contains(stripped, "@") {
			candidates = append(candidates, Heading{i, cleanHeading(stripped)})
			continue
		}

		if numberedSection.MatchString(stripped) {
			if len(stripped) < 120 {
				candidates = append(candidates, Heading{i, cleanHeading(stripped)})
			}
			continue
		}

		if isUpperLine(stripped) && len(stripped) < 80 && len(stripped) > 3 {
			if nextLineOpensContent(lines, i) {
				candidates = append(candidates, Heading{i, cleanHeading(stripped)})
			}
			continue
		}

		if isTitleLine(stripped) &&
			len(stripped) < 100 && len(stripped) > 3 &&
			!strings.HasSuffix(stripped, ".") &&
			!strings.HasSuffix(stripped, ",") &&
			!strings.HasSuffix(stripped, ";") {
			if nextLineOpensContent(lines, i) {
				candidates = append(candidates, Heading{i, cleanHeading(stripped)})
			}
			continue
		}

		lower := strings.ToLower(stripped)
		if containsAny(lower, headingKeywords) {
			isHeading := i+1 >= len(lines) || nextLineOpensContent(lines, i)
			if isHeading && len(stripped) < 120 {
				candidates = append(candidates, Heading{i, cleanHeading(stripped)})
				continue
			}
		}

		if containsAny(lower, drugNames) {
			nextBlank := i+1 < len(lines) && strings.TrimSpace(lines[i+1]) == ""
			if len(stripped) < 100 &&
				(strings.HasSuffix(stripped, ":") || isTitleLine(stripped) || nextBlank) {
				candidates = append(candidates, Heading{i, cleanHeading(stripped)})
				continue
			}
		}
	}

	candidates = dropConsecutiveDuplicates(candidates)
	return filterWeakHeadings(candidates, lines)
}

// nextLineOpensContent reports whether the line after index i is blank or
// begins with a lowercase letter, both of which suggest line i was a heading.
func nextLineOpensContent(lines []string, i int) bool {
	if i+1 >= len(lines) {
		return false
	}
	next := strings.TrimSpace(lines[i+1])
	if next == "" {
		return true
	}
	first := []rune(next)[0]
	return unicode.IsLower(first)
}

func dropConsecutiveDuplicates(headings []Heading) []Heading {
	var unique []Heading
	lastText := ""
	for _, h := range headings {
		if h.Text != lastText {
			unique = append(unique, h)
			lastText = h.Text
		}
	}
	return unique
}

// filterWeakHeadings removes candidates matching weak patterns. For each
// rejection it scans up to 3 lines above for a stronger replacement line
// containing a lookback keyword.
func filterWeakHeadings(headings []Heading, lines []string) []Heading {
	var filtered []Heading

	for _, h := range headings {
		lower := strings.ToLower(h.Text)
		weak := false
		for _, pattern := range weakPatterns {
			if pattern.MatchString(lower) {
				weak = true
				break
			}
		}
		if len(h.Text) < 10 && !containsAny(lower, strongShortKeywords) {
			weak = true
		}

		if !weak {
			filtered = append(filtered, h)
			continue
		}

		for lookback := 1; lookback <= 3 && h.Line-lookback >= 0; lookback++ {
			prevIdx := h.Line - lookback
			prev := strings.TrimSpace(lines[prevIdx])
			if prev == "" || len(prev) >= 100 {
				continue
			}
			if !containsAny(strings.ToLower(prev), lookbackKeywords) {
				continue
			}
			if !containsHeadingText(filtered, prev) {
				filtered = append(filtered, Heading{prevIdx, prev})
			}
			break
		}
	}

	return filtered
}

func containsHeadingText(headings []Heading, text string) bool {
	for _, h := range headings {
		if h.Text == text {
			return true
		}
	}
	return false
}

func cleanHeading(s string) string {
	return collapseSpaces.ReplaceAllString(s, " ")
}

// isUpperLine reports whether the line has at least one cased letter and no
// lowercase letters.
func isUpperLine(s string) bool {
	hasCased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasCased = true
		}
	}
	return hasCased
}

// isTitleLine reports whether the line is title-cased: every cased run
// starts with an uppercase letter followed only by lowercase letters.
func isTitleLine(s string) bool {
	hasCased := false
	prevCased := false
	for _, r := range s {
		switch {
		case unicode.IsUpper(r) || unicode.IsTitle(r):
			if prevCased {
				return false
			}
			prevCased = true
			hasCased = true
		case unicode.IsLower(r):
			if !prevCased {
				return false
			}
			prevCased = true
			hasCased = true
		default:
			prevCased = false
		}
	}
	return hasCased
}
