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

package answer

import (
	"fmt"
	"regexp"
	"strings"
)

// niceOrganization is the only organization whose documents carry
// reference codes worth extracting for citations.
const niceOrganization = "NICE"

var (
	yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

	// NICE reference codes: NG28, TA390, CG181 and similar prefixes.
	niceCodePattern       = regexp.MustCompile(`(?i)\b(?:NG|TA|CG|PH|IPG|DG|SG)\d+\b`)
	parenthesizedCode     = regexp.MustCompile(`(?i)\(((?:NG|TA|CG|PH|IPG|DG|SG)\d+)\)`)
	guidanceURLCode       = regexp.MustCompile(`(?i)guidance/((?:NG|TA|CG|PH|IPG|DG|SG)\d+)`)
)

// extractYear pulls a four-digit year out of a date string such as
// "2024-07" or "2024". Returns "" when none is present.
func extractYear(dateStr string) string {
	if dateStr == "" || dateStr == "Unknown" {
		return ""
	}
	return yearPattern.FindString(dateStr)
}

// extractReferenceCode finds a NICE reference code for a document,
// checking the filename first, then the chunk text. In text, a
// parenthesized code like "(NG28)" beats a guidance URL like
// "guidance/ng28", which beats a standalone mention. Only NICE
// documents carry codes; everything else returns "".
func extractReferenceCode(fileName, organization, chunkText string) string {
	if fileName == "" || fileName == "Unknown" || organization != niceOrganization {
		return ""
	}

	if code := niceCodePattern.FindString(fileName); code != "" {
		return strings.ToUpper(code)
	}

	if chunkText == "" {
		return ""
	}
	if match := parenthesizedCode.FindStringSubmatch(chunkText); match != nil {
		return strings.ToUpper(match[1])
	}
	if match := guidanceURLCode.FindStringSubmatch(chunkText); match != nil {
		return strings.ToUpper(match[1])
	}
	if code := niceCodePattern.FindString(chunkText); code != "" {
		return strings.ToUpper(code)
	}
	return ""
}

// citationKey builds the Harvard-style inline citation for a source:
// (NICE, NG28) for coded NICE guidance, (Org, Year) when dated,
// (Org) otherwise.
func citationKey(organization, year, referenceCode string) string {
	switch {
	case referenceCode != "" && organization == niceOrganization:
		return fmt.Sprintf("(%s, %s)", organization, referenceCode)
	case year != "":
		return fmt.Sprintf("(%s, %s)", organization, year)
	default:
		return fmt.Sprintf("(%s)", organization)
	}
}

// cleanDocumentName strips file extensions and underscores for
// bibliography display.
func cleanDocumentName(fileName string) string {
	name := strings.ReplaceAll(fileName, ".pdf", "")
	name = strings.ReplaceAll(name, ".docx", "")
	return strings.ReplaceAll(name, "_", " ")
}
