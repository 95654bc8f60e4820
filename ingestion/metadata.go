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
	"path/filepath"
	"strings"

	"github.com/poiesic/policyquery/core"
)

// sourceTypeEntry maps a source folder name to its authority tier.
// Ordered tables rather than maps: table order doubles as the tie-break
// when multiple entries could match.
type sourceTypeEntry struct {
	folder     string
	sourceType core.SourceType
}

var sourceTypeTable = []sourceTypeEntry{
	{"01_National", core.SourceNational},
	{"02_Local", core.SourceLocal},
	{"03_Governance", core.SourceGovernance},
	{"04_IFR_process", core.SourceLegal},
}

// organizationEntry maps filename keywords to the issuing organization.
// Earlier entries win when keywords from several organizations appear.
type organizationEntry struct {
	organization string
	keywords     []string
}

var organizationTable = []organizationEntry{
	{"NICE", []string{"nice", "ng28", "type-2-diabetes"}},
	{"CPICS", []string{"cpics", "cambridgeshire", "peterborough", "les"}},
	{"NHS England", []string{"constitution", "nhs england"}},
}

// governanceKeywords trigger organization detection in governance document
// body text when the filename yields nothing.
var governanceKeywords = []string{
	"nhs england",
	"department of health",
	"integrated care board",
	"icb",
	"nhs england and nhs improvement",
	"commissioning",
}

// presentationKeywords mark a filename as a slide deck export.
var presentationKeywords = []string{
	"powerpoint",
	"presentation",
	"ppt",
	"slides",
	"slide",
}

var diabetesKeywords = []string{"diabetes", "glucose", "insulin", "tirzepatide", "dapagliflozin"}

// InferMetadata derives document metadata from the file's path relative to
// the data root. The parent folder selects the authority tier, filename
// keywords select the organization and clinical area, and a leading digit
// run in the filename is tried as a date.
func InferMetadata(dataRoot, filePath string) core.DocumentMetadata {
	relativePath, err := filepath.Rel(dataRoot, filePath)
	if err != nil || strings.HasPrefix(relativePath, "..") {
		relativePath = filepath.Base(filePath)
	}

	parentFolder := filepath.Base(filepath.Dir(relativePath))
	sourceType := core.SourceUnknown
	for _, entry := range sourceTypeTable {
		if entry.folder == parentFolder {
			sourceType = entry.sourceType
			break
		}
	}

	fileName := filepath.Base(filePath)
	fileLower := strings.ToLower(fileName)

	// Tier defaults first, then filename keywords override.
	organization := "Unknown"
	switch sourceType {
	case core.SourceLocal:
		organization = "CPICS"
	case core.SourceLegal, core.SourceGovernance:
		organization = "NHS England"
	}
	for _, entry := range organizationTable {
		if containsAny(fileLower, entry.keywords) {
			organization = entry.organization
			break
		}
	}

	clinicalArea := "General Governance"
	switch {
	case containsAny(fileLower, diabetesKeywords):
		clinicalArea = "Diabetes"
	case strings.Contains(fileLower, "constitution"):
		clinicalArea = "Patient Rights"
	case strings.Contains(fileLower, "ifr") || strings.Contains(fileLower, "funding"):
		clinicalArea = "Funding Policy"
	}

	lastUpdated, sortableDate := extractDates(fileStem(fileName))

	return core.DocumentMetadata{
		SourceType:     sourceType,
		Organization:   organization,
		FileName:       fileName,
		FilePath:       relativePath,
		ClinicalArea:   clinicalArea,
		LastUpdated:    lastUpdated,
		SortableDate:   sortableDate,
		PriorityScore:  sourceType.PriorityScore(),
		IsPresentation: isPresentationName(fileName),
	}
}

// extractDates parses a leading digit run in the filename stem. YYYYMM is
// tried first (e.g. "202310-policy"), then DDMMYYYY (e.g. "27062024-les").
// Returns ("", DefaultSortableDate) when neither form validates.
func extractDates(stem string) (lastUpdated, sortableDate string) {
	if len(stem) >= 6 && allDigits(stem[:6]) {
		year, month := stem[:4], stem[4:6]
		if validYear(year) && validMonth(month) {
			return year + "-" + month, year + month + "01"
		}
	}

	if len(stem) >= 8 && allDigits(stem[:8]) {
		day, month, year := stem[:2], stem[2:4], stem[4:8]
		if validYear(year) && validMonth(month) && validDay(day) {
			return year + "-" + month, year + month + day
		}
	}

	return "", core.DefaultSortableDate
}

// EnhanceGovernanceOrganization scans the opening of a governance document's
// body text for commissioning keywords when path inference found nothing.
// Only the first 2000 characters are examined.
func EnhanceGovernanceOrganization(text, currentOrg string) string {
	if currentOrg != "Unknown" {
		return currentOrg
	}

	scan := text
	if len(scan) > 2000 {
		scan = scan[:2000]
	}
	scan = strings.ToLower(scan)

	for _, keyword := range governanceKeywords {
		if !strings.Contains(scan, keyword) {
			continue
		}
		switch {
		case strings.Contains(scan, "nhs england"):
			return "NHS England"
		case strings.Contains(scan, "department of health"):
			return "Department of Health"
		case strings.Contains(scan, "integrated care board"), strings.Contains(scan, "icb"):
			// Could be any ICB; governance documents default national.
			return "NHS England"
		case strings.Contains(scan, "commissioning"):
			return "NHS England"
		}
	}

	return currentOrg
}

// isPresentationName reports whether the filename marks a slide deck export.
func isPresentationName(fileName string) bool {
	return containsAny(strings.ToLower(fileName), presentationKeywords)
}

func fileStem(fileName string) string {
	return strings.TrimSuffix(fileName, filepath.Ext(fileName))
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func validYear(s string) bool  { return s >= "2000" && s <= "2100" }
func validMonth(s string) bool { return s >= "01" && s <= "12" }
func validDay(s string) bool   { return s >= "01" && s <= "31" }
