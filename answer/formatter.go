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
	"strings"

	"github.com/poiesic/policyquery/core"
)

// chunkDelimiter separates formatted chunks in the context block.
const chunkDelimiter = "\n\n---\n\n"

// Source is the citation metadata for one distinct document that
// contributed chunks to an answer.
type Source struct {
	SourceID      int             `json:"source_id"`
	FileName      string          `json:"file_name"`
	Organization  string          `json:"organization"`
	SourceType    core.SourceType `json:"source_type"`
	LastUpdated   string          `json:"last_updated,omitempty"`
	Year          string          `json:"year,omitempty"`
	ReferenceCode string          `json:"reference_code,omitempty"`
	CitationKey   string          `json:"citation_key"`
	ClinicalArea  string          `json:"clinical_area"`
}

// FormatContext renders retrieved chunks into the context block handed
// to the completion model. Each chunk is prefixed with its source
// metadata and citation instruction:
//
//	[SOURCE ID: 1] | [AUTHORITY: Local] | [ORG: CPICS] | [DATE: 2023-10] | [DOCUMENT: x.pdf] | CITE AS: (CPICS, 2023)
//
// followed by an optional [SECTION: heading] tag when the chunk carries
// a context header.
func FormatContext(results []core.SearchResult) string {
	if len(results) == 0 {
		return "No relevant policy documents found."
	}

	formatted := make([]string, 0, len(results))
	for i, result := range results {
		metadata := result.Payload.Metadata
		organization := orUnknown(metadata.Organization)
		lastUpdated := orUnknown(metadata.LastUpdated)
		fileName := orUnknown(metadata.FileName)

		year := extractYear(metadata.LastUpdated)
		referenceCode := extractReferenceCode(fileName, organization, result.Payload.Text)

		var prefix strings.Builder
		fmt.Fprintf(&prefix, "[SOURCE ID: %d] | ", i+1)
		fmt.Fprintf(&prefix, "[AUTHORITY: %s] | ", sourceTypeOrUnknown(metadata.SourceType))
		fmt.Fprintf(&prefix, "[ORG: %s] | ", organization)
		fmt.Fprintf(&prefix, "[DATE: %s] | ", lastUpdated)
		fmt.Fprintf(&prefix, "[DOCUMENT: %s] | ", fileName)
		fmt.Fprintf(&prefix, "CITE AS: %s", citationKey(organization, year, referenceCode))
		if metadata.ContextHeader != "" {
			fmt.Fprintf(&prefix, " | [SECTION: %s]", metadata.ContextHeader)
		}

		formatted = append(formatted, prefix.String()+"\n\n"+result.Payload.Text)
	}

	return strings.Join(formatted, chunkDelimiter)
}

// ExtractSources collects citation metadata from results, one entry per
// distinct document. A document seen through several chunks keeps the
// source id of its first appearance.
func ExtractSources(results []core.SearchResult) []Source {
	sources := make([]Source, 0, len(results))
	seen := make(map[string]int) // file name -> index into sources

	for i, result := range results {
		metadata := result.Payload.Metadata
		fileName := orUnknown(metadata.FileName)
		if _, ok := seen[fileName]; ok {
			continue
		}

		organization := orUnknown(metadata.Organization)
		year := extractYear(metadata.LastUpdated)
		referenceCode := extractReferenceCode(fileName, organization, result.Payload.Text)

		seen[fileName] = len(sources)
		sources = append(sources, Source{
			SourceID:      i + 1,
			FileName:      fileName,
			Organization:  organization,
			SourceType:    metadata.SourceType,
			LastUpdated:   metadata.LastUpdated,
			Year:          year,
			ReferenceCode: referenceCode,
			CitationKey:   citationKey(organization, year, referenceCode),
			ClinicalArea:  orUnknown(metadata.ClinicalArea),
		})
	}

	return sources
}

// FormatBibliography renders sources as a formal bibliography grouped
// by authority tier: Local Authority, National Guidelines, then
// everything else. Returns "" when there are no sources.
func FormatBibliography(sources []Source) string {
	if len(sources) == 0 {
		return ""
	}

	var local, national, other []Source
	for _, source := range sources {
		switch source.SourceType {
		case core.SourceLocal:
			local = append(local, source)
		case core.SourceNational:
			national = append(national, source)
		default:
			other = append(other, source)
		}
	}

	lines := []string{"**Bibliography**\n"}

	if len(local) > 0 {
		lines = append(lines, "**Local Authority:**")
		for _, source := range local {
			name := cleanDocumentName(source.FileName)
			if source.Year != "" {
				lines = append(lines, fmt.Sprintf("- %s (%s). %s. %s.", source.Organization, source.Year, name, source.ClinicalArea))
			} else {
				lines = append(lines, fmt.Sprintf("- %s. %s. %s.", source.Organization, name, source.ClinicalArea))
			}
		}
		lines = append(lines, "")
	}

	if len(national) > 0 {
		lines = append(lines, "**National Guidelines:**")
		for _, source := range national {
			name := cleanDocumentName(source.FileName)
			switch {
			case source.ReferenceCode != "":
				year := source.Year
				if year == "" {
					year = "n.d."
				}
				lines = append(lines, fmt.Sprintf("- %s (%s). %s. %s.", source.Organization, year, name, source.ReferenceCode))
			case source.Year != "":
				lines = append(lines, fmt.Sprintf("- %s (%s). %s.", source.Organization, source.Year, name))
			default:
				lines = append(lines, fmt.Sprintf("- %s. %s.", source.Organization, name))
			}
		}
		lines = append(lines, "")
	}

	if len(other) > 0 {
		lines = append(lines, "**Other Sources:**")
		for _, source := range other {
			name := cleanDocumentName(source.FileName)
			if source.Year != "" {
				lines = append(lines, fmt.Sprintf("- %s (%s). %s. [%s].", source.Organization, source.Year, name, source.SourceType))
			} else {
				lines = append(lines, fmt.Sprintf("- %s. %s. [%s].", source.Organization, name, source.SourceType))
			}
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}

func orUnknown(value string) string {
	if value == "" {
		return "Unknown"
	}
	return value
}

func sourceTypeOrUnknown(sourceType core.SourceType) core.SourceType {
	if sourceType == "" {
		return core.SourceUnknown
	}
	return sourceType
}
