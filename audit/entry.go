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

package audit

import (
	"time"

	"github.com/poiesic/policyquery/core"
)

// previewLength bounds the chunk text stored per entry.
const previewLength = 200

// ChunkRecord is the audit view of one retrieved chunk: identifiers,
// the score breakdown, and a short text preview.
type ChunkRecord struct {
	ChunkID       string          `json:"chunk_id"`
	Score         float64         `json:"score"`
	OriginalScore float64         `json:"original_score"`
	PriorityScore float64         `json:"priority_score"`
	RecencyScore  float64         `json:"recency_score"`
	FileName      string          `json:"file_name"`
	SourceType    core.SourceType `json:"source_type"`
	Organization  string          `json:"organization"`
	ContextHeader string          `json:"context_header,omitempty"`
	TextPreview   string          `json:"text_preview"`
}

// Entry is one audit trail record covering a complete query cycle.
type Entry struct {
	Timestamp     time.Time     `json:"timestamp"`
	Query         string        `json:"query"`
	Response      string        `json:"response"`
	NumChunks     int           `json:"num_chunks"`
	Chunks        []ChunkRecord `json:"chunks"`
	ExpandedTerms []string      `json:"expanded_terms"`
}

// NewEntry builds an audit entry from a completed query cycle.
func NewEntry(query, response string, expandedTerms []string, results []core.SearchResult) Entry {
	chunks := make([]ChunkRecord, 0, len(results))
	for _, result := range results {
		metadata := result.Payload.Metadata
		chunks = append(chunks, ChunkRecord{
			ChunkID:       result.Payload.ChunkID,
			Score:         result.Score,
			OriginalScore: result.OriginalScore,
			PriorityScore: result.PriorityScore,
			RecencyScore:  result.RecencyScore,
			FileName:      metadata.FileName,
			SourceType:    metadata.SourceType,
			Organization:  metadata.Organization,
			ContextHeader: metadata.ContextHeader,
			TextPreview:   preview(result.Payload.Text),
		})
	}

	if expandedTerms == nil {
		expandedTerms = []string{}
	}

	return Entry{
		Timestamp:     time.Now().UTC(),
		Query:         query,
		Response:      response,
		NumChunks:     len(results),
		Chunks:        chunks,
		ExpandedTerms: expandedTerms,
	}
}

func preview(text string) string {
	if text == "" {
		return ""
	}
	if runes := []rune(text); len(runes) > previewLength {
		text = string(runes[:previewLength])
	}
	return text + "..."
}
