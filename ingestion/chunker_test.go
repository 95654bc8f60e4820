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
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/policyquery/core"
)

func docMetadata() core.DocumentMetadata {
	return core.DocumentMetadata{
		SourceType:    core.SourceLocal,
		Organization:  "CPICS",
		FileName:      "treatment-pathway.pdf",
		FilePath:      "02_Local/treatment-pathway.pdf",
		ClinicalArea:  "Diabetes",
		SortableDate:  core.DefaultSortableDate,
		PriorityScore: 1.0,
	}
}

// wideLines builds n lines of the given width, each uniquely numbered.
func wideLines(n, width int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		line := fmt.Sprintf("line %03d ", i)
		b.WriteString(line + strings.Repeat("x", width-len(line)-1) + "\n")
	}
	return b.String()
}

func TestChunkDocument(t *testing.T) {
	t.Run("splits long text into sequential chunks", func(t *testing.T) {
		// 24 lines of 100 chars each; a chunk closes every 10 lines and the
		// 500-char overlap window exceeds the 200 cap, so no carry-over.
		text := wideLines(24, 100)
		chunks := ChunkDocument(text, docMetadata(), 1000, 200)

		require.Len(t, chunks, 3)
		assert.Equal(t, "Local_treatment-pathway_chunk1", chunks[0].ChunkID)
		assert.Equal(t, "Local_treatment-pathway_chunk2", chunks[1].ChunkID)
		assert.Equal(t, "Local_treatment-pathway_chunk3", chunks[2].ChunkID)

		assert.True(t, strings.HasPrefix(chunks[0].Text, "line 000"))
		assert.True(t, strings.HasPrefix(chunks[1].Text, "line 010"))
		assert.True(t, strings.HasPrefix(chunks[2].Text, "line 020"))
	})

	t.Run("carries overlap when window is under the cap", func(t *testing.T) {
		// 30-char lines close a chunk at line 34; the last 5 lines total
		// 150 chars, under the 200 cap, so they seed the next chunk.
		text := wideLines(40, 30)
		chunks := ChunkDocument(text, docMetadata(), 1000, 200)

		require.GreaterOrEqual(t, len(chunks), 2)
		assert.True(t, strings.HasPrefix(chunks[1].Text, "line 029"))
	})

	t.Run("chunk ids are deterministic across runs", func(t *testing.T) {
		text := wideLines(24, 100)
		first := ChunkDocument(text, docMetadata(), 1000, 200)
		second := ChunkDocument(text, docMetadata(), 1000, 200)

		require.Equal(t, len(first), len(second))
		for i := range first {
			assert.Equal(t, first[i].ChunkID, second[i].ChunkID)
			assert.Equal(t, first[i].Text, second[i].Text)
		}
	})

	t.Run("short document becomes a single chunk", func(t *testing.T) {
		chunks := ChunkDocument("a brief note on treatment\n", docMetadata(), 1000, 200)

		require.Len(t, chunks, 1)
		assert.Equal(t, "Local_treatment-pathway_chunk1", chunks[0].ChunkID)
		assert.Equal(t, "a brief note on treatment", chunks[0].Text)
	})

	t.Run("empty text yields no chunks", func(t *testing.T) {
		chunks := ChunkDocument("   \n  \n", docMetadata(), 1000, 200)
		assert.Empty(t, chunks)
	})

	t.Run("chunks carry the nearest preceding heading", func(t *testing.T) {
		text := "Prescribing Guidance:\n" + wideLines(12, 100)
		chunks := ChunkDocument(text, docMetadata(), 1000, 200)

		require.NotEmpty(t, chunks)
		for _, chunk := range chunks {
			assert.Equal(t, "Prescribing Guidance:", chunk.Metadata.ContextHeader)
		}
	})

	t.Run("metadata is copied onto every chunk", func(t *testing.T) {
		chunks := ChunkDocument(wideLines(24, 100), docMetadata(), 1000, 200)
		for _, chunk := range chunks {
			assert.Equal(t, core.SourceLocal, chunk.Metadata.SourceType)
			assert.Equal(t, "CPICS", chunk.Metadata.Organization)
			assert.Equal(t, 1.0, chunk.Metadata.PriorityScore)
		}
	})
}

func TestChunkPresentation(t *testing.T) {
	meta := docMetadata()
	meta.FileName = "diabetes-update-slides.pdf"
	meta.IsPresentation = true

	t.Run("one chunk per non-empty slide", func(t *testing.T) {
		pages := []PageText{
			{Number: 0, Text: "Diabetes Pathway Update\n\nKey changes for 2024"},
			{Number: 1, Text: "   "},
			{Number: 2, Text: "Referral Criteria\n\nSee local guidance"},
		}
		chunks := ChunkPresentation(pages, meta)

		require.Len(t, chunks, 2)
		assert.Equal(t, "Local_diabetes-update-slides_slide1", chunks[0].ChunkID)
		assert.Equal(t, "Local_diabetes-update-slides_slide3", chunks[1].ChunkID)
	})

	t.Run("slide title becomes the context header", func(t *testing.T) {
		pages := []PageText{{Number: 0, Text: "Diabetes Pathway Update\n\ndetails follow"}}
		chunks := ChunkPresentation(pages, meta)

		require.Len(t, chunks, 1)
		assert.Equal(t, "Diabetes Pathway Update", chunks[0].Metadata.ContextHeader)
		assert.True(t, strings.HasPrefix(chunks[0].Text, "Slide: Diabetes Pathway Update\n\n"))
	})

	t.Run("long titles are truncated", func(t *testing.T) {
		longTitle := strings.Repeat("policy review detail ", 8)
		pages := []PageText{{Number: 0, Text: longTitle + "\nbody"}}
		chunks := ChunkPresentation(pages, meta)

		require.Len(t, chunks, 1)
		header := chunks[0].Metadata.ContextHeader
		assert.True(t, strings.HasSuffix(header, "..."))
		assert.Len(t, header, 103)
	})

	t.Run("multi-byte titles truncate on a rune boundary", func(t *testing.T) {
		longTitle := strings.Repeat("糖尿病管理 ", 25)
		pages := []PageText{{Number: 0, Text: longTitle + "\nbody"}}
		chunks := ChunkPresentation(pages, meta)

		require.Len(t, chunks, 1)
		header := chunks[0].Metadata.ContextHeader
		assert.True(t, utf8.ValidString(header))
		assert.True(t, strings.HasSuffix(header, "..."))
		assert.Equal(t, 103, len([]rune(header)))
	})

	t.Run("untitled slide falls back to slide number", func(t *testing.T) {
		pages := []PageText{{Number: 4, Text: "ok\n"}}
		chunks := ChunkPresentation(pages, meta)

		require.Len(t, chunks, 1)
		assert.Equal(t, "Slide 5", chunks[0].Metadata.ContextHeader)
	})
}
