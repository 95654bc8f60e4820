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

	"github.com/poiesic/policyquery/core"
)

const (
	// DefaultChunkSize is the target chunk size in characters.
	DefaultChunkSize = 1000
	// DefaultOverlap caps the carried-over text between adjacent chunks.
	DefaultOverlap = 200
	// overlapLines is the maximum number of trailing lines carried into
	// the next chunk.
	overlapLines = 5
)

// ChunkDocument splits document text into chunks of roughly chunkSize
// characters, tagging each chunk with the nearest preceding section heading.
//
// Lines accumulate until the running size reaches chunkSize, at which point
// a chunk is emitted. Up to 5 trailing lines seed the next chunk, but only
// when their combined length stays under overlap; otherwise the next chunk
// starts empty. Chunk IDs are "{source_type}_{file_stem}_chunk{n}" with n
// starting at 1, so re-chunking the same document yields identical IDs.
func ChunkDocument(text string, metadata core.DocumentMetadata, chunkSize, overlap int) []core.Chunk {
	headings := DetectSectionHeadings(text)
	lines := strings.Split(text, "\n")

	var chunks []core.Chunk
	var currentLines []string
	currentSize := 0
	currentHeading := ""
	headingIndex := 0

	for i, line := range lines {
		if headingIndex < len(headings) && headings[headingIndex].Line == i {
			currentHeading = headings[headingIndex].Text
			headingIndex++
		}

		withNewline := line + "\n"
		currentLines = append(currentLines, withNewline)
		currentSize += len(withNewline)

		if currentSize < chunkSize {
			continue
		}

		if chunk, ok := buildChunk(currentLines, metadata, currentHeading, len(chunks)+1); ok {
			chunks = append(chunks, chunk)
		}

		if overlap > 0 && len(currentLines) > 0 {
			keep := overlapLines
			if keep > len(currentLines) {
				keep = len(currentLines)
			}
			overlapText := strings.Join(currentLines[len(currentLines)-keep:], "")
			if len(overlapText) < overlap {
				currentLines = []string{overlapText}
				currentSize = len(overlapText)
			} else {
				currentLines = nil
				currentSize = 0
			}
		} else {
			currentLines = nil
			currentSize = 0
		}
	}

	if len(currentLines) > 0 {
		if chunk, ok := buildChunk(currentLines, metadata, currentHeading, len(chunks)+1); ok {
			chunks = append(chunks, chunk)
		}
	}

	// Very short document: one chunk covering everything.
	if len(chunks) == 0 && strings.TrimSpace(text) != "" {
		chunks = append(chunks, core.Chunk{
			Text:     NormalizeAcronyms(strings.TrimSpace(text)),
			Metadata: core.ChunkMetadata{DocumentMetadata: metadata},
			ChunkID:  chunkID(metadata, 1),
		})
	}

	return chunks
}

// ChunkPresentation creates one chunk per slide from page texts. The slide
// title (first line longer than 3 characters, truncated at 100) is prepended
// to the slide body and recorded as the context header. Empty pages are
// skipped. Chunk IDs are "{source_type}_{file_stem}_slide{page+1}".
func ChunkPresentation(pages []PageText, metadata core.DocumentMetadata) []core.Chunk {
	var chunks []core.Chunk

	for _, page := range pages {
		body := strings.TrimSpace(page.Text)
		if body == "" {
			continue
		}

		title := slideTitle(page.Text)
		var text, header string
		if title != "" {
			text = "Slide: " + title + "\n\n" + body
			header = title
		} else {
			text = body
			header = fmt.Sprintf("Slide %d", page.Number+1)
		}

		chunks = append(chunks, core.Chunk{
			Text: NormalizeAcronyms(text),
			Metadata: core.ChunkMetadata{
				DocumentMetadata: metadata,
				ContextHeader:    header,
			},
			ChunkID: fmt.Sprintf("%s_%s_slide%d", metadata.SourceType, fileStem(metadata.FileName), page.Number+1),
		})
	}

	return chunks
}

func buildChunk(lines []string, metadata core.DocumentMetadata, heading string, n int) (core.Chunk, bool) {
	text := strings.TrimSpace(strings.Join(lines, ""))
	if text == "" {
		return core.Chunk{}, false
	}
	return core.Chunk{
		Text: NormalizeAcronyms(text),
		Metadata: core.ChunkMetadata{
			DocumentMetadata: metadata,
			ContextHeader:    heading,
		},
		ChunkID: chunkID(metadata, n),
	}, true
}

func chunkID(metadata core.DocumentMetadata, n int) string {
	return fmt.Sprintf("%s_%s_chunk%d", metadata.SourceType, fileStem(metadata.FileName), n)
}

// slideTitle returns the first non-empty line longer than 3 characters,
// whitespace-collapsed and truncated to 100 characters with an ellipsis.
func slideTitle(pageText string) string {
	for _, line := range strings.Split(pageText, "\n") {
		stripped := strings.TrimSpace(line)
		if len(stripped) <= 3 {
			continue
		}
		title := cleanHeading(stripped)
		if runes := []rune(title); len(runes) > 100 {
			title = string(runes[:100]) + "..."
		}
		return title
	}
	return ""
}
