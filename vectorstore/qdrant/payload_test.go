package qdrant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/policyquery/core"
)

func testChunk() core.Chunk {
	return core.Chunk{
		Text:    "Dapagliflozin is recommended for adults with type 2 diabetes.",
		ChunkID: "Local_202310-dapagliflozin-policy_chunk1",
		Metadata: core.ChunkMetadata{
			DocumentMetadata: core.DocumentMetadata{
				SourceType:     core.SourceLocal,
				Organization:   "CPICS",
				FileName:       "202310-dapagliflozin-policy.pdf",
				FilePath:       "02_Local/202310-dapagliflozin-policy.pdf",
				ClinicalArea:   "Diabetes",
				LastUpdated:    "2023-10",
				SortableDate:   "20231001",
				PriorityScore:  1.0,
				IsPresentation: false,
			},
			ContextHeader: "NICE Guidance:",
		},
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	original := testChunk()

	payload := buildPayload(original)
	restored := extractChunk(payload)

	assert.Equal(t, original, restored)
}

func TestBuildPayloadOmitsEmptyOptionalFields(t *testing.T) {
	chunk := testChunk()
	chunk.Metadata.LastUpdated = ""
	chunk.Metadata.ContextHeader = ""

	payload := buildPayload(chunk)

	_, hasLastUpdated := payload["last_updated"]
	_, hasHeader := payload["context_header"]
	assert.False(t, hasLastUpdated)
	assert.False(t, hasHeader)

	require.Contains(t, payload, "priority_score")
	assert.Equal(t, 1.0, payload["priority_score"].GetDoubleValue())
}

func TestExtractChunkToleratesMissingFields(t *testing.T) {
	restored := extractChunk(nil)
	assert.Empty(t, restored.Text)
	assert.Empty(t, restored.ChunkID)
	assert.Zero(t, restored.Metadata.PriorityScore)
}
