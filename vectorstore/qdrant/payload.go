package qdrant

import (
	qd "github.com/qdrant/go-client/qdrant"

	"github.com/poiesic/policyquery/core"
)

// buildPayload flattens a chunk into Qdrant payload values. Metadata fields
// sit at the top level so they can carry payload indexes.
func buildPayload(chunk core.Chunk) map[string]*qd.Value {
	m := chunk.Metadata
	payload := map[string]*qd.Value{
		"text":            qd.NewValueString(chunk.Text),
		"chunk_id":        qd.NewValueString(chunk.ChunkID),
		"source_type":     qd.NewValueString(string(m.SourceType)),
		"organization":    qd.NewValueString(m.Organization),
		"file_name":       qd.NewValueString(m.FileName),
		"file_path":       qd.NewValueString(m.FilePath),
		"clinical_area":   qd.NewValueString(m.ClinicalArea),
		"sortable_date":   qd.NewValueString(m.SortableDate),
		"priority_score":  qd.NewValueDouble(m.PriorityScore),
		"is_presentation": qd.NewValueBool(m.IsPresentation),
	}
	if m.LastUpdated != "" {
		payload["last_updated"] = qd.NewValueString(m.LastUpdated)
	}
	if m.ContextHeader != "" {
		payload["context_header"] = qd.NewValueString(m.ContextHeader)
	}
	return payload
}

// extractChunk rebuilds a chunk from a scored point's payload. Missing
// fields come back as zero values.
func extractChunk(payload map[string]*qd.Value) core.Chunk {
	return core.Chunk{
		Text:    stringField(payload, "text"),
		ChunkID: stringField(payload, "chunk_id"),
		Metadata: core.ChunkMetadata{
			DocumentMetadata: core.DocumentMetadata{
				SourceType:     core.SourceType(stringField(payload, "source_type")),
				Organization:   stringField(payload, "organization"),
				FileName:       stringField(payload, "file_name"),
				FilePath:       stringField(payload, "file_path"),
				ClinicalArea:   stringField(payload, "clinical_area"),
				LastUpdated:    stringField(payload, "last_updated"),
				SortableDate:   stringField(payload, "sortable_date"),
				PriorityScore:  doubleField(payload, "priority_score"),
				IsPresentation: boolField(payload, "is_presentation"),
			},
			ContextHeader: stringField(payload, "context_header"),
		},
	}
}

func stringField(payload map[string]*qd.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func doubleField(payload map[string]*qd.Value, key string) float64 {
	if v, ok := payload[key]; ok {
		return v.GetDoubleValue()
	}
	return 0
}

func boolField(payload map[string]*qd.Value, key string) bool {
	if v, ok := payload[key]; ok {
		return v.GetBoolValue()
	}
	return false
}
