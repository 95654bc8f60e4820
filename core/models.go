package core

import (
	"encoding/binary"

	"github.com/go-crypt/x/blake2b"
)

// SourceType classifies the governance authority tier of a source document.
// It is derived from the top-level folder the document was ingested from.
type SourceType string

const (
	// SourceNational covers national guidance such as NICE guidelines.
	SourceNational SourceType = "National"
	// SourceLocal covers local commissioning policy, the primary authority.
	SourceLocal SourceType = "Local"
	// SourceGovernance covers governance and commissioning frameworks.
	SourceGovernance SourceType = "Governance"
	// SourceLegal covers legal and funding-process documents.
	SourceLegal SourceType = "Legal"
	// SourceUnknown is assigned when the source folder is not recognized.
	SourceUnknown SourceType = "Unknown"
)

// PriorityScore returns the fixed authority weight for the tier:
// Local 1.0, National 0.8, everything else 0.5.
func (s SourceType) PriorityScore() float64 {
	switch s {
	case SourceLocal:
		return 1.0
	case SourceNational:
		return 0.8
	default:
		return 0.5
	}
}

// DefaultSortableDate is used when no date can be extracted for a document.
const DefaultSortableDate = "20220101"

// DocumentMetadata describes a source document. It is inferred from the
// document's storage path and filename, refined during parsing, and
// denormalized into every chunk payload so retrieval needs no join.
type DocumentMetadata struct {
	SourceType     SourceType `json:"source_type"`
	Organization   string     `json:"organization"`
	FileName       string     `json:"file_name"`
	FilePath       string     `json:"file_path"`
	ClinicalArea   string     `json:"clinical_area"`
	LastUpdated    string     `json:"last_updated,omitempty"` // "YYYY-MM" when known
	SortableDate   string     `json:"sortable_date"`          // always 8 digits, YYYYMMDD
	PriorityScore  float64    `json:"priority_score"`
	IsPresentation bool       `json:"is_presentation"`
}

// ChunkMetadata is the per-chunk copy of the document metadata plus the
// nearest preceding section heading or slide title, when one was detected.
type ChunkMetadata struct {
	DocumentMetadata
	ContextHeader string `json:"context_header,omitempty"`
}

// Chunk is the unit of retrievable text. Chunks are created once during
// ingestion, are immutable thereafter, and are replaced wholesale when the
// document is re-ingested.
type Chunk struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
	ChunkID  string        `json:"chunk_id"`
}

// PointID derives a deterministic 64-bit vector store point ID from a chunk
// ID using BLAKE2b. Identical chunk IDs always map to the same point, so
// re-ingesting a document overwrites its points instead of duplicating them.
func PointID(chunkID string) uint64 {
	hasher, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	hasher.Write([]byte(chunkID))
	return binary.LittleEndian.Uint64(hasher.Sum(nil))
}

// SearchResult is an ephemeral per-query result. Score is the final blended
// score; OriginalScore is the raw fusion score from the store. The component
// scores that fed the blend are kept for audit logging.
type SearchResult struct {
	ID             uint64
	Payload        Chunk
	Score          float64
	OriginalScore  float64
	RecencyScore   float64
	TermMatchScore float64
	PriorityScore  float64
}
