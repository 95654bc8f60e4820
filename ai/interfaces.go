package ai

import "context"

// Embedder generates dense vector embeddings from text for semantic
// similarity search. Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// SparseVector is a sparse lexical representation of a text. Indices are
// stable term hashes and Values are the corresponding term weights. Indices
// and Values always have the same length.
type SparseVector struct {
	Indices []uint32
	Values  []float32
}

// SparseEncoder produces sparse lexical vectors for keyword-style matching.
// Unlike Embedder it requires no remote model; encoding is purely local.
// Implementations must be thread-safe for concurrent use.
type SparseEncoder interface {
	// EncodeSparse converts text into a sparse term-weight vector.
	// Texts with no indexable terms yield a vector with empty Indices.
	EncodeSparse(text string) SparseVector
}

// Completer generates chat completions. It is used both for query expansion
// and for answer synthesis. Implementations must be thread-safe for
// concurrent use.
type Completer interface {
	// Complete sends a system prompt and a user message to the model and
	// returns the generated text. Returns an error if the generation fails.
	Complete(ctx context.Context, system, user string) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and
// lifecycle management. A provider creates and manages the Embedder and
// Completer, ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Completer returns the chat completion service.
	// The returned Completer is safe for concurrent use.
	Completer() Completer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
