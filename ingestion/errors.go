package ingestion

import "errors"

var (
	// ErrDataRootMissing is returned when the data root directory does not exist.
	ErrDataRootMissing = errors.New("data root directory does not exist")

	// ErrUnsupportedFormat is returned for file types the parser cannot handle.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrPDFToolNotFound is returned when pdftotext is not installed.
	ErrPDFToolNotFound = errors.New("pdftotext not found in PATH: install poppler-utils")

	// ErrParserRequired is returned when a parser is not provided.
	ErrParserRequired = errors.New("parser required")

	// ErrVectorStoreRequired is returned when a vector store is not provided.
	ErrVectorStoreRequired = errors.New("vector store required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrSparseEncoderRequired is returned when a sparse encoder is not provided.
	ErrSparseEncoderRequired = errors.New("sparse encoder required")
)
