package vectorstore

import "errors"

var (
	// ErrNoVectors is returned when a query carries neither a dense nor a
	// sparse vector.
	ErrNoVectors = errors.New("query requires at least a dense vector")

	// ErrEmptyBatch is returned when Upsert is called with no points.
	ErrEmptyBatch = errors.New("upsert batch cannot be empty")
)
