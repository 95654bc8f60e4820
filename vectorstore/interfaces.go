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

package vectorstore

import (
	"context"

	"github.com/poiesic/policyquery/ai"
	"github.com/poiesic/policyquery/core"
)

// Point is one chunk ready for storage: its deterministic ID, both vector
// representations, and the full chunk as payload.
type Point struct {
	ID     uint64
	Dense  []float32
	Sparse ai.SparseVector
	Chunk  core.Chunk
}

// QueryRequest carries both vector representations of a single search term.
// Limit bounds the number of fused results returned.
type QueryRequest struct {
	Dense  []float32
	Sparse ai.SparseVector
	Limit  uint64
}

// VectorStore is the persistence port for chunk vectors. Implementations
// run hybrid dense+sparse nearest-neighbor queries with rank fusion and
// must be safe for concurrent use.
type VectorStore interface {
	// EnsureCollection creates the backing collection and payload indexes
	// if they do not already exist. Idempotent.
	EnsureCollection(ctx context.Context) error

	// Upsert writes points, replacing any existing points with the same IDs.
	Upsert(ctx context.Context, points []Point) error

	// Query runs a hybrid search for one term. When the request carries no
	// sparse vector the search degrades to dense-only. Results arrive in
	// descending fusion-score order with Score and OriginalScore both set
	// to the raw fusion score.
	Query(ctx context.Context, req QueryRequest) ([]core.SearchResult, error)

	// Count returns the number of stored points.
	Count(ctx context.Context) (uint64, error)

	// Close releases the underlying client connection.
	Close() error
}
