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

// Package memory provides an in-memory vectorstore.VectorStore for tests
// and local development. It scores the dense leg with cosine similarity and
// the sparse leg with dot product, fusing both with reciprocal rank fusion
// the way the production store does server-side.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/poiesic/policyquery/ai"
	"github.com/poiesic/policyquery/core"
	"github.com/poiesic/policyquery/vectorstore"
)

// rrfK is the standard reciprocal rank fusion constant.
const rrfK = 60.0

// Store is an in-memory VectorStore. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	points map[uint64]vectorstore.Point
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{points: make(map[uint64]vectorstore.Point)}
}

// EnsureCollection is a no-op for the in-memory store.
func (s *Store) EnsureCollection(ctx context.Context) error {
	return nil
}

// Upsert replaces points by ID.
func (s *Store) Upsert(ctx context.Context, points []vectorstore.Point) error {
	if len(points) == 0 {
		return vectorstore.ErrEmptyBatch
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, point := range points {
		s.points[point.ID] = point
	}
	return nil
}

// Query ranks all stored points against the request and fuses the dense and
// sparse rankings with RRF.
func (s *Store) Query(ctx context.Context, req vectorstore.QueryRequest) ([]core.SearchResult, error) {
	if len(req.Dense) == 0 {
		return nil, vectorstore.ErrNoVectors
	}

	limit := int(req.Limit)
	if limit == 0 {
		limit = 10
	}

	s.mu.RLock()
	stored := make([]vectorstore.Point, 0, len(s.points))
	for _, point := range s.points {
		stored = append(stored, point)
	}
	s.mu.RUnlock()

	denseRank := rankBy(stored, func(p vectorstore.Point) float64 {
		return cosine(req.Dense, p.Dense)
	})

	fused := make(map[uint64]float64, len(stored))
	for rank, id := range denseRank {
		fused[id] += 1.0 / (rrfK + float64(rank+1))
	}

	if len(req.Sparse.Indices) > 0 {
		sparseRank := rankBy(stored, func(p vectorstore.Point) float64 {
			return sparseDot(req.Sparse, p.Sparse)
		})
		for rank, id := range sparseRank {
			fused[id] += 1.0 / (rrfK + float64(rank+1))
		}
	}

	byID := make(map[uint64]vectorstore.Point, len(stored))
	for _, point := range stored {
		byID[point.ID] = point
	}

	results := make([]core.SearchResult, 0, len(fused))
	for id, score := range fused {
		results = append(results, core.SearchResult{
			ID:            id,
			Payload:       byID[id].Chunk,
			Score:         score,
			OriginalScore: score,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].ID < results[j].ID
		}
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Count returns the number of stored points.
func (s *Store) Count(ctx context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.points)), nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// rankBy returns point IDs sorted by descending score under fn.
func rankBy(points []vectorstore.Point, fn func(vectorstore.Point) float64) []uint64 {
	type scored struct {
		id    uint64
		score float64
	}
	ranked := make([]scored, len(points))
	for i, point := range points {
		ranked[i] = scored{point.ID, fn(point)}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score == ranked[j].score {
			return ranked[i].id < ranked[j].id
		}
		return ranked[i].score > ranked[j].score
	})
	ids := make([]uint64, len(ranked))
	for i, r := range ranked {
		ids[i] = r.id
	}
	return ids
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func sparseDot(a, b ai.SparseVector) float64 {
	weights := make(map[uint32]float32, len(a.Indices))
	for i, idx := range a.Indices {
		weights[idx] = a.Values[i]
	}
	var dot float64
	for i, idx := range b.Indices {
		if w, ok := weights[idx]; ok {
			dot += float64(w) * float64(b.Values[i])
		}
	}
	return dot
}
