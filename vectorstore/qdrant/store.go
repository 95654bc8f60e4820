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

// Package qdrant implements the vectorstore port against a Qdrant server.
//
// The collection carries two named vectors per point: "dense" (cosine
// distance) for semantic similarity and "sparse" with the IDF modifier for
// lexical matching. Hybrid queries prefetch both legs and fuse them with
// reciprocal rank fusion server-side.
package qdrant

import (
	"context"
	"log/slog"

	qd "github.com/qdrant/go-client/qdrant"

	"github.com/poiesic/policyquery/core"
	"github.com/poiesic/policyquery/vectorstore"
)

const (
	// DefaultCollection is the collection holding policy chunks.
	DefaultCollection = "nhs_expert_policy"

	denseVectorName  = "dense"
	sparseVectorName = "sparse"

	// upsertBatchSize bounds a single upsert request.
	upsertBatchSize = 100
)

// Store implements vectorstore.VectorStore backed by Qdrant.
type Store struct {
	client     *qd.Client
	collection string
	dimensions uint64
	recreate   bool
	logger     *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithCollection overrides the collection name.
func WithCollection(name string) Option {
	return func(s *Store) {
		s.collection = name
	}
}

// WithDimensions sets the dense vector size. Default is 1536.
func WithDimensions(dims uint64) Option {
	return func(s *Store) {
		s.dimensions = dims
	}
}

// WithRecreate drops an existing collection on EnsureCollection, forcing a
// full re-index.
func WithRecreate(recreate bool) Option {
	return func(s *Store) {
		s.recreate = recreate
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore connects to a Qdrant server.
//
// Returns vectorstore.VectorStore interface to enforce abstraction.
func NewStore(host string, port int, apiKey string, opts ...Option) (vectorstore.VectorStore, error) {
	client, err := qd.NewClient(&qd.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
	})
	if err != nil {
		return nil, err
	}

	s := &Store{
		client:     client,
		collection: DefaultCollection,
		dimensions: 1536,
		logger:     slog.Default().With("component", "qdrant-store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// EnsureCollection creates the collection with both named vectors and the
// payload indexes used for filtered retrieval. Safe to call repeatedly
// unless the store was built with WithRecreate, which drops any existing
// collection first.
func (s *Store) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return err
	}
	if exists {
		if !s.recreate {
			return nil
		}
		s.logger.Warn("dropping existing collection", "name", s.collection)
		if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
			return err
		}
	}

	err = s.client.CreateCollection(ctx, &qd.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qd.NewVectorsConfigMap(map[string]*qd.VectorParams{
			denseVectorName: {
				Size:     s.dimensions,
				Distance: qd.Distance_Cosine,
			},
		}),
		SparseVectorsConfig: qd.NewSparseVectorsConfig(map[string]*qd.SparseVectorParams{
			sparseVectorName: {
				Modifier: qd.Modifier_Idf.Enum(),
			},
		}),
	})
	if err != nil {
		return err
	}

	indexes := []struct {
		field     string
		fieldType qd.FieldType
	}{
		{"source_type", qd.FieldType_FieldTypeKeyword},
		{"priority_score", qd.FieldType_FieldTypeFloat},
		{"clinical_area", qd.FieldType_FieldTypeKeyword},
		{"organization", qd.FieldType_FieldTypeKeyword},
	}
	for _, idx := range indexes {
		_, err := s.client.CreateFieldIndex(ctx, &qd.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      idx.field,
			FieldType:      idx.fieldType.Enum(),
		})
		if err != nil {
			return err
		}
	}

	s.logger.Info("created collection", "name", s.collection, "dimensions", s.dimensions)
	return nil
}

// Upsert writes points in batches of 100, waiting for each batch to land.
func (s *Store) Upsert(ctx context.Context, points []vectorstore.Point) error {
	if len(points) == 0 {
		return vectorstore.ErrEmptyBatch
	}

	structs := make([]*qd.PointStruct, len(points))
	for i, point := range points {
		vectors := map[string]*qd.Vector{
			denseVectorName: qd.NewVector(point.Dense...),
		}
		if len(point.Sparse.Indices) > 0 {
			vectors[sparseVectorName] = qd.NewVectorSparse(point.Sparse.Indices, point.Sparse.Values)
		}
		structs[i] = &qd.PointStruct{
			Id:      qd.NewIDNum(point.ID),
			Vectors: qd.NewVectorsMap(vectors),
			Payload: buildPayload(point.Chunk),
		}
	}

	for start := 0; start < len(structs); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(structs) {
			end = len(structs)
		}
		_, err := s.client.Upsert(ctx, &qd.UpsertPoints{
			CollectionName: s.collection,
			Points:         structs[start:end],
			Wait:           qd.PtrOf(true),
		})
		if err != nil {
			return err
		}
		s.logger.Debug("upserted batch", "from", start, "to", end)
	}

	return nil
}

// Query runs a hybrid dense+sparse query fused with RRF. Without a sparse
// vector it degrades to a plain dense nearest-neighbor search.
func (s *Store) Query(ctx context.Context, req vectorstore.QueryRequest) ([]core.SearchResult, error) {
	if len(req.Dense) == 0 {
		return nil, vectorstore.ErrNoVectors
	}

	limit := req.Limit
	if limit == 0 {
		limit = 10
	}

	query := &qd.QueryPoints{
		CollectionName: s.collection,
		Limit:          qd.PtrOf(limit),
		WithPayload:    qd.NewWithPayload(true),
	}

	if len(req.Sparse.Indices) > 0 {
		query.Prefetch = []*qd.PrefetchQuery{
			{
				Query: qd.NewQueryDense(req.Dense),
				Using: qd.PtrOf(denseVectorName),
				Limit: qd.PtrOf(limit),
			},
			{
				Query: qd.NewQuerySparse(req.Sparse.Indices, req.Sparse.Values),
				Using: qd.PtrOf(sparseVectorName),
				Limit: qd.PtrOf(limit),
			},
		}
		query.Query = qd.NewQueryFusion(qd.Fusion_RRF)
	} else {
		query.Query = qd.NewQueryDense(req.Dense)
		query.Using = qd.PtrOf(denseVectorName)
	}

	scored, err := s.client.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	results := make([]core.SearchResult, 0, len(scored))
	for _, point := range scored {
		chunk := extractChunk(point.GetPayload())
		results = append(results, core.SearchResult{
			ID:            point.GetId().GetNum(),
			Payload:       chunk,
			Score:         float64(point.GetScore()),
			OriginalScore: float64(point.GetScore()),
		})
	}
	return results, nil
}

// Count returns the exact number of stored points.
func (s *Store) Count(ctx context.Context) (uint64, error) {
	return s.client.Count(ctx, &qd.CountPoints{
		CollectionName: s.collection,
		Exact:          qd.PtrOf(true),
	})
}

// Close releases the underlying gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}
