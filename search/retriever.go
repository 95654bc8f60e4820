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

package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/policyquery/ai"
	"github.com/poiesic/policyquery/core"
	"github.com/poiesic/policyquery/vectorstore"
)

// DefaultCallTimeout bounds each external call made during retrieval
// (embedding generation and the store query).
const DefaultCallTimeout = 30 * time.Second

// Retriever performs hybrid retrieval for a single search term: the
// term is embedded densely and sparsely, and both vectors are submitted
// to the vector store for fused ranking. It applies no business-level
// reranking of its own.
type Retriever struct {
	store    vectorstore.VectorStore
	embedder ai.Embedder
	encoder  ai.SparseEncoder
	timeout  time.Duration
	logger   *slog.Logger
}

// NewRetriever creates a retriever over the given store and embedders.
func NewRetriever(store vectorstore.VectorStore, embedder ai.Embedder, encoder ai.SparseEncoder, timeout time.Duration, logger *slog.Logger) *Retriever {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		store:    store,
		embedder: embedder,
		encoder:  encoder,
		timeout:  timeout,
		logger:   logger,
	}
}

// Retrieve fetches up to limit candidate results for one search term.
// Callers that rerank afterwards should request an inflated limit so
// deduplication still leaves enough candidates.
func (r *Retriever) Retrieve(ctx context.Context, term string, limit uint64) ([]core.SearchResult, error) {
	embedCtx, cancel := context.WithTimeout(ctx, r.timeout)
	dense, err := r.embedder.EmbedText(embedCtx, term)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("embedding search term: %w", err)
	}

	sparse := r.encoder.EncodeSparse(term)

	queryCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	results, err := r.store.Query(queryCtx, vectorstore.QueryRequest{
		Dense:  dense,
		Sparse: sparse,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("querying vector store: %w", err)
	}

	r.logger.Debug("retrieved candidates", "term", term, "count", len(results))
	return results, nil
}
