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
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/policyquery/ai"
	"github.com/poiesic/policyquery/core"
	"github.com/poiesic/policyquery/vectorstore"
)

// Searcher runs the full retrieval pipeline for one query: expansion,
// parallel per-term hybrid retrieval, deduplication, and reranking.
// It is stateless between queries and safe for concurrent use.
type Searcher struct {
	expander   *Expander
	retriever  *Retriever
	aggregator *Aggregator
	logger     *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithRankingPolicy selects the reranking formula.
// Default is core.TermMatchWeighted.
func WithRankingPolicy(policy core.RankingPolicy) Option {
	return func(s *Searcher) error {
		s.aggregator = NewAggregator(policy)
		return nil
	}
}

// WithCallTimeout bounds each external call (embedding, store query)
// made during retrieval. Default is DefaultCallTimeout.
func WithCallTimeout(timeout time.Duration) Option {
	return func(s *Searcher) error {
		s.retriever.timeout = timeout
		return nil
	}
}

// NewSearcher creates a new searcher over the given store and AI provider.
func NewSearcher(
	store vectorstore.VectorStore,
	provider ai.AIProvider,
	encoder ai.SparseEncoder,
	opts ...Option,
) (*Searcher, error) {
	if store == nil {
		return nil, ErrVectorStoreRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	if encoder == nil {
		return nil, ErrSparseEncoderRequired
	}

	logger := slog.Default().With("component", "searcher")
	s := &Searcher{
		expander:   NewExpander(provider.Completer(), logger),
		retriever:  NewRetriever(store, provider.Embedder(), encoder, DefaultCallTimeout, logger),
		aggregator: NewAggregator(core.TermMatchWeighted),
		logger:     logger,
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.expander.logger = s.logger
	s.retriever.logger = s.logger

	return s, nil
}

// Retrieve finds the chunks most relevant to the query.
// Returns up to limit results, ranked by blended relevance score.
func (s *Searcher) Retrieve(ctx context.Context, query string, limit int) ([]core.SearchResult, error) {
	return s.RetrieveWithMonitor(ctx, query, limit, nil)
}

// RetrieveWithMonitor finds the chunks most relevant to the query with
// monitoring. The monitor receives callbacks at each pipeline stage.
//
// The query is expanded into search terms, each term retrieved in
// parallel. A term whose retrieval fails is dropped with a logged error;
// the query proceeds with the remaining terms. Only when every term
// fails does the call return ErrAllTermsFailed. An empty result list
// with a nil error means the query genuinely matched nothing.
func (s *Searcher) RetrieveWithMonitor(ctx context.Context, query string, limit int, monitor SearchMonitor) ([]core.SearchResult, error) {
	if err := core.ValidateQuery(query, limit); err != nil {
		return nil, err
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query)

	// 1. Expand the query into diversified search terms (soft-fails to
	// the original query as the sole term).
	terms := s.expander.Expand(ctx, query)
	monitor.AfterExpansion(terms)

	// 2. Retrieve candidates per term in parallel. Request 2x the final
	// limit per term so deduplication still leaves enough candidates.
	resultSets := make([][]core.SearchResult, len(terms))
	termErrs := make([]error, len(terms))

	var wg sync.WaitGroup
	for i, term := range terms {
		wg.Add(1)
		go func(i int, term string) {
			defer wg.Done()
			results, err := s.retriever.Retrieve(ctx, term, uint64(limit)*2)
			if err != nil {
				termErrs[i] = err
				return
			}
			resultSets[i] = results
		}(i, term)
	}
	wg.Wait()

	failures := 0
	for i, err := range termErrs {
		if err != nil {
			failures++
			s.logger.Error("retrieval failed for search term", "term", terms[i], "err", err)
			monitor.TermFailed(terms[i], err)
			continue
		}
		monitor.AfterTermRetrieval(terms[i], resultSets[i])
	}
	if failures == len(terms) {
		return nil, ErrAllTermsFailed
	}

	// 3. Deduplicate across terms, first seen wins.
	merged := s.aggregator.Merge(resultSets)
	monitor.AfterDeduplication(merged)

	// 4. Rerank against the original query and truncate.
	final := s.aggregator.Rerank(merged, query, limit)
	monitor.Finish(final)

	s.logger.Info("retrieval complete",
		"query", query,
		"terms", len(terms),
		"candidates", len(merged),
		"results", len(final))

	return final, nil
}
