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

package policyquery

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/policyquery/ai"
	"github.com/poiesic/policyquery/ai/bm25"
	"github.com/poiesic/policyquery/ai/openai"
	"github.com/poiesic/policyquery/answer"
	"github.com/poiesic/policyquery/audit"
	"github.com/poiesic/policyquery/core"
	"github.com/poiesic/policyquery/ingestion"
	"github.com/poiesic/policyquery/search"
	"github.com/poiesic/policyquery/vectorstore"
	"github.com/poiesic/policyquery/vectorstore/qdrant"
)

// DefaultLimit is the number of chunks retrieved per query when the
// caller does not specify one.
const DefaultLimit = 10

// Engine wires the full pipeline together: retrieval, answer
// generation, and audit logging over a shared vector store and AI
// provider.
type Engine struct {
	store     vectorstore.VectorStore
	provider  ai.AIProvider
	encoder   ai.SparseEncoder
	searcher  *search.Searcher
	generator *answer.Generator
	trail     *audit.Trail
	logger    *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	aiConfig      *ai.Config
	store         vectorstore.VectorStore
	rankingPolicy core.RankingPolicy
	auditPath     string
	qdrantHost    string
	qdrantPort    int
	qdrantAPIKey  string
}

// WithAIConfig overrides the AI provider configuration.
func WithAIConfig(config *ai.Config) EngineOption {
	return func(o *engineOptions) {
		o.aiConfig = config
	}
}

// WithVectorStore supplies a pre-built vector store instead of
// connecting to Qdrant.
func WithVectorStore(store vectorstore.VectorStore) EngineOption {
	return func(o *engineOptions) {
		o.store = store
	}
}

// WithRankingPolicy selects the reranking formula.
// Default is core.TermMatchWeighted.
func WithRankingPolicy(policy core.RankingPolicy) EngineOption {
	return func(o *engineOptions) {
		o.rankingPolicy = policy
	}
}

// WithQdrant points the engine at a Qdrant instance.
// Default is localhost:6334 with no API key.
func WithQdrant(host string, port int, apiKey string) EngineOption {
	return func(o *engineOptions) {
		o.qdrantHost = host
		o.qdrantPort = port
		o.qdrantAPIKey = apiKey
	}
}

// WithAuditPath sets the directory for the persistent audit trail.
// Default is an in-memory trail.
func WithAuditPath(path string) EngineOption {
	return func(o *engineOptions) {
		o.auditPath = path
	}
}

// NewEngine assembles an engine from configuration.
func NewEngine(opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{
		aiConfig:      ai.DefaultConfig(),
		rankingPolicy: core.TermMatchWeighted,
		qdrantHost:    "localhost",
		qdrantPort:    6334,
	}
	for _, opt := range opts {
		opt(options)
	}

	logger := slog.Default().With("component", "engine")

	provider, err := openai.NewProvider(options.aiConfig)
	if err != nil {
		return nil, err
	}

	store := options.store
	if store == nil {
		store, err = qdrant.NewStore(options.qdrantHost, options.qdrantPort, options.qdrantAPIKey,
			qdrant.WithDimensions(uint64(options.aiConfig.EmbeddingDimensions)))
		if err != nil {
			provider.Close()
			return nil, err
		}
	}

	encoder := bm25.NewEncoder()

	searcher, err := search.NewSearcher(store, provider, encoder,
		search.WithRankingPolicy(options.rankingPolicy),
		search.WithLogger(logger))
	if err != nil {
		store.Close()
		provider.Close()
		return nil, err
	}

	generator, err := answer.NewGenerator(provider.Completer(), answer.WithLogger(logger))
	if err != nil {
		store.Close()
		provider.Close()
		return nil, err
	}

	var trail *audit.Trail
	if options.auditPath != "" {
		trail, err = audit.Open(options.auditPath)
	} else {
		trail, err = audit.OpenInMemory()
	}
	if err != nil {
		store.Close()
		provider.Close()
		return nil, err
	}

	return &Engine{
		store:     store,
		provider:  provider,
		encoder:   encoder,
		searcher:  searcher,
		generator: generator,
		trail:     trail,
		logger:    logger,
	}, nil
}

// NewEngineWithServices assembles an engine from pre-built components.
// Intended for tests and embedders that manage their own dependencies.
func NewEngineWithServices(store vectorstore.VectorStore, provider ai.AIProvider, trail *audit.Trail, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{rankingPolicy: core.TermMatchWeighted}
	for _, opt := range opts {
		opt(options)
	}

	logger := slog.Default().With("component", "engine")
	encoder := bm25.NewEncoder()

	searcher, err := search.NewSearcher(store, provider, encoder,
		search.WithRankingPolicy(options.rankingPolicy),
		search.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	generator, err := answer.NewGenerator(provider.Completer(), answer.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	if trail == nil {
		trail, err = audit.OpenInMemory()
		if err != nil {
			return nil, err
		}
	}

	return &Engine{
		store:     store,
		provider:  provider,
		encoder:   encoder,
		searcher:  searcher,
		generator: generator,
		trail:     trail,
		logger:    logger,
	}, nil
}

// Result is the complete outcome of one query.
type Result struct {
	Response      string              `json:"response"`
	Sources       []answer.Source     `json:"sources"`
	Chunks        []core.SearchResult `json:"chunks"`
	ExpandedTerms []string            `json:"expanded_terms"`
}

// termCapture records expansion terms as the searcher reports them.
type termCapture struct {
	search.SearchMonitor
	terms []string
}

func (c *termCapture) AfterExpansion(terms []string) {
	c.terms = terms
	c.SearchMonitor.AfterExpansion(terms)
}

// Query runs the full pipeline for one user query: expansion, hybrid
// retrieval, reranking, answer generation, and audit logging. An empty
// retrieval yields the fixed safety refusal rather than an error, and
// retrieval failing for every expansion term degrades to the same
// refusal outcome.
func (e *Engine) Query(ctx context.Context, query string, limit int) (*Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	monitor := &termCapture{SearchMonitor: search.NoopMonitor()}
	results, err := e.searcher.RetrieveWithMonitor(ctx, query, limit, monitor)
	if err != nil {
		if !errors.Is(err, search.ErrAllTermsFailed) {
			return nil, err
		}
		e.logger.Error("retrieval failed for all search terms", "query", query, "err", err)
		results = nil
	}

	generated, err := e.generator.Generate(ctx, query, results)
	if err != nil {
		return nil, err
	}

	if logErr := e.trail.Log(audit.NewEntry(query, generated.Response, monitor.terms, results)); logErr != nil {
		e.logger.Error("error logging query to audit trail", "err", logErr)
	}

	return &Result{
		Response:      generated.Response,
		Sources:       generated.Sources,
		Chunks:        results,
		ExpandedTerms: monitor.terms,
	}, nil
}

// Retrieve runs retrieval only, without answer synthesis or audit
// logging. Useful for relevance debugging.
func (e *Engine) Retrieve(ctx context.Context, query string, limit int) ([]core.SearchResult, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return e.searcher.Retrieve(ctx, query, limit)
}

// AuditTrail exposes the underlying trail for inspection.
func (e *Engine) AuditTrail() *audit.Trail {
	return e.trail
}

// VectorStore exposes the underlying store.
func (e *Engine) VectorStore() vectorstore.VectorStore {
	return e.store
}

// NewIngestionPipeline creates a pipeline rooted at dataRoot that can
// index into this engine's vector store via Index.
func (e *Engine) NewIngestionPipeline(dataRoot string, opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	parser, err := ingestion.NewParser(dataRoot)
	if err != nil {
		return nil, err
	}
	return ingestion.NewPipeline(parser, opts...)
}

// Index embeds and upserts parsed chunks into the vector store.
func (e *Engine) Index(ctx context.Context, pipeline *ingestion.Pipeline, chunks []core.Chunk) error {
	return pipeline.Index(ctx, chunks, e.store, e.provider.Embedder(), e.encoder)
}

// Close releases every component: the AI provider, the vector store,
// and the audit trail. All components are closed even when an earlier
// one fails; their errors are joined.
func (e *Engine) Close() error {
	return errors.Join(
		e.provider.Close(),
		e.store.Close(),
		e.trail.Close(),
	)
}
