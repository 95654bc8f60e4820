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
	"testing"

	"github.com/poiesic/policyquery/ai"
	"github.com/poiesic/policyquery/ai/bm25"
	"github.com/poiesic/policyquery/ai/mock"
	"github.com/poiesic/policyquery/answer"
	"github.com/poiesic/policyquery/core"
	"github.com/poiesic/policyquery/vectorstore"
	"github.com/poiesic/policyquery/vectorstore/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedChunks() []core.Chunk {
	return []core.Chunk{
		{
			Text:    "Dapagliflozin may be prescribed for adults with type 2 diabetes meeting local eligibility criteria.",
			ChunkID: "local_dapagliflozin_chunk1",
			Metadata: core.ChunkMetadata{DocumentMetadata: core.DocumentMetadata{
				SourceType:    core.SourceLocal,
				Organization:  "CPICS",
				FileName:      "202310-dapagliflozin-les.pdf",
				ClinicalArea:  "Diabetes",
				LastUpdated:   "2023-10",
				SortableDate:  "20231001",
				PriorityScore: 1.0,
			}},
		},
		{
			Text:    "Offer an SGLT2 inhibitor with proven cardiovascular benefit (NG28).",
			ChunkID: "national_ng28_chunk1",
			Metadata: core.ChunkMetadata{DocumentMetadata: core.DocumentMetadata{
				SourceType:    core.SourceNational,
				Organization:  "NICE",
				FileName:      "NG28-type2diabetes.pdf",
				ClinicalArea:  "Diabetes",
				LastUpdated:   "2022-02",
				SortableDate:  "20220201",
				PriorityScore: 0.8,
			}},
		},
	}
}

func newTestEngine(t *testing.T, completer *mock.MockCompleter) *Engine {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	embedder := mock.NewMockEmbedder()
	encoder := bm25.NewEncoder()

	points := make([]vectorstore.Point, 0, 2)
	for _, chunk := range seedChunks() {
		dense, err := embedder.EmbedText(ctx, chunk.Text)
		require.NoError(t, err)
		points = append(points, vectorstore.Point{
			ID:     core.PointID(chunk.ChunkID),
			Dense:  dense,
			Sparse: encoder.EncodeSparse(chunk.Text),
			Chunk:  chunk,
		})
	}
	require.NoError(t, store.Upsert(ctx, points))

	engine, err := NewEngineWithServices(store, mock.NewMockProviderWithServices(embedder, completer), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })
	return engine
}

func TestEngineQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("answers with sources and logs to the audit trail", func(t *testing.T) {
		completer := mock.NewMockCompleter()
		engine := newTestEngine(t, completer)

		// First completion call expands the query; the second generates
		// the answer. The mock returns its expansion JSON for both, which
		// the generator treats as ordinary response text.
		result, err := engine.Query(ctx, "dapagliflozin eligibility for diabetes", 5)
		require.NoError(t, err)

		assert.NotEmpty(t, result.Response)
		assert.NotEmpty(t, result.Chunks)
		assert.NotEmpty(t, result.Sources)
		assert.Len(t, result.ExpandedTerms, 3)

		engine.AuditTrail().Flush()
		entries, err := engine.AuditTrail().Recent(1)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "dapagliflozin eligibility for diabetes", entries[0].Query)
		assert.Equal(t, len(result.Chunks), entries[0].NumChunks)
	})

	t.Run("empty store yields the safety refusal", func(t *testing.T) {
		store := memory.NewStore()
		engine, err := NewEngineWithServices(store, mock.NewMockProvider(), nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = engine.Close() })

		result, err := engine.Query(ctx, "anything at all", 5)
		require.NoError(t, err)
		assert.Equal(t, answer.RefusalMessage, result.Response)
		assert.Empty(t, result.Chunks)
	})

	t.Run("unreachable store yields the safety refusal", func(t *testing.T) {
		engine, err := NewEngineWithServices(downStore{}, mock.NewMockProvider(), nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = engine.Close() })

		result, err := engine.Query(ctx, "dapagliflozin eligibility", 5)
		require.NoError(t, err)
		assert.Equal(t, answer.RefusalMessage, result.Response)
		assert.Empty(t, result.Chunks)
		assert.Empty(t, result.Sources)

		engine.AuditTrail().Flush()
		entries, err := engine.AuditTrail().Recent(1)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, answer.RefusalMessage, entries[0].Response)
		assert.Zero(t, entries[0].NumChunks)
	})

	t.Run("rejects invalid queries", func(t *testing.T) {
		engine := newTestEngine(t, mock.NewMockCompleter())
		_, err := engine.Query(ctx, "", 5)
		assert.ErrorIs(t, err, core.ErrEmptyQuery)
	})

	t.Run("retrieve skips generation and auditing", func(t *testing.T) {
		engine := newTestEngine(t, mock.NewMockCompleter())

		results, err := engine.Retrieve(ctx, "diabetes prescribing", 5)
		require.NoError(t, err)
		assert.NotEmpty(t, results)

		engine.AuditTrail().Flush()
		stats, err := engine.AuditTrail().Stats()
		require.NoError(t, err)
		assert.Zero(t, stats.TotalQueries)
	})
}

func TestEngineRankingPolicyOption(t *testing.T) {
	store := memory.NewStore()
	engine, err := NewEngineWithServices(store, mock.NewMockProvider(), nil,
		WithRankingPolicy(core.PriorityWeighted))
	require.NoError(t, err)
	require.NoError(t, engine.Close())
}

func TestEngineCloseJoinsErrors(t *testing.T) {
	provider := brokenCloseProvider{AIProvider: mock.NewMockProvider()}
	engine, err := NewEngineWithServices(memory.NewStore(), provider, nil)
	require.NoError(t, err)

	err = engine.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider connection stuck")
}

// downStore fails every query, as an unreachable vector backend would.
type downStore struct{}

func (downStore) EnsureCollection(context.Context) error            { return nil }
func (downStore) Upsert(context.Context, []vectorstore.Point) error { return nil }
func (downStore) Query(context.Context, vectorstore.QueryRequest) ([]core.SearchResult, error) {
	return nil, errors.New("vector store unavailable")
}
func (downStore) Count(context.Context) (uint64, error) { return 0, nil }
func (downStore) Close() error                          { return nil }

// brokenCloseProvider fails on Close only.
type brokenCloseProvider struct {
	ai.AIProvider
}

func (brokenCloseProvider) Close() error { return errors.New("provider connection stuck") }
