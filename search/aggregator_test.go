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
	"testing"
	"time"

	"github.com/poiesic/policyquery/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedYear(year int) func() time.Time {
	return func() time.Time {
		return time.Date(year, time.June, 1, 0, 0, 0, 0, time.UTC)
	}
}

func resultWith(chunkID string, score float64, metadata core.DocumentMetadata) core.SearchResult {
	return core.SearchResult{
		ID:            core.PointID(chunkID),
		Score:         score,
		OriginalScore: score,
		Payload: core.Chunk{
			Text:     "body of " + chunkID,
			ChunkID:  chunkID,
			Metadata: core.ChunkMetadata{DocumentMetadata: metadata},
		},
	}
}

func TestMerge(t *testing.T) {
	agg := NewAggregator(core.TermMatchWeighted)

	t.Run("keeps first occurrence of a duplicate chunk", func(t *testing.T) {
		setA := []core.SearchResult{
			resultWith("doc_chunk1", 0.9, core.DocumentMetadata{}),
			resultWith("doc_chunk2", 0.8, core.DocumentMetadata{}),
		}
		setB := []core.SearchResult{
			resultWith("doc_chunk1", 0.4, core.DocumentMetadata{}),
			resultWith("doc_chunk3", 0.7, core.DocumentMetadata{}),
		}

		merged := agg.Merge([][]core.SearchResult{setA, setB})

		require.Len(t, merged, 3)
		assert.Equal(t, "doc_chunk1", merged[0].Payload.ChunkID)
		assert.Equal(t, 0.9, merged[0].OriginalScore, "duplicate must keep the score from the first term it appeared in")
	})

	t.Run("skips results without a chunk id", func(t *testing.T) {
		set := []core.SearchResult{
			resultWith("", 0.9, core.DocumentMetadata{}),
			resultWith("doc_chunk1", 0.5, core.DocumentMetadata{}),
		}

		merged := agg.Merge([][]core.SearchResult{set})
		require.Len(t, merged, 1)
	})

	t.Run("empty input yields empty output", func(t *testing.T) {
		assert.Empty(t, agg.Merge(nil))
		assert.Empty(t, agg.Merge([][]core.SearchResult{nil, {}}))
	})
}

func TestRecencyScore(t *testing.T) {
	t.Run("current year scores one", func(t *testing.T) {
		assert.Equal(t, 1.0, recencyScore("20240115", 2024))
	})

	t.Run("decays linearly by year", func(t *testing.T) {
		assert.InDelta(t, 0.8, recencyScore("20230601", 2024), 1e-9)
		assert.InDelta(t, 0.6, recencyScore("20220101", 2024), 1e-9)
	})

	t.Run("clamps at zero for old documents", func(t *testing.T) {
		assert.Equal(t, 0.0, recencyScore("20100101", 2024))
	})

	t.Run("clamps at one for future dates", func(t *testing.T) {
		assert.Equal(t, 1.0, recencyScore("20300101", 2024))
	})

	t.Run("defaults when date is missing or malformed", func(t *testing.T) {
		assert.Equal(t, defaultRecency, recencyScore("", 2024))
		assert.Equal(t, defaultRecency, recencyScore("abc", 2024))
	})
}

func TestTermMatchScore(t *testing.T) {
	metadata := core.ChunkMetadata{
		DocumentMetadata: core.DocumentMetadata{
			FileName:     "202310-dapagliflozin-diabetes-les.pdf",
			ClinicalArea: "Diabetes",
		},
	}

	t.Run("counts matching terms against file name and clinical area", func(t *testing.T) {
		terms := queryTerms("dapagliflozin for diabetes patients")
		score := termMatchScore(terms, metadata)
		// dapagliflozin and diabetes match, patients does not.
		assert.InDelta(t, 2.0/3.0, score, 1e-9)
	})

	t.Run("saturates at one", func(t *testing.T) {
		terms := []string{"dapagliflozin", "diabetes", "les", "pdf"}
		assert.Equal(t, 1.0, termMatchScore(terms, metadata))
	})

	t.Run("zero when no query terms survive filtering", func(t *testing.T) {
		assert.Equal(t, 0.0, termMatchScore(queryTerms("what is the"), metadata))
	})
}

func TestQueryTerms(t *testing.T) {
	terms := queryTerms("What should I do for CGM funding?")
	assert.Equal(t, []string{"cgm", "funding"}, terms)
}

func TestRerank(t *testing.T) {
	t.Run("term match policy favors metadata overlap", func(t *testing.T) {
		agg := NewAggregator(core.TermMatchWeighted)
		agg.now = fixedYear(2024)

		matching := resultWith("match_chunk1", 0.5, core.DocumentMetadata{
			FileName:     "dapagliflozin-policy.pdf",
			ClinicalArea: "Diabetes",
			SortableDate: "20240101",
		})
		nonMatching := resultWith("other_chunk1", 0.5, core.DocumentMetadata{
			FileName:     "hip-surgery.pdf",
			ClinicalArea: "Orthopaedics",
			SortableDate: "20240101",
		})

		ranked := agg.Rerank([]core.SearchResult{nonMatching, matching}, "dapagliflozin diabetes eligibility", 10)

		require.Len(t, ranked, 2)
		assert.Equal(t, "match_chunk1", ranked[0].Payload.ChunkID)
		assert.Greater(t, ranked[0].Score, ranked[1].Score)
	})

	t.Run("priority policy favors local authority over national", func(t *testing.T) {
		agg := NewAggregator(core.PriorityWeighted)
		agg.now = fixedYear(2024)

		local := resultWith("local_chunk1", 0.5, core.DocumentMetadata{
			SourceType:    core.SourceLocal,
			PriorityScore: 1.0,
			SortableDate:  "20240101",
		})
		national := resultWith("national_chunk1", 0.5, core.DocumentMetadata{
			SourceType:    core.SourceNational,
			PriorityScore: 0.8,
			SortableDate:  "20240101",
		})

		ranked := agg.Rerank([]core.SearchResult{national, local}, "unrelated query terms", 10)

		require.Len(t, ranked, 2)
		assert.Equal(t, "local_chunk1", ranked[0].Payload.ChunkID)
	})

	t.Run("blended score follows the policy weights", func(t *testing.T) {
		agg := NewAggregator(core.TermMatchWeighted)
		agg.now = fixedYear(2024)

		result := resultWith("doc_chunk1", 0.6, core.DocumentMetadata{
			FileName:     "diabetes-policy.pdf",
			ClinicalArea: "Diabetes",
			SortableDate: "20230101",
		})

		ranked := agg.Rerank([]core.SearchResult{result}, "diabetes", 10)
		require.Len(t, ranked, 1)

		// 0.50*0.6 + 0.40*(1/3) + 0.10*0.8
		assert.InDelta(t, 0.50*0.6+0.40*(1.0/3.0)+0.10*0.8, ranked[0].Score, 1e-9)
		assert.Equal(t, 0.6, ranked[0].OriginalScore)
	})

	t.Run("truncates to limit", func(t *testing.T) {
		agg := NewAggregator(core.TermMatchWeighted)
		agg.now = fixedYear(2024)

		results := []core.SearchResult{
			resultWith("a_chunk1", 0.9, core.DocumentMetadata{SortableDate: "20240101"}),
			resultWith("b_chunk1", 0.8, core.DocumentMetadata{SortableDate: "20240101"}),
			resultWith("c_chunk1", 0.7, core.DocumentMetadata{SortableDate: "20240101"}),
		}

		ranked := agg.Rerank(results, "query", 2)
		require.Len(t, ranked, 2)
		assert.Equal(t, "a_chunk1", ranked[0].Payload.ChunkID)
	})
}
