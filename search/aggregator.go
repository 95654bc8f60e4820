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
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/policyquery/core"
)

// termMatchDenominator normalizes term matches: 3 or more matching query
// terms saturate the score at 1.0.
const termMatchDenominator = 3.0

// recencyDecayPerYear is the linear recency penalty. A document from the
// current year scores 1.0; each year of age costs 0.2, clamped to [0, 1].
const recencyDecayPerYear = 0.2

// defaultRecency is used when a chunk carries no parseable date.
const defaultRecency = 0.5

// Aggregator merges per-term result sets into one ranked list: results
// are deduplicated by chunk id in term order (first seen wins), then
// rescored with the configured ranking policy.
type Aggregator struct {
	policy core.RankingPolicy
	now    func() time.Time
}

// NewAggregator creates an aggregator using the given ranking policy.
func NewAggregator(policy core.RankingPolicy) *Aggregator {
	return &Aggregator{policy: policy, now: time.Now}
}

// Merge deduplicates results across term result sets. Sets are visited
// in order and within each set in rank order; a chunk id already seen
// is dropped, so a duplicate keeps the score from the term where it
// first appeared.
func (a *Aggregator) Merge(resultSets [][]core.SearchResult) []core.SearchResult {
	seen := make(map[string]bool)
	var merged []core.SearchResult

	for _, set := range resultSets {
		for _, result := range set {
			chunkID := result.Payload.ChunkID
			if chunkID == "" || seen[chunkID] {
				continue
			}
			seen[chunkID] = true
			merged = append(merged, result)
		}
	}

	return merged
}

// Rerank rescores merged results against the original user query and
// returns the top limit results in descending final-score order.
//
// Final score = w1*similarity + w2*signal + w3*recency, where the
// weights and the third signal come from the ranking policy: term-match
// weighting uses a dynamic query-term overlap score, priority weighting
// uses the chunk's fixed authority score.
func (a *Aggregator) Rerank(results []core.SearchResult, query string, limit int) []core.SearchResult {
	currentYear := a.now().Year()
	terms := queryTerms(query)
	wSimilarity, wSignal, wRecency := a.policy.Weights()

	reranked := make([]core.SearchResult, len(results))
	for i, result := range results {
		result.RecencyScore = recencyScore(result.Payload.Metadata.SortableDate, currentYear)
		result.TermMatchScore = termMatchScore(terms, result.Payload.Metadata)
		result.PriorityScore = result.Payload.Metadata.PriorityScore

		signal := result.TermMatchScore
		if a.policy == core.PriorityWeighted {
			signal = result.PriorityScore
		}

		result.Score = wSimilarity*result.OriginalScore +
			wSignal*signal +
			wRecency*result.RecencyScore
		reranked[i] = result
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})

	if limit > 0 && len(reranked) > limit {
		reranked = reranked[:limit]
	}
	return reranked
}

// recencyScore maps a sortable YYYYMMDD date to [0, 1] with linear decay
// from the current year. Missing or malformed dates score defaultRecency.
func recencyScore(sortableDate string, currentYear int) float64 {
	if len(sortableDate) < 4 {
		return defaultRecency
	}
	year, err := strconv.Atoi(sortableDate[:4])
	if err != nil {
		return defaultRecency
	}

	score := 1.0 - recencyDecayPerYear*float64(currentYear-year)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// termMatchScore counts how many query terms appear in the chunk's file
// name and clinical area, normalized so three matches saturate at 1.0.
func termMatchScore(terms []string, metadata core.ChunkMetadata) float64 {
	if len(terms) == 0 {
		return 0
	}

	combined := strings.ToLower(metadata.FileName + " " + metadata.ClinicalArea)
	matches := 0
	for _, term := range terms {
		if strings.Contains(combined, term) {
			matches++
		}
	}

	score := float64(matches) / termMatchDenominator
	if score > 1 {
		return 1
	}
	return score
}
