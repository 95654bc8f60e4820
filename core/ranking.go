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

package core

// RankingPolicy selects the weighting scheme used to blend the vector
// store's similarity score with the document-level signals. A policy is
// chosen once at construction time and applies to every query.
type RankingPolicy int

const (
	// TermMatchWeighted blends 0.50 similarity, 0.40 query term overlap
	// and 0.10 recency. It rewards chunks whose document naming matches
	// the query vocabulary and is the default.
	TermMatchWeighted RankingPolicy = iota
	// PriorityWeighted blends 0.70 similarity, 0.20 source authority
	// and 0.10 recency. It favors local policy over national guidance
	// regardless of query wording.
	PriorityWeighted
)

// Weights returns the (similarity, signal, recency) weights for the policy.
// The signal weight applies to term overlap under TermMatchWeighted and to
// source priority under PriorityWeighted.
func (p RankingPolicy) Weights() (similarity, signal, recency float64) {
	if p == PriorityWeighted {
		return 0.70, 0.20, 0.10
	}
	return 0.50, 0.40, 0.10
}

func (p RankingPolicy) String() string {
	if p == PriorityWeighted {
		return "priority_weighted"
	}
	return "term_match_weighted"
}
