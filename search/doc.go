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

// Package search implements the retrieval pipeline: query expansion,
// per-term hybrid retrieval against the vector store, cross-term
// deduplication, and multi-factor reranking.
//
// A query is expanded into three diversified search terms by the
// completion model. Each term is embedded (dense and sparse) and
// searched independently; result sets are merged with first-seen
// deduplication by chunk id, then reranked with a blend of fusion
// similarity, a third signal (term match or authority priority,
// selected by core.RankingPolicy), and document recency.
package search
