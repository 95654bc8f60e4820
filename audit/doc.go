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

// Package audit records every answered query for later evaluation: the
// query, its expansion terms, the retrieved chunks with their score
// breakdown, and the generated response.
//
// Entries are persisted in BadgerDB under time-ordered keys. All writes
// flow through a single writer goroutine fed by a channel, so concurrent
// queries never race on the trail.
package audit
