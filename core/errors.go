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

import "errors"

// ErrEmptyQuery indicates a query operation was called with no query text.
var ErrEmptyQuery = errors.New("query text cannot be empty")

// ErrInvalidChunk indicates a chunk that failed domain validation.
var ErrInvalidChunk = errors.New("invalid chunk")

// ErrEmptyChunkID indicates a chunk is missing its identifier.
var ErrEmptyChunkID = errors.New("chunk id cannot be empty")

// ErrEmptyChunkText indicates a chunk has no text content.
var ErrEmptyChunkText = errors.New("chunk text cannot be empty")

// ErrInvalidLimit indicates a result limit that is zero or negative.
var ErrInvalidLimit = errors.New("result limit must be positive")

// ErrVectorDimension indicates an embedding whose length does not match the
// collection's configured dense vector size.
var ErrVectorDimension = errors.New("embedding dimension mismatch")
