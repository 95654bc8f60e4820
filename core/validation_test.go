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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateChunk(t *testing.T) {
	t.Run("valid chunk passes", func(t *testing.T) {
		chunk := &Chunk{
			Text:    "Dapagliflozin is recommended as an option for treating type 2 diabetes.",
			ChunkID: "National_ng28_chunk0",
		}
		require.NoError(t, ValidateChunk(chunk))
	})

	t.Run("nil chunk fails", func(t *testing.T) {
		err := ValidateChunk(nil)
		assert.ErrorIs(t, err, ErrInvalidChunk)
	})

	t.Run("missing chunk id fails", func(t *testing.T) {
		err := ValidateChunk(&Chunk{Text: "some text"})
		assert.ErrorIs(t, err, ErrInvalidChunk)
		assert.ErrorIs(t, err, ErrEmptyChunkID)
	})

	t.Run("missing text fails", func(t *testing.T) {
		err := ValidateChunk(&Chunk{ChunkID: "National_ng28_chunk0"})
		assert.ErrorIs(t, err, ErrInvalidChunk)
		assert.ErrorIs(t, err, ErrEmptyChunkText)
	})
}

func TestValidateQuery(t *testing.T) {
	t.Run("valid query passes", func(t *testing.T) {
		require.NoError(t, ValidateQuery("Can I get a CGM on the NHS?", 5))
	})

	t.Run("empty query fails", func(t *testing.T) {
		assert.ErrorIs(t, ValidateQuery("", 5), ErrEmptyQuery)
	})

	t.Run("non positive limit fails", func(t *testing.T) {
		assert.ErrorIs(t, ValidateQuery("query", 0), ErrInvalidLimit)
		assert.ErrorIs(t, ValidateQuery("query", -1), ErrInvalidLimit)
	})
}
