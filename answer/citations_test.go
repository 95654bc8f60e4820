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

package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractYear(t *testing.T) {
	t.Run("extracts year from year-month", func(t *testing.T) {
		assert.Equal(t, "2024", extractYear("2024-07"))
	})

	t.Run("extracts bare year", func(t *testing.T) {
		assert.Equal(t, "2023", extractYear("2023"))
	})

	t.Run("empty for missing or unknown dates", func(t *testing.T) {
		assert.Empty(t, extractYear(""))
		assert.Empty(t, extractYear("Unknown"))
		assert.Empty(t, extractYear("no date here"))
	})

	t.Run("ignores numbers outside a plausible year range", func(t *testing.T) {
		assert.Empty(t, extractYear("1234"))
	})
}

func TestExtractReferenceCode(t *testing.T) {
	t.Run("finds code in filename", func(t *testing.T) {
		code := extractReferenceCode("NG28-type2diabetes.pdf", "NICE", "")
		assert.Equal(t, "NG28", code)
	})

	t.Run("uppercases lowercase filename codes", func(t *testing.T) {
		code := extractReferenceCode("ta390-sglt2.pdf", "NICE", "")
		assert.Equal(t, "TA390", code)
	})

	t.Run("parenthesized code in text beats standalone", func(t *testing.T) {
		text := "See NG17 for type 1. Type 2 diabetes in adults: management (NG28)."
		code := extractReferenceCode("guideline.pdf", "NICE", text)
		assert.Equal(t, "NG28", code)
	})

	t.Run("guidance URL beats standalone mention", func(t *testing.T) {
		text := "Compare with TA999. Full guidance at www.nice.org.uk/guidance/ng28."
		code := extractReferenceCode("guideline.pdf", "NICE", text)
		assert.Equal(t, "NG28", code)
	})

	t.Run("falls back to standalone mention", func(t *testing.T) {
		code := extractReferenceCode("guideline.pdf", "NICE", "as recommended in NG28 section 1.2")
		assert.Equal(t, "NG28", code)
	})

	t.Run("only NICE documents carry codes", func(t *testing.T) {
		assert.Empty(t, extractReferenceCode("NG28-local-adaptation.pdf", "CPICS", ""))
	})

	t.Run("empty when nothing matches", func(t *testing.T) {
		assert.Empty(t, extractReferenceCode("guideline.pdf", "NICE", "no codes in this text"))
	})
}

func TestCitationKey(t *testing.T) {
	t.Run("NICE with reference code", func(t *testing.T) {
		assert.Equal(t, "(NICE, NG28)", citationKey("NICE", "2022", "NG28"))
	})

	t.Run("organization with year", func(t *testing.T) {
		assert.Equal(t, "(CPICS, 2023)", citationKey("CPICS", "2023", ""))
	})

	t.Run("organization only", func(t *testing.T) {
		assert.Equal(t, "(NHS England)", citationKey("NHS England", "", ""))
	})
}

func TestCleanDocumentName(t *testing.T) {
	assert.Equal(t, "local dapagliflozin policy", cleanDocumentName("local_dapagliflozin_policy.pdf"))
	assert.Equal(t, "shared care agreement", cleanDocumentName("shared_care_agreement.docx"))
}
