package ingestion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAcronyms(t *testing.T) {
	t.Run("expands first occurrence only", func(t *testing.T) {
		text := "Patients may be offered CGM if eligible. CGM devices require training."
		got := NormalizeAcronyms(text)

		assert.Contains(t, got, "CGM (continuous glucose monitoring)")
		assert.Equal(t, 1, strings.Count(got, "(continuous glucose monitoring)"))
	})

	t.Run("skips expansion when full form is nearby", func(t *testing.T) {
		text := "Continuous glucose monitoring (CGM) is available on prescription."
		got := NormalizeAcronyms(text)

		assert.Equal(t, text, got)
	})

	t.Run("matches whole words case-insensitively", func(t *testing.T) {
		got := NormalizeAcronyms("An ifr must be submitted by the clinician.")
		assert.Contains(t, got, "ifr (individual funding request)")
	})

	t.Run("longer acronyms win over their prefixes", func(t *testing.T) {
		got := NormalizeAcronyms("SGLT2i therapy has specific criteria.")
		assert.Contains(t, got, "SGLT2i (sodium-glucose cotransporter 2 inhibitor)")
		assert.NotContains(t, got, "SGLT2i (sodium-glucose cotransporter 2)")
	})

	t.Run("acronym embedded in a word is untouched", func(t *testing.T) {
		got := NormalizeAcronyms("The SHIFT trial reported outcomes.")
		// HF appears inside SHIFT but not as a word.
		assert.Equal(t, "The SHIFT trial reported outcomes.", got)
	})

	t.Run("text without acronyms passes through", func(t *testing.T) {
		text := "General advice for healthy eating and exercise."
		assert.Equal(t, text, NormalizeAcronyms(text))
	})
}
