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

package ingestion

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/policyquery/core"
)

// stubRunner replies with canned output per command name.
type stubRunner struct {
	outputs map[string]string
	err     error
}

func (r stubRunner) Run(_ context.Context, name string, _ ...string) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []byte(r.outputs[name]), nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewParser(t *testing.T) {
	t.Run("missing data root", func(t *testing.T) {
		_, err := NewParser(filepath.Join(t.TempDir(), "nowhere"))
		assert.ErrorIs(t, err, ErrDataRootMissing)
	})

	t.Run("data root must be a directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file.txt")
		writeFile(t, path, "not a directory")

		_, err := NewParser(path)
		assert.ErrorIs(t, err, ErrDataRootMissing)
	})

	t.Run("valid directory", func(t *testing.T) {
		parser, err := NewParser(t.TempDir())
		require.NoError(t, err)
		assert.NotNil(t, parser)
	})
}

func TestDiscover(t *testing.T) {
	dataRoot := t.TempDir()
	writeFile(t, filepath.Join(dataRoot, "02_Local", "b-policy.txt"), "local")
	writeFile(t, filepath.Join(dataRoot, "01_National", "a-guideline.pdf"), "national")
	writeFile(t, filepath.Join(dataRoot, "03_Governance", "constitution.docx"), "governance")
	writeFile(t, filepath.Join(dataRoot, "README.md"), "not a policy document")

	parser, err := NewParser(dataRoot)
	require.NoError(t, err)

	documents, err := parser.Discover()
	require.NoError(t, err)

	require.Len(t, documents, 3)
	assert.Equal(t, filepath.Join(dataRoot, "01_National", "a-guideline.pdf"), documents[0])
	assert.Equal(t, filepath.Join(dataRoot, "02_Local", "b-policy.txt"), documents[1])
	assert.Equal(t, filepath.Join(dataRoot, "03_Governance", "constitution.docx"), documents[2])
}

func TestParseText(t *testing.T) {
	dataRoot := t.TempDir()

	t.Run("plain document joins pages without page records", func(t *testing.T) {
		path := filepath.Join(dataRoot, "02_Local", "202310-dapagliflozin-les.txt")
		writeFile(t, path, "Page one content.\fPage two content.")

		parser, err := NewParser(dataRoot)
		require.NoError(t, err)

		doc, err := parser.Parse(context.Background(), path)
		require.NoError(t, err)

		assert.Equal(t, "Page one content.\n\nPage two content.", doc.Text)
		assert.Empty(t, doc.Pages)
		assert.Equal(t, core.SourceLocal, doc.Metadata.SourceType)
		assert.Equal(t, "2023-10", doc.Metadata.LastUpdated)
	})

	t.Run("presentation filename keeps per-page text", func(t *testing.T) {
		path := filepath.Join(dataRoot, "02_Local", "diabetes-training-slides.txt")
		writeFile(t, path, "Slide one\fSlide two\f   \fSlide four")

		parser, err := NewParser(dataRoot)
		require.NoError(t, err)

		doc, err := parser.Parse(context.Background(), path)
		require.NoError(t, err)

		assert.True(t, doc.Metadata.IsPresentation)
		require.Len(t, doc.Pages, 3)
		assert.Equal(t, 0, doc.Pages[0].Number)
		assert.Equal(t, 1, doc.Pages[1].Number)
		assert.Equal(t, 3, doc.Pages[2].Number)
		assert.Equal(t, "Slide four", doc.Pages[2].Text)
	})
}

func TestParseUnsupportedFormat(t *testing.T) {
	dataRoot := t.TempDir()
	path := filepath.Join(dataRoot, "notes.md")
	writeFile(t, path, "markdown")

	parser, err := NewParser(dataRoot)
	require.NoError(t, err)

	_, err = parser.Parse(context.Background(), path)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParsePDF(t *testing.T) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		t.Skip("pdftotext not installed")
	}

	dataRoot := t.TempDir()

	t.Run("pages split on form feeds", func(t *testing.T) {
		path := filepath.Join(dataRoot, "01_National", "NG28-type2diabetes.pdf")
		writeFile(t, path, "placeholder")

		parser, err := NewParser(dataRoot)
		require.NoError(t, err)
		parser.SetRunner(stubRunner{outputs: map[string]string{
			"pdftotext": "Guideline overview.\fRecommendations.",
		}})

		doc, err := parser.Parse(context.Background(), path)
		require.NoError(t, err)

		assert.Equal(t, "Guideline overview.\n\nRecommendations.", doc.Text)
		assert.False(t, doc.Metadata.IsPresentation)
		assert.Empty(t, doc.Pages)
	})

	t.Run("long landscape document treated as presentation", func(t *testing.T) {
		path := filepath.Join(dataRoot, "02_Local", "diabetes-pathway-update.pdf")
		writeFile(t, path, "placeholder")

		pages := make([]string, minPresentationPages)
		for i := range pages {
			pages[i] = "Slide content"
		}

		parser, err := NewParser(dataRoot)
		require.NoError(t, err)
		parser.SetRunner(stubRunner{outputs: map[string]string{
			"pdftotext": strings.Join(pages, "\f"),
			"pdfinfo":   "Creator:        Impress\nPage size:      792 x 612 pts (letter)\n",
		}})

		doc, err := parser.Parse(context.Background(), path)
		require.NoError(t, err)

		assert.True(t, doc.Metadata.IsPresentation)
		assert.Len(t, doc.Pages, minPresentationPages)
	})

	t.Run("portrait document stays a plain document", func(t *testing.T) {
		path := filepath.Join(dataRoot, "02_Local", "diabetes-formulary.pdf")
		writeFile(t, path, "placeholder")

		pages := make([]string, minPresentationPages)
		for i := range pages {
			pages[i] = "Body text"
		}

		parser, err := NewParser(dataRoot)
		require.NoError(t, err)
		parser.SetRunner(stubRunner{outputs: map[string]string{
			"pdftotext": strings.Join(pages, "\f"),
			"pdfinfo":   "Page size:      612 x 792 pts (letter)\n",
		}})

		doc, err := parser.Parse(context.Background(), path)
		require.NoError(t, err)

		assert.False(t, doc.Metadata.IsPresentation)
		assert.Empty(t, doc.Pages)
	})
}

func TestIsLandscape(t *testing.T) {
	newParser := func(t *testing.T, runner CommandRunner) *Parser {
		t.Helper()
		parser, err := NewParser(t.TempDir())
		require.NoError(t, err)
		parser.SetRunner(runner)
		return parser
	}

	t.Run("wider than tall", func(t *testing.T) {
		parser := newParser(t, stubRunner{outputs: map[string]string{
			"pdfinfo": "Page size:      960 x 540 pts\n",
		}})
		landscape, err := parser.isLandscape(context.Background(), "deck.pdf")
		require.NoError(t, err)
		assert.True(t, landscape)
	})

	t.Run("taller than wide", func(t *testing.T) {
		parser := newParser(t, stubRunner{outputs: map[string]string{
			"pdfinfo": "Page size:      595 x 842 pts (A4)\n",
		}})
		landscape, err := parser.isLandscape(context.Background(), "report.pdf")
		require.NoError(t, err)
		assert.False(t, landscape)
	})

	t.Run("malformed page size line", func(t *testing.T) {
		parser := newParser(t, stubRunner{outputs: map[string]string{
			"pdfinfo": "Page size:      unreadable\n",
		}})
		landscape, err := parser.isLandscape(context.Background(), "odd.pdf")
		require.NoError(t, err)
		assert.False(t, landscape)
	})

	t.Run("pdfinfo failure surfaces", func(t *testing.T) {
		parser := newParser(t, stubRunner{err: exec.ErrNotFound})
		_, err := parser.isLandscape(context.Background(), "missing.pdf")
		assert.Error(t, err)
	})
}

func TestParseDOCX(t *testing.T) {
	const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Shared care protocol for dapagliflozin.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Prescribing transfers after </w:t></w:r><w:r><w:t>dose titration.</w:t></w:r></w:p>
    <w:tbl>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Drug</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>Dose</w:t></w:r></w:p></w:tc>
      </w:tr>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Dapagliflozin</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>10mg daily</w:t></w:r></w:p></w:tc>
      </w:tr>
    </w:tbl>
  </w:body>
</w:document>`

	writeDocx := func(t *testing.T, path, xml string) {
		t.Helper()
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		entry, err := zw.Create("word/document.xml")
		require.NoError(t, err)
		_, err = entry.Write([]byte(xml))
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		writeFile(t, path, buf.String())
	}

	dataRoot := t.TempDir()

	t.Run("paragraphs and table rows extracted", func(t *testing.T) {
		path := filepath.Join(dataRoot, "02_Local", "dapagliflozin-shared-care.docx")
		writeDocx(t, path, documentXML)

		parser, err := NewParser(dataRoot)
		require.NoError(t, err)

		doc, err := parser.Parse(context.Background(), path)
		require.NoError(t, err)

		expected := "Shared care protocol for dapagliflozin.\n\n" +
			"Prescribing transfers after dose titration.\n\n" +
			"Drug | Dose\n\n" +
			"Dapagliflozin | 10mg daily"
		assert.Equal(t, expected, doc.Text)
		assert.Equal(t, core.SourceLocal, doc.Metadata.SourceType)
		assert.Equal(t, "Diabetes", doc.Metadata.ClinicalArea)
	})

	t.Run("non-zip content is rejected", func(t *testing.T) {
		path := filepath.Join(dataRoot, "02_Local", "corrupt.docx")
		writeFile(t, path, "this is not a zip archive")

		parser, err := NewParser(dataRoot)
		require.NoError(t, err)

		_, err = parser.Parse(context.Background(), path)
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("malformed document xml is rejected", func(t *testing.T) {
		path := filepath.Join(dataRoot, "02_Local", "broken.docx")
		writeDocx(t, path, "<w:document><unterminated")

		parser, err := NewParser(dataRoot)
		require.NoError(t, err)

		_, err = parser.Parse(context.Background(), path)
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})
}

func TestSplitPages(t *testing.T) {
	t.Run("blank pages skipped but numbering preserved", func(t *testing.T) {
		pages := splitPages("one\f\t \f three")
		require.Len(t, pages, 2)
		assert.Equal(t, 0, pages[0].Number)
		assert.Equal(t, 2, pages[1].Number)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, splitPages("   "))
	})
}
