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
	"encoding/xml"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/poiesic/policyquery/core"
)

// minPresentationPages is the page count at which a landscape PDF is
// treated as a slide deck even without a presentation filename.
const minPresentationPages = 10

// PageText is the text of a single page, numbered from zero.
type PageText struct {
	Number int
	Text   string
}

// ParsedDocument is the output of parsing one source file. Pages is
// populated only for presentations, where chunking is page-based.
type ParsedDocument struct {
	Text     string
	Metadata core.DocumentMetadata
	Pages    []PageText
}

// CommandRunner executes an external command and returns its stdout.
// Abstracted for testability; the default implementation shells out.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Parser extracts text and metadata from policy documents under a data root.
// PDF extraction shells out to poppler's pdftotext; DOCX files are read
// directly as ZIP archives.
type Parser struct {
	dataRoot string
	runner   CommandRunner
	logger   *slog.Logger
}

// NewParser creates a parser rooted at dataRoot.
func NewParser(dataRoot string) (*Parser, error) {
	info, err := os.Stat(dataRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDataRootMissing, dataRoot)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrDataRootMissing, dataRoot)
	}

	return &Parser{
		dataRoot: dataRoot,
		runner:   execRunner{},
		logger:   slog.Default().With("component", "parser"),
	}, nil
}

// SetRunner replaces the external command runner. Intended for tests.
func (p *Parser) SetRunner(runner CommandRunner) {
	p.runner = runner
}

// Discover finds all supported documents under the data root, sorted by path.
func (p *Parser) Discover() ([]string, error) {
	var documents []string

	err := filepath.WalkDir(p.dataRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".pdf", ".docx", ".txt":
			documents = append(documents, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(documents)
	return documents, nil
}

// Parse extracts text and metadata from a single document.
func (p *Parser) Parse(ctx context.Context, filePath string) (*ParsedDocument, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".pdf":
		return p.parsePDF(ctx, filePath)
	case ".docx":
		return p.parseDOCX(filePath)
	case ".txt":
		return p.parseText(filePath)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filePath))
	}
}

// parsePDF extracts page texts with pdftotext. Pages arrive separated by
// form feeds. A landscape deck of 10 or more pages is treated as a
// presentation even when the filename gives no hint.
func (p *Parser) parsePDF(ctx context.Context, filePath string) (*ParsedDocument, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, ErrPDFToolNotFound
	}

	output, err := p.runner.Run(ctx, "pdftotext", "-layout", filePath, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed for %s: %w", filePath, err)
	}

	pages := splitPages(string(output))
	metadata := InferMetadata(p.dataRoot, filePath)

	isPresentation := metadata.IsPresentation
	if !isPresentation && len(pages) >= minPresentationPages {
		if landscape, err := p.isLandscape(ctx, filePath); err == nil && landscape {
			p.logger.Info("landscape document treated as presentation",
				"file", metadata.FileName, "pages", len(pages))
			isPresentation = true
		}
	}
	metadata.IsPresentation = isPresentation

	fullText := joinPages(pages)
	if strings.TrimSpace(fullText) == "" {
		p.logger.Warn("document appears to be empty or unreadable", "file", metadata.FileName)
	}

	finalizeMetadata(&metadata, fullText)

	doc := &ParsedDocument{Text: fullText, Metadata: metadata}
	if isPresentation {
		doc.Pages = pages
	}
	return doc, nil
}

// isLandscape parses pdfinfo's "Page size" line to compare width and height.
func (p *Parser) isLandscape(ctx context.Context, filePath string) (bool, error) {
	output, err := p.runner.Run(ctx, "pdfinfo", filePath)
	if err != nil {
		return false, err
	}

	for _, line := range strings.Split(string(output), "\n") {
		if !strings.HasPrefix(line, "Page size:") {
			continue
		}
		// Format: "Page size:      792 x 612 pts (letter)"
		fields := strings.Fields(strings.TrimPrefix(line, "Page size:"))
		if len(fields) < 3 || fields[1] != "x" {
			return false, nil
		}
		width, errW := strconv.ParseFloat(fields[0], 64)
		height, errH := strconv.ParseFloat(fields[2], 64)
		if errW != nil || errH != nil {
			return false, nil
		}
		return width > height, nil
	}
	return false, nil
}

// parseDOCX reads word/document.xml from the ZIP container, emitting one
// line per paragraph and pipe-joined cell text per table row.
func (p *Parser) parseDOCX(filePath string) (*ParsedDocument, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filePath)
	}

	fullText, err := extractDocxText(reader)
	if err != nil {
		return nil, err
	}

	metadata := InferMetadata(p.dataRoot, filePath)
	if strings.TrimSpace(fullText) == "" {
		p.logger.Warn("document appears to be empty", "file", metadata.FileName)
	}
	finalizeMetadata(&metadata, fullText)

	return &ParsedDocument{Text: fullText, Metadata: metadata}, nil
}

// parseText reads a plain text file. Form feeds delimit pages, which lets
// plaintext fixtures exercise the presentation path.
func (p *Parser) parseText(filePath string) (*ParsedDocument, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	pages := splitPages(string(content))
	metadata := InferMetadata(p.dataRoot, filePath)
	fullText := joinPages(pages)
	finalizeMetadata(&metadata, fullText)

	doc := &ParsedDocument{Text: fullText, Metadata: metadata}
	if metadata.IsPresentation {
		doc.Pages = pages
	}
	return doc, nil
}

// finalizeMetadata applies refinements that need the document body: the
// governance organization scan.
func finalizeMetadata(metadata *core.DocumentMetadata, fullText string) {
	if metadata.SourceType == core.SourceGovernance && metadata.Organization == "Unknown" {
		metadata.Organization = EnhanceGovernanceOrganization(fullText, metadata.Organization)
	}
}

// splitPages breaks form-feed separated text into numbered non-empty pages.
func splitPages(text string) []PageText {
	var pages []PageText
	for i, page := range strings.Split(text, "\f") {
		if strings.TrimSpace(page) == "" {
			continue
		}
		pages = append(pages, PageText{Number: i, Text: page})
	}
	return pages
}

func joinPages(pages []PageText) string {
	parts := make([]string, len(pages))
	for i, page := range pages {
		parts[i] = page.Text
	}
	return strings.Join(parts, "\n\n")
}

// docx XML structures for word/document.xml.
type docxDocument struct {
	Body struct {
		Paragraphs []docxParagraph `xml:"p"`
		Tables     []docxTable     `xml:"tbl"`
	} `xml:"body"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text []docxText `xml:"t"`
}

type docxText struct {
	Content string `xml:",chardata"`
}

type docxTable struct {
	Rows []docxTableRow `xml:"tr"`
}

type docxTableRow struct {
	Cells []docxTableCell `xml:"tc"`
}

type docxTableCell struct {
	Paragraphs []docxParagraph `xml:"p"`
}

func extractDocxText(reader *zip.Reader) (string, error) {
	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", err
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", err
		}

		var doc docxDocument
		if err := xml.Unmarshal(content, &doc); err != nil {
			return "", fmt.Errorf("%w: malformed document.xml", ErrUnsupportedFormat)
		}

		var parts []string
		for _, para := range doc.Body.Paragraphs {
			if text := paragraphText(para); text != "" {
				parts = append(parts, text)
			}
		}
		for _, table := range doc.Body.Tables {
			for _, row := range table.Rows {
				var cells []string
				for _, cell := range row.Cells {
					var cellParts []string
					for _, para := range cell.Paragraphs {
						if text := paragraphText(para); text != "" {
							cellParts = append(cellParts, text)
						}
					}
					if joined := strings.Join(cellParts, " "); joined != "" {
						cells = append(cells, joined)
					}
				}
				if len(cells) > 0 {
					parts = append(parts, strings.Join(cells, " | "))
				}
			}
		}

		return strings.Join(parts, "\n\n"), nil
	}
	return "", nil
}

func paragraphText(para docxParagraph) string {
	var builder strings.Builder
	for _, run := range para.Runs {
		for _, text := range run.Text {
			builder.WriteString(text.Content)
		}
	}
	return strings.TrimSpace(builder.String())
}
