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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/policyquery/ai"
	"github.com/poiesic/policyquery/core"
)

// ErrCompleterRequired is returned when a completer is not provided.
var ErrCompleterRequired = errors.New("completer required")

// Answer is a generated expert response with its supporting citations.
type Answer struct {
	Response string   `json:"response"`
	Sources  []Source `json:"sources"`
	Chunks   int      `json:"num_chunks"`
}

// Generator synthesizes cited answers from retrieval results.
type Generator struct {
	completer ai.Completer
	logger    *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger
		return nil
	}
}

// NewGenerator creates an answer generator over the given completer.
func NewGenerator(completer ai.Completer, opts ...Option) (*Generator, error) {
	if completer == nil {
		return nil, ErrCompleterRequired
	}

	g := &Generator{
		completer: completer,
		logger:    slog.Default().With("component", "generator"),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// Generate produces a cited answer for the query from the retrieved
// chunks. When results is empty it returns the fixed safety refusal
// without calling the model. A bibliography is appended to the model
// response unless the model already produced one.
func (g *Generator) Generate(ctx context.Context, query string, results []core.SearchResult) (*Answer, error) {
	if len(results) == 0 {
		g.logger.Info("no chunks retrieved, returning safety refusal", "query", query)
		return &Answer{Response: RefusalMessage}, nil
	}

	contextBlock := FormatContext(results)
	user := fmt.Sprintf("User Query: %s\n\nContext from Policy Documents:\n\n%s", query, contextBlock)

	response, err := g.completer.Complete(ctx, systemPrompt, user)
	if err != nil {
		g.logger.Error("error generating answer", "query", query, "err", err)
		return nil, fmt.Errorf("generating answer: %w", err)
	}
	response = strings.TrimSpace(response)

	sources := ExtractSources(results)
	if !strings.Contains(strings.ToLower(response), "bibliography") {
		if bibliography := FormatBibliography(sources); bibliography != "" {
			response += "\n\n" + bibliography
		}
	}

	g.logger.Info("answer generated", "query", query, "sources", len(sources), "chunks", len(results))

	return &Answer{
		Response: response,
		Sources:  sources,
		Chunks:   len(results),
	}, nil
}
