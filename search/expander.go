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

package search

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/poiesic/policyquery/ai"
)

// expansionTermCount is the exact number of search terms the expansion
// prompt requests. Responses with any other length are rejected.
const expansionTermCount = 3

const expansionSystemPrompt = "You are a clinical policy search assistant. Generate exactly 3 clinical search terms as a JSON array."

const queryExpansionPrompt = `You are a specialist medical policy search orchestrator.
Given a user query, generate exactly 3 distinct search terms to perform an exhaustive multi-vector search in an NHS clinical policy database.

### SEARCH GUIDELINES:
- **Nomenclature**: Identify the primary condition and map it to both formal clinical terms (SNOMED-CT/ICD-10 style) and common acronyms.
- **Term 1 (Access/Eligibility)**: Focus on 'Individual Funding Requests' (IFR), clinical inclusion/exclusion criteria, and ICB-specific eligibility thresholds.
- **Term 2 (Treatment/Pathways)**: Focus on specific drug names, NICE Technology Appraisals (TA), and primary/secondary care prescribing responsibilities.
- **Term 3 (Context/Governance)**: Focus on the patient's legal rights, commissioning frameworks, and the specific clinical governance hierarchy relevant to the condition.

Return ONLY a JSON array of exactly 3 strings.
User query: {query}
Response:`

// Expander widens a user query into diversified search terms using the
// completion model.
type Expander struct {
	completer ai.Completer
	logger    *slog.Logger
}

// NewExpander creates an expander backed by the given completer.
func NewExpander(completer ai.Completer, logger *slog.Logger) *Expander {
	if logger == nil {
		logger = slog.Default()
	}
	return &Expander{completer: completer, logger: logger}
}

// Expand generates exactly 3 distinct search terms for the query.
// Expansion fails soft: on any completion error, malformed JSON, or a
// response that is not exactly 3 strings, the original query is returned
// as the sole term. There is no re-prompting.
func (e *Expander) Expand(ctx context.Context, query string) []string {
	prompt := strings.ReplaceAll(queryExpansionPrompt, "{query}", query)

	response, err := e.completer.Complete(ctx, expansionSystemPrompt, prompt)
	if err != nil {
		e.logger.Warn("query expansion failed, using original query", "err", err)
		return []string{query}
	}

	terms, ok := parseExpansion(response)
	if !ok {
		e.logger.Warn("invalid expansion format, using original query", "response", response)
		return []string{query}
	}

	e.logger.Debug("expanded query", "query", query, "terms", terms)
	return terms
}

// parseExpansion parses the completion response as a JSON array of
// exactly 3 strings, stripping a markdown code fence if present.
func parseExpansion(response string) ([]string, bool) {
	text := strings.TrimSpace(response)
	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		if len(lines) > 2 {
			text = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}

	var terms []string
	if err := json.Unmarshal([]byte(text), &terms); err != nil {
		return nil, false
	}
	if len(terms) != expansionTermCount {
		return nil, false
	}
	return terms, true
}
