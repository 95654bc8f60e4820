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

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	policyquery "github.com/poiesic/policyquery"
	"github.com/poiesic/policyquery/ai"
	"github.com/poiesic/policyquery/audit"
	"github.com/poiesic/policyquery/core"
)

func main() {
	app := &cli.App{
		Name:   "policyquery",
		Usage:  "NHS clinical policy question answering over a hybrid vector index",
		Flags:  globalFlags(),
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:      "query",
				Usage:     "Ask a policy question and get a cited answer",
				ArgsUsage: "<question>",
				Action:    queryCommand,
				Flags:     append(engineFlags(), queryFlags()...),
			},
			{
				Name:      "search",
				Usage:     "Run retrieval only and print the ranked chunks",
				ArgsUsage: "<question>",
				Action:    searchCommand,
				Flags:     append(engineFlags(), queryFlags()...),
			},
			{
				Name:  "audit",
				Usage: "Inspect the query audit trail",
				Subcommands: []*cli.Command{
					{
						Name:   "recent",
						Usage:  "Show the most recent audit entries",
						Action: auditRecentCommand,
						Flags: []cli.Flag{
							auditDirFlag(),
							&cli.IntFlag{
								Name:    "count",
								Aliases: []string{"n"},
								Usage:   "Number of entries to show",
								Value:   10,
							},
						},
					},
					{
						Name:   "stats",
						Usage:  "Summarize the audit trail",
						Action: auditStatsCommand,
						Flags:  []cli.Flag{auditDirFlag()},
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Aliases: []string{"l"},
			Usage:   "Set logging level (debug, info, warn, error)",
			Value:   "info",
		},
	}
}

func engineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "openai-host",
			Usage: "OpenAI-compatible API host",
			Value: "https://api.openai.com/v1",
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "API key for the AI provider",
			EnvVars: []string{"OPENAI_API_KEY"},
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "text-embedding-3-small",
		},
		&cli.StringFlag{
			Name:  "completion-model",
			Usage: "Completion model name",
			Value: "gpt-3.5-turbo",
		},
		&cli.StringFlag{
			Name:    "qdrant-host",
			Usage:   "Qdrant host",
			EnvVars: []string{"QDRANT_HOST"},
			Value:   "localhost",
		},
		&cli.IntFlag{
			Name:  "qdrant-port",
			Usage: "Qdrant gRPC port",
			Value: 6334,
		},
		&cli.StringFlag{
			Name:    "qdrant-api-key",
			Usage:   "Qdrant API key",
			EnvVars: []string{"QDRANT_API_KEY"},
		},
		auditDirFlag(),
	}
}

func queryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of chunks to retrieve",
			Value: policyquery.DefaultLimit,
		},
		&cli.StringFlag{
			Name:  "ranking-policy",
			Usage: "Reranking policy (term-match or priority)",
			Value: "term-match",
		},
	}
}

func auditDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "audit-dir",
		Usage: "Directory for the persistent audit trail",
		Value: "logs/audit",
	}
}

func newEngine(c *cli.Context) (*policyquery.Engine, error) {
	policy, err := parseRankingPolicy(c.String("ranking-policy"))
	if err != nil {
		return nil, err
	}

	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("openai-host")),
		ai.WithAPIKey(c.String("api-key")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithCompletionModel(c.String("completion-model")),
	)

	return policyquery.NewEngine(
		policyquery.WithAIConfig(aiConfig),
		policyquery.WithQdrant(c.String("qdrant-host"), c.Int("qdrant-port"), c.String("qdrant-api-key")),
		policyquery.WithRankingPolicy(policy),
		policyquery.WithAuditPath(c.String("audit-dir")),
	)
}

func parseRankingPolicy(name string) (core.RankingPolicy, error) {
	switch strings.ToLower(name) {
	case "term-match":
		return core.TermMatchWeighted, nil
	case "priority":
		return core.PriorityWeighted, nil
	default:
		return 0, fmt.Errorf("invalid ranking policy %q: must be term-match or priority", name)
	}
}

func queryCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}

	engine, err := newEngine(c)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer engine.Close()

	result, err := engine.Query(context.Background(), question, c.Int("limit"))
	if err != nil {
		return err
	}

	fmt.Println(result.Response)

	if len(result.Sources) > 0 {
		fmt.Printf("\n[%d chunks from %d documents", len(result.Chunks), len(result.Sources))
		if len(result.ExpandedTerms) > 1 {
			fmt.Printf(", expanded to %d search terms", len(result.ExpandedTerms))
		}
		fmt.Println("]")
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}

	engine, err := newEngine(c)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer engine.Close()

	results, err := engine.Retrieve(context.Background(), question, c.Int("limit"))
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No matching chunks.")
		return nil
	}

	for i, result := range results {
		metadata := result.Payload.Metadata
		fmt.Printf("%2d. %.4f (fusion %.4f, term %.2f, recency %.2f) %s [%s | %s]\n",
			i+1, result.Score, result.OriginalScore, result.TermMatchScore, result.RecencyScore,
			result.Payload.ChunkID, metadata.SourceType, metadata.Organization)
	}
	return nil
}

func auditRecentCommand(c *cli.Context) error {
	trail, err := audit.Open(c.String("audit-dir"))
	if err != nil {
		return fmt.Errorf("failed to open audit trail: %w", err)
	}
	defer trail.Close()

	entries, err := trail.Recent(c.Int("count"))
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("Audit trail is empty.")
		return nil
	}

	for _, entry := range entries {
		fmt.Printf("%s  %q  (%d chunks, %d terms)\n",
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.Query, entry.NumChunks, len(entry.ExpandedTerms))
	}
	return nil
}

func auditStatsCommand(c *cli.Context) error {
	trail, err := audit.Open(c.String("audit-dir"))
	if err != nil {
		return fmt.Errorf("failed to open audit trail: %w", err)
	}
	defer trail.Close()

	stats, err := trail.Stats()
	if err != nil {
		return err
	}

	fmt.Printf("Total queries:        %d\n", stats.TotalQueries)
	fmt.Printf("Total chunks:         %d\n", stats.TotalChunks)
	fmt.Printf("Avg chunks per query: %.2f\n", stats.AvgChunksPerQuery)
	if !stats.FirstQuery.IsZero() {
		fmt.Printf("First query:          %s\n", stats.FirstQuery.Format("2006-01-02 15:04:05"))
		fmt.Printf("Last query:           %s\n", stats.LastQuery.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func setup(c *cli.Context) error {
	// Missing .env files are fine; environment variables still apply.
	_ = godotenv.Load()
	return setupLogger(c)
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
