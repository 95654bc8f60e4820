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

	"github.com/poiesic/policyquery/ai"
	"github.com/poiesic/policyquery/ai/bm25"
	"github.com/poiesic/policyquery/ai/openai"
	"github.com/poiesic/policyquery/ingestion"
	"github.com/poiesic/policyquery/vectorstore/qdrant"
)

func main() {
	app := &cli.App{
		Name:  "ingester",
		Usage: "Parse, chunk, and index policy documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "parse",
				Usage:  "Parse documents under the data root into chunk files",
				Action: parseCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data-root",
						Aliases:  []string{"d"},
						Usage:    "Root directory holding the policy document folders",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Directory for the per-document chunk JSON files",
						Value:   "chunks",
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Number of documents parsed concurrently",
					},
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Target chunk size in characters",
						Value: ingestion.DefaultChunkSize,
					},
					&cli.IntFlag{
						Name:  "overlap",
						Usage: "Maximum chunk overlap in characters",
						Value: ingestion.DefaultOverlap,
					},
				},
			},
			{
				Name:   "index",
				Usage:  "Embed chunk files and upsert them into the vector store",
				Action: indexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "chunks",
						Aliases: []string{"c"},
						Usage:   "Directory holding the chunk JSON files",
						Value:   "chunks",
					},
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
					&cli.StringFlag{
						Name:  "collection",
						Usage: "Qdrant collection name",
						Value: qdrant.DefaultCollection,
					},
					&cli.BoolFlag{
						Name:  "recreate",
						Usage: "Drop the collection and re-index from scratch",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func parseCommand(c *cli.Context) error {
	parser, err := ingestion.NewParser(c.String("data-root"))
	if err != nil {
		return fmt.Errorf("failed to open data root: %w", err)
	}

	var opts []ingestion.Option
	if poolSize := c.Int("pool-size"); poolSize > 0 {
		opts = append(opts, ingestion.WithPoolSize(poolSize))
	}
	if chunkSize := c.Int("chunk-size"); chunkSize > 0 {
		opts = append(opts, ingestion.WithChunkSize(chunkSize))
	}
	if overlap := c.Int("overlap"); overlap > 0 {
		opts = append(opts, ingestion.WithOverlap(overlap))
	}

	pipeline, err := ingestion.NewPipeline(parser, opts...)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	chunks, summary, err := pipeline.ParseAll(context.Background(), c.String("output"))
	if err != nil {
		return err
	}

	fmt.Printf("Parsed %d documents (%d failed) into %d chunks\n",
		summary.Documents, summary.Failed, len(chunks))
	return nil
}

func indexCommand(c *cli.Context) error {
	ctx := context.Background()

	chunks, err := ingestion.LoadChunks(c.String("chunks"))
	if err != nil {
		return fmt.Errorf("failed to load chunks: %w", err)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("no chunk files found in %s", c.String("chunks"))
	}

	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("openai-host")),
		ai.WithAPIKey(c.String("api-key")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	store, err := qdrant.NewStore(
		c.String("qdrant-host"),
		c.Int("qdrant-port"),
		c.String("qdrant-api-key"),
		qdrant.WithDimensions(uint64(aiConfig.EmbeddingDimensions)),
		qdrant.WithCollection(c.String("collection")),
		qdrant.WithRecreate(c.Bool("recreate")),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to vector store: %w", err)
	}
	defer store.Close()

	// Indexing needs no parser; any readable directory satisfies the
	// pipeline constructor.
	parser, err := ingestion.NewParser(".")
	if err != nil {
		return err
	}
	pipeline, err := ingestion.NewPipeline(parser)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	if err := pipeline.Index(ctx, chunks, store, embedder, bm25.NewEncoder()); err != nil {
		return err
	}

	count, err := store.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Indexed %d chunks (%d points in collection)\n", len(chunks), count)
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
