package ingestion

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/policyquery/ai"
	"github.com/poiesic/policyquery/core"
	"github.com/poiesic/policyquery/vectorstore"
)

// embedBatchSize bounds one embedding API call during indexing.
const embedBatchSize = 100

// Pipeline orchestrates document ingestion: parsing, chunking, optional
// persistence to disk, and indexing into the vector store. Documents are
// independent of one another, so parsing fans out across a worker pool.
type Pipeline struct {
	parser    *Parser
	pool      *ants.Pool
	chunkSize int
	overlap   int
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent parsing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithChunkSize sets the target chunk size in characters.
// Default is 1000.
func WithChunkSize(size int) Option {
	return func(p *Pipeline) error {
		if size > 0 {
			p.chunkSize = size
		}
		return nil
	}
}

// WithOverlap caps the carried-over text between adjacent chunks.
// Default is 200.
func WithOverlap(overlap int) Option {
	return func(p *Pipeline) error {
		if overlap >= 0 {
			p.overlap = overlap
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates an ingestion pipeline over the given parser.
func NewPipeline(parser *Parser, opts ...Option) (*Pipeline, error) {
	if parser == nil {
		return nil, ErrParserRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		parser:    parser,
		pool:      pool,
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
		logger:    slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Summary reports the outcome of a ParseAll run.
type Summary struct {
	Documents int
	Failed    int
	Chunks    int
}

// ParseAll discovers, parses and chunks every document under the data root.
// When outputDir is non-empty, each document's chunks are additionally saved
// there as a JSON array in "{stem}_chunks.json". Documents parse in parallel;
// a document that fails is logged and skipped rather than aborting the run.
func (p *Pipeline) ParseAll(ctx context.Context, outputDir string) ([]core.Chunk, Summary, error) {
	documents, err := p.parser.Discover()
	if err != nil {
		return nil, Summary{}, err
	}
	p.logger.Info("discovered documents", "count", len(documents))

	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return nil, Summary{}, err
		}
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		perDoc    = make([][]core.Chunk, len(documents))
		failCount int
	)

	for i, docPath := range documents {
		i, docPath := i, docPath
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()

			chunks, err := p.processDocument(ctx, docPath, outputDir)
			if err != nil {
				p.logger.Error("failed to parse document", "file", filepath.Base(docPath), "err", err)
				mu.Lock()
				failCount++
				mu.Unlock()
				return
			}
			perDoc[i] = chunks
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			failCount++
			mu.Unlock()
		}
	}
	wg.Wait()

	// Flatten in discovery order so output is deterministic.
	var allChunks []core.Chunk
	for _, chunks := range perDoc {
		allChunks = append(allChunks, chunks...)
	}

	summary := Summary{
		Documents: len(documents) - failCount,
		Failed:    failCount,
		Chunks:    len(allChunks),
	}
	p.logger.Info("ingestion complete",
		"documents", summary.Documents, "failed", summary.Failed, "chunks", summary.Chunks)
	return allChunks, summary, nil
}

func (p *Pipeline) processDocument(ctx context.Context, docPath, outputDir string) ([]core.Chunk, error) {
	doc, err := p.parser.Parse(ctx, docPath)
	if err != nil {
		return nil, err
	}

	var chunks []core.Chunk
	if doc.Metadata.IsPresentation && len(doc.Pages) > 0 {
		chunks = ChunkPresentation(doc.Pages, doc.Metadata)
		p.logger.Info("created slide chunks", "file", doc.Metadata.FileName, "chunks", len(chunks))
	} else {
		chunks = ChunkDocument(doc.Text, doc.Metadata, p.chunkSize, p.overlap)
		p.logger.Info("created chunks", "file", doc.Metadata.FileName, "chunks", len(chunks))
	}

	if outputDir != "" && len(chunks) > 0 {
		if err := saveChunks(outputDir, doc.Metadata.FileName, chunks); err != nil {
			return nil, err
		}
	}
	return chunks, nil
}

// saveChunks writes one JSON array per source document.
func saveChunks(outputDir, fileName string, chunks []core.Chunk) error {
	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return err
	}
	outputFile := filepath.Join(outputDir, fileStem(fileName)+"_chunks.json")
	return os.WriteFile(outputFile, data, 0o644)
}

// LoadChunks reads every "*_chunks.json" file in dir back into memory.
func LoadChunks(dir string) ([]core.Chunk, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*_chunks.json"))
	if err != nil {
		return nil, err
	}

	var all []core.Chunk
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		var chunks []core.Chunk
		if err := json.Unmarshal(data, &chunks); err != nil {
			return nil, err
		}
		all = append(all, chunks...)
	}
	return all, nil
}

// Index embeds chunks and upserts them into the vector store in batches.
// Point IDs derive from chunk IDs, so re-indexing the same corpus replaces
// points instead of accumulating duplicates.
func (p *Pipeline) Index(
	ctx context.Context,
	chunks []core.Chunk,
	store vectorstore.VectorStore,
	embedder ai.Embedder,
	encoder ai.SparseEncoder,
) error {
	if store == nil {
		return ErrVectorStoreRequired
	}
	if embedder == nil {
		return ErrEmbedderRequired
	}
	if encoder == nil {
		return ErrSparseEncoderRequired
	}

	if err := store.EnsureCollection(ctx); err != nil {
		return err
	}

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}

		dense, err := embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}

		points := make([]vectorstore.Point, len(batch))
		for i, chunk := range batch {
			points[i] = vectorstore.Point{
				ID:     core.PointID(chunk.ChunkID),
				Dense:  dense[i],
				Sparse: encoder.EncodeSparse(chunk.Text),
				Chunk:  chunk,
			}
		}

		if err := store.Upsert(ctx, points); err != nil {
			return err
		}
		p.logger.Info("indexed batch", "from", start, "to", end)
	}

	return nil
}

// Release releases the worker pool. The pipeline should not be used after
// calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
