package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edenluchill/gulf-property-sub002/internal/aggregate"
	"github.com/edenluchill/gulf-property-sub002/internal/models"
)

// Config bounds the model call fan-out. Chunks are processed in
// sequential batches of BatchSize with BatchDelay between batches so a
// large brochure does not trip the Vertex quota, and every individual
// call is capped at CallTimeout.
type Config struct {
	BatchSize   int
	BatchDelay  time.Duration
	CallTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 3
	}
	if c.BatchDelay < 0 {
		c.BatchDelay = 0
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 4 * time.Minute
	}
	return c
}

// PageExtractor classifies the pages of one chunk.
type PageExtractor interface {
	ExtractPages(ctx context.Context, chunk models.Chunk) ([]models.PageRecord, error)
}

// BulkExtractor pulls coarse unit specs out of one chunk.
type BulkExtractor interface {
	ExtractUnits(ctx context.Context, chunk models.Chunk) ([]models.BulkUnit, error)
}

// Result is the outcome of processing all chunks of one job. Errors
// holds per-chunk failures; a job with failures still carries whatever
// was extracted from the chunks that succeeded.
type Result struct {
	Assignment    models.AssignmentResult
	Units         []models.UnitRecord
	Warnings      []string
	Errors        []string
	Success       bool
	PagesIngested int
}

// Processor drives the two extraction passes over a job's chunks,
// feeds the registry, and emits progress along the way.
type Processor struct {
	pages      PageExtractor
	bulk       BulkExtractor
	registry   *aggregate.Registry
	normalizer aggregate.AmenityNormalizer
	sink       ProgressSink
	cfg        Config
	logger     *slog.Logger
}

func NewProcessor(pages PageExtractor, bulk BulkExtractor, registry *aggregate.Registry, normalizer aggregate.AmenityNormalizer, sink ProgressSink, cfg Config, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = &LogSink{Logger: logger}
	}
	return &Processor{
		pages:      pages,
		bulk:       bulk,
		registry:   registry,
		normalizer: normalizer,
		sink:       sink,
		cfg:        cfg.withDefaults(),
		logger:     logger,
	}
}

// Run processes every chunk. Individual chunk failures are collected,
// not fatal; Run only returns an error when the context is cancelled
// before the job can finish.
func (p *Processor) Run(ctx context.Context, chunks []models.Chunk) (*Result, error) {
	start := time.Now()
	res := &Result{}

	p.registry.SetChangeListener(func(snapshot models.AssignmentResult) {
		p.sink.Publish(ctx, Progress{
			Stage:   "extracting",
			Message: fmt.Sprintf("%d units found so far", len(snapshot.Units)),
			Percent: -1,
			Result:  &snapshot,
		})
	})
	defer p.registry.SetChangeListener(nil)

	p.sink.Publish(ctx, Progress{Stage: "extracting", Message: "Starting page classification.", Percent: 5})

	var mu sync.Mutex
	completed := 0
	recordError := func(err error) {
		mu.Lock()
		res.Errors = append(res.Errors, err.Error())
		mu.Unlock()
	}
	advance := func(stage string, base, span int) {
		mu.Lock()
		completed++
		percent := base + completed*span/len(chunks)
		mu.Unlock()
		p.sink.Publish(ctx, Progress{Stage: stage, Percent: percent})
	}

	err := p.runBatches(ctx, chunks, func(ctx context.Context, chunk models.Chunk) {
		records, err := p.pages.ExtractPages(ctx, chunk)
		if err != nil {
			p.logger.ErrorContext(ctx, "Chunk page classification failed.",
				"sourceDocument", chunk.SourceDocument,
				"startPage", chunk.StartPage,
				"error", err)
			recordError(err)
		} else {
			inserted := p.registry.InsertPages(records)
			mu.Lock()
			res.PagesIngested += inserted
			mu.Unlock()
		}
		advance("extracting", 5, 55)
	})
	if err != nil {
		return nil, err
	}

	// Second pass. Bulk results are kept in chunk order so the final
	// assembly is deterministic regardless of completion order.
	completed = 0
	bulkByChunk := make([][]models.BulkUnit, len(chunks))
	err = p.runBatchesIndexed(ctx, chunks, func(ctx context.Context, i int, chunk models.Chunk) {
		units, err := p.bulk.ExtractUnits(ctx, chunk)
		if err != nil {
			p.logger.ErrorContext(ctx, "Chunk bulk unit extraction failed.",
				"sourceDocument", chunk.SourceDocument,
				"startPage", chunk.StartPage,
				"error", err)
			recordError(err)
		} else {
			mu.Lock()
			bulkByChunk[i] = units
			mu.Unlock()
		}
		advance("merging", 60, 30)
	})
	if err != nil {
		return nil, err
	}

	var bulk []models.BulkUnit
	for _, units := range bulkByChunk {
		bulk = append(bulk, units...)
	}

	p.sink.Publish(ctx, Progress{Stage: "finalizing", Message: "Normalizing amenities and merging units.", Percent: 92})

	assignment := p.registry.FinalAggregate(ctx, p.normalizer)
	units, warnings := aggregate.AssembleUnits(assignment.Units, bulk, p.logger)
	assignment.ProcessingTimeMs = time.Since(start).Milliseconds()

	res.Assignment = assignment
	res.Units = units
	res.Warnings = warnings
	res.Success = len(res.Errors) == 0

	p.sink.Publish(ctx, Progress{
		Stage:   "complete",
		Message: fmt.Sprintf("%d units, %d pages, %d errors", len(units), res.PagesIngested, len(res.Errors)),
		Percent: 100,
		Result:  &res.Assignment,
	})
	return res, nil
}

func (p *Processor) runBatches(ctx context.Context, chunks []models.Chunk, work func(context.Context, models.Chunk)) error {
	return p.runBatchesIndexed(ctx, chunks, func(ctx context.Context, _ int, chunk models.Chunk) {
		work(ctx, chunk)
	})
}

// runBatchesIndexed runs work over the chunks in sequential batches of
// cfg.BatchSize, pausing cfg.BatchDelay between batches. Workers handle
// their own failures; the only error out of here is context
// cancellation.
func (p *Processor) runBatchesIndexed(ctx context.Context, chunks []models.Chunk, work func(context.Context, int, models.Chunk)) error {
	for batchStart := 0; batchStart < len(chunks); batchStart += p.cfg.BatchSize {
		end := batchStart + p.cfg.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.cfg.BatchSize)
		for i := batchStart; i < end; i++ {
			g.Go(func() error {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				callCtx, cancel := context.WithTimeout(gctx, p.cfg.CallTimeout)
				defer cancel()
				work(callCtx, i, chunks[i])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("chunk batch cancelled: %w", err)
		}

		if end < len(chunks) && p.cfg.BatchDelay > 0 {
			select {
			case <-time.After(p.cfg.BatchDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return ctx.Err()
}
