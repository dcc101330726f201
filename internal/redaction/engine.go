package redaction

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultChunkSize  = 5000
	DefaultBatchSize  = 5
	DefaultMaxBatches = 3
	DefaultThreshold  = 0.8
	DefaultTimeout    = 10 * time.Second
)

// Detector is the PII detection service capability
type Detector interface {
	// Detect returns one result per document, in request order.
	Detect(ctx context.Context, docs []Document, opts DetectOptions) ([]DocumentResult, error)
}

// Options bounds the size and cost of a detection run. Zero sizes and
// timeouts take the defaults; a zero Threshold keeps every entity, so callers
// wanting DefaultThreshold set it explicitly.
type Options struct {
	ChunkSize  int
	BatchSize  int
	MaxBatches int
	Threshold  float64
	Language   string
	Categories []string
	Timeout    time.Duration
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.MaxBatches <= 0 {
		o.MaxBatches = DefaultMaxBatches
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// Engine chunks text, fans batches out to the detector and recombines the results
type Engine struct {
	detector Detector
	opts     Options
	logger   logrus.FieldLogger
}

// NewEngine creates a suggestion engine. A nil detector disables suggestions.
func NewEngine(detector Detector, opts Options, logger logrus.FieldLogger) *Engine {
	return &Engine{
		detector: detector,
		opts:     opts.withDefaults(),
		logger:   logger,
	}
}

// Enabled reports whether a detector is configured
func (e *Engine) Enabled() bool {
	return e != nil && e.detector != nil
}

// FetchRedactionSuggestions returns PII suggestions for text, or nil when no
// suggestion can be offered. Failures are logged, never returned.
func (e *Engine) FetchRedactionSuggestions(ctx context.Context, text string) *Suggestion {
	if text == "" || !e.Enabled() {
		return nil
	}

	chunks := ChunkText(text, e.opts.ChunkSize)
	batches := BatchChunks(chunks, e.opts.BatchSize)
	if len(batches) > e.opts.MaxBatches {
		e.logger.WithFields(logrus.Fields{
			"text_length": len([]rune(text)),
			"batches":     len(batches),
			"max_batches": e.opts.MaxBatches,
		}).Warn("Text too long for redaction suggestions, skipping")
		return nil
	}

	results, err := e.detectAll(ctx, batches)
	if err != nil {
		e.logger.WithError(err).WithField("text_length", len([]rune(text))).
			Error("Redaction suggestion request failed")
		return nil
	}

	entities, ok := e.collectEntities(results)
	if !ok {
		return nil
	}

	return &Suggestion{
		Entities:     entities,
		RedactedText: Redact(text, entities),
	}
}

// detectAll dispatches every batch concurrently and waits for all of them
func (e *Engine) detectAll(ctx context.Context, batches [][]string) ([][]DocumentResult, error) {
	results := make([][]DocumentResult, len(batches))
	g, gctx := errgroup.WithContext(ctx)

	for i, batch := range batches {
		docs := make([]Document, len(batch))
		for j, chunk := range batch {
			docs[j] = Document{ID: strconv.Itoa(i*e.opts.BatchSize + j), Text: chunk}
		}

		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, e.opts.Timeout)
			defer cancel()

			res, err := e.detector.Detect(callCtx, docs, DetectOptions{
				Language:   e.opts.Language,
				Categories: e.opts.Categories,
			})
			if err != nil {
				return fmt.Errorf("batch %d: %w", i, err)
			}
			if len(res) != len(docs) {
				return fmt.Errorf("batch %d: expected %d results, got %d", i, len(docs), len(res))
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// collectEntities maps chunk-relative offsets back onto the full text and
// drops low-confidence entities. Any per-document error fails the whole run.
func (e *Engine) collectEntities(results [][]DocumentResult) ([]Entity, bool) {
	failed := false
	entities := []Entity{}

	for i, batch := range results {
		for j, doc := range batch {
			if doc.Err != nil {
				e.logger.WithFields(logrus.Fields{
					"document_id": doc.ID,
					"code":        doc.Err.Code,
				}).WithError(doc.Err).Error("Redaction suggestion document failed")
				failed = true
				continue
			}

			chunkIndex := i*e.opts.BatchSize + j
			for _, entity := range doc.Entities {
				if entity.ConfidenceScore < e.opts.Threshold {
					continue
				}
				entity.Offset += chunkIndex * e.opts.ChunkSize
				entities = append(entities, entity)
			}
		}
	}
	if failed {
		return nil, false
	}

	slices.SortStableFunc(entities, func(a, b Entity) int {
		return a.Offset - b.Offset
	})
	return entities, true
}

// Redact replaces every entity span of text with markers of equal length
func Redact(text string, entities []Entity) string {
	runes := []rune(text)
	for _, e := range sortByOffset(entities) {
		for k := max(e.Offset, 0); k < e.Offset+e.Length && k < len(runes); k++ {
			runes[k] = Marker
		}
	}
	return string(runes)
}

func sortByOffset(entities []Entity) []Entity {
	sorted := slices.Clone(entities)
	slices.SortStableFunc(sorted, func(a, b Entity) int {
		return a.Offset - b.Offset
	})
	return sorted
}
