package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/toppicks/bestseller-scraper/internal/ingest"
	"github.com/toppicks/bestseller-scraper/internal/metrics"
	"github.com/toppicks/bestseller-scraper/internal/models"
	"github.com/toppicks/bestseller-scraper/internal/ratelimit"
	"github.com/toppicks/bestseller-scraper/internal/storage"
)

// ProductExtractor yields the rank-1 product for one category.
type ProductExtractor interface {
	Extract(ctx context.Context, category models.Category) (*models.ScrapedProduct, error)
	Enrich(ctx context.Context, product *models.ScrapedProduct) *models.ScrapedProduct
}

// Submitter delivers one payload to the ingestion API.
type Submitter interface {
	SubmitProduct(ctx context.Context, payload ingest.Payload) *ingest.Result
}

// EventPublisher mirrors accepted submissions onto an event stream.
type EventPublisher interface {
	PublishSubmitted(ctx context.Context, runID string, payload ingest.Payload) error
}

type Options struct {
	// InterCategory paces successive categories; never applied before the
	// first item of a batch.
	InterCategory ratelimit.DelayFunc
	// Enrich fetches the product detail page after extraction. Off by
	// default; it doubles the page loads per category.
	Enrich bool
}

// Summary reports one batch invocation's outcome.
type Summary struct {
	RunID      string
	Processed  int
	Submitted  int
	Errors     []models.ScrapeError
	NextIndex  int
	TotalCount int
}

// Orchestrator drives one bounded, resumable batch over the category list.
// Processing is strictly sequential: one page, one category at a time, with
// jittered pauses in between. That serialization is the anti-detection
// strategy, not a bottleneck to parallelize away.
type Orchestrator struct {
	categories *storage.CategoryStore
	state      *storage.StateStore
	extractor  ProductExtractor
	submitter  Submitter
	publisher  EventPublisher
	opts       Options
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func New(
	categories *storage.CategoryStore,
	state *storage.StateStore,
	extractor ProductExtractor,
	submitter Submitter,
	publisher EventPublisher,
	opts Options,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Orchestrator {
	return &Orchestrator{
		categories: categories,
		state:      state,
		extractor:  extractor,
		submitter:  submitter,
		publisher:  publisher,
		opts:       opts,
		logger:     logger.With("component", "orchestrator"),
		metrics:    m,
	}
}

// RunBatch processes up to batchSize categories starting at startIndex, or
// at the persisted checkpoint when startIndex is negative. Every category is
// checkpointed individually; no per-category error aborts the batch.
func (o *Orchestrator) RunBatch(ctx context.Context, batchSize, startIndex int) (*Summary, error) {
	categories, err := o.categories.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("category list is empty, run discovery first")
	}

	state, err := o.state.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load scraper state: %w", err)
	}

	resumeIndex := startIndex
	if resumeIndex < 0 {
		resumeIndex = state.LastCategoryIndex
	}
	if resumeIndex > len(categories) {
		resumeIndex = 0
	}

	endIndex := resumeIndex + batchSize
	if endIndex > len(categories) {
		endIndex = len(categories)
	}

	state.RunID = uuid.New().String()
	state.Errors = nil

	o.logger.Info("starting batch",
		"run_id", state.RunID,
		"from", resumeIndex,
		"to", endIndex,
		"total", len(categories),
	)

	pacer := ratelimit.NewPacer(o.opts.InterCategory)

	for i := resumeIndex; i < endIndex; i++ {
		if err := pacer.Wait(ctx); err != nil {
			o.logger.Warn("batch interrupted", "run_id", state.RunID, "at_index", i)
			break
		}

		category := categories[i]
		submitted := o.processCategory(ctx, category, state)

		// Checkpoint after every category, success or failure, so a crash
		// loses at most the in-flight item.
		state.LastCategoryIndex = i + 1
		state.CategoriesProcessed++
		if submitted {
			state.ProductsSubmitted++
		}
		state.LastRun = time.Now()
		if state.LastCategoryIndex == len(categories) {
			// Full pass complete: the next invocation starts over.
			state.LastCategoryIndex = 0
		}

		if err := o.state.Save(state); err != nil {
			o.logger.Error("failed to write checkpoint", "index", i, "error", err)
		}
		o.metrics.IncCategoriesProcessed()
	}

	summary := &Summary{
		RunID:      state.RunID,
		Processed:  state.CategoriesProcessed,
		Submitted:  state.ProductsSubmitted,
		Errors:     state.Errors,
		NextIndex:  state.LastCategoryIndex,
		TotalCount: len(categories),
	}

	o.logger.Info("batch complete",
		"run_id", state.RunID,
		"processed", summary.Processed,
		"submitted", summary.Submitted,
		"errors", len(summary.Errors),
		"next_index", summary.NextIndex,
	)
	return summary, nil
}

// processCategory runs extract -> submit for one category and reports
// whether a product was accepted. All failures are recorded on the state's
// error list; none propagate.
func (o *Orchestrator) processCategory(ctx context.Context, category models.Category, state *models.ScraperState) bool {
	product, err := o.extractor.Extract(ctx, category)
	if err != nil {
		o.recordError(state, category, fmt.Sprintf("extraction failed: %v", err))
		o.metrics.IncError("extraction")
		return false
	}

	if o.opts.Enrich {
		product = o.extractor.Enrich(ctx, product)
	}

	payload := ingest.NewPayload(category, product)
	result := o.submitter.SubmitProduct(ctx, payload)
	if !result.Success {
		o.recordError(state, category, fmt.Sprintf("submission failed: %s", result.Error))
		o.metrics.IncError("submission")
		return false
	}

	o.metrics.IncProductsSubmitted()

	if o.publisher != nil {
		if err := o.publisher.PublishSubmitted(ctx, state.RunID, payload); err != nil {
			// Event mirroring is best-effort; the submission already stuck.
			o.logger.Warn("failed to publish submission event",
				"fullSlug", category.FullSlug, "error", err)
		}
	}
	return true
}

func (o *Orchestrator) recordError(state *models.ScraperState, category models.Category, message string) {
	o.logger.Warn("category failed", "fullSlug", category.FullSlug, "error", message)
	state.Errors = append(state.Errors, models.ScrapeError{
		FullSlug:   category.FullSlug,
		Message:    message,
		OccurredAt: time.Now(),
	})
}
