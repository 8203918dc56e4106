package aggregate

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/edenluchill/gulf-property-sub002/internal/models"
)

// AmenityNormalizer merges synonym amenities into canonical terms and
// drops basic-facility noise. The production implementation calls the
// extraction service; the registry invokes it exactly once per job.
type AmenityNormalizer interface {
	NormalizeAmenities(ctx context.Context, raw []string) ([]models.Amenity, error)
}

// ChangeListener receives a full AssignmentResult snapshot after every
// successful insertion. Snapshots are replace-style payloads; delivery
// is fire-and-forget and may skip intermediate states under load.
type ChangeListener func(models.AssignmentResult)

type pageKey struct {
	doc  string
	page int
}

// Registry is the stateful orchestrator of the aggregation engine. It
// owns the page store for one job, re-derives the full assignment from
// scratch after every insertion, and publishes snapshots to the change
// listener without blocking inserters.
//
// A registry instance belongs to exactly one job: constructed at job
// start, closed at job end. Inserts are serialized by a single-writer
// mutex; all derivation functions are pure, so identical page sets yield
// identical results regardless of batching or arrival order.
type Registry struct {
	mu     sync.Mutex
	logger *slog.Logger

	pages     []models.PageRecord
	seen      map[pageKey]struct{}
	latest    models.AssignmentResult
	hasResult bool

	listener  ChangeListener
	snapshots chan models.AssignmentResult
	done      chan struct{}
	closeOnce sync.Once

	// Memoized project-level extractions, computed on demand during
	// final aggregation, never on the insert path. The normalizer call
	// is gated by amenityOnce so concurrent finalizers cannot both
	// invoke it.
	amenityOnce          *sync.Once
	amenities            []models.Amenity
	projectInfoComputed  bool
	projectInfo          *models.ProjectInfoData
	paymentPlansComputed bool
	paymentPlans         []models.PaymentPlanData
}

// NewRegistry constructs an empty per-job registry and starts its
// snapshot publisher.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		logger:      logger,
		seen:        make(map[pageKey]struct{}),
		snapshots:   make(chan models.AssignmentResult, 1),
		done:        make(chan struct{}),
		amenityOnce: &sync.Once{},
	}
	go r.publishLoop()
	return r
}

// SetChangeListener installs the snapshot consumer. Must be called
// before the first insert to observe every published snapshot.
func (r *Registry) SetChangeListener(fn ChangeListener) {
	r.mu.Lock()
	r.listener = fn
	r.mu.Unlock()
}

// Reset discards all pages, derived state, and memoized extractions.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages = nil
	r.seen = make(map[pageKey]struct{})
	r.latest = models.AssignmentResult{}
	r.hasResult = false
	r.amenityOnce = &sync.Once{}
	r.amenities = nil
	r.projectInfoComputed = false
	r.projectInfo = nil
	r.paymentPlansComputed = false
	r.paymentPlans = nil
}

// Close stops the snapshot publisher. Pending snapshots are dropped.
func (r *Registry) Close() {
	r.closeOnce.Do(func() { close(r.done) })
}

// InsertPages adds a batch of page records to the registry and
// recomputes the assignment. Re-insertion of an existing
// (sourceDocument, pageNumber) key is a warn-and-skip no-op. Safe for
// concurrent calls from multiple in-flight chunks. Returns the number of
// pages actually inserted.
func (r *Registry) InsertPages(batch []models.PageRecord) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	inserted := 0
	for _, p := range batch {
		key := pageKey{doc: p.SourceDocument, page: p.PageNumber}
		if _, dup := r.seen[key]; dup {
			r.logger.Warn("Duplicate page insert ignored.",
				"sourceDocument", p.SourceDocument,
				"pageNumber", p.PageNumber)
			continue
		}
		r.seen[key] = struct{}{}
		r.pages = append(r.pages, p)
		inserted++
	}
	if inserted == 0 {
		return 0
	}

	sort.SliceStable(r.pages, func(i, j int) bool {
		if r.pages[i].SourceDocument != r.pages[j].SourceDocument {
			return r.pages[i].SourceDocument < r.pages[j].SourceDocument
		}
		return r.pages[i].PageNumber < r.pages[j].PageNumber
	})

	r.latest = r.derive()
	r.hasResult = true
	r.publish(r.latest)
	return inserted
}

// GetAssignment returns the latest derived result. The snapshot shares
// slice backing with the registry and must be treated as read-only.
func (r *Registry) GetAssignment() models.AssignmentResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest
}

// derive recomputes the full assignment from the current page set.
// Caller holds the mutex. Recomputing from scratch on every insert is
// what makes the result independent of chunk arrival order.
func (r *Registry) derive() models.AssignmentResult {
	start := time.Now()

	boundaries := ScanBoundaries(r.pages)
	units := MergeAcrossDocuments(AssignImages(r.pages, boundaries))
	projectImages := CollectProjectImages(r.pages, boundaries)

	docs := make(map[string]struct{})
	for _, p := range r.pages {
		docs[p.SourceDocument] = struct{}{}
	}

	return models.AssignmentResult{
		Units:            units,
		ProjectImages:    projectImages,
		TotalPages:       len(r.pages),
		TotalDocuments:   len(docs),
		BoundariesFound:  len(boundaries),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
}

// FinalAggregate returns the complete result for job completion,
// folding in the three memoized project-level extractions. The amenity
// normalizer is called at most once per job; on failure the rule-based
// fallback filter is used and the job continues.
func (r *Registry) FinalAggregate(ctx context.Context, normalizer AmenityNormalizer) models.AssignmentResult {
	r.mu.Lock()
	if !r.hasResult {
		r.latest = r.derive()
		r.hasResult = true
	}
	result := r.latest

	if !r.paymentPlansComputed {
		r.paymentPlans = CollectPaymentPlans(r.pages)
		r.paymentPlansComputed = true
	}
	if !r.projectInfoComputed {
		r.projectInfo = CollectProjectInfo(r.pages)
		r.projectInfoComputed = true
	}
	raw := CollectRawAmenities(r.pages)
	once := r.amenityOnce
	r.mu.Unlock()

	// Do serializes concurrent finalizers: the first runs the external
	// call, the rest block until the memoized value is stored.
	once.Do(func() {
		amenities := r.normalizeAmenities(ctx, normalizer, raw)
		r.mu.Lock()
		r.amenities = amenities
		r.mu.Unlock()
	})

	r.mu.Lock()
	result.PaymentPlans = r.paymentPlans
	result.ProjectInfo = r.projectInfo
	result.Amenities = r.amenities
	r.mu.Unlock()
	return result
}

func (r *Registry) normalizeAmenities(ctx context.Context, normalizer AmenityNormalizer, raw []string) []models.Amenity {
	if len(raw) == 0 {
		return nil
	}
	if normalizer != nil {
		amenities, err := normalizer.NormalizeAmenities(ctx, raw)
		if err == nil {
			return amenities
		}
		r.logger.Warn("Amenity normalization call failed; using rule-based fallback.", "error", err)
	}
	return FallbackAmenities(raw)
}

// publish hands a snapshot to the publisher goroutine without blocking
// the inserter. When the consumer lags, the stale queued snapshot is
// replaced: only the latest state matters to the progress sink.
func (r *Registry) publish(result models.AssignmentResult) {
	for {
		select {
		case r.snapshots <- result:
			return
		default:
			select {
			case <-r.snapshots:
			default:
			}
		}
	}
}

func (r *Registry) publishLoop() {
	for {
		select {
		case <-r.done:
			return
		case result := <-r.snapshots:
			r.mu.Lock()
			fn := r.listener
			r.mu.Unlock()
			if fn != nil {
				fn(result)
			}
		}
	}
}
