package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/edenluchill/gulf-property-sub002/internal/aggregate"
	"github.com/edenluchill/gulf-property-sub002/internal/models"
)

type fakePageExtractor struct {
	fn func(chunk models.Chunk) ([]models.PageRecord, error)
}

func (f *fakePageExtractor) ExtractPages(_ context.Context, chunk models.Chunk) ([]models.PageRecord, error) {
	return f.fn(chunk)
}

type fakeBulkExtractor struct {
	fn func(chunk models.Chunk) ([]models.BulkUnit, error)
}

func (f *fakeBulkExtractor) ExtractUnits(_ context.Context, chunk models.Chunk) ([]models.BulkUnit, error) {
	return f.fn(chunk)
}

type fakeNormalizer struct{}

func (fakeNormalizer) NormalizeAmenities(_ context.Context, raw []string) ([]models.Amenity, error) {
	out := make([]models.Amenity, 0, len(raw))
	for _, name := range raw {
		out = append(out, models.Amenity{Name: name, Category: "leisure"})
	}
	return out, nil
}

type recordingSink struct {
	mu      sync.Mutex
	updates []Progress
}

func (s *recordingSink) Publish(_ context.Context, p Progress) {
	s.mu.Lock()
	s.updates = append(s.updates, p)
	s.mu.Unlock()
}

func (s *recordingSink) all() []Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Progress(nil), s.updates...)
}

func anchorRecord(doc string, page int, unitName string) models.PageRecord {
	return models.PageRecord{
		SourceDocument:  doc,
		PageNumber:      page,
		PageType:        models.PageUnitAnchor,
		IsUnitStart:     true,
		StartMarkerText: unitName,
		UnitInfo:        &models.UnitInfo{UnitTypeName: unitName},
		Images: []models.PageImage{{
			ImageID:   fmt.Sprintf("img-%s-%d", doc, page),
			ImagePath: fmt.Sprintf("%s/p%d.jpg", doc, page),
			Category:  models.ImageFloorPlan,
			ShouldUse: true,
		}},
	}
}

func testChunks() []models.Chunk {
	return []models.Chunk{
		{SourceDocument: "a.pdf", GCSUri: "gs://c/a_1-5.pdf", StartPage: 1, EndPage: 5},
		{SourceDocument: "a.pdf", GCSUri: "gs://c/a_6-10.pdf", StartPage: 6, EndPage: 10},
		{SourceDocument: "b.pdf", GCSUri: "gs://c/b_1-5.pdf", StartPage: 1, EndPage: 5},
	}
}

func newTestProcessor(t *testing.T, pages *fakePageExtractor, bulk *fakeBulkExtractor, sink ProgressSink) *Processor {
	t.Helper()
	registry := aggregate.NewRegistry(slog.Default())
	t.Cleanup(registry.Close)
	cfg := Config{BatchSize: 2, BatchDelay: time.Millisecond, CallTimeout: time.Second}
	return NewProcessor(pages, bulk, registry, fakeNormalizer{}, sink, cfg, slog.Default())
}

func TestProcessorRunHappyPath(t *testing.T) {
	t.Parallel()

	pages := &fakePageExtractor{fn: func(chunk models.Chunk) ([]models.PageRecord, error) {
		return []models.PageRecord{anchorRecord(chunk.SourceDocument, chunk.StartPage, "A-1B-A.1")}, nil
	}}
	bulk := &fakeBulkExtractor{fn: func(chunk models.Chunk) ([]models.BulkUnit, error) {
		if chunk.StartPage != 1 {
			return nil, nil
		}
		area := 780.0
		return []models.BulkUnit{{UnitTypeName: "A-1B-A.1", Specs: &models.UnitSpecs{Area: &area}}}, nil
	}}
	sink := &recordingSink{}

	res, err := newTestProcessor(t, pages, bulk, sink).Run(context.Background(), testChunks())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Success || len(res.Errors) != 0 {
		t.Fatalf("expected clean run, got errors %v", res.Errors)
	}
	if res.PagesIngested != 3 {
		t.Errorf("PagesIngested = %d, want 3", res.PagesIngested)
	}
	if len(res.Units) != 1 {
		t.Fatalf("got %d merged units, want 1", len(res.Units))
	}
	unit := res.Units[0]
	if unit.SpecsSource != "bulk" {
		t.Errorf("SpecsSource = %q, want bulk", unit.SpecsSource)
	}
	if unit.Area != 780 {
		t.Errorf("Area = %v, want 780 from bulk specs", unit.Area)
	}

	updates := sink.all()
	if len(updates) == 0 {
		t.Fatal("no progress published")
	}
	var final *Progress
	for i := range updates {
		if updates[i].Stage == "complete" {
			final = &updates[i]
		}
	}
	if final == nil {
		t.Fatal("no completion update published")
	}
	if final.Percent != 100 {
		t.Errorf("completion percent = %d, want 100", final.Percent)
	}
	if final.Result == nil || len(final.Result.Units) != 1 {
		t.Error("completion update should carry the assignment result")
	}
}

func TestProcessorCollectsChunkErrors(t *testing.T) {
	t.Parallel()

	pages := &fakePageExtractor{fn: func(chunk models.Chunk) ([]models.PageRecord, error) {
		if chunk.SourceDocument == "b.pdf" {
			return nil, errors.New("model quota exceeded")
		}
		return []models.PageRecord{anchorRecord(chunk.SourceDocument, chunk.StartPage, "B-2BM-A.1")}, nil
	}}
	bulk := &fakeBulkExtractor{fn: func(models.Chunk) ([]models.BulkUnit, error) {
		return nil, nil
	}}

	res, err := newTestProcessor(t, pages, bulk, &recordingSink{}).Run(context.Background(), testChunks())
	if err != nil {
		t.Fatalf("Run should not fail on chunk errors: %v", err)
	}
	if res.Success {
		t.Error("Success should be false when a chunk failed")
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "quota") {
		t.Errorf("Errors = %v, want the single chunk failure", res.Errors)
	}
	if res.PagesIngested != 2 {
		t.Errorf("PagesIngested = %d, want the 2 surviving chunks", res.PagesIngested)
	}
	if len(res.Units) != 1 {
		t.Errorf("got %d units, want 1 from surviving chunks", len(res.Units))
	}
}

func TestProcessorBulkOrderIsDeterministic(t *testing.T) {
	t.Parallel()

	pages := &fakePageExtractor{fn: func(chunk models.Chunk) ([]models.PageRecord, error) {
		return []models.PageRecord{anchorRecord(chunk.SourceDocument, chunk.StartPage, fmt.Sprintf("T-%s-%d.1", chunk.SourceDocument, chunk.StartPage))}, nil
	}}
	bulk := &fakeBulkExtractor{fn: func(chunk models.Chunk) ([]models.BulkUnit, error) {
		// Later chunks answer faster than earlier ones.
		if chunk.StartPage == 1 && chunk.SourceDocument == "a.pdf" {
			time.Sleep(20 * time.Millisecond)
		}
		return []models.BulkUnit{{UnitTypeName: fmt.Sprintf("T-%s-%d.1", chunk.SourceDocument, chunk.StartPage)}}, nil
	}}

	res, err := newTestProcessor(t, pages, bulk, &recordingSink{}).Run(context.Background(), testChunks())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"T-a.pdf-1.1", "T-a.pdf-6.1", "T-b.pdf-1.1"}
	if len(res.Units) != len(want) {
		t.Fatalf("got %d units, want %d", len(res.Units), len(want))
	}
	for i, name := range want {
		if res.Units[i].UnitTypeName != name {
			t.Errorf("unit[%d] = %q, want %q", i, res.Units[i].UnitTypeName, name)
		}
	}
}

func TestProcessorStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pages := &fakePageExtractor{fn: func(models.Chunk) ([]models.PageRecord, error) {
		return nil, nil
	}}
	bulk := &fakeBulkExtractor{fn: func(models.Chunk) ([]models.BulkUnit, error) {
		return nil, nil
	}}

	if _, err := newTestProcessor(t, pages, bulk, &recordingSink{}).Run(ctx, testChunks()); err == nil {
		t.Error("expected context error from cancelled run")
	}
}
