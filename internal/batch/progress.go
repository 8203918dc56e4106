package batch

import (
	"context"
	"log/slog"

	"cloud.google.com/go/firestore"

	"github.com/edenluchill/gulf-property-sub002/internal/models"
)

// Progress is one progress update emitted while a job runs. Result
// carries the partial aggregation snapshot when one is available. A
// negative Percent means "unchanged" and sinks leave the stored value
// alone.
type Progress struct {
	Stage   string
	Message string
	Percent int
	Result  *models.AssignmentResult
}

// A ProgressSink receives progress updates. Publishing must never fail
// the job; sinks log their own delivery problems.
type ProgressSink interface {
	Publish(ctx context.Context, p Progress)
}

// LogSink writes progress updates to the structured log. It is the
// sink of last resort and the default in tests and local runs.
type LogSink struct {
	Logger *slog.Logger
}

func (s *LogSink) Publish(ctx context.Context, p Progress) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "Progress update.",
		"stage", p.Stage,
		"percent", p.Percent,
		"message", p.Message)
}

// FirestoreSink mirrors progress onto the job document so the frontend
// can poll a single place. Update failures are logged and swallowed;
// losing a progress tick must not fail the extraction.
type FirestoreSink struct {
	Doc    *firestore.DocumentRef
	Logger *slog.Logger
}

func (s *FirestoreSink) Publish(ctx context.Context, p Progress) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	updates := []firestore.Update{
		{Path: "stage", Value: p.Stage},
	}
	if p.Percent >= 0 {
		updates = append(updates, firestore.Update{Path: "progressPercent", Value: p.Percent})
	}
	if p.Result != nil {
		updates = append(updates, firestore.Update{Path: "unitsFound", Value: len(p.Result.Units)})
	}
	if _, err := s.Doc.Update(ctx, updates); err != nil {
		logger.WarnContext(ctx, "Failed to write progress to Firestore.",
			"stage", p.Stage,
			"percent", p.Percent,
			"error", err)
	}
}
