package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/edenluchill/gulf-property-sub002/internal/services"
)

var (
	splitterInstance *services.BrochureSplitterFunction
	once             sync.Once
	initErr          error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// The framework routes the GCS finalize event here.
	functions.CloudEvent("SplitBrochure", splitBrochure)
}

// main is required by the Go Functions Framework.
func main() {}

// splitBrochure is the Cloud Function entry point for brochure uploads.
func splitBrochure(ctx context.Context, e cloudevents.Event) error {
	// One-time initialization of clients across invocations.
	once.Do(func() {
		splitterInstance, initErr = services.NewBrochureSplitter(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Errors are already logged with context inside Process; returning
	// one marks the invocation as failed.
	return splitterInstance.Process(ctx, gcsEvent)
}
