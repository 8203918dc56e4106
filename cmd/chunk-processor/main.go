package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/edenluchill/gulf-property-sub002/internal/models"
	"github.com/edenluchill/gulf-property-sub002/internal/services"
)

var (
	processorInstance *services.ChunkProcessorFunction
	once              sync.Once
	initErr           error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// "HandleProcessChunks" is the entry point name configured in GCP.
	functions.HTTP("HandleProcessChunks", handleProcessChunks)
}

// main is required by the Go Functions Framework.
func main() {}

// handleProcessChunks is the HTTP handler invoked by the workflow.
func handleProcessChunks(w http.ResponseWriter, r *http.Request) {
	// One-time initialization of clients across invocations.
	once.Do(func() {
		processorInstance, initErr = services.NewChunkProcessor(context.Background())
	})
	if initErr != nil {
		slog.Error("Chunk processor initialization failed.", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.ChunkProcessorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Could not decode request body.", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}
	if req.DocumentID == "" {
		http.Error(w, "Bad Request: documentId is required", http.StatusBadRequest)
		return
	}

	res, err := processorInstance.Process(r.Context(), &req)
	if err != nil {
		// The specific error is already logged inside Process.
		http.Error(w, "Internal Server Error: processing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response.", "error", err)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
