package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"

	"github.com/edenluchill/gulf-property-sub002/internal/aggregate"
	"github.com/edenluchill/gulf-property-sub002/internal/batch"
	"github.com/edenluchill/gulf-property-sub002/internal/extraction"
	"github.com/edenluchill/gulf-property-sub002/internal/gcp"
	"github.com/edenluchill/gulf-property-sub002/internal/models"
)

type ChunkProcessorConfig struct {
	ProjectID      string
	VertexAIRegion string
	ResultsBucket  string
	CollectionName string
	BatchSize      int
	BatchDelay     time.Duration
	CallTimeout    time.Duration
}

// ChunkProcessorFunction runs the full extraction pipeline for one job:
// both model passes over every chunk, aggregation, and the final result
// write.
type ChunkProcessorFunction struct {
	storageClient   *storage.Client
	firestoreClient *firestore.Client
	vertexClient    *gcp.VertexClient
	config          ChunkProcessorConfig
}

func NewChunkProcessor(ctx context.Context) (*ChunkProcessorFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	batchSize, err := strconv.Atoi(gcp.GetEnv("BATCH_SIZE", "3"))
	if err != nil || batchSize < 1 {
		return nil, fmt.Errorf("BATCH_SIZE must be a positive integer")
	}
	batchDelay, err := time.ParseDuration(gcp.GetEnv("BATCH_DELAY", "2s"))
	if err != nil {
		return nil, fmt.Errorf("BATCH_DELAY must be a valid duration: %w", err)
	}
	callTimeout, err := time.ParseDuration(gcp.GetEnv("CALL_TIMEOUT", "4m"))
	if err != nil {
		return nil, fmt.Errorf("CALL_TIMEOUT must be a valid duration: %w", err)
	}

	config := ChunkProcessorConfig{
		ProjectID:      projectID,
		VertexAIRegion: gcp.GetEnv("VERTEXAI_REGION", "me-central1"),
		ResultsBucket:  gcp.GetEnv("RESULTS_BUCKET", ""),
		CollectionName: gcp.GetEnv("FIRESTORE_COLLECTION", "brochure-jobs"),
		BatchSize:      batchSize,
		BatchDelay:     batchDelay,
		CallTimeout:    callTimeout,
	}
	if config.ResultsBucket == "" {
		return nil, fmt.Errorf("RESULTS_BUCKET environment variable must be set")
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	vertexClient, err := gcp.NewVertexClient(ctx, config.ProjectID, config.VertexAIRegion)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	f := &ChunkProcessorFunction{
		storageClient:   storageClient,
		firestoreClient: firestoreClient,
		vertexClient:    vertexClient,
		config:          config,
	}
	slog.Info("Chunk processor initialized.", "region", config.VertexAIRegion, "batchSize", config.BatchSize)
	return f, nil
}

// jobResult is the document written to the results bucket.
type jobResult struct {
	Assignment models.AssignmentResult `json:"assignment"`
	Units      []models.UnitRecord     `json:"units"`
	Warnings   []string                `json:"warnings,omitempty"`
	Errors     []string                `json:"errors,omitempty"`
}

func (f *ChunkProcessorFunction) Process(ctx context.Context, req *models.ChunkProcessorRequest) (*models.ChunkProcessorResponse, error) {
	logCtx := slog.With("documentId", req.DocumentID, "executionId", req.ExecutionID)
	logCtx.Info("Starting chunk processing.", "chunkCount", len(req.Chunks))

	if len(req.Chunks) == 0 {
		return nil, fmt.Errorf("request for document %s contains no chunks", req.DocumentID)
	}

	docRef := f.firestoreClient.Collection(f.config.CollectionName).Doc(req.DocumentID)

	registry := aggregate.NewRegistry(logCtx)
	defer registry.Close()

	extractor := extraction.NewVertexExtractor(f.vertexClient, logCtx)
	sink := &batch.FirestoreSink{Doc: docRef, Logger: logCtx}
	processor := batch.NewProcessor(extractor, extractor, registry, extractor, sink, batch.Config{
		BatchSize:   f.config.BatchSize,
		BatchDelay:  f.config.BatchDelay,
		CallTimeout: f.config.CallTimeout,
	}, logCtx)

	res, err := processor.Run(ctx, req.Chunks)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "extraction run aborted", err)
	}

	resultURI, err := f.saveResult(ctx, req.DocumentID, res)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to save result", err)
	}

	status := "COMPLETE"
	if !res.Success {
		status = "COMPLETE_WITH_ERRORS"
	}
	updates := []firestore.Update{
		{Path: "status", Value: status},
		{Path: "unitsFound", Value: len(res.Units)},
		{Path: "progressPercent", Value: 100},
	}
	if len(res.Errors) > 0 {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: fmt.Sprintf("%d chunk(s) failed", len(res.Errors))})
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		logCtx.Error("Failed to update final job status.", "error", err)
	}

	logCtx.Info("Chunk processing finished.",
		"status", status,
		"unitsFound", len(res.Units),
		"pagesIngested", res.PagesIngested,
		"errorCount", len(res.Errors))

	return &models.ChunkProcessorResponse{
		Status:        status,
		ResultGCSUri:  resultURI,
		UnitsFound:    len(res.Units),
		PagesIngested: res.PagesIngested,
		Errors:        res.Errors,
	}, nil
}

func (f *ChunkProcessorFunction) saveResult(ctx context.Context, documentID string, res *batch.Result) (string, error) {
	payload := jobResult{
		Assignment: res.Assignment,
		Units:      res.Units,
		Warnings:   res.Warnings,
		Errors:     res.Errors,
	}
	content, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}
	objectName := fmt.Sprintf("%s/result.json", documentID)
	bucket := f.storageClient.Bucket(f.config.ResultsBucket)
	if err := gcp.SaveToGCSAtomically(ctx, bucket, objectName, string(content)); err != nil {
		return "", err
	}
	return fmt.Sprintf("gs://%s/%s", f.config.ResultsBucket, objectName), nil
}

func (f *ChunkProcessorFunction) handleError(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	updates := []firestore.Update{
		{Path: "status", Value: "FAILED"},
		{Path: "errorDetails", Value: fullError},
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s", fullError)
}
