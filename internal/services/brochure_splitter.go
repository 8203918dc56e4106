package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/sync/errgroup"

	"github.com/edenluchill/gulf-property-sub002/internal/gcp"
	"github.com/edenluchill/gulf-property-sub002/internal/models"
)

type BrochureSplitterConfig struct {
	ProjectID        string
	ChunksBucket     string
	CollectionName   string
	WorkflowID       string
	WorkflowLocation string
	ChunkSize        int
}

// BrochureSplitterFunction receives uploaded brochures, validates and
// slices them into page-range chunks, and hands the chunk manifest to
// the extraction workflow.
type BrochureSplitterFunction struct {
	storageClient    *storage.Client
	firestoreClient  *firestore.Client
	executionsClient *executions.Client
	config           BrochureSplitterConfig
}

type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

func NewBrochureSplitter(ctx context.Context) (*BrochureSplitterFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	chunkSize, err := strconv.Atoi(gcp.GetEnv("CHUNK_SIZE", "10"))
	if err != nil || chunkSize < 1 {
		return nil, fmt.Errorf("CHUNK_SIZE must be a positive integer")
	}

	config := BrochureSplitterConfig{
		ProjectID:        projectID,
		ChunksBucket:     gcp.GetEnv("CHUNKS_BUCKET", ""),
		CollectionName:   gcp.GetEnv("FIRESTORE_COLLECTION", "brochure-jobs"),
		WorkflowLocation: gcp.GetEnv("WORKFLOW_LOCATION", "me-central1"),
		WorkflowID:       gcp.GetEnv("WORKFLOW_ID", "brochure-extraction-orchestrator"),
		ChunkSize:        chunkSize,
	}
	if config.ChunksBucket == "" {
		return nil, fmt.Errorf("CHUNKS_BUCKET environment variable must be set")
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	executionsClient, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}

	f := &BrochureSplitterFunction{
		firestoreClient:  firestoreClient,
		storageClient:    storageClient,
		executionsClient: executionsClient,
		config:           config,
	}
	slog.Info("Brochure splitter initialized.", "workflowId", config.WorkflowID, "chunkSize", config.ChunkSize)
	return f, nil
}

func (f *BrochureSplitterFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new brochure upload.")

	tempDir, err := os.MkdirTemp("", "brochure-splitter-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	sourcePdfPath := filepath.Join(tempDir, "source.pdf")
	if err := gcp.StreamGCSObject(ctx, f.storageClient, e.Bucket, e.Name, sourcePdfPath); err != nil {
		logCtx.Error("Failed to download source brochure", "error", err)
		return err
	}

	fileHash, err := calculateFileHash(sourcePdfPath)
	if err != nil {
		logCtx.Error("Failed to calculate file hash", "error", err)
		return fmt.Errorf("failed to calculate file hash: %w", err)
	}
	logCtx = logCtx.With("fileHash", fileHash)

	isDuplicate, docID, err := f.isDuplicate(ctx, fileHash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if isDuplicate {
		logCtx.Info("Duplicate brochure detected. Skipping.", "existingDocId", docID)
		return nil
	}

	docRef, err := f.createInitialJob(ctx, fileHash, e.Name)
	if err != nil {
		logCtx.Error("Failed to create job document", "error", err)
		return err
	}
	logCtx = logCtx.With("documentId", docRef.ID)
	logCtx.Info("Created job document in Firestore.")

	optimizedPdfPath := filepath.Join(tempDir, "optimized.pdf")
	chunks, err := f.optimizeAndSplit(ctx, logCtx, docRef, e.Name, sourcePdfPath, optimizedPdfPath)
	if err != nil {
		return err
	}

	if err := f.uploadChunks(ctx, logCtx, docRef, optimizedPdfPath, chunks); err != nil {
		return err
	}

	pageCount := 0
	for _, c := range chunks {
		pageCount += c.PageCount()
	}
	if err := f.triggerWorkflow(ctx, logCtx, docRef, pageCount, chunks); err != nil {
		return err
	}

	logCtx.Info("Hand-off to extraction workflow complete.", "chunkCount", len(chunks))
	return nil
}

func (f *BrochureSplitterFunction) isDuplicate(ctx context.Context, fileHash string) (bool, string, error) {
	docs, err := f.firestoreClient.Collection(f.config.CollectionName).Where("fileHash", "==", fileHash).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return false, "", fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) > 0 {
		return true, docs[0].Ref.ID, nil
	}
	return false, "", nil
}

func (f *BrochureSplitterFunction) createInitialJob(ctx context.Context, fileHash, filename string) (*firestore.DocumentRef, error) {
	newJob := models.Job{
		FileHash:         fileHash,
		OriginalFilename: filename,
		Status:           "VALIDATING",
		CreatedAt:        time.Now(),
	}
	docRef, _, err := f.firestoreClient.Collection(f.config.CollectionName).Add(ctx, newJob)
	if err != nil {
		return nil, fmt.Errorf("failed to create job document: %w", err)
	}
	return docRef, nil
}

// optimizeAndSplit validates the PDF, splits it into ChunkSize page
// spans next to the optimized file, and returns the chunk manifest.
func (f *BrochureSplitterFunction) optimizeAndSplit(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, sourceName, source, optimized string) ([]models.Chunk, error) {
	if err := optimizePDF(source, optimized); err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to validate/optimize PDF", err)
	}
	pageCount, err := api.PageCountFile(optimized)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to get page count", err)
	}
	if err := api.SplitFile(optimized, filepath.Dir(optimized), f.config.ChunkSize, nil); err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to split PDF", err)
	}

	chunks := chunkRanges(docRef.ID, sourceName, pageCount, f.config.ChunkSize, f.config.ChunksBucket)

	updates := []firestore.Update{
		{Path: "status", Value: "SPLITTING"},
		{Path: "pageCount", Value: pageCount},
		{Path: "chunkCount", Value: len(chunks)},
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to update status to SPLITTING", err)
	}
	logCtx.Info("Brochure optimized and split locally.", "pageCount", pageCount, "chunkCount", len(chunks))
	return chunks, nil
}

// chunkRanges partitions pageCount pages into spans of chunkSize and
// names the GCS destination of each span.
func chunkRanges(docID, sourceName string, pageCount, chunkSize int, bucket string) []models.Chunk {
	var chunks []models.Chunk
	for start := 1; start <= pageCount; start += chunkSize {
		end := start + chunkSize - 1
		if end > pageCount {
			end = pageCount
		}
		object := fmt.Sprintf("%s/%05d-%05d.pdf", docID, start, end)
		chunks = append(chunks, models.Chunk{
			SourceDocument: sourceName,
			GCSUri:         fmt.Sprintf("gs://%s/%s", bucket, object),
			StartPage:      start,
			EndPage:        end,
		})
	}
	return chunks
}

func (f *BrochureSplitterFunction) uploadChunks(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, optimizedPdfPath string, chunks []models.Chunk) error {
	logCtx.Info("Starting concurrent upload of chunks.", "chunkCount", len(chunks))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(10)

	splitFileBase := strings.TrimSuffix(optimizedPdfPath, filepath.Ext(optimizedPdfPath))

	for _, chunk := range chunks {
		// pdfcpu names single-page spans base_N.pdf and multi-page
		// spans base_N-M.pdf.
		localPath := fmt.Sprintf("%s_%d-%d.pdf", splitFileBase, chunk.StartPage, chunk.EndPage)
		if chunk.StartPage == chunk.EndPage {
			localPath = fmt.Sprintf("%s_%d.pdf", splitFileBase, chunk.StartPage)
		}
		destObject := strings.TrimPrefix(chunk.GCSUri, fmt.Sprintf("gs://%s/", f.config.ChunksBucket))

		eg.Go(func() error {
			if err := f.uploadFile(gctx, localPath, destObject); err != nil {
				return fmt.Errorf("chunk %d-%d: %w", chunk.StartPage, chunk.EndPage, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return f.handleError(ctx, logCtx, docRef, "one or more chunks failed to upload", err)
	}
	logCtx.Info("All chunks uploaded successfully.")
	return nil
}

func (f *BrochureSplitterFunction) triggerWorkflow(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, pageCount int, chunks []models.Chunk) error {
	logCtx.Info("Triggering extraction workflow.")
	manifest := models.SplitManifest{
		DocumentID: docRef.ID,
		PageCount:  pageCount,
		Chunks:     chunks,
	}
	payloadBytes, err := json.Marshal(manifest)
	if err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to marshal workflow payload", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", f.config.ProjectID, f.config.WorkflowLocation, f.config.WorkflowID),
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	exec, err := f.executionsClient.CreateExecution(ctx, req)
	if err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to trigger workflow execution", err)
	}
	if _, err := docRef.Update(ctx, []firestore.Update{{Path: "workflowExecutionId", Value: exec.GetName()}}); err != nil {
		logCtx.Warn("Failed to record workflow execution id.", "error", err)
	}
	return nil
}

func (f *BrochureSplitterFunction) handleError(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := f.updateStatus(ctx, docRef, "FAILED", fullError); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s", fullError)
}

func (f *BrochureSplitterFunction) updateStatus(ctx context.Context, docRef *firestore.DocumentRef, status, errDetails string) error {
	updates := []firestore.Update{
		{Path: "status", Value: status},
	}
	if errDetails != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: errDetails})
	}
	_, err := docRef.Update(ctx, updates)
	return err
}

func optimizePDF(inPath, outPath string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return api.OptimizeFile(inPath, outPath, cfg)
}

func (f *BrochureSplitterFunction) uploadFile(ctx context.Context, localPath, destObject string) error {
	const maxRetries = 4
	var backoff = 1 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := func() error {
			localFileReader, err := os.Open(localPath)
			if err != nil {
				return fmt.Errorf("could not open local file %s: %w", localPath, err)
			}
			defer localFileReader.Close()

			writeCtx, cancel := context.WithTimeout(ctx, time.Second*50)
			defer cancel()

			gcsWriter := f.storageClient.Bucket(f.config.ChunksBucket).Object(destObject).NewWriter(writeCtx)

			if _, err := io.Copy(gcsWriter, localFileReader); err != nil {
				_ = gcsWriter.Close()
				return fmt.Errorf("io.Copy to GCS failed: %w", err)
			}

			if err := gcsWriter.Close(); err != nil {
				return fmt.Errorf("failed to close GCS writer (finalize upload): %w", err)
			}
			return nil
		}()

		if err == nil {
			return nil
		}

		lastErr = err
		slog.Warn(
			"Upload failed, will retry.",
			"gcsObject", destObject,
			"attempt", i+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			slog.Error("Context cancelled during backoff. Aborting retries.", "gcsObject", destObject, "error", ctx.Err())
			return ctx.Err()
		}
	}
	slog.Error("Upload failed after all retries.", "gcsObject", destObject, "error", lastErr)
	return fmt.Errorf("upload for %s failed after all retries: %w", destObject, lastErr)
}

func calculateFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
