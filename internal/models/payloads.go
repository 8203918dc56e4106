package models

// These structs define the JSON payloads exchanged between the Cloud
// Workflow and the worker Cloud Functions.

// ChunkProcessorRequest is the input for the chunk-processor function.
// It names one processing job and the chunk manifest the brochure
// splitter produced for it.
type ChunkProcessorRequest struct {
	DocumentID  string  `json:"documentId"`
	Chunks      []Chunk `json:"chunks"`
	ExecutionID string  `json:"executionId"`
}

// ChunkProcessorResponse is the output of the chunk-processor function.
type ChunkProcessorResponse struct {
	Status        string   `json:"status"`
	ResultGCSUri  string   `json:"resultGcsUri"`
	UnitsFound    int      `json:"unitsFound"`
	PagesIngested int      `json:"pagesIngested"`
	Errors        []string `json:"errors,omitempty"`
}

// SplitManifest is the argument handed to the workflow execution by the
// brochure splitter: the created job plus its chunk partition.
type SplitManifest struct {
	DocumentID string  `json:"documentId"`
	PageCount  int     `json:"pageCount"`
	Chunks     []Chunk `json:"chunks"`
}
