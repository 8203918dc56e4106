package models

import "time"

// Job represents the main record for a brochure processing job in
// Firestore. It tracks the overall status, progress, and metadata of one
// uploaded brochure.
type Job struct {
	FileHash            string    `firestore:"fileHash,omitempty"`
	OriginalFilename    string    `firestore:"originalFilename,omitempty"`
	Status              string    `firestore:"status,omitempty"`
	Stage               string    `firestore:"stage,omitempty"`
	ErrorDetails        string    `firestore:"errorDetails,omitempty"`
	PageCount           int       `firestore:"pageCount,omitempty"`
	ChunkCount          int       `firestore:"chunkCount,omitempty"`
	ProgressPercent     int       `firestore:"progressPercent,omitempty"`
	UnitsFound          int       `firestore:"unitsFound,omitempty"`
	WorkflowExecutionID string    `firestore:"workflowExecutionId,omitempty"` // For traceability
	CreatedAt           time.Time `firestore:"createdAt,omitempty"`
}

// Chunk is one page-range slice of a source document, submitted as a
// single unit of work to the extraction service. Chunks of one document
// form a monotonically page-numbered, non-overlapping partition.
type Chunk struct {
	SourceDocument string `json:"sourceDocument"`
	GCSUri         string `json:"gcsUri"`
	StartPage      int    `json:"startPage"`
	EndPage        int    `json:"endPage"`
}

// PageCount returns the number of pages covered by the chunk.
func (c Chunk) PageCount() int {
	return c.EndPage - c.StartPage + 1
}
