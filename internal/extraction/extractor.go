package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/google/uuid"

	"github.com/edenluchill/gulf-property-sub002/internal/gcp"
	"github.com/edenluchill/gulf-property-sub002/internal/models"
)

// refusalPhrases mark a model response that declined the task instead of
// answering. Such a response must fail the chunk, not be parsed.
var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"as a large language model",
}

// VertexExtractor calls the pre-configured Vertex models to classify
// brochure pages, bulk-extract unit specs, and normalize amenities.
type VertexExtractor struct {
	client *gcp.VertexClient
	logger *slog.Logger
}

// NewVertexExtractor creates an extractor over an initialized client.
func NewVertexExtractor(client *gcp.VertexClient, logger *slog.Logger) *VertexExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &VertexExtractor{client: client, logger: logger}
}

// ExtractPages classifies every page of a chunk into PageRecords.
func (e *VertexExtractor) ExtractPages(ctx context.Context, chunk models.Chunk) ([]models.PageRecord, error) {
	prompt := fmt.Sprintf("%s\n\nThis chunk covers pages %d to %d of brochure %q. Use absolute page numbers from that range.",
		gcp.PageClassifierUserPrompt, chunk.StartPage, chunk.EndPage, chunk.SourceDocument)

	raw, err := e.generateJSON(ctx, e.client.PageClassifierModel, chunk.GCSUri, prompt)
	if err != nil {
		return nil, fmt.Errorf("page classification for %s pages %d-%d: %w",
			chunk.SourceDocument, chunk.StartPage, chunk.EndPage, err)
	}
	records, notes, err := ParsePageRecords(raw, chunk)
	if err != nil {
		return nil, fmt.Errorf("page classification for %s pages %d-%d: %w",
			chunk.SourceDocument, chunk.StartPage, chunk.EndPage, err)
	}
	if len(notes) > 0 {
		e.logger.Warn("Sanitized classifier response.",
			"sourceDocument", chunk.SourceDocument,
			"startPage", chunk.StartPage,
			"notes", notes)
	}
	return records, nil
}

// ExtractUnits runs the coarse whole-chunk unit spec pass.
func (e *VertexExtractor) ExtractUnits(ctx context.Context, chunk models.Chunk) ([]models.BulkUnit, error) {
	raw, err := e.generateJSON(ctx, e.client.BulkUnitModel, chunk.GCSUri, gcp.BulkUnitUserPrompt)
	if err != nil {
		return nil, fmt.Errorf("bulk unit extraction for %s pages %d-%d: %w",
			chunk.SourceDocument, chunk.StartPage, chunk.EndPage, err)
	}
	if err := validateAgainst(compiledBulkUnitsSchema, raw); err != nil {
		return nil, fmt.Errorf("bulk unit extraction for %s: %w", chunk.SourceDocument, err)
	}
	var units []models.BulkUnit
	if err := json.Unmarshal(raw, &units); err != nil {
		return nil, fmt.Errorf("bulk unit extraction for %s: %w", chunk.SourceDocument, err)
	}
	return units, nil
}

// NormalizeAmenities asks the model to fold raw amenity names into
// canonical catalog terms. Callers fall back to the rule-based filter
// when this returns an error.
func (e *VertexExtractor) NormalizeAmenities(ctx context.Context, raw []string) ([]models.Amenity, error) {
	payload, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal amenity list: %w", err)
	}
	prompt := genai.Text(gcp.AmenityNormalizerUserPrompt + "\n\n" + string(payload))

	resp, err := e.client.AmenityNormalizerModel.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("amenity normalization call: %w", err)
	}
	text := extractResponseText(resp)
	if err := checkRefusal(text); err != nil {
		return nil, err
	}
	var amenities []models.Amenity
	if err := json.Unmarshal([]byte(text), &amenities); err != nil {
		return nil, fmt.Errorf("parse amenity normalization response: %w", err)
	}
	return amenities, nil
}

// generateJSON runs one model call over a GCS-hosted PDF and returns the
// raw JSON text of the response.
func (e *VertexExtractor) generateJSON(ctx context.Context, model *genai.GenerativeModel, gcsURI, prompt string) ([]byte, error) {
	filePart := genai.FileData{
		MIMEType: "application/pdf",
		FileURI:  gcsURI,
	}
	resp, err := model.GenerateContent(ctx, filePart, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	text := extractResponseText(resp)
	if text == "" {
		return nil, fmt.Errorf("gemini returned an empty response instead of JSON")
	}
	if err := checkRefusal(text); err != nil {
		return nil, err
	}
	return []byte(text), nil
}

// extractResponseText robustly gets the raw text content from the model
// response, stripping markdown fences the model sometimes adds despite
// the JSON response MIME type.
func extractResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	text := strings.TrimSpace(b.String())
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func checkRefusal(text string) error {
	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return fmt.Errorf("gemini response indicates refusal")
		}
	}
	return nil
}

// ParsePageRecords validates, sanitizes, and decodes a classifier
// response into PageRecords bound to their chunk. Sanitation only
// touches fields the schema leaves optional: missing shouldUse defaults
// to true (an omitted flag is not a veto), missing image IDs are
// backfilled, confidences are clamped to [0,1], and pages outside the
// chunk's range are dropped with a note. Returns notes describing what
// was changed so the caller can log it.
func ParsePageRecords(raw []byte, chunk models.Chunk) ([]models.PageRecord, []string, error) {
	if err := validateAgainst(compiledPageRecordsSchema, raw); err != nil {
		return nil, nil, err
	}

	var loose []map[string]any
	if err := json.Unmarshal(raw, &loose); err != nil {
		return nil, nil, fmt.Errorf("decode classifier response: %w", err)
	}

	var notes []string
	for _, page := range loose {
		if _, ok := page["sourceDocument"]; !ok {
			page["sourceDocument"] = chunk.SourceDocument
		}
		if c, ok := page["confidence"].(float64); ok {
			page["confidence"] = clamp01(c)
		}
		images, _ := page["images"].([]any)
		for _, it := range images {
			img, ok := it.(map[string]any)
			if !ok {
				continue
			}
			if _, ok := img["shouldUse"]; !ok {
				img["shouldUse"] = true
			}
			if id, _ := img["imageId"].(string); strings.TrimSpace(id) == "" {
				img["imageId"] = uuid.NewString()
				notes = append(notes, "backfilled missing imageId")
			}
			if c, ok := img["confidence"].(float64); ok {
				img["confidence"] = clamp01(c)
			}
		}
	}

	cleaned, err := json.Marshal(loose)
	if err != nil {
		return nil, nil, fmt.Errorf("re-encode classifier response: %w", err)
	}
	var records []models.PageRecord
	if err := json.Unmarshal(cleaned, &records); err != nil {
		return nil, nil, fmt.Errorf("decode classifier response: %w", err)
	}

	out := records[:0]
	for _, r := range records {
		if r.PageNumber < chunk.StartPage || r.PageNumber > chunk.EndPage {
			notes = append(notes, fmt.Sprintf("dropped pageNumber %d outside chunk range", r.PageNumber))
			continue
		}
		out = append(out, r)
	}
	return out, notes, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
