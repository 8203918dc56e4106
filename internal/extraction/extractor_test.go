package extraction

import (
	"testing"

	"cloud.google.com/go/vertexai/genai"

	"github.com/edenluchill/gulf-property-sub002/internal/models"
)

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, p := range parts {
		content.Parts = append(content.Parts, genai.Text(p))
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: content}},
	}
}

func TestExtractResponseText(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		resp *genai.GenerateContentResponse
		want string
	}{
		{"nil response", nil, ""},
		{"no candidates", &genai.GenerateContentResponse{}, ""},
		{"plain json", textResponse(`[{"pageNumber":1}]`), `[{"pageNumber":1}]`},
		{"fenced json", textResponse("```json\n[]\n```"), "[]"},
		{"bare fence", textResponse("```\n{}\n```"), "{}"},
		{"multi part", textResponse(`[{"a":`, `1}]`), `[{"a":1}]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractResponseText(tc.resp); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCheckRefusal(t *testing.T) {
	t.Parallel()

	if err := checkRefusal(`[{"pageNumber":1,"pageType":"unknown"}]`); err != nil {
		t.Errorf("valid JSON flagged as refusal: %v", err)
	}
	if err := checkRefusal("I cannot fulfill this request."); err == nil {
		t.Error("refusal text not detected")
	}
	if err := checkRefusal("As a large language model, I..."); err == nil {
		t.Error("refusal text not detected")
	}
}

func TestParsePageRecordsSanitizes(t *testing.T) {
	t.Parallel()

	chunk := models.Chunk{
		SourceDocument: "marina.pdf",
		GCSUri:         "gs://chunks/marina_1-10.pdf",
		StartPage:      1,
		EndPage:        10,
	}
	raw := []byte(`[
	  {
	    "pageNumber": 3,
	    "pageType": "unit_anchor",
	    "confidence": 1.4,
	    "images": [
	      {"imagePath": "p3/floor.jpg", "category": "floor_plan"},
	      {"imageId": "img-9", "imagePath": "p3/view.jpg", "category": "unit_exterior", "shouldUse": false, "confidence": -0.2}
	    ]
	  },
	  {"pageNumber": 42, "pageType": "unknown"}
	]`)

	records, notes, err := ParsePageRecords(raw, chunk)
	if err != nil {
		t.Fatalf("ParsePageRecords: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1 (out-of-range page dropped)", len(records))
	}
	if len(notes) != 2 {
		t.Errorf("got %d notes, want 2: %v", len(notes), notes)
	}

	page := records[0]
	if page.SourceDocument != "marina.pdf" {
		t.Errorf("sourceDocument = %q, want chunk document", page.SourceDocument)
	}
	if page.Confidence != 1 {
		t.Errorf("page confidence = %v, want clamped to 1", page.Confidence)
	}
	if len(page.Images) != 2 {
		t.Fatalf("got %d images, want 2", len(page.Images))
	}

	first := page.Images[0]
	if !first.ShouldUse {
		t.Error("missing shouldUse should default to true")
	}
	if first.ImageID == "" {
		t.Error("missing imageId should be backfilled")
	}

	second := page.Images[1]
	if second.ShouldUse {
		t.Error("explicit shouldUse=false must be preserved")
	}
	if second.ImageID != "img-9" {
		t.Errorf("imageId = %q, want img-9 preserved", second.ImageID)
	}
	if second.Confidence != 0 {
		t.Errorf("image confidence = %v, want clamped to 0", second.Confidence)
	}
}

func TestParsePageRecordsRejectsMalformed(t *testing.T) {
	t.Parallel()

	chunk := models.Chunk{SourceDocument: "a.pdf", StartPage: 1, EndPage: 5}

	cases := []struct {
		name string
		raw  string
	}{
		{"not an array", `{"pageNumber": 1}`},
		{"missing pageType", `[{"pageNumber": 1}]`},
		{"zero pageNumber", `[{"pageNumber": 0, "pageType": "unknown"}]`},
		{"image without path", `[{"pageNumber": 1, "pageType": "unknown", "images": [{"category": "floor_plan"}]}]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := ParsePageRecords([]byte(tc.raw), chunk); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestBulkUnitsSchema(t *testing.T) {
	t.Parallel()

	good := []byte(`[{"unitTypeName": "A-1B-A.1", "specs": {"bedrooms": 1, "area": 780.5}}]`)
	if err := validateAgainst(compiledBulkUnitsSchema, good); err != nil {
		t.Errorf("valid bulk units rejected: %v", err)
	}
	bad := []byte(`[{"specs": {"bedrooms": 1}}]`)
	if err := validateAgainst(compiledBulkUnitsSchema, bad); err == nil {
		t.Error("bulk unit without unitTypeName accepted")
	}
}
