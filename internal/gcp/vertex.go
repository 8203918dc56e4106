package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// --- Page Classifier Model Prompts ---
const PageClassifierSystemPrompt = "You are a real-estate brochure analyst. Your task is to classify every page of a brochure PDF and extract its structured content. You must output your response as a valid JSON array with one object per page. Accuracy of page numbers and unit type names is of utmost importance."
const PageClassifierUserPrompt = `You will be provided with a page range of a real-estate brochure PDF.

For EVERY page in the range, emit one JSON object with these keys:
- "pageNumber": the absolute page number within the source brochure.
- "pageType": one of "unit_anchor", "unit_rendering", "unit_interior", "project_cover", "project_overview", "project_summary", "amenities_list", "amenities_images", "payment_plan", "section_title", "tower_characteristics", "unknown".
- "confidence": your confidence in the classification, 0 to 1.
- "isSectionStart": true only when the page is a divider that opens a new brochure section (e.g. "FLOOR PLANS", "AMENITIES").
- "isUnitStart": true only when the page is the FIRST page describing a specific unit type. Set "startMarkerText" to the exact heading text.
- "isUnitEnd": true only when the page explicitly closes a unit type description.
- "unitInfo": when the page describes a unit type: {"unitTypeName", "unitCategory", "specs": {"bedrooms", "bathrooms", "area", "suiteArea", "balconyArea", "price", "pricePerSqft"}, "features", "description"}. Report the unit type name EXACTLY as printed (e.g. "B-2BM-A.1"), never a paraphrase such as "2-Bedroom".
- "images": one object per distinct image on the page: {"imageId", "imagePath", "category", "confidence", "shouldUse", "isFullPage", "hasDimensions"}. Category is one of "floor_plan", "unit_exterior", "unit_interior_living", "unit_interior_bedroom", "unit_interior_kitchen", "unit_interior_bathroom", "balcony", "building_exterior", "aerial_view", "location_map", "master_plan", "logo", "lifestyle", "amenity_<name>", "unknown". Set "shouldUse" to false for logos, decorative fragments, and images too small or too blurry to publish.
- "amenitiesData": {"amenities": [...]} when the page lists amenities.
- "projectInfoData": {"projectName", "developer", "location", "description", "handoverDate"} when the page presents project facts.
- "paymentPlanData": {"planName", "milestones": [{"label", "percent"}]} when the page presents a payment plan.

Omit keys you cannot determine. The final output MUST be a single valid JSON array with no text before or after it.`

// --- Bulk Unit Extractor Model Prompts ---
const BulkUnitSystemPrompt = "You are a real-estate data extractor. Your task is to read a brochure PDF section and list every distinct unit type it offers, with the most reliable specification numbers you can find. You must output your response as a valid JSON array."
const BulkUnitUserPrompt = `Read the provided brochure pages as a whole and list every distinct unit type (apartment layout) they describe.

For each unit type, emit one JSON object:
- "unitTypeName": the layout identifier exactly as printed (e.g. "A-1B-A.1").
- "specs": {"bedrooms", "bathrooms", "area", "suiteArea", "balconyArea", "price", "pricePerSqft"} — prefer numbers from specification tables over numbers printed inside drawings.
- "description": one sentence summarizing the layout, when the brochure provides one.

List each unit type once, even if it appears on several pages. Omit keys you cannot determine. The final output MUST be a single valid JSON array with no text before or after it.`

// --- Amenity Normalizer Model Prompts ---
const AmenityNormalizerSystemPrompt = "You are a real-estate amenity curator. Your task is to merge a raw amenity list into canonical amenity terms a property catalog would display. You must output your response as a valid JSON array."
const AmenityNormalizerUserPrompt = `You will receive a JSON array of raw amenity names collected from brochure pages.

Merge synonyms into one canonical term (e.g. "Gym", "Fitness Center" and "Health Club" become "Gym"). Drop basic facilities that every building has and nobody searches for: washrooms, parking, corridors, lobbies, elevators, staircases, fire exits.

Output a JSON array of objects {"name": "<canonical term>", "category": "<wellness|leisure|family|outdoor|services>"}, one per surviving amenity, with no text before or after it.`

// VertexClient holds all pre-configured generative models for the
// brochure pipeline.
type VertexClient struct {
	PageClassifierModel    *genai.GenerativeModel
	BulkUnitModel          *genai.GenerativeModel
	AmenityNormalizerModel *genai.GenerativeModel
	baseClient             *genai.Client
}

// NewVertexClient creates a new client holding all necessary models.
func NewVertexClient(ctx context.Context, projectID, region string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	permissiveSafety := []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}

	jsonModel := func(systemPrompt string) *genai.GenerativeModel {
		m := baseClient.GenerativeModel("gemini-1.5-pro")
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
		m.GenerationConfig = genai.GenerationConfig{
			// Force JSON output; low temperature for deterministic,
			// structured extraction.
			ResponseMIMEType: "application/json",
			Temperature:      genai.Ptr[float32](0.0),
		}
		m.SafetySettings = permissiveSafety
		return m
	}

	return &VertexClient{
		PageClassifierModel:    jsonModel(PageClassifierSystemPrompt),
		BulkUnitModel:          jsonModel(BulkUnitSystemPrompt),
		AmenityNormalizerModel: jsonModel(AmenityNormalizerSystemPrompt),
		baseClient:             baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
