package models

// PageRange is an inclusive page span within a single source document.
type PageRange struct {
	StartPage int `json:"startPage"`
	EndPage   int `json:"endPage"`
}

// UnitBoundary is the contiguous page range attributed to one unit type
// by the boundary scanner. Boundaries never cross source documents.
type UnitBoundary struct {
	UnitTypeName    string   `json:"unitTypeName"`
	StartPage       int      `json:"startPage"`
	EndPage         int      `json:"endPage"`
	PageCount       int      `json:"pageCount"`
	SourceDocuments []string `json:"sourceDocuments"`
}

// UnitImageAssignment is the set of images attributed to one unit type,
// bucketed by category. AllImages preserves page order across buckets.
type UnitImageAssignment struct {
	UnitTypeName    string      `json:"unitTypeName"`
	FloorPlans      []PageImage `json:"floorPlans,omitempty"`
	Renderings      []PageImage `json:"renderings,omitempty"`
	Interiors       []PageImage `json:"interiors,omitempty"`
	Balconies       []PageImage `json:"balconies,omitempty"`
	AllImages       []PageImage `json:"allImages,omitempty"`
	SourceDocuments []string    `json:"sourceDocuments"`
	PageRange       *PageRange  `json:"pageRange,omitempty"`

	// Specs carries the best per-page specs seen inside the boundary,
	// used as the fallback when no bulk-extracted unit matches.
	Specs    *UnitSpecs `json:"specs,omitempty"`
	Category string     `json:"unitCategory,omitempty"`
	Features []string   `json:"features,omitempty"`
}

// ProjectImages are the project-level galleries assembled from pages not
// owned by any unit, plus inherently project-level images found anywhere.
type ProjectImages struct {
	Cover       []PageImage `json:"cover,omitempty"`
	Aerial      []PageImage `json:"aerial,omitempty"`
	LocationMap []PageImage `json:"locationMap,omitempty"`
	MasterPlan  []PageImage `json:"masterPlan,omitempty"`
	Amenity     []PageImage `json:"amenity,omitempty"`
	Renderings  []PageImage `json:"renderings,omitempty"`
}

// Amenity is one normalized project amenity.
type Amenity struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// AssignmentResult is the full derived output of the page registry. It
// is a pure function of the current page set: identical page sets yield
// identical results regardless of insertion order.
type AssignmentResult struct {
	Units            []UnitImageAssignment `json:"units"`
	ProjectImages    ProjectImages         `json:"projectImages"`
	PaymentPlans     []PaymentPlanData     `json:"paymentPlans,omitempty"`
	ProjectInfo      *ProjectInfoData      `json:"projectInfo,omitempty"`
	Amenities        []Amenity             `json:"amenities,omitempty"`
	TotalPages       int                   `json:"totalPages"`
	TotalDocuments   int                   `json:"totalDocuments"`
	BoundariesFound  int                   `json:"boundariesFound"`
	ProcessingTimeMs int64                 `json:"processingTimeMs"`
}

// BulkUnit is one unit spec produced by the coarse whole-chunk
// extraction pass. It carries no image attribution.
type BulkUnit struct {
	UnitTypeName string     `json:"unitTypeName"`
	Specs        *UnitSpecs `json:"specs,omitempty"`
	Description  string     `json:"description,omitempty"`
}

// UnitRecord is the final assembled unit handed to the catalog layer:
// bulk-extracted specs where available, boundary-derived imagery always.
// Bedrooms, Bathrooms and Area are always non-nil on emitted records;
// zero-area units are emitted with a warning and filtered downstream.
type UnitRecord struct {
	UnitTypeName string              `json:"unitTypeName"`
	Bedrooms     int                 `json:"bedrooms"`
	Bathrooms    int                 `json:"bathrooms"`
	Area         float64             `json:"area"`
	Price        *float64            `json:"price,omitempty"`
	PricePerSqft *float64            `json:"pricePerSqft,omitempty"`
	Description  string              `json:"description,omitempty"`
	Features     []string            `json:"features,omitempty"`
	Images       UnitImageAssignment `json:"images"`
	SpecsSource  string              `json:"specsSource"` // "bulk" or "page"
}
