package models

// PageType classifies what a brochure page is, as asserted by the
// extraction model. Unrecognized values are preserved as-is and treated
// like PageUnknown by the aggregation code.
type PageType string

const (
	PageUnitAnchor           PageType = "unit_anchor"
	PageUnitRendering        PageType = "unit_rendering"
	PageUnitInterior         PageType = "unit_interior"
	PageProjectCover         PageType = "project_cover"
	PageProjectOverview      PageType = "project_overview"
	PageProjectSummary       PageType = "project_summary"
	PageAmenitiesList        PageType = "amenities_list"
	PageAmenitiesImages      PageType = "amenities_images"
	PagePaymentPlan          PageType = "payment_plan"
	PageSectionTitle         PageType = "section_title"
	PageTowerCharacteristics PageType = "tower_characteristics"
	PageUnknown              PageType = "unknown"
)

// ImageCategory classifies a single image found on a page.
type ImageCategory string

const (
	ImageFloorPlan        ImageCategory = "floor_plan"
	ImageUnitExterior     ImageCategory = "unit_exterior"
	ImageInteriorLiving   ImageCategory = "unit_interior_living"
	ImageInteriorBedroom  ImageCategory = "unit_interior_bedroom"
	ImageInteriorKitchen  ImageCategory = "unit_interior_kitchen"
	ImageInteriorBathroom ImageCategory = "unit_interior_bathroom"
	ImageBalcony          ImageCategory = "balcony"
	ImageBuildingExterior ImageCategory = "building_exterior"
	ImageAerialView       ImageCategory = "aerial_view"
	ImageLocationMap      ImageCategory = "location_map"
	ImageMasterPlan       ImageCategory = "master_plan"
	ImageLogo             ImageCategory = "logo"
	ImageLifestyle        ImageCategory = "lifestyle"
	ImageUnknown          ImageCategory = "unknown"

	// AmenityImagePrefix covers the open-ended amenity_* categories
	// (amenity_pool, amenity_gym, ...) the model is allowed to emit.
	AmenityImagePrefix = "amenity_"
)

// IsInterior reports whether the category is one of the unit interior
// variants.
func (c ImageCategory) IsInterior() bool {
	switch c {
	case ImageInteriorLiving, ImageInteriorBedroom, ImageInteriorKitchen, ImageInteriorBathroom:
		return true
	}
	return c == "unit_interior"
}

// IsAmenity reports whether the category is an amenity_* category.
func (c ImageCategory) IsAmenity() bool {
	return len(c) > len(AmenityImagePrefix) && string(c[:len(AmenityImagePrefix)]) == AmenityImagePrefix
}

// PageImage is a single image extracted from a brochure page.
type PageImage struct {
	ImageID       string        `json:"imageId"`
	ImagePath     string        `json:"imagePath"`
	ThumbnailPath string        `json:"thumbnailPath,omitempty"`
	Category      ImageCategory `json:"category"`
	Confidence    float64       `json:"confidence"`
	ShouldUse     bool          `json:"shouldUse"`
	IsFullPage    bool          `json:"isFullPage,omitempty"`
	HasDimensions bool          `json:"hasDimensions,omitempty"`
}

// UnitSpecs holds the numeric facts for one unit type. Fields are
// pointers because the extraction model frequently omits them; absent is
// different from zero.
type UnitSpecs struct {
	Bedrooms     *int     `json:"bedrooms,omitempty"`
	Bathrooms    *int     `json:"bathrooms,omitempty"`
	Area         *float64 `json:"area,omitempty"`
	SuiteArea    *float64 `json:"suiteArea,omitempty"`
	BalconyArea  *float64 `json:"balconyArea,omitempty"`
	Price        *float64 `json:"price,omitempty"`
	PricePerSqft *float64 `json:"pricePerSqft,omitempty"`
}

// UnitInfo is the per-page unit information attached to anchor and
// follow-on unit pages.
type UnitInfo struct {
	UnitTypeName string     `json:"unitTypeName,omitempty"`
	UnitCategory string     `json:"unitCategory,omitempty"`
	Specs        *UnitSpecs `json:"specs,omitempty"`
	Features     []string   `json:"features,omitempty"`
	Description  string     `json:"description,omitempty"`
}

// AmenitiesData carries the amenities named on an amenities page.
type AmenitiesData struct {
	Amenities []string `json:"amenities"`
}

// ProjectInfoData carries project-level facts read off overview pages.
type ProjectInfoData struct {
	ProjectName  string `json:"projectName,omitempty"`
	Developer    string `json:"developer,omitempty"`
	Location     string `json:"location,omitempty"`
	Description  string `json:"description,omitempty"`
	HandoverDate string `json:"handoverDate,omitempty"`
}

// PaymentMilestone is one installment of a payment plan.
type PaymentMilestone struct {
	Label   string  `json:"label"`
	Percent float64 `json:"percent"`
}

// PaymentPlanData is a payment plan read off a payment-plan page.
type PaymentPlanData struct {
	PlanName   string             `json:"planName,omitempty"`
	Milestones []PaymentMilestone `json:"milestones"`
}

// PageRecord is the structured output of the extraction model for one
// brochure page. Records are immutable once inserted into the registry;
// (SourceDocument, PageNumber) is the unique key.
type PageRecord struct {
	PageNumber     int      `json:"pageNumber"`
	SourceDocument string   `json:"sourceDocument"`
	PageType       PageType `json:"pageType"`
	Confidence     float64  `json:"confidence"`

	Images []PageImage `json:"images,omitempty"`

	UnitInfo    *UnitInfo        `json:"unitInfo,omitempty"`
	Amenities   *AmenitiesData   `json:"amenitiesData,omitempty"`
	ProjectInfo *ProjectInfoData `json:"projectInfoData,omitempty"`
	PaymentPlan *PaymentPlanData `json:"paymentPlanData,omitempty"`

	IsSectionStart  bool   `json:"isSectionStart,omitempty"`
	IsUnitStart     bool   `json:"isUnitStart,omitempty"`
	IsUnitEnd       bool   `json:"isUnitEnd,omitempty"`
	StartMarkerText string `json:"startMarkerText,omitempty"`
}
