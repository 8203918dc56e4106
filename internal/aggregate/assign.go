package aggregate

import (
	"log/slog"

	"github.com/edenluchill/gulf-property-sub002/internal/models"
)

// AssignImages attributes every usable image inside a boundary's page
// range to that boundary's unit, bucketed by category. Images the model
// flagged shouldUse=false are dropped everywhere; categories that have
// no business inside a unit boundary are logged and left for the project
// gallery pass.
func AssignImages(pages []models.PageRecord, boundaries []models.UnitBoundary) []models.UnitImageAssignment {
	assignments := make([]models.UnitImageAssignment, 0, len(boundaries))

	for _, b := range boundaries {
		a := models.UnitImageAssignment{
			UnitTypeName:    b.UnitTypeName,
			SourceDocuments: append([]string(nil), b.SourceDocuments...),
			PageRange:       &models.PageRange{StartPage: b.StartPage, EndPage: b.EndPage},
		}

		for _, p := range pages {
			if !boundaryOwns(b, p) {
				continue
			}
			mergeUnitInfo(&a, p.UnitInfo)
			for _, img := range p.Images {
				if !img.ShouldUse {
					continue
				}
				switch {
				case img.Category == models.ImageFloorPlan:
					a.FloorPlans = append(a.FloorPlans, img)
				case img.Category == models.ImageUnitExterior:
					a.Renderings = append(a.Renderings, img)
				case img.Category.IsInterior():
					a.Interiors = append(a.Interiors, img)
				case img.Category == models.ImageBalcony:
					a.Balconies = append(a.Balconies, img)
				default:
					slog.Debug("Image category not expected inside unit boundary; leaving for project gallery.",
						"unitTypeName", b.UnitTypeName,
						"sourceDocument", p.SourceDocument,
						"pageNumber", p.PageNumber,
						"category", img.Category)
					continue
				}
				a.AllImages = append(a.AllImages, img)
			}
		}
		assignments = append(assignments, a)
	}
	return assignments
}

func boundaryOwns(b models.UnitBoundary, p models.PageRecord) bool {
	if p.PageNumber < b.StartPage || p.PageNumber > b.EndPage {
		return false
	}
	for _, doc := range b.SourceDocuments {
		if doc == p.SourceDocument {
			return true
		}
	}
	return false
}

// mergeUnitInfo folds a page's unit info into the assignment, first
// non-empty value winning per field. Anchor pages come first in page
// order, so their data takes precedence.
func mergeUnitInfo(a *models.UnitImageAssignment, info *models.UnitInfo) {
	if info == nil {
		return
	}
	if a.Category == "" {
		a.Category = info.UnitCategory
	}
	if len(a.Features) == 0 {
		a.Features = append([]string(nil), info.Features...)
	}
	if info.Specs == nil {
		return
	}
	if a.Specs == nil {
		a.Specs = &models.UnitSpecs{}
	}
	s, in := a.Specs, info.Specs
	if s.Bedrooms == nil {
		s.Bedrooms = in.Bedrooms
	}
	if s.Bathrooms == nil {
		s.Bathrooms = in.Bathrooms
	}
	if s.Area == nil {
		s.Area = in.Area
	}
	if s.SuiteArea == nil {
		s.SuiteArea = in.SuiteArea
	}
	if s.BalconyArea == nil {
		s.BalconyArea = in.BalconyArea
	}
	if s.Price == nil {
		s.Price = in.Price
	}
	if s.PricePerSqft == nil {
		s.PricePerSqft = in.PricePerSqft
	}
}
