package aggregate

import (
	"regexp"
	"strings"

	"github.com/edenluchill/gulf-property-sub002/internal/models"
)

// codedNameRe matches specific layout identifiers such as "B-2BM-A.1" or
// "C-1B-A.1": alphanumeric segments joined by hyphens or dots.
var codedNameRe = regexp.MustCompile(`^[A-Za-z0-9]+(?:[-.][A-Za-z0-9]+)+$`)

// bedroomLabelRe matches bare bedroom-count labels such as "2-Bedroom",
// "3 BR" or "1 Bed", which describe a category rather than a layout.
var bedroomLabelRe = regexp.MustCompile(`(?i)^\d+(?:\.5)?\s*-?\s*(?:bed(?:room)?s?|br)$`)

// genericLabels are bare category words the anchor detector sometimes
// reports in place of a real layout identifier. Accepting them as
// boundary triggers fragments one real unit into dozens of spurious
// one-name boundaries.
var genericLabels = map[string]struct{}{
	"studio":     {},
	"penthouse":  {},
	"duplex":     {},
	"villa":      {},
	"apartment":  {},
	"apartments": {},
	"townhouse":  {},
	"loft":       {},
	"unit":       {},
}

// IsSpecificUnitName reports whether a reported unit type name is a
// specific layout identifier rather than a generic category label.
// Ambiguous names are accepted: over-detection is recoverable downstream,
// silent loss of a unit is not.
func IsSpecificUnitName(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	if _, ok := genericLabels[strings.ToLower(name)]; ok {
		return false
	}
	if bedroomLabelRe.MatchString(name) {
		return false
	}
	if codedNameRe.MatchString(name) && strings.ContainsFunc(name, isDigit) {
		return true
	}
	if len([]rune(name)) < 8 && !strings.ContainsAny(name, "-./") {
		return false
	}
	return true
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

type openBoundary struct {
	name     string
	doc      string
	start    int
	lastPage int
}

// ScanBoundaries walks pages already sorted by (sourceDocument,
// pageNumber) in a single pass and returns the unit boundaries found.
// Boundaries are page-contiguous, non-overlapping within a document, and
// never cross into a different source document.
func ScanBoundaries(pages []models.PageRecord) []models.UnitBoundary {
	var boundaries []models.UnitBoundary
	var open *openBoundary

	closeAt := func(end int) {
		if end < open.start {
			end = open.start
		}
		boundaries = append(boundaries, models.UnitBoundary{
			UnitTypeName:    open.name,
			StartPage:       open.start,
			EndPage:         end,
			PageCount:       end - open.start + 1,
			SourceDocuments: []string{open.doc},
		})
		open = nil
	}

	for _, p := range pages {
		if open != nil && p.SourceDocument != open.doc {
			closeAt(open.lastPage)
		}

		switch {
		case p.IsUnitStart && p.UnitInfo != nil && IsSpecificUnitName(p.UnitInfo.UnitTypeName):
			if open != nil {
				closeAt(open.lastPage)
			}
			open = &openBoundary{
				name:     strings.TrimSpace(p.UnitInfo.UnitTypeName),
				doc:      p.SourceDocument,
				start:    p.PageNumber,
				lastPage: p.PageNumber,
			}

		case p.IsSectionStart:
			if open != nil {
				closeAt(p.PageNumber - 1)
			}

		case p.IsUnitEnd:
			if open != nil {
				open.lastPage = p.PageNumber
				closeAt(p.PageNumber)
			}

		default:
			if open != nil {
				open.lastPage = p.PageNumber
			}
		}
	}

	if open != nil {
		closeAt(open.lastPage)
	}
	return boundaries
}
