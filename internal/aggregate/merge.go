package aggregate

import (
	"sort"
	"strings"

	"github.com/edenluchill/gulf-property-sub002/internal/models"
)

// NormalizeUnitName is the merge key for unit names: case-insensitive,
// surrounding whitespace ignored.
func NormalizeUnitName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// MergeAcrossDocuments combines assignments that carry the same
// normalized unit name, as happens when the same unit type reappears in
// brochures uploaded separately. Image lists are concatenated without
// deduplication: the same physical page can legitimately be tagged with
// more than one category, and gallery assembly dedups by image path
// later. Source documents become the union and the page range the
// min..max span across the group.
func MergeAcrossDocuments(assignments []models.UnitImageAssignment) []models.UnitImageAssignment {
	merged := make([]models.UnitImageAssignment, 0, len(assignments))
	index := make(map[string]int)

	for _, a := range assignments {
		key := NormalizeUnitName(a.UnitTypeName)
		i, ok := index[key]
		if !ok {
			index[key] = len(merged)
			merged = append(merged, a)
			continue
		}
		dst := &merged[i]
		dst.FloorPlans = append(dst.FloorPlans, a.FloorPlans...)
		dst.Renderings = append(dst.Renderings, a.Renderings...)
		dst.Interiors = append(dst.Interiors, a.Interiors...)
		dst.Balconies = append(dst.Balconies, a.Balconies...)
		dst.AllImages = append(dst.AllImages, a.AllImages...)
		dst.SourceDocuments = unionStrings(dst.SourceDocuments, a.SourceDocuments)
		dst.PageRange = spanRanges(dst.PageRange, a.PageRange)
		if dst.Specs == nil {
			dst.Specs = a.Specs
		}
		if dst.Category == "" {
			dst.Category = a.Category
		}
		if len(dst.Features) == 0 {
			dst.Features = a.Features
		}
	}
	return merged
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	for _, s := range b {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func spanRanges(a, b *models.PageRange) *models.PageRange {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	out := &models.PageRange{StartPage: a.StartPage, EndPage: a.EndPage}
	if b.StartPage < out.StartPage {
		out.StartPage = b.StartPage
	}
	if b.EndPage > out.EndPage {
		out.EndPage = b.EndPage
	}
	return out
}
