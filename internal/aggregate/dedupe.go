package aggregate

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/edenluchill/gulf-property-sub002/internal/models"
)

// MergeByKey collapses items that share a key, preserving first-seen
// order. The merge function decides how a duplicate folds into the item
// already kept. Items with an empty key are passed through unmerged.
func MergeByKey[T any](items []T, key func(T) string, merge func(dst, src T) T) []T {
	out := make([]T, 0, len(items))
	index := make(map[string]int)
	for _, it := range items {
		k := key(it)
		if k == "" {
			out = append(out, it)
			continue
		}
		if i, ok := index[k]; ok {
			out[i] = merge(out[i], it)
			continue
		}
		index[k] = len(out)
		out = append(out, it)
	}
	return out
}

// matchBulkUnit finds the bulk-extracted unit for a boundary unit name:
// exact normalized match first, then substring containment either way.
// Returns the matched index (-1 for none) and, when more than one bulk
// unit substring-matches, the full candidate list so the ambiguity can
// be surfaced rather than silently resolved.
func matchBulkUnit(name string, bulk []models.BulkUnit) (int, []string) {
	norm := NormalizeUnitName(name)
	for i, b := range bulk {
		if NormalizeUnitName(b.UnitTypeName) == norm {
			return i, nil
		}
	}
	matched := -1
	var candidates []string
	for i, b := range bulk {
		bn := NormalizeUnitName(b.UnitTypeName)
		if bn == "" {
			continue
		}
		if strings.Contains(norm, bn) || strings.Contains(bn, norm) {
			if matched < 0 {
				matched = i
			}
			candidates = append(candidates, b.UnitTypeName)
		}
	}
	if len(candidates) < 2 {
		candidates = nil
	}
	return matched, candidates
}

// fallbackBathrooms is the heuristic for units whose bathroom count the
// extraction never produced: studio and one-bedroom get one, two-bedroom
// two, larger layouts cap at three.
func fallbackBathrooms(bedrooms int) int {
	switch {
	case bedrooms <= 1:
		return 1
	case bedrooms == 2:
		return 2
	default:
		return min(bedrooms, 3)
	}
}

// AssembleUnits produces the final unit records the catalog layer
// consumes: one per boundary-derived assignment, with bulk-extracted
// specs when a name match exists and the unit's own page specs
// otherwise. Every emitted record has concrete bedrooms, bathrooms and
// area; zero-area units are emitted with a diagnostic warning because
// the catalog layer filters them and the loss must be traceable.
func AssembleUnits(assignments []models.UnitImageAssignment, bulk []models.BulkUnit, logger *slog.Logger) ([]models.UnitRecord, []string) {
	if logger == nil {
		logger = slog.Default()
	}
	records := make([]models.UnitRecord, 0, len(assignments))
	var warnings []string

	for _, a := range assignments {
		rec := models.UnitRecord{
			UnitTypeName: a.UnitTypeName,
			Features:     a.Features,
			Images:       a,
		}

		idx, ambiguous := matchBulkUnit(a.UnitTypeName, bulk)
		if len(ambiguous) > 0 {
			w := fmt.Sprintf("unit %q matched multiple bulk-extracted names %v; using %q", a.UnitTypeName, ambiguous, bulk[idx].UnitTypeName)
			warnings = append(warnings, w)
			logger.Warn("Ambiguous bulk unit match.", "unitTypeName", a.UnitTypeName, "candidates", ambiguous)
		}

		switch {
		case idx >= 0:
			applySpecs(&rec, bulk[idx].Specs, a.Specs)
			rec.Description = bulk[idx].Description
			rec.SpecsSource = "bulk"
		default:
			w := fmt.Sprintf("unit %q has no bulk-extracted match; using page specs", a.UnitTypeName)
			warnings = append(warnings, w)
			logger.Warn("No bulk unit match; falling back to page specs.", "unitTypeName", a.UnitTypeName)
			applySpecs(&rec, a.Specs, nil)
			rec.SpecsSource = "page"
		}

		if rec.Bathrooms == 0 {
			rec.Bathrooms = fallbackBathrooms(rec.Bedrooms)
		}
		if rec.Area == 0 {
			w := fmt.Sprintf("unit %q has zero area and will be filtered by the catalog (pages %v, sources %v, specsSource %s)",
				a.UnitTypeName, a.PageRange, a.SourceDocuments, rec.SpecsSource)
			warnings = append(warnings, w)
			logger.Warn("Unit has zero area; catalog layer will drop it.",
				"unitTypeName", a.UnitTypeName,
				"pageRange", a.PageRange,
				"sourceDocuments", a.SourceDocuments,
				"specsSource", rec.SpecsSource)
		}
		records = append(records, rec)
	}
	return records, warnings
}

// applySpecs fills the record from primary specs, then from secondary
// for anything primary left unset.
func applySpecs(rec *models.UnitRecord, primary, secondary *models.UnitSpecs) {
	for _, s := range []*models.UnitSpecs{primary, secondary} {
		if s == nil {
			continue
		}
		if rec.Bedrooms == 0 && s.Bedrooms != nil {
			rec.Bedrooms = *s.Bedrooms
		}
		if rec.Bathrooms == 0 && s.Bathrooms != nil {
			rec.Bathrooms = *s.Bathrooms
		}
		if rec.Area == 0 && s.Area != nil {
			rec.Area = *s.Area
		}
		if rec.Price == nil && s.Price != nil {
			rec.Price = s.Price
		}
		if rec.PricePerSqft == nil && s.PricePerSqft != nil {
			rec.PricePerSqft = s.PricePerSqft
		}
	}
}
