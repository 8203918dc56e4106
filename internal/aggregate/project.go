package aggregate

import (
	"strings"

	"github.com/edenluchill/gulf-property-sub002/internal/models"
)

// projectLevelCategory reports whether an image category belongs to the
// project regardless of which page carries it. Unknown and unit-exterior
// are included deliberately: upstream classification routinely mislabels
// project photography as one of the two, and a project photo lost to a
// unit boundary is worse than a duplicate.
func projectLevelCategory(c models.ImageCategory) bool {
	switch c {
	case models.ImageBuildingExterior, models.ImageAerialView, models.ImageLocationMap,
		models.ImageMasterPlan, models.ImageLogo, models.ImageLifestyle,
		models.ImageUnknown, models.ImageUnitExterior:
		return true
	}
	return c.IsAmenity()
}

// CollectProjectImages assembles the project galleries: every usable
// image on pages no boundary owns, plus project-level images found
// anywhere, deduplicated by image path.
func CollectProjectImages(pages []models.PageRecord, boundaries []models.UnitBoundary) models.ProjectImages {
	var out models.ProjectImages
	seen := make(map[string]struct{})

	add := func(img models.PageImage) {
		if !img.ShouldUse {
			return
		}
		if _, dup := seen[img.ImagePath]; dup {
			return
		}
		seen[img.ImagePath] = struct{}{}
		switch {
		case img.Category == models.ImageBuildingExterior:
			out.Cover = append(out.Cover, img)
		case img.Category == models.ImageAerialView:
			out.Aerial = append(out.Aerial, img)
		case img.Category == models.ImageLocationMap:
			out.LocationMap = append(out.LocationMap, img)
		case img.Category == models.ImageMasterPlan:
			out.MasterPlan = append(out.MasterPlan, img)
		case img.Category.IsAmenity():
			out.Amenity = append(out.Amenity, img)
		default:
			out.Renderings = append(out.Renderings, img)
		}
	}

	for _, p := range pages {
		covered := pageCovered(p, boundaries)
		for _, img := range p.Images {
			if covered && !projectLevelCategory(img.Category) {
				continue
			}
			add(img)
		}
	}
	return out
}

func pageCovered(p models.PageRecord, boundaries []models.UnitBoundary) bool {
	for _, b := range boundaries {
		if boundaryOwns(b, p) {
			return true
		}
	}
	return false
}

// CollectRawAmenities gathers every amenity string the extraction step
// reported, in page order, duplicates included. Normalization happens
// once per job through the external normalizer or the rule-based
// fallback.
func CollectRawAmenities(pages []models.PageRecord) []string {
	var out []string
	for _, p := range pages {
		if p.Amenities == nil {
			continue
		}
		for _, a := range p.Amenities.Amenities {
			if s := strings.TrimSpace(a); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// CollectPaymentPlans gathers payment plans, deduplicated by plan name.
func CollectPaymentPlans(pages []models.PageRecord) []models.PaymentPlanData {
	var plans []models.PaymentPlanData
	for _, p := range pages {
		if p.PaymentPlan != nil && len(p.PaymentPlan.Milestones) > 0 {
			plans = append(plans, *p.PaymentPlan)
		}
	}
	return MergeByKey(plans, func(p models.PaymentPlanData) string {
		return NormalizeUnitName(p.PlanName)
	}, func(dst, src models.PaymentPlanData) models.PaymentPlanData {
		if len(src.Milestones) > len(dst.Milestones) {
			return src
		}
		return dst
	})
}

// CollectProjectInfo merges project info field-wise across pages, first
// non-empty value winning.
func CollectProjectInfo(pages []models.PageRecord) *models.ProjectInfoData {
	var info *models.ProjectInfoData
	for _, p := range pages {
		if p.ProjectInfo == nil {
			continue
		}
		if info == nil {
			info = &models.ProjectInfoData{}
		}
		setIfEmpty(&info.ProjectName, p.ProjectInfo.ProjectName)
		setIfEmpty(&info.Developer, p.ProjectInfo.Developer)
		setIfEmpty(&info.Location, p.ProjectInfo.Location)
		setIfEmpty(&info.Description, p.ProjectInfo.Description)
		setIfEmpty(&info.HandoverDate, p.ProjectInfo.HandoverDate)
	}
	return info
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = strings.TrimSpace(v)
	}
}

// amenitySynonyms maps lowercased amenity names to their canonical term.
// Kept aligned with the normalizer prompt; used when the external call
// is unavailable.
var amenitySynonyms = map[string]string{
	"gym":                "Gym",
	"gymnasium":          "Gym",
	"fitness center":     "Gym",
	"fitness centre":     "Gym",
	"health club":        "Gym",
	"pool":               "Swimming Pool",
	"swimming pool":      "Swimming Pool",
	"infinity pool":      "Swimming Pool",
	"kids pool":          "Kids Pool",
	"children's pool":    "Kids Pool",
	"kids play area":     "Kids Play Area",
	"children play area": "Kids Play Area",
	"playground":         "Kids Play Area",
	"sauna":              "Sauna & Steam",
	"steam room":         "Sauna & Steam",
	"bbq area":           "BBQ Area",
	"barbecue area":      "BBQ Area",
	"landscaped gardens": "Landscaped Gardens",
	"garden":             "Landscaped Gardens",
	"jogging track":      "Jogging Track",
	"running track":      "Jogging Track",
	"yoga studio":        "Yoga Studio",
	"yoga deck":          "Yoga Studio",
	"concierge":          "Concierge",
	"retail outlets":     "Retail",
	"retail":             "Retail",
}

// basicFacilities are noise terms that every building has and no buyer
// searches for; they are dropped rather than normalized.
var basicFacilities = map[string]struct{}{
	"washroom":      {},
	"washrooms":     {},
	"toilet":        {},
	"toilets":       {},
	"parking":       {},
	"car park":      {},
	"corridor":      {},
	"corridors":     {},
	"lobby":         {},
	"elevator":      {},
	"elevators":     {},
	"lift":          {},
	"lifts":         {},
	"staircase":     {},
	"fire exit":     {},
	"security room": {},
}

// FallbackAmenities is the deterministic rule-based stand-in for the
// external amenity normalizer: synonym folding, basic-facility removal,
// case-insensitive dedup. Order follows first appearance.
func FallbackAmenities(raw []string) []models.Amenity {
	var out []models.Amenity
	seen := make(map[string]struct{})
	for _, r := range raw {
		name := strings.TrimSpace(r)
		if name == "" {
			continue
		}
		lower := strings.ToLower(name)
		if _, noise := basicFacilities[lower]; noise {
			continue
		}
		if canonical, ok := amenitySynonyms[lower]; ok {
			name = canonical
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, models.Amenity{Name: name})
	}
	return out
}
