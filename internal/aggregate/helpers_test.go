package aggregate

import (
	"fmt"

	"github.com/edenluchill/gulf-property-sub002/internal/models"
)

// Test fixture builders. Pages come out usable by default; tests flip
// the flags they care about.

func page(doc string, num int, typ models.PageType) models.PageRecord {
	return models.PageRecord{
		PageNumber:     num,
		SourceDocument: doc,
		PageType:       typ,
		Confidence:     0.9,
	}
}

func anchorPage(doc string, num int, unitName string) models.PageRecord {
	p := page(doc, num, models.PageUnitAnchor)
	p.IsUnitStart = true
	p.UnitInfo = &models.UnitInfo{UnitTypeName: unitName}
	return p
}

func sectionPage(doc string, num int, title string) models.PageRecord {
	p := page(doc, num, models.PageSectionTitle)
	p.IsSectionStart = true
	p.StartMarkerText = title
	return p
}

func img(path string, cat models.ImageCategory) models.PageImage {
	return models.PageImage{
		ImageID:    "img-" + path,
		ImagePath:  path,
		Category:   cat,
		Confidence: 0.9,
		ShouldUse:  true,
	}
}

func withImages(p models.PageRecord, images ...models.PageImage) models.PageRecord {
	p.Images = images
	return p
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func imagePaths(images []models.PageImage) []string {
	out := make([]string, len(images))
	for i, im := range images {
		out[i] = im.ImagePath
	}
	return out
}

func uniquePath(prefix string, i int) string {
	return fmt.Sprintf("%s-%d.jpg", prefix, i)
}
