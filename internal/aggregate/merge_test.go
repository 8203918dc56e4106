package aggregate

import (
	"reflect"
	"testing"

	"github.com/edenluchill/gulf-property-sub002/internal/models"
)

func TestMergeAcrossDocuments(t *testing.T) {
	t.Parallel()

	a := models.UnitImageAssignment{
		UnitTypeName:    "C-1B-A.1",
		FloorPlans:      []models.PageImage{img("a-fp.jpg", models.ImageFloorPlan)},
		AllImages:       []models.PageImage{img("a-fp.jpg", models.ImageFloorPlan)},
		SourceDocuments: []string{"doc-a"},
		PageRange:       &models.PageRange{StartPage: 3, EndPage: 5},
	}
	b := models.UnitImageAssignment{
		UnitTypeName:    "c-1b-a.1", // same unit, different casing
		Renderings:      []models.PageImage{img("b-r.jpg", models.ImageUnitExterior)},
		AllImages:       []models.PageImage{img("b-r.jpg", models.ImageUnitExterior)},
		SourceDocuments: []string{"doc-b"},
		PageRange:       &models.PageRange{StartPage: 1, EndPage: 2},
	}
	other := models.UnitImageAssignment{
		UnitTypeName:    "C-2B-B.1",
		SourceDocuments: []string{"doc-a"},
	}

	got := MergeAcrossDocuments([]models.UnitImageAssignment{a, other, b})
	if len(got) != 2 {
		t.Fatalf("got %d units, want 2: %+v", len(got), got)
	}
	m := got[0]
	if m.UnitTypeName != "C-1B-A.1" {
		t.Errorf("merged name = %q, want first-seen casing C-1B-A.1", m.UnitTypeName)
	}
	if len(m.AllImages) != 2 {
		t.Errorf("merged AllImages = %v, want union of both documents", imagePaths(m.AllImages))
	}
	if !reflect.DeepEqual(m.SourceDocuments, []string{"doc-a", "doc-b"}) {
		t.Errorf("SourceDocuments = %v, want [doc-a doc-b]", m.SourceDocuments)
	}
	if m.PageRange.StartPage != 1 || m.PageRange.EndPage != 5 {
		t.Errorf("PageRange = %+v, want 1-5 span", m.PageRange)
	}
}

func TestMergeAcrossDocumentsDoesNotDedupeImages(t *testing.T) {
	t.Parallel()

	// Same path tagged under two categories: both survive the merge;
	// gallery assembly dedups by path later.
	a := models.UnitImageAssignment{
		UnitTypeName: "C-1B-A.1",
		FloorPlans:   []models.PageImage{img("x.jpg", models.ImageFloorPlan)},
		AllImages:    []models.PageImage{img("x.jpg", models.ImageFloorPlan)},
	}
	b := models.UnitImageAssignment{
		UnitTypeName: "C-1B-A.1",
		Renderings:   []models.PageImage{img("x.jpg", models.ImageUnitExterior)},
		AllImages:    []models.PageImage{img("x.jpg", models.ImageUnitExterior)},
	}
	got := MergeAcrossDocuments([]models.UnitImageAssignment{a, b})
	if len(got) != 1 || len(got[0].AllImages) != 2 {
		t.Fatalf("merge deduplicated images; AllImages = %v", imagePaths(got[0].AllImages))
	}
}
