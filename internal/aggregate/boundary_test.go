package aggregate

import (
	"testing"

	"github.com/edenluchill/gulf-property-sub002/internal/models"
)

func TestIsSpecificUnitName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		want bool
	}{
		{"B-2BM-A.1", true},
		{"A-1B-A.1", true},
		{"C-1B-A.1", true},
		{"T3-2BR-B.2", true},
		{"2-Bedroom", false},
		{"3 BR", false},
		{"1 Bed", false},
		{"2 Bedrooms", false},
		{"Studio", false},
		{"studio", false},
		{"Penthouse", false},
		{"Duplex", false},
		{"Villa", false},
		{"Apartment", false},
		{"", false},
		{"  ", false},
		{"A1", false},                      // short, no separator
		{"TYPE A", false},                  // short, no separator punctuation
		{"Marina Residences Type A", true}, // long descriptive name, default-accepted
		{"A.1", true},                      // short but coded
	}
	for _, tc := range cases {
		if got := IsSpecificUnitName(tc.name); got != tc.want {
			t.Errorf("IsSpecificUnitName(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestScanBoundariesBasic(t *testing.T) {
	t.Parallel()

	pages := []models.PageRecord{
		page("a", 1, models.PageProjectCover),
		sectionPage("a", 2, "FLOOR PLANS"),
		anchorPage("a", 3, "A-1B-A.1"),
		page("a", 4, models.PageUnitInterior),
		anchorPage("a", 5, "A-2B-B.1"),
		page("a", 6, models.PageUnitRendering),
		sectionPage("a", 7, "AMENITIES"),
		page("a", 8, models.PageAmenitiesList),
	}

	got := ScanBoundaries(pages)
	if len(got) != 2 {
		t.Fatalf("ScanBoundaries returned %d boundaries, want 2: %+v", len(got), got)
	}
	if got[0].UnitTypeName != "A-1B-A.1" || got[0].StartPage != 3 || got[0].EndPage != 4 {
		t.Errorf("boundary[0] = %+v, want A-1B-A.1 pages 3-4", got[0])
	}
	if got[1].UnitTypeName != "A-2B-B.1" || got[1].StartPage != 5 || got[1].EndPage != 6 {
		t.Errorf("boundary[1] = %+v, want A-2B-B.1 pages 5-6", got[1])
	}
	if got[0].PageCount != 2 {
		t.Errorf("boundary[0].PageCount = %d, want 2", got[0].PageCount)
	}
}

func TestScanBoundariesGenericNameDoesNotOpen(t *testing.T) {
	t.Parallel()

	pages := []models.PageRecord{
		anchorPage("a", 1, "2-Bedroom"),
		page("a", 2, models.PageUnitInterior),
	}
	if got := ScanBoundaries(pages); len(got) != 0 {
		t.Fatalf("generic unit name opened a boundary: %+v", got)
	}

	pages = []models.PageRecord{
		anchorPage("a", 1, "B-2BM-A.1"),
		page("a", 2, models.PageUnitInterior),
	}
	got := ScanBoundaries(pages)
	if len(got) != 1 || got[0].UnitTypeName != "B-2BM-A.1" {
		t.Fatalf("specific unit name did not open a boundary: %+v", got)
	}
}

func TestScanBoundariesUnitEndClosesInclusive(t *testing.T) {
	t.Parallel()

	endPage := page("a", 3, models.PageUnitInterior)
	endPage.IsUnitEnd = true
	pages := []models.PageRecord{
		anchorPage("a", 1, "A-1B-A.1"),
		page("a", 2, models.PageUnitInterior),
		endPage,
		page("a", 4, models.PageUnknown),
	}
	got := ScanBoundaries(pages)
	if len(got) != 1 {
		t.Fatalf("got %d boundaries, want 1", len(got))
	}
	if got[0].EndPage != 3 {
		t.Errorf("EndPage = %d, want 3 (unitEnd page is inclusive)", got[0].EndPage)
	}
}

func TestScanBoundariesOpenBoundaryClosesAtLastPage(t *testing.T) {
	t.Parallel()

	pages := []models.PageRecord{
		anchorPage("a", 5, "A-1B-A.1"),
		page("a", 6, models.PageUnitInterior),
		page("a", 7, models.PageUnitRendering),
	}
	got := ScanBoundaries(pages)
	if len(got) != 1 || got[0].EndPage != 7 {
		t.Fatalf("open boundary not closed at last page: %+v", got)
	}
}

func TestScanBoundariesNeverCrossesDocuments(t *testing.T) {
	t.Parallel()

	// Pages sorted by (sourceDocument, pageNumber). The boundary opened
	// in doc "a" must not absorb doc "b" pages.
	pages := []models.PageRecord{
		anchorPage("a", 3, "A-1B-A.1"),
		page("a", 4, models.PageUnitInterior),
		page("b", 1, models.PageUnknown),
		page("b", 2, models.PageUnknown),
	}
	got := ScanBoundaries(pages)
	if len(got) != 1 {
		t.Fatalf("got %d boundaries, want 1", len(got))
	}
	if got[0].EndPage != 4 {
		t.Errorf("EndPage = %d, want 4 (boundary must stop at document edge)", got[0].EndPage)
	}
	if len(got[0].SourceDocuments) != 1 || got[0].SourceDocuments[0] != "a" {
		t.Errorf("SourceDocuments = %v, want [a]", got[0].SourceDocuments)
	}
}

func TestScanBoundariesContiguityInvariant(t *testing.T) {
	t.Parallel()

	pages := []models.PageRecord{
		anchorPage("a", 1, "A-1B-A.1"),
		anchorPage("a", 2, "A-2B-B.1"),
		sectionPage("a", 3, "AMENITIES"),
		anchorPage("a", 4, "A-3B-C.1"),
		page("a", 5, models.PageUnitInterior),
		anchorPage("b", 1, "B-1B-A.1"),
	}
	got := ScanBoundaries(pages)
	byDoc := make(map[string][]models.UnitBoundary)
	for _, b := range got {
		if b.StartPage > b.EndPage {
			t.Errorf("boundary %q has startPage %d > endPage %d", b.UnitTypeName, b.StartPage, b.EndPage)
		}
		byDoc[b.SourceDocuments[0]] = append(byDoc[b.SourceDocuments[0]], b)
	}
	for doc, bs := range byDoc {
		for i := 1; i < len(bs); i++ {
			if bs[i].StartPage <= bs[i-1].EndPage {
				t.Errorf("doc %s: boundaries %q and %q overlap: %+v", doc, bs[i-1].UnitTypeName, bs[i].UnitTypeName, bs)
			}
		}
	}
}
