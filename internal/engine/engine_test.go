package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/hoyun5295-ctrl/targetup/internal/models"
	"github.com/hoyun5295-ctrl/targetup/internal/population"
)

// fixed evaluation clock so age bands are stable
var testNow = time.Date(2026, 2, 5, 12, 0, 0, 0, time.Local)

func fixedClock() time.Time { return testNow }

func datePtr(year, month, day int) *time.Time {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	return &t
}

// testPopulation builds a small in-memory population:
//
//	C001  F 2000 서울 건성  last order 2026-01-20   bought 에센스, 눈가케어
//	C002  F 1995 서울 지성  last order 2025-06-01   bought 에센스
//	C003  M 2001 부산 건성  last order 2026-01-15   bought 눈가케어
//	C004  F 1980 서울 민감성 never ordered           no purchases
func testPopulation() *population.Store {
	customers := []models.Customer{
		{ID: "C001", Name: "고객1", Gender: models.GenderFemale, BirthYear: 2000, Region: "서울", SkinType: "건성", Grade: "VIP", LastOrderAt: datePtr(2026, 1, 20)},
		{ID: "C002", Name: "고객2", Gender: models.GenderFemale, BirthYear: 1995, Region: "서울", SkinType: "지성", Grade: "GOLD", LastOrderAt: datePtr(2025, 6, 1)},
		{ID: "C003", Name: "고객3", Gender: models.GenderMale, BirthYear: 2001, Region: "부산", SkinType: "건성", Grade: "SILVER", LastOrderAt: datePtr(2026, 1, 15)},
		{ID: "C004", Name: "고객4", Gender: models.GenderFemale, BirthYear: 1980, Region: "서울", SkinType: "민감성", Grade: "NORMAL"},
	}
	byCategory := map[string]map[string]struct{}{
		"에센스":  {"C001": {}, "C002": {}},
		"눈가케어": {"C001": {}, "C003": {}},
	}
	return population.NewStoreFromData(customers, byCategory)
}

func newTestEngine() *Engine {
	return NewWithClock(testPopulation(), fixedClock)
}

func ids(candidates map[string]struct{}) []string {
	return SortedIDs(candidates)
}

func assertIDs(t *testing.T, got map[string]struct{}, want ...string) {
	t.Helper()
	gotIDs := ids(got)
	if len(gotIDs) != len(want) {
		t.Errorf("Expected %v but got %v", want, gotIDs)
		return
	}
	for i := range want {
		if gotIDs[i] != want[i] {
			t.Errorf("Expected %v but got %v", want, gotIDs)
			return
		}
	}
}

func TestFilterCustomers_EmptyFilterReturnsAll(t *testing.T) {
	e := newTestEngine()

	got, err := e.FilterCustomers(models.NewTargetingFilter())
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	assertIDs(t, got, "C001", "C002", "C003", "C004")
}

func TestFilterCustomers_NilFilterRejected(t *testing.T) {
	e := newTestEngine()

	if _, err := e.FilterCustomers(nil); err == nil {
		t.Error("Expected error for nil filter but got nil")
	}
}

func TestFilterCustomers_UnknownRegionRejected(t *testing.T) {
	e := newTestEngine()

	filter := models.NewTargetingFilter()
	filter.Regions = []string{"달나라"}

	if _, err := e.FilterCustomers(filter); err == nil {
		t.Error("Expected error for unknown region but got nil")
	}
}

func TestFilterCustomers_DemographicMask(t *testing.T) {
	e := newTestEngine()

	ageMin, ageMax := 20, 29
	filter := models.NewTargetingFilter()
	filter.Gender = models.GenderFemale
	filter.AgeMin = &ageMin
	filter.AgeMax = &ageMax
	filter.Regions = []string{"서울"}

	got, err := e.FilterCustomers(filter)
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	// C001 is 26, C002 is 31, C003 is male/부산, C004 is 46
	assertIDs(t, got, "C001")
}

func TestFilterCustomers_CategoryAllIsIntersection(t *testing.T) {
	e := newTestEngine()

	filter := models.NewTargetingFilter()
	filter.Categories = []string{"에센스", "눈가케어"}
	filter.CategoryMode = models.CategoryModeAll

	got, err := e.FilterCustomers(filter)
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	assertIDs(t, got, "C001")
}

func TestFilterCustomers_CategoryAnyIsUnion(t *testing.T) {
	e := newTestEngine()

	filter := models.NewTargetingFilter()
	filter.Categories = []string{"에센스", "눈가케어"}
	filter.CategoryMode = models.CategoryModeAny

	got, err := e.FilterCustomers(filter)
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	assertIDs(t, got, "C001", "C002", "C003")
}

func TestFilterCustomers_CategoryIntersectsDemographics(t *testing.T) {
	e := newTestEngine()

	filter := models.NewTargetingFilter()
	filter.Gender = models.GenderFemale
	filter.Categories = []string{"눈가케어"}
	filter.CategoryMode = models.CategoryModeAny

	got, err := e.FilterCustomers(filter)
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	// C003 bought 눈가케어 but is male
	assertIDs(t, got, "C001")
}

func TestFilterCustomers_RecencyUsesAsOfDate(t *testing.T) {
	e := newTestEngine()

	// as of 2026-02-04, purchased within 3 months means on/after 2025-11-04
	months := 3
	filter := models.NewTargetingFilter()
	filter.PurchasedWithinMonths = &months
	filter.AsOfDate = models.NewDate(2026, 2, 4)

	got, err := e.FilterCustomers(filter)
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	assertIDs(t, got, "C001", "C003")
}

func TestFilterCustomers_ChurnCondition(t *testing.T) {
	e := newTestEngine()

	// not purchased within 6 months of 2026-02-04: last order before
	// 2025-08-04, or no order at all
	months := 6
	filter := models.NewTargetingFilter()
	filter.NotPurchasedWithinMonths = &months
	filter.AsOfDate = models.NewDate(2026, 2, 4)

	got, err := e.FilterCustomers(filter)
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	assertIDs(t, got, "C002", "C004")
}

func TestSample_SortedAndEnriched(t *testing.T) {
	e := newTestEngine()

	candidates := map[string]struct{}{"C003": {}, "C001": {}}
	rows := e.Sample(candidates)

	if len(rows) != 2 {
		t.Fatalf("Expected 2 sample rows but got %d", len(rows))
	}
	if rows[0].ID != "C001" || rows[1].ID != "C003" {
		t.Errorf("Expected sample order [C001 C003] but got [%s %s]", rows[0].ID, rows[1].ID)
	}
	if rows[0].Age != 26 {
		t.Errorf("Expected age 26 but got %d", rows[0].Age)
	}
}

func TestSample_RespectsLimit(t *testing.T) {
	customers := make([]models.Customer, 0, SampleLimit+10)
	candidates := make(map[string]struct{}, SampleLimit+10)
	for i := 1; i <= SampleLimit+10; i++ {
		id := fmt.Sprintf("C%03d", i)
		customers = append(customers, models.Customer{ID: id, BirthYear: 2000})
		candidates[id] = struct{}{}
	}
	e := NewWithClock(population.NewStoreFromData(customers, nil), fixedClock)

	rows := e.Sample(candidates)
	if len(rows) > SampleLimit {
		t.Errorf("Expected at most %d rows but got %d", SampleLimit, len(rows))
	}
}
