// Package engine evaluates a targeting filter against the customer
// population. Demographic and recency conditions are a single linear pass
// over the customer table, parallelized across row ranges; category
// conditions are set algebra over the precomputed membership index.
package engine

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/hoyun5295-ctrl/targetup/internal/models"
	"github.com/hoyun5295-ctrl/targetup/internal/population"
)

// SampleLimit bounds the display sample drawn from a candidate set
const SampleLimit = 50

// SampleRow is one sampled customer enriched with a derived age column
type SampleRow struct {
	models.Customer
	Age int `json:"age"`
}

// Engine filters the customer population. The population data is immutable
// after load, so filtering needs no locking.
type Engine struct {
	pop *population.Store
	now func() time.Time
}

// New creates an engine over the given population store
func New(pop *population.Store) *Engine {
	return &Engine{pop: pop, now: time.Now}
}

// NewWithClock creates an engine with a fixed clock for tests
func NewWithClock(pop *population.Store, now func() time.Time) *Engine {
	return &Engine{pop: pop, now: now}
}

// FilterCustomers returns the set of customer ids satisfying the filter.
// The filter is validated first so an unknown taxonomy value is rejected
// instead of silently matching everyone. An empty filter yields the full
// population.
func (e *Engine) FilterCustomers(filter *models.TargetingFilter) (map[string]struct{}, error) {
	if filter == nil {
		return nil, fmt.Errorf("filter is required")
	}
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}
	if !e.pop.Loaded() {
		return nil, fmt.Errorf("population data not loaded")
	}

	candidates := e.demographicSet(filter)

	// category algebra, then intersect with the demographic set; no
	// categories means no category restriction
	if len(filter.Categories) > 0 {
		categorySet := e.categorySet(filter.Categories, filter.CategoryMode)
		for id := range candidates {
			if _, ok := categorySet[id]; !ok {
				delete(candidates, id)
			}
		}
	}

	return candidates, nil
}

// demographicSet applies the conjunctive demographic and recency mask in a
// single pass, split across row ranges.
func (e *Engine) demographicSet(filter *models.TargetingFilter) map[string]struct{} {
	customers := e.pop.Customers()
	match := e.matcher(filter)

	workers := runtime.NumCPU()
	if workers > len(customers) {
		workers = 1
	}
	if workers < 1 {
		workers = 1
	}

	chunk := (len(customers) + workers - 1) / workers
	partials := make([][]string, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(customers) {
			hi = len(customers)
		}
		if lo >= hi {
			continue
		}

		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			ids := make([]string, 0, hi-lo)
			for i := lo; i < hi; i++ {
				if match(&customers[i]) {
					ids = append(ids, customers[i].ID)
				}
			}
			partials[w] = ids
		}(w, lo, hi)
	}
	wg.Wait()

	result := make(map[string]struct{})
	for _, ids := range partials {
		for _, id := range ids {
			result[id] = struct{}{}
		}
	}
	return result
}

// matcher compiles the filter into a per-customer predicate. Age bounds use
// the current evaluation year; recency conditions use the filter's as-of
// date (the day before send), not today.
func (e *Engine) matcher(filter *models.TargetingFilter) func(*models.Customer) bool {
	currentYear := e.now().Year()

	var maxBirthYear, minBirthYear int
	hasMin, hasMax := filter.AgeMin != nil, filter.AgeMax != nil
	if hasMin {
		maxBirthYear = currentYear - *filter.AgeMin
	}
	if hasMax {
		minBirthYear = currentYear - *filter.AgeMax
	}

	regionSet := toSet(filter.Regions)
	skinSet := toSet(filter.SkinTypes)

	asOf := filter.AsOfDate
	if asOf.IsZero() {
		asOf = models.DateOf(e.now())
	}

	var purchasedCutoff, notPurchasedCutoff time.Time
	hasPurchased := filter.PurchasedWithinMonths != nil
	hasNotPurchased := filter.NotPurchasedWithinMonths != nil
	if hasPurchased {
		purchasedCutoff = asOf.AddMonths(-*filter.PurchasedWithinMonths).Time()
	}
	if hasNotPurchased {
		notPurchasedCutoff = asOf.AddMonths(-*filter.NotPurchasedWithinMonths).Time()
	}

	return func(c *models.Customer) bool {
		if filter.Gender != "" && c.Gender != filter.Gender {
			return false
		}
		if hasMin && c.BirthYear > maxBirthYear {
			return false
		}
		if hasMax && c.BirthYear < minBirthYear {
			return false
		}
		if len(regionSet) > 0 {
			if _, ok := regionSet[c.Region]; !ok {
				return false
			}
		}
		if len(skinSet) > 0 {
			if _, ok := skinSet[c.SkinType]; !ok {
				return false
			}
		}
		if hasPurchased {
			if c.LastOrderAt == nil || c.LastOrderAt.Before(purchasedCutoff) {
				return false
			}
		}
		if hasNotPurchased {
			if c.LastOrderAt != nil && !c.LastOrderAt.Before(notPurchasedCutoff) {
				return false
			}
		}
		return true
	}
}

// categorySet combines per-category buyer sets by intersection (ALL) or
// union (ANY)
func (e *Engine) categorySet(categories []string, mode models.CategoryMode) map[string]struct{} {
	sets := make([]map[string]struct{}, 0, len(categories))
	for _, cat := range categories {
		sets = append(sets, e.pop.CategoryCustomers(cat))
	}

	if mode == models.CategoryModeAll {
		// start from the smallest set to keep the intersection cheap
		sort.Slice(sets, func(i, j int) bool { return len(sets[i]) < len(sets[j]) })

		result := make(map[string]struct{}, len(sets[0]))
		for id := range sets[0] {
			result[id] = struct{}{}
		}
		for _, s := range sets[1:] {
			for id := range result {
				if _, ok := s[id]; !ok {
					delete(result, id)
				}
			}
		}
		return result
	}

	result := make(map[string]struct{})
	for _, s := range sets {
		for id := range s {
			result[id] = struct{}{}
		}
	}
	return result
}

// Sample returns up to SampleLimit candidates, sorted by customer id for
// deterministic output, enriched with a derived age column.
func (e *Engine) Sample(candidates map[string]struct{}) []SampleRow {
	ids := make([]string, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) > SampleLimit {
		ids = ids[:SampleLimit]
	}

	wanted := toSet(ids)
	currentYear := e.now().Year()

	rows := make([]SampleRow, 0, len(ids))
	for _, c := range e.pop.Customers() {
		if _, ok := wanted[c.ID]; !ok {
			continue
		}
		rows = append(rows, SampleRow{Customer: c, Age: c.Age(currentYear)})
		if len(rows) == len(ids) {
			break
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })

	return rows
}

// SortedIDs returns the candidate ids in a stable order for persistence
func SortedIDs(candidates map[string]struct{}) []string {
	ids := make([]string, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
