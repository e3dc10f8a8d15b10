// Package population holds the in-memory customer table and the
// precomputed category membership index. Both are immutable after load;
// Reload swaps in a fresh snapshot and is an explicit operation callers
// must serialize against queries themselves.
package population

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/hoyun5295-ctrl/targetup/internal/models"
	"github.com/hoyun5295-ctrl/targetup/internal/repository"
)

// snapshot is one immutable view of the population data
type snapshot struct {
	customers  []models.Customer
	byCategory map[string]map[string]struct{}
}

// Store caches the customer population and per-category buyer sets
type Store struct {
	customerRepo repository.CustomerRepository
	purchaseRepo repository.PurchaseRepository

	mu   sync.RWMutex
	snap *snapshot
}

// NewStore creates a population store backed by the given repositories.
// Load must be called before the first query.
func NewStore(customerRepo repository.CustomerRepository, purchaseRepo repository.PurchaseRepository) *Store {
	return &Store{
		customerRepo: customerRepo,
		purchaseRepo: purchaseRepo,
	}
}

// NewStoreFromData creates a preloaded store from in-memory data. Used by
// tests and anywhere the population does not come from the database.
func NewStoreFromData(customers []models.Customer, byCategory map[string]map[string]struct{}) *Store {
	if byCategory == nil {
		byCategory = make(map[string]map[string]struct{})
	}
	return &Store{
		snap: &snapshot{customers: customers, byCategory: byCategory},
	}
}

// Load performs the one-time blocking population build. It is a no-op when
// data is already loaded; use Reload to force a fresh snapshot.
func (s *Store) Load(ctx context.Context) error {
	if s.Loaded() {
		return nil
	}
	return s.Reload(ctx)
}

// Reload rebuilds the snapshot from the database and swaps it in.
// External callers must not run it concurrently with themselves.
func (s *Store) Reload(ctx context.Context) error {
	if s.customerRepo == nil || s.purchaseRepo == nil {
		return fmt.Errorf("population store has no backing repositories")
	}

	start := time.Now()

	customers, err := s.customerRepo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load population: %w", err)
	}

	byCategory, err := s.purchaseRepo.CategoryMembership(ctx)
	if err != nil {
		return fmt.Errorf("failed to build category index: %w", err)
	}

	s.mu.Lock()
	s.snap = &snapshot{customers: customers, byCategory: byCategory}
	s.mu.Unlock()

	log.Printf("Population loaded: %d customers, %d categories indexed (%v)",
		len(customers), len(byCategory), time.Since(start).Round(time.Millisecond))

	return nil
}

// Loaded reports whether a snapshot is available
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap != nil
}

// Customers returns the immutable customer table. Callers must not modify
// the returned slice.
func (s *Store) Customers() []models.Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil
	}
	return s.snap.customers
}

// Size returns the population size
func (s *Store) Size() int {
	return len(s.Customers())
}

// CategoryCustomers returns the buyer set for one category. The lookup is
// O(1); an unknown category yields an empty set.
func (s *Store) CategoryCustomers(category string) map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return map[string]struct{}{}
	}
	if members, ok := s.snap.byCategory[category]; ok {
		return members
	}
	return map[string]struct{}{}
}
