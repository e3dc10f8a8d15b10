package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hoyun5295-ctrl/targetup/internal/models"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// CampaignRepository defines campaign data access operations
type CampaignRepository interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	GetByID(ctx context.Context, id int) (*models.Campaign, error)
	List(ctx context.Context, status *models.CampaignStatus, limit int) ([]*models.Campaign, error)
	// GetDue returns scheduled campaigns whose send time has passed,
	// oldest overdue first
	GetDue(ctx context.Context, now time.Time) ([]*models.Campaign, error)
	// UpdateStatus writes the status unconditionally; callers are
	// responsible for only invoking valid transitions
	UpdateStatus(ctx context.Context, id int, status models.CampaignStatus, sentAt *time.Time) error
	// TransitionFromScheduled atomically moves a campaign out of the
	// scheduled state. It reports false when the row is no longer
	// scheduled, so concurrent transitions cannot both win.
	TransitionFromScheduled(ctx context.Context, id int, to models.CampaignStatus, sentAt *time.Time) (bool, error)
	Delete(ctx context.Context, id int) (bool, error)
	Stats(ctx context.Context) (*models.CampaignStats, error)
}

// CustomerRepository defines customer population data access
type CustomerRepository interface {
	LoadAll(ctx context.Context) ([]models.Customer, error)
	CreateBatch(ctx context.Context, customers []models.Customer) error
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

// PurchaseRepository defines purchase history data access
type PurchaseRepository interface {
	// CategoryMembership returns, per category, the set of customer ids
	// that have ever purchased it
	CategoryMembership(ctx context.Context) (map[string]map[string]struct{}, error)
	CreateBatch(ctx context.Context, purchases []models.Purchase) error
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

// DB is a wrapper around *sql.DB to allow passing in a transaction
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
