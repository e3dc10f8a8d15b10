package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hoyun5295-ctrl/targetup/internal/models"
)

const campaignColumns = `id, created_at, user_prompt, send_at, as_of_date, filter_json,
		total_count, targets_path, selected_variant_id, sms_text, lms_text, status, sent_at`

type campaignRepository struct {
	db *sql.DB
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db *sql.DB) CampaignRepository {
	return &campaignRepository{db: db}
}

// Create inserts a new campaign row and fills in its assigned id
func (r *campaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	query := `
		INSERT INTO campaigns (
			created_at, user_prompt, send_at, as_of_date, filter_json,
			total_count, targets_path, selected_variant_id, sms_text, lms_text, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	var asOf interface{}
	if !campaign.AsOfDate.IsZero() {
		asOf = campaign.AsOfDate.String()
	}

	err := r.db.QueryRowContext(
		ctx,
		query,
		campaign.CreatedAt,
		campaign.UserPrompt,
		campaign.SendAt,
		asOf,
		campaign.FilterJSON,
		campaign.TotalCount,
		campaign.TargetsPath,
		campaign.SelectedVariantID,
		campaign.SMSText,
		campaign.LMSText,
		campaign.Status,
	).Scan(&campaign.ID)

	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}

	return nil
}

// GetByID retrieves a campaign by ID
func (r *campaignRepository) GetByID(ctx context.Context, id int) (*models.Campaign, error) {
	query := fmt.Sprintf(`SELECT %s FROM campaigns WHERE id = $1`, campaignColumns)

	campaign, err := scanCampaign(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	return campaign, nil
}

// List retrieves campaigns ordered by send time descending, optionally
// restricted to one status
func (r *campaignRepository) List(ctx context.Context, status *models.CampaignStatus, limit int) ([]*models.Campaign, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows *sql.Rows
	var err error

	if status != nil {
		query := fmt.Sprintf(`
			SELECT %s FROM campaigns
			WHERE status = $1
			ORDER BY send_at DESC
			LIMIT $2`, campaignColumns)
		rows, err = r.db.QueryContext(ctx, query, *status, limit)
	} else {
		query := fmt.Sprintf(`
			SELECT %s FROM campaigns
			ORDER BY send_at DESC
			LIMIT $1`, campaignColumns)
		rows, err = r.db.QueryContext(ctx, query, limit)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	return collectCampaigns(rows)
}

// GetDue retrieves scheduled campaigns whose send time has passed, earliest
// first so the oldest overdue campaign is served first
func (r *campaignRepository) GetDue(ctx context.Context, now time.Time) ([]*models.Campaign, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM campaigns
		WHERE status = $1 AND send_at <= $2
		ORDER BY send_at ASC`, campaignColumns)

	rows, err := r.db.QueryContext(ctx, query, models.CampaignStatusScheduled, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get due campaigns: %w", err)
	}
	defer rows.Close()

	return collectCampaigns(rows)
}

// UpdateStatus writes the status (and optionally sent_at) unconditionally
func (r *campaignRepository) UpdateStatus(ctx context.Context, id int, status models.CampaignStatus, sentAt *time.Time) error {
	query := `
		UPDATE campaigns
		SET status = $1, sent_at = COALESCE($2, sent_at)
		WHERE id = $3
	`

	result, err := r.db.ExecContext(ctx, query, status, sentAt, id)
	if err != nil {
		return fmt.Errorf("failed to update campaign status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// TransitionFromScheduled performs the compare-and-set status transition:
// the write only lands if the row is still scheduled, so a concurrent sweep
// or cancel against the same campaign cannot both succeed.
func (r *campaignRepository) TransitionFromScheduled(ctx context.Context, id int, to models.CampaignStatus, sentAt *time.Time) (bool, error) {
	query := `
		UPDATE campaigns
		SET status = $1, sent_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.db.ExecContext(ctx, query, to, sentAt, id, models.CampaignStatusScheduled)
	if err != nil {
		return false, fmt.Errorf("failed to transition campaign: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// Delete removes a campaign row, reporting whether it existed
func (r *campaignRepository) Delete(ctx context.Context, id int) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete campaign: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// Stats counts campaigns per status
func (r *campaignRepository) Stats(ctx context.Context) (*models.CampaignStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'scheduled') as scheduled,
			COUNT(*) FILTER (WHERE status = 'sent') as sent,
			COUNT(*) FILTER (WHERE status = 'canceled') as canceled,
			COUNT(*) as total
		FROM campaigns
	`

	stats := &models.CampaignStats{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.Scheduled,
		&stats.Sent,
		&stats.Canceled,
		&stats.Total,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign stats: %w", err)
	}

	return stats, nil
}

// scanner abstracts *sql.Row and *sql.Rows for campaign scanning
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCampaign(s scanner) (*models.Campaign, error) {
	campaign := &models.Campaign{}
	var asOf sql.NullString

	err := s.Scan(
		&campaign.ID,
		&campaign.CreatedAt,
		&campaign.UserPrompt,
		&campaign.SendAt,
		&asOf,
		&campaign.FilterJSON,
		&campaign.TotalCount,
		&campaign.TargetsPath,
		&campaign.SelectedVariantID,
		&campaign.SMSText,
		&campaign.LMSText,
		&campaign.Status,
		&campaign.SentAt,
	)
	if err != nil {
		return nil, err
	}

	if asOf.Valid && asOf.String != "" {
		date, err := models.ParseDate(asOf.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse as_of_date: %w", err)
		}
		campaign.AsOfDate = date
	}

	return campaign, nil
}

func collectCampaigns(rows *sql.Rows) ([]*models.Campaign, error) {
	campaigns := []*models.Campaign{}
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, campaign)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate campaigns: %w", err)
	}
	return campaigns, nil
}
