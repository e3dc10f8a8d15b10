package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/hoyun5295-ctrl/targetup/internal/models"
	"github.com/hoyun5295-ctrl/targetup/internal/repository"
	"github.com/hoyun5295-ctrl/targetup/internal/scheduler"
)

// SaveCampaignRequest carries everything needed to persist a confirmed
// campaign
type SaveCampaignRequest struct {
	UserPrompt        string
	SendAt            time.Time
	Filter            *models.TargetingFilter
	TotalCount        int
	CustomerIDs       []string
	SelectedVariantID string
	SMSText           string
	LMSText           string
}

// CampaignService handles the campaign lifecycle: save, lookup, the two
// terminal transitions and deletion, plus the target-list side file.
type CampaignService struct {
	repo       repository.CampaignRepository
	targetsDir string
	publisher  scheduler.DispatchPublisher
	now        func() time.Time
}

// NewCampaignService creates the campaign service. publisher may be nil.
func NewCampaignService(repo repository.CampaignRepository, targetsDir string, publisher scheduler.DispatchPublisher) *CampaignService {
	return &CampaignService{
		repo:       repo,
		targetsDir: targetsDir,
		publisher:  publisher,
		now:        time.Now,
	}
}

// NewCampaignServiceWithClock creates the service with a fixed clock for tests
func NewCampaignServiceWithClock(repo repository.CampaignRepository, targetsDir string, publisher scheduler.DispatchPublisher, now func() time.Time) *CampaignService {
	return &CampaignService{repo: repo, targetsDir: targetsDir, publisher: publisher, now: now}
}

// Save persists a campaign in the scheduled state, writing the target-list
// CSV side file and recording its path on the row
func (s *CampaignService) Save(ctx context.Context, req *SaveCampaignRequest) (*models.Campaign, error) {
	if req.Filter == nil {
		return nil, &ValidationError{Message: "filter is required"}
	}
	if err := req.Filter.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	filterJSON, err := req.Filter.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize filter: %w", err)
	}

	now := s.now()

	campaign := &models.Campaign{
		CreatedAt:         now,
		UserPrompt:        req.UserPrompt,
		SendAt:            req.SendAt,
		AsOfDate:          req.Filter.AsOfDate,
		FilterJSON:        filterJSON,
		TotalCount:        req.TotalCount,
		SelectedVariantID: req.SelectedVariantID,
		SMSText:           req.SMSText,
		LMSText:           req.LMSText,
		Status:            models.CampaignStatusScheduled,
	}
	if err := campaign.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	targetsPath, err := s.writeTargetsFile(now, req.CustomerIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to write targets file: %w", err)
	}
	campaign.TargetsPath = &targetsPath

	if err := s.repo.Create(ctx, campaign); err != nil {
		// the row never landed, don't orphan the side file
		os.Remove(targetsPath)
		return nil, fmt.Errorf("failed to save campaign: %w", err)
	}

	log.Printf("Campaign #%d saved: %d targets, send at %s",
		campaign.ID, campaign.TotalCount, campaign.SendAt.Format("2006-01-02 15:04"))

	return campaign, nil
}

// writeTargetsFile writes one customer id per record under a per-save
// unique, timestamp-derived name
func (s *CampaignService) writeTargetsFile(now time.Time, customerIDs []string) (string, error) {
	if err := os.MkdirAll(s.targetsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create targets dir: %w", err)
	}

	name := fmt.Sprintf("targets_%s_%s.csv",
		now.Format("20060102_150405"), uuid.NewString()[:8])
	path := filepath.Join(s.targetsDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create targets file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"customer_id"}); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}
	for _, id := range customerIDs {
		if err := w.Write([]string{id}); err != nil {
			return "", fmt.Errorf("failed to write customer id: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush targets file: %w", err)
	}

	return path, nil
}

// Get retrieves a campaign by id
func (s *CampaignService) Get(ctx context.Context, id int) (*models.Campaign, error) {
	campaign, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: "campaign", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return campaign, nil
}

// List retrieves campaigns by send time descending, optionally filtered by
// status
func (s *CampaignService) List(ctx context.Context, status *models.CampaignStatus, limit int) ([]*models.Campaign, error) {
	if status != nil && !models.IsValidStatus(*status) {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid status: %q", *status)}
	}
	campaigns, err := s.repo.List(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return campaigns, nil
}

// Cancel moves a scheduled campaign to canceled. Returns false without
// error when the campaign is already terminal, so callers can report a
// simple no-op.
func (s *CampaignService) Cancel(ctx context.Context, id int) (bool, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return false, err
	}

	won, err := s.repo.TransitionFromScheduled(ctx, id, models.CampaignStatusCanceled, nil)
	if err != nil {
		return false, fmt.Errorf("failed to cancel campaign: %w", err)
	}
	if won {
		log.Printf("Campaign #%d canceled", id)
	}
	return won, nil
}

// SendNow immediately transitions a scheduled campaign to sent, recording
// the send intent first. Same terminal-state guard as Cancel.
func (s *CampaignService) SendNow(ctx context.Context, id int) (bool, error) {
	campaign, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}

	log.Printf("Dispatching campaign #%d now: %d recipients", campaign.ID, campaign.TotalCount)
	if s.publisher != nil {
		if err := s.publisher.PublishDispatch(campaign); err != nil {
			log.Printf("Warning: failed to publish dispatch for campaign #%d: %v", campaign.ID, err)
		}
	}

	sentAt := s.now()
	won, err := s.repo.TransitionFromScheduled(ctx, id, models.CampaignStatusSent, &sentAt)
	if err != nil {
		return false, fmt.Errorf("failed to send campaign: %w", err)
	}
	return won, nil
}

// Delete removes the campaign row and its side file if present
func (s *CampaignService) Delete(ctx context.Context, id int) (bool, error) {
	campaign, err := s.Get(ctx, id)
	if err != nil {
		if _, ok := err.(*NotFoundError); ok {
			return false, nil
		}
		return false, err
	}

	if campaign.TargetsPath != nil {
		if err := os.Remove(*campaign.TargetsPath); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: failed to remove targets file %s: %v", *campaign.TargetsPath, err)
		}
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete campaign: %w", err)
	}
	return deleted, nil
}

// TargetsPath returns the side-file path for a campaign, or "" when none
// was recorded
func (s *CampaignService) TargetsPath(ctx context.Context, id int) (string, error) {
	campaign, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if campaign.TargetsPath == nil {
		return "", nil
	}
	return *campaign.TargetsPath, nil
}

// Stats returns campaign counts per status
func (s *CampaignService) Stats(ctx context.Context) (*models.CampaignStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return stats, nil
}
