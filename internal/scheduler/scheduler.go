// Package scheduler advances due campaigns to the sent state. It owns no
// timer: Sweep is invoked synchronously by external callers on their own
// cadence and stays correct whether sweeps are rare, frequent or
// concurrent, because every transition is a compare-and-set on the store.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hoyun5295-ctrl/targetup/internal/models"
	"github.com/hoyun5295-ctrl/targetup/internal/repository"
)

// DispatchPublisher records the send intent for a campaign. Publication is
// best-effort context for downstream systems; the status transition alone
// is the unit of success.
type DispatchPublisher interface {
	PublishDispatch(campaign *models.Campaign) error
}

// SweepResult reports the outcome for one due campaign examined by a sweep
type SweepResult struct {
	Campaign *models.Campaign
	Sent     bool
	Err      error
}

// Scheduler processes due campaigns
type Scheduler struct {
	repo      repository.CampaignRepository
	publisher DispatchPublisher
	now       func() time.Time
}

// New creates a scheduler. publisher may be nil when no queue is wired.
func New(repo repository.CampaignRepository, publisher DispatchPublisher) *Scheduler {
	return &Scheduler{repo: repo, publisher: publisher, now: time.Now}
}

// NewWithClock creates a scheduler with a fixed clock for tests
func NewWithClock(repo repository.CampaignRepository, publisher DispatchPublisher, now func() time.Time) *Scheduler {
	return &Scheduler{repo: repo, publisher: publisher, now: now}
}

// Sweep fetches all due campaigns and attempts exactly one transition to
// sent per campaign. Per-campaign failures are isolated in the results; the
// returned error is reserved for a systemic store failure. Repeating a
// sweep is safe: a campaign already transitioned by an earlier or
// concurrent sweep simply loses the compare-and-set and is not re-sent.
func (s *Scheduler) Sweep(ctx context.Context) ([]SweepResult, error) {
	due, err := s.repo.GetDue(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due campaigns: %w", err)
	}

	results := make([]SweepResult, 0, len(due))
	for _, campaign := range due {
		sent, err := s.send(ctx, campaign)
		results = append(results, SweepResult{Campaign: campaign, Sent: sent, Err: err})
	}

	return results, nil
}

// send performs one transition attempt. The dispatch intent is logged and
// published before the terminal-state commit so a failed commit leaves the
// campaign scheduled for retry on the next sweep.
func (s *Scheduler) send(ctx context.Context, campaign *models.Campaign) (bool, error) {
	sentAt := s.now()

	log.Printf("Dispatching campaign #%d: %d recipients, variant %s",
		campaign.ID, campaign.TotalCount, campaign.SelectedVariantID)

	if s.publisher != nil {
		if err := s.publisher.PublishDispatch(campaign); err != nil {
			log.Printf("Warning: failed to publish dispatch for campaign #%d: %v", campaign.ID, err)
		}
	}

	won, err := s.repo.TransitionFromScheduled(ctx, campaign.ID, models.CampaignStatusSent, &sentAt)
	if err != nil {
		log.Printf("Failed to mark campaign #%d sent: %v", campaign.ID, err)
		return false, err
	}
	if !won {
		// lost the race to a concurrent sweep or cancel
		return false, nil
	}

	campaign.Status = models.CampaignStatusSent
	campaign.SentAt = &sentAt
	log.Printf("Campaign #%d sent to %d recipients", campaign.ID, campaign.TotalCount)
	return true, nil
}

// PendingCount returns the number of scheduled campaigns
func (s *Scheduler) PendingCount(ctx context.Context) (int, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending campaigns: %w", err)
	}
	return stats.Scheduled, nil
}

// ScheduledToday returns scheduled campaigns with a send time today
func (s *Scheduler) ScheduledToday(ctx context.Context) ([]*models.Campaign, error) {
	status := models.CampaignStatusScheduled
	scheduled, err := s.repo.List(ctx, &status, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled campaigns: %w", err)
	}

	today := models.DateOf(s.now())
	todays := []*models.Campaign{}
	for _, c := range scheduled {
		if models.DateOf(c.SendAt).Equal(today) {
			todays = append(todays, c)
		}
	}
	return todays, nil
}
