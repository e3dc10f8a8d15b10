package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hoyun5295-ctrl/targetup/internal/models"
	"github.com/hoyun5295-ctrl/targetup/internal/repository"
)

var testNow = time.Date(2026, 2, 10, 10, 5, 0, 0, time.Local)

// fakeCampaignRepo keeps campaigns in memory and honors the compare-and-set
// contract of TransitionFromScheduled.
type fakeCampaignRepo struct {
	campaigns   map[int]*models.Campaign
	getDueErr   error
	transitions int
}

func newFakeRepo(campaigns ...*models.Campaign) *fakeCampaignRepo {
	repo := &fakeCampaignRepo{campaigns: map[int]*models.Campaign{}}
	for _, c := range campaigns {
		repo.campaigns[c.ID] = c
	}
	return repo
}

func (f *fakeCampaignRepo) Create(ctx context.Context, campaign *models.Campaign) error {
	f.campaigns[campaign.ID] = campaign
	return nil
}

func (f *fakeCampaignRepo) GetByID(ctx context.Context, id int) (*models.Campaign, error) {
	c, ok := f.campaigns[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeCampaignRepo) List(ctx context.Context, status *models.CampaignStatus, limit int) ([]*models.Campaign, error) {
	result := []*models.Campaign{}
	for _, c := range f.campaigns {
		if status == nil || c.Status == *status {
			result = append(result, c)
		}
	}
	return result, nil
}

func (f *fakeCampaignRepo) GetDue(ctx context.Context, now time.Time) ([]*models.Campaign, error) {
	if f.getDueErr != nil {
		return nil, f.getDueErr
	}
	due := []*models.Campaign{}
	for _, c := range f.campaigns {
		if c.Status == models.CampaignStatusScheduled && !c.SendAt.After(now) {
			due = append(due, c)
		}
	}
	return due, nil
}

func (f *fakeCampaignRepo) UpdateStatus(ctx context.Context, id int, status models.CampaignStatus, sentAt *time.Time) error {
	c, ok := f.campaigns[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.Status = status
	if sentAt != nil {
		c.SentAt = sentAt
	}
	return nil
}

func (f *fakeCampaignRepo) TransitionFromScheduled(ctx context.Context, id int, to models.CampaignStatus, sentAt *time.Time) (bool, error) {
	f.transitions++
	c, ok := f.campaigns[id]
	if !ok || c.Status != models.CampaignStatusScheduled {
		return false, nil
	}
	c.Status = to
	c.SentAt = sentAt
	return true, nil
}

func (f *fakeCampaignRepo) Delete(ctx context.Context, id int) (bool, error) {
	_, ok := f.campaigns[id]
	delete(f.campaigns, id)
	return ok, nil
}

func (f *fakeCampaignRepo) Stats(ctx context.Context) (*models.CampaignStats, error) {
	stats := &models.CampaignStats{}
	for _, c := range f.campaigns {
		stats.Total++
		switch c.Status {
		case models.CampaignStatusScheduled:
			stats.Scheduled++
		case models.CampaignStatusSent:
			stats.Sent++
		case models.CampaignStatusCanceled:
			stats.Canceled++
		}
	}
	return stats, nil
}

type fakePublisher struct {
	published []int
	err       error
}

func (f *fakePublisher) PublishDispatch(campaign *models.Campaign) error {
	f.published = append(f.published, campaign.ID)
	return f.err
}

func scheduledCampaign(id int, sendAt time.Time) *models.Campaign {
	return &models.Campaign{
		ID:                id,
		UserPrompt:        "테스트 캠페인",
		SendAt:            sendAt,
		TotalCount:        3,
		SelectedVariantID: models.VariantBenefit,
		Status:            models.CampaignStatusScheduled,
	}
}

func countSent(results []SweepResult) int {
	sent := 0
	for _, r := range results {
		if r.Sent {
			sent++
		}
	}
	return sent
}

func TestSweep_SendsDueCampaign(t *testing.T) {
	due := scheduledCampaign(1, testNow.Add(-5*time.Minute))
	future := scheduledCampaign(2, testNow.Add(time.Hour))
	repo := newFakeRepo(due, future)
	pub := &fakePublisher{}
	sched := NewWithClock(repo, pub, func() time.Time { return testNow })

	results, err := sched.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result but got %d", len(results))
	}
	if !results[0].Sent || results[0].Err != nil {
		t.Errorf("Expected a successful send but got %+v", results[0])
	}
	if due.Status != models.CampaignStatusSent {
		t.Errorf("Expected campaign sent but status is %s", due.Status)
	}
	if due.SentAt == nil || !due.SentAt.Equal(testNow) {
		t.Errorf("Expected sent_at %v but got %v", testNow, due.SentAt)
	}
	if future.Status != models.CampaignStatusScheduled {
		t.Errorf("Expected future campaign untouched but status is %s", future.Status)
	}
	if len(pub.published) != 1 || pub.published[0] != 1 {
		t.Errorf("Expected dispatch published for campaign 1 but got %v", pub.published)
	}
}

func TestSweep_RepeatSendsNothingNew(t *testing.T) {
	due := scheduledCampaign(1, testNow.Add(-time.Minute))
	repo := newFakeRepo(due)
	sched := NewWithClock(repo, &fakePublisher{}, func() time.Time { return testNow })

	first, err := sched.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if countSent(first) != 1 {
		t.Fatalf("Expected first sweep to send 1 but sent %d", countSent(first))
	}

	second, err := sched.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if countSent(second) != 0 {
		t.Errorf("Expected second sweep to send nothing but sent %d", countSent(second))
	}
}

func TestSweep_LostRaceIsNotAnError(t *testing.T) {
	due := scheduledCampaign(1, testNow.Add(-time.Minute))
	repo := newFakeRepo(due)
	// a concurrent cancel lands between GetDue and the transition
	due.Status = models.CampaignStatusCanceled
	sched := NewWithClock(repo, nil, func() time.Time { return testNow })

	results, err := sched.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("Expected no due campaigns but got %d", len(results))
	}
}

func TestSweep_PublishFailureDoesNotBlockSend(t *testing.T) {
	due := scheduledCampaign(1, testNow.Add(-time.Minute))
	repo := newFakeRepo(due)
	pub := &fakePublisher{err: errors.New("broker unavailable")}
	sched := NewWithClock(repo, pub, func() time.Time { return testNow })

	results, err := sched.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if countSent(results) != 1 {
		t.Errorf("Expected campaign sent despite publish failure but sent %d", countSent(results))
	}
	if due.Status != models.CampaignStatusSent {
		t.Errorf("Expected campaign sent but status is %s", due.Status)
	}
}

func TestSweep_NilPublisher(t *testing.T) {
	due := scheduledCampaign(1, testNow.Add(-time.Minute))
	repo := newFakeRepo(due)
	sched := NewWithClock(repo, nil, func() time.Time { return testNow })

	results, err := sched.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if countSent(results) != 1 {
		t.Errorf("Expected campaign sent without a publisher but sent %d", countSent(results))
	}
}

func TestSweep_GetDueFailurePropagates(t *testing.T) {
	repo := newFakeRepo()
	repo.getDueErr = errors.New("connection refused")
	sched := NewWithClock(repo, nil, func() time.Time { return testNow })

	_, err := sched.Sweep(context.Background())
	if err == nil {
		t.Fatal("Expected an error but got none")
	}
}

func TestPendingCount(t *testing.T) {
	repo := newFakeRepo(
		scheduledCampaign(1, testNow.Add(time.Hour)),
		scheduledCampaign(2, testNow.Add(2*time.Hour)),
	)
	sent := scheduledCampaign(3, testNow.Add(-time.Hour))
	sent.Status = models.CampaignStatusSent
	repo.campaigns[3] = sent

	sched := NewWithClock(repo, nil, func() time.Time { return testNow })
	count, err := sched.PendingCount(context.Background())
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 pending campaigns but got %d", count)
	}
}

func TestScheduledToday(t *testing.T) {
	today := scheduledCampaign(1, time.Date(2026, 2, 10, 18, 0, 0, 0, time.Local))
	tomorrow := scheduledCampaign(2, time.Date(2026, 2, 11, 10, 0, 0, 0, time.Local))
	repo := newFakeRepo(today, tomorrow)

	sched := NewWithClock(repo, nil, func() time.Time { return testNow })
	todays, err := sched.ScheduledToday(context.Background())
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if len(todays) != 1 || todays[0].ID != 1 {
		t.Errorf("Expected only campaign 1 scheduled today but got %v", todays)
	}
}
