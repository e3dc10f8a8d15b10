package service

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hoyun5295-ctrl/targetup/internal/models"
	"github.com/hoyun5295-ctrl/targetup/internal/repository"
)

var testNow = time.Date(2026, 2, 9, 14, 30, 0, 0, time.Local)

type stubCampaignRepo struct {
	campaigns map[int]*models.Campaign
	nextID    int
	createErr error
}

func newStubRepo() *stubCampaignRepo {
	return &stubCampaignRepo{campaigns: map[int]*models.Campaign{}, nextID: 1}
}

func (s *stubCampaignRepo) Create(ctx context.Context, campaign *models.Campaign) error {
	if s.createErr != nil {
		return s.createErr
	}
	campaign.ID = s.nextID
	s.nextID++
	s.campaigns[campaign.ID] = campaign
	return nil
}

func (s *stubCampaignRepo) GetByID(ctx context.Context, id int) (*models.Campaign, error) {
	c, ok := s.campaigns[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (s *stubCampaignRepo) List(ctx context.Context, status *models.CampaignStatus, limit int) ([]*models.Campaign, error) {
	result := []*models.Campaign{}
	for _, c := range s.campaigns {
		if status == nil || c.Status == *status {
			result = append(result, c)
		}
	}
	return result, nil
}

func (s *stubCampaignRepo) GetDue(ctx context.Context, now time.Time) ([]*models.Campaign, error) {
	return nil, nil
}

func (s *stubCampaignRepo) UpdateStatus(ctx context.Context, id int, status models.CampaignStatus, sentAt *time.Time) error {
	c, ok := s.campaigns[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.Status = status
	return nil
}

func (s *stubCampaignRepo) TransitionFromScheduled(ctx context.Context, id int, to models.CampaignStatus, sentAt *time.Time) (bool, error) {
	c, ok := s.campaigns[id]
	if !ok || c.Status != models.CampaignStatusScheduled {
		return false, nil
	}
	c.Status = to
	c.SentAt = sentAt
	return true, nil
}

func (s *stubCampaignRepo) Delete(ctx context.Context, id int) (bool, error) {
	_, ok := s.campaigns[id]
	delete(s.campaigns, id)
	return ok, nil
}

func (s *stubCampaignRepo) Stats(ctx context.Context) (*models.CampaignStats, error) {
	return &models.CampaignStats{Total: len(s.campaigns)}, nil
}

func validSaveRequest() *SaveCampaignRequest {
	filter := models.NewTargetingFilter()
	filter.AsOfDate = models.NewDate(2026, 2, 9)
	return &SaveCampaignRequest{
		UserPrompt:        "서울 20대 여성에게 발송 예약",
		SendAt:            time.Date(2026, 2, 10, 10, 0, 0, 0, time.Local),
		Filter:            filter,
		TotalCount:        2,
		CustomerIDs:       []string{"C0000001", "C0000002"},
		SelectedVariantID: models.VariantBenefit,
		SMSText:           "문자",
		LMSText:           "장문",
	}
}

func newTestService(t *testing.T, repo repository.CampaignRepository) *CampaignService {
	t.Helper()
	return NewCampaignServiceWithClock(repo, t.TempDir(), nil, func() time.Time { return testNow })
}

func TestCampaignService_Save(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)

	campaign, err := svc.Save(context.Background(), validSaveRequest())
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if campaign.ID != 1 {
		t.Errorf("Expected id 1 but got %d", campaign.ID)
	}
	if campaign.Status != models.CampaignStatusScheduled {
		t.Errorf("Expected scheduled status but got %s", campaign.Status)
	}
	if campaign.AsOfDate.String() != "2026-02-09" {
		t.Errorf("Expected as-of 2026-02-09 but got %s", campaign.AsOfDate)
	}
	if campaign.TargetsPath == nil {
		t.Fatal("Expected a targets path to be recorded")
	}

	f, err := os.Open(*campaign.TargetsPath)
	if err != nil {
		t.Fatalf("Failed to open targets file: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read targets file: %v", err)
	}
	want := [][]string{{"customer_id"}, {"C0000001"}, {"C0000002"}}
	if len(records) != len(want) {
		t.Fatalf("Expected %d records but got %d", len(want), len(records))
	}
	for i := range want {
		if records[i][0] != want[i][0] {
			t.Errorf("Record %d: expected %q but got %q", i, want[i][0], records[i][0])
		}
	}
}

func TestCampaignService_Save_RejectsMissingFilter(t *testing.T) {
	svc := newTestService(t, newStubRepo())

	req := validSaveRequest()
	req.Filter = nil
	_, err := svc.Save(context.Background(), req)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("Expected ValidationError but got: %v", err)
	}
}

func TestCampaignService_Save_RejectsInvalidVariant(t *testing.T) {
	svc := newTestService(t, newStubRepo())

	req := validSaveRequest()
	req.SelectedVariantID = "D"
	_, err := svc.Save(context.Background(), req)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("Expected ValidationError but got: %v", err)
	}
}

func TestCampaignService_Save_RemovesSideFileOnCreateFailure(t *testing.T) {
	repo := newStubRepo()
	repo.createErr = errors.New("connection refused")
	dir := t.TempDir()
	svc := NewCampaignServiceWithClock(repo, dir, nil, func() time.Time { return testNow })

	if _, err := svc.Save(context.Background(), validSaveRequest()); err == nil {
		t.Fatal("Expected an error but got none")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read targets dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no orphaned side files but found %d", len(entries))
	}
}

func TestCampaignService_Cancel(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)

	campaign, err := svc.Save(context.Background(), validSaveRequest())
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}

	won, err := svc.Cancel(context.Background(), campaign.ID)
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if !won {
		t.Error("Expected cancel to succeed on a scheduled campaign")
	}
	if campaign.Status != models.CampaignStatusCanceled {
		t.Errorf("Expected canceled status but got %s", campaign.Status)
	}
}

func TestCampaignService_Cancel_SentCampaignIsNoOp(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)

	campaign, err := svc.Save(context.Background(), validSaveRequest())
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	campaign.Status = models.CampaignStatusSent

	won, err := svc.Cancel(context.Background(), campaign.ID)
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if won {
		t.Error("Expected cancel of a sent campaign to report false")
	}
	if campaign.Status != models.CampaignStatusSent {
		t.Errorf("Expected status to stay sent but got %s", campaign.Status)
	}
}

func TestCampaignService_Cancel_NotFound(t *testing.T) {
	svc := newTestService(t, newStubRepo())

	_, err := svc.Cancel(context.Background(), 42)
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("Expected NotFoundError but got: %v", err)
	}
}

func TestCampaignService_SendNow(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)

	campaign, err := svc.Save(context.Background(), validSaveRequest())
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}

	won, err := svc.SendNow(context.Background(), campaign.ID)
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if !won {
		t.Error("Expected immediate send to succeed on a scheduled campaign")
	}
	if campaign.Status != models.CampaignStatusSent {
		t.Errorf("Expected sent status but got %s", campaign.Status)
	}
	if campaign.SentAt == nil || !campaign.SentAt.Equal(testNow) {
		t.Errorf("Expected sent_at %v but got %v", testNow, campaign.SentAt)
	}
}

func TestCampaignService_Delete_RemovesSideFile(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)

	campaign, err := svc.Save(context.Background(), validSaveRequest())
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	path := *campaign.TargetsPath

	deleted, err := svc.Delete(context.Background(), campaign.ID)
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if !deleted {
		t.Error("Expected delete to report the campaign existed")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected side file %s to be removed", filepath.Base(path))
	}
	if _, err := svc.Get(context.Background(), campaign.ID); err == nil {
		t.Error("Expected campaign to be gone after delete")
	}
}

func TestCampaignService_Delete_MissingCampaign(t *testing.T) {
	svc := newTestService(t, newStubRepo())

	deleted, err := svc.Delete(context.Background(), 42)
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if deleted {
		t.Error("Expected delete of a missing campaign to report false")
	}
}

func TestCampaignService_TargetsPath(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)

	campaign, err := svc.Save(context.Background(), validSaveRequest())
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}

	path, err := svc.TargetsPath(context.Background(), campaign.ID)
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if path != *campaign.TargetsPath {
		t.Errorf("Expected path %s but got %s", *campaign.TargetsPath, path)
	}

	campaign.TargetsPath = nil
	path, err = svc.TargetsPath(context.Background(), campaign.ID)
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if path != "" {
		t.Errorf("Expected empty path but got %s", path)
	}
}

func TestCampaignService_List_RejectsInvalidStatus(t *testing.T) {
	svc := newTestService(t, newStubRepo())

	bad := models.CampaignStatus("archived")
	_, err := svc.List(context.Background(), &bad, 10)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("Expected ValidationError but got: %v", err)
	}
}
