package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/hoyun5295-ctrl/targetup/internal/engine"
	"github.com/hoyun5295-ctrl/targetup/internal/models"
	"github.com/hoyun5295-ctrl/targetup/internal/parser"
	"github.com/hoyun5295-ctrl/targetup/internal/population"
	"github.com/hoyun5295-ctrl/targetup/internal/recommend"
	"github.com/hoyun5295-ctrl/targetup/internal/repository"
	"github.com/hoyun5295-ctrl/targetup/internal/service"
)

var testNow = time.Date(2026, 2, 9, 14, 0, 0, 0, time.Local)

type memCampaignRepo struct {
	campaigns map[int]*models.Campaign
	nextID    int
}

func newMemRepo() *memCampaignRepo {
	return &memCampaignRepo{campaigns: map[int]*models.Campaign{}, nextID: 1}
}

func (m *memCampaignRepo) Create(ctx context.Context, campaign *models.Campaign) error {
	campaign.ID = m.nextID
	m.nextID++
	m.campaigns[campaign.ID] = campaign
	return nil
}

func (m *memCampaignRepo) GetByID(ctx context.Context, id int) (*models.Campaign, error) {
	c, ok := m.campaigns[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (m *memCampaignRepo) List(ctx context.Context, status *models.CampaignStatus, limit int) ([]*models.Campaign, error) {
	result := []*models.Campaign{}
	for _, c := range m.campaigns {
		if status == nil || c.Status == *status {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *memCampaignRepo) GetDue(ctx context.Context, now time.Time) ([]*models.Campaign, error) {
	return nil, nil
}

func (m *memCampaignRepo) UpdateStatus(ctx context.Context, id int, status models.CampaignStatus, sentAt *time.Time) error {
	c, ok := m.campaigns[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.Status = status
	return nil
}

func (m *memCampaignRepo) TransitionFromScheduled(ctx context.Context, id int, to models.CampaignStatus, sentAt *time.Time) (bool, error) {
	c, ok := m.campaigns[id]
	if !ok || c.Status != models.CampaignStatusScheduled {
		return false, nil
	}
	c.Status = to
	c.SentAt = sentAt
	return true, nil
}

func (m *memCampaignRepo) Delete(ctx context.Context, id int) (bool, error) {
	_, ok := m.campaigns[id]
	delete(m.campaigns, id)
	return ok, nil
}

func (m *memCampaignRepo) Stats(ctx context.Context) (*models.CampaignStats, error) {
	stats := &models.CampaignStats{}
	for _, c := range m.campaigns {
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

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()

	customers := []models.Customer{
		{ID: "C001", Gender: models.GenderFemale, BirthYear: 2000, Region: "서울", SkinType: "건성"},
		{ID: "C002", Gender: models.GenderMale, BirthYear: 1985, Region: "부산", SkinType: "지성"},
	}
	pop := population.NewStoreFromData(customers, map[string]map[string]struct{}{})

	clock := func() time.Time { return testNow }
	targetingService := service.NewTargetingService(
		pop,
		parser.New(),
		engine.NewWithClock(pop, clock),
		recommend.New(recommend.WithClock(clock)),
		nil, nil, nil,
	)
	campaignService := service.NewCampaignServiceWithClock(newMemRepo(), t.TempDir(), nil, clock)

	campaignHandler := NewCampaignHandler(campaignService, targetingService)

	router := mux.NewRouter()
	router.HandleFunc("/campaigns/stats", campaignHandler.Stats).Methods("GET")
	router.HandleFunc("/campaigns", campaignHandler.Create).Methods("POST")
	router.HandleFunc("/campaigns", campaignHandler.List).Methods("GET")
	router.HandleFunc("/campaigns/{id}", campaignHandler.GetByID).Methods("GET")
	router.HandleFunc("/campaigns/{id}", campaignHandler.Delete).Methods("DELETE")
	router.HandleFunc("/campaigns/{id}/cancel", campaignHandler.Cancel).Methods("POST")
	router.HandleFunc("/campaigns/{id}/send", campaignHandler.Send).Methods("POST")
	router.HandleFunc("/campaigns/{id}/targets", campaignHandler.Targets).Methods("GET")
	return router
}

func doRequest(t *testing.T, router *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func saveBody() *SaveCampaignRequest {
	filter := models.NewTargetingFilter()
	filter.Gender = models.GenderFemale
	filter.Regions = []string{"서울"}
	filter.AsOfDate = models.NewDate(2026, 2, 9)
	return &SaveCampaignRequest{
		Prompt:            "서울 여성 고객에게 발송 예약",
		SendAt:            time.Date(2026, 2, 10, 10, 0, 0, 0, time.Local),
		Filter:            filter,
		SelectedVariantID: models.VariantBenefit,
		SMSText:           "(광고) 문자",
		LMSText:           "(광고) 장문",
	}
}

func createCampaign(t *testing.T, router *mux.Router) *models.Campaign {
	t.Helper()

	rec := doRequest(t, router, "POST", "/campaigns", saveBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201 but got %d: %s", rec.Code, rec.Body.String())
	}
	var campaign models.Campaign
	if err := json.Unmarshal(rec.Body.Bytes(), &campaign); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return &campaign
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	return resp.Error.Code
}

func TestCampaignAPI_Create(t *testing.T) {
	router := newTestRouter(t)

	campaign := createCampaign(t, router)
	if campaign.ID != 1 {
		t.Errorf("Expected id 1 but got %d", campaign.ID)
	}
	if campaign.Status != models.CampaignStatusScheduled {
		t.Errorf("Expected scheduled status but got %s", campaign.Status)
	}
	// the candidate set is resolved server-side from the filter
	if campaign.TotalCount != 1 {
		t.Errorf("Expected 1 target but got %d", campaign.TotalCount)
	}
}

func TestCampaignAPI_Create_RequiresFilter(t *testing.T) {
	router := newTestRouter(t)

	body := saveBody()
	body.Filter = nil
	rec := doRequest(t, router, "POST", "/campaigns", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 but got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "VALIDATION_ERROR" {
		t.Errorf("Expected VALIDATION_ERROR but got %s", code)
	}
}

func TestCampaignAPI_CancelTwiceConflicts(t *testing.T) {
	router := newTestRouter(t)
	campaign := createCampaign(t, router)

	rec := doRequest(t, router, "POST", fmt.Sprintf("/campaigns/%d/cancel", campaign.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 but got %d: %s", rec.Code, rec.Body.String())
	}
	var resp TransitionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != models.CampaignStatusCanceled {
		t.Errorf("Expected canceled but got %s", resp.Status)
	}

	rec = doRequest(t, router, "POST", fmt.Sprintf("/campaigns/%d/cancel", campaign.ID), nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("Expected 409 but got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "CONFLICT" {
		t.Errorf("Expected CONFLICT but got %s", code)
	}
}

func TestCampaignAPI_SendThenCancelConflicts(t *testing.T) {
	router := newTestRouter(t)
	campaign := createCampaign(t, router)

	rec := doRequest(t, router, "POST", fmt.Sprintf("/campaigns/%d/send", campaign.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 but got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, router, "POST", fmt.Sprintf("/campaigns/%d/cancel", campaign.ID), nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 but got %d", rec.Code)
	}
}

func TestCampaignAPI_GetByID_NotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, "GET", "/campaigns/42", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 but got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "RESOURCE_NOT_FOUND" {
		t.Errorf("Expected RESOURCE_NOT_FOUND but got %s", code)
	}
}

func TestCampaignAPI_InvalidID(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, "GET", "/campaigns/abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 but got %d", rec.Code)
	}
	rec = doRequest(t, router, "GET", "/campaigns/0", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 but got %d", rec.Code)
	}
}

func TestCampaignAPI_TargetsDownload(t *testing.T) {
	router := newTestRouter(t)
	campaign := createCampaign(t, router)

	rec := doRequest(t, router, "GET", fmt.Sprintf("/campaigns/%d/targets", campaign.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 but got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Expected text/csv but got %s", ct)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "customer_id") {
		t.Errorf("Expected CSV with customer_id header but got %q", body)
	}
}

func TestCampaignAPI_DeleteThenNotFound(t *testing.T) {
	router := newTestRouter(t)
	campaign := createCampaign(t, router)

	rec := doRequest(t, router, "DELETE", fmt.Sprintf("/campaigns/%d", campaign.ID), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204 but got %d", rec.Code)
	}

	rec = doRequest(t, router, "DELETE", fmt.Sprintf("/campaigns/%d", campaign.ID), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 but got %d", rec.Code)
	}
}

func TestCampaignAPI_ListAndStats(t *testing.T) {
	router := newTestRouter(t)
	createCampaign(t, router)
	second := createCampaign(t, router)

	doRequest(t, router, "POST", fmt.Sprintf("/campaigns/%d/cancel", second.ID), nil)

	rec := doRequest(t, router, "GET", "/campaigns?status=scheduled", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 but got %d", rec.Code)
	}
	var listResp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if listResp.Count != 1 {
		t.Errorf("Expected 1 scheduled campaign but got %d", listResp.Count)
	}

	rec = doRequest(t, router, "GET", "/campaigns/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 but got %d", rec.Code)
	}
	var stats models.CampaignStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if stats.Scheduled != 1 || stats.Canceled != 1 || stats.Total != 2 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestCampaignAPI_ListRejectsUnknownStatus(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, "GET", "/campaigns?status=archived", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 but got %d", rec.Code)
	}
}
