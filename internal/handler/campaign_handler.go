package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/hoyun5295-ctrl/targetup/internal/models"
	"github.com/hoyun5295-ctrl/targetup/internal/service"

	"github.com/gorilla/mux"
)

// CampaignHandler handles HTTP requests for campaign operations
type CampaignHandler struct {
	campaignService  *service.CampaignService
	targetingService *service.TargetingService
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaignService *service.CampaignService, targetingService *service.TargetingService) *CampaignHandler {
	return &CampaignHandler{
		campaignService:  campaignService,
		targetingService: targetingService,
	}
}

// SaveCampaignRequest represents the request to confirm a previewed campaign.
// The candidate set is re-resolved from the filter on the server, so the
// client never ships customer IDs back.
type SaveCampaignRequest struct {
	Prompt            string                  `json:"prompt"`
	SendAt            time.Time               `json:"send_at"`
	Filter            *models.TargetingFilter `json:"filter"`
	SelectedVariantID string                  `json:"selected_variant_id"`
	SMSText           string                  `json:"sms_text"`
	LMSText           string                  `json:"lms_text"`
}

// TransitionResponse reports the outcome of a cancel or send-now request
type TransitionResponse struct {
	ID     int                   `json:"id"`
	Status models.CampaignStatus `json:"status"`
}

// Create handles POST /campaigns - persists a confirmed campaign
func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req SaveCampaignRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is empty")
			return
		}
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return
	}

	if req.Filter == nil {
		WriteValidationError(w, "filter is required")
		return
	}

	customerIDs, err := h.targetingService.CustomerIDsFor(r.Context(), req.Filter)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	campaign, err := h.campaignService.Save(r.Context(), &service.SaveCampaignRequest{
		UserPrompt:        req.Prompt,
		SendAt:            req.SendAt,
		Filter:            req.Filter,
		TotalCount:        len(customerIDs),
		CustomerIDs:       customerIDs,
		SelectedVariantID: req.SelectedVariantID,
		SMSText:           req.SMSText,
		LMSText:           req.LMSText,
	})
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteCreated(w, campaign)
}

// List handles GET /campaigns - lists campaigns, newest send time first
func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 50
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if limit > 200 {
		limit = 200
	}

	var status *models.CampaignStatus
	if statusStr := query.Get("status"); statusStr != "" {
		s := models.CampaignStatus(statusStr)
		if !models.IsValidStatus(s) {
			WriteValidationError(w, "invalid status: must be one of scheduled, sent, canceled")
			return
		}
		status = &s
	}

	campaigns, err := h.campaignService.List(r.Context(), status, limit)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, map[string]interface{}{
		"campaigns": campaigns,
		"count":     len(campaigns),
	})
}

// GetByID handles GET /campaigns/{id}
func (h *CampaignHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}

	campaign, err := h.campaignService.Get(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, campaign)
}

// Cancel handles POST /campaigns/{id}/cancel - scheduled -> canceled
func (h *CampaignHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}

	transitioned, err := h.campaignService.Cancel(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err)
		return
	}
	if !transitioned {
		WriteConflictError(w, "campaign is no longer scheduled")
		return
	}

	WriteOK(w, TransitionResponse{ID: id, Status: models.CampaignStatusCanceled})
}

// Send handles POST /campaigns/{id}/send - immediate scheduled -> sent
func (h *CampaignHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}

	transitioned, err := h.campaignService.SendNow(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err)
		return
	}
	if !transitioned {
		WriteConflictError(w, "campaign is no longer scheduled")
		return
	}

	WriteOK(w, TransitionResponse{ID: id, Status: models.CampaignStatusSent})
}

// Delete handles DELETE /campaigns/{id} - removes the row and its
// target-list side file
func (h *CampaignHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}

	deleted, err := h.campaignService.Delete(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err)
		return
	}
	if !deleted {
		WriteNotFoundError(w, "campaign", id)
		return
	}

	WriteNoContent(w)
}

// Targets handles GET /campaigns/{id}/targets - downloads the target-list CSV
func (h *CampaignHandler) Targets(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}

	path, err := h.campaignService.TargetsPath(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err)
		return
	}
	if path == "" {
		WriteError(w, http.StatusNotFound, "RESOURCE_NOT_FOUND",
			fmt.Sprintf("campaign %d has no targets file", id))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=\"targets.csv\"")
	http.ServeFile(w, r, path)
}

// Stats handles GET /campaigns/stats - per-status counts
func (h *CampaignHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.campaignService.Stats(r.Context())
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, stats)
}

// campaignID extracts and validates the {id} path variable. On failure it
// writes the error response and returns ok=false.
func campaignID(w http.ResponseWriter, r *http.Request) (int, bool) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		WriteValidationError(w, "invalid campaign ID format")
		return 0, false
	}
	if id <= 0 {
		WriteValidationError(w, "campaign ID must be greater than 0")
		return 0, false
	}
	return id, true
}
