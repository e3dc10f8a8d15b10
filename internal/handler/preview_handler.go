package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/hoyun5295-ctrl/targetup/internal/engine"
	"github.com/hoyun5295-ctrl/targetup/internal/models"
	"github.com/hoyun5295-ctrl/targetup/internal/service"
)

// PreviewHandler handles targeting preview requests
type PreviewHandler struct {
	targetingService *service.TargetingService
}

// NewPreviewHandler creates a new preview handler
func NewPreviewHandler(targetingService *service.TargetingService) *PreviewHandler {
	return &PreviewHandler{
		targetingService: targetingService,
	}
}

// PreviewRequest represents the targeting preview request
type PreviewRequest struct {
	Prompt string `json:"prompt"`
	// ReferenceDate anchors relative expressions like 내일. Optional,
	// RFC 3339; empty means the current time.
	ReferenceDate string `json:"reference_date,omitempty"`
}

// PreviewResponse bundles the resolved targeting with the recommended
// message variants so the client gets both in one round trip
type PreviewResponse struct {
	Filter      *models.TargetingFilter `json:"filter"`
	SendAt      time.Time               `json:"send_at"`
	TotalCount  int                     `json:"total_count"`
	Sample      []engine.SampleRow      `json:"sample"`
	Tags        []service.Tag           `json:"tags"`
	ParseMode   string                  `json:"parse_mode"`
	Variants    []models.MessageVariant `json:"variants"`
	MessageMode string                  `json:"message_mode"`
}

// Preview handles POST /preview - parses the prompt, filters the
// population and recommends the three message variants
func (h *PreviewHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is empty")
			return
		}
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return
	}

	var referenceDate time.Time
	if req.ReferenceDate != "" {
		parsed, err := time.Parse(time.RFC3339, req.ReferenceDate)
		if err != nil {
			WriteValidationError(w, "reference_date must be RFC 3339")
			return
		}
		referenceDate = parsed
	}

	result, err := h.targetingService.Execute(r.Context(), req.Prompt, referenceDate)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	variants, messageMode, err := h.targetingService.RecommendMessages(
		r.Context(), req.Prompt, result.Filter, result.SendAt, result.Extras)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteOK(w, PreviewResponse{
		Filter:      result.Filter,
		SendAt:      result.SendAt,
		TotalCount:  result.TotalCount,
		Sample:      result.Sample,
		Tags:        result.Tags,
		ParseMode:   result.Mode,
		Variants:    variants,
		MessageMode: messageMode,
	})
}

// Status handles GET /status - reports engine mode and data readiness
func (h *PreviewHandler) Status(w http.ResponseWriter, r *http.Request) {
	WriteOK(w, h.targetingService.Status())
}

// Reload handles POST /reload - re-reads the customer population
func (h *PreviewHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.targetingService.Reload(r.Context()); err != nil {
		HandleServiceError(w, err)
		return
	}
	WriteOK(w, h.targetingService.Status())
}
