package handler

import (
	"net/http"

	"github.com/hoyun5295-ctrl/targetup/internal/scheduler"
)

// SweepHandler exposes a manual sweep trigger for operators. The worker
// runs the same sweep on its own cadence; triggering one here is always
// safe because transitions are compare-and-set.
type SweepHandler struct {
	scheduler *scheduler.Scheduler
}

// NewSweepHandler creates a new sweep handler
func NewSweepHandler(sched *scheduler.Scheduler) *SweepHandler {
	return &SweepHandler{scheduler: sched}
}

// SweepResponse summarizes one sweep invocation
type SweepResponse struct {
	Examined int `json:"examined"`
	Sent     int `json:"sent"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Sweep handles POST /sweep - processes all currently due campaigns
func (h *SweepHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	results, err := h.scheduler.Sweep(r.Context())
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	resp := SweepResponse{Examined: len(results)}
	for _, result := range results {
		switch {
		case result.Err != nil:
			resp.Failed++
		case result.Sent:
			resp.Sent++
		default:
			resp.Skipped++
		}
	}

	WriteOK(w, resp)
}
