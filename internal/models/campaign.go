package models

import (
	"fmt"
	"time"
)

// CampaignStatus represents valid campaign statuses. Scheduled is the only
// initial state; sent and canceled are terminal and no transition leaves
// them.
type CampaignStatus string

const (
	CampaignStatusScheduled CampaignStatus = "scheduled"
	CampaignStatusSent      CampaignStatus = "sent"
	CampaignStatusCanceled  CampaignStatus = "canceled"
)

// IsValidStatus reports whether s is a known campaign status
func IsValidStatus(s CampaignStatus) bool {
	return s == CampaignStatusScheduled || s == CampaignStatusSent || s == CampaignStatusCanceled
}

// Campaign is a persisted targeting campaign and its lifecycle state
type Campaign struct {
	ID                int            `json:"id" db:"id"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	UserPrompt        string         `json:"user_prompt" db:"user_prompt"`
	SendAt            time.Time      `json:"send_at" db:"send_at"`
	AsOfDate          Date           `json:"as_of_date" db:"as_of_date"`
	FilterJSON        string         `json:"filter_json" db:"filter_json"`
	TotalCount        int            `json:"total_count" db:"total_count"`
	TargetsPath       *string        `json:"targets_path,omitempty" db:"targets_path"`
	SelectedVariantID string         `json:"selected_variant_id" db:"selected_variant_id"`
	SMSText           string         `json:"sms_text" db:"sms_text"`
	LMSText           string         `json:"lms_text" db:"lms_text"`
	Status            CampaignStatus `json:"status" db:"status"`
	SentAt            *time.Time     `json:"sent_at,omitempty" db:"sent_at"`
}

// Filter deserializes the persisted targeting filter
func (c *Campaign) Filter() (*TargetingFilter, error) {
	return FilterFromJSON(c.FilterJSON)
}

// IsTerminal reports whether the campaign has reached a terminal state
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignStatusSent || c.Status == CampaignStatusCanceled
}

// IsDue reports whether a scheduled campaign's send time has passed
func (c *Campaign) IsDue(now time.Time) bool {
	return c.Status == CampaignStatusScheduled && !c.SendAt.After(now)
}

// Validate checks the fields required before persisting
func (c *Campaign) Validate() error {
	if c.UserPrompt == "" {
		return fmt.Errorf("user prompt is required")
	}
	if c.SendAt.IsZero() {
		return fmt.Errorf("send time is required")
	}
	if !IsValidStatus(c.Status) {
		return fmt.Errorf("invalid status: %q", c.Status)
	}
	switch c.SelectedVariantID {
	case VariantBenefit, VariantUrgency, VariantWinBack:
	default:
		return fmt.Errorf("invalid variant id: %q", c.SelectedVariantID)
	}
	return nil
}

// CampaignStats counts campaigns per status
type CampaignStats struct {
	Scheduled int `json:"scheduled"`
	Sent      int `json:"sent"`
	Canceled  int `json:"canceled"`
	Total     int `json:"total"`
}
