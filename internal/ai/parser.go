package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hoyun5295-ctrl/targetup/internal/models"
)

// Extras carries generation hints the LLM extracts beyond the filter
type Extras struct {
	ProductName  string `json:"product_name"`
	DiscountRate *int   `json:"discount_rate,omitempty"`
	EventName    string `json:"event_name"`
	IsOnePlusOne bool   `json:"is_one_plus_one"`
}

// PromptParser is the optional NLU collaborator: it may replace the rule
// parser when available, and the caller must fall back to the rule parser
// on any error.
type PromptParser interface {
	Available() bool
	TryParse(ctx context.Context, prompt string, referenceDate time.Time) (*models.TargetingFilter, time.Time, *Extras, error)
}

// LLMParser parses prompts via the Messages API
type LLMParser struct {
	client *Client
}

// NewLLMParser creates the LLM-backed prompt parser
func NewLLMParser(client *Client) *LLMParser {
	return &LLMParser{client: client}
}

// Available reports whether the collaborator can be used
func (p *LLMParser) Available() bool {
	return p.client.Available()
}

// parsedPrompt mirrors the JSON contract given to the model
type parsedPrompt struct {
	SendAt                   string   `json:"send_at"`
	Gender                   string   `json:"gender"`
	AgeMin                   *int     `json:"age_min"`
	AgeMax                   *int     `json:"age_max"`
	Regions                  []string `json:"regions"`
	SkinTypes                []string `json:"skin_types"`
	PurchasedWithinMonths    *int     `json:"purchased_within_months"`
	NotPurchasedWithinMonths *int     `json:"not_purchased_within_months"`
	Categories               []string `json:"categories"`
	CategoryMode             string   `json:"category_mode"`
	ProductName              string   `json:"product_name"`
	DiscountRate             *int     `json:"discount_rate"`
	EventName                string   `json:"event_name"`
	IsOnePlusOne             bool     `json:"is_one_plus_one"`
}

// TryParse asks the model for a structured filter. The result is validated
// against the fixed taxonomies; anything outside them is an error so the
// caller falls back to the rule parser instead of targeting everyone.
func (p *LLMParser) TryParse(ctx context.Context, prompt string, referenceDate time.Time) (*models.TargetingFilter, time.Time, *Extras, error) {
	if !p.Available() {
		return nil, time.Time{}, nil, fmt.Errorf("llm parser not available")
	}
	if referenceDate.IsZero() {
		referenceDate = time.Now()
	}

	var parsed parsedPrompt
	user := fmt.Sprintf("Reference date: %s\n\nPrompt: %s",
		referenceDate.Format("2006-01-02"), prompt)
	if err := p.client.CompleteJSON(ctx, parserSystemPrompt(), user, &parsed); err != nil {
		return nil, time.Time{}, nil, err
	}

	sendAt, err := resolveSendAt(parsed.SendAt, referenceDate)
	if err != nil {
		return nil, time.Time{}, nil, err
	}

	filter := models.NewTargetingFilter()
	filter.RawPrompt = prompt
	filter.AsOfDate = models.DateOf(sendAt).AddDays(-1)
	filter.Gender = models.Gender(parsed.Gender)
	filter.AgeMin = parsed.AgeMin
	filter.AgeMax = parsed.AgeMax
	if parsed.Regions != nil {
		filter.Regions = parsed.Regions
	}
	if parsed.SkinTypes != nil {
		filter.SkinTypes = parsed.SkinTypes
	}
	filter.PurchasedWithinMonths = parsed.PurchasedWithinMonths
	filter.NotPurchasedWithinMonths = parsed.NotPurchasedWithinMonths
	if parsed.Categories != nil {
		filter.Categories = parsed.Categories
	}
	// directly-constructed filters keep the structural default (ANY) when
	// the model supplies no mode
	if parsed.CategoryMode != "" {
		filter.CategoryMode = models.CategoryMode(parsed.CategoryMode)
	}

	if err := filter.Validate(); err != nil {
		return nil, time.Time{}, nil, fmt.Errorf("llm produced invalid filter: %w", err)
	}

	extras := &Extras{
		ProductName:  parsed.ProductName,
		DiscountRate: parsed.DiscountRate,
		EventName:    parsed.EventName,
		IsOnePlusOne: parsed.IsOnePlusOne,
	}

	return filter, sendAt, extras, nil
}

func resolveSendAt(raw string, referenceDate time.Time) (time.Time, error) {
	if raw == "" || raw == "null" {
		tomorrow := models.DateOf(referenceDate).AddDays(1).Time()
		return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 10, 0, 0, 0, time.Local), nil
	}
	sendAt, err := time.ParseInLocation("2006-01-02T15:04:05", raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed send_at %q: %w", raw, err)
	}
	return sendAt, nil
}

func parserSystemPrompt() string {
	return strings.TrimSpace(fmt.Sprintf(`
You are a marketing campaign targeting expert. Extract targeting conditions
from the user's Korean prompt into JSON with these fields:

- send_at: send timestamp, ISO form "2026-02-10T10:00:00", or null
- gender: "F", "M", or null
- age_min, age_max: integers ("20대" means 20 and 29), or null
- regions: array drawn only from: %s
- skin_types: array drawn only from: %s
- purchased_within_months: integer for "최근 N개월 구매", or null
- not_purchased_within_months: integer for "최근 N개월 미구매", or null
- categories: array drawn only from: %s
- category_mode: "ALL" for intersection cues (+, 그리고, 모두), "ANY" for
  union cues (또는, 하나라도)
- product_name: mentioned product name, or ""
- discount_rate: integer percentage, or null
- event_name: event name, or ""
- is_one_plus_one: true when the prompt offers 1+1`,
		strings.Join(models.Regions, ", "),
		strings.Join(models.SkinTypes, ", "),
		strings.Join(models.Categories, ", ")))
}
