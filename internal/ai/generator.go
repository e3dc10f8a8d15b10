package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hoyun5295-ctrl/targetup/internal/models"
	"github.com/hoyun5295-ctrl/targetup/internal/recommend"
)

// GenerateRequest bundles the context handed to the generation collaborator
type GenerateRequest struct {
	Prompt        string
	Filter        *models.TargetingFilter
	SendAt        time.Time
	Extras        *Extras
	PastCampaigns []CampaignSummary
}

// VariantGenerator is the optional message-generation collaborator. Callers
// must fall back to the rule-based recommender on any error.
type VariantGenerator interface {
	Available() bool
	TryGenerate(ctx context.Context, req GenerateRequest) ([]models.MessageVariant, error)
}

// LLMGenerator generates variants via the Messages API
type LLMGenerator struct {
	client *Client
}

// NewLLMGenerator creates the LLM-backed variant generator
func NewLLMGenerator(client *Client) *LLMGenerator {
	return &LLMGenerator{client: client}
}

// Available reports whether the collaborator can be used
func (g *LLMGenerator) Available() bool {
	return g.client.Available()
}

type generatedVariant struct {
	VariantID   string  `json:"variant_id"`
	VariantName string  `json:"variant_name"`
	SMSText     string  `json:"sms_text"`
	LMSText     string  `json:"lms_text"`
	Score       float64 `json:"score"`
}

// TryGenerate asks the model for the three variants. The response must
// carry exactly the A/B/C identities; anything else is an error and the
// caller falls back to the rule-based recommender.
func (g *LLMGenerator) TryGenerate(ctx context.Context, req GenerateRequest) ([]models.MessageVariant, error) {
	if !g.Available() {
		return nil, fmt.Errorf("llm generator not available")
	}

	var generated []generatedVariant
	if err := g.client.CompleteJSON(ctx, generatorSystemPrompt(), g.userPrompt(req), &generated); err != nil {
		return nil, err
	}

	if len(generated) != 3 {
		return nil, fmt.Errorf("expected 3 variants, got %d", len(generated))
	}

	variants := make([]models.MessageVariant, 0, 3)
	seen := map[string]bool{}
	for _, gv := range generated {
		switch gv.VariantID {
		case models.VariantBenefit, models.VariantUrgency, models.VariantWinBack:
		default:
			return nil, fmt.Errorf("unknown variant id %q", gv.VariantID)
		}
		if seen[gv.VariantID] {
			return nil, fmt.Errorf("duplicate variant id %q", gv.VariantID)
		}
		seen[gv.VariantID] = true

		if gv.SMSText == "" || gv.LMSText == "" {
			return nil, fmt.Errorf("variant %s has empty text", gv.VariantID)
		}

		v := models.NewMessageVariant(gv.VariantID, gv.VariantName, gv.SMSText, gv.LMSText)
		v.Score = gv.Score
		if v.Score == 0 {
			v.Score = 50
		}
		variants = append(variants, v)
	}

	return variants, nil
}

func (g *LLMGenerator) userPrompt(req GenerateRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Campaign prompt: %s\n", req.Prompt)
	fmt.Fprintf(&b, "Send at: %s\n", req.SendAt.Format("2006-01-02 15:04"))

	if filterJSON, err := req.Filter.ToJSON(); err == nil {
		fmt.Fprintf(&b, "Targeting filter: %s\n", filterJSON)
	}
	if req.Extras != nil {
		if req.Extras.ProductName != "" {
			fmt.Fprintf(&b, "Product: %s\n", req.Extras.ProductName)
		}
		if req.Extras.DiscountRate != nil {
			fmt.Fprintf(&b, "Discount: %d%%\n", *req.Extras.DiscountRate)
		}
	}

	if len(req.PastCampaigns) > 0 {
		b.WriteString("\nSimilar past campaigns for reference:\n")
		for _, pc := range req.PastCampaigns {
			fmt.Fprintf(&b, "- prompt: %s / sms: %s\n", pc.UserPrompt, pc.SMSText)
		}
	}

	return b.String()
}

func generatorSystemPrompt() string {
	return strings.TrimSpace(fmt.Sprintf(`
You write Korean SMS/LMS marketing copy for a cosmetics brand. Produce a
JSON array of exactly three variants:

- "A" (혜택 직결): lead with the discount or 1+1 benefit
- "B" (긴급/타이밍): lead with urgency (오늘 마감, D-N, 한정)
- "C" (웰컴백/개인화): returning-customer or VIP greeting, personalized

Each element: {"variant_id": "A", "variant_name": "...", "sms_text": "...",
"lms_text": "...", "score": 50}

Every text starts with "(광고)" and ends with the opt-out notice
"%s" (SMS) or "%s" (LMS). Keep SMS within %d bytes assuming two bytes per
Korean character. Score each variant 0-100 by expected fit.`,
		recommend.OptOutSMS, recommend.OptOutLMS, models.SMSMaxBytes))
}
