package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hoyun5295-ctrl/targetup/internal/models"
	"github.com/hoyun5295-ctrl/targetup/internal/repository"
)

// CampaignSummary is the advisory context a similarity search yields
type CampaignSummary struct {
	CampaignID int    `json:"campaign_id"`
	UserPrompt string `json:"user_prompt"`
	SMSText    string `json:"sms_text"`
	TotalCount int    `json:"total_count"`
	Score      int    `json:"score"`
}

// SimilaritySearcher finds past campaigns resembling a prompt. Purely
// advisory: absence or failure must not affect the rule-based path.
type SimilaritySearcher interface {
	Available() bool
	Search(ctx context.Context, prompt string, filter *models.TargetingFilter, topK int) ([]CampaignSummary, error)
}

// KeywordSearcher ranks past sent campaigns by token overlap with the
// prompt plus shared filter categories. A lightweight stand-in for a
// vector store that needs nothing beyond the campaign table.
type KeywordSearcher struct {
	repo repository.CampaignRepository
}

// NewKeywordSearcher creates a searcher over the campaign store
func NewKeywordSearcher(repo repository.CampaignRepository) *KeywordSearcher {
	return &KeywordSearcher{repo: repo}
}

// Available reports whether the searcher can serve queries
func (s *KeywordSearcher) Available() bool {
	return s != nil && s.repo != nil
}

// Search returns up to topK past sent campaigns ordered by overlap score
func (s *KeywordSearcher) Search(ctx context.Context, prompt string, filter *models.TargetingFilter, topK int) ([]CampaignSummary, error) {
	if topK <= 0 {
		topK = 3
	}

	status := models.CampaignStatusSent
	past, err := s.repo.List(ctx, &status, 200)
	if err != nil {
		return nil, fmt.Errorf("failed to list past campaigns: %w", err)
	}

	promptTokens := tokenize(prompt)

	summaries := []CampaignSummary{}
	for _, c := range past {
		score := overlap(promptTokens, tokenize(c.UserPrompt))

		if filter != nil && len(filter.Categories) > 0 {
			if pastFilter, err := c.Filter(); err == nil {
				score += sharedCategories(filter.Categories, pastFilter.Categories) * 2
			}
		}

		if score == 0 {
			continue
		}
		summaries = append(summaries, CampaignSummary{
			CampaignID: c.ID,
			UserPrompt: c.UserPrompt,
			SMSText:    c.SMSText,
			TotalCount: c.TotalCount,
			Score:      score,
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Score > summaries[j].Score
	})
	if len(summaries) > topK {
		summaries = summaries[:topK]
	}

	return summaries, nil
}

// tokenize splits on whitespace and punctuation, dropping single runes
func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, token := range strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', ',', '.', '!', '?', '(', ')', '[', ']', '/', '·':
			return true
		}
		return false
	}) {
		if len([]rune(token)) < 2 {
			continue
		}
		tokens[token] = struct{}{}
	}
	return tokens
}

func overlap(a, b map[string]struct{}) int {
	n := 0
	for token := range a {
		if _, ok := b[token]; ok {
			n++
		}
	}
	return n
}

func sharedCategories(a, b []string) int {
	set := make(map[string]struct{}, len(a))
	for _, c := range a {
		set[c] = struct{}{}
	}
	n := 0
	for _, c := range b {
		if _, ok := set[c]; ok {
			n++
		}
	}
	return n
}
