package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hoyun5295-ctrl/targetup/internal/ai"
	"github.com/hoyun5295-ctrl/targetup/internal/engine"
	"github.com/hoyun5295-ctrl/targetup/internal/models"
	"github.com/hoyun5295-ctrl/targetup/internal/parser"
	"github.com/hoyun5295-ctrl/targetup/internal/population"
	"github.com/hoyun5295-ctrl/targetup/internal/recommend"
)

// Parse/generation modes reported to callers
const (
	ModeAI   = "AI"
	ModeRule = "RULE"
)

// TargetResult is the outcome of one targeting request
type TargetResult struct {
	Filter      *models.TargetingFilter `json:"filter"`
	SendAt      time.Time               `json:"send_at"`
	TotalCount  int                     `json:"total_count"`
	Sample      []engine.SampleRow      `json:"sample"`
	CustomerIDs []string                `json:"-"`
	Tags        []Tag                   `json:"tags"`
	Mode        string                  `json:"mode"`
	Extras      *ai.Extras              `json:"-"`
}

// Tag is one recognized targeting condition for display
type Tag struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// TargetingService turns prompts into candidate sets and message variants.
// The AI collaborators are optional; when absent or failing, the rule-based
// parser and recommender serve transparently.
type TargetingService struct {
	pop         *population.Store
	parser      *parser.Parser
	engine      *engine.Engine
	recommender *recommend.Recommender

	aiParser    ai.PromptParser
	aiGenerator ai.VariantGenerator
	similar     ai.SimilaritySearcher
}

// NewTargetingService creates the targeting service. aiParser, aiGenerator
// and similar may be nil.
func NewTargetingService(
	pop *population.Store,
	promptParser *parser.Parser,
	seg *engine.Engine,
	recommender *recommend.Recommender,
	aiParser ai.PromptParser,
	aiGenerator ai.VariantGenerator,
	similar ai.SimilaritySearcher,
) *TargetingService {
	return &TargetingService{
		pop:         pop,
		parser:      promptParser,
		engine:      seg,
		recommender: recommender,
		aiParser:    aiParser,
		aiGenerator: aiGenerator,
		similar:     similar,
	}
}

// Mode reports which parsing path a request would take right now
func (s *TargetingService) Mode() string {
	if s.aiParser != nil && s.aiParser.Available() {
		return ModeAI
	}
	return ModeRule
}

// Execute parses the prompt, filters the population and samples the
// candidates. referenceDate anchors relative dates; zero means now.
func (s *TargetingService) Execute(ctx context.Context, prompt string, referenceDate time.Time) (*TargetResult, error) {
	if prompt == "" {
		return nil, &ValidationError{Message: "prompt is required"}
	}
	if !s.pop.Loaded() {
		if err := s.pop.Load(ctx); err != nil {
			return nil, fmt.Errorf("failed to load population: %w", err)
		}
	}

	filter, sendAt, extras, mode := s.parse(ctx, prompt, referenceDate)

	candidates, err := s.engine.FilterCustomers(filter)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	return &TargetResult{
		Filter:      filter,
		SendAt:      sendAt,
		TotalCount:  len(candidates),
		Sample:      s.engine.Sample(candidates),
		CustomerIDs: engine.SortedIDs(candidates),
		Tags:        FilterTags(filter),
		Mode:        mode,
		Extras:      extras,
	}, nil
}

// CustomerIDsFor re-resolves a filter to its sorted candidate IDs. Used
// when a campaign is confirmed with a filter previewed earlier.
func (s *TargetingService) CustomerIDsFor(ctx context.Context, filter *models.TargetingFilter) ([]string, error) {
	if !s.pop.Loaded() {
		if err := s.pop.Load(ctx); err != nil {
			return nil, fmt.Errorf("failed to load population: %w", err)
		}
	}
	candidates, err := s.engine.FilterCustomers(filter)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	return engine.SortedIDs(candidates), nil
}

// parse picks the AI parser when available and falls back to the rule
// parser on any failure. Filtering always runs on the validated filter.
func (s *TargetingService) parse(ctx context.Context, prompt string, referenceDate time.Time) (*models.TargetingFilter, time.Time, *ai.Extras, string) {
	if s.aiParser != nil && s.aiParser.Available() {
		filter, sendAt, extras, err := s.aiParser.TryParse(ctx, prompt, referenceDate)
		if err == nil {
			return filter, sendAt, extras, ModeAI
		}
		log.Printf("AI parse failed, falling back to rule parser: %v", err)
	}

	filter, sendAt := s.parser.Parse(prompt, referenceDate)
	return filter, sendAt, nil, ModeRule
}

// RecommendMessages produces the three ranked variants for a parsed
// targeting request. The AI generator is tried first when available, with
// similarity-search context; any failure falls back to the rule-based
// recommender. Returns the variants and the path used.
func (s *TargetingService) RecommendMessages(ctx context.Context, prompt string, filter *models.TargetingFilter, sendAt time.Time, extras *ai.Extras) ([]models.MessageVariant, string, error) {
	if filter == nil {
		return nil, "", &ValidationError{Message: "filter is required"}
	}

	if s.aiGenerator != nil && s.aiGenerator.Available() {
		req := ai.GenerateRequest{Prompt: prompt, Filter: filter, SendAt: sendAt, Extras: extras}

		if s.similar != nil && s.similar.Available() {
			past, err := s.similar.Search(ctx, prompt, filter, 3)
			if err != nil {
				log.Printf("Similarity search failed, continuing without context: %v", err)
			} else {
				req.PastCampaigns = past
			}
		}

		variants, err := s.aiGenerator.TryGenerate(ctx, req)
		if err == nil {
			return variants, ModeAI, nil
		}
		log.Printf("AI generation failed, falling back to rule recommender: %v", err)
	}

	return s.recommender.Recommend(prompt, filter, sendAt), ModeRule, nil
}

// Reload rebuilds the population snapshot. Explicit and exclusive: callers
// must not run it concurrently with queries.
func (s *TargetingService) Reload(ctx context.Context) error {
	return s.pop.Reload(ctx)
}

// Status reports engine availability for operators
type Status struct {
	Mode             string `json:"mode"`
	AIAvailable      bool   `json:"ai_available"`
	SimilarAvailable bool   `json:"similar_available"`
	DataLoaded       bool   `json:"data_loaded"`
	PopulationSize   int    `json:"population_size"`
}

// Status returns the current engine status
func (s *TargetingService) Status() Status {
	return Status{
		Mode:             s.Mode(),
		AIAvailable:      s.aiParser != nil && s.aiParser.Available(),
		SimilarAvailable: s.similar != nil && s.similar.Available(),
		DataLoaded:       s.pop.Loaded(),
		PopulationSize:   s.pop.Size(),
	}
}

// FilterTags renders the recognized conditions as display tags
func FilterTags(filter *models.TargetingFilter) []Tag {
	tags := []Tag{}

	if filter.Gender == models.GenderFemale {
		tags = append(tags, Tag{Type: "성별", Value: "여성"})
	} else if filter.Gender == models.GenderMale {
		tags = append(tags, Tag{Type: "성별", Value: "남성"})
	}

	if filter.HasAgeRange() {
		if filter.AgeMin != nil && filter.AgeMax != nil && *filter.AgeMax == *filter.AgeMin+9 {
			tags = append(tags, Tag{Type: "연령", Value: fmt.Sprintf("%d대", *filter.AgeMin)})
		} else {
			tags = append(tags, Tag{Type: "연령", Value: fmt.Sprintf("%s~%s세", orQuestion(filter.AgeMin), orQuestion(filter.AgeMax))})
		}
	}

	for _, region := range filter.Regions {
		tags = append(tags, Tag{Type: "지역", Value: region})
	}
	for _, skin := range filter.SkinTypes {
		tags = append(tags, Tag{Type: "피부타입", Value: skin})
	}

	if filter.PurchasedWithinMonths != nil {
		tags = append(tags, Tag{Type: "구매조건", Value: fmt.Sprintf("최근 %d개월 구매 O", *filter.PurchasedWithinMonths)})
	}
	if filter.NotPurchasedWithinMonths != nil {
		tags = append(tags, Tag{Type: "이탈조건", Value: fmt.Sprintf("최근 %d개월 미구매", *filter.NotPurchasedWithinMonths)})
	}

	for _, cat := range filter.Categories {
		tags = append(tags, Tag{Type: "카테고리", Value: cat})
	}
	if len(filter.Categories) > 1 {
		mode := "합집합(ANY)"
		if filter.CategoryMode == models.CategoryModeAll {
			mode = "교집합(ALL)"
		}
		tags = append(tags, Tag{Type: "조합방식", Value: mode})
	}

	if !filter.AsOfDate.IsZero() {
		tags = append(tags, Tag{Type: "기준일", Value: filter.AsOfDate.String()})
	}

	return tags
}

func orQuestion(n *int) string {
	if n == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *n)
}
