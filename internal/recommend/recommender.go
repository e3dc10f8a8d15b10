// Package recommend generates the three deterministic message-text
// variants for a campaign and ranks them. Variant A leads with the
// benefit, B with urgency, C with a win-back greeting; scores start at 50
// and collect per-variant bonuses from the extracted context.
package recommend

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hoyun5295-ctrl/targetup/internal/models"
)

// Unsubscribe notices appended to every message form
const (
	OptOutSMS = "무료수신거부 080-XXX-XXXX"
	OptOutLMS = "무료 수신거부: 080-XXX-XXXX"
)

// adMarker is the mandatory leading advertisement marker
const adMarker = "(광고)"

// baseScore is every variant's starting score
const baseScore = 50.0

// Context carries the signals extracted from the prompt and filter that
// drive generation and scoring
type Context struct {
	ProductName    string   `json:"product_name"`
	DiscountRate   *int     `json:"discount_rate,omitempty"`
	IsOnePlusOne   bool     `json:"is_one_plus_one"`
	EventName      string   `json:"event_name"`
	DaysUntilSend  int      `json:"days_until_send"`
	IsChurnTarget  bool     `json:"is_churn_target"`
	TargetAgeGroup string   `json:"target_age_group"`
	TargetGender   string   `json:"target_gender"`
	TargetConcerns []string `json:"target_concerns"`
}

// Recommender generates and scores message variants
type Recommender struct {
	includeAdMarker bool
	now             func() time.Time

	productPattern  *regexp.Regexp
	discountPattern *regexp.Regexp
	eventPattern    *regexp.Regexp
}

// Option configures a Recommender
type Option func(*Recommender)

// WithoutAdMarker omits the leading advertisement marker
func WithoutAdMarker() Option {
	return func(r *Recommender) { r.includeAdMarker = false }
}

// WithClock fixes the clock used for days-until-send, for tests
func WithClock(now func() time.Time) Option {
	return func(r *Recommender) { r.now = now }
}

// New creates a recommender with compiled patterns
func New(opts ...Option) *Recommender {
	r := &Recommender{
		includeAdMarker: true,
		now:             time.Now,
		productPattern:  regexp.MustCompile(`[가-힣]+크림|[가-힣]+세럼|[가-힣]+에센스|[가-힣]+토너|[가-힣]+팩`),
		discountPattern: regexp.MustCompile(`(\d{1,2})\s*%\s*(?:할인|OFF|세일)`),
		eventPattern:    regexp.MustCompile(`[가-힣]+\s*행사|[가-힣]+\s*이벤트|[가-힣]+\s*세일`),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recommend generates the three variants for the prompt and returns them
// sorted by score descending. Ties keep generation order A, B, C.
func (r *Recommender) Recommend(prompt string, filter *models.TargetingFilter, sendAt time.Time) []models.MessageVariant {
	ctx := r.ExtractContext(prompt, filter, sendAt)
	return r.Generate(ctx)
}

// Generate builds and scores the three variants from an already-extracted
// context
func (r *Recommender) Generate(ctx Context) []models.MessageVariant {
	variants := []models.MessageVariant{
		r.variantBenefit(ctx),
		r.variantUrgency(ctx),
		r.variantWinBack(ctx),
	}

	for i := range variants {
		variants[i].Score = Score(variants[i].VariantID, ctx)
	}

	sort.SliceStable(variants, func(i, j int) bool {
		return variants[i].Score > variants[j].Score
	})

	return variants
}

// ExtractContext pulls the generation signals out of the prompt and filter
func (r *Recommender) ExtractContext(prompt string, filter *models.TargetingFilter, sendAt time.Time) Context {
	ctx := Context{TargetConcerns: []string{}}

	// product name: known product suffix, else first category, else generic
	if m := r.productPattern.FindString(prompt); m != "" {
		ctx.ProductName = m
	} else if len(filter.Categories) > 0 {
		ctx.ProductName = filter.Categories[0]
	} else {
		ctx.ProductName = "신제품"
	}

	if m := r.discountPattern.FindStringSubmatch(prompt); m != nil {
		rate := atoi(m[1])
		ctx.DiscountRate = &rate
	}

	if strings.Contains(prompt, "1+1") || strings.Contains(prompt, "원플원") || strings.Contains(prompt, "1플1") {
		ctx.IsOnePlusOne = true
	}

	if m := r.eventPattern.FindString(prompt); m != "" {
		ctx.EventName = m
	} else {
		ctx.EventName = "특별 혜택"
	}

	today := models.DateOf(r.now()).Time()
	ctx.DaysUntilSend = int(models.DateOf(sendAt).Time().Sub(today).Hours() / 24)

	ctx.IsChurnTarget = filter.IsChurnTarget()

	if filter.AgeMin != nil {
		ctx.TargetAgeGroup = fmt.Sprintf("%d대", *filter.AgeMin)
	}
	ctx.TargetGender = string(filter.Gender)

	for _, cat := range filter.Categories {
		for _, concern := range models.SkinConcerns {
			if cat == concern {
				ctx.TargetConcerns = append(ctx.TargetConcerns, cat)
				break
			}
		}
	}

	return ctx
}

// variantBenefit is variant A: lead with the discount or 1+1 framing
func (r *Recommender) variantBenefit(ctx Context) models.MessageVariant {
	marker := r.marker()

	var benefit string
	switch {
	case ctx.DiscountRate != nil:
		benefit = fmt.Sprintf("%d%% 할인", *ctx.DiscountRate)
	case ctx.IsOnePlusOne:
		benefit = "1+1 특가"
	default:
		benefit = "특별 할인"
	}

	smsText := fmt.Sprintf("%s[아이소이] %s %s! 지금 바로 확인▶ %s",
		marker, ctx.ProductName, benefit, OptOutSMS)

	lmsText := fmt.Sprintf(`%s
[아이소이] %s

✨ %s %s ✨

피부 고민 해결의 시작!
지금 바로 확인하세요.

▶ 구매하기: isoi.co.kr

%s`, marker, ctx.EventName, ctx.ProductName, benefit, OptOutLMS)

	return models.NewMessageVariant(models.VariantBenefit, "혜택 직결",
		strings.TrimSpace(smsText), strings.TrimSpace(lmsText))
}

// variantUrgency is variant B: lead with today / D-N / limited-time framing
func (r *Recommender) variantUrgency(ctx Context) models.MessageVariant {
	marker := r.marker()

	var timing, timingShort string
	switch {
	case ctx.DaysUntilSend <= 0:
		timing = "⏰ 오늘 마감!"
		timingShort = "오늘마감"
	case ctx.DaysUntilSend <= 3:
		timing = fmt.Sprintf("⏰ D-%d 마감 임박!", ctx.DaysUntilSend)
		timingShort = fmt.Sprintf("D-%d", ctx.DaysUntilSend)
	default:
		timing = "🎁 한정 기간 특가!"
		timingShort = "한정특가"
	}

	benefit := "특가"
	benefitLine := "🎁 특별 혜택"
	if ctx.DiscountRate != nil {
		benefit = fmt.Sprintf("%d%%", *ctx.DiscountRate)
		benefitLine = fmt.Sprintf("💰 %d%% 할인", *ctx.DiscountRate)
	}

	smsText := fmt.Sprintf("%s[아이소이] %s! %s %s 놓치지마세요▶ %s",
		marker, timingShort, ctx.ProductName, benefit, OptOutSMS)

	lmsText := fmt.Sprintf(`%s
[아이소이] %s

%s 마감이 다가옵니다!

🔥 %s
%s

서두르세요, 수량 한정!

▶ 지금 구매: isoi.co.kr

%s`, marker, timing, ctx.EventName, ctx.ProductName, benefitLine, OptOutLMS)

	return models.NewMessageVariant(models.VariantUrgency, "긴급/타이밍",
		strings.TrimSpace(smsText), strings.TrimSpace(lmsText))
}

// variantWinBack is variant C: returning-customer greeting for churn
// targets, VIP greeting otherwise, plus a concern or age-group clause
func (r *Recommender) variantWinBack(ctx Context) models.MessageVariant {
	marker := r.marker()

	var greeting, cta string
	if ctx.IsChurnTarget {
		greeting = "오랜만이에요! 다시 만나 반가워요 💕"
		cta = "다시 만나는 기념, 특별한 혜택을 준비했어요."
	} else {
		greeting = "소중한 고객님을 위한 특별 혜택 💝"
		cta = "고객님만을 위한 맞춤 혜택이에요."
	}

	var personalized string
	if len(ctx.TargetConcerns) > 0 {
		concern := strings.SplitN(ctx.TargetConcerns[0], "/", 2)[0]
		personalized = fmt.Sprintf("%s 고민 해결에 딱!", concern)
	} else if ctx.TargetAgeGroup != "" {
		personalized = fmt.Sprintf("%s 피부 맞춤 케어", ctx.TargetAgeGroup)
	}

	benefit := "특별 혜택"
	if ctx.DiscountRate != nil {
		benefit = fmt.Sprintf("%d%% 할인", *ctx.DiscountRate)
	}

	smsText := fmt.Sprintf("%s[아이소이] %s.. %s %s 준비했어요▶ %s",
		marker, truncateRunes(greeting, 10), ctx.ProductName, benefit, OptOutSMS)

	lmsText := fmt.Sprintf(`%s
[아이소이] %s

%s

💜 %s %s
%s

오직 고객님만을 위한 기회를 놓치지 마세요!

▶ 혜택 받기: isoi.co.kr

%s`, marker, greeting, cta, ctx.ProductName, benefit, personalized, OptOutLMS)

	return models.NewMessageVariant(models.VariantWinBack, "웰컴백/개인화",
		strings.TrimSpace(smsText), strings.TrimSpace(lmsText))
}

// Score computes the recommendation score for one variant identity. Every
// variant starts at 50; bonuses are additive and independent.
func Score(variantID string, ctx Context) float64 {
	score := baseScore

	switch variantID {
	case models.VariantBenefit:
		if ctx.DiscountRate != nil && *ctx.DiscountRate >= 30 {
			score += 20
		}
		if ctx.IsOnePlusOne {
			score += 15
		}
	case models.VariantUrgency:
		if ctx.DaysUntilSend <= 3 {
			score += 25
		} else if ctx.DaysUntilSend <= 7 {
			score += 10
		}
	case models.VariantWinBack:
		if ctx.IsChurnTarget {
			score += 30
		}
		if len(ctx.TargetConcerns) > 0 {
			score += 10
		}
	}

	return score
}

func (r *Recommender) marker() string {
	if r.includeAdMarker {
		return adMarker
	}
	return ""
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
