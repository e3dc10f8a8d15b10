// Package parser turns a free-text targeting prompt into a TargetingFilter
// and a send timestamp using a fixed pattern grammar. Fields are extracted
// independently; per field the first matching pattern wins and anything
// unrecognized degrades to the documented default, never an error.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hoyun5295-ctrl/targetup/internal/models"
)

// Default send hour when the prompt carries no send time
const defaultSendHour = 10

// genderPattern pairs a gender value with its keyword group. Order matters:
// the female group is tried first.
type genderPattern struct {
	gender  models.Gender
	pattern *regexp.Regexp
}

// Parser is a reusable prompt parser with precompiled patterns
type Parser struct {
	dtAbsolute *regexp.Regexp // 2026-02-10 10시
	dtDotted   *regexp.Regexp // 2026.02.10 오전 10시
	dtMonthDay *regexp.Regexp // 2월 10일 10시
	dtRelative *regexp.Regexp // 오늘/내일/모레 10시

	genders []genderPattern

	ageDecadeRange *regexp.Regexp // 20~30대
	ageYearRange   *regexp.Regexp // 25세~35세
	ageDecade      *regexp.Regexp // 20대

	purchasedWithin    *regexp.Regexp
	notPurchasedWithin *regexp.Regexp

	modeAny     *regexp.Regexp
	modeAll     *regexp.Regexp
	conjunction *regexp.Regexp

	// standalone-match patterns per slash-compound category half
	categoryHalves map[string][]*regexp.Regexp
}

// New creates a parser with all patterns compiled
func New() *Parser {
	p := &Parser{
		dtAbsolute: regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})\s*(\d{1,2})시`),
		dtDotted:   regexp.MustCompile(`(\d{4})\.(\d{1,2})\.(\d{1,2})\s*(오전|오후)?\s*(\d{1,2})시`),
		dtMonthDay: regexp.MustCompile(`(\d{1,2})월\s*(\d{1,2})일\s*(\d{1,2})시`),
		dtRelative: regexp.MustCompile(`(내일|모레|오늘)\s*(\d{1,2})시`),

		genders: []genderPattern{
			{models.GenderFemale, regexp.MustCompile(`여성|여자|여|woman|female`)},
			{models.GenderMale, regexp.MustCompile(`남성|남자|남|man|male`)},
		},

		ageDecadeRange: regexp.MustCompile(`(\d{1,2})[~-](\d{1,2})대`),
		ageYearRange:   regexp.MustCompile(`(\d{1,2})세[~-](\d{1,2})세`),
		ageDecade:      regexp.MustCompile(`(\d{1,2})대`),

		purchasedWithin:    regexp.MustCompile(`최근\s*(\d{1,2})\s*개월\s*(?:구매|주문)\s*(?:했|한|이력|O)`),
		notPurchasedWithin: regexp.MustCompile(`최근\s*(\d{1,2})\s*개월\s*(?:미구매|구매\s*X|구매\s*안|주문\s*X)`),

		modeAny:     regexp.MustCompile(`합집합|OR|하나라도|또는`),
		modeAll:     regexp.MustCompile(`교집합|AND|모두\s*구매|둘\s*다|전부`),
		conjunction: regexp.MustCompile(`이며|이고|\+|&|함께|모두`),

		categoryHalves: make(map[string][]*regexp.Regexp),
	}

	// A slash-compound category like 로션/크림 also matches when either half
	// appears as a standalone word. Standalone means not embedded inside a
	// longer Hangul run, so 산뜻크림 does not trigger 로션/크림.
	for _, cat := range models.Categories {
		if !strings.Contains(cat, "/") {
			continue
		}
		var halves []*regexp.Regexp
		for _, half := range strings.Split(cat, "/") {
			halves = append(halves, regexp.MustCompile(
				`(?:^|[^가-힣])`+regexp.QuoteMeta(half)+`(?:$|[^가-힣])`))
		}
		p.categoryHalves[cat] = halves
	}

	return p
}

// Parse extracts a targeting filter and send time from the prompt. It is a
// pure function of its inputs: referenceDate anchors all relative and
// year-less dates. A zero referenceDate means the current date.
func (p *Parser) Parse(prompt string, referenceDate time.Time) (*models.TargetingFilter, time.Time) {
	if referenceDate.IsZero() {
		referenceDate = time.Now()
	}
	refDate := models.DateOf(referenceDate)

	sendAt := p.parseSendAt(prompt, refDate)

	filter := models.NewTargetingFilter()
	filter.RawPrompt = prompt
	filter.AsOfDate = models.DateOf(sendAt).AddDays(-1)
	filter.Gender = p.parseGender(prompt)
	filter.AgeMin, filter.AgeMax = p.parseAgeRange(prompt)
	filter.Regions = p.parseRegions(prompt)
	filter.SkinTypes = p.parseSkinTypes(prompt)
	filter.PurchasedWithinMonths = p.parseMonths(p.purchasedWithin, prompt)
	filter.NotPurchasedWithinMonths = p.parseMonths(p.notPurchasedWithin, prompt)
	filter.Categories = p.parseCategories(prompt)
	filter.CategoryMode = p.parseCategoryMode(prompt)

	return filter, sendAt
}

func (p *Parser) parseSendAt(prompt string, refDate models.Date) time.Time {
	// 2026-02-10 10시
	if m := p.dtAbsolute.FindStringSubmatch(prompt); m != nil {
		return makeTime(atoi(m[1]), atoi(m[2]), atoi(m[3]), atoi(m[4]))
	}

	// 2026.02.10 (오전/오후) 10시
	if m := p.dtDotted.FindStringSubmatch(prompt); m != nil {
		hour := atoi(m[5])
		if m[4] == "오후" && hour < 12 {
			hour += 12
		}
		return makeTime(atoi(m[1]), atoi(m[2]), atoi(m[3]), hour)
	}

	// 2월 10일 10시, anchored to the reference year; roll to next year when
	// the resulting date already passed
	if m := p.dtMonthDay.FindStringSubmatch(prompt); m != nil {
		year := refDate.Year()
		month, day, hour := atoi(m[1]), atoi(m[2]), atoi(m[3])
		if models.NewDate(year, time.Month(month), day).Before(refDate) {
			year++
		}
		return makeTime(year, month, day, hour)
	}

	// 오늘/내일/모레 10시
	if m := p.dtRelative.FindStringSubmatch(prompt); m != nil {
		target := refDate
		switch m[1] {
		case "내일":
			target = refDate.AddDays(1)
		case "모레":
			target = refDate.AddDays(2)
		}
		return makeTime(target.Year(), int(target.Time().Month()), target.Time().Day(), atoi(m[2]))
	}

	// default: the day after the reference date at 10:00
	tomorrow := refDate.AddDays(1)
	return makeTime(tomorrow.Year(), int(tomorrow.Time().Month()), tomorrow.Time().Day(), defaultSendHour)
}

func (p *Parser) parseGender(prompt string) models.Gender {
	lowered := strings.ToLower(prompt)
	for _, g := range p.genders {
		if g.pattern.MatchString(lowered) {
			return g.gender
		}
	}
	return ""
}

func (p *Parser) parseAgeRange(prompt string) (*int, *int) {
	// 20~30대: the upper decade covers ten years
	if m := p.ageDecadeRange.FindStringSubmatch(prompt); m != nil {
		return intPtr(atoi(m[1])), intPtr(atoi(m[2]) + 9)
	}
	// 25세~35세: explicit ages
	if m := p.ageYearRange.FindStringSubmatch(prompt); m != nil {
		return intPtr(atoi(m[1])), intPtr(atoi(m[2]))
	}
	// 20대: single decade
	if m := p.ageDecade.FindStringSubmatch(prompt); m != nil {
		base := atoi(m[1])
		return intPtr(base), intPtr(base + 9)
	}
	return nil, nil
}

func (p *Parser) parseRegions(prompt string) []string {
	found := []string{}
	for _, region := range models.Regions {
		if strings.Contains(prompt, region) {
			found = append(found, region)
		}
	}
	return found
}

func (p *Parser) parseSkinTypes(prompt string) []string {
	found := []string{}
	for _, skinType := range models.SkinTypes {
		if strings.Contains(prompt, skinType) {
			found = append(found, skinType)
		}
	}
	return found
}

func (p *Parser) parseMonths(pattern *regexp.Regexp, prompt string) *int {
	if m := pattern.FindStringSubmatch(prompt); m != nil {
		return intPtr(atoi(m[1]))
	}
	return nil
}

func (p *Parser) parseCategories(prompt string) []string {
	found := []string{}
	for _, cat := range models.Categories {
		if strings.Contains(prompt, cat) {
			found = append(found, cat)
			continue
		}
		for _, half := range p.categoryHalves[cat] {
			if half.MatchString(prompt) {
				found = append(found, cat)
				break
			}
		}
	}
	return found
}

func (p *Parser) parseCategoryMode(prompt string) models.CategoryMode {
	// explicit union keyword wins over explicit intersection keyword
	if p.modeAny.MatchString(prompt) {
		return models.CategoryModeAny
	}
	if p.modeAll.MatchString(prompt) {
		return models.CategoryModeAll
	}
	// conjunction cues force intersection
	if p.conjunction.MatchString(prompt) {
		return models.CategoryModeAll
	}
	// parsed input defaults to intersection for tighter targeting
	return models.CategoryModeAll
}

func makeTime(year, month, day, hour int) time.Time {
	return time.Date(year, time.Month(month), day, hour, 0, 0, 0, time.Local)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func intPtr(n int) *int {
	return &n
}
