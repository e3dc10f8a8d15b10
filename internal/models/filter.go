package models

import (
	"encoding/json"
	"fmt"
)

// Gender is a targeting gender value
type Gender string

const (
	GenderFemale Gender = "F"
	GenderMale   Gender = "M"
)

// CategoryMode controls how multiple category conditions combine
type CategoryMode string

const (
	// CategoryModeAll intersects the per-category buyer sets
	CategoryModeAll CategoryMode = "ALL"
	// CategoryModeAny unions the per-category buyer sets
	CategoryModeAny CategoryMode = "ANY"
)

// TargetingFilter is the structured targeting criteria derived from a
// prompt. It is immutable once produced by a parser; AsOfDate is always the
// day before the send time.
type TargetingFilter struct {
	Gender                   Gender       `json:"gender,omitempty"`
	AgeMin                   *int         `json:"age_min,omitempty"`
	AgeMax                   *int         `json:"age_max,omitempty"`
	Regions                  []string     `json:"regions"`
	SkinTypes                []string     `json:"skin_types"`
	PurchasedWithinMonths    *int         `json:"purchased_within_months,omitempty"`
	NotPurchasedWithinMonths *int         `json:"not_purchased_within_months,omitempty"`
	Categories               []string     `json:"categories"`
	CategoryMode             CategoryMode `json:"category_mode"`
	RawPrompt                string       `json:"raw_prompt"`
	AsOfDate                 Date         `json:"as_of_date"`
}

// NewTargetingFilter creates an empty filter with the structural defaults
// used for directly-constructed filters. Note the parser applies its own
// default mode (ALL) for parsed input.
func NewTargetingFilter() *TargetingFilter {
	return &TargetingFilter{
		Regions:      []string{},
		SkinTypes:    []string{},
		Categories:   []string{},
		CategoryMode: CategoryModeAny,
	}
}

// Validate rejects values outside the fixed taxonomies. Externally supplied
// filters must be validated at construction time so an unknown value cannot
// silently match everyone.
func (f *TargetingFilter) Validate() error {
	if f.Gender != "" && f.Gender != GenderFemale && f.Gender != GenderMale {
		return fmt.Errorf("invalid gender: %q", f.Gender)
	}
	if f.CategoryMode != CategoryModeAll && f.CategoryMode != CategoryModeAny {
		return fmt.Errorf("invalid category mode: %q", f.CategoryMode)
	}
	if f.AgeMin != nil && f.AgeMax != nil && *f.AgeMin > *f.AgeMax {
		return fmt.Errorf("age_min %d exceeds age_max %d", *f.AgeMin, *f.AgeMax)
	}
	if f.PurchasedWithinMonths != nil && *f.PurchasedWithinMonths <= 0 {
		return fmt.Errorf("purchased_within_months must be positive")
	}
	if f.NotPurchasedWithinMonths != nil && *f.NotPurchasedWithinMonths <= 0 {
		return fmt.Errorf("not_purchased_within_months must be positive")
	}
	for _, r := range f.Regions {
		if !IsValidRegion(r) {
			return fmt.Errorf("unknown region: %q", r)
		}
	}
	for _, s := range f.SkinTypes {
		if !IsValidSkinType(s) {
			return fmt.Errorf("unknown skin type: %q", s)
		}
	}
	for _, c := range f.Categories {
		if !IsValidCategory(c) {
			return fmt.Errorf("unknown category: %q", c)
		}
	}
	return nil
}

// HasAgeRange reports whether any age bound is set
func (f *TargetingFilter) HasAgeRange() bool {
	return f.AgeMin != nil || f.AgeMax != nil
}

// IsChurnTarget reports whether the filter targets lapsed buyers
func (f *TargetingFilter) IsChurnTarget() bool {
	return f.NotPurchasedWithinMonths != nil
}

// ToJSON serializes the filter for campaign persistence
func (f *TargetingFilter) ToJSON() (string, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("failed to marshal filter: %w", err)
	}
	return string(data), nil
}

// FilterFromJSON reconstructs a filter persisted by ToJSON
func FilterFromJSON(s string) (*TargetingFilter, error) {
	f := NewTargetingFilter()
	if err := json.Unmarshal([]byte(s), f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal filter: %w", err)
	}
	return f, nil
}
