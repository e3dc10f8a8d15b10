package models

import (
	"testing"
	"time"
)

func validCampaign() *Campaign {
	return &Campaign{
		UserPrompt:        "서울 20대 여성",
		SendAt:            time.Date(2026, 2, 10, 10, 0, 0, 0, time.Local),
		AsOfDate:          NewDate(2026, 2, 9),
		FilterJSON:        `{"regions":[],"skin_types":[],"categories":[],"category_mode":"ALL","raw_prompt":"","as_of_date":"2026-02-09"}`,
		TotalCount:        120,
		SelectedVariantID: VariantBenefit,
		SMSText:           "문자",
		LMSText:           "장문",
		Status:            CampaignStatusScheduled,
	}
}

func TestCampaign_Validate(t *testing.T) {
	if err := validCampaign().Validate(); err != nil {
		t.Errorf("Expected no error but got: %v", err)
	}

	c := validCampaign()
	c.UserPrompt = ""
	if err := c.Validate(); err == nil {
		t.Error("Expected error for empty prompt but got nil")
	}

	c = validCampaign()
	c.SendAt = time.Time{}
	if err := c.Validate(); err == nil {
		t.Error("Expected error for zero send time but got nil")
	}

	c = validCampaign()
	c.SelectedVariantID = "D"
	if err := c.Validate(); err == nil {
		t.Error("Expected error for unknown variant but got nil")
	}

	c = validCampaign()
	c.Status = "draft"
	if err := c.Validate(); err == nil {
		t.Error("Expected error for unknown status but got nil")
	}
}

func TestCampaign_IsDue(t *testing.T) {
	now := time.Date(2026, 2, 10, 10, 0, 0, 0, time.Local)

	c := validCampaign()
	c.SendAt = now.Add(-time.Minute)
	if !c.IsDue(now) {
		t.Error("Expected past scheduled campaign to be due")
	}

	// exactly at send time counts as due
	c.SendAt = now
	if !c.IsDue(now) {
		t.Error("Expected campaign at send time to be due")
	}

	c.SendAt = now.Add(time.Minute)
	if c.IsDue(now) {
		t.Error("Expected future campaign not to be due")
	}

	c.SendAt = now.Add(-time.Minute)
	c.Status = CampaignStatusSent
	if c.IsDue(now) {
		t.Error("Expected sent campaign not to be due")
	}
}

func TestCampaign_IsTerminal(t *testing.T) {
	c := validCampaign()
	if c.IsTerminal() {
		t.Error("Expected scheduled campaign to be non-terminal")
	}
	c.Status = CampaignStatusSent
	if !c.IsTerminal() {
		t.Error("Expected sent campaign to be terminal")
	}
	c.Status = CampaignStatusCanceled
	if !c.IsTerminal() {
		t.Error("Expected canceled campaign to be terminal")
	}
}

func TestCampaign_FilterRoundTrip(t *testing.T) {
	c := validCampaign()
	f, err := c.Filter()
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if f.CategoryMode != CategoryModeAll {
		t.Errorf("Expected mode ALL but got %s", f.CategoryMode)
	}
	if f.AsOfDate.String() != "2026-02-09" {
		t.Errorf("Expected as-of 2026-02-09 but got %s", f.AsOfDate)
	}
}
