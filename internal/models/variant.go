package models

// Telecom byte budgets for the two message forms. Lengths are measured with
// the carrier's double-byte Korean encoding; texts over budget are reported
// for review, never truncated.
const (
	SMSMaxBytes = 90
	LMSMaxBytes = 2000
)

// Variant identities, always generated in this order
const (
	VariantBenefit = "A"
	VariantUrgency = "B"
	VariantWinBack = "C"
)

// MessageVariant is one generated message text with its recommendation
// score. Immutable once generated; byte lengths are derived from the texts.
type MessageVariant struct {
	VariantID   string  `json:"variant_id"`
	VariantName string  `json:"variant_name"`
	SMSText     string  `json:"sms_text"`
	LMSText     string  `json:"lms_text"`
	SMSBytes    int     `json:"sms_bytes"`
	LMSBytes    int     `json:"lms_bytes"`
	Score       float64 `json:"score"`
}

// NewMessageVariant builds a variant and computes its byte lengths
func NewMessageVariant(id, name, smsText, lmsText string) MessageVariant {
	return MessageVariant{
		VariantID:   id,
		VariantName: name,
		SMSText:     smsText,
		LMSText:     lmsText,
		SMSBytes:    EncodedByteLength(smsText),
		LMSBytes:    EncodedByteLength(lmsText),
	}
}

// ExceedsSMSBudget reports whether the SMS form is over the soft limit
func (v *MessageVariant) ExceedsSMSBudget() bool {
	return v.SMSBytes > SMSMaxBytes
}

// EncodedByteLength measures text under the carrier encoding: one byte per
// ASCII rune, two bytes per anything else (Hangul, symbols, emoji).
func EncodedByteLength(text string) int {
	n := 0
	for _, r := range text {
		if r < 128 {
			n++
		} else {
			n += 2
		}
	}
	return n
}
