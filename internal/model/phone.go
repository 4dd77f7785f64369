package model

import "strings"

// LineType is the canonical line-type vocabulary used across all sources.
type LineType string

const (
	LineTypeMobile   LineType = "mobile"
	LineTypeLandline LineType = "landline"
	LineTypeVoIP     LineType = "voip"
	LineTypeUnknown  LineType = "unknown"
)

// InputRequest is a single validation request. Immutable once created.
type InputRequest struct {
	Number          string  `json:"number"`
	CountryHint     string  `json:"country_hint,omitempty"`
	PrioritizeSpeed bool    `json:"prioritize_speed,omitempty"`
	MaxCostUSD      float64 `json:"max_cost_usd,omitempty"`
}

// Digits returns the number with every non-digit character stripped.
// The leading "+" of an E.164 number is dropped along with the rest.
func (r InputRequest) Digits() string {
	var b strings.Builder
	b.Grow(len(r.Number))
	for _, c := range r.Number {
		if c >= '0' && c <= '9' {
			b.WriteByte(byte(c))
		}
	}
	return b.String()
}

// IsPlausible reports whether the raw input can possibly be a phone number
// (7-15 digits per E.164). Requests failing this check are rejected before
// any network call.
func (r InputRequest) IsPlausible() bool {
	n := len(r.Digits())
	return n >= 7 && n <= 15
}
