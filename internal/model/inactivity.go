package model

import "time"

// Severity buckets an inactivity score for reporting and channel suggestions.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityModerate Severity = "moderate"
	SeverityLow      Severity = "low"
	SeverityNone     Severity = "none"
)

// Channel is an alternative outreach channel suggested for dormant numbers.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelVoice Channel = "voice"
	ChannelEmail Channel = "email"
	ChannelMail  Channel = "mail"
)

// DeliveryHistory is the aggregate delivery-log view for one number.
type DeliveryHistory struct {
	TotalMessages     int        `json:"total_messages"`
	DeliveredMessages int        `json:"delivered_messages"`
	FailedMessages    int        `json:"failed_messages"`
	LastSuccessAt     *time.Time `json:"last_success_at,omitempty"`
}

// FailureRate returns failed/total, or 0 when there is no history.
func (h DeliveryHistory) FailureRate() float64 {
	if h.TotalMessages == 0 {
		return 0
	}
	return float64(h.FailedMessages) / float64(h.TotalMessages)
}

// InactivityRecord is the dormancy estimate produced by the inactivity stage.
type InactivityRecord struct {
	IsInactive           bool      `json:"is_inactive"`
	DaysSinceLastSuccess int       `json:"days_since_last_success"`
	Score                int       `json:"score"`
	DeliveryProbability  int       `json:"delivery_probability"`
	Severity             Severity  `json:"severity"`
	Reasons              []string  `json:"reasons,omitempty"`
	SuggestedChannels    []Channel `json:"suggested_channels,omitempty"`
	CountryAdoptionRate  float64   `json:"country_adoption_rate"`
}
