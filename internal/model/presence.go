package model

// PresenceRecord is the output of the messaging-presence stage. It is absent
// from a ValidationResult when the plan skipped the stage or the line type
// was voip/unknown. Landlines still get a record (Exists=false, produced
// without a network call) so the aggregator can flag a landline that
// somehow reports a presence.
type PresenceRecord struct {
	Exists             bool     `json:"exists"`
	Verified           bool     `json:"verified"`
	IsLikelyBusiness   bool     `json:"is_likely_business"`
	BusinessConfidence float64  `json:"business_confidence"`
	BusinessIndicators []string `json:"business_indicators,omitempty"`
	ProfileName        string   `json:"profile_name,omitempty"`
	LastSeenHint       string   `json:"last_seen_hint,omitempty"`
	// Estimated is true when the authoritative source was unavailable and
	// the record was derived from the country adoption prior instead.
	Estimated bool `json:"estimated,omitempty"`
}
