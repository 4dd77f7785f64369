package model

// ScoreBreakdown itemizes how the final confidence score was assembled.
type ScoreBreakdown struct {
	Base                int `json:"base"`
	ConflictDeduction   int `json:"conflict_deduction"`
	RetryDeduction      int `json:"retry_deduction"`
	PresenceBonus       int `json:"presence_bonus"`
	InactivityDeduction int `json:"inactivity_deduction"`
}

// ConfidenceRecord is the final fused verdict for one request.
type ConfidenceRecord struct {
	Score           int            `json:"score"`
	Reasoning       string         `json:"reasoning"`
	Discrepancies   []string       `json:"discrepancies,omitempty"`
	Recommendations []string       `json:"recommendations,omitempty"`
	Breakdown       ScoreBreakdown `json:"breakdown"`
}
