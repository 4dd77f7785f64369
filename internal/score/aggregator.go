// Package score fuses the collected records and retry telemetry into one
// explainable confidence verdict. Scoring is pure and deterministic: the
// same inputs always produce the same score and reasoning sentence.
package score

import (
	"fmt"
	"strings"

	"github.com/sells-group/verify-cli/internal/model"
)

// Weights holds the deduction/bonus table. Tuned defaults, overridable
// through config.
type Weights struct {
	Invalid          int `yaml:"invalid" mapstructure:"invalid"`
	UnknownLineType  int `yaml:"unknown_line_type" mapstructure:"unknown_line_type"`
	Conflict         int `yaml:"conflict" mapstructure:"conflict"`
	PerRetryAttempt  int `yaml:"per_retry_attempt" mapstructure:"per_retry_attempt"`
	LandlinePresence int `yaml:"landline_presence" mapstructure:"landline_presence"`
	PresenceSkipped  int `yaml:"presence_skipped" mapstructure:"presence_skipped"`
	PresenceBonus    int `yaml:"presence_bonus" mapstructure:"presence_bonus"`
	BusinessBonus    int `yaml:"business_bonus" mapstructure:"business_bonus"`
	HighRiskSingle   int `yaml:"high_risk_single" mapstructure:"high_risk_single"`

	// InactivityFactor scales the post-formula inactivity deduction:
	// factor x (100 - delivery probability).
	InactivityFactor float64 `yaml:"inactivity_factor" mapstructure:"inactivity_factor"`
}

// DefaultWeights returns the standard scoring table.
func DefaultWeights() Weights {
	return Weights{
		Invalid:          15,
		UnknownLineType:  5,
		Conflict:         20,
		PerRetryAttempt:  10,
		LandlinePresence: 10,
		PresenceSkipped:  5,
		PresenceBonus:    5,
		BusinessBonus:    3,
		HighRiskSingle:   10,
		InactivityFactor: 0.5,
	}
}

// Aggregator computes confidence records. Stateless; safe for concurrent
// use.
type Aggregator struct {
	weights Weights
}

// New creates an Aggregator.
func New(weights Weights) *Aggregator {
	return &Aggregator{weights: weights}
}

// Score fuses the stage outputs. It never fails: missing records simply
// omit their terms. Retry telemetry deducts per attempt, but only for
// stages that actually retried; a clean single-attempt stage costs
// nothing.
func (a *Aggregator) Score(metadata *model.MetadataRecord, presence *model.PresenceRecord, inactivity *model.InactivityRecord, retries []model.RetryContext, plan model.ExecutionPlan) model.ConfidenceRecord {
	w := a.weights
	rec := model.ConfidenceRecord{Breakdown: model.ScoreBreakdown{Base: 100}}
	score := 100

	valid := metadata != nil && metadata.Valid
	lineType := model.LineTypeUnknown
	if metadata != nil {
		lineType = metadata.LineType
	}
	landline := lineType == model.LineTypeLandline

	if !valid {
		score -= w.Invalid
		rec.Breakdown.Base -= w.Invalid
	}
	if lineType == model.LineTypeUnknown {
		score -= w.UnknownLineType
		rec.Breakdown.Base -= w.UnknownLineType
	}

	conflicts := metadata.HasConflicts()
	if conflicts {
		score -= w.Conflict
		rec.Breakdown.ConflictDeduction = w.Conflict
		for _, c := range metadata.Conflicts {
			rec.Discrepancies = append(rec.Discrepancies,
				fmt.Sprintf("%s mismatch between %s and %s: %q vs %q", c.Field, c.SourceA, c.SourceB, c.ValueA, c.ValueB))
		}
		rec.Recommendations = append(rec.Recommendations, "verify carrier information manually before relying on it")
	}

	retriedAttempts := 0
	for _, rc := range retries {
		if rc.Attempts > 1 {
			retriedAttempts += rc.Attempts
		}
	}
	if retriedAttempts > 0 {
		d := w.PerRetryAttempt * retriedAttempts
		score -= d
		rec.Breakdown.RetryDeduction = d
		rec.Recommendations = append(rec.Recommendations, "sources were unstable for this lookup; consider re-validating later")
	}

	if landline && presence != nil && presence.Exists {
		score -= w.LandlinePresence
		rec.Breakdown.Base -= w.LandlinePresence
		rec.Discrepancies = append(rec.Discrepancies, "landline reports a messaging presence")
	}

	presenceSkipped := presence == nil
	if presenceSkipped && !landline {
		score -= w.PresenceSkipped
		rec.Breakdown.Base -= w.PresenceSkipped
		rec.Discrepancies = append(rec.Discrepancies, "presence check skipped")
	}

	if presence != nil && presence.Exists && presence.Verified {
		score += w.PresenceBonus
		rec.Breakdown.PresenceBonus += w.PresenceBonus
	}
	if presence != nil && presence.IsLikelyBusiness {
		score += w.BusinessBonus
		rec.Breakdown.PresenceBonus += w.BusinessBonus
	}

	if plan.Risk == model.RiskHigh && (metadata == nil || metadata.Provenance != model.ProvenanceBoth) {
		score -= w.HighRiskSingle
		rec.Breakdown.Base -= w.HighRiskSingle
		rec.Discrepancies = append(rec.Discrepancies, "high-risk country validated by a single source")
	}

	if inactivity != nil && inactivity.IsInactive {
		d := int(w.InactivityFactor * float64(100-inactivity.DeliveryProbability))
		score -= d
		rec.Breakdown.InactivityDeduction = d
		rec.Recommendations = append(rec.Recommendations,
			fmt.Sprintf("number appears dormant (severity %s); prefer alternative channels", inactivity.Severity))
	}

	rec.Score = clamp(score, 0, 100)
	rec.Reasoning = a.reasoning(rec.Score, conflicts, retriedAttempts, presence, len(rec.Discrepancies))
	return rec
}

// reasoning builds the single deterministic explanation sentence, ordered:
// confidence tier, conflicts, retries, presence bonus, discrepancy count.
func (a *Aggregator) reasoning(score int, conflicts bool, retriedAttempts int, presence *model.PresenceRecord, discrepancies int) string {
	parts := []string{fmt.Sprintf("%s confidence (score %d)", tierFor(score), score)}

	if conflicts {
		parts = append(parts, "sources disagree on key facts")
	} else {
		parts = append(parts, "no source conflicts")
	}

	if retriedAttempts > 0 {
		parts = append(parts, fmt.Sprintf("lookups required %d attempts", retriedAttempts))
	} else {
		parts = append(parts, "no retries needed")
	}

	if presence != nil && presence.Exists && presence.Verified {
		parts = append(parts, "messaging presence verified")
	}

	parts = append(parts, fmt.Sprintf("%d discrepancies noted", discrepancies))

	return strings.Join(parts, "; ") + "."
}

func tierFor(score int) string {
	switch {
	case score >= 80:
		return "high"
	case score >= 60:
		return "moderate"
	case score >= 40:
		return "low"
	default:
		return "very low"
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
