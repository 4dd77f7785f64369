package score

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/verify-cli/internal/model"
)

func newAgg() *Aggregator {
	return New(DefaultWeights())
}

func validMobile() *model.MetadataRecord {
	return &model.MetadataRecord{
		Valid:      true,
		LineType:   model.LineTypeMobile,
		Carrier:    "Vodafone",
		Provenance: model.ProvenanceSourceA,
	}
}

func lowRiskPlan() model.ExecutionPlan {
	return model.ExecutionPlan{Risk: model.RiskLow}
}

func TestScoreCleanRun(t *testing.T) {
	presence := &model.PresenceRecord{Exists: true, Verified: true}

	rec := newAgg().Score(validMobile(), presence, nil, []model.RetryContext{{Attempts: 1}}, lowRiskPlan())

	assert.Equal(t, 100, rec.Score)
	assert.Empty(t, rec.Discrepancies)
	assert.Contains(t, rec.Reasoning, "high confidence")
	assert.Contains(t, rec.Reasoning, "no retries needed")
	assert.Contains(t, rec.Reasoning, "messaging presence verified")
}

func TestScoreSingleAttemptStagesCostNothing(t *testing.T) {
	retries := []model.RetryContext{{Attempts: 1}, {Attempts: 1}, {Attempts: 1}}

	rec := newAgg().Score(validMobile(), &model.PresenceRecord{Exists: true, Verified: true}, nil, retries, lowRiskPlan())

	assert.Equal(t, 0, rec.Breakdown.RetryDeduction)
	assert.Equal(t, 100, rec.Score)
}

func TestScoreRetriedStageDeductsPerAttempt(t *testing.T) {
	// One stage burned its whole three-attempt budget: 10 per attempt.
	retries := []model.RetryContext{{Attempts: 3}}

	rec := newAgg().Score(validMobile(), &model.PresenceRecord{Exists: true, Verified: true}, nil, retries, lowRiskPlan())

	assert.Equal(t, 30, rec.Breakdown.RetryDeduction)
	assert.Equal(t, 75, rec.Score) // 100 - 30 + 5 presence bonus
	assert.Contains(t, rec.Reasoning, "lookups required 3 attempts")
	assert.NotEmpty(t, rec.Recommendations)
}

func TestScoreConflictDeduction(t *testing.T) {
	meta := validMobile()
	meta.Provenance = model.ProvenanceBoth
	meta.Conflicts = []model.Conflict{{
		Field:   model.ConflictCarrier,
		SourceA: "numcheck", SourceB: "twilio",
		ValueA: "AT&T", ValueB: "AT&T Mobility",
	}}

	rec := newAgg().Score(meta, &model.PresenceRecord{Exists: true, Verified: true}, nil, nil, lowRiskPlan())

	assert.Equal(t, 20, rec.Breakdown.ConflictDeduction)
	assert.Equal(t, 85, rec.Score) // 100 - 20 + 5
	require.Len(t, rec.Discrepancies, 1)
	assert.Contains(t, rec.Discrepancies[0], "carrier mismatch")
	assert.Contains(t, rec.Reasoning, "sources disagree")
	assert.NotEmpty(t, rec.Recommendations)
}

func TestScoreInvalidNumber(t *testing.T) {
	meta := &model.MetadataRecord{Valid: false, LineType: model.LineTypeMobile}

	rec := newAgg().Score(meta, nil, nil, nil, lowRiskPlan())

	// -15 invalid, -5 presence skipped on a non-landline.
	assert.Equal(t, 80, rec.Score)
}

func TestScoreUnknownLineType(t *testing.T) {
	meta := &model.MetadataRecord{Valid: true, LineType: model.LineTypeUnknown}

	rec := newAgg().Score(meta, nil, nil, nil, lowRiskPlan())

	assert.Equal(t, 90, rec.Score) // -5 unknown type, -5 presence skipped
}

func TestScoreLandlineWithPresenceIsSuspicious(t *testing.T) {
	meta := validMobile()
	meta.LineType = model.LineTypeLandline

	rec := newAgg().Score(meta, &model.PresenceRecord{Exists: true}, nil, nil, lowRiskPlan())

	assert.Equal(t, 90, rec.Score)
	assert.Contains(t, rec.Discrepancies, "landline reports a messaging presence")
}

func TestScorePresenceSkipped(t *testing.T) {
	t.Run("skipped on mobile deducts", func(t *testing.T) {
		rec := newAgg().Score(validMobile(), nil, nil, nil, lowRiskPlan())
		assert.Equal(t, 95, rec.Score)
		assert.Contains(t, rec.Discrepancies, "presence check skipped")
	})

	t.Run("skipped on landline is expected", func(t *testing.T) {
		meta := validMobile()
		meta.LineType = model.LineTypeLandline
		rec := newAgg().Score(meta, nil, nil, nil, lowRiskPlan())
		assert.Equal(t, 100, rec.Score)
	})
}

func TestScoreHighRiskSingleSource(t *testing.T) {
	plan := model.ExecutionPlan{Risk: model.RiskHigh}

	t.Run("single source deducts", func(t *testing.T) {
		rec := newAgg().Score(validMobile(), &model.PresenceRecord{Exists: true, Verified: true}, nil, nil, plan)
		assert.Equal(t, 95, rec.Score) // 100 - 10 + 5
		assert.Contains(t, rec.Discrepancies, "high-risk country validated by a single source")
	})

	t.Run("dual source does not", func(t *testing.T) {
		meta := validMobile()
		meta.Provenance = model.ProvenanceBoth
		rec := newAgg().Score(meta, &model.PresenceRecord{Exists: true, Verified: true}, nil, nil, plan)
		assert.Equal(t, 100, rec.Score)
	})
}

func TestScoreInactivityDeduction(t *testing.T) {
	inact := &model.InactivityRecord{
		IsInactive:          true,
		DeliveryProbability: 20,
		Severity:            model.SeverityHigh,
	}

	rec := newAgg().Score(validMobile(), &model.PresenceRecord{Exists: true, Verified: true}, inact, nil, lowRiskPlan())

	// 0.5 x (100 - 20) = 40.
	assert.Equal(t, 40, rec.Breakdown.InactivityDeduction)
	assert.Equal(t, 65, rec.Score)
	assert.NotEmpty(t, rec.Recommendations)
}

func TestScoreActiveNumberNoInactivityDeduction(t *testing.T) {
	inact := &model.InactivityRecord{IsInactive: false, DeliveryProbability: 90}

	rec := newAgg().Score(validMobile(), &model.PresenceRecord{Exists: true, Verified: true}, inact, nil, lowRiskPlan())

	assert.Equal(t, 0, rec.Breakdown.InactivityDeduction)
	assert.Equal(t, 100, rec.Score)
}

func TestScoreClampsAtZero(t *testing.T) {
	meta := &model.MetadataRecord{
		Valid:    false,
		LineType: model.LineTypeUnknown,
		Conflicts: []model.Conflict{{
			Field: model.ConflictValidity, SourceA: "a", SourceB: "b",
			ValueA: "valid", ValueB: "invalid",
		}},
	}
	inact := &model.InactivityRecord{IsInactive: true, DeliveryProbability: 0}
	retries := []model.RetryContext{{Attempts: 3}, {Attempts: 3}}

	rec := newAgg().Score(meta, nil, inact, retries, lowRiskPlan())

	assert.Equal(t, 0, rec.Score)
	assert.Contains(t, rec.Reasoning, "very low confidence")
}

func TestScoreBusinessBonus(t *testing.T) {
	presence := &model.PresenceRecord{Exists: true, Verified: true, IsLikelyBusiness: true}

	rec := newAgg().Score(validMobile(), presence, nil, []model.RetryContext{{Attempts: 2}}, lowRiskPlan())

	// 100 - 20 retry + 5 presence + 3 business.
	assert.Equal(t, 88, rec.Score)
	assert.Equal(t, 8, rec.Breakdown.PresenceBonus)
}

func TestScoreDeterministicReasoning(t *testing.T) {
	meta := validMobile()
	presence := &model.PresenceRecord{Exists: true, Verified: true}
	retries := []model.RetryContext{{Attempts: 2}}

	a := newAgg().Score(meta, presence, nil, retries, lowRiskPlan())
	b := newAgg().Score(meta, presence, nil, retries, lowRiskPlan())

	assert.Equal(t, a, b)

	// Ordered clauses: tier, conflicts, retries, presence, discrepancies.
	parts := strings.Split(a.Reasoning, "; ")
	require.Len(t, parts, 5)
	assert.Contains(t, parts[0], "confidence")
	assert.Contains(t, parts[1], "conflict")
	assert.Contains(t, parts[2], "attempts")
	assert.Contains(t, parts[3], "presence")
	assert.Contains(t, parts[4], "discrepancies")
	assert.True(t, strings.HasSuffix(a.Reasoning, "."))
}

func TestTierFor(t *testing.T) {
	assert.Equal(t, "high", tierFor(85))
	assert.Equal(t, "moderate", tierFor(65))
	assert.Equal(t, "low", tierFor(45))
	assert.Equal(t, "very low", tierFor(10))
}
