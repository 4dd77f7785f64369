// Package presence implements the messaging-presence stage. When the
// authoritative source is degraded it falls back to a country adoption
// prior instead of failing the pipeline.
package presence

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/verify-cli/internal/heuristics"
	"github.com/sells-group/verify-cli/internal/model"
	"github.com/sells-group/verify-cli/internal/resilience"
	"github.com/sells-group/verify-cli/internal/source"
)

// estimateThreshold is the adoption rate (percent) above which a degraded
// check assumes presence for a valid mobile number.
const estimateThreshold = 50

// Checker determines messaging presence and business likelihood.
type Checker struct {
	src    source.Presence
	creds  model.CredentialPair
	tables *heuristics.Tables
	runner *resilience.Runner
}

// New creates a Checker over the given presence source.
func New(src source.Presence, creds model.CredentialPair, tables *heuristics.Tables, retryCfg resilience.Config) *Checker {
	return &Checker{
		src:    src,
		creds:  creds,
		tables: tables,
		runner: resilience.NewRunner("presence", retryCfg),
	}
}

// Check resolves presence for the number. Landlines are never present on
// the platform. When the source fails terminally (including auth failure
// without a backup credential), the record degrades to a prior-based
// estimate, P(presence | line type, country adoption, validity), rather
// than aborting; only context cancellation propagates as an error.
func (c *Checker) Check(ctx context.Context, number, country string, meta *model.MetadataRecord) (*model.PresenceRecord, model.RetryContext, error) {
	national := c.tables.NationalNumber(digitsOf(number), country)

	if meta != nil && meta.LineType == model.LineTypeLandline {
		rec := &model.PresenceRecord{Exists: false}
		c.applyBusiness(rec, country, national, meta, false)
		return rec, model.RetryContext{}, nil
	}

	resp, rc, err := resilience.ExecuteVal(ctx, c.runner, c.creds.Backup != nil,
		func(ctx context.Context, attempt resilience.Attempt) (*source.PresenceResponse, error) {
			return c.src.Lookup(ctx, number, c.creds.Active(attemptFor(attempt)))
		})
	if err != nil {
		if ctx.Err() != nil {
			return nil, rc, err
		}
		// Degrade to the adoption prior.
		rate := c.tables.AdoptionRate(country)
		rec := &model.PresenceRecord{
			Exists:    meta != nil && meta.Valid && rate >= estimateThreshold,
			Estimated: true,
		}
		c.applyBusiness(rec, country, national, meta, false)
		zap.L().Warn("presence: source degraded, using adoption prior",
			zap.String("country", country),
			zap.Float64("adoption_rate", rate),
			zap.String("cause", string(resilience.CodeOf(err))),
		)
		return rec, rc, nil
	}

	rec := &model.PresenceRecord{
		Exists:       resp.Registered,
		Verified:     resp.Verified,
		ProfileName:  resp.ProfileName,
		LastSeenHint: resp.LastSeenHint,
	}
	c.applyBusiness(rec, country, national, meta, resp.BusinessHint)
	return rec, rc, nil
}

func (c *Checker) applyBusiness(rec *model.PresenceRecord, country, national string, meta *model.MetadataRecord, carrierFlag bool) {
	score, indicators := businessScore(country, national, meta, carrierFlag, c.tables)
	rec.IsLikelyBusiness = score >= businessThreshold
	rec.BusinessConfidence = float64(score) / 100
	rec.BusinessIndicators = indicators
}

func attemptFor(a resilience.Attempt) int {
	if a.UseBackup {
		return 2
	}
	return 1
}

func digitsOf(number string) string {
	return model.InputRequest{Number: number}.Digits()
}
