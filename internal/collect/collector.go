// Package collect implements the metadata stage: it queries the plan's
// metadata sources, normalizes and merges their answers, and flags
// cross-source conflicts for the aggregator.
package collect

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/verify-cli/internal/heuristics"
	"github.com/sells-group/verify-cli/internal/model"
	"github.com/sells-group/verify-cli/internal/resilience"
	"github.com/sells-group/verify-cli/internal/source"
)

// Collector queries one or more metadata sources under the retry policy.
type Collector struct {
	sources  map[string]source.Metadata
	creds    map[string]model.CredentialPair
	breakers map[string]*resilience.Breaker
	tables   *heuristics.Tables
	runner   *resilience.Runner
}

// New creates a Collector over the registered sources. Each source gets its
// own circuit breaker so one consistently failing provider is cut off
// without burning every request's retry budget.
func New(sources []source.Metadata, creds map[string]model.CredentialPair, tables *heuristics.Tables, retryCfg resilience.Config, breakerCfg resilience.BreakerConfig) *Collector {
	c := &Collector{
		sources:  make(map[string]source.Metadata, len(sources)),
		creds:    creds,
		breakers: make(map[string]*resilience.Breaker, len(sources)),
		tables:   tables,
		runner:   resilience.NewRunner("collect", retryCfg),
	}
	for _, s := range sources {
		c.sources[s.Name()] = s
		c.breakers[s.Name()] = resilience.NewBreaker(s.Name(), breakerCfg)
	}
	return c
}

// Collect runs the plan's metadata steps. Per attempt: an auth failure
// aborts the attempt immediately (the retry layer decides whether a backup
// credential justifies another pass); any other per-source failure skips
// that source and continues; zero usable sources fails the attempt with
// NO_DATA, which is recoverable.
func (c *Collector) Collect(ctx context.Context, number string, steps []model.PlanStep) (*model.MetadataRecord, model.RetryContext, error) {
	hasBackup := false
	for _, pair := range c.creds {
		if pair.Backup != nil {
			hasBackup = true
			break
		}
	}

	var failed []string
	record, rc, err := resilience.ExecuteVal(ctx, c.runner, hasBackup,
		func(ctx context.Context, attempt resilience.Attempt) (*model.MetadataRecord, error) {
			rec, f, err := c.collectOnce(ctx, number, steps, attempt)
			failed = append(failed, f...)
			return rec, err
		})
	rc.FailedSources = dedupe(failed)
	if err != nil {
		return nil, rc, err
	}
	return record, rc, nil
}

// dedupe drops repeats while keeping first-seen order.
func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// collectOnce is a single pass over the plan's metadata sources. It returns
// the names of sources that failed or were skipped during the pass.
func (c *Collector) collectOnce(ctx context.Context, number string, steps []model.PlanStep, attempt resilience.Attempt) (*model.MetadataRecord, []string, error) {
	var results []normalized
	var failed []string

	for _, step := range steps {
		if step.Collector != model.CollectorMetadata {
			continue
		}
		src, ok := c.sources[step.Source]
		if !ok {
			zap.L().Warn("collect: plan names unregistered source", zap.String("source", step.Source))
			continue
		}

		breaker := c.breakers[step.Source]
		if err := breaker.Allow(); err != nil {
			failed = append(failed, step.Source)
			zap.L().Warn("collect: source circuit open, skipping", zap.String("source", step.Source))
			continue
		}

		creds := c.creds[step.Source].Active(attemptNumberFor(attempt))
		resp, err := src.Lookup(ctx, number, creds)
		breaker.Record(err)
		if err != nil {
			if resilience.CodeOf(err) == resilience.CodeAuthError {
				// Not recoverable within this pass; hand control back to
				// the retry layer for credential failover.
				return nil, append(failed, step.Source), err
			}
			failed = append(failed, step.Source)
			zap.L().Warn("collect: source failed, continuing",
				zap.String("source", step.Source),
				zap.Int("attempt", attempt.Number),
				zap.Error(err),
			)
			continue
		}

		results = append(results, normalize(resp, c.tables))
	}

	if len(results) == 0 {
		return nil, failed, resilience.WithCode(resilience.CodeNoData,
			eris.Errorf("collect: no metadata source returned data (failed: %v)", failed))
	}

	return merge(results), failed, nil
}

// attemptNumberFor maps the retry layer's backup decision onto credential
// selection: CredentialPair.Active switches to backup from attempt 2.
func attemptNumberFor(a resilience.Attempt) int {
	if a.UseBackup {
		return 2
	}
	return 1
}

// merge folds normalized source results into one record. Later non-empty
// fields override earlier ones, validity is OR'd, and raw payloads are
// concatenated for the audit trail. Conflict detection runs only when two
// distinct sources both returned data.
func merge(results []normalized) *model.MetadataRecord {
	rec := &model.MetadataRecord{LineType: model.LineTypeUnknown}

	for _, r := range results {
		rec.Valid = rec.Valid || r.Valid
		if r.CountryCode != "" {
			rec.CountryCode = r.CountryCode
		}
		if r.CountryName != "" {
			rec.CountryName = r.CountryName
		}
		if r.Carrier != "" {
			rec.Carrier = r.Carrier
		}
		if r.LineType != model.LineTypeUnknown {
			rec.LineType = r.LineType
		}
		if r.Formatted != "" {
			rec.Formatted = r.Formatted
		}
		if len(r.Raw) > 0 {
			rec.Payloads = append(rec.Payloads, model.SourcePayload{Source: r.Source, Raw: r.Raw})
		}
	}

	switch {
	case len(results) >= 2 && results[0].Source != results[1].Source:
		rec.Provenance = model.ProvenanceBoth
		rec.Conflicts = detectConflicts(results[0], results[1])
	case results[0].Source == source.SourceTwilio:
		rec.Provenance = model.ProvenanceSourceB
	default:
		rec.Provenance = model.ProvenanceSourceA
	}

	return rec
}
