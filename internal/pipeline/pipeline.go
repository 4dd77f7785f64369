// Package pipeline orchestrates one validation run: plan, collect metadata,
// check presence, analyze inactivity, aggregate confidence. It owns the
// per-run audit trail and never persists anything itself.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/verify-cli/internal/collect"
	"github.com/sells-group/verify-cli/internal/inactivity"
	"github.com/sells-group/verify-cli/internal/model"
	"github.com/sells-group/verify-cli/internal/plan"
	"github.com/sells-group/verify-cli/internal/presence"
	"github.com/sells-group/verify-cli/internal/resilience"
	"github.com/sells-group/verify-cli/internal/score"
	"github.com/sells-group/verify-cli/pkg/advisor"
)

// Orchestrator sequences the validation stages for one request at a time.
// Stage components are shared and safe for concurrent runs; all per-run
// state lives in the local run value.
type Orchestrator struct {
	generator  *plan.Generator
	collector  *collect.Collector
	checker    *presence.Checker
	analyzer   *inactivity.Analyzer
	aggregator *score.Aggregator
	advisor    advisor.Client
	timeout    time.Duration
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithAdvisor enables the LLM consistency review. Advisory only; a failed
// review never affects the verdict.
func WithAdvisor(c advisor.Client) Option {
	return func(o *Orchestrator) { o.advisor = c }
}

// WithTimeout bounds a whole run. On expiry in-flight calls and pending
// backoffs are cancelled and the run returns whatever it has, marked
// partial.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// New creates an Orchestrator.
func New(generator *plan.Generator, collector *collect.Collector, checker *presence.Checker, analyzer *inactivity.Analyzer, aggregator *score.Aggregator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		generator:  generator,
		collector:  collector,
		checker:    checker,
		analyzer:   analyzer,
		aggregator: aggregator,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run accumulates per-run state while stages execute.
type run struct {
	id      string
	started time.Time
	result  *model.ValidationResult
}

// trace appends one audit line and mirrors it to the log.
func (r *run) trace(stage, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.result.ActionTrace = append(r.result.ActionTrace, model.TraceEntry{
		At:      time.Now().UTC(),
		Stage:   stage,
		Message: msg,
	})
	zap.L().Info(msg, zap.String("run_id", r.id), zap.String("stage", stage))
}

// reason appends one line to the human-readable reasoning trace.
func (r *run) reason(format string, args ...any) {
	r.result.Reasoning = append(r.result.Reasoning, fmt.Sprintf(format, args...))
}

// Validate runs the full pipeline for one request. It always returns a
// usable ValidationResult; err is non-nil only alongside a structured
// failure result, never instead of one.
func (o *Orchestrator) Validate(ctx context.Context, req model.InputRequest) (*model.ValidationResult, error) {
	r := &run{
		id:      uuid.New().String(),
		started: time.Now(),
	}
	r.result = &model.ValidationResult{RunID: r.id, Input: req}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	defer func() {
		r.result.ElapsedMS = time.Since(r.started).Milliseconds()
	}()

	// Gate: reject inputs that cannot be phone numbers before spending a
	// single network call.
	if !req.IsPlausible() {
		r.trace("gate", "input %q rejected: not a plausible phone number", req.Number)
		return o.fail(r, resilience.CodeNonRecoverable,
			"input must contain 7 to 15 digits"), nil
	}

	// Plan
	p := o.generator.Generate(req)
	r.result.Plan = p
	r.trace("plan", "generated %d-step plan for country %s at %s risk (est. $%.4f)",
		len(p.Steps), p.Country, p.Risk, p.EstCostUSD)
	for _, reason := range p.Reasons {
		r.reason("plan: %s", reason)
	}

	// Metadata. The only stage whose failure is terminal: without it there
	// is nothing to score.
	meta, metaRC, err := o.collector.Collect(ctx, req.Number, p.MetadataSteps())
	if metaRC.Attempts > 0 {
		r.result.Retries = append(r.result.Retries, metaRC)
	}
	if err != nil {
		code := resilience.CodeOf(err)
		r.trace("metadata", "collection failed after %d attempts: %s", metaRC.Attempts, code)
		r.reason("metadata: no source produced data (%s)", code)
		if ctx.Err() != nil {
			r.result.Partial = true
		}
		return o.fail(r, code, suggestionFor(code)), err
	}
	r.result.Metadata = meta
	r.trace("metadata", "collected from %s: country=%s carrier=%q line_type=%s valid=%t",
		meta.Provenance, meta.CountryCode, meta.Carrier, meta.LineType, meta.Valid)
	if metaRC.Attempts > 1 {
		r.reason("metadata: required %d attempts (backup credentials: %t)", metaRC.Attempts, metaRC.UsedBackup)
	}
	for _, c := range meta.Conflicts {
		r.reason("metadata: sources disagree on %s (%q vs %q)", c.Field, c.ValueA, c.ValueB)
	}

	country := p.Country
	if meta.CountryCode != "" {
		country = meta.CountryCode
	}

	// Presence: planned skip wins, then the runtime line-type gate. The
	// checker degrades internally; an error here means cancellation.
	switch {
	case p.SkipPresence:
		r.trace("presence", "skipped by plan")
		r.reason("presence: skipped by plan")
	case meta.LineType == model.LineTypeLandline:
		pres, presRC, perr := o.checker.Check(ctx, req.Number, country, meta)
		if perr == nil {
			r.result.Presence = pres
			if presRC.Attempts > 0 {
				r.result.Retries = append(r.result.Retries, presRC)
			}
			r.trace("presence", "landline: presence impossible without a network call")
			r.reason("presence: landline numbers cannot hold a messaging account")
		}
	case meta.LineType != model.LineTypeMobile:
		r.trace("presence", "skipped: line type %s does not satisfy precondition line_type=mobile", meta.LineType)
		r.reason("presence: skipped, line type is %s", meta.LineType)
	default:
		pres, presRC, perr := o.checker.Check(ctx, req.Number, country, meta)
		if presRC.Attempts > 0 {
			r.result.Retries = append(r.result.Retries, presRC)
		}
		if perr != nil {
			r.trace("presence", "check cancelled: %v", perr)
			r.result.Partial = true
			return o.finish(r, meta, p), nil
		}
		r.result.Presence = pres
		r.trace("presence", "exists=%t verified=%t estimated=%t business=%t",
			pres.Exists, pres.Verified, pres.Estimated, pres.IsLikelyBusiness)
		if pres.Estimated {
			r.reason("presence: source degraded, estimated from country adoption prior")
		}
	}

	// Inactivity. Degrades internally; an error means cancellation.
	inact, ierr := o.analyzer.Analyze(ctx, req.Number, country, meta)
	if ierr != nil {
		r.trace("inactivity", "analysis cancelled: %v", ierr)
		r.result.Partial = true
		return o.finish(r, meta, p), nil
	}
	r.result.Inactivity = inact
	r.trace("inactivity", "score=%d inactive=%t delivery_probability=%d%%",
		inact.Score, inact.IsInactive, inact.DeliveryProbability)
	for _, reason := range inact.Reasons {
		r.reason("inactivity: %s", reason)
	}

	// Advisory review, best effort.
	if o.advisor != nil {
		o.review(ctx, r, meta)
	}

	return o.finish(r, meta, p), nil
}

// finish aggregates whatever the run collected into the final verdict.
func (o *Orchestrator) finish(r *run, meta *model.MetadataRecord, p model.ExecutionPlan) *model.ValidationResult {
	conf := o.aggregator.Score(meta, r.result.Presence, r.result.Inactivity, r.result.Retries, p)
	r.result.Confidence = conf
	r.result.Success = true
	r.trace("aggregate", "confidence %d: %s", conf.Score, conf.Reasoning)
	r.reason("verdict: %s", conf.Reasoning)
	if r.result.Partial {
		r.reason("verdict: run timed out before all stages completed; scored from partial data")
	}
	return r.result
}

// fail builds the structured failure result.
func (o *Orchestrator) fail(r *run, code resilience.Code, suggestion string) *model.ValidationResult {
	r.result.Success = false
	r.result.ErrorCode = string(code)
	r.result.Suggestion = suggestion
	r.reason("verdict: validation failed with %s", code)
	return r.result
}

// review asks the advisor for a consistency opinion. Failures are logged
// and dropped.
func (o *Orchestrator) review(ctx context.Context, r *run, meta *model.MetadataRecord) {
	adv, err := o.advisor.Review(ctx, advisor.ReviewRequest{
		Number:      r.result.Input.Number,
		CountryCode: meta.CountryCode,
		CountryName: meta.CountryName,
		Carrier:     meta.Carrier,
		LineType:    string(meta.LineType),
		Valid:       meta.Valid,
	})
	if err != nil {
		zap.L().Warn("pipeline: advisory review failed", zap.String("run_id", r.id), zap.Error(err))
		return
	}
	r.trace("advisor", "plausible=%t: %s", adv.Plausible, adv.Note)
	if !adv.Plausible {
		r.reason("advisor: %s", adv.Note)
	}
}

// suggestionFor maps a terminal error code to a next step for the caller.
func suggestionFor(code resilience.Code) string {
	switch code {
	case resilience.CodeAuthError:
		return "verify the configured API credentials"
	case resilience.CodeRateLimit:
		return "source rate limits are exhausted; retry after the sources cool down"
	case resilience.CodeNoData:
		return "no source recognizes this number; confirm it exists and is in service"
	case resilience.CodeNetworkError:
		return "check network connectivity to the configured sources"
	case resilience.CodeSystemFailure:
		return "all retries exhausted; retry later or check source status pages"
	default:
		return "the number could not be validated; review the input"
	}
}
