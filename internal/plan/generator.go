// Package plan turns a raw validation request into an ordered, costed
// execution plan before any network call is made.
package plan

import (
	"fmt"
	"strings"

	"github.com/sells-group/verify-cli/internal/heuristics"
	"github.com/sells-group/verify-cli/internal/model"
	"github.com/sells-group/verify-cli/internal/source"
)

// Per-step cost estimates in USD. Rough list prices; only relative order
// matters for planning.
var stepCosts = map[string]float64{
	source.SourceNumcheck:              0.003,
	source.SourceTwilio:                0.008,
	string(model.CollectorPresence):    0.004,
	string(model.CollectorInactivity):  0.001,
}

// Generator derives execution plans. Pure: no I/O, no clock, no rand.
type Generator struct {
	tables *heuristics.Tables
}

// NewGenerator creates a Generator over the given heuristic tables.
func NewGenerator(t *heuristics.Tables) *Generator {
	return &Generator{tables: t}
}

// Generate inspects the request and decides which collectors to invoke, in
// what order and at what cost. It never fails: unrecognized input falls
// back to country UNKNOWN at low risk.
func (g *Generator) Generate(req model.InputRequest) model.ExecutionPlan {
	digits := req.Digits()

	country := strings.ToUpper(strings.TrimSpace(req.CountryHint))
	if len(country) != 2 {
		country = g.tables.CountryForNumber(digits)
	}
	national := g.tables.NationalNumber(digits, country)

	p := model.ExecutionPlan{
		Country: country,
		Risk:    model.RiskLow,
	}

	// Metadata: high-risk countries get dual independent sources so their
	// answers can be cross-checked; everywhere else a single source keeps
	// cost down.
	metadataSources := []string{source.SourceNumcheck}
	if g.tables.IsHighRisk(country) {
		p.Risk = model.RiskHigh
		metadataSources = append(metadataSources, source.SourceTwilio)
		p.Reasons = append(p.Reasons,
			fmt.Sprintf("country %s is in the high-risk set: dual metadata validation required", country))
	} else {
		p.Reasons = append(p.Reasons,
			fmt.Sprintf("country %s at low risk: single metadata source", country))
	}

	var metadataIDs []string
	for _, src := range metadataSources {
		step := model.PlanStep{
			ID:        fmt.Sprintf("step-%d", len(p.Steps)+1),
			Collector: model.CollectorMetadata,
			Source:    src,
		}
		p.Steps = append(p.Steps, step)
		metadataIDs = append(metadataIDs, step.ID)
		p.EstCostUSD += stepCosts[src]
	}

	// Presence: skipped for landline-likely numbers and speed-priority
	// callers; otherwise gated at runtime on the collected line type.
	switch {
	case g.tables.LandlineLikely(country, national):
		p.SkipPresence = true
		p.Reasons = append(p.Reasons,
			fmt.Sprintf("number pattern in %s is landline-likely: presence check skipped", country))
	case req.PrioritizeSpeed:
		p.SkipPresence = true
		p.Reasons = append(p.Reasons, "speed priority requested: presence check skipped")
	default:
		step := model.PlanStep{
			ID:           fmt.Sprintf("step-%d", len(p.Steps)+1),
			Collector:    model.CollectorPresence,
			Source:       source.SourceWachat,
			Precondition: "line_type=mobile",
			DependsOn:    append([]string(nil), metadataIDs...),
		}
		p.Steps = append(p.Steps, step)
		p.EstCostUSD += stepCosts[string(model.CollectorPresence)]
	}

	inactivity := model.PlanStep{
		ID:        fmt.Sprintf("step-%d", len(p.Steps)+1),
		Collector: model.CollectorInactivity,
		DependsOn: append([]string(nil), metadataIDs...),
	}
	p.Steps = append(p.Steps, inactivity)
	p.EstCostUSD += stepCosts[string(model.CollectorInactivity)]

	if req.MaxCostUSD > 0 && p.EstCostUSD > req.MaxCostUSD {
		// Fraud checks are never dropped for cost; surface the overrun
		// instead.
		p.Reasons = append(p.Reasons,
			fmt.Sprintf("estimated cost $%.4f exceeds requested cap $%.4f", p.EstCostUSD, req.MaxCostUSD))
	}

	// Terminal aggregation step depends on every prior step.
	var allIDs []string
	for _, s := range p.Steps {
		allIDs = append(allIDs, s.ID)
	}
	p.Steps = append(p.Steps, model.PlanStep{
		ID:        fmt.Sprintf("step-%d", len(p.Steps)+1),
		Collector: model.CollectorAggregate,
		DependsOn: allIDs,
	})

	return p
}
