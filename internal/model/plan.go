package model

// Risk classifies how aggressively a request should be cross-checked.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// Collector identifies a pipeline stage a plan step targets.
type Collector string

const (
	CollectorMetadata   Collector = "metadata"
	CollectorPresence   Collector = "presence"
	CollectorInactivity Collector = "inactivity"
	CollectorAggregate  Collector = "aggregate"
)

// PlanStep is one ordered unit of work inside an ExecutionPlan.
type PlanStep struct {
	ID           string    `json:"id"`
	Collector    Collector `json:"collector"`
	Source       string    `json:"source,omitempty"`
	Precondition string    `json:"precondition,omitempty"`
	DependsOn    []string  `json:"depends_on,omitempty"`
}

// ExecutionPlan is the costed list of collection steps chosen for a request
// before any network call is made. Created once by the plan generator and
// consumed read-only by the orchestrator.
type ExecutionPlan struct {
	Country      string     `json:"country"`
	Risk         Risk       `json:"risk"`
	Steps        []PlanStep `json:"steps"`
	SkipPresence bool       `json:"skip_presence"`
	EstCostUSD   float64    `json:"est_cost_usd"`
	Reasons      []string   `json:"reasons"`
}

// MetadataSteps returns the steps targeting the metadata collector, in order.
func (p ExecutionPlan) MetadataSteps() []PlanStep {
	var out []PlanStep
	for _, s := range p.Steps {
		if s.Collector == CollectorMetadata {
			out = append(out, s)
		}
	}
	return out
}
