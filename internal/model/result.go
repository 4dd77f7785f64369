package model

import "time"

// TraceEntry is one ordered, timestamped line of the per-run audit trail.
// The core emits the trace; playback pacing is the caller's concern.
type TraceEntry struct {
	At      time.Time `json:"at"`
	Stage   string    `json:"stage"`
	Message string    `json:"message"`
}

// ValidationResult is the terminal aggregate returned to the caller. The
// orchestrator owns it exclusively; the core never persists it.
type ValidationResult struct {
	RunID      string            `json:"run_id"`
	Input      InputRequest      `json:"input"`
	Plan       ExecutionPlan     `json:"plan"`
	Metadata   *MetadataRecord   `json:"metadata,omitempty"`
	Presence   *PresenceRecord   `json:"presence,omitempty"`
	Inactivity *InactivityRecord `json:"inactivity,omitempty"`
	Confidence ConfidenceRecord  `json:"confidence"`
	Retries    []RetryContext    `json:"retries,omitempty"`

	Success     bool   `json:"success"`
	ErrorCode   string `json:"error_code,omitempty"`
	Suggestion  string `json:"suggestion,omitempty"`
	Partial     bool   `json:"partial,omitempty"`
	ElapsedMS   int64  `json:"elapsed_ms"`
	Reasoning   []string     `json:"reasoning_trace,omitempty"`
	ActionTrace []TraceEntry `json:"action_trace,omitempty"`
}

// RunStatus tracks a stored validation run's lifecycle.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusComplete  RunStatus = "complete"
	RunStatusFailed    RunStatus = "failed"
)

// Run is the persisted audit record of one validation, written by the CLI
// and server layers (never by the pipeline itself).
type Run struct {
	ID        string            `json:"id"`
	Number    string            `json:"number"`
	Status    RunStatus         `json:"status"`
	Result    *ValidationResult `json:"result,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Credentials is one API credential set for an external source.
type Credentials struct {
	Key    string `json:"-"`
	Secret string `json:"-"`
	Label  string `json:"label"`
}

// CredentialPair bundles a primary and optional backup credential set.
// The resilience layer swaps to Backup from the second attempt onward.
type CredentialPair struct {
	Primary Credentials
	Backup  *Credentials
}

// Active returns the credential set for the given attempt (1-based).
func (c CredentialPair) Active(attempt int) Credentials {
	if attempt >= 2 && c.Backup != nil {
		return *c.Backup
	}
	return c.Primary
}
