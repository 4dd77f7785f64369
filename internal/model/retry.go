package model

import "time"

// RetryContext records the retry telemetry of one resilience-wrapped stage.
// It is reset per stage and forwarded to the confidence aggregator: retries
// are a scoring signal, not only a recovery mechanism.
type RetryContext struct {
	Attempts      int             `json:"attempts"`
	MaxAttempts   int             `json:"max_attempts"`
	LastError     string          `json:"last_error,omitempty"`
	Delays        []time.Duration `json:"delays,omitempty"`
	UsedBackup    bool            `json:"used_backup"`
	FailedSources []string        `json:"failed_sources,omitempty"`
}

// RetriesUsed returns the number of attempts beyond the first.
func (r RetryContext) RetriesUsed() int {
	if r.Attempts <= 1 {
		return 0
	}
	return r.Attempts - 1
}
