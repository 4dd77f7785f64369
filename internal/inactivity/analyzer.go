// Package inactivity estimates how dormant a number likely is from delivery
// history, carrier reachability and regional adoption priors.
package inactivity

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/verify-cli/internal/heuristics"
	"github.com/sells-group/verify-cli/internal/model"
	"github.com/sells-group/verify-cli/internal/resilience"
	"github.com/sells-group/verify-cli/internal/source"
	"github.com/sells-group/verify-cli/internal/store"
)

// Weights holds the additive penalty table. The values are tuned defaults,
// not physical constants; config may override them.
type Weights struct {
	HighFailureRate int `yaml:"high_failure_rate" mapstructure:"high_failure_rate"`
	ModFailureRate  int `yaml:"mod_failure_rate" mapstructure:"mod_failure_rate"`
	StaleTwoYears   int `yaml:"stale_two_years" mapstructure:"stale_two_years"`
	StaleOneYear    int `yaml:"stale_one_year" mapstructure:"stale_one_year"`
	StaleSixMonths  int `yaml:"stale_six_months" mapstructure:"stale_six_months"`
	StaleOneMonth   int `yaml:"stale_one_month" mapstructure:"stale_one_month"`
	CarrierInactive int `yaml:"carrier_inactive" mapstructure:"carrier_inactive"`
	Landline        int `yaml:"landline" mapstructure:"landline"`
	VoIP            int `yaml:"voip" mapstructure:"voip"`
	LowAdoption     int `yaml:"low_adoption" mapstructure:"low_adoption"`

	InactiveThreshold    int     `yaml:"inactive_threshold" mapstructure:"inactive_threshold"`
	LowAdoptionThreshold float64 `yaml:"low_adoption_threshold" mapstructure:"low_adoption_threshold"`
}

// DefaultWeights returns the standard penalty table.
func DefaultWeights() Weights {
	return Weights{
		HighFailureRate:      35,
		ModFailureRate:       20,
		StaleTwoYears:        40,
		StaleOneYear:         30,
		StaleSixMonths:       20,
		StaleOneMonth:        10,
		CarrierInactive:      30,
		Landline:             25,
		VoIP:                 10,
		LowAdoption:          15,
		InactiveThreshold:    50,
		LowAdoptionThreshold: 40,
	}
}

// Analyzer combines delivery history and carrier reachability into a
// dormancy estimate.
type Analyzer struct {
	history store.DeliveryHistory
	carrier source.CarrierStatus
	creds   model.CredentialPair
	tables  *heuristics.Tables
	weights Weights
	runner  *resilience.Runner
	now     func() time.Time
}

// New creates an Analyzer. carrier may be nil when no reachability source
// is configured; the analysis then relies on history and priors alone.
func New(history store.DeliveryHistory, carrier source.CarrierStatus, creds model.CredentialPair, tables *heuristics.Tables, weights Weights, retryCfg resilience.Config) *Analyzer {
	return &Analyzer{
		history: history,
		carrier: carrier,
		creds:   creds,
		tables:  tables,
		weights: weights,
		runner:  resilience.NewRunner("inactivity", retryCfg),
		now:     time.Now,
	}
}

// WithNow fixes the clock for tests.
func (a *Analyzer) WithNow(now func() time.Time) *Analyzer {
	a.now = now
	return a
}

// Analyze runs the history and carrier lookups concurrently (they have no
// data dependency) and scores the joined result. Either lookup failing
// degrades to a conservative default instead of aborting the other; absence
// of delivery history is neutral, never a penalty.
func (a *Analyzer) Analyze(ctx context.Context, number, country string, meta *model.MetadataRecord) (*model.InactivityRecord, error) {
	var (
		hist   *model.DeliveryHistory
		status *source.CarrierStatusResponse
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h, err := a.history.QueryHistory(gctx, number)
		if err != nil {
			zap.L().Warn("inactivity: history lookup degraded", zap.Error(err))
			return nil
		}
		hist = h
		return nil
	})
	if a.carrier != nil {
		g.Go(func() error {
			s, _, err := resilience.ExecuteVal(gctx, a.runner, a.creds.Backup != nil,
				func(ctx context.Context, attempt resilience.Attempt) (*source.CarrierStatusResponse, error) {
					n := 1
					if attempt.UseBackup {
						n = 2
					}
					return a.carrier.Status(ctx, number, a.creds.Active(n))
				})
			if err != nil {
				zap.L().Warn("inactivity: carrier status degraded", zap.Error(err))
				return nil
			}
			status = s
			return nil
		})
	}
	_ = g.Wait()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	return a.score(hist, status, country, meta), nil
}

func (a *Analyzer) score(hist *model.DeliveryHistory, status *source.CarrierStatusResponse, country string, meta *model.MetadataRecord) *model.InactivityRecord {
	w := a.weights
	rec := &model.InactivityRecord{
		CountryAdoptionRate: a.tables.AdoptionRate(country),
	}
	score := 0

	switch {
	case hist == nil:
		rec.Reasons = append(rec.Reasons, "delivery history unavailable")
	case hist.TotalMessages == 0:
		rec.Reasons = append(rec.Reasons, "no history available")
	default:
		rate := hist.FailureRate()
		switch {
		case rate > 0.8:
			score += w.HighFailureRate
			rec.Reasons = append(rec.Reasons, fmt.Sprintf("message failure rate %.0f%%", rate*100))
		case rate > 0.5:
			score += w.ModFailureRate
			rec.Reasons = append(rec.Reasons, fmt.Sprintf("message failure rate %.0f%%", rate*100))
		}

		if hist.LastSuccessAt != nil {
			days := int(a.now().Sub(*hist.LastSuccessAt).Hours() / 24)
			rec.DaysSinceLastSuccess = days
			switch {
			case days > 730:
				score += w.StaleTwoYears
				rec.Reasons = append(rec.Reasons, "no successful delivery in over two years")
			case days > 365:
				score += w.StaleOneYear
				rec.Reasons = append(rec.Reasons, "no successful delivery in over a year")
			case days > 180:
				score += w.StaleSixMonths
				rec.Reasons = append(rec.Reasons, "no successful delivery in over six months")
			case days > 30:
				score += w.StaleOneMonth
				rec.Reasons = append(rec.Reasons, "no successful delivery in over a month")
			}
		} else if hist.DeliveredMessages == 0 && hist.FailedMessages > 0 {
			rec.Reasons = append(rec.Reasons, "no successful delivery on record")
		}
	}

	if status != nil && !status.Active {
		score += w.CarrierInactive
		rec.Reasons = append(rec.Reasons, "carrier reports number inactive")
	}

	if meta != nil {
		switch meta.LineType {
		case model.LineTypeLandline:
			score += w.Landline
			rec.Reasons = append(rec.Reasons, "landline cannot hold a messaging account")
		case model.LineTypeVoIP:
			score += w.VoIP
			rec.Reasons = append(rec.Reasons, "voip numbers churn frequently")
		}
	}

	if rec.CountryAdoptionRate < w.LowAdoptionThreshold {
		score += w.LowAdoption
		rec.Reasons = append(rec.Reasons, fmt.Sprintf("low platform adoption in %s (%.0f%%)", country, rec.CountryAdoptionRate))
	}

	if score > 100 {
		score = 100
	}
	rec.Score = score
	rec.IsInactive = score >= w.InactiveThreshold
	rec.DeliveryProbability = clamp(100-score, 0, 100)
	rec.Severity = severityFor(score)
	rec.SuggestedChannels = suggestChannels(rec.Severity, lineTypeOf(meta))
	return rec
}

func severityFor(score int) model.Severity {
	switch {
	case score >= 80:
		return model.SeverityCritical
	case score >= 60:
		return model.SeverityHigh
	case score >= 40:
		return model.SeverityModerate
	case score >= 20:
		return model.SeverityLow
	default:
		return model.SeverityNone
	}
}

// suggestChannels picks alternative outreach channels by severity and line
// type.
func suggestChannels(sev model.Severity, lt model.LineType) []model.Channel {
	switch sev {
	case model.SeverityHigh, model.SeverityCritical:
		if lt == model.LineTypeMobile {
			return []model.Channel{model.ChannelSMS, model.ChannelVoice, model.ChannelEmail, model.ChannelMail}
		}
		return []model.Channel{model.ChannelVoice, model.ChannelMail}
	case model.SeverityModerate:
		if lt == model.LineTypeMobile {
			return []model.Channel{model.ChannelSMS, model.ChannelEmail}
		}
		return []model.Channel{model.ChannelEmail}
	default:
		return nil
	}
}

func lineTypeOf(meta *model.MetadataRecord) model.LineType {
	if meta == nil {
		return model.LineTypeUnknown
	}
	return meta.LineType
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
