package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/verify-cli/internal/collect"
	"github.com/sells-group/verify-cli/internal/heuristics"
	"github.com/sells-group/verify-cli/internal/inactivity"
	"github.com/sells-group/verify-cli/internal/model"
	"github.com/sells-group/verify-cli/internal/pipeline"
	"github.com/sells-group/verify-cli/internal/plan"
	"github.com/sells-group/verify-cli/internal/presence"
	"github.com/sells-group/verify-cli/internal/resilience"
	"github.com/sells-group/verify-cli/internal/score"
	"github.com/sells-group/verify-cli/internal/source"
	"github.com/sells-group/verify-cli/internal/store"
	"github.com/sells-group/verify-cli/pkg/advisor"
	"github.com/sells-group/verify-cli/pkg/numcheck"
	"github.com/sells-group/verify-cli/pkg/twilio"
	"github.com/sells-group/verify-cli/pkg/wachat"
)

// pipelineEnv holds the initialized store and orchestrator shared by the
// validate/batch/serve commands.
type pipelineEnv struct {
	Store        store.Store
	Orchestrator *pipeline.Orchestrator
	Tables       *heuristics.Tables
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "verify.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func loadTables() (*heuristics.Tables, error) {
	if cfg.Heuristics.TablesPath == "" {
		return heuristics.Default(), nil
	}
	t, err := heuristics.LoadFile(cfg.Heuristics.TablesPath)
	if err != nil {
		return nil, eris.Wrap(err, "load heuristic tables")
	}
	zap.L().Info("heuristic tables loaded", zap.String("path", cfg.Heuristics.TablesPath))
	return t, nil
}

func retryConfig() resilience.Config {
	return resilience.Config{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		BaseDelay:      time.Duration(cfg.Retry.BaseDelayMs) * time.Millisecond,
		MaxDelay:       time.Duration(cfg.Retry.MaxDelayMs) * time.Millisecond,
		Multiplier:     cfg.Retry.Multiplier,
		JitterFraction: cfg.Retry.JitterFraction,
	}
}

func breakerConfig() resilience.BreakerConfig {
	return resilience.BreakerConfig{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		ResetTimeout:     time.Duration(cfg.Breaker.ResetTimeoutSecs) * time.Second,
	}
}

// initPipeline sets up the store, API clients and the orchestrator. Callers
// should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	tables, err := loadTables()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	numcheckClient := numcheck.NewClient(
		numcheck.WithBaseURL(cfg.Numcheck.BaseURL),
		numcheck.WithRateLimit(cfg.Numcheck.RateLimitRPS, 1),
	)
	twilioClient := twilio.NewClient(
		twilio.WithBaseURL(cfg.Twilio.BaseURL),
		twilio.WithRateLimit(cfg.Twilio.RateLimitRPS, 1),
	)
	wachatClient := wachat.NewClient(
		wachat.WithBaseURL(cfg.Wachat.BaseURL),
		wachat.WithRateLimit(cfg.Wachat.RateLimitRPS, 1),
	)

	rc := retryConfig()

	collector := collect.New(
		[]source.Metadata{
			&source.NumcheckMetadata{Client: numcheckClient},
			&source.TwilioMetadata{Client: twilioClient},
		},
		map[string]model.CredentialPair{
			source.SourceNumcheck: cfg.Numcheck.Credentials(),
			source.SourceTwilio:   cfg.Twilio.Credentials(),
		},
		tables, rc, breakerConfig(),
	)

	checker := presence.New(
		&source.WachatPresence{Client: wachatClient},
		cfg.Wachat.Credentials(),
		tables, rc,
	)

	analyzer := inactivity.New(
		st,
		&source.TwilioCarrierStatus{Client: twilioClient},
		cfg.Twilio.Credentials(),
		tables, cfg.Inactivity, rc,
	)

	opts := []pipeline.Option{
		pipeline.WithTimeout(time.Duration(cfg.Pipeline.TimeoutSecs) * time.Second),
	}
	if cfg.Advisor.Enabled {
		if cfg.Advisor.Key == "" {
			zap.L().Warn("advisor enabled but no key set (VERIFY_ADVISOR_KEY), skipping")
		} else {
			opts = append(opts, pipeline.WithAdvisor(
				advisor.NewClient(cfg.Advisor.Key, advisor.WithModel(cfg.Advisor.Model)),
			))
			zap.L().Info("advisory review enabled", zap.String("model", cfg.Advisor.Model))
		}
	}

	orch := pipeline.New(
		plan.NewGenerator(tables),
		collector,
		checker,
		analyzer,
		score.New(cfg.Scoring),
		opts...,
	)

	return &pipelineEnv{
		Store:        st,
		Orchestrator: orch,
		Tables:       tables,
	}, nil
}
