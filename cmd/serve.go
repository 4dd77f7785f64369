package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/verify-cli/internal/model"
	"github.com/sells-group/verify-cli/internal/store"
)

var servePort int

// validator is the slice of the orchestrator the webhook handlers need.
type validator interface {
	Validate(ctx context.Context, req model.InputRequest) (*model.ValidationResult, error)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start webhook server for validation requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newServeMux(ctx, env.Store, env.Orchestrator),
		}

		// Graceful shutdown. The signal context is already cancelled by the
		// time this fires, so Shutdown gets its own deadline.
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newServeMux builds the webhook routes. ctx bounds the lifetime of async
// validation work spawned by the handlers.
func newServeMux(ctx context.Context, st store.Store, v validator) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /webhook/validate", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Number          string  `json:"number"`
			CountryHint     string  `json:"country_hint"`
			PrioritizeSpeed bool    `json:"prioritize_speed"`
			MaxCostUSD      float64 `json:"max_cost_usd"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if req.Number == "" {
			http.Error(w, `{"error":"number is required"}`, http.StatusBadRequest)
			return
		}

		input := model.InputRequest{
			Number:          req.Number,
			CountryHint:     req.CountryHint,
			PrioritizeSpeed: req.PrioritizeSpeed,
			MaxCostUSD:      req.MaxCostUSD,
		}

		run, err := st.CreateRun(r.Context(), input.Number)
		if err != nil {
			http.Error(w, `{"error":"could not create run"}`, http.StatusInternalServerError)
			return
		}

		// Validate asynchronously; the caller polls the run by ID. The
		// result write is detached from ctx so a shutdown that cancels an
		// in-flight validation still persists its (partial) result instead
		// of leaving the run stuck in "running".
		go func() {
			persistCtx := context.WithoutCancel(ctx)
			_ = st.UpdateRunStatus(persistCtx, run.ID, model.RunStatusRunning)
			result, err := v.Validate(ctx, input)
			if err != nil {
				zap.L().Warn("webhook validation failed",
					zap.String("number", input.Number),
					zap.Error(err),
				)
			}
			if err := st.UpdateRunResult(persistCtx, run.ID, result); err != nil {
				zap.L().Error("webhook persist result failed",
					zap.String("run_id", run.ID),
					zap.Error(err),
				)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "accepted",
			"run_id": run.ID,
		})
	})

	mux.HandleFunc("GET /runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		run, err := st.GetRun(r.Context(), r.PathValue("id"))
		if err != nil {
			http.Error(w, `{"error":"run not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(run)
	})

	return mux
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
