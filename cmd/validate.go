package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/verify-cli/internal/model"
)

var (
	validateCountry string
	validateSpeed   bool
	validateMaxCost float64
	validateNoStore bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <number>",
	Short: "Validate a single phone number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		req := model.InputRequest{
			Number:          args[0],
			CountryHint:     validateCountry,
			PrioritizeSpeed: validateSpeed,
			MaxCostUSD:      validateMaxCost,
		}

		var runID string
		if !validateNoStore {
			run, err := env.Store.CreateRun(ctx, req.Number)
			if err != nil {
				return err
			}
			runID = run.ID
			_ = env.Store.UpdateRunStatus(ctx, runID, model.RunStatusRunning)
		}

		result, verr := env.Orchestrator.Validate(ctx, req)
		if verr != nil {
			zap.L().Warn("validation failed", zap.String("number", req.Number), zap.Error(verr))
		}

		if runID != "" {
			if err := env.Store.UpdateRunResult(ctx, runID, result); err != nil {
				zap.L().Warn("persist run result failed", zap.String("run_id", runID), zap.Error(err))
			}
		}

		zap.L().Info("validation complete",
			zap.String("number", req.Number),
			zap.Bool("success", result.Success),
			zap.Int("confidence", result.Confidence.Score),
			zap.Int64("elapsed_ms", result.ElapsedMS),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateCountry, "country", "", "ISO country hint (e.g. US, DE)")
	validateCmd.Flags().BoolVar(&validateSpeed, "fast", false, "prioritize speed: skip the presence check")
	validateCmd.Flags().Float64Var(&validateMaxCost, "max-cost", 0, "cost cap in USD (0 = no cap)")
	validateCmd.Flags().BoolVar(&validateNoStore, "no-store", false, "do not persist the run")
	rootCmd.AddCommand(validateCmd)
}
