package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/verify-cli/internal/model"
)

var (
	batchFile        string
	batchLimit       int
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Validate numbers from a CSV or XLSX file",
	Long:  "Reads one number per row (first column; optional second column is an ISO country hint) and validates them concurrently.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		reqs, err := loadBatchFile(batchFile)
		if err != nil {
			return err
		}

		concurrency := batchConcurrency
		if concurrency == 0 {
			concurrency = cfg.Batch.MaxConcurrent
		}

		return processBatch(ctx, env, reqs, batchLimit, concurrency)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "path to CSV or XLSX file (required)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of rows to process (0 = all)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "concurrent validations (default from config)")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

// loadBatchFile dispatches on the file extension.
func loadBatchFile(path string) ([]model.InputRequest, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return loadCSV(path)
	case ".xlsx":
		return loadXLSX(path)
	default:
		return nil, eris.Errorf("unsupported batch file type: %s", path)
	}
}

func loadCSV(path string) ([]model.InputRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open csv")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var reqs []model.InputRequest
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "read csv")
		}
		if req, ok := rowToRequest(row); ok {
			reqs = append(reqs, req)
		}
	}
	return reqs, nil
}

func loadXLSX(path string) ([]model.InputRequest, error) {
	wb, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "open xlsx")
	}
	if len(wb.Sheets) == 0 {
		return nil, eris.New("xlsx file has no sheets")
	}

	var reqs []model.InputRequest
	for _, row := range wb.Sheets[0].Rows {
		var cells []string
		for _, c := range row.Cells {
			cells = append(cells, c.String())
		}
		if req, ok := rowToRequest(cells); ok {
			reqs = append(reqs, req)
		}
	}
	return reqs, nil
}

// rowToRequest maps one input row to a request. Blank rows and a "number"
// header row are skipped.
func rowToRequest(row []string) (model.InputRequest, bool) {
	if len(row) == 0 {
		return model.InputRequest{}, false
	}
	number := strings.TrimSpace(row[0])
	if number == "" || strings.EqualFold(number, "number") {
		return model.InputRequest{}, false
	}
	req := model.InputRequest{Number: number}
	if len(row) > 1 {
		req.CountryHint = strings.TrimSpace(row[1])
	}
	return req, true
}

// processBatch validates requests concurrently. Individual failures are
// counted and logged, never abort the batch.
func processBatch(ctx context.Context, env *pipelineEnv, reqs []model.InputRequest, limit, concurrency int) error {
	if len(reqs) == 0 {
		zap.L().Info("no numbers to process")
		return nil
	}
	if limit > 0 && len(reqs) > limit {
		reqs = reqs[:limit]
	}

	zap.L().Info("processing batch",
		zap.Int("numbers", len(reqs)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for _, req := range reqs {
		g.Go(func() error {
			log := zap.L().With(zap.String("number", req.Number))

			run, err := env.Store.CreateRun(gctx, req.Number)
			if err != nil {
				failed.Add(1)
				log.Error("create run failed", zap.Error(err))
				return nil
			}
			_ = env.Store.UpdateRunStatus(gctx, run.ID, model.RunStatusRunning)

			result, verr := env.Orchestrator.Validate(gctx, req)
			if err := env.Store.UpdateRunResult(gctx, run.ID, result); err != nil {
				log.Warn("persist run result failed", zap.Error(err))
			}
			if verr != nil || !result.Success {
				failed.Add(1)
				log.Warn("validation failed",
					zap.String("error_code", result.ErrorCode),
				)
				return nil // don't abort batch on individual failure
			}

			succeeded.Add(1)
			log.Info("validation complete",
				zap.Int("confidence", result.Confidence.Score),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return nil
}
