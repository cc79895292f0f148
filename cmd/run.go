package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/permit-leads/internal/fetcher"
	"github.com/sells-group/permit-leads/internal/model"
	"github.com/sells-group/permit-leads/internal/pipeline"
)

var (
	runSource       string
	runFile         string
	runWindowMonths int
	runMinValue     float64
	runNoStore      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, transform, and store permit leads",
	Long:  "Fetches permit records from the configured source, runs the qualification pipeline, stores the resulting batch, and prints the result envelope as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("run"); err != nil {
			return err
		}

		transformer := pipeline.New(pipeline.Options{
			WindowMonths: windowMonthsOrDefault(runWindowMonths),
			MinValue:     minValueOrDefault(cmd, runMinValue),
			Source:       sourceOrDefault(runSource),
		})

		result := fetchAndTransform(cmd.Context(), transformer)

		if !runNoStore {
			st, err := initStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			batchID, err := st.ReplaceBatch(cmd.Context(), result)
			if err != nil {
				return eris.Wrap(err, "run: store batch")
			}
			result.Metadata.BatchID = batchID
			zap.L().Info("run: batch stored",
				zap.String("batch_id", batchID),
				zap.Int("permits", len(result.Permits)),
			)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return eris.Wrap(err, "run: encode result")
		}

		if result.Status == model.StatusError {
			return eris.Errorf("run: pipeline failed: %s", result.Message)
		}

		return nil
	},
}

// fetchAndTransform acquires one raw batch and runs the pipeline over it.
// Fetch and decode failures become structured data_fetch_error results
// instead of aborting the command with a bare error.
func fetchAndTransform(ctx context.Context, transformer *pipeline.Transformer) *model.TransformResult {
	raw, err := fetchRaw(ctx)
	if err != nil {
		return transformer.FetchError(err)
	}
	return transformer.Transform(raw)
}

// fetchRaw reads the raw batch from the selected source.
func fetchRaw(ctx context.Context) ([]model.RawPermit, error) {
	if runFile != "" {
		return fetcher.DecodeCSVFile(runFile)
	}

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent: cfg.Source.UserAgent,
		Timeout:   time.Duration(cfg.Source.TimeoutSecs) * time.Second,
	})

	switch sourceOrDefault(runSource) {
	case "csv":
		body, err := f.Download(ctx, cfg.Source.CSVURL)
		if err != nil {
			return nil, err
		}
		defer body.Close() //nolint:errcheck
		return fetcher.DecodeCSV(body)
	default:
		body, err := f.Download(ctx, cfg.Source.FeatureServiceURL)
		if err != nil {
			return nil, err
		}
		defer body.Close() //nolint:errcheck
		return fetcher.DecodeFeatureService(body)
	}
}

func sourceOrDefault(source string) string {
	if source == "" {
		return "feature_service"
	}
	return source
}

func windowMonthsOrDefault(months int) int {
	if months > 0 {
		return months
	}
	return cfg.Pipeline.WindowMonths
}

func minValueOrDefault(cmd *cobra.Command, value float64) float64 {
	if cmd.Flags().Changed("min-value") {
		return value
	}
	return cfg.Pipeline.MinValue
}

func init() {
	runCmd.Flags().StringVar(&runSource, "source", "", "data source: feature_service or csv (default feature_service)")
	runCmd.Flags().StringVar(&runFile, "file", "", "read permits from a local CSV file instead of fetching")
	runCmd.Flags().IntVar(&runWindowMonths, "window-months", 0, "recency window in months (default from config)")
	runCmd.Flags().Float64Var(&runMinValue, "min-value", 0, "minimum construction value (default from config)")
	runCmd.Flags().BoolVar(&runNoStore, "no-store", false, "print the result without storing it")
	rootCmd.AddCommand(runCmd)
}
