package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/permit-leads/internal/model"
	"github.com/sells-group/permit-leads/internal/pipeline"
	"github.com/sells-group/permit-leads/internal/server"
)

var (
	servePort            int
	serveRefreshInterval time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the permit lead API",
	Long:  "Starts the JSON API over the stored permit batch, with CSV and XLSX downloads and an on-demand refresh endpoint. With --refresh-interval the batch is also refreshed periodically.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		transformer := pipeline.New(pipeline.Options{
			WindowMonths: cfg.Pipeline.WindowMonths,
			Source:       "feature_service",
		})

		refresh := func(ctx context.Context) (*model.TransformResult, error) {
			result := fetchAndTransform(ctx, transformer)
			batchID, err := st.ReplaceBatch(ctx, result)
			if err != nil {
				return nil, err
			}
			result.Metadata.BatchID = batchID
			return result, nil
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := server.New(st, refresh, port)

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.ListenAndServe(ctx)
		})
		if serveRefreshInterval > 0 {
			g.Go(func() error {
				return refreshLoop(ctx, serveRefreshInterval, refresh)
			})
		}

		return g.Wait()
	},
}

// refreshLoop refreshes the stored batch on a fixed interval until the
// context is cancelled. Refresh failures are logged and retried on the next
// tick; the server keeps serving the previous batch in the meantime.
func refreshLoop(ctx context.Context, interval time.Duration, refresh server.RefreshFunc) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			result, err := refresh(ctx)
			if err != nil {
				zap.L().Error("serve: scheduled refresh failed", zap.Error(err))
				continue
			}
			zap.L().Info("serve: scheduled refresh complete",
				zap.String("status", string(result.Status)),
				zap.Int("permits", result.Summary.TotalPermits),
			)
		}
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().DurationVar(&serveRefreshInterval, "refresh-interval", 0, "periodic refresh interval, e.g. 6h (0 disables)")
	rootCmd.AddCommand(serveCmd)
}
