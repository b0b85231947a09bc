package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/couchcryptid/storm-grid-etl/internal/adapter/ascgrid"
	"github.com/couchcryptid/storm-grid-etl/internal/adapter/gdal"
	"github.com/couchcryptid/storm-grid-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/storm-grid-etl/internal/adapter/kafka"
	"github.com/couchcryptid/storm-grid-etl/internal/adapter/netcdf"
	"github.com/couchcryptid/storm-grid-etl/internal/adapter/wgrib2"
	"github.com/couchcryptid/storm-grid-etl/internal/config"
	"github.com/couchcryptid/storm-grid-etl/internal/deps"
	"github.com/couchcryptid/storm-grid-etl/internal/domain"
	"github.com/couchcryptid/storm-grid-etl/internal/observability"
	"github.com/couchcryptid/storm-grid-etl/internal/pipeline"
	"github.com/couchcryptid/storm-grid-etl/internal/stage"
	"github.com/spf13/cobra"
)

var (
	metricsOnce sync.Once
	metrics     *observability.Metrics
)

// processMetrics registers the pipeline metrics with the default registry on
// first use.
func processMetrics() *observability.Metrics {
	metricsOnce.Do(func() { metrics = observability.NewMetrics() })
	return metrics
}

type runOptions struct {
	start   string
	end     string
	dataDir string
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Convert every raw file in the configured date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg, err = applyRunOptions(cfg, opts)
			if err != nil {
				return err
			}
			return runPipeline(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.start, "start", "", "First date to process (YYYY-MM-DD), overrides start_date")
	cmd.Flags().StringVar(&opts.end, "end", "", "Last date to process (YYYY-MM-DD), overrides end_date")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "Root of the YYYY/MM/DD tree, overrides data_dir")

	return cmd
}

// applyRunOptions returns a validated copy of cfg with the flag overrides applied.
func applyRunOptions(cfg *config.Config, opts runOptions) (*config.Config, error) {
	var start, end config.Date
	var err error
	if opts.start != "" {
		if start, err = config.ParseDate(opts.start); err != nil {
			return nil, fmt.Errorf("--start: %w", err)
		}
	}
	if opts.end != "" {
		if end, err = config.ParseDate(opts.end); err != nil {
			return nil, fmt.Errorf("--end: %w", err)
		}
	}
	if !start.IsZero() || !end.IsZero() {
		if cfg, err = cfg.WithRange(start, end); err != nil {
			return nil, err
		}
	}
	if opts.dataDir != "" {
		if cfg, err = cfg.WithDataDir(opts.dataDir); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func runPipeline(parent context.Context, cfg *config.Config, out io.Writer) error {
	if parent == nil {
		parent = context.Background()
	}
	logger := observability.NewLogger(cfg)
	m := processMetrics()

	lock, err := pipeline.AcquireLock(cfg.DataDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("release run lock failed", "error", err, "path", lock.Path())
		}
	}()

	for _, s := range deps.Missing(deps.CheckBinaries(deps.Requirements(cfg.WgribPath))) {
		// Cached NetCDF files still convert without the binary.
		logger.Warn("dependency unavailable", "name", s.Name, "detail", s.Detail)
	}

	discoverer, err := pipeline.NewFSDiscoverer(cfg.DataDir, cfg.FilePattern)
	if err != nil {
		return err
	}

	chain := stage.Build(cfg, stage.Adapters{
		Converter: wgrib2.NewConverter(cfg.WgribPath, cfg.WgribTimeout(), logger),
		Variables: netcdf.NewReader(),
		Rasters:   gdal.NewCodec(),
		Text:      ascgrid.NewEncoder(),
	})
	converters := make([]pipeline.Converter, len(chain))
	for i, s := range chain {
		converters[i] = s
	}

	var notifier pipeline.Notifier
	if cfg.KafkaEnabled() {
		pub := kafkaadapter.NewPublisher(cfg, logger)
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		notifier = pub
		logger.Info("conversion events enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	p := pipeline.New(discoverer, converters, notifier, logger, m)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		srv := httpadapter.NewServer(cfg.MetricsAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	summary, runErr := p.Run(ctx, cfg.StartDate.Time, cfg.EndDate.Time)
	reportSummary(out, logger, summary)

	if runErr != nil {
		return fmt.Errorf("run aborted: %w", runErr)
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", summary.Failed, summary.Processed())
	}
	return nil
}

// reportSummary renders a table on a terminal and logs the tallies otherwise.
func reportSummary(out io.Writer, logger *slog.Logger, s domain.RunSummary) {
	if !isTerminal(out) {
		logger.Info("run summary",
			"run_id", s.RunID,
			"days", s.Days,
			"missing_days", s.MissingDays,
			"discovered", s.Discovered,
			"converted", s.Converted,
			"skipped", s.Skipped,
			"failed", s.Failed,
			"failed_files", s.FailedFiles,
			"duration", s.Duration,
		)
		return
	}
	fmt.Fprintln(out, summaryTable(s))
	for _, f := range s.FailedFiles {
		fmt.Fprintf(out, "failed: %s\n", f)
	}
}

func summaryTable(s domain.RunSummary) string {
	return renderReport("Run "+s.RunID, "", []field{
		{"Range", s.Start + " .. " + s.End},
		{"Days", strconv.Itoa(s.Days)},
		{"Missing days", strconv.Itoa(s.MissingDays)},
		{"Files discovered", strconv.Itoa(s.Discovered)},
		{"Converted", strconv.Itoa(s.Converted)},
		{"Skipped (cached)", strconv.Itoa(s.Skipped)},
		{"Failed", strconv.Itoa(s.Failed)},
		{"Duration", s.Duration.Round(time.Millisecond).String()},
	})
}
