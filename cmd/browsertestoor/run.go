package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/browsertestoor/pkg/agent"
	"github.com/ethpandaops/browsertestoor/pkg/config"
	"github.com/ethpandaops/browsertestoor/pkg/engine"
	"github.com/ethpandaops/browsertestoor/pkg/executor"
	"github.com/ethpandaops/browsertestoor/pkg/report"
	"github.com/ethpandaops/browsertestoor/pkg/store"
	"github.com/ethpandaops/browsertestoor/pkg/suite"
	"github.com/ethpandaops/browsertestoor/pkg/upload"
)

var runCmd = &cobra.Command{
	Use:   "run <suite.yaml>",
	Short: "Run a test suite",
	Long:  `Load a YAML suite file and execute its tests against the configured agent.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSuite,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runSuite(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s, err := suite.Load(args[0])
	if err != nil {
		return fmt.Errorf("loading suite: %w", err)
	}

	// Setup context with signal handling.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
	}()

	agents, err := agent.NewManager(log, &cfg.Agent)
	if err != nil {
		return fmt.Errorf("creating agent manager: %w", err)
	}

	outputDir := reportDir(cfg, s)

	exec := executor.NewExecutor(log, &executor.Config{
		RetryDelay:         time.Duration(cfg.Execution.RetryDelay * float64(time.Second)),
		RequestsPerMinute:  cfg.Agent.RequestsPerMinute,
		CaptureScreenshots: cfg.Reporting.Screenshots,
		ScreenshotDir:      filepath.Join(outputDir, "screenshots"),
	})

	eng := engine.New(log, cfg, agents, exec)

	defer func() {
		if err := eng.Cleanup(); err != nil {
			log.WithError(err).Warn("Cleanup failed")
		}
	}()

	run, err := eng.ExecuteSuite(ctx, s)
	if err != nil {
		return fmt.Errorf("executing suite: %w", err)
	}

	reporter := report.New(log, &report.Config{
		OutputDir: outputDir,
		Formats:   reportFormats(cfg, s),
	})

	paths, err := reporter.Write(run.Summary, run.Results)
	if err != nil {
		return fmt.Errorf("writing reports: %w", err)
	}

	for _, p := range paths {
		log.WithField("path", p).Info("Report written")
	}

	report.Console(os.Stdout, run.Summary, run.Results)

	if cfg.Database != nil {
		if err := archiveRun(ctx, cfg, run); err != nil {
			log.WithError(err).Warn("Failed to archive run")
		}
	}

	if cfg.Upload != nil && cfg.Upload.S3 != nil {
		if err := uploadReports(ctx, cfg, outputDir); err != nil {
			log.WithError(err).Warn("Failed to upload reports")
		}
	}

	stats := run.Summary.Statistics
	if bad := stats.Failed + stats.Errors; bad > 0 {
		return &testFailureError{failed: bad, total: stats.TotalTests}
	}

	return nil
}

// testFailureError distinguishes "tests ran and did not pass" from
// harness errors so main can exit with a dedicated code.
type testFailureError struct {
	failed int
	total  int
}

func (e *testFailureError) Error() string {
	return fmt.Sprintf("%d of %d tests did not pass", e.failed, e.total)
}

// loadConfig reads the --config file, or falls back to defaults when
// none is given.
func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		cfg, err := config.Default()
		if err != nil {
			return nil, fmt.Errorf("building default config: %w", err)
		}

		return cfg, nil
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return cfg, nil
}

// reportDir resolves the report directory. The suite's output_dir
// beats the host config.
func reportDir(cfg *config.Config, s *suite.Suite) string {
	if s.OutputDir != "" {
		return s.OutputDir
	}

	return cfg.Reporting.OutputDir
}

// reportFormats resolves the report formats. The suite's
// report_formats beat the host config.
func reportFormats(cfg *config.Config, s *suite.Suite) []string {
	if len(s.ReportFormats) > 0 {
		return s.ReportFormats
	}

	return cfg.Reporting.Formats
}

// archiveRun persists the finished run in the configured database.
func archiveRun(ctx context.Context, cfg *config.Config, run *engine.Run) error {
	st := store.NewStore(log, cfg.Database)
	if err := st.Start(ctx); err != nil {
		return fmt.Errorf("starting store: %w", err)
	}

	defer func() {
		if err := st.Stop(); err != nil {
			log.WithError(err).Warn("Store stop failed")
		}
	}()

	if err := st.SaveRun(
		ctx, run.Summary, run.Results, run.StartTime, run.EndTime,
	); err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	log.WithField("run_id", run.ID).Info("Run archived")

	return nil
}

// uploadReports pushes the report directory to S3-compatible storage.
func uploadReports(ctx context.Context, cfg *config.Config, dir string) error {
	uploader, err := upload.NewS3Uploader(log, cfg.Upload.S3)
	if err != nil {
		return fmt.Errorf("creating S3 uploader: %w", err)
	}

	if err := uploader.Preflight(ctx); err != nil {
		return fmt.Errorf("storage preflight: %w", err)
	}

	if err := uploader.Upload(ctx, dir); err != nil {
		return fmt.Errorf("uploading reports: %w", err)
	}

	return nil
}
