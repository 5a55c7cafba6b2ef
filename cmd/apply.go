// File: cmd/apply.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/applypilot-cli/internal/browser"
	"github.com/xkilldash9x/applypilot-cli/internal/config"
	"github.com/xkilldash9x/applypilot-cli/internal/jobs"
	"github.com/xkilldash9x/applypilot-cli/internal/llmclient"
	"github.com/xkilldash9x/applypilot-cli/internal/observability"
	"github.com/xkilldash9x/applypilot-cli/internal/profile"
)

// newApplyCmd creates and configures the `apply` command.
func newApplyCmd() *cobra.Command {
	applyCmd := &cobra.Command{
		Use:   "apply",
		Short: "Logs in, searches for matching jobs, and submits applications",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags so they override values from the config file and
			// environment variables with the right precedence.
			if err := viper.BindPFlag("search.max_jobs_per_search", cmd.Flags().Lookup("max-jobs")); err != nil {
				return err
			}
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			// 1. Configuration finalization. Re-unmarshal now that the
			// command's flags are bound.
			var cfg config.Config
			if err := viper.Unmarshal(&cfg); err != nil {
				return fmt.Errorf("failed to re-unmarshal config with flag overrides: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			// A Ctrl-C mid-application should unwind cleanly rather than
			// leave a half-filled form and an orphaned browser.
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("Starting application run",
				zap.Strings("positions", cfg.Search.Positions),
				zap.Strings("locations", cfg.Search.Locations),
				zap.Int("max_jobs_per_search", cfg.Search.MaxJobsPerSearch),
			)

			// 2. Initialize core components.
			prof, err := profile.Load(cfg.Profile, logger)
			if err != nil {
				return fmt.Errorf("failed to load applicant profile: %w", err)
			}

			client, err := llmclient.NewGroqClient(cfg.LLM, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize LLM client: %w", err)
			}
			gateway := llmclient.NewGateway(client, prof, cfg.LLM, logger)

			manager, err := browser.NewManager(ctx, &cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to launch browser: %w", err)
			}
			defer manager.Shutdown()

			session, err := manager.NewSession(ctx)
			if err != nil {
				return fmt.Errorf("failed to open browser session: %w", err)
			}

			recorder, err := jobs.NewRecorder(cfg.Search.RecordsFile, logger)
			if err != nil {
				return fmt.Errorf("failed to open records file: %w", err)
			}
			defer recorder.Close()

			// 3. Run the search-and-apply loop.
			runner := jobs.NewRunner(session, prof, gateway, recorder, &cfg, logger)
			if err := runner.Run(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Warn("Application run aborted gracefully")
					return fmt.Errorf("run aborted by user signal")
				}
				logger.Error("Application run failed", zap.Error(err))
				return err
			}

			logger.Info("Application run completed successfully")
			return nil
		},
	}

	applyCmd.Flags().Int("max-jobs", 0, "Maximum jobs to attempt per search (0 uses the configured value)")
	applyCmd.Flags().Bool("headless", false, "Run the browser without a visible window")

	return applyCmd
}

func init() {
	rootCmd.AddCommand(newApplyCmd())
}
