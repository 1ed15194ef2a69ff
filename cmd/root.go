// Package cmd defines the CLI commands of the events-crawler executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/campus-events-crawler/internal/app"
	"github.com/JakeFAU/campus-events-crawler/internal/config"
	"github.com/JakeFAU/campus-events-crawler/internal/event"
	"github.com/JakeFAU/campus-events-crawler/internal/logging"
	"github.com/JakeFAU/campus-events-crawler/internal/media"
	"github.com/JakeFAU/campus-events-crawler/internal/storage/local"
)

// sessionKeyType is the key for storing the session in the command context.
type sessionKeyType string

const sessionKey sessionKeyType = "session"

// Services is what the commands need from the application container.
// Tests inject a fake through the ServicesFactory.
type Services interface {
	Runner() (Runner, error)
	ImageRepairer() (ImageRepairer, error)
	Reports() *local.Dir
	Close()
}

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context) (*event.RunReport, error)
}

// ImageRepairer executes one image repair pass.
type ImageRepairer interface {
	Run(ctx context.Context, opts media.RepairOptions) (media.RepairStats, error)
}

// ServicesFactory builds Services from loaded configuration.
type ServicesFactory func(ctx context.Context, cfg config.Config, logger *zap.Logger) (Services, error)

type session struct {
	cfg      config.Config
	logger   *zap.Logger
	services Services
}

type appServices struct {
	*app.App
}

func (s appServices) Runner() (Runner, error) {
	o, err := s.Pipeline()
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s appServices) ImageRepairer() (ImageRepairer, error) {
	r, err := s.Repairer(http.DefaultClient)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// buildServices is the production ServicesFactory.
func buildServices(ctx context.Context, cfg config.Config, logger *zap.Logger) (Services, error) {
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return appServices{a}, nil
}

// newRootCmd creates the root command. Subcommands find their session in the context.
func newRootCmd(newServices ServicesFactory) *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "events-crawler",
		Short: "Aggregates hackathons and workshops for students",
		Long: `events-crawler scrapes Devfolio, Unstop, and Eventbrite, normalizes and
deduplicates the listings, re-hosts their images, and stores them in the
events backend. Each run writes a JSON report.`,
		SilenceUsage: true,

		// Config and services are built here, after flags are parsed and before RunE.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(logging.Config{
				Development: cfg.Logging.Development,
				Level:       cfg.Logging.Level,
			})
			if err != nil {
				return fmt.Errorf("logger init failed: %w", err)
			}
			zap.ReplaceGlobals(logger)

			services, err := newServices(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			rt := &session{cfg: cfg, logger: logger, services: services}
			cmd.SetContext(context.WithValue(cmd.Context(), sessionKey, rt))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, TOML, or JSON)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newRepairCmd())
	cmd.AddCommand(newServeCmd())
	return cmd
}

// withSession runs fn with the session built by the root command and always releases it,
// including when fn fails.
func withSession(fn func(cmd *cobra.Command, s *session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		s, err := resolveSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()
		return fn(cmd, s)
	}
}

func (s *session) close() {
	s.services.Close()
	_ = s.logger.Sync()
}

func resolveSession(ctx context.Context) (*session, error) {
	if ctx == nil {
		return nil, errors.New("application services not initialized")
	}
	rt, ok := ctx.Value(sessionKey).(*session)
	if !ok || rt == nil {
		return nil, errors.New("application services not initialized")
	}
	return rt, nil
}

// Execute is the main entry point. It exits non-zero when the command fails.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd(buildServices).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
