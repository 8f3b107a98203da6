package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/multiply-org/multiply-core/internal/config"
	"github.com/multiply-org/multiply-core/internal/metrics"
	"github.com/multiply-org/multiply-core/internal/storage/s3"
	"github.com/multiply-org/multiply-core/pkg/auxdata"
	"github.com/multiply-org/multiply-core/pkg/fileref"
	"github.com/multiply-org/multiply-core/pkg/health"
	"github.com/multiply-org/multiply-core/pkg/utils"
	"github.com/multiply-org/multiply-core/pkg/validation"
	"github.com/multiply-org/multiply-core/pkg/variables"
)

// application holds the components shared by all commands.
type application struct {
	cfg       *config.Configuration
	logger    *slog.Logger
	logCloser io.Closer
	collector *metrics.Collector
	health    *health.Tracker
	provider  auxdata.Provider
	variables []variables.Variable
	registry  *validation.Registry
	creation  *fileref.Creation
}

// rootOptions are the global flags.
type rootOptions struct {
	configFile string
	verbose    bool
	app        *application
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "multiply",
		Short: "MULTIPLY data access utilities",
		Long: `multiply classifies satellite products and auxiliary files, filters them
by region and time, creates file references and reprojects rasters.

Configuration is read from --config and MULTIPLY_* environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return err
			}
			if opts.verbose {
				cfg.Global.LogLevel = "DEBUG"
			}
			app, err := newApplication(commandContext(cmd), cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			opts.app = app
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.app == nil {
				return nil
			}
			return opts.app.close(context.Background())
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "Configuration file (YAML)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newTypesCmd(opts))
	cmd.AddCommand(newClassifyCmd(opts))
	cmd.AddCommand(newValidForCmd(opts))
	cmd.AddCommand(newFileRefCmd(opts))
	cmd.AddCommand(newReprojectCmd(opts))
	return cmd
}

// newApplication builds logging, metrics, the aux data provider, the
// validator registry and the file reference factory from cfg.
func newApplication(ctx context.Context, cfg *config.Configuration, logOutput io.Writer) (*application, error) {
	lc := cfg.LoggerConfig()
	lc.Output = logOutput
	logger, closer, err := utils.NewLogger(lc)
	if err != nil {
		return nil, err
	}
	app := &application{cfg: cfg, logger: logger, logCloser: closer}

	app.health = health.NewTracker(health.DefaultConfig())
	app.health.RegisterComponent(health.ComponentAuxData)
	app.health.RegisterComponent(health.ComponentReprojection)
	app.health.OnStateChange(func(component string, from, to health.State, err error) {
		logger.Warn("component health changed", "component", component,
			"from", from.String(), "to", to.String(), "error", err)
	})

	app.collector, err = metrics.NewCollector(&metrics.Config{
		Enabled:   cfg.Metrics.Enabled,
		Port:      cfg.Metrics.Port,
		Path:      cfg.Metrics.Path,
		Namespace: cfg.Metrics.Namespace,
		Labels:    cfg.Metrics.CustomLabels,
	}, metrics.WithLogger(logger), metrics.WithHealth(app.health))
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	if err := app.collector.Start(ctx); err != nil {
		_ = closer.Close()
		return nil, err
	}

	provision := auxdata.NewProvision(logger)
	provision.Register(s3.NewCreator(ctx, logger, s3.WithRecorder(app.collector)))
	if cfg.AuxData.SelectionFile != "" {
		app.provider, err = provision.FromFile(cfg.AuxData.SelectionFile)
	} else {
		app.provider, err = provision.Get(cfg.AuxData.Provider, cfg.AuxData.Parameters)
	}
	if err != nil {
		_ = app.close(context.Background())
		return nil, err
	}

	app.variables = variables.Default()
	if cfg.Variables.LibraryFile != "" {
		if app.variables, err = variables.LoadFile(cfg.Variables.LibraryFile); err != nil {
			_ = app.close(context.Background())
			return nil, err
		}
	}

	app.registry, err = validation.NewDefaultRegistry(app.provider, app.variables,
		validation.WithLogger(logger),
		validation.WithRecorder(app.collector))
	if err != nil {
		_ = app.close(context.Background())
		return nil, err
	}
	app.creation = fileref.NewDefaultCreation(app.registry, app.variables, fileref.WithLogger(logger))

	logger.Debug("initialized",
		"aux_data_provider", app.provider.Name(),
		"data_types", len(app.registry.GetValidTypes()))
	return app, nil
}

func (a *application) close(ctx context.Context) error {
	var firstErr error
	if a.collector != nil {
		for op, m := range a.collector.Summary() {
			a.logger.Debug("operation summary", "operation", op, "count", m.Count,
				"errors", m.Errors, "avg_duration", m.AvgDuration)
		}
		a.logger.Debug("health", "status", a.health.Overall().String())
		firstErr = a.collector.Stop(ctx)
	}
	if a.logCloser != nil {
		if err := a.logCloser.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
