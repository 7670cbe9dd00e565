package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rxtech-lab/autotrader/internal/app"
	"github.com/rxtech-lab/autotrader/internal/config"
	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/internal/version"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// environment is what every command starts from.
type environment struct {
	config config.Config
	logger *logger.Logger
	stop   func()
}

// setup loads the config, builds the logger and starts profiling when asked.
func setup(cmd *cli.Command) (*environment, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if cmd.Bool("pyroscope") {
		cfg.Profiling.Enabled = true
	}

	if addr := cmd.String("pyroscope-server"); addr != "" {
		cfg.Profiling.ServerAddress = addr
	}

	log, err := logger.NewLoggerWithConfig(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	stopProfiling, err := startProfiling(cfg.Profiling, log)
	if err != nil {
		return nil, err
	}

	return &environment{
		config: cfg,
		logger: log,
		stop: func() {
			stopProfiling()
			_ = log.Sync()
		},
	}, nil
}

// container builds the app container for commands that need it.
func (env *environment) container(ctx context.Context) (*app.Container, error) {
	return app.New(ctx, env.config, env.logger)
}

// shutdownContext gives components a bounded window to stop after ctx is done.
func (env *environment) shutdownContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), env.config.Engine.StopTimeout)
}

func rootCommand() *cli.Command {
	return &cli.Command{
		Name:    "trader",
		Usage:   "Run strategies, collect market data and backtest",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file",
				Sources: cli.EnvVars("AUTOTRADER_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "pyroscope",
				Usage: "Enable continuous profiling",
			},
			&cli.StringFlag{
				Name:  "pyroscope-server",
				Usage: "Pyroscope server address, e.g. http://localhost:4040",
			},
		},
		Commands: []*cli.Command{
			runCommand(),
			collectCommand(),
			backtestCommand(),
			downloadCommand(),
			strategiesCommand(),
			schemaCommand(),
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// waitAndShutdown blocks until ctx is done and then calls shutdown.
func waitAndShutdown(ctx context.Context, env *environment, shutdown func(ctx context.Context) error) error {
	<-ctx.Done()

	env.logger.Info("shutting down", zap.Error(context.Cause(ctx)))

	shutdownCtx, cancel := env.shutdownContext()
	defer cancel()

	return shutdown(shutdownCtx)
}
