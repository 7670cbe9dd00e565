package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/internal/backtest"
	"github.com/rxtech-lab/autotrader/internal/config"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func backtestCommand() *cli.Command {
	return &cli.Command{
		Name:  "backtest",
		Usage: "Replay stored candles through a strategy",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "strategy-file",
				Aliases: []string{"f"},
				Usage:   "Strategy config YAML to simulate",
			},
			&cli.StringFlag{
				Name:  "strategy-id",
				Usage: "Simulate a strategy already stored in the database",
			},
			&cli.TimestampFlag{
				Name:     "start",
				Aliases:  []string{"s"},
				Usage:    "Start date in `YYYY-MM-DD` format",
				Required: true,
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.TimestampFlag{
				Name:    "end",
				Aliases: []string{"e"},
				Usage:   "End date in `YYYY-MM-DD` format. Defaults to now.",
				Value:   time.Now(),
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.FloatFlag{
				Name:  "balance",
				Usage: "Initial balance, overrides the config",
			},
			&cli.StringFlag{
				Name:  "timeframe",
				Usage: "Candle timeframe, defaults to the strategy's",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the full result as YAML to this path",
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Hide the progress bar",
			},
		},
		Action: backtestAction,
	}
}

func backtestAction(ctx context.Context, cmd *cli.Command) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.stop()

	c, err := env.container(ctx)
	if err != nil {
		return err
	}

	shutdownCtx, cancel := env.shutdownContext()
	defer cancel()

	defer func() {
		if err := c.ShutdownCollector(shutdownCtx); err != nil {
			env.logger.Warn("failed to close stores", zap.Error(err))
		}
	}()

	cfg := env.config.Backtest

	switch {
	case cmd.String("strategy-file") != "":
		if cfg.Strategy, err = config.LoadStrategyFile(cmd.String("strategy-file")); err != nil {
			return err
		}
	case cmd.String("strategy-id") != "":
		if cfg.Strategy, err = c.Repository.GetStrategy(ctx, cmd.String("strategy-id")); err != nil {
			return err
		}
	default:
		return errors.New(errors.ErrCodeBacktestConfigError, "either --strategy-file or --strategy-id is required")
	}

	cfg.Start = cmd.Timestamp("start")
	cfg.End = cmd.Timestamp("end")

	if balance := cmd.Float("balance"); balance > 0 {
		cfg.InitialBalance = balance
	}

	if timeframe := cmd.String("timeframe"); timeframe != "" {
		cfg.Timeframe = types.Timeframe(timeframe)
	}

	handle := backtest.NewHandle()

	go func() {
		<-ctx.Done()
		handle.Cancel()
	}()

	progress := optional.None[backtest.OnProcessDataCallback]()
	if !cmd.Bool("no-progress") {
		var bar *progressbar.ProgressBar

		progress = optional.Some[backtest.OnProcessDataCallback](func(current, total int) {
			if bar == nil {
				bar = progressbar.Default(int64(total), "backtesting")
			}

			_ = bar.Set(current)
		})
	}

	result, err := c.Backtest.Run(ctx, cfg, handle, progress)
	if err != nil {
		return err
	}

	printMetrics(result.Metrics)

	if path := cmd.String("output"); path != "" {
		if err := writeResult(path, result); err != nil {
			return err
		}

		env.logger.Info("backtest result written", zap.String("path", path))
	}

	return nil
}

func printMetrics(metrics types.BacktestMetrics) {
	fmt.Println()
	fmt.Printf("Final balance:   %.2f (%+.2f%%)\n", metrics.FinalBalance, metrics.TotalReturnPercentage)
	fmt.Printf("Trades:          %d (won %d, lost %d, win rate %.1f%%)\n",
		metrics.TotalTrades, metrics.WinningTrades, metrics.LosingTrades, metrics.WinRate*100)
	fmt.Printf("Profit factor:   %.2f\n", metrics.ProfitFactor)
	fmt.Printf("Sharpe/Sortino:  %.2f / %.2f\n", metrics.SharpeRatio, metrics.SortinoRatio)
	fmt.Printf("Max drawdown:    %.2f (%.2f%%)\n", metrics.MaxDrawdown, metrics.MaxDrawdownPercentage)
	fmt.Printf("Fees:            %.2f\n", metrics.TotalFees)
}

func writeResult(path string, result types.BacktestResult) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to encode backtest result", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrapf(errors.ErrCodeStorageFailed, err, "failed to write %s", path)
	}

	return nil
}
