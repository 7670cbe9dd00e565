package main

import (
	"context"
	"time"

	"github.com/rxtech-lab/autotrader/internal/config"
	"github.com/urfave/cli/v3"
)

func collectCommand() *cli.Command {
	return &cli.Command{
		Name:  "collect",
		Usage: "Collect market data without trading",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "exchange",
				Aliases: []string{"e"},
				Usage:   "Venue for an extra collection group",
			},
			&cli.StringSliceFlag{
				Name:    "symbols",
				Aliases: []string{"s"},
				Usage:   "Symbols for the extra group, e.g. BTC/USDT",
			},
			&cli.DurationFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Collection interval of the extra group",
				Value:   time.Minute,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, err := setup(cmd)
			if err != nil {
				return err
			}
			defer env.stop()

			if exchange := cmd.String("exchange"); exchange != "" {
				env.config.Collector.Groups = append(env.config.Collector.Groups, config.CollectionGroup{
					Exchange: exchange,
					Symbols:  cmd.StringSlice("symbols"),
					Interval: cmd.Duration("interval"),
				})
			}

			c, err := env.container(ctx)
			if err != nil {
				return err
			}

			if err := c.StartCollector(ctx); err != nil {
				shutdownCtx, cancel := env.shutdownContext()
				defer cancel()

				_ = c.ShutdownCollector(shutdownCtx)

				return err
			}

			return waitAndShutdown(ctx, env, c.ShutdownCollector)
		},
	}
}
