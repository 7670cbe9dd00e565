package main

import (
	"context"
	"fmt"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/internal/marketdata"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func downloadCommand() *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "Backfill historical candles from a venue into the time-series store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "exchange",
				Aliases:  []string{"e"},
				Usage:    "Configured venue to download from",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:     "symbols",
				Aliases:  []string{"s"},
				Usage:    "Symbols to download, e.g. BTC/USDT",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "timeframe",
				Usage: "Candle timeframe",
				Value: string(types.Timeframe1h),
			},
			&cli.TimestampFlag{
				Name:     "start",
				Usage:    "Start date in `YYYY-MM-DD` format",
				Required: true,
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.TimestampFlag{
				Name:  "end",
				Usage: "End date in `YYYY-MM-DD` format. Defaults to now.",
				Value: time.Now(),
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Hide the progress bar",
			},
		},
		Action: downloadAction,
	}
}

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.stop()

	c, err := env.container(ctx)
	if err != nil {
		return err
	}

	defer func() {
		shutdownCtx, cancel := env.shutdownContext()
		defer cancel()

		if err := c.ShutdownCollector(shutdownCtx); err != nil {
			env.logger.Warn("failed to close stores", zap.Error(err))
		}
	}()

	for _, symbol := range cmd.StringSlice("symbols") {
		req := marketdata.BackfillRequest{
			Exchange:  cmd.String("exchange"),
			Symbol:    symbol,
			Timeframe: types.Timeframe(cmd.String("timeframe")),
			Start:     cmd.Timestamp("start"),
			End:       cmd.Timestamp("end"),
		}

		progress := optional.None[marketdata.OnBackfillProgress]()
		if !cmd.Bool("no-progress") {
			var bar *progressbar.ProgressBar

			progress = optional.Some[marketdata.OnBackfillProgress](func(done, total int) {
				if bar == nil {
					bar = progressbar.NewOptions(total,
						progressbar.OptionSetDescription("Downloading "+symbol),
						progressbar.OptionShowCount(),
					)
				}

				_ = bar.Set(done)
			})
		}

		result, err := c.Collector.Backfill(ctx, req, progress)
		if err != nil {
			return err
		}

		fmt.Printf("\n%s: fetched %d candles, stored %d new (%s to %s)\n",
			symbol, result.Fetched, result.Written,
			result.First.Format(time.DateTime), result.Last.Format(time.DateTime))
	}

	return nil
}
