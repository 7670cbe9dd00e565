package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the live pipeline until interrupted",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, err := setup(cmd)
			if err != nil {
				return err
			}
			defer env.stop()

			c, err := env.container(ctx)
			if err != nil {
				return err
			}

			if err := c.Start(ctx); err != nil {
				shutdownCtx, cancel := env.shutdownContext()
				defer cancel()

				_ = c.Shutdown(shutdownCtx)

				return err
			}

			return waitAndShutdown(ctx, env, c.Shutdown)
		},
	}
}
