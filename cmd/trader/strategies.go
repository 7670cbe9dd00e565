package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rxtech-lab/autotrader/internal/strategy/builtin"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

func strategiesCommand() *cli.Command {
	return &cli.Command{
		Name:  "strategies",
		Usage: "List the built-in strategy types",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "schema",
				Usage: "Print the parameter JSON schema of one strategy `TYPE`",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			return listStrategies(cmd.Root().Writer, cmd.String("schema"))
		},
	}
}

func listStrategies(w io.Writer, schemaType string) error {
	registry, err := builtin.NewRegistry()
	if err != nil {
		return err
	}

	if schemaType != "" {
		schema, err := registry.Schema(schemaType)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(w, schema)

		return err
	}

	data, err := yaml.Marshal(registry.List())
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to encode strategy list", err)
	}

	_, err = w.Write(data)

	return err
}
