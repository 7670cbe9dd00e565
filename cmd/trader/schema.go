package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rxtech-lab/autotrader/internal/backtest"
	"github.com/rxtech-lab/autotrader/internal/strategy/builtin"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const backtestSchemaName = "backtest-config.json"

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Write JSON schemas for the backtest config and every strategy's parameters",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Output directory",
				Value:   "./config",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			return writeSchemas(cmd.String("dir"))
		},
	}
}

// writeSchemas writes the backtest schema, a sample backtest config when
// none exists yet, and one parameter schema per strategy type.
func writeSchemas(dir string) error {
	if err := os.MkdirAll(filepath.Join(dir, "strategies"), 0o755); err != nil {
		return errors.Wrapf(errors.ErrCodeStorageFailed, err, "failed to create %s", dir)
	}

	cfg := backtest.DefaultConfig()

	schema, err := cfg.GenerateSchemaJSON()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to generate backtest schema", err)
	}

	if err := writeFile(filepath.Join(dir, backtestSchemaName), []byte(schema)); err != nil {
		return err
	}

	samplePath := filepath.Join(dir, "backtest-config.yaml")
	if _, err := os.Stat(samplePath); os.IsNotExist(err) {
		sample, err := yaml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInternal, "failed to encode sample config", err)
		}

		sample = append([]byte("# yaml-language-server: $schema="+backtestSchemaName+"\n"), sample...)
		if err := writeFile(samplePath, sample); err != nil {
			return err
		}
	}

	registry, err := builtin.NewRegistry()
	if err != nil {
		return err
	}

	for _, info := range registry.List() {
		schema, err := registry.Schema(info.Type)
		if err != nil {
			return err
		}

		name := strings.ReplaceAll(info.Type, "/", "-") + ".json"
		if err := writeFile(filepath.Join(dir, "strategies", name), []byte(schema)); err != nil {
			return err
		}
	}

	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrapf(errors.ErrCodeStorageFailed, err, "failed to write %s", path)
	}

	return nil
}
