// Package config loads the trader configuration from a YAML file with
// environment overrides.
package config

import (
	stderrors "errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/autotrader/internal/advisor"
	"github.com/rxtech-lab/autotrader/internal/backtest"
	"github.com/rxtech-lab/autotrader/internal/connector"
	"github.com/rxtech-lab/autotrader/internal/connector/binance"
	"github.com/rxtech-lab/autotrader/internal/connector/paper"
	"github.com/rxtech-lab/autotrader/internal/connector/polygon"
	"github.com/rxtech-lab/autotrader/internal/execution"
	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/internal/marketdata"
	"github.com/rxtech-lab/autotrader/internal/risk"
	"github.com/rxtech-lab/autotrader/internal/store/relational"
	"github.com/rxtech-lab/autotrader/internal/strategy"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. AUTOTRADER_LOG_LEVEL.
const EnvPrefix = "AUTOTRADER"

type VenueKind string

const (
	VenueBinance VenueKind = "binance"
	VenuePolygon VenueKind = "polygon"
)

// PaperConfig registers a simulated venue named paper-<venue> that fills
// against the live venue's quotes.
type PaperConfig struct {
	Enabled            bool               `mapstructure:"enabled"`
	InitialBalances    map[string]float64 `mapstructure:"initial_balances" validate:"dive,gte=0"`
	FeePercentage      float64            `mapstructure:"fee_percentage" validate:"gte=0,lt=100"`
	SlippagePercentage float64            `mapstructure:"slippage_percentage" validate:"gte=0,lt=100"`
}

// VenueConfig describes one exchange connector. Only the section matching
// Kind is read.
type VenueConfig struct {
	Kind       VenueKind        `mapstructure:"kind" validate:"required,oneof=binance polygon"`
	Binance    binance.Config   `mapstructure:"binance"`
	Polygon    polygon.Config   `mapstructure:"polygon"`
	Resilience connector.Policy `mapstructure:"resilience"`
	Paper      PaperConfig      `mapstructure:"paper"`
}

// Name is the venue name strategies refer to.
func (v VenueConfig) Name() string {
	switch v.Kind {
	case VenuePolygon:
		if v.Polygon.Name != "" {
			return v.Polygon.Name
		}
	default:
		if v.Binance.Name != "" {
			return v.Binance.Name
		}
	}

	return string(v.Kind)
}

// PaperConnectorConfig returns the paper venue settings for this venue.
// Asset keys are upper-cased since viper lower-cases map keys.
func (v VenueConfig) PaperConnectorConfig() paper.Config {
	balances := make(map[string]float64, len(v.Paper.InitialBalances))
	for asset, amount := range v.Paper.InitialBalances {
		balances[strings.ToUpper(asset)] = amount
	}

	return paper.Config{
		Name:               connector.PaperName(v.Name()),
		InitialBalances:    balances,
		FeePercentage:      v.Paper.FeePercentage,
		SlippagePercentage: v.Paper.SlippagePercentage,
	}
}

// Validate checks the section selected by Kind.
func (v *VenueConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid venue config", err)
	}

	switch v.Kind {
	case VenuePolygon:
		return v.Polygon.Validate()
	default:
		return v.Binance.Validate()
	}
}

// CollectionGroup is a collector schedule started with the run and collect commands.
type CollectionGroup struct {
	Exchange string        `mapstructure:"exchange" validate:"required"`
	Symbols  []string      `mapstructure:"symbols" validate:"required,min=1,dive,required"`
	Interval time.Duration `mapstructure:"interval" validate:"gte=0"`
}

type CollectorConfig struct {
	marketdata.Config `mapstructure:",squash"`
	Groups []CollectionGroup `mapstructure:"groups" validate:"dive"`
}

type TimeSeriesConfig struct {
	// Path is the DuckDB file; empty keeps the store in memory.
	Path string `mapstructure:"path"`
}

type ProfilingConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	ApplicationName string `mapstructure:"application_name" validate:"required_if=Enabled true"`
	ServerAddress   string `mapstructure:"server_address" validate:"required_if=Enabled true"`
}

// Config is the whole trader configuration.
type Config struct {
	Log        logger.Config     `mapstructure:"log"`
	Database   relational.Config `mapstructure:"database"`
	TimeSeries TimeSeriesConfig  `mapstructure:"timeseries"`
	Venues     []VenueConfig     `mapstructure:"venues"`
	Collector  CollectorConfig   `mapstructure:"collector"`
	Risk       risk.Config       `mapstructure:"risk"`
	Engine     strategy.Config   `mapstructure:"engine"`
	Execution  execution.Config  `mapstructure:"execution"`
	Advisor    advisor.Config    `mapstructure:"advisor"`
	Backtest   backtest.Config   `mapstructure:"backtest"`
	Profiling  ProfilingConfig   `mapstructure:"profiling"`
	// StrategyFiles are YAML strategy configs registered at startup.
	StrategyFiles []string `mapstructure:"strategy_files"`
}

// Default returns a config that runs with an in-memory sqlite database, an
// in-memory DuckDB store and no venues.
func Default() Config {
	return Config{
		Log: logger.Config{
			Level:      "info",
			Format:     "json",
			File:       "",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		//nolint:exhaustruct
		Database:   relational.Config{Driver: relational.DriverSQLite, DSN: "file::memory:?cache=shared"},
		TimeSeries: TimeSeriesConfig{Path: ""},
		Venues:     nil,
		Collector:  CollectorConfig{Config: marketdata.DefaultConfig(), Groups: nil},
		Risk:       risk.DefaultConfig(),
		Engine:     strategy.DefaultConfig(),
		Execution:  execution.DefaultConfig(),
		Advisor:    advisor.DefaultConfig(),
		Backtest:   backtest.DefaultConfig(),
		Profiling: ProfilingConfig{
			Enabled:         false,
			ApplicationName: "autotrader",
			ServerAddress:   "",
		},
		StrategyFiles: nil,
	}
}

// Load reads path (when not empty) over the defaults, applies AUTOTRADER_*
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if stderrors.As(err, &notFound) {
				return cfg, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "config file %s not found", path)
			}

			return cfg, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to decode config", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// setDefaults registers the scalar keys env overrides may target. Viper
// only consults the environment for keys it already knows.
func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("database.driver", cfg.Database.Driver)
	v.SetDefault("database.dsn", cfg.Database.DSN)
	v.SetDefault("database.host", cfg.Database.Host)
	v.SetDefault("database.port", cfg.Database.Port)
	v.SetDefault("database.user", cfg.Database.User)
	v.SetDefault("database.password", cfg.Database.Password)
	v.SetDefault("database.database", cfg.Database.Database)
	v.SetDefault("timeseries.path", cfg.TimeSeries.Path)
	v.SetDefault("advisor.provider", cfg.Advisor.Provider)
	v.SetDefault("advisor.model", cfg.Advisor.Model)
	v.SetDefault("advisor.api_key", cfg.Advisor.APIKey)
	v.SetDefault("advisor.base_url", cfg.Advisor.BaseURL)
	v.SetDefault("risk.auto_stop_on_drawdown", cfg.Risk.AutoStopOnDrawdown)
	v.SetDefault("profiling.enabled", cfg.Profiling.Enabled)
	v.SetDefault("profiling.application_name", cfg.Profiling.ApplicationName)
	v.SetDefault("profiling.server_address", cfg.Profiling.ServerAddress)
}

// Validate checks every section.
func (c *Config) Validate() error {
	validate := validator.New()

	if err := validate.Struct(&c.Profiling); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid profiling config", err)
	}

	if err := validate.Struct(&c.Collector); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid collector config", err)
	}

	if err := validate.Struct(&c.Log); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid log config", err)
	}

	validators := []func() error{
		c.Database.Validate,
		c.Risk.Validate,
		c.Engine.Validate,
		c.Execution.Validate,
		c.Advisor.Validate,
	}

	for _, validateSection := range validators {
		if err := validateSection(); err != nil {
			return err
		}
	}

	names := make(map[string]struct{}, len(c.Venues))

	for i := range c.Venues {
		venue := &c.Venues[i]
		if err := venue.Validate(); err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "venue %d", i)
		}

		name := venue.Name()
		if _, dup := names[name]; dup {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "venue %s configured twice", name)
		}

		names[name] = struct{}{}
	}

	for _, group := range c.Collector.Groups {
		if _, ok := names[group.Exchange]; !ok {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "collection group references unknown venue %s", group.Exchange)
		}
	}

	return nil
}
