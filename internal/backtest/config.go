package backtest

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/autotrader/internal/backtest/commission_fee"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
)

// Config describes one simulation run.
type Config struct {
	Strategy types.StrategyConfig `yaml:"strategy" json:"strategy" mapstructure:"strategy" jsonschema:"title=Strategy,description=Strategy configuration to simulate"`
	// Exchange and Symbols default to the strategy's.
	Exchange  string          `yaml:"exchange" json:"exchange" mapstructure:"exchange" jsonschema:"title=Exchange"`
	Symbols   []string        `yaml:"symbols" json:"symbols" mapstructure:"symbols" jsonschema:"title=Symbols" validate:"dive,required"`
	Timeframe types.Timeframe `yaml:"timeframe" json:"timeframe" mapstructure:"timeframe" jsonschema:"title=Timeframe,enum=1m,enum=5m,enum=15m,enum=30m,enum=1h,enum=4h,enum=1d,enum=1w" validate:"omitempty,oneof=1m 5m 15m 30m 1h 4h 1d 1w"`
	Start     time.Time       `yaml:"start" json:"start" mapstructure:"start" jsonschema:"title=Start Time" validate:"required"`
	End       time.Time       `yaml:"end" json:"end" mapstructure:"end" jsonschema:"title=End Time" validate:"required,gtfield=Start"`

	InitialBalance       float64 `yaml:"initial_balance" json:"initial_balance" mapstructure:"initial_balance" jsonschema:"title=Initial Balance,minimum=0" validate:"gt=0"`
	WarmupPeriod         int     `yaml:"warmup_period" json:"warmup_period" mapstructure:"warmup_period" jsonschema:"title=Warmup Candles,default=50" validate:"gte=0"`
	PositionSizeFraction float64 `yaml:"position_size_fraction" json:"position_size_fraction" mapstructure:"position_size_fraction" jsonschema:"title=Fraction of balance per position,default=0.1" validate:"gt=0,lte=1"`
	MaxPositions         int     `yaml:"max_positions" json:"max_positions" mapstructure:"max_positions" jsonschema:"title=Maximum open positions,default=1" validate:"gte=1"`
	MinSignalStrength    float64 `yaml:"min_signal_strength" json:"min_signal_strength" mapstructure:"min_signal_strength" jsonschema:"title=Minimum signal strength" validate:"gte=0,lte=1"`

	// Zero percentages mean no stop or target unless the signal sets one.
	StopLossPercentage   float64       `yaml:"stop_loss_percentage" json:"stop_loss_percentage" mapstructure:"stop_loss_percentage" jsonschema:"title=Stop Loss Percentage" validate:"gte=0,lt=100"`
	TakeProfitPercentage float64       `yaml:"take_profit_percentage" json:"take_profit_percentage" mapstructure:"take_profit_percentage" jsonschema:"title=Take Profit Percentage" validate:"gte=0"`
	MaxHoldingPeriod     time.Duration `yaml:"max_holding_period" json:"max_holding_period" mapstructure:"max_holding_period" jsonschema:"title=Maximum Holding Period" validate:"gte=0"`

	SlippagePercentage float64 `yaml:"slippage_percentage" json:"slippage_percentage" mapstructure:"slippage_percentage" jsonschema:"title=Slippage Percentage" validate:"gte=0,lt=100"`
	EnableFees         bool    `yaml:"enable_fees" json:"enable_fees" mapstructure:"enable_fees" jsonschema:"title=Charge Fees"`
	FeePercentage      float64 `yaml:"fee_percentage" json:"fee_percentage" mapstructure:"fee_percentage" jsonschema:"title=Fee Percentage,default=0.1" validate:"gte=0,lt=100"`
	// SimulatedSpreadPercentage builds a synthetic top of book around each close.
	SimulatedSpreadPercentage float64 `yaml:"simulated_spread_percentage" json:"simulated_spread_percentage" mapstructure:"simulated_spread_percentage" jsonschema:"title=Synthetic Spread Percentage,default=0.1" validate:"gte=0,lt=100"`
	AllowShort                bool    `yaml:"allow_short" json:"allow_short" mapstructure:"allow_short" jsonschema:"title=Allow Short"`
	// RiskFreeRate is annual, as a fraction.
	RiskFreeRate float64 `yaml:"risk_free_rate" json:"risk_free_rate" mapstructure:"risk_free_rate" jsonschema:"title=Annual Risk Free Rate" validate:"gte=0,lt=1"`
}

// DefaultConfig returns a config with the documented defaults and no strategy.
func DefaultConfig() Config {
	//nolint:exhaustruct
	return Config{
		InitialBalance:            10000,
		WarmupPeriod:              50,
		PositionSizeFraction:      0.1,
		MaxPositions:              1,
		FeePercentage:             0.1,
		SimulatedSpreadPercentage: 0.1,
	}
}

// Normalize fills the venue, symbols and timeframe from the strategy.
func (c *Config) Normalize() {
	if c.Exchange == "" {
		c.Exchange = c.Strategy.Exchange
	}

	if len(c.Symbols) == 0 {
		c.Symbols = append([]string(nil), c.Strategy.Symbols...)
	}

	if c.Timeframe == "" {
		c.Timeframe = c.Strategy.Timeframe
	}

	if c.Timeframe == "" {
		c.Timeframe = types.Timeframe1h
	}
}

// Validate checks the run and the embedded strategy config.
func (c *Config) Validate() error {
	if err := c.Strategy.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestConfigError, "invalid backtest strategy", err)
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestConfigError, "invalid backtest config", err)
	}

	if len(c.Symbols) == 0 {
		return errors.New(errors.ErrCodeBacktestConfigError, "backtest needs at least one symbol")
	}

	for _, symbol := range c.Symbols {
		if _, _, err := types.ParseSymbol(symbol); err != nil {
			return errors.Wrap(errors.ErrCodeBacktestConfigError, "invalid backtest symbol", err)
		}
	}

	return nil
}

// CommissionFee returns the fee model for the run.
func (c *Config) CommissionFee() commission_fee.CommissionFee {
	if !c.EnableFees {
		return commission_fee.GetCommissionFeeHandler(commission_fee.ModelZero, 0)
	}

	return commission_fee.GetCommissionFeeHandler(commission_fee.ModelPercentage, c.FeePercentage)
}

// GenerateSchemaJSON returns the JSON schema of Config.
func (c *Config) GenerateSchemaJSON() (string, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
	}

	schema := reflector.Reflect(c)
	schema.Title = "backtest-config"
	schema.Description = "Configuration schema for a backtest run"

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// asMap flattens the config for the stored result.
func (c *Config) asMap() map[string]any {
	out := map[string]any{}

	raw, err := json.Marshal(c)
	if err != nil {
		return out
	}

	_ = json.Unmarshal(raw, &out)

	return out
}
