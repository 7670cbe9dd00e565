package binance

import (
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/autotrader/pkg/errors"
)

// Config contains configuration for the Binance spot connector.
type Config struct {
	Name      string `mapstructure:"name" json:"name" jsonschema:"title=Name,description=Venue name used in signals,default=binance"`
	APIKey    string `mapstructure:"api_key" json:"apiKey" jsonschema:"title=API Key,description=Binance API key" validate:"required"`
	SecretKey string `mapstructure:"secret_key" json:"secretKey" jsonschema:"title=Secret Key,description=Binance API secret key" validate:"required"`
	// BaseURL overrides the REST endpoint and takes precedence over Testnet.
	BaseURL string `mapstructure:"base_url" json:"baseUrl" jsonschema:"title=Base URL"`
	Testnet bool   `mapstructure:"testnet" json:"testnet" jsonschema:"title=Use testnet"`
	// FeePercentage is the taker fee applied to arbitrage and paper fills.
	FeePercentage float64 `mapstructure:"fee_percentage" json:"feePercentage" jsonschema:"title=Fee percentage,default=0.1" validate:"gte=0,lt=100"`
}

// Validate validates the Config struct.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid binance config", err)
	}

	return nil
}
