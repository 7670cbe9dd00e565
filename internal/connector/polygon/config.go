package polygon

import (
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/autotrader/pkg/errors"
)

type Market string

const (
	MarketCrypto Market = "crypto"
	MarketStocks Market = "stocks"
)

// Config contains configuration for the Polygon market data connector.
type Config struct {
	Name   string `mapstructure:"name" json:"name" jsonschema:"title=Name,default=polygon"`
	APIKey string `mapstructure:"api_key" json:"apiKey" jsonschema:"title=API Key,description=Polygon.io API key" validate:"required"`
	// Market selects the ticker namespace. Crypto symbols are sent as X:BASEQUOTE.
	Market Market `mapstructure:"market" json:"market" jsonschema:"title=Market,enum=crypto,enum=stocks,default=crypto" validate:"omitempty,oneof=crypto stocks"`
}

// Validate validates the Config struct.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid polygon config", err)
	}

	return nil
}
