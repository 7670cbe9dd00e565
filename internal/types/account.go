package types

// MarginMode selects isolated or cross margin on venues that support it.
type MarginMode string

const (
	MarginModeIsolated MarginMode = "isolated"
	MarginModeCross    MarginMode = "cross"
)

// AssetBalance is the free and locked amount of one asset.
type AssetBalance struct {
	Asset  string  `yaml:"asset" json:"asset"`
	Free   float64 `yaml:"free" json:"free"`
	Locked float64 `yaml:"locked" json:"locked"`
}

// Total returns free plus locked.
func (b AssetBalance) Total() float64 {
	return b.Free + b.Locked
}

// Balance is an account's holdings keyed by asset.
type Balance struct {
	Exchange string                  `yaml:"exchange" json:"exchange"`
	Assets   map[string]AssetBalance `yaml:"assets" json:"assets"`
}

// Free returns the free amount of asset, zero when absent.
func (b Balance) Free(asset string) float64 {
	return b.Assets[asset].Free
}

// FeeSchedule holds venue fee rates in percent.
type FeeSchedule struct {
	MakerPercentage float64 `yaml:"maker_percentage" json:"maker_percentage" mapstructure:"maker_percentage" validate:"gte=0,lt=100"`
	TakerPercentage float64 `yaml:"taker_percentage" json:"taker_percentage" mapstructure:"taker_percentage" validate:"gte=0,lt=100"`
}
