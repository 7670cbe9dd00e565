package strategy

import (
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/rxtech-lab/autotrader/pkg/errors"
)

// DecodeParams decodes raw config parameters over the defaults already in
// target and validates the result. Input is weakly typed, so "10" decodes
// into an int and "5s" into a time.Duration.
func DecodeParams(raw map[string]any, target any) error {
	//nolint:exhaustruct
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           target,
		TagName:          "mapstructure",
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to build parameter decoder", err)
	}

	if err := decoder.Decode(raw); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to decode strategy parameters", err)
	}

	validate := validator.New()
	if err := validate.Struct(target); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid strategy parameters", err)
	}

	return nil
}
