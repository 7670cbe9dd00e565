package strategy

import (
	"encoding/json"
	"testing"

	"github.com/rxtech-lab/autotrader/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type RegistryTestSuite struct {
	suite.Suite
	registry *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

type sampleParams struct {
	Period int     `mapstructure:"period" json:"period" jsonschema:"title=Period,minimum=1,default=14" validate:"gt=0"`
	Factor float64 `mapstructure:"factor" json:"factor" jsonschema:"title=Factor"`
}

func sampleFactory(_ Dependencies) (Strategy, error) {
	return nil, nil
}

func (suite *RegistryTestSuite) SetupTest() {
	suite.registry = NewRegistry()
}

func (suite *RegistryTestSuite) definition(strategyType, version string) Definition {
	return Definition{
		Type:         strategyType,
		Version:      version,
		Description:  strategyType + " strategy",
		Params:       sampleParams{Period: 14, Factor: 1},
		Factory:      sampleFactory,
		Backtestable: true,
	}
}

func (suite *RegistryTestSuite) TestRegister() {
	//nolint:exhaustruct
	tests := []struct {
		name       string
		definition Definition
		expected   errors.ErrorCode
		ok         bool
	}{
		{name: "valid", definition: suite.definition("trend", "1.2.0"), ok: true},
		{name: "v prefix", definition: suite.definition("grid", "v0.1.0"), ok: true},
		{name: "bad version", definition: suite.definition("bad", "one"), expected: errors.ErrCodeInvalidVersion},
		{name: "missing type", definition: suite.definition("", "1.0.0"), expected: errors.ErrCodeInvalidParameter},
		{name: "missing factory", definition: Definition{Type: "x", Version: "1.0.0"}, expected: errors.ErrCodeInvalidParameter},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			err := suite.registry.Register(tc.definition)
			if tc.ok {
				suite.NoError(err)
			} else {
				suite.Equal(tc.expected, errors.GetCode(err))
			}
		})
	}
}

func (suite *RegistryTestSuite) TestRegisterDuplicate() {
	suite.Require().NoError(suite.registry.Register(suite.definition("trend", "1.0.0")))

	err := suite.registry.Register(suite.definition("trend", "2.0.0"))
	suite.Equal(errors.ErrCodeStrategyTypeDuplicate, errors.GetCode(err))
}

func (suite *RegistryTestSuite) TestLookup() {
	suite.Require().NoError(suite.registry.Register(suite.definition("trend", "1.4.2")))

	//nolint:exhaustruct
	tests := []struct {
		name         string
		strategyType string
		constraint   string
		expected     errors.ErrorCode
		ok           bool
	}{
		{name: "any version", strategyType: "trend", ok: true},
		{name: "caret match", strategyType: "trend", constraint: "^1.2", ok: true},
		{name: "range miss", strategyType: "trend", constraint: ">=2.0.0", expected: errors.ErrCodeVersionMismatch},
		{name: "bad constraint", strategyType: "trend", constraint: "not a constraint", expected: errors.ErrCodeInvalidVersion},
		{name: "unknown type", strategyType: "martingale", expected: errors.ErrCodeUnknownStrategyType},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			definition, err := suite.registry.Lookup(tc.strategyType, tc.constraint)
			if tc.ok {
				suite.Require().NoError(err)
				suite.Equal("trend", definition.Type)
			} else {
				suite.Equal(tc.expected, errors.GetCode(err))
			}
		})
	}
}

func (suite *RegistryTestSuite) TestListSorted() {
	suite.Require().NoError(suite.registry.Register(suite.definition("trend", "1.0.0")))
	suite.Require().NoError(suite.registry.Register(suite.definition("arbitrage", "0.3.0")))

	infos := suite.registry.List()
	suite.Require().Len(infos, 2)
	suite.Equal("arbitrage", infos[0].Type)
	suite.Equal("0.3.0", infos[0].Version)
	suite.Equal("trend", infos[1].Type)
}

func (suite *RegistryTestSuite) TestSchema() {
	suite.Require().NoError(suite.registry.Register(suite.definition("trend", "1.0.0")))

	raw, err := suite.registry.Schema("trend")
	suite.Require().NoError(err)

	var schema map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(raw), &schema))

	properties, ok := schema["properties"].(map[string]any)
	suite.Require().True(ok)
	suite.Contains(properties, "period")
	suite.Contains(properties, "factor")

	_, err = suite.registry.Schema("unknown")
	suite.Equal(errors.ErrCodeUnknownStrategyType, errors.GetCode(err))
}
