package advisor

import (
	"context"
	"fmt"
	"math"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/internal/types"
)

const (
	ruleMaxConfidence = 0.3
	ruleSize          = 0.1
	// spreads wider than this fraction of price make execution too costly
	ruleMaxSpread = 0.005
)

// RuleBasedAdvisor is a deterministic, conservative advisor. It reads the
// rsi, sma_fast and sma_slow indicators when present.
type RuleBasedAdvisor struct {
	volatilityLimit float64
}

// NewRuleBasedAdvisor creates an advisor that holds above volatilityLimit.
func NewRuleBasedAdvisor(volatilityLimit float64) *RuleBasedAdvisor {
	return &RuleBasedAdvisor{volatilityLimit: volatilityLimit}
}

func (a *RuleBasedAdvisor) Decide(_ context.Context, input types.DecisionContext) (types.Decision, error) {
	if input.CurrentPrice <= 0 || len(input.TechnicalIndicators) == 0 {
		return a.hold("not enough information to decide", types.RiskLevelMedium), nil
	}

	if input.Volatility > a.volatilityLimit {
		return a.hold(fmt.Sprintf("volatility %.4f above limit %.4f", input.Volatility, a.volatilityLimit), types.RiskLevelHigh), nil
	}

	if input.OrderBook.Spread/input.CurrentPrice > ruleMaxSpread {
		return a.hold("order book spread too wide", types.RiskLevelHigh), nil
	}

	score := 0.0
	reasons := ""

	if rsi, ok := input.TechnicalIndicators["rsi"]; ok {
		switch {
		case rsi < 30:
			score++
			reasons += "rsi oversold; "
		case rsi > 70:
			score--
			reasons += "rsi overbought; "
		}
	}

	fast, hasFast := input.TechnicalIndicators["sma_fast"]
	slow, hasSlow := input.TechnicalIndicators["sma_slow"]

	if hasFast && hasSlow {
		if fast > slow {
			score++
			reasons += "fast average above slow; "
		} else if fast < slow {
			score--
			reasons += "fast average below slow; "
		}
	}

	switch {
	case input.PriceChange24h > 0:
		score += 0.5
	case input.PriceChange24h < 0:
		score -= 0.5
	}

	action := types.SignalActionHold
	if score >= 1 {
		action = types.SignalActionBuy
	} else if score <= -1 {
		action = types.SignalActionSell
	}

	if action == types.SignalActionHold {
		return a.hold("indicators disagree", types.RiskLevelMedium), nil
	}

	decision := types.Decision{
		Action:        action,
		Confidence:    math.Min(ruleMaxConfidence, 0.1+0.1*math.Abs(score)),
		Reasoning:     reasons,
		SuggestedSize: ruleSize,
		StopLoss:      optional.None[float64](),
		TakeProfit:    optional.None[float64](),
		TimeHorizon:   "short",
		RiskAssessment: types.RiskAssessment{
			MarketRisk:    types.RiskLevelMedium,
			ExecutionRisk: types.RiskLevelLow,
			OverallRisk:   types.RiskLevelMedium,
		},
		Source: "rules",
	}

	if action == types.SignalActionBuy {
		decision.StopLoss = optional.Some(input.CurrentPrice * 0.95)
		decision.TakeProfit = optional.Some(input.CurrentPrice * 1.10)
	} else {
		decision.StopLoss = optional.Some(input.CurrentPrice * 1.05)
		decision.TakeProfit = optional.Some(input.CurrentPrice * 0.90)
	}

	return decision, nil
}

func (a *RuleBasedAdvisor) hold(reason string, market types.RiskLevel) types.Decision {
	return types.Decision{
		Action:        types.SignalActionHold,
		Confidence:    ruleMaxConfidence,
		Reasoning:     reason,
		SuggestedSize: 0,
		StopLoss:      optional.None[float64](),
		TakeProfit:    optional.None[float64](),
		TimeHorizon:   "short",
		RiskAssessment: types.RiskAssessment{
			MarketRisk:    market,
			ExecutionRisk: types.RiskLevelLow,
			OverallRisk:   market,
		},
		Source: "rules",
	}
}
