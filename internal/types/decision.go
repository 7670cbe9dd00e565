package types

import "github.com/moznion/go-optional"

type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// OrderBookSummary is the depth view passed to decision augmentation.
type OrderBookSummary struct {
	BidDepth float64 `json:"bidDepth"`
	AskDepth float64 `json:"askDepth"`
	Spread   float64 `json:"spread"`
}

// PortfolioSummary describes current holdings for decision augmentation.
type PortfolioSummary struct {
	AvailableCapital float64 `json:"availableCapital"`
	OpenPositions    int     `json:"openPositions"`
	TotalExposure    float64 `json:"totalExposure"`
	DailyPnl         float64 `json:"dailyPnl"`
}

// PerformanceSummary describes recent results for decision augmentation.
type PerformanceSummary struct {
	WinRate     float64 `json:"winRate"`
	TotalPnl    float64 `json:"totalPnl"`
	TotalTrades int     `json:"totalTrades"`
}

// DecisionContext is the input to a decision advisor.
type DecisionContext struct {
	Symbol              string                              `json:"symbol"`
	Exchange            string                              `json:"exchange"`
	CurrentPrice        float64                             `json:"currentPrice"`
	PriceChange24h      float64                             `json:"priceChange24h"`
	Volume24h           float64                             `json:"volume24h"`
	Volatility          float64                             `json:"volatility"`
	TechnicalIndicators map[string]float64                  `json:"technicalIndicators"`
	OrderBook           OrderBookSummary                    `json:"orderBook"`
	Portfolio           optional.Option[PortfolioSummary]   `json:"portfolio,omitempty"`
	RecentPerformance   optional.Option[PerformanceSummary] `json:"recentPerformance,omitempty"`
}

// RiskAssessment is the advisor's qualitative risk view.
type RiskAssessment struct {
	MarketRisk    RiskLevel `json:"marketRisk"`
	ExecutionRisk RiskLevel `json:"executionRisk"`
	OverallRisk   RiskLevel `json:"overallRisk"`
}

// Decision is the output of a decision advisor.
type Decision struct {
	Action         SignalAction             `json:"action"`
	Confidence     float64                  `json:"confidence"`
	Reasoning      string                   `json:"reasoning"`
	SuggestedSize  float64                  `json:"suggestedSize"`
	StopLoss       optional.Option[float64] `json:"stopLoss,omitempty"`
	TakeProfit     optional.Option[float64] `json:"takeProfit,omitempty"`
	TimeHorizon    string                   `json:"timeHorizon"`
	RiskAssessment RiskAssessment           `json:"riskAssessment"`
	// Source names the advisor that produced the decision.
	Source string `json:"source"`
}
