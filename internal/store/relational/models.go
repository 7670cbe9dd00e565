package relational

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/internal/store"
	"github.com/rxtech-lab/autotrader/internal/types"
)

type strategyModel struct {
	ID             string `gorm:"primaryKey"`
	OwnerID        string `gorm:"index;not null"`
	Name           string `gorm:"not null"`
	Type           string `gorm:"not null"`
	Version        string
	Exchange       string   `gorm:"not null"`
	Symbols        []string `gorm:"serializer:json"`
	Timeframe      string
	Schedule       string
	Parameters     map[string]any        `gorm:"serializer:json"`
	RiskParameters *types.RiskParameters `gorm:"serializer:json"`
	IsActive       bool                  `gorm:"index"`
	IsPaperTrading bool
	Performance    types.StrategyPerformance `gorm:"serializer:json"`
	CreatedAt      time.Time                 `gorm:"autoCreateTime"`
	UpdatedAt      time.Time                 `gorm:"autoUpdateTime"`
}

func (strategyModel) TableName() string {
	return "strategies"
}

func strategyFromConfig(cfg types.StrategyConfig) strategyModel {
	return strategyModel{
		ID:             cfg.ID,
		OwnerID:        cfg.OwnerID,
		Name:           cfg.Name,
		Type:           cfg.Type,
		Version:        cfg.Version,
		Exchange:       cfg.Exchange,
		Symbols:        cfg.Symbols,
		Timeframe:      string(cfg.Timeframe),
		Schedule:       cfg.Schedule,
		Parameters:     cfg.Parameters,
		RiskParameters: cfg.RiskParameters,
		IsActive:       cfg.IsActive,
		IsPaperTrading: cfg.IsPaperTrading,
		Performance:    cfg.Performance,
		CreatedAt:      cfg.CreatedAt,
		UpdatedAt:      cfg.UpdatedAt,
	}
}

func (m strategyModel) toConfig() types.StrategyConfig {
	return types.StrategyConfig{
		ID:             m.ID,
		OwnerID:        m.OwnerID,
		Name:           m.Name,
		Type:           m.Type,
		Version:        m.Version,
		Exchange:       m.Exchange,
		Symbols:        m.Symbols,
		Timeframe:      types.Timeframe(m.Timeframe),
		Schedule:       m.Schedule,
		Parameters:     m.Parameters,
		RiskParameters: m.RiskParameters,
		IsActive:       m.IsActive,
		IsPaperTrading: m.IsPaperTrading,
		Performance:    m.Performance,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

type signalModel struct {
	ID             string `gorm:"primaryKey"`
	StrategyID     string `gorm:"index;not null"`
	Exchange       string `gorm:"not null"`
	Symbol         string `gorm:"not null"`
	Action         string `gorm:"not null"`
	Strength       float64
	Analysis       map[string]any `gorm:"serializer:json"`
	IndicatorsUsed []string       `gorm:"serializer:json"`
	StopLoss       *float64
	TakeProfit     *float64
	Timestamp      time.Time `gorm:"index"`
}

func (signalModel) TableName() string {
	return "signals"
}

func toPtr[T any](o optional.Option[T]) *T {
	if o.IsNone() {
		return nil
	}

	v := o.Unwrap()

	return &v
}

func fromPtr[T any](p *T) optional.Option[T] {
	if p == nil {
		return optional.None[T]()
	}

	return optional.Some(*p)
}

func signalFromDomain(s types.TradingSignal) signalModel {
	return signalModel{
		ID:             s.ID,
		StrategyID:     s.StrategyID,
		Exchange:       s.Exchange,
		Symbol:         s.Symbol,
		Action:         string(s.Action),
		Strength:       s.Strength,
		Analysis:       s.Analysis,
		IndicatorsUsed: s.IndicatorsUsed,
		StopLoss:       toPtr(s.StopLoss),
		TakeProfit:     toPtr(s.TakeProfit),
		Timestamp:      s.Timestamp,
	}
}

func (m signalModel) toDomain() types.TradingSignal {
	return types.TradingSignal{
		ID:             m.ID,
		StrategyID:     m.StrategyID,
		Exchange:       m.Exchange,
		Symbol:         m.Symbol,
		Action:         types.SignalAction(m.Action),
		Strength:       m.Strength,
		Analysis:       m.Analysis,
		IndicatorsUsed: m.IndicatorsUsed,
		StopLoss:       fromPtr(m.StopLoss),
		TakeProfit:     fromPtr(m.TakeProfit),
		Timestamp:      m.Timestamp.UTC(),
	}
}

type positionModel struct {
	ID            string `gorm:"primaryKey"`
	OwnerID       string `gorm:"index;not null"`
	StrategyID    string `gorm:"index"`
	Exchange      string `gorm:"not null"`
	Symbol        string `gorm:"index;not null"`
	Side          string `gorm:"not null"`
	Quantity      float64
	EntryPrice    float64
	CurrentPrice  float64
	UnrealizedPnl float64
	RealizedPnl   float64
	StopLoss      *float64
	TakeProfit    *float64
	Status        string `gorm:"index;not null"`
	IsPaper       bool
	OpenedAt      time.Time
	ClosedAt      *time.Time
	UpdatedAt     time.Time
}

func (positionModel) TableName() string {
	return "positions"
}

func positionFromDomain(p types.Position) positionModel {
	return positionModel{
		ID:            p.ID,
		OwnerID:       p.OwnerID,
		StrategyID:    p.StrategyID,
		Exchange:      p.Exchange,
		Symbol:        p.Symbol,
		Side:          string(p.Side),
		Quantity:      p.Quantity,
		EntryPrice:    p.EntryPrice,
		CurrentPrice:  p.CurrentPrice,
		UnrealizedPnl: p.UnrealizedPnl,
		RealizedPnl:   p.RealizedPnl,
		StopLoss:      toPtr(p.StopLoss),
		TakeProfit:    toPtr(p.TakeProfit),
		Status:        string(p.Status),
		IsPaper:       p.IsPaper,
		OpenedAt:      p.OpenedAt,
		ClosedAt:      toPtr(p.ClosedAt),
		UpdatedAt:     p.UpdatedAt,
	}
}

func (m positionModel) toDomain() types.Position {
	closedAt := fromPtr(m.ClosedAt)
	if closedAt.IsSome() {
		closedAt = optional.Some(closedAt.Unwrap().UTC())
	}

	return types.Position{
		ID:            m.ID,
		OwnerID:       m.OwnerID,
		StrategyID:    m.StrategyID,
		Exchange:      m.Exchange,
		Symbol:        m.Symbol,
		Side:          types.PositionSide(m.Side),
		Quantity:      m.Quantity,
		EntryPrice:    m.EntryPrice,
		CurrentPrice:  m.CurrentPrice,
		UnrealizedPnl: m.UnrealizedPnl,
		RealizedPnl:   m.RealizedPnl,
		StopLoss:      fromPtr(m.StopLoss),
		TakeProfit:    fromPtr(m.TakeProfit),
		Status:        types.PositionStatus(m.Status),
		IsPaper:       m.IsPaper,
		OpenedAt:      m.OpenedAt.UTC(),
		ClosedAt:      closedAt,
		UpdatedAt:     m.UpdatedAt.UTC(),
	}
}

type tradeModel struct {
	ID         string `gorm:"primaryKey"`
	OrderID    string
	PositionID string `gorm:"index"`
	OwnerID    string `gorm:"index"`
	StrategyID string `gorm:"index"`
	Exchange   string `gorm:"not null"`
	Symbol     string `gorm:"not null"`
	Side       string `gorm:"not null"`
	Price      float64
	Quantity   float64
	Fee        float64
	PnL        float64 `gorm:"column:pnl"`
	IsClosing  bool
	Reason     string
	IsPaper    bool
	ExecutedAt time.Time `gorm:"index"`
}

func (tradeModel) TableName() string {
	return "trades"
}

func tradeFromDomain(t types.Trade) tradeModel {
	return tradeModel{
		ID:         t.ID,
		OrderID:    t.OrderID,
		PositionID: t.PositionID,
		OwnerID:    t.OwnerID,
		StrategyID: t.StrategyID,
		Exchange:   t.Exchange,
		Symbol:     t.Symbol,
		Side:       string(t.Side),
		Price:      t.Price,
		Quantity:   t.Quantity,
		Fee:        t.Fee,
		PnL:        t.PnL,
		IsClosing:  t.IsClosing,
		Reason:     t.Reason,
		IsPaper:    t.IsPaper,
		ExecutedAt: t.ExecutedAt,
	}
}

func (m tradeModel) toDomain() types.Trade {
	return types.Trade{
		ID:         m.ID,
		OrderID:    m.OrderID,
		PositionID: m.PositionID,
		OwnerID:    m.OwnerID,
		StrategyID: m.StrategyID,
		Exchange:   m.Exchange,
		Symbol:     m.Symbol,
		Side:       types.OrderSide(m.Side),
		Price:      m.Price,
		Quantity:   m.Quantity,
		Fee:        m.Fee,
		PnL:        m.PnL,
		IsClosing:  m.IsClosing,
		Reason:     m.Reason,
		IsPaper:    m.IsPaper,
		ExecutedAt: m.ExecutedAt.UTC(),
	}
}

type marketDataModel struct {
	Exchange  string    `gorm:"primaryKey"`
	Symbol    string    `gorm:"primaryKey"`
	Timestamp time.Time `gorm:"primaryKey"`
	Price     float64
	Bid       float64
	Ask       float64
	Volume24h float64 `gorm:"column:volume_24h"`
	Change24h float64 `gorm:"column:change_24h"`
}

func (marketDataModel) TableName() string {
	return "market_data"
}

type backtestModel struct {
	ID            string                `gorm:"primaryKey"`
	StrategyID    string                `gorm:"index"`
	Config        map[string]any        `gorm:"serializer:json"`
	Metrics       types.BacktestMetrics `gorm:"serializer:json"`
	Trades        []types.Trade         `gorm:"serializer:json"`
	EquityCurve   []types.EquityPoint   `gorm:"serializer:json"`
	DrawdownCurve []types.DrawdownPoint `gorm:"serializer:json"`
	CompletedAt   time.Time
}

func (backtestModel) TableName() string {
	return "backtest_results"
}

type riskOverrideModel struct {
	Scope      string               `gorm:"primaryKey"`
	ScopeID    string               `gorm:"primaryKey"`
	Parameters types.RiskParameters `gorm:"serializer:json"`
	UpdatedAt  time.Time            `gorm:"autoUpdateTime"`
}

func (riskOverrideModel) TableName() string {
	return "risk_overrides"
}

func (m riskOverrideModel) toDomain() store.RiskOverride {
	return store.RiskOverride{
		Scope:      store.RiskScope(m.Scope),
		ScopeID:    m.ScopeID,
		Parameters: m.Parameters,
	}
}

func allModels() []any {
	return []any{
		&strategyModel{},     //nolint:exhaustruct
		&signalModel{},       //nolint:exhaustruct
		&positionModel{},     //nolint:exhaustruct
		&tradeModel{},        //nolint:exhaustruct
		&marketDataModel{},   //nolint:exhaustruct
		&backtestModel{},     //nolint:exhaustruct
		&riskOverrideModel{}, //nolint:exhaustruct
	}
}
