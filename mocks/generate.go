package mocks

//go:generate mockgen -destination=./mock_advisor.go -package=mocks github.com/rxtech-lab/autotrader/internal/advisor Advisor
//go:generate mockgen -destination=./mock_capital_provider.go -package=mocks github.com/rxtech-lab/autotrader/internal/risk CapitalProvider
//go:generate mockgen -destination=./mock_closer.go -package=mocks github.com/rxtech-lab/autotrader/internal/execution Closer
//go:generate mockgen -destination=./mock_connector.go -package=mocks github.com/rxtech-lab/autotrader/internal/connector Connector
//go:generate mockgen -destination=./mock_executor.go -package=mocks github.com/rxtech-lab/autotrader/internal/strategy Executor
//go:generate mockgen -destination=./mock_market_data.go -package=mocks github.com/rxtech-lab/autotrader/internal/risk MarketData
//go:generate mockgen -destination=./mock_market_view.go -package=mocks -mock_names=MarketData=MockMarketView github.com/rxtech-lab/autotrader/internal/strategy MarketData
//go:generate mockgen -destination=./mock_performance_recorder.go -package=mocks github.com/rxtech-lab/autotrader/internal/execution PerformanceRecorder
//go:generate mockgen -destination=./mock_price_source.go -package=mocks github.com/rxtech-lab/autotrader/internal/execution PriceSource
//go:generate mockgen -destination=./mock_repository.go -package=mocks github.com/rxtech-lab/autotrader/internal/store Repository
//go:generate mockgen -destination=./mock_risk_tracker.go -package=mocks github.com/rxtech-lab/autotrader/internal/execution RiskTracker
//go:generate mockgen -destination=./mock_risk_validator.go -package=mocks github.com/rxtech-lab/autotrader/internal/strategy RiskValidator
//go:generate mockgen -destination=./mock_strategy.go -package=mocks github.com/rxtech-lab/autotrader/internal/strategy Strategy
//go:generate mockgen -destination=./mock_strategy_stopper.go -package=mocks github.com/rxtech-lab/autotrader/internal/risk StrategyStopper
//go:generate mockgen -destination=./mock_timeseries.go -package=mocks github.com/rxtech-lab/autotrader/internal/store TimeSeries
