// Package relational implements store.Repository on gorm with a postgres
// or sqlite dialect.
package relational

import (
	"context"
	stderrors "errors"

	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/internal/store"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store implements store.Repository.
type Store struct {
	db     *gorm.DB
	logger *logger.Logger
}

// Open connects to the configured database and migrates the schema.
func Open(config Config, log *logger.Logger) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	log = log.Named("repository")

	var dialector gorm.Dialector

	switch config.Driver {
	case DriverPostgres:
		dialector = postgres.Open(config.postgresDSN())
	default:
		dialector = sqlite.Open(config.DSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{ //nolint:exhaustruct
		Logger: newZapGormLogger(log, config.LogQueries),
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailed, "failed to open database", err)
	}

	if err := db.AutoMigrate(allModels()...); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMigrationFailed, "failed to migrate schema", err)
	}

	return &Store{db: db, logger: log}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

func isNotFound(err error) bool {
	return stderrors.Is(err, gorm.ErrRecordNotFound)
}

func storageError(err error, message string) error {
	return errors.Wrap(errors.ErrCodeStorageFailed, message, err)
}

func (s *Store) SaveStrategy(ctx context.Context, cfg types.StrategyConfig) error {
	model := strategyFromConfig(cfg)

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{ //nolint:exhaustruct
		Columns:   []clause.Column{{Name: "id"}}, //nolint:exhaustruct
		UpdateAll: true,
	}).Create(&model).Error
	if err != nil {
		return storageError(err, "failed to save strategy")
	}

	return nil
}

func (s *Store) GetStrategy(ctx context.Context, id string) (types.StrategyConfig, error) {
	var model strategyModel

	err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if isNotFound(err) {
		return types.StrategyConfig{}, errors.Newf(errors.ErrCodeStrategyNotFound, "strategy %s not found", id)
	}

	if err != nil {
		return types.StrategyConfig{}, storageError(err, "failed to load strategy")
	}

	return model.toConfig(), nil
}

func (s *Store) ListStrategies(ctx context.Context, activeOnly bool) ([]types.StrategyConfig, error) {
	var models []strategyModel

	query := s.db.WithContext(ctx).Order("created_at ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	if err := query.Find(&models).Error; err != nil {
		return nil, storageError(err, "failed to list strategies")
	}

	configs := make([]types.StrategyConfig, 0, len(models))
	for _, m := range models {
		configs = append(configs, m.toConfig())
	}

	return configs, nil
}

// updateStrategy loads, mutates and saves one strategy row in a transaction.
func (s *Store) updateStrategy(ctx context.Context, id string, mutate func(*strategyModel)) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model strategyModel

		err := tx.First(&model, "id = ?", id).Error
		if isNotFound(err) {
			return errors.Newf(errors.ErrCodeStrategyNotFound, "strategy %s not found", id)
		}

		if err != nil {
			return storageError(err, "failed to load strategy")
		}

		mutate(&model)

		if err := tx.Save(&model).Error; err != nil {
			return storageError(err, "failed to update strategy")
		}

		return nil
	})
}

func (s *Store) SetStrategyActive(ctx context.Context, id string, active bool) error {
	return s.updateStrategy(ctx, id, func(m *strategyModel) { m.IsActive = active })
}

func (s *Store) UpdatePerformance(ctx context.Context, id string, performance types.StrategyPerformance) error {
	return s.updateStrategy(ctx, id, func(m *strategyModel) { m.Performance = performance })
}

func (s *Store) SaveSignal(ctx context.Context, signal types.TradingSignal) error {
	model := signalFromDomain(signal)
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return storageError(err, "failed to save signal")
	}

	return nil
}

func (s *Store) ListSignals(ctx context.Context, strategyID string, limit int) ([]types.TradingSignal, error) {
	var models []signalModel

	query := s.db.WithContext(ctx).Where("strategy_id = ?", strategyID).Order("timestamp DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&models).Error; err != nil {
		return nil, storageError(err, "failed to list signals")
	}

	signals := make([]types.TradingSignal, 0, len(models))
	for _, m := range models {
		signals = append(signals, m.toDomain())
	}

	return signals, nil
}

// RecordExecution appends the trade and upserts the position atomically.
func (s *Store) RecordExecution(ctx context.Context, trade types.Trade, position types.Position) error {
	tradeRow := tradeFromDomain(trade)
	positionRow := positionFromDomain(position)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&tradeRow).Error; err != nil {
			return storageError(err, "failed to insert trade")
		}

		err := tx.Clauses(clause.OnConflict{ //nolint:exhaustruct
			Columns:   []clause.Column{{Name: "id"}}, //nolint:exhaustruct
			UpdateAll: true,
		}).Create(&positionRow).Error
		if err != nil {
			return storageError(err, "failed to upsert position")
		}

		return nil
	})
}

// SaveTrade appends a trade that has no position, such as an arbitrage leg.
func (s *Store) SaveTrade(ctx context.Context, trade types.Trade) error {
	row := tradeFromDomain(trade)

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return storageError(err, "failed to insert trade")
	}

	return nil
}

func (s *Store) GetPosition(ctx context.Context, id string) (types.Position, error) {
	var model positionModel

	err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if isNotFound(err) {
		return types.Position{}, errors.Newf(errors.ErrCodePositionNotFound, "position %s not found", id)
	}

	if err != nil {
		return types.Position{}, storageError(err, "failed to load position")
	}

	return model.toDomain(), nil
}

func (s *Store) OpenPositions(ctx context.Context, ownerID string) ([]types.Position, error) {
	var models []positionModel

	query := s.db.WithContext(ctx).Where("status = ?", string(types.PositionStatusOpen)).Order("opened_at ASC")
	if ownerID != "" {
		query = query.Where("owner_id = ?", ownerID)
	}

	if err := query.Find(&models).Error; err != nil {
		return nil, storageError(err, "failed to list open positions")
	}

	positions := make([]types.Position, 0, len(models))
	for _, m := range models {
		positions = append(positions, m.toDomain())
	}

	return positions, nil
}

func (s *Store) UpdatePositionMark(ctx context.Context, position types.Position) error {
	result := s.db.WithContext(ctx).
		Model(&positionModel{}). //nolint:exhaustruct
		Where("id = ?", position.ID).
		Updates(map[string]any{
			"current_price":  position.CurrentPrice,
			"unrealized_pnl": position.UnrealizedPnl,
			"updated_at":     position.UpdatedAt,
		})
	if result.Error != nil {
		return storageError(result.Error, "failed to update position mark")
	}

	if result.RowsAffected == 0 {
		return errors.Newf(errors.ErrCodePositionNotFound, "position %s not found", position.ID)
	}

	return nil
}

func (s *Store) ListTrades(ctx context.Context, strategyID string) ([]types.Trade, error) {
	var models []tradeModel

	query := s.db.WithContext(ctx).Order("executed_at ASC")
	if strategyID != "" {
		query = query.Where("strategy_id = ?", strategyID)
	}

	if err := query.Find(&models).Error; err != nil {
		return nil, storageError(err, "failed to list trades")
	}

	trades := make([]types.Trade, 0, len(models))
	for _, m := range models {
		trades = append(trades, m.toDomain())
	}

	return trades, nil
}

func (s *Store) SaveSnapshots(ctx context.Context, snapshots []types.MarketSnapshot) (int, error) {
	if len(snapshots) == 0 {
		return 0, nil
	}

	rows := make([]marketDataModel, 0, len(snapshots))
	for _, snap := range snapshots {
		rows = append(rows, marketDataModel{
			Exchange:  snap.Exchange,
			Symbol:    snap.Symbol,
			Timestamp: snap.Timestamp.UTC(),
			Price:     snap.Price,
			Bid:       snap.Bid,
			Ask:       snap.Ask,
			Volume24h: snap.Volume24h,
			Change24h: snap.Change24h,
		})
	}

	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows) //nolint:exhaustruct
	if result.Error != nil {
		return 0, errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to save market rows", result.Error)
	}

	return int(result.RowsAffected), nil
}

func (s *Store) SaveBacktestResult(ctx context.Context, result types.BacktestResult) error {
	model := backtestModel{
		ID:            result.ID,
		StrategyID:    result.StrategyID,
		Config:        result.Config,
		Metrics:       result.Metrics,
		Trades:        result.Trades,
		EquityCurve:   result.EquityCurve,
		DrawdownCurve: result.DrawdownCurve,
		CompletedAt:   result.CompletedAt,
	}

	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return storageError(err, "failed to save backtest result")
	}

	return nil
}

func (s *Store) GetBacktestResult(ctx context.Context, id string) (types.BacktestResult, error) {
	var model backtestModel

	err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if isNotFound(err) {
		return types.BacktestResult{}, errors.Newf(errors.ErrCodeDataNotFound, "backtest result %s not found", id)
	}

	if err != nil {
		return types.BacktestResult{}, storageError(err, "failed to load backtest result")
	}

	return types.BacktestResult{
		ID:            model.ID,
		StrategyID:    model.StrategyID,
		Config:        model.Config,
		Metrics:       model.Metrics,
		Trades:        model.Trades,
		EquityCurve:   model.EquityCurve,
		DrawdownCurve: model.DrawdownCurve,
		CompletedAt:   model.CompletedAt.UTC(),
	}, nil
}

func (s *Store) SaveRiskOverride(ctx context.Context, override store.RiskOverride) error {
	if err := override.Parameters.Validate(); err != nil {
		return err
	}

	model := riskOverrideModel{
		Scope:      string(override.Scope),
		ScopeID:    override.ScopeID,
		Parameters: override.Parameters,
	} //nolint:exhaustruct

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{ //nolint:exhaustruct
		Columns:   []clause.Column{{Name: "scope"}, {Name: "scope_id"}}, //nolint:exhaustruct
		UpdateAll: true,
	}).Create(&model).Error
	if err != nil {
		return storageError(err, "failed to save risk override")
	}

	return nil
}

func (s *Store) ListRiskOverrides(ctx context.Context) ([]store.RiskOverride, error) {
	var models []riskOverrideModel
	if err := s.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, storageError(err, "failed to list risk overrides")
	}

	overrides := make([]store.RiskOverride, 0, len(models))
	for _, m := range models {
		overrides = append(overrides, m.toDomain())
	}

	return overrides, nil
}

var _ store.Repository = (*Store)(nil)
