// Package timeseries stores market snapshots and candles in DuckDB.
package timeseries

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/internal/store"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS market_snapshots (
	exchange TEXT NOT NULL,
	symbol TEXT NOT NULL,
	time TIMESTAMP NOT NULL,
	price DOUBLE,
	bid DOUBLE,
	ask DOUBLE,
	volume_24h DOUBLE,
	change_24h DOUBLE,
	PRIMARY KEY (exchange, symbol, time)
);
CREATE TABLE IF NOT EXISTS candles (
	exchange TEXT NOT NULL,
	symbol TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	time TIMESTAMP NOT NULL,
	open DOUBLE,
	high DOUBLE,
	low DOUBLE,
	close DOUBLE,
	volume DOUBLE,
	PRIMARY KEY (exchange, symbol, timeframe, time)
);
`

// DuckDBStore implements store.TimeSeries.
type DuckDBStore struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBStore opens (or creates) the database at path. An empty path is in-memory.
func NewDuckDBStore(path string, log *logger.Logger) (*DuckDBStore, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailed, "failed to open duckdb", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeMigrationFailed, "failed to create time series tables", err)
	}

	return &DuckDBStore{
		db:     db,
		logger: log.Named("timeseries"),
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

func (s *DuckDBStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}

func (s *DuckDBStore) WriteSnapshots(ctx context.Context, snapshots []types.MarketSnapshot) (int, error) {
	if len(snapshots) == 0 {
		return 0, nil
	}

	insert := s.sq.Insert("market_snapshots").
		Options("OR IGNORE").
		Columns("exchange", "symbol", "time", "price", "bid", "ask", "volume_24h", "change_24h")

	for _, snap := range snapshots {
		insert = insert.Values(snap.Exchange, snap.Symbol, snap.Timestamp.UTC(), snap.Price, snap.Bid, snap.Ask, snap.Volume24h, snap.Change24h)
	}

	return s.exec(ctx, insert, "failed to write market snapshots")
}

func (s *DuckDBStore) WriteCandles(ctx context.Context, exchange, symbol string, timeframe types.Timeframe, candles []types.Candle) (int, error) {
	if len(candles) == 0 {
		return 0, nil
	}

	insert := s.sq.Insert("candles").
		Options("OR IGNORE").
		Columns("exchange", "symbol", "timeframe", "time", "open", "high", "low", "close", "volume")

	for _, c := range candles {
		insert = insert.Values(exchange, symbol, string(timeframe), c.Timestamp.UTC(), c.Open, c.High, c.Low, c.Close, c.Volume)
	}

	return s.exec(ctx, insert, "failed to write candles")
}

func (s *DuckDBStore) exec(ctx context.Context, insert squirrel.InsertBuilder, message string) (int, error) {
	query, args, err := insert.ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to build insert", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeMarketDataWriteFailed, message, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}

	return int(affected), nil
}

func (s *DuckDBStore) Candles(ctx context.Context, exchange, symbol string, timeframe types.Timeframe, since time.Time, limit int) ([]types.Candle, error) {
	where := squirrel.And{
		squirrel.Eq{"exchange": exchange},
		squirrel.Eq{"symbol": symbol},
		squirrel.Eq{"timeframe": string(timeframe)},
	}

	query := s.sq.
		Select("time", "open", "high", "low", "close", "volume").
		From("candles")

	latest := since.IsZero()
	if latest {
		query = query.Where(where).OrderBy("time DESC")
	} else {
		query = query.Where(append(where, squirrel.GtOrEq{"time": since.UTC()})).OrderBy("time ASC")
	}

	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query candles", err)
	}
	defer rows.Close()

	result := make([]types.Candle, 0, limit)

	for rows.Next() {
		var c types.Candle
		if err := rows.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan candle", err)
		}

		c.Timestamp = c.Timestamp.UTC()
		result = append(result, c)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating candles", err)
	}

	if latest {
		for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
			result[i], result[j] = result[j], result[i]
		}
	}

	return result, nil
}

func (s *DuckDBStore) LatestSnapshot(ctx context.Context, exchange, symbol string) (optional.Option[types.MarketSnapshot], error) {
	query, args, err := s.sq.
		Select("time", "price", "bid", "ask", "volume_24h", "change_24h").
		From("market_snapshots").
		Where(squirrel.Eq{"exchange": exchange, "symbol": symbol}).
		OrderBy("time DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return optional.None[types.MarketSnapshot](), errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	snap := types.MarketSnapshot{Exchange: exchange, Symbol: symbol} //nolint:exhaustruct

	err = s.db.QueryRowContext(ctx, query, args...).
		Scan(&snap.Timestamp, &snap.Price, &snap.Bid, &snap.Ask, &snap.Volume24h, &snap.Change24h)
	if err == sql.ErrNoRows {
		return optional.None[types.MarketSnapshot](), nil
	}

	if err != nil {
		return optional.None[types.MarketSnapshot](), errors.Wrap(errors.ErrCodeQueryFailed, "failed to query latest snapshot", err)
	}

	snap.Timestamp = snap.Timestamp.UTC()

	return optional.Some(snap), nil
}

func (s *DuckDBStore) Stats(ctx context.Context, exchange, symbol string, since time.Time) (optional.Option[types.MarketStats], error) {
	query, args, err := s.sq.
		Select(
			"count(*)",
			"coalesce(avg(price), 0)",
			"coalesce(min(price), 0)",
			"coalesce(max(price), 0)",
			"coalesce(arg_max(volume_24h, time), 0)",
			"coalesce(arg_min(price, time), 0)",
			"coalesce(arg_max(price, time), 0)",
		).
		From("market_snapshots").
		Where(squirrel.And{
			squirrel.Eq{"exchange": exchange},
			squirrel.Eq{"symbol": symbol},
			squirrel.GtOrEq{"time": since.UTC()},
		}).
		ToSql()
	if err != nil {
		return optional.None[types.MarketStats](), errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	var (
		count                   int
		mean, low, high, volume float64
		first, last             float64
	)

	err = s.db.QueryRowContext(ctx, query, args...).Scan(&count, &mean, &low, &high, &volume, &first, &last)
	if err != nil {
		return optional.None[types.MarketStats](), errors.Wrap(errors.ErrCodeQueryFailed, "failed to aggregate snapshots", err)
	}

	if count == 0 {
		return optional.None[types.MarketStats](), nil
	}

	change := 0.0
	if first > 0 {
		change = (last - first) / first * 100
	}

	s.logger.Debug("aggregated snapshots",
		zap.String("exchange", exchange),
		zap.String("symbol", symbol),
		zap.Int("samples", count))

	return optional.Some(types.MarketStats{
		Exchange:  exchange,
		Symbol:    symbol,
		Period:    time.Since(since),
		Mean:      mean,
		Min:       low,
		Max:       high,
		Volume:    volume,
		ChangePct: change,
		Samples:   count,
	}), nil
}

var _ store.TimeSeries = (*DuckDBStore)(nil)
