package execution

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/internal/store"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"go.uber.org/zap"
)

// PriceSource supplies the latest traded price of a symbol.
type PriceSource interface {
	GetLatestPrice(ctx context.Context, exchange, symbol string) (float64, error)
}

// Closer closes positions at market.
type Closer interface {
	ClosePosition(ctx context.Context, positionID, reason string) (types.Trade, error)
}

// MonitorReport summarizes one refresh pass.
type MonitorReport struct {
	Marked int
	Closed int
	Failed int
}

// Monitor marks open positions to market on a schedule and closes those
// whose stop loss, take profit or holding period is reached.
type Monitor struct {
	config  Config
	repo    store.Repository
	prices  PriceSource
	risk    RiskTracker
	closer  Closer
	logger  *logger.Logger
	cronLog logger.CronLogger
	now     func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewMonitor creates a position monitor.
func NewMonitor(config Config, repo store.Repository, prices PriceSource, riskTracker RiskTracker, closer Closer, log *logger.Logger) (*Monitor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if repo == nil || prices == nil || riskTracker == nil || closer == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "monitor requires a repository, prices, a risk tracker and a closer")
	}

	named := log.Named("monitor")

	return &Monitor{
		config:  config,
		repo:    repo,
		prices:  prices,
		risk:    riskTracker,
		closer:  closer,
		logger:  named,
		cronLog: logger.NewCronLogger(named),
		now:     time.Now,
		mu:      sync.Mutex{},
		cron:    nil,
		running: false,
	}, nil
}

// Start schedules Refresh on MonitorSchedule.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	c := cron.New(cron.WithLogger(m.cronLog), cron.WithChain(cron.Recover(m.cronLog)))
	job := cron.NewChain(cron.SkipIfStillRunning(m.cronLog)).Then(cron.FuncJob(m.tick))

	if _, err := c.AddJob(m.config.MonitorSchedule, job); err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid monitor schedule %q", m.config.MonitorSchedule)
	}

	c.Start()
	m.cron = c
	m.running = true

	return nil
}

// Stop unschedules the monitor and waits for a running pass.
func (m *Monitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	c := m.cron
	m.cron = nil
	m.running = false
	m.mu.Unlock()

	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Monitor) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), m.config.MonitorTimeout)
	defer cancel()

	report, err := m.Refresh(ctx)
	if err != nil {
		m.logger.Error("position refresh failed", zap.Error(err))

		return
	}

	if report.Closed > 0 || report.Failed > 0 {
		m.logger.Info("position refresh",
			zap.Int("marked", report.Marked),
			zap.Int("closed", report.Closed),
			zap.Int("failed", report.Failed),
		)
	}
}

// Refresh marks every open position at the latest price. A position whose
// price cannot be fetched keeps its previous mark and counts as failed.
func (m *Monitor) Refresh(ctx context.Context) (MonitorReport, error) {
	var report MonitorReport

	positions, err := m.repo.OpenPositions(ctx, "")
	if err != nil {
		return report, err
	}

	for _, position := range positions {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		price, err := m.prices.GetLatestPrice(ctx, position.Exchange, position.Symbol)
		if err != nil || price <= 0 {
			m.logger.Warn("no price for open position",
				zap.String("position_id", position.ID),
				zap.String("symbol", position.Symbol),
				zap.Error(err),
			)

			report.Failed++

			continue
		}

		position.Mark(price, m.now().UTC())

		if err := m.repo.UpdatePositionMark(ctx, position); err != nil {
			m.logger.Warn("failed to persist mark", zap.String("position_id", position.ID), zap.Error(err))
		}

		m.risk.OnPositionMarked(position)
		report.Marked++

		reason := m.exitReason(position, price)
		if reason == "" {
			continue
		}

		if _, err := m.closer.ClosePosition(ctx, position.ID, reason); err != nil {
			if !errors.HasCode(err, errors.ErrCodePositionClosed) {
				m.logger.Error("failed to close position",
					zap.String("position_id", position.ID),
					zap.String("reason", reason),
					zap.Error(err),
				)

				report.Failed++
			}

			continue
		}

		report.Closed++
	}

	return report, nil
}

func (m *Monitor) exitReason(position types.Position, price float64) string {
	switch {
	case position.StopLossHit(price):
		return types.TradeReasonStopLoss
	case position.TakeProfitHit(price):
		return types.TradeReasonTakeProfit
	case m.config.MaxHoldingPeriod > 0 && m.now().Sub(position.OpenedAt) >= m.config.MaxHoldingPeriod:
		return types.TradeReasonMaxHolding
	default:
		return ""
	}
}
