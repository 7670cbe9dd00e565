package advisor

import (
	"context"
	"fmt"
	"time"

	"github.com/rxtech-lab/autotrader/internal/logger"
	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"go.uber.org/zap"
)

// Safe wraps an advisor so that Decide never fails. Provider errors go to the
// fallback advisor; malformed output, panics and fallback failures become a
// conservative hold.
type Safe struct {
	primary  Advisor
	fallback Advisor
	timeout  time.Duration
	history  *History
	logger   *logger.Logger
}

// NewSafe wraps primary. fallback and history may be nil.
func NewSafe(primary, fallback Advisor, timeout time.Duration, history *History, log *logger.Logger) *Safe {
	return &Safe{
		primary:  primary,
		fallback: fallback,
		timeout:  timeout,
		history:  history,
		logger:   log.Named("advisor"),
	}
}

// History returns the decision history, nil when disabled.
func (s *Safe) History() *History {
	return s.history
}

// Decide always returns a valid decision and a nil error.
func (s *Safe) Decide(ctx context.Context, input types.DecisionContext) (types.Decision, error) {
	decision := s.decide(ctx, input)

	if s.history != nil {
		s.history.Add(input.Exchange, input.Symbol, decision)
	}

	return decision, nil
}

func (s *Safe) decide(ctx context.Context, input types.DecisionContext) types.Decision {
	decision, err := s.call(ctx, s.primary, input)
	if err == nil {
		return decision
	}

	log := s.logger.With(zap.String("exchange", input.Exchange), zap.String("symbol", input.Symbol))

	if errors.HasCode(err, errors.ErrCodeAdvisorMalformed) || s.fallback == nil {
		log.Warn("advisor output rejected, holding", zap.Error(err))

		return ConservativeHold(err.Error())
	}

	log.Warn("advisor unavailable, using fallback", zap.Error(err))

	decision, err = s.call(ctx, s.fallback, input)
	if err != nil {
		log.Error("fallback advisor failed, holding", zap.Error(err))

		return ConservativeHold(err.Error())
	}

	return decision
}

func (s *Safe) call(ctx context.Context, advisor Advisor, input types.DecisionContext) (decision types.Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			decision = types.Decision{}
			err = errors.New(errors.ErrCodeAdvisorMalformed, fmt.Sprintf("advisor panicked: %v", r))
		}
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	decision, err = advisor.Decide(ctx, input)
	if err != nil {
		if errors.GetCode(err) == errors.ErrCodeUnknown {
			return types.Decision{}, errors.Wrap(errors.ErrCodeAdvisorFailed, "advisor failed", err)
		}

		return types.Decision{}, err
	}

	if err := ValidateDecision(decision); err != nil {
		return types.Decision{}, err
	}

	return decision, nil
}
