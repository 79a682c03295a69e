package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/joripage/ordermatch-dev/pkg/logging"
	"github.com/joripage/ordermatch-dev/pkg/matching"
	"github.com/joripage/ordermatch-dev/pkg/metrics"
)

// swappable in tests
var timeNow = time.Now

// ExecutionPublisher forwards ledger entries to an external feed. Feed
// delivery is best-effort: a publish failure never fails the admission.
type ExecutionPublisher interface {
	PublishExecutions(ctx context.Context, execs []matching.Execution) error
}

// OrderService is the in-process surface the transport layer calls:
// admission, listing, filtering, status override, and execution history.
type OrderService struct {
	engine *matching.Engine
	store  matching.OrderStore
	ledger matching.ExecutionLedger

	feed  ExecutionPublisher // optional
	cache *redis.Client      // optional
}

func NewOrderService(store matching.OrderStore, ledger matching.ExecutionLedger) *OrderService {
	return &OrderService{
		engine: matching.NewEngine(store, ledger),
		store:  store,
		ledger: ledger,
	}
}

// WithFeed attaches an execution feed publisher.
func (s *OrderService) WithFeed(feed ExecutionPublisher) *OrderService {
	s.feed = feed
	return s
}

// WithCache attaches a redis client for the last-trade-price cache.
func (s *OrderService) WithCache(cache *redis.Client) *OrderService {
	s.cache = cache
	return s
}

// SubmitOrder is the sole write path into the matching subsystem. It admits
// a new limit order and returns its post-match state.
func (s *OrderService) SubmitOrder(ctx context.Context, instrument, side string, price, quantity decimal.Decimal) (matching.Order, error) {
	logger, ctx := logging.GetLogger(ctx)

	parsedSide, err := matching.ParseSide(side)
	if err != nil {
		metrics.OrdersRejected.Inc()
		return matching.Order{}, err
	}

	order, execs, err := s.engine.Submit(matching.SubmitRequest{
		Instrument: instrument,
		Side:       parsedSide,
		Price:      price,
		Quantity:   quantity,
	})
	if err != nil {
		if errors.Is(err, matching.ErrInvalidOrder) {
			metrics.OrdersRejected.Inc()
			return matching.Order{}, err
		}
		logger.Error(ctx, "admission aborted", zap.Error(err))
		return matching.Order{}, err
	}

	metrics.OrdersSubmitted.Inc()
	for _, ex := range execs {
		if ex.OrderID == order.ID {
			metrics.MatchSteps.Inc()
			metrics.MatchedQuantity.Add(ex.ExecutedQuantity.InexactFloat64())
		}
	}

	if len(execs) > 0 {
		s.afterMatch(ctx, logger, order, execs)
	}

	logger.Info(ctx, "order admitted",
		zap.String("order_id", order.ID),
		zap.String("instrument", order.Instrument),
		zap.String("side", string(order.Side)),
		zap.String("status", string(order.Status)),
		zap.Int("executions", len(execs)),
	)
	return order, nil
}

func (s *OrderService) afterMatch(ctx context.Context, logger *logging.Logger, order matching.Order, execs []matching.Execution) {
	if s.feed != nil {
		if err := s.feed.PublishExecutions(ctx, execs); err != nil {
			logger.Warn(ctx, "execution feed publish failed", zap.Error(err))
		}
	}
	if s.cache != nil {
		key := fmt.Sprintf("last_price:%s", order.Instrument)
		if err := s.cache.Set(ctx, key, order.Price.String(), 0).Err(); err != nil {
			logger.Warn(ctx, "last price cache update failed", zap.Error(err))
		}
	}
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (matching.Order, error) {
	return s.store.Get(id)
}

// ListOrders returns one page of orders in admission order plus the total
// page count.
func (s *OrderService) ListOrders(ctx context.Context, limit, page int) ([]matching.Order, int, error) {
	orders, totalPages := paginate(s.store.List(), limit, page)
	return orders, totalPages, nil
}

// ListOrdersByFilter applies field-equality filters before paginating.
func (s *OrderService) ListOrdersByFilter(ctx context.Context, filter OrderFilter, limit, page int) ([]matching.Order, int, error) {
	var filtered []matching.Order
	for _, o := range s.store.List() {
		if filter.matches(o) {
			filtered = append(filtered, o)
		}
	}
	orders, totalPages := paginate(filtered, limit, page)
	return orders, totalPages, nil
}

// UpdateOrderStatus is an administrative override outside matching. The
// store rejects overrides that contradict the order's quantities.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id, status string) (matching.Order, error) {
	logger, ctx := logging.GetLogger(ctx)

	parsed, err := matching.ParseStatus(status)
	if err != nil {
		return matching.Order{}, err
	}

	order, err := s.store.SetStatus(id, parsed, timeNow())
	if err != nil {
		return matching.Order{}, err
	}

	logger.Info(ctx, "order status overridden",
		zap.String("order_id", id),
		zap.String("status", status),
	)
	return order, nil
}

// OrderHistory returns an order's executions in fill order. Unknown ids are
// ErrNotFound rather than an empty history.
func (s *OrderService) OrderHistory(ctx context.Context, id string) ([]matching.Execution, error) {
	if _, err := s.store.Get(id); err != nil {
		return nil, err
	}
	return s.ledger.QueryByOrder(id), nil
}
