package matching

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubmitRequest carries the fields a client controls on a new limit order.
type SubmitRequest struct {
	Instrument string
	Side       OrderSide
	Price      decimal.Decimal
	Quantity   decimal.Decimal
}

func (r *SubmitRequest) validate() error {
	if r.Instrument == "" {
		return fmt.Errorf("%w: empty instrument", ErrInvalidOrder)
	}
	if r.Side != OrderSideBuy && r.Side != OrderSideSell {
		return fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, r.Side)
	}
	if r.Price.Sign() <= 0 {
		return fmt.Errorf("%w: price %s must be positive", ErrInvalidOrder, r.Price)
	}
	if r.Quantity.Sign() <= 0 {
		return fmt.Errorf("%w: quantity %s must be positive", ErrInvalidOrder, r.Quantity)
	}
	return nil
}

// Engine runs the continuous double auction: each admission fills against
// resting opposite-side orders of the same instrument in strict time
// priority, then rests whatever is left.
//
// Admissions for the same instrument are serialized on a per-instrument
// lock held for the whole call; matching never crosses instruments, so
// distinct instruments proceed in parallel.
type Engine struct {
	store  OrderStore
	ledger ExecutionLedger
	locks  sync.Map // instrument -> *sync.Mutex
}

func NewEngine(store OrderStore, ledger ExecutionLedger) *Engine {
	return &Engine{store: store, ledger: ledger}
}

// Submit admits a new limit order, matches it, and returns its final state
// together with the executions recorded on both sides, in ledger order.
//
// The mutation batch is all-or-nothing: fills are planned against copies
// first, and the store applies the whole batch or none of it.
func (e *Engine) Submit(req SubmitRequest) (Order, []Execution, error) {
	if err := req.validate(); err != nil {
		return Order{}, nil, err
	}

	mu := e.instrumentLock(req.Instrument)
	mu.Lock()
	defer mu.Unlock()

	now := time.Now()
	order := Order{
		ID:                e.store.NextID(),
		Instrument:        req.Instrument,
		Side:              req.Side,
		Price:             req.Price,
		Quantity:          req.Quantity,
		RemainingQuantity: req.Quantity,
		Status:            OrderStatusOpen,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	// Plan phase: walk eligible counter orders oldest-first and compute
	// fill quantities without mutating anything.
	counters := e.store.ListEligibleCounterOrders(req.Instrument, req.Side.Opposite())

	var (
		fills []Fill
		execs []Execution
	)
	remaining := order.Quantity
	for _, c := range counters {
		if remaining.Sign() == 0 {
			break
		}
		if !c.resting() {
			return Order{}, nil, fmt.Errorf("%w: counter order %s not fillable", ErrInconsistentState, c.ID)
		}

		fillQty := decimal.Min(remaining, c.RemainingQuantity)
		remaining = remaining.Sub(fillQty)

		fills = append(fills, Fill{OrderID: c.ID, Quantity: fillQty})
		execs = append(execs,
			Execution{
				ExecID:           uuid.NewString(),
				OrderID:          c.ID,
				Instrument:       c.Instrument,
				Side:             c.Side,
				ExecutedQuantity: fillQty,
				Quantity:         c.Quantity,
				CreatedAt:        now,
			},
			Execution{
				ExecID:           uuid.NewString(),
				OrderID:          order.ID,
				Instrument:       order.Instrument,
				Side:             order.Side,
				ExecutedQuantity: fillQty,
				Quantity:         order.Quantity,
				CreatedAt:        now,
			},
		)
	}

	order.RemainingQuantity = remaining
	order.Status = deriveStatus(remaining, order.Quantity)

	// Commit phase: the store validates and applies the batch atomically.
	if err := e.store.Commit(order, fills, now); err != nil {
		return Order{}, nil, err
	}

	for _, ex := range execs {
		e.ledger.Append(ex)
	}

	return order, execs, nil
}

func (e *Engine) instrumentLock(instrument string) *sync.Mutex {
	v, _ := e.locks.LoadOrStore(instrument, &sync.Mutex{})
	return v.(*sync.Mutex)
}
