package matching

import (
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/deque"
	"github.com/shopspring/decimal"
)

// Fill is one planned decrement against a resting counter order. A batch of
// fills plus the new order forms an admission's mutation set, which the
// store applies atomically.
type Fill struct {
	OrderID  string
	Quantity decimal.Decimal
}

// OrderStore is the source of truth for resting and historical orders.
// Reads return copies; callers never hold references into the store.
type OrderStore interface {
	// NextID issues a new monotonic order identifier.
	NextID() string

	Get(id string) (Order, error)

	// List returns every order in admission order.
	List() []Order

	// ListEligibleCounterOrders returns orders of the given instrument and
	// side that can still fill (Open or Pending, remaining > 0), oldest
	// first.
	ListEligibleCounterOrders(instrument string, side OrderSide) []Order

	// Commit applies an admission: decrements each fill's counter order,
	// then appends the new order. All fills are validated before anything
	// mutates; on error the store is untouched.
	Commit(newOrder Order, fills []Fill, now time.Time) error

	// SetStatus overrides an order's status outside matching. The override
	// is rejected with ErrInvalidOrder when it would desynchronize status
	// from the remaining quantity.
	SetStatus(id string, status OrderStatus, now time.Time) (Order, error)
}

type restingKey struct {
	instrument string
	side       OrderSide
}

// MemoryOrderStore keeps all orders in process. Resting orders are tracked
// per instrument+side in FIFO queues, so time priority falls out of
// admission order.
type MemoryOrderStore struct {
	mu      sync.RWMutex
	seq     uint64
	orders  map[string]*Order
	ids     []string
	resting map[restingKey]*deque.Deque[string]
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{
		orders:  make(map[string]*Order),
		resting: make(map[restingKey]*deque.Deque[string]),
	}
}

func (s *MemoryOrderStore) NextID() string {
	return strconv.FormatUint(atomic.AddUint64(&s.seq, 1), 10)
}

func (s *MemoryOrderStore) Get(id string) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	return *o, nil
}

func (s *MemoryOrderStore) List() []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Order, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, *s.orders[id])
	}
	return out
}

func (s *MemoryOrderStore) ListEligibleCounterOrders(instrument string, side OrderSide) []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := s.resting[restingKey{instrument, side}]
	if q == nil {
		return nil
	}

	var out []Order
	for i := 0; i < q.Len(); i++ {
		if o := s.orders[q.At(i)]; o.resting() {
			out = append(out, *o)
		}
	}
	return out
}

func (s *MemoryOrderStore) Commit(newOrder Order, fills []Fill, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[newOrder.ID]; ok {
		return fmt.Errorf("%w: duplicate id %s", ErrInconsistentState, newOrder.ID)
	}
	if err := newOrder.checkConsistent(); err != nil {
		return err
	}

	// Validate the whole batch before touching anything.
	for _, f := range fills {
		o, ok := s.orders[f.OrderID]
		if !ok {
			return fmt.Errorf("%w: fill against unknown order %s", ErrInconsistentState, f.OrderID)
		}
		if f.Quantity.Sign() <= 0 || f.Quantity.GreaterThan(o.RemainingQuantity) {
			return fmt.Errorf("%w: fill %s exceeds remaining %s on order %s",
				ErrInconsistentState, f.Quantity, o.RemainingQuantity, o.ID)
		}
	}

	for _, f := range fills {
		o := s.orders[f.OrderID]
		o.RemainingQuantity = o.RemainingQuantity.Sub(f.Quantity)
		o.Status = deriveStatus(o.RemainingQuantity, o.Quantity)
		o.UpdatedAt = now
	}

	o := newOrder
	s.orders[o.ID] = &o
	s.ids = append(s.ids, o.ID)
	if o.resting() {
		s.pushResting(&o)
	}

	s.pruneResting(restingKey{newOrder.Instrument, newOrder.Side.Opposite()})
	return nil
}

func (s *MemoryOrderStore) SetStatus(id string, status OrderStatus, now time.Time) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	if want := deriveStatus(o.RemainingQuantity, o.Quantity); status != want {
		return Order{}, fmt.Errorf("%w: status %s contradicts remaining %s of %s",
			ErrInvalidOrder, status, o.RemainingQuantity, o.Quantity)
	}
	o.Status = status
	o.UpdatedAt = now
	return *o, nil
}

func (s *MemoryOrderStore) pushResting(o *Order) {
	key := restingKey{o.Instrument, o.Side}
	q := s.resting[key]
	if q == nil {
		q = &deque.Deque[string]{}
		s.resting[key] = q
	}
	q.PushBack(o.ID)
}

// pruneResting drops exhausted orders from the front of a queue. Fills are
// strictly front-first, so anything still resting stops the scan.
func (s *MemoryOrderStore) pruneResting(key restingKey) {
	q := s.resting[key]
	if q == nil {
		return
	}
	for q.Len() > 0 && !s.orders[q.Front()].resting() {
		q.PopFront()
	}
}
