package matching

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Execution is one ledger entry: a partial or full fill on one side of a
// match. Every match step produces a pair of entries, one per side.
type Execution struct {
	ExecID           string
	OrderID          string
	Instrument       string
	Side             OrderSide
	ExecutedQuantity decimal.Decimal
	Quantity         decimal.Decimal // owning order's total, for audit context
	CreatedAt        time.Time
}

// ExecutionLedger is the append-only fill history. Entries are never
// mutated or deleted.
type ExecutionLedger interface {
	Append(ex Execution)

	// QueryByOrder returns the order's executions in insertion order, each
	// entry carrying the owning order's quantity as held by the store at
	// query time rather than a stored snapshot.
	QueryByOrder(orderID string) []Execution
}

// orderSource is the slice of OrderStore the ledger needs for the
// query-time quantity join.
type orderSource interface {
	Get(id string) (Order, error)
}

type MemoryLedger struct {
	mu      sync.RWMutex
	entries []Execution
	byOrder map[string][]int
	orders  orderSource
}

func NewMemoryLedger(orders orderSource) *MemoryLedger {
	return &MemoryLedger{
		byOrder: make(map[string][]int),
		orders:  orders,
	}
}

func (l *MemoryLedger) Append(ex Execution) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, ex)
	l.byOrder[ex.OrderID] = append(l.byOrder[ex.OrderID], len(l.entries)-1)
}

func (l *MemoryLedger) QueryByOrder(orderID string) []Execution {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idxs := l.byOrder[orderID]
	if len(idxs) == 0 {
		return nil
	}

	out := make([]Execution, 0, len(idxs))
	for _, i := range idxs {
		ex := l.entries[i]
		if o, err := l.orders.Get(ex.OrderID); err == nil {
			ex.Quantity = o.Quantity
		}
		out = append(out, ex)
	}
	return out
}

// Len reports the total number of entries across all orders.
func (l *MemoryLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
