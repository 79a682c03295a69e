package matching

import (
	"errors"
	"strconv"
	"testing"
	"time"
)

func newOpenOrder(store *MemoryOrderStore, instrument string, side OrderSide, q int64) Order {
	now := time.Now()
	return Order{
		ID:                store.NextID(),
		Instrument:        instrument,
		Side:              side,
		Price:             price(100.0),
		Quantity:          qty(q),
		RemainingQuantity: qty(q),
		Status:            OrderStatusOpen,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestNextIDMonotonic(t *testing.T) {
	store := NewMemoryOrderStore()
	prev := 0
	for i := 0; i < 5; i++ {
		n, err := strconv.Atoi(store.NextID())
		if err != nil {
			t.Fatalf("non-numeric id: %v", err)
		}
		if n <= prev {
			t.Errorf("id %d not greater than %d", n, prev)
		}
		prev = n
	}
}

func TestGetUnknownOrder(t *testing.T) {
	store := NewMemoryOrderStore()
	if _, err := store.Get("999"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListEligibleCounterOrdersFiltering(t *testing.T) {
	store := NewMemoryOrderStore()
	now := time.Now()

	sell := newOpenOrder(store, "ABC", OrderSideSell, 10)
	otherInstrument := newOpenOrder(store, "XYZ", OrderSideSell, 10)
	otherSide := newOpenOrder(store, "ABC", OrderSideBuy, 10)
	for _, o := range []Order{sell, otherInstrument, otherSide} {
		if err := store.Commit(o, nil, now); err != nil {
			t.Fatalf("commit: %v", err)
		}
	}

	got := store.ListEligibleCounterOrders("ABC", OrderSideSell)
	if len(got) != 1 || got[0].ID != sell.ID {
		t.Fatalf("expected only order %s, got %+v", sell.ID, got)
	}
}

func TestListEligibleCounterOrdersSkipsExecuted(t *testing.T) {
	store := NewMemoryOrderStore()
	now := time.Now()

	a := newOpenOrder(store, "ABC", OrderSideSell, 10)
	b := newOpenOrder(store, "ABC", OrderSideSell, 10)
	if err := store.Commit(a, nil, now); err != nil {
		t.Fatalf("commit a: %v", err)
	}
	if err := store.Commit(b, nil, now); err != nil {
		t.Fatalf("commit b: %v", err)
	}

	// Fully fill a with a buy admission.
	buy := newOpenOrder(store, "ABC", OrderSideBuy, 10)
	buy.RemainingQuantity = qty(0)
	buy.Status = OrderStatusExecuted
	if err := store.Commit(buy, []Fill{{OrderID: a.ID, Quantity: qty(10)}}, now); err != nil {
		t.Fatalf("commit buy: %v", err)
	}

	got := store.ListEligibleCounterOrders("ABC", OrderSideSell)
	if len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("expected only order %s, got %d orders", b.ID, len(got))
	}
}

func TestCommitRejectsOverfillWithoutMutating(t *testing.T) {
	store := NewMemoryOrderStore()
	now := time.Now()

	sell := newOpenOrder(store, "ABC", OrderSideSell, 5)
	if err := store.Commit(sell, nil, now); err != nil {
		t.Fatalf("commit sell: %v", err)
	}

	buy := newOpenOrder(store, "ABC", OrderSideBuy, 10)
	buy.RemainingQuantity = qty(0)
	buy.Status = OrderStatusExecuted
	err := store.Commit(buy, []Fill{{OrderID: sell.ID, Quantity: qty(10)}}, now)
	if !errors.Is(err, ErrInconsistentState) {
		t.Fatalf("expected ErrInconsistentState, got %v", err)
	}

	// Nothing from the rejected batch may be visible.
	got, errGet := store.Get(sell.ID)
	if errGet != nil {
		t.Fatalf("get sell: %v", errGet)
	}
	if !got.RemainingQuantity.Equal(qty(5)) || got.Status != OrderStatusOpen {
		t.Errorf("rejected commit mutated counter order: %+v", got)
	}
	if _, errGet := store.Get(buy.ID); !errors.Is(errGet, ErrNotFound) {
		t.Errorf("rejected commit persisted new order")
	}
}

func TestCommitRejectsFillAgainstUnknownOrder(t *testing.T) {
	store := NewMemoryOrderStore()
	buy := newOpenOrder(store, "ABC", OrderSideBuy, 10)
	err := store.Commit(buy, []Fill{{OrderID: "404", Quantity: qty(1)}}, time.Now())
	if !errors.Is(err, ErrInconsistentState) {
		t.Errorf("expected ErrInconsistentState, got %v", err)
	}
}

func TestSetStatusValidatesInvariantTable(t *testing.T) {
	store := NewMemoryOrderStore()
	now := time.Now()

	o := newOpenOrder(store, "ABC", OrderSideSell, 10)
	if err := store.Commit(o, nil, now); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// Executed contradicts remaining=quantity.
	if _, err := store.SetStatus(o.ID, OrderStatusExecuted, now); !errors.Is(err, ErrInvalidOrder) {
		t.Errorf("expected ErrInvalidOrder, got %v", err)
	}

	later := now.Add(time.Second)
	got, err := store.SetStatus(o.ID, OrderStatusOpen, later)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if !got.UpdatedAt.Equal(later) {
		t.Errorf("expected UpdatedAt refresh, got %v", got.UpdatedAt)
	}

	if _, err := store.SetStatus("404", OrderStatusOpen, now); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
