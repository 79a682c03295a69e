package matching

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

func newTestEngine() (*Engine, *MemoryOrderStore, *MemoryLedger) {
	store := NewMemoryOrderStore()
	ledger := NewMemoryLedger(store)
	return NewEngine(store, ledger), store, ledger
}

func qty(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

func price(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func submit(t *testing.T, e *Engine, instrument string, side OrderSide, p float64, q int64) Order {
	t.Helper()
	order, _, err := e.Submit(SubmitRequest{
		Instrument: instrument,
		Side:       side,
		Price:      price(p),
		Quantity:   qty(q),
	})
	if err != nil {
		t.Fatalf("submit %s %s %d@%v: %v", instrument, side, q, p, err)
	}
	return order
}

func TestSubmitNoCounterOrdersRestsOpen(t *testing.T) {
	e, _, ledger := newTestEngine()

	order := submit(t, e, "ABC", OrderSideBuy, 100.0, 5)

	if order.Status != OrderStatusOpen {
		t.Errorf("expected Open, got %s", order.Status)
	}
	if !order.RemainingQuantity.Equal(qty(5)) {
		t.Errorf("expected remaining 5, got %s", order.RemainingQuantity)
	}
	if ledger.Len() != 0 {
		t.Errorf("expected empty ledger, got %d entries", ledger.Len())
	}
}

func TestPartialFillLeavesResterPending(t *testing.T) {
	e, store, ledger := newTestEngine()

	sell := submit(t, e, "ABC", OrderSideSell, 100.0, 10)
	buy := submit(t, e, "ABC", OrderSideBuy, 100.0, 4)

	if buy.Status != OrderStatusExecuted || !buy.RemainingQuantity.IsZero() {
		t.Errorf("buy order: got %s remaining %s", buy.Status, buy.RemainingQuantity)
	}

	got, err := store.Get(sell.ID)
	if err != nil {
		t.Fatalf("get sell order: %v", err)
	}
	if got.Status != OrderStatusPending {
		t.Errorf("sell order: expected Pending, got %s", got.Status)
	}
	if !got.RemainingQuantity.Equal(qty(6)) {
		t.Errorf("sell order: expected remaining 6, got %s", got.RemainingQuantity)
	}

	if ledger.Len() != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", ledger.Len())
	}
	for _, ex := range ledger.QueryByOrder(buy.ID) {
		if !ex.ExecutedQuantity.Equal(qty(4)) {
			t.Errorf("expected executed qty 4, got %s", ex.ExecutedQuantity)
		}
	}
}

func TestSecondFillExecutesBothSides(t *testing.T) {
	e, store, _ := newTestEngine()

	sell := submit(t, e, "ABC", OrderSideSell, 100.0, 10)
	submit(t, e, "ABC", OrderSideBuy, 100.0, 4)
	buy2 := submit(t, e, "ABC", OrderSideBuy, 100.0, 6)

	got, err := store.Get(sell.ID)
	if err != nil {
		t.Fatalf("get sell order: %v", err)
	}
	if got.Status != OrderStatusExecuted || !got.RemainingQuantity.IsZero() {
		t.Errorf("sell order: got %s remaining %s", got.Status, got.RemainingQuantity)
	}
	if buy2.Status != OrderStatusExecuted || !buy2.RemainingQuantity.IsZero() {
		t.Errorf("buy order: got %s remaining %s", buy2.Status, buy2.RemainingQuantity)
	}
}

func TestSweepAcrossMultipleCounterOrders(t *testing.T) {
	e, store, _ := newTestEngine()

	s1 := submit(t, e, "ABC", OrderSideSell, 100.0, 5)
	s2 := submit(t, e, "ABC", OrderSideSell, 101.0, 5)
	s3 := submit(t, e, "ABC", OrderSideSell, 102.0, 5)

	buy, execs, err := e.Submit(SubmitRequest{
		Instrument: "ABC", Side: OrderSideBuy, Price: price(100.0), Quantity: qty(12),
	})
	if err != nil {
		t.Fatalf("submit buy: %v", err)
	}

	if buy.Status != OrderStatusExecuted {
		t.Errorf("buy order: expected Executed, got %s", buy.Status)
	}
	// 3 match steps, a pair of entries each
	if len(execs) != 6 {
		t.Fatalf("expected 6 executions, got %d", len(execs))
	}

	for id, wantRemaining := range map[string]int64{s1.ID: 0, s2.ID: 0, s3.ID: 3} {
		got, err := store.Get(id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if !got.RemainingQuantity.Equal(qty(wantRemaining)) {
			t.Errorf("order %s: expected remaining %d, got %s", id, wantRemaining, got.RemainingQuantity)
		}
	}
}

func TestTimePriority(t *testing.T) {
	e, store, _ := newTestEngine()

	older := submit(t, e, "ABC", OrderSideSell, 100.0, 5)
	newer := submit(t, e, "ABC", OrderSideSell, 100.0, 5)

	submit(t, e, "ABC", OrderSideBuy, 100.0, 5)

	gotOlder, _ := store.Get(older.ID)
	gotNewer, _ := store.Get(newer.ID)
	if gotOlder.Status != OrderStatusExecuted {
		t.Errorf("older order should fill first, got %s", gotOlder.Status)
	}
	if gotNewer.Status != OrderStatusOpen {
		t.Errorf("newer order should be untouched, got %s", gotNewer.Status)
	}
}

func TestMatchIgnoresInstrumentMismatch(t *testing.T) {
	e, store, ledger := newTestEngine()

	sell := submit(t, e, "XYZ", OrderSideSell, 100.0, 5)
	buy := submit(t, e, "ABC", OrderSideBuy, 100.0, 5)

	gotSell, _ := store.Get(sell.ID)
	if gotSell.Status != OrderStatusOpen || buy.Status != OrderStatusOpen {
		t.Errorf("cross-instrument match: sell %s, buy %s", gotSell.Status, buy.Status)
	}
	if ledger.Len() != 0 {
		t.Errorf("expected no executions, got %d", ledger.Len())
	}
}

func TestRejectInvalidOrders(t *testing.T) {
	e, store, ledger := newTestEngine()

	cases := []SubmitRequest{
		{Instrument: "ABC", Side: OrderSideBuy, Price: price(100.0), Quantity: qty(0)},
		{Instrument: "ABC", Side: OrderSideBuy, Price: price(100.0), Quantity: qty(-1)},
		{Instrument: "ABC", Side: OrderSideBuy, Price: price(0), Quantity: qty(1)},
		{Instrument: "ABC", Side: OrderSideBuy, Price: price(-5), Quantity: qty(1)},
		{Instrument: "ABC", Side: "HOLD", Price: price(100.0), Quantity: qty(1)},
		{Instrument: "", Side: OrderSideBuy, Price: price(100.0), Quantity: qty(1)},
	}
	for i, req := range cases {
		if _, _, err := e.Submit(req); !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("case %d: expected ErrInvalidOrder, got %v", i, err)
		}
	}

	if n := len(store.List()); n != 0 {
		t.Errorf("rejected admissions must not persist, store has %d orders", n)
	}
	if ledger.Len() != 0 {
		t.Errorf("rejected admissions must not write the ledger, got %d entries", ledger.Len())
	}
}

func TestConservation(t *testing.T) {
	e, store, ledger := newTestEngine()

	steps := []struct {
		side OrderSide
		qty  int64
	}{
		{OrderSideSell, 10}, {OrderSideBuy, 4}, {OrderSideSell, 7},
		{OrderSideBuy, 9}, {OrderSideBuy, 11}, {OrderSideSell, 3},
	}
	for _, st := range steps {
		submit(t, e, "ABC", st.side, 100.0, st.qty)
	}

	for _, o := range store.List() {
		executed := decimal.Zero
		for _, ex := range ledger.QueryByOrder(o.ID) {
			executed = executed.Add(ex.ExecutedQuantity)
		}
		want := o.Quantity.Sub(o.RemainingQuantity)
		if !executed.Equal(want) {
			t.Errorf("order %s: ledger sum %s, want %s", o.ID, executed, want)
		}
		if err := o.checkConsistent(); err != nil {
			t.Errorf("order %s: %v", o.ID, err)
		}
	}
}

func TestQueryByOrderInsertionOrder(t *testing.T) {
	e, _, ledger := newTestEngine()

	buy := submit(t, e, "ABC", OrderSideBuy, 100.0, 10)
	submit(t, e, "ABC", OrderSideSell, 100.0, 4)
	submit(t, e, "ABC", OrderSideSell, 100.0, 3)

	execs := ledger.QueryByOrder(buy.ID)
	if len(execs) != 2 {
		t.Fatalf("expected 2 executions, got %d", len(execs))
	}
	if !execs[0].ExecutedQuantity.Equal(qty(4)) || !execs[1].ExecutedQuantity.Equal(qty(3)) {
		t.Errorf("executions out of insertion order: %s then %s",
			execs[0].ExecutedQuantity, execs[1].ExecutedQuantity)
	}
	for _, ex := range execs {
		if !ex.Quantity.Equal(qty(10)) {
			t.Errorf("expected joined quantity 10, got %s", ex.Quantity)
		}
	}
}

func TestReadsDoNotMutate(t *testing.T) {
	e, store, ledger := newTestEngine()

	sell := submit(t, e, "ABC", OrderSideSell, 100.0, 10)
	submit(t, e, "ABC", OrderSideBuy, 100.0, 4)

	before, _ := store.Get(sell.ID)
	for i := 0; i < 10; i++ {
		store.Get(sell.ID)
		ledger.QueryByOrder(sell.ID)
		store.ListEligibleCounterOrders("ABC", OrderSideSell)
	}
	after, _ := store.Get(sell.ID)

	if !before.RemainingQuantity.Equal(after.RemainingQuantity) || before.Status != after.Status {
		t.Errorf("reads mutated order: before %+v, after %+v", before, after)
	}
}

func TestReturnedOrderIsACopy(t *testing.T) {
	e, store, _ := newTestEngine()

	order := submit(t, e, "ABC", OrderSideSell, 100.0, 10)
	order.RemainingQuantity = qty(1)
	order.Status = OrderStatusPending

	got, _ := store.Get(order.ID)
	if got.Status != OrderStatusOpen || !got.RemainingQuantity.Equal(qty(10)) {
		t.Errorf("caller mutation leaked into store: %+v", got)
	}
}

func TestConcurrentAdmissionsAcrossInstruments(t *testing.T) {
	e, store, ledger := newTestEngine()

	const perInstrument = 50
	instruments := []string{"AAA", "BBB", "CCC", "DDD"}

	var wg sync.WaitGroup
	for _, instrument := range instruments {
		wg.Add(1)
		go func(instrument string) {
			defer wg.Done()
			for i := 0; i < perInstrument; i++ {
				side := OrderSideSell
				if i%2 == 1 {
					side = OrderSideBuy
				}
				submitConcurrent(e, instrument, side)
			}
		}(instrument)
	}
	wg.Wait()

	for _, o := range store.List() {
		if err := o.checkConsistent(); err != nil {
			t.Errorf("order %s: %v", o.ID, err)
		}
		executed := decimal.Zero
		for _, ex := range ledger.QueryByOrder(o.ID) {
			executed = executed.Add(ex.ExecutedQuantity)
		}
		if !executed.Equal(o.Quantity.Sub(o.RemainingQuantity)) {
			t.Errorf("order %s: ledger out of sync with remaining", o.ID)
		}
	}
}

func submitConcurrent(e *Engine, instrument string, side OrderSide) {
	_, _, err := e.Submit(SubmitRequest{
		Instrument: instrument,
		Side:       side,
		Price:      price(100.0),
		Quantity:   qty(5),
	})
	if err != nil {
		panic(fmt.Sprintf("concurrent submit failed: %v", err))
	}
}
