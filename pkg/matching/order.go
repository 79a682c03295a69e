package matching

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// ParseSide accepts the side in any casing.
func ParseSide(s string) (OrderSide, error) {
	switch OrderSide(strings.ToUpper(s)) {
	case OrderSideBuy:
		return OrderSideBuy, nil
	case OrderSideSell:
		return OrderSideSell, nil
	default:
		return "", fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, s)
	}
}

type OrderStatus string

const (
	OrderStatusOpen     OrderStatus = "Open"     // no fills yet
	OrderStatusPending  OrderStatus = "Pending"  // partially filled
	OrderStatusExecuted OrderStatus = "Executed" // fully filled, terminal
)

func ParseStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderStatusOpen, OrderStatusPending, OrderStatusExecuted:
		return OrderStatus(s), nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidOrder, s)
	}
}

type Order struct {
	ID                string
	Instrument        string
	Side              OrderSide
	Price             decimal.Decimal
	Quantity          decimal.Decimal
	RemainingQuantity decimal.Decimal
	Status            OrderStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// deriveStatus maps remaining quantity back to a status. Status is never
// assigned independently of the quantities, so the two cannot drift apart.
func deriveStatus(remaining, quantity decimal.Decimal) OrderStatus {
	switch {
	case remaining.Sign() == 0:
		return OrderStatusExecuted
	case remaining.Equal(quantity):
		return OrderStatusOpen
	default:
		return OrderStatusPending
	}
}

// resting reports whether the order can still fill against new admissions.
func (o *Order) resting() bool {
	return o.Status != OrderStatusExecuted && o.RemainingQuantity.Sign() > 0
}

// checkConsistent verifies 0 <= remaining <= quantity and that status
// matches the quantities.
func (o *Order) checkConsistent() error {
	if o.RemainingQuantity.Sign() < 0 || o.RemainingQuantity.GreaterThan(o.Quantity) {
		return fmt.Errorf("%w: order %s remaining %s of %s",
			ErrInconsistentState, o.ID, o.RemainingQuantity, o.Quantity)
	}
	if want := deriveStatus(o.RemainingQuantity, o.Quantity); o.Status != want {
		return fmt.Errorf("%w: order %s status %s, want %s",
			ErrInconsistentState, o.ID, o.Status, want)
	}
	return nil
}
