package service

import (
	"strings"
	"time"

	"github.com/joripage/ordermatch-dev/pkg/matching"
)

const defaultPageSize = 10

// OrderFilter holds field-equality filters for order listings. Zero-value
// fields are ignored. CreatedAt matches by RFC3339 prefix, so "2025-01-02"
// selects everything admitted that day.
type OrderFilter struct {
	ID         string
	Instrument string
	Side       string
	Status     string
	CreatedAt  string
}

func (f *OrderFilter) matches(o matching.Order) bool {
	if f.ID != "" && o.ID != f.ID {
		return false
	}
	if f.Instrument != "" && o.Instrument != f.Instrument {
		return false
	}
	if f.Side != "" && !strings.EqualFold(f.Side, string(o.Side)) {
		return false
	}
	if f.Status != "" && o.Status != matching.OrderStatus(f.Status) {
		return false
	}
	if f.CreatedAt != "" && !strings.HasPrefix(o.CreatedAt.UTC().Format(time.RFC3339), f.CreatedAt) {
		return false
	}
	return true
}

// paginate slices orders into 1-based pages and reports the page count.
func paginate(orders []matching.Order, limit, page int) ([]matching.Order, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if page <= 0 {
		page = 1
	}

	totalPages := (len(orders) + limit - 1) / limit

	start := (page - 1) * limit
	if start >= len(orders) {
		return nil, totalPages
	}
	end := start + limit
	if end > len(orders) {
		end = len(orders)
	}
	return orders[start:end], totalPages
}
