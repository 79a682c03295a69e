package repo

import (
	"context"
)

type IExecution interface {
	Create(ctx context.Context, record *ExecutionRow) (*ExecutionRow, error)
	BulkCreate(ctx context.Context, records []*ExecutionRow) ([]*ExecutionRow, error)
	ListByOrder(ctx context.Context, orderID string) ([]*ExecutionRow, error)
}
