package repo

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/joripage/ordermatch-dev/pkg/matching"
)

// ExecutionRow is the durable form of a ledger entry.
type ExecutionRow struct {
	ExecID           string          `gorm:"column:exec_id;primaryKey"`
	OrderID          string          `gorm:"column:order_id;index"`
	Instrument       string          `gorm:"column:instrument;index"`
	Side             string          `gorm:"column:side"`
	ExecutedQuantity decimal.Decimal `gorm:"column:executed_quantity;type:numeric"`
	Quantity         decimal.Decimal `gorm:"column:quantity;type:numeric"`
	CreatedAt        time.Time       `gorm:"column:created_at"`
}

func (ExecutionRow) TableName() string {
	return "executions"
}

func NewExecutionRow(ex matching.Execution) *ExecutionRow {
	return &ExecutionRow{
		ExecID:           ex.ExecID,
		OrderID:          ex.OrderID,
		Instrument:       ex.Instrument,
		Side:             string(ex.Side),
		ExecutedQuantity: ex.ExecutedQuantity,
		Quantity:         ex.Quantity,
		CreatedAt:        ex.CreatedAt,
	}
}

type ExecutionSQLRepo struct {
	db *gorm.DB
}

func NewExecutionSQLRepo(db *gorm.DB) *ExecutionSQLRepo {
	return &ExecutionSQLRepo{
		db: db,
	}
}

func (s *ExecutionSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (r *ExecutionSQLRepo) Create(ctx context.Context, record *ExecutionRow) (*ExecutionRow, error) {
	return record, r.dbWithContext(ctx).Create(record).Error
}

// BulkCreate inserts a batch, ignoring rows already present so a redelivered
// feed batch stays idempotent.
func (r *ExecutionSQLRepo) BulkCreate(ctx context.Context, records []*ExecutionRow) ([]*ExecutionRow, error) {
	if len(records) == 0 {
		return records, nil
	}
	return records, r.dbWithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(records).Error
}

func (r *ExecutionSQLRepo) ListByOrder(ctx context.Context, orderID string) ([]*ExecutionRow, error) {
	var rows []*ExecutionRow
	err := r.dbWithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at asc").
		Find(&rows).Error
	return rows, err
}
