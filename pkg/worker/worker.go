// Package worker drains the execution feed into Postgres.
package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/joripage/ordermatch-dev/pkg/matching"
	"github.com/joripage/ordermatch-dev/pkg/repo"
	"github.com/joripage/ordermatch-dev/pkg/tradefeed"
)

type Worker struct {
	executions repo.IExecution
}

func NewWorker(r repo.IRepo) *Worker {
	return &Worker{
		executions: r.Execution(),
	}
}

// StartConsumer blocks consuming the feed until ctx is canceled or the
// consumer fails.
func (w *Worker) StartConsumer(ctx context.Context, consumer *tradefeed.Consumer) error {
	return consumer.Run(ctx, w.handleBatch)
}

func (w *Worker) handleBatch(ctx context.Context, execs []matching.Execution) error {
	rows := make([]*repo.ExecutionRow, 0, len(execs))
	for _, ex := range execs {
		rows = append(rows, repo.NewExecutionRow(ex))
	}

	if _, err := w.executions.BulkCreate(ctx, rows); err != nil {
		zap.S().Errorf("persist execution batch fail: %v", err)
		return err
	}
	return nil
}
