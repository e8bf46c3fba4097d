// Package sweep periodically marks loans overdue once their target return
// time has passed. It only calls the loan ledger's public operations.
package sweep

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"Gin_postgres_redis_asset_loan/access"
	"Gin_postgres_redis_asset_loan/clock"
	"Gin_postgres_redis_asset_loan/db"
)

// Overdue marks late loans.
type Overdue struct {
	repo *db.Repo
	clk  clock.Clock
	log  *zap.Logger
}

func NewOverdue(repo *db.Repo, clk clock.Clock, log *zap.Logger) *Overdue {
	if clk == nil {
		clk = clock.Real()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Overdue{repo: repo, clk: clk, log: log}
}

// RunOnce marks every BORROWED loan whose return date is before now and
// returns how many changed. A loan returned in the meantime is skipped.
func (o *Overdue) RunOnce(ctx context.Context) (int, error) {
	ids, err := o.repo.OverdueCandidates(ctx, o.clk.Now())
	if err != nil {
		return 0, err
	}
	scope := access.ScopeFor(access.System, nil)
	marked := 0
	for _, id := range ids {
		if _, err := o.repo.MarkOverdue(ctx, scope, id); err != nil {
			if errors.Is(err, db.ErrConflict) || errors.Is(err, db.ErrNotFound) {
				continue
			}
			return marked, err
		}
		marked++
	}
	return marked, nil
}

// Run sweeps every interval until ctx is done.
func (o *Overdue) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	o.log.Info("overdue sweep started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			o.log.Info("overdue sweep stopped")
			return
		case <-t.C:
			n, err := o.RunOnce(ctx)
			if err != nil {
				o.log.Error("overdue sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				o.log.Info("loans marked overdue", zap.Int("count", n))
			}
		}
	}
}
