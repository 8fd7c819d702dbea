package reconciler

import (
	"context"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/inventory/store"
	"github.com/fjod/go_storefront/internal/orders/repository"
	"go.uber.org/zap"
)

const (
	batchSize = 100
	// MaxAttempts bounds retries; a fault still failing after this many
	// attempts is abandoned and left for manual correction.
	MaxAttempts = 10
)

// Reconciler replays stock adjustments that failed after their order was
// committed. A fault is resolved once its delta has been applied.
// Conditional faults are replayed with TryConsume so strict-stock counters
// never go negative.
type Reconciler struct {
	faults   repository.FaultRepository
	ledger   store.Ledger
	logger   *zap.Logger
	interval time.Duration
}

func New(faults repository.FaultRepository, ledger store.Ledger, logger *zap.Logger, interval time.Duration) *Reconciler {
	return &Reconciler{faults: faults, ledger: ledger, logger: logger, interval: interval}
}

func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce processes one batch and returns how many faults were resolved.
func (r *Reconciler) RunOnce(ctx context.Context) int {
	faults, err := r.faults.UnresolvedFaults(ctx, batchSize)
	if err != nil {
		r.logger.Error("failed to fetch stock faults", zap.Error(err))
		return 0
	}

	resolved := 0
	for _, f := range faults {
		log := r.logger.With(
			zap.Int64("fault_id", f.ID),
			zap.String("order_id", f.OrderID.String()),
			zap.String("product_id", f.ProductID),
			zap.Int("delta", f.Delta),
			zap.Bool("conditional", f.Conditional),
		)

		if err := r.apply(ctx, f); err != nil {
			r.failed(ctx, log, f, err)
			continue
		}

		// the delta is applied; a failure here replays it on the next tick
		if err := r.faults.ResolveFault(ctx, f.ID); err != nil {
			log.Error("failed to mark stock fault resolved", zap.Error(err))
			continue
		}
		log.Info("stock fault resolved")
		resolved++
	}
	return resolved
}

func (r *Reconciler) apply(ctx context.Context, f *domain.StockFault) error {
	if f.Conditional && f.Delta < 0 {
		_, err := r.ledger.TryConsume(ctx, f.ProductID, -f.Delta)
		return err
	}
	_, err := r.ledger.Adjust(ctx, f.ProductID, f.Delta)
	return err
}

func (r *Reconciler) failed(ctx context.Context, log *zap.Logger, f *domain.StockFault, cause error) {
	attempts := f.Attempts + 1
	if attempts >= MaxAttempts {
		log.Error("stock fault abandoned", zap.Int("attempts", attempts), zap.Error(cause))
		if err := r.faults.AbandonFault(ctx, f.ID, cause.Error()); err != nil {
			log.Error("failed to abandon stock fault", zap.Error(err))
		}
		return
	}

	log.Warn("stock fault retry failed", zap.Int("attempts", attempts), zap.Error(cause))
	if err := r.faults.FaultAttemptFailed(ctx, f.ID, cause.Error()); err != nil {
		log.Error("failed to record fault attempt", zap.Error(err))
	}
}
