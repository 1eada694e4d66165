package job

import (
	"context"
	"fmt"
	"snaptrade/internal/service"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const reconcileTimeout = 5 * time.Minute

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Reconciler retries storage deletes that failed after a product was
// removed. Runs never overlap.
type Reconciler struct {
	assetService service.AssetService
	logger       *zap.Logger
	sched        *cron.Cron
}

func NewReconciler(assetService service.AssetService, schedule string, logger *zap.Logger) (*Reconciler, error) {
	r := &Reconciler{
		assetService: assetService,
		logger:       logger,
	}

	r.sched = cron.New(
		cron.WithParser(cronParser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	if _, err := r.sched.AddFunc(schedule, r.RunOnce); err != nil {
		return nil, fmt.Errorf("schedule reconciler %q: %w", schedule, err)
	}

	return r, nil
}

func (r *Reconciler) RunOnce() {
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic", zap.Any("panic", err))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	resolved, failed, err := r.assetService.Reconcile(ctx)
	if err != nil {
		r.logger.Error("asset reconcile", zap.Error(err))
		return
	}
	if resolved > 0 || failed > 0 {
		r.logger.Info("asset reconcile",
			zap.Int("resolved", resolved),
			zap.Int("failed", failed),
		)
	}
}

func (r *Reconciler) Start() {
	r.sched.Start()
}

// Stop waits for a running reconcile to finish or ctx to expire.
func (r *Reconciler) Stop(ctx context.Context) {
	select {
	case <-r.sched.Stop().Done():
	case <-ctx.Done():
	}
}
