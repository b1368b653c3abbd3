package application

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// BonusProcessor settles unprocessed referral bonus outbox entries
type BonusProcessor interface {
	ProcessPending(ctx context.Context, limit, maxAttempts int) (int, error)
}

// ReferralBonusWorker sweeps the referral bonus outbox on a cron schedule
type ReferralBonusWorker struct {
	processor   BonusProcessor
	batchSize   int
	maxAttempts int
}

// NewReferralBonusWorker creates a new referral bonus worker
func NewReferralBonusWorker(processor BonusProcessor, batchSize, maxAttempts int) *ReferralBonusWorker {
	return &ReferralBonusWorker{
		processor:   processor,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
	}
}

// Start schedules the sweep and returns a stop function that waits for a running sweep.
// The schedule also stops when ctx is cancelled.
func (w *ReferralBonusWorker) Start(ctx context.Context, schedule string) (func(), error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, func() { w.Sweep(ctx) }); err != nil {
		return nil, fmt.Errorf("failed to schedule referral bonus sweep %q: %w", schedule, err)
	}
	c.Start()
	log.WithField("schedule", schedule).Info("Referral bonus worker started")

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		<-c.Stop().Done()
		log.Info("Referral bonus worker stopped")
	}()

	return func() { close(done) }, nil
}

// Sweep settles one batch of outstanding bonuses
func (w *ReferralBonusWorker) Sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	processed, err := w.processor.ProcessPending(ctx, w.batchSize, w.maxAttempts)
	if err != nil {
		log.WithError(err).Error("Referral bonus sweep failed")
		return
	}
	if processed > 0 {
		log.WithFields(log.Fields{
			"processed": processed,
			"duration":  time.Since(start).String(),
		}).Info("Referral bonus sweep settled entries")
	}
}
