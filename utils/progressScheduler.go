package utils

import (
	"context"
	"log"
	"time"

	"github.com/jinzhu/now"
	"github.com/robfig/cron/v3"
)

// ProgressMaintainer is the part of the enrollment service the sweep drives
type ProgressMaintainer interface {
	ReseedIncomplete(ctx context.Context) (int, error)
	ExpireStalePayments(ctx context.Context, cutoff time.Time) (int64, error)
}

// InitializeProgressScheduler starts the periodic progress sweep
func InitializeProgressScheduler(svc ProgressMaintainer, schedule string, pendingTTL time.Duration) (*cron.Cron, error) {
	log.Println("[PROGRESS-SCHEDULER] Initializing progress scheduler...")

	c := cron.New()

	_, err := c.AddFunc(schedule, func() {
		log.Println("[PROGRESS-SCHEDULER] Running progress sweep...")
		RunProgressSweep(context.Background(), svc, pendingTTL, time.Now())
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	log.Printf("[PROGRESS-SCHEDULER] Progress scheduler started - schedule %q", schedule)
	return c, nil
}

// RunProgressSweep heals enrollments with missing progress rows and fails
// checkout payments that stayed pending longer than pendingTTL
func RunProgressSweep(ctx context.Context, svc ProgressMaintainer, pendingTTL time.Duration, at time.Time) {
	seeded, err := svc.ReseedIncomplete(ctx)
	if err != nil {
		log.Printf("[PROGRESS-SCHEDULER] Error reseeding enrollments: %v", err)
	} else if seeded > 0 {
		log.Printf("[PROGRESS-SCHEDULER] Seeded %d missing progress rows", seeded)
	}

	if pendingTTL <= 0 {
		return
	}

	// whole hours so consecutive sweeps agree on the cutoff
	cutoff := now.New(at.Add(-pendingTTL)).BeginningOfHour()
	expired, err := svc.ExpireStalePayments(ctx, cutoff)
	if err != nil {
		log.Printf("[PROGRESS-SCHEDULER] Error expiring pending payments: %v", err)
		return
	}
	if expired > 0 {
		log.Printf("[PROGRESS-SCHEDULER] Marked %d stale pending payments as failed", expired)
	}
}
