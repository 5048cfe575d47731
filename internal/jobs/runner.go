// Package jobs schedules the periodic background sync of every user that
// holds a marketplace session.
package jobs

import (
	"context"
	"fmt"
	"log"
	stdsync "sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/logistix/vintedsync/internal/audit"
	"github.com/logistix/vintedsync/internal/session"
	syncsvc "github.com/logistix/vintedsync/internal/sync"
)

// perUserTimeout bounds one user's sync pass so a hung marketplace call
// cannot stall the whole schedule.
const perUserTimeout = 5 * time.Minute

// SyncRunner drives scheduled sync batches. Runs never overlap: a tick that
// fires while the previous one is still going is skipped.
type SyncRunner struct {
	cron     *cron.Cron
	syncer   *syncsvc.Service
	sessions *session.Manager
	audit    *audit.Logger
	interval time.Duration

	mu      stdsync.Mutex
	running bool
}

// NewSyncRunner creates a runner syncing every interval.
func NewSyncRunner(syncer *syncsvc.Service, sessions *session.Manager, auditLog *audit.Logger, interval time.Duration) *SyncRunner {
	return &SyncRunner{
		cron:     cron.New(),
		syncer:   syncer,
		sessions: sessions,
		audit:    auditLog,
		interval: interval,
	}
}

// Start registers the schedule and starts the cron loop.
func (r *SyncRunner) Start() error {
	spec := fmt.Sprintf("@every %s", r.interval)
	if _, err := r.cron.AddFunc(spec, r.runOnce); err != nil {
		return fmt.Errorf("schedule sync job: %w", err)
	}
	r.cron.Start()
	log.Printf("background sync scheduled (%s)", spec)
	return nil
}

// Stop halts the schedule and waits for a running pass to finish.
func (r *SyncRunner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

// RunOnce triggers one sync pass outside the schedule (startup, tests).
func (r *SyncRunner) RunOnce() {
	r.runOnce()
}

func (r *SyncRunner) runOnce() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		log.Println("background sync still running, skipping tick")
		return
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	ctx := context.Background()
	users, err := r.sessions.Users(ctx)
	if err != nil {
		log.Printf("background sync: list users: %v", err)
		return
	}

	for _, userID := range users {
		if userID == session.AnonymousUser {
			continue
		}
		r.syncUser(ctx, userID)
	}
}

// syncUser runs one user's batch; failures are logged and audited, never
// fatal to the schedule.
func (r *SyncRunner) syncUser(ctx context.Context, userID string) {
	ctx, cancel := context.WithTimeout(ctx, perUserTimeout)
	defer cancel()

	summary, err := r.syncer.SyncAll(ctx, userID)
	if err != nil {
		log.Printf("background sync: user %s: %v", userID, err)
		r.audit.Error("sync.scheduled", userID, err, nil)
		return
	}

	if summary.Total > 0 {
		log.Printf("background sync: user %s: %d synced, %d sold, %d reserved, %d failed",
			userID, summary.Synced, summary.Sold, summary.Reserved, summary.Failed)
	}
	r.audit.Record("sync.scheduled", userID, map[string]any{
		"total": summary.Total, "sold": summary.Sold,
		"reserved": summary.Reserved, "failed": summary.Failed,
	})
}
