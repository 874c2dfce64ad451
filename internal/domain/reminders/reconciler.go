package reminders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"medicine-reminder/internal/platform/logger"
)

// Reconciler corre Resync según una expresión cron ("@every 10m", "*/5 * * * *").
type Reconciler struct {
	cron  *cron.Cron
	sched *Scheduler
	src   PendingSource
	log   logger.Logger
}

func NewReconciler(spec string, sched *Scheduler, src PendingSource, log logger.Logger) (*Reconciler, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("reconcile spec required")
	}
	if log == nil {
		log = logger.Nop()
	}

	r := &Reconciler{
		cron:  cron.New(),
		sched: sched,
		src:   src,
		log:   log.With(map[string]any{"component": "reconciler"}),
	}
	if _, err := r.cron.AddFunc(spec, r.tick); err != nil {
		return nil, fmt.Errorf("invalid reconcile spec %q: %w", spec, err)
	}
	return r, nil
}

func (r *Reconciler) Start() { r.cron.Start() }

// Stop espera a que termine una pasada en curso.
func (r *Reconciler) Stop(ctx context.Context) error {
	done := r.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reconciler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := r.sched.Resync(ctx, r.src); err != nil {
		r.log.Error("resync failed", map[string]any{"error": err})
	}
}
