// Package reminders programa y dispara los avisos de cada entrada.
//
// Un único goroutine mantiene un min-heap por hora de disparo y duerme hasta
// el próximo vencimiento, con un tope de maxSleepCap para reevaluar el reloj
// de pared (saltos NTP, suspensión del host). Los envíos corren fuera del
// loop, acotados por un semáforo de workers.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"medicine-reminder/internal/domain/medicines"
	"medicine-reminder/internal/platform/logger"
	"medicine-reminder/internal/ports/dedup"
	"medicine-reminder/internal/ports/notify"
)

const (
	DefaultLeadTime     = 5 * time.Minute
	DefaultSendTimeout  = 30 * time.Second
	DefaultRetryBackoff = time.Second
	DefaultWorkers      = 4
	DefaultGuardTTL     = 24 * time.Hour

	maxSleepCap = 60 * time.Second

	// tiempo que se conservan en memoria los recordatorios terminados
	retention = time.Hour
)

var ErrStopped = errors.New("scheduler stopped")

type Options struct {
	LeadTime time.Duration
	Notifier notify.Notifier

	// Opcionales.
	Recorder Recorder
	Guard    dedup.Guard
	GuardTTL time.Duration
	Logger   logger.Logger

	SendTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	Workers      int
	Location     *time.Location
}

type Scheduler struct {
	leadTime     time.Duration
	notifier     notify.Notifier
	recorder     Recorder
	guard        dedup.Guard
	guardTTL     time.Duration
	log          logger.Logger
	sendTimeout  time.Duration
	maxRetries   int
	retryBackoff time.Duration
	loc          *time.Location
	now          func() time.Time

	mu    sync.Mutex
	queue reminderHeap
	byID  map[string]*Reminder

	wake     chan struct{}
	sem      chan struct{}
	inflight sync.WaitGroup

	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(opts Options) (*Scheduler, error) {
	if opts.Notifier == nil {
		return nil, fmt.Errorf("reminders: %w", notify.ErrNotConfigured)
	}
	if opts.LeadTime < 0 {
		return nil, errors.New("reminders: lead time must not be negative")
	}

	s := &Scheduler{
		leadTime:     opts.LeadTime,
		notifier:     opts.Notifier,
		recorder:     opts.Recorder,
		guard:        opts.Guard,
		guardTTL:     opts.GuardTTL,
		log:          opts.Logger,
		sendTimeout:  opts.SendTimeout,
		maxRetries:   opts.MaxRetries,
		retryBackoff: opts.RetryBackoff,
		loc:          opts.Location,
		now:          time.Now,
		byID:         make(map[string]*Reminder),
		wake:         make(chan struct{}, 1),
	}

	if s.log == nil {
		s.log = logger.Nop()
	}
	s.log = s.log.With(map[string]any{"component": "reminders"})
	if s.guardTTL <= 0 {
		s.guardTTL = DefaultGuardTTL
	}
	if s.sendTimeout <= 0 {
		s.sendTimeout = DefaultSendTimeout
	}
	if s.maxRetries < 0 {
		s.maxRetries = 0
	}
	if s.retryBackoff <= 0 {
		s.retryBackoff = DefaultRetryBackoff
	}
	if s.loc == nil {
		s.loc = time.Local
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	s.sem = make(chan struct{}, workers)

	return s, nil
}

// LeadTime es el adelanto con el que se avisa.
func (s *Scheduler) LeadTime() time.Duration { return s.leadTime }

// Start lanza el loop. Llamarlo más de una vez no tiene efecto.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	s.log.Info("scheduler started", map[string]any{
		"lead_time": s.leadTime.String(),
		"workers":   cap(s.sem),
	})
	go s.run(ctx, done)
}

// Stop corta el loop y espera los envíos en curso (hasta que ctx venza).
// Lo que quedó pendiente sigue como pending en el store y se recupera al
// próximo arranque.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	waited := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		s.log.Info("scheduler stopped", map[string]any{"pending": s.Pending()})
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Plan devuelve el estado que Schedule le daría a m ahora mismo, sin
// programarlo ni persistir nada.
func (s *Scheduler) Plan(m medicines.Medicine) medicines.ReminderState {
	fireAt := m.Time.Add(-s.leadTime)
	if !fireAt.After(s.now()) {
		return medicines.ReminderState{Status: medicines.ReminderSkipped, FireAt: fireAt}
	}
	return medicines.ReminderState{Status: medicines.ReminderPending, FireAt: fireAt}
}

// Schedule registra el recordatorio de una entrada ya persistida. No bloquea
// ni falla: si la hora de disparo ya pasó devuelve skipped y no programa nada.
// Es idempotente por id mientras el recordatorio siga en memoria.
func (s *Scheduler) Schedule(ctx context.Context, m medicines.Medicine) medicines.ReminderState {
	plan := s.Plan(m)
	fireAt := plan.FireAt
	log := s.log.With(map[string]any{"entry_id": m.ID, "fire_at": fireAt.Format(time.RFC3339)})

	s.mu.Lock()
	if r, ok := s.byID[m.ID]; ok {
		st := medicines.ReminderState{Status: r.Status, FireAt: r.FireAt}
		s.mu.Unlock()
		log.Debug("reminder already known", map[string]any{"status": st.Status})
		return st
	}

	if plan.Status == medicines.ReminderSkipped {
		s.mu.Unlock()
		log.Info("reminder skipped", map[string]any{
			"status": medicines.ReminderSkipped,
			"reason": "fire time already passed",
		})
		s.record(ctx, m.ID, medicines.ReminderSkipped, fireAt)
		return medicines.ReminderState{Status: medicines.ReminderSkipped, FireAt: fireAt}
	}

	r := &Reminder{
		EntryID: m.ID,
		FireAt:  fireAt,
		Status:  medicines.ReminderPending,
		entry:   m,
		index:   -1,
	}
	s.byID[m.ID] = r
	s.mu.Unlock()

	// pending se persiste antes de encolar: el envío no puede pisar un estado
	// posterior con uno anterior.
	s.record(ctx, m.ID, medicines.ReminderPending, fireAt)

	s.mu.Lock()
	queued := r.Status == medicines.ReminderPending
	if queued {
		s.queue.push(r)
	}
	st := medicines.ReminderState{Status: r.Status, FireAt: fireAt}
	s.mu.Unlock()

	if queued {
		s.signal()
		log.Info("reminder scheduled", map[string]any{"status": medicines.ReminderPending})
	}
	return st
}

// Cancel saca de la cola un recordatorio que todavía no se disparó.
func (s *Scheduler) Cancel(ctx context.Context, entryID string) bool {
	s.mu.Lock()
	r, ok := s.byID[entryID]
	if !ok || r.Status != medicines.ReminderPending {
		s.mu.Unlock()
		return false
	}
	// puede no estar encolado todavía si Schedule sigue persistiendo
	s.queue.remove(r)
	r.Status = medicines.ReminderCancelled
	r.DoneAt = s.now()
	fireAt := r.FireAt
	s.mu.Unlock()

	s.signal()
	s.record(ctx, entryID, medicines.ReminderCancelled, fireAt)
	s.log.Info("reminder cancelled", map[string]any{"entry_id": entryID, "status": medicines.ReminderCancelled})
	return true
}

// Lookup devuelve el estado vivo de una entrada, si el scheduler la conoce.
func (s *Scheduler) Lookup(entryID string) (medicines.ReminderState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[entryID]
	if !ok {
		return medicines.ReminderState{}, false
	}
	return medicines.ReminderState{Status: r.Status, FireAt: r.FireAt}, true
}

// Snapshot devuelve una copia del Reminder.
func (s *Scheduler) Snapshot(entryID string) (Reminder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[entryID]
	if !ok {
		return Reminder{}, false
	}
	out := *r
	out.entry = medicines.Medicine{}
	return out, true
}

// Pending cuenta los recordatorios encolados.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(s.nextWait())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		case <-timer.C:
			s.fireDue(ctx)
		}
		timer.Reset(s.nextWait())
	}
}

// nextWait es lo que falta para el próximo disparo, acotado a maxSleepCap.
func (s *Scheduler) nextWait() time.Duration {
	s.mu.Lock()
	next := s.queue.peek()
	var fireAt time.Time
	if next != nil {
		fireAt = next.FireAt
	}
	s.mu.Unlock()

	if next == nil {
		return maxSleepCap
	}
	d := fireAt.Sub(s.now())
	if d < 0 {
		return 0
	}
	if d > maxSleepCap {
		return maxSleepCap
	}
	return d
}

// fireDue saca de la cola todo lo vencido y lo despacha. Cada Reminder sale
// del heap exactamente una vez, así que no hay doble disparo.
func (s *Scheduler) fireDue(ctx context.Context) {
	now := s.now()

	var due []*Reminder
	s.mu.Lock()
	for next := s.queue.peek(); next != nil && !next.FireAt.After(now); next = s.queue.peek() {
		r := s.queue.pop()
		r.Status = medicines.ReminderFiring
		due = append(due, r)
	}
	s.pruneLocked(now)
	s.mu.Unlock()

	for _, r := range due {
		s.dispatch(ctx, r)
	}
}

func (s *Scheduler) pruneLocked(now time.Time) {
	for id, r := range s.byID {
		if r.Status.Terminal() && !r.DoneAt.IsZero() && now.Sub(r.DoneAt) > retention {
			delete(s.byID, id)
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context, r *Reminder) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		s.sem <- struct{}{}
		defer func() { <-s.sem }()

		s.deliver(ctx, r)
	}()
}

// deliver es la acción diferida. Ningún error ni panic sale de acá: el
// resultado queda en el Reminder, en el store y en el log.
func (s *Scheduler) deliver(ctx context.Context, r *Reminder) {
	// el envío en curso termina aunque el loop se detenga; SendTimeout lo acota
	sendCtx := context.WithoutCancel(ctx)
	log := s.log.With(map[string]any{"entry_id": r.EntryID, "fire_at": r.FireAt.Format(time.RFC3339)})

	defer func() {
		if p := recover(); p != nil {
			s.finish(sendCtx, log, r, medicines.ReminderFailed, fmt.Errorf("panic: %v", p))
		}
	}()

	s.record(sendCtx, r.EntryID, medicines.ReminderFiring, r.FireAt)

	if s.guard != nil {
		claimed, err := s.guard.Claim(sendCtx, "reminder:"+r.EntryID, s.guardTTL)
		switch {
		case err != nil:
			log.Warn("fire guard unavailable, sending anyway", map[string]any{"error": err})
		case !claimed:
			s.mu.Lock()
			r.Status = medicines.ReminderCancelled
			r.DoneAt = s.now()
			s.mu.Unlock()
			log.Info("reminder already claimed elsewhere", map[string]any{"status": medicines.ReminderCancelled})
			return
		}
	}

	msg := Compose(r.entry, s.loc)

	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := s.retryBackoff << (attempt - 1)
			log.Warn("retrying reminder", map[string]any{"attempt": attempt + 1, "backoff": backoff.String()})
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				s.finish(sendCtx, log, r, medicines.ReminderFailed, fmt.Errorf("%w during retry backoff: %v", ErrStopped, err))
				return
			}
		}

		attemptCtx, cancel := context.WithTimeout(sendCtx, s.sendTimeout)
		err = s.notifier.Send(attemptCtx, msg)
		cancel()

		s.mu.Lock()
		r.Attempts++
		s.mu.Unlock()

		if err == nil || notify.Permanent(err) {
			break
		}
	}

	if err != nil {
		s.finish(sendCtx, log, r, medicines.ReminderFailed, err)
		return
	}
	s.finish(sendCtx, log, r, medicines.ReminderFired, nil)
}

func (s *Scheduler) finish(ctx context.Context, log logger.Logger, r *Reminder, status medicines.ReminderStatus, err error) {
	s.mu.Lock()
	r.Status = status
	r.DoneAt = s.now()
	if err != nil {
		r.LastError = err.Error()
	}
	attempts := r.Attempts
	s.mu.Unlock()

	s.record(ctx, r.EntryID, status, r.FireAt)

	fields := map[string]any{"status": status, "attempts": attempts}
	if err != nil {
		fields["error_kind"] = notify.Kind(err)
		fields["error"] = err
		log.Error("reminder delivery failed", fields)
		return
	}
	log.Info("reminder sent", fields)
}

func (s *Scheduler) record(ctx context.Context, entryID string, status medicines.ReminderStatus, fireAt time.Time) {
	if s.recorder == nil {
		return
	}
	at := fireAt
	err := s.recorder.UpdateReminderStatus(ctx, entryID, status, &at, s.now())
	switch {
	case err == nil:
	case errors.Is(err, medicines.ErrNotFound):
		// la entrada se borró; no hay fila que actualizar
		s.log.Debug("reminder status not persisted, entry gone", map[string]any{
			"entry_id": entryID,
			"status":   status,
		})
	default:
		s.log.Warn("reminder status not persisted", map[string]any{
			"entry_id": entryID,
			"status":   status,
			"error":    err,
		})
	}
}
