package reminders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"medicine-reminder/internal/domain/medicines"
	"medicine-reminder/internal/ports/notify"
)

// -------------------------
// Fakes
// -------------------------

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []notify.Message
	calls map[string]int
	fail  func(msg notify.Message, call int) error
	ch    chan notify.Message
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{calls: map[string]int{}, ch: make(chan notify.Message, 128)}
}

func (n *fakeNotifier) Send(ctx context.Context, msg notify.Message) error {
	n.mu.Lock()
	n.calls[msg.To]++
	call := n.calls[msg.To]
	fail := n.fail
	n.mu.Unlock()

	if fail != nil {
		if err := fail(msg, call); err != nil {
			return err
		}
	}

	n.mu.Lock()
	n.sent = append(n.sent, msg)
	n.mu.Unlock()
	n.ch <- msg
	return nil
}

func (n *fakeNotifier) Sent() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.sent...)
}

func (n *fakeNotifier) Calls(to string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[to]
}

type fakeRecorder struct {
	mu      sync.Mutex
	history map[string][]medicines.ReminderStatus
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{history: map[string][]medicines.ReminderStatus{}}
}

func (r *fakeRecorder) UpdateReminderStatus(ctx context.Context, id string, status medicines.ReminderStatus, reminderAt *time.Time, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history[id] = append(r.history[id], status)
	return nil
}

func (r *fakeRecorder) History(id string) []medicines.ReminderStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]medicines.ReminderStatus(nil), r.history[id]...)
}

func (r *fakeRecorder) Last(id string) medicines.ReminderStatus {
	h := r.History(id)
	if len(h) == 0 {
		return ""
	}
	return h[len(h)-1]
}

type fakeSource struct {
	items []medicines.Medicine
	err   error
}

func (f fakeSource) ListPendingReminders(ctx context.Context) ([]medicines.Medicine, error) {
	return f.items, f.err
}

type fakeGuard struct {
	mu      sync.Mutex
	claimed map[string]bool
	err     error
}

func (g *fakeGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.claimed[key] {
		return false, nil
	}
	g.claimed[key] = true
	return true, nil
}

// clock es un reloj manual compartido por scheduler y test.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

var t0 = time.Date(2030, 6, 15, 9, 0, 0, 0, time.UTC)

func newTestScheduler(t *testing.T, n notify.Notifier, rec Recorder, mutate func(*Options)) (*Scheduler, *clock) {
	t.Helper()

	opts := Options{
		LeadTime:     5 * time.Minute,
		Notifier:     n,
		Recorder:     rec,
		RetryBackoff: time.Millisecond,
		Location:     time.UTC,
	}
	if mutate != nil {
		mutate(&opts)
	}

	s, err := NewScheduler(opts)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	c := &clock{t: t0}
	s.now = c.Now
	return s, c
}

// advance mueve el reloj, dispara lo vencido y espera los envíos.
func advance(s *Scheduler, c *clock, to time.Time) {
	c.Set(to)
	s.fireDue(context.Background())
	s.inflight.Wait()
}

func entry(id, name string, tablets int, at time.Time, email string) medicines.Medicine {
	return medicines.Medicine{ID: id, Name: name, Tablets: tablets, Time: at, Email: email}
}

// -------------------------
// Tests
// -------------------------

func TestSchedule_FiresExactlyOnceAtFireAt(t *testing.T) {
	n := newFakeNotifier()
	rec := newFakeRecorder()
	s, c := newTestScheduler(t, n, rec, nil)

	st := s.Schedule(context.Background(), entry("e-1", "Aspirin", 2, t0.Add(10*time.Minute), "a@b.com"))
	if st.Status != medicines.ReminderPending {
		t.Fatalf("expected pending, got %s", st.Status)
	}
	if !st.FireAt.Equal(t0.Add(5 * time.Minute)) {
		t.Fatalf("expected fireAt=now+5m, got %s", st.FireAt)
	}
	if s.Pending() != 1 {
		t.Fatalf("expected 1 pending reminder, got %d", s.Pending())
	}

	advance(s, c, t0.Add(4*time.Minute+59*time.Second))
	if len(n.Sent()) != 0 {
		t.Fatalf("fired before fireAt")
	}

	advance(s, c, t0.Add(5*time.Minute))
	advance(s, c, t0.Add(6*time.Minute))
	advance(s, c, t0.Add(time.Hour))

	sent := n.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected exactly one notify attempt, got %d", len(sent))
	}
	if sent[0].To != "a@b.com" {
		t.Fatalf("expected destination a@b.com, got %q", sent[0].To)
	}
	for _, want := range []string{"Aspirin", "2", FormatWhen(t0.Add(10*time.Minute), time.UTC)} {
		if !strings.Contains(sent[0].Text, want) {
			t.Fatalf("expected %q in content:\n%s", want, sent[0].Text)
		}
	}

	snap, ok := s.Snapshot("e-1")
	if !ok || snap.Status != medicines.ReminderFired || snap.Attempts != 1 {
		t.Fatalf("expected fired after 1 attempt, got %+v", snap)
	}

	want := []medicines.ReminderStatus{medicines.ReminderPending, medicines.ReminderFiring, medicines.ReminderFired}
	if got := rec.History("e-1"); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("unexpected persisted transitions: %v", got)
	}
}

func TestSchedule_SkipsWhenFireTimeAlreadyPassed(t *testing.T) {
	n := newFakeNotifier()
	rec := newFakeRecorder()
	s, c := newTestScheduler(t, n, rec, nil)

	st := s.Schedule(context.Background(), entry("e-1", "Aspirin", 2, t0.Add(1*time.Minute), "a@b.com"))
	if st.Status != medicines.ReminderSkipped {
		t.Fatalf("expected skipped, got %s", st.Status)
	}
	if s.Pending() != 0 {
		t.Fatalf("expected no scheduled reminder")
	}
	if _, ok := s.Lookup("e-1"); ok {
		t.Fatalf("skipped entries must not create a ScheduledReminder")
	}

	advance(s, c, t0.Add(24*time.Hour))
	if len(n.Sent()) != 0 {
		t.Fatalf("expected zero notify attempts, got %d", len(n.Sent()))
	}
	if rec.Last("e-1") != medicines.ReminderSkipped {
		t.Fatalf("expected skipped to be persisted, got %v", rec.History("e-1"))
	}
}

func TestSchedule_BoundaryFireAtEqualsNowIsSkipped(t *testing.T) {
	n := newFakeNotifier()
	s, _ := newTestScheduler(t, n, nil, nil)

	st := s.Schedule(context.Background(), entry("e-1", "Aspirin", 1, t0.Add(5*time.Minute), "a@b.com"))
	if st.Status != medicines.ReminderSkipped {
		t.Fatalf("fireAt == now must be skipped, got %s", st.Status)
	}
}

func TestPlan_HasNoSideEffects(t *testing.T) {
	rec := newFakeRecorder()
	s, _ := newTestScheduler(t, newFakeNotifier(), rec, nil)

	cases := []struct {
		at   time.Time
		want medicines.ReminderStatus
	}{
		{t0.Add(10 * time.Minute), medicines.ReminderPending},
		{t0.Add(5 * time.Minute), medicines.ReminderSkipped},
		{t0.Add(-time.Hour), medicines.ReminderSkipped},
	}
	for _, tc := range cases {
		st := s.Plan(entry("e-1", "Aspirin", 1, tc.at, "a@b.com"))
		if st.Status != tc.want {
			t.Fatalf("at %v: expected %s, got %s", tc.at, tc.want, st.Status)
		}
		if !st.FireAt.Equal(tc.at.Add(-5 * time.Minute)) {
			t.Fatalf("at %v: unexpected fireAt %v", tc.at, st.FireAt)
		}
	}

	if s.Pending() != 0 {
		t.Fatalf("plan must not enqueue, pending=%d", s.Pending())
	}
	if _, ok := s.Lookup("e-1"); ok {
		t.Fatalf("plan must not register the entry")
	}
	if len(rec.History("e-1")) != 0 {
		t.Fatalf("plan must not persist, got %v", rec.History("e-1"))
	}
}

func TestSchedule_IdempotentPerEntry(t *testing.T) {
	n := newFakeNotifier()
	s, c := newTestScheduler(t, n, nil, nil)

	e := entry("e-1", "Aspirin", 2, t0.Add(10*time.Minute), "a@b.com")
	s.Schedule(context.Background(), e)
	s.Schedule(context.Background(), e)
	if s.Pending() != 1 {
		t.Fatalf("duplicate schedule should not enqueue twice, pending=%d", s.Pending())
	}

	advance(s, c, t0.Add(5*time.Minute))
	s.Schedule(context.Background(), e)
	advance(s, c, t0.Add(10*time.Minute))

	if n.Calls("a@b.com") != 1 {
		t.Fatalf("expected exactly one send, got %d", n.Calls("a@b.com"))
	}
}

func TestDeliver_FailureIsContained(t *testing.T) {
	n := newFakeNotifier()
	n.fail = func(msg notify.Message, call int) error {
		if msg.To == "broken@b.com" {
			return fmt.Errorf("%w: dial tcp: connection refused", notify.ErrTransport)
		}
		return nil
	}
	rec := newFakeRecorder()
	s, c := newTestScheduler(t, n, rec, nil)

	s.Schedule(context.Background(), entry("bad", "Ibuprofen", 1, t0.Add(10*time.Minute), "broken@b.com"))
	s.Schedule(context.Background(), entry("good", "Aspirin", 2, t0.Add(20*time.Minute), "a@b.com"))

	advance(s, c, t0.Add(5*time.Minute))

	snap, _ := s.Snapshot("bad")
	if snap.Status != medicines.ReminderFailed {
		t.Fatalf("expected failed, got %s", snap.Status)
	}
	if !strings.Contains(snap.LastError, "connection refused") {
		t.Fatalf("expected error recorded, got %q", snap.LastError)
	}
	if n.Calls("broken@b.com") != 1 {
		t.Fatalf("no retries by default, got %d calls", n.Calls("broken@b.com"))
	}

	advance(s, c, t0.Add(15*time.Minute))
	if got, _ := s.Lookup("good"); got.Status != medicines.ReminderFired {
		t.Fatalf("unrelated reminder should still fire, got %s", got.Status)
	}
	if rec.Last("bad") != medicines.ReminderFailed {
		t.Fatalf("expected failed persisted, got %v", rec.History("bad"))
	}
}

func TestDeliver_PanicInNotifierMarksFailed(t *testing.T) {
	n := newFakeNotifier()
	n.fail = func(msg notify.Message, call int) error { panic("smtp client exploded") }
	s, c := newTestScheduler(t, n, nil, nil)

	s.Schedule(context.Background(), entry("e-1", "Aspirin", 2, t0.Add(10*time.Minute), "a@b.com"))
	advance(s, c, t0.Add(5*time.Minute))

	snap, _ := s.Snapshot("e-1")
	if snap.Status != medicines.ReminderFailed {
		t.Fatalf("expected failed after panic, got %s", snap.Status)
	}
}

func TestDeliver_RetriesTransientErrors(t *testing.T) {
	n := newFakeNotifier()
	n.fail = func(msg notify.Message, call int) error {
		if call <= 2 {
			return fmt.Errorf("%w: 421 try again later", notify.ErrTransport)
		}
		return nil
	}
	s, c := newTestScheduler(t, n, nil, func(o *Options) { o.MaxRetries = 2 })

	s.Schedule(context.Background(), entry("e-1", "Aspirin", 2, t0.Add(10*time.Minute), "a@b.com"))
	advance(s, c, t0.Add(5*time.Minute))

	snap, _ := s.Snapshot("e-1")
	if snap.Status != medicines.ReminderFired || snap.Attempts != 3 {
		t.Fatalf("expected fired after 3 attempts, got %+v", snap)
	}
}

func TestDeliver_DoesNotRetryPermanentErrors(t *testing.T) {
	n := newFakeNotifier()
	n.fail = func(msg notify.Message, call int) error {
		return fmt.Errorf("%w: 550 no such user", notify.ErrInvalidDestination)
	}
	s, c := newTestScheduler(t, n, nil, func(o *Options) { o.MaxRetries = 3 })

	s.Schedule(context.Background(), entry("e-1", "Aspirin", 2, t0.Add(10*time.Minute), "nobody@b.com"))
	advance(s, c, t0.Add(5*time.Minute))

	if n.Calls("nobody@b.com") != 1 {
		t.Fatalf("expected a single attempt, got %d", n.Calls("nobody@b.com"))
	}
}

func TestSchedule_ConcurrentEntriesAreIsolated(t *testing.T) {
	n := newFakeNotifier()
	s, c := newTestScheduler(t, n, nil, func(o *Options) { o.Workers = 8 })

	const total = 50
	var wg sync.WaitGroup
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			at := t0.Add(time.Duration(10+i) * time.Minute)
			s.Schedule(context.Background(), entry(
				fmt.Sprintf("e-%d", i),
				fmt.Sprintf("Med-%d", i),
				1,
				at,
				fmt.Sprintf("user%d@b.com", i),
			))
		}(i)
	}
	wg.Wait()

	if s.Pending() != total {
		t.Fatalf("expected %d pending, got %d", total, s.Pending())
	}

	advance(s, c, t0.Add(2*time.Hour))

	sent := n.Sent()
	if len(sent) != total {
		t.Fatalf("expected %d sends, got %d", total, len(sent))
	}
	for _, msg := range sent {
		var i int
		if _, err := fmt.Sscanf(msg.To, "user%d@b.com", &i); err != nil {
			t.Fatalf("unexpected destination %q", msg.To)
		}
		if !strings.Contains(msg.Text, fmt.Sprintf("Med-%d\n", i)) {
			t.Fatalf("message for %s carries another entry's content:\n%s", msg.To, msg.Text)
		}
		if n.Calls(msg.To) != 1 {
			t.Fatalf("duplicate send for %s", msg.To)
		}
	}
}

func TestCancel_RemovesPendingReminder(t *testing.T) {
	n := newFakeNotifier()
	rec := newFakeRecorder()
	s, c := newTestScheduler(t, n, rec, nil)

	s.Schedule(context.Background(), entry("e-1", "Aspirin", 2, t0.Add(10*time.Minute), "a@b.com"))
	if !s.Cancel(context.Background(), "e-1") {
		t.Fatalf("expected cancel to succeed")
	}
	if s.Cancel(context.Background(), "e-1") {
		t.Fatalf("second cancel should be a no-op")
	}

	advance(s, c, t0.Add(time.Hour))
	if len(n.Sent()) != 0 {
		t.Fatalf("cancelled reminder fired")
	}
	if rec.Last("e-1") != medicines.ReminderCancelled {
		t.Fatalf("expected cancelled persisted, got %v", rec.History("e-1"))
	}
}

func TestGuard_ClaimedElsewhereSkipsSend(t *testing.T) {
	n := newFakeNotifier()
	g := &fakeGuard{claimed: map[string]bool{"reminder:e-1": true}}
	s, c := newTestScheduler(t, n, nil, func(o *Options) { o.Guard = g })

	s.Schedule(context.Background(), entry("e-1", "Aspirin", 2, t0.Add(10*time.Minute), "a@b.com"))
	s.Schedule(context.Background(), entry("e-2", "Aspirin", 2, t0.Add(10*time.Minute), "c@d.com"))
	advance(s, c, t0.Add(5*time.Minute))

	if n.Calls("a@b.com") != 0 {
		t.Fatalf("claimed reminder must not be sent here")
	}
	if n.Calls("c@d.com") != 1 {
		t.Fatalf("unclaimed reminder should be sent")
	}
}

func TestGuard_ErrorStillSends(t *testing.T) {
	n := newFakeNotifier()
	g := &fakeGuard{err: errors.New("redis: connection refused")}
	s, c := newTestScheduler(t, n, nil, func(o *Options) { o.Guard = g })

	s.Schedule(context.Background(), entry("e-1", "Aspirin", 2, t0.Add(10*time.Minute), "a@b.com"))
	advance(s, c, t0.Add(5*time.Minute))

	if n.Calls("a@b.com") != 1 {
		t.Fatalf("guard outage should not drop the reminder")
	}
}

func TestRestart_WithoutRecoveryLosesPendingReminders(t *testing.T) {
	n := newFakeNotifier()
	first, _ := newTestScheduler(t, n, nil, nil)
	first.Schedule(context.Background(), entry("e-1", "Aspirin", 2, t0.Add(10*time.Minute), "a@b.com"))

	// "reinicio": el estado en memoria no sobrevive
	second, c := newTestScheduler(t, n, nil, nil)
	advance(second, c, t0.Add(time.Hour))

	if len(n.Sent()) != 0 {
		t.Fatalf("a fresh scheduler must not know about reminders it never saw")
	}
}

func TestRecover_ReschedulesFutureAndCancelsLost(t *testing.T) {
	n := newFakeNotifier()
	rec := newFakeRecorder()
	s, c := newTestScheduler(t, n, rec, nil)

	src := fakeSource{items: []medicines.Medicine{
		{ID: "future", Name: "Aspirin", Tablets: 2, Time: t0.Add(30 * time.Minute), Email: "a@b.com", ReminderStatus: medicines.ReminderPending},
		{ID: "missed", Name: "Aspirin", Tablets: 2, Time: t0.Add(2 * time.Minute), Email: "m@b.com", ReminderStatus: medicines.ReminderPending},
		{ID: "inflight", Name: "Aspirin", Tablets: 2, Time: t0.Add(30 * time.Minute), Email: "f@b.com", ReminderStatus: medicines.ReminderFiring},
	}}

	rep, err := s.Recover(context.Background(), src)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if rep.Scheduled != 1 || rep.Cancelled != 2 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if rec.Last("missed") != medicines.ReminderCancelled || rec.Last("inflight") != medicines.ReminderCancelled {
		t.Fatalf("lost reminders should be persisted as cancelled")
	}

	// segunda pasada: ya conocido
	rep, _ = s.Recover(context.Background(), fakeSource{items: src.items[:1]})
	if rep.Known != 1 || rep.Scheduled != 0 {
		t.Fatalf("expected known entry on second pass, got %+v", rep)
	}

	advance(s, c, t0.Add(25*time.Minute))
	if len(n.Sent()) != 1 || n.Sent()[0].To != "a@b.com" {
		t.Fatalf("expected only the recovered future reminder to fire, got %v", n.Sent())
	}
}

func TestResync_IgnoresPastEntries(t *testing.T) {
	n := newFakeNotifier()
	rec := newFakeRecorder()
	s, _ := newTestScheduler(t, n, rec, nil)

	rep, err := s.Resync(context.Background(), fakeSource{items: []medicines.Medicine{
		{ID: "past", Time: t0.Add(-time.Hour), Email: "a@b.com", ReminderStatus: medicines.ReminderPending},
		{ID: "new", Time: t0.Add(time.Hour), Email: "b@b.com", ReminderStatus: medicines.ReminderPending},
	}})
	if err != nil {
		t.Fatalf("resync: %v", err)
	}
	if rep.Scheduled != 1 || rep.Ignored != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if len(rec.History("past")) != 0 {
		t.Fatalf("resync must not touch past entries")
	}
}

func TestRecover_SourceError(t *testing.T) {
	s, _ := newTestScheduler(t, newFakeNotifier(), nil, nil)
	if _, err := s.Recover(context.Background(), fakeSource{err: errors.New("db down")}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoop_FiresWithRealClock(t *testing.T) {
	n := newFakeNotifier()
	s, err := NewScheduler(Options{LeadTime: 0, Notifier: n, Location: time.UTC})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	st := s.Schedule(ctx, entry("e-1", "Aspirin", 2, time.Now().Add(50*time.Millisecond), "a@b.com"))
	if st.Status != medicines.ReminderPending {
		t.Fatalf("expected pending, got %s", st.Status)
	}

	select {
	case msg := <-n.ch:
		if msg.To != "a@b.com" {
			t.Fatalf("unexpected destination %q", msg.To)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("reminder did not fire")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if got, _ := s.Lookup("e-1"); got.Status != medicines.ReminderFired {
		t.Fatalf("expected fired, got %s", got.Status)
	}
}

func TestNewScheduler_Validation(t *testing.T) {
	if _, err := NewScheduler(Options{}); !errors.Is(err, notify.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured without notifier, got %v", err)
	}
	if _, err := NewScheduler(Options{Notifier: newFakeNotifier(), LeadTime: -time.Minute}); err == nil {
		t.Fatalf("expected error for negative lead time")
	}
}

func TestReconciler_InvalidSpec(t *testing.T) {
	s, _ := newTestScheduler(t, newFakeNotifier(), nil, nil)
	if _, err := NewReconciler("not a cron", s, fakeSource{}, nil); err == nil {
		t.Fatalf("expected invalid spec error")
	}
	r, err := NewReconciler("@every 1h", s, fakeSource{}, nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	r.Start()
	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
