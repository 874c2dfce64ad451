package medicines

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Scheduler es lo que el servicio necesita del scheduler de recordatorios.
// Se define acá para que reminders pueda importar este paquete sin ciclos.
type Scheduler interface {
	// Plan calcula el estado inicial (pending/skipped y hora de disparo) sin
	// programar nada.
	Plan(m Medicine) ReminderState
	Schedule(ctx context.Context, m Medicine) ReminderState
	Cancel(ctx context.Context, id string) bool
	Lookup(id string) (ReminderState, bool)
}

type Service struct {
	repo      Repository
	scheduler Scheduler
	now       func() time.Time
}

// NewService crea el servicio. scheduler puede ser nil (sin recordatorios).
func NewService(repo Repository, scheduler Scheduler) *Service {
	return &Service{
		repo:      repo,
		scheduler: scheduler,
		now:       time.Now,
	}
}

type CreateInput struct {
	Name    string
	Tablets int
	Time    time.Time
	Email   string
}

// Create persiste la entrada con su estado de recordatorio inicial y recién
// después la entrega al scheduler. Schedule no bloquea ni falla: el estado
// resultante (pending/skipped) viaja en la respuesta.
func (s *Service) Create(ctx context.Context, in CreateInput) (Medicine, error) {
	in, err := validateCreate(in)
	if err != nil {
		return Medicine{}, err
	}

	m := Medicine{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Tablets:   in.Tablets,
		Time:      in.Time,
		Email:     in.Email,
		CreatedAt: s.now(),
	}
	// la fila nace pending: si el proceso cae antes de Schedule, Recover la ve
	if s.scheduler != nil {
		m.applyReminder(s.scheduler.Plan(m))
		updatedAt := m.CreatedAt
		m.ReminderUpdatedAt = &updatedAt
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return Medicine{}, fmt.Errorf("%w: %v", ErrStore, err)
	}

	if s.scheduler != nil {
		m.applyReminder(s.scheduler.Schedule(ctx, m))
	}
	return m, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Medicine, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Medicine{}, ErrInvalidInput
	}

	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Medicine{}, storeErr(err)
	}
	s.overlay(&m)
	return m, nil
}

func (s *Service) List(ctx context.Context) ([]Medicine, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	for i := range items {
		s.overlay(&items[i])
	}
	return items, nil
}

// Delete borra la entrada y cancela su recordatorio si seguía pendiente.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidInput
	}

	// primero el store: si falla, el recordatorio sigue intacto
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeErr(err)
	}
	if s.scheduler != nil {
		s.scheduler.Cancel(ctx, id)
	}
	return nil
}

// overlay reemplaza el estado persistido por el vivo del scheduler, que puede
// ir un paso adelante del store.
func (s *Service) overlay(m *Medicine) {
	if s.scheduler == nil {
		return
	}
	if st, ok := s.scheduler.Lookup(m.ID); ok {
		m.applyReminder(st)
	}
}

func storeErr(err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrStore, err)
}
