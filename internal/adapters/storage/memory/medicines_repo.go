package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"medicine-reminder/internal/domain/medicines"
)

type medicinesRepo struct {
	mu   sync.RWMutex
	byID map[string]medicines.Medicine
}

func NewMedicinesRepo() medicines.Repository {
	return &medicinesRepo{
		byID: make(map[string]medicines.Medicine),
	}
}

func (r *medicinesRepo) Create(ctx context.Context, m medicines.Medicine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.ID == "" {
		return errors.New("medicine id required")
	}
	if _, exists := r.byID[m.ID]; exists {
		return errors.New("medicine already exists")
	}

	r.byID[m.ID] = m
	return nil
}

func (r *medicinesRepo) GetByID(ctx context.Context, id string) (medicines.Medicine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	if !ok {
		return medicines.Medicine{}, medicines.ErrNotFound
	}
	return m, nil
}

func (r *medicinesRepo) List(ctx context.Context) ([]medicines.Medicine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]medicines.Medicine, 0, len(r.byID))
	for _, m := range r.byID {
		out = append(out, m)
	}
	sortByTime(out)
	return out, nil
}

func (r *medicinesRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return medicines.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *medicinesRepo) UpdateReminderStatus(ctx context.Context, id string, status medicines.ReminderStatus, reminderAt *time.Time, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[id]
	if !ok {
		return medicines.ErrNotFound
	}
	m.ReminderStatus = status
	if reminderAt != nil {
		at := *reminderAt
		m.ReminderAt = &at
	}
	m.ReminderUpdatedAt = &updatedAt
	r.byID[id] = m
	return nil
}

func (r *medicinesRepo) ListPendingReminders(ctx context.Context) ([]medicines.Medicine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]medicines.Medicine, 0)
	for _, m := range r.byID {
		if m.ReminderStatus == medicines.ReminderPending || m.ReminderStatus == medicines.ReminderFiring {
			out = append(out, m)
		}
	}
	sortByTime(out)
	return out, nil
}

// sortByTime ordena por hora ascendente; a igual hora, por creación.
func sortByTime(items []medicines.Medicine) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Time.Equal(items[j].Time) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].Time.Before(items[j].Time)
	})
}
