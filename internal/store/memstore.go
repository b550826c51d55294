package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/hospiq/queue-backend/internal/models"
)

// MemStore is the in-memory Store. It backs tests and the default
// single-process deployment; state is lost on restart.
type MemStore struct {
	mu            sync.RWMutex
	patients      map[int64]models.Patient
	byContact     map[string]int64
	entries       map[int64]models.Entry
	nextPatientID int64
	nextEntryID   int64
}

func NewMemStore() *MemStore {
	return &MemStore{
		patients:  make(map[int64]models.Patient),
		byContact: make(map[string]int64),
		entries:   make(map[int64]models.Entry),
	}
}

func (m *MemStore) FindPatientByContact(_ context.Context, contact string) (*models.Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byContact[contact]
	if !ok {
		return nil, nil
	}
	p := m.patients[id]
	return &p, nil
}

func (m *MemStore) PatientByID(_ context.Context, id int64) (*models.Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemStore) UpsertPatient(_ context.Context, p models.Patient) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byContact[p.Contact]; ok {
		existing := m.patients[id]
		existing.Name = p.Name
		existing.Age = p.Age
		existing.Gender = p.Gender
		existing.VisitCount++
		existing.LastVisit = p.LastVisit
		m.patients[id] = existing
		return id, nil
	}
	m.nextPatientID++
	p.ID = m.nextPatientID
	p.VisitCount = 1
	m.patients[p.ID] = p
	m.byContact[p.Contact] = p.ID
	return p.ID, nil
}

func (m *MemStore) CountEntries(_ context.Context, department string, dayStart, dayEnd time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.entries {
		if e.Department == department && inWindow(e.RegisteredAt, dayStart, dayEnd) {
			n++
		}
	}
	return n, nil
}

func (m *MemStore) InsertEntry(_ context.Context, e models.Entry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextEntryID++
	e.ID = m.nextEntryID
	m.entries[e.ID] = e
	return e.ID, nil
}

func (m *MemStore) EntryByID(_ context.Context, id int64) (*models.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *MemStore) UpdateEntryStatus(_ context.Context, id int64, status models.Status, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return models.ErrNotFound
	}
	e.Status = status
	switch status {
	case models.StatusInProgress:
		e.CalledAt = &ts
	case models.StatusCompleted:
		e.CompletedAt = &ts
	}
	m.entries[id] = e
	return nil
}

func (m *MemStore) EntriesForDay(_ context.Context, dayStart, dayEnd time.Time, department string) ([]models.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var items []models.Item
	for _, e := range m.entries {
		if !inWindow(e.RegisteredAt, dayStart, dayEnd) {
			continue
		}
		if department != "" && e.Department != department {
			continue
		}
		p := m.patients[e.PatientID]
		items = append(items, models.Item{
			Entry:       e,
			PatientName: p.Name,
			Age:         p.Age,
			Gender:      p.Gender,
			Contact:     p.Contact,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].RegisteredAt.Equal(items[j].RegisteredAt) {
			return items[i].Token < items[j].Token
		}
		return items[i].RegisteredAt.Before(items[j].RegisteredAt)
	})
	return items, nil
}

func (m *MemStore) QueryHistory(_ context.Context, patientID int64, limit int) ([]models.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	history := lo.Filter(lo.Values(m.entries), func(e models.Entry, _ int) bool {
		return e.PatientID == patientID
	})
	sort.Slice(history, func(i, j int) bool {
		return history[i].RegisteredAt.After(history[j].RegisteredAt)
	})
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}

func (m *MemStore) AggregateStats(_ context.Context, dayStart, dayEnd time.Time) (*models.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &models.Stats{
		Today: map[models.Status]int{
			models.StatusWaiting:    0,
			models.StatusInProgress: 0,
			models.StatusCompleted:  0,
		},
		TotalPatients: len(m.patients),
		Departments:   make(map[string]models.DepartmentStats),
	}
	for _, e := range m.entries {
		if !inWindow(e.RegisteredAt, dayStart, dayEnd) {
			continue
		}
		stats.Today[e.Status]++
		dep := stats.Departments[e.Department]
		dep.Total++
		switch e.Status {
		case models.StatusWaiting:
			dep.Waiting++
		case models.StatusCompleted:
			dep.Completed++
		}
		stats.Departments[e.Department] = dep
	}
	return stats, nil
}

func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}
