// Package queue owns the queue-entry lifecycle: registration, status
// transitions, position computation, and the snapshot view observers catch
// up from.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/hospiq/queue-backend/internal/models"
	"github.com/hospiq/queue-backend/internal/store"
)

// Broadcaster fans change events out to connected observers. Delivery is
// best-effort per observer and must never block the caller.
type Broadcaster interface {
	Publish(evt models.Event)
}

// Engine serializes every operation that touches queue state behind one
// mutex. Token allocation derives the sequence from a live count, so
// registration is a read-then-write that loses updates without this lock;
// holding it across snapshot capture and event publication is also what
// gives each observer an exact point-in-time view with no missed or
// duplicated events. Process-wide scope is coarser than the per-department
// minimum but trivially correct at human arrival rates.
type Engine struct {
	mu       sync.Mutex
	store    store.Store
	clock    Clock
	bus      Broadcaster
	alloc    *TokenAllocator
	validate *validator.Validate
	log      *slog.Logger
}

func NewEngine(st store.Store, bus Broadcaster, clock Clock, log *slog.Logger) *Engine {
	return &Engine{
		store:    st,
		clock:    clock,
		bus:      bus,
		alloc:    NewTokenAllocator(st, clock),
		validate: validator.New(),
		log:      log,
	}
}

// Register resolves the patient by contact (creating or bumping the visit
// counter), allocates a token, inserts a waiting entry, computes its
// position, and broadcasts a new_registration event. The patient upsert is
// committed before the entry insert; a failure after that point cannot be
// rolled back over the store contract and is logged as an anomaly.
func (e *Engine) Register(ctx context.Context, in models.RegisterInput) (*models.RegisterResult, error) {
	if err := e.validate.Struct(in); err != nil {
		return nil, &models.ValidationError{Err: err}
	}
	in.Department = strings.ToUpper(strings.TrimSpace(in.Department))

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	existing, err := e.store.FindPatientByContact(ctx, in.Contact)
	if err != nil {
		return nil, fmt.Errorf("find patient: %w", err)
	}
	isReturning := existing != nil
	visitCount := 1
	if isReturning {
		visitCount = existing.VisitCount + 1
	}

	patientID, err := e.store.UpsertPatient(ctx, models.Patient{
		Name:      in.Name,
		Age:       in.Age,
		Gender:    in.Gender,
		Contact:   in.Contact,
		LastVisit: now,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert patient: %w", err)
	}

	token, err := e.alloc.Next(ctx, in.Department)
	if err != nil {
		e.log.Error("registration aborted after patient upsert, visit count left bumped",
			"contact", in.Contact, "error", err)
		return nil, err
	}

	entry := models.Entry{
		PatientID:    patientID,
		Token:        token,
		Department:   in.Department,
		Symptoms:     in.Symptoms,
		Status:       models.StatusWaiting,
		RegisteredAt: now,
	}
	entryID, err := e.store.InsertEntry(ctx, entry)
	if err != nil {
		e.log.Error("registration aborted after patient upsert, visit count left bumped",
			"contact", in.Contact, "token", token, "error", err)
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	entry.ID = entryID

	position, err := e.positionLocked(ctx, entry)
	if err != nil {
		return nil, err
	}

	e.bus.Publish(models.Event{
		Type: models.EventNewRegistration,
		At:   now,
		Item: &models.Item{
			Entry:       entry,
			PatientName: in.Name,
			Age:         in.Age,
			Gender:      in.Gender,
			Contact:     in.Contact,
		},
	})

	e.log.Info("patient registered",
		"token", token, "department", in.Department, "position", position, "returning", isReturning)

	return &models.RegisterResult{
		PatientID:   patientID,
		EntryID:     entryID,
		Token:       token,
		Position:    position,
		IsReturning: isReturning,
		VisitCount:  visitCount,
	}, nil
}

// Advance moves an entry to newStatus, stamping called_at or completed_at,
// and broadcasts a status_update event. Illegal transitions fail with
// ErrInvalidTransition and leave the entry untouched.
func (e *Engine) Advance(ctx context.Context, entryID int64, newStatus models.Status) (*models.Item, error) {
	if !newStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrInvalidTransition, string(newStatus))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	entry, err := e.store.EntryByID(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("load entry: %w", err)
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: entry %d", models.ErrNotFound, entryID)
	}
	if !entry.Status.CanAdvanceTo(newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, entry.Status, newStatus)
	}

	now := e.clock.Now()
	if err := e.store.UpdateEntryStatus(ctx, entryID, newStatus, now); err != nil {
		return nil, fmt.Errorf("update entry status: %w", err)
	}
	entry.Status = newStatus
	switch newStatus {
	case models.StatusInProgress:
		entry.CalledAt = &now
	case models.StatusCompleted:
		entry.CompletedAt = &now
	}

	patient, err := e.store.PatientByID(ctx, entry.PatientID)
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	item := models.Item{Entry: *entry}
	if patient != nil {
		item.PatientName = patient.Name
		item.Age = patient.Age
		item.Gender = patient.Gender
		item.Contact = patient.Contact
	}

	e.bus.Publish(models.Event{Type: models.EventStatusUpdate, At: now, Item: &item})

	e.log.Info("entry advanced", "entry_id", entryID, "token", entry.Token, "status", newStatus)
	return &item, nil
}

// Snapshot returns today's entries, patient-joined, ordered by registration
// time ascending. An empty department means all departments.
func (e *Engine) Snapshot(ctx context.Context, department string) ([]models.Item, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked(ctx, strings.ToUpper(strings.TrimSpace(department)))
}

// Subscribe captures today's snapshot and runs attach with it while still
// holding the engine lock. The attach callback must enqueue the snapshot and
// add the observer to the broadcaster, so no event published after the
// capture can be missed and none published before it can be redelivered.
func (e *Engine) Subscribe(ctx context.Context, attach func(snapshot models.Event)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	items, err := e.snapshotLocked(ctx, "")
	if err != nil {
		return err
	}
	attach(models.Event{Type: models.EventSnapshot, At: e.clock.Now(), Items: items})
	return nil
}

// Position recomputes the entry's current position: the number of waiting
// entries in the same department today whose token sorts before its own.
func (e *Engine) Position(ctx context.Context, entryID int64) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, err := e.store.EntryByID(ctx, entryID)
	if err != nil {
		return 0, fmt.Errorf("load entry: %w", err)
	}
	if entry == nil {
		return 0, fmt.Errorf("%w: entry %d", models.ErrNotFound, entryID)
	}
	return e.positionLocked(ctx, *entry)
}

// LookupPatient resolves a patient by contact identifier.
func (e *Engine) LookupPatient(ctx context.Context, contact string) (*models.Patient, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.store.FindPatientByContact(ctx, contact)
	if err != nil {
		return nil, fmt.Errorf("find patient: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: contact %s", models.ErrNotFound, contact)
	}
	return p, nil
}

// History returns the patient's most recent entries, newest first.
func (e *Engine) History(ctx context.Context, patientID int64) ([]models.Entry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	patient, err := e.store.PatientByID(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if patient == nil {
		return nil, fmt.Errorf("%w: patient %d", models.ErrNotFound, patientID)
	}
	history, err := e.store.QueryHistory(ctx, patientID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return history, nil
}

// Statistics recomputes today's aggregate counts on every call.
func (e *Engine) Statistics(ctx context.Context) (*models.Stats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	dayStart, dayEnd := DayWindow(e.clock.Now())
	stats, err := e.store.AggregateStats(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("aggregate stats: %w", err)
	}
	return stats, nil
}

const historyLimit = 10

func (e *Engine) snapshotLocked(ctx context.Context, department string) ([]models.Item, error) {
	dayStart, dayEnd := DayWindow(e.clock.Now())
	items, err := e.store.EntriesForDay(ctx, dayStart, dayEnd, department)
	if err != nil {
		return nil, fmt.Errorf("entries for day: %w", err)
	}
	return items, nil
}

func (e *Engine) positionLocked(ctx context.Context, entry models.Entry) (int, error) {
	items, err := e.snapshotLocked(ctx, entry.Department)
	if err != nil {
		return 0, err
	}
	return lo.CountBy(items, func(it models.Item) bool {
		return it.ID != entry.ID &&
			it.Status == models.StatusWaiting &&
			tokenLess(it.Token, entry.Token)
	}), nil
}
