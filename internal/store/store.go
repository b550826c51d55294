// Package store persists patients and queue entries. The queue engine is the
// only writer and consumes it through the Store interface; two
// implementations exist, an in-memory map store and a MySQL store.
package store

import (
	"context"
	"time"

	"github.com/hospiq/queue-backend/internal/models"
)

// Store is the record-store contract the queue engine depends on. Day-scoped
// queries receive the [dayStart, dayEnd) window from the caller so storage
// and engine can never disagree on where "today" begins.
//
// Lookups return (nil, nil) when the record is absent; every operation may
// fail with a storage error, which the engine surfaces without retrying.
// Implementations are safe for concurrent use, but callers must not rely on
// that for read-then-write sequences: token allocation is serialized by the
// engine, not here.
type Store interface {
	FindPatientByContact(ctx context.Context, contact string) (*models.Patient, error)
	PatientByID(ctx context.Context, id int64) (*models.Patient, error)
	// UpsertPatient inserts a new patient with VisitCount 1, or, when the
	// contact is already known, bumps VisitCount and refreshes LastVisit
	// along with the demographic fields. Returns the patient id.
	UpsertPatient(ctx context.Context, p models.Patient) (int64, error)

	CountEntries(ctx context.Context, department string, dayStart, dayEnd time.Time) (int, error)
	InsertEntry(ctx context.Context, e models.Entry) (int64, error)
	EntryByID(ctx context.Context, id int64) (*models.Entry, error)
	// UpdateEntryStatus persists the new status and stamps called_at or
	// completed_at with ts as appropriate. The caller has already validated
	// the transition.
	UpdateEntryStatus(ctx context.Context, id int64, status models.Status, ts time.Time) error

	// EntriesForDay returns the window's entries joined with their patients,
	// ordered by registration time ascending (token breaks ties). An empty
	// department means all departments.
	EntriesForDay(ctx context.Context, dayStart, dayEnd time.Time, department string) ([]models.Item, error)
	// QueryHistory returns the patient's entries, newest first, at most limit.
	QueryHistory(ctx context.Context, patientID int64, limit int) ([]models.Entry, error)
	AggregateStats(ctx context.Context, dayStart, dayEnd time.Time) (*models.Stats, error)
}
