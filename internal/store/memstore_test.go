package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hospiq/queue-backend/internal/models"
)

var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func window() (time.Time, time.Time) {
	return day, day.Add(24 * time.Hour)
}

func TestMemStoreUpsertPatient(t *testing.T) {
	ctx := context.Background()
	st := NewMemStore()

	id, err := st.UpsertPatient(ctx, models.Patient{
		Name: "Alice", Age: 30, Gender: "F", Contact: "555-0001", LastVisit: day,
	})
	require.NoError(t, err)

	p, err := st.FindPatientByContact(ctx, "555-0001")
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Equal(t, id, p.ID)
	require.Equal(t, 1, p.VisitCount)

	// Same contact never creates a second record; the visit count bumps.
	later := day.Add(2 * time.Hour)
	id2, err := st.UpsertPatient(ctx, models.Patient{
		Name: "Alice B.", Age: 31, Gender: "F", Contact: "555-0001", LastVisit: later,
	})
	require.NoError(t, err)
	require.Equal(t, id, id2)

	p, err = st.PatientByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 2, p.VisitCount)
	require.Equal(t, "Alice B.", p.Name)
	require.Equal(t, later, p.LastVisit)

	missing, err := st.FindPatientByContact(ctx, "555-9999")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestMemStoreUpdateEntryStatus(t *testing.T) {
	ctx := context.Background()
	st := NewMemStore()

	id, err := st.InsertEntry(ctx, models.Entry{
		PatientID: 1, Token: "GEN001", Department: "GEN",
		Status: models.StatusWaiting, RegisteredAt: day.Add(9 * time.Hour),
	})
	require.NoError(t, err)

	called := day.Add(10 * time.Hour)
	require.NoError(t, st.UpdateEntryStatus(ctx, id, models.StatusInProgress, called))

	e, err := st.EntryByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, models.StatusInProgress, e.Status)
	require.NotNil(t, e.CalledAt)
	require.Equal(t, called, *e.CalledAt)
	require.Nil(t, e.CompletedAt)

	done := day.Add(11 * time.Hour)
	require.NoError(t, st.UpdateEntryStatus(ctx, id, models.StatusCompleted, done))
	e, err = st.EntryByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, e.CalledAt, "called_at is never cleared")
	require.NotNil(t, e.CompletedAt)

	require.ErrorIs(t, st.UpdateEntryStatus(ctx, 999, models.StatusInProgress, done), models.ErrNotFound)
}

func TestMemStoreEntriesForDay(t *testing.T) {
	ctx := context.Background()
	st := NewMemStore()

	pid, err := st.UpsertPatient(ctx, models.Patient{Name: "Alice", Contact: "555-0001", LastVisit: day})
	require.NoError(t, err)

	insert := func(token, dept string, at time.Time) {
		t.Helper()
		_, err := st.InsertEntry(ctx, models.Entry{
			PatientID: pid, Token: token, Department: dept,
			Status: models.StatusWaiting, RegisteredAt: at,
		})
		require.NoError(t, err)
	}
	insert("GEN002", "GEN", day.Add(10*time.Hour))
	insert("GEN001", "GEN", day.Add(9*time.Hour))
	insert("ENT001", "ENT", day.Add(9*time.Hour+30*time.Minute))
	insert("GEN001", "GEN", day.Add(-time.Hour))       // yesterday
	insert("GEN001", "GEN", day.Add(24*time.Hour))     // tomorrow

	start, end := window()
	items, err := st.EntriesForDay(ctx, start, end, "")
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, "GEN001", items[0].Token)
	require.Equal(t, "ENT001", items[1].Token)
	require.Equal(t, "GEN002", items[2].Token)
	require.Equal(t, "Alice", items[0].PatientName)

	gen, err := st.EntriesForDay(ctx, start, end, "GEN")
	require.NoError(t, err)
	require.Len(t, gen, 2)

	n, err := st.CountEntries(ctx, "GEN", start, end)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestMemStoreQueryHistory(t *testing.T) {
	ctx := context.Background()
	st := NewMemStore()

	for i := 0; i < 5; i++ {
		_, err := st.InsertEntry(ctx, models.Entry{
			PatientID: 1, Token: "GEN001", Department: "GEN",
			Status: models.StatusCompleted, RegisteredAt: day.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}
	_, err := st.InsertEntry(ctx, models.Entry{
		PatientID: 2, Token: "GEN002", Department: "GEN",
		Status: models.StatusWaiting, RegisteredAt: day,
	})
	require.NoError(t, err)

	history, err := st.QueryHistory(ctx, 1, 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i := 1; i < len(history); i++ {
		require.True(t, history[i].RegisteredAt.Before(history[i-1].RegisteredAt))
	}
	for _, e := range history {
		require.EqualValues(t, 1, e.PatientID)
	}
}

func TestMemStoreAggregateStats(t *testing.T) {
	ctx := context.Background()
	st := NewMemStore()

	_, err := st.UpsertPatient(ctx, models.Patient{Name: "Alice", Contact: "555-0001", LastVisit: day})
	require.NoError(t, err)
	_, err = st.UpsertPatient(ctx, models.Patient{Name: "Bob", Contact: "555-0002", LastVisit: day})
	require.NoError(t, err)

	insert := func(dept string, status models.Status, at time.Time) {
		t.Helper()
		_, err := st.InsertEntry(ctx, models.Entry{
			PatientID: 1, Token: "X001", Department: dept, Status: status, RegisteredAt: at,
		})
		require.NoError(t, err)
	}
	insert("GEN", models.StatusWaiting, day.Add(9*time.Hour))
	insert("GEN", models.StatusCompleted, day.Add(9*time.Hour))
	insert("ENT", models.StatusInProgress, day.Add(9*time.Hour))
	insert("GEN", models.StatusWaiting, day.Add(-time.Hour)) // yesterday, excluded

	start, end := window()
	stats, err := st.AggregateStats(ctx, start, end)
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalPatients)
	require.Equal(t, 1, stats.Today[models.StatusWaiting])
	require.Equal(t, 1, stats.Today[models.StatusInProgress])
	require.Equal(t, 1, stats.Today[models.StatusCompleted])

	require.Equal(t, 2, stats.Departments["GEN"].Total)
	require.Equal(t, 1, stats.Departments["GEN"].Waiting)
	require.Equal(t, 1, stats.Departments["GEN"].Completed)
	require.Equal(t, 1, stats.Departments["ENT"].Total)
}
