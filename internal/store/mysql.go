package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hospiq/queue-backend/internal/models"
)

// MySQLStore persists through MariaDB/MySQL. Expected schema:
//
//	Patient(id_patient PK AI, name, age, gender, contact UNIQUE,
//	        visit_count, last_visit)
//	QueueEntry(id_entry PK AI, id_patient FK, token, department, symptoms,
//	           id_status, registered_at, called_at NULL, completed_at NULL)
//
// id_status: 0=waiting, 1=in_progress, 2=completed.
type MySQLStore struct {
	DB *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{DB: db}
}

func (s *MySQLStore) FindPatientByContact(ctx context.Context, contact string) (*models.Patient, error) {
	query := `
		SELECT id_patient, name, age, gender, contact, visit_count, last_visit
		FROM Patient
		WHERE contact = ?
	`
	var p models.Patient
	err := s.DB.QueryRowContext(ctx, query, contact).Scan(
		&p.ID, &p.Name, &p.Age, &p.Gender, &p.Contact, &p.VisitCount, &p.LastVisit,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find patient by contact: %w", err)
	}
	return &p, nil
}

func (s *MySQLStore) PatientByID(ctx context.Context, id int64) (*models.Patient, error) {
	query := `
		SELECT id_patient, name, age, gender, contact, visit_count, last_visit
		FROM Patient
		WHERE id_patient = ?
	`
	var p models.Patient
	err := s.DB.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Age, &p.Gender, &p.Contact, &p.VisitCount, &p.LastVisit,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("patient by id: %w", err)
	}
	return &p, nil
}

func (s *MySQLStore) UpsertPatient(ctx context.Context, p models.Patient) (int64, error) {
	var existingID int64
	err := s.DB.QueryRowContext(ctx,
		"SELECT id_patient FROM Patient WHERE contact = ?", p.Contact,
	).Scan(&existingID)
	if err == nil {
		updateQuery := `
			UPDATE Patient
			SET name = ?, age = ?, gender = ?, visit_count = visit_count + 1, last_visit = ?
			WHERE id_patient = ?
		`
		if _, err := s.DB.ExecContext(ctx, updateQuery, p.Name, p.Age, p.Gender, p.LastVisit, existingID); err != nil {
			return 0, fmt.Errorf("update patient: %w", err)
		}
		return existingID, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("check patient contact: %w", err)
	}

	insertQuery := `
		INSERT INTO Patient (name, age, gender, contact, visit_count, last_visit)
		VALUES (?, ?, ?, ?, 1, ?)
	`
	result, err := s.DB.ExecContext(ctx, insertQuery, p.Name, p.Age, p.Gender, p.Contact, p.LastVisit)
	if err != nil {
		return 0, fmt.Errorf("insert patient: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert patient id: %w", err)
	}
	return id, nil
}

func (s *MySQLStore) CountEntries(ctx context.Context, department string, dayStart, dayEnd time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM QueueEntry
		WHERE department = ? AND registered_at >= ? AND registered_at < ?
	`
	var n int
	if err := s.DB.QueryRowContext(ctx, query, department, dayStart, dayEnd).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

func (s *MySQLStore) InsertEntry(ctx context.Context, e models.Entry) (int64, error) {
	query := `
		INSERT INTO QueueEntry (id_patient, token, department, symptoms, id_status, registered_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := s.DB.ExecContext(ctx, query,
		e.PatientID, e.Token, e.Department, e.Symptoms, e.Status.Code(), e.RegisteredAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert entry id: %w", err)
	}
	return id, nil
}

func (s *MySQLStore) EntryByID(ctx context.Context, id int64) (*models.Entry, error) {
	query := `
		SELECT id_entry, id_patient, token, department, symptoms, id_status,
		       registered_at, called_at, completed_at
		FROM QueueEntry
		WHERE id_entry = ?
	`
	e, err := scanEntry(s.DB.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("entry by id: %w", err)
	}
	return e, nil
}

func (s *MySQLStore) UpdateEntryStatus(ctx context.Context, id int64, status models.Status, ts time.Time) error {
	var query string
	var args []interface{}
	switch status {
	case models.StatusInProgress:
		query = "UPDATE QueueEntry SET id_status = ?, called_at = ? WHERE id_entry = ?"
		args = []interface{}{status.Code(), ts, id}
	case models.StatusCompleted:
		query = "UPDATE QueueEntry SET id_status = ?, completed_at = ? WHERE id_entry = ?"
		args = []interface{}{status.Code(), ts, id}
	default:
		query = "UPDATE QueueEntry SET id_status = ? WHERE id_entry = ?"
		args = []interface{}{status.Code(), id}
	}
	result, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update entry status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update entry status: %w", err)
	}
	if affected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *MySQLStore) EntriesForDay(ctx context.Context, dayStart, dayEnd time.Time, department string) ([]models.Item, error) {
	query := `
		SELECT e.id_entry, e.id_patient, e.token, e.department, e.symptoms,
		       e.id_status, e.registered_at, e.called_at, e.completed_at,
		       p.name, p.age, p.gender, p.contact
		FROM QueueEntry e
		JOIN Patient p ON e.id_patient = p.id_patient
		WHERE e.registered_at >= ? AND e.registered_at < ?
	`
	args := []interface{}{dayStart, dayEnd}
	if department != "" {
		query += " AND e.department = ?"
		args = append(args, department)
	}
	query += " ORDER BY e.registered_at ASC, e.token ASC"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("entries for day: %w", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		var (
			it                  models.Item
			code                int
			calledAt, completed sql.NullTime
		)
		err := rows.Scan(
			&it.ID, &it.PatientID, &it.Token, &it.Department, &it.Symptoms,
			&code, &it.RegisteredAt, &calledAt, &completed,
			&it.PatientName, &it.Age, &it.Gender, &it.Contact,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entry row: %w", err)
		}
		it.Status = models.StatusFromCode(code)
		if calledAt.Valid {
			t := calledAt.Time
			it.CalledAt = &t
		}
		if completed.Valid {
			t := completed.Time
			it.CompletedAt = &t
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("entries for day: %w", err)
	}
	return items, nil
}

func (s *MySQLStore) QueryHistory(ctx context.Context, patientID int64, limit int) ([]models.Entry, error) {
	query := `
		SELECT id_entry, id_patient, token, department, symptoms, id_status,
		       registered_at, called_at, completed_at
		FROM QueueEntry
		WHERE id_patient = ?
		ORDER BY registered_at DESC
		LIMIT ?
	`
	rows, err := s.DB.QueryContext(ctx, query, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var history []models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		history = append(history, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return history, nil
}

func (s *MySQLStore) AggregateStats(ctx context.Context, dayStart, dayEnd time.Time) (*models.Stats, error) {
	stats := &models.Stats{
		Today: map[models.Status]int{
			models.StatusWaiting:    0,
			models.StatusInProgress: 0,
			models.StatusCompleted:  0,
		},
		Departments: make(map[string]models.DepartmentStats),
	}

	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM Patient").Scan(&stats.TotalPatients); err != nil {
		return nil, fmt.Errorf("count patients: %w", err)
	}

	statusQuery := `
		SELECT id_status, COUNT(*)
		FROM QueueEntry
		WHERE registered_at >= ? AND registered_at < ?
		GROUP BY id_status
	`
	rows, err := s.DB.QueryContext(ctx, statusQuery, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var code, n int
		if err := rows.Scan(&code, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.Today[models.StatusFromCode(code)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}

	deptQuery := `
		SELECT department,
		       COUNT(*),
		       SUM(CASE WHEN id_status = 0 THEN 1 ELSE 0 END),
		       SUM(CASE WHEN id_status = 2 THEN 1 ELSE 0 END)
		FROM QueueEntry
		WHERE registered_at >= ? AND registered_at < ?
		GROUP BY department
	`
	deptRows, err := s.DB.QueryContext(ctx, deptQuery, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("department counts: %w", err)
	}
	defer deptRows.Close()
	for deptRows.Next() {
		var dept string
		var d models.DepartmentStats
		if err := deptRows.Scan(&dept, &d.Total, &d.Waiting, &d.Completed); err != nil {
			return nil, fmt.Errorf("scan department count: %w", err)
		}
		stats.Departments[dept] = d
	}
	if err := deptRows.Err(); err != nil {
		return nil, fmt.Errorf("department counts: %w", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var (
		e                   models.Entry
		code                int
		calledAt, completed sql.NullTime
	)
	err := row.Scan(
		&e.ID, &e.PatientID, &e.Token, &e.Department, &e.Symptoms,
		&code, &e.RegisteredAt, &calledAt, &completed,
	)
	if err != nil {
		return nil, err
	}
	e.Status = models.StatusFromCode(code)
	if calledAt.Valid {
		t := calledAt.Time
		e.CalledAt = &t
	}
	if completed.Valid {
		t := completed.Time
		e.CompletedAt = &t
	}
	return &e, nil
}
