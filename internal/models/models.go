package models

import "time"

// Status is the lifecycle state of a queue entry. Transitions only move
// forward: waiting -> in_progress -> completed.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// CanAdvanceTo reports whether next is the single legal successor of s.
func (s Status) CanAdvanceTo(next Status) bool {
	switch s {
	case StatusWaiting:
		return next == StatusInProgress
	case StatusInProgress:
		return next == StatusCompleted
	}
	return false
}

// Code is the integer form persisted by the MySQL store.
func (s Status) Code() int {
	switch s {
	case StatusInProgress:
		return 1
	case StatusCompleted:
		return 2
	default:
		return 0
	}
}

func StatusFromCode(code int) Status {
	switch code {
	case 1:
		return StatusInProgress
	case 2:
		return StatusCompleted
	default:
		return StatusWaiting
	}
}

// Patient is an identity record keyed by its unique contact number.
// Registering again with a known contact bumps VisitCount and LastVisit
// instead of creating a duplicate.
type Patient struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Age        int       `json:"age"`
	Gender     string    `json:"gender"`
	Contact    string    `json:"contact"`
	VisitCount int       `json:"visit_count"`
	LastVisit  time.Time `json:"last_visit"`
}

// Entry is one registration-visit in the queue. Token is unique within
// (department, calendar day). CalledAt and CompletedAt are stamped when the
// entry enters in_progress and completed respectively and never cleared.
type Entry struct {
	ID           int64      `json:"id"`
	PatientID    int64      `json:"patient_id"`
	Token        string     `json:"token"`
	Department   string     `json:"department"`
	Symptoms     string     `json:"symptoms"`
	Status       Status     `json:"status"`
	RegisteredAt time.Time  `json:"registered_at"`
	CalledAt     *time.Time `json:"called_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Item is a queue entry joined with its patient, the element type of the
// snapshot view delivered to observers.
type Item struct {
	Entry
	PatientName string `json:"patient_name"`
	Age         int    `json:"age"`
	Gender      string `json:"gender"`
	Contact     string `json:"contact"`
}

// RegisterInput is the registration payload. Tags drive validator/v10;
// a violation is reported as a ValidationError before any state changes.
type RegisterInput struct {
	Name       string `json:"name" validate:"required"`
	Age        int    `json:"age" validate:"gte=0,lte=150"`
	Gender     string `json:"gender" validate:"required"`
	Contact    string `json:"contact" validate:"required"`
	Department string `json:"department" validate:"required"`
	Symptoms   string `json:"symptoms"`
}

type RegisterResult struct {
	PatientID   int64  `json:"patient_id"`
	EntryID     int64  `json:"entry_id"`
	Token       string `json:"token"`
	Position    int    `json:"position"`
	IsReturning bool   `json:"is_returning"`
	VisitCount  int    `json:"visit_count"`
}

// DepartmentStats is today's breakdown for one department.
type DepartmentStats struct {
	Total     int `json:"total"`
	Waiting   int `json:"waiting"`
	Completed int `json:"completed"`
}

type Stats struct {
	Today         map[Status]int             `json:"today"`
	TotalPatients int                        `json:"total_patients"`
	Departments   map[string]DepartmentStats `json:"departments"`
}

// Event types broadcast to observers. A snapshot event is only sent as the
// first frame of a fresh subscription.
const (
	EventSnapshot        = "snapshot"
	EventNewRegistration = "new_registration"
	EventStatusUpdate    = "status_update"
)

// Event is an immutable change notification. Item is set for incremental
// events, Items for the initial snapshot. It carries enough data for an
// observer to update its view without re-querying.
type Event struct {
	Type  string    `json:"type"`
	At    time.Time `json:"at"`
	Item  *Item     `json:"item,omitempty"`
	Items []Item    `json:"items,omitempty"`
}
