package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RecordMeta captures identifiers and audit fields shared across entities.
type RecordMeta struct {
	ID        uuid.UUID `bun:",pk,type:uuid" json:"id"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
	DeletedAt time.Time `bun:",soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureID assigns a UUID when the struct is about to be persisted.
func (m *RecordMeta) EnsureID() {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
}

// JSONMap persists arbitrary metadata fields as JSON.
type JSONMap map[string]any

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("null"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value any) error {
	if m == nil {
		return errors.New("JSONMap: Scan on nil pointer")
	}
	switch v := value.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("JSONMap: unsupported type %T", value)
	}
}

// Role identifies what a user may see and approve.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// CanReview reports whether the role may approve or reject requests at all.
func (r Role) CanReview() bool {
	return r == RoleManager || r == RoleAdmin
}

// User is a member of the organisation. ManagerID points at the user that
// reviews their requests.
type User struct {
	bun.BaseModel `bun:"table:timeoff_users"`
	RecordMeta

	Email     string `bun:",unique,nullzero,notnull" json:"email"`
	Name      string `bun:",nullzero" json:"name"`
	Role      Role   `bun:",nullzero,notnull" json:"role"`
	ManagerID string `bun:",nullzero" json:"manager_id,omitempty"`
}

// RequestKind distinguishes leave from timesheet corrections.
type RequestKind string

const (
	KindTimeOff  RequestKind = "time_off"
	KindTimeEdit RequestKind = "time_edit"
)

// Valid reports whether k is a known request kind.
func (k RequestKind) Valid() bool {
	return k == KindTimeOff || k == KindTimeEdit
}

// RequestStatus tracks the review lifecycle.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Request is a time-off or time-edit request submitted by an employee.
type Request struct {
	bun.BaseModel `bun:"table:timeoff_requests"`
	RecordMeta

	UserID     string        `bun:",nullzero,notnull" json:"user_id"`
	ManagerID  string        `bun:",nullzero" json:"manager_id,omitempty"`
	Kind       RequestKind   `bun:",nullzero,notnull" json:"kind"`
	Status     RequestStatus `bun:",nullzero,notnull" json:"status"`
	StartDate  time.Time     `bun:",nullzero,notnull" json:"start_date"`
	EndDate    time.Time     `bun:",nullzero,notnull" json:"end_date"`
	Hours      float64       `bun:",nullzero" json:"hours,omitempty"`
	Reason     string        `bun:",nullzero" json:"reason,omitempty"`
	ReviewerID string        `bun:",nullzero" json:"reviewer_id,omitempty"`
	ReviewNote string        `bun:",nullzero" json:"review_note,omitempty"`
	ReviewedAt time.Time     `bun:",nullzero" json:"reviewed_at,omitempty"`
	Metadata   JSONMap       `bun:"type:jsonb,nullzero" json:"metadata,omitempty"`
}

// Notification records something a user should look at. Read is the only
// field the client cache inspects.
type Notification struct {
	bun.BaseModel `bun:"table:timeoff_notifications"`
	RecordMeta

	UserID    string    `bun:",nullzero,notnull" json:"user_id"`
	RequestID string    `bun:",nullzero" json:"request_id,omitempty"`
	Title     string    `bun:",nullzero" json:"title"`
	Message   string    `bun:",nullzero" json:"message"`
	Read      bool      `bun:",notnull" json:"read"`
	ReadAt    time.Time `bun:",nullzero" json:"read_at,omitempty"`
}

// CountUnread returns the number of notifications with Read == false.
func CountUnread(items []Notification) int {
	count := 0
	for _, item := range items {
		if !item.Read {
			count++
		}
	}
	return count
}
