package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmailTaken     = errors.New("email is already registered")
	ErrWorkerHasSales = errors.New("worker has recorded sales")
)

// Role gates what a worker may do.
type Role string

const (
	RoleWorker Role = "worker"
	RoleAdmin  Role = "admin"
)

func (r Role) IsValid() bool {
	return r == RoleWorker || r == RoleAdmin
}

// Worker is a user account. Field workers record sales, admins review them.
type Worker struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin returns true if the worker has the admin role.
func (w *Worker) IsAdmin() bool {
	return w.Role == RoleAdmin
}

// Profile is the audited view of a worker account.
func (w *Worker) Profile() WorkerProfile {
	return WorkerProfile{Name: w.Name, Email: w.Email, Role: w.Role}
}

// WorkerProfile is the snapshot written to the audit log for worker changes.
type WorkerProfile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Actor is the authenticated identity performing an operation.
type Actor struct {
	WorkerID uuid.UUID
	Role     Role
}

// IsAdmin returns true if the actor has the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanView reports whether the actor may read the given sale.
func (a Actor) CanView(s *Sale) bool {
	return a.IsAdmin() || s.OwnedBy(a.WorkerID)
}

// CanModify reports whether the actor may edit or delete a recorded sale.
// Only admins may, so a worker cannot rewrite a sale after it was flagged.
func (a Actor) CanModify() bool {
	return a.IsAdmin()
}

// WorkerActivity is the number of sales one worker recorded in a window.
type WorkerActivity struct {
	WorkerID  uuid.UUID
	SaleCount int64
}
