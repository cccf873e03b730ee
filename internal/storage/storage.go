// Package storage defines the Storage interface — a contract that any
// database backend must satisfy to work with this application.
//
// WHY AN INTERFACE?
// ─────────────────
// Handlers (HTTP layer) should not know or care which database they are
// talking to. By depending only on this interface:
//
//   - Switching databases = implement the interface for the new DB,
//     change one line in main.go. Zero handler changes.
//
//   - Writing tests = pass a fake/mock that satisfies the interface.
//     No real database needed for unit tests.
//
// The sentinel errors below are the structured error kinds handlers map
// to HTTP status codes. Implementations must return (or wrap) these —
// callers classify failures with errors.Is, never by matching message
// text.
package storage

import (
	"errors"

	"student-records-api/internal/types"
)

var (
	// ErrStudentNotFound — no student row with the requested id.
	ErrStudentNotFound = errors.New("student not found")

	// ErrDuplicateEmail — an insert or update collided with the UNIQUE
	// constraint on students.email. The write is rejected whole; no
	// partial row is ever left behind.
	ErrDuplicateEmail = errors.New("email already exists")

	// ErrUserNotFound — no user row with the requested username or id.
	ErrUserNotFound = errors.New("user not found")
)

// Storage is the database contract.
// Any concrete type that implements ALL of these methods automatically
// satisfies this interface — Go does this implicitly.
type Storage interface {
	// CreateStudent inserts a new student and returns the stored row
	// (with the auto-assigned id and created_at filled in).
	// A duplicate email yields ErrDuplicateEmail.
	CreateStudent(student types.Student) (types.Student, error)

	// GetStudentByID fetches a single student by primary key.
	// Returns ErrStudentNotFound if no row matches.
	GetStudentByID(id int64) (types.Student, error)

	// ListStudents runs the filter/sort/paginate query and returns one
	// page of results plus the total match count for the same filters.
	ListStudents(q types.ListQuery) (types.StudentPage, error)

	// UpdateStudentByID replaces every field except id and created_at.
	// The target must exist (ErrStudentNotFound, checked before the
	// write); a duplicate email yields ErrDuplicateEmail.
	UpdateStudentByID(id int64, student types.Student) (types.Student, error)

	// DeleteStudentByID removes a student row permanently.
	// Returns ErrStudentNotFound if the id does not exist.
	DeleteStudentByID(id int64) error

	// GetStats computes the dashboard aggregate: total/active/inactive
	// counts, per-course counts (descending by count), and per-grade
	// counts for non-empty grades (ascending by grade).
	GetStats() (types.Stats, error)

	// GetUserByUsername fetches an account by exact username.
	// Returns ErrUserNotFound if no row matches.
	GetUserByUsername(username string) (types.User, error)

	// GetUserByID fetches an account by primary key.
	GetUserByID(id int64) (types.User, error)

	// UpdateUserPassword replaces the stored password hash for a user.
	UpdateUserPassword(id int64, hash string) error

	// Close flushes and releases the underlying database. Called once
	// at shutdown.
	Close() error
}
