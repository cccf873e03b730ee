// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles —
// handlers, storage, and utils can all import types without depending
// on each other.
package types

// Student represents a single student record.
//
// Struct tags serve two purposes:
//
//  1. json:"..."  — controls how the field appears when encoded to JSON
//     (lowercase names match REST API conventions).
//
//  2. validate:"..." — rules checked by the go-playground/validator
//     package. "required" means the field must be non-zero / non-empty;
//     "email" enforces a local@domain.tld shape.
//
// Phone, Grade, DOB, and Address are optional and default to "".
// Status is restricted to Active/Inactive; an empty status is filled
// with "Active" before validation. CreatedAt is assigned by the
// database on insert and never updated afterwards.
type Student struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"   validate:"required"`
	Email     string `json:"email"  validate:"required,email"`
	Phone     string `json:"phone"`
	Course    string `json:"course" validate:"required"`
	Grade     string `json:"grade"`
	DOB       string `json:"dob"`
	Address   string `json:"address"`
	Status    string `json:"status" validate:"omitempty,oneof=Active Inactive"`
	CreatedAt string `json:"created_at"`
}

// User is an API account. The password field holds a bcrypt hash and is
// never serialized (json:"-").
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
	Role     string `json:"role"`
}

// ListQuery carries the filter/sort/paginate parameters of a student
// list request. Zero values mean "no filter"; Page/Limit/Sort/Order are
// normalized by the storage layer.
type ListQuery struct {
	Search string
	Course string
	Status string
	Page   int
	Limit  int
	Sort   string
	Order  string
}

// StudentPage is one page of list results plus the paging envelope the
// frontend needs to render pagination controls.
type StudentPage struct {
	Data       []Student `json:"data"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"totalPages"`
}

// CourseCount is one row of the per-course aggregate (descending by cnt).
type CourseCount struct {
	Course string `json:"course"`
	Count  int    `json:"cnt"`
}

// GradeCount is one row of the per-grade aggregate (ascending by grade,
// empty grades excluded).
type GradeCount struct {
	Grade string `json:"grade"`
	Count int    `json:"cnt"`
}

// Stats is the dashboard aggregate.
type Stats struct {
	Total    int           `json:"total"`
	Active   int           `json:"active"`
	Inactive int           `json:"inactive"`
	Courses  []CourseCount `json:"courses"`
	Grades   []GradeCount  `json:"grades"`
}

// LoginRequest is the POST /api/auth/login body.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ChangePasswordRequest is the POST /api/auth/change-password body.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}
