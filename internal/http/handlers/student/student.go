// Package student contains all HTTP handlers related to the Student resource.
//
// HANDLER PATTERN USED HERE — THE CLOSURE / FACTORY PATTERN:
// ────────────────────────────────────────────────────────────
// Go's router expects handler functions with the signature:
//
//	func(http.ResponseWriter, *http.Request)
//
// That signature has no room for extra parameters like a database.
// To inject dependencies we use a factory function that:
//  1. Accepts dependencies (storage)
//  2. Returns a function with the exact signature the router needs
//
// Because the inner function "closes over" the outer parameters, it can
// access `storage` even after the factory call has returned.
//
// STATUS-CODE MAPPING:
// ────────────────────
// Storage failures are classified by sentinel error kind, never by
// message text:
//
//	storage.ErrStudentNotFound → 404
//	storage.ErrDuplicateEmail  → 409
//	validation failures        → 400 with itemized errors[]
//	anything else              → 500, full detail logged server-side
package student

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"student-records-api/internal/storage"
	"student-records-api/internal/types"
	"student-records-api/internal/utils/response"

	"github.com/go-playground/validator/v10"
)

// decodeAndValidate reads a student payload from the request body,
// trims the text fields, applies the Active default, and runs the
// validator. A nil *types.Student return means the error response has
// already been written.
func decodeAndValidate(w http.ResponseWriter, r *http.Request) *types.Student {
	var student types.Student

	err := json.NewDecoder(r.Body).Decode(&student)
	if errors.Is(err, io.EOF) {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("request body is empty")))
		return nil
	}
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return nil
	}

	// Trim before validating so whitespace-only required fields are
	// rejected, not stored.
	student.Name = strings.TrimSpace(student.Name)
	student.Email = strings.TrimSpace(student.Email)
	student.Phone = strings.TrimSpace(student.Phone)
	student.Course = strings.TrimSpace(student.Course)
	student.Grade = strings.TrimSpace(student.Grade)
	student.Address = strings.TrimSpace(student.Address)

	if student.Status == "" {
		student.Status = "Active"
	}

	if err := validator.New().Struct(student); err != nil {
		validateErrs := err.(validator.ValidationErrors)
		response.WriteJSON(w, http.StatusBadRequest,
			response.ValidationErrors(validateErrs))
		return nil
	}

	return &student
}

// parseID converts the {id} path segment to int64, writing a 400 and
// returning false on garbage input.
func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	intID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("invalid id: must be an integer")))
		return 0, false
	}
	return intID, true
}

// writeStorageError maps a storage failure onto the right status code.
func writeStorageError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrStudentNotFound):
		response.WriteJSON(w, http.StatusNotFound,
			response.GeneralError(errors.New("Student not found")))
	case errors.Is(err, storage.ErrDuplicateEmail):
		response.WriteJSON(w, http.StatusConflict,
			response.GeneralError(errors.New("Email already exists")))
	default:
		slog.Error(op, slog.String("error", err.Error()))
		response.WriteJSON(w, http.StatusInternalServerError,
			response.GeneralError(errors.New("internal server error")))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/students
// Creates a new student from the JSON request body.
//
// Success response (201 Created):
//
//	{ "message": "Student created successfully", "data": {...} }
//
// Error responses:
//
//	400 Bad Request  — empty/malformed body, or { "errors": [...] }
//	409 Conflict     — duplicate email
//	500 Internal     — database error
//
// ─────────────────────────────────────────────────────────────────────────────
func New(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating a student")

		student := decodeAndValidate(w, r)
		if student == nil {
			return
		}

		created, err := store.CreateStudent(*student)
		if err != nil {
			writeStorageError(w, "error creating student", err)
			return
		}

		slog.Info("student created", slog.Int64("id", created.ID))
		response.WriteJSON(w, http.StatusCreated, map[string]any{
			"message": "Student created successfully",
			"data":    created,
		})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetList handles GET /api/students
// Filter/sort/paginate query parameters:
//
//	search  — case-insensitive substring over name, email, phone
//	course  — exact match
//	status  — exact match (Active|Inactive)
//	page    — 1-based page number (default 1)
//	limit   — page size (default 10)
//	sort    — one of id,name,email,course,grade,status,created_at
//	order   — ASC | DESC
//
// Success response (200 OK):
//
//	{ "data": [...], "total": 42, "page": 1, "limit": 10, "totalPages": 5 }
//
// ─────────────────────────────────────────────────────────────────────────────
func GetList(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := r.URL.Query()

		// Atoi failures leave the zero value, which the storage layer
		// normalizes to page 1 / limit 10.
		page, _ := strconv.Atoi(params.Get("page"))
		limit, _ := strconv.Atoi(params.Get("limit"))

		query := types.ListQuery{
			Search: params.Get("search"),
			Course: params.Get("course"),
			Status: params.Get("status"),
			Page:   page,
			Limit:  limit,
			Sort:   params.Get("sort"),
			Order:  params.Get("order"),
		}

		result, err := store.ListStudents(query)
		if err != nil {
			writeStorageError(w, "error listing students", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, result)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetStats handles GET /api/students/stats
//
// Success response (200 OK):
//
//	{ "total": 5, "active": 4, "inactive": 1,
//	  "courses": [{"course": "Physics", "cnt": 1}, ...],
//	  "grades":  [{"grade": "A", "cnt": 2}, ...] }
//
// ─────────────────────────────────────────────────────────────────────────────
func GetStats(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.GetStats()
		if err != nil {
			writeStorageError(w, "error computing stats", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, stats)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID handles GET /api/students/{id}
//
// Success response (200 OK): the student record.
//
// Error responses:
//
//	400 Bad Request  — id is not a valid integer
//	404 Not Found    — no student with that id
//
// ─────────────────────────────────────────────────────────────────────────────
func GetByID(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		intID, ok := parseID(w, r)
		if !ok {
			return
		}

		student, err := store.GetStudentByID(intID)
		if err != nil {
			writeStorageError(w, "error getting student", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, student)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /api/students/{id}
// Replaces all fields except id and created_at.
//
// The existence check runs BEFORE payload validation: updating a
// missing id reports 404 even if the body is also invalid.
//
// Success response (200 OK):
//
//	{ "message": "Student updated successfully", "data": {...} }
//
// ─────────────────────────────────────────────────────────────────────────────
func Update(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		intID, ok := parseID(w, r)
		if !ok {
			return
		}
		slog.Info("updating a student", slog.Int64("id", intID))

		if _, err := store.GetStudentByID(intID); err != nil {
			writeStorageError(w, "error updating student", err)
			return
		}

		student := decodeAndValidate(w, r)
		if student == nil {
			return
		}

		updated, err := store.UpdateStudentByID(intID, *student)
		if err != nil {
			writeStorageError(w, "error updating student", err)
			return
		}

		slog.Info("student updated", slog.Int64("id", intID))
		response.WriteJSON(w, http.StatusOK, map[string]any{
			"message": "Student updated successfully",
			"data":    updated,
		})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /api/students/{id}
// Permanently removes a student record (hard delete, no tombstone).
//
// Success response (200 OK):
//
//	{ "message": "Student deleted successfully" }
//
// ─────────────────────────────────────────────────────────────────────────────
func Delete(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		intID, ok := parseID(w, r)
		if !ok {
			return
		}
		slog.Info("deleting a student", slog.Int64("id", intID))

		if err := store.DeleteStudentByID(intID); err != nil {
			writeStorageError(w, "error deleting student", err)
			return
		}

		slog.Info("student deleted", slog.Int64("id", intID))
		response.WriteJSON(w, http.StatusOK, map[string]string{
			"message": "Student deleted successfully",
		})
	}
}
