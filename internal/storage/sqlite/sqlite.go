// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// WHY SQLite?
// ───────────
// SQLite stores everything in a single file on disk. There is no
// network, no separate server process, and no installation beyond the
// driver. Writes are transactional at the statement level, which is all
// this application needs.
//
// Importing the driver package registers the "sqlite3" driver with
// database/sql via its init() function; the same package also exposes
// the structured error codes used to classify constraint violations.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"student-records-api/internal/config"
	"student-records-api/internal/storage"
	"student-records-api/internal/types"

	"golang.org/x/crypto/bcrypt"

	// Importing the driver registers "sqlite3" with database/sql; the
	// package is also referenced directly for structured error codes.
	"github.com/mattn/go-sqlite3"
)

// allowedSorts is the allow-list for the user-supplied sort column.
// Anything not in this map silently falls back to "id" — the column
// name is interpolated into the ORDER BY clause, so it must never come
// from the request verbatim.
var allowedSorts = map[string]bool{
	"id":         true,
	"name":       true,
	"email":      true,
	"course":     true,
	"grade":      true,
	"status":     true,
	"created_at": true,
}

const studentColumns = "id, name, email, phone, course, grade, dob, address, status, created_at"

// SQLite is the concrete implementation of storage.Storage.
// A single *sql.DB is safe for concurrent use by multiple goroutines;
// combined with SQLite's own file locking this covers every
// mutate-then-persist race the application can hit.
type SQLite struct {
	Db *sql.DB
}

// New opens the SQLite database at the path specified in cfg.StoragePath,
// creates the students and users tables if they do not already exist,
// and seeds sample data into empty tables.
func New(cfg *config.Config) (*SQLite, error) {
	db, err := sql.Open("sqlite3", cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	s := &SQLite{Db: db}

	if err := s.createSchema(); err != nil {
		return nil, err
	}
	if err := s.seedIfEmpty(); err != nil {
		return nil, err
	}

	return s, nil
}

// createSchema applies the table definitions. CREATE TABLE IF NOT EXISTS
// is idempotent — safe to run on every startup.
func (s *SQLite) createSchema() error {
	_, err := s.Db.Exec(`
		CREATE TABLE IF NOT EXISTS students (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL,
			email      TEXT NOT NULL UNIQUE,
			phone      TEXT DEFAULT '',
			course     TEXT NOT NULL,
			grade      TEXT DEFAULT '',
			dob        TEXT DEFAULT '',
			address    TEXT DEFAULT '',
			status     TEXT NOT NULL DEFAULT 'Active',
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return fmt.Errorf("sqlite.New: create students table: %w", err)
	}

	_, err = s.Db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			role     TEXT NOT NULL DEFAULT 'admin'
		)
	`)
	if err != nil {
		return fmt.Errorf("sqlite.New: create users table: %w", err)
	}

	return nil
}

// seedIfEmpty inserts the sample students and the default admin account,
// but only into tables that hold no rows yet. Restarting the server
// never duplicates seed data.
func (s *SQLite) seedIfEmpty() error {
	var count int
	if err := s.Db.QueryRow("SELECT COUNT(*) FROM students").Scan(&count); err != nil {
		return fmt.Errorf("sqlite.New: count students: %w", err)
	}

	if count == 0 {
		samples := []types.Student{
			{Name: "Alice Johnson", Email: "alice@example.com", Phone: "555-0101", Course: "Computer Science", Grade: "A", DOB: "2002-04-12", Address: "123 Maple St", Status: "Active"},
			{Name: "Bob Martinez", Email: "bob@example.com", Phone: "555-0102", Course: "Mathematics", Grade: "B", DOB: "2001-09-05", Address: "456 Oak Ave", Status: "Active"},
			{Name: "Carol Williams", Email: "carol@example.com", Phone: "555-0103", Course: "Physics", Grade: "A", DOB: "2003-01-22", Address: "789 Pine Rd", Status: "Active"},
			{Name: "David Brown", Email: "david@example.com", Phone: "555-0104", Course: "Chemistry", Grade: "C", DOB: "2002-07-18", Address: "321 Elm Blvd", Status: "Inactive"},
			{Name: "Eve Davis", Email: "eve@example.com", Phone: "555-0105", Course: "Biology", Grade: "B", DOB: "2001-11-30", Address: "654 Cedar Ln", Status: "Active"},
		}
		for _, sample := range samples {
			if _, err := s.CreateStudent(sample); err != nil {
				return fmt.Errorf("sqlite.New: seed students: %w", err)
			}
		}
	}

	if err := s.Db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("sqlite.New: count users: %w", err)
	}

	if count == 0 {
		// Default credentials: admin / admin123. Accounts are managed
		// out of band; the API only ever changes the password.
		hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("sqlite.New: hash seed password: %w", err)
		}
		_, err = s.Db.Exec(
			"INSERT INTO users (username, password, role) VALUES (?, ?, 'admin')",
			"admin", string(hash),
		)
		if err != nil {
			return fmt.Errorf("sqlite.New: seed user: %w", err)
		}
	}

	return nil
}

// isUniqueViolation reports whether err is SQLite's UNIQUE constraint
// failure. Classification happens on the driver's structured extended
// error code — never by matching error message text.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) &&
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// ─────────────────────────────────────────────────────────────────────────────
// CreateStudent inserts a new row and returns the stored record.
//
// Prepared statements use placeholders (?) so the driver sends query
// and values separately — user input is never interpreted as SQL.
// A duplicate email trips the UNIQUE constraint and surfaces as
// storage.ErrDuplicateEmail; the insert is rejected atomically.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) CreateStudent(student types.Student) (types.Student, error) {
	stmt, err := s.Db.Prepare(`
		INSERT INTO students (name, email, phone, course, grade, dob, address, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.Exec(
		student.Name, student.Email, student.Phone, student.Course,
		student.Grade, student.DOB, student.Address, student.Status,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Student{}, storage.ErrDuplicateEmail
		}
		return types.Student{}, fmt.Errorf("CreateStudent: exec: %w", err)
	}

	lastID, err := result.LastInsertId()
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: last insert id: %w", err)
	}

	// Re-fetch so the caller gets the DB-assigned created_at as stored.
	return s.GetStudentByID(lastID)
}

// GetStudentByID fetches exactly one student row matched by primary key.
func (s *SQLite) GetStudentByID(id int64) (types.Student, error) {
	stmt, err := s.Db.Prepare(
		"SELECT " + studentColumns + " FROM students WHERE id = ? LIMIT 1",
	)
	if err != nil {
		return types.Student{}, fmt.Errorf("GetStudentByID: prepare: %w", err)
	}
	defer stmt.Close()

	student, err := scanStudent(stmt.QueryRow(id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Student{}, storage.ErrStudentNotFound
		}
		return types.Student{}, fmt.Errorf("GetStudentByID: scan: %w", err)
	}

	return student, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// ListStudents is the filter/sort/paginate query builder.
//
// Rules:
//   - sort column must be in allowedSorts, otherwise "id"
//   - order must be ASC or DESC (any case), otherwise "ASC"
//   - search matches name OR email OR phone as a case-insensitive
//     substring (SQLite LIKE is case-insensitive for ASCII)
//   - course/status filter by exact equality
//   - all conditions combine with AND
//   - total is counted with the same WHERE clause before paging
//
// Only the validated sort/order tokens are interpolated into the SQL;
// every user-supplied value travels as a bound parameter.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) ListStudents(q types.ListQuery) (types.StudentPage, error) {
	sortCol := q.Sort
	if !allowedSorts[sortCol] {
		sortCol = "id"
	}

	order := strings.ToUpper(q.Order)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	var conditions []string
	var params []any

	if q.Search != "" {
		conditions = append(conditions, "(name LIKE ? OR email LIKE ? OR phone LIKE ?)")
		pattern := "%" + q.Search + "%"
		params = append(params, pattern, pattern, pattern)
	}
	if q.Course != "" {
		conditions = append(conditions, "course = ?")
		params = append(params, q.Course)
	}
	if q.Status != "" {
		conditions = append(conditions, "status = ?")
		params = append(params, q.Status)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	err := s.Db.QueryRow(
		"SELECT COUNT(*) FROM students "+where, params...,
	).Scan(&total)
	if err != nil {
		return types.StudentPage{}, fmt.Errorf("ListStudents: count: %w", err)
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf(
		"SELECT %s FROM students %s ORDER BY %s %s LIMIT ? OFFSET ?",
		studentColumns, where, sortCol, order,
	)
	rows, err := s.Db.Query(query, append(params, limit, offset)...)
	if err != nil {
		return types.StudentPage{}, fmt.Errorf("ListStudents: query: %w", err)
	}
	defer rows.Close()

	// Pre-allocate an empty (non-nil) slice so an empty page encodes
	// as [] rather than null.
	students := make([]types.Student, 0)

	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return types.StudentPage{}, fmt.Errorf("ListStudents: scan row: %w", err)
		}
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return types.StudentPage{}, fmt.Errorf("ListStudents: rows iteration: %w", err)
	}

	return types.StudentPage{
		Data:       students,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit, // ceil(total / limit)
	}, nil
}

// UpdateStudentByID replaces every field except id and created_at.
// Existence is checked first so a missing id reports not-found even
// when the payload would also fail validation upstream.
func (s *SQLite) UpdateStudentByID(id int64, student types.Student) (types.Student, error) {
	if _, err := s.GetStudentByID(id); err != nil {
		return types.Student{}, err
	}

	stmt, err := s.Db.Prepare(`
		UPDATE students
		SET name = ?, email = ?, phone = ?, course = ?, grade = ?, dob = ?, address = ?, status = ?
		WHERE id = ?
	`)
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: prepare: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(
		student.Name, student.Email, student.Phone, student.Course,
		student.Grade, student.DOB, student.Address, student.Status, id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Student{}, storage.ErrDuplicateEmail
		}
		return types.Student{}, fmt.Errorf("UpdateStudentByID: exec: %w", err)
	}

	return s.GetStudentByID(id)
}

// DeleteStudentByID removes a student row by primary key.
func (s *SQLite) DeleteStudentByID(id int64) error {
	stmt, err := s.Db.Prepare("DELETE FROM students WHERE id = ?")
	if err != nil {
		return fmt.Errorf("DeleteStudentByID: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.Exec(id)
	if err != nil {
		return fmt.Errorf("DeleteStudentByID: exec: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteStudentByID: rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrStudentNotFound
	}

	return nil
}

// GetStats computes the dashboard aggregate in four passes: the three
// status counts, then the two GROUP BY rollups.
func (s *SQLite) GetStats() (types.Stats, error) {
	var stats types.Stats

	err := s.Db.QueryRow("SELECT COUNT(*) FROM students").Scan(&stats.Total)
	if err != nil {
		return types.Stats{}, fmt.Errorf("GetStats: total: %w", err)
	}
	err = s.Db.QueryRow("SELECT COUNT(*) FROM students WHERE status = 'Active'").Scan(&stats.Active)
	if err != nil {
		return types.Stats{}, fmt.Errorf("GetStats: active: %w", err)
	}
	err = s.Db.QueryRow("SELECT COUNT(*) FROM students WHERE status = 'Inactive'").Scan(&stats.Inactive)
	if err != nil {
		return types.Stats{}, fmt.Errorf("GetStats: inactive: %w", err)
	}

	rows, err := s.Db.Query(
		"SELECT course, COUNT(*) AS cnt FROM students GROUP BY course ORDER BY cnt DESC",
	)
	if err != nil {
		return types.Stats{}, fmt.Errorf("GetStats: courses: %w", err)
	}
	defer rows.Close()

	stats.Courses = make([]types.CourseCount, 0)
	for rows.Next() {
		var c types.CourseCount
		if err := rows.Scan(&c.Course, &c.Count); err != nil {
			return types.Stats{}, fmt.Errorf("GetStats: scan course: %w", err)
		}
		stats.Courses = append(stats.Courses, c)
	}
	if err := rows.Err(); err != nil {
		return types.Stats{}, fmt.Errorf("GetStats: courses iteration: %w", err)
	}

	gradeRows, err := s.Db.Query(
		"SELECT grade, COUNT(*) AS cnt FROM students WHERE grade IS NOT NULL AND grade != '' GROUP BY grade ORDER BY grade",
	)
	if err != nil {
		return types.Stats{}, fmt.Errorf("GetStats: grades: %w", err)
	}
	defer gradeRows.Close()

	stats.Grades = make([]types.GradeCount, 0)
	for gradeRows.Next() {
		var g types.GradeCount
		if err := gradeRows.Scan(&g.Grade, &g.Count); err != nil {
			return types.Stats{}, fmt.Errorf("GetStats: scan grade: %w", err)
		}
		stats.Grades = append(stats.Grades, g)
	}
	if err := gradeRows.Err(); err != nil {
		return types.Stats{}, fmt.Errorf("GetStats: grades iteration: %w", err)
	}

	return stats, nil
}

// GetUserByUsername fetches an account by exact username match.
func (s *SQLite) GetUserByUsername(username string) (types.User, error) {
	return s.getUser("SELECT id, username, password, role FROM users WHERE username = ? LIMIT 1", username)
}

// GetUserByID fetches an account by primary key.
func (s *SQLite) GetUserByID(id int64) (types.User, error) {
	return s.getUser("SELECT id, username, password, role FROM users WHERE id = ? LIMIT 1", id)
}

func (s *SQLite) getUser(query string, arg any) (types.User, error) {
	var user types.User
	err := s.Db.QueryRow(query, arg).Scan(
		&user.ID, &user.Username, &user.Password, &user.Role,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, storage.ErrUserNotFound
		}
		return types.User{}, fmt.Errorf("getUser: scan: %w", err)
	}
	return user, nil
}

// UpdateUserPassword replaces the stored bcrypt hash for a user.
func (s *SQLite) UpdateUserPassword(id int64, hash string) error {
	stmt, err := s.Db.Prepare("UPDATE users SET password = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("UpdateUserPassword: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.Exec(hash, id)
	if err != nil {
		return fmt.Errorf("UpdateUserPassword: exec: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateUserPassword: rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	return s.Db.Close()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows, letting the
// single-row and multi-row paths share one column mapping.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (types.Student, error) {
	var student types.Student
	err := row.Scan(
		&student.ID,
		&student.Name,
		&student.Email,
		&student.Phone,
		&student.Course,
		&student.Grade,
		&student.DOB,
		&student.Address,
		&student.Status,
		&student.CreatedAt,
	)
	return student, err
}
