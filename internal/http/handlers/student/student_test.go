package student_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"student-records-api/internal/config"
	"student-records-api/internal/http/handlers/student"
	"student-records-api/internal/storage/sqlite"
	"student-records-api/internal/types"
)

// newTestRouter registers the student routes (without the auth gate,
// which has its own tests) over a freshly seeded database.
func newTestRouter(t *testing.T) *http.ServeMux {
	t.Helper()

	store, err := sqlite.New(&config.Config{
		StoragePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/students", student.GetList(store))
	mux.HandleFunc("GET /api/students/stats", student.GetStats(store))
	mux.HandleFunc("GET /api/students/{id}", student.GetByID(store))
	mux.HandleFunc("POST /api/students", student.New(store))
	mux.HandleFunc("PUT /api/students/{id}", student.Update(store))
	mux.HandleFunc("DELETE /api/students/{id}", student.Delete(store))
	return mux
}

func do(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestGetListSeedAndFilters(t *testing.T) {
	mux := newTestRouter(t)

	rec := do(t, mux, http.MethodGet, "/api/students?course=Mathematics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var page types.StudentPage
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if page.Total != 1 {
		t.Errorf("total = %d, want 1", page.Total)
	}
	if len(page.Data) != 1 || page.Data[0].Name != "Bob Martinez" {
		t.Errorf("data = %+v, want the single Mathematics student Bob Martinez", page.Data)
	}
}

func TestGetListPaginationEnvelope(t *testing.T) {
	mux := newTestRouter(t)

	rec := do(t, mux, http.MethodGet, "/api/students?page=3&limit=2&sort=bogus&order=bogus", "")
	var page types.StudentPage
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if page.Total != 5 || page.Page != 3 || page.Limit != 2 || page.TotalPages != 3 {
		t.Errorf("envelope = %+v, want total=5 page=3 limit=2 totalPages=3", page)
	}
	if len(page.Data) > page.Limit {
		t.Errorf("len(data) = %d exceeds limit %d", len(page.Data), page.Limit)
	}
	// Bogus sort/order fell back to id ascending → page 3 of 2 is row 5.
	if len(page.Data) != 1 || page.Data[0].ID != 5 {
		t.Errorf("fallback ordering broken: %+v", page.Data)
	}
}

func TestGetByID(t *testing.T) {
	mux := newTestRouter(t)

	rec := do(t, mux, http.MethodGet, "/api/students/2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var s types.Student
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.Name != "Bob Martinez" {
		t.Errorf("name = %q, want Bob Martinez", s.Name)
	}

	if rec := do(t, mux, http.MethodGet, "/api/students/999", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing id status = %d, want 404", rec.Code)
	}
	if rec := do(t, mux, http.MethodGet, "/api/students/abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("non-integer id status = %d, want 400", rec.Code)
	}
}

func TestCreate(t *testing.T) {
	mux := newTestRouter(t)

	rec := do(t, mux, http.MethodPost, "/api/students",
		`{"name":"Frank Miller","email":"frank@example.com","course":"History"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body: %s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Message string        `json:"message"`
		Data    types.Student `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Data.ID != 6 {
		t.Errorf("id = %d, want 6 (strictly increasing after the 5 seed rows)", resp.Data.ID)
	}
	if resp.Data.CreatedAt == "" {
		t.Errorf("created_at not set")
	}
	if resp.Data.Status != "Active" {
		t.Errorf("status = %q, want default Active", resp.Data.Status)
	}
}

func TestCreateValidation(t *testing.T) {
	mux := newTestRouter(t)

	t.Run("invalid email shape", func(t *testing.T) {
		rec := do(t, mux, http.MethodPost, "/api/students",
			`{"name":"X","email":"not-an-email","course":"Y"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		var resp struct {
			Errors []string `json:"errors"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		found := false
		for _, msg := range resp.Errors {
			if strings.Contains(strings.ToLower(msg), "email") {
				found = true
			}
		}
		if !found {
			t.Errorf("errors = %v, want one mentioning email", resp.Errors)
		}
	})

	t.Run("missing required fields are itemized", func(t *testing.T) {
		rec := do(t, mux, http.MethodPost, "/api/students", `{"name":"  "}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		var resp struct {
			Errors []string `json:"errors"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		// Whitespace-only name plus missing email and course.
		if len(resp.Errors) != 3 {
			t.Errorf("errors = %v, want 3 itemized messages", resp.Errors)
		}
	})

	t.Run("empty body", func(t *testing.T) {
		if rec := do(t, mux, http.MethodPost, "/api/students", ""); rec.Code != http.StatusBadRequest {
			t.Errorf("empty body status = %d, want 400", rec.Code)
		}
	})
}

func TestCreateDuplicateEmail(t *testing.T) {
	mux := newTestRouter(t)

	rec := do(t, mux, http.MethodPost, "/api/students",
		`{"name":"Impostor","email":"alice@example.com","course":"Art"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}

	// The first record is unaffected.
	var s types.Student
	json.Unmarshal(do(t, mux, http.MethodGet, "/api/students/1", "").Body.Bytes(), &s)
	if s.Name != "Alice Johnson" {
		t.Errorf("seed row changed by rejected insert: %+v", s)
	}
}

func TestUpdate(t *testing.T) {
	mux := newTestRouter(t)

	t.Run("not found beats validation", func(t *testing.T) {
		// Invalid payload AND missing id → 404, not 400.
		rec := do(t, mux, http.MethodPut, "/api/students/999", `{"name":""}`)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("replaces fields", func(t *testing.T) {
		rec := do(t, mux, http.MethodPut, "/api/students/1",
			`{"name":"Alice Johnson","email":"alice@example.com","course":"Data Science","status":"Inactive"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
		}
		var resp struct {
			Data types.Student `json:"data"`
		}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.Data.Course != "Data Science" || resp.Data.Status != "Inactive" {
			t.Errorf("update not applied: %+v", resp.Data)
		}
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		rec := do(t, mux, http.MethodPut, "/api/students/1",
			`{"name":"Alice Johnson","email":"bob@example.com","course":"Data Science"}`)
		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})
}

func TestDelete(t *testing.T) {
	mux := newTestRouter(t)

	rec := do(t, mux, http.MethodDelete, "/api/students/999", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing id status = %d, want 404", rec.Code)
	}

	// Table size unchanged by the failed delete.
	var page types.StudentPage
	json.Unmarshal(do(t, mux, http.MethodGet, "/api/students", "").Body.Bytes(), &page)
	if page.Total != 5 {
		t.Fatalf("total = %d after failed delete, want 5", page.Total)
	}

	if rec := do(t, mux, http.MethodDelete, "/api/students/2", ""); rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", rec.Code)
	}
	if rec := do(t, mux, http.MethodGet, "/api/students/2", ""); rec.Code != http.StatusNotFound {
		t.Errorf("deleted student still retrievable")
	}
}

func TestStats(t *testing.T) {
	mux := newTestRouter(t)

	rec := do(t, mux, http.MethodGet, "/api/students/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var stats types.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if stats.Total != 5 || stats.Active != 4 || stats.Inactive != 1 {
		t.Errorf("stats = %+v, want 5/4/1", stats)
	}
	if len(stats.Courses) != 5 || len(stats.Grades) != 3 {
		t.Errorf("rollups = %d courses / %d grades, want 5/3", len(stats.Courses), len(stats.Grades))
	}
}
