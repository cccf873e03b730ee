// main is the entry point of the student records service.
//
// STARTUP SEQUENCE:
//  1. Load configuration from a YAML file (jwt_secret is mandatory —
//     boot fails fast without it)
//  2. Initialise the logger
//  3. Open (and set up) the SQLite database: schema + seed data
//  4. Register all HTTP routes, wrapping protected ones in the auth gate
//  5. Start the HTTP server in a separate goroutine
//  6. Block the main goroutine until an OS signal (Ctrl+C / kill) arrives
//  7. Gracefully shut down: finish in-flight requests, close storage, exit
//
// RUNNING THE SERVER:
//
//	go run ./cmd/student-records-api --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/student-records-api
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"student-records-api/internal/auth"
	"student-records-api/internal/config"
	authhandler "student-records-api/internal/http/handlers/auth"
	"student-records-api/internal/http/handlers/student"
	"student-records-api/internal/http/handlers/web"
	"student-records-api/internal/http/middleware"
	"student-records-api/internal/storage/sqlite"
	"student-records-api/internal/utils/response"

	"github.com/rs/cors"
)

func main() {
	// ── 1. Load Config ────────────────────────────────────────────────────
	// MustLoad reads the YAML config and fatals if anything is wrong,
	// including a missing JWT secret.
	cfg := config.MustLoad()

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting student-records-api",
		slog.String("env", cfg.Env),
		slog.String("version", "1.0.0"),
	)

	// ── 3. Initialise Storage (Database) ──────────────────────────────────
	// sqlite.New opens the database file, applies the create-if-missing
	// schema, and seeds sample rows into empty tables. The rest of the
	// code only sees the storage.Storage interface.
	storage, err := sqlite.New(cfg)
	if err != nil {
		log.Error("failed to initialise storage",
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("storage initialised",
		slog.String("path", cfg.StoragePath))

	tokens := auth.New(cfg.JWTSecret, cfg.TokenTTL)

	// ── 4. Register HTTP Routes ───────────────────────────────────────────
	// The handler functions are FACTORIES — they receive their
	// dependencies and return the actual handler (closure pattern).
	// Protected routes are additionally wrapped in the bearer-token gate.
	//
	// Route table:
	//   POST   /api/auth/login            → issue a session token (public)
	//   GET    /api/auth/me               → echo token claims
	//   POST   /api/auth/change-password  → rotate the caller's password
	//   GET    /api/students              → list (filter/sort/paginate)
	//   GET    /api/students/stats        → dashboard aggregate
	//   GET    /api/students/{id}         → get one student
	//   POST   /api/students              → create
	//   PUT    /api/students/{id}         → update
	//   DELETE /api/students/{id}         → delete
	//   GET    /api/health                → liveness probe (public)
	//   *                                 → single-page frontend
	router := http.NewServeMux()

	protected := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.RequireAuth(tokens, h)
	}

	router.HandleFunc("POST /api/auth/login", authhandler.Login(storage, tokens))
	router.HandleFunc("GET /api/auth/me", protected(authhandler.Me()))
	router.HandleFunc("POST /api/auth/change-password", protected(authhandler.ChangePassword(storage)))

	router.HandleFunc("GET /api/students", protected(student.GetList(storage)))
	router.HandleFunc("GET /api/students/stats", protected(student.GetStats(storage)))
	router.HandleFunc("GET /api/students/{id}", protected(student.GetByID(storage)))
	router.HandleFunc("POST /api/students", protected(student.New(storage)))
	router.HandleFunc("PUT /api/students/{id}", protected(student.Update(storage)))
	router.HandleFunc("DELETE /api/students/{id}", protected(student.Delete(storage)))

	router.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	router.HandleFunc("/", web.SPA(cfg.StaticDir))

	// CORS and access logging wrap the whole mux.
	handler := cors.AllowAll().Handler(router)
	handler = middleware.Logger(log, handler)

	// ── 5. Create the HTTP Server ─────────────────────────────────────────
	server := &http.Server{
		Addr:    cfg.HTTPServer.Addr,
		Handler: handler,

		// Timeouts prevent slow-client attacks from pinning connections.
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ── 6. Start Server in a Goroutine ────────────────────────────────────
	// ListenAndServe blocks; running it here would keep the graceful-
	// shutdown code below from ever executing.
	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))

		if err := server.ListenAndServe(); err != nil &&
			err != http.ErrServerClosed {
			log.Error("server encountered an error",
				slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// ── 7. Wait for Shutdown Signal ───────────────────────────────────────
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info("shutdown signal received, stopping server...")

	// ── 8. Graceful Shutdown ──────────────────────────────────────────────
	// Give in-flight requests five seconds to finish, then close the
	// database so the file handle is released cleanly.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server gracefully",
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := storage.Close(); err != nil {
		log.Error("failed to close storage", slog.String("error", err.Error()))
	}

	log.Info("server stopped gracefully")
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Production (prod): machine-readable JSON output at INFO level.
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	default: // "dev" and anything unrecognised
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	}
}
