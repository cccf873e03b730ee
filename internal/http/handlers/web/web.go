// Package web serves the single-page frontend. The UI is a plain
// static bundle under the configured directory; it talks to the server
// exclusively through the JSON API.
package web

import (
	"net/http"
	"os"
	"path/filepath"
)

// SPA returns the catch-all handler for non-API paths.
//
//   - /login serves the login page
//   - an existing file under staticDir is served as-is
//   - everything else falls back to index.html so client-side routes
//     survive a page reload
func SPA(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			http.ServeFile(w, r, filepath.Join(staticDir, "login.html"))
			return
		}

		// Clean the path against traversal before touching the disk.
		path := filepath.Join(staticDir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			http.ServeFile(w, r, path)
			return
		}

		http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
	}
}
