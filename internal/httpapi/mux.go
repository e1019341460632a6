package httpapi

import (
	"database/sql"
	"net/http"
)

// NewMux returns a mux with the health check and the static file tree
// registered. Feature modules add their own routes to it.
func NewMux(db *sql.DB, staticDir string, runs SuccessReporter, sources ...string) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db, runs, sources)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	return mux
}
