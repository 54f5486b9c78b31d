package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/openclaw/qrpop/qr"
	"github.com/openclaw/qrpop/store"
)

// Server holds the dependencies for all HTTP handlers.
type Server struct {
	Generator *qr.Generator
	History   *store.HistoryStore // nil disables history endpoints and recording
	Log       *slog.Logger
	Version   string
	StartTime time.Time
}

// NewRouter returns a fully configured chi router with all API routes.
func NewRouter(s *Server) http.Handler {
	if s.Generator == nil {
		s.Generator = qr.NewGenerator()
	}
	if s.StartTime.IsZero() {
		s.StartTime = time.Now()
	}

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)
	r.Use(requestLogger(s.Log))

	r.Get("/status", s.handleStatus)

	// QR web UI
	r.Get("/", s.handlePage)
	r.Get("/qr.png", s.handleQRImage)
	r.Post("/qr", s.handleQRImage)
	r.Post("/qr/data", s.handleQRData)

	// History
	r.Get("/history", s.handleHistory)
	r.Get("/history/search", s.handleHistorySearch)
	r.Get("/history/{id}", s.handleHistoryItem)

	return r
}

// --- helpers ----------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// --- middleware --------------------------------------------------------------

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Debug("http request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
			next.ServeHTTP(w, r)
		})
	}
}
