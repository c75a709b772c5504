// internal/httpserver/server.go
//
// HTTP server wiring for the Odd One Out game.
// Responsibilities:
//   - Router + middleware (request IDs, panic recovery, request logging, CORS,
//     timeouts, JSON content type).
//   - Public endpoints: "/" (the game page), "/health", "/portrait".
//   - Session endpoints under /api/session: read the view and drive every
//     screen transition of the session controller.
//   - Live updates over a websocket at /api/session/events.
//
// Notes:
//   - Every browser gets one in-memory session. Its ID travels in an HS256
//     JWT cookie; an unknown or invalid cookie simply starts a fresh session.
//   - The websocket route sits outside the timeout group, since it is long-lived.

package httpserver

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/oddone/assets"
	"github.com/robalobadob/oddone/internal/session"
	"github.com/robalobadob/oddone/internal/store"
)

// Options wire the server to its dependencies.
type Options struct {
	Store        store.Store
	NewSession   func(id string) *session.Session
	Secret       []byte
	CookieName   string
	CookieSecure bool
	ClientOrigin string

	PortraitPath        string
	PortraitFallbackURL string
}

// Server bundles router, session store and cookie settings.
type Server struct {
	r    *chi.Mux
	opts Options
}

// New constructs a Server, installs middleware, and registers routes.
func New(opts Options) *Server {
	if opts.CookieName == "" {
		opts.CookieName = "oddone_session"
	}
	s := &Server{r: chi.NewRouter(), opts: opts}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(requestLogger)
	s.r.Use(chimw.Recoverer)
	s.r.Use(s.cors)

	// --- page + assets ---
	s.r.Get("/", s.handleIndex)
	s.r.Get("/portrait", s.handlePortrait)

	// --- live updates (long-lived, no timeout) ---
	s.r.Get("/api/session/events", s.handleEvents)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Use(jsonContentType)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})

		r.Route("/api", func(r chi.Router) {
			r.Get("/emojis", s.handlePalette)
			r.Get("/session", s.withSession(s.handleView))
			r.Post("/session/start", s.withSession(s.handleStart))
			r.Post("/session/create", s.withSession(s.handleOpenCreate))
			r.Post("/session/custom", s.withSession(s.handleCustom))
			r.Post("/session/input", s.withSession(s.handleInput))
			r.Post("/session/hint", s.withSession(s.handleHint))
			r.Post("/session/home", s.withSession(s.handleHome))
			r.Post("/session/restart", s.withSession(s.handleRestart))
		})

		// JSON 404 for easier debugging
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusNotFound, "not_found")
		})
	})

	return s
}

// Router exposes the internal router (useful for tests and http.Server).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin, so a dev
// server on another port can drive the API with the session cookie.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.opts.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin != "" {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("reqId", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

// ------------------------------ assets -------------------------------------

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := assets.Index()
	if err != nil {
		log.Error().Err(err).Msg("read index page")
		http.Error(w, "page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

// handlePortrait serves the local portrait image, or redirects to the remote
// fallback when the local file is missing or unreadable.
func (s *Server) handlePortrait(w http.ResponseWriter, r *http.Request) {
	if p := s.opts.PortraitPath; p != "" {
		if f, err := os.Open(p); err == nil {
			defer f.Close()
			if st, err := f.Stat(); err == nil && !st.IsDir() {
				http.ServeContent(w, r, st.Name(), st.ModTime(), f)
				return
			}
		}
	}
	if s.opts.PortraitFallbackURL == "" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, s.opts.PortraitFallbackURL, http.StatusFound)
}

// ------------------------------- util --------------------------------------

type errorBody struct {
	Error string `json:"error"`
}

// writeError writes {"error": code} with status.
func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: code})
}

// originHost returns the host[:port] of an origin URL, or "".
func originHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil {
		return ""
	}
	return u.Host
}
