// Package mockapi serves an in-memory trading back office over HTTP for
// local development and end-to-end tests of the API client.
package mockapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/samvad-hq/tradedesk-client/internal/logger"
	"github.com/samvad-hq/tradedesk-client/pkg/apiclient"
)

// Options configures a Server.
type Options struct {
	Store        *Store
	Log          logger.Logger
	Latency      time.Duration
	RequireNonce bool
	// Prefix is the mount point of the API routes, "/api" when empty.
	Prefix string
}

// Server routes mock API requests to the store.
type Server struct {
	Router       *chi.Mux
	store        *Store
	log          logger.Logger
	latency      time.Duration
	requireNonce bool
	sessions     *sessions
}

// New builds the router.
func New(opts Options) *Server {
	if opts.Store == nil {
		opts.Store = NewStore(DefaultFixture())
	}
	if opts.Log == nil {
		opts.Log = logger.NopLogger()
	}
	if opts.Prefix == "" {
		opts.Prefix = "/api"
	}

	r := chi.NewRouter()
	s := &Server{
		Router:       r,
		store:        opts.Store,
		log:          opts.Log,
		latency:      opts.Latency,
		requireNonce: opts.RequireNonce,
		sessions:     newSessions(),
	}

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.accessLog)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Route(opts.Prefix, func(api chi.Router) {
		api.Use(s.simulateLatency)
		api.Use(s.verifyNonce)

		api.Post("/session", s.handleLogin)
		api.Delete("/session", s.handleLogout)

		api.Route("/accounts", func(ar chi.Router) {
			ar.Get("/", s.handleListAccounts)
			ar.Post("/", s.handleCreateAccount)
			ar.Get("/{accountID}", s.handleGetAccount)
			ar.Put("/{accountID}", s.handleReplaceAccount)
			ar.Patch("/{accountID}", s.handlePatchAccount)
			ar.Delete("/{accountID}", s.handleDeleteAccount)
		})

		api.Route("/reservations", func(rr chi.Router) {
			rr.Get("/", s.handleListReservations)
			rr.Post("/", s.handleCreateReservation)
			rr.Get("/{reservationID}", s.handleGetReservation)
			rr.Put("/{reservationID}", s.handleReplaceReservation)
			rr.Delete("/{reservationID}", s.handleDeleteReservation)
			rr.Patch("/{reservationID}/status", s.handleReservationStatus)
		})

		api.Get("/events", s.handleListEvents)
		api.Get("/events/{eventID}", s.handleGetEvent)
	})

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

// Store returns the backing store.
func (s *Server) Store() *Store { return s.store }

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.InfoObj("mock request", "http", map[string]any{
			"request_id":  chimw.GetReqID(r.Context()),
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

func (s *Server) simulateLatency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.latency > 0 {
			t := time.NewTimer(s.latency)
			select {
			case <-r.Context().Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
		next.ServeHTTP(w, r)
	})
}

// verifyNonce rejects requests whose nonce headers do not verify. When
// nonces are optional only malformed present nonces are rejected.
func (s *Server) verifyNonce(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(apiclient.HeaderRequestKey)
		nonce := r.Header.Get(apiclient.HeaderRequestNonce)
		if nonce == "" && !s.requireNonce {
			next.ServeHTTP(w, r)
			return
		}

		ts, err := strconv.ParseInt(r.Header.Get(apiclient.HeaderRequestTimestamp), 10, 64)
		if err != nil || !apiclient.VerifyNonce(apiclient.SHA256Hex, key, ts, nonce) {
			s.log.WarnObj("mock rejected nonce", "nonce", map[string]any{
				"request_key": key,
				"path":        r.URL.Path,
			})
			writeError(w, http.StatusUnauthorized, "invalid request nonce")
			return
		}
		next.ServeHTTP(w, r)
	})
}
