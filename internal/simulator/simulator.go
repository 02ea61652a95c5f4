// Package simulator is an in-memory stand-in for the Plusserver SMS
// platform. It speaks the same two-endpoint protocol as the production
// service and advances each accepted message new → processed → arrived
// on its own clock, which makes it usable both for manual testing via
// the plussms simulate command and for integration tests that drive the
// real client against it.
package simulator

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	plusserver "github.com/W-Z-FinTech-GmbH/sms-plusserver"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Options configure the simulated platform.
type Options struct {
	// Username and Password are the expected Basic Auth credentials.
	// Leaving both empty disables the auth check.
	Username string
	Password string

	// ProcessAfter is how long a message stays "new" before it reports
	// "processed". ArriveAfter is how long until it reports "arrived".
	// Zero means immediately.
	ProcessAfter time.Duration
	ArriveAfter  time.Duration

	Logger *slog.Logger
}

// message is one accepted SMS and the instant it was accepted.
type message struct {
	destination string
	text        string
	debug       bool
	acceptedAt  time.Time
}

// Simulator holds the accepted messages and answers state queries for
// them. Safe for concurrent use.
type Simulator struct {
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	messages map[string]*message
}

// New creates a simulator with the given options.
func New(opts Options) *Simulator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		opts:     opts,
		logger:   logger,
		now:      time.Now,
		messages: make(map[string]*message),
	}
}

// Routes returns the platform's two endpoints on a chi router.
func (s *Simulator) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.requireAuth)
	r.Post("/put.php", s.handlePut)
	r.Post("/sms-state.php", s.handleState)
	return r
}

// Accepted reports how many messages the simulator has taken in.
func (s *Simulator) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *Simulator) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Username == "" && s.opts.Password == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.opts.Username || pass != s.opts.Password {
			s.logger.Warn("authorization failed", "user", user)
			w.Header().Set("WWW-Authenticate", `Basic realm="sms"`)
			http.Error(w, "authorization required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Simulator) handlePut(w http.ResponseWriter, r *http.Request) {
	dest := r.FormValue("dest")
	if dest == "" {
		s.writeError(w, "missing destination")
		return
	}
	msg := &message{
		destination: dest,
		text:        r.FormValue("data"),
		debug:       r.FormValue("debug") == "1",
		acceptedAt:  s.now(),
	}

	if r.FormValue("registered_delivery") != "1" {
		s.logger.Info("sms accepted", "dest", dest, "debug", msg.debug)
		s.writePacket(w, plusserver.MessageOK)
		return
	}

	// The production platform hands out 32-char hex handles.
	handle := strings.ReplaceAll(uuid.New().String(), "-", "")
	s.mu.Lock()
	s.messages[handle] = msg
	s.mu.Unlock()

	s.logger.Info("sms accepted", "handle", handle, "dest", dest, "debug", msg.debug)
	s.writePacket(w, plusserver.MessageOK, "handle = "+handle)
}

func (s *Simulator) handleState(w http.ResponseWriter, r *http.Request) {
	handle := r.FormValue("handle")
	if handle == "" {
		s.writeError(w, "missing handle")
		return
	}

	s.mu.Lock()
	msg, ok := s.messages[handle]
	s.mu.Unlock()
	if !ok {
		s.writeError(w, "unknown handle")
		return
	}

	state := s.stateOf(msg)
	s.logger.Debug("state queried", "handle", handle, "state", state)
	s.writePacket(w, plusserver.MessageOK, "state = "+state)
}

// stateOf derives the delivery state from the message's age.
func (s *Simulator) stateOf(msg *message) string {
	elapsed := s.now().Sub(msg.acceptedAt)
	switch {
	case elapsed >= s.opts.ArriveAfter:
		return plusserver.StateArrived
	case elapsed >= s.opts.ProcessAfter:
		return plusserver.StateProcessed
	default:
		return plusserver.StateNew
	}
}

func (s *Simulator) writePacket(w http.ResponseWriter, lines ...string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

// writeError emits an application-level failure the way the platform
// does: HTTP 200 with an ERROR packet.
func (s *Simulator) writeError(w http.ResponseWriter, reason string) {
	s.writePacket(w, plusserver.MessageError, "error = "+reason)
}
