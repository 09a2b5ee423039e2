package server

import (
	"bufio"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/muurk/remoterelay/internal/device"
	"github.com/muurk/remoterelay/internal/logging"
)

// class groups routes by what web mode may serve them.
type class int

const (
	classPublic  class = iota // always served
	classRead                 // read-only configuration and diagnostics
	classWrite                // changes settings or lifecycle
	classChannel              // reads relay channels
	classSwitch               // switches relay channels
)

// allowed reports whether mode m serves routes of class c.
func allowed(m device.WebMode, c class) bool {
	if c == classPublic {
		return true
	}
	switch m {
	case device.WebFullService:
		return true
	case device.WebConfigOnly:
		return c == classRead || c == classWrite
	case device.WebRestOnly:
		return c == classRead || c == classChannel
	}
	return false
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)
	r.NotFoundHandler = http.HandlerFunc(notFound)

	r.HandleFunc("/", s.handleRoot)

	s.handle(r, "/debug", classRead, s.handleDebug).Methods(http.MethodGet)
	s.handle(r, "/settings", classRead, s.handleGetSettings).Methods(http.MethodGet)
	s.handle(r, "/settings", classWrite, s.handlePostSettings).Methods(http.MethodPost)
	s.handle(r, "/state", classRead, s.handleState).Methods(http.MethodGet)
	s.handle(r, "/events", classRead, s.handleEvents).Methods(http.MethodGet)

	s.handle(r, "/reset", classWrite, s.handleLifecycle(device.FactoryResetRequested{}, "Reset OK")).Methods(http.MethodPost)
	s.handle(r, "/erase", classWrite, s.handleLifecycle(device.EraseRequested{}, "Erase OK")).Methods(http.MethodPost)
	s.handle(r, "/shutdown", classWrite, s.handleLifecycle(device.ShutdownRequestedEvent{}, "Shutdown OK")).Methods(http.MethodPost)
	s.handle(r, "/restart", classWrite, s.handleLifecycle(device.RestartRequestedEvent{}, "Restart OK")).Methods(http.MethodPost)

	s.handle(r, "/channel/{id:[0-9]+}", classChannel, s.handleGetChannel).Methods(http.MethodGet)
	s.handle(r, "/channel/{id:[0-9]+}", classSwitch, s.handlePutChannel).Methods(http.MethodPut)

	return r
}

func (s *Server) handle(r *mux.Router, path string, c class, fn http.HandlerFunc) *mux.Route {
	return r.Handle(path, s.gate(c, s.authenticate(fn)))
}

// gate rejects routes the current web mode does not serve.
func (s *Server) gate(c class, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := s.Mode()
		if allowed(m, c) {
			next.ServeHTTP(w, r)
			return
		}
		if m == device.WebDisabled || m == device.WebRequested {
			writeText(w, http.StatusServiceUnavailable, "Service unavailable\r\n")
			return
		}
		notFound(w, r)
	})
}

// authenticate enforces basic auth when the settings carry both a login
// and a password.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var login, password string
		err := s.loop.Do(r.Context(), func(c *device.Context) error {
			login = c.Record.LoginString()
			password = c.Record.PasswordString()
			return nil
		})
		if err != nil {
			s.unavailable(w, err)
			return
		}

		if login != "" && password != "" {
			user, pass, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(user), []byte(login)) != 1 ||
				subtle.ConstantTimeCompare([]byte(pass), []byte(password)) != 1 {
				w.Header().Set("WWW-Authenticate", `Basic realm="Login Required"`)
				writeText(w, http.StatusUnauthorized, "Unauthorized\r\n")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		user, _, _ := r.BasicAuth()
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, rec.status, user)
	})
}

// statusRecorder captures the response status. It passes Hijack through
// for the websocket upgrade.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusNotFound, "Not found\r\n")
}
