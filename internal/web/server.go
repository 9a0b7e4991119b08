// Package web provides the HTTP interface of the vitals-monitor daemon:
// the status page, JSON endpoints and the command endpoints.
package web

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/sweeney/vitals-monitor/internal/device"
	"github.com/sweeney/vitals-monitor/internal/logic"
	"github.com/sweeney/vitals-monitor/internal/status"
	"github.com/sweeney/vitals-monitor/internal/store"
)

// commandTimeout bounds how long a handler waits for the device loop.
const commandTimeout = 5 * time.Second

// Invoker executes a command on the device loop.
type Invoker interface {
	Invoke(ctx context.Context, cmd device.Command) error
}

// Server serves the status page and accepts commands over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	device     Invoker
}

// New creates a Server that reads state from the tracker and sends
// commands to dev.
func New(addr string, tracker *status.Tracker, dev Invoker) *Server {
	s := &Server{tracker: tracker, device: dev}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("GET /data", s.handleData)
	mux.HandleFunc("GET /setTime", s.handleSetTime)
	mux.HandleFunc("GET /setAlarm", s.handleSetAlarm)
	mux.HandleFunc("GET /clearAlarm", s.handleClearAlarm)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("GET /logout", s.handleLogout)
	mux.HandleFunc("POST /setSleep", s.handleSetSleep)
	mux.HandleFunc("GET /admin", s.handleAdmin)
	mux.HandleFunc("GET /deleteUser", s.handleDeleteUser)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	noCache(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	noCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.Write(formatData(snap))
}

func (s *Server) handleSetTime(w http.ResponseWriter, r *http.Request) {
	h, m, ok := hourMinute(r, "h", "m")
	if !ok {
		http.Error(w, "Invalid time parameters", http.StatusBadRequest)
		return
	}
	if err := s.invoke(r, device.SetTime{Hour: h, Minute: m}); err != nil {
		s.fail(w, err, "Invalid time parameters")
		return
	}
	plain(w, "Time set successfully")
}

func (s *Server) handleSetAlarm(w http.ResponseWriter, r *http.Request) {
	h, m, ok := hourMinute(r, "h", "m")
	if !ok {
		http.Error(w, "Invalid alarm parameters", http.StatusBadRequest)
		return
	}
	if err := s.invoke(r, device.SetAlarm{Hour: h, Minute: m}); err != nil {
		s.fail(w, err, "Invalid alarm parameters")
		return
	}
	plain(w, "Alarm set successfully")
}

func (s *Server) handleClearAlarm(w http.ResponseWriter, r *http.Request) {
	if err := s.invoke(r, device.ClearAlarm{}); err != nil {
		s.fail(w, err, "")
		return
	}
	plain(w, "Alarm cleared successfully")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	cmd := device.Login{Username: r.PostFormValue("username"), Password: r.PostFormValue("password")}
	if err := s.invoke(r, cmd); err != nil {
		s.fail(w, err, "Invalid credentials")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	cmd := device.Register{Username: r.PostFormValue("username"), Password: r.PostFormValue("password")}
	if err := s.invoke(r, cmd); err != nil {
		s.fail(w, err, "Registration failed: "+err.Error())
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.invoke(r, device.Logout{}); err != nil {
		s.fail(w, err, "")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleSetSleep updates whichever of the bedtime and wake-up pairs the
// form carries.
func (s *Server) handleSetSleep(w http.ResponseWriter, r *http.Request) {
	var cmd device.SetSleepWindow
	for _, f := range []struct {
		h, m string
		dst  **logic.TimeOfDay
	}{
		{"bedH", "bedM", &cmd.Bedtime},
		{"wakeH", "wakeM", &cmd.Wakeup},
	} {
		if r.PostFormValue(f.h) == "" && r.PostFormValue(f.m) == "" {
			continue
		}
		h, m, ok := hourMinute(r, f.h, f.m)
		if !ok {
			http.Error(w, "Invalid time parameters", http.StatusBadRequest)
			return
		}
		*f.dst = &logic.TimeOfDay{Hour: h, Minute: m}
	}
	if err := s.invoke(r, cmd); err != nil {
		s.fail(w, err, "Invalid time parameters")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	if snap.Session == nil || !snap.Session.IsAdmin {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	noCache(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderAdmin(w, snap)
}

// handleDeleteUser returns to the admin page whether or not the target
// was valid, like the appliance's own page did.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.FormValue("id"))
	if err != nil {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}
	err = s.invoke(r, device.DeleteAccount{Index: id})
	switch {
	case errors.Is(err, device.ErrNoSession), errors.Is(err, device.ErrNotPermitted):
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case err == nil, errors.Is(err, store.ErrInvalidTarget):
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
	default:
		s.fail(w, err, "")
	}
}

func (s *Server) invoke(r *http.Request, cmd device.Command) error {
	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()
	return s.device.Invoke(ctx, cmd)
}

// fail writes the status code for err. msg, if set, replaces the error
// text for rejected input.
func (s *Server) fail(w http.ResponseWriter, err error, msg string) {
	code := statusCode(err)
	text := err.Error()
	if msg != "" && code < http.StatusInternalServerError {
		text = msg
	}
	if code >= http.StatusInternalServerError {
		log.Printf("web: command failed: %v", err)
	}
	http.Error(w, text, code)
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, logic.ErrInvalidTime),
		errors.Is(err, store.ErrDuplicateUsername),
		errors.Is(err, store.ErrCapacityExceeded),
		errors.Is(err, store.ErrInvalidCredentials),
		errors.Is(err, store.ErrInvalidTarget):
		return http.StatusBadRequest
	case errors.Is(err, device.ErrBadCredentials),
		errors.Is(err, device.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, device.ErrNotPermitted):
		return http.StatusForbidden
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// hourMinute parses two integer form values. Range checks are left to
// the device.
func hourMinute(r *http.Request, hKey, mKey string) (int, int, bool) {
	h, err := strconv.Atoi(r.FormValue(hKey))
	if err != nil {
		return 0, 0, false
	}
	m, err := strconv.Atoi(r.FormValue(mKey))
	if err != nil {
		return 0, 0, false
	}
	return h, m, true
}

func plain(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(msg))
}

func noCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "-1")
}
