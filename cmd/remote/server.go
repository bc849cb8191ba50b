package remote

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gigurra/lull/cmd/common/catalog"
	"github.com/gigurra/lull/cmd/common/mixer"
	"github.com/gorilla/websocket"
)

const pushInterval = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Controller is the part of the mixer the remote drives.
type Controller interface {
	SelectBase(id string) error
	ToggleBasePlayback() error
	ResetAll() error
	ToggleOverlay(id string) (bool, error)
	SetVolume(id string, v float64) (float64, error)
	Snapshot() (mixer.Snapshot, error)
	StartSleepTimer(d time.Duration) error
	CancelSleepTimer() error
}

type soundDTO struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Color   string  `json:"color,omitempty"`
	Volume  float64 `json:"volume"`
	Enabled bool    `json:"enabled,omitempty"`
	Phase   string  `json:"phase,omitempty"`
}

type stateDTO struct {
	ActiveBase       string     `json:"activeBase"`
	BasePlaying      bool       `json:"basePlaying"`
	SleepRemainingMs int64      `json:"sleepRemainingMs"`
	Bases            []soundDTO `json:"bases"`
	Overlays         []soundDTO `json:"overlays"`
}

type errorDTO struct {
	Error string `json:"error"`
}

type server struct {
	ctl  Controller
	cat  *catalog.Catalog
	push time.Duration
}

// newHandler builds the remote's routes. Empty user and pass disable auth.
func newHandler(ctl Controller, cat *catalog.Catalog, user, pass string) http.Handler {
	s := &server{ctl: ctl, cat: cat, push: pushInterval}
	return s.routes(user, pass)
}

func (s *server) routes(user, pass string) http.Handler {
	mux := http.NewServeMux()
	auth := basicAuth(user, pass)

	mux.HandleFunc("GET /{$}", auth(handleIndex))
	mux.HandleFunc("GET /ws", auth(s.handleWS))
	mux.HandleFunc("GET /api/state", auth(s.handleState))
	mux.HandleFunc("POST /api/base/{id}", auth(s.action(func(r *http.Request) error {
		return s.ctl.SelectBase(r.PathValue("id"))
	})))
	mux.HandleFunc("POST /api/toggle", auth(s.action(func(r *http.Request) error {
		return s.ctl.ToggleBasePlayback()
	})))
	mux.HandleFunc("POST /api/overlay/{id}", auth(s.action(func(r *http.Request) error {
		_, err := s.ctl.ToggleOverlay(r.PathValue("id"))
		return err
	})))
	mux.HandleFunc("POST /api/volume/{id}", auth(s.action(s.setVolume)))
	mux.HandleFunc("POST /api/sleep", auth(s.action(s.setSleep)))
	mux.HandleFunc("POST /api/reset", auth(s.action(func(r *http.Request) error {
		return s.ctl.ResetAll()
	})))
	return mux
}

func basicAuth(user, pass string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		if user == "" && pass == "" {
			return next
		}
		return func(w http.ResponseWriter, r *http.Request) {
			u, p, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 ||
				subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
				w.Header().Set("WWW-Authenticate", `Basic realm="lull remote"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}
}

// errBadRequest marks malformed query parameters.
var errBadRequest = errors.New("bad request")

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, mixer.ErrUnknownSound):
		return http.StatusNotFound
	case errors.Is(err, mixer.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, mixer.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, mixer.ErrResourceLoad), errors.Is(err, mixer.ErrPlayback):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("failed to write response", "error", err)
	}
}

// action runs a mixer operation and answers with the resulting state.
func (s *server) action(fn func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r); err != nil {
			slog.Info("remote action failed", "path", r.URL.Path, "error", err)
			writeJSON(w, statusFor(err), errorDTO{Error: err.Error()})
			return
		}
		s.handleState(w, r)
	}
}

func (s *server) setVolume(r *http.Request) error {
	v, err := strconv.ParseFloat(r.URL.Query().Get("v"), 64)
	if err != nil || math.IsNaN(v) {
		return errors.Join(errBadRequest, errors.New("query parameter v must be a number between 0 and 1"))
	}
	_, err = s.ctl.SetVolume(r.PathValue("id"), v)
	return err
}

// setSleep starts the sleep timer. Zero minutes cancels it.
func (s *server) setSleep(r *http.Request) error {
	minutes, err := strconv.ParseFloat(r.URL.Query().Get("minutes"), 64)
	if err != nil || math.IsNaN(minutes) || minutes < 0 {
		return errors.Join(errBadRequest, errors.New("query parameter minutes must be a non-negative number"))
	}
	if minutes == 0 {
		return s.ctl.CancelSleepTimer()
	}
	return s.ctl.StartSleepTimer(time.Duration(minutes * float64(time.Minute)))
}

func (s *server) state() (stateDTO, error) {
	snap, err := s.ctl.Snapshot()
	if err != nil {
		return stateDTO{}, err
	}
	st := stateDTO{
		ActiveBase:       snap.ActiveBaseID,
		BasePlaying:      snap.BasePlaying,
		SleepRemainingMs: snap.SleepRemaining.Milliseconds(),
		Bases:            []soundDTO{},
		Overlays:         []soundDTO{},
	}
	for _, b := range s.cat.Bases() {
		st.Bases = append(st.Bases, soundDTO{ID: b.ID, Title: b.Title, Color: b.Color, Volume: snap.Volumes[b.ID]})
	}
	for _, o := range s.cat.Overlays() {
		d := soundDTO{ID: o.ID, Title: o.Title, Color: o.Color, Volume: snap.Volumes[o.ID]}
		if snap.OverlayEnabled(o.ID) {
			d.Enabled = true
			d.Phase = string(snap.Phase(o.ID))
		}
		st.Overlays = append(st.Overlays, d)
	}
	return st, nil
}

func (s *server) handleState(w http.ResponseWriter, r *http.Request) {
	st, err := s.state()
	if err != nil {
		writeJSON(w, statusFor(err), errorDTO{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

// handleWS pushes the state to the client until it disconnects or the mixer closes.
func (s *server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Reads only serve to notice the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.push)
	defer ticker.Stop()
	for {
		st, err := s.state()
		if err != nil {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()))
			return
		}
		if err := conn.WriteJSON(st); err != nil {
			return
		}
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
