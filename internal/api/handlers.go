package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/mux"

	"github.com/calvinwijaya/blackjack-be/internal/db"
	"github.com/calvinwijaya/blackjack-be/internal/game"
	"github.com/calvinwijaya/blackjack-be/internal/store"
)

// archiveTimeout bounds each archive call made while serving a request
const archiveTimeout = 5 * time.Second

// Settings configure the table served by the handlers
type Settings struct {
	Rules           game.Rules
	StartingBalance int
	RevealDelay     time.Duration
	// NewDeck overrides the shuffled shoe (for testing)
	NewDeck game.DeckFactory
}

// Handlers contains all the API handlers
type Handlers struct {
	store    store.Store
	archive  db.Archive
	hub      *Hub
	settings Settings
	clock    quartz.Clock
	logger   *log.Logger

	mu     sync.Mutex
	pacers map[string]*Pacer
}

// NewHandlers creates a new instance of Handlers
func NewHandlers(store store.Store, archive db.Archive, hub *Hub, settings Settings, clock quartz.Clock, logger *log.Logger) *Handlers {
	if archive == nil {
		archive = db.Nop{}
	}
	if settings.Rules.BetUnit <= 0 {
		settings.Rules = game.DefaultRules()
	}
	return &Handlers{
		store:    store,
		archive:  archive,
		hub:      hub,
		settings: settings,
		clock:    clock,
		logger:   logger.WithPrefix("api"),
		pacers:   make(map[string]*Pacer),
	}
}

// RegisterRoutes registers all API routes
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	// Session endpoints
	r.HandleFunc("/api/sessions", h.ListSessions).Methods("GET")
	r.HandleFunc("/api/session/new", h.NewSession).Methods("POST")
	r.HandleFunc("/api/session/{id}", h.GetSession).Methods("GET")
	r.HandleFunc("/api/session/{id}", h.CloseSession).Methods("DELETE")
	r.HandleFunc("/api/session/{id}/log", h.GetLog).Methods("GET")
	r.HandleFunc("/api/session/{id}/history", h.GetHistory).Methods("GET")
	r.HandleFunc("/api/session/{id}/stats", h.GetStats).Methods("GET")

	// Round endpoints
	r.HandleFunc("/api/session/{id}/round/start", h.StartRound).Methods("POST")
	r.HandleFunc("/api/session/{id}/bet", h.PlaceBet).Methods("POST")
	r.HandleFunc("/api/session/{id}/hit", h.Hit).Methods("POST")
	r.HandleFunc("/api/session/{id}/stand", h.Stand).Methods("POST")
	r.HandleFunc("/api/session/{id}/double", h.DoubleDown).Methods("POST")
	r.HandleFunc("/api/session/{id}/surrender", h.Surrender).Methods("POST")
	r.HandleFunc("/api/session/{id}/insurance", h.Insurance).Methods("POST")

	r.HandleFunc("/api/rules", h.GetRules).Methods("GET")

	// WebSocket endpoint
	r.HandleFunc("/ws", h.WebSocket)
}

// response helper function to send JSON responses
func response(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// error response helper function
func errorResponse(w http.ResponseWriter, status int, message string) {
	response(w, status, map[string]string{"error": message})
}

// statusFor maps an action error to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrInsufficientChips), errors.Is(err, game.ErrInvalidBet):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrIllegalAction):
		return http.StatusConflict
	case errors.Is(err, store.ErrSessionNotFound), errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// decode reads an optional JSON body; an empty body leaves v untouched
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (h *Handlers) session(w http.ResponseWriter, r *http.Request) (*game.Session, bool) {
	s, err := h.store.GetSession(mux.Vars(r)["id"])
	if err != nil {
		errorResponse(w, http.StatusNotFound, "Session not found")
		return nil, false
	}
	return s, true
}

// NewSession opens a session with a fresh chip balance
func (h *Handlers) NewSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}

	if err := decode(r, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" {
		req.Name = "Player"
	}

	s := game.NewSession(game.Options{
		Name:            req.Name,
		StartingBalance: h.settings.StartingBalance,
		Rules:           h.settings.Rules,
		NewDeck:         h.settings.NewDeck,
		Clock:           h.clock,
		Logger:          h.logger,
	})

	if err := h.store.SaveSession(s); err != nil {
		h.logger.Error("failed to save session", "err", err)
		errorResponse(w, http.StatusInternalServerError, "Failed to save session")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), archiveTimeout)
	defer cancel()
	err := h.archive.SaveSession(ctx, db.SessionInfo{
		ID:              s.ID,
		Name:            s.Name,
		StartingBalance: s.Balance(),
		CreatedAt:       s.CreatedAt,
	})
	if err != nil {
		// History is best effort; play goes on without it
		h.logger.Warn("failed to archive session", "session", s.ID, "err", err)
	}

	h.logger.Info("session opened", "session", s.ID, "name", s.Name, "balance", s.Balance())
	response(w, http.StatusCreated, s.View())
}

// GetSession returns the current view of a session
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	response(w, http.StatusOK, s.View())
}

// ListSessions returns the live sessions, oldest first
func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListSessions()
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Error retrieving sessions")
		return
	}

	views := make([]game.View, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, s.View())
	}
	response(w, http.StatusOK, views)
}

// CloseSession removes a live session. Its archived history is kept.
func (h *Handlers) CloseSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.store.DeleteSession(id); err != nil {
		errorResponse(w, statusFor(err), "Session not found")
		return
	}

	h.mu.Lock()
	if p, ok := h.pacers[id]; ok {
		p.Stop()
		delete(h.pacers, id)
	}
	h.mu.Unlock()

	h.logger.Info("session closed", "session", id)
	w.WriteHeader(http.StatusNoContent)
}

// GetLog returns the audit log, optionally only the entries after ?since=
func (h *Handlers) GetLog(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	since := 0
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errorResponse(w, http.StatusBadRequest, "Invalid since parameter")
			return
		}
		since = n
	}
	response(w, http.StatusOK, s.LogSince(since))
}

// GetHistory returns the archived rounds of a session
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rounds, err := h.archive.GetRounds(r.Context(), id)
	if err != nil {
		h.archiveError(w, id, err)
		return
	}
	response(w, http.StatusOK, rounds)
}

// GetStats returns aggregated statistics for a session
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	stats, err := h.archive.GetStats(r.Context(), id)
	if err != nil {
		h.archiveError(w, id, err)
		return
	}
	response(w, http.StatusOK, stats)
}

func (h *Handlers) archiveError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, db.ErrNotFound) {
		errorResponse(w, http.StatusNotFound, "No history for session")
		return
	}
	h.logger.Error("archive read failed", "session", id, "err", err)
	errorResponse(w, http.StatusInternalServerError, "Error retrieving history")
}

// GetRules returns the table limits
func (h *Handlers) GetRules(w http.ResponseWriter, r *http.Request) {
	response(w, http.StatusOK, map[string]any{
		"betUnit":         h.settings.Rules.BetUnit,
		"minBet":          h.settings.Rules.BetUnit,
		"maxBet":          h.settings.Rules.MaxBet,
		"startingBalance": h.settings.StartingBalance,
		"blackjackPays":   "3:2",
		"insurancePays":   "2:1",
		"dealerStandsOn":  game.DealerStandPoints,
		"revealDelayMs":   h.settings.RevealDelay.Milliseconds(),
	})
}

// StartRound clears a settled round
func (h *Handlers) StartRound(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, (*game.Session).StartRound)
}

// PlaceBet places the bet and deals
func (h *Handlers) PlaceBet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int `json:"amount"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.act(w, r, func(s *game.Session) (game.Result, error) {
		return s.PlaceBet(req.Amount)
	})
}

// Hit draws a card for the player
func (h *Handlers) Hit(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, (*game.Session).Hit)
}

// Stand ends the player's turn and plays the dealer
func (h *Handlers) Stand(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, (*game.Session).Stand)
}

// DoubleDown doubles the bet for one final card
func (h *Handlers) DoubleDown(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, (*game.Session).DoubleDown)
}

// Surrender gives up the hand for half the bet
func (h *Handlers) Surrender(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, (*game.Session).Surrender)
}

// Insurance takes or declines the insurance offer
func (h *Handlers) Insurance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Take *bool `json:"take"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Take == nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.act(w, r, func(s *game.Session) (game.Result, error) {
		return s.ResolveInsurance(*req.Take)
	})
}

// act runs an action against the session, archives a settled round and
// pushes the snapshots to connected clients
func (h *Handlers) act(w http.ResponseWriter, r *http.Request, action func(*game.Session) (game.Result, error)) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	res, err := action(s)

	if res.Summary != nil {
		h.archiveRound(r.Context(), s.ID, *res.Summary)
	}
	h.pacer(s.ID).Push(paced(s.ID, res)...)

	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("action failed", "session", s.ID, "err", err)
		} else {
			h.logger.Debug("action rejected", "session", s.ID, "err", err)
		}
		errorResponse(w, status, res.Message)
		return
	}

	response(w, http.StatusOK, map[string]any{
		"result":  res,
		"session": s.View(),
	})
}

func (h *Handlers) archiveRound(ctx context.Context, sessionID string, summary game.RoundSummary) {
	ctx, cancel := context.WithTimeout(ctx, archiveTimeout)
	defer cancel()

	if err := h.archive.SaveRound(ctx, sessionID, summary); err != nil {
		h.logger.Warn("failed to archive round", "session", sessionID, "round", summary.Number, "err", err)
	}
}

// paced lists the messages an action produces in delivery order. The settled
// summary goes last so clients see it after the final reveal.
func paced(sessionID string, res game.Result) []Message {
	msgs := make([]Message, 0, len(res.Snapshots)+1)
	for _, snap := range res.Snapshots {
		msgs = append(msgs, Message{Type: MessageSnapshot, SessionID: sessionID, Data: snap})
	}
	if res.Summary != nil {
		msgs = append(msgs, Message{Type: MessageSettled, SessionID: sessionID, Data: res.Summary})
	}
	return msgs
}

// pacer returns the message pacer for a session, creating it on first use
func (h *Handlers) pacer(sessionID string) *Pacer {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := h.pacers[sessionID]
	if !ok {
		p = NewPacer(h.clock, h.settings.RevealDelay, func(msg Message) {
			h.hub.BroadcastToSession(sessionID, msg)
		})
		h.pacers[sessionID] = p
	}
	return p
}

// WebSocket subscribes a client to a session's snapshot stream
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	s, err := h.store.GetSession(sessionID)
	if err != nil {
		errorResponse(w, http.StatusNotFound, "Session not found")
		return
	}

	h.hub.Serve(w, r, s.ID, Message{
		Type:      MessageWelcome,
		SessionID: s.ID,
		Data:      s.View(),
	})
}

// Shutdown drops any snapshots still waiting to be paced
func (h *Handlers) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, p := range h.pacers {
		p.Stop()
		delete(h.pacers, id)
	}
}
