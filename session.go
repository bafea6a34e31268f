/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Each browser gets a player cookie, and each cookie gets one game session
// Sessions outlive individual connections, so reloading the page (or opening
// a second tab) picks up the same round, score and preferences
// The browser only renders what the session sends it:
// - Starting a round broadcasts "loading", then either "round" or "error"
// - The first "select" of a round broadcasts "result" and "stats"; later
//   ones are dropped
// - Theme, unit and welcome-dialog choices are written to the preference store

package main

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/Seednode/weathrguessr/cities"
	"github.com/Seednode/weathrguessr/game"
	"github.com/Seednode/weathrguessr/prefs"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// Messages coming from clients
type ClientMessage struct {
	Type   string `json:"type"`             // "next_round", "select", "new_game", "toggle_unit", "toggle_theme", "dismiss_welcome", "share", "api_status"
	Choice *int   `json:"choice,omitempty"` // select
}

// SessionInfoMessage is sent immediately on connect.
type SessionInfoMessage struct {
	Type        string `json:"type"` // "session_info"
	Theme       string `json:"theme"`
	Metric      bool   `json:"metric"`
	ShowWelcome bool   `json:"show_welcome"`
}

// LoadingMessage tells clients a round is being fetched.
type LoadingMessage struct {
	Type string `json:"type"` // "loading"
	City string `json:"city"`
}

type ChoiceView struct {
	High string `json:"high"`
	Low  string `json:"low"`
}

// RoundMessage carries everything needed to render a question. It never
// says which choice is correct.
type RoundMessage struct {
	Type     string       `json:"type"` // "round"
	ID       string       `json:"id"`
	City     string       `json:"city"`
	Country  string       `json:"country"`
	ImageURL string       `json:"image_url"`
	Answered bool         `json:"answered"`
	Choices  []ChoiceView `json:"choices"`
}

// ResultMessage reports the outcome of the round's first selection.
type ResultMessage struct {
	Type         string `json:"type"` // "result"
	Correct      bool   `json:"correct"`
	Selected     int    `json:"selected"`
	CorrectIndex int    `json:"correct_index"`
	Message      string `json:"message"`
}

type StatsMessage struct {
	Type     string `json:"type"` // "stats"
	Round    int    `json:"round"`
	Correct  int    `json:"correct"`
	Accuracy int    `json:"accuracy"`
	Streak   int    `json:"streak"`
	Metric   bool   `json:"metric"`
}

// ThemeMessage follows a theme toggle.
type ThemeMessage struct {
	Type  string `json:"type"` // "theme"
	Theme string `json:"theme"`
}

// ShareMessage holds the text a player can paste elsewhere.
type ShareMessage struct {
	Type string `json:"type"` // "share"
	Text string `json:"text"`
}

// SimpleMessage is for plain notifications ("error").
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type command struct {
	client *Client
	msg    ClientMessage
}

// Session is one player's game, shared by every connection carrying the
// same player cookie.
type Session struct {
	id     string
	cfg    *Config
	store  prefs.Store
	ctrl   *game.Controller
	status *statusChecker

	clients  map[*Client]bool
	register chan *Client
	unreg    chan *Client
	commands chan command
	done     chan struct{}

	mu         sync.RWMutex
	prefs      prefs.Preferences
	started    bool
	failed     bool
	lastActive time.Time
}

func newSession(cfg *Config, id string, store prefs.Store, p prefs.Preferences, ctrl *game.Controller, status *statusChecker) *Session {
	return &Session{
		id:         id,
		cfg:        cfg,
		store:      store,
		ctrl:       ctrl,
		status:     status,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		commands:   make(chan command),
		done:       make(chan struct{}),
		prefs:      p,
		lastActive: time.Now(),
	}
}

func (s *Session) run() {
	for {
		select {
		case c := <-s.register:
			s.mu.Lock()
			s.lastActive = time.Now()
			s.clients[c] = true

			c.send <- SessionInfoMessage{
				Type:        "session_info",
				Theme:       s.prefs.Theme,
				Metric:      s.ctrl.Stats().Metric,
				ShowWelcome: !s.prefs.Visited,
			}
			c.send <- statsMessage(s.ctrl.Stats())

			first := !s.started
			s.started = true

			round := s.ctrl.Current()
			switch {
			case first:
			case s.failed:
				c.send <- SimpleMessage{Type: "error", Message: roundFailed}
			case round.State == game.Loading:
				c.send <- LoadingMessage{Type: "loading"}
			default:
				c.send <- roundMessage(round, s.ctrl.Stats().Metric)
			}
			s.mu.Unlock()

			if first {
				go s.startRound((*game.Controller).StartRound)
			}

		case c := <-s.unreg:
			s.mu.Lock()
			s.lastActive = time.Now()

			if _, ok := s.clients[c]; ok {
				delete(s.clients, c)
				close(c.send)
			}
			s.mu.Unlock()

		case cmd := <-s.commands:
			s.handle(cmd)

		case <-s.done:
			return
		}
	}
}

func (s *Session) handle(cmd command) {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()

	switch cmd.msg.Type {
	case "next_round":
		go s.startRound((*game.Controller).StartRound)

	case "new_game":
		go s.startRound((*game.Controller).NewGame)

	case "toggle_unit":
		go func() {
			s.startRound((*game.Controller).ToggleUnit)
			s.savePrefs(func(p prefs.Preferences) prefs.Preferences {
				p.Metric = s.ctrl.Stats().Metric
				return p
			})
		}()

	case "select":
		if cmd.msg.Choice == nil {
			return
		}
		s.handleSelect(*cmd.msg.Choice)

	case "toggle_theme":
		p := s.savePrefs(prefs.Preferences.ToggleTheme)

		s.mu.Lock()
		s.broadcastLocked(ThemeMessage{Type: "theme", Theme: p.Theme})
		s.mu.Unlock()

	case "dismiss_welcome":
		s.savePrefs(func(p prefs.Preferences) prefs.Preferences {
			p.Visited = true
			return p
		})

	case "share":
		s.sendTo(cmd.client, ShareMessage{
			Type: "share",
			Text: shareText(s.ctrl.Stats(), s.cfg.publicURL),
		})

	case "api_status":
		if s.status == nil {
			return
		}

		go func() {
			s.sendTo(cmd.client, s.status.check(context.Background()))
		}()
	}
}

// startRound runs one of the controller's round-starting methods and tells
// every connected client how it went.
func (s *Session) startRound(start func(*game.Controller, context.Context) (game.Round, error)) {
	s.mu.Lock()
	s.failed = false
	s.broadcastLocked(LoadingMessage{Type: "loading"})
	s.mu.Unlock()

	round, err := start(s.ctrl, context.Background())
	if errors.Is(err, game.ErrSuperseded) {
		return
	}

	stats := s.ctrl.Stats()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.broadcastLocked(statsMessage(stats))

	s.failed = err != nil
	if err != nil {
		logf(s.cfg, "GAMES: Round for session %s failed: %v", s.id, err)

		s.broadcastLocked(SimpleMessage{Type: "error", Message: roundFailed})

		return
	}

	logf(s.cfg, "GAMES: Round %s for session %s is %s (%d°C / %d°C)",
		round.ID, s.id, round.City, round.Truth.High, round.Truth.Low)

	s.broadcastLocked(roundMessage(round, stats.Metric))
}

func (s *Session) handleSelect(index int) {
	out, ok := s.ctrl.Submit(index)
	if !ok {
		return
	}

	msg := ResultMessage{
		Type:         "result",
		Correct:      out.Correct,
		Selected:     out.Selected,
		CorrectIndex: out.CorrectIndex,
		Message:      "🎉 Correct! Great guess!",
	}
	if !out.Correct {
		msg.Message = "❌ Incorrect. The correct answer was " + game.FormatPair(out.Truth, out.Stats.Metric)
	}

	logf(s.cfg, "GAMES: Session %s answered %d (correct: %t, streak: %d)",
		s.id, out.Selected, out.Correct, out.Stats.Streak)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.broadcastLocked(msg)
	s.broadcastLocked(statsMessage(out.Stats))
}

// savePrefs applies change to the session's preferences and persists them.
// Storage failures are logged; the in-memory copy still changes.
func (s *Session) savePrefs(change func(prefs.Preferences) prefs.Preferences) prefs.Preferences {
	s.mu.Lock()
	s.prefs = change(s.prefs)
	p := s.prefs
	s.mu.Unlock()

	if err := s.store.Save(context.Background(), s.id, p); err != nil {
		logf(s.cfg, "PREFS: Saving preferences for %s failed: %v", s.id, err)
	}

	return p
}

// broadcastLocked assumes s.mu is already held.
func (s *Session) broadcastLocked(msg any) {
	for client := range s.clients {
		select {
		case client.send <- msg:
		default:
			delete(s.clients, client)
			close(client.send)
		}
	}
}

func (s *Session) sendTo(c *Client, msg any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.clients[c] {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(s.clients, c)
		close(c.send)
	}
}

// closeAll disconnects all clients of this session and stops its loop
// (used by reaper).
func (s *Session) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(s.clients, c)
	}

	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func roundMessage(r game.Round, metric bool) RoundMessage {
	msg := RoundMessage{
		Type:     "round",
		ID:       r.ID,
		City:     r.City.Name,
		Country:  r.City.Country,
		ImageURL: r.ImageURL,
		Answered: r.State == game.Answered,
		Choices:  make([]ChoiceView, 0, len(r.Choices)),
	}

	for _, c := range r.Choices {
		msg.Choices = append(msg.Choices, ChoiceView{
			High: game.FormatTemperature(c.Pair.High, metric),
			Low:  game.FormatTemperature(c.Pair.Low, metric),
		})
	}

	return msg
}

func statsMessage(s game.Stats) StatsMessage {
	return StatsMessage{
		Type:     "stats",
		Round:    s.Round,
		Correct:  s.Correct,
		Accuracy: s.Accuracy(),
		Streak:   s.Streak,
		Metric:   s.Metric,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const playerCookieName = "weathrguessr_id"

func playerCookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// getOrSetPlayerID returns the player ID from the request cookie, issuing
// a fresh one when the cookie is missing or malformed.
func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(playerCookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value, nil
		}
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}

	http.SetCookie(w, playerCookie(id.String()))

	return id.String(), nil
}

// SessionManager holds a session per player ID.
type SessionManager struct {
	cfg      *Config
	store    prefs.Store
	weather  game.Forecaster
	images   game.ImageFinder
	catalog  []cities.City
	status   *statusChecker
	mu       sync.Mutex
	sessions map[string]*Session
	stop     chan struct{}
}

func newSessionManager(cfg *Config, store prefs.Store, weather game.Forecaster, images game.ImageFinder, catalog []cities.City, status *statusChecker) *SessionManager {
	sm := &SessionManager{
		cfg:      cfg,
		store:    store,
		weather:  weather,
		images:   images,
		catalog:  catalog,
		status:   status,
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
	}

	if cfg.sessionTimeout > 0 {
		go sm.reaperLoop(cfg.sessionTimeout)
	}

	return sm
}

func (sm *SessionManager) getSession(ctx context.Context, playerID string) (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if s, ok := sm.sessions[playerID]; ok {
		return s, nil
	}

	p, err := sm.store.Load(ctx, playerID)
	if err != nil {
		return nil, err
	}

	ctrl, err := game.NewController(game.Options{
		Forecasts: sm.weather,
		Images:    sm.images,
		Catalog:   sm.catalog,
		Timeout:   sm.cfg.fetchTimeout,
		Metric:    p.Metric,
	})
	if err != nil {
		return nil, err
	}

	s := newSession(sm.cfg, playerID, sm.store, p, ctrl, sm.status)
	sm.sessions[playerID] = s
	go s.run()

	logf(sm.cfg, "GAMES: Created session %s", playerID)

	return s, nil
}

// reaperLoop periodically removes sessions that have been idle longer than
// idleTimeout.
func (sm *SessionManager) reaperLoop(idleTimeout time.Duration) {
	ticker := time.NewTicker(idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sm.reap(time.Now().Add(-idleTimeout))
		case <-sm.stop:
			return
		}
	}
}

func (sm *SessionManager) reap(cutoff time.Time) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	reaped := 0
	for id, s := range sm.sessions {
		s.mu.RLock()
		last := s.lastActive
		active := len(s.clients)
		s.mu.RUnlock()

		if active == 0 && last.Before(cutoff) {
			delete(sm.sessions, id)
			go s.closeAll()
			reaped++

			logf(sm.cfg, "GAMES: Reaped idle session %s", id)
		}
	}

	return reaped
}

// Close ends every session and stops the reaper.
func (sm *SessionManager) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	select {
	case <-sm.stop:
		return
	default:
		close(sm.stop)
	}

	for id, s := range sm.sessions {
		delete(sm.sessions, id)
		s.closeAll()
	}
}

func serveSession(cfg *Config, sm *SessionManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var header http.Header

		playerID := ""
		if c, err := r.Cookie(playerCookieName); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				playerID = c.Value
			}
		}
		if playerID == "" {
			playerID = uuid.NewString()
			header = http.Header{"Set-Cookie": {playerCookie(playerID).String()}}
		}

		s, err := sm.getSession(r.Context(), playerID)
		if err != nil {
			errorf("creating session for %s: %v", realIP(r), err)
			http.Error(w, "unable to start session", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, header)
		if err != nil {
			logf(cfg, "ERROR: Upgrade for %s failed: %v", realIP(r), err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 16),
			playerID: playerID,
		}

		select {
		case s.register <- client:
		case <-s.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(s)
	}
}

func (c *Client) readPump(s *Session) {
	defer func() {
		select {
		case s.unreg <- c:
		case <-s.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		select {
		case s.commands <- command{client: c, msg: msg}:
		case <-s.done:
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
