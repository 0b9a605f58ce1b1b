// Hva hvis ("what would you do if...")
//
// The host creates a session identified by a 4-digit pin, friends join by
// pin, and everyone submits question/answer pairs. When the host ends the
// round, questions and answers are deranged and recombined so nobody's
// question is read with its own answer, and the reveal is pushed to all
// connected players. The host can start a new round on the same pin.
//
// Features:
// - WebSockets per session: /g/:pin and /g/:pin/ws
// - First player to join a fresh pin becomes the host
// - Host-only round commands, checked server-side
// - Players identified by cookie (uuid), stable across reloads
// - Per-player question quota, checked server-side
// - Sessions auto-reaped after configurable idle timeout
// - Pin collisions checked at creation
// - In-browser QR button to share the current session, backed by go-qrcode

package main

import (
	_ "embed"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Messages coming from clients
type ClientMessage struct {
	Type     string `json:"type"`               // "join", "submit_question", "end_round", "new_round"
	Name     string `json:"name,omitempty"`     // join
	Question string `json:"question,omitempty"` // submit_question
	Answer   string `json:"answer,omitempty"`   // submit_question
}

// SessionInfoMessage is sent immediately on connect so the client knows
// who it is and whether it already joined under this cookie.
type SessionInfoMessage struct {
	Type   string `json:"type"` // "session_info"
	Pin    string `json:"pin"`
	UID    string `json:"uid"`
	Joined bool   `json:"joined"`
	IsHost bool   `json:"is_host"`
	Name   string `json:"name,omitempty"`
	Quota  int    `json:"quota"`
}

// ParticipantState is one row of the lobby list.
type ParticipantState struct {
	Name     string `json:"name"`
	Finished bool   `json:"finished"`
}

// GameStateMessage broadcasts the shared session state to every client.
// Scrambled is only populated once the round is over.
type GameStateMessage struct {
	Type         string             `json:"type"` // "game_state"
	Status       string             `json:"status,omitempty"`
	HostName     string             `json:"host_name,omitempty"`
	Participants []ParticipantState `json:"participants,omitempty"`
	Submitted    int                `json:"submitted"`
	Finished     int                `json:"finished"`
	Complete     bool               `json:"complete"`
	Scrambled    []Question         `json:"scrambled,omitempty"`
}

// OwnQuestionsMessage carries a single player's own submissions; each
// player only ever sees their own until the reveal.
type OwnQuestionsMessage struct {
	Type      string     `json:"type"` // "your_questions"
	Questions []Question `json:"questions"`
}

// ErrorMessage is sent to the offending client only.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type action struct {
	client *Client
	msg    ClientMessage
}

type Hub struct {
	pin     string
	clients map[*Client]bool

	// game is nil until the first join creates it; that player is host.
	game  *Game
	quota int
	rng   *rand.Rand

	register chan *Client
	unreg    chan *Client
	actions  chan action

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time
}

func newHub(cfg *Config, pin string) *Hub {
	now := time.Now()

	seed, err := newSeed()
	if err != nil {
		logf(cfg, "GAMES: seeding from clock for %s: %v", pin, err)
		seed = now.UnixNano()
	}

	return &Hub{
		pin:        pin,
		clients:    make(map[*Client]bool),
		quota:      cfg.questionsPerPlayer,
		rng:        rand.New(rand.NewSource(seed)),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		actions:    make(chan action),
		createdAt:  now,
		lastActive: now,
	}
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.clients[c] = true

			joined := false
			name := ""
			isHost := false
			if h.game != nil {
				for _, p := range h.game.Participants {
					if p.UID == c.playerID {
						joined = true
						name = p.Name
						break
					}
				}
				isHost = h.game.Host.UID == c.playerID
			}

			c.send <- SessionInfoMessage{
				Type:   "session_info",
				Pin:    h.pin,
				UID:    c.playerID,
				Joined: joined,
				IsHost: isHost,
				Name:   name,
				Quota:  h.quota,
			}

			c.send <- h.stateLocked()
			if joined {
				c.send <- OwnQuestionsMessage{
					Type:      "your_questions",
					Questions: h.game.QuestionsBy(c.playerID),
				}
			}
			h.mu.Unlock()

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()

			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

			// Disconnecting only stops the live feed; participants are
			// never removed from the session.

		case a := <-h.actions:
			switch a.msg.Type {
			case "join":
				h.handleJoin(cfg, a)
			case "submit_question":
				h.handleSubmit(cfg, a)
			case "end_round", "new_round":
				h.handleRound(cfg, a)
			}
		}
	}
}

// stateLocked builds the shared game_state snapshot. h.mu must be held.
func (h *Hub) stateLocked() GameStateMessage {
	if h.game == nil {
		return GameStateMessage{Type: "game_state"}
	}

	participants := make([]ParticipantState, 0, len(h.game.Participants))
	for _, p := range h.game.Participants {
		participants = append(participants, ParticipantState{
			Name:     p.Name,
			Finished: h.game.QuestionCount(p.UID) >= h.quota,
		})
	}

	return GameStateMessage{
		Type:         "game_state",
		Status:       h.game.Status,
		HostName:     h.game.Host.Name,
		Participants: participants,
		Submitted:    len(h.game.Questions),
		Finished:     h.game.FinishedPlayers(h.quota),
		Complete:     h.game.Complete(h.quota),
		Scrambled:    h.game.ScrambledQuestions,
	}
}

// sendLocked delivers a message to one client, dropping the client if its
// buffer is full. Clients already dropped are skipped, since their send
// channel is closed. h.mu must be held.
func (h *Hub) sendLocked(c *Client, msg any) {
	if !h.clients[c] {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

// broadcastStateLocked pushes the current snapshot to every client.
// h.mu must be held.
func (h *Hub) broadcastStateLocked() {
	msg := h.stateLocked()
	for client := range h.clients {
		h.sendLocked(client, msg)
	}
}

// handleJoin processes "join" messages. The first join on a fresh pin
// creates the session with that player as host.
func (h *Hub) handleJoin(cfg *Config, a action) {
	c := a.client
	name := strings.TrimSpace(a.msg.Name)

	if c.playerID == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	if name == "" {
		h.sendLocked(c, ErrorMessage{Type: "error", Message: "Please enter a name."})
		return
	}

	player := Player{UID: c.playerID, Name: name}

	switch {
	case h.game == nil:
		h.game = NewGame(player)
		logf(cfg, "GAMES: Player %q hosts %s", name, h.pin)
	default:
		h.game.Rename(player.UID, player.Name)
		if h.game.Join(player) {
			logf(cfg, "GAMES: Player %q joined %s", name, h.pin)
		}
	}

	h.sendLocked(c, SessionInfoMessage{
		Type:   "session_info",
		Pin:    h.pin,
		UID:    c.playerID,
		Joined: true,
		IsHost: h.game.Host.UID == c.playerID,
		Name:   name,
		Quota:  h.quota,
	})
	h.sendLocked(c, OwnQuestionsMessage{
		Type:      "your_questions",
		Questions: h.game.QuestionsBy(c.playerID),
	})
	h.broadcastStateLocked()
}

// handleSubmit processes "submit_question" messages.
func (h *Hub) handleSubmit(cfg *Config, a action) {
	c := a.client

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	author, ok := h.participantLocked(c.playerID)
	if !ok {
		h.sendLocked(c, ErrorMessage{Type: "error", Message: "Join the session before submitting questions."})
		return
	}

	_, err := h.game.AddQuestion(author, strings.TrimSpace(a.msg.Question), strings.TrimSpace(a.msg.Answer), h.quota)
	if err != nil {
		h.sendLocked(c, ErrorMessage{Type: "error", Message: err.Error()})
		return
	}

	logf(cfg, "GAMES: Player %q submitted question %d/%d in %s",
		author.Name, h.game.QuestionCount(author.UID), h.quota, h.pin)

	for client := range h.clients {
		if client.playerID == c.playerID {
			h.sendLocked(client, OwnQuestionsMessage{
				Type:      "your_questions",
				Questions: h.game.QuestionsBy(c.playerID),
			})
		}
	}
	h.broadcastStateLocked()
}

// handleRound processes the host-only "end_round" and "new_round"
// commands.
func (h *Hub) handleRound(cfg *Config, a action) {
	c := a.client

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	player, ok := h.participantLocked(c.playerID)
	if !ok {
		h.sendLocked(c, ErrorMessage{Type: "error", Message: ErrNotHost.Error()})
		return
	}

	var err error
	switch a.msg.Type {
	case "end_round":
		err = h.game.EndRound(player, h.rng)
	case "new_round":
		err = h.game.StartNewRound(player)
	}
	if err != nil {
		h.sendLocked(c, ErrorMessage{Type: "error", Message: err.Error()})
		return
	}

	logf(cfg, "GAMES: Player %q ran %s in %s", player.Name, a.msg.Type, h.pin)

	if a.msg.Type == "new_round" {
		// Everyone starts the round with a clean sheet.
		for client := range h.clients {
			h.sendLocked(client, OwnQuestionsMessage{Type: "your_questions"})
		}
	}
	h.broadcastStateLocked()
}

// participantLocked resolves a playerID to its participant entry.
// h.mu must be held.
func (h *Hub) participantLocked(uid string) (Player, bool) {
	if h.game == nil {
		return Player{}, false
	}
	for _, p := range h.game.Participants {
		if p.UID == uid {
			return p, true
		}
	}
	return Player{}, false
}

// closeAll disconnects all clients of this hub (used by reaper).
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "hvahvis_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// GameManager holds the live hubs keyed by pin. Unlike a lookup table
// that springs sessions into existence, pins must be reserved through
// create; unknown pins are NotFound.
type GameManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
}

func newGameManager(idleTimeout time.Duration) *GameManager {
	gm := &GameManager{
		hubs:        make(map[string]*Hub),
		idleTimeout: idleTimeout,
	}
	if idleTimeout > 0 {
		go gm.reaperLoop()
	}
	return gm
}

// create reserves a fresh pin and starts its hub. Random candidates are
// checked against live sessions; once the space gets crowded a sequential
// scan finds whatever is left.
func (gm *GameManager) create(cfg *Config) (string, error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	pin := ""
	for i := 0; i < 100; i++ {
		candidate := randomPin()
		if _, taken := gm.hubs[candidate]; !taken {
			pin = candidate
			break
		}
	}

	if pin == "" {
		for i := 0; i < 10000; i++ {
			candidate := fmtPin(i)
			if _, taken := gm.hubs[candidate]; !taken {
				pin = candidate
				break
			}
		}
	}

	if pin == "" {
		return "", ErrPinSpaceFull
	}

	hub := newHub(cfg, pin)
	gm.hubs[pin] = hub
	go hub.run(cfg)

	return pin, nil
}

// lookup returns the hub for a pin, if the pin is live.
func (gm *GameManager) lookup(pin string) (*Hub, bool) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	hub, ok := gm.hubs[pin]
	return hub, ok
}

// reaperLoop periodically removes hubs that have been idle longer than
// idleTimeout.
func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-gm.idleTimeout)

		gm.mu.Lock()
		for pin, hub := range gm.hubs {
			hub.mu.RLock()
			last := hub.lastActive
			hub.mu.RUnlock()

			if last.Before(cutoff) {
				delete(gm.hubs, pin)
				go hub.closeAll()
			}
		}
		gm.mu.Unlock()
	}
}

// WebSocket handler that picks the hub based on :pin
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		pin := ps.ByName("pin")

		hub, ok := gm.lookup(pin)
		if !ok {
			http.Error(w, ErrGameNotFound.Error(), http.StatusNotFound)
			return
		}

		playerID := getOrSetPlayerID(w, r)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "ERROR: upgrade: %v", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 8),
			playerID: playerID,
		}

		hub.register <- client

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unreg <- c
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "join", "submit_question", "end_round", "new_round":
			h.actions <- action{
				client: c,
				msg:    msg,
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current session URL using
// go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	pin := ps.ByName("pin")
	if pin == "" {
		http.Error(w, "missing pin", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /g/:pin/qr; strip trailing "/qr" to get the session URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// ---- Static file paths ----

//go:embed whatif/index.html
var gameHTML []byte

//go:embed whatif/home.html
var homeHTML []byte

func getGameHandler(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if _, ok := gm.lookup(ps.ByName("pin")); !ok {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			securityHeaders(cfg, w)
			w.WriteHeader(http.StatusNotFound)

			_, _ = w.Write([]byte(newPage("Not Found", "That session does not exist. It may have ended.")))
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		_, _ = w.Write(gameHTML)
	}
}

func getHomeHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		_, _ = w.Write(homeHTML)
	}
}

// newGameRedirect handles GET /g by reserving a fresh pin and redirecting
// to /g/:pin.
func newGameRedirect(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		pin, err := gm.create(cfg)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		logf(cfg, "GAMES: Created game %s/%s", path, pin)
		http.Redirect(w, r, path+"/"+pin, http.StatusTemporaryRedirect)
	}
}

// registerWhatIfGame sets up routes so that:
//   - $path            → reserves a fresh pin, redirects to $path/:pin
//   - $path/:pin       → HTML client (404 for unknown pins)
//   - $path/:pin/ws    → WebSocket for that session
//   - $path/:pin/qr    → PNG QR code for that session URL
func registerWhatIfGame(cfg *Config, path string, mux *httprouter.Router) {
	gm := newGameManager(cfg.sessionTimeout)

	// Root path → reserve a pin and redirect
	mux.GET(cfg.prefix+path, newGameRedirect(cfg, cfg.prefix+path, gm))

	// Per-session client view (HTML)
	mux.GET(cfg.prefix+path+"/:pin", getGameHandler(cfg, gm))

	// Per-session websocket
	mux.GET(cfg.prefix+path+"/:pin/ws", serveWSForManager(cfg, gm))

	// Per-session QR code
	mux.GET(cfg.prefix+path+"/:pin/qr", qrHandler)
}
