package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wolfman30/leadcrm/internal/auth"
	"github.com/wolfman30/leadcrm/pkg/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
)

// EventClientLeadUpdated is the only client frame that is re-broadcast.
const EventClientLeadUpdated = "lead-updated"

// TokenVerifier validates the handshake credential.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// Gateway upgrades verified requests to websocket sessions joined to the
// leads channel.
type Gateway struct {
	hub      *Hub
	verifier TokenVerifier
	origins  map[string]struct{}
	upgrader websocket.Upgrader
	buffer   int
	logger   *logging.Logger
}

// NewGateway creates the websocket endpoint. An empty origins list accepts
// any origin.
func NewGateway(hub *Hub, verifier TokenVerifier, origins []string, logger *logging.Logger) *Gateway {
	if logger == nil {
		logger = logging.Default()
	}
	g := &Gateway{
		hub:      hub,
		verifier: verifier,
		origins:  make(map[string]struct{}, len(origins)),
		buffer:   DefaultBuffer,
		logger:   logger,
	}
	for _, o := range origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			g.origins[o] = struct{}{}
		}
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     g.checkOrigin,
	}
	return g
}

func (g *Gateway) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(g.origins) == 0 {
		return true
	}
	_, ok := g.origins[origin]
	return ok
}

// ServeHTTP verifies the token from ?token= or the Authorization header and
// refuses the handshake with 401 on failure.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		token = auth.BearerToken(r.Header.Get("Authorization"))
	}
	if token == "" {
		writeError(w, http.StatusUnauthorized, "access token required")
		return
	}
	identity, err := g.verifier.Verify(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", "user_id", identity.UserID, "error", err)
		return
	}

	sub := g.hub.Join(LeadsChannel, g.buffer)
	log := g.logger.With("user_id", identity.UserID)
	log.Info("realtime session joined", "channel", LeadsChannel)

	done := make(chan struct{})
	go g.writeLoop(conn, sub, done)
	g.readLoop(r.Context(), conn, sub, log)

	g.hub.Leave(sub)
	<-done
	_ = conn.Close()
	log.Info("realtime session left", "channel", LeadsChannel)
}

type clientFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, sub *Subscription, log *logging.Logger) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("realtime read ended", "error", err)
			}
			return
		}
		switch frame.Event {
		case EventClientLeadUpdated:
			if len(frame.Data) == 0 {
				continue
			}
			g.hub.Broadcast(ctx, sub.Channel(), Event{Name: frame.Event, Data: frame.Data}, sub)
		default:
			log.Debug("realtime frame ignored", "event", frame.Event)
		}
	}
}

// writeLoop is the only writer on conn. It exits when the subscription's
// stream is closed or a write fails.
func (g *Gateway) writeLoop(conn *websocket.Conn, sub *Subscription, done chan<- struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(done)
	}()

	for {
		select {
		case ev, ok := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				// Unblock the reader so the session is torn down.
				_ = conn.Close()
				drain(sub)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				drain(sub)
				return
			}
		}
	}
}

// drain discards events until Leave closes the stream.
func drain(sub *Subscription) {
	for range sub.Events() {
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
