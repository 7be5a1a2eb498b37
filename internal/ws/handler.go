// Package ws is the realtime transport: it upgrades HTTP connections to
// websockets, attaches the verified session from the handshake token,
// and speaks the action/emit protocol with clients.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/avioline/flight-seat-reservation/internal/engine"
	"github.com/avioline/flight-seat-reservation/internal/hub"
	"github.com/avioline/flight-seat-reservation/internal/model"
	"github.com/avioline/flight-seat-reservation/internal/utils"
)

// The browser client is served from anywhere during development, so the
// upgrader accepts any origin, same as the legacy server's CORS policy.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler owns websocket endpoint dependencies.
type Handler struct {
	Engine *engine.Engine
	Hub    *hub.Hub
	Secret string

	// Base is the server-lifetime context handed to every operation a
	// connection initiates.
	Base context.Context
}

// NewHandler constructs a websocket Handler.
func NewHandler(base context.Context, eng *engine.Engine, h *hub.Hub, secret string) *Handler {
	return &Handler{Engine: eng, Hub: h, Secret: secret, Base: base}
}

// Serve handles GET /ws.  The handshake may carry a JWT in the `token`
// query parameter or an Authorization header; an absent or invalid token
// simply yields an anonymous session — holds and releases do not require
// identity, and confirm/reset enforce theirs in the engine.
func (h *Handler) Serve(c echo.Context) error {
	sess := h.sessionFromRequest(c)

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	cl := &client{
		id:   uuid.NewString(),
		sess: sess,
		conn: conn,
		eng:  h.Engine,
		hub:  h.Hub,
		out:  make(chan []byte, sendQueue),
		base: h.Base,
	}
	cl.bcast = h.Hub.Subscribe(cl.id)

	who := "anonymous"
	if sess != nil {
		who = sess.Username
	}
	log.Printf("ws: connected %s user=%s", cl.id, who)

	// Every new connection gets the current snapshot before anything
	// else, so the client can render without a separate HTTP round trip.
	if snap, err := h.Engine.Snapshot(h.Base); err == nil {
		if data, err := json.Marshal(stateMessage{Type: emitState, Flight: snap.Flight, Seats: snap.Seats}); err == nil {
			cl.out <- data
		}
	} else {
		log.Printf("ws: initial snapshot for %s failed: %v", cl.id, err)
	}

	go cl.writePump()
	go cl.readPump()
	return nil
}

// sessionFromRequest extracts and verifies the handshake token.  Returns
// nil for anonymous connections; the engine treats nil as "no identity".
func (h *Handler) sessionFromRequest(c echo.Context) *model.Session {
	raw := c.QueryParam("token")
	if raw == "" {
		auth := c.Request().Header.Get("Authorization")
		if strings.HasPrefix(auth, "Bearer ") {
			raw = strings.TrimPrefix(auth, "Bearer ")
		}
	}
	if raw == "" {
		return nil
	}
	sess, err := utils.ParseAccessToken(h.Secret, raw)
	if err != nil {
		// Invalid token degrades to anonymous rather than refusing the
		// connection; the seat map is public.
		return nil
	}
	return sess
}

// sendQueue is the private outbound buffer per connection.
const sendQueue = 16
