package ws

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/avioline/flight-seat-reservation/internal/engine"
	"github.com/avioline/flight-seat-reservation/internal/hub"
	"github.com/avioline/flight-seat-reservation/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	opTimeout      = 10 * time.Second
)

// client is one websocket connection: its identity, its private outbound
// queue and its hub subscription.  Actions are dispatched sequentially
// from the read pump, so a single connection never races itself; cross-
// connection races are settled by the store.
type client struct {
	id    string
	sess  *model.Session
	conn  *websocket.Conn
	eng   *engine.Engine
	hub   *hub.Hub
	out   chan []byte   // receipts, errors, initial state
	bcast <-chan []byte // snapshots fanned out by the hub

	// base is the server-lifetime context.  Operations derive their
	// timeout from it, not from the connection: a dropped connection must
	// not roll back an in-flight transaction it initiated.
	base context.Context
}

// readPump consumes actions until the connection dies, then deregisters
// from the hub.
func (c *client) readPump() {
	defer func() {
		c.hub.Unsubscribe(c.id)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws: connection %s read error: %v", c.id, err)
			}
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("ws: connection %s sent malformed payload: %v", c.id, err)
			continue
		}
		c.dispatch(msg)
	}
}

// writePump moves outbound traffic onto the wire: the connection's own
// emits, hub broadcasts, and keepalive pings.  It exits when either
// source closes or a write fails.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.out:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(writeWait))
				return
			}
			if err := c.write(msg); err != nil {
				return
			}
		case msg, ok := <-c.bcast:
			if !ok {
				// Hub dropped us (shutdown or backpressure).
				_ = c.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(writeWait))
				return
			}
			if err := c.write(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) write(msg []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// dispatch runs one client action against the engine and queues the
// operation-specific reply.  Snapshot broadcasts are the engine's job;
// only receipts and errors flow through the private queue here.
func (c *client) dispatch(msg clientMessage) {
	ctx, cancel := context.WithTimeout(c.base, opTimeout)
	defer cancel()

	switch msg.Type {
	case actionHoldSeat:
		if err := c.eng.Hold(ctx, c.sess, msg.SeatID); err != nil {
			c.sendError(opHold, reasonFor(err))
		}
	case actionReleaseSeat:
		if err := c.eng.Release(ctx, c.sess, msg.SeatID); err != nil {
			c.sendError(opRelease, reasonFor(err))
		}
	case actionConfirm:
		receipt, err := c.eng.Confirm(ctx, c.sess, msg.Seats, msg.PaymentMethod, msg.Buyer)
		if err != nil {
			c.sendError(opConfirm, reasonFor(err))
			return
		}
		c.send(receiptMessage{Type: emitReceipt, Receipt: receipt})
	case actionResetSeats:
		if err := c.eng.Reset(ctx, c.sess); err != nil {
			c.sendError(opReset, reasonFor(err))
		}
	default:
		log.Printf("ws: connection %s sent unknown action %q", c.id, msg.Type)
	}
}

func (c *client) send(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("ws: marshal emit failed: %v", err)
		return
	}
	select {
	case c.out <- data:
	default:
		// Private queue full means the peer stopped reading; the write
		// pump will notice soon enough.  Dropping beats blocking the
		// read loop.
		log.Printf("ws: connection %s outbound queue full, dropping emit", c.id)
	}
}

func (c *client) sendError(op, reason string) {
	c.send(errorMessage{Type: emitActionError, Action: op, Reason: reason})
}
