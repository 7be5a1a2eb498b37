package ws

import (
	"encoding/json"
	"log"

	"github.com/avioline/flight-seat-reservation/internal/engine"
	"github.com/avioline/flight-seat-reservation/internal/hub"
)

// StateBroadcaster adapts the hub to the engine's Broadcaster interface:
// it owns the wire encoding of the snapshot so the engine never learns
// about the websocket protocol.
type StateBroadcaster struct {
	Hub *hub.Hub
}

// BroadcastState marshals the snapshot into a state emit and fans it out.
func (b StateBroadcaster) BroadcastState(snap engine.Snapshot) {
	data, err := json.Marshal(stateMessage{Type: emitState, Flight: snap.Flight, Seats: snap.Seats})
	if err != nil {
		log.Printf("ws: marshal state broadcast failed: %v", err)
		return
	}
	b.Hub.Broadcast(data)
}
