// Package hub implements the publish-subscribe registry behind the
// snapshot broadcast.  Subscribers register on connect and deregister on
// disconnect; the subscriber set is owned by the hub's Run loop, not by
// ambient global state, so there is exactly one place connections can
// appear or vanish.
package hub

import "context"

// sendBuffer is the per-subscriber outbound queue.  A subscriber that
// falls this far behind is dropped rather than allowed to stall the
// broadcast loop.
const sendBuffer = 16

type subscription struct {
	id string
	ch chan []byte
}

// Hub fans messages out to every registered subscriber.  All bookkeeping
// happens inside Run, so no mutex guards the subscriber map.
type Hub struct {
	register   chan subscription
	unregister chan string
	broadcast  chan []byte
	done       chan struct{}
	subs       map[string]chan []byte
}

// New constructs a Hub.  Call Run before subscribing.
func New() *Hub {
	return &Hub{
		register:   make(chan subscription),
		unregister: make(chan string),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		subs:       make(map[string]chan []byte),
	}
}

// Run services registrations and broadcasts until ctx is cancelled.  On
// shutdown every subscriber channel is closed so write pumps unwind.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for id, ch := range h.subs {
				close(ch)
				delete(h.subs, id)
			}
			return
		case sub := <-h.register:
			h.subs[sub.id] = sub.ch
		case id := <-h.unregister:
			if ch, ok := h.subs[id]; ok {
				close(ch)
				delete(h.subs, id)
			}
		case msg := <-h.broadcast:
			for id, ch := range h.subs {
				select {
				case ch <- msg:
				default:
					// Subscriber too slow; drop it so one dead
					// connection cannot back up everyone else.
					close(ch)
					delete(h.subs, id)
				}
			}
		}
	}
}

// Subscribe registers a subscriber and returns its receive channel.  The
// channel is closed by the hub on Unsubscribe, on shutdown, or when the
// subscriber cannot keep up.  After shutdown an already-closed channel
// is returned so callers unwind immediately.
func (h *Hub) Subscribe(id string) <-chan []byte {
	ch := make(chan []byte, sendBuffer)
	select {
	case h.register <- subscription{id: id, ch: ch}:
	case <-h.done:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a subscriber.  Safe to call for an id the hub has
// already dropped and after shutdown.
func (h *Hub) Unsubscribe(id string) {
	select {
	case h.unregister <- id:
	case <-h.done:
	}
}

// Broadcast queues msg for delivery to every current subscriber.
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}
