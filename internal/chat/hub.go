package chat

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/agroconnect/agroconnect-backend/pkg/logger"
	"github.com/agroconnect/agroconnect-backend/pkg/metrics"
)

const subscriberBuffer = 32

// Subscriber is one open socket inside a room. Events are delivered on
// Send; a subscriber that stops draining is dropped rather than allowed
// to stall the room.
type Subscriber struct {
	RoomID uuid.UUID
	UserID uuid.UUID
	Send   chan Event

	openedAt time.Time
}

// NewSubscriber builds a subscriber for the given room and user.
func NewSubscriber(roomID, userID uuid.UUID) *Subscriber {
	return &Subscriber{
		RoomID: roomID,
		UserID: userID,
		Send:   make(chan Event, subscriberBuffer),
	}
}

type broadcastReq struct {
	roomID uuid.UUID
	except *uuid.UUID
	event  Event
}

// Hub fans events out to every socket subscribed to a room. All room
// bookkeeping happens on the Run goroutine, so the maps need no lock.
type Hub struct {
	rooms map[uuid.UUID]map[*Subscriber]bool

	register   chan *Subscriber
	unregister chan *Subscriber
	broadcast  chan broadcastReq

	logg *logger.Logger
	met  *metrics.ChatMetrics
}

// NewHub builds an idle hub. Call Run before subscribing.
func NewHub(logg *logger.Logger, met *metrics.ChatMetrics) *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Subscriber]bool),
		register:   make(chan *Subscriber),
		unregister: make(chan *Subscriber),
		broadcast:  make(chan broadcastReq, 64),
		logg:       logg,
		met:        met,
	}
}

// Run processes subscriptions and fan-out until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case sub := <-h.register:
			h.add(sub)
		case sub := <-h.unregister:
			h.remove(sub, "disconnect")
		case req := <-h.broadcast:
			h.fanOut(req)
		}
	}
}

// Subscribe attaches the socket to its room.
func (h *Hub) Subscribe(sub *Subscriber) {
	h.register <- sub
}

// Unsubscribe detaches the socket and closes its Send channel.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.unregister <- sub
}

// Broadcast delivers the event to every subscriber in the room.
func (h *Hub) Broadcast(roomID uuid.UUID, event Event) {
	h.broadcast <- broadcastReq{roomID: roomID, event: event}
}

// BroadcastExcept delivers the event to everyone in the room except the
// originating user. Used for typing and presence, which the sender
// already knows about.
func (h *Hub) BroadcastExcept(roomID, exceptUserID uuid.UUID, event Event) {
	h.broadcast <- broadcastReq{roomID: roomID, except: &exceptUserID, event: event}
}

func (h *Hub) add(sub *Subscriber) {
	conns, ok := h.rooms[sub.RoomID]
	if !ok {
		conns = make(map[*Subscriber]bool)
		h.rooms[sub.RoomID] = conns
	}
	conns[sub] = true
	sub.openedAt = time.Now()
	h.met.SessionOpened()
	h.logg.Debug(context.Background(), "chat subscriber joined room "+sub.RoomID.String())
}

func (h *Hub) remove(sub *Subscriber, reason string) {
	conns, ok := h.rooms[sub.RoomID]
	if !ok || !conns[sub] {
		return
	}
	delete(conns, sub)
	if len(conns) == 0 {
		delete(h.rooms, sub.RoomID)
	}
	close(sub.Send)
	h.met.SessionClosed(reason, time.Since(sub.openedAt))
}

func (h *Hub) fanOut(req broadcastReq) {
	for sub := range h.rooms[req.roomID] {
		if req.except != nil && sub.UserID == *req.except {
			continue
		}
		select {
		case sub.Send <- req.event:
		default:
			// Slow consumer. Dropping the subscriber beats blocking the hub.
			h.remove(sub, "slow_consumer")
		}
	}
}

func (h *Hub) closeAll() {
	for _, conns := range h.rooms {
		for sub := range conns {
			close(sub.Send)
			h.met.SessionClosed("shutdown", time.Since(sub.openedAt))
		}
	}
	h.rooms = make(map[uuid.UUID]map[*Subscriber]bool)
}
