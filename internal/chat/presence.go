package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// presenceStore is the slice of the Redis client presence tracking needs.
type presenceStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, keys ...string) error
	PresenceKey(roomID, userID string) string
}

// Presence tracks who currently has a room open. Each open socket keeps a
// short-lived Redis key alive; a key that stops being refreshed expires on
// its own, so a crashed client reads as offline without cleanup.
type Presence struct {
	store presenceStore
	ttl   time.Duration
}

// NewPresence builds a presence tracker with the given key lifetime.
func NewPresence(store presenceStore, ttl time.Duration) *Presence {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Presence{store: store, ttl: ttl}
}

// Announce marks the user online in the room. Called on connect and on
// every keep-alive tick.
func (p *Presence) Announce(ctx context.Context, roomID, userID uuid.UUID) error {
	return p.store.Set(ctx, p.store.PresenceKey(roomID.String(), userID.String()), "1", p.ttl)
}

// Withdraw removes the presence key immediately on clean disconnect.
func (p *Presence) Withdraw(ctx context.Context, roomID, userID uuid.UUID) error {
	return p.store.Del(ctx, p.store.PresenceKey(roomID.String(), userID.String()))
}

// IsOnline reports whether the user currently has the room open.
func (p *Presence) IsOnline(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	return p.store.Exists(ctx, p.store.PresenceKey(roomID.String(), userID.String()))
}

// KeepAliveInterval is how often a connected socket should re-announce.
// Half the TTL leaves room for one missed tick.
func (p *Presence) KeepAliveInterval() time.Duration {
	return p.ttl / 2
}
