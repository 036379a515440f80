// Package session drives one chat room from the client side: history
// first, then the socket, with echo dedup and a single reconnect.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agroconnect/agroconnect-backend/internal/chat"
	"github.com/agroconnect/agroconnect-backend/pkg/enums"
	pkgerrors "github.com/agroconnect/agroconnect-backend/pkg/errors"
	"github.com/agroconnect/agroconnect-backend/pkg/logger"
)

// State is the session lifecycle position.
type State string

const (
	StateLoading      State = "loading"
	StateConnected    State = "connected"
	StateSending      State = "sending"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

const (
	// DefaultDedupWindow is how close two same-sender same-text messages
	// must be to count as one. Absorbs the echo race where the server
	// copy lands next to an already-known message.
	DefaultDedupWindow = 3 * time.Second

	// DefaultReconnectDelay is the fixed wait before the single retry
	// after an abnormal close.
	DefaultReconnectDelay = 2 * time.Second
)

// ErrNormalClosure is returned by ReadEvent when the server closed the
// socket cleanly. The session treats it as final and never redials.
var ErrNormalClosure = errors.New("normal closure")

// Conn is the socket surface the session drives. ReadEvent blocks until
// a frame arrives or the connection dies; a clean server close surfaces
// as ErrNormalClosure.
type Conn interface {
	ReadEvent() (chat.Event, error)
	WriteEvent(event chat.Event) error
	Close() error
}

// Dialer opens the websocket for a room, carrying the access token as a
// query parameter.
type Dialer interface {
	Dial(ctx context.Context, roomID uuid.UUID, token string) (Conn, error)
}

// API is the REST slice the session needs before the socket opens.
type API interface {
	History(ctx context.Context, roomID uuid.UUID) ([]*chat.MessageDTO, error)
	MarkRead(ctx context.Context, roomID uuid.UUID) error
}

// Params configures a session.
type Params struct {
	RoomID uuid.UUID
	UserID uuid.UUID
	Token  string

	API    API
	Dialer Dialer
	Logger *logger.Logger

	// Authenticated reports whether the user still holds a live login.
	// Consulted before the reconnect attempt.
	Authenticated func() bool

	DedupWindow    time.Duration
	ReconnectDelay time.Duration

	now   func() time.Time
	sleep func(time.Duration)
}

// Session is the per-room client state machine. Safe for concurrent use.
type Session struct {
	roomID uuid.UUID
	userID uuid.UUID
	token  string

	api           API
	dialer        Dialer
	logg          *logger.Logger
	authenticated func() bool

	dedupWindow    time.Duration
	reconnectDelay time.Duration
	now            func() time.Time
	sleep          func(time.Duration)

	mu          sync.Mutex
	state       State
	conn        Conn
	messages    []*chat.MessageDTO
	seen        map[uuid.UUID]bool
	peerTyping  bool
	peerOnline  bool
	orderStatus *chat.OrderStatusUpdate
	stopping    bool
	reconnected bool

	done chan struct{}
}

// New builds an idle session in the loading state.
func New(params Params) *Session {
	if params.DedupWindow <= 0 {
		params.DedupWindow = DefaultDedupWindow
	}
	if params.ReconnectDelay <= 0 {
		params.ReconnectDelay = DefaultReconnectDelay
	}
	if params.Authenticated == nil {
		params.Authenticated = func() bool { return true }
	}
	if params.now == nil {
		params.now = time.Now
	}
	if params.sleep == nil {
		params.sleep = time.Sleep
	}
	return &Session{
		roomID:         params.RoomID,
		userID:         params.UserID,
		token:          params.Token,
		api:            params.API,
		dialer:         params.Dialer,
		logg:           params.Logger,
		authenticated:  params.Authenticated,
		dedupWindow:    params.DedupWindow,
		reconnectDelay: params.ReconnectDelay,
		now:            params.now,
		sleep:          params.sleep,
		state:          StateLoading,
		seen:           map[uuid.UUID]bool{},
		done:           make(chan struct{}),
	}
}

// Start loads history, marks the room read, then dials the socket.
// History lands before any socket event is appended.
func (s *Session) Start(ctx context.Context) error {
	history, err := s.api.History(ctx, s.roomID)
	if err != nil {
		s.close()
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load chat history")
	}
	if err := s.api.MarkRead(ctx, s.roomID); err != nil {
		s.logg.Warn(ctx, "mark read failed: "+err.Error())
	}

	s.mu.Lock()
	for _, msg := range history {
		s.messages = append(s.messages, msg)
		s.seen[msg.ID] = true
	}
	s.mu.Unlock()

	conn, err := s.dialer.Dial(ctx, s.roomID, s.token)
	if err != nil {
		s.close()
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dial chat socket")
	}

	s.mu.Lock()
	s.conn = conn
	s.state = StateConnected
	s.mu.Unlock()

	go s.readLoop(ctx, conn)
	return nil
}

// Send writes a message frame. The message appears in Messages only when
// the server echo comes back; there is no optimistic append.
func (s *Session) Send(ctx context.Context, input chat.SendMessageInput) error {
	s.mu.Lock()
	if s.state != StateConnected {
		state := s.state
		s.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot send while "+string(state))
	}
	conn := s.conn
	s.state = StateSending
	s.mu.Unlock()

	err := conn.WriteEvent(chat.Event{
		Kind: enums.ChatEventMessage,
		Message: &chat.MessageDTO{
			RoomID:   s.roomID,
			SenderID: s.userID,
			Text:     input.Text,
			Images:   input.Images,
		},
	})

	s.mu.Lock()
	if s.state == StateSending {
		s.state = StateConnected
	}
	s.mu.Unlock()

	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send chat message")
	}
	return nil
}

// SetTyping announces a typing toggle. Best effort.
func (s *Session) SetTyping(isTyping bool) {
	s.mu.Lock()
	conn := s.conn
	connected := s.state == StateConnected
	s.mu.Unlock()
	if !connected {
		return
	}
	_ = conn.WriteEvent(chat.Event{
		Kind:   enums.ChatEventTyping,
		Typing: &chat.TypingStatus{RoomID: s.roomID, UserID: s.userID, IsTyping: isTyping},
	})
}

// Stop closes the socket cleanly. No reconnect follows.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	s.close()
}

// State returns the current lifecycle position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns a snapshot of the transcript, oldest first.
func (s *Session) Messages() []*chat.MessageDTO {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*chat.MessageDTO, len(s.messages))
	copy(out, s.messages)
	return out
}

// PeerTyping reports the transient peer-typing flag.
func (s *Session) PeerTyping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerTyping
}

// PeerOnline reports the peer presence flag.
func (s *Session) PeerOnline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerOnline
}

// OrderStatus returns the last order badge pushed to the room, if any.
func (s *Session) OrderStatus() *chat.OrderStatusUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderStatus
}

// Done is closed once the session reaches the closed state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) readLoop(ctx context.Context, conn Conn) {
	for {
		event, err := conn.ReadEvent()
		if err != nil {
			s.handleDisconnect(ctx, err)
			return
		}
		s.handleEvent(event)
	}
}

func (s *Session) handleEvent(event chat.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event.Kind {
	case enums.ChatEventMessage:
		if event.Message == nil || s.isDuplicateLocked(event.Message) {
			return
		}
		s.messages = append(s.messages, event.Message)
		s.seen[event.Message.ID] = true
		if event.Message.SenderID != s.userID {
			s.peerTyping = false
		}
	case enums.ChatEventTyping:
		if event.Typing != nil && event.Typing.UserID != s.userID {
			s.peerTyping = event.Typing.IsTyping
		}
	case enums.ChatEventPresence:
		if event.Presence != nil && event.Presence.UserID != s.userID {
			s.peerOnline = event.Presence.Online
		}
	case enums.ChatEventOrderStatus:
		if event.OrderStatus != nil {
			s.orderStatus = event.OrderStatus
		}
	}
}

// isDuplicateLocked applies both dedup rules: a known id never renders
// twice, and a same-sender same-text message inside the tolerance window
// collapses onto the one already shown.
func (s *Session) isDuplicateLocked(msg *chat.MessageDTO) bool {
	if s.seen[msg.ID] {
		return true
	}
	for i := len(s.messages) - 1; i >= 0; i-- {
		known := s.messages[i]
		if msg.CreatedAt.Sub(known.CreatedAt) > s.dedupWindow {
			break
		}
		if known.SenderID == msg.SenderID && known.Text == msg.Text {
			return true
		}
	}
	return false
}

func (s *Session) handleDisconnect(ctx context.Context, cause error) {
	s.mu.Lock()
	if s.stopping || s.state == StateClosed {
		s.mu.Unlock()
		s.close()
		return
	}
	if errors.Is(cause, ErrNormalClosure) {
		s.mu.Unlock()
		s.close()
		return
	}
	if s.reconnected || !s.authenticated() {
		s.mu.Unlock()
		s.close()
		return
	}
	s.reconnected = true
	s.state = StateReconnecting
	s.mu.Unlock()

	s.sleep(s.reconnectDelay)

	if !s.authenticated() {
		s.close()
		return
	}
	conn, err := s.dialer.Dial(ctx, s.roomID, s.token)
	if err != nil {
		s.logg.Warn(ctx, "chat reconnect failed: "+err.Error())
		s.close()
		return
	}

	s.mu.Lock()
	s.conn = conn
	s.state = StateConnected
	s.mu.Unlock()
	go s.readLoop(ctx, conn)
}

func (s *Session) close() {
	s.mu.Lock()
	already := s.state == StateClosed
	s.state = StateClosed
	s.mu.Unlock()
	if !already {
		close(s.done)
	}
}
