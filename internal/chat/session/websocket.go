package session

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/agroconnect/agroconnect-backend/internal/chat"
	"github.com/agroconnect/agroconnect-backend/pkg/enums"
	pkgerrors "github.com/agroconnect/agroconnect-backend/pkg/errors"
)

const defaultHandshakeTimeout = 10 * time.Second

// WebsocketDialer opens real room sockets against the chat endpoint.
type WebsocketDialer struct {
	baseURL string
	dialer  *websocket.Dialer
}

// NewWebsocketDialer builds a dialer rooted at baseURL (ws:// or wss://).
func NewWebsocketDialer(baseURL string) (*WebsocketDialer, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse chat base url")
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "chat base url must use ws or wss")
	}
	return &WebsocketDialer{
		baseURL: baseURL,
		dialer:  &websocket.Dialer{HandshakeTimeout: defaultHandshakeTimeout},
	}, nil
}

// Dial connects to /ws/chat/{roomID} with the access token as a query
// parameter, the only place a browser-equivalent client can carry it.
func (d *WebsocketDialer) Dial(ctx context.Context, roomID uuid.UUID, token string) (Conn, error) {
	endpoint, err := url.Parse(d.baseURL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse chat base url")
	}
	endpoint = endpoint.JoinPath("ws", "chat", roomID.String())
	query := endpoint.Query()
	query.Set("token", token)
	endpoint.RawQuery = query.Encode()

	conn, resp, err := d.dialer.DialContext(ctx, endpoint.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("dial chat socket: status %d", resp.StatusCode))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dial chat socket")
	}
	return &websocketConn{conn: conn}, nil
}

// wsOutboundFrame is the discriminated frame the server's read pump expects.
type wsOutboundFrame struct {
	Kind     enums.ChatEventKind `json:"kind"`
	Text     string              `json:"text,omitempty"`
	Images   []string            `json:"images,omitempty"`
	IsTyping bool                `json:"is_typing,omitempty"`
}

type websocketConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// ReadEvent decodes the next server event. A clean close from the server
// surfaces as ErrNormalClosure so the session does not redial.
func (c *websocketConn) ReadEvent() (chat.Event, error) {
	var event chat.Event
	if err := c.conn.ReadJSON(&event); err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return chat.Event{}, ErrNormalClosure
		}
		return chat.Event{}, err
	}
	return event, nil
}

// WriteEvent flattens the event into the wire frame the server reads.
func (c *websocketConn) WriteEvent(event chat.Event) error {
	frame := wsOutboundFrame{Kind: event.Kind}
	switch event.Kind {
	case enums.ChatEventMessage:
		if event.Message == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "message event without message payload")
		}
		frame.Text = event.Message.Text
		frame.Images = event.Message.Images
	case enums.ChatEventTyping:
		if event.Typing == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "typing event without typing payload")
		}
		frame.IsTyping = event.Typing.IsTyping
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unsupported outbound event kind")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(frame)
}

// Close announces a normal closure to the server, then drops the socket.
func (c *websocketConn) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()
	return c.conn.Close()
}
