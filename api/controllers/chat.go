package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/agroconnect/agroconnect-backend/api/responses"
	"github.com/agroconnect/agroconnect-backend/api/validators"
	chatsvc "github.com/agroconnect/agroconnect-backend/internal/chat"
	pkgAuth "github.com/agroconnect/agroconnect-backend/pkg/auth"
	"github.com/agroconnect/agroconnect-backend/pkg/auth/session"
	"github.com/agroconnect/agroconnect-backend/pkg/config"
	"github.com/agroconnect/agroconnect-backend/pkg/enums"
	pkgerrors "github.com/agroconnect/agroconnect-backend/pkg/errors"
	"github.com/agroconnect/agroconnect-backend/pkg/logger"
)

type createRoomRequest struct {
	FarmerID  uuid.UUID  `json:"farmer_id" validate:"required"`
	ProductID *uuid.UUID `json:"product_id,omitempty"`
	Quantity  int        `json:"quantity" validate:"omitempty,gt=0"`
	OrderID   *uuid.UUID `json:"order_id,omitempty"`
}

type updateRoomOrderStatusRequest struct {
	Status enums.RoomOrderStatus `json:"status" validate:"required"`
}

// ListChatRooms returns the caller's rooms, most recently active first.
func ListChatRooms(svc chatsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rooms, err := svc.ListRooms(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rooms)
	}
}

// CreateChatRoom opens, or returns, the room pairing the customer with a farmer.
func CreateChatRoom(svc chatsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createRoomRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		room, err := svc.CreateOrGetRoom(r.Context(), chatsvc.CreateRoomInput{
			CustomerID: customerID,
			FarmerID:   payload.FarmerID,
			ProductID:  payload.ProductID,
			Quantity:   payload.Quantity,
			OrderID:    payload.OrderID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, room)
	}
}

// GetChatRoom returns one room the caller participates in.
func GetChatRoom(svc chatsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		roomID, err := validators.ParseUUIDParam(r, "roomID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		room, err := svc.GetRoom(r.Context(), roomID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, room)
	}
}

// ChatHistory returns the room's messages oldest first.
func ChatHistory(svc chatsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		roomID, err := validators.ParseUUIDParam(r, "roomID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		messages, err := svc.History(r.Context(), roomID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, messages)
	}
}

// MarkChatRead flips the peer's messages in the room to read.
func MarkChatRead(svc chatsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		roomID, err := validators.ParseUUIDParam(r, "roomID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkRead(r.Context(), roomID, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "read"})
	}
}

// SendChatMessage persists a message over REST for clients without a socket.
func SendChatMessage(svc chatsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		roomID, err := validators.ParseUUIDParam(r, "roomID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload chatsvc.SendMessageInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		message, err := svc.SendMessage(r.Context(), roomID, userID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, message)
	}
}

// UpdateRoomOrderStatus moves the room's order badge and notifies both sides.
func UpdateRoomOrderStatus(svc chatsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := currentUserID(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		roomID, err := validators.ParseUUIDParam(r, "roomID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateRoomOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.UpdateOrderStatus(r.Context(), roomID, payload.Status); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": string(payload.Status)})
	}
}

// ChatUnreadCount reports how many rooms hold unread messages for the caller.
func ChatUnreadCount(svc chatsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.UnreadCount(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

type wsInboundFrame struct {
	Kind     enums.ChatEventKind `json:"kind"`
	Text     string              `json:"text,omitempty"`
	Images   []string            `json:"images,omitempty"`
	IsTyping bool                `json:"is_typing,omitempty"`
}

// ChatSocket upgrades the connection and bridges it to the room's hub.
// Browsers cannot set headers on websocket requests, so the access token
// arrives as a query parameter.
func ChatSocket(svc chatsvc.Service, jwtCfg config.JWTConfig, verifier session.AccessSessionChecker, chatCfg config.ChatConfig, logg *logger.Logger) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	return func(w http.ResponseWriter, r *http.Request) {
		roomID, err := validators.ParseUUIDParam(r, "roomID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token := strings.TrimSpace(r.URL.Query().Get("token"))
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		claims, err := pkgAuth.ParseAccessToken(jwtCfg, token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
			return
		}
		if verifier != nil {
			ok, checkErr := verifier.HasSession(r.Context(), claims.ID)
			if checkErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, checkErr, "validate session"))
				return
			}
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
				return
			}
		}

		sub, err := svc.Connect(r.Context(), roomID, claims.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			svc.Disconnect(r.Context(), sub)
			logg.Error(r.Context(), "chat.upgrade_failed", err)
			return
		}

		ctx := logg.WithFields(r.Context(), map[string]any{
			"room_id": roomID.String(),
			"user_id": claims.UserID.String(),
		})

		go chatWritePump(ctx, conn, sub, chatCfg, logg)
		chatReadPump(ctx, conn, sub, svc, chatCfg, logg)
	}
}

// chatReadPump consumes client frames until the socket drops, then detaches
// the subscriber. Pong receipt doubles as the presence heartbeat.
func chatReadPump(ctx context.Context, conn *websocket.Conn, sub *chatsvc.Subscriber, svc chatsvc.Service, cfg config.ChatConfig, logg *logger.Logger) {
	defer func() {
		svc.Disconnect(ctx, sub)
		conn.Close()
	}()

	pongWait := cfg.PresenceTTL
	if cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(cfg.MaxMessageBytes)
	}
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		if err := svc.RefreshPresence(ctx, sub.RoomID, sub.UserID); err != nil {
			logg.Warn(ctx, "chat.presence_refresh_failed")
		}
		return nil
	})

	for {
		var frame wsInboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logg.Warn(ctx, "chat.socket_closed_abnormally")
			}
			return
		}

		switch frame.Kind {
		case enums.ChatEventMessage:
			if _, err := svc.SendMessage(ctx, sub.RoomID, sub.UserID, chatsvc.SendMessageInput{
				Text:   frame.Text,
				Images: frame.Images,
			}); err != nil {
				logg.Warn(logg.WithFields(ctx, map[string]any{"reason": err.Error()}), "chat.message_rejected")
			}
		case enums.ChatEventTyping:
			svc.NotifyTyping(ctx, sub.RoomID, sub.UserID, frame.IsTyping)
		default:
			logg.Warn(ctx, "chat.unknown_frame_kind")
		}
	}
}

// chatWritePump drains the subscriber's channel onto the socket and keeps
// the connection alive with periodic pings.
func chatWritePump(ctx context.Context, conn *websocket.Conn, sub *chatsvc.Subscriber, cfg config.ChatConfig, logg *logger.Logger) {
	ticker := time.NewTicker(cfg.PresenceKeepAlive)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case event, ok := <-sub.Send:
			conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				logg.Warn(ctx, "chat.write_failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
