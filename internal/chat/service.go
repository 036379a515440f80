package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agroconnect/agroconnect-backend/pkg/db/models"
	"github.com/agroconnect/agroconnect-backend/pkg/enums"
	pkgerrors "github.com/agroconnect/agroconnect-backend/pkg/errors"
	"github.com/agroconnect/agroconnect-backend/pkg/logger"
	"github.com/agroconnect/agroconnect-backend/pkg/metrics"
)

const maxImagesPerMessage = 5

// Service is the chat API consumed by the websocket controller, the REST
// controllers and checkout.
type Service interface {
	CreateOrGetRoom(ctx context.Context, input CreateRoomInput) (*RoomDTO, error)
	GetRoom(ctx context.Context, roomID, userID uuid.UUID) (*RoomDTO, error)
	ListRooms(ctx context.Context, userID uuid.UUID) ([]*RoomDTO, error)
	History(ctx context.Context, roomID, userID uuid.UUID) ([]*MessageDTO, error)
	MarkRead(ctx context.Context, roomID, userID uuid.UUID) error
	SendMessage(ctx context.Context, roomID, senderID uuid.UUID, input SendMessageInput) (*MessageDTO, error)
	NotifyTyping(ctx context.Context, roomID, userID uuid.UUID, isTyping bool)
	Connect(ctx context.Context, roomID, userID uuid.UUID) (*Subscriber, error)
	Disconnect(ctx context.Context, sub *Subscriber)
	RefreshPresence(ctx context.Context, roomID, userID uuid.UUID) error
	UpdateOrderStatus(ctx context.Context, roomID uuid.UUID, status enums.RoomOrderStatus) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (*UnreadSummary, error)
}

type roomRepository interface {
	FindRoomForPair(ctx context.Context, customerID, farmerID uuid.UUID, productID *uuid.UUID) (*models.ChatRoom, error)
	CreateRoom(ctx context.Context, room *models.ChatRoom) (*models.ChatRoom, error)
	FindRoom(ctx context.Context, id uuid.UUID) (*models.ChatRoom, error)
	ListRoomsForUser(ctx context.Context, userID uuid.UUID) ([]models.ChatRoom, error)
	CreateMessage(ctx context.Context, room *models.ChatRoom, msg *models.ChatMessage) (*models.ChatMessage, error)
	ListMessages(ctx context.Context, roomID uuid.UUID) ([]models.ChatMessage, error)
	MarkRead(ctx context.Context, room *models.ChatRoom, readerID uuid.UUID) error
	CountUnreadRooms(ctx context.Context, userID uuid.UUID) (int64, error)
	SetOrderStatus(ctx context.Context, roomID uuid.UUID, status enums.RoomOrderStatus) error
}

type broadcaster interface {
	Subscribe(sub *Subscriber)
	Unsubscribe(sub *Subscriber)
	Broadcast(roomID uuid.UUID, event Event)
	BroadcastExcept(roomID, exceptUserID uuid.UUID, event Event)
}

type presenceTracker interface {
	Announce(ctx context.Context, roomID, userID uuid.UUID) error
	Withdraw(ctx context.Context, roomID, userID uuid.UUID) error
	IsOnline(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
}

// ServiceParams collects the service dependencies.
type ServiceParams struct {
	Repo     roomRepository
	Hub      broadcaster
	Presence presenceTracker
	Logger   *logger.Logger
	Metrics  *metrics.ChatMetrics
}

type service struct {
	repo     roomRepository
	hub      broadcaster
	presence presenceTracker
	logg     *logger.Logger
	met      *metrics.ChatMetrics
}

// NewService wires the chat service.
func NewService(params ServiceParams) Service {
	return &service{
		repo:     params.Repo,
		hub:      params.Hub,
		presence: params.Presence,
		logg:     params.Logger,
		met:      params.Metrics,
	}
}

// CreateOrGetRoom returns the existing conversation between the pair for
// the product, creating it on first contact.
func (s *service) CreateOrGetRoom(ctx context.Context, input CreateRoomInput) (*RoomDTO, error) {
	if input.CustomerID == input.FarmerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot open a chat with yourself")
	}
	existing, err := s.repo.FindRoomForPair(ctx, input.CustomerID, input.FarmerID, input.ProductID)
	if err == nil {
		return roomFromModel(existing), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup chat room")
	}

	quantity := input.Quantity
	if quantity < 1 {
		quantity = 1
	}
	room := &models.ChatRoom{
		CustomerID:  input.CustomerID,
		FarmerID:    input.FarmerID,
		ProductID:   input.ProductID,
		Quantity:    quantity,
		OrderID:     input.OrderID,
		OrderStatus: enums.RoomOrderNew,
		IsNewOrder:  true,
	}
	created, err := s.repo.CreateRoom(ctx, room)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create chat room")
	}
	return roomFromModel(created), nil
}

// GetRoom loads one room, restricted to its participants.
func (s *service) GetRoom(ctx context.Context, roomID, userID uuid.UUID) (*RoomDTO, error) {
	room, err := s.loadRoomFor(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	dto := roomFromModel(room)
	dto.PeerOnline = s.peerOnline(ctx, room, userID)
	return dto, nil
}

// ListRooms returns every conversation the user participates in with
// live peer presence.
func (s *service) ListRooms(ctx context.Context, userID uuid.UUID) ([]*RoomDTO, error) {
	rooms, err := s.repo.ListRoomsForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list chat rooms")
	}
	dtos := make([]*RoomDTO, 0, len(rooms))
	for i := range rooms {
		dto := roomFromModel(&rooms[i])
		dto.PeerOnline = s.peerOnline(ctx, &rooms[i], userID)
		dtos = append(dtos, dto)
	}
	return dtos, nil
}

// History returns the full room transcript oldest first.
func (s *service) History(ctx context.Context, roomID, userID uuid.UUID) ([]*MessageDTO, error) {
	if _, err := s.loadRoomFor(ctx, roomID, userID); err != nil {
		return nil, err
	}
	msgs, err := s.repo.ListMessages(ctx, roomID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load chat history")
	}
	dtos := make([]*MessageDTO, 0, len(msgs))
	for i := range msgs {
		dtos = append(dtos, messageFromModel(&msgs[i]))
	}
	return dtos, nil
}

// MarkRead flags the peer's messages read and clears the viewer's unread
// badge. Calling it on an already-read room is a no-op.
func (s *service) MarkRead(ctx context.Context, roomID, userID uuid.UUID) error {
	room, err := s.loadRoomFor(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if err := s.repo.MarkRead(ctx, room, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark chat room read")
	}
	return nil
}

// SendMessage persists the message and echoes it to the room. The sender
// receives the echo too, which is what lets the client render without an
// optimistic append.
func (s *service) SendMessage(ctx context.Context, roomID, senderID uuid.UUID, input SendMessageInput) (*MessageDTO, error) {
	room, err := s.loadRoomFor(ctx, roomID, senderID)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(input.Text)
	if text == "" && len(input.Images) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message is empty")
	}
	if len(input.Images) > maxImagesPerMessage {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many images")
	}

	msg := &models.ChatMessage{
		RoomID:   roomID,
		SenderID: senderID,
		Text:     text,
		Images:   models.ImageURLs(input.Images),
	}
	saved, err := s.repo.CreateMessage(ctx, room, msg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist chat message")
	}

	dto := messageFromModel(saved)
	s.hub.Broadcast(roomID, Event{Kind: enums.ChatEventMessage, Message: dto})
	s.met.IncMessage(string(enums.ChatEventMessage))
	return dto, nil
}

// NotifyTyping fans a transient typing toggle out to the peer. Nothing
// is persisted.
func (s *service) NotifyTyping(ctx context.Context, roomID, userID uuid.UUID, isTyping bool) {
	s.hub.BroadcastExcept(roomID, userID, Event{
		Kind:   enums.ChatEventTyping,
		Typing: &TypingStatus{RoomID: roomID, UserID: userID, IsTyping: isTyping},
	})
	s.met.IncMessage(string(enums.ChatEventTyping))
}

// Connect verifies room access, registers the socket with the hub, marks
// the viewer's unread messages read and announces presence.
func (s *service) Connect(ctx context.Context, roomID, userID uuid.UUID) (*Subscriber, error) {
	room, err := s.loadRoomFor(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.MarkRead(ctx, room, userID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark chat room read")
	}

	sub := NewSubscriber(roomID, userID)
	s.hub.Subscribe(sub)

	if err := s.presence.Announce(ctx, roomID, userID); err != nil {
		s.logg.Warn(ctx, "announce presence failed: "+err.Error())
	}
	s.hub.BroadcastExcept(roomID, userID, Event{
		Kind:     enums.ChatEventPresence,
		Presence: &PresenceStatus{RoomID: roomID, UserID: userID, Online: true},
	})
	return sub, nil
}

// Disconnect withdraws presence and detaches the socket.
func (s *service) Disconnect(ctx context.Context, sub *Subscriber) {
	if err := s.presence.Withdraw(ctx, sub.RoomID, sub.UserID); err != nil {
		s.logg.Warn(ctx, "withdraw presence failed: "+err.Error())
	}
	s.hub.BroadcastExcept(sub.RoomID, sub.UserID, Event{
		Kind:     enums.ChatEventPresence,
		Presence: &PresenceStatus{RoomID: sub.RoomID, UserID: sub.UserID, Online: false},
	})
	s.hub.Unsubscribe(sub)
}

// RefreshPresence extends the online TTL; sockets call it on a timer.
func (s *service) RefreshPresence(ctx context.Context, roomID, userID uuid.UUID) error {
	return s.presence.Announce(ctx, roomID, userID)
}

// UpdateOrderStatus persists the room's order badge and pushes the change
// to both participants.
func (s *service) UpdateOrderStatus(ctx context.Context, roomID uuid.UUID, status enums.RoomOrderStatus) error {
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	if err := s.repo.SetOrderStatus(ctx, roomID, status); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update room order status")
	}
	s.hub.Broadcast(roomID, Event{
		Kind:        enums.ChatEventOrderStatus,
		OrderStatus: &OrderStatusUpdate{RoomID: roomID, Status: status},
	})
	s.met.IncMessage(string(enums.ChatEventOrderStatus))
	return nil
}

// UnreadCount backs the navigation badge poll.
func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (*UnreadSummary, error) {
	count, err := s.repo.CountUnreadRooms(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count unread rooms")
	}
	return &UnreadSummary{Rooms: int(count)}, nil
}

func (s *service) loadRoomFor(ctx context.Context, roomID, userID uuid.UUID) (*models.ChatRoom, error) {
	room, err := s.repo.FindRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "chat room not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load chat room")
	}
	if !room.IsParticipant(userID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a room participant")
	}
	return room, nil
}

func (s *service) peerOnline(ctx context.Context, room *models.ChatRoom, userID uuid.UUID) bool {
	online, err := s.presence.IsOnline(ctx, room.ID, room.PeerOf(userID))
	if err != nil {
		s.logg.Warn(ctx, "presence lookup failed: "+err.Error())
		return false
	}
	return online
}
