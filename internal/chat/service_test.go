package chat

import (
	"context"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/agroconnect/agroconnect-backend/pkg/db/models"
	"github.com/agroconnect/agroconnect-backend/pkg/enums"
	pkgerrors "github.com/agroconnect/agroconnect-backend/pkg/errors"
	"github.com/agroconnect/agroconnect-backend/pkg/logger"
	"github.com/agroconnect/agroconnect-backend/pkg/metrics"
)

type fakeRoomRepo struct {
	rooms    map[uuid.UUID]*models.ChatRoom
	messages map[uuid.UUID][]models.ChatMessage
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{
		rooms:    map[uuid.UUID]*models.ChatRoom{},
		messages: map[uuid.UUID][]models.ChatMessage{},
	}
}

func (f *fakeRoomRepo) FindRoomForPair(ctx context.Context, customerID, farmerID uuid.UUID, productID *uuid.UUID) (*models.ChatRoom, error) {
	for _, room := range f.rooms {
		if room.CustomerID != customerID || room.FarmerID != farmerID {
			continue
		}
		switch {
		case productID == nil && room.ProductID == nil:
			return room, nil
		case productID != nil && room.ProductID != nil && *productID == *room.ProductID:
			return room, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRoomRepo) CreateRoom(ctx context.Context, room *models.ChatRoom) (*models.ChatRoom, error) {
	room.ID = uuid.New()
	room.CreatedAt = time.Now()
	f.rooms[room.ID] = room
	return room, nil
}

func (f *fakeRoomRepo) FindRoom(ctx context.Context, id uuid.UUID) (*models.ChatRoom, error) {
	room, ok := f.rooms[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return room, nil
}

func (f *fakeRoomRepo) ListRoomsForUser(ctx context.Context, userID uuid.UUID) ([]models.ChatRoom, error) {
	var out []models.ChatRoom
	for _, room := range f.rooms {
		if room.CustomerID == userID || room.FarmerID == userID {
			out = append(out, *room)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeRoomRepo) CreateMessage(ctx context.Context, room *models.ChatRoom, msg *models.ChatMessage) (*models.ChatMessage, error) {
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now()
	f.messages[room.ID] = append(f.messages[room.ID], *msg)
	stored := f.rooms[room.ID]
	stored.LastMessageText = &msg.Text
	at := msg.CreatedAt
	stored.LastMessageAt = &at
	if msg.SenderID == stored.CustomerID {
		stored.HasUnreadFarmer = true
	} else {
		stored.HasUnreadCustomer = true
	}
	return msg, nil
}

func (f *fakeRoomRepo) ListMessages(ctx context.Context, roomID uuid.UUID) ([]models.ChatMessage, error) {
	msgs := append([]models.ChatMessage(nil), f.messages[roomID]...)
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })
	return msgs, nil
}

func (f *fakeRoomRepo) MarkRead(ctx context.Context, room *models.ChatRoom, readerID uuid.UUID) error {
	msgs := f.messages[room.ID]
	for i := range msgs {
		if msgs[i].SenderID != readerID {
			msgs[i].IsRead = true
		}
	}
	stored := f.rooms[room.ID]
	if readerID == stored.CustomerID {
		stored.HasUnreadCustomer = false
	} else {
		stored.HasUnreadFarmer = false
	}
	return nil
}

func (f *fakeRoomRepo) CountUnreadRooms(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	for _, room := range f.rooms {
		if (room.CustomerID == userID && room.HasUnreadCustomer) ||
			(room.FarmerID == userID && room.HasUnreadFarmer) {
			count++
		}
	}
	return count, nil
}

func (f *fakeRoomRepo) SetOrderStatus(ctx context.Context, roomID uuid.UUID, status enums.RoomOrderStatus) error {
	room, ok := f.rooms[roomID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	room.OrderStatus = status
	if status != enums.RoomOrderNew {
		room.IsNewOrder = false
	}
	return nil
}

type sentEvent struct {
	roomID uuid.UUID
	except *uuid.UUID
	event  Event
}

type fakeHub struct {
	subscribed   []*Subscriber
	unsubscribed []*Subscriber
	events       []sentEvent
}

func (f *fakeHub) Subscribe(sub *Subscriber)   { f.subscribed = append(f.subscribed, sub) }
func (f *fakeHub) Unsubscribe(sub *Subscriber) { f.unsubscribed = append(f.unsubscribed, sub) }

func (f *fakeHub) Broadcast(roomID uuid.UUID, event Event) {
	f.events = append(f.events, sentEvent{roomID: roomID, event: event})
}

func (f *fakeHub) BroadcastExcept(roomID, exceptUserID uuid.UUID, event Event) {
	except := exceptUserID
	f.events = append(f.events, sentEvent{roomID: roomID, except: &except, event: event})
}

type fakePresence struct {
	online map[string]bool
}

func newFakePresence() *fakePresence {
	return &fakePresence{online: map[string]bool{}}
}

func (f *fakePresence) key(roomID, userID uuid.UUID) string {
	return roomID.String() + ":" + userID.String()
}

func (f *fakePresence) Announce(ctx context.Context, roomID, userID uuid.UUID) error {
	f.online[f.key(roomID, userID)] = true
	return nil
}

func (f *fakePresence) Withdraw(ctx context.Context, roomID, userID uuid.UUID) error {
	delete(f.online, f.key(roomID, userID))
	return nil
}

func (f *fakePresence) IsOnline(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	return f.online[f.key(roomID, userID)], nil
}

type chatFixture struct {
	svc      Service
	repo     *fakeRoomRepo
	hub      *fakeHub
	presence *fakePresence
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	repo := newFakeRoomRepo()
	hub := &fakeHub{}
	presence := newFakePresence()
	svc := NewService(ServiceParams{
		Repo:     repo,
		Hub:      hub,
		Presence: presence,
		Logger:   logger.New(logger.Options{Output: io.Discard}),
		Metrics:  metrics.NewChatMetrics(prometheus.NewRegistry()),
	})
	return &chatFixture{svc: svc, repo: repo, hub: hub, presence: presence}
}

func (fx *chatFixture) seedRoom(t *testing.T, customerID, farmerID uuid.UUID) *models.ChatRoom {
	t.Helper()
	room, err := fx.repo.CreateRoom(context.Background(), &models.ChatRoom{
		CustomerID:  customerID,
		FarmerID:    farmerID,
		Quantity:    1,
		OrderStatus: enums.RoomOrderNew,
		IsNewOrder:  true,
	})
	if err != nil {
		t.Fatalf("seed room: %v", err)
	}
	return room
}

func codeOf(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	coded := pkgerrors.As(err)
	if coded == nil {
		t.Fatalf("expected a coded error, got %v", err)
	}
	return coded.Code()
}

func TestCreateOrGetRoomReturnsExisting(t *testing.T) {
	fx := newChatFixture(t)
	customerID, farmerID := uuid.New(), uuid.New()
	productID := uuid.New()

	first, err := fx.svc.CreateOrGetRoom(context.Background(), CreateRoomInput{
		CustomerID: customerID,
		FarmerID:   farmerID,
		ProductID:  &productID,
		Quantity:   3,
	})
	if err != nil {
		t.Fatalf("first contact: %v", err)
	}
	second, err := fx.svc.CreateOrGetRoom(context.Background(), CreateRoomInput{
		CustomerID: customerID,
		FarmerID:   farmerID,
		ProductID:  &productID,
		Quantity:   7,
	})
	if err != nil {
		t.Fatalf("second contact: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected the same room, got %s and %s", first.ID, second.ID)
	}
	if len(fx.repo.rooms) != 1 {
		t.Fatalf("expected one room, got %d", len(fx.repo.rooms))
	}
	if second.Quantity != 3 {
		t.Fatalf("repeat contact must not change the room, got quantity %d", second.Quantity)
	}
}

func TestCreateOrGetRoomRejectsSelfChat(t *testing.T) {
	fx := newChatFixture(t)
	id := uuid.New()
	_, err := fx.svc.CreateOrGetRoom(context.Background(), CreateRoomInput{CustomerID: id, FarmerID: id})
	if got := codeOf(t, err); got != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %s", got)
	}
}

func TestSendMessagePersistsAndEchoes(t *testing.T) {
	fx := newChatFixture(t)
	customerID, farmerID := uuid.New(), uuid.New()
	room := fx.seedRoom(t, customerID, farmerID)

	dto, err := fx.svc.SendMessage(context.Background(), room.ID, customerID, SendMessageInput{Text: "  is this still fresh?  "})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if dto.Text != "is this still fresh?" {
		t.Fatalf("expected trimmed text, got %q", dto.Text)
	}

	if len(fx.hub.events) != 1 {
		t.Fatalf("expected one echoed event, got %d", len(fx.hub.events))
	}
	echo := fx.hub.events[0]
	if echo.except != nil {
		t.Fatal("message echo must reach the sender too")
	}
	if echo.event.Kind != enums.ChatEventMessage || echo.event.Message.ID != dto.ID {
		t.Fatalf("unexpected echo %+v", echo.event)
	}

	if !fx.repo.rooms[room.ID].HasUnreadFarmer {
		t.Fatal("recipient unread flag should flip")
	}
	if fx.repo.rooms[room.ID].HasUnreadCustomer {
		t.Fatal("sender unread flag should stay clear")
	}
}

func TestSendMessageRejectsEmptyAndStrangers(t *testing.T) {
	fx := newChatFixture(t)
	customerID, farmerID := uuid.New(), uuid.New()
	room := fx.seedRoom(t, customerID, farmerID)

	_, err := fx.svc.SendMessage(context.Background(), room.ID, customerID, SendMessageInput{Text: "   "})
	if got := codeOf(t, err); got != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for empty text, got %s", got)
	}

	_, err = fx.svc.SendMessage(context.Background(), room.ID, uuid.New(), SendMessageInput{Text: "hi"})
	if got := codeOf(t, err); got != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for non-participant, got %s", got)
	}

	_, err = fx.svc.SendMessage(context.Background(), uuid.New(), customerID, SendMessageInput{Text: "hi"})
	if got := codeOf(t, err); got != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown room, got %s", got)
	}
}

func TestConnectMarksReadAndAnnouncesPresence(t *testing.T) {
	fx := newChatFixture(t)
	customerID, farmerID := uuid.New(), uuid.New()
	room := fx.seedRoom(t, customerID, farmerID)

	if _, err := fx.svc.SendMessage(context.Background(), room.ID, customerID, SendMessageInput{Text: "hello"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	fx.hub.events = nil

	sub, err := fx.svc.Connect(context.Background(), room.ID, farmerID)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if sub.RoomID != room.ID || sub.UserID != farmerID {
		t.Fatalf("unexpected subscriber %+v", sub)
	}
	if len(fx.hub.subscribed) != 1 {
		t.Fatalf("expected hub registration, got %d", len(fx.hub.subscribed))
	}
	if fx.repo.rooms[room.ID].HasUnreadFarmer {
		t.Fatal("opening the room should clear the viewer's unread flag")
	}
	if !fx.repo.messages[room.ID][0].IsRead {
		t.Fatal("opening the room should mark the peer's messages read")
	}
	online, _ := fx.presence.IsOnline(context.Background(), room.ID, farmerID)
	if !online {
		t.Fatal("connect should announce presence")
	}
	if len(fx.hub.events) != 1 || fx.hub.events[0].event.Kind != enums.ChatEventPresence {
		t.Fatalf("expected one presence event, got %+v", fx.hub.events)
	}
	if fx.hub.events[0].except == nil || *fx.hub.events[0].except != farmerID {
		t.Fatal("presence should not echo to its own sender")
	}
}

func TestConnectRejectsNonParticipant(t *testing.T) {
	fx := newChatFixture(t)
	room := fx.seedRoom(t, uuid.New(), uuid.New())

	_, err := fx.svc.Connect(context.Background(), room.ID, uuid.New())
	if got := codeOf(t, err); got != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %s", got)
	}
	if len(fx.hub.subscribed) != 0 {
		t.Fatal("stranger must not reach the hub")
	}
}

func TestDisconnectWithdrawsPresence(t *testing.T) {
	fx := newChatFixture(t)
	customerID, farmerID := uuid.New(), uuid.New()
	room := fx.seedRoom(t, customerID, farmerID)

	sub, err := fx.svc.Connect(context.Background(), room.ID, customerID)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	fx.svc.Disconnect(context.Background(), sub)

	online, _ := fx.presence.IsOnline(context.Background(), room.ID, customerID)
	if online {
		t.Fatal("disconnect should withdraw presence")
	}
	if len(fx.hub.unsubscribed) != 1 {
		t.Fatal("disconnect should detach the subscriber")
	}
	last := fx.hub.events[len(fx.hub.events)-1]
	if last.event.Kind != enums.ChatEventPresence || last.event.Presence.Online {
		t.Fatalf("expected an offline presence event, got %+v", last.event)
	}
}

func TestMarkReadIsIdempotent(t *testing.T) {
	fx := newChatFixture(t)
	customerID, farmerID := uuid.New(), uuid.New()
	room := fx.seedRoom(t, customerID, farmerID)
	if _, err := fx.svc.SendMessage(context.Background(), room.ID, farmerID, SendMessageInput{Text: "ready for pickup"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := fx.svc.MarkRead(context.Background(), room.ID, customerID); err != nil {
			t.Fatalf("mark read pass %d: %v", i, err)
		}
	}
	if fx.repo.rooms[room.ID].HasUnreadCustomer {
		t.Fatal("unread flag should stay cleared")
	}

	summary, err := fx.svc.UnreadCount(context.Background(), customerID)
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if summary.Rooms != 0 {
		t.Fatalf("expected zero unread rooms, got %d", summary.Rooms)
	}
}

func TestTypingIsTransientFanOut(t *testing.T) {
	fx := newChatFixture(t)
	customerID, farmerID := uuid.New(), uuid.New()
	room := fx.seedRoom(t, customerID, farmerID)

	fx.svc.NotifyTyping(context.Background(), room.ID, customerID, true)

	if len(fx.repo.messages[room.ID]) != 0 {
		t.Fatal("typing must not be persisted")
	}
	if len(fx.hub.events) != 1 {
		t.Fatalf("expected one fan-out, got %d", len(fx.hub.events))
	}
	evt := fx.hub.events[0]
	if evt.event.Kind != enums.ChatEventTyping || !evt.event.Typing.IsTyping {
		t.Fatalf("unexpected typing event %+v", evt.event)
	}
	if evt.except == nil || *evt.except != customerID {
		t.Fatal("typing should skip its own sender")
	}
}

func TestUpdateOrderStatusBroadcastsToRoom(t *testing.T) {
	fx := newChatFixture(t)
	room := fx.seedRoom(t, uuid.New(), uuid.New())

	if err := fx.svc.UpdateOrderStatus(context.Background(), room.ID, enums.RoomOrderActive); err != nil {
		t.Fatalf("update: %v", err)
	}
	if fx.repo.rooms[room.ID].OrderStatus != enums.RoomOrderActive {
		t.Fatal("status should persist")
	}
	if fx.repo.rooms[room.ID].IsNewOrder {
		t.Fatal("moving off new should clear the new-order marker")
	}
	evt := fx.hub.events[0]
	if evt.event.Kind != enums.ChatEventOrderStatus || evt.event.OrderStatus.Status != enums.RoomOrderActive {
		t.Fatalf("unexpected broadcast %+v", evt.event)
	}
	if evt.except != nil {
		t.Fatal("order status goes to both participants")
	}

	if err := fx.svc.UpdateOrderStatus(context.Background(), room.ID, enums.RoomOrderStatus("bogus")); codeOf(t, err) != pkgerrors.CodeValidation {
		t.Fatal("bogus status should be rejected")
	}
}

func TestListRoomsReportsPeerPresence(t *testing.T) {
	fx := newChatFixture(t)
	customerID, farmerID := uuid.New(), uuid.New()
	room := fx.seedRoom(t, customerID, farmerID)

	if err := fx.presence.Announce(context.Background(), room.ID, farmerID); err != nil {
		t.Fatalf("announce: %v", err)
	}

	rooms, err := fx.svc.ListRooms(context.Background(), customerID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rooms) != 1 {
		t.Fatalf("expected one room, got %d", len(rooms))
	}
	if !rooms[0].PeerOnline {
		t.Fatal("farmer presence should surface to the customer")
	}

	farmerView, err := fx.svc.GetRoom(context.Background(), room.ID, farmerID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if farmerView.PeerOnline {
		t.Fatal("customer is offline, farmer view should say so")
	}
}
