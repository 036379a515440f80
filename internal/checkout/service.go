// Package checkout turns the cart into one chat room per farmer. Room
// creation is the contact point of a purchase: the buyer lands in a
// conversation with each farmer whose goods they carted.
package checkout

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/agroconnect/agroconnect-backend/internal/cart"
	"github.com/agroconnect/agroconnect-backend/internal/chat"
	pkgerrors "github.com/agroconnect/agroconnect-backend/pkg/errors"
	"github.com/agroconnect/agroconnect-backend/pkg/logger"
	"github.com/agroconnect/agroconnect-backend/pkg/metrics"
)

// Result reports what a checkout produced. FirstRoom is where the caller
// should route next.
type Result struct {
	Rooms     []*chat.RoomDTO `json:"rooms"`
	FirstRoom *chat.RoomDTO   `json:"first_room"`
	Failed    int             `json:"failed"`
}

// Service runs the checkout orchestration.
type Service interface {
	Checkout(ctx context.Context, scope cart.Scope, customerID uuid.UUID) (*Result, error)
}

type cartStore interface {
	Load(ctx context.Context, scope cart.Scope) (cart.Cart, error)
	Clear(ctx context.Context, scope cart.Scope) error
}

type roomCreator interface {
	CreateOrGetRoom(ctx context.Context, input chat.CreateRoomInput) (*chat.RoomDTO, error)
}

// ServiceParams collects the service dependencies.
type ServiceParams struct {
	Cart    cartStore
	Rooms   roomCreator
	Logger  *logger.Logger
	Metrics *metrics.CheckoutMetrics
}

type service struct {
	cart  cartStore
	rooms roomCreator
	logg  *logger.Logger
	met   *metrics.CheckoutMetrics
}

// NewService wires the checkout service.
func NewService(params ServiceParams) Service {
	return &service{
		cart:  params.Cart,
		rooms: params.Rooms,
		logg:  params.Logger,
		met:   params.Metrics,
	}
}

// farmerGroup is one farmer's slice of the cart. The room advertises the
// group's first product and its inquired quantity.
type farmerGroup struct {
	farmerID  uuid.UUID
	productID uuid.UUID
	quantity  int
}

// Checkout partitions the cart by farmer and opens one chat room per
// group, all groups at once. One created room is enough to count the
// checkout as placed; only a clean sweep of failures keeps the cart.
func (s *service) Checkout(ctx context.Context, scope cart.Scope, customerID uuid.UUID) (*Result, error) {
	started := time.Now()
	defer func() { s.met.ObserveDuration(time.Since(started)) }()

	loaded, err := s.cart.Load(ctx, scope)
	if err != nil {
		s.met.IncOutcome("failure")
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if len(loaded.Items) == 0 {
		s.met.IncOutcome("failure")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	groups := s.partition(ctx, loaded.Items)
	if len(groups) == 0 {
		s.met.IncOutcome("failure")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no items are attributable to a farmer")
	}

	rooms, errs := s.createRooms(ctx, customerID, groups)
	if len(rooms) == 0 {
		// Total failure. The cart stays put so the buyer can retry.
		s.met.IncOutcome("failure")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, multierr.Combine(errs...), "no chat room could be created")
	}

	if err := s.cart.Clear(ctx, scope); err != nil {
		s.logg.Error(ctx, "clear cart after checkout", err)
	}

	outcome := "success"
	if len(errs) > 0 {
		outcome = "partial"
		s.logg.Warn(ctx, "checkout finished with failed farmer groups: "+multierr.Combine(errs...).Error())
	}
	s.met.IncOutcome(outcome)
	s.met.AddRoomsCreated(len(rooms))

	return &Result{Rooms: rooms, FirstRoom: rooms[0], Failed: len(errs)}, nil
}

// partition buckets items by farmer, dropping anything without one.
// Order is deterministic so the "first room" routing is stable.
func (s *service) partition(ctx context.Context, items []cart.Item) []farmerGroup {
	byFarmer := make(map[uuid.UUID]*farmerGroup)
	var order []uuid.UUID
	for _, item := range items {
		if item.FarmerID == uuid.Nil {
			s.logg.Warn(ctx, "cart item without farmer skipped at checkout: "+item.ProductID.String())
			continue
		}
		group, ok := byFarmer[item.FarmerID]
		if !ok {
			group = &farmerGroup{
				farmerID:  item.FarmerID,
				productID: item.ProductID,
				quantity:  item.Quantity,
			}
			byFarmer[item.FarmerID] = group
			order = append(order, item.FarmerID)
		} else {
			group.quantity += item.Quantity
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i].String() < order[j].String() })
	groups := make([]farmerGroup, 0, len(order))
	for _, farmerID := range order {
		groups = append(groups, *byFarmer[farmerID])
	}
	return groups
}

// createRooms issues every group's room creation concurrently and
// collects the survivors in group order.
func (s *service) createRooms(ctx context.Context, customerID uuid.UUID, groups []farmerGroup) ([]*chat.RoomDTO, []error) {
	type outcome struct {
		room *chat.RoomDTO
		err  error
	}
	outcomes := make([]outcome, len(groups))

	var wg sync.WaitGroup
	for i, group := range groups {
		wg.Add(1)
		go func(i int, group farmerGroup) {
			defer wg.Done()
			productID := group.productID
			room, err := s.rooms.CreateOrGetRoom(ctx, chat.CreateRoomInput{
				CustomerID: customerID,
				FarmerID:   group.farmerID,
				ProductID:  &productID,
				Quantity:   group.quantity,
			})
			outcomes[i] = outcome{room: room, err: err}
		}(i, group)
	}
	wg.Wait()

	var rooms []*chat.RoomDTO
	var errs []error
	for i, out := range outcomes {
		if out.err != nil {
			s.logg.Error(ctx, "create chat room for farmer "+groups[i].farmerID.String(), out.err)
			errs = append(errs, out.err)
			continue
		}
		rooms = append(rooms, out.room)
	}
	return rooms, errs
}
