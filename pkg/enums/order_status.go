package enums

// OrderStatus tracks the order payment/fulfillment lifecycle.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusPaid     OrderStatus = "paid"
	OrderStatusShipped  OrderStatus = "shipped"
	OrderStatusReceived OrderStatus = "received"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped, OrderStatusReceived:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows moving to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusPaid
	case OrderStatusPaid:
		return next == OrderStatusShipped
	case OrderStatusShipped:
		return next == OrderStatusReceived
	}
	return false
}

// RoomOrderStatus mirrors the coarse status badge shown on a chat room.
type RoomOrderStatus string

const (
	RoomOrderNew       RoomOrderStatus = "new"
	RoomOrderActive    RoomOrderStatus = "active"
	RoomOrderCompleted RoomOrderStatus = "completed"
)

func (s RoomOrderStatus) IsValid() bool {
	switch s {
	case RoomOrderNew, RoomOrderActive, RoomOrderCompleted:
		return true
	}
	return false
}
