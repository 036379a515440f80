// Package dashboard aggregates the farmer's home-screen numbers.
package dashboard

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/agroconnect/agroconnect-backend/internal/repo"
	"github.com/agroconnect/agroconnect-backend/pkg/db/models"
	"github.com/agroconnect/agroconnect-backend/pkg/enums"
	pkgerrors "github.com/agroconnect/agroconnect-backend/pkg/errors"
)

// Summary is everything the farmer dashboard shows at a glance.
// Revenue counts paid, shipped and received orders; pending money is
// not revenue yet.
type Summary struct {
	ProductCount  int64                       `json:"product_count"`
	OrdersByState map[enums.OrderStatus]int64 `json:"orders_by_state"`
	Revenue       decimal.Decimal             `json:"revenue"`
	UnreadRooms   int64                       `json:"unread_rooms"`
}

// Service computes the dashboard summary.
type Service interface {
	Summary(ctx context.Context, farmerID uuid.UUID) (*Summary, error)
}

type dashboardRepository interface {
	CountProducts(ctx context.Context, farmerID uuid.UUID) (int64, error)
	CountOrdersByStatus(ctx context.Context, farmerID uuid.UUID) (map[enums.OrderStatus]int64, error)
	SumRevenue(ctx context.Context, farmerID uuid.UUID) (decimal.Decimal, error)
}

type unreadCounter interface {
	CountUnreadRooms(ctx context.Context, userID uuid.UUID) (int64, error)
}

type service struct {
	repo   dashboardRepository
	unread unreadCounter
}

// NewService wires the dashboard service.
func NewService(repo dashboardRepository, unread unreadCounter) Service {
	return &service{repo: repo, unread: unread}
}

// Summary gathers the farmer's counters from Postgres and Redis.
func (s *service) Summary(ctx context.Context, farmerID uuid.UUID) (*Summary, error) {
	productCount, err := s.repo.CountProducts(ctx, farmerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count products")
	}
	orders, err := s.repo.CountOrdersByStatus(ctx, farmerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count orders")
	}
	revenue, err := s.repo.SumRevenue(ctx, farmerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum revenue")
	}
	unread, err := s.unread.CountUnreadRooms(ctx, farmerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count unread rooms")
	}
	return &Summary{
		ProductCount:  productCount,
		OrdersByState: orders,
		Revenue:       revenue,
		UnreadRooms:   unread,
	}, nil
}

// Repository runs the dashboard aggregate queries.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// CountProducts counts the farmer's live listings.
func (r *Repository) CountProducts(ctx context.Context, farmerID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Product{}).
		Where("farmer_id = ?", farmerID).
		Count(&count).Error
	return count, err
}

// CountOrdersByStatus buckets the farmer's orders by lifecycle state.
// Absent states count as zero.
func (r *Repository) CountOrdersByStatus(ctx context.Context, farmerID uuid.UUID) (map[enums.OrderStatus]int64, error) {
	type bucket struct {
		Status enums.OrderStatus
		Total  int64
	}
	var buckets []bucket
	err := r.DB(ctx).Model(&models.Order{}).
		Select("status, count(*) as total").
		Where("farmer_id = ?", farmerID).
		Group("status").
		Find(&buckets).Error
	if err != nil {
		return nil, err
	}
	counts := map[enums.OrderStatus]int64{
		enums.OrderStatusPending:  0,
		enums.OrderStatusPaid:     0,
		enums.OrderStatusShipped:  0,
		enums.OrderStatusReceived: 0,
	}
	for _, b := range buckets {
		counts[b.Status] = b.Total
	}
	return counts, nil
}

// SumRevenue totals every order the farmer has been paid for.
func (r *Repository) SumRevenue(ctx context.Context, farmerID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.DB(ctx).Model(&models.Order{}).
		Select("sum(total)").
		Where("farmer_id = ? AND status IN ?", farmerID, []enums.OrderStatus{
			enums.OrderStatusPaid,
			enums.OrderStatusShipped,
			enums.OrderStatusReceived,
		}).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
