package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agroconnect/agroconnect-backend/pkg/enums"
	pkgerrors "github.com/agroconnect/agroconnect-backend/pkg/errors"
)

type fakeDashboardRepo struct {
	products int64
	orders   map[enums.OrderStatus]int64
	revenue  decimal.Decimal
	err      error
}

func (f *fakeDashboardRepo) CountProducts(ctx context.Context, farmerID uuid.UUID) (int64, error) {
	return f.products, f.err
}

func (f *fakeDashboardRepo) CountOrdersByStatus(ctx context.Context, farmerID uuid.UUID) (map[enums.OrderStatus]int64, error) {
	return f.orders, f.err
}

func (f *fakeDashboardRepo) SumRevenue(ctx context.Context, farmerID uuid.UUID) (decimal.Decimal, error) {
	return f.revenue, f.err
}

type fakeUnread struct {
	count int64
}

func (f *fakeUnread) CountUnreadRooms(ctx context.Context, userID uuid.UUID) (int64, error) {
	return f.count, nil
}

func TestSummaryCombinesAllSources(t *testing.T) {
	repo := &fakeDashboardRepo{
		products: 12,
		orders: map[enums.OrderStatus]int64{
			enums.OrderStatusPending:  3,
			enums.OrderStatusPaid:     2,
			enums.OrderStatusShipped:  0,
			enums.OrderStatusReceived: 7,
		},
		revenue: decimal.NewFromInt(1430),
	}
	svc := NewService(repo, &fakeUnread{count: 4})

	summary, err := svc.Summary(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.ProductCount != 12 {
		t.Fatalf("expected 12 products, got %d", summary.ProductCount)
	}
	if summary.OrdersByState[enums.OrderStatusReceived] != 7 {
		t.Fatalf("unexpected order buckets %+v", summary.OrdersByState)
	}
	if !summary.Revenue.Equal(decimal.NewFromInt(1430)) {
		t.Fatalf("expected revenue 1430, got %s", summary.Revenue)
	}
	if summary.UnreadRooms != 4 {
		t.Fatalf("expected 4 unread rooms, got %d", summary.UnreadRooms)
	}
}

func TestSummarySurfacesRepoFailures(t *testing.T) {
	repo := &fakeDashboardRepo{err: errors.New("db down")}
	svc := NewService(repo, &fakeUnread{})

	_, err := svc.Summary(context.Background(), uuid.New())
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeInternal {
		t.Fatalf("expected an internal error, got %v", err)
	}
}
