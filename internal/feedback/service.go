// Package feedback stores per-product ratings, one per customer.
package feedback

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agroconnect/agroconnect-backend/internal/repo"
	"github.com/agroconnect/agroconnect-backend/pkg/db/models"
	pkgerrors "github.com/agroconnect/agroconnect-backend/pkg/errors"
)

// SubmitInput is a customer's rating for a product. Submitting again
// replaces the earlier rating.
type SubmitInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Rating    int       `json:"rating" validate:"required,min=1,max=5"`
	Comment   string    `json:"comment" validate:"max=2000"`
}

// FeedbackDTO is the public projection of one rating.
type FeedbackDTO struct {
	ID           uuid.UUID `json:"id"`
	ProductID    uuid.UUID `json:"product_id"`
	CustomerID   uuid.UUID `json:"customer_id"`
	CustomerName string    `json:"customer_name,omitempty"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
}

// Service is the feedback API.
type Service interface {
	Submit(ctx context.Context, customerID uuid.UUID, input SubmitInput) (*FeedbackDTO, error)
	ListForProduct(ctx context.Context, productID uuid.UUID) ([]*FeedbackDTO, error)
}

type feedbackRepository interface {
	Upsert(ctx context.Context, feedback *models.Feedback) (*models.Feedback, error)
	ListForProduct(ctx context.Context, productID uuid.UUID) ([]models.Feedback, error)
}

type productChecker interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

type service struct {
	repo     feedbackRepository
	products productChecker
}

// NewService wires the feedback service.
func NewService(repo feedbackRepository, products productChecker) Service {
	return &service{repo: repo, products: products}
}

// Submit creates the customer's rating or replaces their previous one.
func (s *service) Submit(ctx context.Context, customerID uuid.UUID, input SubmitInput) (*FeedbackDTO, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	found, err := s.products.FindByIDs(ctx, []uuid.UUID{input.ProductID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "look up product")
	}
	if len(found) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	saved, err := s.repo.Upsert(ctx, &models.Feedback{
		ProductID:  input.ProductID,
		CustomerID: customerID,
		Rating:     input.Rating,
		Comment:    strings.TrimSpace(input.Comment),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save feedback")
	}
	return fromModel(saved), nil
}

// ListForProduct returns the product's ratings, newest first.
func (s *service) ListForProduct(ctx context.Context, productID uuid.UUID) ([]*FeedbackDTO, error) {
	rows, err := s.repo.ListForProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []*FeedbackDTO{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list feedback")
	}
	dtos := make([]*FeedbackDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, fromModel(&rows[i]))
	}
	return dtos, nil
}

func fromModel(feedback *models.Feedback) *FeedbackDTO {
	dto := &FeedbackDTO{
		ID:         feedback.ID,
		ProductID:  feedback.ProductID,
		CustomerID: feedback.CustomerID,
		Rating:     feedback.Rating,
		Comment:    feedback.Comment,
		CreatedAt:  feedback.CreatedAt,
	}
	if feedback.Customer != nil {
		dto.CustomerName = feedback.Customer.FullName
	}
	return dto
}

// Repository persists feedback rows.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Upsert inserts the rating or, on the (product, customer) unique index,
// overwrites the previous one.
func (r *Repository) Upsert(ctx context.Context, feedback *models.Feedback) (*models.Feedback, error) {
	err := r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "customer_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "comment", "updated_at"}),
	}).Create(feedback).Error
	if err != nil {
		return nil, err
	}
	return feedback, nil
}

// ListForProduct returns the product's ratings with their authors.
func (r *Repository) ListForProduct(ctx context.Context, productID uuid.UUID) ([]models.Feedback, error) {
	var rows []models.Feedback
	err := r.DB(ctx).
		Preload("Customer").
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
