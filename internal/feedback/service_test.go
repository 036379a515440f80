package feedback

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/agroconnect/agroconnect-backend/pkg/db/models"
	pkgerrors "github.com/agroconnect/agroconnect-backend/pkg/errors"
)

type fakeFeedbackRepo struct {
	rows map[string]*models.Feedback
}

func pairKey(productID, customerID uuid.UUID) string {
	return productID.String() + ":" + customerID.String()
}

func (f *fakeFeedbackRepo) Upsert(ctx context.Context, feedback *models.Feedback) (*models.Feedback, error) {
	key := pairKey(feedback.ProductID, feedback.CustomerID)
	if existing, ok := f.rows[key]; ok {
		existing.Rating = feedback.Rating
		existing.Comment = feedback.Comment
		return existing, nil
	}
	feedback.ID = uuid.New()
	f.rows[key] = feedback
	return feedback, nil
}

func (f *fakeFeedbackRepo) ListForProduct(ctx context.Context, productID uuid.UUID) ([]models.Feedback, error) {
	var out []models.Feedback
	for _, row := range f.rows {
		if row.ProductID == productID {
			out = append(out, *row)
		}
	}
	return out, nil
}

type fakeProducts struct {
	known map[uuid.UUID]bool
}

func (f *fakeProducts) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var out []models.Product
	for _, id := range ids {
		if f.known[id] {
			out = append(out, models.Product{ID: id})
		}
	}
	return out, nil
}

func newFeedbackService(productIDs ...uuid.UUID) (Service, *fakeFeedbackRepo) {
	repo := &fakeFeedbackRepo{rows: map[string]*models.Feedback{}}
	known := map[uuid.UUID]bool{}
	for _, id := range productIDs {
		known[id] = true
	}
	return NewService(repo, &fakeProducts{known: known}), repo
}

func TestSubmitCreatesThenReplaces(t *testing.T) {
	productID := uuid.New()
	svc, repo := newFeedbackService(productID)
	customerID := uuid.New()

	first, err := svc.Submit(context.Background(), customerID, SubmitInput{
		ProductID: productID, Rating: 4, Comment: "  good carrots  ",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if first.Comment != "good carrots" {
		t.Fatalf("expected trimmed comment, got %q", first.Comment)
	}

	second, err := svc.Submit(context.Background(), customerID, SubmitInput{
		ProductID: productID, Rating: 2, Comment: "went soft",
	})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("resubmitting must replace, not duplicate")
	}
	if len(repo.rows) != 1 {
		t.Fatalf("expected one row per (product, customer), got %d", len(repo.rows))
	}
	if repo.rows[pairKey(productID, customerID)].Rating != 2 {
		t.Fatal("the newer rating should win")
	}
}

func TestSubmitValidation(t *testing.T) {
	productID := uuid.New()
	svc, _ := newFeedbackService(productID)
	customerID := uuid.New()

	tests := []struct {
		name  string
		input SubmitInput
		want  pkgerrors.Code
	}{
		{"rating too low", SubmitInput{ProductID: productID, Rating: 0}, pkgerrors.CodeValidation},
		{"rating too high", SubmitInput{ProductID: productID, Rating: 6}, pkgerrors.CodeValidation},
		{"unknown product", SubmitInput{ProductID: uuid.New(), Rating: 3}, pkgerrors.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), customerID, tt.input)
			coded := pkgerrors.As(err)
			if coded == nil || coded.Code() != tt.want {
				t.Fatalf("expected %s, got %v", tt.want, err)
			}
		})
	}
}

func TestListForProductScopesToProduct(t *testing.T) {
	productA, productB := uuid.New(), uuid.New()
	svc, _ := newFeedbackService(productA, productB)

	if _, err := svc.Submit(context.Background(), uuid.New(), SubmitInput{ProductID: productA, Rating: 5}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.Submit(context.Background(), uuid.New(), SubmitInput{ProductID: productB, Rating: 1}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	rows, err := svc.ListForProduct(context.Background(), productA)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].Rating != 5 {
		t.Fatalf("expected only product A's feedback, got %+v", rows)
	}
}
