// Package news serves the public agricultural news feed.
package news

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agroconnect/agroconnect-backend/internal/repo"
	"github.com/agroconnect/agroconnect-backend/pkg/db/models"
	pkgerrors "github.com/agroconnect/agroconnect-backend/pkg/errors"
	"github.com/agroconnect/agroconnect-backend/pkg/pagination"
)

// CreateArticleInput publishes a new article.
type CreateArticleInput struct {
	Title       string     `json:"title" validate:"required,max=300"`
	Body        string     `json:"body" validate:"required"`
	ImageURL    *string    `json:"image_url,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// ArticleDTO is the feed projection of one article.
type ArticleDTO struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	ImageURL    *string   `json:"image_url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Service is the news API.
type Service interface {
	Create(ctx context.Context, input CreateArticleInput) (*ArticleDTO, error)
	List(ctx context.Context, params pagination.Params) (*pagination.Page[*ArticleDTO], error)
}

type articleRepository interface {
	Create(ctx context.Context, article *models.NewsArticle) (*models.NewsArticle, error)
	List(ctx context.Context, params pagination.Params) ([]models.NewsArticle, error)
}

type service struct {
	repo articleRepository
	now  func() time.Time
}

// NewService wires the news service.
func NewService(repo articleRepository) Service {
	return &service{repo: repo, now: time.Now}
}

// Create publishes an article, dated now unless told otherwise.
func (s *service) Create(ctx context.Context, input CreateArticleInput) (*ArticleDTO, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" || strings.TrimSpace(input.Body) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and body are required")
	}
	publishedAt := s.now()
	if input.PublishedAt != nil {
		publishedAt = *input.PublishedAt
	}
	created, err := s.repo.Create(ctx, &models.NewsArticle{
		Title:       title,
		Body:        input.Body,
		ImageURL:    input.ImageURL,
		PublishedAt: publishedAt,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create article")
	}
	return fromModel(created), nil
}

// List pages the feed newest first. An empty feed is an empty page.
func (s *service) List(ctx context.Context, params pagination.Params) (*pagination.Page[*ArticleDTO], error) {
	rows, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list articles")
	}
	dtos := make([]*ArticleDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, fromModel(&rows[i]))
	}
	page := pagination.NewPage(dtos, params.Limit, func(dto *ArticleDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: dto.CreatedAt, ID: dto.ID}
	})
	return &page, nil
}

func fromModel(article *models.NewsArticle) *ArticleDTO {
	return &ArticleDTO{
		ID:          article.ID,
		Title:       article.Title,
		Body:        article.Body,
		ImageURL:    article.ImageURL,
		PublishedAt: article.PublishedAt,
		CreatedAt:   article.CreatedAt,
	}
}

// Repository persists news articles.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create inserts the article.
func (r *Repository) Create(ctx context.Context, article *models.NewsArticle) (*models.NewsArticle, error) {
	if err := r.DB(ctx).Create(article).Error; err != nil {
		return nil, err
	}
	return article, nil
}

// List returns a page of articles, newest first.
func (r *Repository) List(ctx context.Context, params pagination.Params) ([]models.NewsArticle, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	query := repo.ApplyCursor(r.DB(ctx).Model(&models.NewsArticle{}), cursor).
		Limit(pagination.LimitWithBuffer(params.Limit))

	var rows []models.NewsArticle
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
