package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agroconnect/agroconnect-backend/api/responses"
	"github.com/agroconnect/agroconnect-backend/api/validators"
	productsvc "github.com/agroconnect/agroconnect-backend/internal/products"
	"github.com/agroconnect/agroconnect-backend/pkg/enums"
	pkgerrors "github.com/agroconnect/agroconnect-backend/pkg/errors"
	"github.com/agroconnect/agroconnect-backend/pkg/logger"
)

type createProductRequest struct {
	Name          string          `json:"name" validate:"required"`
	Category      string          `json:"category" validate:"required"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price" validate:"required"`
	DiscountPct   int             `json:"discount_pct" validate:"omitempty,min=0,max=90"`
	StockQuantity decimal.Decimal `json:"stock_quantity" validate:"required"`
	ImageURL      string          `json:"image_url"`
	ImageURL2     *string         `json:"image_url_2,omitempty"`
	ImageURL3     *string         `json:"image_url_3,omitempty"`
}

func (req createProductRequest) toInput() (productsvc.CreateProductInput, error) {
	category := enums.ProductCategory(strings.TrimSpace(req.Category))
	if !category.IsValid() {
		return productsvc.CreateProductInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid category").
			WithDetails(map[string]any{"category": req.Category})
	}
	return productsvc.CreateProductInput{
		Name:          req.Name,
		Category:      category,
		Description:   req.Description,
		Price:         req.Price,
		DiscountPct:   req.DiscountPct,
		StockQuantity: req.StockQuantity,
		ImageURL:      req.ImageURL,
		ImageURL2:     req.ImageURL2,
		ImageURL3:     req.ImageURL3,
	}, nil
}

type updateProductRequest struct {
	Name          *string          `json:"name,omitempty"`
	Category      *string          `json:"category,omitempty"`
	Description   *string          `json:"description,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	DiscountPct   *int             `json:"discount_pct,omitempty" validate:"omitempty,min=0,max=90"`
	StockQuantity *decimal.Decimal `json:"stock_quantity,omitempty"`
	ImageURL      *string          `json:"image_url,omitempty"`
	ImageURL2     *string          `json:"image_url_2,omitempty"`
	ImageURL3     *string          `json:"image_url_3,omitempty"`
}

func (req updateProductRequest) toInput() (productsvc.UpdateProductInput, error) {
	input := productsvc.UpdateProductInput{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		DiscountPct:   req.DiscountPct,
		StockQuantity: req.StockQuantity,
		ImageURL:      req.ImageURL,
		ImageURL2:     req.ImageURL2,
		ImageURL3:     req.ImageURL3,
	}
	if req.Category != nil {
		category := enums.ProductCategory(strings.TrimSpace(*req.Category))
		if !category.IsValid() {
			return productsvc.UpdateProductInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid category").
				WithDetails(map[string]any{"category": *req.Category})
		}
		input.Category = &category
	}
	return input, nil
}

// CreateProduct handles listing creation for farmers.
func CreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		farmerID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), farmerID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// UpdateProduct applies partial edits to one of the farmer's listings.
func UpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		farmerID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), farmerID, productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// DeleteProduct removes one of the farmer's listings.
func DeleteProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		farmerID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), farmerID, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// GetProduct returns one listing with its seller snippet.
func GetProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseUUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// ListProducts returns the paginated catalogue with optional filters.
func ListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := productsvc.ListProductsInput{
			Search:     strings.TrimSpace(r.URL.Query().Get("search")),
			Pagination: params,
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
			category := enums.ProductCategory(raw)
			if !category.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid category").
					WithDetails(map[string]any{"category": raw}))
				return
			}
			input.Category = &category
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("farmer_id")); raw != "" {
			farmerID, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid farmer_id"))
				return
			}
			input.FarmerID = &farmerID
		}

		page, err := svc.ListProducts(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}
