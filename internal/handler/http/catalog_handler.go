package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/product-management/internal/auth"
	"github.com/vasiliy-maslov/product-management/internal/catalog"
)

type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type CreateProductRequest struct {
	Name        string           `json:"name" validate:"required,max=200"`
	Description string           `json:"description" validate:"max=2000"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	CategoryID  uuid.UUID        `json:"category_id" validate:"required"`
	Quantity    *int             `json:"quantity" validate:"omitempty,gte=0"`
}

// UpdateProductRequest is a partial patch: absent fields stay unchanged.
type UpdateProductRequest struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description" validate:"omitempty,max=2000"`
	Price       *decimal.Decimal `json:"price"`
	CategoryID  *uuid.UUID       `json:"category_id"`
	Enabled     *bool            `json:"enabled"`
	Quantity    *int             `json:"quantity" validate:"omitempty,gte=0"`
}

type CategoryHandler struct {
	service  catalog.Service
	validate *validator.Validate
}

func NewCategoryHandler(service catalog.Service) *CategoryHandler {
	return &CategoryHandler{service: service, validate: newValidator()}
}

func (h *CategoryHandler) RegisterRoutes(router chi.Router, authn *auth.Authenticator) {
	router.Get("/categories", h.handleList)
	router.Get("/categories/{id}", h.handleGet)

	router.Group(func(r chi.Router) {
		r.Use(authn.Require(auth.CapCategoryWrite))
		r.Post("/categories", h.handleCreate)
		r.Put("/categories/{id}", h.handleUpdate)
		r.Delete("/categories/{id}", h.handleDelete)
	})
}

func (h *CategoryHandler) handleList(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Categories retrieved", categories)
}

func (h *CategoryHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	category, err := h.service.GetCategory(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Category retrieved", category)
}

func (h *CategoryHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	category, err := h.service.CreateCategory(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusCreated, "Category created successfully", category)
}

func (h *CategoryHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req CategoryRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	category, err := h.service.UpdateCategory(r.Context(), id, req.Name, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Category updated successfully", category)
}

func (h *CategoryHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Category deleted successfully", nil)
}

type ProductHandler struct {
	service  catalog.Service
	validate *validator.Validate
}

func NewProductHandler(service catalog.Service) *ProductHandler {
	return &ProductHandler{service: service, validate: newValidator()}
}

func (h *ProductHandler) RegisterRoutes(router chi.Router, authn *auth.Authenticator) {
	router.Get("/products", h.handleList)
	router.Get("/products/{id}", h.handleGet)
	router.Get("/products/category/{categoryId}", h.handleListByCategory)

	router.Group(func(r chi.Router) {
		r.Use(authn.Require(auth.CapCatalogWrite))
		r.Post("/products", h.handleCreate)
		r.Put("/products/{id}", h.handleUpdate)
		r.Delete("/products/{id}", h.handleDelete)
	})
}

// seesDisabled: catalog managers also read disabled products.
func seesDisabled(r *http.Request) bool {
	p := auth.FromContext(r.Context())
	return p != nil && auth.Allowed(auth.CapCatalogWrite, p.Roles)
}

func (h *ProductHandler) handleList(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context(), catalog.ProductFilter{IncludeDisabled: seesDisabled(r)})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Products retrieved", products)
}

func (h *ProductHandler) handleListByCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(w, r, "categoryId")
	if !ok {
		return
	}
	products, err := h.service.ListProducts(r.Context(), catalog.ProductFilter{
		CategoryID:      &categoryID,
		IncludeDisabled: seesDisabled(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Products retrieved", products)
}

func (h *ProductHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	product, err := h.service.GetProduct(r.Context(), id, seesDisabled(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Product retrieved", product)
}

func (h *ProductHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	input := catalog.NewProduct{
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		CategoryID:  req.CategoryID,
	}
	if req.Quantity != nil {
		input.Quantity = *req.Quantity
	}

	product, err := h.service.CreateProduct(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusCreated, "Product created successfully", product)
}

func (h *ProductHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateProductRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), id, catalog.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		Enabled:     req.Enabled,
		Quantity:    req.Quantity,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Product updated successfully", product)
}

func (h *ProductHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Product deleted successfully", nil)
}
