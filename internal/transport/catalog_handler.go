package transport

import (
	"net/http"
	"strings"

	"clothes-shop/internal/domain"
	"clothes-shop/internal/middleware"
	"clothes-shop/internal/repository"
	"clothes-shop/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductRequest is the payload of product create and update
type ProductRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description string  `json:"description"`
	Price       int64   `json:"price" validate:"gte=0"`
	CategoryID  *string `json:"category_id" validate:"omitempty,uuid"`
	ImageURL    string  `json:"image_url" validate:"omitempty,url"`
	Stock       *int    `json:"stock" validate:"omitempty,gte=0"`
}

func (req ProductRequest) input() service.ProductInput {
	input := service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
		Stock:       req.Stock,
	}
	if req.CategoryID != nil {
		id := uuid.MustParse(*req.CategoryID)
		input.CategoryID = &id
	}
	return input
}

// CategoryRequest is the payload of category create and update
type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
}

// ProductResponse is a product with its derived stock status
type ProductResponse struct {
	*domain.Product
	Status domain.ProductStatus `json:"status"`
}

func newProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{Product: p, Status: p.Status()}
}

// ProductPageResponse is one page of products
type ProductPageResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

func newProductPageResponse(page *service.ProductPage) ProductPageResponse {
	products := make([]ProductResponse, 0, len(page.Products))
	for _, p := range page.Products {
		products = append(products, newProductResponse(p))
	}
	return ProductPageResponse{
		Products: products,
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}
}

// CatalogHandler serves products, categories and payment methods
type CatalogHandler struct {
	catalogService service.CatalogService
	logger         *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalogService service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// RegisterRoutes registers the public catalog routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/categories", h.ListCategories)
	r.Get("/api/payment-methods", h.ListPaymentMethods)

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/search", h.SearchProducts)
		r.Get("/{productID}", h.GetProduct)
	})
}

// RegisterAdminRoutes registers catalog mutations on a router that already
// requires an admin
func (h *CatalogHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/products", h.CreateProduct)
	r.Put("/products/{productID}", h.UpdateProduct)
	r.Delete("/products/{productID}", h.DeleteProduct)

	r.Post("/categories", h.CreateCategory)
	r.Put("/categories/{categoryID}", h.UpdateCategory)
	r.Delete("/categories/{categoryID}", h.DeleteCategory)
}

// ListProducts returns a page of products. Supported query parameters are
// category_id, page, page_size, sort_by and sort_order.
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := service.ProductFilter{
		Page:      queryInt(r, "page", 1),
		PageSize:  queryInt(r, "page_size", service.DefaultPageSize),
		SortBy:    query.Get("sort_by"),
		SortOrder: repository.SortOrder(strings.ToUpper(query.Get("sort_order"))),
	}
	if raw := query.Get("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid category_id")
			return
		}
		filter.CategoryID = &id
	}

	page, err := h.catalogService.ListProducts(r.Context(), filter)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newProductPageResponse(page))
}

// SearchProducts matches the q parameter against product names and
// descriptions
func (h *CatalogHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		middleware.RespondWithError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	page, err := h.catalogService.SearchProducts(r.Context(), q, queryInt(r, "page", 1), queryInt(r, "page_size", service.DefaultPageSize))
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newProductPageResponse(page))
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "productID")
	if !ok {
		return
	}

	product, err := h.catalogService.GetProduct(r.Context(), id)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newProductResponse(product))
}

func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	product, err := h.catalogService.CreateProduct(r.Context(), middleware.GetIdentity(r.Context()), req.input())
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, newProductResponse(product))
}

func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "productID")
	if !ok {
		return
	}

	var req ProductRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	product, err := h.catalogService.UpdateProduct(r.Context(), middleware.GetIdentity(r.Context()), id, req.input())
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newProductResponse(product))
}

func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "productID")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteProduct(r.Context(), middleware.GetIdentity(r.Context()), id); err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalogService.ListCategories(r.Context())
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	category, err := h.catalogService.CreateCategory(r.Context(), middleware.GetIdentity(r.Context()), req.Name, req.Description)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, category)
}

func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "categoryID")
	if !ok {
		return
	}

	var req CategoryRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	category, err := h.catalogService.UpdateCategory(r.Context(), middleware.GetIdentity(r.Context()), id, req.Name, req.Description)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, category)
}

func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "categoryID")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteCategory(r.Context(), middleware.GetIdentity(r.Context()), id); err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.catalogService.ListPaymentMethods(r.Context())
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, methods)
}
