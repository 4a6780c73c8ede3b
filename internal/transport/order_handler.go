package transport

import (
	"net/http"

	"clothes-shop/internal/domain"
	"clothes-shop/internal/middleware"
	"clothes-shop/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderItemRequest is one requested product of an order
type OrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity"`
}

// RecipientRequest overrides the delivery contact. Empty fields default to
// the caller's profile.
type RecipientRequest struct {
	Name    string `json:"name" validate:"max=100"`
	Phone   string `json:"phone" validate:"max=20"`
	Address string `json:"address" validate:"max=255"`
}

// PlaceOrderRequest represents the order placement payload. Item count and
// quantity rules are enforced by the placement workflow so that its checks
// run in their documented order.
type PlaceOrderRequest struct {
	Source          string             `json:"source" validate:"required,purchase_source"`
	PaymentMethodID string             `json:"payment_method_id" validate:"required,uuid"`
	Items           []OrderItemRequest `json:"items" validate:"dive"`
	Recipient       RecipientRequest   `json:"recipient"`
}

func (req PlaceOrderRequest) input() service.PlaceOrderInput {
	items := make([]service.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.OrderItem{
			ProductID: uuid.MustParse(item.ProductID),
			Quantity:  item.Quantity,
		})
	}
	return service.PlaceOrderInput{
		Source:          domain.PurchaseSource(req.Source),
		PaymentMethodID: uuid.MustParse(req.PaymentMethodID),
		Items:           items,
		Recipient: domain.Recipient{
			Name:    req.Recipient.Name,
			Phone:   req.Recipient.Phone,
			Address: req.Recipient.Address,
		},
	}
}

// RateProductRequest rates one product of a completed order
type RateProductRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Rating    *int   `json:"rating" validate:"required"`
}

// OrderHandler handles HTTP requests for the caller's orders
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers all order routes. orderLimiter guards placement
// and runs after authentication so callers are keyed by user.
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware, orderLimiter func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/", h.ListOrders)
		r.With(orderLimiter).Post("/", h.PlaceOrder)
		r.Get("/{orderID}", h.GetOrder)
		r.Post("/{orderID}/cancel", h.CancelOrder)
		r.Post("/{orderID}/rating", h.RateProduct)
	})
}

// PlaceOrder runs the placement workflow for the caller
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	order, err := h.orderService.PlaceOrder(r.Context(), middleware.GetIdentity(r.Context()), req.input())
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.ListOrders(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	if orders == nil {
		orders = []*domain.Order{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "orderID")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), middleware.GetIdentity(r.Context()), orderID)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "orderID")
	if !ok {
		return
	}

	order, err := h.orderService.CancelOrder(r.Context(), middleware.GetIdentity(r.Context()), orderID)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) RateProduct(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "orderID")
	if !ok {
		return
	}

	var req RateProductRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	line, err := h.orderService.RateProduct(r.Context(), middleware.GetIdentity(r.Context()), orderID, uuid.MustParse(req.ProductID), *req.Rating)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, line)
}
