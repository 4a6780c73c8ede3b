package transport

import (
	"net/http"

	"clothes-shop/internal/domain"
	"clothes-shop/internal/middleware"
	"clothes-shop/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UpdateOrderStatusRequest moves an order to its next status
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,order_status"`
}

// EditLockRequest locks or unlocks editing for non-superuser admins
type EditLockRequest struct {
	Locked *bool `json:"locked" validate:"required"`
}

// AdminHandler serves order administration and the edit policy settings
type AdminHandler struct {
	orderService  service.OrderService
	policyService service.PolicyService
	logger        *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(orderService service.OrderService, policyService service.PolicyService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		orderService:  orderService,
		policyService: policyService,
		logger:        logger,
	}
}

// RegisterRoutes registers admin routes on a router that already requires an
// admin
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Put("/orders/{orderID}/status", h.UpdateOrderStatus)
	r.Get("/settings/edit-lock", h.GetEditLock)
	r.Put("/settings/edit-lock", h.SetEditLock)
}

func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "orderID")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	order, err := h.orderService.AdvanceStatus(r.Context(), middleware.GetIdentity(r.Context()), orderID, domain.OrderStatus(req.Status))
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func (h *AdminHandler) GetEditLock(w http.ResponseWriter, r *http.Request) {
	settings, err := h.policyService.GetSettings(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, settings)
}

func (h *AdminHandler) SetEditLock(w http.ResponseWriter, r *http.Request) {
	var req EditLockRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	settings, err := h.policyService.SetEditLock(r.Context(), middleware.GetIdentity(r.Context()), *req.Locked)
	if err != nil {
		middleware.RespondWithDomainError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, settings)
}
