package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/greenbasket/groupbuy-service/internal/apperr"
	"github.com/greenbasket/groupbuy-service/internal/auth"
	"github.com/greenbasket/groupbuy-service/internal/model"
	"github.com/greenbasket/groupbuy-service/internal/order"
	"github.com/greenbasket/groupbuy-service/internal/order/dto"
	"github.com/greenbasket/groupbuy-service/internal/rest"
	"go.uber.org/zap"
)

type OrderHandler struct {
	uc     order.UseCase
	logger *zap.Logger
}

func NewOrderHandler(uc order.UseCase, log *zap.Logger) *OrderHandler {
	return &OrderHandler{uc: uc, logger: log}
}

func (h *OrderHandler) Register(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.reserve)
		r.Get("/", h.listMine)
		r.Get("/{id}", h.get)
		r.Post("/{id}/cancel", h.cancel)
		r.Patch("/{id}/notes", h.updateNotes)
		r.Patch("/{id}/bookmark", h.toggleBookmark)
	})
	r.Route("/admin/orders", func(r chi.Router) {
		r.Use(requireAdmin)
		r.Post("/{id}/status", h.transition)
		r.Post("/status", h.batchTransition)
		r.Post("/cancel", h.batchCancel)
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsAdmin(r.Context()) {
			rest.WriteJSON(w, http.StatusForbidden, map[string]string{"error": "admin only"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *OrderHandler) reserve(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())
	if userID == "" {
		rest.WriteError(w, h.logger, apperr.ErrForbidden)
		return
	}

	var input dto.ReserveInput
	if err := rest.Decode(r, &input); err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	input.UserID = userID

	result, err := h.uc.Reserve(r.Context(), &input)
	if err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, result)
}

func (h *OrderHandler) listMine(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())
	if userID == "" {
		rest.WriteError(w, h.logger, apperr.ErrForbidden)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	orders, total, err := h.uc.ListUserOrders(r.Context(), &dto.ListOrdersFilters{
		UserID:   userID,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, map[string]any{
		"orders": orders,
		"total":  total,
	})
}

func (h *OrderHandler) get(w http.ResponseWriter, r *http.Request) {
	o, err := h.uc.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	// Owners and admins only; others get the same 404 as a missing id.
	if o.UserID != auth.GetUserID(r.Context()) && !auth.IsAdmin(r.Context()) {
		rest.WriteError(w, h.logger, apperr.ErrNotFound)
		return
	}
	rest.WriteJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) cancel(w http.ResponseWriter, r *http.Request) {
	err := h.uc.Cancel(r.Context(), chi.URLParam(r, "id"), auth.GetUserID(r.Context()))
	if err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, map[string]string{"status": string(model.StatusCanceled)})
}

func (h *OrderHandler) transition(w http.ResponseWriter, r *http.Request) {
	var input dto.TransitionInput
	if err := rest.Decode(r, &input); err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}

	err := h.uc.Transition(r.Context(), chi.URLParam(r, "id"), input.NewStatus)
	if err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, map[string]string{"status": string(input.NewStatus)})
}

type batchRequest struct {
	OrderIDs  []string          `json:"order_ids" validate:"required,min=1"`
	NewStatus model.OrderStatus `json:"new_status"`
}

func (h *OrderHandler) batchTransition(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := rest.Decode(r, &req); err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	if req.NewStatus == "" {
		rest.WriteError(w, h.logger, apperr.New(apperr.CodeInvalidArgument, "new_status is required"))
		return
	}
	outcomes := h.uc.BatchTransition(r.Context(), req.OrderIDs, req.NewStatus)
	rest.WriteJSON(w, http.StatusOK, map[string]any{"outcomes": outcomes})
}

func (h *OrderHandler) batchCancel(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := rest.Decode(r, &req); err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	outcomes := h.uc.BatchCancel(r.Context(), req.OrderIDs)
	rest.WriteJSON(w, http.StatusOK, map[string]any{"outcomes": outcomes})
}

type notesRequest struct {
	Notes string `json:"notes"`
}

func (h *OrderHandler) updateNotes(w http.ResponseWriter, r *http.Request) {
	o, err := h.ownOrder(r)
	if err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}

	var req notesRequest
	if err := rest.Decode(r, &req); err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	if err := h.uc.UpdateNotes(r.Context(), o.ID, req.Notes); err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type bookmarkRequest struct {
	Bookmarked bool `json:"bookmarked"`
}

func (h *OrderHandler) toggleBookmark(w http.ResponseWriter, r *http.Request) {
	o, err := h.ownOrder(r)
	if err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}

	var req bookmarkRequest
	if err := rest.Decode(r, &req); err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	if err := h.uc.ToggleBookmark(r.Context(), o.ID, req.Bookmarked); err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *OrderHandler) ownOrder(r *http.Request) (*model.Order, error) {
	o, err := h.uc.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if o.UserID != auth.GetUserID(r.Context()) {
		return nil, apperr.ErrForbidden
	}
	return o, nil
}
