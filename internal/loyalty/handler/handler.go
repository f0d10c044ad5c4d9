package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/greenbasket/groupbuy-service/internal/apperr"
	"github.com/greenbasket/groupbuy-service/internal/auth"
	"github.com/greenbasket/groupbuy-service/internal/loyalty"
	"github.com/greenbasket/groupbuy-service/internal/rest"
	"go.uber.org/zap"
)

type LoyaltyHandler struct {
	uc     loyalty.UseCase
	logger *zap.Logger
}

func NewLoyaltyHandler(uc loyalty.UseCase, log *zap.Logger) *LoyaltyHandler {
	return &LoyaltyHandler{uc: uc, logger: log}
}

func (h *LoyaltyHandler) Register(r chi.Router) {
	r.Route("/me", func(r chi.Router) {
		r.Get("/", h.me)
		r.Get("/points", h.pointHistory)
	})
	r.With(requireAdmin).Post("/admin/users/{id}/points", h.adjustPoints)
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

func (h *LoyaltyHandler) me(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())
	if userID == "" {
		rest.WriteError(w, h.logger, apperr.ErrForbidden)
		return
	}
	user, err := h.uc.GetUser(r.Context(), userID)
	if err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, user)
}

func (h *LoyaltyHandler) pointHistory(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())
	if userID == "" {
		rest.WriteError(w, h.logger, apperr.ErrForbidden)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := h.uc.GetPointHistory(r.Context(), userID, limit)
	if err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, map[string]any{"points": logs})
}

type adjustRequest struct {
	Amount int    `json:"amount" validate:"required"`
	Reason string `json:"reason" validate:"required"`
}

func (h *LoyaltyHandler) adjustPoints(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := rest.Decode(r, &req); err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	user, err := h.uc.AdjustPoints(r.Context(), chi.URLParam(r, "id"), req.Amount, req.Reason)
	if err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, user)
}
