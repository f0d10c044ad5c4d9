package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/greenbasket/groupbuy-service/internal/apperr"
	"github.com/greenbasket/groupbuy-service/internal/auth"
	"github.com/greenbasket/groupbuy-service/internal/rest"
	"github.com/greenbasket/groupbuy-service/internal/waitlist"
	"github.com/greenbasket/groupbuy-service/internal/waitlist/dto"
	"go.uber.org/zap"
)

type WaitlistHandler struct {
	uc     waitlist.UseCase
	logger *zap.Logger
}

func NewWaitlistHandler(uc waitlist.UseCase, log *zap.Logger) *WaitlistHandler {
	return &WaitlistHandler{uc: uc, logger: log}
}

func (h *WaitlistHandler) Register(r chi.Router) {
	r.Route("/waitlist", func(r chi.Router) {
		r.Post("/", h.join)
		r.Get("/", h.listMine)
		r.Delete("/{id}", h.withdraw)
		r.Post("/{id}/prioritize", h.prioritize)
	})
	r.With(requireAdmin).Post("/admin/waitlist/promote", h.promote)
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

func (h *WaitlistHandler) join(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())
	if userID == "" {
		rest.WriteError(w, h.logger, apperr.ErrForbidden)
		return
	}

	var input dto.JoinInput
	if err := rest.Decode(r, &input); err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	input.UserID = userID

	entry, err := h.uc.Join(r.Context(), &input)
	if err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, entry)
}

func (h *WaitlistHandler) listMine(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())
	if userID == "" {
		rest.WriteError(w, h.logger, apperr.ErrForbidden)
		return
	}
	entries, err := h.uc.ListForUser(r.Context(), userID)
	if err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *WaitlistHandler) withdraw(w http.ResponseWriter, r *http.Request) {
	err := h.uc.Withdraw(r.Context(), chi.URLParam(r, "id"), auth.GetUserID(r.Context()))
	if err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, map[string]string{"status": "withdrawn"})
}

func (h *WaitlistHandler) prioritize(w http.ResponseWriter, r *http.Request) {
	err := h.uc.UsePriorityTicket(r.Context(), chi.URLParam(r, "id"), auth.GetUserID(r.Context()))
	if err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, map[string]string{"status": "prioritized"})
}

func (h *WaitlistHandler) promote(w http.ResponseWriter, r *http.Request) {
	var input dto.PromoteInput
	if err := rest.Decode(r, &input); err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	result, err := h.uc.PromoteForRestock(r.Context(), &input)
	if err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, result)
}
