package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/greenbasket/groupbuy-service/internal/auth"
	"github.com/greenbasket/groupbuy-service/internal/catalog"
	"github.com/greenbasket/groupbuy-service/internal/catalog/dto"
	"github.com/greenbasket/groupbuy-service/internal/model"
	"github.com/greenbasket/groupbuy-service/internal/rest"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	uc     catalog.UseCase
	logger *zap.Logger
}

func NewCatalogHandler(uc catalog.UseCase, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{uc: uc, logger: log}
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/{id}", h.get)
		r.Get("/{id}/rounds/{roundID}/availability", h.availability)
	})
	r.Route("/admin/products", func(r chi.Router) {
		r.Use(requireAdmin)
		r.Post("/", h.create)
		r.Post("/{id}/rounds", h.appendRound)
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

func (h *CatalogHandler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.uc.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) availability(w http.ResponseWriter, r *http.Request) {
	view, err := h.uc.GetAvailability(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "roundID"))
	if err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, view)
}

func (h *CatalogHandler) create(w http.ResponseWriter, r *http.Request) {
	var input dto.CreateProductInput
	if err := rest.Decode(r, &input); err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	p, err := h.uc.CreateProduct(r.Context(), &input)
	if err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, p)
}

func (h *CatalogHandler) appendRound(w http.ResponseWriter, r *http.Request) {
	var round model.SalesRound
	if err := rest.Decode(r, &round); err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	if err := h.uc.AppendSalesRound(r.Context(), chi.URLParam(r, "id"), &round); err != nil {
		rest.WriteError(w, h.logger, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, round)
}
