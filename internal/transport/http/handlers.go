package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/logistix/vintedsync/internal/audit"
	"github.com/logistix/vintedsync/internal/mapping"
	"github.com/logistix/vintedsync/internal/market"
	"github.com/logistix/vintedsync/internal/model"
	"github.com/logistix/vintedsync/internal/report"
	"github.com/logistix/vintedsync/internal/session"
	"github.com/logistix/vintedsync/internal/store"
	syncsvc "github.com/logistix/vintedsync/internal/sync"
	"github.com/logistix/vintedsync/internal/vinted"
)

// marketplaceAPI is the client surface the item handlers need.
type marketplaceAPI interface {
	vinted.API
	GetBrands(ctx context.Context, userID, search string) ([]vinted.Brand, error)
	GetCatalogs(ctx context.Context, userID, search string) ([]vinted.Catalog, error)
}

// Handler bundles the services behind the HTTP surface. Instances are built
// once at startup and passed by reference; there is no global service state.
type Handler struct {
	api      marketplaceAPI
	mapper   *mapping.Service
	syncer   *syncsvc.Service
	market   *market.Service
	sessions *session.Manager
	audit    *audit.Logger
	version  string
}

// NewHandler wires the services into a request handler.
func NewHandler(
	api marketplaceAPI,
	mapper *mapping.Service,
	syncer *syncsvc.Service,
	marketSvc *market.Service,
	sessions *session.Manager,
	auditLog *audit.Logger,
	version string,
) *Handler {
	return &Handler{
		api:      api,
		mapper:   mapper,
		syncer:   syncer,
		market:   marketSvc,
		sessions: sessions,
		audit:    auditLog,
		version:  version,
	}
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

// SearchItems handles GET /api/v1/items/search.
func (h *Handler) SearchItems(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	params := vinted.SearchParams{
		Text:  q.Get("q"),
		Order: q.Get("order"),
	}
	params.Page, _ = strconv.Atoi(q.Get("page"))
	params.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	if q.Get("sold") == "true" {
		params.StatusIDs = []int{model.StatusIDSold}
	}

	result, err := h.api.SearchItems(r.Context(), userID, params)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// SoldItems handles GET /api/v1/items/sold — the user's wardrobe.
func (h *Handler) SoldItems(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	items, err := h.api.GetSoldItems(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
}

// Brands handles GET /api/v1/brands.
func (h *Handler) Brands(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	brands, err := h.api.GetBrands(r.Context(), userID, r.URL.Query().Get("q"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"brands": brands})
}

// Catalogs handles GET /api/v1/catalogs.
func (h *Handler) Catalogs(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	catalogs, err := h.api.GetCatalogs(r.Context(), userID, r.URL.Query().Get("q"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"catalogs": catalogs})
}

// RunMapping handles POST /api/v1/mapping.
func (h *Handler) RunMapping(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	opts := mapping.Options{DryRun: r.URL.Query().Get("dry_run") == "true"}
	reportOut, err := h.mapper.MapItems(r.Context(), userID, opts)
	if err != nil {
		h.audit.Error("mapping.run", userID, err, nil)
		respondError(w, err)
		return
	}

	h.audit.Record("mapping.run", userID, map[string]any{
		"dry_run":  opts.DryRun,
		"scanned":  reportOut.ItemsScanned,
		"applied":  reportOut.Applied,
		"unmapped": reportOut.UnmappedProducts,
	})
	respondJSON(w, http.StatusOK, reportOut)
}

// MappingStatus handles GET /api/v1/mapping.
func (h *Handler) MappingStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	status, err := h.mapper.MappingStatus(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// SyncAll handles POST /api/v1/sync.
func (h *Handler) SyncAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	summary, err := h.syncer.SyncAll(r.Context(), userID)
	if err != nil {
		h.audit.Error("sync.all", userID, err, nil)
		respondError(w, err)
		return
	}

	h.audit.Record("sync.all", userID, map[string]any{
		"total": summary.Total, "sold": summary.Sold,
		"reserved": summary.Reserved, "failed": summary.Failed,
	})
	respondJSON(w, http.StatusOK, summary)
}

// SyncProduct handles POST /api/v1/sync/{productID}.
func (h *Handler) SyncProduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	productID := chi.URLParam(r, "productID")

	result, err := h.syncer.SyncProduct(r.Context(), productID, userID)
	if err != nil {
		h.audit.Error("sync.product", userID, err, map[string]any{"product_id": productID})
		respondError(w, err)
		return
	}

	h.audit.Record("sync.product", userID, map[string]any{
		"product_id": productID, "action": string(result.Action),
	})
	respondJSON(w, http.StatusOK, result)
}

// AnalyzeProduct handles POST /api/v1/market/analyze/{productID}.
func (h *Handler) AnalyzeProduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	productID := chi.URLParam(r, "productID")

	product, err := h.market.AnalyzeProduct(r.Context(), productID, userID)
	if err != nil {
		h.audit.Error("market.analyze", userID, err, map[string]any{"product_id": productID})
		respondError(w, err)
		return
	}

	h.audit.Record("market.analyze", userID, map[string]any{"product_id": productID})
	respondJSON(w, http.StatusOK, product)
}

// AnalyzeSearch handles POST /api/v1/market/search?q=...
func (h *Handler) AnalyzeSearch(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
		return
	}

	analysis, err := h.market.AnalyzeSearch(r.Context(), userID, query)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, analysis)
}

// ExportHistory handles GET /api/v1/market/history.csv?q=...
func (h *Handler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.market.History(r.Context(), query, limit)
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="market_history.csv"`)
	if err := report.WriteHistoryCSV(w, records); err != nil {
		respondError(w, err)
	}
}

// PutSession handles PUT /api/v1/sessions/{userID}.
func (h *Handler) PutSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var body struct {
		Cookie string `json:"cookie"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	if err := h.sessions.SetCookie(r.Context(), userID, body.Cookie); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	h.audit.Record("session.set", userID, nil)
	respondJSON(w, http.StatusNoContent, nil)
}

// DeleteSession handles DELETE /api/v1/sessions/{userID}.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := h.sessions.DeleteSession(r.Context(), userID); err != nil {
		respondError(w, err)
		return
	}
	h.audit.Record("session.delete", userID, nil)
	respondJSON(w, http.StatusNoContent, nil)
}

// BootstrapSession handles POST /api/v1/sessions/bootstrap.
func (h *Handler) BootstrapSession(w http.ResponseWriter, r *http.Request) {
	if _, err := h.sessions.Bootstrap(r.Context()); err != nil {
		h.audit.Error("session.bootstrap", session.AnonymousUser, err, nil)
		respondError(w, err)
		return
	}
	h.audit.Record("session.bootstrap", session.AnonymousUser, nil)
	respondJSON(w, http.StatusCreated, map[string]string{"user": session.AnonymousUser})
}

// requireUser extracts the user id from the X-User-ID header. The dashboard
// gateway authenticates users upstream; this service only scopes data.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "X-User-ID header is required"})
		return "", false
	}
	return userID, true
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// respondError maps service errors onto HTTP statuses.
func respondError(w http.ResponseWriter, err error) {
	var authErr *vinted.AuthError
	var apiErr *vinted.APIError

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, vinted.ErrNoSession), errors.As(err, &authErr):
		status = http.StatusUnauthorized
	case errors.Is(err, store.ErrNotFound), errors.Is(err, market.ErrNoComparables):
		status = http.StatusNotFound
	case errors.Is(err, market.ErrNoPrices):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &apiErr):
		status = http.StatusBadGateway
	}

	respondJSON(w, status, map[string]string{"error": err.Error()})
}
