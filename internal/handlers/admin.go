package handlers

import (
	"log/slog"
	"net/http"

	"github.com/kofiasare/kantamanto/internal/pricing"
	"github.com/kofiasare/kantamanto/internal/store"
)

// AdminHandler serves the dashboard and the manual repricing trigger.
type AdminHandler struct {
	Store     *store.Store
	Scheduler *pricing.Scheduler
}

// Dashboard returns aggregate store statistics.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request, _ int) {
	stats, err := h.Store.GetDashboardStats(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// RecentPriceChanges lists the latest recorded price changes.
func (h *AdminHandler) RecentPriceChanges(w http.ResponseWriter, r *http.Request, _ int) {
	limit := queryInt(r, "limit", 20)
	changes, err := h.Store.GetRecentPriceChanges(r.Context(), limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, changes)
}

// RunRepricing kicks off a repricing cycle outside the schedule.
func (h *AdminHandler) RunRepricing(w http.ResponseWriter, r *http.Request, userID int) {
	slog.Info("Manual repricing cycle requested", "user_id", userID)
	stats := h.Scheduler.RunCycle(r.Context())
	respondJSON(w, http.StatusOK, stats)
}
