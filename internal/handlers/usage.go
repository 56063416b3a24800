package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/xelth-com/eckmarket/internal/quota"
)

// getUsage reports the order counter of the active period
func (r *Router) getUsage(w http.ResponseWriter, req *http.Request) {
	tenant, ok := r.loadTenant(w, req)
	if !ok {
		return
	}

	count, err := r.deps.Usage.CurrentCount(req.Context(), tenant.ID, quota.MetricOrders)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	ceiling, err := r.deps.Usage.Ceiling(req.Context(), tenant.ID, quota.MetricOrders)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]interface{}{
		"tenantId": tenant.ID,
		"metric":   quota.MetricOrders,
		"period":   quota.Period(time.Now()),
		"count":    count,
		"ceiling":  ceiling,
	}
	if ceiling != nil {
		remaining := *ceiling - count
		if remaining < 0 {
			remaining = 0
		}
		resp["remaining"] = remaining
	}
	respondJSON(w, http.StatusOK, resp)
}

// listHistory returns recent runs, optionally filtered by ?tenant=
func (r *Router) listHistory(w http.ResponseWriter, req *http.Request) {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	var tenantID uint
	if v := req.URL.Query().Get("tenant"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid tenant id")
			return
		}
		tenantID = uint(id)
	}

	history, err := r.deps.History.List(req.Context(), tenantID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(history),
		"history": history,
	})
}
