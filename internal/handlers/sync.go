package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/xelth-com/eckmarket/internal/models"
	"github.com/xelth-com/eckmarket/internal/services/bulkupdate"
	"github.com/xelth-com/eckmarket/internal/services/ordersync"
	"github.com/xelth-com/eckmarket/internal/tenants"
)

const maxBodyBytes = 8 << 20

type syncOrdersRequest struct {
	StartDate int64 `json:"startDate"`
	EndDate   int64 `json:"endDate"`
	PageSize  int   `json:"pageSize"`
}

type bulkUpdateRequest struct {
	Items []bulkupdate.Change `json:"items"`
}

// syncOrders runs an order sync for one tenant and returns its result.
// Transport aborts answer 502 with the partial result; a busy tenant answers 409.
func (r *Router) syncOrders(w http.ResponseWriter, req *http.Request) {
	tenant, ok := r.loadTenant(w, req)
	if !ok {
		return
	}

	var body syncOrdersRequest
	if req.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes)).Decode(&body); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	rng := ordersync.Range{Start: body.StartDate, End: body.EndDate}
	if rng.End == 0 {
		rng.End = time.Now().UnixMilli()
	}
	if rng.Start == 0 {
		rng.Start = time.UnixMilli(rng.End).Add(-r.deps.Lookback).UnixMilli()
	}

	res, err := r.deps.Orders.SyncOrders(req.Context(), tenant, rng, body.PageSize)
	switch {
	case errors.Is(err, ordersync.ErrInvalidRange):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, tenants.ErrBusy):
		respondError(w, http.StatusConflict, err.Error())
	case err != nil && res != nil:
		respondJSON(w, http.StatusBadGateway, res)
	case err != nil:
		respondError(w, http.StatusInternalServerError, err.Error())
	default:
		respondJSON(w, http.StatusOK, res)
	}
}

// bulkUpdate pushes price/stock changes for one tenant
func (r *Router) bulkUpdate(w http.ResponseWriter, req *http.Request) {
	tenant, ok := r.loadTenant(w, req)
	if !ok {
		return
	}

	var body bulkUpdateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes)).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := r.deps.Bulk.ApplyBulkChanges(req.Context(), tenant, body.Items)
	switch {
	case errors.Is(err, bulkupdate.ErrNoItems):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, tenants.ErrBusy):
		respondError(w, http.StatusConflict, err.Error())
	case err != nil && res != nil:
		respondJSON(w, http.StatusBadGateway, res)
	case err != nil:
		respondError(w, http.StatusInternalServerError, err.Error())
	default:
		respondJSON(w, http.StatusOK, res)
	}
}

func (r *Router) loadTenant(w http.ResponseWriter, req *http.Request) (*models.Tenant, bool) {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid tenant id")
		return nil, false
	}
	tenant, err := r.deps.Tenants.Get(req.Context(), uint(id))
	if errors.Is(err, tenants.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Tenant not found")
		return nil, false
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if !tenant.Active {
		respondError(w, http.StatusConflict, "Tenant is disabled")
		return nil, false
	}
	return tenant, true
}
