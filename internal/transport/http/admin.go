package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/everestmart/delivery-svc/internal/service/models/order"
	"github.com/everestmart/delivery-svc/internal/service/models/rider"
	"github.com/everestmart/delivery-svc/pkg/http/middleware/authmw"
)

func (h *HTTPTransport) listRiders(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	riders, err := h.riderSvc.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, riders)
}

type approvalRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (h *HTTPTransport) updateRiderApproval(w http.ResponseWriter, r *http.Request) {
	riderID := chi.URLParam(r, "riderID")

	var req approvalRequest
	if !decodeBody(w, r, &req) {
		return
	}

	status, err := rider.ParseApprovalStatus(req.Status)
	if err != nil {
		respondError(w, r, err)
		return
	}

	rd, err := h.riderSvc.SetApproval(r.Context(), riderID, status, req.Reason)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, rd)
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	filter := &order.QueryOrdersModel{Limit: limit, Offset: offset}
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := order.ParseStatus(raw)
		if err != nil {
			respondError(w, r, err)
			return
		}
		filter.Statuses = append(filter.Statuses, st)
	}

	orders, err := h.orderSvc.ListOrders(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}

	for i := range orders {
		orders[i] = orders[i].View()
	}

	respondJSON(w, http.StatusOK, orders)
}

func (h *HTTPTransport) orderHistory(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	entries, err := h.orderSvc.History(r.Context(), orderID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, entries)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *HTTPTransport) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.ClaimsFromContext(r.Context())
	orderID := chi.URLParam(r, "orderID")

	var req updateStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	to, err := order.ParseStatus(req.Status)
	if err != nil {
		respondError(w, r, err)
		return
	}

	o, err := h.orderSvc.UpdateStatus(r.Context(), orderID, to, claims.Subject)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, o.View())
}
