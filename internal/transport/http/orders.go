package httptransport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/everestmart/delivery-svc/internal/service/models/order"
	"github.com/everestmart/delivery-svc/internal/service/services/ordersvc"
	"github.com/everestmart/delivery-svc/pkg/auth"
	"github.com/everestmart/delivery-svc/pkg/http/middleware/authmw"
)

type checkoutRequest struct {
	Items           []order.Item  `json:"items"`
	ShippingAddress order.Address `json:"shippingAddress"`
	PaymentMethod   string        `json:"paymentMethod"`
}

func (h *HTTPTransport) checkout(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.ClaimsFromContext(r.Context())

	var req checkoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	o, err := h.orderSvc.Checkout(r.Context(), ordersvc.CheckoutModel{
		CustomerID:      claims.Subject,
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   order.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, o)
}

func (h *HTTPTransport) listMyOrders(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.ClaimsFromContext(r.Context())
	limit, offset := pagination(r)

	orders, err := h.orderSvc.ListCustomerOrders(r.Context(), claims.Subject, limit, offset)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, orders)
}

func (h *HTTPTransport) getOrder(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.ClaimsFromContext(r.Context())
	orderID := chi.URLParam(r, "orderID")

	o, err := h.orderSvc.GetOrder(r.Context(), orderID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	switch claims.Role {
	case auth.RoleCustomer:
		if o.CustomerID != claims.Subject {
			respondError(w, r, order.ErrNotFound)
			return
		}
		respondJSON(w, http.StatusOK, o)
	case auth.RoleRider:
		if !o.AssignedTo(claims.Subject) {
			respondError(w, r, order.ErrNotAssignee)
			return
		}
		respondJSON(w, http.StatusOK, o.View())
	default:
		respondJSON(w, http.StatusOK, o.View())
	}
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *HTTPTransport) cancelOrder(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.ClaimsFromContext(r.Context())
	orderID := chi.URLParam(r, "orderID")

	var req cancelRequest
	if !decodeBody(w, r, &req) {
		return
	}

	o, err := h.orderSvc.Cancel(r.Context(), orderID, req.Reason, order.CancelledByCustomer, claims.Subject)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, o)
}

type trackResponse struct {
	OrderID   string `json:"orderId"`
	Status    string `json:"status"`
	UpdatedAt string `json:"updatedAt"`
}

func (h *HTTPTransport) trackOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	st, at, err := h.orderSvc.TrackStatus(r.Context(), orderID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, trackResponse{
		OrderID:   orderID,
		Status:    string(st),
		UpdatedAt: at.Format(time.RFC3339),
	})
}

func pagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
