package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/everestmart/delivery-svc/internal/realtime"
	"github.com/everestmart/delivery-svc/internal/service/models/geo"
	"github.com/everestmart/delivery-svc/internal/service/models/order"
	"github.com/everestmart/delivery-svc/internal/service/services/ridersvc"
	"github.com/everestmart/delivery-svc/pkg/http/middleware/authmw"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (h *HTTPTransport) riderSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "name, email and password are required"})
		return
	}

	rd, err := h.riderSvc.Signup(r.Context(), ridersvc.SignupModel{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, rd)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	Rider any    `json:"rider"`
}

func (h *HTTPTransport) riderLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	token, rd, err := h.riderSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, loginResponse{Token: token, Rider: rd})
}

func (h *HTTPTransport) riderProfile(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.ClaimsFromContext(r.Context())

	rd, err := h.riderSvc.Get(r.Context(), claims.Subject)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, rd)
}

func (h *HTTPTransport) riderEarnings(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.ClaimsFromContext(r.Context())

	earnings, err := h.riderSvc.Earnings(r.Context(), claims.Subject)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, earnings)
}

func (h *HTTPTransport) riderOrders(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.ClaimsFromContext(r.Context())
	limit, offset := pagination(r)

	var statuses []order.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := order.ParseStatus(raw)
		if err != nil {
			respondError(w, r, err)
			return
		}
		statuses = append(statuses, st)
	}

	orders, err := h.orderSvc.RiderOrders(r.Context(), claims.Subject, statuses, limit, offset)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, orders)
}

func (h *HTTPTransport) riderHistory(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.ClaimsFromContext(r.Context())
	limit, offset := pagination(r)

	orders, err := h.orderSvc.RiderOrders(r.Context(), claims.Subject, []order.Status{order.StatusDelivered}, limit, offset)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, orders)
}

func (h *HTTPTransport) availableOrders(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.ClaimsFromContext(r.Context())

	orders, err := h.orderSvc.AvailableOrders(r.Context(), claims.Subject)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, orders)
}

func (h *HTTPTransport) acceptOrder(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.ClaimsFromContext(r.Context())
	orderID := chi.URLParam(r, "orderID")

	o, err := h.orderSvc.Accept(r.Context(), orderID, claims.Subject)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, o.View())
}

func (h *HTTPTransport) pickupOrder(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.ClaimsFromContext(r.Context())
	orderID := chi.URLParam(r, "orderID")

	o, err := h.orderSvc.Pickup(r.Context(), orderID, claims.Subject)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, o.View())
}

type generateOTPResponse struct {
	Message string `json:"message"`
}

func (h *HTTPTransport) generateOTP(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.ClaimsFromContext(r.Context())
	orderID := chi.URLParam(r, "orderID")

	if err := h.orderSvc.GenerateOTP(r.Context(), orderID, claims.Subject); err != nil {
		respondError(w, r, err)
		return
	}

	// The code itself goes to the customer, never back to the rider.
	respondJSON(w, http.StatusOK, generateOTPResponse{
		Message: "delivery code sent to customer",
	})
}

type verifyDeliveryRequest struct {
	Code string `json:"otp"`
}

func (h *HTTPTransport) verifyDelivery(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.ClaimsFromContext(r.Context())
	orderID := chi.URLParam(r, "orderID")

	var req verifyDeliveryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	o, err := h.orderSvc.VerifyDelivery(r.Context(), orderID, claims.Subject, req.Code)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, o.View())
}

type availabilityRequest struct {
	IsAvailable bool `json:"isAvailable"`
}

func (h *HTTPTransport) riderAvailability(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.ClaimsFromContext(r.Context())

	var req availabilityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rd, err := h.riderSvc.SetAvailability(r.Context(), claims.Subject, req.IsAvailable)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, rd)
}

type locationRequest struct {
	OrderID    string     `json:"orderId"`
	Location   geo.Point  `json:"location"`
	Heading    float64    `json:"heading"`
	RecordedAt *time.Time `json:"recordedAt"`
}

func (h *HTTPTransport) riderLocation(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.ClaimsFromContext(r.Context())

	var req locationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.OrderID == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "orderId is required"})
		return
	}

	sample := realtime.Sample{Location: req.Location, Heading: req.Heading}
	if req.RecordedAt != nil {
		sample.RecordedAt = *req.RecordedAt
	}

	if err := h.orderSvc.RelayLocation(r.Context(), req.OrderID, claims.Subject, sample); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}
