package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"

	"github.com/everestmart/delivery-svc/internal/service/services/ordersvc"
	"github.com/everestmart/delivery-svc/internal/service/services/ridersvc"
	wstransport "github.com/everestmart/delivery-svc/internal/transport/ws"
	"github.com/everestmart/delivery-svc/pkg/auth"
	"github.com/everestmart/delivery-svc/pkg/http/middleware/authmw"
	"github.com/everestmart/delivery-svc/pkg/http/middleware/trace"
	"github.com/everestmart/delivery-svc/pkg/logger"
)

type HTTPTransport struct {
	server   *http.Server
	router   *chi.Mux
	orderSvc *ordersvc.OrderService
	riderSvc *ridersvc.RiderService
	ws       *wstransport.WSTransport
}

func NewHTTPTransport(orderSvc *ordersvc.OrderService, riderSvc *ridersvc.RiderService, ws *wstransport.WSTransport) *HTTPTransport {
	router := newRouter()
	server := newServer(router)
	return &HTTPTransport{
		server:   server,
		router:   router,
		orderSvc: orderSvc,
		riderSvc: riderSvc,
		ws:       ws,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authmw.Require(auth.RoleCustomer))
			r.Post("/orders", h.checkout)
			r.Get("/orders", h.listMyOrders)
			r.Put("/orders/{orderID}/cancel", h.cancelOrder)
		})

		r.Group(func(r chi.Router) {
			r.Use(authmw.Require())
			r.Get("/orders/{orderID}", h.getOrder)
		})

		// Polling fallback for clients without a live socket.
		r.Get("/orders/{orderID}/track", h.trackOrder)

		r.Route("/rider", func(r chi.Router) {
			r.Post("/signup", h.riderSignup)
			r.Post("/login", h.riderLogin)

			r.Group(func(r chi.Router) {
				r.Use(authmw.Require(auth.RoleRider))
				r.Get("/profile", h.riderProfile)
				r.Get("/earnings", h.riderEarnings)
				r.Get("/orders", h.riderOrders)
				r.Get("/history", h.riderHistory)
				r.Get("/available-orders", h.availableOrders)
				r.Put("/availability", h.riderAvailability)
				r.Put("/location", h.riderLocation)
				r.Post("/orders/{orderID}/accept", h.acceptOrder)
				r.Post("/orders/{orderID}/pickup", h.pickupOrder)
				r.Post("/orders/{orderID}/generate-otp", h.generateOTP)
				r.Post("/orders/{orderID}/verify-delivery", h.verifyDelivery)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authmw.Require(auth.RoleAdmin))
			r.Get("/riders", h.listRiders)
			r.Put("/riders/{riderID}/approval", h.updateRiderApproval)
			r.Get("/orders", h.listOrders)
			r.Get("/orders/{orderID}/history", h.orderHistory)
			r.Put("/orders/{orderID}/status", h.updateOrderStatus)
		})
	})

	h.router.Get("/ws", h.ws.Serve)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(trace.NewTraceMiddleware)

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:    "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler: router,
	}
}
