package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/everestmart/delivery-svc/internal/dal/postgres"
	"github.com/everestmart/delivery-svc/internal/dal/rabbitmq"
	"github.com/everestmart/delivery-svc/internal/dal/redis"
	orderrepo "github.com/everestmart/delivery-svc/internal/dal/repositories/order/postgres"
	outboxrepo "github.com/everestmart/delivery-svc/internal/dal/repositories/outbox/postgres"
	riderrepo "github.com/everestmart/delivery-svc/internal/dal/repositories/rider/postgres"
	"github.com/everestmart/delivery-svc/internal/dal/uow"
	"github.com/everestmart/delivery-svc/internal/otel"
	"github.com/everestmart/delivery-svc/internal/realtime"
	"github.com/everestmart/delivery-svc/internal/service/services/ordersvc"
	"github.com/everestmart/delivery-svc/internal/service/services/ridersvc"
	httptransport "github.com/everestmart/delivery-svc/internal/transport/http"
	wstransport "github.com/everestmart/delivery-svc/internal/transport/ws"
	outboxworker "github.com/everestmart/delivery-svc/internal/worker/outbox"
)

// App represents the application.
type App struct {
	orderSvc       *ordersvc.OrderService
	riderSvc       *ridersvc.RiderService
	transport      *httptransport.HTTPTransport
	outboxWorker   *outboxworker.Worker
	postgresClient *postgres.Client
	redisClient    *redis.Client
	rabbitClient   *rabbitmq.Client
	otelController *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	otelController := otel.MustInitOtel()

	postgresClient := postgres.MustNewClient()
	redisClient := redis.MustNewClient()
	rabbitClient := rabbitmq.MustNewClient()

	hub := realtime.NewHub()
	tracker := realtime.NewTracker()

	riderRepo := riderrepo.NewRiderRepository(postgresClient.Pool())
	pooledOrderRepo := orderrepo.NewOrderRepository(postgresClient.Pool())

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithUnitOfWorkFactory(uow.NewFactory(postgresClient)),
		ordersvc.WithRiderRepository(riderRepo),
		ordersvc.WithStatusCache(redisClient),
		ordersvc.WithHub(hub),
		ordersvc.WithTracker(tracker),
	)

	riderSvc := ridersvc.MustNewRiderService(
		ridersvc.WithRiderRepository(riderRepo),
		ridersvc.WithOrderRepository(pooledOrderRepo),
		ridersvc.WithHub(hub),
	)

	ws := wstransport.NewWSTransport(hub, orderSvc)

	transport := httptransport.NewHTTPTransport(orderSvc, riderSvc, ws)
	transport.RegisterRoutes()

	worker := outboxworker.NewWorker(
		outboxrepo.NewOutboxRepository(postgresClient.Pool()),
		rabbitClient,
	)

	return &App{
		orderSvc:       orderSvc,
		riderSvc:       riderSvc,
		transport:      transport,
		outboxWorker:   worker,
		postgresClient: postgresClient,
		redisClient:    redisClient,
		rabbitClient:   rabbitClient,
		otelController: otelController,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	go a.outboxWorker.Start(workerCtx)

	go func() {
		slog.Info("Starting HTTP server")
		if err := a.transport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutdown signal received")

	cancelWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if err := a.rabbitClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	}

	if err := a.redisClient.Close(); err != nil {
		slog.Error("Redis connection close error", "error", err)
	}

	a.postgresClient.Close()
	slog.Info("Database connection closed gracefully")

	if err := a.otelController.Shutdown(); err != nil {
		slog.Error("Trace provider shutdown error", "error", err)
	}

	slog.Info("Application shutdown complete")
}
