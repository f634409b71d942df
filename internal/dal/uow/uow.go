package uow

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/everestmart/delivery-svc/internal/dal/interfaces/iauditrepo"
	"github.com/everestmart/delivery-svc/internal/dal/interfaces/iorderrepo"
	"github.com/everestmart/delivery-svc/internal/dal/interfaces/ioutboxrepo"
	"github.com/everestmart/delivery-svc/internal/dal/postgres"
	auditrepo "github.com/everestmart/delivery-svc/internal/dal/repositories/audit/postgres"
	orderrepo "github.com/everestmart/delivery-svc/internal/dal/repositories/order/postgres"
	outboxrepo "github.com/everestmart/delivery-svc/internal/dal/repositories/outbox/postgres"
)

// IUnitOfWork groups the repositories that must commit atomically: a status
// transition, its outbox events and its audit entry land in one transaction.
type IUnitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
	AuditRepository() iauditrepo.IAuditRepository
}

// IUnitOfWorkFactory produces a fresh unit of work per use case invocation.
type IUnitOfWorkFactory interface {
	New() IUnitOfWork
}

type unitOfWork struct {
	client     *postgres.Client
	tx         pgx.Tx
	orderRepo  iorderrepo.IOrderRepository
	outboxRepo ioutboxrepo.IOutboxRepository
	auditRepo  iauditrepo.IAuditRepository
}

type factory struct {
	client *postgres.Client
}

// NewFactory creates a unit of work factory over the shared pool.
func NewFactory(client *postgres.Client) IUnitOfWorkFactory {
	return &factory{client: client}
}

func (f *factory) New() IUnitOfWork {
	return newUnitOfWork(f.client)
}

func newUnitOfWork(client *postgres.Client) *unitOfWork {
	pool := client.Pool()

	return &unitOfWork{
		client:     client,
		orderRepo:  orderrepo.NewOrderRepository(pool),
		outboxRepo: outboxrepo.NewOutboxRepository(pool),
		auditRepo:  auditrepo.NewAuditRepository(pool),
	}
}

func (u *unitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *unitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outboxRepo
}

func (u *unitOfWork) AuditRepository() iauditrepo.IAuditRepository {
	return u.auditRepo
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	tx, err := u.client.Pool().Begin(ctx)
	if err != nil {
		return err
	}

	u.tx = tx
	u.orderRepo = orderrepo.NewOrderRepository(tx)
	u.outboxRepo = outboxrepo.NewOutboxRepository(tx)
	u.auditRepo = auditrepo.NewAuditRepository(tx)

	return nil
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Commit(ctx)
}

func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Rollback(ctx)
}
