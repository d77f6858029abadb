package store

import (
	"context"
	"errors"
	"time"

	"smartfix/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDrawerOpen   = errors.New("a drawer is already open")
	ErrNoOpenDrawer = errors.New("no open drawer")
	ErrConflict     = errors.New("conflict")
)

type Repository interface {
	CreateOrder(ctx context.Context, order domain.WorkOrder) (*domain.WorkOrder, error)
	GetOrderByID(ctx context.Context, id string) (*domain.WorkOrder, error)
	UpdateOrder(ctx context.Context, order domain.WorkOrder) (*domain.WorkOrder, error)
	ListOrders(ctx context.Context, status string, includeDeleted bool, limit int) ([]domain.WorkOrder, error)
	DeleteOrderCascade(ctx context.Context, id string) error

	AppendOrderEvent(ctx context.Context, event domain.WorkOrderEvent) error
	ListOrderEvents(ctx context.Context, orderID string, limit int) ([]domain.WorkOrderEvent, error)

	CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Transaction, error)

	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	ListRecentSales(ctx context.Context, limit int) ([]domain.Sale, error)

	CreatePaymentIntent(ctx context.Context, intent domain.PaymentIntent) (*domain.PaymentIntent, error)
	AddPaymentIntentStep(ctx context.Context, id string, step string) error
	FinishPaymentIntent(ctx context.Context, id string, status string, failedStep string) error
	ListPaymentIntents(ctx context.Context, status string, limit int) ([]domain.PaymentIntent, error)

	// OpenDrawer atomically creates the drawer row; it fails with
	// ErrDrawerOpen when any open drawer already exists.
	OpenDrawer(ctx context.Context, drawer domain.CashDrawer) (*domain.CashDrawer, error)
	GetOpenDrawer(ctx context.Context) (*domain.CashDrawer, error)
	GetDrawerByID(ctx context.Context, id string) (*domain.CashDrawer, error)
	CloseDrawer(ctx context.Context, drawer domain.CashDrawer) (*domain.CashDrawer, error)
	CreateDrawerMovement(ctx context.Context, movement domain.DrawerMovement) error
	ListDrawerMovements(ctx context.Context, drawerID string, limit int) ([]domain.DrawerMovement, error)

	CreateTimeEntry(ctx context.Context, entry domain.TimeEntry) (*domain.TimeEntry, error)
	GetOpenTimeEntry(ctx context.Context, employee string) (*domain.TimeEntry, error)
	CloseTimeEntry(ctx context.Context, id string, at time.Time) (*domain.TimeEntry, error)
	ListTimeEntries(ctx context.Context, employee string, from time.Time, to time.Time, unpaidOnly bool) ([]domain.TimeEntry, error)
	MarkTimeEntriesPaid(ctx context.Context, ids []string, paymentID string) error
	CreateEmployeePayment(ctx context.Context, payment domain.EmployeePayment) (*domain.EmployeePayment, error)
	ListEmployeePayments(ctx context.Context, employee string, limit int) ([]domain.EmployeePayment, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
