// Package service implements the work order lifecycle and the cash
// ledger around it. Every operation takes the acting user from the
// request context; the HTTP layer puts it there after verifying the
// access token.
package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"smartfix/backend/internal/cache"
	"smartfix/backend/internal/domain"
	"smartfix/backend/internal/drawer"
	"smartfix/backend/internal/money"
	"smartfix/backend/internal/notify"
	"smartfix/backend/internal/signal"
	"smartfix/backend/internal/store"
)

// TaxPolicy controls how gross amounts decompose into subtotal and
// tax on recorded sales. Deposits are tax-exempt unless
// DecomposeDeposits is set.
type TaxPolicy struct {
	RatePercent       float64
	DecomposeDeposits bool
}

type Service struct {
	repo      store.Repository
	watch     *drawer.Watch
	bus       *signal.Bus
	notifier  notify.Notifier
	snapshots cache.DrawerStatusCache
	cacheTTL  time.Duration
	tax       TaxPolicy
}

func New(repo store.Repository, watch *drawer.Watch, bus *signal.Bus, notifier notify.Notifier, snapshots cache.DrawerStatusCache, cacheTTL time.Duration, tax TaxPolicy) *Service {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	if snapshots == nil {
		snapshots = cache.NoopDrawerStatusCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Service{
		repo:      repo,
		watch:     watch,
		bus:       bus,
		notifier:  notifier,
		snapshots: snapshots,
		cacheTTL:  cacheTTL,
		tax:       tax,
	}
}

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) domain.Actor {
	actor, _ := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor
}

// verifyActorPIN checks the supplied PIN against the acting user's
// stored bcrypt hash. A missing user or wrong PIN both come back as
// ErrAuthorizationFailed so callers cannot probe for accounts.
func (s *Service) verifyActorPIN(ctx context.Context, pin string) error {
	actor := ActorFromContext(ctx)
	if actor.Username == "" || pin == "" {
		return ErrAuthorizationFailed
	}
	user, err := s.repo.GetUserByUsername(ctx, actor.Username)
	if err != nil {
		return ErrAuthorizationFailed
	}
	if !user.Active || user.PIN == "" {
		return ErrAuthorizationFailed
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PIN), []byte(pin)) != nil {
		return ErrAuthorizationFailed
	}
	return nil
}

func (s *Service) appendEvent(ctx context.Context, order *domain.WorkOrder, eventType string, description string, metadata map[string]string) {
	actor := ActorFromContext(ctx)
	err := s.repo.AppendOrderEvent(ctx, domain.WorkOrderEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		EventType:   eventType,
		Description: description,
		UserName:    actor.Username,
		UserRole:    actor.Role,
		Metadata:    metadata,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		log.Printf("[audit] WARN: failed to record %s event for order %s: %v", eventType, order.OrderNumber, err)
	}
}

// orderTotalCents is the tax-inclusive amount owed on an order: the
// cost estimate when one was quoted, otherwise the sum of its parts.
func (s *Service) orderTotalCents(order *domain.WorkOrder) int64 {
	base := order.CostEstimate
	if base <= 0 {
		base = 0
		for _, part := range order.Parts {
			base += int64(part.Qty) * part.UnitPrice
		}
	}
	return money.WithTax(base, s.tax.RatePercent)
}

func requireRole(ctx context.Context, roles ...string) error {
	actor := ActorFromContext(ctx)
	for _, role := range roles {
		if actor.Role == role {
			return nil
		}
	}
	return fmt.Errorf("%w: %s role required", ErrAuthorizationFailed, roles[0])
}
