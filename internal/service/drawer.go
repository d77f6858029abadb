package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"smartfix/backend/internal/denom"
	"smartfix/backend/internal/domain"
	"smartfix/backend/internal/signal"
	"smartfix/backend/internal/store"
)

// recentSalesWindow caps how many sales the shift selectors scan. A
// single register shift stays far below it.
const recentSalesWindow = 500

// OpenDrawer counts the opening float and opens the shift drawer. The
// store enforces that at most one drawer is ever open.
func (s *Service) OpenDrawer(ctx context.Context, req domain.DrawerOpenRequest) (*domain.CashDrawer, error) {
	total, err := denom.Total(req.Denominations)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if len(req.Denominations) == 0 {
		return nil, fmt.Errorf("%w: opening count required", ErrValidationFailed)
	}

	actor := ActorFromContext(ctx)
	opened, err := s.repo.OpenDrawer(ctx, domain.CashDrawer{
		OpeningBalance: total,
		OpenedBy:       actor.Username,
		OpenedAt:       time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, store.ErrDrawerOpen) {
			return nil, fmt.Errorf("%w: a drawer is already open", ErrPreconditionFailed)
		}
		return nil, err
	}

	if err := s.repo.CreateDrawerMovement(ctx, domain.DrawerMovement{
		DrawerID:      opened.ID,
		Type:          domain.MovementOpening,
		AmountCents:   total,
		Description:   "opening count",
		Employee:      actor.Username,
		Denominations: req.Denominations,
	}); err != nil {
		log.Printf("[audit] WARN: failed to record opening movement for drawer %s: %v", opened.ID, err)
	}

	s.publishDrawerStatus(ctx, domain.DrawerStatus{
		IsOpen:    true,
		Drawer:    opened,
		CheckedAt: time.Now().UTC(),
	}, signal.DrawerOpened)

	return opened, nil
}

// CloseDrawer reconciles the counted cash against what the shift
// should hold: the opening float plus every non-voided cash sale taken
// while the drawer was open.
func (s *Service) CloseDrawer(ctx context.Context, req domain.DrawerCloseRequest) (*domain.DrawerCloseResult, error) {
	counted, err := denom.Total(req.Denominations)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if len(req.Denominations) == 0 {
		return nil, fmt.Errorf("%w: closing count required", ErrValidationFailed)
	}

	open, err := s.repo.GetOpenDrawer(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNoOpenDrawer) {
			return nil, fmt.Errorf("%w: no open drawer", ErrPreconditionFailed)
		}
		return nil, err
	}

	sales, err := s.salesSince(ctx, open.OpenedAt)
	if err != nil {
		return nil, err
	}
	var cashSales, allSales int64
	for _, sale := range sales {
		allSales += sale.TotalCents
		if sale.PaymentMethod == "cash" {
			cashSales += sale.TotalCents
		}
	}
	expected := open.OpeningBalance + cashSales
	difference := counted - expected

	actor := ActorFromContext(ctx)
	now := time.Now().UTC()
	open.ClosingBalance = counted
	open.TotalRevenue = allSales
	open.ClosedBy = actor.Username
	open.ClosedAt = &now
	open.FinalCount = &domain.DrawerCount{
		Denominations: req.Denominations,
		TotalCents:    counted,
		ExpectedCents: expected,
		Difference:    difference,
	}

	closed, err := s.repo.CloseDrawer(ctx, *open)
	if err != nil {
		if errors.Is(err, store.ErrNoOpenDrawer) {
			return nil, fmt.Errorf("%w: no open drawer", ErrPreconditionFailed)
		}
		return nil, err
	}

	if err := s.repo.CreateDrawerMovement(ctx, domain.DrawerMovement{
		DrawerID:      closed.ID,
		Type:          domain.MovementClosing,
		AmountCents:   counted,
		Description:   "closing count",
		Employee:      actor.Username,
		Denominations: req.Denominations,
	}); err != nil {
		log.Printf("[audit] WARN: failed to record closing movement for drawer %s: %v", closed.ID, err)
	}

	s.publishDrawerStatus(ctx, domain.DrawerStatus{
		IsOpen:    false,
		CheckedAt: time.Now().UTC(),
	}, signal.DrawerClosed)

	return &domain.DrawerCloseResult{Drawer: *closed, Difference: difference}, nil
}

// DrawerStatus serves the current status from the shared snapshot
// cache when warm, falling back to the store.
func (s *Service) DrawerStatus(ctx context.Context) (*domain.DrawerStatus, error) {
	cached, ok, err := s.snapshots.Get(ctx)
	if err != nil {
		log.Printf("[cache] WARN: drawer status read failed: %v", err)
	}
	if ok && cached != nil {
		return cached, nil
	}
	return s.RefreshDrawerStatus(ctx)
}

// RefreshDrawerStatus reloads the status from the store and pushes it
// to the watch and the snapshot cache.
func (s *Service) RefreshDrawerStatus(ctx context.Context) (*domain.DrawerStatus, error) {
	status := domain.DrawerStatus{CheckedAt: time.Now().UTC()}

	open, err := s.repo.GetOpenDrawer(ctx)
	switch {
	case err == nil:
		status.IsOpen = true
		status.Drawer = open
	case errors.Is(err, store.ErrNoOpenDrawer):
		// closed is a normal answer
	default:
		return nil, err
	}

	if s.watch != nil {
		s.watch.Set(status)
	}
	if err := s.snapshots.Set(ctx, &status, s.cacheTTL); err != nil {
		log.Printf("[cache] WARN: drawer status write failed: %v", err)
	}
	return &status, nil
}

func (s *Service) ListDrawerMovements(ctx context.Context, drawerID string, limit int) ([]domain.DrawerMovement, error) {
	return s.repo.ListDrawerMovements(ctx, drawerID, limit)
}

func (s *Service) publishDrawerStatus(ctx context.Context, status domain.DrawerStatus, topic string) {
	if s.watch != nil {
		s.watch.Set(status)
	}
	if s.bus != nil {
		s.bus.Publish(topic, status)
	}
	if err := s.snapshots.Set(ctx, &status, s.cacheTTL); err != nil {
		log.Printf("[cache] WARN: drawer status write failed: %v", err)
	}
}

// salesSince selects the non-voided sales recorded at or after the
// cutoff. Running it twice over unchanged data returns the same rows.
func (s *Service) salesSince(ctx context.Context, since time.Time) ([]domain.Sale, error) {
	recent, err := s.repo.ListRecentSales(ctx, recentSalesWindow)
	if err != nil {
		return nil, err
	}
	sales := make([]domain.Sale, 0, len(recent))
	for _, sale := range recent {
		if sale.Voided || sale.CreatedAt.Before(since) {
			continue
		}
		sales = append(sales, sale)
	}
	return sales, nil
}
