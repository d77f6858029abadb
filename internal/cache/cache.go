package cache

import (
	"context"
	"time"

	"smartfix/backend/internal/domain"
)

// DrawerStatusCache mirrors the latest drawer-status snapshot so a
// cold-started instance (or a second terminal) can serve status
// without hitting the primary store.
type DrawerStatusCache interface {
	Get(ctx context.Context) (*domain.DrawerStatus, bool, error)
	Set(ctx context.Context, status *domain.DrawerStatus, ttl time.Duration) error
}

type NoopDrawerStatusCache struct{}

func (NoopDrawerStatusCache) Get(_ context.Context) (*domain.DrawerStatus, bool, error) {
	return nil, false, nil
}

func (NoopDrawerStatusCache) Set(_ context.Context, _ *domain.DrawerStatus, _ time.Duration) error {
	return nil
}
