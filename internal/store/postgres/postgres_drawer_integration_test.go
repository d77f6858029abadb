package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"smartfix/backend/internal/domain"
	"smartfix/backend/internal/store"
)

func TestOnlyOneDrawerOpensUnderRace(t *testing.T) {
	databaseURL := os.Getenv("SMARTFIX_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set SMARTFIX_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM drawer_movements WHERE employee = 'it-race'`)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM cash_drawers WHERE opened_by = 'it-race'`)
		_ = s.Close()
	})

	// Make sure no drawer from a previous run blocks the insert.
	_, _ = s.db.ExecContext(ctx, `DELETE FROM cash_drawers WHERE status = 'open' AND opened_by = 'it-race'`)
	if _, err := s.GetOpenDrawer(ctx); !errors.Is(err, store.ErrNoOpenDrawer) {
		t.Skipf("a drawer is already open in this database, skipping: %v", err)
	}

	// Race two opens against the partial unique index.
	type result struct {
		drawer *domain.CashDrawer
		err    error
	}
	results := make(chan result, 2)
	for i := 0; i < 2; i++ {
		go func() {
			drawer, err := s.OpenDrawer(ctx, domain.CashDrawer{
				OpeningBalance: 10000,
				OpenedBy:       "it-race",
				OpenedAt:       time.Now().UTC(),
			})
			results <- result{drawer: drawer, err: err}
		}()
	}

	var opened, rejected int
	var winner *domain.CashDrawer
	for i := 0; i < 2; i++ {
		res := <-results
		switch {
		case res.err == nil:
			opened++
			winner = res.drawer
		case errors.Is(res.err, store.ErrDrawerOpen):
			rejected++
		default:
			t.Fatalf("unexpected open error: %v", res.err)
		}
	}
	if opened != 1 || rejected != 1 {
		t.Fatalf("want exactly one winner: opened=%d rejected=%d", opened, rejected)
	}

	now := time.Now().UTC()
	winner.ClosingBalance = 10000
	winner.ClosedBy = "it-race"
	winner.ClosedAt = &now
	if _, err := s.CloseDrawer(ctx, *winner); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := s.GetOpenDrawer(ctx); !errors.Is(err, store.ErrNoOpenDrawer) {
		t.Fatalf("drawer should be closed, got %v", err)
	}
}
