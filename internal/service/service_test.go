package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"smartfix/backend/internal/cache"
	"smartfix/backend/internal/domain"
	"smartfix/backend/internal/drawer"
	"smartfix/backend/internal/notify"
	"smartfix/backend/internal/signal"
	"smartfix/backend/internal/store"
	"smartfix/backend/internal/store/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	repo := memory.NewSeeded()
	svc := New(repo, drawer.NewWatch(), signal.NewBus(), notify.Noop{}, cache.NoopDrawerStatusCache{}, time.Minute, TaxPolicy{RatePercent: 11.5})
	return svc, repo
}

func asUser(username string, role string) context.Context {
	return WithActor(context.Background(), domain.Actor{Username: username, Role: role})
}

func asAdmin() context.Context {
	return asUser("admin", "admin")
}

func mustCreateOrder(t *testing.T, svc *Service, ctx context.Context, estimateCents int64) *domain.WorkOrder {
	t.Helper()
	order, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerName: "Carla Mendoza",
		DeviceBrand:  "Samsung",
		DeviceModel:  "A54",
		Issue:        "cracked screen",
		CostEstimate: estimateCents,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	return order
}

func TestOpenDrawerRejectsSecondOpen(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asAdmin()

	if _, err := svc.OpenDrawer(ctx, domain.DrawerOpenRequest{Denominations: map[string]int{"bills_50": 2}}); err != nil {
		t.Fatalf("first open: %v", err)
	}
	_, err := svc.OpenDrawer(ctx, domain.DrawerOpenRequest{Denominations: map[string]int{"bills_20": 1}})
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("second open: want ErrPreconditionFailed, got %v", err)
	}
}

func TestCashLedgerWritesWithoutDrawer(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asAdmin()
	order := mustCreateOrder(t, svc, ctx, 4000)

	// No drawer open: the ledger does not gate on drawer state.
	updated, err := svc.RecordDeposit(ctx, order.ID, domain.PaymentRequest{AmountCents: order.BalanceDue, Method: "cash"})
	if err != nil {
		t.Fatalf("RecordDeposit without drawer: %v", err)
	}
	if updated.BalanceDue != 0 || !updated.Paid {
		t.Fatalf("want settled order, got balance %d paid %v", updated.BalanceDue, updated.Paid)
	}
}

func TestCloseDrawerReconciliation(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := asAdmin()

	if _, err := svc.OpenDrawer(ctx, domain.DrawerOpenRequest{Denominations: map[string]int{"bills_100": 1}}); err != nil {
		t.Fatalf("open: %v", err)
	}

	now := time.Now().UTC()
	fixtures := []domain.Sale{
		{SaleNumber: "S-1", TotalCents: 5000, AmountPaid: 5000, PaymentMethod: "cash", CreatedAt: now},
		{SaleNumber: "S-2", TotalCents: 3000, AmountPaid: 3000, PaymentMethod: "card", CreatedAt: now},
		{SaleNumber: "S-3", TotalCents: 9900, AmountPaid: 9900, PaymentMethod: "cash", Voided: true, CreatedAt: now},
	}
	for _, sale := range fixtures {
		if _, err := repo.CreateSale(ctx, sale); err != nil {
			t.Fatalf("CreateSale: %v", err)
		}
	}

	// Counted 145.00 against expected 100.00 + 50.00 cash.
	result, err := svc.CloseDrawer(ctx, domain.DrawerCloseRequest{
		Denominations: map[string]int{"bills_100": 1, "bills_20": 2, "bills_5": 1},
	})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	count := result.Drawer.FinalCount
	if count == nil {
		t.Fatal("expected final count on closed drawer")
	}
	if count.TotalCents != 14500 {
		t.Fatalf("counted: want 14500, got %d", count.TotalCents)
	}
	if count.ExpectedCents != 15000 {
		t.Fatalf("expected cash: want 15000, got %d", count.ExpectedCents)
	}
	if result.Difference != -500 {
		t.Fatalf("difference: want -500, got %d", result.Difference)
	}
	// Revenue spans every method; only the expected-cash figure is
	// cash-only. The voided sale counts toward neither.
	if result.Drawer.TotalRevenue != 8000 {
		t.Fatalf("total revenue: want 8000, got %d", result.Drawer.TotalRevenue)
	}

	if _, err := svc.CloseDrawer(ctx, domain.DrawerCloseRequest{Denominations: map[string]int{"bills_1": 1}}); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("second close: want ErrPreconditionFailed, got %v", err)
	}
}

func TestPaymentEndToEnd(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asAdmin()

	opened, err := svc.OpenDrawer(ctx, domain.DrawerOpenRequest{
		Denominations: map[string]int{"bills_100": 1, "coins_025": 2},
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if opened.OpeningBalance != 10050 {
		t.Fatalf("opening balance: want 10050, got %d", opened.OpeningBalance)
	}

	order := mustCreateOrder(t, svc, ctx, 4000)
	if order.BalanceDue != 4460 {
		t.Fatalf("initial balance: want 4460, got %d", order.BalanceDue)
	}

	order, err = svc.RecordPayment(ctx, order.ID, domain.PaymentRequest{AmountCents: 2000, Method: "cash"})
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if order.AmountPaid != 2000 || order.BalanceDue != 2460 {
		t.Fatalf("after payment: paid=%d balance=%d", order.AmountPaid, order.BalanceDue)
	}

	result, err := svc.CloseDrawer(ctx, domain.DrawerCloseRequest{
		Denominations: map[string]int{"bills_100": 1, "bills_20": 1},
	})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if result.Drawer.FinalCount.ExpectedCents != 12050 {
		t.Fatalf("expected: want 12050, got %d", result.Drawer.FinalCount.ExpectedCents)
	}
	if result.Difference != -50 {
		t.Fatalf("difference: want -50, got %d", result.Difference)
	}
}

func TestPaymentBalanceNeverNegative(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asAdmin()
	order := mustCreateOrder(t, svc, ctx, 4000)

	order, err := svc.RecordPayment(ctx, order.ID, domain.PaymentRequest{AmountCents: 5000, Method: "card"})
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if order.BalanceDue != 0 {
		t.Fatalf("balance: want 0, got %d", order.BalanceDue)
	}
	if !order.Paid {
		t.Fatal("order should be marked paid")
	}
}

func TestDepositRules(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asAdmin()
	order := mustCreateOrder(t, svc, ctx, 4000) // balance 4460

	_, err := svc.RecordDeposit(ctx, order.ID, domain.PaymentRequest{AmountCents: 5000, Method: "card"})
	if !errors.Is(err, ErrExceedsBalance) {
		t.Fatalf("over-deposit: want ErrExceedsBalance, got %v", err)
	}

	order, err = svc.RecordDeposit(ctx, order.ID, domain.PaymentRequest{AmountCents: 4460, Method: "card"})
	if err != nil {
		t.Fatalf("exact deposit: %v", err)
	}
	if order.BalanceDue != 0 || !order.Paid {
		t.Fatalf("after exact deposit: balance=%d paid=%v", order.BalanceDue, order.Paid)
	}
}

func TestDepositTaxPolicy(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := asAdmin()
	order := mustCreateOrder(t, svc, ctx, 10000)

	if _, err := svc.RecordDeposit(ctx, order.ID, domain.PaymentRequest{AmountCents: 4460, Method: "card"}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	sales, err := repo.ListRecentSales(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecentSales: %v", err)
	}
	if len(sales) != 1 {
		t.Fatalf("want 1 sale, got %d", len(sales))
	}
	if sales[0].TaxCents != 0 || sales[0].SubtotalCents != 4460 {
		t.Fatalf("default deposit should be tax-exempt: subtotal=%d tax=%d", sales[0].SubtotalCents, sales[0].TaxCents)
	}
	if !sales[0].IsDeposit {
		t.Fatal("sale should be flagged as deposit")
	}

	// With decomposition on, the same deposit splits 4460 into 4000 + 460.
	decomposing := New(repo, drawer.NewWatch(), signal.NewBus(), notify.Noop{}, cache.NoopDrawerStatusCache{}, time.Minute,
		TaxPolicy{RatePercent: 11.5, DecomposeDeposits: true})
	order2 := mustCreateOrder(t, decomposing, ctx, 10000)
	if _, err := decomposing.RecordDeposit(ctx, order2.ID, domain.PaymentRequest{AmountCents: 4460, Method: "card"}); err != nil {
		t.Fatalf("decomposed deposit: %v", err)
	}
	sales, _ = repo.ListRecentSales(ctx, 10)
	latest := sales[0]
	if latest.SubtotalCents != 4000 || latest.TaxCents != 460 {
		t.Fatalf("decomposed deposit: subtotal=%d tax=%d", latest.SubtotalCents, latest.TaxCents)
	}
}

func TestPaymentSaleReversesTax(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := asAdmin()
	order := mustCreateOrder(t, svc, ctx, 4000)

	if _, err := svc.RecordPayment(ctx, order.ID, domain.PaymentRequest{AmountCents: 4460, Method: "card"}); err != nil {
		t.Fatalf("payment: %v", err)
	}
	sales, _ := repo.ListRecentSales(ctx, 10)
	if len(sales) != 1 {
		t.Fatalf("want 1 sale, got %d", len(sales))
	}
	sale := sales[0]
	if sale.SubtotalCents != 4000 || sale.TaxCents != 460 || sale.TotalCents != 4460 {
		t.Fatalf("sale split: subtotal=%d tax=%d total=%d", sale.SubtotalCents, sale.TaxCents, sale.TotalCents)
	}
}

func TestPaymentIntentRecordsSteps(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := asAdmin()
	order := mustCreateOrder(t, svc, ctx, 4000)

	if _, err := svc.RecordPayment(ctx, order.ID, domain.PaymentRequest{AmountCents: 1000, Method: "card"}); err != nil {
		t.Fatalf("payment: %v", err)
	}
	intents, err := repo.ListPaymentIntents(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListPaymentIntents: %v", err)
	}
	if len(intents) != 1 {
		t.Fatalf("want 1 intent, got %d", len(intents))
	}
	intent := intents[0]
	if intent.Status != domain.IntentStatusComplete {
		t.Fatalf("intent status: want complete, got %s", intent.Status)
	}
	want := []string{stepOrder, stepTransaction, stepSale, stepEvent}
	if len(intent.Steps) != len(want) {
		t.Fatalf("steps: want %v, got %v", want, intent.Steps)
	}
	for i, step := range want {
		if intent.Steps[i] != step {
			t.Fatalf("steps: want %v, got %v", want, intent.Steps)
		}
	}
}

// failAfterOrderRepo lets the order mutation through and fails the
// sale write, simulating a crash mid-sequence.
type failAfterOrderRepo struct {
	store.Repository
	saleErr error
}

func (r *failAfterOrderRepo) CreateSale(_ context.Context, _ domain.Sale) (*domain.Sale, error) {
	return nil, r.saleErr
}

func TestPartialWriteSurfacesIntent(t *testing.T) {
	repo := memory.NewSeeded()
	failing := &failAfterOrderRepo{Repository: repo, saleErr: errors.New("disk full")}
	svc := New(failing, drawer.NewWatch(), signal.NewBus(), notify.Noop{}, cache.NoopDrawerStatusCache{}, time.Minute, TaxPolicy{RatePercent: 11.5})
	ctx := asAdmin()
	order := mustCreateOrder(t, svc, ctx, 4000)

	_, err := svc.RecordPayment(ctx, order.ID, domain.PaymentRequest{AmountCents: 1000, Method: "card"})
	var partial *PartialWriteError
	if !errors.As(err, &partial) {
		t.Fatalf("want PartialWriteError, got %v", err)
	}
	if partial.FailedStep != stepSale {
		t.Fatalf("failed step: want %s, got %s", stepSale, partial.FailedStep)
	}
	if len(partial.Completed) != 2 {
		t.Fatalf("completed steps: want [order transaction], got %v", partial.Completed)
	}

	intents, _ := repo.ListPaymentIntents(ctx, domain.IntentStatusFailed, 10)
	if len(intents) != 1 {
		t.Fatalf("want 1 failed intent, got %d", len(intents))
	}
	if intents[0].FailedStep != stepSale {
		t.Fatalf("intent failed step: want %s, got %s", stepSale, intents[0].FailedStep)
	}
}

func TestTransitionSideDataRequired(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asAdmin()
	order := mustCreateOrder(t, svc, ctx, 4000)

	for _, status := range []domain.OrderStatus{domain.StatusDiagnosing, domain.StatusAwaitingApproval} {
		var err error
		order, err = svc.TransitionOrder(ctx, order.ID, domain.StatusChangeRequest{Status: string(status)})
		if err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
	}

	_, err := svc.TransitionOrder(ctx, order.ID, domain.StatusChangeRequest{Status: string(domain.StatusWaitingParts)})
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("waiting_parts without detail: want ErrValidationFailed, got %v", err)
	}

	order, err = svc.TransitionOrder(ctx, order.ID, domain.StatusChangeRequest{
		Status:       string(domain.StatusWaitingParts),
		WaitingParts: &domain.WaitingPartsDetail{Supplier: "PartsMX", PartName: "A54 display"},
	})
	if err != nil {
		t.Fatalf("waiting_parts: %v", err)
	}
	detail, ok := order.StatusMetadata[string(domain.StatusWaitingParts)]
	if !ok || detail.WaitingParts == nil || detail.WaitingParts.Supplier != "PartsMX" {
		t.Fatalf("waiting_parts detail not recorded: %+v", order.StatusMetadata)
	}
}

func TestCancellationGuards(t *testing.T) {
	svc, _ := newTestService(t)
	admin := asAdmin()
	order := mustCreateOrder(t, svc, admin, 4000)

	_, err := svc.CancelOrder(asUser("tino", "technician"), order.ID, domain.OrderCancelRequest{Reason: "customer gave up", PIN: "591358"})
	if !errors.Is(err, ErrAuthorizationFailed) {
		t.Fatalf("technician cancel: want ErrAuthorizationFailed, got %v", err)
	}

	_, err = svc.CancelOrder(admin, order.ID, domain.OrderCancelRequest{Reason: "customer gave up", PIN: "000000"})
	if !errors.Is(err, ErrAuthorizationFailed) {
		t.Fatalf("wrong PIN: want ErrAuthorizationFailed, got %v", err)
	}

	before := len(order.StatusHistory)
	order, err = svc.CancelOrder(admin, order.ID, domain.OrderCancelRequest{Reason: "customer gave up", PIN: "735291"})
	if err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
	if order.Status != domain.StatusCancelled {
		t.Fatalf("status: want cancelled, got %s", order.Status)
	}
	if len(order.StatusHistory) != before+1 {
		t.Fatalf("history: want %d entries, got %d", before+1, len(order.StatusHistory))
	}
	detail := order.StatusMetadata[string(domain.StatusCancelled)]
	if detail.Cancellation == nil || detail.Cancellation.Reason != "customer gave up" {
		t.Fatalf("cancellation detail not recorded: %+v", order.StatusMetadata)
	}
}

func TestTerminalStatesAdmitNothing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asAdmin()
	order := mustCreateOrder(t, svc, ctx, 4000)

	path := []domain.OrderStatus{
		domain.StatusDiagnosing, domain.StatusAwaitingApproval,
		domain.StatusInProgress, domain.StatusReadyForPickup, domain.StatusCompleted,
	}
	for _, status := range path {
		var err error
		order, err = svc.TransitionOrder(ctx, order.ID, domain.StatusChangeRequest{Status: string(status)})
		if err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
	}

	_, err := svc.TransitionOrder(ctx, order.ID, domain.StatusChangeRequest{Status: string(domain.StatusIntake)})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("reopen completed: want ErrInvalidTransition, got %v", err)
	}
	_, err = svc.CancelOrder(ctx, order.ID, domain.OrderCancelRequest{Reason: "late regret", PIN: "735291"})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("cancel completed: want ErrInvalidTransition, got %v", err)
	}
}

func TestSameStatusReentry(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asAdmin()
	order := mustCreateOrder(t, svc, ctx, 4000)

	order, err := svc.TransitionOrder(ctx, order.ID, domain.StatusChangeRequest{Status: string(domain.StatusDiagnosing)})
	if err != nil {
		t.Fatalf("first diagnosing: %v", err)
	}
	before := len(order.StatusHistory)
	order, err = svc.TransitionOrder(ctx, order.ID, domain.StatusChangeRequest{Status: string(domain.StatusDiagnosing)})
	if err != nil {
		t.Fatalf("re-enter diagnosing: %v", err)
	}
	if len(order.StatusHistory) != before+1 {
		t.Fatalf("re-entry should append to history: want %d, got %d", before+1, len(order.StatusHistory))
	}
}

func TestDeleteGuard(t *testing.T) {
	svc, repo := newTestService(t)
	admin := asAdmin()
	order := mustCreateOrder(t, svc, admin, 4000)
	if _, err := svc.RecordPayment(admin, order.ID, domain.PaymentRequest{AmountCents: 1000, Method: "card"}); err != nil {
		t.Fatalf("payment: %v", err)
	}

	err := svc.DeleteOrderPermanently(admin, order.ID, domain.OrderDeleteRequest{Confirmation: "eliminar", PIN: "735291"})
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("wrong phrase: want ErrValidationFailed, got %v", err)
	}
	err = svc.DeleteOrderPermanently(admin, order.ID, domain.OrderDeleteRequest{Confirmation: "ELIMINAR", PIN: "111111"})
	if !errors.Is(err, ErrAuthorizationFailed) {
		t.Fatalf("wrong PIN: want ErrAuthorizationFailed, got %v", err)
	}
	err = svc.DeleteOrderPermanently(asUser("tino", "technician"), order.ID, domain.OrderDeleteRequest{Confirmation: "ELIMINAR", PIN: "591358"})
	if !errors.Is(err, ErrAuthorizationFailed) {
		t.Fatalf("technician delete: want ErrAuthorizationFailed, got %v", err)
	}

	if err := svc.DeleteOrderPermanently(admin, order.ID, domain.OrderDeleteRequest{Confirmation: "ELIMINAR", PIN: "735291"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetOrderByID(admin, order.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("order should be gone, got %v", err)
	}
	events, err := repo.ListOrderEvents(admin, order.ID, 10)
	if err != nil {
		t.Fatalf("ListOrderEvents: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("events should cascade, got %d", len(events))
	}
	// Financial rows survive the delete.
	sales, _ := repo.ListRecentSales(admin, 10)
	if len(sales) != 1 {
		t.Fatalf("sales must survive delete, got %d", len(sales))
	}
}

func TestSoftDeleteHidesOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asAdmin()
	order := mustCreateOrder(t, svc, ctx, 4000)

	if _, err := svc.DeleteOrder(asUser("tino", "technician"), order.ID); !errors.Is(err, ErrAuthorizationFailed) {
		t.Fatalf("technician soft delete: want ErrAuthorizationFailed, got %v", err)
	}

	deleted, err := svc.DeleteOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("DeleteOrder: %v", err)
	}
	if !deleted.Deleted {
		t.Fatal("order should carry the deleted flag")
	}

	visible, err := svc.ListOrders(ctx, "", false, 50)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	for _, o := range visible {
		if o.ID == order.ID {
			t.Fatal("soft-deleted order should not appear in default listings")
		}
	}

	all, err := svc.ListOrders(ctx, "", true, 50)
	if err != nil {
		t.Fatalf("ListOrders include_deleted: %v", err)
	}
	found := false
	for _, o := range all {
		if o.ID == order.ID && o.Deleted {
			found = true
		}
	}
	if !found {
		t.Fatal("include_deleted listing should still show the order")
	}

	events, err := svc.ListOrderEvents(ctx, order.ID, 50)
	if err != nil {
		t.Fatalf("ListOrderEvents: %v", err)
	}
	audited := false
	for _, event := range events {
		if event.EventType == domain.EventDeleted {
			audited = true
		}
	}
	if !audited {
		t.Fatal("soft delete should leave an audit event")
	}

	// Second delete is a no-op, not an error.
	if again, err := svc.DeleteOrder(ctx, order.ID); err != nil || !again.Deleted {
		t.Fatalf("repeat delete: got (%+v, %v)", again, err)
	}
}

func TestAddOrderNote(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asAdmin()
	order := mustCreateOrder(t, svc, ctx, 4000)

	if _, err := svc.AddOrderNote(ctx, order.ID, domain.OrderNoteRequest{Note: "   "}); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("blank note: want ErrValidationFailed, got %v", err)
	}

	event, err := svc.AddOrderNote(asUser("tino", "technician"), order.ID, domain.OrderNoteRequest{Note: "customer approved the extra part"})
	if err != nil {
		t.Fatalf("AddOrderNote: %v", err)
	}
	if event.EventType != domain.EventNote || event.UserName != "tino" {
		t.Fatalf("unexpected note event: %+v", event)
	}

	events, err := svc.ListOrderEvents(ctx, order.ID, 50)
	if err != nil {
		t.Fatalf("ListOrderEvents: %v", err)
	}
	found := false
	for _, e := range events {
		if e.EventType == domain.EventNote && e.Description == "customer approved the extra part" {
			found = true
		}
	}
	if !found {
		t.Fatal("note should land on the order timeline")
	}
}

func TestSalesSinceIdempotent(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := asAdmin()
	cutoff := time.Now().UTC().Add(-time.Hour)

	for i, total := range []int64{1000, 2500} {
		if _, err := repo.CreateSale(ctx, domain.Sale{
			SaleNumber: "S-" + string(rune('A'+i)), TotalCents: total, PaymentMethod: "cash", CreatedAt: time.Now().UTC(),
		}); err != nil {
			t.Fatalf("CreateSale: %v", err)
		}
	}

	first, err := svc.salesSince(ctx, cutoff)
	if err != nil {
		t.Fatalf("salesSince: %v", err)
	}
	second, err := svc.salesSince(ctx, cutoff)
	if err != nil {
		t.Fatalf("salesSince again: %v", err)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("selector should be stable: %d then %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("selector order changed between runs")
		}
	}
}

func TestPayrollFlow(t *testing.T) {
	svc, repo := newTestService(t)
	admin := asAdmin()

	// 90 worked minutes at tino's 12.00/h rate.
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)
	if _, err := repo.CreateTimeEntry(admin, domain.TimeEntry{Employee: "tino", ClockIn: start, ClockOut: &end}); err != nil {
		t.Fatalf("CreateTimeEntry: %v", err)
	}

	from := start.Add(-time.Hour)
	to := end.Add(time.Hour)
	summary, err := svc.PayrollSummary(admin, "tino", from, to)
	if err != nil {
		t.Fatalf("PayrollSummary: %v", err)
	}
	if summary.WorkedMS != 90*60*1000 {
		t.Fatalf("worked ms: want 5400000, got %d", summary.WorkedMS)
	}
	if summary.AmountCents != 1800 {
		t.Fatalf("amount: want 1800, got %d", summary.AmountCents)
	}

	_, err = svc.ProcessPayrollPayment(asUser("marta", "manager"), domain.PayrollPaymentRequest{
		Employee: "tino", PeriodStart: from, PeriodEnd: to, Method: "cash",
	})
	if !errors.Is(err, ErrAuthorizationFailed) {
		t.Fatalf("manager payout: want ErrAuthorizationFailed, got %v", err)
	}

	payment, err := svc.ProcessPayrollPayment(admin, domain.PayrollPaymentRequest{
		Employee: "tino", PeriodStart: from, PeriodEnd: to, Method: "cash",
	})
	if err != nil {
		t.Fatalf("ProcessPayrollPayment: %v", err)
	}
	if payment.AmountCents != 1800 {
		t.Fatalf("payment amount: want 1800, got %d", payment.AmountCents)
	}

	// Paid entries drop out of the next summary instead of being deleted.
	after, err := svc.PayrollSummary(admin, "tino", from, to)
	if err != nil {
		t.Fatalf("second summary: %v", err)
	}
	if after.WorkedMS != 0 || len(after.Entries) != 0 {
		t.Fatalf("paid time should not count again: ms=%d entries=%d", after.WorkedMS, len(after.Entries))
	}
	entries, err := repo.ListTimeEntries(admin, "tino", from, to, false)
	if err != nil {
		t.Fatalf("ListTimeEntries: %v", err)
	}
	if len(entries) != 1 || entries[0].PaymentID != payment.ID {
		t.Fatalf("entry should carry the payment marker: %+v", entries)
	}

	_, err = svc.ProcessPayrollPayment(admin, domain.PayrollPaymentRequest{Employee: "tino", PeriodStart: from, PeriodEnd: to, Method: "cash"})
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("double payout: want ErrPreconditionFailed, got %v", err)
	}
}

func TestPayrollSummaryCountsOpenShift(t *testing.T) {
	svc, repo := newTestService(t)
	admin := asAdmin()

	clockIn := time.Now().UTC().Add(-2 * time.Hour)
	if _, err := repo.CreateTimeEntry(admin, domain.TimeEntry{Employee: "tino", ClockIn: clockIn}); err != nil {
		t.Fatalf("CreateTimeEntry: %v", err)
	}

	from := clockIn.Add(-time.Hour)
	to := time.Now().UTC().Add(time.Hour)
	summary, err := svc.PayrollSummary(admin, "tino", from, to)
	if err != nil {
		t.Fatalf("PayrollSummary: %v", err)
	}
	twoHours := int64(2 * 60 * 60 * 1000)
	if summary.WorkedMS < twoHours || summary.WorkedMS > twoHours+60_000 {
		t.Fatalf("worked ms: want ~%d for the running shift, got %d", twoHours, summary.WorkedMS)
	}

	// The running shift keeps accruing, so payout waits for clock-out.
	_, err = svc.ProcessPayrollPayment(admin, domain.PayrollPaymentRequest{
		Employee: "tino", PeriodStart: from, PeriodEnd: to, Method: "cash",
	})
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("payout while clocked in: want ErrPreconditionFailed, got %v", err)
	}
}

func TestClockInOut(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asUser("tino", "technician")

	entry, err := svc.ClockIn(ctx)
	if err != nil {
		t.Fatalf("ClockIn: %v", err)
	}
	if _, err := svc.ClockIn(ctx); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("double clock-in: want ErrPreconditionFailed, got %v", err)
	}

	closed, err := svc.ClockOut(ctx)
	if err != nil {
		t.Fatalf("ClockOut: %v", err)
	}
	if closed.ID != entry.ID || closed.ClockOut == nil {
		t.Fatalf("clock-out should close the open entry: %+v", closed)
	}
	if _, err := svc.ClockOut(ctx); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("double clock-out: want ErrPreconditionFailed, got %v", err)
	}
}

func TestTodaySalesExcludesVoided(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := asAdmin()
	now := time.Now().UTC()

	fixtures := []domain.Sale{
		{SaleNumber: "T-1", TotalCents: 4460, TaxCents: 460, PaymentMethod: "cash", CreatedAt: now},
		{SaleNumber: "T-2", TotalCents: 2000, TaxCents: 0, PaymentMethod: "card", IsDeposit: true, CreatedAt: now},
		{SaleNumber: "T-3", TotalCents: 7777, TaxCents: 777, PaymentMethod: "cash", Voided: true, CreatedAt: now},
	}
	for _, sale := range fixtures {
		if _, err := repo.CreateSale(ctx, sale); err != nil {
			t.Fatalf("CreateSale: %v", err)
		}
	}

	today, err := svc.TodaySales(ctx)
	if err != nil {
		t.Fatalf("TodaySales: %v", err)
	}
	if today.Count != 2 || today.TotalCents != 6460 || today.TaxCents != 460 {
		t.Fatalf("today: %+v", today)
	}
}

func TestFinancialOverview(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := asAdmin()
	now := time.Now().UTC()

	sales := []domain.Sale{
		{SaleNumber: "F-1", TotalCents: 4460, TaxCents: 460, PaymentMethod: "cash", CreatedAt: now},
		{SaleNumber: "F-2", TotalCents: 2000, PaymentMethod: "card", IsDeposit: true, CreatedAt: now},
	}
	for _, sale := range sales {
		if _, err := repo.CreateSale(ctx, sale); err != nil {
			t.Fatalf("CreateSale: %v", err)
		}
	}
	if _, err := repo.CreateTransaction(ctx, domain.Transaction{Type: domain.TxTypeExpense, AmountCents: 1800, Category: "payroll", CreatedAt: now}); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	overview, err := svc.FinancialOverview(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("FinancialOverview: %v", err)
	}
	if overview.RevenueCents != 6460 || overview.DepositCents != 2000 || overview.ExpenseCents != 1800 {
		t.Fatalf("overview: %+v", overview)
	}
	if len(overview.ByMethod) != 2 {
		t.Fatalf("by method: %+v", overview.ByMethod)
	}

	if _, err := svc.FinancialOverview(asUser("tino", "technician"), now.Add(-time.Hour), now); !errors.Is(err, ErrAuthorizationFailed) {
		t.Fatalf("technician overview: want ErrAuthorizationFailed, got %v", err)
	}
}

func TestInitialDepositAtIntake(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := asAdmin()

	order, err := svc.CreateOrder(ctx, domain.OrderCreateRequest{
		CustomerName:   "Luis Parra",
		DeviceBrand:    "Apple",
		DeviceModel:    "iPhone 13",
		Issue:          "battery drain",
		CostEstimate:   8000,
		InitialDeposit: 2000,
		DepositMethod:  "card",
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.AmountPaid != 2000 {
		t.Fatalf("intake deposit not applied: %+v", order)
	}
	sales, _ := repo.ListRecentSales(ctx, 10)
	if len(sales) != 1 || !sales[0].IsDeposit {
		t.Fatalf("intake deposit should record a deposit sale: %+v", sales)
	}
}
