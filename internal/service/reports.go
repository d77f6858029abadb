package service

import (
	"context"
	"sort"
	"time"

	"smartfix/backend/internal/domain"
)

// TodaySales totals the non-voided sales recorded since local
// midnight.
func (s *Service) TodaySales(ctx context.Context) (*domain.TodaySales, error) {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	sales, err := s.salesSince(ctx, midnight)
	if err != nil {
		return nil, err
	}

	out := domain.TodaySales{Date: midnight.Format("2006-01-02")}
	for _, sale := range sales {
		out.Count++
		out.TotalCents += sale.TotalCents
		out.TaxCents += sale.TaxCents
	}
	return &out, nil
}

// FinancialOverview aggregates sales and expense transactions over a
// date range, split by payment method.
func (s *Service) FinancialOverview(ctx context.Context, from time.Time, to time.Time) (*domain.FinancialOverview, error) {
	if err := requireRole(ctx, "admin", "manager"); err != nil {
		return nil, err
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.After(to) {
		from, to = to, from
	}

	sales, err := s.salesSince(ctx, from)
	if err != nil {
		return nil, err
	}

	overview := domain.FinancialOverview{From: from, To: to}
	byMethod := make(map[string]*domain.MethodTotal)
	for _, sale := range sales {
		if sale.CreatedAt.After(to) {
			continue
		}
		if sale.IsDeposit {
			overview.DepositCents += sale.TotalCents
			overview.DepositCount++
		}
		overview.RevenueCents += sale.TotalCents
		overview.TaxCents += sale.TaxCents
		overview.SaleCount++

		mt := byMethod[sale.PaymentMethod]
		if mt == nil {
			mt = &domain.MethodTotal{Method: sale.PaymentMethod}
			byMethod[sale.PaymentMethod] = mt
		}
		mt.Count++
		mt.TotalCents += sale.TotalCents
	}

	txs, err := s.repo.ListTransactions(ctx, from, to, 0)
	if err != nil {
		return nil, err
	}
	for _, tx := range txs {
		if tx.Type == domain.TxTypeExpense {
			overview.ExpenseCents += tx.AmountCents
			overview.ExpenseCount++
		}
	}

	overview.ByMethod = make([]domain.MethodTotal, 0, len(byMethod))
	for _, mt := range byMethod {
		overview.ByMethod = append(overview.ByMethod, *mt)
	}
	sort.Slice(overview.ByMethod, func(i, j int) bool {
		return overview.ByMethod[i].Method < overview.ByMethod[j].Method
	})

	return &overview, nil
}
