package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smartfix/backend/internal/domain"
	"smartfix/backend/internal/money"
	"smartfix/backend/internal/store"
)

// ClockIn opens a time entry for the acting user. A second clock-in
// while one is open is rejected.
func (s *Service) ClockIn(ctx context.Context) (*domain.TimeEntry, error) {
	actor := ActorFromContext(ctx)
	if actor.Username == "" {
		return nil, ErrAuthorizationFailed
	}

	_, err := s.repo.GetOpenTimeEntry(ctx, actor.Username)
	if err == nil {
		return nil, fmt.Errorf("%w: already clocked in", ErrPreconditionFailed)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	return s.repo.CreateTimeEntry(ctx, domain.TimeEntry{
		Employee: actor.Username,
		ClockIn:  time.Now().UTC(),
	})
}

func (s *Service) ClockOut(ctx context.Context) (*domain.TimeEntry, error) {
	actor := ActorFromContext(ctx)
	if actor.Username == "" {
		return nil, ErrAuthorizationFailed
	}

	open, err := s.repo.GetOpenTimeEntry(ctx, actor.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: not clocked in", ErrPreconditionFailed)
		}
		return nil, err
	}
	return s.repo.CloseTimeEntry(ctx, open.ID, time.Now().UTC())
}

// PayrollSummary totals the unpaid hours an employee worked in the
// period at their stored hourly rate.
func (s *Service) PayrollSummary(ctx context.Context, employee string, from time.Time, to time.Time) (*domain.PayrollSummary, error) {
	if err := requireRole(ctx, "admin", "manager"); err != nil {
		return nil, err
	}
	if employee == "" {
		return nil, fmt.Errorf("%w: employee required", ErrValidationFailed)
	}

	user, err := s.repo.GetUserByUsername(ctx, employee)
	if err != nil {
		return nil, err
	}

	entries, err := s.repo.ListTimeEntries(ctx, employee, from, to, true)
	if err != nil {
		return nil, err
	}

	summary := domain.PayrollSummary{
		Employee:    employee,
		PeriodStart: from,
		PeriodEnd:   to,
		Entries:     entries,
		HourlyRate:  user.HourlyRate,
	}
	// An entry still on the clock counts up to now, so the summary
	// reflects the shift in progress.
	now := time.Now().UTC()
	for _, entry := range entries {
		out := now
		if entry.ClockOut != nil {
			out = *entry.ClockOut
		}
		summary.WorkedMS += out.Sub(entry.ClockIn).Milliseconds()
	}
	summary.Hours, summary.AmountCents = money.HoursAmount(summary.WorkedMS, user.HourlyRate)
	return &summary, nil
}

// ProcessPayrollPayment pays the unpaid period: it records the
// employee payment, books the expense, and flags the covered entries
// with the payment ID so they never pay out twice.
func (s *Service) ProcessPayrollPayment(ctx context.Context, req domain.PayrollPaymentRequest) (*domain.EmployeePayment, error) {
	if err := requireRole(ctx, "admin"); err != nil {
		return nil, err
	}

	summary, err := s.PayrollSummary(ctx, req.Employee, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, err
	}
	if summary.WorkedMS == 0 {
		return nil, fmt.Errorf("%w: no unpaid time in period", ErrPreconditionFailed)
	}
	// Paying out a running shift would pin its value at the payout
	// instant while the entry keeps accruing.
	for _, entry := range summary.Entries {
		if entry.ClockOut == nil {
			return nil, fmt.Errorf("%w: %s is still clocked in; clock out before payout", ErrPreconditionFailed, req.Employee)
		}
	}

	actor := ActorFromContext(ctx)
	payment, err := s.repo.CreateEmployeePayment(ctx, domain.EmployeePayment{
		Employee:    req.Employee,
		AmountCents: summary.AmountCents,
		Hours:       summary.Hours,
		HourlyRate:  summary.HourlyRate,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		Type:        req.Type,
		Method:      req.Method,
		Notes:       req.Notes,
		RecordedBy:  actor.Username,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.CreateTransaction(ctx, domain.Transaction{
		Type:          domain.TxTypeExpense,
		AmountCents:   summary.AmountCents,
		Category:      "payroll",
		Description:   fmt.Sprintf("payroll for %s (%.2fh)", req.Employee, summary.Hours),
		PaymentMethod: req.Method,
		RecordedBy:    actor.Username,
	}); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(summary.Entries))
	for _, entry := range summary.Entries {
		ids = append(ids, entry.ID)
	}
	if err := s.repo.MarkTimeEntriesPaid(ctx, ids, payment.ID); err != nil {
		return nil, err
	}

	return payment, nil
}

func (s *Service) ListEmployeePayments(ctx context.Context, employee string, limit int) ([]domain.EmployeePayment, error) {
	if err := requireRole(ctx, "admin", "manager"); err != nil {
		return nil, err
	}
	return s.repo.ListEmployeePayments(ctx, employee, limit)
}
