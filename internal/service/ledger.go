package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"smartfix/backend/internal/domain"
	"smartfix/backend/internal/money"
	"smartfix/backend/internal/notify"
	"smartfix/backend/internal/signal"
	"smartfix/backend/internal/xid"
)

const (
	stepOrder       = "order"
	stepTransaction = "transaction"
	stepSale        = "sale"
	stepEvent       = "event"
)

// RecordPayment takes a payment against the order balance. The
// balance never goes below zero no matter how much is tendered.
func (s *Service) RecordPayment(ctx context.Context, orderID string, req domain.PaymentRequest) (*domain.WorkOrder, error) {
	return s.recordLedger(ctx, orderID, domain.IntentKindPayment, req)
}

// RecordDeposit takes a partial prepayment. Unlike a payment it is
// rejected outright when it exceeds the balance due.
func (s *Service) RecordDeposit(ctx context.Context, orderID string, req domain.PaymentRequest) (*domain.WorkOrder, error) {
	return s.recordLedger(ctx, orderID, domain.IntentKindDeposit, req)
}

// PreviewDeposit computes the sale a deposit would record without
// persisting anything.
func (s *Service) PreviewDeposit(ctx context.Context, orderID string, req domain.PaymentRequest) (*domain.DepositDraft, error) {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.validateLedgerRequest(order, domain.IntentKindDeposit, req); err != nil {
		return nil, err
	}

	subtotal, tax := s.decomposeAmount(domain.IntentKindDeposit, req.AmountCents)
	return &domain.DepositDraft{
		AmountCents:    req.AmountCents,
		SubtotalCents:  subtotal,
		TaxCents:       tax,
		TaxRatePercent: s.saleTaxRate(domain.IntentKindDeposit),
		Method:         req.Method,
		SaleNumber:     xid.Stamp("DEP"),
		IsDeposit:      true,
	}, nil
}

func (s *Service) ListPaymentIntents(ctx context.Context, status string, limit int) ([]domain.PaymentIntent, error) {
	if err := requireRole(ctx, "admin", "manager"); err != nil {
		return nil, err
	}
	return s.repo.ListPaymentIntents(ctx, status, limit)
}

// recordLedger runs the multi-step financial write: order mutation,
// transaction, sale, order event. An outbox intent is created first
// and each completed step is recorded on it, so a failure mid-sequence
// leaves a reviewable trail instead of silently inconsistent rows.
func (s *Service) recordLedger(ctx context.Context, orderID string, kind string, req domain.PaymentRequest) (*domain.WorkOrder, error) {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.validateLedgerRequest(order, kind, req); err != nil {
		return nil, err
	}
	intent, err := s.repo.CreatePaymentIntent(ctx, domain.PaymentIntent{
		OrderID:     order.ID,
		Kind:        kind,
		AmountCents: req.AmountCents,
		Method:      req.Method,
		Status:      domain.IntentStatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteStore, err)
	}

	var completed []string
	step := func(name string, fn func() error) error {
		if err := fn(); err != nil {
			s.finishIntent(ctx, intent.ID, domain.IntentStatusFailed, name)
			if len(completed) == 0 {
				return fmt.Errorf("%w: %s: %v", ErrRemoteStore, name, err)
			}
			return &PartialWriteError{
				IntentID:   intent.ID,
				Completed:  append([]string(nil), completed...),
				FailedStep: name,
				Err:        err,
			}
		}
		completed = append(completed, name)
		if err := s.repo.AddPaymentIntentStep(ctx, intent.ID, name); err != nil {
			log.Printf("[audit] WARN: failed to record step %s on intent %s: %v", name, intent.ID, err)
		}
		return nil
	}

	actor := ActorFromContext(ctx)
	now := time.Now().UTC()

	var updated *domain.WorkOrder
	if err := step(stepOrder, func() error {
		order.AmountPaid += req.AmountCents
		s.recomputeBalance(order)
		var err error
		updated, err = s.repo.UpdateOrder(ctx, *order)
		return err
	}); err != nil {
		return nil, err
	}

	if err := step(stepTransaction, func() error {
		_, err := s.repo.CreateTransaction(ctx, domain.Transaction{
			Type:          domain.TxTypeRevenue,
			AmountCents:   req.AmountCents,
			Category:      kind,
			Description:   fmt.Sprintf("%s on order %s", kind, updated.OrderNumber),
			PaymentMethod: req.Method,
			OrderID:       updated.ID,
			RecordedBy:    actor.Username,
			CreatedAt:     now,
		})
		return err
	}); err != nil {
		return nil, err
	}

	subtotal, tax := s.decomposeAmount(kind, req.AmountCents)
	salePrefix := "WO-PAY"
	if kind == domain.IntentKindDeposit {
		salePrefix = "DEP"
	}
	var sale *domain.Sale
	if err := step(stepSale, func() error {
		var err error
		sale, err = s.repo.CreateSale(ctx, domain.Sale{
			SaleNumber:     xid.Stamp(salePrefix),
			CustomerName:   updated.CustomerName,
			SubtotalCents:  subtotal,
			TaxRatePercent: s.saleTaxRate(kind),
			TaxCents:       tax,
			TotalCents:     req.AmountCents,
			AmountPaid:     req.AmountCents,
			PaymentMethod:  req.Method,
			OrderID:        updated.ID,
			IsDeposit:      kind == domain.IntentKindDeposit,
			CreatedBy:      actor.Username,
			CreatedAt:      now,
		})
		return err
	}); err != nil {
		return nil, err
	}

	if err := step(stepEvent, func() error {
		return s.repo.AppendOrderEvent(ctx, domain.WorkOrderEvent{
			OrderID:     updated.ID,
			OrderNumber: updated.OrderNumber,
			EventType:   domain.EventPayment,
			Description: fmt.Sprintf("%s of $%.2f by %s", kind, float64(req.AmountCents)/100, req.Method),
			UserName:    actor.Username,
			UserRole:    actor.Role,
			Metadata:    map[string]string{"sale_number": sale.SaleNumber, "kind": kind},
			CreatedAt:   now,
		})
	}); err != nil {
		return nil, err
	}

	s.finishIntent(ctx, intent.ID, domain.IntentStatusComplete, "")

	if s.bus != nil {
		s.bus.Publish(signal.SaleRecorded, *sale)
	}
	s.sendReceipt(ctx, updated, sale)

	return updated, nil
}

func (s *Service) validateLedgerRequest(order *domain.WorkOrder, kind string, req domain.PaymentRequest) error {
	if req.AmountCents <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidationFailed)
	}
	if req.Method == "" {
		return fmt.Errorf("%w: payment method required", ErrValidationFailed)
	}
	if order.Status == domain.StatusCancelled {
		return fmt.Errorf("%w: order is cancelled", ErrPreconditionFailed)
	}
	if kind == domain.IntentKindDeposit && req.AmountCents > order.BalanceDue {
		return fmt.Errorf("%w: deposit $%.2f exceeds balance $%.2f",
			ErrExceedsBalance, float64(req.AmountCents)/100, float64(order.BalanceDue)/100)
	}
	return nil
}

// decomposeAmount splits a tendered gross into subtotal and tax.
// Deposits carry no tax until the final payment unless the shop is
// configured to decompose them too.
func (s *Service) decomposeAmount(kind string, amountCents int64) (subtotal int64, tax int64) {
	if kind == domain.IntentKindDeposit && !s.tax.DecomposeDeposits {
		return amountCents, 0
	}
	return money.Decompose(amountCents, s.tax.RatePercent)
}

func (s *Service) saleTaxRate(kind string) float64 {
	if kind == domain.IntentKindDeposit && !s.tax.DecomposeDeposits {
		return 0
	}
	return s.tax.RatePercent
}

func (s *Service) finishIntent(ctx context.Context, id string, status string, failedStep string) {
	if err := s.repo.FinishPaymentIntent(ctx, id, status, failedStep); err != nil {
		log.Printf("[audit] WARN: failed to finish intent %s as %s: %v", id, status, err)
	}
}

func (s *Service) sendReceipt(ctx context.Context, order *domain.WorkOrder, sale *domain.Sale) {
	if order.CustomerEmail == "" {
		return
	}
	err := s.notifier.Send(ctx, notify.Message{
		To:      order.CustomerEmail,
		Subject: fmt.Sprintf("Recibo %s", sale.SaleNumber),
		Body: fmt.Sprintf("Hola %s, recibimos tu pago de $%.2f sobre la orden %s. Saldo pendiente: $%.2f.",
			order.CustomerName, float64(sale.TotalCents)/100, order.OrderNumber, float64(order.BalanceDue)/100),
	})
	if err != nil {
		log.Printf("[notify] WARN: receipt %s not delivered: %v", sale.SaleNumber, err)
		return
	}
	s.appendEvent(ctx, order, domain.EventEmailSent, fmt.Sprintf("receipt %s emailed", sale.SaleNumber),
		map[string]string{"to": order.CustomerEmail})
}
