package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"smartfix/backend/internal/domain"
	"smartfix/backend/internal/notify"
	"smartfix/backend/internal/signal"
	"smartfix/backend/internal/xid"
)

// deleteConfirmationPhrase must be typed verbatim before a permanent
// delete is even considered.
const deleteConfirmationPhrase = "ELIMINAR"

func (s *Service) CreateOrder(ctx context.Context, req domain.OrderCreateRequest) (*domain.WorkOrder, error) {
	if strings.TrimSpace(req.CustomerName) == "" {
		return nil, fmt.Errorf("%w: customer name required", ErrValidationFailed)
	}
	if strings.TrimSpace(req.Issue) == "" {
		return nil, fmt.Errorf("%w: issue description required", ErrValidationFailed)
	}
	if req.CostEstimate < 0 {
		return nil, fmt.Errorf("%w: cost estimate cannot be negative", ErrValidationFailed)
	}
	if req.InitialDeposit < 0 {
		return nil, fmt.Errorf("%w: deposit cannot be negative", ErrValidationFailed)
	}

	actor := ActorFromContext(ctx)
	now := time.Now().UTC()
	order := domain.WorkOrder{
		OrderNumber:   xid.Stamp("WO"),
		CustomerID:    req.CustomerID,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		DeviceBrand:   strings.TrimSpace(req.DeviceBrand),
		DeviceModel:   strings.TrimSpace(req.DeviceModel),
		DeviceIMEI:    strings.TrimSpace(req.DeviceIMEI),
		Issue:         strings.TrimSpace(req.Issue),
		Status:        domain.StatusIntake,
		StatusHistory: []domain.StatusChange{{
			Status:    domain.StatusIntake,
			ChangedBy: actor.Username,
			ChangedAt: now,
		}},
		CostEstimate: req.CostEstimate,
		Parts:        req.Parts,
		Checklist:    req.Checklist,
		Security:     req.Security,
		CreatedBy:    actor.Username,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	order.BalanceDue = s.orderTotalCents(&order)

	created, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	s.appendEvent(ctx, created, domain.EventCreate,
		fmt.Sprintf("order created for %s (%s %s)", created.CustomerName, created.DeviceBrand, created.DeviceModel), nil)

	if req.InitialDeposit > 0 {
		method := req.DepositMethod
		if method == "" {
			method = "cash"
		}
		created, err = s.RecordDeposit(ctx, created.ID, domain.PaymentRequest{
			AmountCents: req.InitialDeposit,
			Method:      method,
			Notes:       "intake deposit",
		})
		if err != nil {
			return nil, err
		}
	}

	return created, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*domain.WorkOrder, error) {
	return s.repo.GetOrderByID(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context, status string, includeDeleted bool, limit int) ([]domain.WorkOrder, error) {
	if status != "" && !domain.OrderStatus(status).Known() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if includeDeleted {
		if err := requireRole(ctx, "admin"); err != nil {
			return nil, err
		}
	}
	return s.repo.ListOrders(ctx, status, includeDeleted, limit)
}

func (s *Service) ListOrderEvents(ctx context.Context, orderID string, limit int) ([]domain.WorkOrderEvent, error) {
	if _, err := s.repo.GetOrderByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.repo.ListOrderEvents(ctx, orderID, limit)
}

// TransitionOrder moves an order along the repair lifecycle. The
// target status dictates which side data must accompany the request;
// cancellation additionally demands a privileged actor confirming with
// their PIN.
func (s *Service) TransitionOrder(ctx context.Context, orderID string, req domain.StatusChangeRequest) (*domain.WorkOrder, error) {
	target := domain.OrderStatus(req.Status)
	if !target.Known() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, req.Status)
	}

	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(order.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, target)
	}

	detail, err := s.transitionDetail(ctx, target, req)
	if err != nil {
		return nil, err
	}

	actor := ActorFromContext(ctx)
	now := time.Now().UTC()
	previous := order.Status
	order.Status = target
	order.StatusHistory = append(order.StatusHistory, domain.StatusChange{
		Status:    target,
		ChangedBy: actor.Username,
		ChangedAt: now,
	})
	if detail != nil {
		if order.StatusMetadata == nil {
			order.StatusMetadata = make(map[string]domain.StatusDetail)
		}
		order.StatusMetadata[string(target)] = *detail
	}

	updated, err := s.repo.UpdateOrder(ctx, *order)
	if err != nil {
		return nil, err
	}
	s.appendEvent(ctx, updated, domain.EventStatusChange,
		fmt.Sprintf("status %s -> %s", previous, target),
		map[string]string{"from": string(previous), "to": string(target)})

	switch target {
	case domain.StatusReadyForPickup:
		s.sendOrderNotice(ctx, updated, "Tu equipo está listo",
			fmt.Sprintf("Hola %s, tu %s %s está listo para recoger. Orden %s, saldo pendiente $%.2f.",
				updated.CustomerName, updated.DeviceBrand, updated.DeviceModel, updated.OrderNumber, float64(updated.BalanceDue)/100))
	case domain.StatusCompleted:
		if s.bus != nil {
			s.bus.Publish(signal.OrderDone, *updated)
		}
	}

	return updated, nil
}

// transitionDetail validates and builds the side data the target
// status requires. Targets without side data return nil.
func (s *Service) transitionDetail(ctx context.Context, target domain.OrderStatus, req domain.StatusChangeRequest) (*domain.StatusDetail, error) {
	switch target {
	case domain.StatusWaitingParts:
		wp := req.WaitingParts
		if wp == nil || strings.TrimSpace(wp.Supplier) == "" || strings.TrimSpace(wp.PartName) == "" {
			return nil, fmt.Errorf("%w: waiting_parts requires supplier and part name", ErrValidationFailed)
		}
		detail := *wp
		if detail.OrderedAt.IsZero() {
			detail.OrderedAt = time.Now().UTC()
		}
		return &domain.StatusDetail{WaitingParts: &detail}, nil

	case domain.StatusReparacionExterna:
		note := strings.TrimSpace(req.ExternalShopNote)
		if note == "" {
			return nil, fmt.Errorf("%w: external repair requires a shop note", ErrValidationFailed)
		}
		return &domain.StatusDetail{ExternalRepair: &domain.ExternalRepairDetail{ShopNote: note}}, nil

	case domain.StatusCancelled:
		reason := strings.TrimSpace(req.CancellationReason)
		if reason == "" {
			return nil, fmt.Errorf("%w: cancellation requires a reason", ErrValidationFailed)
		}
		if err := requireRole(ctx, "admin", "manager"); err != nil {
			return nil, err
		}
		if err := s.verifyActorPIN(ctx, req.PIN); err != nil {
			return nil, err
		}
		return &domain.StatusDetail{Cancellation: &domain.CancellationDetail{Reason: reason}}, nil
	}
	return nil, nil
}

func (s *Service) CancelOrder(ctx context.Context, orderID string, req domain.OrderCancelRequest) (*domain.WorkOrder, error) {
	return s.TransitionOrder(ctx, orderID, domain.StatusChangeRequest{
		Status:             string(domain.StatusCancelled),
		CancellationReason: req.Reason,
		PIN:                req.PIN,
	})
}

func (s *Service) AddOrderItem(ctx context.Context, orderID string, req domain.OrderItemRequest) (*domain.WorkOrder, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: item name required", ErrValidationFailed)
	}
	if req.Qty < 1 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidationFailed)
	}
	if req.UnitPrice < 0 || req.UnitCost < 0 {
		return nil, fmt.Errorf("%w: prices cannot be negative", ErrValidationFailed)
	}

	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, fmt.Errorf("%w: order is %s", ErrPreconditionFailed, order.Status)
	}

	order.Parts = append(order.Parts, domain.OrderItem{
		Name:      strings.TrimSpace(req.Name),
		Qty:       req.Qty,
		UnitPrice: req.UnitPrice,
		UnitCost:  req.UnitCost,
		Source:    req.Source,
	})
	s.recomputeBalance(order)

	updated, err := s.repo.UpdateOrder(ctx, *order)
	if err != nil {
		return nil, err
	}
	s.appendEvent(ctx, updated, domain.EventItemAdded,
		fmt.Sprintf("added %dx %s", req.Qty, req.Name), nil)
	return updated, nil
}

func (s *Service) RemoveOrderItem(ctx context.Context, orderID string, req domain.OrderItemRemoveRequest) (*domain.WorkOrder, error) {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, fmt.Errorf("%w: order is %s", ErrPreconditionFailed, order.Status)
	}

	idx := -1
	for i, part := range order.Parts {
		if part.Name == req.Name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: item %q not on order", ErrValidationFailed, req.Name)
	}
	order.Parts = append(order.Parts[:idx], order.Parts[idx+1:]...)
	s.recomputeBalance(order)

	updated, err := s.repo.UpdateOrder(ctx, *order)
	if err != nil {
		return nil, err
	}
	s.appendEvent(ctx, updated, domain.EventItemRemoved,
		fmt.Sprintf("removed %s", req.Name), nil)
	return updated, nil
}

func (s *Service) UpdateChecklist(ctx context.Context, orderID string, req domain.ChecklistUpdateRequest) (*domain.WorkOrder, error) {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Checklist == nil {
		order.Checklist = make(map[string]bool)
	}
	for item, done := range req.Items {
		order.Checklist[item] = done
	}

	updated, err := s.repo.UpdateOrder(ctx, *order)
	if err != nil {
		return nil, err
	}
	s.appendEvent(ctx, updated, domain.EventChecklistUpdated,
		fmt.Sprintf("checklist updated (%d items)", len(req.Items)), nil)
	return updated, nil
}

func (s *Service) UpdateDeviceSecurity(ctx context.Context, orderID string, req domain.SecurityUpdateRequest) (*domain.WorkOrder, error) {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Security = req.Security

	updated, err := s.repo.UpdateOrder(ctx, *order)
	if err != nil {
		return nil, err
	}
	s.appendEvent(ctx, updated, domain.EventSecurityUpdate, "device security updated", nil)
	return updated, nil
}

// AddOrderNote records a free-form note on the order's timeline.
func (s *Service) AddOrderNote(ctx context.Context, orderID string, req domain.OrderNoteRequest) (*domain.WorkOrderEvent, error) {
	note := strings.TrimSpace(req.Note)
	if note == "" {
		return nil, fmt.Errorf("%w: note required", ErrValidationFailed)
	}

	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	actor := ActorFromContext(ctx)
	event := domain.WorkOrderEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		EventType:   domain.EventNote,
		Description: note,
		UserName:    actor.Username,
		UserRole:    actor.Role,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.AppendOrderEvent(ctx, event); err != nil {
		return nil, err
	}
	return &event, nil
}

// DeleteOrder hides the order from everyday listings without touching
// its rows. Admins can still list it with include_deleted and hard
// delete it later.
func (s *Service) DeleteOrder(ctx context.Context, orderID string) (*domain.WorkOrder, error) {
	if err := requireRole(ctx, "admin", "manager"); err != nil {
		return nil, err
	}

	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Deleted {
		return order, nil
	}

	order.Deleted = true
	updated, err := s.repo.UpdateOrder(ctx, *order)
	if err != nil {
		return nil, err
	}
	s.appendEvent(ctx, updated, domain.EventDeleted, "order soft-deleted", nil)
	return updated, nil
}

// DeleteOrderPermanently removes the order and its event timeline.
// Financial rows stay: money that moved is history regardless of what
// happened to the order. The caller must type the confirmation phrase
// exactly, hold the admin role, and re-enter their PIN.
func (s *Service) DeleteOrderPermanently(ctx context.Context, orderID string, req domain.OrderDeleteRequest) error {
	if req.Confirmation != deleteConfirmationPhrase {
		return fmt.Errorf("%w: confirmation phrase mismatch", ErrValidationFailed)
	}
	if err := requireRole(ctx, "admin"); err != nil {
		return err
	}
	if err := s.verifyActorPIN(ctx, req.PIN); err != nil {
		return err
	}
	if _, err := s.repo.GetOrderByID(ctx, orderID); err != nil {
		return err
	}
	return s.repo.DeleteOrderCascade(ctx, orderID)
}

func (s *Service) recomputeBalance(order *domain.WorkOrder) {
	total := s.orderTotalCents(order)
	order.BalanceDue = total - order.AmountPaid
	if order.BalanceDue < 0 {
		order.BalanceDue = 0
	}
	order.Paid = order.AmountPaid > 0 && order.BalanceDue == 0
}

func (s *Service) sendOrderNotice(ctx context.Context, order *domain.WorkOrder, subject string, body string) {
	if order.CustomerEmail == "" {
		return
	}
	err := s.notifier.Send(ctx, notify.Message{
		To:      order.CustomerEmail,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		log.Printf("[notify] WARN: notice for order %s not delivered: %v", order.OrderNumber, err)
		return
	}
	s.appendEvent(ctx, order, domain.EventEmailSent, subject, map[string]string{"to": order.CustomerEmail})
}
