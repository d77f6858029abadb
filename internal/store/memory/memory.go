package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"smartfix/backend/internal/domain"
	"smartfix/backend/internal/store"
	"smartfix/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	ordersByID      map[string]domain.WorkOrder
	eventsByOrder   map[string][]domain.WorkOrderEvent
	transactions    []domain.Transaction
	sales           []domain.Sale
	intentsByID     map[string]domain.PaymentIntent
	drawersByID     map[string]domain.CashDrawer
	openDrawerID    string
	movements       []domain.DrawerMovement
	timeEntriesByID map[string]domain.TimeEntry
	paymentsByID    map[string]domain.EmployeePayment
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial staff accounts for dev/demo mode.
// Passwords and PINs come from SEED_* environment variables; unset
// variables fall back to hardcoded dev defaults with a warning.
// Production deployments use PostgreSQL (DATABASE_URL set) and never
// touch these.
func seedUsers() map[string]domain.UserAccount {
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_ADMIN_PIN") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD / SEED_ADMIN_PIN to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username   string
		password   string
		pin        string
		fullName   string
		email      string
		role       string
		hourlyRate int64
	}{
		{"admin", envOr("SEED_ADMIN_PASSWORD", "admin123"), envOr("SEED_ADMIN_PIN", "735291"), "Alicia Ríos", "alicia@smartfix.example", "admin", 2000},
		{"marta", envOr("SEED_MANAGER_PASSWORD", "manager123"), envOr("SEED_MANAGER_PIN", "248613"), "Marta Vélez", "marta@smartfix.example", "manager", 1600},
		{"tino", envOr("SEED_TECH_PASSWORD", "tech123"), envOr("SEED_TECH_PIN", "591358"), "Tino Cordero", "tino@smartfix.example", "technician", 1200},
	} {
		passwordHash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		pinHash, err := bcrypt.GenerateFromPassword([]byte(u.pin), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed pin for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:   u.username,
			Password:   string(passwordHash),
			PIN:        string(pinHash),
			FullName:   u.fullName,
			Email:      u.email,
			Role:       u.role,
			Active:     true,
			HourlyRate: u.hourlyRate,
			CreatedAt:  now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func New() *Store {
	return &Store{
		ordersByID:      make(map[string]domain.WorkOrder),
		eventsByOrder:   make(map[string][]domain.WorkOrderEvent),
		transactions:    make([]domain.Transaction, 0, 128),
		sales:           make([]domain.Sale, 0, 128),
		intentsByID:     make(map[string]domain.PaymentIntent),
		drawersByID:     make(map[string]domain.CashDrawer),
		movements:       make([]domain.DrawerMovement, 0, 64),
		timeEntriesByID: make(map[string]domain.TimeEntry),
		paymentsByID:    make(map[string]domain.EmployeePayment),
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

func NewSeeded() *Store {
	s := New()
	s.usersByUsername = seedUsers()
	return s
}

func (s *Store) CreateOrder(_ context.Context, order domain.WorkOrder) (*domain.WorkOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID == "" {
		order.ID = xid.New("ord")
	}
	if _, exists := s.ordersByID[order.ID]; exists {
		return nil, store.ErrConflict
	}
	s.ordersByID[order.ID] = cloneOrder(order)

	created := cloneOrder(order)
	return &created, nil
}

func (s *Store) GetOrderByID(_ context.Context, id string) (*domain.WorkOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, exists := s.ordersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := cloneOrder(order)
	return &found, nil
}

func (s *Store) UpdateOrder(_ context.Context, order domain.WorkOrder) (*domain.WorkOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ordersByID[order.ID]; !exists {
		return nil, store.ErrNotFound
	}
	order.UpdatedAt = time.Now().UTC()
	s.ordersByID[order.ID] = cloneOrder(order)

	updated := cloneOrder(order)
	return &updated, nil
}

func (s *Store) ListOrders(_ context.Context, status string, includeDeleted bool, limit int) ([]domain.WorkOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]domain.WorkOrder, 0, len(s.ordersByID))
	for _, order := range s.ordersByID {
		if order.Deleted && !includeDeleted {
			continue
		}
		if status != "" && string(order.Status) != status {
			continue
		}
		orders = append(orders, cloneOrder(order))
	}

	slices.SortFunc(orders, func(a, b domain.WorkOrder) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (s *Store) DeleteOrderCascade(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ordersByID[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.ordersByID, id)
	delete(s.eventsByOrder, id)
	return nil
}

func (s *Store) AppendOrderEvent(_ context.Context, event domain.WorkOrderEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.ID == "" {
		event.ID = xid.New("evt")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	s.eventsByOrder[event.OrderID] = append(s.eventsByOrder[event.OrderID], cloneEvent(event))
	return nil
}

func (s *Store) ListOrderEvents(_ context.Context, orderID string, limit int) ([]domain.WorkOrderEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.eventsByOrder[orderID]
	result := make([]domain.WorkOrderEvent, 0, len(events))
	for _, event := range events {
		result = append(result, cloneEvent(event))
	}

	slices.SortFunc(result, func(a, b domain.WorkOrderEvent) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateTransaction(_ context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" {
		tx.ID = xid.New("txn")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	s.transactions = append(s.transactions, tx)

	created := tx
	return &created, nil
}

func (s *Store) ListTransactions(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		if !from.IsZero() && tx.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && tx.CreatedAt.After(to) {
			continue
		}
		result = append(result, tx)
	}

	slices.SortFunc(result, func(a, b domain.Transaction) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	s.sales = append(s.sales, cloneSale(sale))

	created := cloneSale(sale)
	return &created, nil
}

func (s *Store) ListRecentSales(_ context.Context, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		result = append(result, cloneSale(sale))
	}

	slices.SortFunc(result, func(a, b domain.Sale) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreatePaymentIntent(_ context.Context, intent domain.PaymentIntent) (*domain.PaymentIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if intent.ID == "" {
		intent.ID = xid.New("int")
	}
	now := time.Now().UTC()
	if intent.CreatedAt.IsZero() {
		intent.CreatedAt = now
	}
	intent.UpdatedAt = now
	if intent.Status == "" {
		intent.Status = domain.IntentStatusPending
	}
	s.intentsByID[intent.ID] = cloneIntent(intent)

	created := cloneIntent(intent)
	return &created, nil
}

func (s *Store) AddPaymentIntentStep(_ context.Context, id string, step string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, exists := s.intentsByID[id]
	if !exists {
		return store.ErrNotFound
	}
	intent.Steps = append(intent.Steps, step)
	intent.UpdatedAt = time.Now().UTC()
	s.intentsByID[id] = intent
	return nil
}

func (s *Store) FinishPaymentIntent(_ context.Context, id string, status string, failedStep string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, exists := s.intentsByID[id]
	if !exists {
		return store.ErrNotFound
	}
	intent.Status = status
	intent.FailedStep = failedStep
	intent.UpdatedAt = time.Now().UTC()
	s.intentsByID[id] = intent
	return nil
}

func (s *Store) ListPaymentIntents(_ context.Context, status string, limit int) ([]domain.PaymentIntent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.PaymentIntent, 0, len(s.intentsByID))
	for _, intent := range s.intentsByID {
		if status != "" && intent.Status != status {
			continue
		}
		result = append(result, cloneIntent(intent))
	}

	slices.SortFunc(result, func(a, b domain.PaymentIntent) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) OpenDrawer(_ context.Context, drawer domain.CashDrawer) (*domain.CashDrawer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The open check and the insert happen under one lock, which is
	// the single-node equivalent of the partial unique index the
	// postgres store relies on.
	if s.openDrawerID != "" {
		return nil, store.ErrDrawerOpen
	}

	if drawer.ID == "" {
		drawer.ID = xid.New("drw")
	}
	drawer.Status = domain.DrawerStatusOpen
	if drawer.OpenedAt.IsZero() {
		drawer.OpenedAt = time.Now().UTC()
	}
	s.drawersByID[drawer.ID] = cloneDrawer(drawer)
	s.openDrawerID = drawer.ID

	created := cloneDrawer(drawer)
	return &created, nil
}

func (s *Store) GetOpenDrawer(_ context.Context) (*domain.CashDrawer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.openDrawerID == "" {
		return nil, store.ErrNoOpenDrawer
	}
	drawer := cloneDrawer(s.drawersByID[s.openDrawerID])
	return &drawer, nil
}

func (s *Store) GetDrawerByID(_ context.Context, id string) (*domain.CashDrawer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	drawer, exists := s.drawersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := cloneDrawer(drawer)
	return &found, nil
}

func (s *Store) CloseDrawer(_ context.Context, drawer domain.CashDrawer) (*domain.CashDrawer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.drawersByID[drawer.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if existing.Status != domain.DrawerStatusOpen {
		return nil, store.ErrNoOpenDrawer
	}

	drawer.Status = domain.DrawerStatusClosed
	if drawer.ClosedAt == nil {
		now := time.Now().UTC()
		drawer.ClosedAt = &now
	}
	s.drawersByID[drawer.ID] = cloneDrawer(drawer)
	if s.openDrawerID == drawer.ID {
		s.openDrawerID = ""
	}

	closed := cloneDrawer(drawer)
	return &closed, nil
}

func (s *Store) CreateDrawerMovement(_ context.Context, movement domain.DrawerMovement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if movement.ID == "" {
		movement.ID = xid.New("mov")
	}
	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now().UTC()
	}
	s.movements = append(s.movements, cloneMovement(movement))
	return nil
}

func (s *Store) ListDrawerMovements(_ context.Context, drawerID string, limit int) ([]domain.DrawerMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.DrawerMovement, 0, len(s.movements))
	for _, movement := range s.movements {
		if drawerID != "" && movement.DrawerID != drawerID {
			continue
		}
		result = append(result, cloneMovement(movement))
	}

	slices.SortFunc(result, func(a, b domain.DrawerMovement) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateTimeEntry(_ context.Context, entry domain.TimeEntry) (*domain.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("te")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.timeEntriesByID[entry.ID] = cloneTimeEntry(entry)

	created := cloneTimeEntry(entry)
	return &created, nil
}

func (s *Store) GetOpenTimeEntry(_ context.Context, employee string) (*domain.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, entry := range s.timeEntriesByID {
		if entry.Employee == employee && entry.ClockOut == nil {
			found := cloneTimeEntry(entry)
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CloseTimeEntry(_ context.Context, id string, at time.Time) (*domain.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.timeEntriesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	if entry.ClockOut != nil {
		return nil, store.ErrConflict
	}
	out := at.UTC()
	entry.ClockOut = &out
	s.timeEntriesByID[id] = entry

	closed := cloneTimeEntry(entry)
	return &closed, nil
}

func (s *Store) ListTimeEntries(_ context.Context, employee string, from time.Time, to time.Time, unpaidOnly bool) ([]domain.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.TimeEntry, 0, 16)
	for _, entry := range s.timeEntriesByID {
		if entry.Employee != employee {
			continue
		}
		if unpaidOnly && entry.PaymentID != "" {
			continue
		}
		if !from.IsZero() && entry.ClockIn.Before(from) {
			continue
		}
		if !to.IsZero() && entry.ClockIn.After(to) {
			continue
		}
		result = append(result, cloneTimeEntry(entry))
	}

	slices.SortFunc(result, func(a, b domain.TimeEntry) int {
		if a.ClockIn.Equal(b.ClockIn) {
			return cmpString(a.ID, b.ID)
		}
		if a.ClockIn.Before(b.ClockIn) {
			return -1
		}
		return 1
	})
	return result, nil
}

func (s *Store) MarkTimeEntriesPaid(_ context.Context, ids []string, paymentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		entry, exists := s.timeEntriesByID[id]
		if !exists {
			return store.ErrNotFound
		}
		entry.PaymentID = paymentID
		s.timeEntriesByID[id] = entry
	}
	return nil
}

func (s *Store) CreateEmployeePayment(_ context.Context, payment domain.EmployeePayment) (*domain.EmployeePayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if payment.ID == "" {
		payment.ID = xid.New("pay")
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	s.paymentsByID[payment.ID] = payment

	created := payment
	return &created, nil
}

func (s *Store) ListEmployeePayments(_ context.Context, employee string, limit int) ([]domain.EmployeePayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.EmployeePayment, 0, len(s.paymentsByID))
	for _, payment := range s.paymentsByID {
		if employee != "" && payment.Employee != employee {
			continue
		}
		result = append(result, payment)
	}

	slices.SortFunc(result, func(a, b domain.EmployeePayment) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrConflict
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := user
	return &found, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cloneOrder(order domain.WorkOrder) domain.WorkOrder {
	cloned := order
	cloned.StatusHistory = append([]domain.StatusChange(nil), order.StatusHistory...)
	cloned.Parts = append([]domain.OrderItem(nil), order.Parts...)
	if order.StatusMetadata != nil {
		cloned.StatusMetadata = make(map[string]domain.StatusDetail, len(order.StatusMetadata))
		for k, v := range order.StatusMetadata {
			cloned.StatusMetadata[k] = cloneDetail(v)
		}
	}
	if order.Checklist != nil {
		cloned.Checklist = make(map[string]bool, len(order.Checklist))
		for k, v := range order.Checklist {
			cloned.Checklist[k] = v
		}
	}
	return cloned
}

func cloneDetail(detail domain.StatusDetail) domain.StatusDetail {
	cloned := domain.StatusDetail{}
	if detail.WaitingParts != nil {
		wp := *detail.WaitingParts
		cloned.WaitingParts = &wp
	}
	if detail.ExternalRepair != nil {
		er := *detail.ExternalRepair
		cloned.ExternalRepair = &er
	}
	if detail.Cancellation != nil {
		cn := *detail.Cancellation
		cloned.Cancellation = &cn
	}
	return cloned
}

func cloneEvent(event domain.WorkOrderEvent) domain.WorkOrderEvent {
	cloned := event
	if event.Metadata != nil {
		cloned.Metadata = make(map[string]string, len(event.Metadata))
		for k, v := range event.Metadata {
			cloned.Metadata[k] = v
		}
	}
	return cloned
}

func cloneSale(sale domain.Sale) domain.Sale {
	cloned := sale
	cloned.Items = append([]domain.SaleItem(nil), sale.Items...)
	return cloned
}

func cloneIntent(intent domain.PaymentIntent) domain.PaymentIntent {
	cloned := intent
	cloned.Steps = append([]string(nil), intent.Steps...)
	return cloned
}

func cloneDrawer(drawer domain.CashDrawer) domain.CashDrawer {
	cloned := drawer
	if drawer.ClosedAt != nil {
		at := *drawer.ClosedAt
		cloned.ClosedAt = &at
	}
	if drawer.FinalCount != nil {
		count := *drawer.FinalCount
		count.Denominations = cloneCounts(drawer.FinalCount.Denominations)
		cloned.FinalCount = &count
	}
	return cloned
}

func cloneMovement(movement domain.DrawerMovement) domain.DrawerMovement {
	cloned := movement
	cloned.Denominations = cloneCounts(movement.Denominations)
	return cloned
}

func cloneTimeEntry(entry domain.TimeEntry) domain.TimeEntry {
	cloned := entry
	if entry.ClockOut != nil {
		at := *entry.ClockOut
		cloned.ClockOut = &at
	}
	return cloned
}

func cloneCounts(counts map[string]int) map[string]int {
	if counts == nil {
		return nil
	}
	cloned := make(map[string]int, len(counts))
	for k, v := range counts {
		cloned[k] = v
	}
	return cloned
}

func cmpString(a string, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
