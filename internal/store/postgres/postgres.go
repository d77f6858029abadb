package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"smartfix/backend/internal/domain"
	"smartfix/backend/internal/store"
	"smartfix/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ensureSchema creates the tables on first start. The partial unique
// index on cash_drawers is what makes OpenDrawer atomic: the database
// refuses a second open row no matter how many instances race.
func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS work_orders (
			id TEXT PRIMARY KEY,
			order_number TEXT NOT NULL UNIQUE,
			customer_id TEXT NOT NULL DEFAULT '',
			customer_name TEXT NOT NULL,
			customer_phone TEXT NOT NULL DEFAULT '',
			customer_email TEXT NOT NULL DEFAULT '',
			device_brand TEXT NOT NULL DEFAULT '',
			device_model TEXT NOT NULL DEFAULT '',
			device_imei TEXT NOT NULL DEFAULT '',
			issue TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			status_history JSONB NOT NULL DEFAULT '[]',
			status_metadata JSONB NOT NULL DEFAULT '{}',
			cost_estimate_cents BIGINT NOT NULL DEFAULT 0,
			amount_paid_cents BIGINT NOT NULL DEFAULT 0,
			balance_due_cents BIGINT NOT NULL DEFAULT 0,
			paid BOOLEAN NOT NULL DEFAULT false,
			parts JSONB NOT NULL DEFAULT '[]',
			checklist JSONB NOT NULL DEFAULT '{}',
			security JSONB NOT NULL DEFAULT '{}',
			deleted BOOLEAN NOT NULL DEFAULT false,
			created_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS work_order_events (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			order_number TEXT NOT NULL DEFAULT '',
			event_type TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			user_name TEXT NOT NULL DEFAULT '',
			user_role TEXT NOT NULL DEFAULT '',
			metadata JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS work_order_events_order_idx ON work_order_events (order_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			amount_cents BIGINT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			payment_method TEXT NOT NULL DEFAULT '',
			order_id TEXT NOT NULL DEFAULT '',
			recorded_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id TEXT PRIMARY KEY,
			sale_number TEXT NOT NULL UNIQUE,
			customer_name TEXT NOT NULL DEFAULT '',
			items JSONB NOT NULL DEFAULT '[]',
			subtotal_cents BIGINT NOT NULL,
			tax_rate_percent DOUBLE PRECISION NOT NULL,
			tax_cents BIGINT NOT NULL,
			total_cents BIGINT NOT NULL,
			amount_paid_cents BIGINT NOT NULL,
			amount_due_cents BIGINT NOT NULL,
			payment_method TEXT NOT NULL,
			order_id TEXT NOT NULL DEFAULT '',
			is_deposit BOOLEAN NOT NULL DEFAULT false,
			voided BOOLEAN NOT NULL DEFAULT false,
			created_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS sales_created_idx ON sales (created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS payment_intents (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			amount_cents BIGINT NOT NULL,
			method TEXT NOT NULL DEFAULT '',
			steps JSONB NOT NULL DEFAULT '[]',
			status TEXT NOT NULL,
			failed_step TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cash_drawers (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			opening_balance_cents BIGINT NOT NULL,
			closing_balance_cents BIGINT NOT NULL DEFAULT 0,
			total_revenue_cents BIGINT NOT NULL DEFAULT 0,
			opened_by TEXT NOT NULL,
			closed_by TEXT NOT NULL DEFAULT '',
			final_count JSONB,
			opened_at TIMESTAMPTZ NOT NULL,
			closed_at TIMESTAMPTZ
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS cash_drawers_one_open_idx ON cash_drawers ((status)) WHERE status = 'open'`,
		`CREATE TABLE IF NOT EXISTS drawer_movements (
			id TEXT PRIMARY KEY,
			drawer_id TEXT NOT NULL,
			type TEXT NOT NULL,
			amount_cents BIGINT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			employee TEXT NOT NULL DEFAULT '',
			denominations JSONB,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS time_entries (
			id TEXT PRIMARY KEY,
			employee TEXT NOT NULL,
			clock_in TIMESTAMPTZ NOT NULL,
			clock_out TIMESTAMPTZ,
			payment_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS employee_payments (
			id TEXT PRIMARY KEY,
			employee TEXT NOT NULL,
			amount_cents BIGINT NOT NULL,
			hours DOUBLE PRECISION NOT NULL,
			hourly_rate_cents BIGINT NOT NULL,
			period_start TIMESTAMPTZ NOT NULL,
			period_end TIMESTAMPTZ NOT NULL,
			type TEXT NOT NULL DEFAULT '',
			method TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			recorded_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			password TEXT NOT NULL,
			pin TEXT NOT NULL DEFAULT '',
			full_name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT true,
			hourly_rate_cents BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

const orderColumns = `id, order_number, customer_id, customer_name, customer_phone, customer_email,
	device_brand, device_model, device_imei, issue, status, status_history, status_metadata,
	cost_estimate_cents, amount_paid_cents, balance_due_cents, paid, parts, checklist, security,
	deleted, created_by, created_at, updated_at`

func (s *Store) CreateOrder(ctx context.Context, order domain.WorkOrder) (*domain.WorkOrder, error) {
	if order.ID == "" {
		order.ID = xid.New("ord")
	}
	history, metadata, parts, checklist, security, err := marshalOrderJSON(order)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO work_orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)
	`, order.ID, order.OrderNumber, order.CustomerID, order.CustomerName, order.CustomerPhone, order.CustomerEmail,
		order.DeviceBrand, order.DeviceModel, order.DeviceIMEI, order.Issue, string(order.Status), history, metadata,
		order.CostEstimate, order.AmountPaid, order.BalanceDue, order.Paid, parts, checklist, security,
		order.Deleted, order.CreatedBy, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := order
	return &created, nil
}

func (s *Store) GetOrderByID(ctx context.Context, id string) (*domain.WorkOrder, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM work_orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *Store) UpdateOrder(ctx context.Context, order domain.WorkOrder) (*domain.WorkOrder, error) {
	order.UpdatedAt = time.Now().UTC()
	history, metadata, parts, checklist, security, err := marshalOrderJSON(order)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE work_orders
		SET customer_id=$2, customer_name=$3, customer_phone=$4, customer_email=$5,
			device_brand=$6, device_model=$7, device_imei=$8, issue=$9, status=$10,
			status_history=$11, status_metadata=$12, cost_estimate_cents=$13,
			amount_paid_cents=$14, balance_due_cents=$15, paid=$16, parts=$17,
			checklist=$18, security=$19, deleted=$20, updated_at=$21
		WHERE id = $1
	`, order.ID, order.CustomerID, order.CustomerName, order.CustomerPhone, order.CustomerEmail,
		order.DeviceBrand, order.DeviceModel, order.DeviceIMEI, order.Issue, string(order.Status),
		history, metadata, order.CostEstimate,
		order.AmountPaid, order.BalanceDue, order.Paid, parts,
		checklist, security, order.Deleted, order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := order
	return &updated, nil
}

func (s *Store) ListOrders(ctx context.Context, status string, includeDeleted bool, limit int) ([]domain.WorkOrder, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM work_orders
		WHERE ($1 = '' OR status = $1)
		  AND ($2 OR NOT deleted)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, status, includeDeleted, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.WorkOrder, 0, limit)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

func (s *Store) DeleteOrderCascade(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM work_orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM work_order_events WHERE order_id = $1`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) AppendOrderEvent(ctx context.Context, event domain.WorkOrderEvent) error {
	if event.ID == "" {
		event.ID = xid.New("evt")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	metadata, err := json.Marshal(orEmptyMap(event.Metadata))
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO work_order_events (id, order_id, order_number, event_type, description, user_name, user_role, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, event.ID, event.OrderID, event.OrderNumber, event.EventType, event.Description, event.UserName, event.UserRole, metadata, event.CreatedAt)
	return err
}

func (s *Store) ListOrderEvents(ctx context.Context, orderID string, limit int) ([]domain.WorkOrderEvent, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, order_number, event_type, description, user_name, user_role, metadata, created_at
		FROM work_order_events
		WHERE order_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, orderID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]domain.WorkOrderEvent, 0, limit)
	for rows.Next() {
		var event domain.WorkOrderEvent
		var metadata []byte
		if err := rows.Scan(&event.ID, &event.OrderID, &event.OrderNumber, &event.EventType, &event.Description, &event.UserName, &event.UserRole, &metadata, &event.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (s *Store) CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if tx.ID == "" {
		tx.ID = xid.New("txn")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, type, amount_cents, category, description, payment_method, order_id, recorded_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, tx.ID, tx.Type, tx.AmountCents, tx.Category, tx.Description, tx.PaymentMethod, tx.OrderID, tx.RecordedBy, tx.CreatedAt)
	if err != nil {
		return nil, err
	}

	created := tx
	return &created, nil
}

func (s *Store) ListTransactions(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Transaction, error) {
	if limit < 1 {
		limit = 500
	}
	if to.IsZero() {
		to = time.Now().UTC().Add(24 * time.Hour)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, amount_cents, category, description, payment_method, order_id, recorded_by, created_at
		FROM transactions
		WHERE created_at >= $1 AND created_at <= $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := make([]domain.Transaction, 0, limit)
	for rows.Next() {
		var tx domain.Transaction
		if err := rows.Scan(&tx.ID, &tx.Type, &tx.AmountCents, &tx.Category, &tx.Description, &tx.PaymentMethod, &tx.OrderID, &tx.RecordedBy, &tx.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	items, err := json.Marshal(orEmptySlice(sale.Items))
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sales (id, sale_number, customer_name, items, subtotal_cents, tax_rate_percent, tax_cents,
			total_cents, amount_paid_cents, amount_due_cents, payment_method, order_id, is_deposit, voided, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`, sale.ID, sale.SaleNumber, sale.CustomerName, items, sale.SubtotalCents, sale.TaxRatePercent, sale.TaxCents,
		sale.TotalCents, sale.AmountPaid, sale.AmountDue, sale.PaymentMethod, sale.OrderID, sale.IsDeposit, sale.Voided, sale.CreatedBy, sale.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := sale
	return &created, nil
}

func (s *Store) ListRecentSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 500
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_number, customer_name, items, subtotal_cents, tax_rate_percent, tax_cents,
			total_cents, amount_paid_cents, amount_due_cents, payment_method, order_id, is_deposit, voided, created_by, created_at
		FROM sales
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, limit)
	for rows.Next() {
		var sale domain.Sale
		var items []byte
		if err := rows.Scan(&sale.ID, &sale.SaleNumber, &sale.CustomerName, &items, &sale.SubtotalCents, &sale.TaxRatePercent, &sale.TaxCents,
			&sale.TotalCents, &sale.AmountPaid, &sale.AmountDue, &sale.PaymentMethod, &sale.OrderID, &sale.IsDeposit, &sale.Voided, &sale.CreatedBy, &sale.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(items, &sale.Items); err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

func (s *Store) CreatePaymentIntent(ctx context.Context, intent domain.PaymentIntent) (*domain.PaymentIntent, error) {
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
	steps, err := json.Marshal(orEmptySlice(intent.Steps))
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO payment_intents (id, order_id, kind, amount_cents, method, steps, status, failed_step, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, intent.ID, intent.OrderID, intent.Kind, intent.AmountCents, intent.Method, steps, intent.Status, intent.FailedStep, intent.CreatedAt, intent.UpdatedAt)
	if err != nil {
		return nil, err
	}

	created := intent
	return &created, nil
}

func (s *Store) AddPaymentIntentStep(ctx context.Context, id string, step string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE payment_intents
		SET steps = steps || to_jsonb($2::text), updated_at = now()
		WHERE id = $1
	`, id, step)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) FinishPaymentIntent(ctx context.Context, id string, status string, failedStep string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE payment_intents
		SET status = $2, failed_step = $3, updated_at = now()
		WHERE id = $1
	`, id, status, failedStep)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListPaymentIntents(ctx context.Context, status string, limit int) ([]domain.PaymentIntent, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, kind, amount_cents, method, steps, status, failed_step, created_at, updated_at
		FROM payment_intents
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	intents := make([]domain.PaymentIntent, 0, limit)
	for rows.Next() {
		var intent domain.PaymentIntent
		var steps []byte
		if err := rows.Scan(&intent.ID, &intent.OrderID, &intent.Kind, &intent.AmountCents, &intent.Method, &steps, &intent.Status, &intent.FailedStep, &intent.CreatedAt, &intent.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(steps, &intent.Steps); err != nil {
			return nil, err
		}
		intents = append(intents, intent)
	}
	return intents, rows.Err()
}

func (s *Store) OpenDrawer(ctx context.Context, drawer domain.CashDrawer) (*domain.CashDrawer, error) {
	if drawer.ID == "" {
		drawer.ID = xid.New("drw")
	}
	drawer.Status = domain.DrawerStatusOpen
	if drawer.OpenedAt.IsZero() {
		drawer.OpenedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cash_drawers (id, status, opening_balance_cents, opened_by, opened_at)
		VALUES ($1,$2,$3,$4,$5)
	`, drawer.ID, drawer.Status, drawer.OpeningBalance, drawer.OpenedBy, drawer.OpenedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDrawerOpen
		}
		return nil, err
	}

	created := drawer
	return &created, nil
}

const drawerColumns = `id, status, opening_balance_cents, closing_balance_cents, total_revenue_cents,
	opened_by, closed_by, final_count, opened_at, closed_at`

func (s *Store) GetOpenDrawer(ctx context.Context) (*domain.CashDrawer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+drawerColumns+` FROM cash_drawers WHERE status = 'open'`)
	drawer, err := scanDrawer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNoOpenDrawer
		}
		return nil, err
	}
	return drawer, nil
}

func (s *Store) GetDrawerByID(ctx context.Context, id string) (*domain.CashDrawer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+drawerColumns+` FROM cash_drawers WHERE id = $1`, id)
	drawer, err := scanDrawer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return drawer, nil
}

func (s *Store) CloseDrawer(ctx context.Context, drawer domain.CashDrawer) (*domain.CashDrawer, error) {
	drawer.Status = domain.DrawerStatusClosed
	if drawer.ClosedAt == nil {
		now := time.Now().UTC()
		drawer.ClosedAt = &now
	}
	var finalCount []byte
	if drawer.FinalCount != nil {
		var err error
		finalCount, err = json.Marshal(drawer.FinalCount)
		if err != nil {
			return nil, err
		}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE cash_drawers
		SET status = 'closed', closing_balance_cents = $2, total_revenue_cents = $3,
			closed_by = $4, final_count = $5, closed_at = $6
		WHERE id = $1 AND status = 'open'
	`, drawer.ID, drawer.ClosingBalance, drawer.TotalRevenue, drawer.ClosedBy, finalCount, drawer.ClosedAt)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNoOpenDrawer
	}

	closed := drawer
	return &closed, nil
}

func (s *Store) CreateDrawerMovement(ctx context.Context, movement domain.DrawerMovement) error {
	if movement.ID == "" {
		movement.ID = xid.New("mov")
	}
	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now().UTC()
	}
	denominations, err := json.Marshal(orEmptyCounts(movement.Denominations))
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drawer_movements (id, drawer_id, type, amount_cents, description, employee, denominations, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, movement.ID, movement.DrawerID, movement.Type, movement.AmountCents, movement.Description, movement.Employee, denominations, movement.CreatedAt)
	return err
}

func (s *Store) ListDrawerMovements(ctx context.Context, drawerID string, limit int) ([]domain.DrawerMovement, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, drawer_id, type, amount_cents, description, employee, denominations, created_at
		FROM drawer_movements
		WHERE ($1 = '' OR drawer_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, drawerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := make([]domain.DrawerMovement, 0, limit)
	for rows.Next() {
		var movement domain.DrawerMovement
		var denominations []byte
		if err := rows.Scan(&movement.ID, &movement.DrawerID, &movement.Type, &movement.AmountCents, &movement.Description, &movement.Employee, &denominations, &movement.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(denominations, &movement.Denominations); err != nil {
			return nil, err
		}
		movements = append(movements, movement)
	}
	return movements, rows.Err()
}

func (s *Store) CreateTimeEntry(ctx context.Context, entry domain.TimeEntry) (*domain.TimeEntry, error) {
	if entry.ID == "" {
		entry.ID = xid.New("te")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO time_entries (id, employee, clock_in, clock_out, payment_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, entry.ID, entry.Employee, entry.ClockIn, entry.ClockOut, entry.PaymentID, entry.CreatedAt)
	if err != nil {
		return nil, err
	}

	created := entry
	return &created, nil
}

func (s *Store) GetOpenTimeEntry(ctx context.Context, employee string) (*domain.TimeEntry, error) {
	var entry domain.TimeEntry
	err := s.db.QueryRowContext(ctx, `
		SELECT id, employee, clock_in, clock_out, payment_id, created_at
		FROM time_entries
		WHERE employee = $1 AND clock_out IS NULL
		ORDER BY clock_in DESC
		LIMIT 1
	`, employee).Scan(&entry.ID, &entry.Employee, &entry.ClockIn, &entry.ClockOut, &entry.PaymentID, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (s *Store) CloseTimeEntry(ctx context.Context, id string, at time.Time) (*domain.TimeEntry, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE time_entries SET clock_out = $2 WHERE id = $1 AND clock_out IS NULL
	`, id, at.UTC())
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrConflict
	}

	var entry domain.TimeEntry
	err = s.db.QueryRowContext(ctx, `
		SELECT id, employee, clock_in, clock_out, payment_id, created_at FROM time_entries WHERE id = $1
	`, id).Scan(&entry.ID, &entry.Employee, &entry.ClockIn, &entry.ClockOut, &entry.PaymentID, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *Store) ListTimeEntries(ctx context.Context, employee string, from time.Time, to time.Time, unpaidOnly bool) ([]domain.TimeEntry, error) {
	if to.IsZero() {
		to = time.Now().UTC().Add(24 * time.Hour)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee, clock_in, clock_out, payment_id, created_at
		FROM time_entries
		WHERE employee = $1 AND clock_in >= $2 AND clock_in <= $3
		  AND (NOT $4 OR payment_id = '')
		ORDER BY clock_in ASC, id ASC
	`, employee, from, to, unpaidOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.TimeEntry, 0, 32)
	for rows.Next() {
		var entry domain.TimeEntry
		if err := rows.Scan(&entry.ID, &entry.Employee, &entry.ClockIn, &entry.ClockOut, &entry.PaymentID, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) MarkTimeEntriesPaid(ctx context.Context, ids []string, paymentID string) error {
	if len(ids) == 0 {
		return nil
	}
	for _, id := range ids {
		res, err := s.db.ExecContext(ctx, `UPDATE time_entries SET payment_id = $2 WHERE id = $1`, id, paymentID)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return store.ErrNotFound
		}
	}
	return nil
}

func (s *Store) CreateEmployeePayment(ctx context.Context, payment domain.EmployeePayment) (*domain.EmployeePayment, error) {
	if payment.ID == "" {
		payment.ID = xid.New("pay")
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employee_payments (id, employee, amount_cents, hours, hourly_rate_cents, period_start, period_end, type, method, notes, recorded_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, payment.ID, payment.Employee, payment.AmountCents, payment.Hours, payment.HourlyRate, payment.PeriodStart, payment.PeriodEnd,
		payment.Type, payment.Method, payment.Notes, payment.RecordedBy, payment.CreatedAt)
	if err != nil {
		return nil, err
	}

	created := payment
	return &created, nil
}

func (s *Store) ListEmployeePayments(ctx context.Context, employee string, limit int) ([]domain.EmployeePayment, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee, amount_cents, hours, hourly_rate_cents, period_start, period_end, type, method, notes, recorded_by, created_at
		FROM employee_payments
		WHERE ($1 = '' OR employee = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, employee, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.EmployeePayment, 0, limit)
	for rows.Next() {
		var payment domain.EmployeePayment
		if err := rows.Scan(&payment.ID, &payment.Employee, &payment.AmountCents, &payment.Hours, &payment.HourlyRate, &payment.PeriodStart, &payment.PeriodEnd,
			&payment.Type, &payment.Method, &payment.Notes, &payment.RecordedBy, &payment.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, pin, full_name, email, role, active, hourly_rate_cents, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, user.Username, user.Password, user.PIN, user.FullName, user.Email, user.Role, user.Active, user.HourlyRate, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error) {
	var user domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password, pin, full_name, email, role, active, hourly_rate_cents, created_at
		FROM users WHERE username = $1
	`, username).Scan(&user.Username, &user.Password, &user.PIN, &user.FullName, &user.Email, &user.Role, &user.Active, &user.HourlyRate, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, pin, full_name, email, role, active, hourly_rate_cents, created_at
		FROM users ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.PIN, &user.FullName, &user.Email, &user.Role, &user.Active, &user.HourlyRate, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password = $2 WHERE username = $1`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.WorkOrder, error) {
	var order domain.WorkOrder
	var status string
	var history, metadata, parts, checklist, security []byte
	err := row.Scan(&order.ID, &order.OrderNumber, &order.CustomerID, &order.CustomerName, &order.CustomerPhone, &order.CustomerEmail,
		&order.DeviceBrand, &order.DeviceModel, &order.DeviceIMEI, &order.Issue, &status, &history, &metadata,
		&order.CostEstimate, &order.AmountPaid, &order.BalanceDue, &order.Paid, &parts, &checklist, &security,
		&order.Deleted, &order.CreatedBy, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	order.Status = domain.OrderStatus(status)
	if err := json.Unmarshal(history, &order.StatusHistory); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(metadata, &order.StatusMetadata); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(parts, &order.Parts); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(checklist, &order.Checklist); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(security, &order.Security); err != nil {
		return nil, err
	}
	return &order, nil
}

func scanDrawer(row rowScanner) (*domain.CashDrawer, error) {
	var drawer domain.CashDrawer
	var finalCount []byte
	err := row.Scan(&drawer.ID, &drawer.Status, &drawer.OpeningBalance, &drawer.ClosingBalance, &drawer.TotalRevenue,
		&drawer.OpenedBy, &drawer.ClosedBy, &finalCount, &drawer.OpenedAt, &drawer.ClosedAt)
	if err != nil {
		return nil, err
	}
	if len(finalCount) > 0 {
		drawer.FinalCount = &domain.DrawerCount{}
		if err := json.Unmarshal(finalCount, drawer.FinalCount); err != nil {
			return nil, err
		}
	}
	return &drawer, nil
}

func marshalOrderJSON(order domain.WorkOrder) (history, metadata, parts, checklist, security []byte, err error) {
	if history, err = json.Marshal(orEmptyHistory(order.StatusHistory)); err != nil {
		return
	}
	if metadata, err = json.Marshal(orEmptyMetadata(order.StatusMetadata)); err != nil {
		return
	}
	if parts, err = json.Marshal(orEmptyParts(order.Parts)); err != nil {
		return
	}
	if checklist, err = json.Marshal(orEmptyChecklist(order.Checklist)); err != nil {
		return
	}
	security, err = json.Marshal(order.Security)
	return
}

func orEmptyHistory(v []domain.StatusChange) []domain.StatusChange {
	if v == nil {
		return []domain.StatusChange{}
	}
	return v
}

func orEmptyMetadata(v map[string]domain.StatusDetail) map[string]domain.StatusDetail {
	if v == nil {
		return map[string]domain.StatusDetail{}
	}
	return v
}

func orEmptyParts(v []domain.OrderItem) []domain.OrderItem {
	if v == nil {
		return []domain.OrderItem{}
	}
	return v
}

func orEmptyChecklist(v map[string]bool) map[string]bool {
	if v == nil {
		return map[string]bool{}
	}
	return v
}

func orEmptyMap(v map[string]string) map[string]string {
	if v == nil {
		return map[string]string{}
	}
	return v
}

func orEmptySlice[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

func orEmptyCounts(v map[string]int) map[string]int {
	if v == nil {
		return map[string]int{}
	}
	return v
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
