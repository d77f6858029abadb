package domain

import "time"

type WorkOrder struct {
	ID             string                  `json:"id"`
	OrderNumber    string                  `json:"order_number"`
	CustomerID     string                  `json:"customer_id,omitempty"`
	CustomerName   string                  `json:"customer_name"`
	CustomerPhone  string                  `json:"customer_phone,omitempty"`
	CustomerEmail  string                  `json:"customer_email,omitempty"`
	DeviceBrand    string                  `json:"device_brand"`
	DeviceModel    string                  `json:"device_model"`
	DeviceIMEI     string                  `json:"device_imei,omitempty"`
	Issue          string                  `json:"issue"`
	Status         OrderStatus             `json:"status"`
	StatusHistory  []StatusChange          `json:"status_history"`
	StatusMetadata map[string]StatusDetail `json:"status_metadata,omitempty"`
	CostEstimate   int64                   `json:"cost_estimate_cents"`
	AmountPaid     int64                   `json:"amount_paid_cents"`
	BalanceDue     int64                   `json:"balance_due_cents"`
	Paid           bool                    `json:"paid"`
	Parts          []OrderItem             `json:"parts_needed,omitempty"`
	Checklist      map[string]bool         `json:"checklist_items,omitempty"`
	Security       DeviceSecurity          `json:"device_security"`
	Deleted        bool                    `json:"deleted"`
	CreatedBy      string                  `json:"created_by"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

type StatusChange struct {
	Status    OrderStatus `json:"status"`
	ChangedBy string      `json:"changed_by"`
	ChangedAt time.Time   `json:"changed_at"`
}

// StatusDetail is the per-status side data recorded by a transition.
// Exactly one branch is set, matching the status the detail belongs to.
type StatusDetail struct {
	WaitingParts   *WaitingPartsDetail   `json:"waiting_parts,omitempty"`
	ExternalRepair *ExternalRepairDetail `json:"external_repair,omitempty"`
	Cancellation   *CancellationDetail   `json:"cancellation,omitempty"`
}

type WaitingPartsDetail struct {
	Supplier       string    `json:"supplier"`
	PartName       string    `json:"part_name"`
	TrackingNumber string    `json:"tracking_number,omitempty"`
	OrderedAt      time.Time `json:"ordered_at"`
}

type ExternalRepairDetail struct {
	ShopNote string `json:"shop_note"`
}

type CancellationDetail struct {
	Reason string `json:"reason"`
}

type OrderItem struct {
	Name      string `json:"name"`
	Qty       int    `json:"qty"`
	UnitPrice int64  `json:"unit_price_cents"`
	UnitCost  int64  `json:"unit_cost_cents,omitempty"`
	Source    string `json:"source,omitempty"`
}

type DeviceSecurity struct {
	PIN      string `json:"pin,omitempty"`
	Password string `json:"password,omitempty"`
	Pattern  string `json:"pattern,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

type OrderCreateRequest struct {
	CustomerID    string          `json:"customer_id,omitempty"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone,omitempty"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	DeviceBrand   string          `json:"device_brand"`
	DeviceModel   string          `json:"device_model"`
	DeviceIMEI    string          `json:"device_imei,omitempty"`
	Issue         string          `json:"issue"`
	CostEstimate  int64           `json:"cost_estimate_cents"`
	Parts         []OrderItem     `json:"parts_needed,omitempty"`
	Checklist     map[string]bool `json:"checklist_items,omitempty"`
	Security      DeviceSecurity  `json:"device_security"`

	// Optional deposit taken at intake, recorded through the ledger
	// right after the order row exists.
	InitialDeposit int64  `json:"initial_deposit_cents,omitempty"`
	DepositMethod  string `json:"deposit_method,omitempty"`
}

type StatusChangeRequest struct {
	Status string `json:"status"`

	// Side data for the target status; branches for other statuses
	// must stay empty.
	WaitingParts       *WaitingPartsDetail `json:"waiting_parts,omitempty"`
	ExternalShopNote   string              `json:"external_shop_note,omitempty"`
	CancellationReason string              `json:"cancellation_reason,omitempty"`
	PIN                string              `json:"pin,omitempty"`
}

type OrderCancelRequest struct {
	Reason string `json:"reason"`
	PIN    string `json:"pin"`
}

type OrderDeleteRequest struct {
	Confirmation string `json:"confirmation"`
	PIN          string `json:"pin"`
}

type OrderNoteRequest struct {
	Note string `json:"note"`
}

type OrderItemRequest struct {
	Name      string `json:"name"`
	Qty       int    `json:"qty"`
	UnitPrice int64  `json:"unit_price_cents"`
	UnitCost  int64  `json:"unit_cost_cents,omitempty"`
	Source    string `json:"source,omitempty"`
}

type OrderItemRemoveRequest struct {
	Name string `json:"name"`
}

type ChecklistUpdateRequest struct {
	Items map[string]bool `json:"items"`
}

type SecurityUpdateRequest struct {
	Security DeviceSecurity `json:"device_security"`
}

type WorkOrderEvent struct {
	ID          string            `json:"id"`
	OrderID     string            `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	EventType   string            `json:"event_type"`
	Description string            `json:"description"`
	UserName    string            `json:"user_name"`
	UserRole    string            `json:"user_role"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

type Transaction struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	AmountCents   int64     `json:"amount_cents"`
	Category      string    `json:"category"`
	Description   string    `json:"description"`
	PaymentMethod string    `json:"payment_method"`
	OrderID       string    `json:"order_id,omitempty"`
	RecordedBy    string    `json:"recorded_by"`
	CreatedAt     time.Time `json:"created_at"`
}

type Sale struct {
	ID             string     `json:"id"`
	SaleNumber     string     `json:"sale_number"`
	CustomerName   string     `json:"customer_name,omitempty"`
	Items          []SaleItem `json:"items,omitempty"`
	SubtotalCents  int64      `json:"subtotal_cents"`
	TaxRatePercent float64    `json:"tax_rate_percent"`
	TaxCents       int64      `json:"tax_cents"`
	TotalCents     int64      `json:"total_cents"`
	AmountPaid     int64      `json:"amount_paid_cents"`
	AmountDue      int64      `json:"amount_due_cents"`
	PaymentMethod  string     `json:"payment_method"`
	OrderID        string     `json:"order_id,omitempty"`
	IsDeposit      bool       `json:"is_deposit"`
	Voided         bool       `json:"voided"`
	CreatedBy      string     `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
}

type SaleItem struct {
	Name      string `json:"name"`
	Qty       int    `json:"qty"`
	UnitPrice int64  `json:"unit_price_cents"`
}

// PaymentIntent is the outbox row written before a multi-step
// financial write. Completed steps accumulate on it; an intent left in
// a non-complete status marks a partial write for operator review.
type PaymentIntent struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"order_id"`
	Kind        string    `json:"kind"`
	AmountCents int64     `json:"amount_cents"`
	Method      string    `json:"method"`
	Steps       []string  `json:"steps"`
	Status      string    `json:"status"`
	FailedStep  string    `json:"failed_step,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type PaymentRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Method      string `json:"method"`
	Notes       string `json:"notes,omitempty"`
}

type DepositDraft struct {
	AmountCents    int64   `json:"amount_cents"`
	SubtotalCents  int64   `json:"subtotal_cents"`
	TaxCents       int64   `json:"tax_cents"`
	TaxRatePercent float64 `json:"tax_rate_percent"`
	Method         string  `json:"method"`
	SaleNumber     string  `json:"sale_number"`
	IsDeposit      bool    `json:"is_deposit"`
}

type CashDrawer struct {
	ID             string       `json:"id"`
	Status         string       `json:"status"`
	OpeningBalance int64        `json:"opening_balance_cents"`
	ClosingBalance int64        `json:"closing_balance_cents,omitempty"`
	TotalRevenue   int64        `json:"total_revenue_cents,omitempty"`
	OpenedBy       string       `json:"opened_by"`
	ClosedBy       string       `json:"closed_by,omitempty"`
	FinalCount     *DrawerCount `json:"final_count,omitempty"`
	OpenedAt       time.Time    `json:"opened_at"`
	ClosedAt       *time.Time   `json:"closed_at,omitempty"`
}

type DrawerCount struct {
	Denominations map[string]int `json:"denominations"`
	TotalCents    int64          `json:"total_cents"`
	ExpectedCents int64          `json:"expected_cents"`
	Difference    int64          `json:"difference_cents"`
}

type DrawerMovement struct {
	ID            string         `json:"id"`
	DrawerID      string         `json:"drawer_id"`
	Type          string         `json:"type"`
	AmountCents   int64          `json:"amount_cents"`
	Description   string         `json:"description"`
	Employee      string         `json:"employee"`
	Denominations map[string]int `json:"denominations,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

type DrawerStatus struct {
	IsOpen    bool        `json:"is_open"`
	Drawer    *CashDrawer `json:"drawer,omitempty"`
	CheckedAt time.Time   `json:"checked_at"`
}

type DrawerOpenRequest struct {
	Denominations map[string]int `json:"denominations"`
}

type DrawerCloseRequest struct {
	Denominations map[string]int `json:"denominations"`
}

type DrawerCloseResult struct {
	Drawer     CashDrawer `json:"drawer"`
	Difference int64      `json:"difference_cents"`
}

type TimeEntry struct {
	ID        string     `json:"id"`
	Employee  string     `json:"employee"`
	ClockIn   time.Time  `json:"clock_in"`
	ClockOut  *time.Time `json:"clock_out,omitempty"`
	PaymentID string     `json:"payment_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type EmployeePayment struct {
	ID          string    `json:"id"`
	Employee    string    `json:"employee"`
	AmountCents int64     `json:"amount_cents"`
	Hours       float64   `json:"hours"`
	HourlyRate  int64     `json:"hourly_rate_cents"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Type        string    `json:"type"`
	Method      string    `json:"method"`
	Notes       string    `json:"notes,omitempty"`
	RecordedBy  string    `json:"recorded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type PayrollSummary struct {
	Employee    string      `json:"employee"`
	PeriodStart time.Time   `json:"period_start"`
	PeriodEnd   time.Time   `json:"period_end"`
	Entries     []TimeEntry `json:"entries"`
	WorkedMS    int64       `json:"worked_ms"`
	Hours       float64     `json:"hours"`
	HourlyRate  int64       `json:"hourly_rate_cents"`
	AmountCents int64       `json:"amount_cents"`
}

type PayrollPaymentRequest struct {
	Employee    string    `json:"employee"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Type        string    `json:"type"`
	Method      string    `json:"method"`
	Notes       string    `json:"notes,omitempty"`
}

type TodaySales struct {
	Date       string `json:"date"`
	Count      int    `json:"count"`
	TotalCents int64  `json:"total_cents"`
	TaxCents   int64  `json:"tax_cents"`
}

type MethodTotal struct {
	Method     string `json:"method"`
	Count      int    `json:"count"`
	TotalCents int64  `json:"total_cents"`
}

type FinancialOverview struct {
	From          time.Time     `json:"from"`
	To            time.Time     `json:"to"`
	RevenueCents  int64         `json:"revenue_cents"`
	TaxCents      int64         `json:"tax_cents"`
	DepositCents  int64         `json:"deposit_cents"`
	ExpenseCents  int64         `json:"expense_cents"`
	ByMethod      []MethodTotal `json:"by_method"`
	SaleCount     int           `json:"sale_count"`
	DepositCount  int           `json:"deposit_count"`
	ExpenseCount  int           `json:"expense_count"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	FullName    string `json:"full_name"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type StaffCreateRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
	PIN        string `json:"pin"`
	HourlyRate int64  `json:"hourly_rate_cents"`
}

type StaffUser struct {
	Username   string    `json:"username"`
	FullName   string    `json:"full_name"`
	Role       string    `json:"role"`
	Active     bool      `json:"active"`
	HourlyRate int64     `json:"hourly_rate_cents"`
	CreatedAt  time.Time `json:"created_at"`
}

// UserAccount is the internal persistence model for auth credentials
// and payroll attributes. Password and PIN hold bcrypt hashes.
type UserAccount struct {
	Username   string
	Password   string
	PIN        string
	FullName   string
	Email      string
	Role       string
	Active     bool
	HourlyRate int64
	CreatedAt  time.Time
}

const (
	DrawerStatusOpen   = "open"
	DrawerStatusClosed = "closed"
)

const (
	MovementOpening = "opening"
	MovementClosing = "closing"
)

const (
	TxTypeRevenue = "revenue"
	TxTypeExpense = "expense"
)

const (
	IntentKindPayment = "payment"
	IntentKindDeposit = "deposit"
)

const (
	IntentStatusPending  = "pending"
	IntentStatusComplete = "complete"
	IntentStatusFailed   = "failed"
)

const (
	EventCreate           = "create"
	EventStatusChange     = "status_change"
	EventPayment          = "payment"
	EventItemAdded        = "item_added"
	EventItemRemoved      = "item_removed"
	EventChecklistUpdated = "checklist_updated"
	EventSecurityUpdate   = "security_update"
	EventNote             = "note"
	EventDeleted          = "deleted"
	EventEmailSent        = "email_sent"
)
