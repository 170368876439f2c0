package domain

import (
	"strings"
	"time"
)

type ProductCategory string

const (
	CategoryCylinder   ProductCategory = "cylinder"
	CategoryBulkLPG    ProductCategory = "bulk-lpg"
	CategoryAccessory  ProductCategory = "accessory"
	CategorySafetyItem ProductCategory = "safety-item"
	CategoryService    ProductCategory = "service"
)

func (c ProductCategory) Valid() bool {
	switch c {
	case CategoryCylinder, CategoryBulkLPG, CategoryAccessory, CategorySafetyItem, CategoryService:
		return true
	}
	return false
}

// PricingTier is one quantity band of a volume-priced product. MaxQuantity is
// informational; selection only looks at MinQuantity.
type PricingTier struct {
	MinQuantity        float64  `json:"min_quantity" toml:"min_quantity"`
	MaxQuantity        *float64 `json:"max_quantity,omitempty" toml:"max_quantity"`
	PricePerUnitCents  int64    `json:"price_per_unit_cents" toml:"price_per_unit_cents"`
	DiscountPercentage *float64 `json:"discount_percentage,omitempty" toml:"discount_percentage"`
}

type Product struct {
	ID               string          `json:"id" toml:"id"`
	Name             string          `json:"name" toml:"name"`
	Category         ProductCategory `json:"category" toml:"category"`
	BasePriceCents   int64           `json:"base_price_cents" toml:"base_price_cents"`
	Unit             string          `json:"unit" toml:"unit"`
	StockLevel       int             `json:"stock_level" toml:"stock_level"`
	ReorderThreshold int             `json:"reorder_threshold" toml:"reorder_threshold"`
	RequiresWeighing bool            `json:"requires_weighing" toml:"requires_weighing"`
	AllowsExchange   bool            `json:"allows_exchange" toml:"allows_exchange"`
	CylinderSize     string          `json:"cylinder_size,omitempty" toml:"cylinder_size"`
	Active           bool            `json:"active" toml:"active"`
	PricingTiers     []PricingTier   `json:"pricing_tiers,omitempty" toml:"tiers"`
}

func (p Product) BelowReorderThreshold() bool {
	return p.StockLevel <= p.ReorderThreshold
}

// MaxLineQuantity caps the unit count of a single line or exchange so that
// cent totals stay far inside int64.
const MaxLineQuantity = 9999

// CartLine is one sellable line of the active transaction.
// LineTotalCents is always Quantity * UnitPriceCents.
type CartLine struct {
	ProductID      string `json:"product_id"`
	SKU            string `json:"sku"`
	ProductName    string `json:"product_name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	LineTotalCents int64  `json:"line_total_cents"`
	Mergeable      bool   `json:"mergeable"`
}

type Transaction struct {
	Items         []CartLine      `json:"items"`
	SubtotalCents int64           `json:"subtotal_cents"`
	TaxCents      int64           `json:"tax_cents"`
	DiscountCents int64           `json:"discount_cents"`
	TotalCents    int64           `json:"total_cents"`
	Type          TransactionType `json:"transaction_type"`
	Details       ModeDetails     `json:"mode_details"`
	CustomerID    string          `json:"customer_id,omitempty"`
}

func (t Transaction) Empty() bool {
	return len(t.Items) == 0
}

// NewTransaction returns the empty transaction a POS session starts with.
func NewTransaction() Transaction {
	return Transaction{
		Items:   []CartLine{},
		Type:    TransactionSale,
		Details: SaleDetails{},
	}
}

type CylinderLoan struct {
	CylinderSize string    `json:"cylinder_size"`
	Quantity     int       `json:"quantity"`
	DepositCents int64     `json:"deposit_cents"`
	LoanedAt     time.Time `json:"loaned_at"`
}

type CustomerAccount struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	AccountType         string         `json:"account_type"`
	CreditLimitCents    int64          `json:"credit_limit_cents"`
	CurrentBalanceCents int64          `json:"current_balance_cents"`
	CylindersOnLoan     []CylinderLoan `json:"cylinders_on_loan"`
	LoyaltyTier         string         `json:"loyalty_tier"`
}

// AvailableCredit is derived from the signed balance (negative when the
// customer owes money) and is never stored.
func (c CustomerAccount) AvailableCredit() int64 {
	return c.CreditLimitCents + c.CurrentBalanceCents
}

func (c CustomerAccount) CylindersLoaned() int {
	total := 0
	for _, loan := range c.CylindersOnLoan {
		total += loan.Quantity
	}
	return total
}

type TenderType string

const (
	TenderCash     TenderType = "cash"
	TenderCard     TenderType = "card"
	TenderTransfer TenderType = "transfer"
	TenderCredit   TenderType = "credit"
)

func (t TenderType) Valid() bool {
	switch t {
	case TenderCash, TenderCard, TenderTransfer, TenderCredit:
		return true
	}
	return false
}

type Shift struct {
	ID                 string     `json:"id"`
	StoreID            string     `json:"store_id"`
	TerminalID         string     `json:"terminal_id"`
	CashierName        string     `json:"cashier_name"`
	OpeningFloatCents  int64      `json:"opening_float_cents"`
	ClosingCashCents   int64      `json:"closing_cash_cents,omitempty"`
	Status             string     `json:"status"`
	OpenedAt           time.Time  `json:"opened_at"`
	ClosedAt           *time.Time `json:"closed_at,omitempty"`
	TotalSalesCents    int64      `json:"total_sales_cents"`
	TotalTransactions  int        `json:"total_transactions"`
	CashSalesCents     int64      `json:"cash_sales_cents"`
	CardSalesCents     int64      `json:"card_sales_cents"`
	TransferSalesCents int64      `json:"transfer_sales_cents"`
	CreditSalesCents   int64      `json:"credit_sales_cents"`
}

// ExpectedCashCents is the cash the drawer should hold at close.
func (s Shift) ExpectedCashCents() int64 {
	return s.OpeningFloatCents + s.CashSalesCents
}

// Actor is the authenticated operator behind a request. A non-empty
// TerminalID pins a cashier to that till.
type Actor struct {
	Username   string
	Role       string
	TerminalID string
}

// CanOperate reports whether the actor may drive the given terminal.
// Admins and tokens without a terminal binding may drive any terminal.
func (a Actor) CanOperate(terminalID string) bool {
	if a.Role == RoleAdmin || a.TerminalID == "" {
		return true
	}
	return a.TerminalID == strings.TrimSpace(terminalID)
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type LoginRequest struct {
	Username   string `json:"username" validate:"required"`
	Password   string `json:"password" validate:"required"`
	TerminalID string `json:"terminal_id,omitempty" validate:"omitempty,max=64"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	TerminalID  string `json:"terminal_id,omitempty"`
	ExpiresAt   string `json:"expires_at"`
}

type ShiftOpenRequest struct {
	StoreID           string `json:"store_id"`
	TerminalID        string `json:"terminal_id" validate:"required"`
	CashierName       string `json:"cashier_name" validate:"required"`
	OpeningFloatCents int64  `json:"opening_float_cents" validate:"gte=0"`
}

type ShiftCloseRequest struct {
	StoreID          string `json:"store_id"`
	TerminalID       string `json:"terminal_id" validate:"required"`
	ClosingCashCents int64  `json:"closing_cash_cents" validate:"gte=0"`
	Notes            string `json:"notes"`
}

type ShiftResponse struct {
	Shift             Shift `json:"shift"`
	ExpectedCashCents int64 `json:"expected_cash_cents"`
	CashVarianceCents int64 `json:"cash_variance_cents,omitempty"`
}

// PaymentResult is returned after a tender settles the active transaction.
type PaymentResult struct {
	Tender      TenderType       `json:"tender_type"`
	PaidCents   int64            `json:"paid_cents"`
	Settled     Transaction      `json:"settled"`
	Shift       Shift            `json:"shift"`
	Customer    *CustomerAccount `json:"customer,omitempty"`
	CompletedAt time.Time        `json:"completed_at"`
}

const (
	ShiftStatusOpen   = "open"
	ShiftStatusClosed = "closed"
)

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

type CashierCreateRequest struct {
	Username string `json:"username" validate:"required,min=4"`
	Password string `json:"password" validate:"required,min=6"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
