package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"lpgpos/internal/domain"
	"lpgpos/internal/store"
	"lpgpos/internal/xid"
)

//go:embed schema.sql
var schemaSQL string

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

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const productColumns = `id, name, category, base_price_cents, unit, stock_level, reorder_threshold,
	requires_weighing, allows_exchange, cylinder_size, active, pricing_tiers`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p     domain.Product
		tiers []byte
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Category,
		&p.BasePriceCents,
		&p.Unit,
		&p.StockLevel,
		&p.ReorderThreshold,
		&p.RequiresWeighing,
		&p.AllowsExchange,
		&p.CylinderSize,
		&p.Active,
		&tiers,
	)
	if err != nil {
		return domain.Product{}, err
	}
	if len(tiers) > 0 {
		if err := json.Unmarshal(tiers, &p.PricingTiers); err != nil {
			return domain.Product{}, fmt.Errorf("decode pricing tiers for %s: %w", p.ID, err)
		}
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE active = true
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 32)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := scanProduct(s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) UpsertProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.ID) == "" || strings.TrimSpace(product.Name) == "" || !product.Category.Valid() || product.BasePriceCents < 0 {
		return nil, store.ErrInvalidInput
	}
	tiers := product.PricingTiers
	if tiers == nil {
		tiers = []domain.PricingTier{}
	}
	payload, err := json.Marshal(tiers)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now(),now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			base_price_cents = EXCLUDED.base_price_cents,
			unit = EXCLUDED.unit,
			stock_level = EXCLUDED.stock_level,
			reorder_threshold = EXCLUDED.reorder_threshold,
			requires_weighing = EXCLUDED.requires_weighing,
			allows_exchange = EXCLUDED.allows_exchange,
			cylinder_size = EXCLUDED.cylinder_size,
			active = EXCLUDED.active,
			pricing_tiers = EXCLUDED.pricing_tiers,
			updated_at = now()
	`, product.ID, product.Name, string(product.Category), product.BasePriceCents, product.Unit, product.StockLevel,
		product.ReorderThreshold, product.RequiresWeighing, product.AllowsExchange, product.CylinderSize,
		product.Active, payload)
	if err != nil {
		return nil, err
	}
	saved := product
	return &saved, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.CustomerAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, account_type, credit_limit_cents, current_balance_cents, loyalty_tier
		FROM customers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.CustomerAccount, 0, 32)
	for rows.Next() {
		var c domain.CustomerAccount
		if err := rows.Scan(&c.ID, &c.Name, &c.AccountType, &c.CreditLimitCents, &c.CurrentBalanceCents, &c.LoyaltyTier); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range customers {
		loans, err := s.listLoans(ctx, customers[i].ID)
		if err != nil {
			return nil, err
		}
		customers[i].CylindersOnLoan = loans
	}
	return customers, nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.CustomerAccount, error) {
	var c domain.CustomerAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, account_type, credit_limit_cents, current_balance_cents, loyalty_tier
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.AccountType, &c.CreditLimitCents, &c.CurrentBalanceCents, &c.LoyaltyTier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	loans, err := s.listLoans(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.CylindersOnLoan = loans
	return &c, nil
}

func (s *Store) listLoans(ctx context.Context, customerID string) ([]domain.CylinderLoan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cylinder_size, quantity, deposit_cents, loaned_at
		FROM cylinder_loans
		WHERE customer_id = $1
		ORDER BY loaned_at, id
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loans := make([]domain.CylinderLoan, 0, 4)
	for rows.Next() {
		var loan domain.CylinderLoan
		if err := rows.Scan(&loan.CylinderSize, &loan.Quantity, &loan.DepositCents, &loan.LoanedAt); err != nil {
			return nil, err
		}
		loan.LoanedAt = loan.LoanedAt.UTC()
		loans = append(loans, loan)
	}
	return loans, rows.Err()
}

func (s *Store) ApplyCreditCharge(ctx context.Context, customerID string, amountCents int64) (*domain.CustomerAccount, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET current_balance_cents = current_balance_cents - $2, updated_at = now()
		WHERE id = $1
	`, customerID, amountCents)
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
	return s.GetCustomer(ctx, customerID)
}

const shiftColumns = `id, store_id, terminal_id, cashier_name, opening_float_cents,
	closing_cash_cents, status, opened_at, closed_at,
	total_sales_cents, total_transactions, cash_sales_cents, card_sales_cents,
	transfer_sales_cents, credit_sales_cents`

func scanShift(row rowScanner) (domain.Shift, error) {
	var (
		shift        domain.Shift
		closedAtNull sql.NullTime
	)
	err := row.Scan(
		&shift.ID,
		&shift.StoreID,
		&shift.TerminalID,
		&shift.CashierName,
		&shift.OpeningFloatCents,
		&shift.ClosingCashCents,
		&shift.Status,
		&shift.OpenedAt,
		&closedAtNull,
		&shift.TotalSalesCents,
		&shift.TotalTransactions,
		&shift.CashSalesCents,
		&shift.CardSalesCents,
		&shift.TransferSalesCents,
		&shift.CreditSalesCents,
	)
	if err != nil {
		return domain.Shift{}, err
	}
	shift.OpenedAt = shift.OpenedAt.UTC()
	if closedAtNull.Valid {
		at := closedAtNull.Time.UTC()
		shift.ClosedAt = &at
	}
	return shift, nil
}

func (s *Store) CreateShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error) {
	if strings.TrimSpace(shift.StoreID) == "" || strings.TrimSpace(shift.TerminalID) == "" || strings.TrimSpace(shift.CashierName) == "" {
		return nil, store.ErrInvalidInput
	}
	if shift.ID == "" {
		shift.ID = xid.New("shift")
	}
	if shift.OpenedAt.IsZero() {
		shift.OpenedAt = time.Now().UTC()
	}
	shift.Status = domain.ShiftStatusOpen
	shift.ClosedAt = nil
	shift.ClosingCashCents = 0

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shifts (
			id, store_id, terminal_id, cashier_name, opening_float_cents,
			closing_cash_cents, status, opened_at, closed_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, shift.ID, shift.StoreID, shift.TerminalID, shift.CashierName, shift.OpeningFloatCents,
		shift.ClosingCashCents, shift.Status, shift.OpenedAt, nullTime(shift.ClosedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	saved := shift
	return &saved, nil
}

func (s *Store) GetActiveShift(ctx context.Context, storeID string, terminalID string) (*domain.Shift, error) {
	shift, err := scanShift(s.db.QueryRowContext(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts
		WHERE store_id = $1 AND terminal_id = $2 AND status = 'open'
		ORDER BY opened_at DESC
		LIMIT 1
	`, storeID, terminalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &shift, nil
}

func (s *Store) SaveShiftTotals(ctx context.Context, shift domain.Shift) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE shifts
		SET total_sales_cents = $2, total_transactions = $3, cash_sales_cents = $4,
			card_sales_cents = $5, transfer_sales_cents = $6, credit_sales_cents = $7
		WHERE id = $1 AND status = 'open'
	`, shift.ID, shift.TotalSalesCents, shift.TotalTransactions, shift.CashSalesCents,
		shift.CardSalesCents, shift.TransferSalesCents, shift.CreditSalesCents)
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

func (s *Store) CloseActiveShift(ctx context.Context, storeID string, terminalID string, closingCashCents int64, closedAt time.Time) (*domain.Shift, error) {
	if strings.TrimSpace(storeID) == "" || strings.TrimSpace(terminalID) == "" {
		return nil, store.ErrInvalidInput
	}
	if closedAt.IsZero() {
		closedAt = time.Now().UTC()
	}

	shift, err := scanShift(s.db.QueryRowContext(ctx, `
		UPDATE shifts
		SET status = 'closed', closing_cash_cents = $3, closed_at = $4
		WHERE store_id = $1 AND terminal_id = $2 AND status = 'open'
		RETURNING `+shiftColumns, storeID, terminalID, closingCashCents, closedAt))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &shift, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
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

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}
