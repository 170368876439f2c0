package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"lpgpos/internal/domain"
	"lpgpos/internal/store"
	"lpgpos/internal/xid"
)

type Store struct {
	mu               sync.RWMutex
	products         map[string]domain.Product
	customers        map[string]domain.CustomerAccount
	shiftsByID       map[string]domain.Shift
	activeShiftByKey map[string]string
	usersByUsername  map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning. These credentials are never used in production (the backend uses
// PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"cashier", cashierPwd, domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
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

func seedCustomers() []domain.CustomerAccount {
	loanedAt := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	return []domain.CustomerAccount{
		{
			ID:                  "cust-warung-sari",
			Name:                "Warung Sari",
			AccountType:         "business",
			CreditLimitCents:    5000000,
			CurrentBalanceCents: -1250000,
			CylindersOnLoan: []domain.CylinderLoan{
				{CylinderSize: "12.5kg", Quantity: 2, DepositCents: 300000, LoanedAt: loanedAt},
			},
			LoyaltyTier: "gold",
		},
		{
			ID:               "cust-budi",
			Name:             "Budi Santoso",
			AccountType:      "individual",
			CreditLimitCents: 500000,
			CylindersOnLoan:  []domain.CylinderLoan{},
			LoyaltyTier:      "standard",
		},
		{
			ID:                  "cust-laundry-bersih",
			Name:                "Laundry Bersih",
			AccountType:         "business",
			CreditLimitCents:    20000000,
			CurrentBalanceCents: 250000,
			CylindersOnLoan: []domain.CylinderLoan{
				{CylinderSize: "50kg", Quantity: 1, DepositCents: 1500000, LoanedAt: loanedAt},
			},
			LoyaltyTier: "silver",
		},
	}
}

// NewSeeded returns a store holding products plus demo customers and users.
func NewSeeded(products []domain.Product) *Store {
	productMap := make(map[string]domain.Product, len(products))
	for _, p := range products {
		productMap[p.ID] = p
	}
	customers := make(map[string]domain.CustomerAccount)
	for _, c := range seedCustomers() {
		customers[c.ID] = c
	}

	return &Store{
		products:         productMap,
		customers:        customers,
		shiftsByID:       make(map[string]domain.Shift),
		activeShiftByKey: make(map[string]string),
		usersByUsername:  seedUsers(),
	}
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		products = append(products, cloneProduct(p))
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return strings.Compare(a.Name, b.Name)
		}
		return strings.Compare(string(a.Category), string(b.Category))
	})

	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := cloneProduct(product)
	return &copyProduct, nil
}

func (s *Store) UpsertProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.ID) == "" || strings.TrimSpace(product.Name) == "" || !product.Category.Valid() || product.BasePriceCents < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.products[product.ID] = cloneProduct(product)
	saved := cloneProduct(product)
	return &saved, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.CustomerAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.CustomerAccount, 0, len(s.customers))
	for _, c := range s.customers {
		customers = append(customers, cloneCustomer(c))
	}
	slices.SortFunc(customers, func(a, b domain.CustomerAccount) int {
		return strings.Compare(a.Name, b.Name)
	})
	return customers, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (*domain.CustomerAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, exists := s.customers[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyCustomer := cloneCustomer(customer)
	return &copyCustomer, nil
}

// ApplyCreditCharge moves the customer's balance down by amountCents. The
// credit limit is enforced by the till before the charge is applied.
func (s *Store) ApplyCreditCharge(_ context.Context, customerID string, amountCents int64) (*domain.CustomerAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, exists := s.customers[customerID]
	if !exists {
		return nil, store.ErrNotFound
	}
	customer.CurrentBalanceCents -= amountCents
	s.customers[customerID] = customer
	copyCustomer := cloneCustomer(customer)
	return &copyCustomer, nil
}

func (s *Store) CreateShift(_ context.Context, shift domain.Shift) (*domain.Shift, error) {
	if strings.TrimSpace(shift.StoreID) == "" || strings.TrimSpace(shift.TerminalID) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := shiftMapKey(shift.StoreID, shift.TerminalID)
	if _, exists := s.activeShiftByKey[key]; exists {
		return nil, store.ErrConflict
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

	s.shiftsByID[shift.ID] = shift
	s.activeShiftByKey[key] = shift.ID
	copyShift := shift
	return &copyShift, nil
}

func (s *Store) GetActiveShift(_ context.Context, storeID string, terminalID string) (*domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := shiftMapKey(storeID, terminalID)
	shiftID, exists := s.activeShiftByKey[key]
	if !exists {
		return nil, store.ErrNotFound
	}
	shift, exists := s.shiftsByID[shiftID]
	if !exists || shift.Status != domain.ShiftStatusOpen {
		return nil, store.ErrNotFound
	}
	copyShift := shift
	return &copyShift, nil
}

// SaveShiftTotals stores the ledger totals of an open shift.
func (s *Store) SaveShiftTotals(_ context.Context, shift domain.Shift) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.shiftsByID[shift.ID]
	if !exists {
		return store.ErrNotFound
	}
	if existing.Status != domain.ShiftStatusOpen {
		return store.ErrInvalidInput
	}
	existing.TotalSalesCents = shift.TotalSalesCents
	existing.TotalTransactions = shift.TotalTransactions
	existing.CashSalesCents = shift.CashSalesCents
	existing.CardSalesCents = shift.CardSalesCents
	existing.TransferSalesCents = shift.TransferSalesCents
	existing.CreditSalesCents = shift.CreditSalesCents
	s.shiftsByID[shift.ID] = existing
	return nil
}

func (s *Store) CloseActiveShift(_ context.Context, storeID string, terminalID string, closingCashCents int64, closedAt time.Time) (*domain.Shift, error) {
	if strings.TrimSpace(storeID) == "" || strings.TrimSpace(terminalID) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := shiftMapKey(storeID, terminalID)
	shiftID, exists := s.activeShiftByKey[key]
	if !exists {
		return nil, store.ErrNotFound
	}
	shift, exists := s.shiftsByID[shiftID]
	if !exists || shift.Status != domain.ShiftStatusOpen {
		return nil, store.ErrNotFound
	}
	if closedAt.IsZero() {
		closedAt = time.Now().UTC()
	}
	shift.Status = domain.ShiftStatusClosed
	shift.ClosingCashCents = closingCashCents
	shift.ClosedAt = &closedAt

	delete(s.activeShiftByKey, key)
	s.shiftsByID[shiftID] = shift
	copyShift := shift
	return &copyShift, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrConflict
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func shiftMapKey(storeID string, terminalID string) string {
	return storeID + "::" + terminalID
}

func cloneProduct(src domain.Product) domain.Product {
	dst := src
	dst.PricingTiers = slices.Clone(src.PricingTiers)
	return dst
}

func cloneCustomer(src domain.CustomerAccount) domain.CustomerAccount {
	dst := src
	dst.CylindersOnLoan = slices.Clone(src.CylindersOnLoan)
	return dst
}
