// Package pos owns the active transaction and shift of one terminal.
package pos

import (
	"fmt"
	"sync"
	"time"

	"lpgpos/internal/cart"
	"lpgpos/internal/catalog"
	"lpgpos/internal/domain"
	"lpgpos/internal/ledger"
	"lpgpos/internal/pricing"
	"lpgpos/internal/xid"
)

// Session serialises every mutation of one terminal's transaction and shift.
// Totals are recomputed inside the same critical section as the change, so a
// snapshot never shows stale aggregates.
type Session struct {
	mu       sync.Mutex
	tariff   pricing.Tariff
	tax      cart.TaxFunc
	newID    func() string
	now      func() time.Time
	tx       domain.Transaction
	shift    domain.Shift
	customer *domain.CustomerAccount
}

type Option func(*Session)

func WithTax(tax cart.TaxFunc) Option {
	return func(s *Session) {
		if tax != nil {
			s.tax = tax
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Session) {
		if newID != nil {
			s.newID = newID
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

func NewSession(tariff pricing.Tariff, shift domain.Shift, opts ...Option) *Session {
	s := &Session{
		tariff: tariff,
		tax:    cart.ZeroTax,
		newID:  func() string { return xid.New("line") },
		now:    func() time.Time { return time.Now().UTC() },
		tx:     domain.NewTransaction(),
		shift:  shift,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	Transaction domain.Transaction      `json:"transaction"`
	Shift       domain.Shift            `json:"shift"`
	Customer    *domain.CustomerAccount `json:"customer,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) Transaction() domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyTransaction(s.tx)
}

func (s *Session) Shift() domain.Shift {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shift
}

func (s *Session) Tariff() pricing.Tariff {
	return s.tariff
}

func (s *Session) AddLine(product domain.Product, quantity int) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closedLocked() {
		return copyTransaction(s.tx), domain.ErrShiftClosed
	}
	next, err := cart.AddLine(s.tx, product, quantity)
	if err != nil {
		return copyTransaction(s.tx), err
	}
	return s.commitLocked(next), nil
}

func (s *Session) UpdateQuantity(productID string, quantity int) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closedLocked() {
		return copyTransaction(s.tx), domain.ErrShiftClosed
	}
	next, err := cart.UpdateQuantity(s.tx, productID, quantity)
	if err != nil {
		return copyTransaction(s.tx), err
	}
	return s.commitLocked(next), nil
}

func (s *Session) RemoveLine(productID string) domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(cart.RemoveLine(s.tx, productID))
}

// Clear empties the transaction and detaches the customer.
func (s *Session) Clear() domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customer = nil
	return s.commitLocked(cart.Clear(s.tx))
}

func (s *Session) SetDiscount(discountCents int64) domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(cart.SetDiscount(s.tx, discountCents))
}

func (s *Session) AttachCustomer(customer domain.CustomerAccount) domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customer = &customer
	next := s.tx
	next.CustomerID = customer.ID
	return s.commitLocked(next)
}

func (s *Session) DetachCustomer() domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customer = nil
	next := s.tx
	next.CustomerID = ""
	return s.commitLocked(next)
}

// CommitBulkSale weighs out bulk LPG for product and appends it as one line.
func (s *Session) CommitBulkSale(product domain.Product, form BulkSaleForm) (domain.Transaction, error) {
	details := QuoteBulk(product, s.tariff, form)
	if err := checkBulkSale(product, s.tariff, details); err != nil {
		return s.Transaction(), err
	}

	name := fmt.Sprintf("%s %s kg (%s)", product.Name, formatKg(details.NetWeightGrams), details.ContainerType)
	return s.commitModeLine(product.ID, name, details.TotalCents, details)
}

// CommitExchange appends the net amount of a cylinder swap. A refund shows up
// as a negative line.
func (s *Session) CommitExchange(form ExchangeForm) (domain.Transaction, error) {
	details := QuoteExchange(s.tariff, form)
	if err := pricing.CheckExchange(s.tariff, details); err != nil {
		return s.Transaction(), err
	}

	name := fmt.Sprintf("Exchange %s (%s) for %d x %s", details.ReturnedSize, details.ReturnedCondition, details.Quantity, details.NewSize)
	return s.commitModeLine(catalog.CylinderProductID(details.NewSize), name, details.NetAmountCents, details)
}

func (s *Session) CommitRefill(form RefillForm) (domain.Transaction, error) {
	details := QuoteRefill(s.tariff, form)
	if err := pricing.CheckRefill(s.tariff, details); err != nil {
		return s.Transaction(), err
	}

	name := fmt.Sprintf("Refill %s cylinder %s kg", details.CylinderType, formatKg(details.GasWeightGrams))
	return s.commitModeLine(catalog.CylinderProductID(details.CylinderType), name, details.TotalPriceCents, details)
}

func (s *Session) CommitCustomWeightSale(form CustomWeightForm) (domain.Transaction, error) {
	details := QuoteCustomWeight(s.tariff, form)
	if err := pricing.CheckCustomWeight(s.tariff, details); err != nil {
		return s.Transaction(), err
	}

	name := fmt.Sprintf("LPG %s kg (%s)", formatKg(details.WeightGrams), details.ContainerOption)
	return s.commitModeLine(catalog.BulkLPGProductID, name, details.TotalPriceCents, details)
}

// RecordPayment settles the whole transaction with one tender, books it in the
// shift ledger and starts a fresh transaction. Nothing changes on error.
func (s *Session) RecordPayment(tender domain.TenderType) (domain.PaymentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closedLocked() {
		return domain.PaymentResult{}, domain.ErrShiftClosed
	}
	if s.tx.Empty() {
		return domain.PaymentResult{}, domain.ErrEmptyTransaction
	}
	if !tender.Valid() {
		return domain.PaymentResult{}, domain.ErrUnknownTender
	}
	total := s.tx.TotalCents
	if tender == domain.TenderCredit && s.customer != nil && total > s.customer.AvailableCredit() {
		return domain.PaymentResult{}, domain.ErrCreditLimitExceeded
	}

	shift := s.shift
	if err := ledger.RecordPayment(&shift, tender, total, s.customer != nil); err != nil {
		return domain.PaymentResult{}, err
	}

	result := domain.PaymentResult{
		Tender:      tender,
		PaidCents:   total,
		Settled:     copyTransaction(s.tx),
		Shift:       shift,
		CompletedAt: s.now(),
	}
	if s.customer != nil {
		customer := *s.customer
		if tender == domain.TenderCredit {
			customer.CurrentBalanceCents -= total
		}
		result.Customer = &customer
	}

	s.shift = shift
	s.customer = nil
	s.tx = cart.Recompute(cart.Clear(s.tx), s.tax)
	return result, nil
}

// CloseShift marks the session's shift closed and returns its final state.
func (s *Session) CloseShift(closingCashCents int64) domain.Shift {
	s.mu.Lock()
	defer s.mu.Unlock()

	closedAt := s.now()
	s.shift.Status = domain.ShiftStatusClosed
	s.shift.ClosingCashCents = closingCashCents
	s.shift.ClosedAt = &closedAt
	return s.shift
}

// ReopenShift undoes CloseShift when the close could not be persisted.
func (s *Session) ReopenShift() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.shift.Status = domain.ShiftStatusOpen
	s.shift.ClosingCashCents = 0
	s.shift.ClosedAt = nil
}

func (s *Session) commitModeLine(sku, name string, amountCents int64, details domain.ModeDetails) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closedLocked() {
		return copyTransaction(s.tx), domain.ErrShiftClosed
	}
	line := cart.MeasuredLine(s.newID(), sku, name, amountCents)
	next := cart.AddMeasuredLine(s.tx, line)
	return s.commitLocked(cart.Stamp(next, details)), nil
}

// closedLocked reports whether CloseShift has run; sales and payments stop.
func (s *Session) closedLocked() bool {
	return s.shift.Status == domain.ShiftStatusClosed
}

func (s *Session) commitLocked(next domain.Transaction) domain.Transaction {
	s.tx = cart.Recompute(next, s.tax)
	return copyTransaction(s.tx)
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{Transaction: copyTransaction(s.tx), Shift: s.shift}
	if s.customer != nil {
		customer := *s.customer
		snap.Customer = &customer
	}
	return snap
}

func copyTransaction(tx domain.Transaction) domain.Transaction {
	items := make([]domain.CartLine, len(tx.Items))
	copy(items, tx.Items)
	tx.Items = items
	return tx
}

func formatKg(grams int64) string {
	return fmt.Sprintf("%.3f", pricing.GramsToKilograms(grams))
}
