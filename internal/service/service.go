package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lpgpos/internal/cache"
	"lpgpos/internal/cart"
	"lpgpos/internal/catalog"
	"lpgpos/internal/domain"
	"lpgpos/internal/ledger"
	"lpgpos/internal/obs"
	"lpgpos/internal/pos"
	"lpgpos/internal/pricing"
	"lpgpos/internal/store"
	"lpgpos/internal/suggest"
	"lpgpos/internal/xid"
)

var (
	ErrAdminRequired    = errors.New("admin role required")
	ErrNoActiveShift    = errors.New("no active shift for terminal")
	ErrShiftAlreadyOpen = errors.New("shift already open")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	StoreID  string
	Tariff   pricing.Tariff
	Tax      cart.TaxFunc
	Cache    cache.ProductCache
	CacheTTL time.Duration
	Logger   zerolog.Logger
	Metrics  *obs.POSMetrics
}

// Service fronts the per-terminal POS sessions with persistence, caching and
// telemetry. One session exists per open shift.
type Service struct {
	repo           store.Repository
	cache          cache.ProductCache
	cacheTTL       time.Duration
	tariff         pricing.Tariff
	tax            cart.TaxFunc
	defaultStoreID string
	logger         zerolog.Logger
	metrics        *obs.POSMetrics
	advisor        *suggest.Advisor

	mu       sync.Mutex
	sessions map[string]*pos.Session
}

func New(repo store.Repository, opts Options) *Service {
	if opts.StoreID == "" {
		opts.StoreID = "main-store"
	}
	if opts.Cache == nil {
		opts.Cache = cache.NoopProductCache{}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Minute
	}
	if opts.Tax == nil {
		opts.Tax = cart.ZeroTax
	}
	if opts.Tariff.Cylinders == nil {
		opts.Tariff = pricing.DefaultTariff()
	}

	return &Service{
		repo:           repo,
		cache:          opts.Cache,
		cacheTTL:       opts.CacheTTL,
		tariff:         opts.Tariff,
		tax:            opts.Tax,
		defaultStoreID: opts.StoreID,
		logger:         opts.Logger,
		metrics:        opts.Metrics,
		advisor:        suggest.NewAdvisor(nil),
		sessions:       make(map[string]*pos.Session),
	}
}

func (s *Service) Tariff() pricing.Tariff {
	return s.tariff
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

// GetProduct reads through the product cache. Cache failures degrade to a
// repository read.
func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, store.ErrInvalidInput
	}

	cached, ok, err := s.cache.Get(ctx, s.defaultStoreID, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("product_id", id).Msg("product cache read failed")
	}
	if ok {
		return *cached, nil
	}

	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if err := s.cache.Set(ctx, s.defaultStoreID, *product, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("product_id", id).Msg("product cache write failed")
	}
	return *product, nil
}

// SyncCatalog upserts every catalog product and drops stale cache entries.
func (s *Service) SyncCatalog(ctx context.Context, products []domain.Product) error {
	for _, product := range products {
		if _, err := s.repo.UpsertProduct(ctx, product); err != nil {
			return fmt.Errorf("sync product %s: %w", product.ID, err)
		}
		if err := s.cache.Invalidate(ctx, s.defaultStoreID, product.ID); err != nil {
			s.logger.Warn().Err(err).Str("product_id", product.ID).Msg("product cache invalidate failed")
		}
	}
	s.logger.Info().Int("products", len(products)).Msg("catalog synced")
	return nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.CustomerAccount, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) GetCustomer(ctx context.Context, id string) (domain.CustomerAccount, error) {
	customer, err := s.repo.GetCustomer(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.CustomerAccount{}, err
	}
	return *customer, nil
}

func (s *Service) OpenShift(ctx context.Context, req domain.ShiftOpenRequest) (domain.ShiftResponse, error) {
	if req.StoreID == "" {
		req.StoreID = s.defaultStoreID
	}
	req.TerminalID = strings.TrimSpace(req.TerminalID)
	req.CashierName = strings.TrimSpace(req.CashierName)
	if req.TerminalID == "" || req.CashierName == "" || req.OpeningFloatCents < 0 {
		return domain.ShiftResponse{}, store.ErrInvalidInput
	}

	shift := domain.Shift{
		ID:                xid.New("shift"),
		StoreID:           req.StoreID,
		TerminalID:        req.TerminalID,
		CashierName:       req.CashierName,
		OpeningFloatCents: req.OpeningFloatCents,
		Status:            domain.ShiftStatusOpen,
		OpenedAt:          time.Now().UTC(),
	}
	saved, err := s.repo.CreateShift(ctx, shift)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.ShiftResponse{}, ErrShiftAlreadyOpen
		}
		return domain.ShiftResponse{}, err
	}

	s.mu.Lock()
	s.sessions[sessionKey(saved.StoreID, saved.TerminalID)] = s.newSession(*saved)
	s.mu.Unlock()

	s.audit(ctx, "shift_open").
		Str("shift_id", saved.ID).
		Str("terminal_id", saved.TerminalID).
		Int64("opening_float_cents", saved.OpeningFloatCents).
		Msg("shift opened")

	return domain.ShiftResponse{Shift: *saved, ExpectedCashCents: saved.ExpectedCashCents()}, nil
}

// CloseShift closes the live session, persists its final ledger, closes the
// shift row and drops the session together with any transaction still in
// progress. The session refuses sales and payments from the moment it is
// closed, so the saved totals are final. If persisting fails the session is
// reopened.
func (s *Service) CloseShift(ctx context.Context, req domain.ShiftCloseRequest) (domain.ShiftResponse, error) {
	if req.StoreID == "" {
		req.StoreID = s.defaultStoreID
	}
	req.TerminalID = strings.TrimSpace(req.TerminalID)
	if req.TerminalID == "" || req.ClosingCashCents < 0 {
		return domain.ShiftResponse{}, store.ErrInvalidInput
	}

	key := sessionKey(req.StoreID, req.TerminalID)
	s.mu.Lock()
	session := s.sessions[key]
	s.mu.Unlock()

	if session != nil {
		final := session.CloseShift(req.ClosingCashCents)
		if err := s.repo.SaveShiftTotals(ctx, final); err != nil && !errors.Is(err, store.ErrNotFound) {
			session.ReopenShift()
			return domain.ShiftResponse{}, fmt.Errorf("save final shift totals: %w", err)
		}
	}

	closed, err := s.repo.CloseActiveShift(ctx, req.StoreID, req.TerminalID, req.ClosingCashCents, time.Now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.dropSession(key)
			return domain.ShiftResponse{}, ErrNoActiveShift
		}
		if session != nil {
			session.ReopenShift()
		}
		return domain.ShiftResponse{}, err
	}
	s.dropSession(key)

	variance := ledger.Reconcile(*closed, req.ClosingCashCents)
	s.audit(ctx, "shift_close").
		Str("shift_id", closed.ID).
		Str("terminal_id", closed.TerminalID).
		Int64("closing_cash_cents", req.ClosingCashCents).
		Int64("cash_variance_cents", variance).
		Str("notes", req.Notes).
		Msg("shift closed")

	return domain.ShiftResponse{
		Shift:             *closed,
		ExpectedCashCents: closed.ExpectedCashCents(),
		CashVarianceCents: variance,
	}, nil
}

// GetActiveShift prefers the live session totals over the persisted row.
func (s *Service) GetActiveShift(ctx context.Context, storeID string, terminalID string) (domain.ShiftResponse, error) {
	session, err := s.session(ctx, storeID, terminalID)
	if err != nil {
		return domain.ShiftResponse{}, err
	}
	shift := session.Shift()
	return domain.ShiftResponse{Shift: shift, ExpectedCashCents: shift.ExpectedCashCents()}, nil
}

func (s *Service) Snapshot(ctx context.Context, storeID string, terminalID string) (pos.Snapshot, error) {
	session, err := s.session(ctx, storeID, terminalID)
	if err != nil {
		return pos.Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// Suggest offers one add-on for the terminal's active transaction. A nil
// suggestion means nothing fits.
func (s *Service) Suggest(ctx context.Context, storeID string, terminalID string) (*suggest.Suggestion, error) {
	session, err := s.session(ctx, storeID, terminalID)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	suggestion, ok := s.advisor.Suggest(session.Snapshot().Transaction, products)
	if !ok {
		return nil, nil
	}
	return &suggestion, nil
}

func (s *Service) AddLine(ctx context.Context, storeID string, terminalID string, productID string, quantity int) (domain.Transaction, error) {
	session, err := s.session(ctx, storeID, terminalID)
	if err != nil {
		return domain.Transaction{}, err
	}
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return session.Transaction(), err
	}

	tx, err := session.AddLine(product, quantity)
	if err != nil {
		return tx, s.rejected(ctx, "add_line", terminalID, err)
	}
	s.metrics.LineCommitted(string(domain.TransactionSale))
	return tx, nil
}

func (s *Service) UpdateQuantity(ctx context.Context, storeID string, terminalID string, productID string, quantity int) (domain.Transaction, error) {
	session, err := s.session(ctx, storeID, terminalID)
	if err != nil {
		return domain.Transaction{}, err
	}
	tx, err := session.UpdateQuantity(productID, quantity)
	if err != nil {
		return tx, s.rejected(ctx, "update_quantity", terminalID, err)
	}
	return tx, nil
}

func (s *Service) RemoveLine(ctx context.Context, storeID string, terminalID string, productID string) (domain.Transaction, error) {
	session, err := s.session(ctx, storeID, terminalID)
	if err != nil {
		return domain.Transaction{}, err
	}
	return session.RemoveLine(productID), nil
}

func (s *Service) ClearTransaction(ctx context.Context, storeID string, terminalID string) (domain.Transaction, error) {
	session, err := s.session(ctx, storeID, terminalID)
	if err != nil {
		return domain.Transaction{}, err
	}
	return session.Clear(), nil
}

// SetDiscount is restricted to admins; the amount is clamped to the subtotal.
func (s *Service) SetDiscount(ctx context.Context, storeID string, terminalID string, discountCents int64) (domain.Transaction, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Transaction{}, ErrAdminRequired
	}
	session, err := s.session(ctx, storeID, terminalID)
	if err != nil {
		return domain.Transaction{}, err
	}

	tx := session.SetDiscount(discountCents)
	s.audit(ctx, "discount_set").
		Str("terminal_id", terminalID).
		Int64("discount_cents", tx.DiscountCents).
		Msg("discount applied")
	return tx, nil
}

func (s *Service) AttachCustomer(ctx context.Context, storeID string, terminalID string, customerID string) (pos.Snapshot, error) {
	session, err := s.session(ctx, storeID, terminalID)
	if err != nil {
		return pos.Snapshot{}, err
	}
	customer, err := s.GetCustomer(ctx, customerID)
	if err != nil {
		return pos.Snapshot{}, err
	}
	session.AttachCustomer(customer)
	return session.Snapshot(), nil
}

func (s *Service) DetachCustomer(ctx context.Context, storeID string, terminalID string) (pos.Snapshot, error) {
	session, err := s.session(ctx, storeID, terminalID)
	if err != nil {
		return pos.Snapshot{}, err
	}
	session.DetachCustomer()
	return session.Snapshot(), nil
}

// QuoteBulkSale prices a bulk form without touching any session.
func (s *Service) QuoteBulkSale(ctx context.Context, form pos.BulkSaleForm) (pos.Quote, error) {
	product, err := s.GetProduct(ctx, bulkProductID(form))
	if err != nil {
		return pos.Quote{}, err
	}
	return pos.PreviewBulkSale(product, s.tariff, form), nil
}

func (s *Service) QuoteExchange(form pos.ExchangeForm) pos.Quote {
	return pos.PreviewExchange(s.tariff, form)
}

func (s *Service) QuoteRefill(form pos.RefillForm) pos.Quote {
	return pos.PreviewRefill(s.tariff, form)
}

func (s *Service) QuoteCustomWeight(form pos.CustomWeightForm) pos.Quote {
	return pos.PreviewCustomWeight(s.tariff, form)
}

func (s *Service) CommitBulkSale(ctx context.Context, storeID string, terminalID string, form pos.BulkSaleForm) (domain.Transaction, error) {
	session, err := s.session(ctx, storeID, terminalID)
	if err != nil {
		return domain.Transaction{}, err
	}
	product, err := s.GetProduct(ctx, bulkProductID(form))
	if err != nil {
		return session.Transaction(), err
	}
	tx, err := session.CommitBulkSale(product, form)
	return s.committed(ctx, "bulk_sale", terminalID, tx, err)
}

func (s *Service) CommitExchange(ctx context.Context, storeID string, terminalID string, form pos.ExchangeForm) (domain.Transaction, error) {
	session, err := s.session(ctx, storeID, terminalID)
	if err != nil {
		return domain.Transaction{}, err
	}
	tx, err := session.CommitExchange(form)
	return s.committed(ctx, "exchange", terminalID, tx, err)
}

func (s *Service) CommitRefill(ctx context.Context, storeID string, terminalID string, form pos.RefillForm) (domain.Transaction, error) {
	session, err := s.session(ctx, storeID, terminalID)
	if err != nil {
		return domain.Transaction{}, err
	}
	tx, err := session.CommitRefill(form)
	return s.committed(ctx, "refill", terminalID, tx, err)
}

func (s *Service) CommitCustomWeightSale(ctx context.Context, storeID string, terminalID string, form pos.CustomWeightForm) (domain.Transaction, error) {
	session, err := s.session(ctx, storeID, terminalID)
	if err != nil {
		return domain.Transaction{}, err
	}
	tx, err := session.CommitCustomWeightSale(form)
	return s.committed(ctx, "custom_weight", terminalID, tx, err)
}

// RecordPayment settles the terminal's transaction, then persists the shift
// totals and, for credit tenders, the customer's new balance. A persistence
// failure after settlement is logged; the in-memory ledger stays
// authoritative until the next successful save.
func (s *Service) RecordPayment(ctx context.Context, storeID string, terminalID string, tender domain.TenderType) (domain.PaymentResult, error) {
	session, err := s.session(ctx, storeID, terminalID)
	if err != nil {
		return domain.PaymentResult{}, err
	}

	result, err := session.RecordPayment(domain.TenderType(strings.ToLower(strings.TrimSpace(string(tender)))))
	if err != nil {
		return domain.PaymentResult{}, s.rejected(ctx, "payment", terminalID, err)
	}

	if err := s.repo.SaveShiftTotals(ctx, result.Shift); err != nil {
		s.logger.Error().Err(err).Str("shift_id", result.Shift.ID).Msg("failed to persist shift totals")
	}
	if result.Tender == domain.TenderCredit && result.Customer != nil {
		updated, err := s.repo.ApplyCreditCharge(ctx, result.Customer.ID, result.PaidCents)
		if err != nil {
			s.logger.Error().Err(err).Str("customer_id", result.Customer.ID).Msg("failed to apply credit charge")
		} else {
			result.Customer = updated
		}
	}

	s.metrics.PaymentRecorded(string(result.Tender), result.PaidCents)
	s.audit(ctx, "payment").
		Str("terminal_id", terminalID).
		Str("shift_id", result.Shift.ID).
		Str("tender", string(result.Tender)).
		Int64("paid_cents", result.PaidCents).
		Str("transaction_type", string(result.Settled.Type)).
		Msg("payment recorded")

	return result, nil
}

// session returns the terminal's live session, resuming it from the
// persisted active shift after a restart.
func (s *Service) session(ctx context.Context, storeID string, terminalID string) (*pos.Session, error) {
	if storeID == "" {
		storeID = s.defaultStoreID
	}
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		return nil, store.ErrInvalidInput
	}
	key := sessionKey(storeID, terminalID)

	s.mu.Lock()
	session, ok := s.sessions[key]
	s.mu.Unlock()
	if ok {
		return session, nil
	}

	shift, err := s.repo.GetActiveShift(ctx, storeID, terminalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoActiveShift
		}
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[key]; ok {
		return existing, nil
	}
	session = s.newSession(*shift)
	s.sessions[key] = session
	s.logger.Info().Str("shift_id", shift.ID).Str("terminal_id", terminalID).Msg("session resumed")
	return session, nil
}

func (s *Service) dropSession(key string) {
	s.mu.Lock()
	delete(s.sessions, key)
	s.mu.Unlock()
}

func (s *Service) newSession(shift domain.Shift) *pos.Session {
	return pos.NewSession(s.tariff, shift, pos.WithTax(s.tax))
}

func (s *Service) committed(ctx context.Context, op string, terminalID string, tx domain.Transaction, err error) (domain.Transaction, error) {
	if err != nil {
		return tx, s.rejected(ctx, op, terminalID, err)
	}
	s.metrics.LineCommitted(string(tx.Type))
	s.logger.Info().
		Str("op", op).
		Str("terminal_id", terminalID).
		Int64("total_cents", tx.TotalCents).
		Int("lines", len(tx.Items)).
		Msg("line committed")
	return tx, nil
}

// rejected counts and logs business-rule rejections and passes err through.
func (s *Service) rejected(ctx context.Context, op string, terminalID string, err error) error {
	var rejection *domain.Rejection
	if errors.As(err, &rejection) {
		s.metrics.Rejected(rejection.Code)
		s.withActor(ctx, s.logger.Warn(), op).
			Str("terminal_id", terminalID).
			Str("code", rejection.Code).
			Msg("rejected")
	}
	return err
}

func (s *Service) audit(ctx context.Context, action string) *zerolog.Event {
	return s.withActor(ctx, s.logger.Info(), action)
}

func (s *Service) withActor(ctx context.Context, event *zerolog.Event, action string) *zerolog.Event {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}
	event = event.
		Str("action", action).
		Str("actor", actor.Username).
		Str("actor_role", actor.Role)
	if actor.TerminalID != "" {
		event = event.Str("actor_terminal", actor.TerminalID)
	}
	return event
}

func bulkProductID(form pos.BulkSaleForm) string {
	return defaultString(form.ProductID, catalog.BulkLPGProductID)
}

func sessionKey(storeID string, terminalID string) string {
	return storeID + "::" + strings.TrimSpace(terminalID)
}

func defaultString(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
