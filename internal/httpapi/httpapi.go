package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"lpgpos/internal/domain"
	"lpgpos/internal/obs"
	"lpgpos/internal/pos"
	"lpgpos/internal/service"
	"lpgpos/internal/store"
)

type Options struct {
	AllowedOrigin string
	Logger        zerolog.Logger
	HTTPMetrics   *obs.HTTPMetrics
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

type API struct {
	service      *service.Service
	auth         *AuthManager
	validate     *validator.Validate
	logger       zerolog.Logger
	opts         Options
	loginLimiter *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, opts Options) *API {
	return &API{
		service:      svc,
		auth:         auth,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		logger:       opts.Logger,
		opts:         opts,
		loginLimiter: newAttemptLimiter(5, time.Minute),
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.opts.HTTPMetrics.Middleware)
	r.Use(obs.RequestLogger{Logger: a.logger}.Middleware)
	r.Use(securityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{a.opts.AllowedOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(limitJSONBody)

	r.Get("/healthz", a.handleHealth)
	if a.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(a.opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(v chi.Router) {
		v.Post("/auth/login", a.handleLogin)

		v.Group(func(p chi.Router) {
			p.Use(a.requireAuth(domain.RoleCashier, domain.RoleAdmin))

			p.Get("/products", a.handleListProducts)
			p.Get("/products/{productID}", a.handleGetProduct)
			p.Get("/customers", a.handleListCustomers)
			p.Get("/customers/{customerID}", a.handleGetCustomer)
			p.Get("/tariff", a.handleTariff)

			p.Post("/shifts/open", a.handleShiftOpen)
			p.Post("/shifts/close", a.handleShiftClose)
			p.Get("/shifts/active", a.handleShiftActive)

			p.Post("/quotes/bulk", a.handleQuoteBulk)
			p.Post("/quotes/exchange", a.handleQuoteExchange)
			p.Post("/quotes/refill", a.handleQuoteRefill)
			p.Post("/quotes/custom-weight", a.handleQuoteCustomWeight)

			p.Route("/terminals/{terminalID}/transaction", func(t chi.Router) {
				t.Use(a.requireTerminal)
				t.Get("/", a.handleSnapshot)
				t.Get("/suggestion", a.handleSuggestion)
				t.Post("/lines", a.handleAddLine)
				t.Patch("/lines/{productID}", a.handleUpdateLine)
				t.Delete("/lines/{productID}", a.handleRemoveLine)
				t.Post("/clear", a.handleClear)
				t.Put("/customer", a.handleAttachCustomer)
				t.Delete("/customer", a.handleDetachCustomer)
				t.Post("/bulk-sale", a.handleCommitBulk)
				t.Post("/exchange", a.handleCommitExchange)
				t.Post("/refill", a.handleCommitRefill)
				t.Post("/custom-weight", a.handleCommitCustomWeight)
				t.Post("/payments", a.handlePayment)
				t.With(a.requireAuth(domain.RoleAdmin)).Put("/discount", a.handleDiscount)
			})
		})

		v.Group(func(admin chi.Router) {
			admin.Use(a.requireAuth(domain.RoleAdmin))
			admin.Get("/users/cashiers", a.handleListCashiers)
			admin.Post("/users/cashiers", a.handleCreateCashier)
		})
	})

	return r
}

func (a *API) requireAuth(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authorization := strings.TrimSpace(r.Header.Get("Authorization"))
			if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
				writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
				return
			}

			token := strings.TrimSpace(authorization[len("Bearer "):])
			actor, err := a.auth.ParseToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err)
				return
			}

			if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
				writeError(w, http.StatusForbidden, errors.New("forbidden role"))
				return
			}

			next.ServeHTTP(w, r.WithContext(service.WithActor(r.Context(), actor)))
		})
	}
}

// requireTerminal refuses requests for a terminal other than the one the
// caller's token is bound to.
func (a *API) requireTerminal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !operatesTerminal(w, r, chi.URLParam(r, "terminalID")) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func operatesTerminal(w http.ResponseWriter, r *http.Request, terminalID string) bool {
	actor, ok := service.ActorFromContext(r.Context())
	if !ok || actor.CanOperate(terminalID) {
		return true
	}
	writeError(w, http.StatusForbidden, errors.New("token is bound to another terminal"))
	return false
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if !a.decodeValid(w, r, &req) {
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.service.ListProducts(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := a.service.GetProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": product})
}

func (a *API) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := a.service.ListCustomers(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
}

func (a *API) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := a.service.GetCustomer(r.Context(), chi.URLParam(r, "customerID"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"customer":               customer,
		"available_credit_cents": customer.AvailableCredit(),
		"cylinders_loaned":       customer.CylindersLoaned(),
	})
}

func (a *API) handleTariff(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tariff": a.service.Tariff()})
}

func (a *API) handleShiftOpen(w http.ResponseWriter, r *http.Request) {
	var req domain.ShiftOpenRequest
	if !a.decodeValid(w, r, &req) || !operatesTerminal(w, r, req.TerminalID) {
		return
	}

	resp, err := a.service.OpenShift(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleShiftClose(w http.ResponseWriter, r *http.Request) {
	var req domain.ShiftCloseRequest
	if !a.decodeValid(w, r, &req) || !operatesTerminal(w, r, req.TerminalID) {
		return
	}

	resp, err := a.service.CloseShift(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleShiftActive(w http.ResponseWriter, r *http.Request) {
	storeID := r.URL.Query().Get("store_id")
	terminalID := r.URL.Query().Get("terminal_id")
	if !operatesTerminal(w, r, terminalID) {
		return
	}
	resp, err := a.service.GetActiveShift(r.Context(), storeID, terminalID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleQuoteBulk(w http.ResponseWriter, r *http.Request) {
	var form pos.BulkSaleForm
	if !a.decodeValid(w, r, &form) {
		return
	}
	quote, err := a.service.QuoteBulkSale(r.Context(), form)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (a *API) handleQuoteExchange(w http.ResponseWriter, r *http.Request) {
	var form pos.ExchangeForm
	if !a.decodeValid(w, r, &form) {
		return
	}
	writeJSON(w, http.StatusOK, a.service.QuoteExchange(form))
}

func (a *API) handleQuoteRefill(w http.ResponseWriter, r *http.Request) {
	var form pos.RefillForm
	if !a.decodeValid(w, r, &form) {
		return
	}
	writeJSON(w, http.StatusOK, a.service.QuoteRefill(form))
}

func (a *API) handleQuoteCustomWeight(w http.ResponseWriter, r *http.Request) {
	var form pos.CustomWeightForm
	if !a.decodeValid(w, r, &form) {
		return
	}
	writeJSON(w, http.StatusOK, a.service.QuoteCustomWeight(form))
}

func (a *API) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	storeID, terminalID := terminalRef(r)
	snap, err := a.service.Snapshot(r.Context(), storeID, terminalID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) handleSuggestion(w http.ResponseWriter, r *http.Request) {
	storeID, terminalID := terminalRef(r)
	suggestion, err := a.service.Suggest(r.Context(), storeID, terminalID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestion": suggestion})
}

type addLineRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=9999"`
}

func (a *API) handleAddLine(w http.ResponseWriter, r *http.Request) {
	var req addLineRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	storeID, terminalID := terminalRef(r)
	tx, err := a.service.AddLine(r.Context(), storeID, terminalID, req.ProductID, req.Quantity)
	a.writeTransaction(w, tx, err)
}

type updateLineRequest struct {
	Quantity int `json:"quantity" validate:"gte=0,lte=9999"`
}

func (a *API) handleUpdateLine(w http.ResponseWriter, r *http.Request) {
	var req updateLineRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	storeID, terminalID := terminalRef(r)
	tx, err := a.service.UpdateQuantity(r.Context(), storeID, terminalID, chi.URLParam(r, "productID"), req.Quantity)
	a.writeTransaction(w, tx, err)
}

func (a *API) handleRemoveLine(w http.ResponseWriter, r *http.Request) {
	storeID, terminalID := terminalRef(r)
	tx, err := a.service.RemoveLine(r.Context(), storeID, terminalID, chi.URLParam(r, "productID"))
	a.writeTransaction(w, tx, err)
}

func (a *API) handleClear(w http.ResponseWriter, r *http.Request) {
	storeID, terminalID := terminalRef(r)
	tx, err := a.service.ClearTransaction(r.Context(), storeID, terminalID)
	a.writeTransaction(w, tx, err)
}

type discountRequest struct {
	DiscountCents int64 `json:"discount_cents" validate:"gte=0"`
}

func (a *API) handleDiscount(w http.ResponseWriter, r *http.Request) {
	var req discountRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	storeID, terminalID := terminalRef(r)
	tx, err := a.service.SetDiscount(r.Context(), storeID, terminalID, req.DiscountCents)
	a.writeTransaction(w, tx, err)
}

type attachCustomerRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
}

func (a *API) handleAttachCustomer(w http.ResponseWriter, r *http.Request) {
	var req attachCustomerRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	storeID, terminalID := terminalRef(r)
	snap, err := a.service.AttachCustomer(r.Context(), storeID, terminalID, req.CustomerID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) handleDetachCustomer(w http.ResponseWriter, r *http.Request) {
	storeID, terminalID := terminalRef(r)
	snap, err := a.service.DetachCustomer(r.Context(), storeID, terminalID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) handleCommitBulk(w http.ResponseWriter, r *http.Request) {
	var form pos.BulkSaleForm
	if !a.decodeValid(w, r, &form) {
		return
	}
	storeID, terminalID := terminalRef(r)
	tx, err := a.service.CommitBulkSale(r.Context(), storeID, terminalID, form)
	a.writeTransaction(w, tx, err)
}

func (a *API) handleCommitExchange(w http.ResponseWriter, r *http.Request) {
	var form pos.ExchangeForm
	if !a.decodeValid(w, r, &form) {
		return
	}
	storeID, terminalID := terminalRef(r)
	tx, err := a.service.CommitExchange(r.Context(), storeID, terminalID, form)
	a.writeTransaction(w, tx, err)
}

func (a *API) handleCommitRefill(w http.ResponseWriter, r *http.Request) {
	var form pos.RefillForm
	if !a.decodeValid(w, r, &form) {
		return
	}
	storeID, terminalID := terminalRef(r)
	tx, err := a.service.CommitRefill(r.Context(), storeID, terminalID, form)
	a.writeTransaction(w, tx, err)
}

func (a *API) handleCommitCustomWeight(w http.ResponseWriter, r *http.Request) {
	var form pos.CustomWeightForm
	if !a.decodeValid(w, r, &form) {
		return
	}
	storeID, terminalID := terminalRef(r)
	tx, err := a.service.CommitCustomWeightSale(r.Context(), storeID, terminalID, form)
	a.writeTransaction(w, tx, err)
}

type paymentRequest struct {
	Tender domain.TenderType `json:"tender" validate:"required"`
}

func (a *API) handlePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	storeID, terminalID := terminalRef(r)
	result, err := a.service.RecordPayment(r.Context(), storeID, terminalID, req.Tender)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleListCashiers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"cashiers": a.auth.ListCashiers(r.Context())})
}

func (a *API) handleCreateCashier(w http.ResponseWriter, r *http.Request) {
	var req domain.CashierCreateRequest
	if !a.decodeValid(w, r, &req) {
		return
	}

	cashier, err := a.auth.CreateCashier(r.Context(), req)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrUsernameTaken) || errors.Is(err, store.ErrConflict) {
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"cashier": cashier})
}

// writeTransaction answers a cart mutation. A rejection still carries the
// untouched transaction so the till can redraw it.
func (a *API) writeTransaction(w http.ResponseWriter, tx domain.Transaction, err error) {
	var rejection *domain.Rejection
	if errors.As(err, &rejection) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":       rejection.Message,
			"code":        rejection.Code,
			"transaction": tx,
		})
		return
	}
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transaction": tx})
}

func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	var rejection *domain.Rejection
	switch {
	case errors.As(err, &rejection):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": rejection.Message, "code": rejection.Code})
	case errors.Is(err, store.ErrNotFound), errors.Is(err, service.ErrNoActiveShift):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, store.ErrConflict), errors.Is(err, service.ErrShiftAlreadyOpen):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, store.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, service.ErrAdminRequired):
		writeError(w, http.StatusForbidden, err)
	default:
		a.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, err)
	}
}

// decodeValid decodes a strict JSON body and runs struct validation, writing
// a 400 on failure.
func (a *API) decodeValid(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := decodeJSON(r, dest); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	if err := a.validate.Struct(dest); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func terminalRef(r *http.Request) (string, string) {
	return r.URL.Query().Get("store_id"), chi.URLParam(r, "terminalID")
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

func limitJSONBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil && r.Method != http.MethodGet {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}
		next.ServeHTTP(w, r)
	})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx bodies never carry the underlying error; it is logged by the caller.
	msg := err.Error()
	if status >= 500 {
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
