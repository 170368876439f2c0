package httpapi

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"lpgpos/internal/domain"
)

const tokenIssuer = "lpgpos"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("account is inactive")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// AuthManager issues and verifies operator tokens. A cashier who logs in at a
// till gets a token bound to that terminal; admins are never bound.
type AuthManager struct {
	mu        sync.RWMutex
	secret    []byte
	tokenTTL  time.Duration
	userStore UserStore
	operators map[string]operator
}

type UserStore interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

type operator struct {
	passwordHash string
	role         string
	active       bool
	created      time.Time
}

type operatorClaims struct {
	jwtlib.RegisteredClaims
	Role     string `json:"role"`
	Terminal string `json:"terminal,omitempty"`
}

// NewAuthManager needs a non-empty secret; cmd/server refuses to start
// without one.
func NewAuthManager(ctx context.Context, secret string, tokenTTL time.Duration, userStore UserStore) *AuthManager {
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}

	manager := &AuthManager{
		secret:    []byte(secret),
		tokenTTL:  tokenTTL,
		userStore: userStore,
		operators: make(map[string]operator),
	}
	manager.loadOperators(ctx)
	return manager
}

// Login checks the operator's password and issues a token. The terminal in
// the request is carried into the token for cashiers only.
func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	a.loadOperators(ctx)
	username := normalizeUsername(req.Username)
	op, err := a.authenticate(username, req.Password)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	actor := domain.Actor{Username: username, Role: op.role}
	if op.role == domain.RoleCashier {
		actor.TerminalID = strings.TrimSpace(req.TerminalID)
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(actor, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		Role:        actor.Role,
		TerminalID:  actor.TerminalID,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) authenticate(username string, password string) (operator, error) {
	a.mu.RLock()
	op, ok := a.operators[username]
	a.mu.RUnlock()
	if !ok || !verifyPassword(op.passwordHash, password) {
		return operator{}, ErrInvalidCredentials
	}
	if !op.active {
		return operator{}, ErrInactiveAccount
	}
	return op, nil
}

// ParseToken verifies an HS256 token from this issuer and returns the actor
// it names, including any terminal binding.
func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &operatorClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, a.signingKey,
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(tokenIssuer),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return domain.Actor{}, ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	actor := domain.Actor{Username: sub, Role: claims.Role}
	if claims.Role == domain.RoleCashier {
		actor.TerminalID = claims.Terminal
	}
	return actor, nil
}

func (a *AuthManager) signingKey(t *jwtlib.Token) (any, error) {
	if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
	return a.secret, nil
}

func (a *AuthManager) sign(actor domain.Actor, expiresAt time.Time) (string, error) {
	claims := operatorClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   actor.Username,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    tokenIssuer,
		},
		Role:     actor.Role,
		Terminal: actor.TerminalID,
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(a.secret)
}

// CreateCashier registers a new cashier account with a bcrypt password.
func (a *AuthManager) CreateCashier(ctx context.Context, req domain.CashierCreateRequest) (domain.CashierUser, error) {
	a.loadOperators(ctx)
	username := normalizeUsername(req.Username)
	if err := checkCashierCredentials(username, req.Password); err != nil {
		return domain.CashierUser{}, err
	}

	a.mu.RLock()
	_, exists := a.operators[username]
	a.mu.RUnlock()
	if exists {
		return domain.CashierUser{}, ErrUsernameTaken
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return domain.CashierUser{}, fmt.Errorf("hash password: %w", err)
	}
	op := operator{passwordHash: hash, role: domain.RoleCashier, active: true, created: time.Now().UTC()}

	if a.userStore != nil {
		if err := a.userStore.CreateUser(ctx, domain.UserAccount{
			Username:  username,
			Password:  op.passwordHash,
			Role:      op.role,
			Active:    op.active,
			CreatedAt: op.created,
		}); err != nil {
			return domain.CashierUser{}, err
		}
	}

	a.mu.Lock()
	a.operators[username] = op
	a.mu.Unlock()

	return op.cashierUser(username), nil
}

func checkCashierCredentials(username string, password string) error {
	switch {
	case len(username) < 4:
		return errors.New("username must be at least 4 characters")
	case strings.ContainsAny(username, " \t\r\n"):
		return errors.New("username must not contain spaces")
	case len(strings.TrimSpace(password)) < 6:
		return errors.New("password must be at least 6 characters")
	}
	return nil
}

// ListCashiers returns cashier accounts sorted by username.
func (a *AuthManager) ListCashiers(ctx context.Context) []domain.CashierUser {
	a.loadOperators(ctx)
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make([]domain.CashierUser, 0, len(a.operators))
	for _, username := range slices.Sorted(maps.Keys(a.operators)) {
		if op := a.operators[username]; op.role == domain.RoleCashier {
			result = append(result, op.cashierUser(username))
		}
	}
	return result
}

func (op operator) cashierUser(username string) domain.CashierUser {
	return domain.CashierUser{
		Username:  username,
		Role:      op.role,
		Active:    op.active,
		CreatedAt: op.created,
	}
}

// loadOperators refreshes the in-memory operator table from the user store.
// Seeded accounts stored with a plain-text password are rehashed on the way.
func (a *AuthManager) loadOperators(ctx context.Context) {
	if a.userStore == nil {
		return
	}

	users, err := a.userStore.ListUsers(ctx)
	if err != nil || len(users) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, user := range users {
		username := normalizeUsername(user.Username)
		if username == "" {
			continue
		}
		hash := user.Password
		if !isPasswordHash(hash) {
			rehashed, err := hashPassword(hash)
			if err != nil {
				continue
			}
			hash = rehashed
			_ = a.userStore.UpdateUserPassword(ctx, username, hash)
		}
		a.operators[username] = operator{
			passwordHash: hash,
			role:         user.Role,
			active:       user.Active,
			created:      user.CreatedAt,
		}
	}
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func verifyPassword(hash string, input string) bool {
	if !isPasswordHash(hash) || strings.TrimSpace(input) == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func isPasswordHash(value string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}
