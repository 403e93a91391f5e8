package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/raj29code/playohcanada/internal/auth"
	"github.com/raj29code/playohcanada/internal/persistence"
)

// AccountStore exposes the user account operations needed by the auth service.
type AccountStore interface {
	CreateUser(ctx context.Context, user persistence.User) error
	GetUser(ctx context.Context, id string) (persistence.User, error)
	GetUserByEmail(ctx context.Context, email string) (persistence.User, error)
}

// TokenIssuer signs and verifies identity tokens.
type TokenIssuer interface {
	Issue(identity auth.Identity, now time.Time) (string, time.Time, error)
	Parse(token string, now time.Time) (auth.Identity, error)
}

// TokenBlacklist records surrendered tokens until they expire.
type TokenBlacklist interface {
	Revoke(ctx context.Context, token, userID string, revokedAt, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// AuthService coordinates registration, login, and token validation.
type AuthService struct {
	accounts    AccountStore
	tokens      TokenIssuer
	blacklist   TokenBlacklist
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(accounts AccountStore, tokens TokenIssuer, blacklist TokenBlacklist, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AuthService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		accounts:    accounts,
		tokens:      tokens,
		blacklist:   blacklist,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Register creates a player account.
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (user User, err error) {
	if s == nil || s.accounts == nil {
		return User{}, fmt.Errorf("account store not configured")
	}

	email := strings.TrimSpace(strings.ToLower(params.Email))
	logger := s.loggerWith(ctx, "Register", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "registration failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "account registered")
	}()

	vErr := &ValidationError{}
	if email == "" || !strings.Contains(email, "@") {
		vErr.add("email", "a valid email address is required")
	}
	if strings.TrimSpace(params.DisplayName) == "" {
		vErr.add("display_name", "display name is required")
	}
	if len(params.Password) < 8 {
		vErr.add("password", "password must be at least 8 characters")
	}
	if vErr.HasErrors() {
		err = vErr
		return User{}, err
	}

	hash, err := CreatePasswordHash(params.Password)
	if err != nil {
		return User{}, err
	}

	now := s.now()
	record := persistence.User{
		ID:           s.idGenerator(),
		Email:        email,
		DisplayName:  strings.TrimSpace(params.DisplayName),
		Mobile:       params.Mobile,
		PasswordHash: hash,
		Role:         RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err = s.accounts.CreateUser(ctx, record); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			err = ErrEmailTaken
		}
		return User{}, err
	}
	return toUser(record), nil
}

// EnsureAdmin creates an admin account unless one already exists under
// the email. Called once at startup to seed the configured operator.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, displayName, password string) error {
	if s == nil || s.accounts == nil {
		return fmt.Errorf("account store not configured")
	}

	email = strings.TrimSpace(strings.ToLower(email))
	if _, err := s.accounts.GetUserByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, persistence.ErrNotFound) {
		return err
	}

	hash, err := CreatePasswordHash(password)
	if err != nil {
		return err
	}

	now := s.now()
	record := persistence.User{
		ID:           s.idGenerator(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		Role:         RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.CreateUser(ctx, record); err != nil {
		// Lost the race to another instance seeding the same account.
		if errors.Is(err, persistence.ErrDuplicate) {
			return nil
		}
		return err
	}

	s.loggerWith(ctx, "EnsureAdmin", "email", email).InfoContext(ctx, "admin account seeded")
	return nil
}

// Login validates credentials and issues a signed token.
func (s *AuthService) Login(ctx context.Context, params LoginParams) (result LoginResult, err error) {
	if s == nil || s.accounts == nil || s.tokens == nil {
		return LoginResult{}, fmt.Errorf("auth service not configured")
	}

	email := strings.TrimSpace(strings.ToLower(params.Email))
	logger := s.loggerWith(ctx, "Login", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "login failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", result.User.ID).InfoContext(ctx, "login succeeded")
	}()

	if email == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return LoginResult{}, err
	}

	record, err := s.accounts.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if err = VerifyPassword(record.PasswordHash, params.Password); err != nil {
		err = ErrInvalidCredentials
		return LoginResult{}, err
	}

	now := s.now()
	token, expiresAt, err := s.tokens.Issue(auth.Identity{
		UserID:      record.ID,
		DisplayName: record.DisplayName,
		Email:       record.Email,
		Role:        record.Role,
	}, now)
	if err != nil {
		return LoginResult{}, err
	}

	result = LoginResult{User: toUser(record), Token: token, ExpiresAt: expiresAt}
	return result, nil
}

// Logout blacklists the presented token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, token string) (err error) {
	if s == nil || s.tokens == nil || s.blacklist == nil {
		return fmt.Errorf("auth service not configured")
	}

	logger := s.loggerWith(ctx, "Logout")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "logout failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "token revoked")
	}()

	now := s.now()
	identity, err := s.tokens.Parse(strings.TrimSpace(token), now)
	if err != nil {
		// An expired token needs no blacklist entry.
		if errors.Is(err, auth.ErrTokenExpired) {
			err = nil
			return nil
		}
		err = ErrUnauthorized
		return err
	}

	if err = s.blacklist.Revoke(ctx, token, identity.UserID, now, identity.ExpiresAt); err != nil {
		return err
	}
	return nil
}

// Authenticate verifies a token and returns the principal it carries.
// Blacklisted tokens are rejected even while their signature is valid.
func (s *AuthService) Authenticate(ctx context.Context, token string) (Principal, error) {
	if s == nil || s.tokens == nil {
		return Principal{}, fmt.Errorf("auth service not configured")
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, ErrUnauthorized
	}

	identity, err := s.tokens.Parse(token, s.now())
	if err != nil {
		return Principal{}, ErrUnauthorized
	}

	if s.blacklist != nil {
		revoked, err := s.blacklist.IsRevoked(ctx, token)
		if err != nil {
			return Principal{}, err
		}
		if revoked {
			return Principal{}, ErrTokenRevoked
		}
	}

	return Principal{UserID: identity.UserID, Role: identity.Role}, nil
}

// GetUser returns the account behind a principal.
func (s *AuthService) GetUser(ctx context.Context, principal Principal) (User, error) {
	if s == nil || s.accounts == nil {
		return User{}, fmt.Errorf("account store not configured")
	}
	if principal.IsAnonymous() {
		return User{}, ErrUnauthorized
	}

	record, err := s.accounts.GetUser(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return toUser(record), nil
}

func toUser(record persistence.User) User {
	return User{
		ID:          record.ID,
		Email:       record.Email,
		DisplayName: record.DisplayName,
		Mobile:      record.Mobile,
		Role:        record.Role,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}
