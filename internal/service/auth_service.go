package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"nextgenrdp/api/internal/config"
	"nextgenrdp/api/internal/ids"
	"nextgenrdp/api/internal/models"
	"nextgenrdp/api/internal/repository"
	"nextgenrdp/api/internal/security"
)

// UserStore is the credential persistence contract. Implementations return
// repository.ErrUserNotFound and repository.ErrEmailTaken.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	Create(ctx context.Context, user models.User) error
	RecordFailedLogin(ctx context.Context, id string, attempts int, locked bool) error
	RecordSuccessfulLogin(ctx context.Context, id string, at time.Time) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	Unlock(ctx context.Context, id string) error
	CountLocked(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

type PasswordHasher interface {
	Hash(password string) ([]byte, error)
	Verify(encodedHash []byte, password string) (bool, error)
}

type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

type AuthService struct {
	users   UserStore
	hasher  PasswordHasher
	tokens  *security.TokenCodec
	lockout security.LockoutPolicy
	revoker TokenRevoker
	cfg     config.SecurityConfig
	log     zerolog.Logger
	now     func() time.Time
}

type Option func(*AuthService)

// WithRevoker enables server-side revocation on logout.
func WithRevoker(r TokenRevoker) Option {
	return func(s *AuthService) { s.revoker = r }
}

func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

func NewAuthService(
	users UserStore,
	hasher PasswordHasher,
	tokens *security.TokenCodec,
	cfg config.SecurityConfig,
	log zerolog.Logger,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		lockout: security.NewLockoutPolicy(cfg.LockoutThreshold),
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type AuthResult struct {
	Token string
	TTL   time.Duration
	User  models.User
}

type LoginInput struct {
	Email      string `validate:"required,email,max=254"`
	Password   string `validate:"required"`
	RememberMe bool
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	input.Email = strings.TrimSpace(input.Email)
	if err := validateStruct(input); err != nil {
		return AuthResult{}, err
	}

	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.log.Info().Str("reason", "unknown_email").Msg("login rejected")
			// same shape as a first wrong password on a real account
			return AuthResult{}, &LoginFailure{
				Err:               ErrInvalidCredentials,
				AttemptsRemaining: s.lockout.Failure(0).Remaining,
			}
		}
		return AuthResult{}, fmt.Errorf("%w: find user: %w", ErrInternal, err)
	}

	if user.AccountLocked {
		s.log.Warn().Str("user_id", user.ID).Str("reason", "account_locked").Msg("login rejected")
		return AuthResult{}, &LoginFailure{Err: ErrAccountLocked}
	}

	if !user.HasPassword() {
		s.log.Error().Str("user_id", user.ID).Msg("credential record has no password hash")
		return AuthResult{}, fmt.Errorf("%w: user %s has no password hash", ErrInternal, user.ID)
	}

	ok, err := s.hasher.Verify(user.PasswordHash, input.Password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("%w: verify password: %w", ErrInternal, err)
	}
	if !ok {
		return AuthResult{}, s.rejectPassword(ctx, user)
	}

	now := s.now()
	decision := s.lockout.Success(user.AccountLocked)
	if err := s.users.RecordSuccessfulLogin(ctx, user.ID, now); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("reset login attempts failed")
	} else {
		user.FailedLoginAttempts = decision.Attempts
		user.LastLogin = &now
	}

	ttl := s.cfg.SessionTTL
	if input.RememberMe {
		ttl = s.cfg.RememberMeTTL
	}

	token, err := s.issue(user, ttl)
	if err != nil {
		return AuthResult{}, err
	}

	s.log.Info().Str("user_id", user.ID).Bool("remember_me", input.RememberMe).Msg("login succeeded")
	return AuthResult{Token: token, TTL: ttl, User: user}, nil
}

// rejectPassword records the failed attempt. The write is best effort: the
// login is rejected whether or not it persists.
func (s *AuthService) rejectPassword(ctx context.Context, user models.User) error {
	decision := s.lockout.Failure(user.FailedLoginAttempts)

	if err := s.users.RecordFailedLogin(ctx, user.ID, decision.Attempts, decision.Locked); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Int("attempts", decision.Attempts).Msg("persist failed login failed")
	}

	if decision.Locked {
		s.log.Warn().Str("user_id", user.ID).Int("attempts", decision.Attempts).Msg("account locked after failed logins")
		return &LoginFailure{Err: ErrAccountLocked, AttemptsRemaining: 0}
	}

	s.log.Info().
		Str("user_id", user.ID).
		Str("reason", "wrong_password").
		Int("attempts", decision.Attempts).
		Msg("login rejected")
	return &LoginFailure{Err: ErrInvalidCredentials, AttemptsRemaining: decision.Remaining}
}

type RegisterInput struct {
	FullName string `validate:"required,max=120"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required"`
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	input.Email = strings.TrimSpace(input.Email)
	input.FullName = strings.TrimSpace(input.FullName)

	if err := s.validateRegistration(input); err != nil {
		return AuthResult{}, err
	}

	if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
		return AuthResult{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return AuthResult{}, fmt.Errorf("%w: check email: %w", ErrInternal, err)
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("%w: hash password: %w", ErrInternal, err)
	}

	user := models.User{
		ID:           ids.New(),
		Email:        input.Email,
		FullName:     input.FullName,
		PasswordHash: passwordHash,
	}

	if err := s.users.Create(ctx, user); err != nil {
		// a concurrent signup can pass the pre-check
		if errors.Is(err, repository.ErrEmailTaken) {
			return AuthResult{}, ErrEmailTaken
		}
		return AuthResult{}, fmt.Errorf("%w: create user: %w", ErrInternal, err)
	}

	token, err := s.issue(user, s.cfg.SessionTTL)
	if err != nil {
		return AuthResult{}, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return AuthResult{Token: token, TTL: s.cfg.SessionTTL, User: user}, nil
}

func (s *AuthService) validateRegistration(input RegisterInput) error {
	err := validateStruct(input)
	var verr *ValidationError
	if err != nil && !errors.As(err, &verr) {
		return err
	}
	if problem := passwordProblem(input.Password); problem != "" {
		if verr == nil {
			verr = &ValidationError{Fields: map[string]string{}}
		}
		if _, ok := verr.Fields["password"]; !ok {
			verr.Fields["password"] = problem
		}
	}
	if verr != nil {
		return verr
	}
	return nil
}

// CheckSession resolves the user behind a session token.
func (s *AuthService) CheckSession(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, ErrUnauthenticated
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		s.log.Debug().Err(err).Msg("session token rejected")
		return models.User{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	now := s.now()
	if claims.Expired(now) {
		s.log.Debug().Str("user_id", claims.UserID()).Msg("session token expired")
		return models.User{}, ErrTokenExpired
	}

	user, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.log.Info().Str("user_id", claims.UserID()).Msg("session for missing user")
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("%w: load user: %w", ErrInternal, err)
	}

	if user.AccountLocked {
		return models.User{}, ErrAccountLocked
	}

	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("update last login failed")
	} else {
		user.LastLogin = &now
	}

	return user, nil
}

// Logout revokes the token server-side when a revoker is configured. The
// caller clears the cookie regardless of the outcome.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if s.revoker == nil || token == "" {
		return nil
	}

	claims, err := s.tokens.Verify(token)
	if err != nil || claims.ExpiresAt == nil {
		return nil
	}

	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("%w: %w", ErrInternal, err)
	}

	s.log.Info().Str("user_id", claims.UserID()).Msg("session revoked")
	return nil
}

// Unlock clears a lock and its attempt counter. This is the only path that
// clears accountLocked.
func (s *AuthService) Unlock(ctx context.Context, userID string) error {
	if err := s.users.Unlock(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: unlock: %w", ErrInternal, err)
	}
	s.log.Info().Str("user_id", userID).Msg("account unlocked")
	return nil
}

// Profile loads the projection for a user id already trusted by the gate.
func (s *AuthService) Profile(ctx context.Context, userID string) (models.Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.Profile{}, ErrUserNotFound
		}
		return models.Profile{}, fmt.Errorf("%w: load user: %w", ErrInternal, err)
	}
	return user.Profile(), nil
}

func (s *AuthService) issue(user models.User, ttl time.Duration) (string, error) {
	token, err := s.tokens.Issue(user.ID, security.SessionClaims{
		Email:         user.Email,
		FullName:      user.FullName,
		EmailVerified: user.EmailVerified,
		IsAdmin:       user.IsAdmin,
	}, ttl)
	if err != nil {
		return "", fmt.Errorf("%w: issue token: %w", ErrInternal, err)
	}
	return token, nil
}
