package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"ecofinds/internal/auth"
	"ecofinds/internal/models"
	"ecofinds/internal/store"
	"ecofinds/internal/util"

	"go.uber.org/zap"
)

const minPasswordLength = 6

// AuthService handles accounts and sessions.
type AuthService struct {
	users   UserRepository
	tokens  *auth.TokenService
	revoker TokenRevoker
	logger  *zap.Logger
}

func NewAuthService(users UserRepository, tokens *auth.TokenService, revoker TokenRevoker) *AuthService {
	return &AuthService{
		users:   users,
		tokens:  tokens,
		revoker: revoker,
		logger:  util.GetLogger(),
	}
}

type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Session is the outcome of a successful signup or login.
type Session struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// Principal is an authenticated caller.
type Principal struct {
	User   *models.User
	Claims *auth.Claims
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Signup(ctx context.Context, req *SignupRequest) (*Session, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Signup")
	defer span.End()

	email := normalizeEmail(req.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, validationError("invalid email address")
	}
	if len(req.Password) < minPasswordLength {
		return nil, validationError(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationError("name is required")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		util.FailSpan(span, err)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Email: email, PasswordHash: hash, Name: name}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrUserExists
		}
		util.FailSpan(span, err)
		return nil, err
	}

	util.SignupsTotal.Inc()
	s.logger.Info("User registered", zap.Int64("user_id", user.ID))

	return s.newSession(user)
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*Session, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Login")
	defer span.End()

	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, store.ErrNotFound) {
		util.LoginsTotal.WithLabelValues("unknown_user").Inc()
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		util.FailSpan(span, err)
		return nil, err
	}

	ok, err := auth.CheckPassword(user.PasswordHash, req.Password)
	if err != nil {
		util.FailSpan(span, err)
		return nil, fmt.Errorf("failed to check password: %w", err)
	}
	if !ok {
		util.LoginsTotal.WithLabelValues("bad_password").Inc()
		return nil, ErrInvalidCredentials
	}

	util.LoginsTotal.WithLabelValues("success").Inc()
	return s.newSession(user)
}

func (s *AuthService) newSession(user *models.User) (*Session, error) {
	token, claims, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Resolve turns a bearer token into the calling user. Absent, invalid and
// revoked tokens are ErrUnauthenticated; a token whose user no longer exists
// is ErrUserNotFound.
func (s *AuthService) Resolve(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	revoked, err := s.revoker.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, ErrUnauthenticated
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return &Principal{User: user, Claims: claims}, nil
}

// Logout revokes the caller's token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, p *Principal) error {
	ttl := time.Until(p.Claims.ExpiresAt.Time)
	if err := s.revoker.RevokeToken(ctx, p.Claims.ID, ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	s.logger.Info("User logged out", zap.Int64("user_id", p.User.ID))
	return nil
}
