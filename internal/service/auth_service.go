package service

import (
	"context"
	"strings"
	"time"

	"github.com/mov-ti/helpdesk-service/internal/auth"
	"github.com/mov-ti/helpdesk-service/internal/domain"
	"github.com/mov-ti/helpdesk-service/internal/repository"
	apperrors "github.com/mov-ti/helpdesk-service/pkg/util/errorutil"
)

// AuthService handles registration and login.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	limiter    *auth.LoginRateLimiter
	bcryptCost int
	inviteCode string
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenManager, limiter *auth.LoginRateLimiter, bcryptCost int, inviteCode string) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		limiter:    limiter,
		bcryptCost: bcryptCost,
		inviteCode: inviteCode,
	}
}

// RegisterInput is the signup payload. InviteCode elevates the account to
// the agent role when it matches the configured code.
type RegisterInput struct {
	Name       string
	Email      string
	Password   string
	InviteCode string
}

// LoginInput carries login credentials.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult pairs the authenticated user with a fresh access token.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// Register creates a user account.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	missing := map[string]any{}
	if input.Name == "" {
		missing["name"] = "required"
	}
	if input.Email == "" || !strings.Contains(input.Email, "@") {
		missing["email"] = "valid email required"
	}
	if len(input.Password) < 8 {
		missing["password"] = "minimum 8 characters"
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("invalid registration", missing)
	}

	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	}

	role := domain.RoleRequester
	if input.InviteCode != "" {
		if s.inviteCode == "" || input.InviteCode != s.inviteCode {
			return nil, apperrors.NewForbidden("invalid invite code")
		}
		role = domain.RoleAgent
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         role,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Login verifies credentials and issues an access token. Repeated failures
// for the same email are rate limited.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("email and password required", nil)
	}

	if s.limiter != nil && !s.limiter.Allow(ctx, email) {
		return nil, apperrors.NewDomainError("RATE_LIMITED", "too many login attempts, try again later", 429, nil)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if user.Status == domain.UserStatusSuspended {
		return nil, apperrors.NewForbidden("account suspended")
	}
	if err := auth.ComparePassword(user.PasswordHash, input.Password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	if s.limiter != nil {
		s.limiter.Reset(ctx, email)
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}
