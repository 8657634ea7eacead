package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dhoini/attendance-service/internal/auth"
	"github.com/Dhoini/attendance-service/internal/domain"
	"github.com/Dhoini/attendance-service/internal/metrics"
	"github.com/Dhoini/attendance-service/internal/repository"
	"github.com/Dhoini/attendance-service/pkg/logger"
)

// AuthService вход в панель. Проверка подписки при входе является
// авторитетной и не зависит от клиентского таймера.
type AuthService interface {
	Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResult, error)
	// EnsureUser создает пользователя, если его ещё нет
	EnsureUser(ctx context.Context, username, password string, role domain.Role) (domain.User, error)
}

type authService struct {
	users         repository.UserRepository
	subscriptions SubscriptionService
	tokens        auth.TokenIssuer
	metrics       metrics.SubscriptionMetrics
	log           *logger.Logger
}

// NewAuthService создает сервис входа
func NewAuthService(
	users repository.UserRepository,
	subscriptions SubscriptionService,
	tokens auth.TokenIssuer,
	m metrics.SubscriptionMetrics,
	log *logger.Logger,
) AuthService {
	return &authService{
		users:         users,
		subscriptions: subscriptions,
		tokens:        tokens,
		metrics:       m,
		log:           log,
	}
}

// Login проверяет учетные данные, затем подписку
func (s *authService) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResult, error) {
	username := strings.TrimSpace(req.Username)

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.LoginResult{}, s.deny(domain.CodeInvalidCredentials, username, domain.ErrInvalidCredentials)
		}
		s.log.Error("Failed to load user %s: %v", username, err)
		return domain.LoginResult{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return domain.LoginResult{}, s.deny(domain.CodeInvalidCredentials, username, domain.ErrInvalidCredentials)
	}

	sub, expiredNow, err := s.subscriptions.Evaluate(ctx, ExpireSourceLogin)
	if err != nil {
		return domain.LoginResult{}, err
	}

	if !sub.Active && !user.Role.BypassesSubscription() {
		if expiredNow {
			return domain.LoginResult{}, s.deny(domain.CodeSubscriptionExpired, username, domain.ErrSubscriptionExpired)
		}
		return domain.LoginResult{}, s.deny(domain.CodeSubscriptionInactive, username, domain.ErrSubscriptionInactive)
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		s.log.Error("Failed to issue token for %s: %v", username, err)
		return domain.LoginResult{}, err
	}

	s.log.Infow("User logged in", "username", user.Username, "role", user.Role, "subscriptionActive", sub.Active)
	return domain.LoginResult{
		Token:        token,
		ExpiresAt:    expiresAt,
		User:         user,
		Subscription: sub,
	}, nil
}

func (s *authService) deny(code, username string, cause error) error {
	s.metrics.IncLoginDenied(code)
	s.log.Warnw("Login denied", "code", code, "username", username)
	return domain.NewAccessError(code, username, cause)
}

// EnsureUser создает пользователя с bcrypt хешем пароля
func (s *authService) EnsureUser(ctx context.Context, username, password string, role domain.Role) (domain.User, error) {
	if !role.Valid() {
		return domain.User{}, fmt.Errorf("unknown role %q", role)
	}

	existing, err := s.users.GetByUsername(ctx, username)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, domain.User{Username: username, PasswordHash: hash, Role: role})
	if errors.Is(err, repository.ErrDuplicate) {
		return s.users.GetByUsername(ctx, username)
	}
	if err != nil {
		return domain.User{}, err
	}

	s.log.Infow("User provisioned", "username", username, "role", role)
	return user, nil
}
