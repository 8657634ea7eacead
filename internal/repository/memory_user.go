package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Dhoini/attendance-service/internal/domain"
	"github.com/Dhoini/attendance-service/pkg/logger"
	"github.com/google/uuid"
)

// InMemoryUserRepository реализация хранилища пользователей в памяти
type InMemoryUserRepository struct {
	users map[string]domain.User
	mutex sync.RWMutex
	log   *logger.Logger
}

// NewInMemoryUserRepository создает новое хранилище пользователей
func NewInMemoryUserRepository(log *logger.Logger) *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users: make(map[string]domain.User),
		log:   log,
	}
}

// GetByUsername ищет пользователя без учета регистра
func (r *InMemoryUserRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	user, ok := r.users[strings.ToLower(username)]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return user, nil
}

// Create добавляет пользователя
func (r *InMemoryUserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := strings.ToLower(user.Username)
	if _, exists := r.users[key]; exists {
		return domain.User{}, ErrDuplicate
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	r.users[key] = user
	r.log.Debugw("User created", "username", user.Username, "role", user.Role)
	return user, nil
}
