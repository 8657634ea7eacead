package domain

import (
	"errors"
	"fmt"
	"time"
)

// Application errors
var (
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput неверные входные данные
	ErrInvalidInput = errors.New("invalid input data")

	// ErrConflict активная подписка уже существует
	ErrConflict = errors.New("active subscription already exists")

	// ErrUnauthenticated пользователь не аутентифицирован
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrUnauthorized пользователь не авторизован
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials неверный логин или пароль
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSubscriptionInactive нет действующей подписки
	ErrSubscriptionInactive = errors.New("subscription inactive")

	// ErrSubscriptionExpired подписка истекла в момент проверки
	ErrSubscriptionExpired = errors.New("subscription expired")

	// ErrInternal внутренняя ошибка
	ErrInternal = errors.New("internal error")
)

// Коды ошибок, которые видит клиент
const (
	CodeValidation           = "validation_failed"
	CodeConflict             = "subscription_conflict"
	CodeForbidden            = "forbidden"
	CodeUnauthenticated      = "unauthenticated"
	CodeInvalidCredentials   = "invalid_credentials"
	CodeSubscriptionInactive = "subscription_inactive"
	CodeSubscriptionExpired  = "subscription_expired"
)

// ValidationError представляет ошибку валидации
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors представляет набор ошибок валидации
type ValidationErrors []ValidationError

// Error реализует интерфейс error
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}

	if len(e) == 1 {
		return fmt.Sprintf("validation failed: %s - %s", e[0].Field, e[0].Message)
	}

	return fmt.Sprintf("validation failed: %d errors", len(e))
}

// Is позволяет проверять errors.Is(err, ErrInvalidInput)
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidInput
}

// Add добавляет ошибку валидации
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, ValidationError{Field: field, Message: message})
}

// HasErrors проверяет наличие ошибок
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Fields возвращает список полей с ошибками
func (e ValidationErrors) Fields() []string {
	fields := make([]string, len(e))
	for i, err := range e {
		fields[i] = err.Field
	}
	return fields
}

// GetByField возвращает сообщение об ошибке для указанного поля
func (e ValidationErrors) GetByField(field string) string {
	for _, err := range e {
		if err.Field == field {
			return err.Message
		}
	}
	return ""
}

// ConflictError создание поверх действующей подписки без overwrite
type ConflictError struct {
	ActiveUntil time.Time
}

// Error реализует интерфейс error
func (e *ConflictError) Error() string {
	return fmt.Sprintf("active subscription already exists until %s", e.ActiveUntil.UTC().Format(time.RFC3339))
}

// Is проверяет, является ли ошибка конфликтом
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// AuthorizationError у роли нет права на действие
type AuthorizationError struct {
	Role   Role
	Action string
}

// Error реализует интерфейс error
func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("role %q is not allowed to %s", e.Role, e.Action)
}

// Is проверяет, является ли ошибка ошибкой авторизации
func (e *AuthorizationError) Is(target error) bool {
	return target == ErrUnauthorized
}

// AccessError отказ во входе. Code отличает ошибки учетных данных
// от ошибок подписки.
type AccessError struct {
	Code     string
	Username string
	Err      error
}

// Error реализует интерфейс error
func (e *AccessError) Error() string {
	return fmt.Sprintf("login denied [%s] for %q: %v", e.Code, e.Username, e.Err)
}

// Unwrap возвращает исходную ошибку
func (e *AccessError) Unwrap() error {
	return e.Err
}

// NewAccessError создает ошибку входа
func NewAccessError(code, username string, err error) *AccessError {
	return &AccessError{Code: code, Username: username, Err: err}
}
