package middleware

import (
	"net/http"
	"strings"

	"github.com/Dhoini/attendance-service/internal/auth"
	"github.com/Dhoini/attendance-service/internal/domain"
	"github.com/Dhoini/attendance-service/pkg/logger"
	"github.com/Dhoini/attendance-service/pkg/res"
	"github.com/gin-gonic/gin"
)

// ContextKey тип для ключей контекста во избежание коллизий.
type ContextKey string

const (
	// ContextUserIDKey ключ для хранения ID пользователя в контексте
	ContextUserIDKey ContextKey = "userID"
	// ContextUsernameKey ключ для имени пользователя
	ContextUsernameKey ContextKey = "username"
	// ContextRoleKey ключ для роли
	ContextRoleKey ContextKey = "role"

	authHeaderPrefix = "Bearer "
)

// JWTMiddleware проверяет токен сессии
type JWTMiddleware struct {
	log       *logger.Logger
	validator auth.TokenValidator
}

// NewJWTMiddleware создает middleware аутентификации
func NewJWTMiddleware(validator auth.TokenValidator, log *logger.Logger) *JWTMiddleware {
	return &JWTMiddleware{
		log:       log,
		validator: validator,
	}
}

// RequireAuth пропускает запрос только с действующим токеном.
// Если заданы роли, роль из токена должна входить в их число.
func (m *JWTMiddleware) RequireAuth(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, authHeaderPrefix) {
			m.handleAuthError(c, "missing authorization token")
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, authHeaderPrefix))
		claims, err := m.validator.Validate(tokenString)
		if err != nil {
			m.handleAuthError(c, err.Error())
			return
		}

		if claims.Subject == "" || !claims.Role.Valid() {
			m.handleAuthError(c, "invalid token claims")
			return
		}

		if len(roles) > 0 && !hasRole(claims.Role, roles) {
			m.log.Warnw("Role not allowed", "path", c.Request.URL.Path, "role", claims.Role)
			res.JsonResponse(c.Writer, res.ErrorResponse{
				Error: "insufficient permissions",
				Code:  domain.CodeForbidden,
			}, http.StatusForbidden)
			c.Abort()
			return
		}

		c.Set(string(ContextUserIDKey), claims.Subject)
		c.Set(string(ContextUsernameKey), claims.Username)
		c.Set(string(ContextRoleKey), claims.Role)
		m.log.Debugw("User authenticated", "userID", claims.Subject, "role", claims.Role)
		c.Next()
	}
}

// RoleFromContext возвращает роль, установленную RequireAuth
func RoleFromContext(c *gin.Context) domain.Role {
	v, ok := c.Get(string(ContextRoleKey))
	if !ok {
		return ""
	}
	role, _ := v.(domain.Role)
	return role
}

// UsernameFromContext возвращает имя пользователя из токена
func UsernameFromContext(c *gin.Context) string {
	return c.GetString(string(ContextUsernameKey))
}

func hasRole(role domain.Role, allowed []domain.Role) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}

func (m *JWTMiddleware) handleAuthError(c *gin.Context, message string) {
	m.log.Warnw("Authentication failed", "path", c.Request.URL.Path, "error", message)
	res.JsonResponse(c.Writer, res.ErrorResponse{
		Error: message,
		Code:  domain.CodeUnauthenticated,
	}, http.StatusUnauthorized)
	c.Abort()
}
