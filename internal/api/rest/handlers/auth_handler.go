package handlers

import (
	"net/http"
	"time"

	"github.com/Dhoini/attendance-service/internal/domain"
	"github.com/Dhoini/attendance-service/internal/service"
	"github.com/Dhoini/attendance-service/pkg/logger"
	"github.com/Dhoini/attendance-service/pkg/req"
	"github.com/gin-gonic/gin"
)

// LoginResponse ответ успешного входа
type LoginResponse struct {
	Token        string              `json:"token"`
	ExpiresAt    time.Time           `json:"expires_at"`
	Username     string              `json:"username"`
	Role         domain.Role         `json:"role"`
	Subscription domain.Subscription `json:"subscription"`
}

// AuthHandler обработчик входа
type AuthHandler struct {
	svc service.AuthService
	log *logger.Logger
}

// NewAuthHandler создает обработчик входа
func NewAuthHandler(svc service.AuthService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		svc: svc,
		log: log,
	}
}

// Login проверяет учетные данные и подписку, выдает токен
func (h *AuthHandler) Login(c *gin.Context) {
	body, err := req.HandleBody[domain.LoginRequest](c.Writer, c.Request, h.log)
	if err != nil {
		c.Abort()
		return
	}

	result, err := h.svc.Login(c.Request.Context(), *body)
	if err != nil {
		respondError(c, err, h.log)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:        result.Token,
		ExpiresAt:    result.ExpiresAt,
		Username:     result.User.Username,
		Role:         result.User.Role,
		Subscription: result.Subscription,
	})
}
