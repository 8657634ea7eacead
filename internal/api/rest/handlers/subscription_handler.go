package handlers

import (
	"net/http"

	"github.com/Dhoini/attendance-service/internal/api/rest/middleware"
	"github.com/Dhoini/attendance-service/internal/domain"
	"github.com/Dhoini/attendance-service/internal/service"
	"github.com/Dhoini/attendance-service/pkg/logger"
	"github.com/Dhoini/attendance-service/pkg/req"
	"github.com/gin-gonic/gin"
)

// SubscriptionResponse ответ мутаций: флаг успеха и запись
type SubscriptionResponse struct {
	Success bool `json:"success"`
	domain.Subscription
}

// SubscriptionHandler обработчик для подписки
type SubscriptionHandler struct {
	svc service.SubscriptionService
	log *logger.Logger
}

// NewSubscriptionHandler создает новый обработчик подписки
func NewSubscriptionHandler(svc service.SubscriptionService, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		svc: svc,
		log: log,
	}
}

// GetSubscription возвращает запись или пустую запись
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	sub, err := h.svc.Get(c.Request.Context())
	if err != nil {
		respondError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// CreateSubscription создает подписку
func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	body, err := req.HandleBody[domain.SubscriptionRequest](c.Writer, c.Request, h.log)
	if err != nil {
		c.Abort()
		return
	}

	sub, err := h.svc.Create(c.Request.Context(), *body)
	if err != nil {
		respondError(c, err, h.log)
		return
	}

	h.log.Infow("Subscription created via API", "by", middleware.UsernameFromContext(c), "duration", *sub.SubscriptionDuration)
	c.JSON(http.StatusCreated, SubscriptionResponse{Success: true, Subscription: sub})
}

// CancelSubscription отменяет подписку; только для разработчика
func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	if _, err := h.svc.Cancel(c.Request.Context(), middleware.RoleFromContext(c)); err != nil {
		respondError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ExpireSubscription помечает подписку истекшей
func (h *SubscriptionHandler) ExpireSubscription(c *gin.Context) {
	sub, err := h.svc.Expire(c.Request.Context())
	if err != nil {
		respondError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, SubscriptionResponse{Success: true, Subscription: sub})
}
