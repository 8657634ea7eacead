package handlers

import (
	"errors"
	"net/http"

	"github.com/Dhoini/attendance-service/internal/domain"
	"github.com/Dhoini/attendance-service/pkg/logger"
	"github.com/Dhoini/attendance-service/pkg/res"
	"github.com/gin-gonic/gin"
)

// respondError переводит ошибку сервиса в HTTP ответ
func respondError(c *gin.Context, err error, log *logger.Logger) {
	status, body := errorResponse(err)
	res.JsonErrorResponse(c.Writer, body, status, log)
	c.Abort()
}

func errorResponse(err error) (int, res.ErrorResponse) {
	var verrs domain.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest, res.ErrorResponse{
			Error:   err.Error(),
			Code:    domain.CodeValidation,
			Details: verrs.Fields(),
		}
	}

	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		return http.StatusConflict, res.ErrorResponse{
			Error:   err.Error(),
			Code:    domain.CodeConflict,
			Details: gin.H{"active_until": conflict.ActiveUntil},
		}
	}

	var access *domain.AccessError
	if errors.As(err, &access) {
		status := http.StatusForbidden
		if access.Code == domain.CodeInvalidCredentials {
			status = http.StatusUnauthorized
		}
		return status, res.ErrorResponse{Error: access.Err.Error(), Code: access.Code}
	}

	switch {
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, res.ErrorResponse{Error: err.Error(), Code: domain.CodeConflict}
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, res.ErrorResponse{Error: err.Error(), Code: domain.CodeValidation}
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden, res.ErrorResponse{Error: err.Error(), Code: domain.CodeForbidden}
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, res.ErrorResponse{Error: err.Error(), Code: domain.CodeUnauthenticated}
	}

	return http.StatusInternalServerError, res.ErrorResponse{Error: "internal server error"}
}
