package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/utils"

	"go.uber.org/zap"
)

const maxBodyBytes = 32 << 20

// decodeBody читает JSON-тело запроса.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeValidation, "invalid request body")
		return false
	}
	return true
}

// currentUser возвращает пользователя запроса или отвечает 401.
func currentUser(w http.ResponseWriter, r *http.Request) (Identity, bool) {
	id, ok := IdentityFromContext(r.Context())
	if !ok || id.UserID == "" {
		utils.SendErrorResponse(w, http.StatusUnauthorized, models.CodeUnauthorized, "authorization is required")
		return Identity{}, false
	}
	return id, true
}

// sendError отвечает ошибкой сервиса; прочие ошибки логируются и скрываются за 500.
func sendError(logger *zap.Logger, w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var errorResponse *models.ErrorResponse
	if errors.As(err, &errorResponse) {
		logger.Debug("request rejected",
			zap.String("path", r.URL.Path),
			zap.String("code", string(errorResponse.Code)),
			zap.String("reason", errorResponse.Message))
		utils.SendErrorResponse(w, errorResponse.StatusCode, errorResponse.Code, errorResponse.Message)
		return
	}
	logger.Error(fallback, zap.String("path", r.URL.Path), zap.String("request_id", requestIDFrom(r.Context())), zap.Error(err))
	internal := models.InternalError(fallback)
	utils.SendErrorResponse(w, internal.StatusCode, internal.Code, internal.Message)
}

// sendJSON отправляет успешный ответ.
func sendJSON(logger *zap.Logger, w http.ResponseWriter, status int, body any) {
	if err := utils.SendJSON(w, status, body); err != nil {
		logger.Warn("failed to write response", zap.Error(err))
	}
}
