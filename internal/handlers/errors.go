package handlers

import (
	"net/http"
	"todoList/internal/logger"
	"todoList/internal/service"

	"go.uber.org/zap"
)

// handleServiceError отвечает клиенту по ошибке сервиса.
// Всё, что не BusinessError, уходит как 500 без подробностей, причина только в логе.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error, operation string, fields ...zap.Field) {
	if businessErr, ok := service.AsBusinessError(err); ok {
		statusCode := mapBusinessErrorToHTTP(businessErr.Code)

		logger.Info("HTTP: Бизнес-ошибка",
			append(fields,
				zap.String("operation", operation),
				zap.String("error_code", businessErr.Code),
				zap.Int("http_status", statusCode))...)

		resp := errorResponse{Error: businessErr.Code, Message: businessErr.Message}
		if businessErr.Code == service.CodeValidation {
			resp.Details = businessErr.Details
		}
		responseWithJSON(w, statusCode, resp)
		return
	}

	logger.Error("HTTP: Ошибка Service", err,
		append(append(fields, logger.FieldsFrom(r.Context())...),
			zap.String("operation", operation))...)
	responseWithError(w, http.StatusInternalServerError, codeInternal, internalMessage)
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeValidation:
		return http.StatusBadRequest
	case service.CodeUnauthorized:
		return http.StatusUnauthorized
	case service.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
