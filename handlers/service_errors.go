package handlers

import (
	"errors"
	"net/http"

	"github.com/upb/intent-chatbot/services"
	"github.com/upb/intent-chatbot/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses. Only the domain
// message is returned; wrapped causes stay in the logs.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	message := "An unexpected error occurred"
	var domainErr *services.DomainError
	if errors.As(err, &domainErr) {
		message = domainErr.Message
	}

	var status int
	switch {
	case services.IsClientInputError(err):
		if err := utils.WriteBadRequest(w, message, nil); err != nil {
			logger.Error("failed to write bad request response", zap.Error(err))
		}
		return

	case services.IsUpstreamError(err):
		status = http.StatusBadGateway
		if services.IsTimeout(err) {
			status = http.StatusGatewayTimeout
		}
		logger.Warn("upstream error", zap.Error(err))

	case services.IsAuthError(err):
		status = http.StatusInternalServerError
		logger.Error("generation credential error", zap.Error(err))

	case services.IsDataFormatError(err), services.IsEmptyIndexError(err), services.IsInternalError(err):
		status = http.StatusInternalServerError
		logger.Error("internal server error", zap.Error(err))

	default:
		status = http.StatusInternalServerError
		logger.Error("unhandled error type", zap.Error(err))
		if err := utils.WriteInternalServerError(w, message); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteError(w, status, string(domainErr.Type), message, nil); err != nil {
		logger.Error("failed to write error response", zap.Error(err))
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		details := utils.FieldsToDetails(utils.GetValidationFields(err))
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
