package handler

import (
	"errors"
	"net/http"
	"snaptrade/internal/apperror"
	"snaptrade/internal/dto"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const genericFailure = "something went wrong, please try again"

func respond(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, dto.Response{
		Success:    status < http.StatusBadRequest,
		StatusCode: status,
		Message:    message,
		Data:       data,
	})
}

func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindUnauthorized:
		return http.StatusForbidden
	case apperror.KindValidation, apperror.KindInvalidVariant:
		return http.StatusBadRequest
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError maps an error to its status and envelope. Server side failures
// are logged with their cause and answered with a generic message.
func respondError(c echo.Context, logger *zap.Logger, err error) error {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg, _ := httpErr.Message.(string)
		if msg == "" {
			msg = http.StatusText(httpErr.Code)
		}
		return respond(c, httpErr.Code, msg, nil)
	}

	kind := apperror.KindOf(err)
	status := statusFor(kind)

	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
		return respond(c, status, apperror.MessageOf(err, genericFailure), nil)
	}

	return respond(c, status, apperror.MessageOf(err, http.StatusText(status)), nil)
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}
