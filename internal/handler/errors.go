package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/YAnkir9/SweetShop-TDD/internal/access"
	"github.com/YAnkir9/SweetShop-TDD/internal/middleware"
	"github.com/YAnkir9/SweetShop-TDD/internal/obs"
	"github.com/YAnkir9/SweetShop-TDD/internal/repository"
	"github.com/YAnkir9/SweetShop-TDD/internal/service"
	"github.com/YAnkir9/SweetShop-TDD/internal/utils"
)

// BindError wraps a request body that could not be decoded.
type BindError struct{ Err error }

func (e *BindError) Error() string { return "invalid request body: " + e.Err.Error() }
func (e *BindError) Unwrap() error { return e.Err }

// apiError is the resolved form of an error: status, stable code, message
// and any extra fields for the envelope.
type apiError struct {
	status int
	code   string
	detail string
	extra  echo.Map
}

// classify maps every error the services, middleware and echo can return
// onto the response envelope.  Anything unrecognised is a 500.
func classify(err error) apiError {
	var (
		ve  *service.ValidationError
		ise *repository.InsufficientStockError
		be  *BindError
		he  *echo.HTTPError
	)
	switch {
	case errors.As(err, &ve):
		out := apiError{status: http.StatusBadRequest, code: "validation_error", detail: ve.Error()}
		if ve.Field != "" {
			out.extra = echo.Map{"field": ve.Field}
		}
		return out
	case errors.As(err, &be):
		return classifyBind(be)
	case errors.As(err, &ise):
		return apiError{status: http.StatusConflict, code: "insufficient_stock", detail: ise.Error(),
			extra: echo.Map{"sweet_id": ise.SweetID, "requested": ise.Requested, "available": ise.Available}}

	case errors.Is(err, utils.ErrInvalidToken):
		return apiError{status: http.StatusUnauthorized, code: "invalid_token", detail: "invalid or expired token"}
	case errors.Is(err, middleware.ErrTokenRevoked):
		return apiError{status: http.StatusUnauthorized, code: "token_revoked", detail: err.Error()}
	case errors.Is(err, access.ErrUnauthenticated):
		return apiError{status: http.StatusUnauthorized, code: "unauthenticated", detail: err.Error()}
	case errors.Is(err, service.ErrInvalidCredentials):
		return apiError{status: http.StatusUnauthorized, code: "invalid_credentials", detail: err.Error()}
	case errors.Is(err, service.ErrInvalidRefresh):
		return apiError{status: http.StatusUnauthorized, code: "invalid_refresh", detail: err.Error()}

	case errors.Is(err, access.ErrUnverified):
		return apiError{status: http.StatusForbidden, code: "account_unverified", detail: err.Error()}
	case errors.Is(err, access.ErrForbidden), errors.Is(err, repository.ErrForbidden):
		return apiError{status: http.StatusForbidden, code: "forbidden", detail: "insufficient permissions"}

	case errors.Is(err, repository.ErrNotFound):
		return apiError{status: http.StatusNotFound, code: "not_found", detail: err.Error()}

	case errors.Is(err, repository.ErrDuplicateReview):
		return apiError{status: http.StatusConflict, code: "duplicate_review", detail: err.Error()}
	case errors.Is(err, repository.ErrEmailExists):
		return apiError{status: http.StatusConflict, code: "email_exists", detail: err.Error()}
	case errors.Is(err, repository.ErrUsernameExists):
		return apiError{status: http.StatusConflict, code: "username_exists", detail: err.Error()}
	case errors.Is(err, service.ErrInvalidTransition):
		return apiError{status: http.StatusConflict, code: "invalid_transition", detail: err.Error()}
	case errors.Is(err, repository.ErrConflict):
		return apiError{status: http.StatusConflict, code: "conflict", detail: err.Error()}

	case errors.Is(err, middleware.ErrRateLimited):
		return apiError{status: http.StatusTooManyRequests, code: "rate_limited", detail: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return apiError{status: http.StatusServiceUnavailable, code: "timeout", detail: "request timed out"}

	case errors.As(err, &he):
		return classifyHTTP(he)
	}
	return apiError{status: http.StatusInternalServerError, code: "internal_error", detail: "internal server error"}
}

// Malformed JSON is a 400; well-formed JSON with the wrong types is a 422.
func classifyBind(be *BindError) apiError {
	cause := be.Err
	var he *echo.HTTPError
	if errors.As(cause, &he) && he.Internal != nil {
		cause = he.Internal
	}
	var se *json.SyntaxError
	if errors.As(cause, &se) || errors.Is(cause, io.ErrUnexpectedEOF) || errors.Is(cause, echo.ErrUnsupportedMediaType) {
		return apiError{status: http.StatusBadRequest, code: "malformed_body", detail: "request body is not valid JSON"}
	}
	return apiError{status: http.StatusUnprocessableEntity, code: "unprocessable_entity", detail: cause.Error()}
}

func classifyHTTP(he *echo.HTTPError) apiError {
	detail := http.StatusText(he.Code)
	if msg, ok := he.Message.(string); ok && msg != "" {
		detail = msg
	}
	code := "http_error"
	switch he.Code {
	case http.StatusNotFound:
		code = "not_found"
	case http.StatusMethodNotAllowed:
		code = "method_not_allowed"
	case http.StatusBadRequest:
		code = "bad_request"
	case http.StatusUnsupportedMediaType:
		code = "unsupported_media_type"
	case http.StatusRequestEntityTooLarge:
		code = "payload_too_large"
	}
	if he.Code >= http.StatusInternalServerError {
		code, detail = "internal_error", "internal server error"
	}
	return apiError{status: he.Code, code: code, detail: detail}
}

// ErrorHandler replaces echo's default so every failure, including routing
// and bind errors, produces {detail, error_code, timestamp, path}.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	ae := classify(err)
	if ae.status >= http.StatusInternalServerError {
		obs.Logger.Error("request failed",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"request_id", middleware.RequestIDFrom(c),
			"error", err,
		)
	}
	body := echo.Map{
		"detail":     ae.detail,
		"error_code": ae.code,
		"timestamp":  time.Now().UTC(),
		"path":       c.Request().URL.Path,
	}
	for k, v := range ae.extra {
		body[k] = v
	}
	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(ae.status)
	} else {
		werr = c.JSON(ae.status, body)
	}
	if werr != nil {
		obs.Logger.Error("write error response failed", "error", werr)
	}
}
