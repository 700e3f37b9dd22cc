package handler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/YAnkir9/SweetShop-TDD/internal/access"
	"github.com/YAnkir9/SweetShop-TDD/internal/middleware"
	"github.com/YAnkir9/SweetShop-TDD/internal/service"
)

// requestTimeout bounds the storage work of one request.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// bind decodes the request body into dst and wraps failures as BindError.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return &BindError{Err: err}
	}
	return nil
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, &service.ValidationError{Field: name, Msg: "must be a positive integer"}
	}
	return id, nil
}

// queryInt parses an optional integer query parameter; def is used when the
// parameter is absent.
func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &service.ValidationError{Field: name, Msg: "must be an integer"}
	}
	return n, nil
}

// principal returns the authenticated caller.  Routes that reach a handler
// calling it are guarded by Authorize, so nil only happens on misrouting.
func principal(c echo.Context) (*access.Principal, error) {
	p := middleware.PrincipalFrom(c)
	if p == nil {
		return nil, access.ErrUnauthenticated
	}
	return p, nil
}
