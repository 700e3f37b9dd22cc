package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"context"
	"errors"
	"strconv"
	"strings" // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/YAnkir9/SweetShop-TDD/internal/access"
	"github.com/YAnkir9/SweetShop-TDD/internal/model"
	"github.com/YAnkir9/SweetShop-TDD/internal/obs"
	"github.com/YAnkir9/SweetShop-TDD/internal/repository"
	"github.com/YAnkir9/SweetShop-TDD/internal/utils"
)

// Context keys written by Authenticate.
const (
	ctxPrincipal = "principal"
	ctxClaims    = "claims"
	ctxAuthErr   = "auth_error"
	ctxUserID    = "user_id"
)

// ErrTokenRevoked is reported for access tokens that were logged out.
var ErrTokenRevoked = errors.New("token has been revoked")

// UserLoader resolves the account behind a token.
type UserLoader interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Authenticate resolves the caller of every request.  Without an
// Authorization header the request continues anonymously.  A bearer token
// is verified (HS256 signature, expiry, deny-list) and its user is loaded
// from the store so role and verification flag are always current.  A bad
// token does not stop the request here; Authorize reports it when the route
// needs a principal, so public routes keep working.
func Authenticate(secret string, deny utils.Denylist, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if auth == "" {
				return next(c)
			}
			if !strings.HasPrefix(auth, "Bearer ") {
				c.Set(ctxAuthErr, utils.ErrInvalidToken)
				return next(c)
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				c.Set(ctxAuthErr, err)
				return next(c)
			}
			ctx := c.Request().Context()
			if deny != nil {
				denied, err := deny.IsDenied(ctx, claims.ID)
				if err != nil {
					obs.Logger.Warn("deny-list lookup failed", "error", err)
				}
				if denied {
					c.Set(ctxAuthErr, ErrTokenRevoked)
					return next(c)
				}
			}
			u, err := users.GetByID(ctx, claims.UserID)
			if errors.Is(err, repository.ErrNotFound) {
				c.Set(ctxAuthErr, utils.ErrInvalidToken)
				return next(c)
			}
			if err != nil {
				return err
			}
			c.Set(ctxClaims, &claims)
			c.Set(ctxPrincipal, &access.Principal{UserID: u.ID, Role: u.Role, Verified: u.IsVerified})
			c.Set(ctxUserID, strconv.FormatUint(u.ID, 10))
			return next(c)
		}
	}
}

// Authorize enforces rules before the handler runs.  When a rule needs a
// principal and the request carried a bad token, the token error is
// returned instead of the generic unauthenticated one.
func Authorize(rules ...access.Rule) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := PrincipalFrom(c)
			if err := access.Check(p, rules...); err != nil {
				if errors.Is(err, access.ErrUnauthenticated) {
					if authErr, ok := c.Get(ctxAuthErr).(error); ok {
						return authErr
					}
				}
				return err
			}
			return next(c)
		}
	}
}

// PrincipalFrom returns the authenticated caller, or nil for anonymous
// requests.
func PrincipalFrom(c echo.Context) *access.Principal {
	p, _ := c.Get(ctxPrincipal).(*access.Principal)
	return p
}

// ClaimsFrom returns the verified access-token claims, or nil.
func ClaimsFrom(c echo.Context) *utils.AccessClaims {
	cl, _ := c.Get(ctxClaims).(*utils.AccessClaims)
	return cl
}
