package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YAnkir9/SweetShop-TDD/internal/access"
	"github.com/YAnkir9/SweetShop-TDD/internal/config"
	"github.com/YAnkir9/SweetShop-TDD/internal/model"
	"github.com/YAnkir9/SweetShop-TDD/internal/storetest"
	"github.com/YAnkir9/SweetShop-TDD/internal/utils"
)

const testSecret = "middleware-test-secret"

// run sends one request through Authenticate + Authorize(rules) and returns
// the handler error together with the principal the handler saw.
func run(t *testing.T, m *storetest.Memory, deny utils.Denylist, header string, rules ...access.Rule) (*access.Principal, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/sweets", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	c := e.NewContext(req, httptest.NewRecorder())
	var seen *access.Principal
	h := Authenticate(testSecret, deny, m.Users)(Authorize(rules...)(func(c echo.Context) error {
		seen = PrincipalFrom(c)
		return nil
	}))
	return seen, h(c)
}

func bearerFor(t *testing.T, u model.User) (string, utils.AccessToken) {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, u.ID, u.Role, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token, tok
}

func TestAuthenticate_Anonymous(t *testing.T) {
	m := storetest.New()
	p, err := run(t, m, nil, "", access.Public)
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = run(t, m, nil, "", access.Verified)
	assert.ErrorIs(t, err, access.ErrUnauthenticated)
}

func TestAuthenticate_LoadsCurrentUser(t *testing.T) {
	m := storetest.New()
	u := model.User{Username: "mira", Email: "mira@example.com", Role: model.RoleCustomer, IsVerified: true}
	require.NoError(t, m.Users.Create(context.Background(), &u))
	hdr, _ := bearerFor(t, u)

	p, err := run(t, m, nil, hdr, access.Verified)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, u.ID, p.UserID)
	assert.True(t, p.Verified)

	_, err = run(t, m, nil, hdr, access.Admin)
	assert.ErrorIs(t, err, access.ErrForbidden)

	// role changes take effect without a new token
	require.NoError(t, m.Users.SetRole(context.Background(), u.ID, model.RoleAdmin))
	_, err = run(t, m, nil, hdr, access.Admin)
	assert.NoError(t, err)
}

func TestAuthenticate_Unverified(t *testing.T) {
	m := storetest.New()
	u := model.User{Username: "newbie", Email: "newbie@example.com", Role: model.RoleCustomer}
	require.NoError(t, m.Users.Create(context.Background(), &u))
	hdr, _ := bearerFor(t, u)

	_, err := run(t, m, nil, hdr, access.Verified)
	assert.ErrorIs(t, err, access.ErrUnverified)
}

func TestAuthenticate_BadTokenOnlyFailsProtectedRoutes(t *testing.T) {
	m := storetest.New()

	p, err := run(t, m, nil, "Bearer not-a-jwt", access.Public)
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = run(t, m, nil, "Bearer not-a-jwt", access.Verified)
	assert.ErrorIs(t, err, utils.ErrInvalidToken)

	_, err = run(t, m, nil, "Basic Zm9vOmJhcg==", access.Verified)
	assert.ErrorIs(t, err, utils.ErrInvalidToken)
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	m := storetest.New()
	hdr, _ := bearerFor(t, model.User{ID: 42, Role: model.RoleCustomer})
	_, err := run(t, m, nil, hdr, access.Verified)
	assert.ErrorIs(t, err, utils.ErrInvalidToken)
}

func TestAuthenticate_DeniedToken(t *testing.T) {
	m := storetest.New()
	u := model.User{Username: "gone", Email: "gone@example.com", Role: model.RoleCustomer, IsVerified: true}
	require.NoError(t, m.Users.Create(context.Background(), &u))
	hdr, tok := bearerFor(t, u)

	deny := utils.NewMemoryDenylist()
	require.NoError(t, deny.Deny(context.Background(), tok.ID, time.Minute))

	_, err := run(t, m, deny, hdr, access.Verified)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRequestID(t *testing.T) {
	e := echo.New()
	h := RequestID()(func(c echo.Context) error { return c.String(http.StatusOK, RequestIDFrom(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))
	assert.Equal(t, "abc-123", rec.Body.String())

	rec = httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)))
	assert.Len(t, rec.Header().Get(HeaderRequestID), 36)
}

func TestRequestLogger_HandsErrorsToEcho(t *testing.T) {
	e := echo.New()
	var handled error
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		handled = err
		_ = c.NoContent(http.StatusTeapot)
	}
	boom := errors.New("boom")
	h := RequestLogger()(func(echo.Context) error { return boom })

	rec := httptest.NewRecorder()
	err := h(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec))
	assert.NoError(t, err)
	assert.Equal(t, boom, handled)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/purchases", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/purchases")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip"}
	assert.Equal(t, "rl:ip:10.0.0.7", buildRateKey(cfg, c))

	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:ip:10.0.0.7", buildRateKey(cfg, c))
	c.Set(ctxUserID, "9")
	assert.Equal(t, "rl:user:9", buildRateKey(cfg, c))

	cfg.KeyStrategy = ""
	assert.Equal(t, "rl:ip:10.0.0.7:user:9:route:POST /api/purchases", buildRateKey(cfg, c))
}

func TestCacheKeyAndPaths(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache", Paths: []string{"/api/sweets", "/api/categories"}}
	e := echo.New()

	a := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/sweets?page=1", nil), httptest.NewRecorder())
	b := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/sweets?page=2", nil), httptest.NewRecorder())
	ka, kb := cacheKeyFrom(cfg, a), cacheKeyFrom(cfg, b)
	assert.NotEqual(t, ka, kb)
	assert.Contains(t, ka, "cache:/api/sweets:")

	assert.True(t, cacheable(cfg, "/api/sweets/3"))
	assert.True(t, cacheable(cfg, "/api/categories"))
	assert.False(t, cacheable(cfg, "/api/purchases"))
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"items":[]}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"items":[]}`, string(body))

	_, _, _, ok = decodePayload(bs[:5])
	assert.False(t, ok)
}

func TestDisabledMiddlewarePassesThrough(t *testing.T) {
	called := 0
	next := func(echo.Context) error { called++; return nil }
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/sweets", nil), httptest.NewRecorder())

	require.NoError(t, NewRedisCache(config.CacheConfig{}, nil)(next)(c))
	require.NoError(t, NewTokenBucket(config.RateLimitConfig{}, nil)(next)(c))
	require.NoError(t, PurgeOnWrite(nil)(next)(c))
	assert.Equal(t, 3, called)
	assert.Nil(t, NewCachePurger(config.CacheConfig{}, nil))
}

func TestParseBucket(t *testing.T) {
	res, ok := parseBucket([]any{int64(1), int64(59), int64(0)})
	require.True(t, ok)
	assert.True(t, res.allowed)
	assert.EqualValues(t, 59, res.remaining)

	res, ok = parseBucket([]any{int64(0), int64(0), "750"})
	require.True(t, ok)
	assert.False(t, res.allowed)
	assert.EqualValues(t, 750, res.retryMs)

	_, ok = parseBucket([]any{int64(1)})
	assert.False(t, ok)
	_, ok = parseBucket("OK")
	assert.False(t, ok)
}
