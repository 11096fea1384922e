package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/listing-booking/internal/config"
	"github.com/iliyamo/listing-booking/internal/model"
	"github.com/iliyamo/listing-booking/internal/utils"
)

const secret = "test-secret"

func bearer(t *testing.T, roles ...model.Role) (string, uuid.UUID) {
	t.Helper()
	id := uuid.New()
	tok, err := utils.NewAccessToken(secret, id, roles, 5)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + tok.Token, id
}

func serve(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	var got model.Principal
	e.GET("/me", func(c echo.Context) error {
		got, _ = PrincipalFrom(c)
		return c.NoContent(http.StatusOK)
	}, JWTAuth(secret))

	if rec := serve(e, http.MethodGet, "/me", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d", rec.Code)
	}
	if rec := serve(e, http.MethodGet, "/me", "Bearer garbage"); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d", rec.Code)
	}

	auth, id := bearer(t, model.RoleTenant)
	if rec := serve(e, http.MethodGet, "/me", auth); rec.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d", rec.Code)
	}
	if got.UserID != id || !got.Has(model.RoleTenant) {
		t.Errorf("principal = %+v", got)
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.GET("/landlord", ok, JWTAuth(secret), RequireRole(model.RoleLandlord))

	tenantAuth, _ := bearer(t, model.RoleTenant)
	if rec := serve(e, http.MethodGet, "/landlord", tenantAuth); rec.Code != http.StatusForbidden {
		t.Errorf("tenant: status = %d, want 403", rec.Code)
	}
	landlordAuth, _ := bearer(t, model.RoleTenant, model.RoleLandlord)
	if rec := serve(e, http.MethodGet, "/landlord", landlordAuth); rec.Code != http.StatusOK {
		t.Errorf("landlord: status = %d, want 200", rec.Code)
	}
}

func TestRequestLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	e := echo.New()
	e.Use(RequestLog(logger))
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusBadGateway, "x") })

	rec := serve(e, http.MethodGet, "/ping", "")
	id := rec.Header().Get(HeaderRequestID)
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("request id %q is not a uuid", id)
	}
	if !strings.Contains(buf.String(), `"route":"/ping"`) || !strings.Contains(buf.String(), id) {
		t.Errorf("log = %s", buf.String())
	}

	buf.Reset()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(HeaderRequestID, "client-id")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadGateway || rec.Header().Get(HeaderRequestID) != "client-id" {
		t.Errorf("status = %d, id = %q", rec.Code, rec.Header().Get(HeaderRequestID))
	}
	if !strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Errorf("5xx should log at error: %s", buf.String())
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/booking/create", nil)
	req.Header.Set("X-Real-IP", "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/booking/create")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user_route"}
	if got := buildRateKey(cfg, c); got != "rl:ip:10.0.0.1:user:anon:route:POST /api/booking/create" {
		t.Errorf("key = %q", got)
	}
	c.Set(CtxUserID, "u-1")
	cfg.KeyStrategy = "user"
	if got := buildRateKey(cfg, c); got != "rl:user:u-1" {
		t.Errorf("key = %q", got)
	}
}

func TestCreateBucketSeesAuthenticatedUser(t *testing.T) {
	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_route", CreateCapacity: 3}.ForCreate()
	var key string
	capture := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key = buildRateKey(cfg, c)
			return next(c)
		}
	}
	e := echo.New()
	e.POST("/api/booking/create", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		JWTAuth(secret), capture)

	user := uuid.New()
	tok, err := utils.NewAccessToken(secret, user, []model.Role{model.RoleTenant}, 5)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/booking/create", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	e.ServeHTTP(httptest.NewRecorder(), req)

	if want := "rl:create:user:" + user.String(); key != want {
		t.Errorf("key = %q, want %q", key, want)
	}
}

func TestPassThroughWithoutRedis(t *testing.T) {
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "x") },
		NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil),
		NewRedisCache(config.CacheConfig{Enabled: true}, nil, nil))
	if rec := serve(e, http.MethodGet, "/x", ""); rec.Code != http.StatusOK || rec.Body.String() != "x" {
		t.Errorf("status = %d body = %q", rec.Code, rec.Body.String())
	}
}

func TestCachePayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	status, gotHdr, body, ok := decodePayload(bs)
	if !ok || status != http.StatusOK || string(body) != `{"a":1}` || gotHdr.Get("Content-Type") != "application/json" {
		t.Errorf("decode = %d %v %q %v", status, gotHdr, body, ok)
	}
	if _, _, _, ok := decodePayload(bs[:5]); ok {
		t.Error("short payload accepted")
	}
}

func TestCacheKeyIncludesQuery(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "catalog"}
	key := func(q string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/tenant-listing/get-all-by-category?"+q, nil), httptest.NewRecorder())
		c.SetPath("/api/tenant-listing/get-all-by-category")
		return cacheKeyFrom(cfg, c)
	}
	if key("category=BEACH") == key("category=LAKE") {
		t.Error("different queries share a key")
	}
	if !strings.HasPrefix(key("category=BEACH"), "catalog:") {
		t.Errorf("key = %q", key("category=BEACH"))
	}
}
