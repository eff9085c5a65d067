package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aquasense-http-service/internal/domain/models"
	"aquasense-http-service/internal/domain/services"
	"aquasense-http-service/internal/error/code"
	"aquasense-http-service/internal/infrastructure/metrics"
	"aquasense-http-service/internal/test/testutil"

	"github.com/gin-gonic/gin"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJWT(t *testing.T) (services.InterfaceJWTService, services.InterfaceRedisService) {
	t.Helper()
	client, _ := testutil.NewRedis(t)
	redis := services.NewRedisService(client)
	return services.NewJWTService(testutil.Config(), nil, redis), redis
}

func token(t *testing.T, jwtService services.InterfaceJWTService, id uint, role models.Role) string {
	t.Helper()
	tok, err := jwtService.GenerateToken(&models.User{BaseModel: models.BaseModel{ID: id}, Role: role})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return tok
}

func do(r http.Handler, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeCode(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var body struct {
		Code int `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return body.Code
}

func TestAuthenticateRoles(t *testing.T) {
	jwtService, _ := newJWT(t)

	r := gin.New()
	r.GET("/user", AuthenticateUser(jwtService), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetUserID(c), "role": GetRole(c)})
	})
	r.GET("/admin", AuthenticateAdmin(jwtService), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/super", AuthenticateSuperAdmin(jwtService), func(c *gin.Context) { c.Status(http.StatusOK) })

	user := token(t, jwtService, 7, models.RoleUser)
	admin := token(t, jwtService, 8, models.RoleAdmin)
	super := token(t, jwtService, 9, models.RoleSuperAdmin)

	cases := []struct {
		path   string
		bearer string
		status int
	}{
		{"/user", "", http.StatusUnauthorized},
		{"/user", "garbage", http.StatusUnauthorized},
		{"/user", user, http.StatusOK},
		{"/admin", user, http.StatusForbidden},
		{"/admin", admin, http.StatusOK},
		{"/admin", super, http.StatusOK},
		{"/super", admin, http.StatusForbidden},
		{"/super", super, http.StatusOK},
	}
	for _, tc := range cases {
		w := do(r, http.MethodGet, tc.path, tc.bearer)
		if w.Code != tc.status {
			t.Errorf("%s with %q: expected %d, got %d", tc.path, tc.bearer, tc.status, w.Code)
		}
	}

	w := do(r, http.MethodGet, "/user", user)
	var body struct {
		ID   uint   `json:"id"`
		Role string `json:"role"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ID != 7 || body.Role != string(models.RoleUser) {
		t.Fatalf("unexpected context values %+v", body)
	}
}

func TestAuthenticateRejectsRevokedToken(t *testing.T) {
	jwtService, _ := newJWT(t)
	r := gin.New()
	r.GET("/user", AuthenticateUser(jwtService), func(c *gin.Context) { c.Status(http.StatusOK) })

	tok := token(t, jwtService, 3, models.RoleUser)
	claims, err := jwtService.ExtractClaims(tok)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if err := jwtService.Revoke(claims); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	w := do(r, http.MethodGet, "/user", tok)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for revoked token, got %d", w.Code)
	}
	if got := decodeCode(t, w); got != code.ErrTokenInvalid {
		t.Fatalf("expected code %d, got %d", code.ErrTokenInvalid, got)
	}
}

func TestRateLimiterIsPerInstance(t *testing.T) {
	limited := gin.New()
	limited.GET("/", IPRateLimiter(0.001, 2), func(c *gin.Context) { c.Status(http.StatusOK) })
	other := gin.New()
	other.GET("/", IPRateLimiter(0.001, 2), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		if w := do(limited, http.MethodGet, "/", ""); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
	w := do(limited, http.MethodGet, "/", "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", w.Code)
	}
	if got := decodeCode(t, w); got != code.ErrTooManyRequests {
		t.Fatalf("expected code %d, got %d", code.ErrTooManyRequests, got)
	}

	if w := do(other, http.MethodGet, "/", ""); w.Code != http.StatusOK {
		t.Fatalf("separate limiter should not share buckets, got %d", w.Code)
	}
}

func TestLimiterSetSweepsIdleBuckets(t *testing.T) {
	set := newLimiterSet(RateLimiterConfig{Rate: 1, Burst: 1, ExpiryTime: time.Millisecond})
	set.get("a")
	set.get("b")
	time.Sleep(5 * time.Millisecond)
	set.get("c")
	if got := set.size(); got != 1 {
		t.Fatalf("expected idle limiters to be swept, have %d", got)
	}
}

func TestResponseCacheSweepsExpiredEntries(t *testing.T) {
	jwtService, _ := newJWT(t)
	cache := NewResponseCacheWithCleanup(100*time.Millisecond, 5*time.Millisecond)
	defer cache.Close()

	r := gin.New()
	group := r.Group("/", AuthenticateAdmin(jwtService), cache.Middleware())
	group.GET("/establishments/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})

	// 每个用户、每个路径各一条
	for id := uint(1); id <= 3; id++ {
		tok := token(t, jwtService, id, models.RoleAdmin)
		do(r, http.MethodGet, "/establishments/1", tok)
		do(r, http.MethodGet, "/establishments/2", tok)
	}
	if cache.size() == 0 {
		t.Fatal("expected responses to be cached")
	}

	deadline := time.Now().Add(2 * time.Second)
	for cache.size() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expired entries not swept, have %d", cache.size())
		}
		time.Sleep(2 * time.Millisecond)
	}

	cache.Close()
	cache.Close()
}

func TestResponseCacheKeyedPerUser(t *testing.T) {
	jwtService, _ := newJWT(t)
	cache := NewResponseCache(time.Minute)
	defer cache.Close()
	calls := 0

	r := gin.New()
	group := r.Group("/", AuthenticateAdmin(jwtService), cache.Middleware(), cache.PurgeOnWrite())
	group.GET("/devices", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	group.POST("/devices", func(c *gin.Context) { c.Status(http.StatusCreated) })

	a := token(t, jwtService, 1, models.RoleAdmin)
	b := token(t, jwtService, 2, models.RoleAdmin)

	do(r, http.MethodGet, "/devices", a)
	if w := do(r, http.MethodGet, "/devices", a); w.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("expected cache hit for same user")
	}
	if calls != 1 {
		t.Fatalf("expected handler once, got %d", calls)
	}

	do(r, http.MethodGet, "/devices", b)
	if calls != 2 {
		t.Fatalf("different user must not share cache entry, calls=%d", calls)
	}

	do(r, http.MethodPost, "/devices", a)
	do(r, http.MethodGet, "/devices", a)
	if calls != 3 {
		t.Fatalf("expected purge after write, calls=%d", calls)
	}
}

func TestRequestIDAndCORS(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), CORS("http://localhost:3000"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, http.MethodGet, "/", "")
	if w.Header().Get(HeaderRequestID) == "" {
		t.Fatalf("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set(HeaderRequestID, "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("unexpected allow origin %q", got)
	}
	if got := w.Header().Get(HeaderRequestID); got != "abc" {
		t.Fatalf("expected caller request id to be kept, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unknown origin must not be allowed, got %q", got)
	}
}

func TestMetricsMiddleware(t *testing.T) {
	m := metrics.New()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	do(r, http.MethodGet, "/items/1", "")
	do(r, http.MethodGet, "/items/2", "")
	do(r, http.MethodGet, "/missing", "")

	if got := promtest.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/items/:id", "200")); got != 2 {
		t.Fatalf("expected 2 requests on route template, got %v", got)
	}
	if got := promtest.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Fatalf("expected 1 unmatched request, got %v", got)
	}
}
