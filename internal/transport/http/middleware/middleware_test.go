package middleware

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(rate.Limit(0.001), 2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestRateLimitPerIP(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitPerIP(rate.Limit(0.001), 1))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := func(ip string) *http.Request {
		q := httptest.NewRequest(http.MethodGet, "/", nil)
		q.RemoteAddr = ip + ":1234"
		return q
	}
	assert.Equal(t, http.StatusOK, serve(r, req("10.0.0.1")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, req("10.0.0.1")).Code)
	assert.Equal(t, http.StatusOK, serve(r, req("10.0.0.2")).Code)
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(10 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) { <-c.Request.Context().Done() })
	r.GET("/fast", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusGatewayTimeout, serve(r, httptest.NewRequest(http.MethodGet, "/slow", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/fast", nil)).Code)
}

func TestSimpleRecovery(t *testing.T) {
	r := gin.New()
	r.Use(SimpleRecovery())
	r.GET("/", func(*gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	var seen string
	r.GET("/", func(c *gin.Context) { seen = c.GetString(KeyRequestID) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(KeyRequestID))
	assert.Equal(t, w.Header().Get(KeyRequestID), seen)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(KeyRequestID, "rid-1")
	assert.Equal(t, "rid-1", serve(r, req).Header().Get(KeyRequestID))
}

func TestNoCache(t *testing.T) {
	r := gin.New()
	r.Use(NoCache())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "no-cache, no-store, must-revalidate, private", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", w.Header().Get("Pragma"))
	assert.Equal(t, "0", w.Header().Get("Expires"))
}

func TestBasicCredential(t *testing.T) {
	r := gin.New()
	r.Use(BasicCredential())
	var got string
	r.GET("/", func(c *gin.Context) { got = Credential(c) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "basic "+base64.StdEncoding.EncodeToString([]byte("anne@potc.live:P!rates17")))
	serve(r, req)
	assert.Equal(t, "P!rates17", got)

	got = "unset"
	serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "", got)
}

func TestAccessLogAndMetrics(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Metrics(), AccessLog(zap.NewNop()))
	r.GET("/pyrates/:pyrate", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"_id": c.Param("pyrate")}) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/pyrates/1234?password=x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"_id":"1234"}`, w.Body.String())
}
