package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type staticReadiness bool

func (p staticReadiness) Ready() bool { return bool(p) }

func TestHealthCheckReflectsDatabaseReadiness(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name string
		db   ReadinessChecker
		want int
	}{
		{name: "ready", db: staticReadiness(true), want: http.StatusOK},
		{name: "not_ready", db: staticReadiness(false), want: http.StatusServiceUnavailable},
		{name: "no_readiness_source", db: nil, want: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/healthcheck", NewHealthHandler(tc.db).HealthCheck)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
			if rec.Code != tc.want {
				t.Fatalf("status: got %d want %d", rec.Code, tc.want)
			}
		})
	}
}
