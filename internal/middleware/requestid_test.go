package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/simp-lee/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// serveRequestID serves the id seen by GetRequestID and the one attached to
// the request context, separated by a space.
func serveRequestID(cfg RequestIDConfig, upstream string) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(RequestIDWithConfig(cfg))
	r.GET("/contacts", func(c *gin.Context) {
		var fromCtx string
		for _, a := range logger.FromContext(c.Request.Context()) {
			if a.Key == "request_id" {
				fromCtx = a.Value.String()
			}
		}
		c.String(http.StatusOK, GetRequestID(c)+" "+fromCtx)
	})

	req := httptest.NewRequest(http.MethodGet, "/contacts", nil)
	if upstream != "" {
		req.Header.Set(requestIDHeader, upstream)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestIDWithConfig(t *testing.T) {
	trust := RequestIDConfig{TrustUpstream: true}
	longest := strings.Repeat("a", 64)

	tests := []struct {
		name     string
		cfg      RequestIDConfig
		upstream string
		want     string // "" means a generated UUID
	}{
		{name: "generated", cfg: RequestIDConfig{}},
		{name: "upstream ignored by default", cfg: RequestIDConfig{}, upstream: "sdk-7f3a"},
		{name: "upstream reused when trusted", cfg: trust, upstream: "sdk-7f3a", want: "sdk-7f3a"},
		{name: "64 characters reused", cfg: trust, upstream: longest, want: longest},
		{name: "too long replaced", cfg: trust, upstream: longest + "a"},
		{name: "bad charset replaced", cfg: trust, upstream: "sdk_7f3a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveRequestID(tt.cfg, tt.upstream)
			got := strings.Fields(w.Body.String())
			if len(got) != 2 || got[0] != got[1] {
				t.Fatalf("gin and request context ids differ: %q", w.Body.String())
			}
			if header := w.Header().Get(requestIDHeader); header != got[0] {
				t.Errorf("%s header = %q, want %q", requestIDHeader, header, got[0])
			}
			if tt.want != "" {
				if got[0] != tt.want {
					t.Errorf("id = %q, want %q", got[0], tt.want)
				}
				return
			}
			if _, err := uuid.Parse(got[0]); err != nil {
				t.Errorf("id = %q, want a UUID", got[0])
			}
		})
	}
}

func TestRequestID_UniquePerRequest(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		id := strings.Fields(serveRequestID(RequestIDConfig{}, "").Body.String())[0]
		if seen[id] {
			t.Fatalf("duplicate request id %q", id)
		}
		seen[id] = true
	}
}

func TestGetRequestID_WithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if id := GetRequestID(c); id != "" {
		t.Errorf("GetRequestID = %q, want empty", id)
	}
}
