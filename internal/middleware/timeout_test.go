package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/mailsync/internal/pkg"
)

func TestTimeout_SetsDeadline(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(50 * time.Millisecond))
	var deadline time.Time
	var ok bool
	r.GET("/", func(c *gin.Context) {
		deadline, ok = c.Request.Context().Deadline()
		c.Status(http.StatusNoContent)
	})

	start := time.Now()
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !ok {
		t.Fatal("request context has no deadline")
	}
	if d := deadline.Sub(start); d <= 0 || d > time.Second {
		t.Errorf("deadline in %v; want about 50ms", d)
	}
}

func TestTimeout_ZeroDisables(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(0))
	var ok bool
	r.GET("/", func(c *gin.Context) {
		_, ok = c.Request.Context().Deadline()
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if ok {
		t.Error("deadline set with zero timeout")
	}
}

func TestTimeout_ExpiredContextAnswers408(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(time.Millisecond))
	r.GET("/", func(c *gin.Context) {
		<-c.Request.Context().Done()
		pkg.Error(c, c.Request.Context().Err())
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusRequestTimeout {
		t.Fatalf("status = %d; want 408", w.Code)
	}
	env := decodeEnvelope(t, w)
	if env.Status || env.Message != "request timeout" || env.Payload != "request timed out" {
		t.Errorf("envelope = %+v", env)
	}
}
