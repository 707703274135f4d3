package app

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Payload json.RawMessage `json:"payload"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
	return env
}

// --- Health check tests ---

func TestHealthHandler_OK(t *testing.T) {
	r := gin.New()
	r.GET("/health", healthHandler(openTestSQLiteDB(t)))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	env := decodeEnvelope(t, w)
	var health HealthStatus
	if err := json.Unmarshal(env.Payload, &health); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if !env.Status || health.Status != "ok" || health.Components["database"] != "ok" {
		t.Errorf("health = %+v", health)
	}
}

func TestHealthHandler_DBDown(t *testing.T) {
	r := gin.New()
	db := openTestSQLiteDB(t)
	sqlDB, _ := db.DB()
	sqlDB.Close()
	r.GET("/health", healthHandler(db))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	var health HealthStatus
	if err := json.Unmarshal(decodeEnvelope(t, w).Payload, &health); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if health.Status != "degraded" || health.Components["database"] != "error" {
		t.Errorf("health = %+v", health)
	}
}

func TestHealthHandler_NilDB(t *testing.T) {
	r := gin.New()
	r.GET("/health", healthHandler(nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestHealthHandler_UsesRequestContextTimeout(t *testing.T) {
	registerBlockingPingDriver()

	sqlDB, err := sql.Open(blockingPingDriverName, "")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{DisableAutomaticPing: true})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}

	r := gin.New()
	r.GET("/health", healthHandler(db))

	reqCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	t.Cleanup(cancel)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil).WithContext(reqCtx)

	start := time.Now()
	r.ServeHTTP(w, req)
	elapsed := time.Since(start)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if elapsed > 300*time.Millisecond {
		t.Fatalf("expected health response to honor request context timeout, elapsed=%v", elapsed)
	}
}

// --- Fallback handler tests ---

func TestNoRouteHandler_JSONEnvelope(t *testing.T) {
	r := gin.New()
	if err := RegisterRoutes(r, &RouteDeps{Modules: []Module{&mockModule{}}, DB: openTestSQLiteDB(t)}); err != nil {
		t.Fatalf("RegisterRoutes: %v", err)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d; want 404", w.Code)
	}
	env := decodeEnvelope(t, w)
	if env.Status || env.Message != "not found" {
		t.Errorf("envelope = %+v", env)
	}
	var payload string
	_ = json.Unmarshal(env.Payload, &payload)
	if payload != "no route for GET /api/v1/nope" {
		t.Errorf("payload = %q", payload)
	}
}

func TestNoMethodHandler_JSONEnvelope(t *testing.T) {
	r := gin.New()
	if err := RegisterRoutes(r, &RouteDeps{Modules: []Module{&mockModule{}}, DB: openTestSQLiteDB(t)}); err != nil {
		t.Fatalf("RegisterRoutes: %v", err)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/api/v1/mock", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d; want 405", w.Code)
	}
	if env := decodeEnvelope(t, w); env.Status || env.Message != "method not allowed" {
		t.Errorf("envelope = %+v", env)
	}
}

// --- RegisterRoutes tests ---

type mockModule struct {
	called bool
}

func (m *mockModule) RegisterRoutes(api *gin.RouterGroup) {
	m.called = true
	api.GET("/mock", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

func TestRegisterRoutes_NilRouter(t *testing.T) {
	if err := RegisterRoutes(nil, &RouteDeps{Modules: []Module{&mockModule{}}}); err == nil {
		t.Fatal("expected error for nil router")
	}
}

func TestRegisterRoutes_NilDeps(t *testing.T) {
	if err := RegisterRoutes(gin.New(), nil); err == nil {
		t.Fatal("expected error for nil deps")
	}
}

func TestRegisterRoutes_NoModules(t *testing.T) {
	if err := RegisterRoutes(gin.New(), &RouteDeps{}); err == nil {
		t.Fatal("expected error for empty modules")
	}
}

func TestRegisterRoutes_NilModuleEntry(t *testing.T) {
	err := RegisterRoutes(gin.New(), &RouteDeps{Modules: []Module{&mockModule{}, nil}})
	if err == nil {
		t.Fatal("expected error for nil module entry")
	}
}

func TestRegisterRoutes_ModulesMountedUnderAPI(t *testing.T) {
	m := &mockModule{}
	r := gin.New()
	if err := RegisterRoutes(r, &RouteDeps{Modules: []Module{m}}); err != nil {
		t.Fatalf("RegisterRoutes: %v", err)
	}
	if !m.called {
		t.Fatal("module RegisterRoutes was not called")
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/mock", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d; want 204", w.Code)
	}
}

func TestRegisterRoutes_APIMiddlewareSkipsHealth(t *testing.T) {
	r := gin.New()
	deny := func(c *gin.Context) {
		c.AbortWithStatus(http.StatusTeapot)
	}
	err := RegisterRoutes(r, &RouteDeps{
		Modules:       []Module{&mockModule{}},
		DB:            openTestSQLiteDB(t),
		APIMiddleware: []gin.HandlerFunc{deny},
	})
	if err != nil {
		t.Fatalf("RegisterRoutes: %v", err)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/mock", nil))
	if w.Code != http.StatusTeapot {
		t.Errorf("api status = %d; want 418", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d; want 200", w.Code)
	}
}

// --- helpers ---

func openTestSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	return db
}

const blockingPingDriverName = "mailsync_blocking_ping"

var registerBlockingPingDriverOnce sync.Once

func registerBlockingPingDriver() {
	registerBlockingPingDriverOnce.Do(func() {
		sql.Register(blockingPingDriverName, blockingPingDriver{})
	})
}

type blockingPingDriver struct{}

func (blockingPingDriver) Open(string) (driver.Conn, error) {
	return blockingPingConn{}, nil
}

type blockingPingConn struct{}

func (blockingPingConn) Prepare(string) (driver.Stmt, error) { return nil, driver.ErrSkip }
func (blockingPingConn) Close() error                        { return nil }
func (blockingPingConn) Begin() (driver.Tx, error)           { return blockingPingTx{}, nil }

func (blockingPingConn) Ping(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

type blockingPingTx struct{}

func (blockingPingTx) Commit() error   { return nil }
func (blockingPingTx) Rollback() error { return nil }
