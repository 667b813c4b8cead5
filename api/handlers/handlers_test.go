package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stride-hr/presence-gateway/internal/auth"
	"github.com/stride-hr/presence-gateway/internal/gateway"
	"github.com/stride-hr/presence-gateway/internal/health"
	"github.com/stride-hr/presence-gateway/internal/model"
	"github.com/stride-hr/presence-gateway/internal/registry"
)

func newTestGateway(t *testing.T) *gateway.Gateway {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracker := health.NewTracker(health.Config{
		SweepInterval:         time.Second,
		UnresponsiveThreshold: 3,
		ExpiredThreshold:      6,
	}, nil, logger)
	gw := gateway.New(gateway.Options{
		AdminRoles: []string{"SuperAdmin", "Admin", "HRManager"},
	}, registry.New(), tracker, nil, nil, logger)
	tracker.SetExpireFunc(gw.Expire)
	return gw
}

func queryContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

func TestExtractIdentityFromQuery(t *testing.T) {
	c, _ := queryContext("/api/connect?userId=42&employeeId=7&branchId=3&roles=Employee,HRManager")

	identity, err := extractIdentity(c, nil)
	if err != nil {
		t.Fatalf("failed to extract identity: %v", err)
	}

	want := model.Identity{
		UserID:     "42",
		EmployeeID: "7",
		BranchID:   "3",
		Roles:      []string{"Employee", "HRManager"},
	}
	if !reflect.DeepEqual(identity, want) {
		t.Errorf("identity mismatch:\n got %+v\nwant %+v", identity, want)
	}
}

func TestExtractIdentityFromBearerToken(t *testing.T) {
	tokens := auth.NewTokenService("test-secret", time.Hour)
	want := model.Identity{UserID: "42", EmployeeID: "7", Roles: []string{"Admin"}}
	token, err := tokens.Generate(want)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	c, _ := queryContext("/api/connect")
	c.Request.Header.Set("Authorization", "Bearer "+token)
	identity, err := extractIdentity(c, tokens)
	if err != nil {
		t.Fatalf("failed to extract identity from header: %v", err)
	}
	if !reflect.DeepEqual(identity, want) {
		t.Errorf("identity mismatch: %+v", identity)
	}

	// WebSocket upgrades from browsers cannot carry headers; the token may
	// come as a query parameter instead.
	c, _ = queryContext("/api/connect?token=" + token)
	identity, err = extractIdentity(c, tokens)
	if err != nil {
		t.Fatalf("failed to extract identity from query token: %v", err)
	}
	if identity.UserID != "42" {
		t.Errorf("unexpected identity: %+v", identity)
	}
}

func TestExtractIdentityIgnoresQueryClaimsWhenAuthEnabled(t *testing.T) {
	tokens := auth.NewTokenService("test-secret", time.Hour)

	c, _ := queryContext("/api/connect?userId=42&employeeId=7")
	if _, err := extractIdentity(c, tokens); err == nil {
		t.Error("query claims must not bypass token auth")
	}
}

func TestConnectRejectsMissingIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewWebSocketHandler(newTestGateway(t), nil)
	h.RegisterRoutes(router.Group("/api"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/connect?userId=42", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	if resp.Error.Code != "REJECTED_CONNECTION" {
		t.Errorf("unexpected error code: %q", resp.Error.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gw := newTestGateway(t)
	router := gin.New()
	h := NewStatsHandler(gw, nil)
	h.RegisterRoutes(router.Group("/api"))

	if _, err := gw.Connect(nil, model.Identity{UserID: "1", EmployeeID: "10", BranchID: "b1"}, "", ""); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats?userId=2&employeeId=20&roles=Employee", nil))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats?userId=2&employeeId=20&roles=HRManager", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", w.Code)
	}

	var stats gateway.StatsEvent
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("invalid stats body: %v", err)
	}
	if stats.TotalConnections != 1 || stats.ConnectionsByBranch["b1"] != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
