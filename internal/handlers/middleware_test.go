package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims Claims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func validClaims(uid string, roles ...string) Claims {
	return Claims{
		UserID: uid,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func identityEcho(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())
	_ = json.NewEncoder(w).Encode(id)
}

func TestJWTAuth(t *testing.T) {
	handler := JWTAuth(testSecret)(http.HandlerFunc(identityEcho))

	expired := validClaims("u-1")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-token", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, validClaims("u-1"), "other"), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, expired, testSecret), http.StatusUnauthorized},
		{"no user id", "Bearer " + signToken(t, validClaims(""), testSecret), http.StatusUnauthorized},
		{"valid", "Bearer " + signToken(t, validClaims("u-1", "admin"), testSecret), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/rfx", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusUnauthorized {
				if body := decodeError(t, rec); body.Code != models.CodeUnauthorized {
					t.Fatalf("code = %s", body.Code)
				}
				return
			}

			var id Identity
			if err := json.NewDecoder(rec.Body).Decode(&id); err != nil {
				t.Fatalf("decode identity: %v", err)
			}
			if id.UserID != "u-1" || !id.IsAdmin() {
				t.Fatalf("identity = %+v", id)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/contracts/direct", nil)
	req = req.WithContext(WithIdentity(req.Context(), Identity{UserID: "u-1", Roles: []string{"buyer"}}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/contracts/direct", nil)
	req = req.WithContext(WithIdentity(req.Context(), Identity{UserID: "u-1", Roles: []string{"admin"}}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("admin status = %d", rec.Code)
	}
}

func TestRequestLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}), RequestID, Logger(zap.New(core)))

	req := httptest.NewRequest(http.MethodGet, "/api/rfx/missing", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") != "req-42" {
		t.Fatalf("request id header = %q", rec.Header().Get("X-Request-ID"))
	}
	entries := logs.FilterMessage("client error").All()
	if len(entries) != 1 {
		t.Fatalf("expected one client error entry, got %d", logs.Len())
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusNotFound) || fields["request_id"] != "req-42" || fields["path"] != "/api/rfx/missing" {
		t.Fatalf("fields = %v", fields)
	}
}

func TestSendError(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/rfx/1/approve", nil)
	sendError(logger, rec, req, models.ConflictError(models.CodeAlreadyApproved, "already approved"), "failed")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != models.CodeAlreadyApproved || body.Message != "already approved" {
		t.Fatalf("body = %+v", body)
	}

	rec = httptest.NewRecorder()
	sendError(logger, rec, req, errors.New("pool closed"), "failed to approve rfx")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != models.CodeInternal || body.Message != "failed to approve rfx" {
		t.Fatalf("internal details leaked: %+v", body)
	}
	if logs.FilterMessage("failed to approve rfx").Len() != 1 {
		t.Fatal("internal error was not logged")
	}
}

func TestPingHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	PingHandler(rec, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("ping = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	PingHandler(rec, httptest.NewRequest(http.MethodPost, "/api/ping", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("POST ping status = %d", rec.Code)
	}
}
