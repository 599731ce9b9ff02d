package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chalklinehq/chalkline/internal/api/authz"
)

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body["error"]
}

func okHandler(called *bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	}
}

func TestRequireAuthWithoutUser(t *testing.T) {
	called := false
	handler := RequireAuth(okHandler(&called))

	req := httptest.NewRequest(http.MethodGet, "/api/teams", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if msg := errorBody(t, rec); msg != "Not authenticated" {
		t.Fatalf("unexpected error message %q", msg)
	}
	if called {
		t.Fatal("handler must not run for unauthenticated requests")
	}
}

func TestRequireAuthWithUser(t *testing.T) {
	called := false
	handler := RequireAuth(okHandler(&called))

	req := httptest.NewRequest(http.MethodGet, "/api/teams", nil)
	req = req.WithContext(authz.ContextWithUser(req.Context(), &authz.AuthUser{ID: 1}))
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !called {
		t.Fatal("handler must run for authenticated requests")
	}
}

func TestRequireAdminDistinguishesMissingSessionFromMissingRole(t *testing.T) {
	tests := []struct {
		name       string
		user       *authz.AuthUser
		wantStatus int
		wantError  string
	}{
		{"unauthenticated", nil, http.StatusUnauthorized, "Not authenticated"},
		{"authenticated non-admin", &authz.AuthUser{ID: 2, RoleName: "player"}, http.StatusForbidden, "Not authorized"},
		{"authenticated no role", &authz.AuthUser{ID: 3}, http.StatusForbidden, "Not authorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := RequireAdmin(okHandler(&called))

			req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
			if tt.user != nil {
				req = req.WithContext(authz.ContextWithUser(req.Context(), tt.user))
			}
			rec := httptest.NewRecorder()

			handler(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if msg := errorBody(t, rec); msg != tt.wantError {
				t.Fatalf("unexpected error message %q", msg)
			}
			if called {
				t.Fatal("handler must not run when the guard rejects")
			}
		})
	}
}

func TestRequireAdminAllowsAdmin(t *testing.T) {
	called := false
	handler := RequireAdmin(okHandler(&called))

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req = req.WithContext(authz.ContextWithUser(req.Context(), &authz.AuthUser{ID: 1, RoleName: "admin"}))
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !called {
		t.Fatal("handler must run for admins")
	}
}

func TestWithRequestIDSetsHeaderAndContext(t *testing.T) {
	var seenID string
	handler := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID, _ = r.Context().Value(requestIDContextKey{}).(string)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	headerID := rec.Header().Get("X-Request-ID")
	if headerID == "" {
		t.Fatal("expected X-Request-ID header")
	}
	if seenID != headerID {
		t.Fatalf("context id %q does not match header id %q", seenID, headerID)
	}
}

func TestWithRecoveryTurnsPanicInto500(t *testing.T) {
	handler := WithRecovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/teams", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if msg := errorBody(t, rec); msg != "Server error" {
		t.Fatalf("unexpected error message %q", msg)
	}
}

func TestChainMiddlewareOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := ChainMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), tag("inner"), tag("outer"))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if len(order) != 3 || order[0] != "outer" || order[1] != "inner" || order[2] != "handler" {
		t.Fatalf("unexpected execution order %v", order)
	}
}
