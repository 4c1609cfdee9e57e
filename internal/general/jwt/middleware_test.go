package jwt

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campus-carpool/internal/domain/user"
)

func authedRequest(t *testing.T, mgr *Manager, userID string, role user.Role) *http.Request {
	t.Helper()
	signed, _, err := mgr.IssueUserToken(userID, role)
	if err != nil {
		t.Fatalf("IssueUserToken: %v", err)
	}
	r := httptest.NewRequest("GET", "/rides", nil)
	r.Header.Set("Authorization", "Bearer "+signed)
	return r
}

func TestAuthMiddlewareInjectsClaims(t *testing.T) {
	mgr := NewManager("test-secret", time.Hour)

	var got *Claims
	wrapped := AuthMiddlewareFunc(mgr, user.RoleDriver)(func(w http.ResponseWriter, r *http.Request) {
		got = RequireClaims(r)
	})

	rec := httptest.NewRecorder()
	wrapped(rec, authedRequest(t, mgr, "driver-1", user.RoleDriver))

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
	if got == nil || got.Subject != "driver-1" || got.Role != user.RoleDriver {
		t.Fatalf("claims not injected: %+v", got)
	}
}

func TestAuthMiddlewareErrorsAreJSON(t *testing.T) {
	mgr := NewManager("test-secret", time.Hour)
	wrapped := AuthMiddlewareFunc(mgr, user.RoleDriver)(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	tests := []struct {
		name       string
		request    func(t *testing.T) *http.Request
		wantStatus int
	}{
		{
			name:       "missing token",
			request:    func(t *testing.T) *http.Request { return httptest.NewRequest("GET", "/rides", nil) },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "garbage token",
			request: func(t *testing.T) *http.Request {
				r := httptest.NewRequest("GET", "/rides", nil)
				r.Header.Set("Authorization", "Bearer not-a-jwt")
				return r
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "wrong role",
			request: func(t *testing.T) *http.Request {
				return authedRequest(t, mgr, "passenger-1", user.RolePassenger)
			},
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			wrapped(rec, tc.request(t))

			if rec.Code != tc.wantStatus {
				t.Fatalf("got %d, want %d", rec.Code, tc.wantStatus)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
				t.Fatalf("content type = %q", ct)
			}
			// same error shape as the booking handlers
			var body struct {
				Error string `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("body is not JSON: %v (%s)", err, rec.Body.String())
			}
			if body.Error == "" {
				t.Fatalf("error field empty in %s", rec.Body.String())
			}
		})
	}
}
