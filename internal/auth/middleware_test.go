package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name          string
		authHeader    string
		expectError   bool
		expectedToken string
	}{
		{name: "valid bearer token", authHeader: "Bearer test-token", expectedToken: "test-token"},
		{name: "missing authorization header", authHeader: "", expectError: true},
		{name: "invalid format - no bearer", authHeader: "Basic test-token", expectError: true},
		{name: "invalid format - no space", authHeader: "Bearertest-token", expectError: true},
		{name: "empty token", authHeader: "Bearer ", expectError: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			if test.authHeader != "" {
				req.Header.Set("Authorization", test.authHeader)
			}

			token, err := extractBearerToken(req)
			if test.expectError {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if token != test.expectedToken {
				t.Errorf("Expected token '%s', got '%s'", test.expectedToken, token)
			}
		})
	}
}

// subjectHandler echoes the authenticated subject.
func subjectHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(Subject(r.Context())))
	})
}

func TestAuthenticateDisabled(t *testing.T) {
	m := NewMiddleware(nil)
	handler := m.Authenticate(RequireScope(ScopeCommand)(subjectHandler()))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/command", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != AnonymousSubject {
		t.Errorf("Expected subject %q, got %q", AnonymousSubject, w.Body.String())
	}
}

func TestAuthenticate(t *testing.T) {
	v, err := NewVerifier(VerifierConfig{Algorithm: "HS256", SecretKey: testSecret})
	if err != nil {
		t.Fatalf("NewVerifier() failed: %v", err)
	}
	m := NewMiddleware(v)

	viewer := jwt.MapClaims{
		"sub":    "viewer-1",
		"roles":  []string{RoleViewer},
		"scopes": []string{ScopeRead},
	}

	tests := []struct {
		name           string
		header         string
		expectedStatus int
		expectedCode   string
	}{
		{"no token", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"bad token", "Bearer nope", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"missing scope", "Bearer " + signHS256(t, testSecret, viewer), http.StatusForbidden, "FORBIDDEN"},
		{"pilot", "Bearer " + signHS256(t, testSecret, pilotClaims()), http.StatusOK, ""},
	}

	handler := m.Authenticate(RequireScope(ScopeCommand)(subjectHandler()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/command", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.expectedCode == "" {
				if w.Body.String() != "pilot-1" {
					t.Errorf("Expected subject 'pilot-1', got %q", w.Body.String())
				}
				return
			}

			var body map[string]interface{}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("Failed to decode error body: %v", err)
			}
			if body["result"] != "error" || body["code"] != tt.expectedCode {
				t.Errorf("Expected error envelope with code %s, got %v", tt.expectedCode, body)
			}
			if w.Header().Get("Content-Type") != "application/json" {
				t.Errorf("Expected JSON content type, got %s", w.Header().Get("Content-Type"))
			}
		})
	}
}

func TestRequireWithoutClaims(t *testing.T) {
	for name, mw := range map[string]func(http.Handler) http.Handler{
		"scope": RequireScope(ScopeRead),
		"role":  RequireRole(RoleViewer),
	} {
		w := httptest.NewRecorder()
		mw(subjectHandler()).ServeHTTP(w, httptest.NewRequest("GET", "/state", nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected status 401, got %d", name, w.Code)
		}
	}
}

func TestRequireRole(t *testing.T) {
	viewer := &Claims{Subject: "v", Roles: []string{RoleViewer}, Scopes: []string{ScopeRead}}
	handler := RequireRole(RolePilot)(subjectHandler())

	req := httptest.NewRequest("GET", "/", nil).WithContext(WithClaims(context.Background(), viewer))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for viewer, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/", nil).WithContext(WithClaims(context.Background(), Anonymous()))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for pilot, got %d", w.Code)
	}
}

func TestClaimsHelpers(t *testing.T) {
	var nilClaims *Claims
	if nilClaims.HasScopes(ScopeRead) || nilClaims.HasAnyRole() {
		t.Error("Expected nil claims to grant nothing")
	}
	if !Anonymous().HasAnyRole() {
		t.Error("Expected empty role requirement to pass")
	}
	if Subject(context.Background()) != "unknown" {
		t.Errorf("Expected 'unknown' subject, got %s", Subject(context.Background()))
	}
}
