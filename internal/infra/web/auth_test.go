//go:build !integration

package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAuthManager(t *testing.T) {
	auth := NewAuthManager("test-admin-jwt-secret", time.Minute)

	request := func(hdr string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/admin/review", nil)
		if hdr != "" {
			req.Header.Set("Authorization", hdr)
		}
		return req
	}

	t.Run("should round-trip a minted token", func(t *testing.T) {
		tok, exp, err := auth.Mint("root")
		if err != nil {
			t.Fatalf("mint: %v", err)
		}
		if !exp.After(time.Now()) {
			t.Errorf("expected a future expiry, got %v", exp)
		}
		claims, err := auth.ParseFromRequest(request("bearer " + tok))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if claims.Subject != "root" || claims.Role != adminRole {
			t.Errorf("unexpected claims %+v", claims)
		}
	})

	t.Run("should reject missing or malformed headers", func(t *testing.T) {
		for _, hdr := range []string{"", "whatever", "Basic abc", "Bearer not.a.jwt"} {
			if _, err := auth.ParseFromRequest(request(hdr)); err == nil {
				t.Errorf("expected an error for %q", hdr)
			}
		}
	})

	t.Run("should reject a token signed with another secret", func(t *testing.T) {
		tok, _, err := NewAuthManager("other-secret", time.Minute).Mint("root")
		if err != nil {
			t.Fatalf("mint: %v", err)
		}
		if _, err := auth.ParseFromRequest(request("Bearer " + tok)); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("should reject an expired token", func(t *testing.T) {
		tok, _, err := auth.Mint("root")
		if err != nil {
			t.Fatalf("mint: %v", err)
		}
		late := NewAuthManager("test-admin-jwt-secret", time.Minute)
		late.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
		if _, err := late.ParseFromRequest(request("Bearer " + tok)); err == nil {
			t.Error("expected an expired token to fail")
		}
	})
}
