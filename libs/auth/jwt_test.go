package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testNow = time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)

func TestHS256RoundTrip(t *testing.T) {
	claims := NewClaims("user-1", RolePatient, time.Now(), time.Hour)
	claims.Name = "Ada"
	secret := "test-secret"

	token, err := SignHS256(claims, secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	parsed, err := ParseAndVerifyHS256(token, secret)
	if err != nil {
		t.Fatalf("ParseAndVerifyHS256 failed: %v", err)
	}
	if parsed.Subject != "user-1" || parsed.Name != "Ada" || parsed.Role != RolePatient {
		t.Fatalf("claims mismatch: got %+v", parsed)
	}
	if _, err := ParseAndVerifyHS256(token, "wrong-secret"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token with wrong secret, got %v", err)
	}
}

func TestHS256RejectsExpiredAndUnknownRole(t *testing.T) {
	expired, _ := SignHS256(NewClaims("u", RoleStaff, testNow.Add(-2*time.Hour), time.Hour), "s")
	if _, err := verifyHS256(expired, "s", testNow); err == nil {
		t.Fatal("expected expired token to fail")
	}
	admin, _ := SignHS256(NewClaims("u", "admin", testNow, time.Hour), "s")
	if _, err := verifyHS256(admin, "s", testNow); err == nil {
		t.Fatal("expected unknown role to fail")
	}
	anonymous, _ := SignHS256(NewClaims("", RolePatient, testNow, time.Hour), "s")
	if _, err := verifyHS256(anonymous, "s", testNow); err == nil {
		t.Fatal("expected token without subject to fail")
	}
}

func TestHS256RequiresExpiry(t *testing.T) {
	forever, err := SignHS256(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}, Role: RoleStaff}, "s")
	if err != nil {
		t.Fatal(err)
	}
	if claims, err := verifyHS256(forever, "s", testNow); err == nil {
		t.Fatalf("token without exp accepted: %+v", claims)
	}
}

func TestHS256RejectsNotYetValid(t *testing.T) {
	early, _ := SignHS256(NewClaims("u1", RolePatient, testNow.Add(time.Hour), time.Hour), "s")
	if _, err := verifyHS256(early, "s", testNow); err == nil {
		t.Fatal("expected token before nbf to fail")
	}
}

func TestHS256RejectsOtherAlgorithms(t *testing.T) {
	claims := NewClaims("u1", RoleStaff, testNow, time.Hour)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := verifyHS256(none, "s", testNow); err == nil {
		t.Fatal("expected alg none to fail")
	}
	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("s"))
	if _, err := verifyHS256(hs512, "s", testNow); err == nil {
		t.Fatal("expected HS512 to fail")
	}
}

func TestRequireRole(t *testing.T) {
	a := NewAuthenticator("s")
	var seen *Claims
	h := a.Require(RoleStaff)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	call := func(authz string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := call(""); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", code)
	}
	patient, _ := SignHS256(NewClaims("p1", RolePatient, time.Now(), time.Hour), "s")
	if code := call("Bearer " + patient); code != http.StatusForbidden {
		t.Fatalf("expected 403 for patient, got %d", code)
	}
	staff, _ := SignHS256(NewClaims("s1", RoleStaff, time.Now(), time.Hour), "s")
	if code := call("Bearer " + staff); code != http.StatusOK {
		t.Fatalf("expected 200 for staff, got %d", code)
	}
	if seen == nil || !seen.IsStaff() || seen.Subject != "s1" {
		t.Fatalf("claims not propagated: %+v", seen)
	}
	if code := call("Bearer " + strings.Replace(staff, ".", ".x", 1)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for tampered token, got %d", code)
	}
}
