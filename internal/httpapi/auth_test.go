package httpapi

import (
	"strings"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"invoicely/backend/internal/domain"
)

const testSecret = "test-secret-key-with-enough-length-123"

func TestLoginIssuesParsableToken(t *testing.T) {
	auth, err := NewAuthManager(testSecret, time.Hour,
		Account{Username: "admin", Password: "admin-pass-1", Role: domain.RoleAdmin},
		Account{Username: "Clerk", Password: "clerk-pass-1", Role: domain.RoleClerk},
	)
	if err != nil {
		t.Fatalf("new auth manager: %v", err)
	}

	resp, err := auth.Login(domain.LoginRequest{Username: " clerk ", Password: "clerk-pass-1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Role != domain.RoleClerk || resp.ExpiresAt == "" {
		t.Fatalf("unexpected login response %+v", resp)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Username != "clerk" || actor.Role != domain.RoleClerk {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	auth, err := NewAuthManager(testSecret, time.Hour, Account{Username: "admin", Password: "admin-pass-1", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("new auth manager: %v", err)
	}
	if _, err := auth.Login(domain.LoginRequest{Username: "admin", Password: "nope"}); err == nil {
		t.Fatalf("expected invalid credentials")
	}
	if _, err := auth.Login(domain.LoginRequest{Username: "ghost", Password: "admin-pass-1"}); err == nil {
		t.Fatalf("expected unknown user to fail")
	}
}

func TestAccountWithoutPasswordIsDisabled(t *testing.T) {
	auth, err := NewAuthManager(testSecret, time.Hour, Account{Username: "clerk", Role: domain.RoleClerk})
	if err != nil {
		t.Fatalf("new auth manager: %v", err)
	}
	if _, err := auth.Login(domain.LoginRequest{Username: "clerk", Password: ""}); err == nil {
		t.Fatalf("expected disabled account to be rejected")
	}
}

func TestAccountAcceptsPrehashedPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed-pass-1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	auth, err := NewAuthManager(testSecret, time.Hour, Account{Username: "admin", Password: string(hash), Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("new auth manager: %v", err)
	}
	if _, err := auth.Login(domain.LoginRequest{Username: "admin", Password: "hashed-pass-1"}); err != nil {
		t.Fatalf("expected prehashed password to work: %v", err)
	}
}

func TestUnsupportedRoleRejected(t *testing.T) {
	if _, err := NewAuthManager(testSecret, time.Hour, Account{Username: "root", Password: "x", Role: "superuser"}); err == nil {
		t.Fatalf("expected unsupported role error")
	}
	if _, err := NewAuthManager("", time.Hour); err == nil {
		t.Fatalf("expected missing secret error")
	}
}

func TestParseTokenRejectsForeignTokens(t *testing.T) {
	auth, err := NewAuthManager(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("new auth manager: %v", err)
	}

	other, _ := NewAuthManager("another-secret-key-with-enough-length", time.Hour)
	foreign, err := other.sign("admin", domain.RoleAdmin, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := auth.ParseToken(foreign); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}

	expired, err := auth.sign("admin", domain.RoleAdmin, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := auth.ParseToken(expired); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}

	none := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, jwtlib.RegisteredClaims{Subject: "admin", Issuer: "invoicely"})
	raw, err := none.SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := auth.ParseToken(raw); err == nil || !strings.Contains(err.Error(), "invalid") {
		t.Fatalf("expected alg=none token to be rejected, got %v", err)
	}
}
