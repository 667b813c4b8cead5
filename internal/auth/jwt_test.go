package auth

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stride-hr/presence-gateway/internal/model"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	identity := model.Identity{
		UserID:         "42",
		EmployeeID:     "7",
		BranchID:       "3",
		OrganizationID: "1",
		Roles:          []string{"Employee", "HRManager"},
	}

	token, err := svc.Generate(identity)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	got, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("failed to validate token: %v", err)
	}
	if !reflect.DeepEqual(got, identity) {
		t.Errorf("identity mismatch:\n got %+v\nwant %+v", got, identity)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenService("secret-a", time.Hour)
	verifier := NewTokenService("secret-b", time.Hour)

	token, err := issuer.Generate(model.Identity{UserID: "1", EmployeeID: "10"})
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	if _, err := verifier.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := svc.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	svc := NewTokenService("test-secret", -time.Hour)

	// A negative expiry drops the claim; simulate an expired token with a
	// second service that back-dates it.
	issuer := NewTokenService("test-secret", time.Nanosecond)
	token, err := issuer.Generate(model.Identity{UserID: "1", EmployeeID: "10"})
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if _, err := svc.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestGenerateRequiresIdentity(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	if _, err := svc.Generate(model.Identity{UserID: "42"}); !errors.Is(err, model.ErrMissingIdentity) {
		t.Errorf("expected ErrMissingIdentity, got %v", err)
	}
}

func TestDisabledService(t *testing.T) {
	svc := NewTokenService("", time.Hour)

	if svc.Enabled() {
		t.Error("service without secret must be disabled")
	}
	if _, err := svc.Generate(model.Identity{UserID: "1", EmployeeID: "10"}); !errors.Is(err, ErrAuthDisabled) {
		t.Errorf("expected ErrAuthDisabled, got %v", err)
	}
	if _, err := svc.Validate("whatever"); !errors.Is(err, ErrAuthDisabled) {
		t.Errorf("expected ErrAuthDisabled, got %v", err)
	}

	var nilSvc *TokenService
	if nilSvc.Enabled() {
		t.Error("nil service must be disabled")
	}
}
