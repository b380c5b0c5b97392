package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/erazemk/najdeno/internal/model"
)

func TestIssueAndParse(t *testing.T) {
	i := NewIssuer("test-secret-key", 0)

	token, err := i.Issue(1, "admin", model.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := i.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != 1 || claims.Username != "admin" || claims.Role != model.RoleAdmin {
		t.Errorf("unexpected claims %+v", claims)
	}
	if claims.ID == "" {
		t.Error("expected a JTI")
	}

	other, _ := i.Issue(1, "admin", model.RoleAdmin)
	otherClaims, _ := i.Parse(other)
	if otherClaims.ID == claims.ID {
		t.Error("expected distinct JTIs")
	}
}

func TestParseWrongSecret(t *testing.T) {
	token, _ := NewIssuer("secret1", 0).Issue(1, "admin", model.RoleAdmin)

	if _, err := NewIssuer("secret2", 0).Parse(token); err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := NewIssuer("secret", 0).Parse("not-a-token"); err == nil {
		t.Error("expected error for invalid token")
	}
}

func TestTokenExpiry(t *testing.T) {
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	i := &Issuer{Secret: "test", TTL: time.Hour, Now: func() time.Time { return issued }}

	token, _ := i.Issue(1, "test", model.RoleUser)
	claims, err := i.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !claims.ExpiresAt.Time.Equal(issued.Add(time.Hour)) {
		t.Errorf("expected expiry %v, got %v", issued.Add(time.Hour), claims.ExpiresAt.Time)
	}

	i.Now = func() time.Time { return issued.Add(2 * time.Hour) }
	if _, err := i.Parse(token); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestParseRejectsForeignIssuer(t *testing.T) {
	claims := Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "x",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	_, err = NewIssuer("secret", 0).Parse(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}
