package board

import (
	"crypto/ed25519"
	"testing"
	"time"

	apperrors "github.com/shxuryaaz/agilow-goal-forge/internal/platform/errors"
)

func newTestLinkGrantConfig(t *testing.T, now func() time.Time) LinkGrantConfig {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return LinkGrantConfig{
		Issuer:     "goal-forge",
		Audience:   "board-link",
		Key:        pub,
		SigningKey: priv,
		TTL:        15 * time.Minute,
		Now:        now,
	}
}

func TestIssueAndValidateLinkGrant(t *testing.T) {
	now := func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	cfg := newTestLinkGrantConfig(t, now)

	grant, err := IssueLinkGrant("owner-1", cfg)
	if err != nil {
		t.Fatalf("IssueLinkGrant: %v", err)
	}

	claims, err := ValidateLinkGrant(grant, "owner-1", cfg)
	if err != nil {
		t.Fatalf("ValidateLinkGrant: %v", err)
	}
	if claims.OwnerID != "owner-1" {
		t.Fatalf("owner = %q, want %q", claims.OwnerID, "owner-1")
	}
	if claims.JWTID == "" {
		t.Fatal("jti is empty")
	}
	if !claims.ExpiresAt.Equal(now().Add(15 * time.Minute)) {
		t.Fatalf("exp = %v, want %v", claims.ExpiresAt, now().Add(15*time.Minute))
	}
}

func TestValidateLinkGrantRejectsWrongOwner(t *testing.T) {
	cfg := newTestLinkGrantConfig(t, nil)

	grant, err := IssueLinkGrant("owner-1", cfg)
	if err != nil {
		t.Fatalf("IssueLinkGrant: %v", err)
	}

	_, err = ValidateLinkGrant(grant, "owner-2", cfg)
	if !apperrors.IsCode(err, apperrors.CodeLinkGrantMismatch) {
		t.Fatalf("error = %v, want LINK_GRANT_MISMATCH", err)
	}
}

func TestValidateLinkGrantRejectsExpired(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := newTestLinkGrantConfig(t, func() time.Time { return issuedAt })

	grant, err := IssueLinkGrant("owner-1", cfg)
	if err != nil {
		t.Fatalf("IssueLinkGrant: %v", err)
	}

	cfg.Now = func() time.Time { return issuedAt.Add(16 * time.Minute) }
	_, err = ValidateLinkGrant(grant, "owner-1", cfg)
	if !apperrors.IsCode(err, apperrors.CodeLinkGrantExpired) {
		t.Fatalf("error = %v, want LINK_GRANT_EXPIRED", err)
	}
}

func TestValidateLinkGrantRejectsWrongKey(t *testing.T) {
	cfg := newTestLinkGrantConfig(t, nil)
	other := newTestLinkGrantConfig(t, nil)
	other.Issuer = cfg.Issuer
	other.Audience = cfg.Audience

	grant, err := IssueLinkGrant("owner-1", other)
	if err != nil {
		t.Fatalf("IssueLinkGrant: %v", err)
	}

	_, err = ValidateLinkGrant(grant, "owner-1", cfg)
	if !apperrors.IsCode(err, apperrors.CodeLinkGrantInvalid) {
		t.Fatalf("error = %v, want LINK_GRANT_INVALID", err)
	}
}

func TestValidateLinkGrantRejectsEmpty(t *testing.T) {
	cfg := newTestLinkGrantConfig(t, nil)
	if _, err := ValidateLinkGrant("  ", "owner-1", cfg); !apperrors.IsCode(err, apperrors.CodeLinkGrantInvalid) {
		t.Fatalf("error = %v, want LINK_GRANT_INVALID", err)
	}
}
