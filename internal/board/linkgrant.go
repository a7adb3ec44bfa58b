package board

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/shxuryaaz/agilow-goal-forge/internal/platform/errors"
	"github.com/shxuryaaz/agilow-goal-forge/internal/platform/id"
)

// linkGrantEnv holds raw env values before post-parse validation.
type linkGrantEnv struct {
	Issuer     string `env:"GOALFORGE_LINK_GRANT_ISSUER"`
	Audience   string `env:"GOALFORGE_LINK_GRANT_AUDIENCE"`
	PublicKey  string `env:"GOALFORGE_LINK_GRANT_PUBLIC_KEY"`
	PrivateKey string `env:"GOALFORGE_LINK_GRANT_PRIVATE_KEY"`
}

// LinkGrantConfig defines how board link grants are issued and verified.
// The grant binds a board authorization round trip to one owner so a
// returning callback cannot attach a token to someone else's account.
type LinkGrantConfig struct {
	Issuer     string
	Audience   string
	Key        ed25519.PublicKey
	SigningKey ed25519.PrivateKey
	TTL        time.Duration
	Now        func() time.Time
}

// LinkGrantClaims captures validated link grant claims.
type LinkGrantClaims struct {
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	IssuedAt  time.Time
	JWTID     string
	OwnerID   string
}

// linkGrantClaims is the internal claims type used for JWT parsing.
type linkGrantClaims struct {
	jwt.RegisteredClaims
	OwnerID string `json:"owner_id"`
}

const defaultLinkGrantTTL = 15 * time.Minute

// LoadLinkGrantConfigFromEnv reads link grant configuration. The private
// key is optional: verification-only deployments omit it.
func LoadLinkGrantConfigFromEnv(now func() time.Time) (LinkGrantConfig, error) {
	var raw linkGrantEnv
	if err := env.Parse(&raw); err != nil {
		return LinkGrantConfig{}, fmt.Errorf("parse link grant env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	publicKey := strings.TrimSpace(raw.PublicKey)
	if issuer == "" {
		return LinkGrantConfig{}, fmt.Errorf("GOALFORGE_LINK_GRANT_ISSUER is required")
	}
	if audience == "" {
		return LinkGrantConfig{}, fmt.Errorf("GOALFORGE_LINK_GRANT_AUDIENCE is required")
	}
	if publicKey == "" {
		return LinkGrantConfig{}, fmt.Errorf("GOALFORGE_LINK_GRANT_PUBLIC_KEY is required")
	}
	keyBytes, err := decodeBase64(publicKey)
	if err != nil {
		return LinkGrantConfig{}, fmt.Errorf("decode link grant public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return LinkGrantConfig{}, fmt.Errorf("link grant public key must be %d bytes", ed25519.PublicKeySize)
	}

	cfg := LinkGrantConfig{
		Issuer:   issuer,
		Audience: audience,
		Key:      ed25519.PublicKey(keyBytes),
		TTL:      defaultLinkGrantTTL,
		Now:      now,
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if privateKey := strings.TrimSpace(raw.PrivateKey); privateKey != "" {
		privBytes, err := decodeBase64(privateKey)
		if err != nil {
			return LinkGrantConfig{}, fmt.Errorf("decode link grant private key: %w", err)
		}
		if len(privBytes) != ed25519.PrivateKeySize {
			return LinkGrantConfig{}, fmt.Errorf("link grant private key must be %d bytes", ed25519.PrivateKeySize)
		}
		cfg.SigningKey = ed25519.PrivateKey(privBytes)
	}
	return cfg, nil
}

// IssueLinkGrant signs a short-lived grant binding the authorization flow
// to the given owner.
func IssueLinkGrant(ownerID string, cfg LinkGrantConfig) (string, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return "", apperrors.New(apperrors.CodeLinkGrantInvalid, "owner id is required")
	}
	if len(cfg.SigningKey) != ed25519.PrivateKeySize {
		return "", errors.New("link grant signer is not configured")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultLinkGrantTTL
	}

	grantID, err := id.NewID()
	if err != nil {
		return "", fmt.Errorf("generate link grant id: %w", err)
	}

	now := cfg.Now().UTC()
	claims := linkGrantClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        grantID,
		},
		OwnerID: ownerID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(cfg.SigningKey)
	if err != nil {
		return "", fmt.Errorf("sign link grant: %w", err)
	}
	return signed, nil
}

// ValidateLinkGrant verifies a link grant token against the expected owner.
func ValidateLinkGrant(grant, expectedOwnerID string, cfg LinkGrantConfig) (LinkGrantClaims, error) {
	grant = strings.TrimSpace(grant)
	if grant == "" {
		return LinkGrantClaims{}, apperrors.New(apperrors.CodeLinkGrantInvalid, "link grant is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Issuer == "" || cfg.Audience == "" || len(cfg.Key) != ed25519.PublicKeySize {
		return LinkGrantClaims{}, errors.New("link grant verifier is not configured")
	}

	var parsed linkGrantClaims
	_, err := jwt.ParseWithClaims(grant, &parsed, func(token *jwt.Token) (any, error) {
		return cfg.Key, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return LinkGrantClaims{}, mapJWTError(err)
	}

	if parsed.Issuer == "" || parsed.Issuer != cfg.Issuer {
		return LinkGrantClaims{}, apperrors.WithMetadata(
			apperrors.CodeLinkGrantMismatch,
			"link grant issuer mismatch",
			map[string]string{"Field": "issuer"},
		)
	}
	if !audienceContains(parsed.Audience, cfg.Audience) {
		return LinkGrantClaims{}, apperrors.WithMetadata(
			apperrors.CodeLinkGrantMismatch,
			"link grant audience mismatch",
			map[string]string{"Field": "audience"},
		)
	}

	if parsed.ID == "" {
		return LinkGrantClaims{}, apperrors.New(apperrors.CodeLinkGrantInvalid, "link grant jti is required")
	}
	if parsed.ExpiresAt == nil {
		return LinkGrantClaims{}, apperrors.New(apperrors.CodeLinkGrantInvalid, "link grant exp is required")
	}

	now := cfg.Now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(now) {
		return LinkGrantClaims{}, apperrors.New(apperrors.CodeLinkGrantExpired, "link grant is expired")
	}

	if strings.TrimSpace(parsed.OwnerID) == "" || parsed.OwnerID != expectedOwnerID {
		return LinkGrantClaims{}, apperrors.WithMetadata(
			apperrors.CodeLinkGrantMismatch,
			"link grant owner mismatch",
			map[string]string{"Field": "owner_id"},
		)
	}

	claims := LinkGrantClaims{
		Issuer:    parsed.Issuer,
		Audience:  []string(parsed.Audience),
		ExpiresAt: exp,
		JWTID:     parsed.ID,
		OwnerID:   parsed.OwnerID,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrEd25519Verification) {
		return apperrors.New(apperrors.CodeLinkGrantInvalid, "link grant signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeLinkGrantInvalid, "link grant alg is invalid")
	}
	return apperrors.New(apperrors.CodeLinkGrantInvalid, "link grant is invalid")
}

// audienceContains reports whether the audience list contains the given value.
func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}

func decodeBase64(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("empty base64 value")
	}
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}
