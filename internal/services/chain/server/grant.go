package server

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/louisbranch/cairn/internal/platform/errors"
)

// grantEnv holds raw env values before post-parse validation.
type grantEnv struct {
	Issuer    string `env:"CAIRN_PRODUCER_GRANT_ISSUER"`
	Audience  string `env:"CAIRN_PRODUCER_GRANT_AUDIENCE"`
	PublicKey string `env:"CAIRN_PRODUCER_GRANT_PUBLIC_KEY"`
}

// GrantConfig defines how producer grants are verified. A zero Key leaves
// block submission ungated.
type GrantConfig struct {
	Issuer   string
	Audience string
	Key      ed25519.PublicKey
	Now      func() time.Time
}

func (c GrantConfig) enabled() bool {
	return len(c.Key) > 0
}

// ProducerGrantClaims captures validated producer grant claims.
type ProducerGrantClaims struct {
	Issuer      string
	Audience    []string
	Subject     string
	ExpiresAt   time.Time
	NotBefore   time.Time
	IssuedAt    time.Time
	JWTID       string
	GenesisHash string
}

// producerGrantClaims is the internal claims type used for JWT parsing.
type producerGrantClaims struct {
	jwt.RegisteredClaims
	GenesisHash string `json:"genesis_hash"`
}

// LoadGrantConfigFromEnv reads producer grant verification configuration.
// Leaving all three variables unset disables grant checks; setting only
// some of them is an error.
func LoadGrantConfigFromEnv(now func() time.Time) (GrantConfig, error) {
	var raw grantEnv
	if err := env.Parse(&raw); err != nil {
		return GrantConfig{}, fmt.Errorf("parse producer grant env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	publicKey := strings.TrimSpace(raw.PublicKey)
	if issuer == "" && audience == "" && publicKey == "" {
		return GrantConfig{}, nil
	}
	if issuer == "" {
		return GrantConfig{}, fmt.Errorf("CAIRN_PRODUCER_GRANT_ISSUER is required")
	}
	if audience == "" {
		return GrantConfig{}, fmt.Errorf("CAIRN_PRODUCER_GRANT_AUDIENCE is required")
	}
	if publicKey == "" {
		return GrantConfig{}, fmt.Errorf("CAIRN_PRODUCER_GRANT_PUBLIC_KEY is required")
	}
	keyBytes, err := decodeBase64(publicKey)
	if err != nil {
		return GrantConfig{}, fmt.Errorf("decode producer grant public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return GrantConfig{}, fmt.Errorf("producer grant public key must be %d bytes", ed25519.PublicKeySize)
	}
	if now == nil {
		now = time.Now
	}
	return GrantConfig{
		Issuer:   issuer,
		Audience: audience,
		Key:      ed25519.PublicKey(keyBytes),
		Now:      now,
	}, nil
}

// ValidateProducerGrant verifies a producer grant token and checks that it
// was minted for the chain identified by genesisHash.
func ValidateProducerGrant(grant string, genesisHash string, cfg GrantConfig) (ProducerGrantClaims, error) {
	grant = strings.TrimSpace(grant)
	if grant == "" {
		return ProducerGrantClaims{}, apperrors.New(apperrors.CodeGrantInvalid, "producer grant is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Issuer == "" || cfg.Audience == "" || len(cfg.Key) != ed25519.PublicKeySize {
		return ProducerGrantClaims{}, errors.New("producer grant verifier is not configured")
	}

	var parsed producerGrantClaims
	_, err := jwt.ParseWithClaims(grant, &parsed, func(token *jwt.Token) (any, error) {
		return cfg.Key, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return ProducerGrantClaims{}, mapJWTError(err)
	}

	if parsed.Issuer == "" || parsed.Issuer != cfg.Issuer {
		return ProducerGrantClaims{}, apperrors.WithMetadata(
			apperrors.CodeGrantMismatch,
			"producer grant issuer mismatch",
			map[string]string{"Field": "issuer"},
		)
	}
	if !audienceContains(parsed.Audience, cfg.Audience) {
		return ProducerGrantClaims{}, apperrors.WithMetadata(
			apperrors.CodeGrantMismatch,
			"producer grant audience mismatch",
			map[string]string{"Field": "audience"},
		)
	}

	if parsed.ID == "" {
		return ProducerGrantClaims{}, apperrors.New(apperrors.CodeGrantInvalid, "producer grant jti is required")
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return ProducerGrantClaims{}, apperrors.New(apperrors.CodeGrantInvalid, "producer grant sub is required")
	}
	if parsed.ExpiresAt == nil {
		return ProducerGrantClaims{}, apperrors.New(apperrors.CodeGrantInvalid, "producer grant exp is required")
	}

	now := cfg.Now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(now) {
		return ProducerGrantClaims{}, apperrors.New(apperrors.CodeGrantExpired, "producer grant is expired")
	}
	if parsed.NotBefore != nil {
		nbf := parsed.NotBefore.Time.UTC()
		if now.Before(nbf) {
			return ProducerGrantClaims{}, apperrors.New(apperrors.CodeGrantInvalid, "producer grant not active yet")
		}
	}

	if strings.TrimSpace(parsed.GenesisHash) == "" || parsed.GenesisHash != genesisHash {
		return ProducerGrantClaims{}, apperrors.WithMetadata(
			apperrors.CodeGrantMismatch,
			"producer grant genesis mismatch",
			map[string]string{"Field": "genesis_hash"},
		)
	}

	claims := ProducerGrantClaims{
		Issuer:      parsed.Issuer,
		Audience:    []string(parsed.Audience),
		Subject:     strings.TrimSpace(parsed.Subject),
		ExpiresAt:   exp,
		JWTID:       parsed.ID,
		GenesisHash: parsed.GenesisHash,
	}
	if parsed.NotBefore != nil {
		claims.NotBefore = parsed.NotBefore.Time.UTC()
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrEd25519Verification) {
		return apperrors.New(apperrors.CodeGrantInvalid, "producer grant signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeGrantInvalid, "producer grant alg is invalid")
	}
	return apperrors.New(apperrors.CodeGrantInvalid, "producer grant is invalid")
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
