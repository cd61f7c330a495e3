package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dronelink/dronelinkd/internal/config"
)

// VerifierConfig holds configuration for JWT verification.
type VerifierConfig struct {
	// RS256. Tokens carrying a kid are checked against the JWKS; the rest
	// against PublicKeyPEM.
	PublicKeyPEM        string
	JWKSURL             string
	JWKSRefreshInterval time.Duration

	// HS256
	SecretKey string

	// Algorithm is "RS256" or "HS256".
	Algorithm string
}

// Verifier checks bearer tokens and extracts their claims.
type Verifier struct {
	config    VerifierConfig
	publicKey *rsa.PublicKey
	jwks      *keySet
}

// NewVerifier creates a verifier for config.Algorithm.
func NewVerifier(config VerifierConfig) (*Verifier, error) {
	v := &Verifier{config: config}

	switch config.Algorithm {
	case "RS256":
		if config.PublicKeyPEM == "" && config.JWKSURL == "" {
			return nil, fmt.Errorf("RS256 requires a public key or a JWKS URL")
		}
		if config.PublicKeyPEM != "" {
			if err := v.loadPublicKeyFromPEM(config.PublicKeyPEM); err != nil {
				return nil, fmt.Errorf("failed to load public key from PEM: %w", err)
			}
		}
		if config.JWKSURL != "" {
			v.jwks = newKeySet(config.JWKSURL, config.JWKSRefreshInterval)
			if err := v.jwks.fetch(); err != nil {
				return nil, fmt.Errorf("failed to fetch initial JWKS: %w", err)
			}
		}
	case "HS256":
		if config.SecretKey == "" {
			return nil, fmt.Errorf("HS256 requires secret key")
		}
	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", config.Algorithm)
	}

	return v, nil
}

// FromConfig builds the verifier described by cfg. It returns nil when
// authentication is disabled. RS256 key sources take precedence over a secret.
func FromConfig(cfg config.AuthConfig) (*Verifier, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	if cfg.JWKSURL != "" || cfg.PublicKeyPath != "" {
		rs := VerifierConfig{
			Algorithm:           "RS256",
			JWKSURL:             cfg.JWKSURL,
			JWKSRefreshInterval: cfg.JWKSRefresh,
		}
		if cfg.PublicKeyPath != "" {
			data, err := os.ReadFile(cfg.PublicKeyPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read public key: %w", err)
			}
			rs.PublicKeyPEM = string(data)
		}
		return NewVerifier(rs)
	}
	return NewVerifier(VerifierConfig{Algorithm: "HS256", SecretKey: cfg.HMACSecret})
}

// VerifyToken verifies a JWT and returns its claims.
func (v *Verifier) VerifyToken(tokenString string) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwt.MapClaims{}, v.key,
		jwt.WithValidMethods([]string{v.config.Algorithm}))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	return extractClaims(*claims)
}

func (v *Verifier) key(token *jwt.Token) (interface{}, error) {
	switch v.config.Algorithm {
	case "RS256":
		if kid, ok := token.Header["kid"].(string); ok && v.jwks != nil {
			return v.jwks.key(kid)
		}
		if v.publicKey == nil {
			return nil, fmt.Errorf("no public key available")
		}
		return v.publicKey, nil
	case "HS256":
		return []byte(v.config.SecretKey), nil
	}
	return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
}

func extractClaims(claims jwt.MapClaims) (*Claims, error) {
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("missing or invalid 'sub' claim")
	}

	roles, err := stringSlice(claims, "roles")
	if err != nil {
		return nil, fmt.Errorf("missing or invalid 'roles' claim: %w", err)
	}
	scopes, err := stringSlice(claims, "scopes")
	if err != nil {
		return nil, fmt.Errorf("missing or invalid 'scopes' claim: %w", err)
	}

	if !allKnown(roles, RoleViewer, RolePilot) {
		return nil, fmt.Errorf("invalid roles: %v", roles)
	}
	if !allKnown(scopes, ScopeRead, ScopeCommand, ScopeTelemetry) {
		return nil, fmt.Errorf("invalid scopes: %v", scopes)
	}

	return &Claims{Subject: sub, Roles: roles, Scopes: scopes}, nil
}

func stringSlice(claims jwt.MapClaims, key string) ([]string, error) {
	value, ok := claims[key]
	if !ok {
		return nil, fmt.Errorf("missing claim: %s", key)
	}

	switch val := value.(type) {
	case []string:
		return val, nil
	case []interface{}:
		result := make([]string, len(val))
		for i, item := range val {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("invalid %s claim: not a string", key)
			}
			result[i] = str
		}
		return result, nil
	default:
		return nil, fmt.Errorf("invalid %s claim: not a string array", key)
	}
}

// allKnown reports whether values is non-empty and only holds entries of known.
func allKnown(values []string, known ...string) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		if !contains(known, v) {
			return false
		}
	}
	return true
}

func (v *Verifier) loadPublicKeyFromPEM(pemData string) error {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return fmt.Errorf("failed to decode PEM block")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return fmt.Errorf("failed to parse public key: %w", err)
	}

	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("not an RSA public key")
	}

	v.publicKey = rsaPub
	return nil
}
