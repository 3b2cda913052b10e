// Package auth verifies session tokens minted by the identity service.
package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lexora-inc/lexora/internal/shared/biztime"
	"github.com/lexora-inc/lexora/internal/shared/config"
)

var (
	ErrMissingOrganization = errors.New("token carries no organization")
	ErrMissingSubject      = errors.New("token carries no subject")
)

// Principal is the caller identified by a verified token.
type Principal struct {
	UserID         string
	OrganizationID string
	Email          string
	Name           string
	Roles          []string
	ExpiresAt      time.Time
}

type JWTService struct {
	secret       []byte
	publicKey    *rsa.PublicKey
	issuer       string
	audience     string
	orgClaim     string
	orgRoleClaim string
	leeway       time.Duration
}

// NewJWTService prefers RS256 when a public key is configured, otherwise HS256.
func NewJWTService(cfg config.JWTConfig) (*JWTService, error) {
	s := &JWTService{
		issuer:       cfg.Issuer,
		audience:     cfg.Audience,
		orgClaim:     cfg.OrgClaim,
		orgRoleClaim: cfg.OrgRoleClaim,
		leeway:       time.Duration(cfg.LeewaySeconds) * time.Second,
	}
	if s.orgClaim == "" {
		s.orgClaim = "org_id"
	}

	if strings.TrimSpace(cfg.PublicKeyPEM) != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("failed to parse jwt public key: %w", err)
		}
		s.publicKey = key
		return s, nil
	}

	if cfg.Secret == "" {
		return nil, errors.New("jwt secret or public key is required")
	}
	s.secret = []byte(cfg.Secret)
	return s, nil
}

func (s *JWTService) Verify(tokenString string) (*Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithLeeway(s.leeway),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(biztime.NowUTC),
	}
	if s.publicKey != nil {
		opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	} else {
		opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if s.publicKey != nil {
			return s.publicKey, nil
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	sub, _ := claims.GetSubject()
	if sub == "" {
		return nil, ErrMissingSubject
	}
	org, _ := claims[s.orgClaim].(string)
	if org == "" {
		return nil, ErrMissingOrganization
	}

	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	p := &Principal{
		UserID:         sub,
		OrganizationID: org,
		Email:          email,
		Name:           name,
		Roles:          rolesFrom(claims[s.orgRoleClaim]),
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		p.ExpiresAt = exp.Time
	}
	return p, nil
}

// Issue signs an HS256 token. It is used by the dev tooling and tests; the
// identity service issues production tokens.
func (s *JWTService) Issue(p Principal, ttl time.Duration) (string, error) {
	if s.secret == nil {
		return "", errors.New("token issuing requires an hs256 secret")
	}

	now := biztime.NowUTC()
	claims := jwt.MapClaims{
		"sub":      p.UserID,
		s.orgClaim: p.OrganizationID,
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
	}
	if p.Email != "" {
		claims["email"] = p.Email
	}
	if p.Name != "" {
		claims["name"] = p.Name
	}
	if s.issuer != "" {
		claims["iss"] = s.issuer
	}
	if s.audience != "" {
		claims["aud"] = s.audience
	}
	if s.orgRoleClaim != "" && len(p.Roles) > 0 {
		claims[s.orgRoleClaim] = p.Roles
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// rolesFrom accepts a single role string or a list of them.
func rolesFrom(v any) []string {
	switch r := v.(type) {
	case string:
		if r == "" {
			return nil
		}
		return []string{r}
	case []any:
		out := make([]string, 0, len(r))
		for _, item := range r {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return r
	}
	return nil
}
