package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that fail verification
var ErrInvalidToken = errors.New("invalid token")

// Claims carried by bearer tokens
type Claims struct {
	PreferredUsername string   `json:"preferred_username"`
	Roles             []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HMAC signed bearer tokens and maps their roles onto capabilities
type Verifier struct {
	secret    []byte
	readRole  string
	adminRole string
}

// NewVerifier creates a verifier. readRole and adminRole name the token roles
// that grant CapabilityRead and CapabilityAdmin.
func NewVerifier(secret, readRole, adminRole string) *Verifier {
	return &Verifier{
		secret:    []byte(secret),
		readRole:  readRole,
		adminRole: adminRole,
	}
}

// Verify parses token and returns the caller it identifies
func (v *Verifier) Verify(token string) (Caller, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return Anonymous, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return Anonymous, ErrInvalidToken
	}

	username := claims.PreferredUsername
	if username == "" {
		username = claims.Subject
	}
	if username == "" {
		return Anonymous, fmt.Errorf("%w: no username claim", ErrInvalidToken)
	}

	return Caller{
		Username:     username,
		Capabilities: v.capabilities(claims.Roles),
	}, nil
}

// Issue signs a token for username holding roles, valid for ttl
func (v *Verifier) Issue(username string, roles []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		PreferredUsername: username,
		Roles:             roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

func (v *Verifier) capabilities(roles []string) []Capability {
	var caps []Capability
	for _, role := range roles {
		switch role {
		case v.readRole:
			caps = append(caps, CapabilityRead)
		case v.adminRole:
			caps = append(caps, CapabilityAdmin)
		}
	}
	return caps
}
