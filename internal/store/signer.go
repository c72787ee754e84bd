package store

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/caldew/workdesk/internal/domain"
)

// SignedLink is a redeemed link token: which object to serve and which
// transform, if any, to apply on the way out.
type SignedLink struct {
	Path      string
	Transform string
}

type linkClaims struct {
	Path      string `json:"path"`
	Transform string `json:"transform,omitempty"`
	jwt.RegisteredClaims
}

// Signer mints and verifies time-limited object links. The token is
// the whole authorization, so handlers serving signed links skip
// session auth.
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

func (s *Signer) Sign(path, transform string, ttl time.Duration) (string, error) {
	claims := linkClaims{
		Path:      path,
		Transform: transform,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(s.now().Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign object link: %w", err)
	}
	return token, nil
}

// Verify parses the token and returns the link it grants. Expired or
// tampered tokens return domain.ErrLinkExpired.
func (s *Signer) Verify(token string) (SignedLink, error) {
	var claims linkClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil || !parsed.Valid {
		return SignedLink{}, domain.ErrLinkExpired
	}
	return SignedLink{Path: claims.Path, Transform: claims.Transform}, nil
}
