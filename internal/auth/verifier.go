package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that fail validation for any reason.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated caller resolved from a token.
type Identity struct {
	UserID   string
	Username string
}

// Claims is the token payload minted by the auth service.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenVerifier resolves a bearer token to an identity.
type TokenVerifier interface {
	Verify(token string) (Identity, error)
}

// Verifier validates HS256 JWTs issued by the auth service using a shared
// secret. It plays the role of the external authentication collaborator:
// tokens are minted elsewhere, this service only checks them.
type Verifier struct {
	secret []byte
}

// NewVerifier constructs a Verifier.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates the signature and expiration of a JWT string.
func (v *Verifier) Verify(token string) (Identity, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Username == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: claims.Subject, Username: claims.Username}, nil
}
