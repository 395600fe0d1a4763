package utils // package utils provides helpers for minting access tokens

import (
    "errors"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of an access token.  The subject is the caller's
// identifier; Role drives authorisation (CUSTOMER or ADMIN).
type Claims struct {
    Role string `json:"role"`
    jwt.RegisteredClaims
}

// AccessToken is a signed JWT together with its expiry.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// NewAccessToken signs an HS256 JWT for subject with role, valid for ttl.
// Accounts live in an external identity service; this helper exists so
// operators and tests can mint tokens with the shared secret.
func NewAccessToken(secret, subject, role string, ttl time.Duration) (AccessToken, error) {
    if secret == "" || subject == "" || role == "" {
        return AccessToken{}, errors.New("secret, subject and role are required")
    }
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims := Claims{
        Role: role,
        RegisteredClaims: jwt.RegisteredClaims{
            Subject:   subject,
            IssuedAt:  jwt.NewNumericDate(now),
            ExpiresAt: jwt.NewNumericDate(exp),
        },
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies raw with secret and returns its claims.  Only
// HS256 tokens are accepted.
func ParseAccessToken(secret, raw string) (*Claims, error) {
    claims := &Claims{}
    tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
        return []byte(secret), nil
    }, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
    if err != nil {
        return nil, err
    }
    if !tok.Valid || claims.Subject == "" {
        return nil, errors.New("invalid token")
    }
    return claims, nil
}
