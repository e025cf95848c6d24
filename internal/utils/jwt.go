package utils // package utils mints access tokens for the admin API

import (
    "strconv"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

// AccessToken is a signed JWT together with its expiry.
type AccessToken struct {
    Token string
    Exp   time.Time
}

// Claims is the payload of an access token.  The subject is the directory
// user id in decimal.
type Claims struct {
    Role string `json:"role"`
    jwt.RegisteredClaims
}

// NewAccessToken builds and signs an HS256 JWT carrying the subject userID
// and role, valid for ttl.
func NewAccessToken(secret string, userID uint64, role string, ttl time.Duration) (AccessToken, error) {
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims := Claims{
        Role: role,
        RegisteredClaims: jwt.RegisteredClaims{
            Subject:   strconv.FormatUint(userID, 10),
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
