package security

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TypeDevice = "device"
	TypeUser   = "user"
)

// DeviceClaims binds a station session credential to one station of one
// company. A station carries this on every request and on the real-time
// handshake.
type DeviceClaims struct {
	StationID int32  `json:"stationId"`
	CompanyID int32  `json:"companyId"`
	Type      string `json:"type"`
	jwt.RegisteredClaims
}

// UserClaims binds an administrator session to a user, company and role.
// Unlike device credentials these are not subject to single-slot
// exclusivity.
type UserClaims struct {
	UserID    int32  `json:"userId"`
	CompanyID int32  `json:"companyId"`
	Role      string `json:"role"`
	Type      string `json:"type"`
	jwt.RegisteredClaims
}

// DecodeSecret decodes the base64 signing secret from configuration.
func DecodeSecret(base64Secret string) ([]byte, error) {
	secret, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode jwt secret: %w", err)
	}
	return secret, nil
}

func CreateDeviceToken(stationID, companyID int32, secret []byte, ttl time.Duration) (string, error) {
	claims := DeviceClaims{
		StationID: stationID,
		CompanyID: companyID,
		Type:      TypeDevice,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "visitrack",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func CreateUserToken(userID, companyID int32, role string, secret []byte, ttl time.Duration) (string, error) {
	claims := UserClaims{
		UserID:    userID,
		CompanyID: companyID,
		Role:      role,
		Type:      TypeUser,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "visitrack",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func keyFunc(secret []byte) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	}
}

// ParseDeviceToken validates signature and expiry and returns the device
// claims. Tokens of any other type are rejected.
func ParseDeviceToken(tokenStr string, secret []byte) (*DeviceClaims, error) {
	var claims DeviceClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, keyFunc(secret))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Type != TypeDevice {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return &claims, nil
}

func ParseUserToken(tokenStr string, secret []byte) (*UserClaims, error) {
	var claims UserClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, keyFunc(secret))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Type != TypeUser {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return &claims, nil
}

// TokenType peeks at the type claim without trusting anything else about
// the token. The real-time handshake uses it to branch between the
// station-bound and admin-pending paths before full validation.
func TokenType(tokenStr string, secret []byte) string {
	var claims struct {
		Type string `json:"type"`
		jwt.RegisteredClaims
	}
	if _, err := jwt.ParseWithClaims(tokenStr, &claims, keyFunc(secret)); err != nil {
		return ""
	}
	return claims.Type
}
