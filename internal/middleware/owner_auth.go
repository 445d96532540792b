package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"story-maker/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ownerIDKey is the echo.Context key holding the authenticated owner id.
const ownerIDKey = "ownerID"

// JWTVerifier checks HMAC-signed tokens whose subject is the owner id.
type JWTVerifier struct {
	secret []byte
	logger *zap.Logger
}

// NewJWTVerifier creates a verifier. The secret must not be empty.
func NewJWTVerifier(secret string, logger *zap.Logger) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("JWT secret cannot be empty")
	}
	return &JWTVerifier{secret: []byte(secret), logger: logger.Named("JWTVerifier")}, nil
}

// VerifyToken returns the subject of a valid token.
func (v *JWTVerifier) VerifyToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		v.logger.Debug("Token rejected", zap.Error(err))
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", models.ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", models.ErrTokenInvalid, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("%w: subject missing", models.ErrTokenInvalid)
	}
	return claims.Subject, nil
}

// OwnerAuth attaches the owner id from a bearer token. Ownership is advisory:
// requests without a token pass through anonymously, while a present but
// invalid token is rejected with 401. A nil verifier disables the check.
func OwnerAuth(v *JWTVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if v == nil || header == "" {
				return next(c)
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "malformed Authorization header", "code": "unauthorized"})
			}
			owner, err := v.VerifyToken(parts[1])
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, models.ErrTokenExpired) {
					msg = "token expired"
				}
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": msg, "code": "unauthorized"})
			}
			c.Set(ownerIDKey, owner)
			return next(c)
		}
	}
}

// OwnerID returns the owner attached by OwnerAuth, or "".
func OwnerID(c echo.Context) string {
	owner, _ := c.Get(ownerIDKey).(string)
	return owner
}
