package middleware

import (
	"fmt"
	"net/http"
	"strings"

	apperrors "proposal-ranker/errors"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// UserIDKey is the gin context key holding the authenticated user id.
const UserIDKey = "userID"

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Email  string
}

// Authenticator verifies a bearer token.
type Authenticator interface {
	Authenticate(token string) (Principal, error)
}

type userClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTAuthenticator validates HS256 tokens signed with a shared secret.
type JWTAuthenticator struct {
	secret []byte
}

func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret)}
}

func (a *JWTAuthenticator) Authenticate(token string) (Principal, error) {
	if len(a.secret) == 0 {
		return Principal{}, fmt.Errorf("%w: JWT secret not configured", apperrors.ErrUnauthorized)
	}

	parsed, err := jwt.ParseWithClaims(token, &userClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err)
	}

	claims, ok := parsed.Claims.(*userClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return Principal{}, fmt.Errorf("%w: invalid claims", apperrors.ErrUnauthorized)
	}
	return Principal{UserID: claims.Subject, Email: claims.Email}, nil
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(auth Authenticator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		principal, err := auth.Authenticate(token)
		if err != nil {
			if logger != nil {
				logger.Debug("Rejected bearer token", zap.Error(err))
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(UserIDKey, principal.UserID)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
