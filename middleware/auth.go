package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const userContextKey contextKey = "user"

const (
	jwtClaimUserID      = "user_id"
	jwtClaimManageGroup = "manage_group"
)

// Authenticator validates bridge-issued bearer tokens and stores the claims
// in the request context. Tokens carry the acting chat user's identity and
// the group-management capability the bridge resolved for them.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.secret, nil
		})
		if err != nil || !token.Valid {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetUserIDFromContext(ctx context.Context) (int64, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return 0, errors.New("user claims not found in context or invalid type")
	}

	userIDClaim, ok := claims[jwtClaimUserID]
	if !ok {
		return 0, fmt.Errorf("missing '%s' claim in token", jwtClaimUserID)
	}

	// Snowflake IDs exceed float64 integer precision, so well-behaved
	// issuers send them as strings; numeric claims are still accepted.
	switch v := userIDClaim.(type) {
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return 0, fmt.Errorf("invalid user ID value in '%s' claim: %q", jwtClaimUserID, v)
		}
		return id, nil
	case float64:
		id := int64(v)
		if v != float64(id) || id <= 0 {
			return 0, fmt.Errorf("invalid user ID value in '%s' claim: %f", jwtClaimUserID, v)
		}
		return id, nil
	default:
		return 0, fmt.Errorf("invalid type for '%s' claim: expected string or number, got %T", jwtClaimUserID, userIDClaim)
	}
}

// GetManageGroupFromContext reports whether the token grants the
// group-management capability. A missing claim means no capability.
func GetManageGroupFromContext(ctx context.Context) (bool, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return false, errors.New("user claims not found in context or invalid type")
	}

	manageClaim, ok := claims[jwtClaimManageGroup]
	if !ok {
		return false, nil
	}
	manage, ok := manageClaim.(bool)
	if !ok {
		return false, fmt.Errorf("invalid type for '%s' claim: expected bool, got %T", jwtClaimManageGroup, manageClaim)
	}
	return manage, nil
}
