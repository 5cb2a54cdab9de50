package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/campusledger/backend/internal/services"
)

type contextKey string

const actorKey contextKey = "actor"

// WithActor returns a copy of ctx carrying the acting user.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the acting user, or fallback when none was set.
func ActorFromContext(ctx context.Context, fallback string) string {
	if actor, ok := ctx.Value(actorKey).(string); ok && actor != "" {
		return actor
	}
	return fallback
}

// ActorAuth verifies the bearer token and stores its user_id claim as the
// actor. With an empty secret every request passes through unauthenticated
// and handlers fall back to the system actor.
func ActorAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				services.SendCodedErrorResponse(w, "Authorization header required", http.StatusUnauthorized, "UNAUTHORIZED", nil)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				services.SendCodedErrorResponse(w, "Invalid authorization header format", http.StatusUnauthorized, "UNAUTHORIZED", nil)
				return
			}

			actor, err := validateToken(parts[1], secret)
			if err != nil {
				services.SendCodedErrorResponse(w, "Invalid token", http.StatusUnauthorized, "UNAUTHORIZED", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func validateToken(tokenString, secret string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("token is not valid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("unexpected claims type")
	}

	if userID, ok := claims["user_id"]; ok && userID != nil {
		return fmt.Sprintf("%v", userID), nil
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub, nil
	}
	return "", errors.New("token has no user_id or sub claim")
}
