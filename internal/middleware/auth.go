package middleware

import (
	"context"
	"net/http"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
)

type contextKey int

const (
	userIDKey contextKey = iota
	userSlotKey
)

// WithUserID stores the authenticated user's id on ctx.
func WithUserID(ctx context.Context, id int) context.Context {
	if slot, ok := ctx.Value(userSlotKey).(*int); ok {
		*slot = id
	}
	return context.WithValue(ctx, userIDKey, id)
}

// withUserSlot lets an outer middleware observe the id once auth has run.
func withUserSlot(ctx context.Context, slot *int) context.Context {
	return context.WithValue(ctx, userSlotKey, slot)
}

// UserIDFromContext returns the id set by RequireAuth.
func UserIDFromContext(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(userIDKey).(int)
	return id, ok
}

type AuthMiddleware struct {
	jwtSecret []byte
}

func NewAuthMiddleware(secret []byte) *AuthMiddleware {
	return &AuthMiddleware{jwtSecret: secret}
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		token, err := jwt.Parse(strings.TrimPrefix(authz, "Bearer "), func(token *jwt.Token) (any, error) {
			return m.jwtSecret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			http.Error(w, "invalid claims", http.StatusUnauthorized)
			return
		}
		// JSON numbers decode as float64.
		sub, ok := claims["sub"].(float64)
		if !ok || sub <= 0 {
			http.Error(w, "invalid subject", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), int(sub))))
	})
}
