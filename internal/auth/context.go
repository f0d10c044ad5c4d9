package auth

import (
	"context"
	"net/http"
)

// The core never authenticates. An upstream gateway resolves the session
// and forwards the identity in headers; Middleware copies it onto the
// request context.

type ctxKey int

const (
	userIDKey ctxKey = iota
	roleKey
)

const (
	HeaderUserID = "X-User-Id"
	HeaderRole   = "X-User-Role"

	RoleAdmin = "admin"
)

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if uid := r.Header.Get(HeaderUserID); uid != "" {
			ctx = context.WithValue(ctx, userIDKey, uid)
		}
		if role := r.Header.Get(HeaderRole); role != "" {
			ctx = context.WithValue(ctx, roleKey, role)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

func IsAdmin(ctx context.Context) bool {
	v, ok := ctx.Value(roleKey).(string)
	return ok && v == RoleAdmin
}
