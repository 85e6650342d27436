// internal/middleware/user.go
package middleware

import (
	"context"
	"net/http"

	"voice_kani/internal/config"
)

type userCtxKey struct{}

// UserContextMiddleware は X-User-ID ヘッダーからユーザーIDを抽出し、コンテキストに設定します。
// 認証は行いません。ヘッダーが無い場合は設定のデフォルトユーザーにフォールバックします。
func UserContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			userID = config.Cfg.App.DefaultUserID
		}
		ctx := context.WithValue(r.Context(), userCtxKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID はコンテキストからユーザーIDを取得します。
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(userCtxKey{}).(string); ok && userID != "" {
		return userID
	}
	return config.Cfg.App.DefaultUserID
}
