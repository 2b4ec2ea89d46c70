// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tt1125/kacchi-navi/internal/auth"
	"github.com/tt1125/kacchi-navi/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// sessionContextKey はリクエストコンテキストにセッションを格納するためのキー。
var sessionContextKey = contextKey("session")

// NewSessionMiddleware はCookieからセッションを復元し、
// リクエストコンテキストに注入するミドルウェアを返す。
// Cookieが無い・壊れている場合も空のセッションを注入して処理を続ける。
// 認証の強制はNewRequireAuthMiddlewareが行う。
func NewSessionMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := auth.SessionFromRequest(r)
			ctx := context.WithValue(r.Context(), sessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewRequireAuthMiddleware はログイン済みセッションを要求するミドルウェアを返す。
// 未認証リクエストには401 Unauthorizedを統一エラーフォーマットで返す。
// NewSessionMiddlewareの後に配置する。
func NewRequireAuthMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := SessionFromContext(r.Context())
			if !session.Authenticated() {
				WriteAPIError(w, model.NewUnauthorizedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionFromContext はリクエストコンテキストからセッションを取得する。
// セッションミドルウェアを通過していない場合は空のセッションを返す。
func SessionFromContext(ctx context.Context) *model.SessionData {
	session, ok := ctx.Value(sessionContextKey).(*model.SessionData)
	if !ok || session == nil {
		return &model.SessionData{}
	}
	return session
}

// UserIDFromContext はリクエストコンテキストから認証済みユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (int64, error) {
	session := SessionFromContext(ctx)
	if !session.Authenticated() {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return session.UserID, nil
}

// ContextWithSession はコンテキストにセッションを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithSession(ctx context.Context, session *model.SessionData) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}
