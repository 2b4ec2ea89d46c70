// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tt1125/kacchi-navi/internal/auth"
	"github.com/tt1125/kacchi-navi/internal/middleware"
	"github.com/tt1125/kacchi-navi/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// BeginLogin はstateを発行し、認可URLとstateを載せたセッションを返す。
	BeginLogin(postAuthRedirect string) (*model.SessionData, string, error)
	// HandleCallback は認可コードを交換し、ログイン済みセッションを返す。
	HandleCallback(ctx context.Context, session *model.SessionData, state, code string) (*model.SessionData, error)
	// LogoutURL はIdP側のログアウトURLを返す。
	LogoutURL(postLogoutRedirect string) string
}

// UserGetOrCreator はPOST /api/auth/loginで使用する最小限のインターフェース。
type UserGetOrCreator interface {
	GetOrCreate(ctx context.Context, uid, name, email string) (*model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	Cookies auth.CookieSettings
	// PostLogoutRedirect はIdPログアウト後の遷移先URL。
	PostLogoutRedirect string
}

// AuthHandler はAzure Entra ID認証関連のHTTPハンドラー。
// /api/auth は action クエリパラメータでログイン・コールバック・
// ログアウト・認証確認を振り分ける単一エンドポイント。
type AuthHandler struct {
	service AuthServiceInterface
	users   UserGetOrCreator
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, users UserGetOrCreator, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		users:   users,
		config:  config,
	}
}

// authCheckResponse は認証確認レスポンス。
type authCheckResponse struct {
	Authenticated bool             `json:"authenticated"`
	User          *authUserPayload `json:"user,omitempty"`
}

type authUserPayload struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	LoginTime int64  `json:"login_time"`
}

// directLoginRequest はIdPを経由しないログインリクエストのボディ。
type directLoginRequest struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// HandleAuth は認証アクションを振り分ける。
// GET /api/auth?action=login|callback|logout|check
func (h *AuthHandler) HandleAuth(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	if action == "" {
		action = "check"
	}

	switch action {
	case "login":
		h.login(w, r)
	case "callback":
		h.callback(w, r)
	case "logout":
		h.logout(w, r)
	case "check":
		h.check(w, r)
	default:
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewInvalidRequestError("不明なactionです"))
	}
}

// login はOAuthフローを開始し、IdPの認可エンドポイントへリダイレクトする。
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	redirect := r.URL.Query().Get("redirect")
	if redirect == "" {
		redirect = "/"
	}

	session, loginURL, err := h.service.BeginLogin(redirect)
	if err != nil {
		slog.Error("failed to begin login", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	if err := auth.WriteSessionCookie(w, session, h.config.Cookies); err != nil {
		slog.Error("failed to write session cookie", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	http.Redirect(w, r, loginURL, http.StatusFound)
}

// callback は認可コードをトークンに交換し、ログイン済みセッションをCookieに書き込む。
func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	session := auth.SessionFromRequest(r)

	newSession, err := h.service.HandleCallback(r.Context(), session, state, code)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	if err := auth.WriteSessionCookie(w, newSession, h.config.Cookies); err != nil {
		slog.Error("failed to write session cookie", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	http.Redirect(w, r, newSession.PostAuthRedirect, http.StatusFound)
}

// logout はセッションCookieを破棄し、IdPのログアウトエンドポイントへリダイレクトする。
func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.config.Cookies)
	http.Redirect(w, r, h.service.LogoutURL(h.config.PostLogoutRedirect), http.StatusFound)
}

// check はセッションの認証状態を返す。
func (h *AuthHandler) check(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if !session.Authenticated() {
		writeJSON(w, http.StatusUnauthorized, authCheckResponse{Authenticated: false})
		return
	}

	writeJSON(w, http.StatusOK, authCheckResponse{
		Authenticated: true,
		User: &authUserPayload{
			ID:        session.UserID,
			Username:  session.Username,
			Email:     session.Email,
			LoginTime: session.LoginTime,
		},
	})
}

// DirectLogin はUID指定でユーザーを取得または作成する。
// POST /api/auth/login
func (h *AuthHandler) DirectLogin(w http.ResponseWriter, r *http.Request) {
	var req directLoginRequest
	if err := decodeJSONBody(r, &req); err != nil {
		middleware.WriteAPIError(w, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	if req.UID == "" || req.Name == "" {
		middleware.WriteAPIError(w, model.NewInvalidRequestError("uidとnameは必須です"))
		return
	}

	user, err := h.users.GetOrCreate(r.Context(), req.UID, req.Name, req.Email)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Name: user.Name})
}
