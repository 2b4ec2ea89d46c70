// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// UIDは外部IdP（Azure Entra ID）のsubクレームに対応する不透明な識別子。
type User struct {
	ID        int64
	UID       string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionData はCookieに載せるセッション情報を表す。
// base64エンコードしたJSONとしてsession_data Cookieに格納される。
// フィールド名と形式は既存フロントエンドとの互換契約。
type SessionData struct {
	UserID           int64  `json:"user_id,omitempty"`
	Username         string `json:"username,omitempty"`
	Email            string `json:"email,omitempty"`
	LoggedIn         bool   `json:"logged_in,omitempty"`
	LoginTime        int64  `json:"login_time,omitempty"`
	OAuthState       string `json:"oauth_state,omitempty"`
	PostAuthRedirect string `json:"post_auth_redirect,omitempty"`
	AccessToken      string `json:"access_token,omitempty"`
}

// Authenticated はセッションがログイン済み状態かを返す。
func (s *SessionData) Authenticated() bool {
	return s != nil && s.LoggedIn && s.UserID != 0
}
