// Package auth はAzure Entra IDによるOAuth認証フローと
// Cookieベースのセッション管理を提供する。
package auth

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/tt1125/kacchi-navi/internal/model"
)

// SessionCookieName はセッションCookieの名前。
const SessionCookieName = "session_data"

// CookieSettings はセッションCookieの属性。
type CookieSettings struct {
	Secure bool
	Domain string
	MaxAge int
}

// EncodeSession はセッションをbase64エンコードしたJSONに変換する。
func EncodeSession(session *model.SessionData) (string, error) {
	raw, err := json.Marshal(session)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeSession はCookie値からセッションを復元する。
// 復元できない場合は空のセッションを返す（エラーにしない）。
func DecodeSession(value string) *model.SessionData {
	session := &model.SessionData{}
	if value == "" {
		return session
	}

	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return &model.SessionData{}
	}
	if err := json.Unmarshal(raw, session); err != nil {
		return &model.SessionData{}
	}
	return session
}

// SessionFromRequest はリクエストのCookieからセッションを復元する。
// Cookieが存在しない、または壊れている場合は空のセッションを返す。
func SessionFromRequest(r *http.Request) *model.SessionData {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return &model.SessionData{}
	}
	return DecodeSession(cookie.Value)
}

// WriteSessionCookie はセッションをCookieとしてレスポンスに書き込む。
func WriteSessionCookie(w http.ResponseWriter, session *model.SessionData, settings CookieSettings) error {
	encoded, err := EncodeSession(session)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    encoded,
		Path:     "/",
		Domain:   settings.Domain,
		MaxAge:   settings.MaxAge,
		HttpOnly: true,
		Secure:   settings.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearSessionCookie はセッションCookieを削除する。
func ClearSessionCookie(w http.ResponseWriter, settings CookieSettings) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   settings.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   settings.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
