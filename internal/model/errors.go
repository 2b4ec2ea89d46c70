// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, chat, timetable, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeLectureNotFound     = "LECTURE_NOT_FOUND"
	ErrCodeSyllabusNotFound    = "SYLLABUS_NOT_FOUND"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeTimetableNotFound   = "TIMETABLE_NOT_FOUND"
	ErrCodeInvalidSlot         = "INVALID_SLOT"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeOAuthStateMismatch  = "OAUTH_STATE_MISMATCH"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeUpstreamTimeout     = "UPSTREAM_TIMEOUT"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamError       = "UPSTREAM_ERROR"
	ErrCodeMalformedResponse   = "MALFORMED_RESPONSE"
	ErrCodeMissingCredential   = "MISSING_CREDENTIAL"
)

// NewLectureNotFoundError は講義未検出エラーを生成する。
func NewLectureNotFoundError(code string) *APIError {
	return &APIError{
		Code:     ErrCodeLectureNotFound,
		Message:  fmt.Sprintf("指定された講義が見つかりません: %s", code),
		Category: "timetable",
		Action:   "講義コードを確認してください。",
	}
}

// NewSyllabusNotFoundError はシラバス未検出エラーを生成する。
func NewSyllabusNotFoundError(code string) *APIError {
	return &APIError{
		Code:     ErrCodeSyllabusNotFound,
		Message:  fmt.Sprintf("指定されたシラバスが見つかりません: %s", code),
		Category: "timetable",
		Action:   "講義コードを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewInvalidSlotError は無効な時間割コマ指定のエラーを生成する。
func NewInvalidSlotError(day, period int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSlot,
		Message:  fmt.Sprintf("無効なコマ指定です: 曜日=%d, 時限=%d", day, period),
		Category: "validation",
		Action:   "曜日は1〜5（月〜金）、時限は1〜6の範囲で指定してください。",
	}
}

// NewInvalidRequestError はリクエスト形式が不正な場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "ログインが必要です。",
		Category: "auth",
		Action:   "ログインしてから再度お試しください。",
	}
}

// NewForbiddenError は他ユーザーのリソースへのアクセスエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "このリソースへのアクセス権限がありません。",
		Category: "auth",
		Action:   "自分のアカウントのリソースのみ操作できます。",
	}
}

// NewOAuthStateMismatchError はOAuth stateの不一致エラーを生成する。
func NewOAuthStateMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodeOAuthStateMismatch,
		Message:  "認証フローの検証に失敗しました。",
		Category: "auth",
		Action:   "ログインを最初からやり直してください。",
	}
}

// NewRateLimitedError は外部APIのレート制限エラーを生成する。
func NewRateLimitedError(service string) *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  fmt.Sprintf("%s のレート制限に達しました。", service),
		Category: "chat",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUpstreamTimeoutError は外部APIのタイムアウトエラーを生成する。
func NewUpstreamTimeoutError(service string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamTimeout,
		Message:  fmt.Sprintf("%s への接続がタイムアウトしました。", service),
		Category: "chat",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUpstreamUnavailableError は外部APIへの接続失敗エラーを生成する。
func NewUpstreamUnavailableError(service string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamUnavailable,
		Message:  fmt.Sprintf("%s に接続できませんでした。", service),
		Category: "chat",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUpstreamError は外部APIの呼び出し失敗エラーを生成する。
func NewUpstreamError(service string, status int) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamError,
		Message:  fmt.Sprintf("%s の呼び出しに失敗しました (status=%d)。", service, status),
		Category: "chat",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewMalformedResponseError は外部APIの応答形式が想定外だった場合のエラーを生成する。
func NewMalformedResponseError(service string) *APIError {
	return &APIError{
		Code:     ErrCodeMalformedResponse,
		Message:  fmt.Sprintf("%s の応答を解釈できませんでした。", service),
		Category: "chat",
		Action:   "時間をおいて再度お試しください。",
	}
}

// NewMissingCredentialError はAPIキー等の資格情報が未設定の場合のエラーを生成する。
func NewMissingCredentialError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingCredential,
		Message:  fmt.Sprintf("必要な資格情報が設定されていません: %s", name),
		Category: "system",
		Action:   "サーバーの環境変数設定を確認してください。",
	}
}
