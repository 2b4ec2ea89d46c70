// Package generation はGemini生成APIのクライアントとリトライ戦略を提供する。
package generation

import (
	"strings"
	"time"
)

// FailureKind は生成API呼び出し失敗の分類。
type FailureKind int

const (
	// FailureNone は失敗なし（200）。
	FailureNone FailureKind = iota
	// FailureRateLimited は使用量制限（429またはquota/limitを含むエラー本文）。
	// リトライせず即座に呼び出し元へ返す。
	FailureRateLimited
	// FailureUpstream はその他の非200応答。リトライしない。
	FailureUpstream
	// FailureTransient はタイムアウトや接続エラー。指数バックオフでリトライする。
	FailureTransient
)

// ClassifyResponse はHTTPステータスとエラー本文から失敗を分類する。
// 429、またはエラーメッセージにquota/limitを含む場合は使用量制限として扱う。
func ClassifyResponse(statusCode int, errorMessage string) FailureKind {
	if statusCode == 200 {
		return FailureNone
	}
	lower := strings.ToLower(errorMessage)
	if statusCode == 429 || strings.Contains(lower, "quota") || strings.Contains(lower, "limit") {
		return FailureRateLimited
	}
	return FailureUpstream
}

// CalculateBackoff は試行回数に基づく指数バックオフ遅延を計算する。
// 1回目の失敗後1秒、2回目2秒、以降2倍ずつ。
func CalculateBackoff(attempt int) time.Duration {
	delay := time.Second
	for i := 0; i < attempt; i++ {
		delay *= 2
	}
	return delay
}
