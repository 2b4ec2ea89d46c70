package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tt1125/kacchi-navi/internal/metrics"
	"github.com/tt1125/kacchi-navi/internal/middleware"
	"github.com/tt1125/kacchi-navi/internal/model"
)

// HealthChecker はヘルスチェックでDB接続の生存確認を行うインターフェース。
// *sql.DBがそのまま満たす。
type HealthChecker interface {
	Ping() error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	HealthChecker     HealthChecker
	MetricsHandler    http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig
	UserCreator UserGetOrCreator

	// 講義・シラバス
	LectureService LectureServiceInterface

	// チャット
	ChatService ChatServiceInterface
	ChatConfig  ChatHandlerConfig
	Metrics     metrics.MetricsCollector

	// 時間割
	TimetableService TimetableServiceInterface

	// ユーザー
	UserService UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → CORS → SecurityHeaders → Session → Logging → Recovery
//
// セッションは常に注入のみ行い、認証必須ルートはRequireAuthミドルウェアで保護する。
// ログのuser_id属性はセッション注入後のコンテキストを前提とする。
// チャットルートにはユーザー単位のレート制限を追加で適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewSessionMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewRecoveryMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.UserCreator, deps.AuthConfig)
	lectureHandler := NewLectureHandler(deps.LectureService)
	chatHandler := NewChatHandler(deps.ChatService, deps.Metrics, deps.ChatConfig)
	timetableHandler := NewTimetableHandler(deps.TimetableService)
	userHandler := NewUserHandler(deps.UserService)

	// --- 認証不要のルート ---

	// ヘルスチェック
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.Ping(); err != nil {
				middleware.WriteErrorResponse(w, http.StatusServiceUnavailable, &model.APIError{
					Code:     "UNHEALTHY",
					Message:  "データベースに接続できません。",
					Category: "system",
					Action:   "しばらく待ってから再度お試しください。",
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Prometheusメトリクス
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// 認証（OAuthフローと直接ログイン）
	r.Get("/api/auth", authHandler.HandleAuth)
	r.Post("/api/auth/login", authHandler.DirectLogin)

	// 講義検索・シラバス
	r.Get("/api/lectures", lectureHandler.SearchLectures)
	r.Get("/api/available-lectures", lectureHandler.AvailableLectures)
	r.Get("/api/syllabuses/{code}", lectureHandler.GetSyllabusHTML)

	// チャット（レート制限付き）
	if deps.RateLimiter != nil {
		r.With(deps.RateLimiter.ChatMiddleware()).Post("/api/chat", chatHandler.Chat)
		r.With(deps.RateLimiter.ChatMiddleware()).Post("/api/chat/sse", chatHandler.ChatSSE)
	} else {
		r.Post("/api/chat", chatHandler.Chat)
		r.Post("/api/chat/sse", chatHandler.ChatSSE)
	}

	// ユーザー・時間割の参照
	r.Get("/api/users", userHandler.ListUsers)
	r.Get("/api/users/{id}/timetable", timetableHandler.GetTimetable)
	r.Get("/api/timetables/{id}", timetableHandler.GetTimetable)

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewRequireAuthMiddleware())

		// 時間割の更新
		r.Post("/api/timetables/{id}/lectures", timetableHandler.AddLecture)
		r.Post("/api/timetables/{id}/lectures/remove", timetableHandler.RemoveLecture)
		r.Delete("/api/timetables/{id}", timetableHandler.ClearTimetable)

		// 退会
		r.Delete("/api/users/{id}", userHandler.DeleteUser)
	})

	return r
}
