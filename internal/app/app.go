package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/tt1125/kacchi-navi/internal/auth"
	"github.com/tt1125/kacchi-navi/internal/chat"
	"github.com/tt1125/kacchi-navi/internal/config"
	"github.com/tt1125/kacchi-navi/internal/database"
	"github.com/tt1125/kacchi-navi/internal/embedding"
	"github.com/tt1125/kacchi-navi/internal/generation"
	"github.com/tt1125/kacchi-navi/internal/handler"
	"github.com/tt1125/kacchi-navi/internal/ingest"
	"github.com/tt1125/kacchi-navi/internal/lecture"
	"github.com/tt1125/kacchi-navi/internal/logger"
	"github.com/tt1125/kacchi-navi/internal/metrics"
	"github.com/tt1125/kacchi-navi/internal/middleware"
	"github.com/tt1125/kacchi-navi/internal/repository"
	"github.com/tt1125/kacchi-navi/internal/security"
	"github.com/tt1125/kacchi-navi/internal/timetable"
	"github.com/tt1125/kacchi-navi/internal/user"
)

// Init はアプリケーションの初期化を行う。
// .envがあれば読み込み、環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. .envファイルの読み込み（存在しなければ環境変数のみを使う）
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", slog.String("error", err.Error()))
	}

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandIngest:
		return runIngest(cfg, csvPathArg(args, "exported_data.csv"))
	case CommandImportLectures:
		return runImportLectures(cfg, csvPathArg(args, "lectures.csv"))
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// csvPathArg はサブコマンドの次の引数をCSVパスとして返す。
func csvPathArg(args []string, defaultPath string) string {
	if len(args) >= 2 {
		return args[1]
	}
	return defaultPath
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established",
		slog.String("path", cfg.DatabasePath),
	)

	// 2. リポジトリの初期化
	userRepo := repository.NewSQLiteUserRepo(db)
	lectureRepo := repository.NewSQLiteLectureRepo(db)
	syllabusRepo := repository.NewSQLiteSyllabusRepo(db)
	timetableRepo := repository.NewSQLiteTimetableRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. 外部APIクライアントの初期化
	embedder := embedding.NewClient(
		&http.Client{Timeout: cfg.EmbedTimeout},
		slog.Default(), cfg.CohereAPIKey,
	)
	embedder.SetMetrics(collector)

	generator := generation.NewClient(
		&http.Client{Timeout: cfg.GenerateTimeout},
		slog.Default(), cfg.GeminiAPIKey, cfg.ChatMaxRetries,
	)
	generator.SetMetrics(collector)

	// 5. ドメインサービスの初期化
	oauthProvider := auth.NewEntraOAuthProvider(auth.EntraOAuthConfig{
		TenantID:     cfg.MSTenantID,
		ClientID:     cfg.MSClientID,
		ClientSecret: cfg.MSClientSecret,
		RedirectURI:  cfg.MSRedirectURI,
	})
	authService := auth.NewService(oauthProvider, userRepo, slog.Default())

	chatService := chat.NewService(
		syllabusRepo, lectureRepo, embedder, generator,
		cfg.ChatTopK, slog.Default(),
	)
	lectureService := lecture.NewService(lectureRepo, syllabusRepo)
	timetableService := timetable.NewService(timetableRepo, lectureRepo, slog.Default())
	userService := user.NewService(userRepo)

	// 6. レート制限の構成（configのRateLimitChatはreq/min単位なのでreq/secに変換する）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitChat > 0 {
		rateLimiterCfg.ChatRate = rate.Limit(float64(cfg.RateLimitChat) / 60.0)
		rateLimiterCfg.ChatBurst = cfg.RateLimitChat
	}

	// 7. ルーターの構築
	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       middleware.NewRateLimiter(rateLimiterCfg),
		HealthChecker:     db,
		MetricsHandler:    metrics.SetupMetricsRoute(registry),

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			Cookies: auth.CookieSettings{
				Secure: cfg.CookieSecure,
				Domain: cfg.CookieDomain,
				MaxAge: cfg.CookieMaxAge,
			},
			PostLogoutRedirect: cfg.PostLogoutRedirect,
		},
		UserCreator: userRepo,

		LectureService: lectureService,

		ChatService: chatService,
		ChatConfig: handler.ChatHandlerConfig{
			StreamPacing: cfg.StreamPacing,
		},
		Metrics: collector,

		TimetableService: timetableService,
		UserService:      userService,
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runIngest はシラバスCSVを読み込み、埋め込みベクトルを生成して保存する。
// 処理済みのコードはスキップするため、中断後の再実行で続きから取り込める。
func runIngest(cfg *config.Config, csvPath string) error {
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	syllabusRepo := repository.NewSQLiteSyllabusRepo(db)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	embedder := embedding.NewClient(
		&http.Client{Timeout: cfg.EmbedTimeout},
		slog.Default(), cfg.CohereAPIKey,
	)
	embedder.SetMetrics(collector)

	ingestor := ingest.NewSyllabusIngestor(
		syllabusRepo, embedder, security.NewContentSanitizer(),
		collector, ingest.DefaultSyllabusIngestorConfig(), slog.Default(),
	)

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	slog.Info("syllabus ingest starting", slog.String("csv", csvPath))

	stats, err := ingestor.Ingest(context.Background(), f)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	slog.Info("syllabus ingest completed",
		slog.Int("total", stats.Total),
		slog.Int("inserted", stats.Inserted),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed),
	)
	return nil
}

// runImportLectures は講義一覧CSVをlecturesテーブルに取り込む。
func runImportLectures(cfg *config.Config, csvPath string) error {
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	importer := ingest.NewLectureImporter(repository.NewSQLiteLectureRepo(db), slog.Default())

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	slog.Info("lecture import starting", slog.String("csv", csvPath))

	count, err := importer.Import(context.Background(), f)
	if err != nil {
		return fmt.Errorf("lecture import failed: %w", err)
	}

	slog.Info("lecture import completed", slog.Int("imported", count))
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_path", cfg.DatabasePath),
	)

	if err := database.RunMigrations(cfg.DatabasePath); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
