package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabasePath string

	// OAuth (Azure Entra ID)
	MSTenantID         string
	MSClientID         string
	MSClientSecret     string
	MSRedirectURI      string
	PostLogoutRedirect string

	// External APIs
	CohereAPIKey string
	GeminiAPIKey string

	// Chat
	ChatTopK          int
	ChatMaxRetries    int
	EmbedTimeout      time.Duration
	GenerateTimeout   time.Duration
	StreamPacing      time.Duration
	RateLimitChat     int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string
	CookieMaxAge int

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 全ての項目は任意で、未設定の値は既定値にフォールバックする。
// APIキーやOAuth資格情報が未設定でもプロセスは起動し、
// それらを必要とする呼び出しが実行時にエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.DatabasePath = getEnvString("DATABASE_PATH", "syllabus.db")

	cfg.MSTenantID = os.Getenv("MS_TENANT_ID")
	cfg.MSClientID = os.Getenv("MS_CLIENT_ID")
	cfg.MSClientSecret = os.Getenv("MS_CLIENT_SECRET")
	cfg.MSRedirectURI = os.Getenv("MS_REDIRECT_URI")

	cfg.CohereAPIKey = os.Getenv("COHERE_API_KEY")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")

	cfg.ChatTopK = getEnvInt("CHAT_TOP_K", 10)
	cfg.ChatMaxRetries = getEnvInt("CHAT_MAX_RETRIES", 3)
	cfg.EmbedTimeout = getEnvDuration("EMBED_TIMEOUT", 30*time.Second)
	cfg.GenerateTimeout = getEnvDuration("GENERATE_TIMEOUT", 60*time.Second)
	cfg.StreamPacing = getEnvDuration("STREAM_PACING", 50*time.Millisecond)
	cfg.RateLimitChat = getEnvInt("RATE_LIMIT_CHAT", 10)

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CookieMaxAge = getEnvInt("COOKIE_MAX_AGE", 86400)
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	// IdPログアウト後の遷移先。未指定時はフロントエンドのオリジンに戻す
	cfg.PostLogoutRedirect = getEnvString("POST_LOGOUT_REDIRECT_URI", cfg.CORSAllowedOrigin)

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
