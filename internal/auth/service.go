package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/tt1125/kacchi-navi/internal/model"
	"github.com/tt1125/kacchi-navi/internal/repository"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	AccessToken    string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認可URLを生成する。
	GetLoginURL(state string) string
	// GetLogoutURL はIdP側のログアウトURLを生成する。
	GetLogoutURL(postLogoutRedirect string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth    OAuthProvider
	userRepo repository.UserRepository
	logger   *slog.Logger
}

// NewService はServiceを生成する。
func NewService(oauth OAuthProvider, userRepo repository.UserRepository, logger *slog.Logger) *Service {
	return &Service{
		oauth:    oauth,
		userRepo: userRepo,
		logger:   logger,
	}
}

// BeginLogin はstateを発行し、ログイン開始用のセッションと認可URLを返す。
// postAuthRedirectはコールバック成功後に戻るフロントエンドのURL。
func (s *Service) BeginLogin(postAuthRedirect string) (*model.SessionData, string, error) {
	state, err := generateState()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate state: %w", err)
	}

	session := &model.SessionData{
		OAuthState:       state,
		PostAuthRedirect: postAuthRedirect,
	}
	return session, s.oauth.GetLoginURL(state), nil
}

// HandleCallback はOAuthコールバックを処理し、ログイン済みセッションを発行する。
// stateの検証に失敗した場合はAPIErrorを返す。
// 未登録ユーザーはコールバック時に自動登録される。
func (s *Service) HandleCallback(ctx context.Context, session *model.SessionData, state, code string) (*model.SessionData, error) {
	if session == nil || session.OAuthState == "" || session.OAuthState != state {
		return nil, model.NewOAuthStateMismatchError()
	}

	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	user, err := s.userRepo.GetOrCreate(ctx, userInfo.ProviderUserID, userInfo.Name, userInfo.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create user: %w", err)
	}

	s.logger.Info("ログインが完了しました",
		slog.Int64("user_id", user.ID),
		slog.String("name", user.Name),
	)

	redirect := session.PostAuthRedirect
	if redirect == "" {
		redirect = "/"
	}

	return &model.SessionData{
		UserID:           user.ID,
		Username:         user.Name,
		Email:            user.Email,
		LoggedIn:         true,
		LoginTime:        time.Now().Unix(),
		PostAuthRedirect: redirect,
		AccessToken:      userInfo.AccessToken,
	}, nil
}

// LogoutURL はIdP側のログアウトURLを返す。
func (s *Service) LogoutURL(postLogoutRedirect string) string {
	return s.oauth.GetLogoutURL(postLogoutRedirect)
}

// generateState はCSRF対策用のstateを生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
