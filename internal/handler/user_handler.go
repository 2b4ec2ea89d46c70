package handler

import (
	"context"
	"net/http"

	"github.com/tt1125/kacchi-navi/internal/middleware"
	"github.com/tt1125/kacchi-navi/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// List は全ユーザーを返す。
	List(ctx context.Context) ([]*model.User, error)
	// Delete はユーザーと関連する時間割を削除する。
	Delete(ctx context.Context, userID int64) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// ListUsers は全ユーザーの一覧を返す。
// GET /api/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	responses := make([]userResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, userResponse{ID: u.ID, Name: u.Name})
	}

	writeJSON(w, http.StatusOK, responses)
}

// DeleteUser はユーザーの退会処理を実行する。
// 時間割もあわせて削除する。自分自身のアカウントのみ削除できる。
// DELETE /api/users/:id
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserIDParam(w, r)
	if !ok {
		return
	}

	sessionUserID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	if sessionUserID != userID {
		middleware.WriteAPIError(w, model.NewForbiddenError())
		return
	}

	if err := h.service.Delete(r.Context(), userID); err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
