package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tt1125/kacchi-navi/internal/middleware"
	"github.com/tt1125/kacchi-navi/internal/model"
	"github.com/tt1125/kacchi-navi/internal/timetable"
)

// TimetableServiceInterface は時間割ハンドラーが必要とするサービスインターフェース。
type TimetableServiceInterface interface {
	// Grid は講義詳細付きの5x6グリッドを返す。
	Grid(ctx context.Context, userID int64) (timetable.Grid, error)
	// Add は指定コマに講義を登録する。
	Add(ctx context.Context, userID int64, day, period int, lectureID int64) error
	// Remove は指定コマの登録を削除する。削除した場合trueを返す。
	Remove(ctx context.Context, userID int64, day, period int) (bool, error)
	// Clear は時間割全体を削除する。削除があった場合trueを返す。
	Clear(ctx context.Context, userID int64) (bool, error)
}

// TimetableHandler は時間割管理のHTTPハンドラー。
type TimetableHandler struct {
	service TimetableServiceInterface
}

// NewTimetableHandler はTimetableHandlerを生成する。
func NewTimetableHandler(service TimetableServiceInterface) *TimetableHandler {
	return &TimetableHandler{service: service}
}

// timetableResponse は時間割取得のAPIレスポンス。
type timetableResponse struct {
	UserID    int64          `json:"user_id"`
	Timetable timetable.Grid `json:"timetable"`
}

// timetableAddRequest は講義追加リクエストのボディ。
type timetableAddRequest struct {
	DayOfWeek int   `json:"day_of_week"`
	Period    int   `json:"period"`
	LectureID int64 `json:"lecture_id"`
}

// timetableRemoveRequest は講義削除リクエストのボディ。
type timetableRemoveRequest struct {
	DayOfWeek int `json:"day_of_week"`
	Period    int `json:"period"`
}

// messageResponse は更新系操作の結果レスポンス。
type messageResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// GetTimetable はユーザーの時間割グリッドを返す。
// GET /api/timetables/:id, GET /api/users/:id/timetable
func (h *TimetableHandler) GetTimetable(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserIDParam(w, r)
	if !ok {
		return
	}

	grid, err := h.service.Grid(r.Context(), userID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, timetableResponse{UserID: userID, Timetable: grid})
}

// AddLecture は指定コマに講義を登録する。
// POST /api/timetables/:id/lectures
func (h *TimetableHandler) AddLecture(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authorizeOwner(w, r)
	if !ok {
		return
	}

	var req timetableAddRequest
	if err := decodeJSONBody(r, &req); err != nil {
		middleware.WriteAPIError(w, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	if err := h.service.Add(r.Context(), userID, req.DayOfWeek, req.Period, req.LectureID); err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "講義を追加しました", Success: true})
}

// RemoveLecture は指定コマの登録を削除する。
// POST /api/timetables/:id/lectures/remove
func (h *TimetableHandler) RemoveLecture(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authorizeOwner(w, r)
	if !ok {
		return
	}

	var req timetableRemoveRequest
	if err := decodeJSONBody(r, &req); err != nil {
		middleware.WriteAPIError(w, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	removed, err := h.service.Remove(r.Context(), userID, req.DayOfWeek, req.Period)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	if removed {
		writeJSON(w, http.StatusOK, messageResponse{Message: "講義を削除しました", Success: true})
	} else {
		writeJSON(w, http.StatusOK, messageResponse{Message: "講義の削除に失敗しました", Success: false})
	}
}

// ClearTimetable はユーザーの時間割全体を削除する。
// DELETE /api/timetables/:id
func (h *TimetableHandler) ClearTimetable(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authorizeOwner(w, r)
	if !ok {
		return
	}

	cleared, err := h.service.Clear(r.Context(), userID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "時間割を削除しました", Success: cleared})
}

// authorizeOwner はパスのユーザーIDとセッションのユーザーIDの一致を検証する。
// 自分以外の時間割の更新は許可しない。
func (h *TimetableHandler) authorizeOwner(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := parseUserIDParam(w, r)
	if !ok {
		return 0, false
	}

	sessionUserID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return 0, false
	}

	if sessionUserID != userID {
		middleware.WriteAPIError(w, model.NewForbiddenError())
		return 0, false
	}

	return userID, true
}

// parseUserIDParam はパスパラメータ:idをユーザーIDとして解析する。
func parseUserIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	userID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		middleware.WriteAPIError(w, model.NewInvalidRequestError("ユーザーIDは数値で指定してください"))
		return 0, false
	}
	return userID, true
}
