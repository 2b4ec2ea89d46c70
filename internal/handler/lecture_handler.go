package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tt1125/kacchi-navi/internal/middleware"
	"github.com/tt1125/kacchi-navi/internal/model"
)

// LectureServiceInterface は講義ハンドラーが必要とするサービスインターフェース。
type LectureServiceInterface interface {
	// Search は条件に一致する講義を検索する。
	Search(ctx context.Context, filter model.LectureFilter) ([]*model.Lecture, error)
	// Available は指定コマに開講されている講義を検索する。
	Available(ctx context.Context, day string, period int) ([]*model.Lecture, error)
	// SyllabusHTML は講義コードのシラバスHTMLを返す。
	SyllabusHTML(ctx context.Context, code string) (string, error)
}

// LectureHandler は講義検索とシラバス取得のHTTPハンドラー。
type LectureHandler struct {
	service LectureServiceInterface
}

// NewLectureHandler はLectureHandlerを生成する。
func NewLectureHandler(service LectureServiceInterface) *LectureHandler {
	return &LectureHandler{service: service}
}

// lectureResponse は講義情報のAPIレスポンス。
type lectureResponse struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Category  string `json:"category"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Lecturer  string `json:"lecturer"`
	Grade     string `json:"grade"`
	ClassName string `json:"class_name"`
	Season    string `json:"season"`
	Time      string `json:"time"`
}

// SearchLectures は講義検索を処理する。
// GET /api/lectures
func (h *LectureHandler) SearchLectures(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.LectureFilter{
		Title:     q.Get("title"),
		Category:  q.Get("category"),
		Code:      q.Get("code"),
		Name:      q.Get("name"),
		Lecturer:  q.Get("lecturer"),
		Grade:     q.Get("grade"),
		ClassName: q.Get("class_name"),
		Season:    q.Get("season"),
		Time:      q.Get("time"),
		Keyword:   q.Get("keyword"),
	}

	lectures, err := h.service.Search(r.Context(), filter)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toLectureResponses(lectures))
}

// AvailableLectures は指定コマの開講講義一覧を返す。
// GET /api/available-lectures?day=月&period=3
func (h *LectureHandler) AvailableLectures(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("day")
	periodStr := r.URL.Query().Get("period")

	period, err := strconv.Atoi(periodStr)
	if err != nil {
		middleware.WriteAPIError(w, model.NewInvalidRequestError("periodは数値で指定してください"))
		return
	}

	lectures, err := h.service.Available(r.Context(), day, period)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toLectureResponses(lectures))
}

// GetSyllabusHTML はシラバスのHTML本文を返す。
// GET /api/syllabuses/:code
func (h *LectureHandler) GetSyllabusHTML(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	html, err := h.service.SyllabusHTML(r.Context(), code)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

// --- ヘルパー関数 ---

// toLectureResponses はmodel.Lectureの一覧をAPIレスポンスに変換する。
// 0件の場合もnullではなく空配列を返す。
func toLectureResponses(lectures []*model.Lecture) []lectureResponse {
	responses := make([]lectureResponse, 0, len(lectures))
	for _, l := range lectures {
		responses = append(responses, lectureResponse{
			ID:        l.ID,
			Title:     l.Title,
			Category:  l.Category,
			Code:      l.Code,
			Name:      l.Name,
			Lecturer:  l.Lecturer,
			Grade:     l.Grade,
			ClassName: l.ClassName,
			Season:    l.Season,
			Time:      l.Time,
		})
	}
	return responses
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// decodeJSONBody はリクエストボディをJSONとしてデコードする。
func decodeJSONBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
