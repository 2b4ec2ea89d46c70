package repository

import (
	"context"
	"testing"

	"github.com/tt1125/kacchi-navi/internal/model"
)

func TestLectureRepo_Search_NoFilterReturnsAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteLectureRepo(db)
	ctx := context.Background()

	insertTestLecture(t, db, model.Lecture{Name: "線形代数", Code: "MA101", Time: "月１"})
	insertTestLecture(t, db, model.Lecture{Name: "プログラミング基礎", Code: "CS101", Time: "火２"})

	lectures, err := repo.Search(ctx, model.LectureFilter{})
	if err != nil {
		t.Fatalf("Search エラー: %v", err)
	}
	if len(lectures) != 2 {
		t.Errorf("件数 = %d, want 2", len(lectures))
	}
}

func TestLectureRepo_Search_PartialMatch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteLectureRepo(db)
	ctx := context.Background()

	insertTestLecture(t, db, model.Lecture{Name: "線形代数I", Lecturer: "佐藤"})
	insertTestLecture(t, db, model.Lecture{Name: "線形代数II", Lecturer: "鈴木"})
	insertTestLecture(t, db, model.Lecture{Name: "微分積分", Lecturer: "佐藤"})

	lectures, err := repo.Search(ctx, model.LectureFilter{Name: "線形"})
	if err != nil {
		t.Fatalf("Search エラー: %v", err)
	}
	if len(lectures) != 2 {
		t.Errorf("部分一致で2件ヒットすべき, got %d", len(lectures))
	}
}

func TestLectureRepo_Search_FiltersAreANDed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteLectureRepo(db)
	ctx := context.Background()

	insertTestLecture(t, db, model.Lecture{Name: "線形代数I", Lecturer: "佐藤"})
	insertTestLecture(t, db, model.Lecture{Name: "線形代数II", Lecturer: "鈴木"})

	lectures, err := repo.Search(ctx, model.LectureFilter{Name: "線形", Lecturer: "鈴木"})
	if err != nil {
		t.Fatalf("Search エラー: %v", err)
	}
	if len(lectures) != 1 {
		t.Fatalf("AND条件で1件のみヒットすべき, got %d", len(lectures))
	}
	if lectures[0].Name != "線形代数II" {
		t.Errorf("Name = %q, want %q", lectures[0].Name, "線形代数II")
	}
}

func TestLectureRepo_Search_KeywordIsORedAcrossColumns(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteLectureRepo(db)
	ctx := context.Background()

	insertTestLecture(t, db, model.Lecture{Name: "統計学", Lecturer: "田中"})
	insertTestLecture(t, db, model.Lecture{Name: "田中ゼミ", Lecturer: "高橋"})
	insertTestLecture(t, db, model.Lecture{Name: "英語", Lecturer: "Smith"})

	// キーワードは講義名にも講師名にもマッチする
	lectures, err := repo.Search(ctx, model.LectureFilter{Keyword: "田中"})
	if err != nil {
		t.Fatalf("Search エラー: %v", err)
	}
	if len(lectures) != 2 {
		t.Errorf("キーワードは全カラムをOR検索すべき, got %d件", len(lectures))
	}
}

func TestLectureRepo_Search_NoMatchReturnsEmpty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteLectureRepo(db)

	lectures, err := repo.Search(context.Background(), model.LectureFilter{Name: "存在しない講義"})
	if err != nil {
		t.Fatalf("Search エラー: %v", err)
	}
	if len(lectures) != 0 {
		t.Errorf("該当なしでは空を返すべき, got %d件", len(lectures))
	}
}

func TestLectureRepo_FindByCode_ReturnsFirstMatch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteLectureRepo(db)
	ctx := context.Background()

	firstID := insertTestLecture(t, db, model.Lecture{Code: "CS200", Name: "データ構造(前期)"})
	insertTestLecture(t, db, model.Lecture{Code: "CS200", Name: "データ構造(後期)"})

	lecture, err := repo.FindByCode(ctx, "CS200")
	if err != nil {
		t.Fatalf("FindByCode エラー: %v", err)
	}
	if lecture == nil {
		t.Fatal("講義が見つかるべき")
	}
	if lecture.ID != firstID {
		t.Errorf("複数一致時は最初の1件を返すべき: got ID=%d, want %d", lecture.ID, firstID)
	}
}

func TestLectureRepo_FindByCode_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteLectureRepo(db)

	lecture, err := repo.FindByCode(context.Background(), "NO-SUCH")
	if err != nil {
		t.Fatalf("FindByCode エラー: %v", err)
	}
	if lecture != nil {
		t.Error("存在しないコードではnilを返すべき")
	}
}

func TestLectureRepo_FindByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteLectureRepo(db)
	ctx := context.Background()

	id := insertTestLecture(t, db, model.Lecture{Name: "物理学", Code: "PH101"})

	lecture, err := repo.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("FindByID エラー: %v", err)
	}
	if lecture == nil {
		t.Fatal("講義が見つかるべき")
	}
	if lecture.Name != "物理学" {
		t.Errorf("Name = %q, want %q", lecture.Name, "物理学")
	}
}
