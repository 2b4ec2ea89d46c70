// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/tt1125/kacchi-navi/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByUID は外部IdPのUIDでユーザーを検索する。見つからない場合はnilを返す。
	FindByUID(ctx context.Context, uid string) (*model.User, error)

	// GetOrCreate はUIDでユーザーを取得し、存在しなければ作成して返す。
	GetOrCreate(ctx context.Context, uid, name, email string) (*model.User, error)

	// ListAll は全ユーザーをIDと名前のみ、作成日時の降順で返す。
	ListAll(ctx context.Context) ([]*model.User, error)

	// DeleteByID は指定IDのユーザーと関連する時間割を削除する。
	DeleteByID(ctx context.Context, id int64) error
}

// LectureRepository は講義データの永続化インターフェース。
type LectureRepository interface {
	// Search は条件に一致する講義を検索する。
	// 個別条件はLIKEの部分一致でAND結合し、KeywordはORで全カラムに適用する。
	Search(ctx context.Context, filter model.LectureFilter) ([]*model.Lecture, error)

	// FindByID は指定IDの講義を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Lecture, error)

	// FindByCode は講義コードで講義を検索する。複数一致した場合は最初の1件を返す。
	// 見つからない場合はnilを返す。
	FindByCode(ctx context.Context, code string) (*model.Lecture, error)

	// Insert は講義データを挿入し、採番されたIDを返す。
	Insert(ctx context.Context, lecture *model.Lecture) (int64, error)
}

// SyllabusRepository はシラバスデータの永続化インターフェース。
type SyllabusRepository interface {
	// FindHTMLByCode は講義コードのシラバスHTMLを返す。
	// 複数一致した場合は最初の1件。見つからない場合は空文字とfalseを返す。
	FindHTMLByCode(ctx context.Context, code string) (string, bool, error)

	// ListForSearch は全シラバスのcode、md、vectorを返す。ベクトル検索用。
	ListForSearch(ctx context.Context) ([]*model.Syllabus, error)

	// ExistsByCode は指定コードのシラバスが存在するかを返す。
	ExistsByCode(ctx context.Context, code string) (bool, error)

	// Insert はシラバスを挿入し、採番されたIDを返す。
	Insert(ctx context.Context, syllabus *model.Syllabus) (int64, error)
}

// TimetableRepository は時間割データの永続化インターフェース。
type TimetableRepository interface {
	// Upsert は指定コマの登録を挿入または更新し、エントリIDを返す。
	// lectureIDがnilの場合はコマを空として登録する。
	Upsert(ctx context.Context, userID int64, dayOfWeek, period int, lectureID *int64) (int64, error)

	// ListByUser はユーザーの全エントリを曜日・時限順で返す。
	ListByUser(ctx context.Context, userID int64) ([]*model.TimetableEntry, error)

	// ListDetailedByUser は講義詳細をLEFT JOINしたエントリを曜日・時限順で返す。
	ListDetailedByUser(ctx context.Context, userID int64) ([]*TimetableSlot, error)

	// DeleteSlot は指定コマのエントリを削除する。削除した場合trueを返す。
	DeleteSlot(ctx context.Context, userID int64, dayOfWeek, period int) (bool, error)

	// DeleteByUser はユーザーの全エントリを削除する。削除があった場合trueを返す。
	DeleteByUser(ctx context.Context, userID int64) (bool, error)
}

// TimetableSlot は講義詳細付きの時間割エントリを表す。
// 講義が未設定または削除済みの場合、Lectureはnil。
type TimetableSlot struct {
	DayOfWeek int
	Period    int
	Lecture   *model.Lecture
}
