// Package model はドメインモデルを定義する。
package model

import "time"

// Lecture は開講科目を表す。
// カラムはシラバス一覧のCSVをそのまま取り込んだもので、全て文字列。
type Lecture struct {
	ID        int64
	Title     string
	Category  string
	Code      string
	Name      string
	Lecturer  string
	Grade     string
	ClassName string
	Season    string
	Time      string
}

// LectureFilter は講義検索の条件を表す。
// 各フィールドは空文字なら条件に含めない。個別条件はANDで結合し、
// Keywordのみ全カラムに対するORで適用する。
type LectureFilter struct {
	Title     string
	Category  string
	Code      string
	Name      string
	Lecturer  string
	Grade     string
	ClassName string
	Season    string
	Time      string
	Keyword   string
}

// Syllabus はシラバス本文と埋め込みベクトルを表す。
// Vectorはリトルエンディアンのfloat32列をBLOBとして格納したもの。
type Syllabus struct {
	ID     int64
	Code   string
	HTML   string
	MD     string
	Vector []byte
}

// TimetableEntry は時間割の1コマ分の登録を表す。
// (UserID, DayOfWeek, Period)の組み合わせは一意。
type TimetableEntry struct {
	ID        int64
	UserID    int64
	DayOfWeek int
	Period    int
	LectureID *int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// 時間割グリッドの大きさ。月〜金の5日、1〜6限。
const (
	TimetableDays    = 5
	TimetablePeriods = 6
)

// ValidSlot はコマ指定がグリッドの範囲内かを返す。
func ValidSlot(day, period int) bool {
	return day >= 1 && day <= TimetableDays && period >= 1 && period <= TimetablePeriods
}
