// Package chat はシラバス検索に基づくRAGチャット機能を提供する。
package chat

import (
	"fmt"
	"strings"

	"github.com/tt1125/kacchi-navi/internal/model"
)

// personaTemplate はカッチーくん（佐賀大学マスコット）としての応答を指示する
// システムプロンプト。シラバス情報への接地を強制する。
const personaTemplate = `
あなたは佐賀大学のマスコット「カッチーくん」です。以下の設定で回答してください：

## キャラクター設定
- 佐賀大学のマスコットキャラクター
- 語尾はタイミングに応じて「カチ」を付ける
- 明るく答える

## 回答ルール
- 無闇にキャラクターを演出しようとせず、シンプルに答えてください
- 以下のシラバス情報を参考に、ユーザーの質問に答えてください
- 講義内容について答える時は、必ず提供されたシラバス情報のみを参照してください
- 一般知識や推測では絶対に答えないでください
- 回答は冗長にならないようにし、ユーザーの質問に的確に答えつつ、簡潔に回答してください
- マークダウン形式やマークダウン表形式、見出しなどを用いて、わかりやすく回答してください
- 情報が不足している場合は、検索結果について言及せず、より具体的な情報を求めてください
- 例：「どんな内容の講義について聞いているカチ？」「どんな分野の講義を探しているカチ？」

# シラバス情報
%s
`

// PersonaPrompt はシラバス情報と質問を埋め込んだ最終プロンプトを生成する。
func PersonaPrompt(context, question string) string {
	inner := fmt.Sprintf("# シラバス情報\n%s\n\n# ユーザーの質問\n%s", context, question)
	return fmt.Sprintf(personaTemplate, inner)
}

// LectureDetails は講義情報をプロンプト用のテキストに整形する。
// 空のフィールドは「情報なし」と表記する。講義が見つからない場合は
// その旨を返す。
func LectureDetails(lecture *model.Lecture) string {
	if lecture == nil {
		return "講義情報: 該当なし"
	}
	orNA := func(s string) string {
		if s == "" {
			return "情報なし"
		}
		return s
	}
	return fmt.Sprintf(`
講義名: %s
講師: %s
学年: %s
曜日・校時: %s
`, orNA(lecture.Name), orNA(lecture.Lecturer), orNA(lecture.Grade), orNA(lecture.Time))
}

// ContextBlock は講義詳細とシラバス本文を1件分の接地情報に組み立てる。
func ContextBlock(details, md string) string {
	return details + "\n\nシラバス内容:\n" + md
}

// JoinContext は複数の接地情報を区切り線で連結する。
func JoinContext(blocks []string) string {
	return strings.Join(blocks, "\n\n---\n\n")
}

// sentenceDelims は文区切りとして扱う終端記号。
var sentenceDelims = map[rune]bool{
	'。': true,
	'！': true,
	'!': true,
	'?': true,
	'？': true,
}

// SplitSegments は応答文を文単位のセグメントに分割する。
// 終端記号（。！!?？）は直前の文に付加し、空白のみのセグメントは除く。
func SplitSegments(s string) []string {
	var segments []string
	var current strings.Builder

	flush := func() {
		seg := current.String()
		if strings.TrimSpace(seg) != "" {
			segments = append(segments, seg)
		}
		current.Reset()
	}

	for _, r := range s {
		current.WriteRune(r)
		if sentenceDelims[r] {
			flush()
		}
	}
	flush()

	return segments
}
