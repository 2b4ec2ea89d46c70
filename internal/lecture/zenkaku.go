package lecture

import "strings"

// zenkakuDigits は半角数字に対応する全角数字。
var zenkakuDigits = []rune("０１２３４５６７８９")

// ToZenkakuDigits は文字列中の半角数字を全角数字に変換する。
// 講義マスタの開講時限は「月曜３限」のように全角数字で格納されているため、
// クエリパラメータの半角数字をそのまま照合できない。
func ToZenkakuDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(zenkakuDigits[r-'0'])
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
