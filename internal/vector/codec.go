// Package vector は埋め込みベクトルのBLOBコーデックと類似度ランキングを提供する。
package vector

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encode はfloat32列をリトルエンディアンのBLOBに変換する。
// データベースのvectorカラムの格納形式。
func Encode(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// Decode はBLOBをfloat32列に復元する。
// 長さが4の倍数でない場合はエラーを返す。
func Decode(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("vector: BLOB長が4の倍数ではありません: %d", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}
