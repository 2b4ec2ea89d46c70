package vector

import (
	"math"
	"sort"
)

// Document はランキング対象のシラバス文書を表す。
type Document struct {
	Code   string
	MD     string
	Vector []float32
}

// Scored は類似度スコア付きの文書を表す。
type Scored struct {
	Code       string
	MD         string
	Similarity float64
}

// CosineSimilarity は2つのベクトルのコサイン類似度を返す。
// いずれかのノルムが0の場合は0.0を返す。
// 長さが異なる場合は短い方に合わせて計算する。
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, x := range a {
		normA += float64(x) * float64(x)
	}
	for _, y := range b {
		normB += float64(y) * float64(y)
	}
	if normA <= 0 || normB <= 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// RankTopK は全文書とクエリベクトルの類似度を計算し、降順で上位k件を返す。
// 同スコアの文書は入力順を保持する。kが文書数を超える場合は全件を返す。
func RankTopK(query []float32, docs []Document, k int) []Scored {
	results := make([]Scored, 0, len(docs))
	for _, d := range docs {
		results = append(results, Scored{
			Code:       d.Code,
			MD:         d.MD,
			Similarity: CosineSimilarity(query, d.Vector),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if k >= 0 && k < len(results) {
		results = results[:k]
	}
	return results
}
