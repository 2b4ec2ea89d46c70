package vector

import (
	"bytes"
	"testing"
)

func TestEncode_LittleEndian(t *testing.T) {
	// 1.0 のfloat32表現は 0x3f800000
	blob := Encode([]float32{1.0})
	want := []byte{0x00, 0x00, 0x80, 0x3f}
	if !bytes.Equal(blob, want) {
		t.Errorf("Encode([1.0]) = %v, want %v", blob, want)
	}
}

func TestEncode_Empty(t *testing.T) {
	blob := Encode(nil)
	if len(blob) != 0 {
		t.Errorf("空ベクトルのエンコードは長さ0であるべき, got %d", len(blob))
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	orig := []float32{0.5, -1.25, 3.75, 0}
	decoded, err := Decode(Encode(orig))
	if err != nil {
		t.Fatalf("Decode エラー: %v", err)
	}
	if len(decoded) != len(orig) {
		t.Fatalf("要素数 = %d, want %d", len(decoded), len(orig))
	}
	for i := range orig {
		if decoded[i] != orig[i] {
			t.Errorf("decoded[%d] = %v, want %v", i, decoded[i], orig[i])
		}
	}
}

func TestDecode_InvalidLength(t *testing.T) {
	_, err := Decode([]byte{0x01, 0x02, 0x03})
	if err == nil {
		t.Error("4の倍数でないBLOB長はエラーを返すべき")
	}
}
