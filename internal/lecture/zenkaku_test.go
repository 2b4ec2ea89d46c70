package lecture

import "testing"

func TestToZenkakuDigits(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"single digit", "3", "３"},
		{"multiple digits", "10", "１０"},
		{"all digits", "0123456789", "０１２３４５６７８９"},
		{"mixed with day", "月3", "月３"},
		{"no digits", "月曜", "月曜"},
		{"empty", "", ""},
		{"already zenkaku", "３限", "３限"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToZenkakuDigits(tt.input); got != tt.want {
				t.Errorf("ToZenkakuDigits(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
