package internal

import "testing"

func TestWrapHex(t *testing.T) {
	// WHY: Salts and IVs in inspect output must stay copy-pasteable hex; wrapping must split only at byte boundaries and mark empty values.
	t.Parallel()

	tests := []struct {
		name    string
		in      []byte
		perLine int
		want    string
	}{
		{"empty", nil, 8, "(none)"},
		{"single line", []byte{0x01, 0xab}, 8, "01ab"},
		{"exact line", []byte{1, 2, 3, 4}, 4, "01020304"},
		{"wrapped", []byte{1, 2, 3, 4, 5}, 2, "0102\n  0304\n  05"},
		{"no limit", []byte{1, 2, 3}, 0, "010203"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := WrapHex(tt.in, tt.perLine, "  "); got != tt.want {
				t.Errorf("WrapHex = %q, want %q", got, tt.want)
			}
		})
	}
}
