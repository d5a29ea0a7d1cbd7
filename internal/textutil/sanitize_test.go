package textutil

import "testing"

func TestSanitizeSegment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Kitsune", want: "Kitsune"},
		{in: "Fox/Hound", want: "Fox-Hound"},
		{in: "Re:Zero", want: "Re -Zero"},
		{in: `say "hi"?`, want: "say 'hi'"},
		{in: "  a\tb  \n c ", want: "a b c"},
		{in: "..", want: ""},
		{in: ".hidden.", want: "hidden"},
		{in: "a<b>|c", want: "ab-c"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SanitizeSegment(tt.in); got != tt.want {
				t.Fatalf("SanitizeSegment(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
