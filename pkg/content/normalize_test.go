package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "whitespace only", in: " \n\t\n   ", want: ""},
		{name: "trims lines", in: "  Pricing  \n\n   Plans\t", want: "Pricing\nPlans"},
		{name: "splits double spaces", in: "Basic  $10   Pro    $20", want: "Basic\n$10\nPro\n$20"},
		{name: "keeps single spaces", in: "Hello world", want: "Hello world"},
		{name: "windows newlines", in: "A\r\nB\rC", want: "A\nB\nC"},
		{name: "unicode separators", in: "A\u2028B\u0085C", want: "A\nB\nC"},
		{name: "drops blank fragments", in: "A    \n  \n    B", want: "A\nB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"A\nB\nC",
		"  a   b  c  \n\n\n d\te  ",
		"x  y  z\r\n\r\nw",
		"\t\t",
		"one  two   three    four     five",
		"line para\x1cfile\x1dgroup\x1erecord",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}
