package publisher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubjectToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abc123", "abc123"},
		{"line 4 east", "line_4_east"},
		{"a.b>c*d/e", "a_b_c_d_e"},
		{"  spaced  ", "spaced"},
		{"", "_"},
		{"\t", "_"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, subjectToken(tt.in), "input %q", tt.in)
	}
}
