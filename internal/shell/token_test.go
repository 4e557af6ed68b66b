package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{
			name: "simple words",
			line: "partition list",
			want: []string{"partition", "list"},
		},
		{
			name: "collapses whitespace runs",
			line: "  partition \t list  ",
			want: []string{"partition", "list"},
		},
		{
			name: "empty line",
			line: "",
			want: nil,
		},
		{
			name: "double quotes keep spaces",
			line: `partition show "My Partition"`,
			want: []string{"partition", "show", "My Partition"},
		},
		{
			name: "single quotes are literal",
			line: `update --description 'a "quoted" word'`,
			want: []string{"update", "--description", `a "quoted" word`},
		},
		{
			name: "escaped space outside quotes",
			line: `show My\ Partition`,
			want: []string{"show", "My Partition"},
		},
		{
			name: "escaped quote inside double quotes",
			line: `show "a \" b"`,
			want: []string{"show", `a " b`},
		},
		{
			name: "quotes join adjacent text",
			line: `show pre"fix"post`,
			want: []string{"show", "prefixpost"},
		},
		{
			name: "empty quoted token survives",
			line: `update --description ""`,
			want: []string{"update", "--description", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tokenize(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "unterminated double quote", line: `show "My Partition`},
		{name: "unterminated single quote", line: `show 'My Partition`},
		{name: "trailing escape", line: `show My\`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.line)
			assert.Error(t, err)
		})
	}
}
