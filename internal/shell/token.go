package shell

import (
	"fmt"
	"strings"
)

// Tokenize splits one input line using shell-like quoting rules: tokens
// separate on unquoted whitespace, single quotes are literal, double
// quotes honor backslash escapes, and a backslash outside quotes escapes
// the next character. An unterminated quote is a tokenizer error; the
// line never reaches dispatching.
func Tokenize(line string) ([]string, error) {
	var tokens []string
	var current strings.Builder
	inToken := false

	const (
		bare = iota
		single
		double
	)
	state := bare
	escaped := false

	for _, r := range line {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false

		case state == single:
			if r == '\'' {
				state = bare
			} else {
				current.WriteRune(r)
			}

		case state == double:
			switch r {
			case '"':
				state = bare
			case '\\':
				escaped = true
			default:
				current.WriteRune(r)
			}

		case r == '\\':
			escaped = true
			inToken = true

		case r == '\'':
			state = single
			inToken = true

		case r == '"':
			state = double
			inToken = true

		case r == ' ' || r == '\t':
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}

		default:
			current.WriteRune(r)
			inToken = true
		}
	}

	if escaped {
		return nil, fmt.Errorf("line ends with an unfinished escape")
	}
	if state != bare {
		return nil, fmt.Errorf("unterminated quote")
	}
	if inToken {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}
