package shell

import "strings"

// Token is a single word of a command line.
type Token struct {
	Value string
	// Quote is the quote character that opened the token, or 0 if the token
	// wasn't quoted.
	Quote rune
}

// Quoted reports whether the token was enclosed in quotes.
func (t Token) Quoted() bool {
	return t.Quote != 0
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}

// Tokenize splits a line into whitespace separated tokens.
//
// A single or double quote at the start of a token opens a quoted token that
// may contain whitespace. It's closed by the same quote character followed by
// whitespace or the end of the line; quote characters anywhere else are kept
// literally. An unterminated quote runs to the end of the line. Bytes that
// aren't valid UTF-8 are kept as-is.
func Tokenize(line string) []Token {
	var (
		tokens  []Token
		buf     strings.Builder
		quote   byte
		current Token
		started bool
	)

	flush := func() {
		current.Value = buf.String()
		tokens = append(tokens, current)
		buf.Reset()
		current = Token{}
		started = false
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		atFieldEnd := i+1 == len(line) || isBlank(line[i+1])

		switch {
		case quote != 0 && c == quote && atFieldEnd:
			quote = 0
		case quote != 0:
			buf.WriteByte(c)
		case isBlank(c):
			if started {
				flush()
			}
		case !started && (c == '"' || c == '\''):
			quote = c
			current.Quote = rune(c)
			started = true
		default:
			buf.WriteByte(c)
			started = true
		}
	}

	if started {
		flush()
	}

	return tokens
}

// Split splits a line into the values of its tokens.
func Split(line string) []string {
	var out []string
	for _, tok := range Tokenize(line) {
		out = append(out, tok.Value)
	}
	return out
}
