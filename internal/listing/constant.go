package listing

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"luadump/internal/binchunk"
)

// FormatConstant renders a constant as luac prints it: strings quoted and
// escaped, floats with at least one fractional digit.
func FormatConstant(k binchunk.Constant) string {
	switch k := k.(type) {
	case binchunk.Nil:
		return "nil"
	case binchunk.Bool:
		return k.String()
	case binchunk.Integer:
		return k.String()
	case binchunk.Float:
		return k.String()
	case binchunk.String:
		return Quote(string(k))
	default:
		panic(fmt.Sprintf("listing: unhandled constant type %T", k))
	}
}

// Quote wraps s in double quotes using Lua escapes. Printable runes are
// kept; other runes are written byte by byte as \ddd.
func Quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\a':
			sb.WriteString(`\a`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\v':
			sb.WriteString(`\v`)
		default:
			if r != utf8.RuneError && unicode.IsPrint(r) {
				sb.WriteString(s[:size])
			} else {
				for i := 0; i < size; i++ {
					fmt.Fprintf(&sb, `\%03d`, s[i])
				}
			}
		}
		s = s[size:]
	}
	sb.WriteByte('"')
	return sb.String()
}
