// Package colorize highlights luac listings for the terminal with chroma.
// Setting LUADUMP_NO_COLOR disables all colouring.
package colorize

import (
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/styles"
)

// NoColorEnv is the variable that turns colouring off.
const NoColorEnv = "LUADUMP_NO_COLOR"

// Enabled reports whether output should be coloured.
func Enabled() bool {
	return os.Getenv(NoColorEnv) == ""
}

func getStyle() *chroma.Style {
	for _, name := range []string{"luac-dark", "dracula", "monokai"} {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

func getTerminalFormatter() chroma.Formatter {
	for _, name := range []string{"terminal16m", "terminal256"} {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// Listing colours a whole listing. On any failure the input is returned
// unchanged together with the error.
func Listing(text string) (string, error) {
	if !Enabled() {
		return text, nil
	}
	iterator, err := Luac.Tokenise(nil, text)
	if err != nil {
		return text, err
	}
	var buf strings.Builder
	if err := getTerminalFormatter().Format(&buf, getStyle(), iterator); err != nil {
		return text, err
	}
	return buf.String(), nil
}

// Line colours a single listing line, keeping it free of a trailing
// newline so it can be embedded in list items.
func Line(line string) string {
	out, err := Listing(line)
	if err != nil {
		return line
	}
	return strings.TrimSuffix(out, "\n")
}

// StripANSI removes SGR escape sequences.
func StripANSI(s string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
