package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// Luac tokenises `luac -l` style listings.
var Luac = lexers.Register(chroma.MustNewLexer(
	&chroma.Config{
		Name:      "luac",
		Aliases:   []string{"luac-listing"},
		Filenames: []string{"*.luac.txt"},
		MimeTypes: []string{"text/x-luac-listing"},
	},
	luacRules,
))

func luacRules() chroma.Rules {
	return chroma.Rules{
		"root": {
			{Pattern: `;[^\n]*`, Type: chroma.Comment},
			{Pattern: `"(?:\\.|[^"\\\n])*"`, Type: chroma.LiteralString},
			{Pattern: `\b(?:main|function)\b`, Type: chroma.Keyword},
			{Pattern: `\b(?:constants|locals|upvalues)\b`, Type: chroma.KeywordDeclaration},
			{Pattern: `<[^>\n]*>`, Type: chroma.NameNamespace},
			{Pattern: `\[(?:\d+|-)\]`, Type: chroma.NameLabel},
			{Pattern: `\b[A-Z][A-Z0-9]+\b`, Type: chroma.NameFunction},
			{Pattern: `\b[0-9a-f]{8}\b`, Type: chroma.LiteralNumberHex},
			{Pattern: `-?\d+(?:\.\d+)?(?:[eE][-+]?\d+)?`, Type: chroma.LiteralNumber},
			{Pattern: `\b(?:true|false|nil)\b`, Type: chroma.KeywordConstant},
			{Pattern: `[A-Za-z_][A-Za-z0-9_]*`, Type: chroma.Name},
			{Pattern: `\s+`, Type: chroma.TextWhitespace},
			{Pattern: `[(),:+]`, Type: chroma.Punctuation},
			{Pattern: `.`, Type: chroma.Text},
		},
	}
}
