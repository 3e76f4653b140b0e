package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

// LuacDark is the listing palette, matched to the TUI colours.
var LuacDark = styles.Register(chroma.MustNewStyle("luac-dark", chroma.StyleEntries{
	chroma.Text:           "#FFFFFF",
	chroma.TextWhitespace: "#FFFFFF",
	chroma.Background:     "bg:#1e1e1e",
	chroma.Comment:        "#6A9955",

	chroma.Keyword:            "bold #C586C0",
	chroma.KeywordDeclaration: "bold #C586C0",
	chroma.KeywordConstant:    "#569CD6",

	chroma.Name:          "#7C9C9D",
	chroma.NameFunction:  "#FFFFFF",
	chroma.NameLabel:     "#4F4F4F",
	chroma.NameNamespace: "#FFD700",

	chroma.LiteralNumber:    "#FF5F87",
	chroma.LiteralNumberHex: "#4F4F4F",
	chroma.LiteralString:    "#EACD53",

	chroma.Punctuation: "#FFFFFF",
}))
