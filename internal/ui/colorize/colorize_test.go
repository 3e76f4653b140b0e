package colorize

import (
	"strings"
	"testing"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

const sample = "\nmain <hello.lua:0,0> (4 instructions)\n" +
	"0+ params, 2 slots, 1 upvalue, 0 locals, 2 constants, 0 functions\n" +
	"\t1\t[1]\tGETTABUP \t0 0 -1\t; _ENV \"print\"\n" +
	"\t2\t[1]\tLOADK    \t1 -2\t; \"hello\"\n"

func TestLexerTokens(t *testing.T) {
	it, err := Luac.Tokenise(nil, "\t1\t[12]\tGETTABUP \t0 0 -1\t; _ENV \"print\"")
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]chroma.TokenType{
		"[12]":             chroma.NameLabel,
		"GETTABUP":         chroma.NameFunction,
		"-1":               chroma.LiteralNumber,
		"; _ENV \"print\"": chroma.Comment,
	}
	seen := map[string]bool{}
	for _, tok := range it.Tokens() {
		if typ, ok := want[tok.Value]; ok {
			seen[tok.Value] = true
			if tok.Type != typ {
				t.Errorf("token %q has type %v, want %v", tok.Value, tok.Type, typ)
			}
		}
	}
	for v := range want {
		if !seen[v] {
			t.Errorf("token %q not produced", v)
		}
	}
}

func TestLexerRegistered(t *testing.T) {
	if lexers.Get("luac") == nil {
		t.Fatal("luac lexer not registered")
	}
}

func TestListingPreservesText(t *testing.T) {
	t.Setenv(NoColorEnv, "")

	out, err := Listing(sample)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "\x1b[") {
		t.Error("no escape sequences in coloured listing")
	}
	if got := StripANSI(out); got != sample {
		t.Errorf("stripped listing differs:\n got %q\nwant %q", got, sample)
	}
}

func TestNoColor(t *testing.T) {
	t.Setenv(NoColorEnv, "1")

	if Enabled() {
		t.Error("Enabled() = true with LUADUMP_NO_COLOR set")
	}
	out, err := Listing(sample)
	if err != nil || out != sample {
		t.Errorf("Listing with colour disabled = %q, %v", out, err)
	}
	if got := Line("\t1\t[1]\tRETURN"); got != "\t1\t[1]\tRETURN" {
		t.Errorf("Line = %q", got)
	}
}

func TestStripANSI(t *testing.T) {
	if got := StripANSI("\x1b[38;2;1;2;3mLOADK\x1b[0m 1"); got != "LOADK 1" {
		t.Errorf("StripANSI = %q", got)
	}
}
