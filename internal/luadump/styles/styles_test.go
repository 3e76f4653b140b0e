package styles

import (
	"strings"
	"testing"

	"luadump/internal/ui/colorize"
)

func TestRenderMarkdown(t *testing.T) {
	md := "# hello.lua\n\nA **main** chunk.\n\n```luac\n\t1\t[1]\tGETTABUP \t0 0 -1\t; _ENV \"print\"\n```\n"
	out := colorize.StripANSI(RenderMarkdown(md, 80))
	for _, want := range []string{"hello.lua", "main", "chunk.", "GETTABUP", "_ENV"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered markdown lacks %q:\n%s", want, out)
		}
	}
}

func TestMenuBarWidth(t *testing.T) {
	bar := colorize.StripANSI(MenuBar("Q: quit", 30))
	if got := len([]rune(bar)); got < 30 {
		t.Errorf("menu bar width = %d, want at least 30: %q", got, bar)
	}
	if !strings.Contains(bar, "Q: quit") {
		t.Errorf("menu bar lacks text: %q", bar)
	}
}
