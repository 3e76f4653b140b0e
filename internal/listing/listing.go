// Package listing renders decoded prototypes in the style of `luac -l`.
package listing

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"luadump/internal/binchunk"
	"luadump/internal/opcode"
)

// Options controls what Write prints.
type Options struct {
	// Full adds the constants, locals and upvalues tables (luac -l -l).
	Full bool
	// Raw prints each instruction word in hex before its mnemonic.
	Raw bool
}

// Write lists p and every nested prototype, parents first.
func Write(w io.Writer, p *binchunk.Prototype, opts Options) error {
	return p.Walk(func(path string, p *binchunk.Prototype) error {
		return WriteFunction(w, path, p, opts)
	})
}

// WriteFunction lists a single prototype without its children. path is
// used to name nested functions in CLOSURE comments.
func WriteFunction(w io.Writer, path string, p *binchunk.Prototype, opts Options) error {
	var buf bytes.Buffer
	writeHeader(&buf, p)
	writeCode(&buf, path, p, opts)
	if opts.Full {
		writeDetail(&buf, p)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// String returns the listing of p and its children.
func String(p *binchunk.Prototype, opts Options) string {
	var buf bytes.Buffer
	_ = Write(&buf, p, opts)
	return buf.String()
}

// SourceName shortens a chunk source the way luac does: "@file" and
// "=name" lose their prefix, anything else is a string chunk.
func SourceName(source string) string {
	switch {
	case source == "":
		return "?"
	case source[0] == '@' || source[0] == '=':
		return source[1:]
	case source[0] == binchunk.LuaSignature[0]:
		return "(bstring)"
	default:
		return "(string)"
	}
}

// plural returns "s" unless n is one.
func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func writeHeader(buf *bytes.Buffer, p *binchunk.Prototype) {
	kind := "function"
	if p.IsMain() {
		kind = "main"
	}
	fmt.Fprintf(buf, "\n%s <%s:%d,%d> (%d instruction%s)\n",
		kind, SourceName(p.Source), p.LineDefined, p.LastLineDefined,
		len(p.Code), plural(len(p.Code)))

	vararg := ""
	if p.IsVararg != 0 {
		vararg = "+"
	}
	fmt.Fprintf(buf, "%d%s param%s, %d slot%s, %d upvalue%s, ",
		p.NumParams, vararg, plural(int(p.NumParams)),
		p.MaxStackSize, plural(int(p.MaxStackSize)),
		len(p.Upvalues), plural(len(p.Upvalues)))
	fmt.Fprintf(buf, "%d local%s, %d constant%s, %d function%s\n",
		len(p.LocVars), plural(len(p.LocVars)),
		len(p.Constants), plural(len(p.Constants)),
		len(p.Protos), plural(len(p.Protos)))
}

// LineLabel returns the source line of pc, or "-" when the chunk carries
// no line information.
func LineLabel(p *binchunk.Prototype, pc int) string {
	line, ok := p.Line(pc)
	if !ok {
		return "-"
	}
	return strconv.FormatUint(uint64(line), 10)
}

func writeCode(buf *bytes.Buffer, path string, p *binchunk.Prototype, opts Options) {
	for pc, word := range p.Code {
		fmt.Fprintf(buf, "\t%d\t[%s]\t", pc+1, LineLabel(p, pc))
		if opts.Raw {
			fmt.Fprintf(buf, "%08x\t", word)
		}
		buf.WriteString(Instruction(path, p, pc))
		buf.WriteByte('\n')
	}
}

// Instruction formats the instruction at pc as "MNEMONIC\toperands\t; comment".
func Instruction(path string, p *binchunk.Prototype, pc int) string {
	i := opcode.Instruction(p.Code[pc])
	op := i.OpCode()
	a, b, c := i.A(), i.B(), i.C()
	bx, sbx, ax := i.Bx(), i.SBx(), i.Ax()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%-9s\t", op)

	switch op.Format() {
	case opcode.IABC:
		fmt.Fprintf(&buf, "%d", a)
		if op.BMode() != opcode.ArgN {
			fmt.Fprintf(&buf, " %d", rkOperand(b))
		}
		if op.CMode() != opcode.ArgN {
			fmt.Fprintf(&buf, " %d", rkOperand(c))
		}
	case opcode.IABx:
		fmt.Fprintf(&buf, "%d", a)
		switch op.BMode() {
		case opcode.ArgK:
			fmt.Fprintf(&buf, " %d", -1-bx)
		case opcode.ArgU:
			fmt.Fprintf(&buf, " %d", bx)
		}
	case opcode.IAsBx:
		fmt.Fprintf(&buf, "%d %d", a, sbx)
	case opcode.IAx:
		fmt.Fprintf(&buf, "%d", -1-ax)
	}

	switch op {
	case opcode.LOADK:
		fmt.Fprintf(&buf, "\t; %s", constant(p, bx))
	case opcode.GETUPVAL, opcode.SETUPVAL:
		fmt.Fprintf(&buf, "\t; %s", upvalueName(p, b))
	case opcode.GETTABUP:
		fmt.Fprintf(&buf, "\t; %s", upvalueName(p, b))
		if opcode.IsK(c) {
			fmt.Fprintf(&buf, " %s", constant(p, opcode.IndexK(c)))
		}
	case opcode.SETTABUP:
		fmt.Fprintf(&buf, "\t; %s", upvalueName(p, a))
		if opcode.IsK(b) {
			fmt.Fprintf(&buf, " %s", constant(p, opcode.IndexK(b)))
		}
		if opcode.IsK(c) {
			fmt.Fprintf(&buf, " %s", constant(p, opcode.IndexK(c)))
		}
	case opcode.GETTABLE, opcode.SELF:
		if opcode.IsK(c) {
			fmt.Fprintf(&buf, "\t; %s", constant(p, opcode.IndexK(c)))
		}
	case opcode.SETTABLE, opcode.ADD, opcode.SUB, opcode.MUL, opcode.MOD,
		opcode.POW, opcode.DIV, opcode.IDIV, opcode.BAND, opcode.BOR,
		opcode.BXOR, opcode.SHL, opcode.SHR, opcode.EQ, opcode.LT, opcode.LE:
		if opcode.IsK(b) || opcode.IsK(c) {
			fmt.Fprintf(&buf, "\t; %s %s", rkComment(p, b), rkComment(p, c))
		}
	case opcode.JMP, opcode.FORLOOP, opcode.FORPREP, opcode.TFORLOOP:
		fmt.Fprintf(&buf, "\t; to %d", sbx+pc+2)
	case opcode.CLOSURE:
		fmt.Fprintf(&buf, "\t; %s/%d", path, bx+1)
	case opcode.SETLIST:
		if c == 0 {
			if pc+1 < len(p.Code) {
				fmt.Fprintf(&buf, "\t; %d", p.Code[pc+1])
			}
		} else {
			fmt.Fprintf(&buf, "\t; %d", c)
		}
	case opcode.EXTRAARG:
		fmt.Fprintf(&buf, "\t; %s", constant(p, ax))
	}
	return buf.String()
}

func rkOperand(x int) int {
	if opcode.IsK(x) {
		return -1 - opcode.IndexK(x)
	}
	return x
}

func rkComment(p *binchunk.Prototype, x int) string {
	if opcode.IsK(x) {
		return constant(p, opcode.IndexK(x))
	}
	return "-"
}

// constant formats constant idx, or "?" when a corrupt operand points
// outside the table.
func constant(p *binchunk.Prototype, idx int) string {
	if idx < 0 || idx >= len(p.Constants) {
		return "?"
	}
	return FormatConstant(p.Constants[idx])
}

func upvalueName(p *binchunk.Prototype, idx int) string {
	name, ok := p.UpvalueName(idx)
	if !ok {
		return "-"
	}
	return name
}

func writeDetail(buf *bytes.Buffer, p *binchunk.Prototype) {
	fmt.Fprintf(buf, "constants (%d):\n", len(p.Constants))
	for i, k := range p.Constants {
		fmt.Fprintf(buf, "\t%d\t%s\n", i+1, FormatConstant(k))
	}

	fmt.Fprintf(buf, "locals (%d):\n", len(p.LocVars))
	for i, lv := range p.LocVars {
		fmt.Fprintf(buf, "\t%d\t%s\t%d\t%d\n", i, lv.VarName, uint64(lv.StartPC)+1, uint64(lv.EndPC)+1)
	}

	fmt.Fprintf(buf, "upvalues (%d):\n", len(p.Upvalues))
	for i, uv := range p.Upvalues {
		fmt.Fprintf(buf, "\t%d\t%s\t%d\t%d\n", i, upvalueName(p, i), uv.Instack, uv.Idx)
	}
}
