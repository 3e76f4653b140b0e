// Package binchunk decodes precompiled Lua 5.3 chunks (the output of luac)
// into a tree of function prototypes.
package binchunk

import (
	"fmt"
	"strconv"
)

// Header constants for Lua 5.3 chunks.
const (
	LuaSignature = "\x1bLua"
	LuacVersion  = 0x53
	LuacFormat   = 0
	LuacData     = "\x19\x93\r\n\x1a\n"

	CIntSize        = 4
	CSizetSize      = 8
	InstructionSize = 4
	LuaIntegerSize  = 8
	LuaNumberSize   = 8

	LuacInt = 0x5678
	LuacNum = 370.5
)

// Constant tags. The low nibble is the base type, the high nibble the variant.
const (
	TagNil      = 0x00
	TagFalse    = 0x01
	TagTrue     = 0x11
	TagNumber   = 0x03
	TagInteger  = 0x13
	TagShortStr = 0x04
	TagLongStr  = 0x14
)

// Chunk is a decoded binary chunk. The header is validated and dropped;
// only the layout that matched is kept.
type Chunk struct {
	Layout Layout
	// UpvalueCount is the byte between the header and the main function.
	UpvalueCount byte
	Main         *Prototype
}

// Prototype is the compiled form of one function.
type Prototype struct {
	Source          string
	LineDefined     uint32
	LastLineDefined uint32
	NumParams       byte
	IsVararg        byte
	MaxStackSize    byte
	Code            []uint32
	Constants       []Constant
	Upvalues        []Upvalue
	Protos          []*Prototype
	LineInfo        []uint32 // empty, or one entry per Code word
	LocVars         []LocVar
	UpvalueNames    []string // empty, or one entry per Upvalues element
}

// IsMain reports whether p is a main chunk rather than a nested function.
func (p *Prototype) IsMain() bool {
	return p.LineDefined == 0
}

// Line returns the source line of the instruction at pc, if known.
func (p *Prototype) Line(pc int) (uint32, bool) {
	if pc < 0 || pc >= len(p.LineInfo) {
		return 0, false
	}
	return p.LineInfo[pc], true
}

// UpvalueName returns the debug name of upvalue i, if present.
func (p *Prototype) UpvalueName(i int) (string, bool) {
	if i < 0 || i >= len(p.UpvalueNames) {
		return "", false
	}
	return p.UpvalueNames[i], true
}

// Walk calls fn for p and every nested prototype, depth first, parents
// before children. The path of the root is "main"; the second child of
// the root is "main/2". Walk stops at the first error fn returns.
func (p *Prototype) Walk(fn func(path string, p *Prototype) error) error {
	return p.walk("main", fn)
}

func (p *Prototype) walk(path string, fn func(string, *Prototype) error) error {
	if err := fn(path, p); err != nil {
		return err
	}
	for i, child := range p.Protos {
		if err := child.walk(path+"/"+strconv.Itoa(i+1), fn); err != nil {
			return err
		}
	}
	return nil
}

// Upvalue describes where a closure finds a captured variable.
type Upvalue struct {
	Instack byte // 1 if the variable is a register of the enclosing function
	Idx     byte // register or upvalue index in the enclosing function
}

// LocVar is the debug record of a local variable. StartPC and EndPC are
// kept exactly as encoded.
type LocVar struct {
	VarName string
	StartPC uint32
	EndPC   uint32
}

// Constant is one entry of a prototype's constant table. The set of
// implementations is closed: Nil, Bool, Integer, Float and String.
type Constant interface {
	fmt.Stringer
	// Type returns the Lua type name, e.g. "number".
	Type() string
	isConstant()
}

// Nil is the nil constant.
type Nil struct{}

// Bool is a boolean constant.
type Bool bool

// Integer is an integer-subtype number constant.
type Integer int64

// Float is a float-subtype number constant.
type Float float64

// String is a string constant.
type String string

func (Nil) isConstant()     {}
func (Bool) isConstant()    {}
func (Integer) isConstant() {}
func (Float) isConstant()   {}
func (String) isConstant()  {}

func (Nil) Type() string     { return "nil" }
func (Bool) Type() string    { return "boolean" }
func (Integer) Type() string { return "number" }
func (Float) Type() string   { return "number" }
func (String) Type() string  { return "string" }

func (Nil) String() string { return "nil" }

func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

func (i Integer) String() string { return strconv.FormatInt(int64(i), 10) }

// String formats f like Lua's "%.14g", keeping a ".0" suffix on integral
// values so they stay distinguishable from integers.
func (f Float) String() string {
	s := strconv.FormatFloat(float64(f), 'g', 14, 64)
	for _, c := range s {
		if (c < '0' || c > '9') && c != '-' {
			return s
		}
	}
	return s + ".0"
}

func (s String) String() string { return string(s) }
