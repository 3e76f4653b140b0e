// Package opcode decodes Lua 5.3 virtual machine instruction words.
package opcode

// Instruction field layout: op:6 A:8 C:9 B:9, with Bx = B:C and Ax = A:B:C.
const (
	sizeOp = 6
	sizeA  = 8
	sizeB  = 9
	sizeC  = 9
	sizeBx = sizeB + sizeC
	sizeAx = sizeA + sizeB + sizeC

	posOp = 0
	posA  = posOp + sizeOp
	posC  = posA + sizeA
	posB  = posC + sizeC
	posBx = posC
	posAx = posA

	MaxArgBx  = 1<<sizeBx - 1
	MaxArgSBx = MaxArgBx >> 1

	// bitRK marks a B or C operand that indexes the constant table.
	bitRK = 1 << (sizeB - 1)
)

// Format is the operand layout of an opcode.
type Format byte

const (
	IABC Format = iota
	IABx
	IAsBx
	IAx
)

// ArgMode says how an operand is used.
type ArgMode byte

const (
	ArgN ArgMode = iota // not used
	ArgU                // used as a plain number
	ArgR                // register or jump offset
	ArgK                // constant or register/constant
)

type OpCode byte

const (
	MOVE OpCode = iota
	LOADK
	LOADKX
	LOADBOOL
	LOADNIL
	GETUPVAL
	GETTABUP
	GETTABLE
	SETTABUP
	SETUPVAL
	SETTABLE
	NEWTABLE
	SELF
	ADD
	SUB
	MUL
	MOD
	POW
	DIV
	IDIV
	BAND
	BOR
	BXOR
	SHL
	SHR
	UNM
	BNOT
	NOT
	LEN
	CONCAT
	JMP
	EQ
	LT
	LE
	TEST
	TESTSET
	CALL
	TAILCALL
	RETURN
	FORLOOP
	FORPREP
	TFORCALL
	TFORLOOP
	SETLIST
	CLOSURE
	VARARG
	EXTRAARG
	numOpCodes
)

type info struct {
	name   string
	test   bool // next instruction is a jump
	setA   bool
	b, c   ArgMode
	format Format
}

var opInfo = [numOpCodes]info{
	MOVE:     {"MOVE", false, true, ArgR, ArgN, IABC},
	LOADK:    {"LOADK", false, true, ArgK, ArgN, IABx},
	LOADKX:   {"LOADKX", false, true, ArgN, ArgN, IABx},
	LOADBOOL: {"LOADBOOL", false, true, ArgU, ArgU, IABC},
	LOADNIL:  {"LOADNIL", false, true, ArgU, ArgN, IABC},
	GETUPVAL: {"GETUPVAL", false, true, ArgU, ArgN, IABC},
	GETTABUP: {"GETTABUP", false, true, ArgU, ArgK, IABC},
	GETTABLE: {"GETTABLE", false, true, ArgR, ArgK, IABC},
	SETTABUP: {"SETTABUP", false, false, ArgK, ArgK, IABC},
	SETUPVAL: {"SETUPVAL", false, false, ArgU, ArgN, IABC},
	SETTABLE: {"SETTABLE", false, false, ArgK, ArgK, IABC},
	NEWTABLE: {"NEWTABLE", false, true, ArgU, ArgU, IABC},
	SELF:     {"SELF", false, true, ArgR, ArgK, IABC},
	ADD:      {"ADD", false, true, ArgK, ArgK, IABC},
	SUB:      {"SUB", false, true, ArgK, ArgK, IABC},
	MUL:      {"MUL", false, true, ArgK, ArgK, IABC},
	MOD:      {"MOD", false, true, ArgK, ArgK, IABC},
	POW:      {"POW", false, true, ArgK, ArgK, IABC},
	DIV:      {"DIV", false, true, ArgK, ArgK, IABC},
	IDIV:     {"IDIV", false, true, ArgK, ArgK, IABC},
	BAND:     {"BAND", false, true, ArgK, ArgK, IABC},
	BOR:      {"BOR", false, true, ArgK, ArgK, IABC},
	BXOR:     {"BXOR", false, true, ArgK, ArgK, IABC},
	SHL:      {"SHL", false, true, ArgK, ArgK, IABC},
	SHR:      {"SHR", false, true, ArgK, ArgK, IABC},
	UNM:      {"UNM", false, true, ArgR, ArgN, IABC},
	BNOT:     {"BNOT", false, true, ArgR, ArgN, IABC},
	NOT:      {"NOT", false, true, ArgR, ArgN, IABC},
	LEN:      {"LEN", false, true, ArgR, ArgN, IABC},
	CONCAT:   {"CONCAT", false, true, ArgR, ArgR, IABC},
	JMP:      {"JMP", false, false, ArgR, ArgN, IAsBx},
	EQ:       {"EQ", true, false, ArgK, ArgK, IABC},
	LT:       {"LT", true, false, ArgK, ArgK, IABC},
	LE:       {"LE", true, false, ArgK, ArgK, IABC},
	TEST:     {"TEST", true, false, ArgN, ArgU, IABC},
	TESTSET:  {"TESTSET", true, true, ArgR, ArgU, IABC},
	CALL:     {"CALL", false, true, ArgU, ArgU, IABC},
	TAILCALL: {"TAILCALL", false, true, ArgU, ArgU, IABC},
	RETURN:   {"RETURN", false, false, ArgU, ArgN, IABC},
	FORLOOP:  {"FORLOOP", false, true, ArgR, ArgN, IAsBx},
	FORPREP:  {"FORPREP", false, true, ArgR, ArgN, IAsBx},
	TFORCALL: {"TFORCALL", false, false, ArgN, ArgU, IABC},
	TFORLOOP: {"TFORLOOP", false, true, ArgR, ArgN, IAsBx},
	SETLIST:  {"SETLIST", false, false, ArgU, ArgU, IABC},
	CLOSURE:  {"CLOSURE", false, true, ArgU, ArgN, IABx},
	VARARG:   {"VARARG", false, true, ArgU, ArgN, IABC},
	EXTRAARG: {"EXTRAARG", false, false, ArgU, ArgU, IAx},
}

// Valid reports whether op is a Lua 5.3 opcode.
func (op OpCode) Valid() bool {
	return op < numOpCodes
}

func (op OpCode) String() string {
	if !op.Valid() {
		return "UNKNOWN"
	}
	return opInfo[op].name
}

// Format returns the operand layout. Unknown opcodes report IABC.
func (op OpCode) Format() Format {
	if !op.Valid() {
		return IABC
	}
	return opInfo[op].format
}

// BMode returns the use of operand B (or Bx).
func (op OpCode) BMode() ArgMode {
	if !op.Valid() {
		return ArgU
	}
	return opInfo[op].b
}

// CMode returns the use of operand C.
func (op OpCode) CMode() ArgMode {
	if !op.Valid() {
		return ArgU
	}
	return opInfo[op].c
}

// IsTest reports whether op is a test whose next instruction is a jump.
func (op OpCode) IsTest() bool {
	return op.Valid() && opInfo[op].test
}

// SetsA reports whether op writes register A.
func (op OpCode) SetsA() bool {
	return op.Valid() && opInfo[op].setA
}

// Instruction is one 32-bit VM instruction.
type Instruction uint32

func (i Instruction) OpCode() OpCode {
	return OpCode(i >> posOp & (1<<sizeOp - 1))
}

func (i Instruction) A() int {
	return int(i >> posA & (1<<sizeA - 1))
}

func (i Instruction) B() int {
	return int(i >> posB & (1<<sizeB - 1))
}

func (i Instruction) C() int {
	return int(i >> posC & (1<<sizeC - 1))
}

func (i Instruction) Bx() int {
	return int(i >> posBx & (1<<sizeBx - 1))
}

// SBx returns Bx as a signed offset.
func (i Instruction) SBx() int {
	return i.Bx() - MaxArgSBx
}

func (i Instruction) Ax() int {
	return int(i >> posAx & (1<<sizeAx - 1))
}

// IsK reports whether an RK operand refers to a constant.
func IsK(x int) bool {
	return x&bitRK != 0
}

// IndexK returns the constant index of an RK operand.
func IndexK(x int) int {
	return x &^ bitRK
}
