package cmd

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"luadump/internal/binchunk"
	"luadump/internal/opcode"
)

func abc(op opcode.OpCode, a, b, c int) uint32 {
	return uint32(op) | uint32(a)<<6 | uint32(b)<<23 | uint32(c)<<14
}

func abx(op opcode.OpCode, a, bx int) uint32 {
	return uint32(op) | uint32(a)<<6 | uint32(bx)<<14
}

// helloChunk returns `print("hello")` as luac 5.3 writes it.
func helloChunk(layout binchunk.Layout) []byte {
	var b bytes.Buffer
	u8 := func(v byte) { b.WriteByte(v) }
	u32 := func(v uint32) { b.Write(binary.LittleEndian.AppendUint32(nil, v)) }
	u64 := func(v uint64) { b.Write(binary.LittleEndian.AppendUint64(nil, v)) }
	str := func(s string) {
		u8(byte(len(s) + 1))
		b.WriteString(s)
	}

	b.WriteString(binchunk.LuaSignature)
	u8(binchunk.LuacVersion)
	u8(binchunk.LuacFormat)
	b.WriteString(binchunk.LuacData)
	if layout == binchunk.LayoutExtended {
		u8(binchunk.CIntSize)
		u8(binchunk.CSizetSize)
	}
	u8(binchunk.InstructionSize)
	u8(binchunk.LuaIntegerSize)
	u8(binchunk.LuaNumberSize)
	u64(binchunk.LuacInt)
	u64(math.Float64bits(binchunk.LuacNum))

	u8(1) // upvalues of main
	str("@hello.lua")
	u32(0)
	u32(0)
	u8(0)
	u8(1)
	u8(2)

	code := []uint32{
		abc(opcode.GETTABUP, 0, 0, 256),
		abx(opcode.LOADK, 1, 1),
		abc(opcode.CALL, 0, 2, 1),
		abc(opcode.RETURN, 0, 1, 0),
	}
	u32(uint32(len(code)))
	for _, w := range code {
		u32(w)
	}
	u32(2)
	for _, s := range []string{"print", "hello"} {
		u8(binchunk.TagShortStr)
		str(s)
	}
	u32(1) // upvalues
	u8(1)
	u8(0)
	u32(0) // protos
	u32(uint32(len(code)))
	for range code {
		u32(1)
	}
	u32(0) // locvars
	u32(1)
	str("_ENV")
	return b.Bytes()
}

// writeTemp writes data to name inside dir and returns the path.
func writeTemp(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// isolate keeps the user's config file and LUADUMP_* variables out of a test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	for _, name := range []string{
		"LUADUMP_LAYOUT",
		"LUADUMP_KEY",
		"LUADUMP_SIGNATURE",
		"LUADUMP_MAX_ELEMENTS",
		"LUADUMP_JOBS",
		"LUADUMP_LOG_TO_FILE",
	} {
		t.Setenv(name, "")
	}
}
