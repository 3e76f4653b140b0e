package binchunk

import (
	"bytes"
	"encoding/binary"
	"math"
)

// chunkBuilder writes chunk bytes for tests. The product never encodes chunks.
type chunkBuilder struct {
	bytes.Buffer
}

func (b *chunkBuilder) u8(v byte) *chunkBuilder {
	b.WriteByte(v)
	return b
}

func (b *chunkBuilder) u32(v uint32) *chunkBuilder {
	b.Write(binary.LittleEndian.AppendUint32(nil, v))
	return b
}

func (b *chunkBuilder) u64(v uint64) *chunkBuilder {
	b.Write(binary.LittleEndian.AppendUint64(nil, v))
	return b
}

// str writes s with the size-biased prefix; "" is written as a single 0.
func (b *chunkBuilder) str(s string) *chunkBuilder {
	if s == "" {
		return b.u8(0)
	}
	size := uint64(len(s)) + 1
	if size < 0xFF {
		b.u8(byte(size))
	} else {
		b.u8(0xFF).u64(size)
	}
	b.WriteString(s)
	return b
}

func (b *chunkBuilder) header(layout Layout) *chunkBuilder {
	b.WriteString(LuaSignature)
	b.u8(LuacVersion).u8(LuacFormat)
	b.WriteString(LuacData)
	if layout == LayoutExtended {
		b.u8(CIntSize).u8(CSizetSize)
	}
	b.u8(InstructionSize).u8(LuaIntegerSize).u8(LuaNumberSize)
	b.u64(LuacInt)
	b.u64(math.Float64bits(LuacNum))
	return b
}

func (b *chunkBuilder) constant(k Constant) *chunkBuilder {
	switch k := k.(type) {
	case Nil:
		b.u8(TagNil)
	case Bool:
		if k {
			b.u8(TagTrue).u8(1)
		} else {
			b.u8(TagFalse).u8(0)
		}
	case Float:
		b.u8(TagNumber).u64(math.Float64bits(float64(k)))
	case Integer:
		b.u8(TagInteger).u64(uint64(k))
	case String:
		if len(k) <= 40 {
			b.u8(TagShortStr)
		} else {
			b.u8(TagLongStr)
		}
		b.str(string(k))
	}
	return b
}

// proto writes p field by field. p.Source is written as is, so an empty
// source exercises inheritance.
func (b *chunkBuilder) proto(p *Prototype) *chunkBuilder {
	b.str(p.Source)
	b.u32(p.LineDefined).u32(p.LastLineDefined)
	b.u8(p.NumParams).u8(p.IsVararg).u8(p.MaxStackSize)

	b.u32(uint32(len(p.Code)))
	for _, w := range p.Code {
		b.u32(w)
	}
	b.u32(uint32(len(p.Constants)))
	for _, k := range p.Constants {
		b.constant(k)
	}
	b.u32(uint32(len(p.Upvalues)))
	for _, uv := range p.Upvalues {
		b.u8(uv.Instack).u8(uv.Idx)
	}
	b.u32(uint32(len(p.Protos)))
	for _, child := range p.Protos {
		b.proto(child)
	}
	b.u32(uint32(len(p.LineInfo)))
	for _, line := range p.LineInfo {
		b.u32(line)
	}
	b.u32(uint32(len(p.LocVars)))
	for _, lv := range p.LocVars {
		b.str(lv.VarName).u32(lv.StartPC).u32(lv.EndPC)
	}
	b.u32(uint32(len(p.UpvalueNames)))
	for _, name := range p.UpvalueNames {
		b.str(name)
	}
	return b
}

// buildChunk returns header, upvalue count byte and main prototype.
func buildChunk(layout Layout, main *Prototype) []byte {
	b := new(chunkBuilder).header(layout)
	b.u8(byte(len(main.Upvalues)))
	b.proto(main)
	return b.Bytes()
}

// sampleMain mirrors what luac 5.3 emits for
//
//	local t = {1, 2.5, "x"}
//	function f(a) return function() return a end end
func sampleMain() *Prototype {
	inner := &Prototype{
		LineDefined:     2,
		LastLineDefined: 2,
		MaxStackSize:    2,
		Code:            []uint32{0x00000005, 0x01000026, 0x00800026},
		Upvalues:        []Upvalue{{Instack: 1, Idx: 0}},
		LineInfo:        []uint32{2, 2, 2},
		UpvalueNames:    []string{"a"},
	}
	f := &Prototype{
		LineDefined:     2,
		LastLineDefined: 2,
		NumParams:       1,
		MaxStackSize:    2,
		Code:            []uint32{0x0000402C, 0x01000026, 0x00800026},
		Protos:          []*Prototype{inner},
		LineInfo:        []uint32{2, 2, 2},
		LocVars:         []LocVar{{VarName: "a", StartPC: 0, EndPC: 3}},
	}
	return &Prototype{
		Source:       "@sample.lua",
		IsVararg:     1,
		MaxStackSize: 4,
		Code:         []uint32{0x0080010B, 0x00004041, 0x00008081, 0x0000C0C1, 0x01800024, 0x0000812C, 0x00014008, 0x00800026},
		Constants:    []Constant{Integer(1), Float(2.5), String("x"), String("f"), Nil{}, Bool(true), Bool(false)},
		Upvalues:     []Upvalue{{Instack: 1, Idx: 0}},
		Protos:       []*Prototype{f},
		LineInfo:     []uint32{1, 1, 1, 1, 1, 2, 2, 2},
		LocVars:      []LocVar{{VarName: "t", StartPC: 5, EndPC: 8}},
		UpvalueNames: []string{"_ENV"},
	}
}
