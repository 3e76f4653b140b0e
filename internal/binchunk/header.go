package binchunk

import (
	"bytes"
	"fmt"
)

// Layout selects which size bytes the header carries after the luac data marker.
type Layout int

const (
	// LayoutCompact carries instruction, lua_Integer and lua_Number sizes.
	LayoutCompact Layout = iota
	// LayoutExtended additionally carries the C int and size_t sizes in
	// front, as written by the reference luac 5.3.
	LayoutExtended
	// LayoutAuto picks one of the above by peeking at the size bytes.
	LayoutAuto
)

func (l Layout) String() string {
	switch l {
	case LayoutCompact:
		return "compact"
	case LayoutExtended:
		return "extended"
	case LayoutAuto:
		return "auto"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// ParseLayout parses the names produced by Layout.String.
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "compact":
		return LayoutCompact, nil
	case "extended":
		return LayoutExtended, nil
	case "auto", "":
		return LayoutAuto, nil
	default:
		return 0, fmt.Errorf("unknown header layout %q (want auto, compact or extended)", s)
	}
}

// HeaderSize returns the number of header bytes for a concrete layout.
func (l Layout) HeaderSize() int {
	n := len(LuaSignature) + 1 + 1 + len(LuacData) + 3 + 8 + 8
	if l == LayoutExtended {
		n += 2
	}
	return n
}

// extendedSizes is what the reference luac writes right after the marker
// on 64-bit little-endian hosts: int, size_t, Instruction.
var extendedSizes = []byte{CIntSize, CSizetSize, InstructionSize}

// detectLayout must be called with the cursor right after the data marker.
func detectLayout(r *Reader) Layout {
	peek, err := r.Peek(len(extendedSizes))
	if err == nil && bytes.Equal(peek, extendedSizes) {
		return LayoutExtended
	}
	return LayoutCompact
}

type sizeCheck struct {
	field string
	want  byte
}

func (l Layout) sizeChecks() []sizeCheck {
	checks := []sizeCheck{
		{"instruction size", InstructionSize},
		{"lua_Integer size", LuaIntegerSize},
		{"lua_Number size", LuaNumberSize},
	}
	if l == LayoutExtended {
		checks = append([]sizeCheck{
			{"int size", CIntSize},
			{"size_t size", CSizetSize},
		}, checks...)
	}
	return checks
}

// checkHeader validates the header field by field and returns the layout
// that matched. It stops reading at the first mismatch.
func checkHeader(r *Reader, layout Layout) (Layout, error) {
	start := r.Pos()
	sig, err := r.ReadBytes(uint64(len(LuaSignature)))
	if err != nil {
		return layout, withField(err, "header.signature")
	}
	if string(sig) != LuaSignature {
		return layout, headerMismatch("signature", start, fmt.Sprintf("got % x, not a precompiled chunk", sig))
	}

	start = r.Pos()
	version, err := r.ReadByte()
	if err != nil {
		return layout, withField(err, "header.version")
	}
	if version != LuacVersion {
		return layout, headerMismatch("version", start, fmt.Sprintf("got 0x%02x, expected 0x%02x", version, LuacVersion))
	}

	start = r.Pos()
	format, err := r.ReadByte()
	if err != nil {
		return layout, withField(err, "header.format")
	}
	if format != LuacFormat {
		return layout, headerMismatch("format", start, fmt.Sprintf("got %d, expected %d", format, LuacFormat))
	}

	start = r.Pos()
	data, err := r.ReadBytes(uint64(len(LuacData)))
	if err != nil {
		return layout, withField(err, "header.luac_data")
	}
	if string(data) != LuacData {
		return layout, headerMismatch("luac_data", start, "corrupted chunk")
	}

	if layout == LayoutAuto {
		layout = detectLayout(r)
	}

	for _, check := range layout.sizeChecks() {
		start = r.Pos()
		size, err := r.ReadByte()
		if err != nil {
			return layout, withField(err, "header."+check.field)
		}
		if size != check.want {
			return layout, headerMismatch(check.field, start, fmt.Sprintf("got %d, expected %d", size, check.want))
		}
	}

	start = r.Pos()
	luacInt, err := r.ReadInteger()
	if err != nil {
		return layout, withField(err, "header.luac_int")
	}
	if luacInt != LuacInt {
		return layout, headerMismatch("luac_int", start, fmt.Sprintf("got 0x%x, integer format or endianness mismatch", luacInt))
	}

	start = r.Pos()
	luacNum, err := r.ReadNumber()
	if err != nil {
		return layout, withField(err, "header.luac_num")
	}
	if luacNum != LuacNum {
		return layout, headerMismatch("luac_num", start, fmt.Sprintf("got %v, float format mismatch", luacNum))
	}

	return layout, nil
}

func headerMismatch(field string, offset int, detail string) *Error {
	e := malformed(ReasonHeader, offset, detail)
	e.Field = "header." + field
	return e
}

// CheckHeader validates a compact-layout header and leaves r right after it.
func CheckHeader(r *Reader) error {
	_, err := checkHeader(r, LayoutCompact)
	return err
}
