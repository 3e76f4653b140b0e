package binchunk

import (
	"fmt"
	"strconv"
)

// DefaultMaxElements bounds every count field of a prototype.
const DefaultMaxElements = 1 << 24

// Decoder turns chunk bytes into prototypes. The zero value is not usable;
// create one with NewDecoder. A Decoder holds no per-chunk state and may be
// shared between goroutines, each with its own Reader.
type Decoder struct {
	layout      Layout
	maxElements uint32
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLayout selects the header layout. The default is LayoutCompact.
func WithLayout(l Layout) Option {
	return func(d *Decoder) { d.layout = l }
}

// WithMaxElements sets the largest count accepted for any array in a
// prototype. Zero restores DefaultMaxElements.
func WithMaxElements(n uint32) Option {
	return func(d *Decoder) {
		if n == 0 {
			n = DefaultMaxElements
		}
		d.maxElements = n
	}
}

// NewDecoder returns a Decoder with the given options applied.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		layout:      LayoutCompact,
		maxElements: DefaultMaxElements,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Undump decodes a compact-layout chunk held in data.
func Undump(data []byte) (*Prototype, error) {
	return NewDecoder().Undump(NewReader(data))
}

// CheckHeader validates the header and leaves r right after it.
func (d *Decoder) CheckHeader(r *Reader) (Layout, error) {
	return checkHeader(r, d.layout)
}

// Undump validates the header, skips the main-function upvalue count and
// decodes the main prototype.
func (d *Decoder) Undump(r *Reader) (*Prototype, error) {
	c, err := d.Load(r)
	if err != nil {
		return nil, err
	}
	return c.Main, nil
}

// Load is Undump that also reports the matched layout and the
// main-function upvalue count.
func (d *Decoder) Load(r *Reader) (*Chunk, error) {
	layout, err := d.CheckHeader(r)
	if err != nil {
		return nil, err
	}
	nup, err := r.ReadByte()
	if err != nil {
		return nil, withField(err, "upvalue_count")
	}
	main, err := d.ReadPrototype(r, "")
	if err != nil {
		return nil, withField(err, "main")
	}
	return &Chunk{Layout: layout, UpvalueCount: nup, Main: main}, nil
}

// ReadPrototype decodes one function prototype and, recursively, its
// children. An empty source name is replaced by parentSource.
func (d *Decoder) ReadPrototype(r *Reader, parentSource string) (*Prototype, error) {
	source, err := r.ReadString()
	if err != nil {
		return nil, withField(err, "source")
	}
	if source == "" {
		source = parentSource
	}

	p := &Prototype{Source: source}
	if p.LineDefined, err = r.ReadUint32(); err != nil {
		return nil, withField(err, "linedefined")
	}
	if p.LastLineDefined, err = r.ReadUint32(); err != nil {
		return nil, withField(err, "lastlinedefined")
	}
	if p.NumParams, err = r.ReadByte(); err != nil {
		return nil, withField(err, "numparams")
	}
	if p.IsVararg, err = r.ReadByte(); err != nil {
		return nil, withField(err, "is_vararg")
	}
	if p.MaxStackSize, err = r.ReadByte(); err != nil {
		return nil, withField(err, "maxstacksize")
	}

	if p.Code, err = readArray(d, r, "code", (*Reader).ReadUint32); err != nil {
		return nil, err
	}
	if p.Constants, err = readArray(d, r, "constants", readConstant); err != nil {
		return nil, err
	}
	if p.Upvalues, err = readArray(d, r, "upvalues", readUpvalue); err != nil {
		return nil, err
	}
	// Children inherit this prototype's resolved source, not the caller's.
	readChild := func(r *Reader) (*Prototype, error) {
		return d.ReadPrototype(r, source)
	}
	if p.Protos, err = readArray(d, r, "protos", readChild); err != nil {
		return nil, err
	}
	if p.LineInfo, err = readArray(d, r, "lineinfo", (*Reader).ReadUint32); err != nil {
		return nil, err
	}
	if p.LocVars, err = readArray(d, r, "locvars", readLocVar); err != nil {
		return nil, err
	}
	if p.UpvalueNames, err = readArray(d, r, "upvalue_names", (*Reader).ReadString); err != nil {
		return nil, err
	}

	if n := len(p.LineInfo); n != 0 && n != len(p.Code) {
		return nil, &Error{
			Kind:   KindMalformed,
			Reason: ReasonLengthMismatch,
			Field:  "lineinfo",
			Offset: r.Pos(),
			Detail: fmt.Sprintf("%d line entries for %d instructions", n, len(p.Code)),
		}
	}
	if n := len(p.UpvalueNames); n != 0 && n != len(p.Upvalues) {
		return nil, &Error{
			Kind:   KindMalformed,
			Reason: ReasonLengthMismatch,
			Field:  "upvalue_names",
			Offset: r.Pos(),
			Detail: fmt.Sprintf("%d names for %d upvalues", n, len(p.Upvalues)),
		}
	}
	return p, nil
}

// readArray reads a uint32 count followed by that many elements.
// Capacity is bounded by the remaining input so that a corrupt count
// cannot allocate more than the buffer could ever fill.
func readArray[T any](d *Decoder, r *Reader, field string, read func(*Reader) (T, error)) ([]T, error) {
	start := r.Pos()
	n, err := r.ReadUint32()
	if err != nil {
		return nil, withField(err, field)
	}
	if n > d.maxElements {
		e := malformed(ReasonCountLimit, start, fmt.Sprintf("count %d exceeds limit %d", n, d.maxElements))
		e.Field = field
		return nil, e
	}
	out := make([]T, 0, min(int(n), r.Len()))
	for i := range int(n) {
		v, err := read(r)
		if err != nil {
			return nil, withField(err, field+"["+strconv.Itoa(i)+"]")
		}
		out = append(out, v)
	}
	return out, nil
}

func readConstant(r *Reader) (Constant, error) {
	start := r.Pos()
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case TagNil:
		return Nil{}, nil
	case TagFalse, TagTrue:
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return Bool(b != 0), nil
	case TagNumber:
		f, err := r.ReadNumber()
		if err != nil {
			return nil, err
		}
		return Float(f), nil
	case TagInteger:
		i, err := r.ReadInteger()
		if err != nil {
			return nil, err
		}
		return Integer(i), nil
	case TagShortStr, TagLongStr:
		s, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		return String(s), nil
	default:
		return nil, malformed(ReasonConstantTag, start, fmt.Sprintf("tag 0x%02x", tag))
	}
}

func readUpvalue(r *Reader) (Upvalue, error) {
	instack, err := r.ReadByte()
	if err != nil {
		return Upvalue{}, withField(err, "instack")
	}
	idx, err := r.ReadByte()
	if err != nil {
		return Upvalue{}, withField(err, "idx")
	}
	return Upvalue{Instack: instack, Idx: idx}, nil
}

func readLocVar(r *Reader) (LocVar, error) {
	name, err := r.ReadString()
	if err != nil {
		return LocVar{}, withField(err, "varname")
	}
	startPC, err := r.ReadUint32()
	if err != nil {
		return LocVar{}, withField(err, "startpc")
	}
	endPC, err := r.ReadUint32()
	if err != nil {
		return LocVar{}, withField(err, "endpc")
	}
	return LocVar{VarName: name, StartPC: startPC, EndPC: endPC}, nil
}
