package binchunk

import (
	"fmt"
	"strings"
)

// Kind categorizes a decoding failure.
type Kind string

const (
	// KindOutOfData means a read ran past the end of the buffer.
	KindOutOfData Kind = "out_of_data"
	// KindMalformed means the bytes are present but do not form a valid chunk.
	KindMalformed Kind = "malformed_chunk"
)

// Reason narrows down a KindMalformed error.
type Reason string

const (
	ReasonHeader         Reason = "header mismatch"
	ReasonConstantTag    Reason = "unknown constant tag"
	ReasonEncoding       Reason = "invalid encoding"
	ReasonStringLength   Reason = "invalid string length"
	ReasonCountLimit     Reason = "count limit exceeded"
	ReasonLengthMismatch Reason = "parallel array length mismatch"
)

// Sentinel errors for errors.Is matching.
var (
	ErrOutOfData      = &Error{Kind: KindOutOfData}
	ErrMalformedChunk = &Error{Kind: KindMalformed}
)

// Error is returned by every failing read or check in this package.
type Error struct {
	Kind   Kind
	Reason Reason
	Field  string // which field or check failed, e.g. "version" or "constants[2]"
	Offset int    // buffer offset where the failing read started
	Detail string
}

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString("binchunk: ")
	switch e.Kind {
	case KindOutOfData:
		b.WriteString("unexpected end of data")
	default:
		b.WriteString("malformed chunk")
		if e.Reason != "" {
			b.WriteString(" (")
			b.WriteString(string(e.Reason))
			b.WriteByte(')')
		}
	}

	if e.Field != "" {
		b.WriteString(" in ")
		b.WriteString(e.Field)
	}
	fmt.Fprintf(&b, " at offset %d", e.Offset)

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

// Is reports whether target is an *Error of the same kind.
// A target with a Reason only matches errors with that reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

func outOfData(offset int, detail string) *Error {
	return &Error{Kind: KindOutOfData, Offset: offset, Detail: detail}
}

func malformed(reason Reason, offset int, detail string) *Error {
	return &Error{Kind: KindMalformed, Reason: reason, Offset: offset, Detail: detail}
}

// withField prefixes the field path of a package error. Other errors pass through.
func withField(err error, field string) error {
	e, ok := err.(*Error)
	if !ok {
		return err
	}
	if e.Field == "" {
		e.Field = field
	} else if strings.HasPrefix(e.Field, "[") {
		e.Field = field + e.Field
	} else {
		e.Field = field + "." + e.Field
	}
	return e
}
