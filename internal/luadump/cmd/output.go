package cmd

import (
	"fmt"
	"io"
	"math"
	"strings"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"luadump/internal/binchunk"
	"luadump/internal/listing"
	"luadump/internal/ui/colorize"
)

// JSONOutput is the document printed by --json, one entry per file.
type JSONOutput struct {
	Files []FileOutput `json:"files"`
}

// FileOutput describes one decoded file.
type FileOutput struct {
	Path         string        `json:"path"`
	Size         int           `json:"size"`
	Decrypted    bool          `json:"decrypted,omitempty"`
	Compression  string        `json:"compression,omitempty"`
	Layout       string        `json:"layout,omitempty"`
	UpvalueCount int           `json:"upvalueCount"`
	Functions    []FunctionOut `json:"functions,omitempty"`
	Error        *ErrorOutput  `json:"error,omitempty"`
}

// ErrorOutput is a decoding failure.
type ErrorOutput struct {
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Field   string `json:"field,omitempty"`
	Offset  int    `json:"offset"`
}

// FunctionOut is a flattened prototype. Children are referenced by path.
type FunctionOut struct {
	Path            string        `json:"path"`
	Source          string        `json:"source"`
	LineDefined     uint32        `json:"lineDefined"`
	LastLineDefined uint32        `json:"lastLineDefined"`
	NumParams       byte          `json:"numParams"`
	IsVararg        byte          `json:"isVararg"`
	MaxStackSize    byte          `json:"maxStackSize"`
	Code            []string      `json:"code"`
	Constants       []ConstantOut `json:"constants"`
	Upvalues        []UpvalueOut  `json:"upvalues"`
	Protos          []string      `json:"protos"`
	LineInfo        []uint32      `json:"lineInfo"`
	LocVars         []LocVarOut   `json:"locVars"`
}

// ConstantOut is a typed constant. Value holds a JSON null, boolean,
// number or string; non-finite floats are written as strings.
type ConstantOut struct {
	Type  string `json:"type" jsonschema:"enum=nil,enum=boolean,enum=integer,enum=float,enum=string"`
	Value any    `json:"value"`
}

type UpvalueOut struct {
	Name    string `json:"name,omitempty"`
	Instack byte   `json:"instack"`
	Idx     byte   `json:"idx"`
}

type LocVarOut struct {
	Name    string `json:"name"`
	StartPC uint32 `json:"startPC"`
	EndPC   uint32 `json:"endPC"`
}

func constantOut(k binchunk.Constant) ConstantOut {
	switch k := k.(type) {
	case binchunk.Nil:
		return ConstantOut{Type: "nil"}
	case binchunk.Bool:
		return ConstantOut{Type: "boolean", Value: bool(k)}
	case binchunk.Integer:
		return ConstantOut{Type: "integer", Value: int64(k)}
	case binchunk.Float:
		f := float64(k)
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return ConstantOut{Type: "float", Value: k.String()}
		}
		return ConstantOut{Type: "float", Value: f}
	case binchunk.String:
		return ConstantOut{Type: "string", Value: string(k)}
	default:
		panic(fmt.Sprintf("unhandled constant type %T", k))
	}
}

func functionOut(path string, p *binchunk.Prototype) FunctionOut {
	f := FunctionOut{
		Path:            path,
		Source:          p.Source,
		LineDefined:     p.LineDefined,
		LastLineDefined: p.LastLineDefined,
		NumParams:       p.NumParams,
		IsVararg:        p.IsVararg,
		MaxStackSize:    p.MaxStackSize,
		Code:            make([]string, len(p.Code)),
		Constants:       make([]ConstantOut, len(p.Constants)),
		Upvalues:        make([]UpvalueOut, len(p.Upvalues)),
		Protos:          make([]string, len(p.Protos)),
		LineInfo:        p.LineInfo,
		LocVars:         make([]LocVarOut, len(p.LocVars)),
	}
	for pc := range p.Code {
		f.Code[pc] = instructionText(path, p, pc)
	}
	for i, k := range p.Constants {
		f.Constants[i] = constantOut(k)
	}
	for i, uv := range p.Upvalues {
		name, _ := p.UpvalueName(i)
		f.Upvalues[i] = UpvalueOut{Name: name, Instack: uv.Instack, Idx: uv.Idx}
	}
	for i := range p.Protos {
		f.Protos[i] = fmt.Sprintf("%s/%d", path, i+1)
	}
	for i, lv := range p.LocVars {
		f.LocVars[i] = LocVarOut{Name: lv.VarName, StartPC: lv.StartPC, EndPC: lv.EndPC}
	}
	return f
}

// instructionText is the listing form of one instruction with the column
// tabs and mnemonic padding replaced by single spaces. Quoted constants
// never contain raw tabs.
func instructionText(path string, p *binchunk.Prototype, pc int) string {
	cols := strings.Split(listing.Instruction(path, p, pc), "\t")
	cols[0] = strings.TrimRight(cols[0], " ")
	return strings.Join(cols, " ")
}

func errorOut(err error) *ErrorOutput {
	out := &ErrorOutput{Message: err.Error()}
	if e, ok := asChunkError(err); ok {
		out.Kind = string(e.Kind)
		out.Reason = string(e.Reason)
		out.Field = e.Field
		out.Offset = e.Offset
	}
	return out
}

func fileOutput(res result) FileOutput {
	out := FileOutput{Path: res.Path}
	if res.File != nil {
		out.Size = res.File.Size
		out.Decrypted = res.File.Decrypted
		out.Compression = res.File.Compression
	}
	if res.Err != nil {
		out.Error = errorOut(res.Err)
		return out
	}
	out.Layout = res.Chunk.Layout.String()
	out.UpvalueCount = int(res.Chunk.UpvalueCount)
	_ = res.Chunk.Main.Walk(func(path string, p *binchunk.Prototype) error {
		out.Functions = append(out.Functions, functionOut(path, p))
		return nil
	})
	return out
}

func writeJSON(w io.Writer, results []result) error {
	doc := JSONOutput{Files: make([]FileOutput, len(results))}
	for i, res := range results {
		doc.Files[i] = fileOutput(res)
	}
	if err := jsonv2.MarshalWrite(w, doc, jsontext.WithIndent("  ")); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// writeListings prints the luac-style listing of every decoded file.
// A header line names each file when there are several.
func writeListings(w io.Writer, results []result, cfg *Config, color bool) error {
	opts := listing.Options{Full: cfg.Full, Raw: cfg.Raw}
	for i, res := range results {
		if res.Err != nil {
			continue
		}
		if len(results) > 1 {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "; %s\n", res.Path)
		}
		text := listing.String(res.Chunk.Main, opts)
		if color {
			text, _ = colorize.Listing(text)
		}
		if _, err := io.WriteString(w, text); err != nil {
			return err
		}
	}
	return nil
}
