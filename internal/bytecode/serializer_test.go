package bytecode

import (
	"strings"
	"testing"

	"github.com/thirawat27/QB-COM/internal/lexer"
	"github.com/thirawat27/QB-COM/internal/parser"
	"github.com/thirawat27/QB-COM/internal/semantic"
	"github.com/thirawat27/QB-COM/internal/semantic/passes"
)

func compileSource(t *testing.T, source string) *Chunk {
	t.Helper()
	l := lexer.New(source)
	p := parser.New(l)
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	analyzer := semantic.NewAnalyzer(&passes.DeclarationPass{}, &passes.TypeResolutionPass{}, &passes.ValidationPass{})
	diags, err := analyzer.Analyze(program)
	if err != nil {
		t.Fatalf("analyzer internal error: %v", err)
	}
	for _, d := range diags {
		if d.Severity == semantic.SeverityError {
			t.Fatalf("semantic error: %s", d.Message)
		}
	}
	chunk, err := Compile(program, analyzer.Context())
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return chunk
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	chunk := compileSource(t, `
DIM total AS INTEGER
DIM names(5) AS STRING
FOR i = 1 TO 5
total = total + i
NEXT i
PRINT "total="; total
PRINT LEFT$("hello", 3)
`)

	data, err := NewSerializer().SerializeChunk(chunk)
	if err != nil {
		t.Fatalf("serialize error: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected non-empty serialized image")
	}

	got, err := NewSerializer().DeserializeChunk(data)
	if err != nil {
		t.Fatalf("deserialize error: %v", err)
	}

	if len(got.Code) != len(chunk.Code) {
		t.Fatalf("instruction count mismatch: want %d, got %d", len(chunk.Code), len(got.Code))
	}
	for i := range chunk.Code {
		if got.Code[i] != chunk.Code[i] {
			t.Fatalf("instruction %d mismatch: want %#x, got %#x", i, chunk.Code[i], got.Code[i])
		}
	}
	if len(got.Constants) != len(chunk.Constants) {
		t.Fatalf("constant count mismatch: want %d, got %d", len(chunk.Constants), len(got.Constants))
	}
	for i := range chunk.Constants {
		if got.Constants[i].Type != chunk.Constants[i].Type {
			t.Fatalf("constant %d type mismatch", i)
		}
	}
	if len(got.Arrays) != len(chunk.Arrays) {
		t.Fatalf("array spec count mismatch: want %d, got %d", len(chunk.Arrays), len(got.Arrays))
	}
	if len(got.GlobalNames) != len(chunk.GlobalNames) {
		t.Fatalf("global name count mismatch: want %d, got %d", len(chunk.GlobalNames), len(got.GlobalNames))
	}

	// The round-tripped chunk must still execute identically.
	host := newStubHost()
	vm := NewVM(got, host)
	rerr, err := vm.Run()
	if err != nil {
		t.Fatalf("vm internal error on round-tripped chunk: %v", err)
	}
	if rerr != nil {
		t.Fatalf("runtime error on round-tripped chunk: %s", rerr.Error())
	}
}

func TestDeserializeRejectsBadMagic(t *testing.T) {
	_, err := NewSerializer().DeserializeChunk([]byte("not a bytecode image at all"))
	if err == nil {
		t.Fatalf("expected an error for a non-image payload")
	}
}

func TestDisassembleProducesOutput(t *testing.T) {
	chunk := compileSource(t, "PRINT \"hi\"\n")
	out := DisassembleToString(chunk)
	if out == "" {
		t.Fatalf("expected non-empty disassembly")
	}
	if !strings.Contains(out, "Print") && !strings.Contains(out, "PRINT") {
		t.Fatalf("expected disassembly to mention the PRINT opcode, got:\n%s", out)
	}
}
