package bytecode

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/thirawat27/QB-COM/internal/lexer"
	"github.com/thirawat27/QB-COM/internal/parser"
	"github.com/thirawat27/QB-COM/internal/semantic"
	"github.com/thirawat27/QB-COM/internal/semantic/passes"
)

// stubHost is an in-memory Host for exercising the compiler and VM without
// touching the filesystem or a real terminal.
type stubHost struct {
	out     strings.Builder
	inputs  []string
	now     time.Time
	channel map[int]*strings.Builder
}

func newStubHost(inputs ...string) *stubHost {
	return &stubHost{inputs: inputs, now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), channel: map[int]*strings.Builder{}}
}

func (h *stubHost) Print(s string) { h.out.WriteString(s) }

func (h *stubHost) ReadLine() (string, error) {
	if len(h.inputs) == 0 {
		return "", io.EOF
	}
	line := h.inputs[0]
	h.inputs = h.inputs[1:]
	return line, nil
}

func (h *stubHost) Now() time.Time { return h.now }

func (h *stubHost) OpenChannel(channel int, _ string, _ string) error {
	h.channel[channel] = &strings.Builder{}
	return nil
}
func (h *stubHost) CloseChannel(channel int) error { delete(h.channel, channel); return nil }
func (h *stubHost) CloseAllChannels()              {}
func (h *stubHost) WriteChannel(channel int, s string) error {
	h.channel[channel].WriteString(s)
	return nil
}
func (h *stubHost) ReadChannelLine(channel int) (string, error) { return "", io.EOF }

// compileAndRun lexes, parses, analyzes, compiles, and executes source,
// failing the test immediately on any pipeline error.
func compileAndRun(t *testing.T, source string, host *stubHost) {
	t.Helper()
	l := lexer.New(source)
	p := parser.New(l)
	program := p.ParseProgram()
	if errs := l.Errors(); len(errs) != 0 {
		t.Fatalf("lex errors: %v", errs)
	}
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

	vm := NewVM(chunk, host)
	rerr, err := vm.Run()
	if err != nil {
		t.Fatalf("vm internal error: %v", err)
	}
	if rerr != nil {
		t.Fatalf("runtime error: %s", rerr.Error())
	}
}

func TestCompileAndRunArithmetic(t *testing.T) {
	host := newStubHost()
	compileAndRun(t, "PRINT 2 + 3 * 4\n", host)
	if got := host.out.String(); strings.TrimSpace(got) != "14" {
		t.Fatalf("expected 14, got %q", got)
	}
}

func TestCompileAndRunForLoop(t *testing.T) {
	host := newStubHost()
	compileAndRun(t, "DIM total AS INTEGER\nFOR i = 1 TO 5\ntotal = total + i\nNEXT i\nPRINT total\n", host)
	if got := strings.TrimSpace(host.out.String()); got != "15" {
		t.Fatalf("expected 15, got %q", got)
	}
}

func TestCompileAndRunStringBuiltins(t *testing.T) {
	host := newStubHost()
	compileAndRun(t, `PRINT LEFT$("hello world", 5)`+"\n", host)
	if got := strings.TrimSpace(host.out.String()); got != "hello" {
		t.Fatalf("expected hello, got %q", got)
	}
}

func TestCompileAndRunIfElse(t *testing.T) {
	host := newStubHost()
	compileAndRun(t, "DIM x AS INTEGER\nx = 5\nIF x > 10 THEN\nPRINT \"big\"\nELSE\nPRINT \"small\"\nEND IF\n", host)
	if got := strings.TrimSpace(host.out.String()); got != "small" {
		t.Fatalf("expected small, got %q", got)
	}
}

func TestCompileAndRunInput(t *testing.T) {
	host := newStubHost("42")
	compileAndRun(t, "DIM n AS INTEGER\nINPUT n\nPRINT n * 2\n", host)
	if got := strings.TrimSpace(host.out.String()); got != "84" {
		t.Fatalf("expected 84, got %q", got)
	}
}

func TestCompileAndRunDivisionByZero(t *testing.T) {
	host := newStubHost()
	l := lexer.New("PRINT 1 / 0\n")
	p := parser.New(l)
	program := p.ParseProgram()
	analyzer := semantic.NewAnalyzer(&passes.DeclarationPass{}, &passes.TypeResolutionPass{}, &passes.ValidationPass{})
	if _, err := analyzer.Analyze(program); err != nil {
		t.Fatalf("analyzer internal error: %v", err)
	}
	chunk, err := Compile(program, analyzer.Context())
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	vm := NewVM(chunk, host)
	rerr, err := vm.Run()
	if err != nil {
		t.Fatalf("vm internal error: %v", err)
	}
	if rerr == nil {
		t.Fatalf("expected a division-by-zero runtime error")
	}
	if rerr.Code != ErrDivisionByZero {
		t.Fatalf("expected ErrDivisionByZero, got %v", rerr.Code)
	}
}
