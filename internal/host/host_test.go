package host

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConsolePrintAndReadLine(t *testing.T) {
	out := &strings.Builder{}
	in := strings.NewReader("hello\nworld\n")
	c := New(out, in)

	c.Print("hi there")
	if out.String() != "hi there" {
		t.Fatalf("expected %q, got %q", "hi there", out.String())
	}

	line, err := c.ReadLine()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != "hello" {
		t.Fatalf("expected %q, got %q", "hello", line)
	}

	line, err = c.ReadLine()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line != "world" {
		t.Fatalf("expected %q, got %q", "world", line)
	}

	_, err = c.ReadLine()
	if err != io.EOF {
		t.Fatalf("expected io.EOF at end of input, got %v", err)
	}
}

func TestConsoleOutputChannelRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")

	c := New(&strings.Builder{}, strings.NewReader(""))
	if err := c.OpenChannel(1, path, "OUTPUT"); err != nil {
		t.Fatalf("OpenChannel: %v", err)
	}
	if err := c.WriteChannel(1, "line one"); err != nil {
		t.Fatalf("WriteChannel: %v", err)
	}
	if err := c.WriteChannel(1, "line two"); err != nil {
		t.Fatalf("WriteChannel: %v", err)
	}
	if err := c.CloseChannel(1); err != nil {
		t.Fatalf("CloseChannel: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written file: %v", err)
	}
	if !strings.Contains(string(data), "line one") || !strings.Contains(string(data), "line two") {
		t.Fatalf("expected both written lines, got %q", string(data))
	}

	if err := c.OpenChannel(2, path, "INPUT"); err != nil {
		t.Fatalf("reopening for INPUT: %v", err)
	}
	first, err := c.ReadChannelLine(2)
	if err != nil {
		t.Fatalf("ReadChannelLine: %v", err)
	}
	if first != "line one" {
		t.Fatalf("expected %q, got %q", "line one", first)
	}
	c.CloseAllChannels()
}

func TestWriteChannelRejectsInputMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.txt")
	if err := os.WriteFile(path, []byte("x\n"), 0644); err != nil {
		t.Fatalf("seeding input file: %v", err)
	}

	c := New(&strings.Builder{}, strings.NewReader(""))
	if err := c.OpenChannel(1, path, "INPUT"); err != nil {
		t.Fatalf("OpenChannel: %v", err)
	}
	defer c.CloseAllChannels()

	if err := c.WriteChannel(1, "oops"); err == nil {
		t.Fatalf("expected an error writing to a channel open for INPUT")
	}
}

func TestCloseChannelNotOpenIsError(t *testing.T) {
	c := New(&strings.Builder{}, strings.NewReader(""))
	if err := c.CloseChannel(5); err == nil {
		t.Fatalf("expected an error closing a channel that was never opened")
	}
}

func TestOpenChannelReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.txt")
	pathB := filepath.Join(dir, "b.txt")

	c := New(&strings.Builder{}, strings.NewReader(""))
	if err := c.OpenChannel(1, pathA, "OUTPUT"); err != nil {
		t.Fatalf("OpenChannel A: %v", err)
	}
	if err := c.OpenChannel(1, pathB, "OUTPUT"); err != nil {
		t.Fatalf("re-OPEN on the same channel number should succeed: %v", err)
	}
	if err := c.WriteChannel(1, "to b"); err != nil {
		t.Fatalf("WriteChannel: %v", err)
	}
	c.CloseAllChannels()

	data, err := os.ReadFile(pathB)
	if err != nil {
		t.Fatalf("reading b.txt: %v", err)
	}
	if !strings.Contains(string(data), "to b") {
		t.Fatalf("expected write to have landed in b.txt, got %q", string(data))
	}
}
