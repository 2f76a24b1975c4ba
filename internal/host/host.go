// Package host provides the production implementation of bytecode.Host:
// console I/O backed by an io.Writer/bufio.Reader pair, numbered file
// channels backed by the OS filesystem, and the wall clock for TIMER/
// RANDOMIZE.
package host

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// channelMode is the OPEN statement's file-access mode, upper-cased by the
// compiler before it reaches the host.
type channelMode string

const (
	modeInput  channelMode = "INPUT"
	modeOutput channelMode = "OUTPUT"
	modeAppend channelMode = "APPEND"
)

// fileChannel is one OPEN'd numbered channel: either a line reader (INPUT)
// or a line writer (OUTPUT/APPEND), never both — BASIC channels are
// unidirectional per OPEN call.
type fileChannel struct {
	path   string
	mode   channelMode
	file   *os.File
	reader *bufio.Reader
}

// Console is the production bytecode.Host: PRINT/INPUT talk to out/in,
// OPEN/CLOSE/PRINT #/LINE INPUT # talk to the OS filesystem, and Now
// reads the wall clock. Zero value is not usable; construct with New.
type Console struct {
	out      io.Writer
	in       *bufio.Reader
	channels map[int]*fileChannel
}

// New wires a Console to out for PRINT and in for INPUT — typically
// os.Stdout and os.Stdin in the qbc binary, anything else in tests.
func New(out io.Writer, in io.Reader) *Console {
	return &Console{
		out:      out,
		in:       bufio.NewReader(in),
		channels: make(map[int]*fileChannel),
	}
}

func (c *Console) Print(s string) {
	fmt.Fprint(c.out, s)
}

// ReadLine reads one line for INPUT/LINE INPUT, NFC-normalizing it so
// that visually identical multi-byte UTF-8 input (e.g. a precomposed vs.
// combining-mark accented letter) compares and concatenates consistently
// once it reaches a String value.
func (c *Console) ReadLine() (string, error) {
	line, err := c.in.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if err != nil && err != io.EOF {
		return norm.NFC.String(line), err
	}
	if err == io.EOF && line == "" {
		return "", io.EOF
	}
	return norm.NFC.String(line), nil
}

func (c *Console) Now() time.Time { return time.Now() }

// OpenChannel opens path under mode and registers it under channel,
// replacing any channel already open under that number (BASIC lets a
// program re-OPEN a channel without an explicit CLOSE first).
func (c *Console) OpenChannel(channel int, path string, mode string) error {
	m := channelMode(mode)
	var f *os.File
	var err error
	switch m {
	case modeInput:
		f, err = os.Open(path)
	case modeOutput:
		f, err = os.Create(path)
	case modeAppend:
		f, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	default:
		return fmt.Errorf("unsupported file mode %q", mode)
	}
	if err != nil {
		return err
	}
	if existing, ok := c.channels[channel]; ok {
		existing.file.Close()
	}
	fc := &fileChannel{path: path, mode: m, file: f}
	if m == modeInput {
		fc.reader = bufio.NewReader(f)
	}
	c.channels[channel] = fc
	return nil
}

func (c *Console) CloseChannel(channel int) error {
	fc, ok := c.channels[channel]
	if !ok {
		return fmt.Errorf("file #%d is not open", channel)
	}
	delete(c.channels, channel)
	return fc.file.Close()
}

func (c *Console) CloseAllChannels() {
	for n := range c.channels {
		_ = c.CloseChannel(n)
	}
}

func (c *Console) WriteChannel(channel int, s string) error {
	fc, ok := c.channels[channel]
	if !ok {
		return fmt.Errorf("file #%d is not open", channel)
	}
	if fc.mode == modeInput {
		return fmt.Errorf("file #%d is open for INPUT, not OUTPUT", channel)
	}
	_, err := fmt.Fprintln(fc.file, s)
	return err
}

func (c *Console) ReadChannelLine(channel int) (string, error) {
	fc, ok := c.channels[channel]
	if !ok {
		return "", fmt.Errorf("file #%d is not open", channel)
	}
	if fc.mode != modeInput {
		return "", fmt.Errorf("file #%d is not open for INPUT", channel)
	}
	line, err := fc.reader.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if err != nil && err != io.EOF {
		return norm.NFC.String(line), err
	}
	if err == io.EOF && line == "" {
		return "", io.EOF
	}
	return norm.NFC.String(line), nil
}
