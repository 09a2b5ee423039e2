package atcmd

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

type pipe struct {
	io.Reader
	bytes.Buffer
}

func (p *pipe) Read(b []byte) (int, error)  { return p.Reader.Read(b) }
func (p *pipe) Write(b []byte) (int, error) { return p.Buffer.Write(b) }

func TestLineTransportReadLine(t *testing.T) {
	p := &pipe{Reader: strings.NewReader("AT+RST\r\nAT+GMR\n\r\nlast")}
	tr := NewLineTransport(p)

	want := []string{"AT+RST", "AT+GMR", "", "last"}
	for i, w := range want {
		got, err := tr.ReadLine()
		if err != nil {
			t.Fatalf("line %d: ReadLine() error = %v", i, err)
		}
		if got != w {
			t.Errorf("line %d = %q, want %q", i, got, w)
		}
	}

	if _, err := tr.ReadLine(); !errors.Is(err, io.EOF) {
		t.Errorf("ReadLine() at end error = %v, want io.EOF", err)
	}
}

func TestLineTransportWrite(t *testing.T) {
	p := &pipe{Reader: strings.NewReader("")}
	tr := NewLineTransport(p)

	if err := tr.WriteLine(ReplyOK); err != nil {
		t.Fatalf("WriteLine() error = %v", err)
	}
	if _, err := tr.Write([]byte{0xA0, 0x01, 0x01, 0xA2}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	want := append([]byte("OK\r\n"), 0xA0, 0x01, 0x01, 0xA2)
	if !bytes.Equal(p.Buffer.Bytes(), want) {
		t.Errorf("wrote % x, want % x", p.Buffer.Bytes(), want)
	}
	if err := tr.Close(); err != nil {
		t.Errorf("Close() on a non-closer error = %v", err)
	}
}
