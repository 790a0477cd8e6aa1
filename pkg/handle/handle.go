// Package handle implements the I/O stream abstraction of spec.md §4.3: a
// handle exposes a fixed method table (free, ready?, getb, eof?, close,
// putb, putc, puts, flush, seek, print) and a flags bitmask; the VM never
// touches an underlying os.File or net.Conn directly, only through this
// interface.
//
// Grounded on the teacher's stdlib-backed file primitives (os.Open,
// os.Create, bufio.Writer) and on the flush/read abstractions factored out
// in the sibling example's internal/flushio and internal/runeio packages
// (a Flusher interface plus a buffered rune reader), generalized here into
// one concrete type that can wrap a file, a pipe, or an in-memory string.
package handle

import (
	"bufio"
	"errors"
	"io"

	"github.com/avl-labs/wisp/pkg/value"
)

// Flags is the bitmask of spec.md §4.3's {READ, WRITE, CLOSED, FILE, PIPE,
// STRING, STDIO, INTERACTIVE, CLOEXEC, EOF}.
type Flags uint16

const (
	Read Flags = 1 << iota
	Write
	Closed
	File
	Pipe
	StringBacked
	Stdio
	Interactive
	Cloexec
	EOF
)

// ErrClosedHandle is raised by Close on an already-closed handle (spec.md
// §4.3 "closing an already-closed handle fails with
// ^i/o-closed-handle-error") and by GetB, PutB, PutC, Puts/Print, Flush
// and Seek called post-close; Ready and EOF do not check.
var ErrClosedHandle = errors.New("^i/o-closed-handle-error: handle already closed")

// ErrNotSeekable is returned by Seek on a Pipe handle (spec.md §4.3 "Pipe
// handles are not seekable").
var ErrNotSeekable = errors.New("^i/o-error: handle is not seekable")

// Handle wraps an underlying stream with the method table the VM is
// allowed to call.
type Handle struct {
	Name  string
	flags Flags

	r io.Reader
	w io.Writer
	c io.Closer
	s io.Seeker

	bw  *bufio.Writer
	br  *bufio.Reader
	eof bool
}

func (h *Handle) ObjType() value.ObjectType { return value.THandle }
func (h *Handle) String() string            { return "#<handle " + h.Name + ">" }

// Flags returns h's current flags mask.
func (h *Handle) Flags() Flags { return h.flags }

// New wraps r/w/c/s (any may be nil if unsupported) with the given initial
// flags. Buffered writers are installed automatically when w is non-nil so
// Flush has something to act on (spec.md §4.3 "flush on an output handle
// writes it").
func New(name string, flags Flags, r io.Reader, w io.Writer, c io.Closer, s io.Seeker) *Handle {
	h := &Handle{Name: name, flags: flags, r: r, w: w, c: c, s: s}
	if r != nil {
		h.br = bufio.NewReader(r)
	}
	if w != nil {
		h.bw = bufio.NewWriter(w)
	}
	return h
}

func (h *Handle) checkOpen() error {
	if h.flags&Closed != 0 {
		return ErrClosedHandle
	}
	return nil
}

// Ready reports whether a byte can be read without blocking. The buffered
// reader's Buffered() count is a conservative proxy: real non-blocking
// polling of an arbitrary io.Reader needs OS-specific support the teacher
// never exercises, so this answers "definitely ready" rather than "maybe
// ready after a blocking read".
func (h *Handle) Ready() bool {
	if h.br == nil {
		return false
	}
	return h.br.Buffered() > 0
}

// GetB reads one byte (spec.md §4.3 "getb").
func (h *Handle) GetB() (byte, error) {
	if err := h.checkOpen(); err != nil {
		return 0, err
	}
	if h.br == nil {
		return 0, errors.New("^i/o-error: handle not open for reading")
	}
	b, err := h.br.ReadByte()
	if err == io.EOF {
		h.eof = true
		h.flags |= EOF
	}
	return b, err
}

// EOF reports whether the last read hit end-of-stream.
func (h *Handle) EOF() bool { return h.eof }

// Close flushes then releases the underlying descriptor (spec.md §4.3
// "close flushes then releases the OS descriptor").
func (h *Handle) Close() error {
	if err := h.checkOpen(); err != nil {
		return err
	}
	if h.bw != nil {
		h.bw.Flush()
	}
	h.flags |= Closed
	if h.c != nil {
		return h.c.Close()
	}
	return nil
}

// PutB writes one byte.
func (h *Handle) PutB(b byte) error {
	if err := h.checkOpen(); err != nil {
		return err
	}
	if h.bw == nil {
		return errors.New("^i/o-error: handle not open for writing")
	}
	return h.bw.WriteByte(b)
}

// PutC writes one rune.
func (h *Handle) PutC(r rune) error {
	if err := h.checkOpen(); err != nil {
		return err
	}
	if h.bw == nil {
		return errors.New("^i/o-error: handle not open for writing")
	}
	_, err := h.bw.WriteRune(r)
	return err
}

// Puts writes a string.
func (h *Handle) Puts(s string) error {
	if err := h.checkOpen(); err != nil {
		return err
	}
	if h.bw == nil {
		return errors.New("^i/o-error: handle not open for writing")
	}
	_, err := h.bw.WriteString(s)
	return err
}

// Print is Puts without any additional framing; kept distinct per spec.md's
// method table since a future handle kind (e.g. a pretty-printing REPL
// handle) may render differently from a raw write.
func (h *Handle) Print(s string) error { return h.Puts(s) }

// Flush discards the input buffer on a read handle, or writes the output
// buffer on a write handle (spec.md §4.3 "Flush on an input handle
// discards the buffer; flush on an output handle writes it").
func (h *Handle) Flush() error {
	if err := h.checkOpen(); err != nil {
		return err
	}
	if h.br != nil {
		h.br.Reset(h.r)
	}
	if h.bw != nil {
		return h.bw.Flush()
	}
	return nil
}

// Seek repositions a seekable handle (spec.md §4.3 "Pipe handles are not
// seekable").
func (h *Handle) Seek(offset int64, whence int) (int64, error) {
	if err := h.checkOpen(); err != nil {
		return 0, err
	}
	if h.flags&Pipe != 0 || h.s == nil {
		return 0, ErrNotSeekable
	}
	if h.bw != nil {
		h.bw.Flush()
	}
	n, err := h.s.Seek(offset, whence)
	if h.br != nil {
		h.br.Reset(h.r)
	}
	return n, err
}
