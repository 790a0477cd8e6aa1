package handle

import (
	"bytes"
	"io"
	"os"
	"runtime"
)

// OpenFile opens name for reading, writing, or both, registering a
// finalizer that closes the handle if the program forgets to (spec.md §9
// "Scoped resources": "file handles register a finalizer when opened
// (except the three std handles); the finalizer calls close iff not
// already closed").
func OpenFile(name string, flag int, perm os.FileMode) (*Handle, error) {
	f, err := os.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	var flags Flags = File
	switch {
	case flag&os.O_RDWR != 0:
		flags |= Read | Write
	case flag&os.O_WRONLY != 0:
		flags |= Write
	default:
		flags |= Read
	}
	h := New(name, flags, f, f, f, f)
	runtime.SetFinalizer(h, finalizeHandle)
	return h, nil
}

func finalizeHandle(h *Handle) {
	if h.flags&Closed == 0 {
		h.Close()
	}
}

// nopSeeker rejects Seek, used by handles over non-seekable in-memory
// buffers (string input handles are seekable via bytes.Reader, but string
// output handles are not).
type nopSeeker struct{}

func (nopSeeker) Seek(int64, int) (int64, error) { return 0, ErrNotSeekable }

// nopCloser satisfies io.Closer for in-memory handles with nothing to
// release at the OS level.
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenStringInput wraps s as a read-only, seekable in-memory handle (spec.md
// §3.2 handle flags "STRING"), e.g. for with-input-from-string.
func OpenStringInput(name, s string) *Handle {
	r := bytes.NewReader([]byte(s))
	return New(name, StringBacked|Read, r, nil, nopCloser{}, r)
}

// stringOutput accumulates writes into an in-memory buffer, readable back
// via String after Flush/Close.
type stringOutput struct {
	buf *bytes.Buffer
}

func (s *stringOutput) Write(p []byte) (int, error) { return s.buf.Write(p) }
func (s *stringOutput) Close() error                { return nil }

// OpenStringOutput creates a write-only in-memory handle; its accumulated
// contents are available via StringOutputContents once the handle is
// flushed or closed.
func OpenStringOutput(name string) *Handle {
	buf := &bytes.Buffer{}
	out := &stringOutput{buf: buf}
	h := New(name, StringBacked|Write, nil, out, out, nopSeeker{})
	stringOutputBufs[h] = buf
	return h
}

var stringOutputBufs = map[*Handle]*bytes.Buffer{}

// StringOutputContents returns the bytes written to a handle created by
// OpenStringOutput, flushing first so pending buffered writes are visible.
func StringOutputContents(h *Handle) (string, bool) {
	buf, ok := stringOutputBufs[h]
	if !ok {
		return "", false
	}
	h.Flush()
	return buf.String(), true
}

// NewStdio wraps one of the three standard streams. These are exempt from
// finalizer registration (spec.md §9) since the process owns their
// lifetime, not the GC.
func NewStdio(name string, flags Flags, r io.Reader, w io.Writer) *Handle {
	return New(name, flags|Stdio, r, w, nopCloser{}, nil)
}
