package handle

import "testing"

func TestStringOutputRoundTrip(t *testing.T) {
	h := OpenStringOutput("test-out")
	if err := h.Puts("hello "); err != nil {
		t.Fatalf("Puts: %v", err)
	}
	if err := h.Puts("world"); err != nil {
		t.Fatalf("Puts: %v", err)
	}
	got, ok := StringOutputContents(h)
	if !ok || got != "hello world" {
		t.Fatalf("StringOutputContents = %q, %v, want hello world true", got, ok)
	}
}

func TestStringInputGetB(t *testing.T) {
	h := OpenStringInput("test-in", "AB")
	b, err := h.GetB()
	if err != nil || b != 'A' {
		t.Fatalf("GetB = %v, %v, want A nil", b, err)
	}
	b, err = h.GetB()
	if err != nil || b != 'B' {
		t.Fatalf("GetB = %v, %v, want B nil", b, err)
	}
	if _, err := h.GetB(); err == nil {
		t.Fatalf("GetB past end: want error")
	}
	if !h.EOF() {
		t.Errorf("EOF() = false after reading past end")
	}
}

func TestDoubleCloseFails(t *testing.T) {
	h := OpenStringOutput("test-close")
	if err := h.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := h.Close(); err != ErrClosedHandle {
		t.Errorf("second Close = %v, want ErrClosedHandle", err)
	}
}

func TestStringOutputNotSeekable(t *testing.T) {
	h := OpenStringOutput("test-seek")
	if _, err := h.Seek(0, 0); err != ErrNotSeekable {
		t.Errorf("Seek on string-output handle = %v, want ErrNotSeekable", err)
	}
}

func TestOperationsOnClosedHandleFail(t *testing.T) {
	h := OpenStringOutput("test-closed-ops")
	h.Close()
	if err := h.Puts("x"); err != ErrClosedHandle {
		t.Errorf("Puts on closed handle = %v, want ErrClosedHandle", err)
	}
	if err := h.Flush(); err != ErrClosedHandle {
		t.Errorf("Flush on closed handle = %v, want ErrClosedHandle", err)
	}
}
