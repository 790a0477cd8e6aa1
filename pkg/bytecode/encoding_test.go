package bytecode

import "testing"

func TestVaruintRoundTrip(t *testing.T) {
	tests := []uint64{0, 1, 100, 240, 241, 242, 2287, 2288, 67823, 67824, 1 << 20, 1 << 40}
	for _, n := range tests {
		buf := PutVaruint(nil, n)
		got, next, err := GetVaruint(buf, 0)
		if err != nil {
			t.Fatalf("GetVaruint(%d): %v", n, err)
		}
		if got != n {
			t.Errorf("varuint round trip: got %d, want %d", got, n)
		}
		if next != len(buf) {
			t.Errorf("varuint(%d): next = %d, want %d", n, next, len(buf))
		}
	}
}

func TestVaruintEncodingSizeClasses(t *testing.T) {
	if len(PutVaruint(nil, 100)) != 1 {
		t.Errorf("100 should encode in 1 byte")
	}
	if len(PutVaruint(nil, 1000)) != 2 {
		t.Errorf("1000 should encode in 2 bytes")
	}
	if len(PutVaruint(nil, 50000)) != 3 {
		t.Errorf("50000 should encode in 3 bytes")
	}
}

func TestFixuintRoundTrip(t *testing.T) {
	for _, width := range []int{1, 2, 4, 8} {
		buf := PutFixuint(nil, width, 1)
		got, next, err := GetFixuint(buf, 0, width)
		if err != nil || got != 1 || next != width {
			t.Errorf("fixuint-%d round trip failed: got %d, next %d, err %v", width, got, next, err)
		}
	}
}

func TestSignedVaruintRoundTrip(t *testing.T) {
	tests := []int64{0, 1, -1, 100, -100, 1000000, -1000000}
	for _, n := range tests {
		buf := PutSignedVaruint(nil, n)
		got, _, err := GetSignedVaruint(buf, 0)
		if err != nil {
			t.Fatalf("GetSignedVaruint(%d): %v", n, err)
		}
		if got != n {
			t.Errorf("signed varuint round trip: got %d, want %d", got, n)
		}
	}
}

func TestReferenceCapEnforced(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("PutReference(MaxReference) should panic")
		}
	}()
	PutReference(nil, MaxReference)
}

func TestReferenceRoundTrip(t *testing.T) {
	buf := PutReference(nil, 65535)
	got, _, err := GetReference(buf, 0)
	if err != nil || got != 65535 {
		t.Errorf("reference round trip: got %d, err %v", got, err)
	}
}
