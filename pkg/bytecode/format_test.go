package bytecode

import (
	"bytes"
	"testing"

	"github.com/avl-labs/wisp/pkg/bignum"
	"github.com/avl-labs/wisp/pkg/object"
	"github.com/avl-labs/wisp/pkg/value"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	bn := bignum.NewInt(123456789)
	code := New()
	code.EmitVaruint(OpFixnum, 42)
	code.Emit(OpReturn)

	original := &Module{
		Name:    "test-module",
		Exports: []string{"add", "sub"},
		Imports: []string{"base"},
		Constants: []value.Value{
			value.Fixnum(42),
			value.Pointer(object.NewString("hello")),
			value.Pointer(object.Intern("car")),
			value.Pointer(object.InternKeyword("key")),
			value.Character('x'),
			value.Nil,
			value.True,
			value.False,
			value.Pointer(bn),
		},
		VCI:  map[int64]int64{0: 10, 1: 11},
		Code: *code,
	}

	var buf bytes.Buffer
	if err := Encode(&buf, original); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if decoded.Name != original.Name {
		t.Errorf("Name = %q, want %q", decoded.Name, original.Name)
	}
	if len(decoded.Exports) != 2 || decoded.Exports[0] != "add" {
		t.Errorf("Exports = %v", decoded.Exports)
	}
	if len(decoded.Imports) != 1 || decoded.Imports[0] != "base" {
		t.Errorf("Imports = %v", decoded.Imports)
	}
	if len(decoded.Constants) != len(original.Constants) {
		t.Fatalf("Constants count = %d, want %d", len(decoded.Constants), len(original.Constants))
	}

	n, _ := decoded.Constants[0].FixnumValue()
	if n != 42 {
		t.Errorf("Constants[0] = %d, want 42", n)
	}
	if str, ok := decoded.Constants[1].Object().(*object.String); !ok || string(str.Bytes) != "hello" {
		t.Errorf("Constants[1] = %v, want string hello", decoded.Constants[1])
	}
	if sym, ok := decoded.Constants[2].Object().(*object.Symbol); !ok || sym.Name != "car" {
		t.Errorf("Constants[2] = %v, want symbol car", decoded.Constants[2])
	}
	if kw, ok := decoded.Constants[3].Object().(*object.Keyword); !ok || kw.Name != "key" {
		t.Errorf("Constants[3] = %v, want keyword key", decoded.Constants[3])
	}
	if r, ok := decoded.Constants[4].CharacterValue(); !ok || r != 'x' {
		t.Errorf("Constants[4] = %v, want character x", decoded.Constants[4])
	}
	if decoded.Constants[5] != value.Nil || decoded.Constants[6] != value.True || decoded.Constants[7] != value.False {
		t.Errorf("singleton constants not preserved: %v %v %v",
			decoded.Constants[5], decoded.Constants[6], decoded.Constants[7])
	}
	decodedBn, ok := decoded.Constants[8].Object().(*bignum.Bignum)
	if !ok || decodedBn.String() != bn.String() {
		t.Errorf("Constants[8] bignum = %v, want %v", decodedBn, bn)
	}

	if len(decoded.VCI) != 2 || decoded.VCI[0] != 10 || decoded.VCI[1] != 11 {
		t.Errorf("VCI = %v", decoded.VCI)
	}
	if !bytes.Equal(decoded.Code.Code, original.Code.Code) {
		t.Errorf("Code = %v, want %v", decoded.Code.Code, original.Code.Code)
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 0, 0, 0, 0, 1})
	if _, err := Decode(buf); err == nil {
		t.Error("Decode with bad magic: want error")
	}
}
