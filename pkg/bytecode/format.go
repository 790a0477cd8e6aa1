// Persisted constants format: spec.md §6.4 "A compiled module writes:
// (name, exports, imports, constants-array, per-module vci as a hash,
// bytecode-array). On load, the host merges the constants into the global
// constants array, backfilling vci with freshly assigned gci."
//
// The binary framing (magic number, version, length-prefixed sections)
// follows the teacher's .sg container format; the section contents are
// replaced wholesale to match the module/constant/bytecode shape above
// instead of the teacher's class/method/instruction shape.
package bytecode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/avl-labs/wisp/pkg/bignum"
	"github.com/avl-labs/wisp/pkg/object"
	"github.com/avl-labs/wisp/pkg/value"
)

// MagicNumber is the file signature for persisted modules: "WISP".
const MagicNumber uint32 = 0x57495350

// FormatVersion is the current persisted-module format version.
const FormatVersion uint32 = 1

// Module is the in-memory shape of a persisted compiled module (spec.md
// §6.4). VCI maps module-local constant indices to positions in Constants;
// the host (pkg/module) re-maps those into global constant indices on load.
type Module struct {
	Name      string
	Exports   []string
	Imports   []string
	Constants []value.Value
	VCI       map[int64]int64
	Code      Bytecode
}

const (
	constTagFixnum byte = iota + 1
	constTagString
	constTagSymbol
	constTagKeyword
	constTagCharacter
	constTagNil
	constTagTrue
	constTagFalse
	constTagBignum
)

// Encode serializes m to w in the persisted-module binary format.
func Encode(w io.Writer, m *Module) error {
	if err := writeHeader(w); err != nil {
		return err
	}
	if err := writeString(w, m.Name); err != nil {
		return err
	}
	if err := writeStringSlice(w, m.Exports); err != nil {
		return err
	}
	if err := writeStringSlice(w, m.Imports); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(m.Constants))); err != nil {
		return err
	}
	for _, c := range m.Constants {
		if err := writeConstant(w, c); err != nil {
			return err
		}
	}
	if err := writeUint32(w, uint32(len(m.VCI))); err != nil {
		return err
	}
	for mci, idx := range m.VCI {
		if err := writeUint32(w, uint32(mci)); err != nil {
			return err
		}
		if err := writeUint32(w, uint32(idx)); err != nil {
			return err
		}
	}
	if err := writeUint32(w, uint32(len(m.Code.Code))); err != nil {
		return err
	}
	_, err := w.Write(m.Code.Code)
	return err
}

// Decode reads a persisted module from r.
func Decode(r io.Reader) (*Module, error) {
	if err := readHeader(r); err != nil {
		return nil, err
	}
	name, err := readString(r)
	if err != nil {
		return nil, err
	}
	exports, err := readStringSlice(r)
	if err != nil {
		return nil, err
	}
	imports, err := readStringSlice(r)
	if err != nil {
		return nil, err
	}
	constCount, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	constants := make([]value.Value, constCount)
	for i := range constants {
		v, err := readConstant(r)
		if err != nil {
			return nil, err
		}
		constants[i] = v
	}
	vciCount, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	vci := make(map[int64]int64, vciCount)
	for i := uint32(0); i < vciCount; i++ {
		mci, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		idx, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		vci[int64(mci)] = int64(idx)
	}
	codeLen, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	code := make([]byte, codeLen)
	if _, err := io.ReadFull(r, code); err != nil {
		return nil, err
	}
	return &Module{
		Name: name, Exports: exports, Imports: imports,
		Constants: constants, VCI: vci, Code: Bytecode{Code: code},
	}, nil
}

func writeHeader(w io.Writer) error {
	if err := writeUint32(w, MagicNumber); err != nil {
		return err
	}
	return writeUint32(w, FormatVersion)
}

func readHeader(r io.Reader) error {
	magic, err := readUint32(r)
	if err != nil {
		return err
	}
	if magic != MagicNumber {
		return fmt.Errorf("bytecode: bad magic number %#x, want %#x", magic, MagicNumber)
	}
	version, err := readUint32(r)
	if err != nil {
		return err
	}
	if version != FormatVersion {
		return fmt.Errorf("bytecode: unsupported format version %d", version)
	}
	return nil
}

func writeUint32(w io.Writer, n uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], n)
	_, err := w.Write(buf[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func writeString(w io.Writer, s string) error {
	if err := writeUint32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeStringSlice(w io.Writer, ss []string) error {
	if err := writeUint32(w, uint32(len(ss))); err != nil {
		return err
	}
	for _, s := range ss {
		if err := writeString(w, s); err != nil {
			return err
		}
	}
	return nil
}

func readStringSlice(r io.Reader) ([]string, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func writeConstant(w io.Writer, v value.Value) error {
	if n, ok := v.FixnumValue(); ok {
		if _, err := w.Write([]byte{constTagFixnum}); err != nil {
			return err
		}
		return writeUint32(w, uint32(n))
	}
	if r, ok := v.CharacterValue(); ok {
		if _, err := w.Write([]byte{constTagCharacter}); err != nil {
			return err
		}
		return writeUint32(w, uint32(r))
	}
	switch v {
	case value.Nil:
		_, err := w.Write([]byte{constTagNil})
		return err
	case value.True:
		_, err := w.Write([]byte{constTagTrue})
		return err
	case value.False:
		_, err := w.Write([]byte{constTagFalse})
		return err
	}
	switch obj := v.Object().(type) {
	case *object.String:
		if _, err := w.Write([]byte{constTagString}); err != nil {
			return err
		}
		return writeString(w, string(obj.Bytes))
	case *object.Symbol:
		if _, err := w.Write([]byte{constTagSymbol}); err != nil {
			return err
		}
		return writeString(w, obj.Name)
	case *object.Keyword:
		if _, err := w.Write([]byte{constTagKeyword}); err != nil {
			return err
		}
		return writeString(w, obj.Name)
	case *bignum.Bignum:
		if _, err := w.Write([]byte{constTagBignum}); err != nil {
			return err
		}
		return writeString(w, obj.String())
	}
	return fmt.Errorf("bytecode: constant of type %T not supported in persisted format", v.Object())
}

func readConstant(r io.Reader) (value.Value, error) {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return value.Value{}, err
	}
	switch tag[0] {
	case constTagFixnum:
		n, err := readUint32(r)
		return value.Fixnum(int64(int32(n))), err
	case constTagString:
		s, err := readString(r)
		return value.Pointer(object.NewString(s)), err
	case constTagSymbol:
		s, err := readString(r)
		return value.Pointer(object.Intern(s)), err
	case constTagKeyword:
		s, err := readString(r)
		return value.Pointer(object.InternKeyword(s)), err
	case constTagCharacter:
		n, err := readUint32(r)
		return value.Character(rune(n)), err
	case constTagNil:
		return value.Nil, nil
	case constTagTrue:
		return value.True, nil
	case constTagFalse:
		return value.False, nil
	case constTagBignum:
		s, err := readString(r)
		if err != nil {
			return value.Value{}, err
		}
		bn, err := bignum.Parse(s)
		if err != nil {
			return value.Value{}, err
		}
		return value.Pointer(bn), nil
	default:
		return value.Value{}, fmt.Errorf("bytecode: unknown constant tag %d", tag[0])
	}
}
