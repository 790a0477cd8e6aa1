package bytecode

import (
	"encoding/binary"
	"fmt"
)

// PutVaruint appends n in spec.md §6.1's code-size-optimized varuint
// encoding and returns the updated buffer:
//   - b <= 240            -> value b
//   - 241 <= b <= 248      -> value 240 + 256*(b-241) + next_byte
//   - b == 249             -> value 2288 + 256*b2 + b3
//   - 250 <= b <= 255      -> next (b-250)+3 bytes big-endian unsigned
func PutVaruint(buf []byte, n uint64) []byte {
	switch {
	case n <= 240:
		return append(buf, byte(n))
	case n <= 240+255+256*7: // fits the 241..248 one-extra-byte range
		n -= 240
		b := byte(241 + n/256)
		return append(buf, b, byte(n%256))
	case n <= 2288+65535:
		n -= 2288
		return append(buf, 249, byte(n/256), byte(n%256))
	default:
		var width int
		for w := 3; w <= 8; w++ {
			if n < (uint64(1) << (8 * w)) {
				width = w
				break
			}
		}
		if width == 0 {
			width = 8
		}
		buf = append(buf, byte(250+width-3))
		start := len(buf)
		buf = append(buf, make([]byte, width)...)
		v := n
		for i := width - 1; i >= 0; i-- {
			buf[start+i] = byte(v & 0xff)
			v >>= 8
		}
		return buf
	}
}

// GetVaruint decodes a varuint starting at buf[pos], returning the value
// and the position just past it.
func GetVaruint(buf []byte, pos int) (n uint64, next int, err error) {
	if pos >= len(buf) {
		return 0, pos, fmt.Errorf("bytecode: varuint read past end at %d", pos)
	}
	b := buf[pos]
	switch {
	case b <= 240:
		return uint64(b), pos + 1, nil
	case b <= 248:
		if pos+1 >= len(buf) {
			return 0, pos, fmt.Errorf("bytecode: truncated varuint at %d", pos)
		}
		v := 240 + 256*uint64(b-241) + uint64(buf[pos+1])
		return v, pos + 2, nil
	case b == 249:
		if pos+2 >= len(buf) {
			return 0, pos, fmt.Errorf("bytecode: truncated varuint at %d", pos)
		}
		v := 2288 + 256*uint64(buf[pos+1]) + uint64(buf[pos+2])
		return v, pos + 3, nil
	default:
		width := int(b-250) + 3
		if pos+1+width > len(buf) {
			return 0, pos, fmt.Errorf("bytecode: truncated varuint at %d", pos)
		}
		var v uint64
		for i := 0; i < width; i++ {
			v = v<<8 | uint64(buf[pos+1+i])
		}
		return v, pos + 1 + width, nil
	}
}

// PutFixuint appends n as a big-endian fixed-width unsigned integer of
// width bytes (width in {1,2,4,8}), per spec.md §6.1 "fixuint-N".
func PutFixuint(buf []byte, width int, n uint64) []byte {
	start := len(buf)
	buf = append(buf, make([]byte, width)...)
	switch width {
	case 1:
		buf[start] = byte(n)
	case 2:
		binary.BigEndian.PutUint16(buf[start:], uint16(n))
	case 4:
		binary.BigEndian.PutUint32(buf[start:], uint32(n))
	case 8:
		binary.BigEndian.PutUint64(buf[start:], n)
	default:
		panic(fmt.Sprintf("bytecode: invalid fixuint width %d", width))
	}
	return buf
}

// GetFixuint decodes a big-endian fixed-width unsigned integer of width
// bytes starting at buf[pos].
func GetFixuint(buf []byte, pos, width int) (n uint64, next int, err error) {
	if pos+width > len(buf) {
		return 0, pos, fmt.Errorf("bytecode: truncated fixuint-%d at %d", width, pos)
	}
	switch width {
	case 1:
		return uint64(buf[pos]), pos + 1, nil
	case 2:
		return uint64(binary.BigEndian.Uint16(buf[pos:])), pos + 2, nil
	case 4:
		return uint64(binary.BigEndian.Uint32(buf[pos:])), pos + 4, nil
	case 8:
		return binary.BigEndian.Uint64(buf[pos:]), pos + 8, nil
	default:
		return 0, pos, fmt.Errorf("bytecode: invalid fixuint width %d", width)
	}
}

// PutSignedVaruint zigzag-encodes n (so small negative and small positive
// offsets both stay in the cheap single-byte varuint range) and appends it.
// Used for the signed relative GOTO/JUMP offsets of spec.md §6.1.
func PutSignedVaruint(buf []byte, n int64) []byte {
	zz := uint64((n << 1) ^ (n >> 63))
	return PutVaruint(buf, zz)
}

// GetSignedVaruint decodes a zigzag-encoded signed varuint.
func GetSignedVaruint(buf []byte, pos int) (n int64, next int, err error) {
	zz, next, err := GetVaruint(buf, pos)
	if err != nil {
		return 0, pos, err
	}
	return int64(zz>>1) ^ -int64(zz&1), next, nil
}

// MaxReference is the per-module index-space cap enforced at compile time
// by the reference encoding (spec.md §6.1 "capping the module-local index
// space at 65 536 per module").
const MaxReference = 65536

// PutReference appends mci as a 16-bit big-endian reference. It panics if
// mci does not fit — callers must enforce the cap at compile time.
func PutReference(buf []byte, mci uint64) []byte {
	if mci >= MaxReference {
		panic(fmt.Sprintf("bytecode: module-local index %d exceeds %d", mci, MaxReference))
	}
	return PutFixuint(buf, 2, mci)
}

// GetReference decodes a 16-bit big-endian reference.
func GetReference(buf []byte, pos int) (mci uint64, next int, err error) {
	return GetFixuint(buf, pos, 2)
}
