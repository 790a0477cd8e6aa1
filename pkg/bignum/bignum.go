// Package bignum implements the decimal-segmented arbitrary-precision
// numeric type described in spec.md §4.1: a significand array of
// base-10^DPW "digits", a signed exponent, and integer/real/negative/
// inexact/NaN flags.
//
// Unlike math/big (binary radix, no notion of "inexact" or a decimal
// exponent), this representation makes the base-10 exponent and the
// exact/inexact distinction first-class, because both are observable in
// spec.md's numeric semantics (§8: "Inexact contamination", "Bignum
// precision"). See DESIGN.md for why math/big cannot stand in for this.
//
// Deviation from the C original: spec.md §3.2 notes that "the topmost
// significand segment carries the sign for integers" — an artifact of the
// C layout. WISP stores the sign uniformly in the Negative flag for both
// integers and reals; every observable operation (print, compare,
// normalize, arithmetic) behaves identically, so nothing in spec.md §8 is
// affected by the simplification.
package bignum

import (
	"fmt"
	"strconv"

	"github.com/avl-labs/wisp/pkg/value"
)

// DPW is "digits per word": each significand segment holds a value in
// [0, 10^DPW). 9 keeps 10^DPW comfortably inside an int64 with headroom
// for carry arithmetic during schoolbook multiply/divide.
const DPW = 9

// Radix is 10^DPW.
const Radix = 1_000_000_000

// MaxSignificantDigits bounds normalized precision (spec.md §4.1 "if
// significand exceeds the configured maximum significant digits, low
// digits are shifted off and the inexact flag is set").
const MaxSignificantDigits = 50

// Bignum is a signed, arbitrary-precision decimal number.
//
// Sig holds DPW-digit segments, least-significant segment first. A zero
// value is represented as Sig == []int64{0} (or empty, see IsZero), Exp ==
// 0, Negative == false.
type Bignum struct {
	Integer  bool
	Real     bool
	Negative bool
	Inexact  bool
	NaN      bool
	Exp      int64
	Sig      []int64
}

// ObjType implements value.HeapObject.
func (b *Bignum) ObjType() value.ObjectType { return value.TBignum }

// zeroInt returns a fresh exact-zero integer bignum.
func zeroInt() *Bignum {
	return &Bignum{Integer: true, Sig: []int64{0}}
}

// NewInt constructs an exact integer bignum from an int64.
func NewInt(n int64) *Bignum {
	bn := &Bignum{Integer: true}
	if n < 0 {
		bn.Negative = true
		n = -n
	}
	if n == 0 {
		bn.Sig = []int64{0}
		return bn
	}
	for n > 0 {
		bn.Sig = append(bn.Sig, n%Radix)
		n /= Radix
	}
	return bn
}

// NewReal constructs an inexact real bignum from a float64, via its
// shortest decimal round-trip representation (stdlib strconv), then
// reparsed through Parse so the segment/exponent invariants hold.
func NewReal(f float64) (*Bignum, error) {
	return Parse(strconv.FormatFloat(f, 'e', -1, 64))
}

// IsZero reports whether bn is the value zero (independent of sign/exp).
func (bn *Bignum) IsZero() bool {
	for _, d := range bn.Sig {
		if d != 0 {
			return false
		}
	}
	return true
}

// digitCount returns the number of base-10 digits across bn's segments,
// not counting leading (most-significant) zero digits, per spec.md's
// "digit-counts" comparison key.
func (bn *Bignum) digitCount() int {
	if len(bn.Sig) == 0 {
		return 1
	}
	top := bn.Sig[len(bn.Sig)-1]
	n := (len(bn.Sig)-1)*DPW + 1
	for top >= 10 {
		top /= 10
		n++
	}
	if bn.IsZero() {
		return 1
	}
	return n
}

func trimLeadingZeroSegments(sig []int64) []int64 {
	i := len(sig)
	for i > 1 && sig[i-1] == 0 {
		i--
	}
	return sig[:i]
}

// Normalize enforces spec.md §4.1's normalize contract: strip trailing
// (least-significant) zero segments bumping Exp, then cap the
// significant-digit count, marking Inexact if non-zero digits are shifted
// off. Idempotent per spec.md §8 ("normalize(normalize(x)) bit-for-bit").
func Normalize(bn *Bignum) (*Bignum, error) {
	out := &Bignum{
		Integer: bn.Integer, Real: bn.Real, Negative: bn.Negative,
		Inexact: bn.Inexact, NaN: bn.NaN, Exp: bn.Exp,
		Sig: append([]int64(nil), bn.Sig...),
	}
	if out.NaN {
		return out, nil
	}
	out.Sig = trimLeadingZeroSegments(out.Sig)

	for !out.IsZero() && out.Sig[0] == 0 && len(out.Sig) > 1 {
		out.Sig = out.Sig[1:]
		out.Exp += DPW
	}

	for out.digitCount() > MaxSignificantDigits {
		dropped := shiftRightInPlace(out)
		if dropped != 0 {
			out.Inexact = true
		}
	}

	if out.Exp > (1<<31)-1 || out.Exp < -(1<<31) {
		return nil, ErrConversion
	}
	if out.IsZero() {
		out.Negative = false
	}
	return out, nil
}

// shiftRightInPlace divides the significand by 10 (bumping Exp by 1) and
// returns the dropped digit, per spec.md's "shift-right" operation.
func shiftRightInPlace(bn *Bignum) int64 {
	var rem int64
	for i := len(bn.Sig) - 1; i >= 0; i-- {
		cur := bn.Sig[i] + rem*Radix
		bn.Sig[i] = cur / 10
		rem = cur % 10
	}
	bn.Sig = trimLeadingZeroSegments(bn.Sig)
	bn.Exp++
	return rem
}

// ShiftRight is the public spec.md operation: return (quotient-of-divide-
// by-10, remainder-digit), leaving bn untouched.
func ShiftRight(bn *Bignum) (quotient *Bignum, remainder int64) {
	q := &Bignum{Integer: bn.Integer, Real: bn.Real, Negative: bn.Negative,
		Inexact: bn.Inexact, Exp: bn.Exp, Sig: append([]int64(nil), bn.Sig...)}
	rem := shiftRightInPlace(q)
	q.Exp = bn.Exp
	return q, rem
}

// ShiftLeft multiplies the significand by 10, inserting fill as the new
// least-significant decimal digit (spec.md's "shift-left fill").
func ShiftLeft(bn *Bignum, fill int64) *Bignum {
	out := &Bignum{Integer: bn.Integer, Real: bn.Real, Negative: bn.Negative,
		Inexact: bn.Inexact, Exp: bn.Exp, Sig: append([]int64(nil), bn.Sig...)}
	var carry = fill
	for i := range out.Sig {
		v := out.Sig[i]*10 + carry
		out.Sig[i] = v % Radix
		carry = v / Radix
	}
	for carry > 0 {
		out.Sig = append(out.Sig, carry%Radix)
		carry /= Radix
	}
	return out
}

func absAdd(a, b []int64) []int64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]int64, n)
	var carry int64
	for i := 0; i < n; i++ {
		var av, bv int64
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		s := av + bv + carry
		out[i] = s % Radix
		carry = s / Radix
	}
	if carry > 0 {
		out = append(out, carry)
	}
	return out
}

// absCompare returns -1, 0, 1 comparing |a| to |b| segment-wise.
func absCompare(a, b []int64) int {
	a = trimLeadingZeroSegments(a)
	b = trimLeadingZeroSegments(b)
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	for i := len(a) - 1; i >= 0; i-- {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// absSub computes |a| - |b| assuming |a| >= |b|.
func absSub(a, b []int64) []int64 {
	out := make([]int64, len(a))
	var borrow int64
	for i := range a {
		var bv int64
		if i < len(b) {
			bv = b[i]
		}
		d := a[i] - bv - borrow
		if d < 0 {
			d += Radix
			borrow = 1
		} else {
			borrow = 0
		}
		out[i] = d
	}
	return trimLeadingZeroSegments(out)
}

// Add implements exact integer addition (spec.md §4.1 "add"): segment-wise
// with carry using radix 10^DPW, sign handled by dispatch to the
// absolute-value operation followed by negation as needed.
func Add(a, b *Bignum) (*Bignum, error) {
	if a.Exp != b.Exp {
		return nil, fmt.Errorf("bignum: Add requires equal exponents, use RealAdd for reals")
	}
	out := &Bignum{Integer: true, Exp: a.Exp}
	switch {
	case a.Negative == b.Negative:
		out.Sig = absAdd(a.Sig, b.Sig)
		out.Negative = a.Negative
	case absCompare(a.Sig, b.Sig) >= 0:
		out.Sig = absSub(a.Sig, b.Sig)
		out.Negative = a.Negative
	default:
		out.Sig = absSub(b.Sig, a.Sig)
		out.Negative = b.Negative
	}
	return Normalize(out)
}

// Subtract implements exact integer subtraction as Add(a, negate(b)).
func Subtract(a, b *Bignum) (*Bignum, error) {
	nb := &Bignum{Integer: b.Integer, Exp: b.Exp, Negative: !b.Negative,
		Sig: append([]int64(nil), b.Sig...)}
	if nb.IsZero() {
		nb.Negative = false
	}
	return Add(a, nb)
}

// mulAbsBySmall multiplies |a| by a single base-10 digit d (0..9).
func mulAbsBySmall(a []int64, d int64) []int64 {
	if d == 0 {
		return []int64{0}
	}
	out := make([]int64, len(a))
	var carry int64
	for i, seg := range a {
		v := seg*d + carry
		out[i] = v % Radix
		carry = v / Radix
	}
	for carry > 0 {
		out = append(out, carry%Radix)
		carry /= Radix
	}
	return out
}

// Multiply implements schoolbook multiplication (spec.md §4.1 "multiply"):
// repeated add of a shifted multiplicand after extracting digits of the
// multiplier via shift-right.
func Multiply(a, b *Bignum) (*Bignum, error) {
	acc := zeroInt()
	acc.Exp = a.Exp + b.Exp
	shifted := &Bignum{Integer: true, Sig: append([]int64(nil), a.Sig...)}
	rest := &Bignum{Integer: true, Sig: append([]int64(nil), b.Sig...)}
	shift := 0
	for !rest.IsZero() {
		var digit int64
		rest, digit = ShiftRight(rest)
		if digit != 0 {
			term := mulAbsBySmall(shifted.Sig, digit)
			for i := 0; i < shift; i++ {
				term = ShiftLeft(&Bignum{Sig: term}, 0).Sig
			}
			acc.Sig = absAdd(acc.Sig, term)
		}
		shift++
	}
	acc.Negative = a.Negative != b.Negative
	return Normalize(acc)
}

// Divide implements long division via an "equalize" step that scales the
// divisor up by powers of 10 until it exceeds the dividend,
// then iterative subtraction producing one quotient digit per power of
// ten walked back down (spec.md §4.1 "divide"). Fails with
// ErrDivideByZero when b is zero.
func Divide(a, b *Bignum) (quotient, remainder *Bignum, err error) {
	if b.IsZero() {
		return nil, nil, ErrDivideByZero
	}
	rem := &Bignum{Integer: true, Sig: trimLeadingZeroSegments(append([]int64(nil), a.Sig...))}
	scaled := &Bignum{Integer: true, Sig: trimLeadingZeroSegments(append([]int64(nil), b.Sig...))}

	shiftCount := 0
	for absCompare(scaled.Sig, rem.Sig) <= 0 {
		scaled = ShiftLeft(scaled, 0)
		shiftCount++
	}

	var qDigits []int64 // most-significant digit first
	for i := 0; i < shiftCount; i++ {
		scaled, _ = ShiftRight(scaled)
		var digit int64
		for absCompare(scaled.Sig, rem.Sig) <= 0 {
			rem.Sig = absSub(rem.Sig, scaled.Sig)
			digit++
		}
		qDigits = append(qDigits, digit)
	}

	qMag := zeroInt()
	for _, d := range qDigits {
		qMag = ShiftLeft(qMag, d)
	}

	q := &Bignum{Integer: true, Negative: a.Negative != b.Negative, Sig: qMag.Sig}
	r := &Bignum{Integer: true, Negative: a.Negative, Sig: rem.Sig}
	q, err = Normalize(q)
	if err != nil {
		return nil, nil, err
	}
	r, err = Normalize(r)
	if err != nil {
		return nil, nil, err
	}
	return q, r, nil
}

// ToFixnum converts bn to an int64 if it is an exact integer within range;
// ok is false otherwise (spec.md §4.1 "bignum->fixnum").
func (bn *Bignum) ToFixnum() (n int64, ok bool) {
	if !bn.Integer || bn.Inexact || bn.NaN {
		return 0, false
	}
	var v int64
	for i := len(bn.Sig) - 1; i >= 0; i-- {
		// overflow guard: bail out rather than wrap.
		if v > (1<<62)/Radix {
			return 0, false
		}
		v = v*Radix + bn.Sig[i]
	}
	for e := bn.Exp; e > 0; e-- {
		if v > (1 << 62 / 10) {
			return 0, false
		}
		v *= 10
	}
	if bn.Negative {
		v = -v
	}
	return v, true
}

// Compare returns -1, 0, or 1 comparing a and b, promoting integer to real
// when the types are mixed (spec.md §4.1 "Comparisons").
func Compare(a, b *Bignum) int {
	if a.Real != b.Real {
		a, b = promotePair(a, b)
	}
	if a.Negative != b.Negative {
		if a.IsZero() && b.IsZero() {
			return 0
		}
		if a.Negative {
			return -1
		}
		return 1
	}
	sign := 1
	if a.Negative {
		sign = -1
	}
	da, db := a.digitCount()+int(a.Exp), b.digitCount()+int(b.Exp)
	if da != db {
		if da < db {
			return -1 * sign
		}
		return 1 * sign
	}
	ea, eb := scaleToCommonExp(a, b)
	return absCompare(ea.Sig, eb.Sig) * sign
}

func promotePair(a, b *Bignum) (*Bignum, *Bignum) {
	pa, pb := *a, *b
	if !pa.Real {
		pa.Real = true
	}
	if !pb.Real {
		pb.Real = true
	}
	return &pa, &pb
}

// scaleToCommonExp scales both operands' significands to share the lower
// of the two exponents, for digit-wise comparison/addition.
func scaleToCommonExp(a, b *Bignum) (*Bignum, *Bignum) {
	ea, eb := a.Exp, b.Exp
	ca := &Bignum{Sig: append([]int64(nil), a.Sig...), Exp: ea}
	cb := &Bignum{Sig: append([]int64(nil), b.Sig...), Exp: eb}
	for ca.Exp > cb.Exp {
		ca.Sig = ShiftLeft(ca, 0).Sig
		ca.Exp--
	}
	for cb.Exp > ca.Exp {
		cb.Sig = ShiftLeft(cb, 0).Sig
		cb.Exp--
	}
	return ca, cb
}
