package bignum

// promoteIfMixed marks both operands Real when only one is, so mixed
// integer/real arithmetic shares the real code paths (spec.md §4.1
// "promote either operand to real when mixed").
func promoteIfMixed(a, b *Bignum) (*Bignum, *Bignum) {
	pa, pb := *a, *b
	if pa.Real != pb.Real {
		pa.Real = true
		pb.Real = true
	}
	return &pa, &pb
}

func mixedInexact(a, b *Bignum) bool {
	return a.Real || b.Real || a.Inexact || b.Inexact
}

// RealAdd implements inexact/mixed addition: scale both operands to a
// common exponent then add segment-wise (spec.md §4.1 "real-add"). The
// width of the scaled operands is not capped; only the final Normalize
// trims the sum to MaxSignificantDigits.
func RealAdd(a, b *Bignum) (*Bignum, error) {
	pa, pb := promoteIfMixed(a, b)
	ca, cb := scaleToCommonExp(pa, pb)
	out := &Bignum{Real: true, Exp: ca.Exp}
	switch {
	case ca.Negative == cb.Negative:
		out.Sig = absAdd(ca.Sig, cb.Sig)
		out.Negative = ca.Negative
	case absCompare(ca.Sig, cb.Sig) >= 0:
		out.Sig = absSub(ca.Sig, cb.Sig)
		out.Negative = ca.Negative
	default:
		out.Sig = absSub(cb.Sig, ca.Sig)
		out.Negative = cb.Negative
	}
	out.Inexact = mixedInexact(a, b)
	return Normalize(out)
}

// RealSubtract implements real-subtract as RealAdd(a, negate(b)).
func RealSubtract(a, b *Bignum) (*Bignum, error) {
	nb := *b
	nb.Negative = !nb.Negative
	if nb.IsZero() {
		nb.Negative = false
	}
	return RealAdd(a, &nb)
}

// RealMultiply implements real-multiply: the same schoolbook product as
// Multiply, but flagged real/inexact when either operand is.
func RealMultiply(a, b *Bignum) (*Bignum, error) {
	prod, err := Multiply(a, b)
	if err != nil {
		return nil, err
	}
	prod.Real = true
	prod.Integer = false
	prod.Inexact = mixedInexact(a, b)
	return Normalize(prod)
}

// RealDivide implements real-divide (spec.md §4.1 "real-divide"): bump
// the numerator by 10^n chosen so the integer quotient carries
// MAX_DIGITS significant digits, then set the exponent to
// expa − expb − n. Any non-zero remainder sets inexact.
func RealDivide(a, b *Bignum) (*Bignum, error) {
	if b.IsZero() {
		return nil, ErrDivideByZero
	}
	num := &Bignum{Integer: true, Sig: append([]int64(nil), a.Sig...)}
	den := &Bignum{Integer: true, Sig: append([]int64(nil), b.Sig...)}
	var n int64
	for num.digitCount()-den.digitCount() < MaxSignificantDigits {
		num = ShiftLeft(num, 0)
		n++
	}
	q, r, err := Divide(num, den)
	if err != nil {
		return nil, err
	}
	q.Real = true
	q.Integer = false
	q.Exp = a.Exp - b.Exp - n
	q.Negative = a.Negative != b.Negative
	q.Inexact = mixedInexact(a, b) || !r.IsZero()
	return Normalize(q)
}
