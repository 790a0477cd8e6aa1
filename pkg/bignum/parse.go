package bignum

import "strconv"

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// Parse constructs a bignum from its textual form (spec.md §4.1
// "Construction from textual form"): an optional sign, digits with an
// optional '.' and '#' inexact-digit markers (stored as the digit 5 and
// setting the inexact flag), and an optional exponent letter followed by
// a signed exponent. The result is normalized before return.
func Parse(s string) (*Bignum, error) {
	i := 0
	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}

	inexact := false
	readDigits := func() []byte {
		var out []byte
		for i < len(s) && (isDigit(s[i]) || s[i] == '#') {
			if s[i] == '#' {
				out = append(out, '5')
				inexact = true
			} else {
				out = append(out, s[i])
			}
			i++
		}
		return out
	}

	intDigits := readDigits()
	isReal := false
	var fracDigits []byte
	if i < len(s) && s[i] == '.' {
		isReal = true
		i++
		fracDigits = readDigits()
	}

	var expVal int64
	if i < len(s) && isExponentMarker(s[i]) {
		isReal = true
		i++
		expNeg := false
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			expNeg = s[i] == '-'
			i++
		}
		start := i
		for i < len(s) && isDigit(s[i]) {
			i++
		}
		if start == i {
			return nil, ErrBignumError
		}
		v, err := strconv.ParseInt(s[start:i], 10, 64)
		if err != nil {
			return nil, ErrBignumError
		}
		if expNeg {
			v = -v
		}
		expVal = v
	}

	if i != len(s) || (len(intDigits) == 0 && len(fracDigits) == 0) {
		return nil, ErrBignumError
	}

	all := append(append([]byte(nil), intDigits...), fracDigits...)
	exp := expVal - int64(len(fracDigits))

	bn := digitsToBignum(all, exp)
	bn.Negative = neg
	bn.Integer = !isReal
	bn.Real = isReal
	bn.Inexact = inexact || isReal
	return Normalize(bn)
}

func isExponentMarker(c byte) bool {
	switch c {
	case 'e', 'E', 'd', 'D', 's', 'S', 'f', 'F', 'l', 'L':
		return true
	}
	return false
}

func digitsToBignum(digits []byte, exp int64) *Bignum {
	bn := zeroInt()
	for _, d := range digits {
		bn = ShiftLeft(bn, int64(d-'0'))
	}
	bn.Exp = exp
	return bn
}
