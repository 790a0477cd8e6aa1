package bignum

import (
	"fmt"
	"strings"
)

// String renders bn in exact integer form ("123", "-45600") or inexact
// scientific form ("1.23e+2"), matching the two printed representations
// distinguishable by the exact/inexact flag in original_source/src/bignum.c's
// printer (spec.md §4.1 supplemented per SPEC_FULL.md item 3). Parsing the
// printed form of an exact integer must round-trip (spec.md §8).
func (bn *Bignum) String() string {
	if bn.NaN {
		return "NaN"
	}
	digits := segmentsToDigitString(bn.Sig)
	if digits == "" {
		digits = "0"
	}
	sign := ""
	if bn.Negative && digits != "0" {
		sign = "-"
	}

	if bn.Integer && !bn.Inexact {
		if bn.Exp > 0 {
			digits += strings.Repeat("0", int(bn.Exp))
		}
		return sign + digits
	}

	first := digits[:1]
	rest := digits[1:]
	totalExp := bn.Exp + int64(len(digits)) - 1
	mant := first
	if rest != "" {
		mant += "." + rest
	}
	expSign := "+"
	e := totalExp
	if e < 0 {
		expSign = "-"
		e = -e
	}
	return fmt.Sprintf("%s%se%s%d", sign, mant, expSign, e)
}

func segmentsToDigitString(sig []int64) string {
	sig = trimLeadingZeroSegments(sig)
	var b strings.Builder
	for i := len(sig) - 1; i >= 0; i-- {
		if i == len(sig)-1 {
			fmt.Fprintf(&b, "%d", sig[i])
		} else {
			fmt.Fprintf(&b, "%0*d", DPW, sig[i])
		}
	}
	return b.String()
}
