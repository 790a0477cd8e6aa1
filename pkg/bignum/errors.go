package bignum

import "errors"

// Sentinel errors matching spec.md §4.1's "Failure semantics": bignum
// operations fail with ^rt-bignum-conversion-error on exponent
// under/overflow, ^rt-divide-by-zero-error for division by zero, and
// ^rt-bignum-error for input parsing errors. The pkg/vm condition system
// (spec.md §4.7) maps these onto the corresponding condition struct types
// when it catches them at the PRIMCALL boundary.
var (
	ErrConversion   = errors.New("^rt-bignum-conversion-error: exponent out of range")
	ErrDivideByZero = errors.New("^rt-divide-by-zero-error: division by zero")
	ErrBignumError  = errors.New("^rt-bignum-error: malformed numeric literal")
)
