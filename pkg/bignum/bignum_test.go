package bignum

import "testing"

func TestNewIntRoundTrip(t *testing.T) {
	tests := []int64{0, 1, -1, 42, -42, 1_000_000_000, -999_999_999_999}
	for _, n := range tests {
		bn := NewInt(n)
		got, ok := bn.ToFixnum()
		if !ok {
			t.Fatalf("NewInt(%d).ToFixnum() not ok", n)
		}
		if got != n {
			t.Errorf("NewInt(%d).ToFixnum() = %d", n, got)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	bn, err := Parse("123456789012345")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	once, err := Normalize(bn)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	twice, err := Normalize(once)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if once.String() != twice.String() {
		t.Errorf("normalize not idempotent: %s != %s", once.String(), twice.String())
	}
}

func TestParsePrintRoundTripExactIntegers(t *testing.T) {
	tests := []string{"0", "1", "-1", "42", "-42", "123456789", "-100"}
	for _, s := range tests {
		bn, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		if got := bn.String(); got != s {
			t.Errorf("Parse(%q).String() = %q", s, got)
		}
	}
}

func TestAddSubtractInverse(t *testing.T) {
	tests := [][2]int64{
		{5, 3}, {-5, 3}, {5, -3}, {-5, -3}, {0, 7}, {1000000000, 1},
	}
	for _, pair := range tests {
		a, b := NewInt(pair[0]), NewInt(pair[1])
		sum, err := Add(a, b)
		if err != nil {
			t.Fatalf("Add(%d,%d): %v", pair[0], pair[1], err)
		}
		back, err := Subtract(sum, b)
		if err != nil {
			t.Fatalf("Subtract: %v", err)
		}
		got, ok := back.ToFixnum()
		if !ok || got != pair[0] {
			t.Errorf("Add(%d,%d) then Subtract b: got %v, want %d", pair[0], pair[1], got, pair[0])
		}
	}
}

func TestMultiplyDivideRoundTrip(t *testing.T) {
	tests := [][2]int64{
		{100, 5}, {-100, 5}, {100, -5}, {7, 3}, {999999999, 13},
	}
	for _, pair := range tests {
		a, b := NewInt(pair[0]), NewInt(pair[1])
		prod, err := Multiply(a, b)
		if err != nil {
			t.Fatalf("Multiply(%d,%d): %v", pair[0], pair[1], err)
		}
		q, r, err := Divide(prod, b)
		if err != nil {
			t.Fatalf("Divide: %v", err)
		}
		got, ok := q.ToFixnum()
		if !ok || got != pair[0] {
			t.Errorf("Multiply(%d,%d) then Divide by b: got %v, want %d", pair[0], pair[1], got, pair[0])
		}
		if !r.IsZero() {
			t.Errorf("Multiply(%d,%d) then Divide by b: remainder %v, want 0", pair[0], pair[1], r)
		}
	}
}

func TestDivideByZero(t *testing.T) {
	a, b := NewInt(10), NewInt(0)
	if _, _, err := Divide(a, b); err != ErrDivideByZero {
		t.Errorf("Divide by zero: got %v, want ErrDivideByZero", err)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b int64
		want int
	}{
		{1, 2, -1}, {2, 1, 1}, {5, 5, 0}, {-5, 5, -1}, {5, -5, 1}, {0, 0, 0}, {-1, -2, 1},
	}
	for _, tt := range tests {
		got := Compare(NewInt(tt.a), NewInt(tt.b))
		if got != tt.want {
			t.Errorf("Compare(%d,%d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestParseInexact(t *testing.T) {
	bn, err := Parse("3.14")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !bn.Real || !bn.Inexact {
		t.Errorf("Parse(3.14): Real=%v Inexact=%v, want both true", bn.Real, bn.Inexact)
	}
	if got := bn.String(); got != "3.14e+0" {
		t.Errorf("Parse(3.14).String() = %q, want 3.14e+0", got)
	}
}

func TestRealArithmeticContaminatesInexact(t *testing.T) {
	exact := NewInt(2)
	inexact, err := Parse("1.5")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sum, err := RealAdd(exact, inexact)
	if err != nil {
		t.Fatalf("RealAdd: %v", err)
	}
	if !sum.Inexact {
		t.Errorf("RealAdd(exact, inexact).Inexact = false, want true")
	}
}

func TestRealDivideByZero(t *testing.T) {
	a, b := NewInt(10), NewInt(0)
	if _, err := RealDivide(a, b); err != ErrDivideByZero {
		t.Errorf("RealDivide by zero: got %v, want ErrDivideByZero", err)
	}
}

func TestShiftLeftRightInverse(t *testing.T) {
	bn := NewInt(123)
	shifted := ShiftLeft(bn, 4)
	got, ok := shifted.ToFixnum()
	if !ok || got != 1234 {
		t.Fatalf("ShiftLeft(123, 4) = %v, want 1234", got)
	}
	back, digit := ShiftRight(shifted)
	if digit != 4 {
		t.Errorf("ShiftRight dropped digit = %d, want 4", digit)
	}
	gotBack, ok := back.ToFixnum()
	if !ok || gotBack != 123 {
		t.Errorf("ShiftRight(ShiftLeft(123,4)) = %v, want 123", gotBack)
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []string{"", "-", "abc", "1.2.3", "1e"}
	for _, s := range tests {
		if _, err := Parse(s); err == nil {
			t.Errorf("Parse(%q): want error, got nil", s)
		}
	}
}
