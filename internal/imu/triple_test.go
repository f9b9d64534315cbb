package imu

import "testing"

func TestTripleZeroAndExplicit(t *testing.T) {
	var z Triple
	if z != (Triple{}) || z.X != 0 || z.Y != 0 || z.Z != 0 {
		t.Fatalf("zero triple not zero: %+v", z)
	}
	v := NewTriple(1, -2, 3)
	if v.X != 1 || v.Y != -2 || v.Z != 3 {
		t.Fatalf("NewTriple: got %+v", v)
	}
}

func TestTripleAccumulateAndDivide(t *testing.T) {
	acc := Triple{}
	for i := 0; i < 4; i++ {
		acc.Accumulate(NewTriple(10, -20, 30))
	}
	if acc != NewTriple(40, -80, 120) {
		t.Fatalf("Accumulate: got %+v", acc)
	}
	if got := acc.DivScalar(4); got != NewTriple(10, -20, 30) {
		t.Errorf("DivScalar: got %+v", got)
	}
	if got := acc.Div(NewTriple(2, 4, -8)); got != NewTriple(20, -20, -15) {
		t.Errorf("Div: got %+v", got)
	}
	if got := NewTriple(1, 1, 1).Add(NewTriple(2, 3, 4)); got != NewTriple(3, 4, 5) {
		t.Errorf("Add: got %+v", got)
	}
}

func TestTripleDivTruncatesTowardZero(t *testing.T) {
	if got := NewTriple(7, -7, 5).DivScalar(2); got != NewTriple(3, -3, 2) {
		t.Errorf("got %+v, want {3 -3 2}", got)
	}
}

func TestTripleDivByZeroPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on division by zero")
		}
	}()
	_ = NewTriple(1, 2, 3).Div(NewTriple(1, 0, 1))
}

func TestTripleFill(t *testing.T) {
	v := NewTriple(1, 2, 3)
	v.Fill(-9)
	if v != NewTriple(-9, -9, -9) {
		t.Errorf("Fill: got %+v", v)
	}
}

func TestSumDoesNotOverflow(t *testing.T) {
	var s Sum
	for i := 0; i < 200; i++ {
		s.Add(NewTriple(32000, -32000, 4096))
	}
	if s.Count() != 200 {
		t.Fatalf("Count: got %d", s.Count())
	}
	if got := s.Mean(); got != NewTriple(32000, -32000, 4096) {
		t.Errorf("Mean: got %+v", got)
	}
	s.Reset()
	if s.Count() != 0 || s.X != 0 {
		t.Errorf("Reset left %+v", s)
	}
}
