package utils

import "testing"

func TestIntRangeBounds(t *testing.T) {
	r := NewRandSource(42)
	for i := 0; i < 1000; i++ {
		v := r.IntRange(64, 1500)
		if v < 64 || v > 1500 {
			t.Fatalf("expected value in [64, 1500], got %d", v)
		}
	}
}

func TestIntRangeDegenerate(t *testing.T) {
	r := NewRandSource(42)
	if v := r.IntRange(500, 500); v != 500 {
		t.Fatalf("expected 500 for degenerate range, got %d", v)
	}
	if v := r.IntRange(500, 100); v != 500 {
		t.Fatalf("expected min for inverted range, got %d", v)
	}
}

func TestExpFloat64Positive(t *testing.T) {
	r := NewRandSource(7)
	for i := 0; i < 1000; i++ {
		v := r.ExpFloat64(100.0)
		if v < 0 {
			t.Fatalf("expected non-negative exponential draw, got %f", v)
		}
	}
}

func TestExpFloat64Mean(t *testing.T) {
	r := NewRandSource(7)
	lambda := 50.0
	sum := 0.0
	n := 20000
	for i := 0; i < n; i++ {
		sum += r.ExpFloat64(lambda)
	}
	mean := sum / float64(n)
	expected := 1.0 / lambda
	if mean < expected*0.9 || mean > expected*1.1 {
		t.Errorf("expected mean near %f, got %f", expected, mean)
	}
}

func TestSeededDeterminism(t *testing.T) {
	a := NewRandSource(99)
	b := NewRandSource(99)
	for i := 0; i < 100; i++ {
		if a.Float64() != b.Float64() {
			t.Fatalf("expected identical sequences for identical seeds")
		}
	}
}

func TestBernoulliBoolExtremes(t *testing.T) {
	r := NewRandSource(3)
	for i := 0; i < 100; i++ {
		if r.BernoulliBool(0.0) {
			t.Fatalf("expected p=0 to never return true")
		}
		if !r.BernoulliBool(1.0) {
			t.Fatalf("expected p=1 to always return true")
		}
	}
}
