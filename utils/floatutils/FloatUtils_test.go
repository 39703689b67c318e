package floatutils

import (
	"math"
	"testing"
)

func TestArgMaxBreaksTiesByLowestIndex(t *testing.T) {
	cases := []struct {
		values []float64
		argMax int
	}{
		{[]float64{1.0, 2.0, 3.0}, 2},
		{[]float64{3.0, 2.0, 1.0}, 0},
		{[]float64{1.0, 3.0, 3.0, 3.0}, 1},
		{[]float64{2.0, 2.0, 2.0}, 0},
		{[]float64{-1.0, -3.0, -1.0}, 0},
		{[]float64{0.5}, 0},
	}

	for _, c := range cases {
		if argMax := ArgMax(c.values); argMax != c.argMax {
			t.Errorf("incorrect argmax for %v \n\twant(%v)\n\thave(%v)",
				c.values, c.argMax, argMax)
		}
	}
}

func TestAllFinite(t *testing.T) {
	if !AllFinite([]float64{0.0, -1.5, 1e300}) {
		t.Error("finite slice flagged as non-finite")
	}
	if AllFinite([]float64{0.0, math.NaN()}) {
		t.Error("NaN not detected")
	}
	if AllFinite([]float64{math.Inf(1), 0.0}) {
		t.Error("+Inf not detected")
	}
	if AllFinite([]float64{0.0, math.Inf(-1)}) {
		t.Error("-Inf not detected")
	}
}

func TestClip(t *testing.T) {
	cases := []struct {
		value, min, max, clipped float64
	}{
		{5.0, -1.0, 1.0, 1.0},
		{-5.0, -1.0, 1.0, -1.0},
		{0.5, -1.0, 1.0, 0.5},
		{-1.0, -1.0, 1.0, -1.0},
		{1.0, -1.0, 1.0, 1.0},
	}

	for _, c := range cases {
		if clipped := Clip(c.value, c.min, c.max); clipped != c.clipped {
			t.Errorf("incorrect clip of %v into [%v, %v] "+
				"\n\twant(%v)\n\thave(%v)", c.value, c.min, c.max,
				c.clipped, clipped)
		}
	}
}
