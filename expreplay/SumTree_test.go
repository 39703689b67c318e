package expreplay

import (
	"math/rand"
	"testing"
)

func TestSumTreeSetAndTotal(t *testing.T) {
	tree := newSumTree(5)

	priorities := []float64{1.0, 2.0, 3.0, 4.0, 5.0}
	for i, p := range priorities {
		tree.Set(i, p)
	}

	if total := tree.Total(); total != 15.0 {
		t.Errorf("unexpected total \n\twant(%v)\n\thave(%v)", 15.0, total)
	}
	for i, p := range priorities {
		if have := tree.Get(i); have != p {
			t.Errorf("unexpected priority at leaf %v \n\twant(%v)"+
				"\n\thave(%v)", i, p, have)
		}
	}

	// Overwriting a leaf adjusts the total by the difference
	tree.Set(2, 0.5)
	if total := tree.Total(); total != 12.5 {
		t.Errorf("unexpected total after overwrite \n\twant(%v)"+
			"\n\thave(%v)", 12.5, total)
	}
}

func TestSumTreeFindPrefixSum(t *testing.T) {
	tree := newSumTree(4)
	for i, p := range []float64{1.0, 2.0, 3.0, 4.0} {
		tree.Set(i, p)
	}

	tests := []struct {
		prefix float64
		leaf   int
	}{
		{0.0, 0},
		{0.99, 0},
		{1.0, 1}, // boundary mass belongs to the next leaf
		{2.99, 1},
		{3.0, 2},
		{5.99, 2},
		{6.0, 3},
		{9.99, 3},
	}

	for _, test := range tests {
		if leaf := tree.FindPrefixSum(test.prefix); leaf != test.leaf {
			t.Errorf("unexpected leaf for prefix %v \n\twant(%v)"+
				"\n\thave(%v)", test.prefix, test.leaf, leaf)
		}
	}
}

func TestSumTreeFindPrefixSumPadding(t *testing.T) {
	// Capacity 3 pads the leaf layer to 4. A prefix at or past the
	// total can only land in the padded region, and must be clamped
	// back to the last real leaf.
	tree := newSumTree(3)
	for i, p := range []float64{1.0, 2.0, 3.0} {
		tree.Set(i, p)
	}

	if leaf := tree.FindPrefixSum(6.0); leaf != 2 {
		t.Errorf("prefix at total not clamped to last leaf \n\twant(%v)"+
			"\n\thave(%v)", 2, leaf)
	}
}

func TestSumTreeMax(t *testing.T) {
	tree := newSumTree(4)

	if max := tree.Max(); max != 1.0 {
		t.Errorf("unexpected initial max \n\twant(%v)\n\thave(%v)",
			1.0, max)
	}

	tree.Set(0, 5.0)
	if max := tree.Max(); max != 5.0 {
		t.Errorf("max not raised by larger priority \n\twant(%v)"+
			"\n\thave(%v)", 5.0, max)
	}

	// The tracked max never decays, even when the largest leaf is
	// overwritten with something smaller
	tree.Set(0, 0.1)
	if max := tree.Max(); max != 5.0 {
		t.Errorf("max decayed on overwrite \n\twant(%v)\n\thave(%v)",
			5.0, max)
	}
}

func BenchmarkSumTreeSet(b *testing.B) {
	const capacity = 100000
	tree := newSumTree(capacity)
	rng := rand.New(rand.NewSource(41))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree.Set(rng.Intn(capacity), rng.Float64())
	}
}

func BenchmarkSumTreeFindPrefixSum(b *testing.B) {
	const capacity = 100000
	tree := newSumTree(capacity)
	rng := rand.New(rand.NewSource(41))
	for i := 0; i < capacity; i++ {
		tree.Set(i, rng.Float64())
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree.FindPrefixSum(rng.Float64() * tree.Total())
	}
}
