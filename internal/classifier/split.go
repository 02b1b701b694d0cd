package classifier

import (
	"math"
	"math/rand"
	"sort"
)

// Split partitions row indices into train and test sets. When both classes
// have at least two rows the split is stratified so each class keeps its
// proportion; otherwise rows are shuffled and split as one pool. The same
// seed always yields the same split.
func Split(y []int, testFraction float64, seed int64) (train, test []int) {
	if testFraction <= 0 || len(y) < 2 {
		return allIndices(len(y)), nil
	}

	rng := rand.New(rand.NewSource(seed))

	var pos, neg []int
	for i, label := range y {
		if label == 1 {
			pos = append(pos, i)
		} else {
			neg = append(neg, i)
		}
	}

	if len(pos) < 2 || len(neg) < 2 {
		all := allIndices(len(y))
		rng.Shuffle(len(all), func(a, b int) { all[a], all[b] = all[b], all[a] })
		k := testCount(len(all), testFraction)
		test, train = all[:k], all[k:]
	} else {
		for _, class := range [][]int{neg, pos} {
			rng.Shuffle(len(class), func(a, b int) { class[a], class[b] = class[b], class[a] })
			k := testCount(len(class), testFraction)
			test = append(test, class[:k]...)
			train = append(train, class[k:]...)
		}
	}

	sort.Ints(train)
	sort.Ints(test)
	return train, test
}

// testCount rounds up like a fractional hold-out, keeping at least one row on each side.
func testCount(n int, fraction float64) int {
	k := int(math.Ceil(float64(n)*fraction - 1e-9))
	if k < 1 {
		k = 1
	}
	if k > n-1 {
		k = n - 1
	}
	return k
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// Subset selects rows and labels by index
func Subset(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for i, j := range idx {
		xs[i] = X[j]
		ys[i] = y[j]
	}
	return xs, ys
}
