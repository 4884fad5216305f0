// Package model_selection provides dataset splitting utilities compatible with
// scikit-learn's train_test_split.
package model_selection

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/YuminosukeSato/nutriclass/pkg/errors"
	"github.com/YuminosukeSato/nutriclass/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// Split holds the result of TrainTestSplit. TrainIndex and TestIndex are row
// indices into the original data.
type Split struct {
	XTrain, XTest *mat.Dense
	YTrain, YTest []int

	TrainIndex, TestIndex []int
}

type splitConfig struct {
	testSize    float64
	randomState int64
	stratify    bool
	shuffle     bool
}

// SplitOption is a functional option for TrainTestSplit
type SplitOption func(*splitConfig)

// WithTestSize sets the fraction of samples placed in the test set
func WithTestSize(size float64) SplitOption {
	return func(c *splitConfig) {
		c.testSize = size
	}
}

// WithRandomState sets the random seed. A negative seed draws one at random.
func WithRandomState(seed int64) SplitOption {
	return func(c *splitConfig) {
		c.randomState = seed
	}
}

// WithStratify preserves the class proportions of y in both sets
func WithStratify(stratify bool) SplitOption {
	return func(c *splitConfig) {
		c.stratify = stratify
	}
}

// WithShuffle controls whether rows are shuffled before splitting.
// Stratified splits always shuffle.
func WithShuffle(shuffle bool) SplitOption {
	return func(c *splitConfig) {
		c.shuffle = shuffle
	}
}

// TrainTestSplit splits X and y into random train and test subsets.
//
//	split, err := model_selection.TrainTestSplit(X, y,
//	    model_selection.WithTestSize(0.2),
//	    model_selection.WithStratify(true),
//	    model_selection.WithRandomState(123),
//	)
func TrainTestSplit(X *mat.Dense, y []int, opts ...SplitOption) (*Split, error) {
	cfg := &splitConfig{testSize: 0.25, randomState: -1, shuffle: true}
	for _, opt := range opts {
		opt(cfg)
	}

	nSamples, _ := X.Dims()
	if nSamples != len(y) {
		return nil, errors.NewDimensionError("TrainTestSplit", nSamples, len(y), 0)
	}
	if cfg.testSize <= 0 || cfg.testSize >= 1 || math.IsNaN(cfg.testSize) {
		return nil, errors.NewValidationError("test_size", "must be in (0, 1)", cfg.testSize)
	}
	nTest := int(math.Ceil(cfg.testSize * float64(nSamples)))
	nTrain := nSamples - nTest
	if nTest == 0 || nTrain == 0 {
		return nil, errors.NewValueError("TrainTestSplit",
			fmt.Sprintf("with n_samples=%d and test_size=%g the resulting train set would be empty", nSamples, cfg.testSize))
	}

	seed := cfg.randomState
	if seed < 0 {
		seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(seed))

	var trainIdx, testIdx []int
	var err error
	switch {
	case cfg.stratify:
		trainIdx, testIdx, err = stratifiedIndices(y, nTest, rng)
		if err != nil {
			return nil, err
		}
	case cfg.shuffle:
		perm := rng.Perm(nSamples)
		testIdx, trainIdx = perm[:nTest], perm[nTest:]
	default:
		trainIdx, testIdx = seq(0, nTrain), seq(nTrain, nSamples)
	}

	split := &Split{
		XTrain:     takeRows(X, trainIdx),
		XTest:      takeRows(X, testIdx),
		YTrain:     take(y, trainIdx),
		YTest:      take(y, testIdx),
		TrainIndex: trainIdx,
		TestIndex:  testIdx,
	}
	log.GetLoggerWithName("model_selection").Debug("Split dataset",
		"train_samples", len(trainIdx),
		"test_samples", len(testIdx),
		"stratify", cfg.stratify,
		log.RandomSeedKey, seed,
	)
	return split, nil
}

// stratifiedIndices allocates test rows per class proportionally, distributing
// the remainder by largest fractional part, then draws each class's rows at
// random. Both outputs are shuffled.
func stratifiedIndices(y []int, nTest int, rng *rand.Rand) (train, test []int, err error) {
	byClass := make(map[int][]int)
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}
	classes := make([]int, 0, len(byClass))
	for c, idx := range byClass {
		if len(idx) < 2 {
			return nil, nil, errors.NewValueError("TrainTestSplit",
				fmt.Sprintf("the least populated class %d has only %d member, which is too few for stratification", c, len(idx)))
		}
		classes = append(classes, c)
	}
	sort.Ints(classes)
	if nTest < len(classes) {
		return nil, nil, errors.NewValueError("TrainTestSplit",
			fmt.Sprintf("the test set size %d should be greater or equal to the number of classes %d", nTest, len(classes)))
	}
	if len(y)-nTest < len(classes) {
		return nil, nil, errors.NewValueError("TrainTestSplit",
			fmt.Sprintf("the train set size %d should be greater or equal to the number of classes %d", len(y)-nTest, len(classes)))
	}

	n := float64(len(y))
	alloc := make([]int, len(classes))
	type remainder struct {
		class int
		frac  float64
	}
	rems := make([]remainder, len(classes))
	assigned := 0
	for k, c := range classes {
		exact := float64(nTest) * float64(len(byClass[c])) / n
		alloc[k] = int(math.Floor(exact))
		rems[k] = remainder{class: k, frac: exact - float64(alloc[k])}
		assigned += alloc[k]
	}
	sort.SliceStable(rems, func(i, j int) bool { return rems[i].frac > rems[j].frac })
	for i := 0; assigned < nTest; i = (i + 1) % len(rems) {
		k := rems[i].class
		// keep at least one training row per class
		if alloc[k] < len(byClass[classes[k]])-1 {
			alloc[k]++
			assigned++
		}
	}

	for k, c := range classes {
		idx := append([]int(nil), byClass[c]...)
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		test = append(test, idx[:alloc[k]]...)
		train = append(train, idx[alloc[k]:]...)
	}
	rng.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })
	rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	return train, test, nil
}

func takeRows(X *mat.Dense, idx []int) *mat.Dense {
	_, c := X.Dims()
	out := mat.NewDense(len(idx), c, nil)
	for i, row := range idx {
		out.SetRow(i, X.RawRowView(row))
	}
	return out
}

func take(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, row := range idx {
		out[i] = y[row]
	}
	return out
}

func seq(start, end int) []int {
	out := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, i)
	}
	return out
}
