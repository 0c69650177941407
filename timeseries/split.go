package timeseries

import (
	"math"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidFractions is returned when split fractions are out of range
	// or do not sum to one.
	ErrInvalidFractions = errors.New("split fractions must be in [0,1] and sum to 1")

	// ErrUnsorted is returned when an operation needs time-ordered input.
	ErrUnsorted = errors.New("series is not sorted by time")
)

const fractionTolerance = 1e-9

// Fractions holds the train, validation and test shares of a split.
type Fractions struct {
	Train float64 `mapstructure:"train_frac" validate:"gte=0,lte=1"`
	Valid float64 `mapstructure:"valid_frac" validate:"gte=0,lte=1"`
	Test  float64 `mapstructure:"test_frac" validate:"gte=0,lte=1"`
}

// DefaultFractions returns the 80/10/10 split.
func DefaultFractions() Fractions {
	return Fractions{Train: 0.8, Valid: 0.1, Test: 0.1}
}

// Validate checks range and sum of the fractions.
func (f Fractions) Validate() error {
	for _, v := range []float64{f.Train, f.Valid, f.Test} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return ErrInvalidFractions
		}
	}
	if math.Abs(f.Train+f.Valid+f.Test-1) > fractionTolerance {
		return errors.Wrapf(ErrInvalidFractions, "got %g + %g + %g", f.Train, f.Valid, f.Test)
	}
	return nil
}

// Split is a chronological partition of a series.
type Split struct {
	Train *Series
	Valid *Series
	Test  *Series
}

// Len returns the total number of observations across the three parts.
func (sp Split) Len() int {
	return sp.Train.Len() + sp.Valid.Len() + sp.Test.Len()
}

// SplitFractions partitions a time-ordered series into contiguous train,
// validation and test parts. trainEnd is floor(n*Train), validEnd adds
// floor(n*Valid) and the test part takes the remainder.
func SplitFractions(s *Series, f Fractions) (Split, error) {
	if err := f.Validate(); err != nil {
		return Split{}, err
	}
	if !s.IsSorted() {
		return Split{}, ErrUnsorted
	}

	n := s.Len()
	trainEnd := int(float64(n) * f.Train)
	validEnd := trainEnd + int(float64(n)*f.Valid)
	if validEnd > n {
		validEnd = n
	}

	return Split{
		Train: s.Slice(0, trainEnd),
		Valid: s.Slice(trainEnd, validEnd),
		Test:  s.Slice(validEnd, n),
	}, nil
}
