package series

import (
	"fmt"
	"math"

	apierrors "wellcast/internal/errors"
)

// splitEpsilon absorbs float error in fraction*length before rounding up,
// so 0.2*60 yields a window of 12 rather than 13.
const splitEpsilon = 1e-9

// SplitPlan partitions a series into a training prefix and a trailing test
// window. Training followed by Testing reconstructs the input.
type SplitPlan struct {
	Training Series `json:"training"`
	Testing  Series `json:"testing"`
}

// Window returns the length of the test partition
func (p SplitPlan) Window() int { return p.Testing.Len() }

// SplitCount holds out the last window points for testing
func SplitCount(s Series, window int) (SplitPlan, error) {
	if s.Empty() {
		return SplitPlan{}, apierrors.EmptySeries("split")
	}
	n := s.Len()
	if window < 1 {
		return SplitPlan{}, apierrors.InvalidInput("split",
			fmt.Sprintf("test window must be at least 1, got %d", window))
	}
	if window >= n {
		return SplitPlan{}, apierrors.InvalidInput("split",
			fmt.Sprintf("test window %d leaves no training data in a series of %d points", window, n))
	}

	cut := n - window
	return SplitPlan{
		Training: s.Slice(0, cut),
		Testing:  s.Slice(cut, n),
	}, nil
}

// SplitFraction holds out ceil(fraction*len) trailing points for testing
func SplitFraction(s Series, fraction float64) (SplitPlan, error) {
	if s.Empty() {
		return SplitPlan{}, apierrors.EmptySeries("split")
	}
	if !(fraction > 0 && fraction < 1) {
		return SplitPlan{}, apierrors.InvalidInput("split",
			fmt.Sprintf("test fraction must be in (0, 1), got %g", fraction))
	}
	return SplitCount(s, FractionWindow(s.Len(), fraction))
}

// FractionWindow is the forward-rounded window length for a fraction of n
func FractionWindow(n int, fraction float64) int {
	return int(math.Ceil(fraction*float64(n) - splitEpsilon))
}
