package calculator

import "errors"

var errNoValues = errors.New("no values provided")

// ArgMax returns the index of the largest value, the first one on ties.
func ArgMax(values []float64) (int, error) {
	if len(values) == 0 {
		return 0, errNoValues
	}
	idx := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[idx] {
			idx = i
		}
	}
	return idx, nil
}

// Min returns the smallest value.
func Min(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, errNoValues
	}
	low := values[0]
	for _, v := range values[1:] {
		if v < low {
			low = v
		}
	}
	return low, nil
}

// LastBelow returns the last index at or after from whose value is below
// level, or -1 when there is none.
func LastBelow(values []float64, from int, level float64) int {
	if from < 0 {
		from = 0
	}
	for i := len(values) - 1; i >= from; i-- {
		if values[i] < level {
			return i
		}
	}
	return -1
}
