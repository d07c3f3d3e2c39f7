package calculator

// BelowFlags marks every value strictly below ref.
func BelowFlags(values []float64, ref float64) []bool {
	flags := make([]bool, len(values))
	for i, v := range values {
		flags[i] = v < ref
	}
	return flags
}

// LongestRun returns the length of the longest block of consecutive true
// values, counting forward and resetting on every false.
func LongestRun(flags []bool) int {
	best, count := 0, 0
	for _, f := range flags {
		if f {
			count++
		} else {
			count = 0
		}
		if count > best {
			best = count
		}
	}
	return best
}

// LongestRunCumulative computes the same quantity as LongestRun from a
// running total of true values minus that total frozen at the most recent
// false (zero before the first false).
func LongestRunCumulative(flags []bool) int {
	cumsum := make([]int, len(flags))
	total := 0
	for i, f := range flags {
		if f {
			total++
		}
		cumsum[i] = total
	}

	best, base := 0, 0
	for i, f := range flags {
		if !f {
			base = cumsum[i]
		}
		if run := cumsum[i] - base; run > best {
			best = run
		}
	}
	return best
}
