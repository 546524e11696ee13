package pitime

// Implements a streaming spigot algorithm that emits the decimal digits of pi
// sequentially from a mixed-radix state array, based on the algorithm
// published by Rabinowitz and Wagon in "A Spigot Algorithm for the Digits of
// Pi", American Mathematical Monthly, 1995.

// Extra outer steps beyond the requested digit count. The classic sizing of
// 10n/3 + 3 terms with n+3 steps is not enough: candidates computed in the
// last few steps can be wrong (n=2 yields "13", n=31 ends in "...794"), and a
// run of candidate 9s near the cut-off can leave the final digits unconfirmed.
// Twenty spare steps keep every confirmed digit inside the reliable range and
// absorb any nine-run that occurs in practice; the first run of 9s in pi too
// long for this margin lies tens of millions of digits out.
const spigotMargin = 20

// SpigotDigits returns the first n fractional decimal digits of pi, truncated
// and not rounded; e.g. SpigotDigits(5) -> "14159". The result for n <= 0 is
// an empty string; negative counts are deliberately clamped rather than
// treated as an error.
//
// The state array holds a scaled mixed-radix representation where the digit
// at index i has base 2*i+1. Each outer step multiplies the whole
// representation by 10 and renormalizes it from the least significant end,
// carrying the next decimal digit out of position zero. The scaling of the
// carry by i is intrinsic to the series identity, not a generic base
// conversion.
func SpigotDigits(n int) string {
	if n <= 0 {
		return ""
	}
	steps := n + spigotMargin
	size := 10*steps/3 + 3
	a := make([]int64, size)
	for i := range a {
		a[i] = 2
	}
	// The leading confirmed entry is pi's integer part, so n+1 digits are
	// needed before the loop can stop.
	confirmed := make([]byte, 0, n+2)
	var buffer digitBuffer
	for j := 0; j < steps && len(confirmed) < n+1; j++ {
		var carry int64
		for i := size - 1; i > 0; i-- {
			num := a[i]*10 + carry
			base := int64(2*i + 1)
			a[i] = num % base
			carry = num / base * int64(i)
		}
		num := a[0]*10 + carry
		q := int(num / 10)
		a[0] = int64(num % 10)
		// A carry out of the units position can only overshoot by one.
		if q >= 10 {
			q = 10
		}
		for _, digit := range buffer.push(q) {
			confirmed = append(confirmed, '0'+byte(digit))
		}
	}
	if len(confirmed) == 0 {
		return ""
	}
	// Skip the integer-part digit. If the margin ever proved too small the
	// available digits are returned as-is rather than padded.
	end := n + 1
	if end > len(confirmed) {
		end = len(confirmed)
	}
	return string(confirmed[1:end])
}
