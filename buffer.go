package pitime

// digitBuffer holds back candidate digits that cannot be confirmed until a
// later step resolves whether a carry rolls them over. A candidate 9 may
// still become a 0, and the digit before a run of 9s may still be
// incremented, so both are deferred until a non-9 candidate arrives.
type digitBuffer struct {
	// The last candidate digit that was below 9; it is confirmed only when
	// a following candidate proves no carry can reach it.
	predigit int
	// Count of consecutive candidate 9s seen since predigit was set.
	nines int
	// False until the first candidate has seeded predigit.
	seeded bool
}

// push feeds the next candidate digit into the buffer and returns the digits
// confirmed by it, oldest first. Candidates are 0 through 9, or 10 for a
// carry out of the units position.
func (b *digitBuffer) push(q int) []int {
	if !b.seeded {
		b.seeded = true
		if q == 10 {
			q = 0
		}
		b.predigit = q
		return nil
	}
	switch {
	case q < 9:
		confirmed := make([]int, 0, b.nines+1)
		confirmed = append(confirmed, b.predigit)
		for k := 0; k < b.nines; k++ {
			confirmed = append(confirmed, 9)
		}
		b.predigit = q
		b.nines = 0
		return confirmed
	case q == 9:
		b.nines++
		return nil
	default:
		// Carry out of range: the held digit is incremented and any
		// deferred 9s roll over to 0s.
		confirmed := make([]int, 0, b.nines+1)
		confirmed = append(confirmed, b.predigit+1)
		for k := 0; k < b.nines; k++ {
			confirmed = append(confirmed, 0)
		}
		b.predigit = 0
		b.nines = 0
		return confirmed
	}
}
