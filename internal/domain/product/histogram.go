package product

// Histogram counts ratings per star; index 0 holds one-star reviews.
type Histogram [5]int

// Add records one rating. Stars outside 1..5 are ignored and reported false.
func (h *Histogram) Add(star int) bool {
	if star < 1 || star > 5 {
		return false
	}
	h[star-1]++
	return true
}

// Stars returns the count for a star value, or 0 outside 1..5.
func (h Histogram) Stars(star int) int {
	if star < 1 || star > 5 {
		return 0
	}
	return h[star-1]
}

// Merge adds other's counts into h.
func (h *Histogram) Merge(other Histogram) {
	for i := range h {
		h[i] += other[i]
	}
}

// Total returns the number of ratings.
func (h Histogram) Total() int {
	n := 0
	for _, c := range h {
		n += c
	}
	return n
}

// Mean returns the weighted average star value, or false when empty.
func (h Histogram) Mean() (float64, bool) {
	total, sum := 0, 0
	for i, c := range h {
		total += c
		sum += (i + 1) * c
	}
	if total == 0 {
		return 0, false
	}
	return float64(sum) / float64(total), true
}
