package database

const (
	// Ranks are strings over '0'..'z'; photos of an order sort by rank.
	rankMin = '0'
	rankMax = 'z'
	rankMid = 'U'
)

// NextRank returns a short rank sorting after prev. The last character below
// rankMax is incremented and the tail dropped; a rank of only rankMax
// characters is extended.
func NextRank(prev string) string {
	if prev == "" {
		return string(rankMid)
	}
	r := []rune(prev)
	for i := len(r) - 1; i >= 0; i-- {
		if r[i] < rankMax {
			r[i]++
			return string(r[:i+1])
		}
	}
	return prev + string(rankMid)
}

// rankWithin reports whether rank sorts strictly between prev and next. An
// empty bound is open; two empty bounds never match.
func rankWithin(prev, rank, next string) bool {
	switch {
	case prev == "" && next == "":
		return false
	case prev == "":
		return rank < next
	case next == "":
		return prev < rank
	default:
		return prev < rank && rank < next
	}
}

// RankBetween returns a rank strictly between prev and next. An empty next is
// unbounded above.
func RankBetween(prev, next string) string {
	if next == "" {
		return NextRank(prev)
	}

	var out []rune
	lo, hi := []rune(prev), []rune(next)
	bounded := true
	for i := 0; ; i++ {
		l := rune(rankMin)
		if i < len(lo) {
			l = lo[i]
		}
		h := rune(rankMax)
		if bounded && i < len(hi) {
			h = hi[i]
		}
		if l+1 < h {
			return string(append(out, l+(h-l)/2))
		}
		// No room at this position: keep the lower character and go deeper.
		// Once the prefix is below next, next no longer bounds the tail.
		out = append(out, l)
		if l < h {
			bounded = false
		}
	}
}

// Rerank returns new ranks for the ids of order whose current rank does not
// already sit between its neighbours. Unchanged ids are omitted.
func Rerank(current map[string]string, order []string) map[string]string {
	updates := make(map[string]string)
	rankOf := func(i int) string {
		if i < 0 || i >= len(order) {
			return ""
		}
		if r, ok := updates[order[i]]; ok {
			return r
		}
		return current[order[i]]
	}

	for i, id := range order {
		prev, next := rankOf(i-1), rankOf(i+1)
		if r := current[id]; r != "" && rankWithin(prev, r, next) {
			continue
		}
		updates[id] = RankBetween(prev, next)
	}
	return updates
}
