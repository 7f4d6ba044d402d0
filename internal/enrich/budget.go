package enrich

// Budget is the per-run reveal credit counter. It only decreases and never
// goes below zero. A Budget is owned by a single run loop and is not safe
// for concurrent use.
type Budget struct {
	remaining int
	spent     int
}

// NewBudget creates a budget of n credits. Negative n is treated as zero.
func NewBudget(n int) *Budget {
	return &Budget{remaining: max(n, 0)}
}

// Remaining returns the credits left.
func (b *Budget) Remaining() int { return b.remaining }

// Spent returns the credits consumed so far.
func (b *Budget) Spent() int { return b.spent }

// Spend consumes one credit. It returns false, consuming nothing, when the
// budget is empty.
func (b *Budget) Spend() bool {
	if b.remaining < 1 {
		return false
	}
	b.remaining--
	b.spent++
	return true
}

// Drain zeroes the budget after the provider reports its credits are gone.
func (b *Budget) Drain() {
	b.remaining = 0
}
