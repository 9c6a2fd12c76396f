package entity

// Condition tags a quantity as good or defective stock.
type Condition string

const (
	ConditionGood      Condition = "good"
	ConditionDefective Condition = "defective"
)

// Valid reports whether c is a known condition.
func (c Condition) Valid() bool {
	return c == ConditionGood || c == ConditionDefective
}

// Split is a quantity expressed as a (good, defective) pair. Pools, movements
// and item decisions never carry a bare scalar.
type Split struct {
	Good      int64 `json:"good"`
	Defective int64 `json:"defective"`
}

// Total returns good + defective.
func (s Split) Total() int64 {
	return s.Good + s.Defective
}

// FitsWithin reports whether good + defective is at most limit. Each part is
// bounded before the sum is taken so huge values cannot wrap around.
func (s Split) FitsWithin(limit int64) bool {
	if !s.NonNegative() || s.Good > limit {
		return false
	}
	return s.Defective <= limit-s.Good
}

// IsZero reports whether both parts are zero.
func (s Split) IsZero() bool {
	return s.Good == 0 && s.Defective == 0
}

// NonNegative reports whether neither part is below zero.
func (s Split) NonNegative() bool {
	return s.Good >= 0 && s.Defective >= 0
}

// Add returns the element-wise sum.
func (s Split) Add(other Split) Split {
	return Split{Good: s.Good + other.Good, Defective: s.Defective + other.Defective}
}

// Sub returns the element-wise difference.
func (s Split) Sub(other Split) Split {
	return Split{Good: s.Good - other.Good, Defective: s.Defective - other.Defective}
}

// Covers reports whether s has at least other in both conditions.
func (s Split) Covers(other Split) bool {
	return s.Good >= other.Good && s.Defective >= other.Defective
}

// Of returns the quantity of the given condition.
func (s Split) Of(c Condition) int64 {
	if c == ConditionDefective {
		return s.Defective
	}
	return s.Good
}
