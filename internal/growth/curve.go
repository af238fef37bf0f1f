package growth

import (
	"math"
	"time"
)

// DaysPerMonth is the average Gregorian month length. Age in months is
// always elapsed days divided by this value; there is deliberately no
// second calendar-based definition anywhere in the codebase.
const DaysPerMonth = 30.44

// DefaultTolerance is the relative deviation band around the expected
// weight before a measurement counts as out of bounds.
const DefaultTolerance = 0.05

// Knot is one point on the growth curve: expected weight at an age.
type Knot struct {
	AgeMonths float64
	WeightKg  float64
}

// Curve is a piecewise-linear growth model. Knots must be sorted by
// strictly increasing age with non-decreasing weights.
type Curve struct {
	knots     []Knot
	tolerance float64

	// Optional age range outside which OutOfBounds always reports false.
	// Zero values disable the check.
	minMonths float64
	maxMonths float64
}

// Option configures a Curve.
type Option func(*Curve)

// WithTolerance overrides the default 5% deviation band.
func WithTolerance(t float64) Option {
	return func(c *Curve) { c.tolerance = t }
}

// WithCheckRange restricts out-of-bounds checks to ages in [min, max]
// months. Measurements outside the modeled range are skipped, not flagged.
func WithCheckRange(minMonths, maxMonths float64) Option {
	return func(c *Curve) {
		c.minMonths = minMonths
		c.maxMonths = maxMonths
	}
}

// NewCurve builds a curve from knots.
func NewCurve(knots []Knot, opts ...Option) *Curve {
	c := &Curve{
		knots:     knots,
		tolerance: DefaultTolerance,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultCurve returns the medium-breed reference curve used for Kalle.
func DefaultCurve(opts ...Option) *Curve {
	return NewCurve([]Knot{
		{2, 4.0},
		{3, 6.5},
		{4, 9.0},
		{5, 11.5},
		{6, 13.5},
		{8, 17.0},
		{10, 19.5},
		{12, 21.0},
		{15, 22.5},
		{18, 23.5},
	}, opts...)
}

// ExpectedWeight returns the modeled weight at the given age. Ages below
// the first knot clamp to the first weight, ages at or above the last knot
// clamp to the last weight, everything between interpolates linearly.
func (c *Curve) ExpectedWeight(ageMonths float64) float64 {
	if len(c.knots) == 0 {
		return 0
	}

	first := c.knots[0]
	if ageMonths < first.AgeMonths {
		return first.WeightKg
	}

	last := c.knots[len(c.knots)-1]
	if ageMonths >= last.AgeMonths {
		return last.WeightKg
	}

	for i := 1; i < len(c.knots); i++ {
		right := c.knots[i]
		if ageMonths >= right.AgeMonths {
			continue
		}
		left := c.knots[i-1]
		frac := (ageMonths - left.AgeMonths) / (right.AgeMonths - left.AgeMonths)
		return left.WeightKg + frac*(right.WeightKg-left.WeightKg)
	}

	return last.WeightKg
}

// AgeInMonths computes the age at a given instant.
func AgeInMonths(birthday, at time.Time) float64 {
	days := at.Sub(birthday).Hours() / 24
	return days / DaysPerMonth
}

// Deviation returns the relative deviation of a measured weight from the
// expected weight at that age: (measured - expected) / expected.
func (c *Curve) Deviation(weightKg, ageMonths float64) float64 {
	expected := c.ExpectedWeight(ageMonths)
	if expected == 0 {
		return 0
	}
	return (weightKg - expected) / expected
}

// InCheckRange reports whether an age falls inside the configured check
// range. Always true when no range was set.
func (c *Curve) InCheckRange(ageMonths float64) bool {
	if c.maxMonths == 0 {
		return true
	}
	return ageMonths >= c.minMonths && ageMonths <= c.maxMonths
}

// OutOfBounds reports whether a measured weight deviates from the curve by
// strictly more than the tolerance. Ages outside the configured check
// range are skipped and report false.
func (c *Curve) OutOfBounds(weightKg float64, at, birthday time.Time) bool {
	age := AgeInMonths(birthday, at)
	if !c.InCheckRange(age) {
		return false
	}
	return math.Abs(c.Deviation(weightKg, age)) > c.tolerance
}
