package quantum

import (
	"fmt"
	"math"
	"strconv"
)

// Angle is Scale*theta[Param] + Offset, or just Offset when Param is -1.
type Angle struct {
	Param  int
	Scale  float64
	Offset float64
}

// Fixed returns a bound angle.
func Fixed(v float64) Angle {
	return Angle{Param: -1, Offset: v}
}

// Param returns the free parameter theta[i].
func Param(i int) Angle {
	return Angle{Param: i, Scale: 1}
}

func (a Angle) IsFixed() bool {
	return a.Param < 0
}

// Eval resolves the angle against bound parameter values.
func (a Angle) Eval(values []float64) (float64, error) {
	if a.IsFixed() {
		return a.Offset, nil
	}
	if a.Param >= len(values) {
		return 0, fmt.Errorf("%w: theta[%d] with %d values", ErrUnboundParameter, a.Param, len(values))
	}
	return a.Scale*values[a.Param] + a.Offset, nil
}

// Shift adds a constant offset.
func (a Angle) Shift(d float64) Angle {
	a.Offset += d
	return a
}

func (a Angle) Neg() Angle {
	return Angle{Param: a.Param, Scale: -a.Scale, Offset: -a.Offset}
}

// Add sums two angles. It reports false when both depend on different parameters.
func (a Angle) Add(b Angle) (Angle, bool) {
	switch {
	case a.IsFixed():
		return b.Shift(a.Offset), true
	case b.IsFixed():
		return a.Shift(b.Offset), true
	case a.Param == b.Param:
		return Angle{Param: a.Param, Scale: a.Scale + b.Scale, Offset: a.Offset + b.Offset}, true
	}
	return Angle{}, false
}

// IsZeroMod reports whether a fixed angle is a multiple of period.
func (a Angle) IsZeroMod(period float64) bool {
	if !a.IsFixed() {
		return a.Scale == 0 && isZeroMod(a.Offset, period)
	}
	return isZeroMod(a.Offset, period)
}

func isZeroMod(v, period float64) bool {
	r := math.Mod(v, period)
	if r < 0 {
		r += period
	}
	return r < 1e-9 || period-r < 1e-9
}

func (a Angle) String() string {
	if a.IsFixed() {
		return strconv.FormatFloat(a.Offset, 'g', 12, 64)
	}
	s := fmt.Sprintf("theta[%d]", a.Param)
	if a.Scale != 1 {
		s = strconv.FormatFloat(a.Scale, 'g', 12, 64) + "*" + s
	}
	if a.Offset != 0 {
		s += "+" + strconv.FormatFloat(a.Offset, 'g', 12, 64)
	}
	return s
}
