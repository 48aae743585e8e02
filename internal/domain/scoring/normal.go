package scoring

import (
	"math"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat/distuv"
)

// invSqrt2Pi is 1/sqrt(2π), the standard normal density at zero.
const invSqrt2Pi = 0.3989422804014327

// NormalCDF returns Φ(x), the standard normal cumulative distribution.
func NormalCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// NormalQuantile returns Φ⁻¹(p). It returns NaN when p is not strictly
// inside (0, 1) or is NaN; it never panics.
//
// The AS241 rational approximation is refined with one Halley step against
// NormalCDF.
func NormalQuantile(p float64) float64 {
	if !(p > 0 && p < 1) {
		return math.NaN()
	}
	x := mathext.NormalQuantile(p)
	if math.IsInf(x, 0) {
		return x
	}
	e := NormalCDF(x) - p
	u := e / (invSqrt2Pi * math.Exp(-0.5*x*x))
	return x - u/(1+0.5*x*u)
}
