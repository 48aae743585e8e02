package scoring

import "math"

// logNormalThreshold is the |nu| below which the Box-Cox transform is
// replaced by its log-normal limit.
const logNormalThreshold = 1e-10

// Params is the resolved BCCG triple: median Mu, scale Sigma and Box-Cox
// shape Nu.
type Params struct {
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
	Nu    float64 `json:"nu"`
}

func (p Params) valid() bool {
	return p.Mu > 0 && p.Sigma > 0 && !math.IsNaN(p.Nu) && !math.IsInf(p.Nu, 0)
}

// zScore applies the Box-Cox transform to y.
func (p Params) zScore(y float64) float64 {
	if math.Abs(p.Nu) < logNormalThreshold {
		return math.Log(y/p.Mu) / p.Sigma
	}
	return (math.Pow(y/p.Mu, p.Nu) - 1) / (p.Nu * p.Sigma)
}

// tailMass is Φ(1/(σ|ν|)), the probability mass of the normal kept by the
// truncated transform.
func (p Params) tailMass() float64 {
	return NormalCDF(1 / (p.Sigma * math.Abs(p.Nu)))
}

// CDF returns the truncated BCCG cumulative probability of y.
func (p Params) CDF(y float64) float64 {
	a := NormalCDF(p.zScore(y))
	b := 0.0
	if p.Nu > 0 {
		b = NormalCDF(-1 / (p.Sigma * math.Abs(p.Nu)))
	}
	return (a - b) / p.tailMass()
}

// Quantile inverts CDF. It returns NaN when prob is not strictly inside
// (0, 1); the result may also be non-finite for pathological parameters and
// callers must treat that as invalid.
func (p Params) Quantile(prob float64) float64 {
	if !(prob > 0 && prob < 1) {
		return math.NaN()
	}
	var adjusted float64
	if p.Nu <= 0 {
		adjusted = prob * p.tailMass()
	} else {
		adjusted = 1 - (1-prob)*p.tailMass()
	}
	z := NormalQuantile(adjusted)
	if math.Abs(p.Nu) < logNormalThreshold {
		return p.Mu * math.Exp(p.Sigma*z)
	}
	return p.Mu * math.Pow(p.Nu*p.Sigma*z+1, 1/p.Nu)
}
