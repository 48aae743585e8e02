package scoring

import "sort"

// Resolve returns the distribution parameters for bodyMass (and age, for
// age-dependent tables). Out-of-range mass and age are clamped to the table.
func (t *Table) Resolve(bodyMass float64, age int) Params {
	rows := t.rows
	if t.variant.AgeDependent() {
		rows = ageBucket(rows, t.variant.ClampAge(age))
	}
	return interpolateMass(rows, bodyMass)
}

// ageBucket returns the contiguous block of rows whose age equals age. rows
// must be grouped by ascending age, and age must already be clamped to the
// table's range: the forward scan compares against that value, not against
// whatever the caller originally asked for.
func ageBucket(rows []Row, age int) []Row {
	start := sort.Search(len(rows), func(i int) bool { return rows[i].Age >= age })
	end := start
	for end < len(rows) && rows[end].Age == age {
		end++
	}
	return rows[start:end]
}

// interpolateMass resolves bodyMass against rows sorted by body mass.
func interpolateMass(rows []Row, bodyMass float64) Params {
	if len(rows) == 0 {
		return Params{}
	}
	first, last := rows[0], rows[len(rows)-1]
	if bodyMass <= first.BodyMass {
		return first.params()
	}
	if bodyMass >= last.BodyMass {
		return last.params()
	}

	i := sort.Search(len(rows), func(i int) bool { return rows[i].BodyMass >= bodyMass })
	if rows[i].BodyMass == bodyMass {
		return rows[i].params()
	}
	low, high := rows[i-1], rows[i]
	wLow := high.BodyMass - bodyMass
	wHigh := bodyMass - low.BodyMass
	return Params{
		Mu:    crossWeight(wLow, wHigh, low.Mu, high.Mu),
		Sigma: crossWeight(wLow, wHigh, low.Sigma, high.Sigma),
		Nu:    crossWeight(wLow, wHigh, low.Nu, high.Nu),
	}
}

// crossWeight blends a bracketing pair the way the published tables were
// fitted: the distance to the upper row weights the upper value.
func crossWeight(wLow, wHigh, low, high float64) float64 {
	return (wLow*high + wHigh*low) / (wLow + wHigh)
}
