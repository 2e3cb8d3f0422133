package gait

import "math"

// Mean is the arithmetic mean, 0 for no values
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// PopulationStd divides by N; one value or none gives 0
func PopulationStd(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	m := Mean(values)
	sq := 0.0
	for _, v := range values {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

// AsymmetryPercent is |l-r| / ((l+r)/2) * 100, 0 when the denominator is 0
func AsymmetryPercent(left, right float64) float64 {
	denom := (left + right) / 2
	if denom == 0 {
		return 0
	}
	return math.Abs(left-right) / denom * 100
}
