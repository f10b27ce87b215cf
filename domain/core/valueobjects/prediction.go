package valueobjects

import "math"

// Prediction is one ranked class of a classification.
type Prediction struct {
	ClassID     int
	Label       string
	Probability float64
}

// Confidence returns the probability as a percentage rounded to two
// decimal places.
func (p Prediction) Confidence() float64 {
	return RoundPercent(p.Probability)
}

// RoundPercent converts a probability to a percentage with two decimals.
func RoundPercent(probability float64) float64 {
	return math.Round(probability*100*100) / 100
}
