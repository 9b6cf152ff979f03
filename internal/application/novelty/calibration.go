package novelty

import "time"

// Calibration corrects raw scores for technology area and patent age:
// fast-moving fields are held to a higher novelty bar, and older filings
// faced a thinner prior-art landscape.

// cpcCalibrationFactors maps CPC prefixes to novelty expectation factors.
var cpcCalibrationFactors = map[string]float64{
	"G06F": 1.1, // computing
	"G06N": 1.2, // AI / machine learning
	"A61B": 0.9, // medical devices
	"A61K": 0.8, // pharmaceuticals
	"H04L": 1.0, // telecommunications
	"H04W": 1.0, // wireless
}

// decadeCalibrationFactors maps the priority-date decade to a factor.
var decadeCalibrationFactors = map[int]float64{
	1980: 1.3,
	1990: 1.2,
	2000: 1.1,
	2010: 1.0,
	2020: 0.9,
}

// CPCFactor returns the mean factor over codes matching known prefixes,
// or 1.0 when nothing matches.
func CPCFactor(cpcCodes []string) float64 {
	var sum float64
	var matched int
	for _, code := range cpcCodes {
		for prefix, factor := range cpcCalibrationFactors {
			if len(code) >= len(prefix) && code[:len(prefix)] == prefix {
				sum += factor
				matched++
				break
			}
		}
	}
	if matched == 0 {
		return 1.0
	}
	return sum / float64(matched)
}

// DecadeFactor returns the factor for the priority date's decade, or 1.0
// when the date is missing or the decade is not in the table.
func DecadeFactor(priorityDate *time.Time) float64 {
	if priorityDate == nil {
		return 1.0
	}
	decade := (priorityDate.Year() / 10) * 10
	if factor, ok := decadeCalibrationFactors[decade]; ok {
		return factor
	}
	return 1.0
}
