package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Verdict says whether the impact in one dimension is dominated by a single
// item or spread across its items.
type Verdict string

const (
	Concentrated Verdict = "concentrated"
	Distributed  Verdict = "distributed"
)

const (
	outlierMinValue     = 15.0
	boldMinValue        = 20.0
	zScoreThreshold     = 1.5
	multipleOfSecondMax = 1.8
	dominantSharePct    = 40.0

	concentratedShare    = 0.6
	concentratedMultiple = 2.0
	narrowSpread         = 8.0
)

// IsOutlier reports whether value stands out from its peers strongly enough
// to be highlighted. The value must be at least 15 and satisfy at least two
// of: z-score >= 1.5, >= 1.8x the second largest peer, >= 40% of the total.
func IsOutlier(value float64, all []float64) bool {
	if !hasVariance(all) {
		return false
	}
	if value < outlierMinValue {
		return false
	}

	z := zScore(value, all)
	sorted := sortedDesc(all)
	secondMax := 0.0
	if len(sorted) >= 2 {
		secondMax = sorted[1]
	}
	sum := floats.Sum(sorted)

	signals := 0
	if z >= zScoreThreshold {
		signals++
	}
	if secondMax > 0 && value >= secondMax*multipleOfSecondMax {
		signals++
	}
	if sum > 0 && value/sum*100 >= dominantSharePct {
		signals++
	}
	return signals >= 2
}

// ShouldBold reports whether value deserves strong emphasis: it must be at
// least 20 and have a z-score of at least 1.5 against all.
func ShouldBold(value float64, all []float64) bool {
	if !hasVariance(all) {
		return false
	}
	return value >= boldMinValue && zScore(value, all) >= zScoreThreshold
}

// ClassifyDistribution decides whether impacts are concentrated on one item.
func ClassifyDistribution(impacts []float64) Verdict {
	if len(impacts) <= 1 {
		return Concentrated
	}

	sorted := sortedDesc(impacts)
	highest := sorted[0]
	secondHighest := sorted[1]
	lowest := sorted[len(sorted)-1]
	total := floats.Sum(sorted)

	if total > 0 && highest/total > concentratedShare {
		return Concentrated
	}
	if highest > secondHighest*concentratedMultiple {
		return Concentrated
	}
	// Narrow and wide spreads are both distributed for now.
	if highest-lowest < narrowSpread {
		return Distributed
	}
	return Distributed
}

func hasVariance(all []float64) bool {
	if len(all) <= 1 {
		return false
	}
	for _, v := range all[1:] {
		if v != all[0] {
			return true
		}
	}
	return false
}

// zScore uses the population standard deviation.
func zScore(value float64, all []float64) float64 {
	mean, std := stat.PopMeanStdDev(all, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return math.Abs(value-mean) / std
}

func sortedDesc(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Sort(sort.Reverse(sort.Float64Slice(out)))
	return out
}

// ThresholdSet exposes the classification constants to clients.
type ThresholdSet struct {
	OutlierMinValue      float64 `json:"outlier_min_value"`
	BoldMinValue         float64 `json:"bold_min_value"`
	ZScore               float64 `json:"z_score"`
	MultipleOfSecondMax  float64 `json:"multiple_of_second_max"`
	DominantSharePct     float64 `json:"dominant_share_pct"`
	ConcentratedShare    float64 `json:"concentrated_share"`
	ConcentratedMultiple float64 `json:"concentrated_multiple"`
	NarrowSpread         float64 `json:"narrow_spread"`
}

// Thresholds returns the constants used by IsOutlier, ShouldBold and
// ClassifyDistribution.
func Thresholds() ThresholdSet {
	return ThresholdSet{
		OutlierMinValue:      outlierMinValue,
		BoldMinValue:         boldMinValue,
		ZScore:               zScoreThreshold,
		MultipleOfSecondMax:  multipleOfSecondMax,
		DominantSharePct:     dominantSharePct,
		ConcentratedShare:    concentratedShare,
		ConcentratedMultiple: concentratedMultiple,
		NarrowSpread:         narrowSpread,
	}
}
