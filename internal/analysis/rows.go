package analysis

import (
	"sort"
)

// Row is an Item decorated for a breakdown table.
type Row struct {
	Item
	Outlier         bool    `json:"outlier"`
	Bold            bool    `json:"bold"`
	FailRate        float64 `json:"failRate"`
	DisplayImpact   string  `json:"displayImpact"`
	DisplaySucc     string  `json:"displaySucc"`
	DisplayOutlier  string  `json:"displayOutlierness,omitempty"`
	CntDeltaPercent float64 `json:"cntDeltaPercent"`
}

// AnnotateRows flags outliers and bold rows against the impacts of the same
// set and fills in display strings. Missing outlierness values are derived
// with Outlierness.
func AnnotateRows(items []Item) []Row {
	impacts := Impacts(items)
	derived := Outlierness(items)

	rows := make([]Row, len(items))
	for i, it := range items {
		if it.Outlierness == nil {
			v := derived[i]
			it.Outlierness = &v
		}
		row := Row{
			Item:          it,
			Outlier:       IsOutlier(it.Impact, impacts),
			Bold:          ShouldBold(it.Impact, impacts),
			FailRate:      100 - it.Succ,
			DisplayImpact: FormatPercent(it.Impact),
			DisplaySucc:   FormatPercent(it.Succ),
		}
		row.DisplayOutlier = FormatPercent(*it.Outlierness)
		if it.PreviousCnt > 0 {
			row.CntDeltaPercent = float64(it.Cnt-it.PreviousCnt) / float64(it.PreviousCnt) * 100
		}
		rows[i] = row
	}
	return rows
}

// Outlierness returns, per item, how far its failure rate (100 - succ) sits
// above the median failure rate of all items, as a percentage of that
// median. Items at or below the median, or sets whose median failure rate
// is 0, get 0.
func Outlierness(items []Item) []float64 {
	out := make([]float64, len(items))
	if len(items) == 0 {
		return out
	}

	rates := make([]float64, len(items))
	for i, it := range items {
		rates[i] = 100 - it.Succ
	}
	median := medianOf(rates)
	if median <= 0 {
		return out
	}
	for i, r := range rates {
		if r > median {
			out[i] = (r - median) / median * 100
		}
	}
	return out
}

func medianOf(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
