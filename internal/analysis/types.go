// Package analysis holds the statistical heuristics behind the incident
// dashboard: outlier highlighting, per-dimension distribution verdicts,
// primary factor selection and display number formatting.
//
// Everything here is a pure function of its inputs.
package analysis

// Dimension keys used by breakdown tables.
const (
	DimTransType = "transType"
	DimServer    = "server"
	DimClient    = "client"
	DimChannel   = "channel"
	DimRetCode   = "retCode"
)

// FactorDistributed marks an incident without a single dominant dimension.
const FactorDistributed = "distributed"

// Dimensions lists every breakdown dimension in display order.
func Dimensions() []string {
	return []string{DimTransType, DimServer, DimClient, DimChannel, DimRetCode}
}

// Item is one row of a dimension breakdown.
type Item struct {
	Name         string   `json:"name" yaml:"name"`
	Impact       float64  `json:"impact" yaml:"impact"`
	Outlierness  *float64 `json:"outlierness,omitempty" yaml:"outlierness,omitempty"`
	Cnt          int64    `json:"cnt" yaml:"cnt"`
	PreviousCnt  int64    `json:"previousCnt" yaml:"previousCnt"`
	Succ         float64  `json:"succ" yaml:"succ"`
	PreviousSucc float64  `json:"previousSucc" yaml:"previousSucc"`
}

// Impacts returns the impact column of items, preserving order.
func Impacts(items []Item) []float64 {
	out := make([]float64, len(items))
	for i, it := range items {
		out[i] = it.Impact
	}
	return out
}

// PrimaryFactor identifies the dimension value that best explains an
// incident, or FactorDistributed when no single one does.
type PrimaryFactor struct {
	Type   string  `json:"type"`
	Name   string  `json:"name"`
	Impact float64 `json:"impact"`
}

// DistributionSummary carries the verdict of each analysed dimension.
type DistributionSummary struct {
	Servers    Verdict `json:"servers"`
	Clients    Verdict `json:"clients"`
	TransTypes Verdict `json:"transTypes"`
}

// Insight is the outcome of a correlation analysis.
type Insight struct {
	Conclusion     string              `json:"conclusion"`
	PrimaryFactor  PrimaryFactor       `json:"primaryFactor"`
	Distribution   DistributionSummary `json:"distribution"`
	Recommendation string              `json:"recommendation"`
}
