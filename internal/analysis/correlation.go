package analysis

import (
	"fmt"
	"math"
)

// Analyze picks the primary factor of an incident from the transaction
// type, server and client breakdowns. Rules are checked in a fixed order
// and the first match wins:
//
//  1. transaction types concentrated while servers and clients are both
//     distributed
//  2. servers concentrated
//  3. clients concentrated
//  4. otherwise the incident is treated as distributed
//
// A dimension with a single item is always concentrated, so rule 1 never
// fires for a single-server incident.
func Analyze(transTypes, servers, clients []Item) Insight {
	dist := DistributionSummary{
		TransTypes: ClassifyDistribution(Impacts(transTypes)),
		Servers:    ClassifyDistribution(Impacts(servers)),
		Clients:    ClassifyDistribution(Impacts(clients)),
	}

	topTransType := topItem(transTypes)
	topServer := topItem(servers)
	topClient := topItem(clients)

	out := Insight{Distribution: dist}
	switch {
	case dist.TransTypes == Concentrated && dist.Servers == Distributed && dist.Clients == Distributed:
		out.PrimaryFactor = PrimaryFactor{Type: DimTransType, Name: topTransType.Name, Impact: topTransType.Impact}
		out.Conclusion = fmt.Sprintf(
			"Timeouts are concentrated on transaction type %s (%.1f%% of new failures) while servers and clients are uniformly affected.",
			topTransType.Name, topTransType.Impact)
		out.Recommendation = fmt.Sprintf(
			"Trace %s end to end across the systems it touches and check the downstream dependencies specific to this transaction type.",
			topTransType.Name)
	case dist.Servers == Concentrated:
		out.PrimaryFactor = PrimaryFactor{Type: DimServer, Name: topServer.Name, Impact: topServer.Impact}
		out.Conclusion = fmt.Sprintf(
			"Timeouts are concentrated on server %s (%.1f%% of new failures); other servers look normal.",
			topServer.Name, topServer.Impact)
		out.Recommendation = fmt.Sprintf(
			"Investigate server %s for resource exhaustion, configuration changes or service degradation.",
			topServer.Name)
	case dist.Clients == Concentrated:
		out.PrimaryFactor = PrimaryFactor{Type: DimClient, Name: topClient.Name, Impact: topClient.Impact}
		out.Conclusion = fmt.Sprintf(
			"Timeouts are concentrated on client %s (%.1f%% of new failures); other clients look normal.",
			topClient.Name, topClient.Impact)
		out.Recommendation = fmt.Sprintf(
			"Investigate client %s for resource exhaustion, configuration changes or network path degradation.",
			topClient.Name)
	default:
		out.PrimaryFactor = PrimaryFactor{
			Type:   FactorDistributed,
			Name:   "Multiple factors",
			Impact: math.Max(topTransType.Impact, math.Max(topServer.Impact, topClient.Impact)),
		}
		out.Conclusion = "Timeouts are spread evenly across transaction types, servers and clients with no dominant factor."
		out.Recommendation = "Run a cross-dimension analysis for systemic causes such as network infrastructure or shared dependencies."
	}
	return out
}

// topItem returns the first item holding the maximum impact, or the zero
// Item when items is empty.
func topItem(items []Item) Item {
	if len(items) == 0 {
		return Item{}
	}
	top := items[0]
	for _, it := range items[1:] {
		if it.Impact > top.Impact {
			top = it
		}
	}
	return top
}

// Override is an externally computed primary factor that takes precedence
// over the analyser's own choice.
type Override struct {
	Type string `json:"type" yaml:"type"`
	Name string `json:"name" yaml:"name"`
}

// Breakdown groups the dimension sets an override is resolved against.
type Breakdown struct {
	TransTypes []Item
	Servers    []Item
	Clients    []Item
}

// ApplyOverride replaces the insight's primary factor with o. The impact is
// looked up by name in the dimension matching o.Type and is 0 when no item
// matches. The input insight is not modified.
func ApplyOverride(in Insight, o Override, b Breakdown) Insight {
	var items []Item
	switch o.Type {
	case DimTransType:
		items = b.TransTypes
	case DimServer:
		items = b.Servers
	case DimClient:
		items = b.Clients
	}

	impact := 0.0
	for _, it := range items {
		if it.Name == o.Name {
			impact = it.Impact
			break
		}
	}

	in.PrimaryFactor = PrimaryFactor{Type: o.Type, Name: o.Name, Impact: impact}
	return in
}
