package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func items(pairs ...any) []Item {
	out := make([]Item, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Item{Name: pairs[i].(string), Impact: pairs[i+1].(float64)})
	}
	return out
}

func TestAnalyze_TransTypeFactor(t *testing.T) {
	transTypes := items("upload", 93.75, "query", 3.38, "login", 3.38, "logout", 0.38, "ping", 0.38)
	servers := items("10.0.0.1", 26.0, "10.0.0.2", 25.0, "10.0.0.3", 25.0, "10.0.0.4", 24.0)
	clients := items("172.16.0.1", 34.0, "172.16.0.2", 33.0, "172.16.0.3", 33.0)

	got := Analyze(transTypes, servers, clients)

	assert.Equal(t, PrimaryFactor{Type: DimTransType, Name: "upload", Impact: 93.75}, got.PrimaryFactor)
	assert.Equal(t, DistributionSummary{Servers: Distributed, Clients: Distributed, TransTypes: Concentrated}, got.Distribution)
	assert.Contains(t, got.Conclusion, "upload")
	assert.Contains(t, got.Conclusion, "93.8%")
	assert.Contains(t, got.Recommendation, "upload")
}

func TestAnalyze_ServerBeatsTransType(t *testing.T) {
	transTypes := items("upload", 90.0, "query", 5.0, "login", 5.0)
	servers := items("10.0.0.1", 85.0, "10.0.0.2", 10.0, "10.0.0.3", 5.0)
	clients := items("172.16.0.1", 50.0, "172.16.0.2", 50.0)

	got := Analyze(transTypes, servers, clients)

	assert.Equal(t, Concentrated, got.Distribution.TransTypes)
	assert.Equal(t, Concentrated, got.Distribution.Servers)
	assert.Equal(t, Distributed, got.Distribution.Clients)
	assert.Equal(t, DimServer, got.PrimaryFactor.Type)
	assert.Equal(t, "10.0.0.1", got.PrimaryFactor.Name)
	assert.Contains(t, got.Conclusion, "85.0%")
}

func TestAnalyze_ClientFactor(t *testing.T) {
	transTypes := items("upload", 40.0, "query", 35.0, "login", 25.0)
	servers := items("10.0.0.1", 50.0, "10.0.0.2", 50.0)
	clients := items("172.16.0.1", 70.0, "172.16.0.2", 20.0, "172.16.0.3", 10.0)

	got := Analyze(transTypes, servers, clients)

	assert.Equal(t, PrimaryFactor{Type: DimClient, Name: "172.16.0.1", Impact: 70}, got.PrimaryFactor)
	assert.Contains(t, got.Recommendation, "172.16.0.1")
}

func TestAnalyze_Distributed(t *testing.T) {
	transTypes := items("upload", 22.0, "query", 21.0, "login", 20.0, "logout", 19.0, "ping", 18.0)
	servers := items("10.0.0.1", 34.0, "10.0.0.2", 33.0, "10.0.0.3", 33.0)
	clients := items("172.16.0.1", 26.0, "172.16.0.2", 25.0, "172.16.0.3", 25.0, "172.16.0.4", 24.0)

	got := Analyze(transTypes, servers, clients)

	assert.Equal(t, FactorDistributed, got.PrimaryFactor.Type)
	assert.Equal(t, "Multiple factors", got.PrimaryFactor.Name)
	assert.Equal(t, 34.0, got.PrimaryFactor.Impact)
	assert.Equal(t, DistributionSummary{Servers: Distributed, Clients: Distributed, TransTypes: Distributed}, got.Distribution)
}

func TestAnalyze_SingleServerNeverYieldsTransType(t *testing.T) {
	transTypes := items("upload", 93.75, "query", 3.38, "login", 3.38, "logout", 0.38, "ping", 0.38)
	servers := items("10.0.0.1", 100.0)
	clients := items("172.16.0.1", 61.33, "172.16.0.2", 48.67)

	got := Analyze(transTypes, servers, clients)

	assert.Equal(t, Concentrated, got.Distribution.TransTypes)
	assert.Equal(t, Concentrated, got.Distribution.Servers)
	assert.Equal(t, Distributed, got.Distribution.Clients)
	assert.Equal(t, PrimaryFactor{Type: DimServer, Name: "10.0.0.1", Impact: 100}, got.PrimaryFactor)
}

func TestTopItem_TiesKeepFirst(t *testing.T) {
	top := topItem(items("172.16.0.9", 80.0, "172.16.0.1", 80.0, "172.16.0.2", 1.0))
	require.Equal(t, "172.16.0.9", top.Name)

	top = topItem(items("a", 1.0, "b", 5.0, "c", 5.0))
	assert.Equal(t, "b", top.Name)

	assert.Equal(t, Item{}, topItem(nil))
}

func TestAnalyze_EmptySets(t *testing.T) {
	got := Analyze(nil, nil, nil)

	// Empty sets classify as concentrated, so the server rule wins with a
	// zero-valued top item.
	assert.Equal(t, PrimaryFactor{Type: DimServer}, got.PrimaryFactor)
	assert.NotEmpty(t, got.Conclusion)
}

func TestAnalyze_IsDeterministic(t *testing.T) {
	transTypes := items("upload", 40.0, "query", 35.0)
	servers := items("10.0.0.1", 60.0, "10.0.0.2", 40.0)
	clients := items("172.16.0.1", 55.0, "172.16.0.2", 45.0)

	assert.Equal(t, Analyze(transTypes, servers, clients), Analyze(transTypes, servers, clients))
}

func TestApplyOverride(t *testing.T) {
	b := Breakdown{
		TransTypes: items("upload", 70.0, "query", 30.0),
		Servers:    items("10.0.0.1", 60.0, "10.0.0.2", 40.0),
		Clients:    items("172.16.0.1", 55.0, "172.16.0.2", 45.0),
	}
	base := Analyze(b.TransTypes, b.Servers, b.Clients)

	got := ApplyOverride(base, Override{Type: DimServer, Name: "10.0.0.2"}, b)
	assert.Equal(t, PrimaryFactor{Type: DimServer, Name: "10.0.0.2", Impact: 40}, got.PrimaryFactor)
	assert.Equal(t, base.Conclusion, got.Conclusion)
	assert.Equal(t, base.Distribution, got.Distribution)

	missing := ApplyOverride(base, Override{Type: DimClient, Name: "192.168.9.9"}, b)
	assert.Equal(t, 0.0, missing.PrimaryFactor.Impact)

	// The original insight keeps its own primary factor.
	assert.NotEqual(t, got.PrimaryFactor, base.PrimaryFactor)
}
