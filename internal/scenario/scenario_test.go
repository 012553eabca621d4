package scenario

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-incident-analysis-ui/internal/analysis"
)

func TestLoadCatalog(t *testing.T) {
	c, err := LoadCatalog()
	require.NoError(t, err)

	assert.Equal(t, []string{GCPause, FirewallSession, PMTUDBlackhole}, c.Names())

	for _, name := range c.Names() {
		s, err := c.Get(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, s.Title, name)
		assert.NotEmpty(t, s.Alert.ID, name)
		assert.Len(t, s.Series, 20, name)
		assert.False(t, s.Alert.StartTime.IsZero(), name)
		assert.Greater(t, s.Alert.Duration(), time.Duration(0), name)
		for _, dim := range analysis.Dimensions() {
			assert.NotEmpty(t, s.Dimension(dim), "%s/%s", name, dim)
		}
	}
}

func TestCatalog_ScenarioVerdicts(t *testing.T) {
	c, err := LoadCatalog()
	require.NoError(t, err)

	want := map[string]string{
		GCPause:         analysis.DimServer,
		FirewallSession: analysis.FactorDistributed,
		PMTUDBlackhole:  analysis.DimTransType,
	}
	for name, factor := range want {
		s, err := c.Get(name)
		require.NoError(t, err)
		b := s.Breakdown()
		got := analysis.Analyze(b.TransTypes, b.Servers, b.Clients)
		assert.Equal(t, factor, got.PrimaryFactor.Type, name)
	}
}

func TestCatalog_UnknownScenario(t *testing.T) {
	c, err := LoadCatalog()
	require.NoError(t, err)

	_, err = c.Get("nope")
	assert.True(t, errors.Is(err, ErrUnknownScenario))

	_, err = c.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownScenario)
	assert.False(t, c.Has("nope"))
}

func TestCatalog_GCPauseOverride(t *testing.T) {
	c, err := LoadCatalog()
	require.NoError(t, err)

	s, err := c.Get(GCPause)
	require.NoError(t, err)
	require.NotNil(t, s.Alert.Status.PrimaryFactor)
	assert.Equal(t, analysis.Override{Type: analysis.DimServer, Name: "10.1.3.21"}, *s.Alert.Status.PrimaryFactor)

	servers := s.Dimension(analysis.DimServer)
	require.NotNil(t, servers[0].Outlierness)
	assert.Equal(t, 912.4, *servers[0].Outlierness)
}

func TestParse(t *testing.T) {
	doc := []byte(`
name: custom
title: Custom
alert:
  id: A-1
  level: minor
series:
  - {t: "2024-01-01T00:00:00Z", cnt: 10, succ: 99.5, respTime: 40, fail: 0}
dimensions:
  server:
    - {name: 10.0.0.1, impact: 100}
`)
	s, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, "custom", s.Name)
	require.Len(t, s.Series, 1)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), s.Series[0].Time)
	assert.Equal(t, []analysis.Item{{Name: "10.0.0.1", Impact: 100}}, s.Dimension(analysis.DimServer))
	assert.Nil(t, s.Dimension(analysis.DimClient))
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte(`title: nameless`))
	assert.Error(t, err)

	_, err = Parse([]byte("name: x\nseries:\n  - {t: yesterday}\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("name: [unterminated"))
	assert.Error(t, err)
}

func TestNewCatalog_OrderAndDuplicates(t *testing.T) {
	c, err := NewCatalog(&Snapshot{Name: "zeta"}, &Snapshot{Name: PMTUDBlackhole}, &Snapshot{Name: "alpha"}, &Snapshot{Name: GCPause})
	require.NoError(t, err)
	assert.Equal(t, []string{GCPause, PMTUDBlackhole, "alpha", "zeta"}, c.Names())

	_, err = NewCatalog(&Snapshot{Name: "a"}, &Snapshot{Name: "a"})
	assert.Error(t, err)
}

func TestLess(t *testing.T) {
	assert.True(t, Less(GCPause, FirewallSession))
	assert.True(t, Less(FirewallSession, PMTUDBlackhole))
	assert.True(t, Less(PMTUDBlackhole, "alpha"))
	assert.True(t, Less("alpha", "zeta"))
	assert.False(t, Less("alpha", GCPause))
	assert.False(t, Less(GCPause, GCPause))
}
