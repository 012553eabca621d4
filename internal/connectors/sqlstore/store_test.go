package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-incident-analysis-ui/internal/config"
	"go-incident-analysis-ui/internal/scenario"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite", filepath.Join(t.TempDir(), "snapshots.db"), time.Second, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SeedAndLoad(t *testing.T) {
	catalog, err := scenario.LoadCatalog()
	require.NoError(t, err)

	s := openTestStore(t)
	ctx := context.Background()

	snapshots := make([]*scenario.Snapshot, 0)
	for _, name := range catalog.Names() {
		snap, err := catalog.Get(name)
		require.NoError(t, err)
		snapshots = append(snapshots, snap)
	}
	require.NoError(t, s.Seed(ctx, snapshots...))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, catalog.Names(), summaryNames(list))

	want, err := catalog.Get(scenario.GCPause)
	require.NoError(t, err)
	got, err := s.Load(ctx, scenario.GCPause)
	require.NoError(t, err)

	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.KPI, got.KPI)
	assert.Equal(t, want.Alert.ID, got.Alert.ID)
	assert.True(t, want.Alert.StartTime.Equal(got.Alert.StartTime))
	assert.Equal(t, want.Alert.Status.PrimaryFactor, got.Alert.Status.PrimaryFactor)
	assert.Equal(t, want.Dimensions, got.Dimensions)
	require.Len(t, got.Series, len(want.Series))
	for i := range want.Series {
		assert.True(t, want.Series[i].Time.Equal(got.Series[i].Time))
		assert.Equal(t, want.Series[i].Cnt, got.Series[i].Cnt)
	}
}

func summaryNames(list []scenario.Summary) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, s.Name)
	}
	return out
}

func TestStore_ListMatchesCatalogOrder(t *testing.T) {
	catalog, err := scenario.LoadCatalog()
	require.NoError(t, err)
	gc, err := catalog.Get(scenario.GCPause)
	require.NoError(t, err)
	pmtud, err := catalog.Get(scenario.PMTUDBlackhole)
	require.NoError(t, err)

	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Seed(ctx,
		&scenario.Snapshot{Name: "zeta", Title: "Zeta"},
		pmtud,
		&scenario.Snapshot{Name: "alpha", Title: "Alpha"},
		gc,
	))

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{scenario.GCPause, scenario.PMTUDBlackhole, "alpha", "zeta"}, summaryNames(list))
}

func TestStore_SeedReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := &scenario.Snapshot{Name: "custom", Title: "v1", Series: []scenario.Point{{Time: time.Unix(0, 0), Cnt: 1}, {Time: time.Unix(60, 0), Cnt: 2}}}
	second := &scenario.Snapshot{Name: "custom", Title: "v2", Series: []scenario.Point{{Time: time.Unix(0, 0), Cnt: 3}}}

	require.NoError(t, s.Seed(ctx, first))
	require.NoError(t, s.Seed(ctx, second))

	got, err := s.Load(ctx, "custom")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Title)
	require.Len(t, got.Series, 1)
	assert.Equal(t, int64(3), got.Series[0].Cnt)
	assert.Empty(t, got.Dimensions)
}

func TestStore_LoadUnknown(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, scenario.ErrUnknownScenario)
}

func TestStore_Ping(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Ping(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "sqlite", s.Driver())
}

func TestNewStore_Validation(t *testing.T) {
	_, err := NewStore(config.Config{DBDriver: "postgres"})
	assert.Error(t, err)

	_, err = NewStore(config.Config{DBDriver: "sqlite"})
	assert.Error(t, err)
}
