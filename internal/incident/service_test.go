package incident

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-incident-analysis-ui/internal/analysis"
	"go-incident-analysis-ui/internal/scenario"
	"go-incident-analysis-ui/internal/selection"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	catalog, err := scenario.LoadCatalog()
	require.NoError(t, err)
	return NewService(catalog, selection.NewMemoryStore(), scenario.GCPause, nil)
}

type failingStore struct{ selection.MemoryStore }

func (f *failingStore) Get(context.Context) (string, error) { return "", errors.New("backend down") }

func TestService_CurrentDefaultsUntilSelected(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	current, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, scenario.GCPause, current)

	var notified []string
	svc.OnSelect(func(name string) { notified = append(notified, name) })

	require.NoError(t, svc.Select(ctx, " "+scenario.PMTUDBlackhole+" "))
	current, err = svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, scenario.PMTUDBlackhole, current)
	assert.Equal(t, []string{scenario.PMTUDBlackhole}, notified)
}

func TestService_SelectUnknown(t *testing.T) {
	svc := newTestService(t)
	err := svc.Select(context.Background(), "nope")
	assert.ErrorIs(t, err, scenario.ErrUnknownScenario)

	current, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scenario.GCPause, current)
}

func TestService_CurrentBackendError(t *testing.T) {
	catalog, err := scenario.LoadCatalog()
	require.NoError(t, err)
	svc := NewService(catalog, &failingStore{}, scenario.GCPause, nil)

	_, err = svc.Current(context.Background())
	assert.Error(t, err)
}

func TestService_Scenarios(t *testing.T) {
	svc := newTestService(t)
	got, err := svc.Scenarios(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scenario.GCPause, got.Current)
	assert.Len(t, got.Scenarios, 3)
}

func TestService_Alert(t *testing.T) {
	svc := newTestService(t)
	view, err := svc.Alert(context.Background(), scenario.FirewallSession)
	require.NoError(t, err)

	assert.Equal(t, scenario.FirewallSession, view.Scenario)
	assert.Equal(t, int64(600), view.DurationSeconds)
	assert.Equal(t, "83.1%", view.Display["succ"])
	assert.Equal(t, "28730", view.Display["cnt"])
	assert.Equal(t, "5094ms", view.Display["respTime"])
}

func TestService_Dimension(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	rows, err := svc.Dimension(ctx, "", analysis.DimServer)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "10.1.3.21", rows[0].Name)
	assert.True(t, rows[0].Outlier)
	assert.False(t, rows[1].Outlier)

	_, err = svc.Dimension(ctx, "", "region")
	assert.ErrorIs(t, err, ErrUnknownDimension)

	_, err = svc.Dimension(ctx, "nope", analysis.DimServer)
	assert.ErrorIs(t, err, scenario.ErrUnknownScenario)
}

func TestService_InsightOverride(t *testing.T) {
	svc := newTestService(t)
	view, err := svc.Insight(context.Background(), scenario.GCPause)
	require.NoError(t, err)

	assert.True(t, view.Overridden)
	require.NotNil(t, view.ComputedFactor)
	assert.Equal(t, analysis.DimServer, view.ComputedFactor.Type)
	assert.Equal(t, analysis.PrimaryFactor{Type: analysis.DimServer, Name: "10.1.3.21", Impact: 88.2}, view.PrimaryFactor)
	assert.NotEmpty(t, view.ID)
	assert.False(t, view.GeneratedAt.IsZero())
}

func TestService_InsightWithoutOverride(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	view, err := svc.Insight(ctx, scenario.PMTUDBlackhole)
	require.NoError(t, err)
	assert.False(t, view.Overridden)
	assert.Nil(t, view.ComputedFactor)
	assert.Equal(t, analysis.DimTransType, view.PrimaryFactor.Type)
	assert.Equal(t, "file.upload", view.PrimaryFactor.Name)

	view, err = svc.Insight(ctx, scenario.FirewallSession)
	require.NoError(t, err)
	assert.Equal(t, analysis.FactorDistributed, view.PrimaryFactor.Type)
	assert.Equal(t, 34.1, view.PrimaryFactor.Impact)
}
