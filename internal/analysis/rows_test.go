package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnotateRows(t *testing.T) {
	given := 12.5
	in := []Item{
		{Name: "upload", Impact: 93.75, Cnt: 2400, PreviousCnt: 2000, Succ: 61.2, PreviousSucc: 99.6},
		{Name: "query", Impact: 3.38, Cnt: 5200, PreviousCnt: 5100, Succ: 99.1, PreviousSucc: 99.5},
		{Name: "login", Impact: 3.38, Cnt: 800, PreviousCnt: 800, Succ: 98.9, PreviousSucc: 99.4, Outlierness: &given},
		{Name: "logout", Impact: 0.38, Cnt: 300, PreviousCnt: 310, Succ: 99.0, PreviousSucc: 99.2},
	}

	rows := AnnotateRows(in)
	require.Len(t, rows, 4)

	assert.True(t, rows[0].Outlier)
	assert.True(t, rows[0].Bold)
	assert.Equal(t, "93.8%", rows[0].DisplayImpact)
	assert.Equal(t, "61.2%", rows[0].DisplaySucc)
	assert.InDelta(t, 20.0, rows[0].CntDeltaPercent, 1e-9)
	assert.InDelta(t, 38.8, rows[0].FailRate, 1e-9)

	assert.False(t, rows[1].Outlier)
	assert.False(t, rows[1].Bold)
	assert.Equal(t, 0.0, rows[2].CntDeltaPercent)

	// Provided outlierness is kept, missing ones are derived.
	require.NotNil(t, rows[2].Outlierness)
	assert.Equal(t, 12.5, *rows[2].Outlierness)
	require.NotNil(t, rows[0].Outlierness)
	assert.Greater(t, *rows[0].Outlierness, 0.0)

	// The input is left untouched.
	assert.Nil(t, in[0].Outlierness)
}

func TestOutlierness(t *testing.T) {
	in := []Item{
		{Name: "a", Succ: 98},
		{Name: "b", Succ: 99},
		{Name: "c", Succ: 90},
	}
	got := Outlierness(in)

	// Failure rates 2, 1, 10 with median 2.
	assert.InDeltaSlice(t, []float64{0, 0, 400}, got, 1e-9)
}

func TestOutlierness_ZeroMedian(t *testing.T) {
	in := []Item{{Succ: 100}, {Succ: 100}, {Succ: 90}}
	assert.Equal(t, []float64{0, 0, 0}, Outlierness(in))
	assert.Empty(t, Outlierness(nil))
}
