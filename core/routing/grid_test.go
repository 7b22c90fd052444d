package routing

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/ridepool/core/geo"
)

func testGridConfig() GridConfig {
	return GridConfig{TopLeft: geo.Position{Lon: 11.5, Lat: 48.2}, CellKM: 1, WidthKM: 2, HeightKM: 2}
}

func TestGridRoutesBetweenCells(t *testing.T) {
	base := NewCounting(NewStraightLine(30, 5, 1, Factors{}))
	g, err := NewGrid(testGridConfig(), base)
	require.NoError(t, err)
	require.Equal(t, 4, g.Cells())
	require.NoError(t, g.Fill(context.Background()))
	filled := base.Calls()
	assert.Equal(t, int64(12), filled)

	from := g.Center(0)
	to := g.Center(3)
	tr, err := g.Route(context.Background(), from, to, ModeCar, 500)
	require.NoError(t, err)
	assert.Equal(t, filled, base.Calls())
	assert.Equal(t, int64(1), g.Hits())
	assert.InDelta(t, geo.DistanceKM(from, to), tr.DistanceKM, 0.001)
	assert.Equal(t, to, tr.Destination())
}

func TestGridFallsBackToBase(t *testing.T) {
	base := NewCounting(NewStraightLine(30, 5, 1, Factors{}))
	g, err := NewGrid(testGridConfig(), base)
	require.NoError(t, err)

	off := geo.Position{Lon: 10, Lat: 40}
	_, err = g.Route(context.Background(), off, g.Center(1), ModeCar, 0)
	require.NoError(t, err)
	_, err = g.Route(context.Background(), g.Center(0), g.Center(1), ModeCar, 0)
	require.NoError(t, err)
	_, err = g.Route(context.Background(), g.Center(0), g.Center(1), ModeFoot, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), base.Calls())
	assert.Equal(t, int64(2), g.Misses())
}

func TestGridCacheRoundTrip(t *testing.T) {
	cfg := testGridConfig()
	cfg.CachePath = filepath.Join(t.TempDir(), "grid.csv")
	base := NewStraightLine(30, 5, 1, Factors{})

	g, err := OpenGrid(context.Background(), cfg, base)
	require.NoError(t, err)

	counting := NewCounting(base)
	loaded, err := OpenGrid(context.Background(), cfg, counting)
	require.NoError(t, err)
	assert.Zero(t, counting.Calls())

	a, err := g.Route(context.Background(), g.Center(1), g.Center(2), ModeCar, 0)
	require.NoError(t, err)
	b, err := loaded.Route(context.Background(), g.Center(1), g.Center(2), ModeCar, 0)
	require.NoError(t, err)
	assert.InDelta(t, a.Duration.Seconds(), b.Duration.Seconds(), 0.002)
	assert.InDelta(t, a.DistanceKM, b.DistanceKM, 1e-6)
}

func TestNewGridRejectsBadConfig(t *testing.T) {
	_, err := NewGrid(GridConfig{}, NewStraightLine(0, 0, 0, Factors{}))
	assert.Error(t, err)
	_, err = NewGrid(testGridConfig(), nil)
	assert.Error(t, err)
}
