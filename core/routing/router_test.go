package routing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/ridepool/core/geo"
	"github.com/kilianp07/ridepool/core/route"
	"github.com/kilianp07/ridepool/core/simclock"
)

func TestStraightLineDurations(t *testing.T) {
	from := geo.Position{Lon: 11.5, Lat: 48.1}
	to := geo.Offset(from, 10, 0)
	r := NewStraightLine(30, 5, 1, Factors{Car: 1, Foot: 1})

	car, err := r.Route(context.Background(), from, to, ModeCar, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 10, car.DistanceKM, 0.01)
	assert.InDelta(t, (20 * time.Minute).Seconds(), car.Duration.Seconds(), 2)
	assert.Equal(t, simclock.Time(1000), car.Start())
	assert.Equal(t, to, car.Destination())

	foot, err := r.Route(context.Background(), from, to, ModeFoot, 0)
	require.NoError(t, err)
	assert.InDelta(t, (2 * time.Hour).Seconds(), foot.Duration.Seconds(), 10)
}

func TestStraightLineFactorsAndDetour(t *testing.T) {
	from := geo.Position{Lon: 11.5, Lat: 48.1}
	to := geo.Offset(from, 0, 6)
	plain := NewStraightLine(30, 5, 1, Factors{})
	scaled := NewStraightLine(30, 5, 1.5, Factors{Car: 2})

	a, err := plain.Route(context.Background(), from, to, ModeCar, 0)
	require.NoError(t, err)
	b, err := scaled.Route(context.Background(), from, to, ModeCar, 0)
	require.NoError(t, err)
	assert.InDelta(t, a.DistanceKM*1.5, b.DistanceKM, 1e-9)
	assert.InDelta(t, a.Duration.Seconds()*3, b.Duration.Seconds(), 0.01)
}

func TestStraightLineHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStraightLine(0, 0, 0, Factors{}).Route(ctx, geo.Position{}, geo.Position{Lon: 1}, ModeCar, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

type failingRouter struct{}

func (failingRouter) Route(context.Context, geo.Position, geo.Position, Mode, simclock.Time) (route.Track, error) {
	return route.Track{}, ErrNoRoute
}

func TestCountingRouter(t *testing.T) {
	c := NewCounting(NewStraightLine(30, 5, 1, Factors{}))
	for i := 0; i < 3; i++ {
		_, err := c.Route(context.Background(), geo.Position{Lon: 1, Lat: 1}, geo.Position{Lon: 1.01, Lat: 1}, ModeCar, 0)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(3), c.Calls())
	assert.Zero(t, c.Failed())

	f := NewCounting(failingRouter{})
	_, err := f.Route(context.Background(), geo.Position{}, geo.Position{}, ModeCar, 0)
	assert.True(t, errors.Is(err, ErrNoRoute))
	assert.Equal(t, int64(1), f.Failed())
}

func TestFactorsDefault(t *testing.T) {
	assert.Equal(t, 1.0, Factors{}.For(ModeCar))
	assert.Equal(t, 1.4, Factors{Foot: 1.4}.For(ModeFoot))
	assert.Equal(t, "foot", ModeFoot.String())
}
