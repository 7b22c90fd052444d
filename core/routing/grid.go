package routing

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/ridepool/core/geo"
	"github.com/kilianp07/ridepool/core/route"
	"github.com/kilianp07/ridepool/core/simclock"
)

// GridConfig describes a rectangular grid of square cells anchored at its
// north-west corner.
type GridConfig struct {
	TopLeft  geo.Position `json:"top_left"`
	CellKM   float64      `json:"cell_km"`
	WidthKM  float64      `json:"width_km"`
	HeightKM float64      `json:"height_km"`
	// CachePath stores the filled matrices as CSV so later runs can skip Fill.
	CachePath string `json:"cache_path"`
}

// Grid answers car routes from precomputed cell-to-cell durations and
// distances. Foot routes, positions off the grid and trips inside one cell
// are delegated to the base router.
type Grid struct {
	cfg       GridConfig
	rows      int
	cols      int
	durations *mat.Dense // seconds
	distances *mat.Dense // km
	base      Router
	hits      atomic.Int64
	misses    atomic.Int64
}

type gridCell struct {
	From       int     `csv:"from"`
	To         int     `csv:"to"`
	DurationS  float64 `csv:"duration_s"`
	DistanceKM float64 `csv:"distance_km"`
}

// NewGrid allocates an empty grid. Every cell pair is unknown until Fill or
// LoadGrid populates it.
func NewGrid(cfg GridConfig, base Router) (*Grid, error) {
	if cfg.CellKM <= 0 || cfg.WidthKM <= 0 || cfg.HeightKM <= 0 {
		return nil, fmt.Errorf("routing: invalid grid dimensions %+v", cfg)
	}
	if base == nil {
		return nil, fmt.Errorf("routing: grid requires a base router")
	}
	cols := int(math.Ceil(cfg.WidthKM / cfg.CellKM))
	rows := int(math.Ceil(cfg.HeightKM / cfg.CellKM))
	n := rows * cols
	g := &Grid{cfg: cfg, rows: rows, cols: cols, base: base,
		durations: mat.NewDense(n, n, nil), distances: mat.NewDense(n, n, nil)}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			g.durations.Set(i, j, math.NaN())
		}
	}
	return g, nil
}

// Cells returns the number of cells.
func (g *Grid) Cells() int { return g.rows * g.cols }

func (g *Grid) Hits() int64   { return g.hits.Load() }
func (g *Grid) Misses() int64 { return g.misses.Load() }

func (g *Grid) cell(p geo.Position) (int, bool) {
	east := geo.DistanceKM(g.cfg.TopLeft, geo.Position{Lon: p.Lon, Lat: g.cfg.TopLeft.Lat})
	south := geo.DistanceKM(g.cfg.TopLeft, geo.Position{Lon: g.cfg.TopLeft.Lon, Lat: p.Lat})
	if p.Lon < g.cfg.TopLeft.Lon || p.Lat > g.cfg.TopLeft.Lat {
		return 0, false
	}
	c := int(east / g.cfg.CellKM)
	r := int(south / g.cfg.CellKM)
	if c >= g.cols || r >= g.rows {
		return 0, false
	}
	return r*g.cols + c, true
}

// Center returns the centre position of cell idx.
func (g *Grid) Center(idx int) geo.Position {
	r, c := idx/g.cols, idx%g.cols
	half := g.cfg.CellKM / 2
	return geo.Offset(g.cfg.TopLeft, float64(c)*g.cfg.CellKM+half, -(float64(r)*g.cfg.CellKM + half))
}

// Fill computes every cell pair with the base router.
func (g *Grid) Fill(ctx context.Context) error {
	n := g.Cells()
	for i := 0; i < n; i++ {
		from := g.Center(i)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			t, err := g.base.Route(ctx, from, g.Center(j), ModeCar, 0)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				continue
			}
			g.durations.Set(i, j, t.Duration.Seconds())
			g.distances.Set(i, j, t.DistanceKM)
		}
	}
	return nil
}

func (g *Grid) Route(ctx context.Context, from, to geo.Position, mode Mode, at simclock.Time) (route.Track, error) {
	if mode != ModeCar {
		return g.base.Route(ctx, from, to, mode, at)
	}
	i, okFrom := g.cell(from)
	j, okTo := g.cell(to)
	if !okFrom || !okTo || i == j {
		g.misses.Add(1)
		return g.base.Route(ctx, from, to, mode, at)
	}
	secs := g.durations.At(i, j)
	if math.IsNaN(secs) {
		g.misses.Add(1)
		return g.base.Route(ctx, from, to, mode, at)
	}
	g.hits.Add(1)
	d := secondsToDuration(secs)
	return route.NewTrack(from, to, at, d, g.distances.At(i, j)), nil
}

// Save writes the known cell pairs to path.
func (g *Grid) Save(path string) error {
	var rows []*gridCell
	n := g.Cells()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			secs := g.durations.At(i, j)
			if math.IsNaN(secs) {
				continue
			}
			rows = append(rows, &gridCell{From: i, To: j, DurationS: secs, DistanceKM: g.distances.At(i, j)})
		}
	}
	return writeCSV(path, &rows)
}

// LoadGrid builds a grid and fills it from a file written by Save.
func LoadGrid(cfg GridConfig, base Router, path string) (*Grid, error) {
	g, err := NewGrid(cfg, base)
	if err != nil {
		return nil, err
	}
	var rows []*gridCell
	if err := readCSV(path, &rows); err != nil {
		return nil, err
	}
	n := g.Cells()
	for _, r := range rows {
		if r.From < 0 || r.From >= n || r.To < 0 || r.To >= n {
			return nil, fmt.Errorf("routing: grid cache %s does not match %d cells", path, n)
		}
		g.durations.Set(r.From, r.To, r.DurationS)
		g.distances.Set(r.From, r.To, r.DistanceKM)
	}
	return g, nil
}

// OpenGrid loads the grid from cfg.CachePath when present, otherwise fills it
// and writes the cache.
func OpenGrid(ctx context.Context, cfg GridConfig, base Router) (*Grid, error) {
	if cfg.CachePath != "" && fileExists(cfg.CachePath) {
		return LoadGrid(cfg, base, cfg.CachePath)
	}
	g, err := NewGrid(cfg, base)
	if err != nil {
		return nil, err
	}
	if err := g.Fill(ctx); err != nil {
		return nil, err
	}
	if cfg.CachePath != "" {
		if err := g.Save(cfg.CachePath); err != nil {
			return nil, fmt.Errorf("save grid cache: %w", err)
		}
	}
	return g, nil
}
