package services

import (
	"fmt"
	"math"
	"strings"

	"github.com/ersonp/realmforge/internal/domain/entities"
)

// Hit-test radii in world-space units. They are not scaled by zoom, so the
// on-screen tolerance shrinks as the view zooms in.
const (
	DefaultMarkerRadius = 15.0
	DefaultRegionRadius = 30.0
)

// TieBreak selects which candidate wins when several lie within the radius.
type TieBreak int

const (
	// FirstRegistered picks the earliest marker or region in map order.
	FirstRegistered TieBreak = iota
	// Nearest picks the closest candidate; equal distances fall back to map order.
	Nearest
)

// String returns the config spelling of the policy.
func (t TieBreak) String() string {
	if t == Nearest {
		return "nearest"
	}
	return "first"
}

// ParseTieBreak accepts "first" (or "") and "nearest".
func ParseTieBreak(s string) (TieBreak, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first", "first_registered":
		return FirstRegistered, nil
	case "nearest":
		return Nearest, nil
	default:
		return FirstRegistered, fmt.Errorf("unknown tie-break policy %q (valid: first, nearest)", s)
	}
}

// SpatialConfig tunes hit-testing.
type SpatialConfig struct {
	MarkerRadius float64
	RegionRadius float64
	TieBreak     TieBreak
}

// DefaultSpatialConfig returns the stock radii with first-registered tie-break.
func DefaultSpatialConfig() SpatialConfig {
	return SpatialConfig{
		MarkerRadius: DefaultMarkerRadius,
		RegionRadius: DefaultRegionRadius,
		TieBreak:     FirstRegistered,
	}
}

// ViewTransform describes how the canvas presents the map. The background is
// drawn with translate(center), scale(Zoom), rotate(Rotation); markers and
// regions only get translate and scale, so hit-testing never un-rotates.
type ViewTransform struct {
	Width    float64
	Height   float64
	Zoom     float64
	Rotation float64 // degrees, background only
}

// Center returns the canvas center.
func (v ViewTransform) Center() entities.Point {
	return entities.Point{X: v.Width / 2, Y: v.Height / 2}
}

func (v ViewTransform) scale() float64 {
	if v.Zoom <= 0 || math.IsNaN(v.Zoom) || math.IsInf(v.Zoom, 0) {
		return 1
	}
	return v.Zoom
}

// ToWorld maps a canvas point to world space.
func (v ViewTransform) ToWorld(canvas entities.Point) entities.Point {
	c, z := v.Center(), v.scale()
	return entities.Point{X: (canvas.X - c.X) / z, Y: (canvas.Y - c.Y) / z}
}

// ToCanvas maps a world point to canvas space, as markers and regions are drawn.
func (v ViewTransform) ToCanvas(world entities.Point) entities.Point {
	c, z := v.Center(), v.scale()
	return entities.Point{X: world.X*z + c.X, Y: world.Y*z + c.Y}
}

// Hit is the result of a query: a marker, a region, or neither.
type Hit struct {
	Marker *entities.Marker
	Region *entities.Region
}

// Found reports whether anything matched.
func (h Hit) Found() bool {
	return h.Marker != nil || h.Region != nil
}

// MapSpatialIndex resolves world-space points to markers and regions of one map.
type MapSpatialIndex struct {
	cfg     SpatialConfig
	markers []entities.Marker
	regions []entities.Region
}

// NewMapSpatialIndex builds an index over markers and regions in map order.
func NewMapSpatialIndex(markers []entities.Marker, regions []entities.Region, cfg SpatialConfig) *MapSpatialIndex {
	if cfg.MarkerRadius <= 0 {
		cfg.MarkerRadius = DefaultMarkerRadius
	}
	if cfg.RegionRadius <= 0 {
		cfg.RegionRadius = DefaultRegionRadius
	}
	ix := &MapSpatialIndex{
		cfg:     cfg,
		markers: make([]entities.Marker, len(markers)),
		regions: make([]entities.Region, len(regions)),
	}
	copy(ix.markers, markers)
	copy(ix.regions, regions)
	return ix
}

// NewMapSpatialIndexFromDocument indexes every marker and region of doc.
func NewMapSpatialIndexFromDocument(doc entities.MapDocument, cfg SpatialConfig) *MapSpatialIndex {
	return NewMapSpatialIndex(doc.Markers, doc.Regions, cfg)
}

// Config returns the index settings.
func (ix *MapSpatialIndex) Config() SpatialConfig {
	return ix.cfg
}

// Query returns the marker within MarkerRadius of p or, failing that, the
// region within RegionRadius. Markers always win over regions.
func (ix *MapSpatialIndex) Query(p entities.Point) Hit {
	if i := ix.match(len(ix.markers), func(i int) entities.Point { return ix.markers[i].Coordinates }, p, ix.cfg.MarkerRadius); i >= 0 {
		m := ix.markers[i]
		return Hit{Marker: &m}
	}
	if i := ix.match(len(ix.regions), func(i int) entities.Point { return ix.regions[i].Coordinates }, p, ix.cfg.RegionRadius); i >= 0 {
		r := ix.regions[i]
		return Hit{Region: &r}
	}
	return Hit{}
}

// QueryCanvas inverse-transforms a canvas point and queries it.
func (ix *MapSpatialIndex) QueryCanvas(canvas entities.Point, view ViewTransform) Hit {
	return ix.Query(view.ToWorld(canvas))
}

// Resolve queries p and hands the match to the matching callback.
// Nil callbacks are skipped.
func (ix *MapSpatialIndex) Resolve(p entities.Point, onMarker func(entities.Marker), onRegion func(entities.Region)) Hit {
	hit := ix.Query(p)
	switch {
	case hit.Marker != nil && onMarker != nil:
		onMarker(*hit.Marker)
	case hit.Region != nil && onRegion != nil:
		onRegion(*hit.Region)
	}
	return hit
}

// Filter returns an index holding only the markers and regions accepted by
// the predicates. A nil predicate keeps everything of that category.
func (ix *MapSpatialIndex) Filter(keepMarker func(entities.Marker) bool, keepRegion func(entities.Region) bool) *MapSpatialIndex {
	out := &MapSpatialIndex{cfg: ix.cfg}
	for _, m := range ix.markers {
		if keepMarker == nil || keepMarker(m) {
			out.markers = append(out.markers, m)
		}
	}
	for _, r := range ix.regions {
		if keepRegion == nil || keepRegion(r) {
			out.regions = append(out.regions, r)
		}
	}
	return out
}

func (ix *MapSpatialIndex) match(n int, at func(int) entities.Point, p entities.Point, radius float64) int {
	best, bestDist := -1, 0.0
	for i := 0; i < n; i++ {
		d := p.DistanceTo(at(i))
		// NaN compares false against everything, so it must be rejected explicitly.
		if math.IsNaN(d) || d > radius {
			continue
		}
		if ix.cfg.TieBreak == FirstRegistered {
			return i
		}
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
