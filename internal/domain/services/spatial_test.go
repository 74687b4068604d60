package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/realmforge/internal/domain/entities"
)

func pt(x, y float64) entities.Point { return entities.Point{X: x, Y: y} }

func TestMapSpatialIndex_MarkerWithinRadius(t *testing.T) {
	ix := NewMapSpatialIndex(
		[]entities.Marker{{ID: "m", Name: "M", Coordinates: pt(100, 100)}},
		nil,
		DefaultSpatialConfig(),
	)

	hit := ix.Query(pt(105, 103))

	require.NotNil(t, hit.Marker)
	assert.Equal(t, "m", hit.Marker.ID)
	assert.Nil(t, hit.Region)
}

func TestMapSpatialIndex_RegionWithinRadius(t *testing.T) {
	ix := NewMapSpatialIndex(
		[]entities.Marker{{ID: "far", Coordinates: pt(0, 0)}},
		[]entities.Region{{ID: "r", Name: "R", Coordinates: pt(200, 200)}},
		DefaultSpatialConfig(),
	)

	hit := ix.Query(pt(220, 205))

	require.NotNil(t, hit.Region)
	assert.Equal(t, "r", hit.Region.ID)
	assert.Nil(t, hit.Marker)
}

func TestMapSpatialIndex_MarkerPriority(t *testing.T) {
	ix := NewMapSpatialIndex(
		[]entities.Marker{{ID: "m", Coordinates: pt(10, 10)}},
		[]entities.Region{{ID: "r", Coordinates: pt(10, 10)}},
		DefaultSpatialConfig(),
	)

	hit := ix.Query(pt(10, 10))

	require.NotNil(t, hit.Marker)
	assert.Equal(t, "m", hit.Marker.ID)
	assert.Nil(t, hit.Region)
}

func TestMapSpatialIndex_NoMatchBeyondThresholds(t *testing.T) {
	ix := NewMapSpatialIndex(
		[]entities.Marker{{ID: "m", Coordinates: pt(0, 0)}},
		[]entities.Region{{ID: "r", Coordinates: pt(0, 0)}},
		DefaultSpatialConfig(),
	)

	tests := []struct {
		name   string
		p      entities.Point
		marker bool
		region bool
	}{
		{name: "on marker", p: pt(0, 0), marker: true},
		{name: "marker edge", p: pt(15, 0), marker: true},
		{name: "just past marker", p: pt(15.01, 0), region: true},
		{name: "region edge", p: pt(0, 30), region: true},
		{name: "just past region", p: pt(0, 30.01)},
		{name: "far away", p: pt(300, -300)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit := ix.Query(tt.p)
			assert.Equal(t, tt.marker, hit.Marker != nil)
			assert.Equal(t, tt.region, hit.Region != nil)
			assert.Equal(t, tt.marker || tt.region, hit.Found())
		})
	}
}

func TestMapSpatialIndex_TieBreak(t *testing.T) {
	markers := []entities.Marker{
		{ID: "first", Coordinates: pt(12, 0)},
		{ID: "closest", Coordinates: pt(2, 0)},
	}
	regions := []entities.Region{
		{ID: "r-first", Coordinates: pt(100, 25)},
		{ID: "r-closest", Coordinates: pt(100, 5)},
	}

	tests := []struct {
		name       string
		tieBreak   TieBreak
		wantMarker string
		wantRegion string
	}{
		{name: "first registered", tieBreak: FirstRegistered, wantMarker: "first", wantRegion: "r-first"},
		{name: "nearest", tieBreak: Nearest, wantMarker: "closest", wantRegion: "r-closest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSpatialConfig()
			cfg.TieBreak = tt.tieBreak
			ix := NewMapSpatialIndex(markers, regions, cfg)

			hit := ix.Query(pt(0, 0))
			require.NotNil(t, hit.Marker)
			assert.Equal(t, tt.wantMarker, hit.Marker.ID)

			hit = ix.Query(pt(100, 0))
			require.NotNil(t, hit.Region)
			assert.Equal(t, tt.wantRegion, hit.Region.ID)
		})
	}
}

func TestMapSpatialIndex_NearestEqualDistanceUsesMapOrder(t *testing.T) {
	cfg := DefaultSpatialConfig()
	cfg.TieBreak = Nearest
	ix := NewMapSpatialIndex([]entities.Marker{
		{ID: "left", Coordinates: pt(-5, 0)},
		{ID: "right", Coordinates: pt(5, 0)},
	}, nil, cfg)

	hit := ix.Query(pt(0, 0))

	require.NotNil(t, hit.Marker)
	assert.Equal(t, "left", hit.Marker.ID)
}

func TestMapSpatialIndex_ConfigurableRadii(t *testing.T) {
	cfg := SpatialConfig{MarkerRadius: 5, RegionRadius: 50}
	ix := NewMapSpatialIndex(
		[]entities.Marker{{ID: "m", Coordinates: pt(0, 0)}},
		[]entities.Region{{ID: "r", Coordinates: pt(0, 0)}},
		cfg,
	)

	assert.NotNil(t, ix.Query(pt(4, 0)).Marker)
	assert.NotNil(t, ix.Query(pt(10, 0)).Region)
	assert.NotNil(t, ix.Query(pt(45, 0)).Region)
}

func TestMapSpatialIndex_ZeroRadiiUseDefaults(t *testing.T) {
	ix := NewMapSpatialIndex(nil, nil, SpatialConfig{})

	assert.Equal(t, DefaultMarkerRadius, ix.Config().MarkerRadius)
	assert.Equal(t, DefaultRegionRadius, ix.Config().RegionRadius)
}

func TestMapSpatialIndex_QueryCanvas(t *testing.T) {
	ix := NewMapSpatialIndex(
		[]entities.Marker{{ID: "m", Coordinates: pt(100, 100)}},
		[]entities.Region{{ID: "r", Coordinates: pt(200, 200)}},
		DefaultSpatialConfig(),
	)

	tests := []struct {
		name   string
		view   ViewTransform
		canvas entities.Point
		marker string
		region string
	}{
		{
			name:   "zoom 1",
			view:   ViewTransform{Width: 800, Height: 600, Zoom: 1},
			canvas: pt(400+105, 300+103),
			marker: "m",
		},
		{
			name:   "zoom 2 halves the world offset",
			view:   ViewTransform{Width: 800, Height: 600, Zoom: 2},
			canvas: pt(400+440, 300+410),
			region: "r",
		},
		{
			name:   "rotation is ignored",
			view:   ViewTransform{Width: 800, Height: 600, Zoom: 1, Rotation: 90},
			canvas: pt(400+100, 300+100),
			marker: "m",
		},
		{
			name:   "radius is not scaled by zoom",
			view:   ViewTransform{Width: 800, Height: 600, Zoom: 4},
			canvas: pt(400+400+64, 300+400),
			region: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit := ix.QueryCanvas(tt.canvas, tt.view)
			if tt.marker != "" {
				require.NotNil(t, hit.Marker)
				assert.Equal(t, tt.marker, hit.Marker.ID)
				return
			}
			if tt.region != "" {
				require.NotNil(t, hit.Region)
				assert.Equal(t, tt.region, hit.Region.ID)
				return
			}
			assert.False(t, hit.Found())
		})
	}
}

func TestViewTransform_RoundTrip(t *testing.T) {
	v := ViewTransform{Width: 640, Height: 480, Zoom: 1.44}
	world := pt(-37.5, 210)

	back := v.ToWorld(v.ToCanvas(world))

	assert.InDelta(t, world.X, back.X, 1e-9)
	assert.InDelta(t, world.Y, back.Y, 1e-9)
}

func TestViewTransform_NonPositiveZoom(t *testing.T) {
	v := ViewTransform{Width: 100, Height: 100}

	assert.Equal(t, pt(10, 10), v.ToWorld(pt(60, 60)))
}

func TestMapSpatialIndex_Resolve(t *testing.T) {
	ix := NewMapSpatialIndex(
		[]entities.Marker{{ID: "m", Coordinates: pt(0, 0)}},
		[]entities.Region{{ID: "r", Coordinates: pt(100, 0)}},
		DefaultSpatialConfig(),
	)

	var markers, regions []string
	onMarker := func(m entities.Marker) { markers = append(markers, m.ID) }
	onRegion := func(r entities.Region) { regions = append(regions, r.ID) }

	ix.Resolve(pt(1, 1), onMarker, onRegion)
	ix.Resolve(pt(110, 0), onMarker, onRegion)
	ix.Resolve(pt(500, 500), onMarker, onRegion)
	ix.Resolve(pt(0, 0), nil, nil)

	assert.Equal(t, []string{"m"}, markers)
	assert.Equal(t, []string{"r"}, regions)
}

func TestParseTieBreak(t *testing.T) {
	tests := []struct {
		in      string
		want    TieBreak
		wantErr bool
	}{
		{in: "", want: FirstRegistered},
		{in: "first", want: FirstRegistered},
		{in: "First_Registered", want: FirstRegistered},
		{in: " nearest ", want: Nearest},
		{in: "closest", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTieBreak(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "nearest", Nearest.String())
	assert.Equal(t, "first", FirstRegistered.String())
}

func TestMapSpatialIndex_NonFinitePointMatchesNothing(t *testing.T) {
	ix := NewMapSpatialIndex(
		[]entities.Marker{{ID: "m", Coordinates: pt(100, 100)}},
		[]entities.Region{{ID: "r", Coordinates: pt(200, 200)}},
		DefaultSpatialConfig(),
	)

	tests := []struct {
		name string
		p    entities.Point
	}{
		{"nan", pt(math.NaN(), math.NaN())},
		{"nan x", pt(math.NaN(), 100)},
		{"inf", pt(math.Inf(1), 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, tb := range []TieBreak{FirstRegistered, Nearest} {
				ix.cfg.TieBreak = tb
				assert.False(t, ix.Query(tt.p).Found(), tb.String())
			}
		})
	}
}

func TestViewTransform_NonFiniteZoom(t *testing.T) {
	for _, z := range []float64{math.NaN(), math.Inf(1)} {
		v := ViewTransform{Width: 800, Height: 600, Zoom: z}
		assert.Equal(t, pt(5, 3), v.ToWorld(pt(405, 303)))
	}
}
