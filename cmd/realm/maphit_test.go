package main

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/realmforge/internal/application/handlers"
	"github.com/ersonp/realmforge/internal/domain/entities"
)

func TestPrintHit(t *testing.T) {
	tests := []struct {
		name   string
		result handlers.HitResult
		want   string
	}{
		{
			name:   "marker",
			result: handlers.HitResult{Marker: &entities.Marker{ID: "m1", Name: "Tower"}},
			want:   "Marker: Tower (m1)",
		},
		{
			name:   "region",
			result: handlers.HitResult{Region: &entities.Region{ID: "r1", Name: "Vale", Type: "forest"}},
			want:   "Region: Vale [forest] (r1)",
		},
		{
			name: "nothing",
			want: "Nothing here.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.result.MapName = "Continent"
			tt.result.World = entities.Point{X: 12.3, Y: 40}
			tt.result.Zoom = 1.5

			var buf bytes.Buffer
			printHit(&buf, &tt.result)
			out := buf.String()
			assert.Contains(t, out, `Map "Continent" at world (12.3, 40.0), zoom 1.50`)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestParseCoordinate(t *testing.T) {
	v, err := parseCoordinate("X", "-12.5")
	require.NoError(t, err)
	assert.Equal(t, -12.5, v)

	for _, in := range []string{"NaN", "nan", "Inf", "-Inf", "+inf", "abc", ""} {
		_, err := parseCoordinate("X", in)
		assert.Error(t, err, in)
	}
}

func TestCheckFinite(t *testing.T) {
	assert.NoError(t, checkFinite(map[string]float64{"--zoom": 2, "--width": 0}))

	err := checkFinite(map[string]float64{"--zoom": math.NaN()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--zoom")
	assert.Error(t, checkFinite(map[string]float64{"--rotation": math.Inf(1)}))
}
