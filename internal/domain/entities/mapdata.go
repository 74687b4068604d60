package entities

import (
	"encoding/json"
	"fmt"
	"math"
)

// Point is a 2D coordinate, in world or canvas space depending on context.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo returns the Euclidean distance between p and q.
func (p Point) DistanceTo(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Region is an area of a map, hit-tested as a circle around its center.
type Region struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Coordinates Point  `json:"coordinates"`
	Layer       string `json:"layer,omitempty"`
}

// Marker is a point of interest pinned on a map.
type Marker struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Color       string `json:"color,omitempty"`
	Coordinates Point  `json:"coordinates"`
	Layer       string `json:"layer,omitempty"`
}

// Layer groups regions and markers that can be shown together.
type Layer struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Visible bool    `json:"visible"`
	Opacity float64 `json:"opacity"`
}

// MapDocument is the typed view of a map entity's payload.
type MapDocument struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Regions     []Region `json:"regions"`
	Markers     []Marker `json:"markers"`
	Layers      []Layer  `json:"layers"`
}

// DecodeMap reads a map entity's payload into a MapDocument.
func DecodeMap(e Entity) (MapDocument, error) {
	if e.Kind != "" && e.Kind != KindMap {
		return MapDocument{}, fmt.Errorf("entity %s is a %s, not a map", e.ID, e.Kind.Singular())
	}
	raw, err := json.Marshal(e.Payload)
	if err != nil {
		return MapDocument{}, fmt.Errorf("encoding map payload: %w", err)
	}
	var doc MapDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return MapDocument{}, fmt.Errorf("decoding map payload: %w", err)
	}
	doc.ID = e.ID
	return doc, nil
}
