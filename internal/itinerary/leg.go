package itinerary

import (
	"campus-shuttle/internal/geo"
)

// Leg is one directed ride on one route between two stops. Loop legs carry
// the outbound (First) and return (Second) halves of a single loop route.
type Leg struct {
	RouteName string
	Geometry  geo.Path
	FromStop  geo.Coordinate
	ToStop    geo.Coordinate
	IsLoop    bool
	First     geo.Path
	Second    geo.Path
}

type Kind string

const (
	KindBus  Kind = "bus"
	KindWalk Kind = "walk"
)

// RenderSegment is a colored, directed path ready for drawing.
type RenderSegment struct {
	Coordinates geo.Path `json:"coordinates"`
	Color       string   `json:"color"`
	Kind        Kind     `json:"kind"`
	RouteName   string   `json:"routeName,omitempty"`
	Leg         int      `json:"leg"`
	// Fallback is set when extraction failed and the unmodified geometry was used.
	Fallback bool `json:"fallback,omitempty"`
}

// Drawable reports whether the segment has enough points for an arrowed line.
func (s RenderSegment) Drawable() bool { return len(s.Coordinates) >= 2 }
