package routing

import (
	"fmt"

	"campus-shuttle/internal/geo"
)

// Step kinds in a directions result.
const (
	StepWalk     = "walk"
	StepBoard    = "board"
	StepTransfer = "transfer"
	StepAlight   = "alight"
)

// TypeWalkOnly marks a directions result without any bus leg.
const TypeWalkOnly = "WALK_ONLY"

// DirectionsRequest is the query sent to the directions service. Either
// DestLocationID or the DestLat/DestLon/DestName triple is set.
type DirectionsRequest struct {
	OriginLat      float64
	OriginLon      float64
	DestLocationID string
	DestLat        float64
	DestLon        float64
	DestName       string
	Time           string // "HH:MM"
	Day            string // optional weekday
	ForceBus       bool
}

type Step struct {
	Type        string          `json:"type"`
	Instruction string          `json:"instruction,omitempty"`
	RouteName   string          `json:"routeName,omitempty"`
	From        *geo.Coordinate `json:"from,omitempty"`
	To          *geo.Coordinate `json:"to,omitempty"`
}

type StopRef struct {
	ID   string  `json:"id,omitempty"`
	Name string  `json:"name,omitempty"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

func (s StopRef) Coordinate() geo.Coordinate { return geo.Coordinate{Lat: s.Lat, Lon: s.Lon} }

// LegGeometry is one leg of a two-leg result, or an entry of the generic leg list.
type LegGeometry struct {
	RouteName string        `json:"routeName,omitempty"`
	Geometry  *geo.Geometry `json:"geometry,omitempty"`
	FromStop  *StopRef      `json:"fromStop,omitempty"`
	ToStop    *StopRef      `json:"toStop,omitempty"`
	IsLoop    bool          `json:"isLoop,omitempty"`
	First     *geo.Geometry `json:"first,omitempty"`
	Second    *geo.Geometry `json:"second,omitempty"`
}

type RouteGeometries struct {
	FirstLeg  *LegGeometry `json:"firstLeg,omitempty"`
	SecondLeg *LegGeometry `json:"secondLeg,omitempty"`
}

type LoopInfo struct {
	TransferPoint *geo.Coordinate `json:"transferPoint,omitempty"`
}

// Directions is the directions service response. Exactly one of
// RouteGeometry, RouteGeometries or Legs normally carries the bus geometry.
type Directions struct {
	Type            string           `json:"type,omitempty"`
	Steps           []Step           `json:"steps,omitempty"`
	RouteName       string           `json:"routeName,omitempty"`
	RouteGeometry   *geo.Geometry    `json:"routeGeometry,omitempty"`
	OriginStop      *StopRef         `json:"originStop,omitempty"`
	DestStop        *StopRef         `json:"destStop,omitempty"`
	RouteGeometries *RouteGeometries `json:"routeGeometries,omitempty"`
	IsLoopRoute     bool             `json:"isLoopRoute,omitempty"`
	LoopInfo        *LoopInfo        `json:"loopInfo,omitempty"`
	TransferPointID string           `json:"transferPointId,omitempty"`
	Legs            []LegGeometry    `json:"legs,omitempty"`
	TotalDuration   float64          `json:"totalDuration,omitempty"`
	Error           string           `json:"error,omitempty"`
	Suggestion      string           `json:"suggestion,omitempty"`
}

// WalkOnly reports whether the result contains no bus leg.
func (d *Directions) WalkOnly() bool { return d.Type == TypeWalkOnly }

// DirectionsError is returned when the service answers with {error, suggestion}.
type DirectionsError struct {
	Message    string
	Suggestion string
}

func (e *DirectionsError) Error() string {
	if e.Suggestion == "" {
		return fmt.Sprintf("directions: %s", e.Message)
	}
	return fmt.Sprintf("directions: %s (%s)", e.Message, e.Suggestion)
}
