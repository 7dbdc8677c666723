package itinerary

import (
	"github.com/paulmach/orb/geojson"
)

// FeatureCollection renders segments as GeoJSON line features in order.
func FeatureCollection(segments []RenderSegment) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, s := range segments {
		f := geojson.NewFeature(s.Coordinates.ToLineString())
		f.Properties["color"] = s.Color
		f.Properties["kind"] = string(s.Kind)
		f.Properties["leg"] = s.Leg
		if s.RouteName != "" {
			f.Properties["routeName"] = s.RouteName
		}
		if s.Fallback {
			f.Properties["fallback"] = true
		}
		fc.Append(f)
	}
	return fc
}
