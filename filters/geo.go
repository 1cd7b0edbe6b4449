package filters

import (
	"math"

	"github.com/golang/geo/s2"

	"github.com/hupe1980/matchgo/document"
)

// earthRadiusMeters is the mean earth radius used to convert the spherical
// angle returned by s2 into meters.
const earthRadiusMeters = 6371010.0

func matchGeo(n *Node, p Point) bool {
	ll := s2.LatLngFromDegrees(p.Lat, p.Lon)
	switch n.Op {
	case OpGeoBoundingBox:
		rect := s2.RectFromLatLng(s2.LatLngFromDegrees(n.Box.Bottom, n.Box.Left))
		rect = rect.AddPoint(s2.LatLngFromDegrees(n.Box.Top, n.Box.Right))
		return rect.ContainsLatLng(ll)

	case OpGeoDistance:
		center := s2.LatLngFromDegrees(n.Center.Lat, n.Center.Lon)
		return center.Distance(ll).Radians()*earthRadiusMeters <= n.Distance

	case OpGeoPolygon:
		pts := make([]s2.Point, len(n.Points))
		for i, v := range n.Points {
			pts[i] = s2.PointFromLatLng(s2.LatLngFromDegrees(v.Lat, v.Lon))
		}
		loop := s2.LoopFromPoints(pts)
		if loop.Area() > 2*math.Pi {
			// Vertices were supplied clockwise; take the complement.
			loop.Invert()
		}
		return loop.ContainsPoint(s2.PointFromLatLng(ll))

	default:
		return false
	}
}

// pointFromValue accepts the two geo-point shapes documents may carry:
// an object {lat, lon} or a [lat, lon] pair.
func pointFromValue(v document.Value) (Point, bool) {
	if obj, ok := v.AsObject(); ok {
		lat, ok1 := obj["lat"].AsFloat64()
		lon, ok2 := obj["lon"].AsFloat64()
		if !ok1 || !ok2 || !validLatLon(lat, lon) {
			return Point{}, false
		}
		return Point{Lat: lat, Lon: lon}, true
	}
	if arr, ok := v.AsArray(); ok && len(arr) == 2 {
		lat, ok1 := arr[0].AsFloat64()
		lon, ok2 := arr[1].AsFloat64()
		if !ok1 || !ok2 || !validLatLon(lat, lon) {
			return Point{}, false
		}
		return Point{Lat: lat, Lon: lon}, true
	}
	return Point{}, false
}
