package filters

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Landmarks used across the geo tests. Distances below were checked against
// the haversine formula with the mean earth radius.
var (
	bigBen        = map[string]any{"lat": 51.5007, "lon": -0.1246}
	towerBridge   = map[string]any{"lat": 51.5055, "lon": -0.0754}
	eiffelTower   = map[string]any{"lat": 48.8584, "lon": 2.2945}
	centralLondon = map[string]any{
		"top": 51.6, "left": -0.3, "bottom": 51.4, "right": 0.1,
	}
)

func geoDoc(t *testing.T, location any) map[string]any {
	t.Helper()
	return map[string]any{"location": location}
}

func TestMatchGeoBoundingBox(t *testing.T) {
	n := mustParse(t, map[string]any{"geoBoundingBox": map[string]any{"location": centralLondon}})

	assert.True(t, Match(n, mustDoc(t, geoDoc(t, bigBen))))
	assert.True(t, Match(n, mustDoc(t, geoDoc(t, towerBridge))))
	assert.False(t, Match(n, mustDoc(t, geoDoc(t, eiffelTower))))

	t.Run("Corner point shape", func(t *testing.T) {
		corners := mustParse(t, map[string]any{"geoBoundingBox": map[string]any{"location": map[string]any{
			"topLeft":     map[string]any{"lat": 51.6, "lon": -0.3},
			"bottomRight": map[string]any{"lat": 51.4, "lon": 0.1},
		}}})
		assert.True(t, Match(corners, mustDoc(t, geoDoc(t, bigBen))))
		assert.False(t, Match(corners, mustDoc(t, geoDoc(t, eiffelTower))))
	})

	t.Run("Array point in document", func(t *testing.T) {
		assert.True(t, Match(n, mustDoc(t, geoDoc(t, []any{51.5007, -0.1246}))))
	})

	t.Run("Field holds no point", func(t *testing.T) {
		assert.False(t, Match(n, mustDoc(t, geoDoc(t, "not a point"))))
		assert.False(t, Match(n, mustDoc(t, map[string]any{"other": 1.0})))
	})
}

func TestMatchGeoDistance(t *testing.T) {
	// Big Ben to Tower Bridge is roughly 3.4 km.
	within := mustParse(t, map[string]any{"geoDistance": map[string]any{
		"location": bigBen,
		"distance": "5km",
	}})
	assert.True(t, Match(within, mustDoc(t, geoDoc(t, towerBridge))))
	assert.False(t, Match(within, mustDoc(t, geoDoc(t, eiffelTower))))

	tight := mustParse(t, map[string]any{"geoDistance": map[string]any{
		"location": bigBen,
		"distance": "1km",
	}})
	assert.False(t, Match(tight, mustDoc(t, geoDoc(t, towerBridge))))
	assert.True(t, Match(tight, mustDoc(t, geoDoc(t, bigBen))))
}

func TestMatchGeoPolygon(t *testing.T) {
	// A rough triangle over greater London, counterclockwise.
	body := map[string]any{"geoPolygon": map[string]any{"location": map[string]any{
		"points": []any{
			[]any{51.3, -0.5},
			[]any{51.3, 0.3},
			[]any{51.7, -0.1},
		},
	}}}
	n := mustParse(t, body)
	assert.True(t, Match(n, mustDoc(t, geoDoc(t, bigBen))))
	assert.False(t, Match(n, mustDoc(t, geoDoc(t, eiffelTower))))

	t.Run("Clockwise vertex order", func(t *testing.T) {
		cw := mustParse(t, map[string]any{"geoPolygon": map[string]any{"location": map[string]any{
			"points": []any{
				[]any{51.7, -0.1},
				[]any{51.3, 0.3},
				[]any{51.3, -0.5},
			},
		}}})
		assert.True(t, Match(cw, mustDoc(t, geoDoc(t, bigBen))))
		assert.False(t, Match(cw, mustDoc(t, geoDoc(t, eiffelTower))))
	})
}
