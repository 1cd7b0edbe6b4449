package filters

import (
	"strconv"
	"strings"

	"github.com/hupe1980/matchgo/document"
)

// Parse converts a decoded filter body into a filter tree.
//
// A nil or empty body is valid and yields a nil node, the match-all filter.
// Several operators at the top level form an implicit conjunction, mirroring
// the query DSL this engine accepts on the wire.
func Parse(body map[string]any) (*Node, error) {
	if len(body) == 0 {
		return nil, nil
	}
	children := make([]*Node, 0, len(body))
	for op, operand := range body {
		n, err := parseClause(op, operand)
		if err != nil {
			return nil, err
		}
		children = append(children, n)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return &Node{Op: OpAnd, Children: children}, nil
}

func parseClause(op string, operand any) (*Node, error) {
	switch op {
	case "term":
		field, raw, err := singleField(op, operand)
		if err != nil {
			return nil, err
		}
		v, err := document.FromAny(raw)
		if err != nil {
			return nil, invalidf(op, "unsupported value for field %q: %v", field, err)
		}
		return &Node{Op: OpTerm, Field: field, Value: v}, nil

	case "terms":
		field, raw, err := singleField(op, operand)
		if err != nil {
			return nil, err
		}
		arr, ok := raw.([]any)
		if !ok {
			return nil, invalidf(op, "field %q must hold an array of values", field)
		}
		if len(arr) == 0 {
			return nil, invalidf(op, "field %q must hold at least one value", field)
		}
		values := make([]document.Value, len(arr))
		for i := range arr {
			v, err := document.FromAny(arr[i])
			if err != nil {
				return nil, invalidf(op, "unsupported value for field %q: %v", field, err)
			}
			values[i] = v
		}
		return &Node{Op: OpTerms, Field: field, Values: values}, nil

	case "range":
		field, raw, err := singleField(op, operand)
		if err != nil {
			return nil, err
		}
		spec, ok := raw.(map[string]any)
		if !ok {
			return nil, invalidf(op, "field %q must hold a bounds object", field)
		}
		b := &Bounds{}
		for k, bv := range spec {
			f, ok := asNumber(bv)
			if !ok {
				return nil, invalidf(op, "bound %q of field %q is not numeric", k, field)
			}
			switch k {
			case "gt":
				b.GT = &f
			case "gte":
				b.GTE = &f
			case "lt":
				b.LT = &f
			case "lte":
				b.LTE = &f
			default:
				return nil, invalidf(op, "unknown bound %q for field %q", k, field)
			}
		}
		if b.GT == nil && b.GTE == nil && b.LT == nil && b.LTE == nil {
			return nil, invalidf(op, "field %q needs at least one of gt, gte, lt, lte", field)
		}
		return &Node{Op: OpRange, Field: field, Bounds: b}, nil

	case "exists", "missing":
		field, err := fieldRef(op, operand)
		if err != nil {
			return nil, err
		}
		nodeOp := OpExists
		if op == "missing" {
			nodeOp = OpMissing
		}
		return &Node{Op: nodeOp, Field: field}, nil

	case "geoBoundingBox":
		field, raw, err := singleField(op, operand)
		if err != nil {
			return nil, err
		}
		spec, ok := raw.(map[string]any)
		if !ok {
			return nil, invalidf(op, "field %q must hold a bounding box object", field)
		}
		box, err := parseBoundingBox(spec)
		if err != nil {
			return nil, err
		}
		return &Node{Op: OpGeoBoundingBox, Field: field, Box: box}, nil

	case "geoDistance":
		spec, ok := operand.(map[string]any)
		if !ok {
			return nil, invalidf(op, "operand must be an object")
		}
		rawDistance, ok := spec["distance"]
		if !ok {
			return nil, invalidf(op, "missing distance")
		}
		distance, err := parseDistance(rawDistance)
		if err != nil {
			return nil, err
		}
		var field string
		var center *Point
		for k, v := range spec {
			if k == "distance" {
				continue
			}
			if field != "" {
				return nil, invalidf(op, "expected exactly one field, got %q and %q", field, k)
			}
			p, ok := parsePoint(v)
			if !ok {
				return nil, invalidf(op, "field %q does not hold a valid geo point", k)
			}
			field = k
			center = &p
		}
		if field == "" {
			return nil, invalidf(op, "missing geo point field")
		}
		return &Node{Op: OpGeoDistance, Field: field, Center: center, Distance: distance}, nil

	case "geoPolygon":
		field, raw, err := singleField(op, operand)
		if err != nil {
			return nil, err
		}
		spec, ok := raw.(map[string]any)
		if !ok {
			return nil, invalidf(op, "field %q must hold a polygon object", field)
		}
		rawPoints, ok := spec["points"].([]any)
		if !ok {
			return nil, invalidf(op, "field %q must hold a points array", field)
		}
		if len(rawPoints) < 3 {
			return nil, invalidf(op, "a polygon needs at least 3 points, got %d", len(rawPoints))
		}
		points := make([]Point, len(rawPoints))
		for i := range rawPoints {
			p, ok := parsePoint(rawPoints[i])
			if !ok {
				return nil, invalidf(op, "point %d of field %q is not a valid geo point", i, field)
			}
			points[i] = p
		}
		return &Node{Op: OpGeoPolygon, Field: field, Points: points}, nil

	case "and", "or":
		arr, ok := operand.([]any)
		if !ok {
			return nil, invalidf(op, "operand must be an array of filters")
		}
		if len(arr) == 0 {
			return nil, invalidf(op, "operand must hold at least one filter")
		}
		children := make([]*Node, 0, len(arr))
		for i := range arr {
			sub, ok := arr[i].(map[string]any)
			if !ok {
				return nil, invalidf(op, "element %d is not a filter object", i)
			}
			child, err := Parse(sub)
			if err != nil {
				return nil, err
			}
			if child != nil {
				children = append(children, child)
			}
		}
		if len(children) == 0 {
			return nil, invalidf(op, "operand must hold at least one non-empty filter")
		}
		nodeOp := OpAnd
		if op == "or" {
			nodeOp = OpOr
		}
		return &Node{Op: nodeOp, Children: children}, nil

	case "not":
		sub, ok := operand.(map[string]any)
		if !ok {
			return nil, invalidf(op, "operand must be a filter object")
		}
		child, err := Parse(sub)
		if err != nil {
			return nil, err
		}
		if child == nil {
			return nil, invalidf(op, "operand must not be empty")
		}
		return &Node{Op: OpNot, Children: []*Node{child}}, nil

	default:
		return nil, &InvalidFilterError{Operator: op}
	}
}

// singleField unwraps operands of the shape {field: <spec>} and rejects
// anything with zero or several fields.
func singleField(op string, operand any) (string, any, error) {
	m, ok := operand.(map[string]any)
	if !ok {
		return "", nil, invalidf(op, "operand must be an object")
	}
	if len(m) != 1 {
		return "", nil, invalidf(op, "expected exactly one field, got %d", len(m))
	}
	for k, v := range m {
		return k, v, nil
	}
	return "", nil, invalidf(op, "operand must hold one field") // unreachable
}

// fieldRef unwraps operands of the shape {"field": "name"}.
func fieldRef(op string, operand any) (string, error) {
	m, ok := operand.(map[string]any)
	if !ok {
		return "", invalidf(op, "operand must be an object")
	}
	name, ok := m["field"].(string)
	if !ok || name == "" {
		return "", invalidf(op, `operand must hold a non-empty "field" attribute`)
	}
	return name, nil
}

func parseBoundingBox(spec map[string]any) (*BoundingBox, error) {
	const op = "geoBoundingBox"
	if tl, ok := spec["topLeft"]; ok {
		br, ok := spec["bottomRight"]
		if !ok {
			return nil, invalidf(op, "topLeft without bottomRight")
		}
		p1, ok1 := parsePoint(tl)
		p2, ok2 := parsePoint(br)
		if !ok1 || !ok2 {
			return nil, invalidf(op, "topLeft/bottomRight are not valid geo points")
		}
		return &BoundingBox{Top: p1.Lat, Left: p1.Lon, Bottom: p2.Lat, Right: p2.Lon}, nil
	}
	var box BoundingBox
	for _, side := range []struct {
		name string
		dst  *float64
	}{
		{"top", &box.Top}, {"left", &box.Left}, {"bottom", &box.Bottom}, {"right", &box.Right},
	} {
		raw, ok := spec[side.name]
		if !ok {
			return nil, invalidf(op, "missing %s", side.name)
		}
		f, ok := asNumber(raw)
		if !ok {
			return nil, invalidf(op, "%s is not numeric", side.name)
		}
		*side.dst = f
	}
	return &box, nil
}

// parsePoint accepts {lat: .., lon: ..} objects and [lat, lon] pairs.
func parsePoint(raw any) (Point, bool) {
	switch x := raw.(type) {
	case map[string]any:
		lat, ok1 := asNumber(x["lat"])
		lon, ok2 := asNumber(x["lon"])
		if !ok1 || !ok2 {
			return Point{}, false
		}
		return Point{Lat: lat, Lon: lon}, validLatLon(lat, lon)
	case []any:
		if len(x) != 2 {
			return Point{}, false
		}
		lat, ok1 := asNumber(x[0])
		lon, ok2 := asNumber(x[1])
		if !ok1 || !ok2 {
			return Point{}, false
		}
		return Point{Lat: lat, Lon: lon}, validLatLon(lat, lon)
	default:
		return Point{}, false
	}
}

func validLatLon(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// parseDistance accepts plain numbers (meters) and strings with a unit
// suffix: "10km", "500m", "3mi", "100ft".
func parseDistance(raw any) (float64, error) {
	const op = "geoDistance"
	if f, ok := asNumber(raw); ok {
		if f <= 0 {
			return 0, invalidf(op, "distance must be positive")
		}
		return f, nil
	}
	s, ok := raw.(string)
	if !ok {
		return 0, invalidf(op, "distance must be a number or a string")
	}
	s = strings.TrimSpace(strings.ToLower(s))
	unit := 1.0
	switch {
	case strings.HasSuffix(s, "km"):
		unit, s = 1000, strings.TrimSuffix(s, "km")
	case strings.HasSuffix(s, "mi"):
		unit, s = 1609.344, strings.TrimSuffix(s, "mi")
	case strings.HasSuffix(s, "ft"):
		unit, s = 0.3048, strings.TrimSuffix(s, "ft")
	case strings.HasSuffix(s, "m"):
		s = strings.TrimSuffix(s, "m")
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f <= 0 {
		return 0, invalidf(op, "cannot parse distance %q", raw)
	}
	return f * unit, nil
}

func asNumber(raw any) (float64, bool) {
	switch x := raw.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	default:
		return 0, false
	}
}
