package filters

import (
	"github.com/hupe1980/matchgo/document"
)

// Op identifies a filter node variant.
//
// The set is closed: the parser rejects anything outside it, and the
// evaluator switches exhaustively over it.
type Op uint8

const (
	// OpTerm matches a field against a single value.
	OpTerm Op = iota + 1
	// OpTerms matches a field against any of a set of values.
	OpTerms
	// OpRange matches a numeric field against open/closed bounds.
	OpRange
	// OpExists matches documents where a field is present.
	OpExists
	// OpMissing matches documents where a field is absent.
	OpMissing
	// OpGeoBoundingBox matches a geo-point field inside a lat/lon rectangle.
	OpGeoBoundingBox
	// OpGeoDistance matches a geo-point field within a distance of a center.
	OpGeoDistance
	// OpGeoPolygon matches a geo-point field inside a polygon.
	OpGeoPolygon
	// OpAnd is the conjunction of its children.
	OpAnd
	// OpOr is the disjunction of its children.
	OpOr
	// OpNot negates its single child.
	OpNot
)

// String returns the operator name as it appears in filter bodies.
func (op Op) String() string {
	switch op {
	case OpTerm:
		return "term"
	case OpTerms:
		return "terms"
	case OpRange:
		return "range"
	case OpExists:
		return "exists"
	case OpMissing:
		return "missing"
	case OpGeoBoundingBox:
		return "geoBoundingBox"
	case OpGeoDistance:
		return "geoDistance"
	case OpGeoPolygon:
		return "geoPolygon"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpNot:
		return "not"
	default:
		return "invalid"
	}
}

// Bounds holds the numeric range operands. A nil bound is unbounded on that
// side; gt/gte and lt/lte are kept separate so closed/open comparisons follow
// exactly what the client supplied.
type Bounds struct {
	GT  *float64
	GTE *float64
	LT  *float64
	LTE *float64
}

// Point is a geo point in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// BoundingBox is a lat/lon rectangle in degrees.
type BoundingBox struct {
	Top    float64
	Left   float64
	Bottom float64
	Right  float64
}

// Node is one node of a parsed filter tree.
//
// A nil *Node is the match-all filter (empty body). Which auxiliary fields
// are populated depends on Op; the parser guarantees the invariants (e.g.
// OpNot has exactly one child, OpRange has at least one bound).
type Node struct {
	Op    Op
	Field string

	Value  document.Value   // OpTerm
	Values []document.Value // OpTerms
	Bounds *Bounds          // OpRange

	Box      *BoundingBox // OpGeoBoundingBox
	Center   *Point       // OpGeoDistance
	Distance float64      // OpGeoDistance, meters
	Points   []Point      // OpGeoPolygon

	Children []*Node // OpAnd, OpOr, OpNot
}
