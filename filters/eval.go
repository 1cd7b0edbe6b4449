package filters

import (
	"github.com/hupe1980/matchgo/document"
)

// Match evaluates a filter tree against a document.
//
// Missing fields never match term/terms/range/geo predicates; they do match
// OpMissing. Conjunctions stop at the first false child and disjunctions at
// the first true child; evaluation is pure, so short-circuiting is always
// safe. A nil node matches everything.
func Match(n *Node, doc document.Document) bool {
	if n == nil {
		return true
	}
	switch n.Op {
	case OpTerm:
		v, ok := doc.Lookup(n.Field)
		if !ok {
			return false
		}
		return termMatches(v, n.Value)

	case OpTerms:
		v, ok := doc.Lookup(n.Field)
		if !ok {
			return false
		}
		for i := range n.Values {
			if termMatches(v, n.Values[i]) {
				return true
			}
		}
		return false

	case OpRange:
		v, ok := doc.Lookup(n.Field)
		if !ok {
			return false
		}
		f, ok := v.AsFloat64()
		if !ok {
			return false
		}
		b := n.Bounds
		if b.GT != nil && !(f > *b.GT) {
			return false
		}
		if b.GTE != nil && !(f >= *b.GTE) {
			return false
		}
		if b.LT != nil && !(f < *b.LT) {
			return false
		}
		if b.LTE != nil && !(f <= *b.LTE) {
			return false
		}
		return true

	case OpExists:
		_, ok := doc.Lookup(n.Field)
		return ok

	case OpMissing:
		_, ok := doc.Lookup(n.Field)
		return !ok

	case OpGeoBoundingBox, OpGeoDistance, OpGeoPolygon:
		v, ok := doc.Lookup(n.Field)
		if !ok {
			return false
		}
		p, ok := pointFromValue(v)
		if !ok {
			return false
		}
		return matchGeo(n, p)

	case OpAnd:
		for _, c := range n.Children {
			if !Match(c, doc) {
				return false
			}
		}
		return true

	case OpOr:
		for _, c := range n.Children {
			if Match(c, doc) {
				return true
			}
		}
		return false

	case OpNot:
		return !Match(n.Children[0], doc)

	default:
		return false
	}
}

// termMatches applies term equality with array-contains semantics: a document
// field holding an array matches when any element equals the operand.
func termMatches(field, operand document.Value) bool {
	if arr, ok := field.AsArray(); ok && operand.Kind != document.KindArray {
		for i := range arr {
			if arr[i].Equal(operand) {
				return true
			}
		}
		return false
	}
	return field.Equal(operand)
}
