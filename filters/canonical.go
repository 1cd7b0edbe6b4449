package filters

import (
	"sort"
	"strconv"
	"strings"

	"github.com/hupe1980/matchgo/document"
	"github.com/hupe1980/matchgo/internal/hash"
)

// matchAllEncoding is the canonical encoding of the nil (match-all) filter.
const matchAllEncoding = "all"

// Canonicalize rewrites a filter tree into its normal form so that
// semantically identical expressions share one encoding:
//
//   - and/or children are flattened into their parent when the operator
//     matches, then sorted by encoding and deduplicated
//   - a conjunction or disjunction with a single child collapses to the child
//   - double negation cancels out
//   - terms operands are sorted and deduplicated (set semantics)
//
// The input is never mutated; nil stays nil.
func Canonicalize(n *Node) *Node {
	if n == nil {
		return nil
	}
	switch n.Op {
	case OpAnd, OpOr:
		flat := make([]*Node, 0, len(n.Children))
		for _, c := range n.Children {
			cc := Canonicalize(c)
			if cc.Op == n.Op {
				flat = append(flat, cc.Children...)
			} else {
				flat = append(flat, cc)
			}
		}
		sort.Slice(flat, func(i, j int) bool {
			return Encode(flat[i]) < Encode(flat[j])
		})
		dedup := flat[:0]
		var prev string
		for i, c := range flat {
			enc := Encode(c)
			if i == 0 || enc != prev {
				dedup = append(dedup, c)
			}
			prev = enc
		}
		if len(dedup) == 1 {
			return dedup[0]
		}
		out := *n
		out.Children = append([]*Node(nil), dedup...)
		return &out

	case OpNot:
		child := Canonicalize(n.Children[0])
		if child.Op == OpNot {
			return child.Children[0]
		}
		out := *n
		out.Children = []*Node{child}
		return &out

	case OpTerms:
		values := append([]document.Value(nil), n.Values...)
		sort.Slice(values, func(i, j int) bool { return values[i].Key() < values[j].Key() })
		dedup := values[:0]
		var prev string
		for i, v := range values {
			k := v.Key()
			if i == 0 || k != prev {
				dedup = append(dedup, v)
			}
			prev = k
		}
		out := *n
		out.Values = dedup
		return &out

	default:
		return n
	}
}

// Key derives the canonical identity of a filter scoped by index and
// collection. Two expressions that normalize to the same tree get the same
// key; the digest is collision-resistant so distinct trees never collide.
//
// The caller is expected to pass a tree returned by Canonicalize; un-normalized
// trees produce valid but order-sensitive keys.
func Key(index, collection string, n *Node) string {
	return hash.Sum256Hex(index, collection, Encode(n))
}

// Encode renders the canonical string form of a filter tree.
//
// The encoding is injective: field names and value keys are length-prefixed,
// so separator bytes occurring inside them cannot produce the encoding of a
// different tree. Distinct trees therefore never share a key.
func Encode(n *Node) string {
	if n == nil {
		return matchAllEncoding
	}
	var b strings.Builder
	encode(n, &b)
	return b.String()
}

func encode(n *Node, b *strings.Builder) {
	b.WriteString(n.Op.String())
	b.WriteByte('(')
	switch n.Op {
	case OpTerm:
		writeComponent(b, n.Field)
		b.WriteByte('=')
		writeComponent(b, n.Value.Key())
	case OpTerms:
		writeComponent(b, n.Field)
		b.WriteByte('=')
		for i, v := range n.Values {
			if i > 0 {
				b.WriteByte(',')
			}
			writeComponent(b, v.Key())
		}
	case OpRange:
		writeComponent(b, n.Field)
		b.WriteByte('=')
		writeBound(b, "gt", n.Bounds.GT)
		writeBound(b, "gte", n.Bounds.GTE)
		writeBound(b, "lt", n.Bounds.LT)
		writeBound(b, "lte", n.Bounds.LTE)
	case OpExists, OpMissing:
		writeComponent(b, n.Field)
	case OpGeoBoundingBox:
		writeComponent(b, n.Field)
		b.WriteByte('=')
		writeFloats(b, n.Box.Top, n.Box.Left, n.Box.Bottom, n.Box.Right)
	case OpGeoDistance:
		writeComponent(b, n.Field)
		b.WriteByte('=')
		writeFloats(b, n.Center.Lat, n.Center.Lon, n.Distance)
	case OpGeoPolygon:
		writeComponent(b, n.Field)
		b.WriteByte('=')
		for i, p := range n.Points {
			if i > 0 {
				b.WriteByte(';')
			}
			writeFloats(b, p.Lat, p.Lon)
		}
	case OpAnd, OpOr, OpNot:
		for i, c := range n.Children {
			if i > 0 {
				b.WriteByte(',')
			}
			encode(c, b)
		}
	}
	b.WriteByte(')')
}

// writeComponent writes a length-prefixed string so that separator characters
// inside field names or value keys cannot be confused with the encoding's own
// structure.
func writeComponent(b *strings.Builder, s string) {
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte(':')
	b.WriteString(s)
}

func writeBound(b *strings.Builder, name string, v *float64) {
	if v == nil {
		return
	}
	b.WriteString(name)
	b.WriteByte(':')
	b.WriteString(strconv.FormatFloat(*v, 'g', -1, 64))
	b.WriteByte('|')
}

func writeFloats(b *strings.Builder, vs ...float64) {
	for i, v := range vs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
}
