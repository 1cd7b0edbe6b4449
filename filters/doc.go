// Package filters implements the filter expression language of the matching
// engine: parsing decoded filter bodies into a closed set of node variants,
// canonicalizing trees so reordered-but-equivalent expressions collapse onto
// one identity, and evaluating trees against typed documents.
//
// Canonical keys are the deduplication identity used by the subscription
// registry: one registered filter per (index, collection, canonical key).
package filters
