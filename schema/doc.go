// Package schema defines the value types exchanged by every component of the
// braid memory substrate: deltas, knots, beads with their version history,
// episodes with their typed edges, and the provenance classification attached
// to every delta.
//
// All entities are scoped to exactly one braid (a single conversation or
// session). Types fall into two mutation classes:
//
//   - Append-only: Delta, Knot, and BeadVersion are never mutated or deleted
//     once stored.
//   - Mutable-by-replacement: Bead repoints its active version on each write;
//     Episode and its edges may be rewritten in place with upsert semantics.
//
// Enum-valued fields (DeltaKind, ProvenanceKind, BeadType, EpisodeEdgeType,
// EpisodeState) and confidence scores are checked by each entity's Validate
// method, which reports a *ValidationError for out-of-range or unknown
// values. Storage backends rely on Validate to refuse partially-valid
// entities at the serialization boundary.
//
// Opaque structured payloads (delta payloads, bead data, episode label maps,
// ...) are carried as Document values, which serialize losslessly to JSON and
// support deep cloning.
package schema
