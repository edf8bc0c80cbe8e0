// Package episodic defines the episodic store contract — the append/commit/
// query engine over a single braid's memory — and provides the in-memory
// reference backend.
//
// A Store instance owns every entity for its braid and is the sole mutator.
// Two interchangeable implementations exist:
//
//   - MemoryStore (this package): process-local, backed by ordered in-memory
//     collections. Used for development and tests, and serving as the
//     semantic oracle: any divergence in another backend's externally
//     observable behavior relative to MemoryStore is a defect.
//   - neo4jstore.Store: durable, backed by a property-graph engine, with
//     transactional per-braid sequence counters and graph-native episode
//     edges.
//
// The conformance suite in episodic/storetest runs unmodified against any
// Store implementation.
//
// # Usage
//
//	store := episodic.NewMemoryStore("braid-1")
//	defer store.Close(ctx)
//
//	_, err := store.AppendMessageDelta(ctx, "user", "hello", schema.ProvenanceUser)
//	if err != nil {
//		return err
//	}
//
//	ref, err := store.UpsertReasoningSummaryBead(ctx, "user greeted us", nil)
//	knot, err := store.CommitKnot(ctx, episodic.KnotCommit{
//		PrimaryEpisodeID: "ep-1",
//		StartDeltaID:     first.ID,
//		EndDeltaID:       last.ID,
//		StartTS:          first.TS,
//		EndTS:            last.TS,
//		Summary:          "greeting exchange",
//		ThoughtSummaryBeadRef: &ref,
//	})
//
//	deltas, err := store.RecentDeltas(ctx, 20)
package episodic
