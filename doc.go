// Package lmm provides the memory substrate for the Braid conversational
// agent architecture: an append-only log of typed events (deltas) that is
// periodically sealed into summary units (knots), a versioned content cell
// mechanism (beads), and a lightweight episode graph for grouping knots into
// narrative threads.
//
// # Core Concepts
//
// Every entity is scoped to exactly one braid — a single conversation or
// session — identified by its braid id:
//
//   - Delta: an immutable atomic logged event (message, tool call, tick, ...)
//   - Knot: an immutable summary sealing a contiguous span of deltas
//   - Bead: a mutable-by-replacement content cell with full version history
//   - Episode: a mutable narrative grouping of knots, linked to other
//     episodes via typed, weighted edges
//
// # Packages
//
//   - schema: the value types exchanged by every other component, with
//     field-level validation and lossless JSON serialization
//   - episodic: the Store contract and the in-memory reference backend
//   - episodic/neo4jstore: the durable graph-backed backend
//   - episodic/storetest: the backend conformance suite
//   - ribbon: bounded context-window assembly over recent deltas and knots
//
// # Getting Started
//
// The in-memory backend needs no configuration:
//
//	store := episodic.NewMemoryStore("braid-1")
//	defer store.Close(ctx)
//
//	d, err := store.AppendMessageDelta(ctx, "user", "hello", schema.ProvenanceUser)
//	if err != nil {
//		log.Fatal(err)
//	}
//	recent, err := store.RecentDeltas(ctx, 20)
//
// The durable backend connects to a Neo4j-compatible graph engine:
//
//	store, err := neo4jstore.New(ctx, neo4jstore.Config{
//		URI:      "bolt://localhost:7687",
//		Username: "neo4j",
//		Password: "secret",
//		BraidID:  "braid-1",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close(ctx)
//
// Both backends implement episodic.Store and are interchangeable from the
// caller's perspective; the conformance suite in episodic/storetest holds
// them to identical externally observable behavior.
package lmm
