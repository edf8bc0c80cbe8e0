// Package storetest holds every episodic.Store implementation to the same
// externally observable behavior. The reference backend defines the
// semantics; a durable backend passing this suite is interchangeable with
// it from the caller's perspective.
//
// Usage, from a backend's own test package:
//
//	func TestConformance(t *testing.T) {
//		storetest.Run(t, func(t *testing.T) episodic.Store {
//			return episodic.NewMemoryStore("braid-conformance")
//		})
//	}
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elyra-labs/lmm/episodic"
	"github.com/elyra-labs/lmm/schema"
)

// Factory returns a fresh, empty store for one subtest. The store is closed
// by the suite; register additional cleanup with t.Cleanup.
type Factory func(t *testing.T) episodic.Store

// Run executes the full conformance suite against stores built by factory.
func Run(t *testing.T, factory Factory) {
	suite := []struct {
		name string
		fn   func(t *testing.T, s episodic.Store)
	}{
		{"AppendOrdering", testAppendOrdering},
		{"RecentDeltasLimits", testRecentDeltasLimits},
		{"MessageScenario", testMessageScenario},
		{"ToolDeltas", testToolDeltas},
		{"DeltaFidelity", testDeltaFidelity},
		{"BeadVersioning", testBeadVersioning},
		{"BeadVersionValidation", testBeadVersionValidation},
		{"BeadVersionWindow", testBeadVersionWindow},
		{"ReasoningSummaryBead", testReasoningSummaryBead},
		{"CommitKnotPermissive", testCommitKnotPermissive},
		{"KnotOrdering", testKnotOrdering},
		{"KnotFidelity", testKnotFidelity},
		{"EpisodeUpsertAndGet", testEpisodeUpsertAndGet},
		{"EpisodeEdgeReplacement", testEpisodeEdgeReplacement},
		{"EpisodeListing", testEpisodeListing},
		{"ActiveEpisode", testActiveEpisode},
		{"CloseIdempotent", testCloseIdempotent},
	}

	for _, tc := range suite {
		t.Run(tc.name, func(t *testing.T) {
			s := factory(t)
			t.Cleanup(func() { _ = s.Close(context.Background()) })
			tc.fn(t, s)
		})
	}
}

// tickDelta builds a minimal valid tick delta with a deterministic id and
// timestamp, offset i seconds from a fixed base.
func tickDelta(braidID string, i int) schema.Delta {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	d := schema.NewDelta(fmt.Sprintf("tick-%03d", i), braidID, schema.DeltaTick,
		schema.Provenance{Kind: schema.ProvenanceSystem}).
		WithTS(base.Add(time.Duration(i) * time.Second))
	return *d
}

func testAppendOrdering(t *testing.T, s episodic.Store) {
	ctx := context.Background()

	const n = 5
	for i := 0; i < n; i++ {
		require.NoError(t, s.AppendDelta(ctx, tickDelta(s.BraidID(), i)))
	}

	// A limit at or above the total returns everything, oldest first.
	all, err := s.RecentDeltas(ctx, n)
	require.NoError(t, err)
	require.Len(t, all, n)
	for i, d := range all {
		assert.Equal(t, fmt.Sprintf("tick-%03d", i), d.ID)
	}

	more, err := s.RecentDeltas(ctx, n*10)
	require.NoError(t, err)
	assert.Equal(t, deltaIDs(all), deltaIDs(more))

	// A smaller limit returns the most recent window, still oldest first.
	tail, err := s.RecentDeltas(ctx, 2)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, "tick-003", tail[0].ID)
	assert.Equal(t, "tick-004", tail[1].ID)
}

func testRecentDeltasLimits(t *testing.T, s episodic.Store) {
	ctx := context.Background()
	require.NoError(t, s.AppendDelta(ctx, tickDelta(s.BraidID(), 0)))

	for _, limit := range []int{0, -1, -100} {
		deltas, err := s.RecentDeltas(ctx, limit)
		require.NoError(t, err, "non-positive limit must not be an error")
		assert.Empty(t, deltas)

		knots, err := s.RecentKnots(ctx, limit)
		require.NoError(t, err)
		assert.Empty(t, knots)

		versions, err := s.RecentBeadVersions(ctx, "", limit)
		require.NoError(t, err)
		assert.Empty(t, versions)
	}
}

func testMessageScenario(t *testing.T, s episodic.Store) {
	ctx := context.Background()

	user, err := s.AppendMessageDelta(ctx, "user", "hello", schema.ProvenanceUser)
	require.NoError(t, err)
	asst, err := s.AppendMessageDelta(ctx, "assistant", "hi", schema.ProvenanceAssistant)
	require.NoError(t, err)

	assert.Equal(t, schema.DeltaMessage, user.Kind)
	assert.Equal(t, s.BraidID(), user.BraidID)
	assert.NotEmpty(t, user.ID)
	assert.NotEqual(t, user.ID, asst.ID)
	assert.Equal(t, episodic.MessageConfidenceDirect, user.Confidence)
	assert.Equal(t, episodic.MessageConfidenceInferred, asst.Confidence)

	one, err := s.RecentDeltas(ctx, 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, asst.ID, one[0].ID)
	assert.Equal(t, "hi", one[0].Payload["content"])

	two, err := s.RecentDeltas(ctx, 2)
	require.NoError(t, err)
	require.Len(t, two, 2)
	assert.Equal(t, user.ID, two[0].ID, "user delta must come first")
	assert.Equal(t, "user", two[0].Payload["role"])
	assert.Equal(t, "hello", two[0].Payload["content"])
	assert.Equal(t, asst.ID, two[1].ID)
}

func testToolDeltas(t *testing.T, s episodic.Store) {
	ctx := context.Background()

	call, err := s.AppendToolCallDelta(ctx, episodic.ToolCall{
		Tool:       "search",
		Args:       schema.Document{"query": "weather in lisbon"},
		Provenance: schema.ProvenanceAssistant,
		EpisodeID:  "ep-1",
	})
	require.NoError(t, err)
	assert.Equal(t, schema.DeltaToolCall, call.Kind)
	assert.Equal(t, episodic.ToolCallConfidence, call.Confidence)
	assert.Equal(t, "search", call.Provenance.Tool)
	assert.Equal(t, "ep-1", call.Provenance.EpisodeID)

	ok, err := s.AppendToolResultDelta(ctx, episodic.ToolResult{
		Tool:       "search",
		Result:     schema.Document{"status": "sunny"},
		OK:         true,
		Provenance: schema.ProvenanceTool,
	})
	require.NoError(t, err)
	assert.Equal(t, episodic.ToolResultConfidenceOK, ok.Confidence)

	failed, err := s.AppendToolResultDelta(ctx, episodic.ToolResult{
		Tool:       "search",
		Result:     schema.Document{"error": "timeout"},
		OK:         false,
		Provenance: schema.ProvenanceTool,
	})
	require.NoError(t, err)
	assert.Equal(t, episodic.ToolResultConfidenceFailed, failed.Confidence)

	recent, err := s.RecentDeltas(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)

	assert.Equal(t, "weather in lisbon", nestedDoc(t, recent[0].Payload, "args")["query"])
	assert.Equal(t, true, recent[1].Payload["ok"])
	assert.Equal(t, false, recent[2].Payload["ok"])
	assert.Equal(t, "timeout", nestedDoc(t, recent[2].Payload, "result")["error"])
}

func testDeltaFidelity(t *testing.T, s episodic.Store) {
	ctx := context.Background()

	ts := time.Date(2026, 3, 2, 9, 15, 30, 500000000, time.UTC)
	d := schema.NewDelta("obs-1", s.BraidID(), schema.DeltaObservation, schema.Provenance{
		Kind:   schema.ProvenancePerception,
		Source: "camera-2",
	}).
		WithTS(ts).
		WithConfidence(0.85).
		WithPayload(schema.Document{
			"object": "door",
			"bbox":   []any{float64(10), float64(20), float64(110), float64(220)},
			"nested": map[string]any{"lit": true},
		}).
		WithRefs(&schema.DeltaRefs{
			Beads: []schema.Document{{"bead_id": "vision", "role": "used"}},
			Knots: []string{"k-7"},
		}).
		WithTags("vision", "door")
	require.NoError(t, s.AppendDelta(ctx, *d))

	got, err := s.RecentDeltas(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)

	back := got[0]
	assert.Equal(t, d.ID, back.ID)
	assert.Equal(t, d.BraidID, back.BraidID)
	assert.Equal(t, d.Kind, back.Kind)
	assert.True(t, back.TS.Equal(ts), "timestamp must round-trip exactly")
	assert.Equal(t, d.Provenance, back.Provenance)
	assert.Equal(t, d.Confidence, back.Confidence)
	assert.Equal(t, d.Payload, back.Payload)
	require.NotNil(t, back.Refs)
	assert.Equal(t, *d.Refs, *back.Refs)
	assert.Equal(t, d.Tags, back.Tags)
}

func testBeadVersioning(t *testing.T, s episodic.Store) {
	ctx := context.Background()

	const k = 4
	var refs []schema.BeadRef
	for i := 0; i < k; i++ {
		ref, err := s.UpsertBeadVersion(ctx, "notes", schema.MemoryBead,
			schema.Document{"rev": float64(i)})
		require.NoError(t, err)
		assert.Equal(t, "notes", ref.BeadID)
		assert.Equal(t, schema.BeadRefRoleCreated, ref.Role)
		assert.NotEmpty(t, ref.BeadVersionID)
		refs = append(refs, ref)
	}

	versions, err := s.RecentBeadVersions(ctx, "", k*2)
	require.NoError(t, err)
	require.Len(t, versions, k, "k upserts must yield exactly k versions")

	// Oldest-to-newest within the window, matching upsert order.
	for i, v := range versions {
		assert.Equal(t, refs[i].BeadVersionID, v.ID)
		assert.Equal(t, "notes", v.BeadID)
		assert.Equal(t, schema.MemoryBead, v.Type)
		assert.Equal(t, schema.Document{"rev": float64(i)}, v.Data)
	}
}

func testBeadVersionValidation(t *testing.T, s episodic.Store) {
	ctx := context.Background()

	_, err := s.UpsertBeadVersion(ctx, "notes", "not_a_bead_type", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrInvalidEntity)

	_, err = s.UpsertBeadVersion(ctx, "", schema.MemoryBead, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrInvalidEntity)

	versions, err := s.RecentBeadVersions(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, versions, "rejected writes must leave no trace")
}

func testBeadVersionWindow(t *testing.T, s episodic.Store) {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.UpsertBeadVersion(ctx, "notes", schema.MemoryBead,
			schema.Document{"rev": float64(i)})
		require.NoError(t, err)
	}
	toolRef, err := s.UpsertBeadVersion(ctx, "wrench", schema.ToolBead,
		schema.Document{"spec": "v2"})
	require.NoError(t, err)

	// Type filter.
	tools, err := s.RecentBeadVersions(ctx, schema.ToolBead, 10)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, toolRef.BeadVersionID, tools[0].ID)

	// Window keeps the most recent, returned oldest first.
	window, err := s.RecentBeadVersions(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, schema.Document{"rev": float64(2)}, window[0].Data)
	assert.Equal(t, toolRef.BeadVersionID, window[1].ID)
}

func testReasoningSummaryBead(t *testing.T, s episodic.Store) {
	ctx := context.Background()

	first, err := s.UpsertReasoningSummaryBead(ctx, "user greeted us", schema.Document{
		"open_questions": []any{"why now"},
	})
	require.NoError(t, err)
	assert.Equal(t, episodic.ReasoningSummaryBeadID, first.BeadID)

	second, err := s.UpsertReasoningSummaryBead(ctx, "user asked about weather", nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.BeadVersionID, second.BeadVersionID)

	versions, err := s.RecentBeadVersions(ctx, schema.ReasoningBead, 10)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "user greeted us", versions[0].Data["narrative"])
	assert.Equal(t, "user asked about weather", versions[1].Data["narrative"])
}

func testCommitKnotPermissive(t *testing.T, s episodic.Store) {
	ctx := context.Background()

	// No deltas with these ids exist; the store persists the knot anyway.
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Minute)
	knot, err := s.CommitKnot(ctx, episodic.KnotCommit{
		PrimaryEpisodeID: "ep-1",
		StartDeltaID:     "ghost-1",
		EndDeltaID:       "ghost-9",
		StartTS:          start,
		EndTS:            end,
		Summary:          "a span that never was",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, knot.ID)
	assert.Equal(t, s.BraidID(), knot.BraidID)
	assert.Equal(t, "ghost-1", knot.DeltaRange.StartDeltaID)
	assert.Equal(t, "ghost-9", knot.DeltaRange.EndDeltaID)

	got, err := s.RecentKnots(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, knot.ID, got[0].ID)
}

func testKnotOrdering(t *testing.T, s episodic.Store) {
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		knot, err := s.CommitKnot(ctx, episodic.KnotCommit{
			KnotID:           fmt.Sprintf("knot-%d", i),
			PrimaryEpisodeID: "ep-1",
			StartDeltaID:     fmt.Sprintf("d-%d0", i),
			EndDeltaID:       fmt.Sprintf("d-%d9", i),
			StartTS:          base.Add(time.Duration(i) * time.Minute),
			EndTS:            base.Add(time.Duration(i+1) * time.Minute),
			Summary:          fmt.Sprintf("span %d", i),
		})
		require.NoError(t, err)
		ids = append(ids, knot.ID)
	}

	all, err := s.RecentKnots(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, k := range all {
		assert.Equal(t, ids[i], k.ID, "knots must come back in commit order")
	}

	tail, err := s.RecentKnots(ctx, 2)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, ids[1], tail[0].ID)
	assert.Equal(t, ids[2], tail[1].ID)
}

func testKnotFidelity(t *testing.T, s episodic.Store) {
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 10, 0, 0, 250000000, time.UTC)
	end := start.Add(90 * time.Second)
	commit := episodic.KnotCommit{
		KnotID:           "knot-full",
		PrimaryEpisodeID: "ep-1",
		StartDeltaID:     "d-1",
		EndDeltaID:       "d-9",
		StartTS:          start,
		EndTS:            end,
		Summary:          "user planned a trip",
		ThoughtSummaryBeadRef: &schema.BeadRef{
			BeadID:        episodic.ReasoningSummaryBeadID,
			BeadVersionID: "v-1",
			Role:          schema.BeadRefRoleCreated,
		},
		ArrivalsDuring: []string{"d-10", "d-11"},
		InboxWatermark: schema.Document{"cursor": "d-9"},
		PlannedTools:   []schema.Document{{"tool": "forecast"}},
		ExecutedTools:  []schema.Document{{"tool": "forecast", "ok": true}},
		Hypotheses:     []schema.Document{{"text": "trip to lisbon", "confidence": 0.6}},
		Metrics:        schema.Document{"deltas_summarized": float64(9)},
	}
	committed, err := s.CommitKnot(ctx, commit)
	require.NoError(t, err)
	assert.Equal(t, "knot-full", committed.ID)

	got, err := s.RecentKnots(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)

	back := got[0]
	assert.Equal(t, committed.ID, back.ID)
	assert.Equal(t, "ep-1", back.PrimaryEpisodeID)
	assert.True(t, back.StartTS.Equal(start))
	assert.True(t, back.EndTS.Equal(end))
	assert.Equal(t, committed.DeltaRange, back.DeltaRange)
	assert.Equal(t, "user planned a trip", back.Summary)
	require.NotNil(t, back.ThoughtSummaryBeadRef)
	assert.Equal(t, *commit.ThoughtSummaryBeadRef, *back.ThoughtSummaryBeadRef)
	assert.Equal(t, commit.ArrivalsDuring, back.ArrivalsDuring)
	assert.Equal(t, commit.InboxWatermark, back.InboxWatermark)
	assert.Equal(t, commit.PlannedTools, back.PlannedTools)
	assert.Equal(t, commit.ExecutedTools, back.ExecutedTools)
	assert.Equal(t, commit.Hypotheses, back.Hypotheses)
	assert.Equal(t, commit.Metrics, back.Metrics)
}

func testEpisodeUpsertAndGet(t *testing.T, s episodic.Store) {
	ctx := context.Background()

	missing, err := s.GetEpisode(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing, "absent episode must be nil, not an error")

	ep := schema.NewEpisode("ep-1", s.BraidID()).
		WithKnotRefs("k-1", "k-2")
	ep.Labels["topics"] = []any{"travel"}
	ep.PrimaryKnotSpan = map[string]string{"start_knot_id": "k-1", "end_knot_id": "k-2"}
	ep.SummaryCache = schema.Document{"text": "planning a trip"}
	ep.AnchorQuotes = []schema.Document{{"quote": "let's go", "delta_id": "d-4"}}
	require.NoError(t, s.UpsertEpisode(ctx, *ep))

	got, err := s.GetEpisode(ctx, "ep-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ep.ID, got.ID)
	assert.Equal(t, ep.BraidID, got.BraidID)
	assert.Equal(t, schema.EpisodeActive, got.State)
	assert.Equal(t, ep.Labels, got.Labels)
	assert.Equal(t, ep.PrimaryKnotSpan, got.PrimaryKnotSpan)
	assert.Equal(t, ep.KnotRefs, got.KnotRefs)
	assert.Equal(t, ep.SummaryCache, got.SummaryCache)
	assert.Equal(t, ep.AnchorQuotes, got.AnchorQuotes)

	// Upsert fully replaces scalars.
	ep.State = schema.EpisodeDormant
	ep.SummaryCache = schema.Document{"text": "trip planned"}
	require.NoError(t, s.UpsertEpisode(ctx, *ep))

	got, err = s.GetEpisode(ctx, "ep-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, schema.EpisodeDormant, got.State)
	assert.Equal(t, schema.Document{"text": "trip planned"}, got.SummaryCache)
}

func testEpisodeEdgeReplacement(t *testing.T, s episodic.Store) {
	ctx := context.Background()

	e1 := []schema.EpisodeEdge{
		{Type: schema.EdgeForkedFrom, ToEpisodeID: "ep-0", Confidence: 0.9},
		{Type: schema.EdgeRelatedTo, ToEpisodeID: "ep-2", Confidence: 0.5},
	}
	ep := schema.NewEpisode("ep-1", s.BraidID()).WithEdges(e1...)
	require.NoError(t, s.UpsertEpisode(ctx, *ep))

	got, err := s.GetEpisode(ctx, "ep-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.ElementsMatch(t, e1, got.Edges)

	// Upserting with a smaller edge set removes the missing edges.
	e2 := []schema.EpisodeEdge{
		{Type: schema.EdgeDependsOn, ToEpisodeID: "ep-3", Confidence: 0.7},
	}
	ep.Edges = e2
	require.NoError(t, s.UpsertEpisode(ctx, *ep))

	got, err = s.GetEpisode(ctx, "ep-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.ElementsMatch(t, e2, got.Edges)

	// And an empty set clears them entirely.
	ep.Edges = nil
	require.NoError(t, s.UpsertEpisode(ctx, *ep))

	got, err = s.GetEpisode(ctx, "ep-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.Edges)
}

func testEpisodeListing(t *testing.T, s episodic.Store) {
	ctx := context.Background()

	states := []schema.EpisodeState{
		schema.EpisodeClosed, schema.EpisodeClosed, schema.EpisodeActive,
	}
	for i, st := range states {
		ep := schema.NewEpisode(fmt.Sprintf("ep-%d", i), s.BraidID())
		ep.State = st
		require.NoError(t, s.UpsertEpisode(ctx, *ep))
	}

	all, err := s.ListEpisodes(ctx, "", 50)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "ep-0", all[0].ID, "episodes list oldest first")
	assert.Equal(t, "ep-2", all[2].ID)

	closed, err := s.ListEpisodes(ctx, schema.EpisodeClosed, 50)
	require.NoError(t, err)
	require.Len(t, closed, 2)

	window, err := s.ListEpisodes(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "ep-1", window[0].ID)

	none, err := s.ListEpisodes(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testActiveEpisode(t *testing.T, s episodic.Store) {
	ctx := context.Background()

	active, err := s.ActiveEpisode(ctx)
	require.NoError(t, err)
	assert.Nil(t, active, "no active episode until one is set")

	ep := schema.NewEpisode("ep-1", s.BraidID())
	require.NoError(t, s.UpsertEpisode(ctx, *ep))
	require.NoError(t, s.SetActiveEpisodeID(ctx, "ep-1"))

	active, err = s.ActiveEpisode(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "ep-1", active.ID)
}

func testCloseIdempotent(t *testing.T, s episodic.Store) {
	ctx := context.Background()
	require.NoError(t, s.Close(ctx))
	require.NoError(t, s.Close(ctx), "Close must be idempotent")
}

func deltaIDs(deltas []schema.Delta) []string {
	out := make([]string, len(deltas))
	for i, d := range deltas {
		out[i] = d.ID
	}
	return out
}

// nestedDoc extracts a nested object from a payload, tolerating both
// Document and map[string]any representations.
func nestedDoc(t *testing.T, payload schema.Document, key string) map[string]any {
	t.Helper()
	switch v := payload[key].(type) {
	case map[string]any:
		return v
	case schema.Document:
		return v
	default:
		t.Fatalf("payload[%q] is %T, want an object", key, payload[key])
		return nil
	}
}
