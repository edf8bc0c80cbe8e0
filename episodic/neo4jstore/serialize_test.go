package neo4jstore

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elyra-labs/lmm/schema"
)

func TestTimestampFormatSortsLexicographically(t *testing.T) {
	// The recency queries ORDER BY stored timestamp strings; the format
	// must keep string order identical to instant order even when the
	// nanosecond fraction would normally be trimmed.
	instants := []time.Time{
		time.Date(2026, 3, 1, 10, 0, 0, 120000000, time.UTC),
		time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 1, 10, 0, 0, 100000000, time.UTC),
		time.Date(2026, 3, 1, 10, 0, 0, 20000000, time.UTC),
		time.Date(2026, 3, 1, 9, 59, 59, 999999999, time.UTC),
	}

	formatted := make([]string, len(instants))
	for i, ts := range instants {
		formatted[i] = formatTS(ts)
	}
	sort.Strings(formatted)

	sort.Slice(instants, func(i, j int) bool { return instants[i].Before(instants[j]) })
	for i, ts := range instants {
		assert.Equal(t, formatTS(ts), formatted[i])
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.UTC)
	back, err := parseTS(formatTS(ts))
	require.NoError(t, err)
	assert.True(t, back.Equal(ts))

	// Non-UTC inputs are normalized to UTC on write.
	loc := time.FixedZone("CET", 3600)
	local := time.Date(2026, 3, 1, 11, 0, 0, 0, loc)
	back, err = parseTS(formatTS(local))
	require.NoError(t, err)
	assert.True(t, back.Equal(local))
	assert.Equal(t, time.UTC, back.Location())

	zero, err := parseTS("")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = parseTS("not-a-timestamp")
	require.Error(t, err)
}

func TestDeltaPropsRoundTrip(t *testing.T) {
	d := schema.NewDelta("d-1", "braid-1", schema.DeltaObservation, schema.Provenance{
		Kind:   schema.ProvenancePerception,
		Source: "camera-2",
	}).
		WithTS(time.Date(2026, 3, 1, 10, 0, 0, 500000000, time.UTC)).
		WithConfidence(0.85).
		WithPayload(schema.Document{
			"object": "door",
			"nested": map[string]any{"lit": true},
		}).
		WithRefs(&schema.DeltaRefs{
			Beads: []schema.Document{{"bead_id": "vision", "role": "used"}},
			Knots: []string{"k-7"},
		}).
		WithTags("vision")

	props, err := deltaToProps(d)
	require.NoError(t, err)
	assert.Equal(t, "d-1", props["id"])
	assert.Equal(t, "observation", props["kind"])
	assert.Equal(t, 0.85, props["confidence"])

	back, err := deltaFromProps(props)
	require.NoError(t, err)
	assert.Equal(t, d.ID, back.ID)
	assert.Equal(t, d.Kind, back.Kind)
	assert.True(t, back.TS.Equal(d.TS))
	assert.Equal(t, d.Provenance, back.Provenance)
	assert.Equal(t, d.Payload, back.Payload)
	require.NotNil(t, back.Refs)
	assert.Equal(t, *d.Refs, *back.Refs)
	assert.Equal(t, d.Tags, back.Tags)
}

func TestDeltaPropsAbsentStructures(t *testing.T) {
	d := schema.NewDelta("d-1", "braid-1", schema.DeltaTick,
		schema.Provenance{Kind: schema.ProvenanceSystem})

	props, err := deltaToProps(d)
	require.NoError(t, err)
	assert.Equal(t, "null", props["refs_json"], "absent refs encode as JSON null")
	assert.Equal(t, "null", props["tags_json"])

	back, err := deltaFromProps(props)
	require.NoError(t, err)
	assert.Nil(t, back.Refs)
	assert.Nil(t, back.Tags)
	assert.Equal(t, schema.Document{}, back.Payload, "the empty default payload stays non-nil")
}

func TestKnotPropsRoundTrip(t *testing.T) {
	k := schema.Knot{
		ID:               "knot-1",
		BraidID:          "braid-1",
		PrimaryEpisodeID: "ep-1",
		StartTS:          time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		EndTS:            time.Date(2026, 3, 1, 10, 1, 30, 0, time.UTC),
		DeltaRange:       schema.DeltaRange{StartDeltaID: "d-1", EndDeltaID: "d-9"},
		InboxWatermark:   schema.Document{"cursor": "d-9"},
		ArrivalsDuring:   []string{"d-10"},
		Summary:          "user planned a trip",
		ThoughtSummaryBeadRef: &schema.BeadRef{
			BeadID:        "reasoning-summary",
			BeadVersionID: "v-1",
			Role:          schema.BeadRefRoleCreated,
		},
		Hypotheses: []schema.Document{{"text": "trip to lisbon", "confidence": 0.6}},
		Metrics:    schema.Document{"deltas_summarized": float64(9)},
	}

	props, err := knotToProps(&k)
	require.NoError(t, err)

	back, err := knotFromProps(props)
	require.NoError(t, err)
	assert.Equal(t, k.ID, back.ID)
	assert.Equal(t, k.DeltaRange, back.DeltaRange)
	assert.True(t, back.StartTS.Equal(k.StartTS))
	assert.True(t, back.EndTS.Equal(k.EndTS))
	assert.Equal(t, k.InboxWatermark, back.InboxWatermark)
	assert.Equal(t, k.ArrivalsDuring, back.ArrivalsDuring)
	assert.Equal(t, k.Summary, back.Summary)
	require.NotNil(t, back.ThoughtSummaryBeadRef)
	assert.Equal(t, *k.ThoughtSummaryBeadRef, *back.ThoughtSummaryBeadRef)
	assert.Equal(t, k.Hypotheses, back.Hypotheses)
	assert.Equal(t, k.Metrics, back.Metrics)
	assert.Nil(t, back.PlannedTools)
}

func TestEpisodePropsRoundTrip(t *testing.T) {
	ep := schema.NewEpisode("ep-1", "braid-1").WithKnotRefs("k-1", "k-2")
	ep.Labels["topics"] = []any{"travel"}
	ep.PrimaryKnotSpan = map[string]string{"start_knot_id": "k-1", "end_knot_id": "k-2"}
	ep.SummaryCache = schema.Document{"text": "planning a trip"}
	ep.AnchorQuotes = []schema.Document{{"quote": "let's go", "delta_id": "d-4"}}

	props, err := episodeToProps(ep)
	require.NoError(t, err)
	assert.Equal(t, "active", props["state"])

	// Identity comes from the node, not the property map.
	props["id"] = ep.ID
	props["braid_id"] = ep.BraidID

	back, err := episodeFromProps(props)
	require.NoError(t, err)
	assert.Equal(t, ep.ID, back.ID)
	assert.Equal(t, ep.State, back.State)
	assert.Equal(t, ep.Labels, back.Labels)
	assert.Equal(t, ep.PrimaryKnotSpan, back.PrimaryKnotSpan)
	assert.Equal(t, ep.KnotRefs, back.KnotRefs)
	assert.Equal(t, ep.SummaryCache, back.SummaryCache)
	assert.Equal(t, ep.AnchorQuotes, back.AnchorQuotes)
	assert.Empty(t, back.Edges, "edges are not node properties")
}

func TestEdgeFromRow(t *testing.T) {
	edge, ok := edgeFromRow(map[string]any{
		"type":       "forked_from",
		"confidence": 0.9,
		"to":         "ep-0",
	})
	require.True(t, ok)
	assert.Equal(t, schema.EdgeForkedFrom, edge.Type)
	assert.Equal(t, "ep-0", edge.ToEpisodeID)
	assert.Equal(t, 0.9, edge.Confidence)

	// Integer confidence comes back as int64 from the driver.
	edge, ok = edgeFromRow(map[string]any{
		"type":       "related_to",
		"confidence": int64(1),
		"to":         "ep-2",
	})
	require.True(t, ok)
	assert.Equal(t, 1.0, edge.Confidence)

	// A row produced by an empty OPTIONAL MATCH has null fields.
	_, ok = edgeFromRow(map[string]any{"type": nil, "confidence": nil, "to": nil})
	assert.False(t, ok)
}
