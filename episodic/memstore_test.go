package episodic_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elyra-labs/lmm/episodic"
	"github.com/elyra-labs/lmm/episodic/storetest"
	"github.com/elyra-labs/lmm/schema"
)

func TestMemoryStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) episodic.Store {
		return episodic.NewMemoryStore("braid-conformance")
	})
}

func TestMemoryStoreDeterministicOptions(t *testing.T) {
	var tick int
	clock := func() time.Time {
		tick++
		return time.Date(2026, 3, 1, 10, 0, tick, 0, time.UTC)
	}
	var seq int
	ids := func() string {
		seq++
		return fmt.Sprintf("id-%03d", seq)
	}

	s := episodic.NewMemoryStore("braid-1",
		episodic.WithClock(clock),
		episodic.WithIDGenerator(ids),
	)
	ctx := context.Background()

	d, err := s.AppendMessageDelta(ctx, "user", "hello", schema.ProvenanceUser)
	require.NoError(t, err)
	assert.Equal(t, "id-001", d.ID)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 1, 0, time.UTC), d.TS)

	ref, err := s.UpsertBeadVersion(ctx, "notes", schema.MemoryBead, schema.Document{"a": float64(1)})
	require.NoError(t, err)
	assert.Equal(t, "id-002", ref.BeadVersionID)

	knot, err := s.CommitKnot(ctx, episodic.KnotCommit{
		PrimaryEpisodeID: "ep-1",
		StartDeltaID:     d.ID,
		EndDeltaID:       d.ID,
		StartTS:          d.TS,
		EndTS:            d.TS,
		Summary:          "greeting",
	})
	require.NoError(t, err)
	assert.Equal(t, "id-003", knot.ID, "knot id comes from the generator when the commit omits one")

	require.Len(t, s.Knots(), 1)
	assert.Equal(t, "id-003", s.Knots()[0].ID)
}

func TestMemoryStoreValidatesBeforeWrite(t *testing.T) {
	s := episodic.NewMemoryStore("braid-1")
	ctx := context.Background()

	bad := schema.NewDelta("d-1", "braid-1", schema.DeltaMessage,
		schema.Provenance{Kind: schema.ProvenanceUser}).
		WithConfidence(1.5)
	err := s.AppendDelta(ctx, *bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrInvalidEntity)

	deltas, err := s.RecentDeltas(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, deltas, "rejected writes must leave no trace")

	ep := schema.NewEpisode("ep-1", "braid-1").
		WithEdges(schema.EpisodeEdge{Type: "bogus", ToEpisodeID: "ep-2", Confidence: 0.5})
	err = s.UpsertEpisode(ctx, *ep)
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrInvalidEntity)
}

func TestMemoryStoreRejectsMismatchedBraid(t *testing.T) {
	s := episodic.NewMemoryStore("braid-1")
	ctx := context.Background()

	d := schema.NewDelta("d-1", "other-braid", schema.DeltaTick,
		schema.Provenance{Kind: schema.ProvenanceSystem})
	err := s.AppendDelta(ctx, *d)
	require.Error(t, err)

	ep := schema.NewEpisode("ep-1", "other-braid")
	err = s.UpsertEpisode(ctx, *ep)
	require.Error(t, err)
}

func TestMemoryStoreContextCancellation(t *testing.T) {
	s := episodic.NewMemoryStore("braid-1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.AppendMessageDelta(ctx, "user", "hello", schema.ProvenanceUser)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = s.RecentDeltas(ctx, 10)
	assert.ErrorIs(t, err, context.Canceled)

	err = s.UpsertEpisode(ctx, *schema.NewEpisode("ep-1", "braid-1"))
	assert.ErrorIs(t, err, context.Canceled)

	// Cancellation applies even when no active episode is set.
	_, err = s.ActiveEpisode(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStoreReadIsolation(t *testing.T) {
	s := episodic.NewMemoryStore("braid-1")
	ctx := context.Background()

	_, err := s.AppendToolCallDelta(ctx, episodic.ToolCall{
		Tool:       "search",
		Args:       schema.Document{"query": "original"},
		Provenance: schema.ProvenanceAssistant,
	})
	require.NoError(t, err)

	first, err := s.RecentDeltas(ctx, 1)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Mutating a returned delta must not leak into subsequent reads.
	first[0].Payload["tool"] = "tampered"
	if args, ok := first[0].Payload["args"].(map[string]any); ok {
		args["query"] = "tampered"
	}

	second, err := s.RecentDeltas(ctx, 1)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "search", second[0].Payload["tool"])
}

func TestMemoryStoreWriteIsolation(t *testing.T) {
	s := episodic.NewMemoryStore("braid-1")
	ctx := context.Background()

	ep := schema.NewEpisode("ep-1", "braid-1")
	ep.Labels["topics"] = []any{"travel"}
	require.NoError(t, s.UpsertEpisode(ctx, *ep))

	// The caller's copy is independent of the stored one.
	ep.Labels["topics"] = []any{"tampered"}

	got, err := s.GetEpisode(ctx, "ep-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []any{"travel"}, got.Labels["topics"])
}

func TestMemoryStoreDuplicateDeltaID(t *testing.T) {
	s := episodic.NewMemoryStore("braid-1")
	ctx := context.Background()

	d := schema.NewDelta("d-1", "braid-1", schema.DeltaTick,
		schema.Provenance{Kind: schema.ProvenanceSystem})
	require.NoError(t, s.AppendDelta(ctx, *d))

	err := s.AppendDelta(ctx, *d)
	require.Error(t, err, "the log is append-only; ids never repeat")
	assert.ErrorIs(t, err, schema.ErrInvalidEntity)

	// The rejected append must not have touched the log.
	require.Len(t, s.Deltas(), 1)
	assert.Equal(t, "d-1", s.Deltas()[0].ID)
}

func TestMemoryStoreJSONNormalization(t *testing.T) {
	s := episodic.NewMemoryStore("braid-1")
	ctx := context.Background()

	d := schema.NewDelta("d-1", "braid-1", schema.DeltaObservation,
		schema.Provenance{Kind: schema.ProvenancePerception}).
		WithPayload(schema.Document{"count": 3, "ratio": float32(0.5)})
	require.NoError(t, s.AppendDelta(ctx, *d))

	got, err := s.RecentDeltas(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)

	// Reads present numbers the way a JSON-backed store would.
	assert.Equal(t, float64(3), got[0].Payload["count"])
	assert.Equal(t, float64(0.5), got[0].Payload["ratio"])
}

func TestMemoryStoreDanglingActiveEpisode(t *testing.T) {
	s := episodic.NewMemoryStore("braid-1")
	ctx := context.Background()

	// The active pointer is not checked against the episode set; a pointer
	// to an episode that was never upserted resolves to nil.
	require.NoError(t, s.SetActiveEpisodeID(ctx, "never-upserted"))

	active, err := s.ActiveEpisode(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)
}
