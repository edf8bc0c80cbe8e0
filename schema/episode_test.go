package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEpisode(t *testing.T) {
	ep := NewEpisode("ep1", "b1")

	assert.Equal(t, EpisodeActive, ep.State)
	require.NotNil(t, ep.Labels)
	assert.Contains(t, ep.Labels, "topics")
	assert.Contains(t, ep.Labels, "intents")
	assert.Contains(t, ep.Labels, "modalities")
	assert.NoError(t, ep.Validate())
}

func TestDefaultLabels_NotShared(t *testing.T) {
	a := NewEpisode("ep1", "b1")
	b := NewEpisode("ep2", "b1")

	a.Labels["topics"] = []any{"cooking"}
	assert.Empty(t, b.Labels["topics"], "label maps must not be shared across instances")
}

func TestEpisodeEdge_Validate(t *testing.T) {
	tests := []struct {
		name    string
		edge    EpisodeEdge
		wantErr bool
	}{
		{"valid", NewEpisodeEdge(EdgeRelatedTo, "ep2"), false},
		{"all edge types", EpisodeEdge{Type: EdgeDependsOn, ToEpisodeID: "ep2", Confidence: 1.0}, false},
		{"unknown type", EpisodeEdge{Type: "friends_with", ToEpisodeID: "ep2", Confidence: 0.5}, true},
		{"missing target", EpisodeEdge{Type: EdgeSoftLink, Confidence: 0.5}, true},
		{"confidence too high", EpisodeEdge{Type: EdgeSoftLink, ToEpisodeID: "ep2", Confidence: 1.5}, true},
		{"confidence negative", EpisodeEdge{Type: EdgeSoftLink, ToEpisodeID: "ep2", Confidence: -0.5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.edge.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEpisode_ValidateRejectsBadEdge(t *testing.T) {
	ep := NewEpisode("ep1", "b1").WithEdges(
		NewEpisodeEdge(EdgeForkedFrom, "ep0"),
		EpisodeEdge{Type: EdgeContradicts, ToEpisodeID: "ep2", Confidence: 2.0},
	)
	assert.Error(t, ep.Validate())
}

func TestEpisode_ValidateState(t *testing.T) {
	ep := NewEpisode("ep1", "b1")
	ep.State = EpisodeState("paused")
	assert.Error(t, ep.Validate())

	for _, s := range []EpisodeState{EpisodeActive, EpisodeDormant, EpisodeClosed} {
		ep.State = s
		assert.NoError(t, ep.Validate())
	}
}

func TestEpisode_Clone(t *testing.T) {
	ep := NewEpisode("ep1", "b1").
		WithKnotRefs("k1", "k2").
		WithEdges(NewEpisodeEdge(EdgeRelatedTo, "ep2"))
	ep.PrimaryKnotSpan = map[string]string{"start_knot_id": "k1", "end_knot_id": "k2"}
	ep.SummaryCache = Document{"text": "a thread"}

	clone := ep.Clone()
	clone.KnotRefs[0] = "kX"
	clone.Edges[0].ToEpisodeID = "epX"
	clone.PrimaryKnotSpan["start_knot_id"] = "kX"
	clone.SummaryCache["text"] = "changed"

	assert.Equal(t, "k1", ep.KnotRefs[0])
	assert.Equal(t, "ep2", ep.Edges[0].ToEpisodeID)
	assert.Equal(t, "k1", ep.PrimaryKnotSpan["start_knot_id"])
	assert.Equal(t, "a thread", ep.SummaryCache["text"])
}
