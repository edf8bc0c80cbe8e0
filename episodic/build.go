package episodic

import (
	"time"

	"github.com/elyra-labs/lmm/schema"
)

// The Build* helpers construct the schema-valid deltas behind the
// convenience appenders. Both backends share them so that the constructed
// payload shapes and default confidences cannot drift apart.

// BuildMessageDelta constructs a message delta with payload {role, content}.
func BuildMessageDelta(id, braidID string, ts time.Time, role, content string, prov schema.ProvenanceKind) schema.Delta {
	d := schema.NewDelta(id, braidID, schema.DeltaMessage, schema.Provenance{Kind: prov}).
		WithTS(ts).
		WithConfidence(MessageConfidence(prov)).
		WithPayload(schema.Document{
			"role":    role,
			"content": content,
		})
	return *d
}

// BuildToolCallDelta constructs a tool_call delta. The payload always
// carries the microagent/tool bead ref keys, nil when absent.
func BuildToolCallDelta(id, braidID string, ts time.Time, call ToolCall) schema.Delta {
	d := schema.NewDelta(id, braidID, schema.DeltaToolCall, schema.Provenance{
		Kind:      call.Provenance,
		Tool:      call.Tool,
		EpisodeID: call.EpisodeID,
		KnotID:    call.KnotID,
	}).
		WithTS(ts).
		WithConfidence(ToolCallConfidence).
		WithPayload(schema.Document{
			"tool":                call.Tool,
			"args":                call.Args,
			"microagent_bead_ref": call.MicroagentBeadRef,
			"tool_bead_ref":       call.ToolBeadRef,
		})
	return *d
}

// BuildToolResultDelta constructs a tool_result delta; confidence depends
// on the OK flag.
func BuildToolResultDelta(id, braidID string, ts time.Time, res ToolResult) schema.Delta {
	d := schema.NewDelta(id, braidID, schema.DeltaToolResult, schema.Provenance{
		Kind:      res.Provenance,
		Tool:      res.Tool,
		EpisodeID: res.EpisodeID,
		KnotID:    res.KnotID,
	}).
		WithTS(ts).
		WithConfidence(ToolResultConfidence(res.OK)).
		WithPayload(schema.Document{
			"tool":                res.Tool,
			"ok":                  res.OK,
			"result":              res.Result,
			"microagent_bead_ref": res.MicroagentBeadRef,
			"tool_bead_ref":       res.ToolBeadRef,
		})
	return *d
}

// BuildKnot constructs the knot a CommitKnot call appends. The id is used
// when commit.KnotID is empty.
func BuildKnot(id, braidID string, commit KnotCommit) schema.Knot {
	knotID := commit.KnotID
	if knotID == "" {
		knotID = id
	}
	return schema.Knot{
		ID:               knotID,
		BraidID:          braidID,
		PrimaryEpisodeID: commit.PrimaryEpisodeID,
		StartTS:          commit.StartTS,
		EndTS:            commit.EndTS,
		DeltaRange: schema.DeltaRange{
			StartDeltaID: commit.StartDeltaID,
			EndDeltaID:   commit.EndDeltaID,
		},
		InboxWatermark:        commit.InboxWatermark,
		ArrivalsDuring:        commit.ArrivalsDuring,
		Summary:               commit.Summary,
		ThoughtSummaryBeadRef: commit.ThoughtSummaryBeadRef,
		PlannedTools:          commit.PlannedTools,
		ExecutedTools:         commit.ExecutedTools,
		Hypotheses:            commit.Hypotheses,
		Metrics:               commit.Metrics,
	}
}
