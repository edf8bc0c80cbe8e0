package schema

import "time"

// DeltaRange is the inclusive delta-id span a knot summarizes.
type DeltaRange struct {
	// StartDeltaID is the first delta in the span.
	StartDeltaID string `json:"start_delta_id"`

	// EndDeltaID is the last delta in the span.
	EndDeltaID string `json:"end_delta_id"`
}

// Knot is an immutable summary sealing a contiguous span of deltas.
// Knots are appended in creation order and never edited.
type Knot struct {
	// ID is the unique knot identifier.
	ID string `json:"id"`

	// BraidID is the owning braid id.
	BraidID string `json:"braid_id"`

	// PrimaryEpisodeID is the episode this knot primarily belongs to.
	PrimaryEpisodeID string `json:"primary_episode_id"`

	// StartTS and EndTS bound the summarized span in time.
	StartTS time.Time `json:"start_ts"`
	EndTS   time.Time `json:"end_ts"`

	// DeltaRange is the inclusive delta-id span summarized. The referenced
	// deltas are expected to exist in the same braid; the store does not
	// enforce this (caller contract).
	DeltaRange DeltaRange `json:"delta_range"`

	// InboxWatermark records consumption state at commit time. Map-typed
	// fields carry no omitempty: empty and absent are distinct values.
	InboxWatermark Document `json:"inbox_watermark"`

	// ArrivalsDuring lists delta ids that arrived concurrently with the
	// commit.
	ArrivalsDuring []string `json:"arrivals_during,omitempty"`

	// Summary is the narrative summary text.
	Summary string `json:"summary"`

	// ThoughtSummaryBeadRef optionally points at the thought-summary bead
	// version produced alongside the knot.
	ThoughtSummaryBeadRef *BeadRef `json:"thought_summary_bead_ref,omitempty"`

	// PlannedTools and ExecutedTools record tool invocations planned and
	// performed during summarization.
	PlannedTools  []Document `json:"planned_tools,omitempty"`
	ExecutedTools []Document `json:"executed_tools,omitempty"`

	// Hypotheses carries auxiliary hypotheses raised while summarizing.
	Hypotheses []Document `json:"hypotheses,omitempty"`

	// Metrics carries auxiliary summarization metrics.
	Metrics Document `json:"metrics"`
}

// Validate checks the knot's identity fields.
func (k *Knot) Validate() error {
	if k.ID == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if k.BraidID == "" {
		return &ValidationError{Field: "braid_id", Reason: "must not be empty"}
	}
	return nil
}

// Clone creates a deep copy of the knot.
func (k *Knot) Clone() Knot {
	out := *k
	out.InboxWatermark = k.InboxWatermark.Clone()
	out.ArrivalsDuring = cloneStrings(k.ArrivalsDuring)
	out.PlannedTools = cloneDocuments(k.PlannedTools)
	out.ExecutedTools = cloneDocuments(k.ExecutedTools)
	out.Hypotheses = cloneDocuments(k.Hypotheses)
	out.Metrics = k.Metrics.Clone()
	if k.ThoughtSummaryBeadRef != nil {
		ref := *k.ThoughtSummaryBeadRef
		out.ThoughtSummaryBeadRef = &ref
	}
	return out
}
