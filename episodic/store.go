package episodic

import (
	"context"
	"time"

	"github.com/elyra-labs/lmm/schema"
)

// ReasoningSummaryBeadID is the fixed bead id reserved for the rolling
// reasoning summary written by UpsertReasoningSummaryBead.
const ReasoningSummaryBeadID = "reasoning-summary"

// Default confidences assigned by the convenience appenders.
const (
	// MessageConfidenceDirect is used for message deltas with user or
	// tool provenance.
	MessageConfidenceDirect = 0.7

	// MessageConfidenceInferred is used for message deltas with any
	// other provenance.
	MessageConfidenceInferred = 0.6

	// ToolCallConfidence is the fixed confidence of tool_call deltas.
	ToolCallConfidence = 0.6

	// ToolResultConfidenceOK / ToolResultConfidenceFailed are assigned
	// to tool_result deltas depending on the outcome.
	ToolResultConfidenceOK     = 0.7
	ToolResultConfidenceFailed = 0.4
)

// ToolCall describes a tool invocation to be recorded as a tool_call delta.
type ToolCall struct {
	// Tool is the invoked tool's name.
	Tool string

	// Args are the invocation arguments.
	Args schema.Document

	// Provenance classifies who initiated the call.
	Provenance schema.ProvenanceKind

	// EpisodeID / KnotID optionally link to the episode and knot active
	// when the call was made.
	EpisodeID string
	KnotID    string

	// MicroagentBeadRef / ToolBeadRef optionally reference the microagent
	// and tool beads involved.
	MicroagentBeadRef schema.Document
	ToolBeadRef       schema.Document
}

// ToolResult describes a tool outcome to be recorded as a tool_result delta.
type ToolResult struct {
	// Tool is the tool that produced the result.
	Tool string

	// Result is the tool's output.
	Result schema.Document

	// OK reports whether the invocation succeeded.
	OK bool

	// Provenance classifies the result's origin.
	Provenance schema.ProvenanceKind

	// EpisodeID / KnotID optionally link to the active episode and knot.
	EpisodeID string
	KnotID    string

	// MicroagentBeadRef / ToolBeadRef optionally reference the microagent
	// and tool beads involved.
	MicroagentBeadRef schema.Document
	ToolBeadRef       schema.Document
}

// KnotCommit carries the fields for sealing a span of deltas into a knot.
// StartDeltaID/EndDeltaID existence is the caller's contract: the store
// persists the knot regardless.
type KnotCommit struct {
	// PrimaryEpisodeID is the episode the knot primarily belongs to.
	PrimaryEpisodeID string

	// StartDeltaID / EndDeltaID bound the summarized span (inclusive).
	StartDeltaID string
	EndDeltaID   string

	// StartTS / EndTS bound the span in time.
	StartTS time.Time
	EndTS   time.Time

	// Summary is the narrative summary text.
	Summary string

	// KnotID optionally fixes the knot id; generated when empty.
	KnotID string

	// ThoughtSummaryBeadRef optionally points at the thought-summary
	// bead version produced alongside the commit.
	ThoughtSummaryBeadRef *schema.BeadRef

	// ArrivalsDuring lists delta ids that arrived concurrently with
	// the commit.
	ArrivalsDuring []string

	// InboxWatermark records consumption state at commit time.
	InboxWatermark schema.Document

	// PlannedTools / ExecutedTools record tool invocations planned and
	// performed during summarization.
	PlannedTools  []schema.Document
	ExecutedTools []schema.Document

	// Hypotheses / Metrics carry auxiliary summarization output.
	Hypotheses []schema.Document
	Metrics    schema.Document
}

// Store is the episodic store contract: the append/commit/query operations
// over one braid's deltas, knots, beads, and episodes.
//
// Implementations must be externally indistinguishable for every read
// operation given the same operation sequence: same ordering, same
// filtering, same default values. Each instance is scoped to one braid and
// is intended to be driven by a single logical caller at a time.
type Store interface {
	// BraidID returns the braid this store is scoped to.
	BraidID() string

	// AppendDelta appends the delta as-is. No validation is performed
	// beyond what the schema model enforced at construction; the delta
	// becomes immediately visible to subsequent reads on this handle.
	AppendDelta(ctx context.Context, d schema.Delta) error

	// AppendMessageDelta builds, appends, and returns a message delta
	// with payload {role, content}. Confidence is
	// MessageConfidenceDirect for user/tool provenance,
	// MessageConfidenceInferred otherwise.
	AppendMessageDelta(ctx context.Context, role, content string, prov schema.ProvenanceKind) (schema.Delta, error)

	// AppendToolCallDelta builds, appends, and returns a tool_call delta
	// with fixed ToolCallConfidence.
	AppendToolCallDelta(ctx context.Context, call ToolCall) (schema.Delta, error)

	// AppendToolResultDelta builds, appends, and returns a tool_result
	// delta; confidence depends on the OK flag.
	AppendToolResultDelta(ctx context.Context, res ToolResult) (schema.Delta, error)

	// UpsertBeadVersion creates the bead if absent (the first write
	// establishes its type), always creates a new immutable version,
	// repoints the bead's active version, and returns a reference with
	// role "created". Safe to call repeatedly with the same bead id.
	UpsertBeadVersion(ctx context.Context, beadID string, t schema.BeadType, data schema.Document) (schema.BeadRef, error)

	// UpsertReasoningSummaryBead writes a new version of the rolling
	// reasoning-summary bead with data {narrative, structured}.
	UpsertReasoningSummaryBead(ctx context.Context, narrative string, structured schema.Document) (schema.BeadRef, error)

	// RecentBeadVersions returns up to limit most-recent bead versions,
	// ordered oldest-to-newest by creation timestamp within the returned
	// window. A non-empty t filters by bead type. A non-positive limit
	// returns an empty slice.
	RecentBeadVersions(ctx context.Context, t schema.BeadType, limit int) ([]schema.BeadVersion, error)

	// CommitKnot constructs, appends, and returns an immutable knot.
	// The store does not validate that the delta range references
	// existing deltas.
	CommitKnot(ctx context.Context, commit KnotCommit) (schema.Knot, error)

	// RecentDeltas returns up to limit most-recent deltas in ascending
	// (oldest-first) order. A non-positive limit returns an empty slice;
	// a limit greater than the available count returns everything.
	RecentDeltas(ctx context.Context, limit int) ([]schema.Delta, error)

	// RecentKnots returns up to limit most-recent knots, oldest-first,
	// with the same limit semantics as RecentDeltas.
	RecentKnots(ctx context.Context, limit int) ([]schema.Knot, error)

	// UpsertEpisode fully replaces the episode's scalar fields and
	// outgoing edges; edges are not merged incrementally, so a later
	// upsert with fewer edges removes the missing ones.
	UpsertEpisode(ctx context.Context, ep schema.Episode) error

	// GetEpisode returns the episode, or nil when it does not exist.
	GetEpisode(ctx context.Context, episodeID string) (*schema.Episode, error)

	// ListEpisodes returns up to limit episodes for the braid, oldest
	// first. A non-empty state filters by lifecycle state. A
	// non-positive limit returns an empty slice.
	ListEpisodes(ctx context.Context, state schema.EpisodeState, limit int) ([]schema.Episode, error)

	// ActiveEpisode returns the braid's active episode, or nil when no
	// active episode is set.
	ActiveEpisode(ctx context.Context) (*schema.Episode, error)

	// SetActiveEpisodeID marks the given episode as the braid's active
	// episode.
	SetActiveEpisodeID(ctx context.Context, episodeID string) error

	// Close releases backend resources. Close is idempotent; behavior of
	// other operations after Close is undefined.
	Close(ctx context.Context) error
}

// MessageConfidence returns the default confidence for a message delta with
// the given provenance.
func MessageConfidence(prov schema.ProvenanceKind) float64 {
	if prov == schema.ProvenanceUser || prov == schema.ProvenanceTool {
		return MessageConfidenceDirect
	}
	return MessageConfidenceInferred
}

// ToolResultConfidence returns the default confidence for a tool_result
// delta given the outcome.
func ToolResultConfidence(ok bool) float64 {
	if ok {
		return ToolResultConfidenceOK
	}
	return ToolResultConfidenceFailed
}
