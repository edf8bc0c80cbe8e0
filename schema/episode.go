package schema

import "fmt"

// EpisodeState tracks an episode's lifecycle. At most one episode per braid
// is active at a time.
type EpisodeState string

const (
	EpisodeActive  EpisodeState = "active"
	EpisodeDormant EpisodeState = "dormant"
	EpisodeClosed  EpisodeState = "closed"
)

// IsValid reports whether the state is a declared variant.
func (s EpisodeState) IsValid() bool {
	switch s {
	case EpisodeActive, EpisodeDormant, EpisodeClosed:
		return true
	default:
		return false
	}
}

// Validate returns a *ValidationError if the state is not a declared variant.
func (s EpisodeState) Validate() error {
	if !s.IsValid() {
		return &ValidationError{Field: "state", Reason: fmt.Sprintf("unknown episode state %q", s)}
	}
	return nil
}

// EpisodeEdgeType enumerates the typed relationships between episodes.
type EpisodeEdgeType string

const (
	EdgeRelatedTo   EpisodeEdgeType = "related_to"
	EdgeForkedFrom  EpisodeEdgeType = "forked_from"
	EdgeResumedFrom EpisodeEdgeType = "resumed_from"
	EdgeSoftLink    EpisodeEdgeType = "soft_link"
	EdgeContradicts EpisodeEdgeType = "contradicts"
	EdgeDependsOn   EpisodeEdgeType = "depends_on"
)

// IsValid reports whether the edge type is a declared variant.
func (t EpisodeEdgeType) IsValid() bool {
	switch t {
	case EdgeRelatedTo, EdgeForkedFrom, EdgeResumedFrom,
		EdgeSoftLink, EdgeContradicts, EdgeDependsOn:
		return true
	default:
		return false
	}
}

// Validate returns a *ValidationError if the edge type is not a declared variant.
func (t EpisodeEdgeType) Validate() error {
	if !t.IsValid() {
		return &ValidationError{Field: "edge.type", Reason: fmt.Sprintf("unknown episode edge type %q", t)}
	}
	return nil
}

// EpisodeEdge is a typed, directed, weighted link to another episode.
type EpisodeEdge struct {
	// Type describes the relationship.
	Type EpisodeEdgeType `json:"type"`

	// ToEpisodeID is the target episode id.
	ToEpisodeID string `json:"to_episode_id"`

	// Confidence is a score in [0.0, 1.0].
	Confidence float64 `json:"confidence"`
}

// NewEpisodeEdge creates an edge with the default confidence.
func NewEpisodeEdge(t EpisodeEdgeType, toEpisodeID string) EpisodeEdge {
	return EpisodeEdge{Type: t, ToEpisodeID: toEpisodeID, Confidence: DefaultConfidence}
}

// Validate checks the edge type, target, and confidence range.
func (e EpisodeEdge) Validate() error {
	if err := e.Type.Validate(); err != nil {
		return err
	}
	if e.ToEpisodeID == "" {
		return &ValidationError{Field: "edge.to_episode_id", Reason: "must not be empty"}
	}
	return validateConfidence("edge.confidence", e.Confidence)
}

// Episode is a mutable narrative grouping of knots. Unlike deltas, knots,
// and bead versions, episodes and their edges may be rewritten in place
// with upsert semantics.
type Episode struct {
	// ID is the unique episode identifier.
	ID string `json:"id"`

	// BraidID is the owning braid id.
	BraidID string `json:"braid_id"`

	// State tracks the episode lifecycle.
	State EpisodeState `json:"state"`

	// Labels maps label dimensions to values (topics/intents/modalities).
	// No omitempty on the map-typed fields: an empty container and an
	// absent one are distinct values and must both round-trip.
	Labels Document `json:"labels"`

	// PrimaryKnotSpan references the episode's primary knot span
	// ({start_knot_id, end_knot_id}).
	PrimaryKnotSpan map[string]string `json:"primary_knot_span"`

	// KnotRefs is the ordered list of constituent knot ids.
	KnotRefs []string `json:"knot_refs,omitempty"`

	// Edges are the episode's outgoing typed links. Upserting an episode
	// fully replaces this set.
	Edges []EpisodeEdge `json:"edges,omitempty"`

	// SummaryCache is the episode's cached summary.
	SummaryCache Document `json:"summary_cache"`

	// AnchorQuotes holds representative quotes anchoring the episode.
	AnchorQuotes []Document `json:"anchor_quotes,omitempty"`
}

// DefaultLabels returns the empty label map every fresh episode carries.
func DefaultLabels() Document {
	return Document{
		"topics":     []any{},
		"intents":    []any{},
		"modalities": []any{},
	}
}

// NewEpisode creates an active episode with default labels and empty
// collections.
func NewEpisode(id, braidID string) *Episode {
	return &Episode{
		ID:              id,
		BraidID:         braidID,
		State:           EpisodeActive,
		Labels:          DefaultLabels(),
		PrimaryKnotSpan: map[string]string{},
		SummaryCache:    Document{},
	}
}

// WithEdges sets the outgoing edge set and returns the episode for chaining.
func (e *Episode) WithEdges(edges ...EpisodeEdge) *Episode {
	e.Edges = edges
	return e
}

// WithKnotRefs sets the constituent knot ids and returns the episode for
// chaining.
func (e *Episode) WithKnotRefs(ids ...string) *Episode {
	e.KnotRefs = ids
	return e
}

// Validate checks identity, state, and every outgoing edge.
func (e *Episode) Validate() error {
	if e.ID == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if e.BraidID == "" {
		return &ValidationError{Field: "braid_id", Reason: "must not be empty"}
	}
	if err := e.State.Validate(); err != nil {
		return err
	}
	for _, edge := range e.Edges {
		if err := edge.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone creates a deep copy of the episode.
func (e *Episode) Clone() Episode {
	out := *e
	out.Labels = e.Labels.Clone()
	if e.PrimaryKnotSpan != nil {
		out.PrimaryKnotSpan = make(map[string]string, len(e.PrimaryKnotSpan))
		for k, v := range e.PrimaryKnotSpan {
			out.PrimaryKnotSpan[k] = v
		}
	}
	out.KnotRefs = cloneStrings(e.KnotRefs)
	if e.Edges != nil {
		out.Edges = make([]EpisodeEdge, len(e.Edges))
		copy(out.Edges, e.Edges)
	}
	out.SummaryCache = e.SummaryCache.Clone()
	out.AnchorQuotes = cloneDocuments(e.AnchorQuotes)
	return out
}
