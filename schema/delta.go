package schema

import (
	"fmt"
	"time"
)

// DeltaKind enumerates the event types a braid log can carry. The kind
// determines the shape of the delta's opaque payload.
type DeltaKind string

const (
	DeltaTick          DeltaKind = "tick"
	DeltaMessage       DeltaKind = "message"
	DeltaKnotLifecycle DeltaKind = "knot_lifecycle"
	DeltaObservation   DeltaKind = "observation"
	DeltaBeadRef       DeltaKind = "bead_ref"
	DeltaBeadWrite     DeltaKind = "bead_write"
	DeltaBeadVersion   DeltaKind = "bead_version"
	DeltaToolCall      DeltaKind = "tool_call"
	DeltaToolResult    DeltaKind = "tool_result"
	DeltaMicroagent    DeltaKind = "microagent"
	DeltaHypothesis    DeltaKind = "hypothesis"
	DeltaTrust         DeltaKind = "trust"
)

// IsValid reports whether the kind is a declared variant.
func (k DeltaKind) IsValid() bool {
	switch k {
	case DeltaTick, DeltaMessage, DeltaKnotLifecycle, DeltaObservation,
		DeltaBeadRef, DeltaBeadWrite, DeltaBeadVersion, DeltaToolCall,
		DeltaToolResult, DeltaMicroagent, DeltaHypothesis, DeltaTrust:
		return true
	default:
		return false
	}
}

// Validate returns a *ValidationError if the kind is not a declared variant.
func (k DeltaKind) Validate() error {
	if !k.IsValid() {
		return &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown delta kind %q", k)}
	}
	return nil
}

// ProvenanceKind classifies the origin of a delta.
type ProvenanceKind string

const (
	ProvenanceUser       ProvenanceKind = "user"
	ProvenanceAssistant  ProvenanceKind = "assistant"
	ProvenanceTool       ProvenanceKind = "tool"
	ProvenancePerception ProvenanceKind = "perception"
	ProvenanceSystem     ProvenanceKind = "system"
	ProvenanceDream      ProvenanceKind = "dream"
)

// IsValid reports whether the kind is a declared variant.
func (k ProvenanceKind) IsValid() bool {
	switch k {
	case ProvenanceUser, ProvenanceAssistant, ProvenanceTool,
		ProvenancePerception, ProvenanceSystem, ProvenanceDream:
		return true
	default:
		return false
	}
}

// Validate returns a *ValidationError if the kind is not a declared variant.
func (k ProvenanceKind) Validate() error {
	if !k.IsValid() {
		return &ValidationError{Field: "provenance.kind", Reason: fmt.Sprintf("unknown provenance kind %q", k)}
	}
	return nil
}

// Provenance tags the origin of a delta. It is immutable once attached.
type Provenance struct {
	// Kind is the origin classification. Required.
	Kind ProvenanceKind `json:"kind"`

	// Source is an optional free-text origin identifier.
	Source string `json:"source,omitempty"`

	// Model is the model identifier for assistant-produced deltas.
	Model string `json:"model,omitempty"`

	// Tool is the tool identifier for tool-produced deltas.
	Tool string `json:"tool,omitempty"`

	// EpisodeID links to the episode active when the delta was produced.
	EpisodeID string `json:"episode_id,omitempty"`

	// KnotID links to the knot active when the delta was produced.
	KnotID string `json:"knot_id,omitempty"`
}

// Validate checks the provenance kind.
func (p Provenance) Validate() error {
	return p.Kind.Validate()
}

// DeltaRefs holds optional structured references from a delta to other
// entities in the same braid.
type DeltaRefs struct {
	// Beads references beads, each entry an opaque ref document
	// (typically {bead_id, bead_version_id, role}).
	Beads []Document `json:"beads,omitempty"`

	// Knots references knot ids.
	Knots []string `json:"knots,omitempty"`

	// Episodes references episode ids.
	Episodes []string `json:"episodes,omitempty"`

	// Deltas references delta ids.
	Deltas []string `json:"deltas,omitempty"`
}

// Clone creates a deep copy of the refs.
func (r *DeltaRefs) Clone() *DeltaRefs {
	if r == nil {
		return nil
	}
	return &DeltaRefs{
		Beads:    cloneDocuments(r.Beads),
		Knots:    cloneStrings(r.Knots),
		Episodes: cloneStrings(r.Episodes),
		Deltas:   cloneStrings(r.Deltas),
	}
}

// DefaultConfidence is the confidence assigned to deltas that do not set
// one explicitly.
const DefaultConfidence = 0.5

// Delta is the atomic, immutable unit of the braid log. Deltas are never
// mutated or deleted after append.
type Delta struct {
	// ID is the unique delta identifier.
	ID string `json:"id"`

	// BraidID is the owning braid (conversation/session) id.
	BraidID string `json:"braid_id"`

	// Kind determines the shape of Payload.
	Kind DeltaKind `json:"kind"`

	// TS is the creation timestamp (UTC).
	TS time.Time `json:"ts"`

	// Provenance classifies the delta's origin.
	Provenance Provenance `json:"provenance"`

	// Confidence is a score in [0.0, 1.0].
	Confidence float64 `json:"confidence"`

	// Payload is the opaque structured payload; its shape is determined
	// by Kind. No omitempty: the empty payload is a value, not an
	// absence, and must round-trip as-is.
	Payload Document `json:"payload"`

	// Refs optionally references other beads/knots/episodes/deltas.
	Refs *DeltaRefs `json:"refs,omitempty"`

	// Tags is a set of free-text tags.
	Tags []string `json:"tags,omitempty"`
}

// NewDelta creates a Delta with the given identity and sensible defaults:
// timestamp now (UTC), confidence DefaultConfidence, empty payload.
// Call Validate before handing the delta to a store.
func NewDelta(id, braidID string, kind DeltaKind, prov Provenance) *Delta {
	return &Delta{
		ID:         id,
		BraidID:    braidID,
		Kind:       kind,
		TS:         time.Now().UTC(),
		Provenance: prov,
		Confidence: DefaultConfidence,
		Payload:    Document{},
	}
}

// WithTS sets the creation timestamp and returns the delta for chaining.
func (d *Delta) WithTS(ts time.Time) *Delta {
	d.TS = ts
	return d
}

// WithConfidence sets the confidence score and returns the delta for chaining.
// The value is checked by Validate, not here.
func (d *Delta) WithConfidence(c float64) *Delta {
	d.Confidence = c
	return d
}

// WithPayload sets the opaque payload and returns the delta for chaining.
func (d *Delta) WithPayload(p Document) *Delta {
	d.Payload = p
	return d
}

// WithRefs sets the structured references and returns the delta for chaining.
func (d *Delta) WithRefs(r *DeltaRefs) *Delta {
	d.Refs = r
	return d
}

// WithTags sets the tag set and returns the delta for chaining.
func (d *Delta) WithTags(tags ...string) *Delta {
	d.Tags = tags
	return d
}

// Validate checks identity, enum variants, and the confidence range.
// It returns a *ValidationError describing the first violation found.
func (d *Delta) Validate() error {
	if d.ID == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if d.BraidID == "" {
		return &ValidationError{Field: "braid_id", Reason: "must not be empty"}
	}
	if err := d.Kind.Validate(); err != nil {
		return err
	}
	if err := d.Provenance.Validate(); err != nil {
		return err
	}
	return validateConfidence("confidence", d.Confidence)
}

// Clone creates a deep copy of the delta.
func (d *Delta) Clone() Delta {
	out := *d
	out.Payload = d.Payload.Clone()
	out.Refs = d.Refs.Clone()
	out.Tags = cloneStrings(d.Tags)
	return out
}
