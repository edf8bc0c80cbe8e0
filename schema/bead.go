package schema

import (
	"fmt"
	"time"
)

// BeadType enumerates the kinds of content cells a braid can carry.
type BeadType string

const (
	ToolBead       BeadType = "tool_bead"
	SkillBead      BeadType = "skill_bead"
	MemoryBead     BeadType = "memory_bead"
	MicroagentBead BeadType = "microagent_bead"
	ReasoningBead  BeadType = "reasoning_bead"
)

// IsValid reports whether the type is a declared variant.
func (t BeadType) IsValid() bool {
	switch t {
	case ToolBead, SkillBead, MemoryBead, MicroagentBead, ReasoningBead:
		return true
	default:
		return false
	}
}

// Validate returns a *ValidationError if the type is not a declared variant.
func (t BeadType) Validate() error {
	if !t.IsValid() {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown bead type %q", t)}
	}
	return nil
}

// BeadRefRoleCreated marks a reference returned by a bead-version write.
const BeadRefRoleCreated = "created"

// BeadRef is a lightweight reference to a bead and optionally one of its
// versions.
type BeadRef struct {
	// BeadID is the referenced bead's stable id.
	BeadID string `json:"bead_id"`

	// BeadVersionID optionally pins a specific version.
	BeadVersionID string `json:"bead_version_id,omitempty"`

	// Role describes the reference's nature ("used", "created", ...).
	Role string `json:"role"`
}

// BeadVersion is one immutable entry in a bead's version history.
type BeadVersion struct {
	// ID is the unique version identifier.
	ID string `json:"id"`

	// BeadID is the owning bead's stable id.
	BeadID string `json:"bead_id"`

	// Type mirrors the owning bead's type.
	Type BeadType `json:"type"`

	// CreatedTS is the version's creation timestamp (UTC).
	CreatedTS time.Time `json:"created_ts"`

	// Data is the version's opaque content.
	Data Document `json:"data"`
}

// Validate checks identity and the bead type.
func (v *BeadVersion) Validate() error {
	if v.ID == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if v.BeadID == "" {
		return &ValidationError{Field: "bead_id", Reason: "must not be empty"}
	}
	return v.Type.Validate()
}

// Clone creates a deep copy of the version.
func (v *BeadVersion) Clone() BeadVersion {
	out := *v
	out.Data = v.Data.Clone()
	return out
}

// Bead is a mutable-by-replacement content cell. Each write creates a new
// immutable BeadVersion and atomically repoints ActiveVersionID; prior
// versions remain retrievable. The version history is strictly append-only.
type Bead struct {
	// ID is the bead's stable id.
	ID string `json:"id"`

	// Type is fixed by the first write that creates the bead.
	Type BeadType `json:"type"`

	// ActiveVersionID points at the current version; when set it must
	// reference a version present in Versions.
	ActiveVersionID string `json:"active_version_id,omitempty"`

	// Versions is the bead's full version history, keyed by version id.
	Versions map[string]BeadVersion `json:"versions,omitempty"`
}

// NewBead creates an empty bead of the given type.
func NewBead(id string, t BeadType) *Bead {
	return &Bead{
		ID:       id,
		Type:     t,
		Versions: make(map[string]BeadVersion),
	}
}

// Validate checks identity, the bead type, and that ActiveVersionID, when
// set, references a version in the version set.
func (b *Bead) Validate() error {
	if b.ID == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if err := b.Type.Validate(); err != nil {
		return err
	}
	if b.ActiveVersionID != "" {
		if _, ok := b.Versions[b.ActiveVersionID]; !ok {
			return &ValidationError{
				Field:  "active_version_id",
				Reason: fmt.Sprintf("version %q is not in the bead's version set", b.ActiveVersionID),
			}
		}
	}
	return nil
}
