package schema

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestNewDelta(t *testing.T) {
	d := NewDelta("d1", "b1", DeltaMessage, Provenance{Kind: ProvenanceUser})

	if d.ID != "d1" {
		t.Errorf("expected ID to be 'd1', got %q", d.ID)
	}
	if d.BraidID != "b1" {
		t.Errorf("expected BraidID to be 'b1', got %q", d.BraidID)
	}
	if d.Confidence != DefaultConfidence {
		t.Errorf("expected Confidence to default to %v, got %v", DefaultConfidence, d.Confidence)
	}
	if d.TS.IsZero() {
		t.Error("expected TS to be set")
	}
	if d.TS.Location() != time.UTC {
		t.Error("expected TS to be UTC")
	}
	if d.Payload == nil {
		t.Error("expected Payload to be initialized")
	}
	if err := d.Validate(); err != nil {
		t.Errorf("expected fresh delta to validate, got %v", err)
	}
}

func TestDelta_BuilderMethods(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := NewDelta("d1", "b1", DeltaObservation, Provenance{Kind: ProvenancePerception}).
		WithTS(ts).
		WithConfidence(0.9).
		WithPayload(Document{"seen": "door"}).
		WithTags("vision", "room-2")

	if !d.TS.Equal(ts) {
		t.Errorf("expected TS %v, got %v", ts, d.TS)
	}
	if d.Confidence != 0.9 {
		t.Errorf("expected Confidence 0.9, got %v", d.Confidence)
	}
	if d.Payload["seen"] != "door" {
		t.Errorf("expected Payload['seen'] to be 'door', got %v", d.Payload["seen"])
	}
	if len(d.Tags) != 2 {
		t.Errorf("expected 2 tags, got %d", len(d.Tags))
	}
}

func TestDelta_ValidateConfidence(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		wantErr    bool
	}{
		{"zero", 0.0, false},
		{"half", 0.5, false},
		{"one", 1.0, false},
		{"below range", -0.01, true},
		{"above range", 1.01, true},
		{"far above", 42.0, true},
		{"not a number", math.NaN(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDelta("d1", "b1", DeltaTick, Provenance{Kind: ProvenanceSystem}).
				WithConfidence(tt.confidence)
			err := d.Validate()
			if tt.wantErr && err == nil {
				t.Errorf("expected validation failure for confidence %v", tt.confidence)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected confidence %v to validate, got %v", tt.confidence, err)
			}
			if tt.wantErr {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected *ValidationError, got %T", err)
				}
				if verr.Field != "confidence" {
					t.Errorf("expected field 'confidence', got %q", verr.Field)
				}
				if !errors.Is(err, ErrInvalidEntity) {
					t.Error("expected errors.Is(err, ErrInvalidEntity)")
				}
			}
		})
	}
}

func TestDelta_ValidateEnums(t *testing.T) {
	d := NewDelta("d1", "b1", DeltaKind("nonsense"), Provenance{Kind: ProvenanceUser})
	if err := d.Validate(); err == nil {
		t.Error("expected unknown delta kind to be rejected")
	}

	d = NewDelta("d1", "b1", DeltaMessage, Provenance{Kind: ProvenanceKind("alien")})
	if err := d.Validate(); err == nil {
		t.Error("expected unknown provenance kind to be rejected")
	}

	d = NewDelta("", "b1", DeltaMessage, Provenance{Kind: ProvenanceUser})
	if err := d.Validate(); err == nil {
		t.Error("expected empty id to be rejected")
	}
}

func TestDelta_Clone(t *testing.T) {
	d := NewDelta("d1", "b1", DeltaMessage, Provenance{Kind: ProvenanceUser}).
		WithPayload(Document{"role": "user", "content": "hi"}).
		WithRefs(&DeltaRefs{Knots: []string{"k1"}}).
		WithTags("greeting")

	clone := d.Clone()
	clone.Payload["content"] = "changed"
	clone.Refs.Knots[0] = "k2"
	clone.Tags[0] = "other"

	if d.Payload["content"] != "hi" {
		t.Error("clone mutation leaked into original payload")
	}
	if d.Refs.Knots[0] != "k1" {
		t.Error("clone mutation leaked into original refs")
	}
	if d.Tags[0] != "greeting" {
		t.Error("clone mutation leaked into original tags")
	}
}

func TestDeltaKind_IsValid(t *testing.T) {
	for _, k := range []DeltaKind{
		DeltaTick, DeltaMessage, DeltaKnotLifecycle, DeltaObservation,
		DeltaBeadRef, DeltaBeadWrite, DeltaBeadVersion, DeltaToolCall,
		DeltaToolResult, DeltaMicroagent, DeltaHypothesis, DeltaTrust,
	} {
		if !k.IsValid() {
			t.Errorf("expected %q to be valid", k)
		}
	}
	if DeltaKind("").IsValid() {
		t.Error("expected empty kind to be invalid")
	}
}
