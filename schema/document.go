package schema

import "encoding/json"

// Document is a schema-agnostic structured value: arbitrary nested data whose
// shape is determined by the entity that carries it (a delta payload, bead
// data, an episode label map). The store never interprets a Document; it only
// persists and returns it faithfully.
//
// Documents must be JSON-serializable. Clone and storage round-trips use JSON
// as the canonical interchange form, so values come back with JSON's type
// vocabulary (numbers as float64, arrays as []any).
type Document map[string]any

// Clone creates a deep copy of the Document via a JSON round-trip.
// A nil Document clones to nil.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}

	data, err := json.Marshal(d)
	if err != nil {
		// Not JSON-serializable; fall back to a shallow copy.
		out := make(Document, len(d))
		for k, v := range d {
			out[k] = v
		}
		return out
	}

	var out Document
	if err := json.Unmarshal(data, &out); err != nil {
		return d
	}
	return out
}

// String returns the compact JSON encoding of the Document.
func (d Document) String() string {
	data, _ := json.Marshal(d)
	return string(data)
}

// cloneDocuments deep-copies a slice of documents.
func cloneDocuments(in []Document) []Document {
	if in == nil {
		return nil
	}
	out := make([]Document, len(in))
	for i, d := range in {
		out[i] = d.Clone()
	}
	return out
}

// cloneStrings copies a string slice.
func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
