// Package ribbon assembles a compact conversational context from
// retrieved episodic state. A ribbon is a pure projection: it reads the
// deltas and knots handed to it and never touches a store.
package ribbon

import "github.com/elyra-labs/lmm/schema"

// DefaultMaxMessages caps the ribbon's message window when the caller
// passes no explicit limit.
const DefaultMaxMessages = 20

// Message is one conversational turn extracted from a message delta.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ContextRibbon carries the recent conversation plus span metadata,
// ready to be rendered into a prompt.
type ContextRibbon struct {
	// RecentMessages holds up to the cap of the newest message turns,
	// oldest first.
	RecentMessages []Message `json:"recent_messages"`

	// KnotCount and DeltaCount report how much episodic state the ribbon
	// was built over.
	KnotCount  int `json:"knot_count"`
	DeltaCount int `json:"delta_count"`
}

// Build projects a ribbon from deltas and knots as retrieved from a store
// (oldest first). Non-message deltas contribute to DeltaCount but not to
// the message window. maxMessages <= 0 uses DefaultMaxMessages.
func Build(deltas []schema.Delta, knots []schema.Knot, maxMessages int) ContextRibbon {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}

	// Scan newest-back so the cap keeps the most recent turns, then
	// restore oldest-first order.
	msgs := make([]Message, 0, maxMessages)
	for i := len(deltas) - 1; i >= 0 && len(msgs) < maxMessages; i-- {
		d := &deltas[i]
		if d.Kind != schema.DeltaMessage {
			continue
		}
		role, _ := d.Payload["role"].(string)
		content, _ := d.Payload["content"].(string)
		msgs = append(msgs, Message{Role: role, Content: content})
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	return ContextRibbon{
		RecentMessages: msgs,
		KnotCount:      len(knots),
		DeltaCount:     len(deltas),
	}
}
