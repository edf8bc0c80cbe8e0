package lmm_test

import (
	"context"
	"fmt"
	"log"

	"github.com/elyra-labs/lmm/episodic"
	"github.com/elyra-labs/lmm/ribbon"
	"github.com/elyra-labs/lmm/schema"
)

// ExampleNewMemoryStore demonstrates the core episodic loop: append
// message deltas, seal a span into a knot, and track the episode it
// belongs to.
func Example_memoryStore() {
	ctx := context.Background()
	store := episodic.NewMemoryStore("session-1",
		episodic.WithIDGenerator(sequentialIDs()))
	defer store.Close(ctx)

	user, err := store.AppendMessageDelta(ctx, "user", "hello", schema.ProvenanceUser)
	if err != nil {
		log.Fatal(err)
	}
	asst, err := store.AppendMessageDelta(ctx, "assistant", "hi there", schema.ProvenanceAssistant)
	if err != nil {
		log.Fatal(err)
	}

	episode := schema.NewEpisode("ep-greeting", store.BraidID())
	if err := store.UpsertEpisode(ctx, *episode); err != nil {
		log.Fatal(err)
	}
	if err := store.SetActiveEpisodeID(ctx, episode.ID); err != nil {
		log.Fatal(err)
	}

	knot, err := store.CommitKnot(ctx, episodic.KnotCommit{
		PrimaryEpisodeID: episode.ID,
		StartDeltaID:     user.ID,
		EndDeltaID:       asst.ID,
		StartTS:          user.TS,
		EndTS:            asst.TS,
		Summary:          "the user and assistant exchanged greetings",
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("knot %s summarizes %s..%s\n", knot.ID,
		knot.DeltaRange.StartDeltaID, knot.DeltaRange.EndDeltaID)

	active, err := store.ActiveEpisode(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("active episode: %s (%s)\n", active.ID, active.State)

	// Output:
	// knot id-3 summarizes id-1..id-2
	// active episode: ep-greeting (active)
}

// Example_contextRibbon demonstrates projecting recent store state into a
// prompt-ready ribbon.
func Example_contextRibbon() {
	ctx := context.Background()
	store := episodic.NewMemoryStore("session-1")
	defer store.Close(ctx)

	turns := []struct {
		role    string
		content string
		prov    schema.ProvenanceKind
	}{
		{"user", "plan my trip", schema.ProvenanceUser},
		{"assistant", "where to?", schema.ProvenanceAssistant},
		{"user", "lisbon", schema.ProvenanceUser},
	}
	for _, turn := range turns {
		if _, err := store.AppendMessageDelta(ctx, turn.role, turn.content, turn.prov); err != nil {
			log.Fatal(err)
		}
	}

	deltas, err := store.RecentDeltas(ctx, 50)
	if err != nil {
		log.Fatal(err)
	}
	knots, err := store.RecentKnots(ctx, 50)
	if err != nil {
		log.Fatal(err)
	}

	rb := ribbon.Build(deltas, knots, 2)
	for _, msg := range rb.RecentMessages {
		fmt.Printf("%s: %s\n", msg.Role, msg.Content)
	}
	fmt.Printf("deltas seen: %d\n", rb.DeltaCount)

	// Output:
	// assistant: where to?
	// user: lisbon
	// deltas seen: 3
}

func sequentialIDs() func() string {
	var n int
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}
