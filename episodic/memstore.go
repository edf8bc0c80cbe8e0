package episodic

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/elyra-labs/lmm/schema"
)

// MemoryOption configures a MemoryStore.
type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// WithClock sets the clock used for default timestamps. The default is
// UTC now.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *memoryConfig) {
		c.now = now
	}
}

// WithIDGenerator sets the generator for entity ids. The default produces
// random UUIDs.
func WithIDGenerator(newID func() string) MemoryOption {
	return func(c *memoryConfig) {
		c.newID = newID
	}
}

// WithLogger sets a custom logger. If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) MemoryOption {
	return func(c *memoryConfig) {
		c.logger = logger
	}
}

// MemoryStore is the process-local reference backend: ordered slices and
// identity maps scoped to one braid. Insertion order is the canonical
// recency order.
//
// MemoryStore provides no internal locking and is safe only under
// single-writer access, matching the store's concurrency contract.
type MemoryStore struct {
	braidID string
	now     func() time.Time
	newID   func() string
	logger  *slog.Logger

	deltas   []schema.Delta
	deltaIDs map[string]struct{}
	knots    []schema.Knot
	beads    map[string]*schema.Bead
	versions []schema.BeadVersion // global creation order

	episodes        map[string]schema.Episode
	episodeOrder    []string // first-upsert order
	activeEpisodeID string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store scoped to the given braid.
func NewMemoryStore(braidID string, opts ...MemoryOption) *MemoryStore {
	cfg := memoryConfig{
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &MemoryStore{
		braidID:  braidID,
		now:      cfg.now,
		newID:    cfg.newID,
		logger:   cfg.logger,
		deltaIDs: make(map[string]struct{}),
		beads:    make(map[string]*schema.Bead),
		episodes: make(map[string]schema.Episode),
	}
}

// BraidID returns the braid this store is scoped to.
func (s *MemoryStore) BraidID() string {
	return s.braidID
}

// AppendDelta validates and appends the delta. The stored copy is
// deep-cloned so later caller mutations cannot rewrite history.
func (s *MemoryStore) AppendDelta(ctx context.Context, d schema.Delta) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.Validate(); err != nil {
		return err
	}
	if d.BraidID != s.braidID {
		return &schema.ValidationError{Field: "braid_id", Reason: "delta belongs to a different braid"}
	}
	if _, dup := s.deltaIDs[d.ID]; dup {
		return &schema.ValidationError{Field: "id", Reason: "delta id already appended"}
	}
	s.deltaIDs[d.ID] = struct{}{}
	s.deltas = append(s.deltas, d.Clone())
	return nil
}

// AppendMessageDelta builds, appends, and returns a message delta.
func (s *MemoryStore) AppendMessageDelta(ctx context.Context, role, content string, prov schema.ProvenanceKind) (schema.Delta, error) {
	d := BuildMessageDelta(s.newID(), s.braidID, s.now(), role, content, prov)
	if err := s.AppendDelta(ctx, d); err != nil {
		return schema.Delta{}, err
	}
	return d, nil
}

// AppendToolCallDelta builds, appends, and returns a tool_call delta.
func (s *MemoryStore) AppendToolCallDelta(ctx context.Context, call ToolCall) (schema.Delta, error) {
	d := BuildToolCallDelta(s.newID(), s.braidID, s.now(), call)
	if err := s.AppendDelta(ctx, d); err != nil {
		return schema.Delta{}, err
	}
	return d, nil
}

// AppendToolResultDelta builds, appends, and returns a tool_result delta.
func (s *MemoryStore) AppendToolResultDelta(ctx context.Context, res ToolResult) (schema.Delta, error) {
	d := BuildToolResultDelta(s.newID(), s.braidID, s.now(), res)
	if err := s.AppendDelta(ctx, d); err != nil {
		return schema.Delta{}, err
	}
	return d, nil
}

// UpsertBeadVersion creates the bead if absent, appends a new immutable
// version, and repoints the bead's active version.
func (s *MemoryStore) UpsertBeadVersion(ctx context.Context, beadID string, t schema.BeadType, data schema.Document) (schema.BeadRef, error) {
	if err := ctx.Err(); err != nil {
		return schema.BeadRef{}, err
	}
	if err := t.Validate(); err != nil {
		return schema.BeadRef{}, err
	}
	if beadID == "" {
		return schema.BeadRef{}, &schema.ValidationError{Field: "bead_id", Reason: "must not be empty"}
	}

	bead, ok := s.beads[beadID]
	if !ok {
		bead = schema.NewBead(beadID, t)
		s.beads[beadID] = bead
	}

	// The bead's type is fixed by the first write; the version records the
	// type supplied with this write.
	v := schema.BeadVersion{
		ID:        s.newID(),
		BeadID:    beadID,
		Type:      t,
		CreatedTS: s.now(),
		Data:      data.Clone(),
	}
	bead.Versions[v.ID] = v
	bead.ActiveVersionID = v.ID
	s.versions = append(s.versions, v)

	return schema.BeadRef{
		BeadID:        beadID,
		BeadVersionID: v.ID,
		Role:          schema.BeadRefRoleCreated,
	}, nil
}

// UpsertReasoningSummaryBead writes a new version of the rolling
// reasoning-summary bead.
func (s *MemoryStore) UpsertReasoningSummaryBead(ctx context.Context, narrative string, structured schema.Document) (schema.BeadRef, error) {
	return s.UpsertBeadVersion(ctx, ReasoningSummaryBeadID, schema.ReasoningBead, schema.Document{
		"narrative":  narrative,
		"structured": structured,
	})
}

// RecentBeadVersions returns the most-recent window of bead versions,
// oldest-first, optionally filtered by bead type.
func (s *MemoryStore) RecentBeadVersions(ctx context.Context, t schema.BeadType, limit int) ([]schema.BeadVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []schema.BeadVersion{}, nil
	}

	rows := make([]schema.BeadVersion, 0, len(s.versions))
	for _, v := range s.versions {
		if t != "" && v.Type != t {
			continue
		}
		rows = append(rows, v)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedTS.Before(rows[j].CreatedTS)
	})
	if len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}

	out := make([]schema.BeadVersion, len(rows))
	for i := range rows {
		out[i] = rows[i].Clone()
	}
	return out, nil
}

// CommitKnot constructs, appends, and returns an immutable knot. The delta
// range is not checked against existing deltas (caller contract).
func (s *MemoryStore) CommitKnot(ctx context.Context, commit KnotCommit) (schema.Knot, error) {
	if err := ctx.Err(); err != nil {
		return schema.Knot{}, err
	}
	knot := BuildKnot(s.newID(), s.braidID, commit)
	if err := knot.Validate(); err != nil {
		return schema.Knot{}, err
	}
	s.knots = append(s.knots, knot.Clone())
	return knot, nil
}

// RecentDeltas returns the most-recent window of deltas, oldest-first.
func (s *MemoryStore) RecentDeltas(ctx context.Context, limit int) ([]schema.Delta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []schema.Delta{}, nil
	}
	window := s.deltas
	if len(window) > limit {
		window = window[len(window)-limit:]
	}
	out := make([]schema.Delta, len(window))
	for i := range window {
		out[i] = window[i].Clone()
	}
	return out, nil
}

// RecentKnots returns the most-recent window of knots, oldest-first.
func (s *MemoryStore) RecentKnots(ctx context.Context, limit int) ([]schema.Knot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []schema.Knot{}, nil
	}
	window := s.knots
	if len(window) > limit {
		window = window[len(window)-limit:]
	}
	out := make([]schema.Knot, len(window))
	for i := range window {
		out[i] = window[i].Clone()
	}
	return out, nil
}

// UpsertEpisode fully replaces the episode, outgoing edges included.
func (s *MemoryStore) UpsertEpisode(ctx context.Context, ep schema.Episode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ep.Validate(); err != nil {
		return err
	}
	if ep.BraidID != s.braidID {
		return &schema.ValidationError{Field: "braid_id", Reason: "episode belongs to a different braid"}
	}
	if _, ok := s.episodes[ep.ID]; !ok {
		s.episodeOrder = append(s.episodeOrder, ep.ID)
	}
	s.episodes[ep.ID] = ep.Clone()
	return nil
}

// GetEpisode returns a copy of the episode, or nil when absent.
func (s *MemoryStore) GetEpisode(ctx context.Context, episodeID string) (*schema.Episode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ep, ok := s.episodes[episodeID]
	if !ok {
		return nil, nil
	}
	out := ep.Clone()
	return &out, nil
}

// ListEpisodes returns up to limit episodes in first-upsert order,
// optionally filtered by state.
func (s *MemoryStore) ListEpisodes(ctx context.Context, state schema.EpisodeState, limit int) ([]schema.Episode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []schema.Episode{}, nil
	}

	matched := make([]schema.Episode, 0, len(s.episodeOrder))
	for _, id := range s.episodeOrder {
		ep := s.episodes[id]
		if state != "" && ep.State != state {
			continue
		}
		matched = append(matched, ep)
	}
	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}

	out := make([]schema.Episode, len(matched))
	for i := range matched {
		out[i] = matched[i].Clone()
	}
	return out, nil
}

// ActiveEpisode returns the braid's active episode, or nil when unset.
func (s *MemoryStore) ActiveEpisode(ctx context.Context) (*schema.Episode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.activeEpisodeID == "" {
		return nil, nil
	}
	return s.GetEpisode(ctx, s.activeEpisodeID)
}

// SetActiveEpisodeID marks the given episode as active for the braid.
func (s *MemoryStore) SetActiveEpisodeID(ctx context.Context, episodeID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.activeEpisodeID = episodeID
	return nil
}

// Close is a no-op for the in-memory backend.
func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

// Deltas returns a copy of the full delta log, for inspection in tests.
func (s *MemoryStore) Deltas() []schema.Delta {
	out := make([]schema.Delta, len(s.deltas))
	for i := range s.deltas {
		out[i] = s.deltas[i].Clone()
	}
	return out
}

// Knots returns a copy of the full knot log, for inspection in tests.
func (s *MemoryStore) Knots() []schema.Knot {
	out := make([]schema.Knot, len(s.knots))
	for i := range s.knots {
		out[i] = s.knots[i].Clone()
	}
	return out
}
