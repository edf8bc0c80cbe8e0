// Package neo4jstore is the durable episodic backend. One braid maps to a
// (:Braid) node carrying the append counters and the active-episode
// pointer; deltas, knots, beads, and episodes hang off it as their own
// node labels, with structured fields flattened into *_json properties.
//
// The backend is held to the reference semantics by the storetest suite:
// a caller switching from NewMemoryStore to New observes no behavioral
// difference beyond durability.
package neo4jstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/elyra-labs/lmm"
	"github.com/elyra-labs/lmm/episodic"
	"github.com/elyra-labs/lmm/schema"
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a custom logger. If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithTracer sets an OpenTelemetry tracer for per-operation spans. The
// default is a noop tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Store) {
		s.tracer = tracer
	}
}

// WithClock sets the clock used for default timestamps. The default is
// UTC now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator sets the generator for entity ids. The default produces
// random UUIDs.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		s.newID = newID
	}
}

// Store implements episodic.Store on a Neo4j database.
type Store struct {
	driver  neo4j.DriverWithContext
	cfg     Config
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time
	newID   func() string
	closed  bool
	edgeRel bool // EP_EDGE relationship type known to exist
}

var _ episodic.Store = (*Store)(nil)

// New connects to Neo4j, verifies connectivity, ensures the braid node
// exists, and applies uniqueness constraints best-effort. Connectivity
// failures are fatal; constraint failures are logged and ignored (older
// servers and restricted users cannot run the DDL).
func New(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	const op = "neo4jstore.New"

	if err := cfg.Validate(); err != nil {
		return nil, lmm.NewConfigurationError(op, err)
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, lmm.NewConnectionError(op, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, lmm.NewConnectionError(op, err)
	}

	s := &Store{
		driver: driver,
		cfg:    cfg,
		logger: slog.Default(),
		tracer: noop.NewTracerProvider().Tracer("lmm/neo4jstore"),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.ensureSchema(ctx)
	if err := s.ensureBraid(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}

	s.logger.Info("connected to episodic store",
		"uri", cfg.URI,
		"braid_id", cfg.BraidID)
	return s, nil
}

// BraidID returns the braid this store is scoped to.
func (s *Store) BraidID() string {
	return s.cfg.BraidID
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.cfg.Database,
	})
}

// ensureSchema applies uniqueness constraints and the range indexes the
// recency queries lean on. Failures are logged at debug and swallowed.
func (s *Store) ensureSchema(ctx context.Context) {
	stmts := []string{
		"CREATE CONSTRAINT braid_id IF NOT EXISTS FOR (b:Braid) REQUIRE b.id IS UNIQUE",
		"CREATE CONSTRAINT delta_braid_id IF NOT EXISTS FOR (d:Delta) REQUIRE (d.braid_id, d.id) IS UNIQUE",
		"CREATE CONSTRAINT knot_braid_id IF NOT EXISTS FOR (k:Knot) REQUIRE (k.braid_id, k.id) IS UNIQUE",
		"CREATE CONSTRAINT bead_braid_id IF NOT EXISTS FOR (b:Bead) REQUIRE (b.braid_id, b.id) IS UNIQUE",
		"CREATE CONSTRAINT bead_version_id IF NOT EXISTS FOR (v:BeadVersion) REQUIRE v.id IS UNIQUE",
		"CREATE CONSTRAINT episode_braid_id IF NOT EXISTS FOR (e:Episode) REQUIRE (e.braid_id, e.id) IS UNIQUE",
		"CREATE INDEX delta_braid_seq IF NOT EXISTS FOR (d:Delta) ON (d.braid_id, d.seq)",
		"CREATE INDEX knot_braid_seq IF NOT EXISTS FOR (k:Knot) ON (k.braid_id, k.seq)",
		"CREATE INDEX bead_version_braid_ts IF NOT EXISTS FOR (v:BeadVersion) ON (v.braid_id, v.created_ts)",
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer lmm.CloseWithLog(ctx, session, s.logger, "session")

	for _, stmt := range stmts {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			s.logger.Debug("schema statement skipped", "error", err)
		}
	}
}

// ensureBraid creates the braid node with zeroed append counters if it
// does not exist yet.
func (s *Store) ensureBraid(ctx context.Context) error {
	const op = "neo4jstore.New"

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer lmm.CloseWithLog(ctx, session, s.logger, "session")

	_, err := session.Run(ctx, `
		MERGE (b:Braid {id: $braid_id})
		ON CREATE SET b.next_delta_seq = 0,
		              b.next_knot_seq = 0,
		              b.next_episode_seq = 0,
		              b.created_ts = $ts`,
		map[string]any{
			"braid_id": s.cfg.BraidID,
			"ts":       formatTS(s.now()),
		})
	if err != nil {
		return lmm.NewStorageError(op, err)
	}
	return nil
}

func (s *Store) guard(op string) error {
	if s.closed {
		return &lmm.Error{Op: op, Kind: lmm.KindStorage, Err: lmm.ErrStoreClosed}
	}
	return nil
}

// AppendDelta validates the delta and appends it to the braid's log. The
// sequence-number read-modify-write and the node creation execute as one
// statement, so concurrent appenders cannot interleave between them.
func (s *Store) AppendDelta(ctx context.Context, d schema.Delta) error {
	const op = "neo4jstore.AppendDelta"
	ctx, span := s.tracer.Start(ctx, op)
	defer span.End()

	if err := s.guard(op); err != nil {
		return err
	}
	if err := d.Validate(); err != nil {
		return err
	}
	if d.BraidID != s.cfg.BraidID {
		return &schema.ValidationError{Field: "braid_id", Reason: "delta belongs to a different braid"}
	}

	props, err := deltaToProps(&d)
	if err != nil {
		return lmm.NewInternalError(op, err)
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer lmm.CloseWithLog(ctx, session, s.logger, "session")

	result, err := session.Run(ctx, `
		MATCH (b:Braid {id: $braid_id})
		OPTIONAL MATCH (existing:Delta {id: $id, braid_id: $braid_id})
		WITH b, existing
		WHERE existing IS NULL
		SET b.next_delta_seq = coalesce(b.next_delta_seq, 0) + 1
		WITH b
		CREATE (d:Delta)
		SET d = $props, d.seq = b.next_delta_seq - 1
		RETURN d.seq AS seq`,
		map[string]any{
			"braid_id": s.cfg.BraidID,
			"id":       d.ID,
			"props":    props,
		})
	if err != nil {
		return lmm.NewStorageError(op, err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return lmm.NewStorageError(op, err)
		}
		return &schema.ValidationError{Field: "id", Reason: "delta id already appended"}
	}
	return nil
}

// AppendMessageDelta builds, appends, and returns a message delta.
func (s *Store) AppendMessageDelta(ctx context.Context, role, content string, prov schema.ProvenanceKind) (schema.Delta, error) {
	d := episodic.BuildMessageDelta(s.newID(), s.cfg.BraidID, s.now(), role, content, prov)
	if err := s.AppendDelta(ctx, d); err != nil {
		return schema.Delta{}, err
	}
	return d, nil
}

// AppendToolCallDelta builds, appends, and returns a tool_call delta.
func (s *Store) AppendToolCallDelta(ctx context.Context, call episodic.ToolCall) (schema.Delta, error) {
	d := episodic.BuildToolCallDelta(s.newID(), s.cfg.BraidID, s.now(), call)
	if err := s.AppendDelta(ctx, d); err != nil {
		return schema.Delta{}, err
	}
	return d, nil
}

// AppendToolResultDelta builds, appends, and returns a tool_result delta.
func (s *Store) AppendToolResultDelta(ctx context.Context, res episodic.ToolResult) (schema.Delta, error) {
	d := episodic.BuildToolResultDelta(s.newID(), s.cfg.BraidID, s.now(), res)
	if err := s.AppendDelta(ctx, d); err != nil {
		return schema.Delta{}, err
	}
	return d, nil
}

// UpsertBeadVersion creates the bead node if absent, appends an immutable
// version node linked by HAS_VERSION, and repoints the bead's active
// version. The bead's type is fixed by the first write; the version
// records the type supplied with this write.
func (s *Store) UpsertBeadVersion(ctx context.Context, beadID string, t schema.BeadType, data schema.Document) (schema.BeadRef, error) {
	const op = "neo4jstore.UpsertBeadVersion"
	ctx, span := s.tracer.Start(ctx, op)
	defer span.End()

	if err := s.guard(op); err != nil {
		return schema.BeadRef{}, err
	}
	if err := t.Validate(); err != nil {
		return schema.BeadRef{}, err
	}
	if beadID == "" {
		return schema.BeadRef{}, &schema.ValidationError{Field: "bead_id", Reason: "must not be empty"}
	}

	dataJSON, err := marshalJSON(data)
	if err != nil {
		return schema.BeadRef{}, lmm.NewInternalError(op, err)
	}
	versionID := s.newID()

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer lmm.CloseWithLog(ctx, session, s.logger, "session")

	_, err = session.Run(ctx, `
		MERGE (b:Bead {id: $bead_id, braid_id: $braid_id})
		ON CREATE SET b.type = $type,
		              b.created_ts = $ts
		CREATE (v:BeadVersion {
			id: $version_id,
			bead_id: $bead_id,
			braid_id: $braid_id,
			type: $type,
			created_ts: $ts,
			data_json: $data_json
		})
		MERGE (b)-[:HAS_VERSION]->(v)
		SET b.active_version_id = $version_id`,
		map[string]any{
			"bead_id":    beadID,
			"braid_id":   s.cfg.BraidID,
			"type":       string(t),
			"ts":         formatTS(s.now()),
			"version_id": versionID,
			"data_json":  dataJSON,
		})
	if err != nil {
		return schema.BeadRef{}, lmm.NewStorageError(op, err)
	}

	return schema.BeadRef{
		BeadID:        beadID,
		BeadVersionID: versionID,
		Role:          schema.BeadRefRoleCreated,
	}, nil
}

// UpsertReasoningSummaryBead writes a new version of the rolling
// reasoning-summary bead.
func (s *Store) UpsertReasoningSummaryBead(ctx context.Context, narrative string, structured schema.Document) (schema.BeadRef, error) {
	return s.UpsertBeadVersion(ctx, episodic.ReasoningSummaryBeadID, schema.ReasoningBead, schema.Document{
		"narrative":  narrative,
		"structured": structured,
	})
}

// RecentBeadVersions returns the most-recent window of bead versions,
// oldest-first, optionally filtered by bead type.
func (s *Store) RecentBeadVersions(ctx context.Context, t schema.BeadType, limit int) ([]schema.BeadVersion, error) {
	const op = "neo4jstore.RecentBeadVersions"
	ctx, span := s.tracer.Start(ctx, op)
	defer span.End()

	if err := s.guard(op); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []schema.BeadVersion{}, nil
	}

	session := s.session(ctx, neo4j.AccessModeRead)
	defer lmm.CloseWithLog(ctx, session, s.logger, "session")

	result, err := session.Run(ctx, `
		MATCH (v:BeadVersion {braid_id: $braid_id})
		WHERE $type = '' OR v.type = $type
		RETURN v
		ORDER BY v.created_ts DESC
		LIMIT $limit`,
		map[string]any{
			"braid_id": s.cfg.BraidID,
			"type":     string(t),
			"limit":    limit,
		})
	if err != nil {
		return nil, lmm.NewStorageError(op, err)
	}

	var out []schema.BeadVersion
	for result.Next(ctx) {
		props, err := nodeProps(result.Record(), "v")
		if err != nil {
			return nil, lmm.NewInternalError(op, err)
		}
		v, err := beadVersionFromProps(props)
		if err != nil {
			return nil, lmm.NewInternalError(op, err)
		}
		out = append(out, v)
	}
	if err := result.Err(); err != nil {
		return nil, lmm.NewStorageError(op, err)
	}

	reverseSlice(out)
	if out == nil {
		out = []schema.BeadVersion{}
	}
	return out, nil
}

// CommitKnot constructs and appends an immutable knot. The delta range is
// not checked against existing deltas (caller contract). Like AppendDelta,
// the sequence bump and the node creation are one statement.
func (s *Store) CommitKnot(ctx context.Context, commit episodic.KnotCommit) (schema.Knot, error) {
	const op = "neo4jstore.CommitKnot"
	ctx, span := s.tracer.Start(ctx, op)
	defer span.End()

	if err := s.guard(op); err != nil {
		return schema.Knot{}, err
	}

	knot := episodic.BuildKnot(s.newID(), s.cfg.BraidID, commit)
	if err := knot.Validate(); err != nil {
		return schema.Knot{}, err
	}

	props, err := knotToProps(&knot)
	if err != nil {
		return schema.Knot{}, lmm.NewInternalError(op, err)
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer lmm.CloseWithLog(ctx, session, s.logger, "session")

	_, err = session.Run(ctx, `
		MATCH (b:Braid {id: $braid_id})
		SET b.next_knot_seq = coalesce(b.next_knot_seq, 0) + 1
		WITH b
		CREATE (k:Knot)
		SET k = $props, k.seq = b.next_knot_seq - 1`,
		map[string]any{
			"braid_id": s.cfg.BraidID,
			"props":    props,
		})
	if err != nil {
		return schema.Knot{}, lmm.NewStorageError(op, err)
	}
	return knot, nil
}

// RecentDeltas returns the most-recent window of deltas, oldest-first.
func (s *Store) RecentDeltas(ctx context.Context, limit int) ([]schema.Delta, error) {
	const op = "neo4jstore.RecentDeltas"
	ctx, span := s.tracer.Start(ctx, op)
	defer span.End()

	if err := s.guard(op); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []schema.Delta{}, nil
	}

	session := s.session(ctx, neo4j.AccessModeRead)
	defer lmm.CloseWithLog(ctx, session, s.logger, "session")

	result, err := session.Run(ctx, `
		MATCH (d:Delta {braid_id: $braid_id})
		RETURN d
		ORDER BY d.seq DESC
		LIMIT $limit`,
		map[string]any{
			"braid_id": s.cfg.BraidID,
			"limit":    limit,
		})
	if err != nil {
		return nil, lmm.NewStorageError(op, err)
	}

	var out []schema.Delta
	for result.Next(ctx) {
		props, err := nodeProps(result.Record(), "d")
		if err != nil {
			return nil, lmm.NewInternalError(op, err)
		}
		d, err := deltaFromProps(props)
		if err != nil {
			return nil, lmm.NewInternalError(op, err)
		}
		out = append(out, d)
	}
	if err := result.Err(); err != nil {
		return nil, lmm.NewStorageError(op, err)
	}

	reverseSlice(out)
	if out == nil {
		out = []schema.Delta{}
	}
	return out, nil
}

// RecentKnots returns the most-recent window of knots, oldest-first.
func (s *Store) RecentKnots(ctx context.Context, limit int) ([]schema.Knot, error) {
	const op = "neo4jstore.RecentKnots"
	ctx, span := s.tracer.Start(ctx, op)
	defer span.End()

	if err := s.guard(op); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []schema.Knot{}, nil
	}

	session := s.session(ctx, neo4j.AccessModeRead)
	defer lmm.CloseWithLog(ctx, session, s.logger, "session")

	result, err := session.Run(ctx, `
		MATCH (k:Knot {braid_id: $braid_id})
		RETURN k
		ORDER BY k.seq DESC
		LIMIT $limit`,
		map[string]any{
			"braid_id": s.cfg.BraidID,
			"limit":    limit,
		})
	if err != nil {
		return nil, lmm.NewStorageError(op, err)
	}

	var out []schema.Knot
	for result.Next(ctx) {
		props, err := nodeProps(result.Record(), "k")
		if err != nil {
			return nil, lmm.NewInternalError(op, err)
		}
		k, err := knotFromProps(props)
		if err != nil {
			return nil, lmm.NewInternalError(op, err)
		}
		out = append(out, k)
	}
	if err := result.Err(); err != nil {
		return nil, lmm.NewStorageError(op, err)
	}

	reverseSlice(out)
	if out == nil {
		out = []schema.Knot{}
	}
	return out, nil
}

// UpsertEpisode fully replaces the episode, outgoing edges included: the
// node's properties are overwritten, existing EP_EDGE relationships are
// deleted, and the supplied edge set is recreated — one statement, so a
// reader never observes a half-replaced edge set.
//
// Edge targets are created as placeholder nodes when they do not exist
// yet. Placeholders carry no seq and stay invisible to GetEpisode and
// ListEpisodes until they are upserted themselves.
func (s *Store) UpsertEpisode(ctx context.Context, ep schema.Episode) error {
	const op = "neo4jstore.UpsertEpisode"
	ctx, span := s.tracer.Start(ctx, op)
	defer span.End()

	if err := s.guard(op); err != nil {
		return err
	}
	if err := ep.Validate(); err != nil {
		return err
	}
	if ep.BraidID != s.cfg.BraidID {
		return &schema.ValidationError{Field: "braid_id", Reason: "episode belongs to a different braid"}
	}

	props, err := episodeToProps(&ep)
	if err != nil {
		return lmm.NewInternalError(op, err)
	}

	edges := make([]map[string]any, 0, len(ep.Edges))
	for _, edge := range ep.Edges {
		edges = append(edges, map[string]any{
			"to":         edge.ToEpisodeID,
			"type":       string(edge.Type),
			"confidence": edge.Confidence,
		})
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer lmm.CloseWithLog(ctx, session, s.logger, "session")

	_, err = session.Run(ctx, `
		MATCH (b:Braid {id: $braid_id})
		MERGE (e:Episode {id: $id, braid_id: $braid_id})
		WITH b, e
		FOREACH (_ IN CASE WHEN e.seq IS NULL THEN [1] ELSE [] END |
			SET e.seq = coalesce(b.next_episode_seq, 0),
			    b.next_episode_seq = coalesce(b.next_episode_seq, 0) + 1)
		SET e += $props
		WITH e
		OPTIONAL MATCH (e)-[r:EP_EDGE]->()
		DELETE r
		WITH DISTINCT e
		UNWIND $edges AS edge
		MERGE (t:Episode {id: edge.to, braid_id: $braid_id})
		MERGE (e)-[n:EP_EDGE {type: edge.type}]->(t)
		SET n.confidence = edge.confidence`,
		map[string]any{
			"braid_id": s.cfg.BraidID,
			"id":       ep.ID,
			"props":    props,
			"edges":    edges,
		})
	if err != nil {
		return lmm.NewStorageError(op, err)
	}
	if len(edges) > 0 {
		s.edgeRel = true
	}
	return nil
}

// GetEpisode returns the episode with its outgoing edges, or nil when it
// has never been upserted.
func (s *Store) GetEpisode(ctx context.Context, episodeID string) (*schema.Episode, error) {
	const op = "neo4jstore.GetEpisode"
	ctx, span := s.tracer.Start(ctx, op)
	defer span.End()

	if err := s.guard(op); err != nil {
		return nil, err
	}

	session := s.session(ctx, neo4j.AccessModeRead)
	defer lmm.CloseWithLog(ctx, session, s.logger, "session")

	return s.getEpisode(ctx, session, episodeID)
}

// getEpisode runs over an existing session so ActiveEpisode can reuse it.
func (s *Store) getEpisode(ctx context.Context, session neo4j.SessionWithContext, episodeID string) (*schema.Episode, error) {
	const op = "neo4jstore.GetEpisode"

	query := `
		MATCH (e:Episode {id: $id, braid_id: $braid_id})
		WHERE e.seq IS NOT NULL
		RETURN e, [] AS edges`
	if s.edgesExist(ctx, session) {
		query = `
			MATCH (e:Episode {id: $id, braid_id: $braid_id})
			WHERE e.seq IS NOT NULL
			OPTIONAL MATCH (e)-[r:EP_EDGE]->(t:Episode)
			RETURN e, collect({type: r.type, confidence: r.confidence, to: t.id}) AS edges`
	}

	result, err := session.Run(ctx, query, map[string]any{
		"id":       episodeID,
		"braid_id": s.cfg.BraidID,
	})
	if err != nil {
		return nil, lmm.NewStorageError(op, err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, lmm.NewStorageError(op, err)
		}
		return nil, nil
	}

	record := result.Record()
	props, err := nodeProps(record, "e")
	if err != nil {
		return nil, lmm.NewInternalError(op, err)
	}
	ep, err := episodeFromProps(props)
	if err != nil {
		return nil, lmm.NewInternalError(op, err)
	}
	ep.Edges = edgesFromRecord(record)
	return &ep, nil
}

// ListEpisodes returns up to limit episodes in first-upsert order,
// optionally filtered by state. Placeholder nodes created as edge targets
// are excluded.
func (s *Store) ListEpisodes(ctx context.Context, state schema.EpisodeState, limit int) ([]schema.Episode, error) {
	const op = "neo4jstore.ListEpisodes"
	ctx, span := s.tracer.Start(ctx, op)
	defer span.End()

	if err := s.guard(op); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []schema.Episode{}, nil
	}

	session := s.session(ctx, neo4j.AccessModeRead)
	defer lmm.CloseWithLog(ctx, session, s.logger, "session")

	query := `
		MATCH (e:Episode {braid_id: $braid_id})
		WHERE e.seq IS NOT NULL AND ($state = '' OR e.state = $state)
		RETURN e, [] AS edges
		ORDER BY e.seq DESC
		LIMIT $limit`
	if s.edgesExist(ctx, session) {
		query = `
			MATCH (e:Episode {braid_id: $braid_id})
			WHERE e.seq IS NOT NULL AND ($state = '' OR e.state = $state)
			OPTIONAL MATCH (e)-[r:EP_EDGE]->(t:Episode)
			RETURN e, collect({type: r.type, confidence: r.confidence, to: t.id}) AS edges
			ORDER BY e.seq DESC
			LIMIT $limit`
	}

	result, err := session.Run(ctx, query, map[string]any{
		"braid_id": s.cfg.BraidID,
		"state":    string(state),
		"limit":    limit,
	})
	if err != nil {
		return nil, lmm.NewStorageError(op, err)
	}

	var out []schema.Episode
	for result.Next(ctx) {
		record := result.Record()
		props, err := nodeProps(record, "e")
		if err != nil {
			return nil, lmm.NewInternalError(op, err)
		}
		ep, err := episodeFromProps(props)
		if err != nil {
			return nil, lmm.NewInternalError(op, err)
		}
		ep.Edges = edgesFromRecord(record)
		out = append(out, ep)
	}
	if err := result.Err(); err != nil {
		return nil, lmm.NewStorageError(op, err)
	}

	reverseSlice(out)
	if out == nil {
		out = []schema.Episode{}
	}
	return out, nil
}

// ActiveEpisode returns the braid's active episode, or nil when unset or
// when the pointer does not resolve.
func (s *Store) ActiveEpisode(ctx context.Context) (*schema.Episode, error) {
	const op = "neo4jstore.ActiveEpisode"
	ctx, span := s.tracer.Start(ctx, op)
	defer span.End()

	if err := s.guard(op); err != nil {
		return nil, err
	}

	session := s.session(ctx, neo4j.AccessModeRead)
	defer lmm.CloseWithLog(ctx, session, s.logger, "session")

	result, err := session.Run(ctx, `
		MATCH (b:Braid {id: $braid_id})
		RETURN b.active_episode_id AS id`,
		map[string]any{"braid_id": s.cfg.BraidID})
	if err != nil {
		return nil, lmm.NewStorageError(op, err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, lmm.NewStorageError(op, err)
		}
		return nil, nil
	}

	id, _ := result.Record().Get("id")
	episodeID, _ := id.(string)
	if episodeID == "" {
		return nil, nil
	}
	return s.getEpisode(ctx, session, episodeID)
}

// SetActiveEpisodeID marks the given episode as active for the braid. The
// pointer is not checked against the episode set.
func (s *Store) SetActiveEpisodeID(ctx context.Context, episodeID string) error {
	const op = "neo4jstore.SetActiveEpisodeID"
	ctx, span := s.tracer.Start(ctx, op)
	defer span.End()

	if err := s.guard(op); err != nil {
		return err
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer lmm.CloseWithLog(ctx, session, s.logger, "session")

	_, err := session.Run(ctx, `
		MATCH (b:Braid {id: $braid_id})
		SET b.active_episode_id = $episode_id`,
		map[string]any{
			"braid_id":   s.cfg.BraidID,
			"episode_id": episodeID,
		})
	if err != nil {
		return lmm.NewStorageError(op, err)
	}
	return nil
}

// Close releases the driver. Further operations fail with ErrStoreClosed.
// Close is idempotent.
func (s *Store) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.driver.Close(ctx); err != nil {
		return lmm.NewConnectionError("neo4jstore.Close", err)
	}
	return nil
}

// edgesExist reports whether the EP_EDGE relationship type exists in the
// database. Matching a relationship type the server has never seen raises
// a warning notification on every query; probing once avoids the noise.
// A positive answer is cached (relationship types are never dropped while
// a store is live; this store sets the flag itself on edge writes).
func (s *Store) edgesExist(ctx context.Context, session neo4j.SessionWithContext) bool {
	if s.edgeRel {
		return true
	}

	result, err := session.Run(ctx, "CALL db.relationshipTypes() YIELD relationshipType RETURN relationshipType", nil)
	if err != nil {
		s.logger.Debug("relationship type probe failed", "error", err)
		return false
	}
	for result.Next(ctx) {
		if name, ok := result.Record().Get("relationshipType"); ok {
			if name == "EP_EDGE" {
				s.edgeRel = true
				return true
			}
		}
	}
	return false
}

// nodeProps extracts the property map of a node column from a record.
func nodeProps(record *neo4j.Record, key string) (map[string]any, error) {
	val, ok := record.Get(key)
	if !ok {
		return nil, fmt.Errorf("record has no column %q", key)
	}
	node, ok := val.(neo4j.Node)
	if !ok {
		return nil, fmt.Errorf("column %q is %T, want node", key, val)
	}
	return node.Props, nil
}

// edgesFromRecord decodes the collected edge rows of an episode record.
func edgesFromRecord(record *neo4j.Record) []schema.EpisodeEdge {
	raw, ok := record.Get("edges")
	if !ok {
		return nil
	}
	rows, ok := raw.([]any)
	if !ok {
		return nil
	}

	var out []schema.EpisodeEdge
	for _, r := range rows {
		row, ok := r.(map[string]any)
		if !ok {
			continue
		}
		if edge, ok := edgeFromRow(row); ok {
			out = append(out, edge)
		}
	}
	return out
}

func reverseSlice[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[j], s[i] = s[i], s[j]
	}
}
