package neo4jstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/elyra-labs/lmm/schema"
)

// tsLayout is RFC 3339 with fixed-width nanoseconds. Fixed width keeps the
// stored strings lexicographically ordered by instant, which ORDER BY
// relies on. All stored timestamps are UTC.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// marshalJSON encodes v for storage in a *_json node property. nil values
// encode as "null" so absent structures round-trip to nil.
func marshalJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode property: %w", err)
	}
	return string(data), nil
}

func unmarshalJSON(s string, out any) error {
	if s == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), out); err != nil {
		return fmt.Errorf("decode property: %w", err)
	}
	return nil
}

// deltaToProps flattens a delta into node properties. Scalar fields become
// plain properties; structured fields are stored as JSON strings so the
// delta round-trips losslessly.
func deltaToProps(d *schema.Delta) (map[string]any, error) {
	provJSON, err := marshalJSON(d.Provenance)
	if err != nil {
		return nil, err
	}
	payloadJSON, err := marshalJSON(d.Payload)
	if err != nil {
		return nil, err
	}
	refsJSON, err := marshalJSON(d.Refs)
	if err != nil {
		return nil, err
	}
	tagsJSON, err := marshalJSON(d.Tags)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":              d.ID,
		"braid_id":        d.BraidID,
		"kind":            string(d.Kind),
		"ts":              formatTS(d.TS),
		"provenance_json": provJSON,
		"confidence":      d.Confidence,
		"payload_json":    payloadJSON,
		"refs_json":       refsJSON,
		"tags_json":       tagsJSON,
	}, nil
}

func deltaFromProps(props map[string]any) (schema.Delta, error) {
	d := schema.Delta{
		ID:         getString(props, "id"),
		BraidID:    getString(props, "braid_id"),
		Kind:       schema.DeltaKind(getString(props, "kind")),
		Confidence: getFloat(props, "confidence"),
	}

	ts, err := parseTS(getString(props, "ts"))
	if err != nil {
		return schema.Delta{}, err
	}
	d.TS = ts

	if err := unmarshalJSON(getString(props, "provenance_json"), &d.Provenance); err != nil {
		return schema.Delta{}, err
	}
	if err := unmarshalJSON(getString(props, "payload_json"), &d.Payload); err != nil {
		return schema.Delta{}, err
	}
	if err := unmarshalJSON(getString(props, "refs_json"), &d.Refs); err != nil {
		return schema.Delta{}, err
	}
	if err := unmarshalJSON(getString(props, "tags_json"), &d.Tags); err != nil {
		return schema.Delta{}, err
	}
	return d, nil
}

func knotToProps(k *schema.Knot) (map[string]any, error) {
	watermarkJSON, err := marshalJSON(k.InboxWatermark)
	if err != nil {
		return nil, err
	}
	arrivalsJSON, err := marshalJSON(k.ArrivalsDuring)
	if err != nil {
		return nil, err
	}
	thoughtRefJSON, err := marshalJSON(k.ThoughtSummaryBeadRef)
	if err != nil {
		return nil, err
	}
	plannedJSON, err := marshalJSON(k.PlannedTools)
	if err != nil {
		return nil, err
	}
	executedJSON, err := marshalJSON(k.ExecutedTools)
	if err != nil {
		return nil, err
	}
	hypothesesJSON, err := marshalJSON(k.Hypotheses)
	if err != nil {
		return nil, err
	}
	metricsJSON, err := marshalJSON(k.Metrics)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":                   k.ID,
		"braid_id":             k.BraidID,
		"primary_episode_id":   k.PrimaryEpisodeID,
		"start_ts":             formatTS(k.StartTS),
		"end_ts":               formatTS(k.EndTS),
		"start_delta_id":       k.DeltaRange.StartDeltaID,
		"end_delta_id":         k.DeltaRange.EndDeltaID,
		"inbox_watermark_json": watermarkJSON,
		"arrivals_json":        arrivalsJSON,
		"summary":              k.Summary,
		"thought_ref_json":     thoughtRefJSON,
		"planned_tools_json":   plannedJSON,
		"executed_tools_json":  executedJSON,
		"hypotheses_json":      hypothesesJSON,
		"metrics_json":         metricsJSON,
	}, nil
}

func knotFromProps(props map[string]any) (schema.Knot, error) {
	k := schema.Knot{
		ID:               getString(props, "id"),
		BraidID:          getString(props, "braid_id"),
		PrimaryEpisodeID: getString(props, "primary_episode_id"),
		DeltaRange: schema.DeltaRange{
			StartDeltaID: getString(props, "start_delta_id"),
			EndDeltaID:   getString(props, "end_delta_id"),
		},
		Summary: getString(props, "summary"),
	}

	var err error
	if k.StartTS, err = parseTS(getString(props, "start_ts")); err != nil {
		return schema.Knot{}, err
	}
	if k.EndTS, err = parseTS(getString(props, "end_ts")); err != nil {
		return schema.Knot{}, err
	}

	if err := unmarshalJSON(getString(props, "inbox_watermark_json"), &k.InboxWatermark); err != nil {
		return schema.Knot{}, err
	}
	if err := unmarshalJSON(getString(props, "arrivals_json"), &k.ArrivalsDuring); err != nil {
		return schema.Knot{}, err
	}
	if err := unmarshalJSON(getString(props, "thought_ref_json"), &k.ThoughtSummaryBeadRef); err != nil {
		return schema.Knot{}, err
	}
	if err := unmarshalJSON(getString(props, "planned_tools_json"), &k.PlannedTools); err != nil {
		return schema.Knot{}, err
	}
	if err := unmarshalJSON(getString(props, "executed_tools_json"), &k.ExecutedTools); err != nil {
		return schema.Knot{}, err
	}
	if err := unmarshalJSON(getString(props, "hypotheses_json"), &k.Hypotheses); err != nil {
		return schema.Knot{}, err
	}
	if err := unmarshalJSON(getString(props, "metrics_json"), &k.Metrics); err != nil {
		return schema.Knot{}, err
	}
	return k, nil
}

func beadVersionFromProps(props map[string]any) (schema.BeadVersion, error) {
	v := schema.BeadVersion{
		ID:     getString(props, "id"),
		BeadID: getString(props, "bead_id"),
		Type:   schema.BeadType(getString(props, "type")),
	}

	ts, err := parseTS(getString(props, "created_ts"))
	if err != nil {
		return schema.BeadVersion{}, err
	}
	v.CreatedTS = ts

	if err := unmarshalJSON(getString(props, "data_json"), &v.Data); err != nil {
		return schema.BeadVersion{}, err
	}
	return v, nil
}

func episodeToProps(ep *schema.Episode) (map[string]any, error) {
	labelsJSON, err := marshalJSON(ep.Labels)
	if err != nil {
		return nil, err
	}
	spanJSON, err := marshalJSON(ep.PrimaryKnotSpan)
	if err != nil {
		return nil, err
	}
	knotRefsJSON, err := marshalJSON(ep.KnotRefs)
	if err != nil {
		return nil, err
	}
	summaryJSON, err := marshalJSON(ep.SummaryCache)
	if err != nil {
		return nil, err
	}
	quotesJSON, err := marshalJSON(ep.AnchorQuotes)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"state":                  string(ep.State),
		"labels_json":            labelsJSON,
		"primary_knot_span_json": spanJSON,
		"knot_refs_json":         knotRefsJSON,
		"summary_cache_json":     summaryJSON,
		"anchor_quotes_json":     quotesJSON,
	}, nil
}

// episodeFromProps restores an episode's node-local fields. Edges live on
// EP_EDGE relationships and are attached separately.
func episodeFromProps(props map[string]any) (schema.Episode, error) {
	ep := schema.Episode{
		ID:      getString(props, "id"),
		BraidID: getString(props, "braid_id"),
		State:   schema.EpisodeState(getString(props, "state")),
	}

	if err := unmarshalJSON(getString(props, "labels_json"), &ep.Labels); err != nil {
		return schema.Episode{}, err
	}
	if err := unmarshalJSON(getString(props, "primary_knot_span_json"), &ep.PrimaryKnotSpan); err != nil {
		return schema.Episode{}, err
	}
	if err := unmarshalJSON(getString(props, "knot_refs_json"), &ep.KnotRefs); err != nil {
		return schema.Episode{}, err
	}
	if err := unmarshalJSON(getString(props, "summary_cache_json"), &ep.SummaryCache); err != nil {
		return schema.Episode{}, err
	}
	if err := unmarshalJSON(getString(props, "anchor_quotes_json"), &ep.AnchorQuotes); err != nil {
		return schema.Episode{}, err
	}
	return ep, nil
}

// edgeFromRow restores an edge from the {type, confidence, to} map shape
// returned by the edge-collect queries. Rows produced by an OPTIONAL MATCH
// that found nothing decode to ok=false.
func edgeFromRow(row map[string]any) (schema.EpisodeEdge, bool) {
	to, _ := row["to"].(string)
	if to == "" {
		return schema.EpisodeEdge{}, false
	}
	typ, _ := row["type"].(string)
	return schema.EpisodeEdge{
		Type:        schema.EpisodeEdgeType(typ),
		ToEpisodeID: to,
		Confidence:  getFloat(row, "confidence"),
	}, true
}

func getString(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return s
}

// getFloat tolerates both the driver's int64 and float64 number types.
func getFloat(props map[string]any, key string) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	default:
		return 0
	}
}
