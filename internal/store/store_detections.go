package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/skywatch/drone-ops/pkg/types"
)

// =============================================================================
// DETECTIONS
// =============================================================================

// UpsertDroneDetection inserts or refreshes a detection keyed on
// (session_id, source, identifier). An existing row has its last_seen bumped
// and its confidence widened to the max of old and new; payload and
// classification are replaced with the latest observation.
func (s *Store) UpsertDroneDetection(ctx context.Context, d *types.Detection) error {
	payloadJSON, err := json.Marshal(d.Payload)
	if err != nil {
		return err
	}
	remoteIDJSON, err := json.Marshal(d.RemoteID)
	if err != nil {
		return err
	}

	return s.pool.QueryRow(ctx, `
		INSERT INTO drone_detections
			(session_id, source, identifier, classification, confidence, payload, remote_id, first_seen, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (session_id, source, identifier) DO UPDATE SET
			classification = EXCLUDED.classification,
			confidence = GREATEST(drone_detections.confidence, EXCLUDED.confidence),
			payload = EXCLUDED.payload,
			remote_id = EXCLUDED.remote_id,
			last_seen = NOW()
		RETURNING id, confidence, first_seen, last_seen
	`, d.SessionID, d.Source, d.Identifier, d.Classification, d.Confidence, payloadJSON, remoteIDJSON,
	).Scan(&d.ID, &d.Confidence, &d.FirstSeen, &d.LastSeen)
}

// GetDroneDetection retrieves a detection by ID.
func (s *Store) GetDroneDetection(ctx context.Context, id int64) (*types.Detection, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, session_id, source, identifier, classification, confidence, payload, remote_id, first_seen, last_seen
		FROM drone_detections WHERE id = $1
	`, id)
	detection, err := scanDetection(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return detection, err
}

// DetectionListParams filters GET /drone-ops/detections.
type DetectionListParams struct {
	SessionID     *int64
	Source        string
	MinConfidence float64
	Limit         int
}

// ListDroneDetections returns detections matching the given filters, most
// recently seen first.
func (s *Store) ListDroneDetections(ctx context.Context, params DetectionListParams) ([]types.Detection, error) {
	query := `
		SELECT id, session_id, source, identifier, classification, confidence, payload, remote_id, first_seen, last_seen
		FROM drone_detections
		WHERE confidence >= $1
	`
	args := []any{params.MinConfidence}

	if params.SessionID != nil {
		args = append(args, *params.SessionID)
		query += fmt.Sprintf(" AND session_id = $%d", len(args))
	}
	if params.Source != "" {
		args = append(args, params.Source)
		query += fmt.Sprintf(" AND source = $%d", len(args))
	}

	args = append(args, params.Limit)
	query += fmt.Sprintf(" ORDER BY last_seen DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var detections []types.Detection
	for rows.Next() {
		detection, err := scanDetection(rows)
		if err != nil {
			return nil, err
		}
		detections = append(detections, *detection)
	}
	return detections, rows.Err()
}

func scanDetection(row rowScanner) (*types.Detection, error) {
	var d types.Detection
	var sessionID *int64
	var payloadJSON, remoteIDJSON []byte
	if err := row.Scan(
		&d.ID, &sessionID, &d.Source, &d.Identifier, &d.Classification, &d.Confidence,
		&payloadJSON, &remoteIDJSON, &d.FirstSeen, &d.LastSeen,
	); err != nil {
		return nil, err
	}
	d.SessionID = sessionID
	if len(payloadJSON) > 0 {
		json.Unmarshal(payloadJSON, &d.Payload)
	}
	if len(remoteIDJSON) > 0 && string(remoteIDJSON) != "null" {
		d.RemoteID = &types.RemoteIDRecord{}
		json.Unmarshal(remoteIDJSON, d.RemoteID)
	}
	return &d, nil
}

// =============================================================================
// TRACKS
// =============================================================================

// AppendDroneTrack inserts a track point. Callers must only call this when
// lat and lon are both present; the store does not enforce that.
func (s *Store) AppendDroneTrack(ctx context.Context, t *types.Track) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO drone_tracks (detection_id, lat, lon, altitude_m, speed_mps, heading_deg, quality, source, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id, timestamp
	`, t.DetectionID, t.Lat, t.Lon, t.AltitudeM, t.SpeedMPS, t.HeadingDeg, t.Quality, t.Source,
	).Scan(&t.ID, &t.Timestamp)
}

// TrackListParams filters GET /drone-ops/tracks.
type TrackListParams struct {
	DetectionID *int64
	Identifier  string
	Limit       int
}

// ListDroneTracks returns track points, most recent first. When Identifier
// is set, it joins against drone_detections to filter by identifier.
func (s *Store) ListDroneTracks(ctx context.Context, params TrackListParams) ([]types.Track, error) {
	query := `
		SELECT t.id, t.detection_id, t.lat, t.lon, t.altitude_m, t.speed_mps, t.heading_deg, t.quality, t.source, t.timestamp
		FROM drone_tracks t
	`
	var conditions []string
	var args []any

	if params.Identifier != "" {
		query += " JOIN drone_detections d ON d.id = t.detection_id"
		args = append(args, params.Identifier)
		conditions = append(conditions, fmt.Sprintf("d.identifier = $%d", len(args)))
	}
	if params.DetectionID != nil {
		args = append(args, *params.DetectionID)
		conditions = append(conditions, fmt.Sprintf("t.detection_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + joinAnd(conditions)
	}

	args = append(args, params.Limit)
	query += fmt.Sprintf(" ORDER BY t.timestamp DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []types.Track
	for rows.Next() {
		var t types.Track
		if err := rows.Scan(&t.ID, &t.DetectionID, &t.Lat, &t.Lon, &t.AltitudeM, &t.SpeedMPS, &t.HeadingDeg, &t.Quality, &t.Source, &t.Timestamp); err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

func joinAnd(conditions []string) string {
	out := conditions[0]
	for _, c := range conditions[1:] {
		out += " AND " + c
	}
	return out
}
