package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/skywatch/drone-ops/pkg/types"
)

// =============================================================================
// ACTION REQUESTS
// =============================================================================

// CreateActionRequest inserts a new action request in the pending state.
func (s *Store) CreateActionRequest(ctx context.Context, r *types.ActionRequest) error {
	payloadJSON, err := json.Marshal(r.Payload)
	if err != nil {
		return err
	}

	return s.pool.QueryRow(ctx, `
		INSERT INTO action_requests (incident_id, action_type, requested_by, payload, status, requested_at, updated_at)
		VALUES ($1, $2, $3, $4, 'pending', NOW(), NOW())
		RETURNING id, status, requested_at, updated_at
	`, r.IncidentID, r.ActionType, r.RequestedBy, payloadJSON,
	).Scan(&r.ID, &r.Status, &r.RequestedAt, &r.UpdatedAt)
}

// GetActionRequest retrieves a request by ID with its approvals populated.
func (s *Store) GetActionRequest(ctx context.Context, id int64) (*types.ActionRequest, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, incident_id, action_type, requested_by, payload, status, executed_by, requested_at, updated_at
		FROM action_requests WHERE id = $1
	`, id)

	req, err := scanActionRequest(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	approvals, err := s.ListActionApprovals(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Approvals = approvals
	return req, nil
}

// ActionRequestListParams filters GET /drone-ops/actions/requests.
type ActionRequestListParams struct {
	IncidentID *int64
	Status     types.ActionStatus
	Limit      int
}

// ListActionRequests returns requests, most recently requested first, with
// approvals populated on each.
func (s *Store) ListActionRequests(ctx context.Context, params ActionRequestListParams) ([]types.ActionRequest, error) {
	query := `
		SELECT id, incident_id, action_type, requested_by, payload, status, executed_by, requested_at, updated_at
		FROM action_requests
	`
	var conditions []string
	var args []any

	if params.IncidentID != nil {
		args = append(args, *params.IncidentID)
		conditions = append(conditions, fmt.Sprintf("incident_id = $%d", len(args)))
	}
	if params.Status != "" {
		args = append(args, params.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + joinAnd(conditions)
	}
	args = append(args, params.Limit)
	query += fmt.Sprintf(" ORDER BY requested_at DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []types.ActionRequest
	for rows.Next() {
		req, err := scanActionRequest(rows)
		if err != nil {
			return nil, err
		}
		approvals, err := s.ListActionApprovals(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		req.Approvals = approvals
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

// UpdateActionRequestStatus transitions a request's status, and on
// transition to executed also records executed_by.
func (s *Store) UpdateActionRequestStatus(ctx context.Context, id int64, status types.ActionStatus, executedBy string) error {
	if status == types.ActionExecuted {
		_, err := s.pool.Exec(ctx, `
			UPDATE action_requests SET status = $2, executed_by = $3, updated_at = NOW() WHERE id = $1
		`, id, status, executedBy)
		return err
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE action_requests SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	return err
}

func scanActionRequest(row rowScanner) (*types.ActionRequest, error) {
	var r types.ActionRequest
	var payloadJSON []byte
	var executedBy *string
	if err := row.Scan(&r.ID, &r.IncidentID, &r.ActionType, &r.RequestedBy, &payloadJSON, &r.Status, &executedBy, &r.RequestedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if executedBy != nil {
		r.ExecutedBy = *executedBy
	}
	if len(payloadJSON) > 0 {
		json.Unmarshal(payloadJSON, &r.Payload)
	}
	return &r, nil
}

// =============================================================================
// ACTION APPROVALS
// =============================================================================

// AddActionApproval records an approval decision. A unique index on
// action_approvals(request_id, lower(approved_by)) enforces at-most-one
// approval per approver per request; on conflict this is a no-op and the
// caller should treat the existing approval as authoritative.
func (s *Store) AddActionApproval(ctx context.Context, requestID int64, approval types.ActionApproval) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO action_approvals (request_id, approved_by, decision, notes, decided_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (request_id, lower(approved_by)) DO NOTHING
	`, requestID, approval.ApprovedBy, approval.Decision, approval.Notes)
	return err
}

// HasActionApproval reports whether approver has already decided on request,
// case-insensitively.
func (s *Store) HasActionApproval(ctx context.Context, requestID int64, approver string) (bool, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM action_approvals WHERE request_id = $1 AND lower(approved_by) = lower($2)
	`, requestID, approver).Scan(&count)
	return count > 0, err
}

// ListActionApprovals returns all approvals for a request, in decision order.
func (s *Store) ListActionApprovals(ctx context.Context, requestID int64) ([]types.ActionApproval, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT approved_by, decision, notes, decided_at
		FROM action_approvals WHERE request_id = $1 ORDER BY decided_at ASC
	`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var approvals []types.ActionApproval
	for rows.Next() {
		var a types.ActionApproval
		var notes *string
		if err := rows.Scan(&a.ApprovedBy, &a.Decision, &notes, &a.DecidedAt); err != nil {
			return nil, err
		}
		if notes != nil {
			a.Notes = *notes
		}
		approvals = append(approvals, a)
	}
	return approvals, rows.Err()
}

// =============================================================================
// ACTION AUDIT LOG
// =============================================================================

// AddActionAuditLog appends one audit entry. Every state transition in the
// action workflow must produce exactly one of these.
func (s *Store) AddActionAuditLog(ctx context.Context, entry *types.ActionAuditLog) error {
	detailsJSON, err := json.Marshal(entry.Details)
	if err != nil {
		return err
	}

	return s.pool.QueryRow(ctx, `
		INSERT INTO action_audit_log (request_id, event_type, actor, details, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`, entry.RequestID, entry.EventType, entry.Actor, detailsJSON,
	).Scan(&entry.ID, &entry.CreatedAt)
}

// ListActionAuditLogs returns audit entries for a request (or all requests
// when requestID is nil), oldest first, bounded by limit.
func (s *Store) ListActionAuditLogs(ctx context.Context, requestID *int64, limit int) ([]types.ActionAuditLog, error) {
	query := `
		SELECT id, request_id, event_type, actor, details, created_at
		FROM action_audit_log
	`
	args := []any{}
	if requestID != nil {
		args = append(args, *requestID)
		query += fmt.Sprintf(" WHERE request_id = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at ASC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []types.ActionAuditLog
	for rows.Next() {
		var e types.ActionAuditLog
		var detailsJSON []byte
		if err := rows.Scan(&e.ID, &e.RequestID, &e.EventType, &e.Actor, &detailsJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(detailsJSON) > 0 {
			json.Unmarshal(detailsJSON, &e.Details)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
