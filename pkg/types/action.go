package types

import "time"

// ActionStatus is the action-request workflow state. pending -> approved ->
// executed, with rejected a terminal sink reachable only from pending.
type ActionStatus string

const (
	ActionPending  ActionStatus = "pending"
	ActionApproved ActionStatus = "approved"
	ActionRejected ActionStatus = "rejected"
	ActionExecuted ActionStatus = "executed"
)

// ApprovalDecision is what an approver recorded for a request.
type ApprovalDecision string

const (
	DecisionApproved ApprovalDecision = "approved"
	DecisionRejected ApprovalDecision = "rejected"
)

// ActionApproval is one approver's decision on a request. At most one
// approval per approver per request, compared case-insensitively.
type ActionApproval struct {
	ApprovedBy string           `json:"approved_by"`
	Decision   ApprovalDecision `json:"decision"`
	Notes      string           `json:"notes,omitempty"`
	DecidedAt  time.Time        `json:"decided_at"`
}

// ActionRequest is a proposed response action against an incident, gated by
// approval quorum and the policy engine's armed state before it may execute.
type ActionRequest struct {
	ID          int64            `json:"id"`
	IncidentID  int64            `json:"incident_id"`
	ActionType  string           `json:"action_type"`
	RequestedBy string           `json:"requested_by"`
	Payload     map[string]any   `json:"payload,omitempty"`
	Status      ActionStatus     `json:"status"`
	Approvals   []ActionApproval `json:"approvals"`
	ExecutedBy  string           `json:"executed_by,omitempty"`
	RequestedAt time.Time        `json:"requested_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ApprovedCount returns the number of distinct approvers who decided
// ApprovalDecision == DecisionApproved.
func (r *ActionRequest) ApprovedCount() int {
	n := 0
	for _, a := range r.Approvals {
		if a.Decision == DecisionApproved {
			n++
		}
	}
	return n
}

// AuditEventType enumerates the action-audit-log event kinds. Every
// state transition of an ActionRequest writes exactly one entry.
type AuditEventType string

const (
	AuditRequested AuditEventType = "requested"
	AuditApproval  AuditEventType = "approval"
	AuditExecuted  AuditEventType = "executed"
)

// ActionAuditLog is one append-only entry in an action request's history.
type ActionAuditLog struct {
	ID        int64          `json:"id"`
	RequestID int64          `json:"request_id"`
	EventType AuditEventType `json:"event_type"`
	Actor     string         `json:"actor"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
