// Package config provides configuration constants for the control plane.
//
// This package centralizes hardcoded values that were previously scattered
// throughout the codebase, making them easier to find, modify, and test.
package config

import "time"

// Arming bounds for the policy engine.
const (
	// MinArmDuration is the shortest duration an operator may arm the
	// action plane for.
	MinArmDuration = 60 * time.Second

	// MaxArmDuration is the longest duration an operator may arm the
	// action plane for.
	MaxArmDuration = 7200 * time.Second

	// DefaultArmDuration is used when duration_seconds is omitted or not
	// an integer.
	DefaultArmDuration = 900 * time.Second
)

// Event bus configuration.
const (
	// SubscriberQueueCapacity bounds each SSE subscriber's pending-event
	// queue before oldest-drop kicks in.
	SubscriberQueueCapacity = 500

	// StreamKeepaliveInterval is how long a subscriber's queue may sit
	// empty before a keepalive envelope is sent.
	StreamKeepaliveInterval = 15 * time.Second
)

// Pagination defaults for API list endpoints.
const (
	// DefaultPaginationLimit is the default number of items returned
	// when no limit is specified.
	DefaultPaginationLimit = 50

	// MaxPaginationLimit is the maximum number of items that can be
	// requested for most list endpoints.
	MaxPaginationLimit = 500

	// MaxDetectionPaginationLimit is the wider cap for /drone-ops/detections.
	MaxDetectionPaginationLimit = 5000

	// MaxAuditPaginationLimit is the wider cap for /drone-ops/actions/audit.
	MaxAuditPaginationLimit = 2000

	// StatusCountCap bounds the counts reported by GET /drone-ops/status
	// and the synthesized stop_session summary.
	StatusCountCap = 1000
)

// Evidence manifest defaults.
const (
	// MaxAuditEntriesPerRequest bounds how many audit rows the manifest
	// builder pulls per action request.
	MaxAuditEntriesPerRequest = 500

	// DefaultHashAlgorithm is the only supported manifest digest algorithm.
	DefaultHashAlgorithm = "sha256"
)

// Correlation refresh defaults.
const (
	// DefaultCorrelationMinConfidence is used when a caller omits
	// min_confidence on GET /drone-ops/correlations.
	DefaultCorrelationMinConfidence = 0.6

	// KnownDetectionConfidenceFloor is the minimum detection confidence
	// for an identifier to count as "known" during correlation refresh.
	KnownDetectionConfidenceFloor = 0.5
)

// Rate limiting for ingest and outbound correlation calls.
const (
	// IngestRateLimitPerSecond bounds POST /drone-ops/ingest across all
	// callers (one server-wide limiter).
	IngestRateLimitPerSecond = 20
	IngestRateLimitBurst     = 40

	// CorrelationRateLimitPerSecond bounds outbound calls to the
	// correlation collaborator.
	CorrelationRateLimitPerSecond = 5
	CorrelationRateLimitBurst     = 10
)

// Database and cache connection configuration.
const (
	// DatabasePingTimeout is the timeout for database connectivity checks.
	DatabasePingTimeout = 5 * time.Second

	// RedisConnectionTimeout is the timeout for Redis connectivity checks.
	RedisConnectionTimeout = 5 * time.Second

	// DeviceCacheSnapshotTTL is how long a device cache snapshot used for
	// correlation refresh is considered fresh; it is never assumed stable
	// across calls regardless of TTL.
	DeviceCacheSnapshotTTL = 60 * time.Second

	// CorrelationsCacheTTL is the TTL for the cached response of
	// GET /drone-ops/correlations when refresh=false.
	CorrelationsCacheTTL = 10 * time.Second
)
