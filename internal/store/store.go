// Package store provides database access for the control plane.
//
// # Design
//
// The store uses raw SQL with pgx; the ten tables it owns are enumerated
// in the package-level comment on Store. Complex aggregation (manifest
// assembly, correlation dedup) happens in Go over rows fetched here rather
// than in database functions, since the core's determinism and audit
// guarantees need to live next to the code that tests them.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations over the control plane's ten tables:
// drone_sessions, drone_detections, drone_tracks, drone_correlations,
// drone_incidents, drone_incident_artifacts, action_requests,
// action_approvals, action_audit_log, evidence_manifests.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new store with the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// NewStoreFromURL creates a new store by connecting to the given database URL.
func NewStoreFromURL(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping tests database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Pool returns the underlying connection pool for advanced operations.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}
