package contact

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	txcontext "chainalert/pkg/platform/tx"
)

// PostgresStore persists contact edges.
//
// Expected schema:
//
//	CREATE TABLE contact_edges (
//	    id UUID PRIMARY KEY,
//	    owner_graph_id TEXT NOT NULL,
//	    partner_graph_id TEXT NOT NULL,
//	    partner_display_name TEXT NOT NULL DEFAULT '',
//	    recorded_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX contact_edges_partner_time_idx
//	    ON contact_edges (partner_graph_id, recorded_at DESC);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, edge Edge) error {
	if edge.ID == "" {
		edge.ID = uuid.NewString()
	}
	query := `
		INSERT INTO contact_edges (id, owner_graph_id, partner_graph_id, partner_display_name, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		edge.ID,
		edge.OwnerGraphID,
		edge.PartnerGraphID,
		edge.PartnerDisplayName,
		edge.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert contact edge: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByPartner(ctx context.Context, partnerGraphID string, from, to time.Time) ([]Edge, error) {
	query := `
		SELECT id, owner_graph_id, partner_graph_id, partner_display_name, recorded_at
		FROM contact_edges
		WHERE partner_graph_id = $1 AND recorded_at >= $2 AND recorded_at <= $3
		ORDER BY recorded_at DESC
	`
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, partnerGraphID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query contact edges: %w", err)
	}
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.ID, &e.OwnerGraphID, &e.PartnerGraphID, &e.PartnerDisplayName, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan contact edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contact edges: %w", err)
	}
	return edges, nil
}

func (s *PostgresStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx,
		`DELETE FROM contact_edges WHERE recorded_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired contact edges: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired contact edges rows affected: %w", err)
	}
	return int(affected), nil
}
