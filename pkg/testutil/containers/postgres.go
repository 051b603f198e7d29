//go:build integration

// Package containers starts throwaway infrastructure for integration tests.
package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Schema is applied once per container. Kept in one place so integration
// tests and deployment migrations cannot drift apart silently.
const Schema = `
CREATE TABLE IF NOT EXISTS contact_edges (
    id UUID PRIMARY KEY,
    owner_graph_id TEXT NOT NULL,
    partner_graph_id TEXT NOT NULL,
    partner_display_name TEXT NOT NULL DEFAULT '',
    recorded_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS contact_edges_partner_time_idx
    ON contact_edges (partner_graph_id, recorded_at DESC);

CREATE TABLE IF NOT EXISTS directory_users (
    graph_id TEXT PRIMARY KEY,
    notification_id TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL DEFAULT '',
    push_token TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS notifications (
    id UUID PRIMARY KEY,
    report_id TEXT NOT NULL,
    recipient_id TEXT NOT NULL,
    hop_depth INT NOT NULL,
    condition_labels TEXT[],
    exposed_at TIMESTAMPTZ,
    chain JSONB NOT NULL,
    paths JSONB NOT NULL,
    chain_members TEXT[] NOT NULL,
    is_read BOOLEAN NOT NULL DEFAULT FALSE,
    received_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    UNIQUE (report_id, recipient_id)
);
CREATE INDEX IF NOT EXISTS notifications_recipient_idx ON notifications (recipient_id);
CREATE INDEX IF NOT EXISTS notifications_chain_members_idx ON notifications USING GIN (chain_members);

CREATE TABLE IF NOT EXISTS reports (
    id UUID PRIMARY KEY,
    owner_report_id TEXT NOT NULL,
    reporter_graph_id TEXT NOT NULL,
    reporter_display_name TEXT NOT NULL DEFAULT '',
    condition_labels JSONB,
    test_date TIMESTAMPTZ NOT NULL,
    status TEXT NOT NULL,
    privacy_level TEXT NOT NULL,
    linked_report_id UUID,
    notified_count INT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS reports_owner_idx ON reports (owner_report_id, created_at DESC);
`

// PostgresContainer wraps a testcontainers Postgres instance with the schema
// applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("chainalert_test"),
		tcpostgres.WithUsername("chainalert"),
		tcpostgres.WithPassword("chainalert"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	pc := &PostgresContainer{Container: container, DSN: dsn, DB: db}
	t.Cleanup(func() {
		_ = db.Close()
		_ = container.Terminate(context.Background())
	})
	return pc
}

// TruncateTables clears the given tables between tests.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := p.DB.ExecContext(ctx,
		fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(tables, ", ")))
	return err
}
