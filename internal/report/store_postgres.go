package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"chainalert/pkg/platform/sentinel"
	txcontext "chainalert/pkg/platform/tx"
)

// PostgresStore persists reports.
//
// Expected schema:
//
//	CREATE TABLE reports (
//	    id UUID PRIMARY KEY,
//	    owner_report_id TEXT NOT NULL,
//	    reporter_graph_id TEXT NOT NULL,
//	    reporter_display_name TEXT NOT NULL DEFAULT '',
//	    condition_labels JSONB,
//	    test_date TIMESTAMPTZ NOT NULL,
//	    status TEXT NOT NULL,
//	    privacy_level TEXT NOT NULL,
//	    linked_report_id UUID,
//	    notified_count INT NOT NULL DEFAULT 0,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//	CREATE INDEX reports_owner_idx ON reports (owner_report_id, created_at DESC);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, r Report) error {
	query := `
		INSERT INTO reports (id, owner_report_id, reporter_graph_id, reporter_display_name,
			condition_labels, test_date, status, privacy_level, linked_report_id, notified_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, '')::uuid, $10, $11)
	`
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		r.ID,
		r.OwnerReportID,
		r.ReporterGraphID,
		r.ReporterDisplayName,
		nullableJSON(r.ConditionLabelsJSON),
		r.TestDate,
		string(r.Status),
		r.PrivacyLevel,
		r.LinkedReportID,
		r.NotifiedCount,
		r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (Report, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, selectReport+` WHERE id = $1`, id)
	return scanReport(row)
}

func (s *PostgresStore) FindByOwner(ctx context.Context, ownerReportID string) ([]Report, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx,
		selectReport+` WHERE owner_report_id = $1 ORDER BY created_at DESC`, ownerReportID)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}

func (s *PostgresStore) SetNotifiedCount(ctx context.Context, id string, count int) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx,
		`UPDATE reports SET notified_count = $2 WHERE id = $1`, id, count)
	if err != nil {
		return fmt.Errorf("update report notified count: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("report rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const selectReport = `
	SELECT id, owner_report_id, reporter_graph_id, reporter_display_name,
		COALESCE(condition_labels::text, ''), test_date, status, privacy_level,
		COALESCE(linked_report_id::text, ''), notified_count, created_at
	FROM reports
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (Report, error) {
	var r Report
	var status string
	err := row.Scan(
		&r.ID,
		&r.OwnerReportID,
		&r.ReporterGraphID,
		&r.ReporterDisplayName,
		&r.ConditionLabelsJSON,
		&r.TestDate,
		&status,
		&r.PrivacyLevel,
		&r.LinkedReportID,
		&r.NotifiedCount,
		&r.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Report{}, fmt.Errorf("scan report: %w", err)
	}
	r.Status = Status(status)
	return r, nil
}

// nullableJSON maps an absent labels payload to SQL NULL instead of an
// unparseable empty string.
func nullableJSON(raw string) any {
	if raw == "" {
		return nil
	}
	return raw
}
