package notification

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"chainalert/pkg/platform/sentinel"
)

// PostgresStore persists notification entries. Upsert serializes concurrent
// merges on one (report_id, recipient_id) key with a row lock, which is what
// makes converging BFS branches safe without losing updates.
//
// Expected schema:
//
//	CREATE TABLE notifications (
//	    id UUID PRIMARY KEY,
//	    report_id TEXT NOT NULL,
//	    recipient_id TEXT NOT NULL,
//	    hop_depth INT NOT NULL,
//	    condition_labels TEXT[],
//	    exposed_at TIMESTAMPTZ,
//	    chain JSONB NOT NULL,
//	    paths JSONB NOT NULL,
//	    chain_members TEXT[] NOT NULL,
//	    is_read BOOLEAN NOT NULL DEFAULT FALSE,
//	    received_at TIMESTAMPTZ NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL,
//	    UNIQUE (report_id, recipient_id)
//	);
//	CREATE INDEX notifications_chain_members_idx ON notifications USING GIN (chain_members);
//	CREATE INDEX notifications_recipient_idx ON notifications (recipient_id);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const entryColumns = `id, report_id, recipient_id, hop_depth, condition_labels, exposed_at,
	chain, paths, chain_members, is_read, received_at, updated_at`

func (s *PostgresStore) FindByID(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM notifications WHERE id = $1`, id)
	return scanEntry(row)
}

func (s *PostgresStore) FindByReportAndRecipient(ctx context.Context, reportID, recipientID string) (Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM notifications WHERE report_id = $1 AND recipient_id = $2`,
		reportID, recipientID)
	return scanEntry(row)
}

func (s *PostgresStore) FindByRecipient(ctx context.Context, recipientID string) ([]Entry, error) {
	return s.findMany(ctx,
		`SELECT `+entryColumns+` FROM notifications WHERE recipient_id = $1 ORDER BY received_at DESC`,
		recipientID)
}

func (s *PostgresStore) FindByChainMember(ctx context.Context, chainHash string) ([]Entry, error) {
	return s.findMany(ctx,
		`SELECT `+entryColumns+` FROM notifications WHERE chain_members @> ARRAY[$1]`,
		chainHash)
}

func (s *PostgresStore) Upsert(ctx context.Context, entry Entry) (Entry, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, false, fmt.Errorf("begin notification upsert: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM notifications
		 WHERE report_id = $1 AND recipient_id = $2 FOR UPDATE`,
		entry.ReportID, entry.RecipientID)
	existing, err := scanEntry(row)

	switch {
	case err == nil:
		now := time.Now()
		if existing.Merge(entry, now) {
			if err := updateRow(ctx, tx, existing); err != nil {
				return Entry{}, false, err
			}
		}
		if err := tx.Commit(); err != nil {
			return Entry{}, false, fmt.Errorf("commit notification merge: %w", err)
		}
		return existing, false, nil

	case errors.Is(err, sentinel.ErrNotFound):
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		now := time.Now()
		if entry.ReceivedAt.IsZero() {
			entry.ReceivedAt = now
		}
		entry.UpdatedAt = now
		inserted, err := insertRow(ctx, tx, entry)
		if err != nil {
			return Entry{}, false, err
		}
		if !inserted {
			// A concurrent branch inserted first; retry as a merge.
			if err := tx.Commit(); err != nil {
				return Entry{}, false, fmt.Errorf("commit lost insert race: %w", err)
			}
			return s.Upsert(ctx, entry)
		}
		if err := tx.Commit(); err != nil {
			return Entry{}, false, fmt.Errorf("commit notification insert: %w", err)
		}
		return entry, true, nil

	default:
		return Entry{}, false, err
	}
}

func (s *PostgresStore) Mutate(ctx context.Context, id string, mutate func(*Entry) bool) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin notification mutate: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM notifications WHERE id = $1 FOR UPDATE`, id)
	entry, err := scanEntry(row)
	if err != nil {
		return false, err
	}
	if !mutate(&entry) {
		return false, nil
	}
	entry.UpdatedAt = time.Now()
	if err := updateRow(ctx, tx, entry); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit notification mutate: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) MarkRead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark read rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) findMany(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return entries, nil
}

func insertRow(ctx context.Context, tx *sql.Tx, entry Entry) (bool, error) {
	chainJSON, pathsJSON, err := marshalChains(entry)
	if err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO notifications (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (report_id, recipient_id) DO NOTHING
	`,
		entry.ID, entry.ReportID, entry.RecipientID, entry.HopDepth,
		pq.Array(entry.ConditionLabels), entry.ExposedAt,
		chainJSON, pathsJSON, pq.Array(entry.ChainMembers()),
		entry.IsRead, entry.ReceivedAt, entry.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert notification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert notification rows affected: %w", err)
	}
	return affected == 1, nil
}

func updateRow(ctx context.Context, tx *sql.Tx, entry Entry) error {
	chainJSON, pathsJSON, err := marshalChains(entry)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE notifications
		SET hop_depth = $2, chain = $3, paths = $4, chain_members = $5,
		    is_read = $6, updated_at = $7
		WHERE id = $1
	`,
		entry.ID, entry.HopDepth, chainJSON, pathsJSON,
		pq.Array(entry.ChainMembers()), entry.IsRead, entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update notification: %w", err)
	}
	return nil
}

func marshalChains(entry Entry) ([]byte, []byte, error) {
	chainJSON, err := json.Marshal(entry.Chain)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal chain: %w", err)
	}
	pathsJSON, err := json.Marshal(entry.Paths)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal paths: %w", err)
	}
	return chainJSON, pathsJSON, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e         Entry
		labels    pq.StringArray
		members   pq.StringArray
		exposedAt sql.NullTime
		chainJSON []byte
		pathsJSON []byte
	)
	err := row.Scan(&e.ID, &e.ReportID, &e.RecipientID, &e.HopDepth,
		&labels, &exposedAt, &chainJSON, &pathsJSON, &members,
		&e.IsRead, &e.ReceivedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return Entry{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("scan notification: %w", err)
	}
	e.ConditionLabels = labels
	if exposedAt.Valid {
		t := exposedAt.Time
		e.ExposedAt = &t
	}
	if err := json.Unmarshal(chainJSON, &e.Chain); err != nil {
		return Entry{}, fmt.Errorf("unmarshal chain: %w", err)
	}
	if err := json.Unmarshal(pathsJSON, &e.Paths); err != nil {
		return Entry{}, fmt.Errorf("unmarshal paths: %w", err)
	}
	return e, nil
}
