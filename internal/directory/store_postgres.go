package directory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"chainalert/pkg/platform/sentinel"
	txcontext "chainalert/pkg/platform/tx"
)

// PostgresStore persists directory entries.
//
// Expected schema:
//
//	CREATE TABLE directory_users (
//	    graph_id TEXT PRIMARY KEY,
//	    notification_id TEXT NOT NULL UNIQUE,
//	    display_name TEXT NOT NULL DEFAULT '',
//	    push_token TEXT NOT NULL DEFAULT ''
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, user User) error {
	query := `
		INSERT INTO directory_users (graph_id, notification_id, display_name, push_token)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (graph_id) DO UPDATE
		SET notification_id = EXCLUDED.notification_id,
		    display_name = EXCLUDED.display_name,
		    push_token = EXCLUDED.push_token
	`
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		user.GraphID, user.NotificationID, user.DisplayName, user.PushToken)
	if err != nil {
		return fmt.Errorf("upsert directory user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByGraphID(ctx context.Context, graphID string) (User, error) {
	return s.findOne(ctx, `graph_id = $1`, graphID)
}

func (s *PostgresStore) FindByNotificationID(ctx context.Context, notificationID string) (User, error) {
	return s.findOne(ctx, `notification_id = $1`, notificationID)
}

func (s *PostgresStore) findOne(ctx context.Context, where, arg string) (User, error) {
	query := `
		SELECT graph_id, notification_id, display_name, push_token
		FROM directory_users WHERE ` + where
	var u User
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, arg).
		Scan(&u.GraphID, &u.NotificationID, &u.DisplayName, &u.PushToken)
	if err == sql.ErrNoRows {
		return User{}, sentinel.ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("query directory user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) FindByGraphIDs(ctx context.Context, graphIDs []string) (map[string]User, error) {
	if len(graphIDs) == 0 {
		return map[string]User{}, nil
	}
	query := `
		SELECT graph_id, notification_id, display_name, push_token
		FROM directory_users WHERE graph_id = ANY($1)
	`
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, pq.Array(graphIDs))
	if err != nil {
		return nil, fmt.Errorf("query directory users: %w", err)
	}
	defer rows.Close()

	found := make(map[string]User, len(graphIDs))
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.GraphID, &u.NotificationID, &u.DisplayName, &u.PushToken); err != nil {
			return nil, fmt.Errorf("scan directory user: %w", err)
		}
		found[u.GraphID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate directory users: %w", err)
	}
	return found, nil
}
