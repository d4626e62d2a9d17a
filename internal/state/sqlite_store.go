package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	// SQLite driver
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS deployments (
	topology    TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL,
	region      TEXT NOT NULL,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS resources (
	topology     TEXT NOT NULL REFERENCES deployments(topology) ON DELETE CASCADE,
	position     INTEGER NOT NULL,
	logical_name TEXT NOT NULL,
	kind         TEXT NOT NULL,
	remote_id    TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	depends_on   TEXT NOT NULL DEFAULT '[]',
	attributes   TEXT NOT NULL DEFAULT '{}',
	deleted      INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (topology, position)
);`

// SQLiteStore persists deployments in a local SQLite database. Appends are
// transactional, which satisfies the durable-before-next-step requirement.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the database at path and
// ensures the schema exists.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping state database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create state schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Append(ctx context.Context, st *DeploymentState, res ProvisionedResource) error {
	position := len(st.Resources)
	st.Resources = append(st.Resources, res)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertDeployment(ctx, tx, st); err != nil {
		return err
	}
	if err := insertResource(ctx, tx, st.Topology, position, res); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Save(ctx context.Context, st *DeploymentState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertDeployment(ctx, tx, st); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM resources WHERE topology = ?`, st.Topology); err != nil {
		return fmt.Errorf("failed to clear resources: %w", err)
	}
	for i, res := range st.Resources {
		if err := insertResource(ctx, tx, st.Topology, i, res); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Load(ctx context.Context, topology string) (*DeploymentState, error) {
	st := &DeploymentState{Topology: topology}

	var createdAt, finishedAt string
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, region, status, error, created_at, finished_at
		 FROM deployments WHERE topology = ?`, topology)
	if err := row.Scan(&st.RunID, &st.Region, &st.Status, &st.Error, &createdAt, &finishedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load deployment: %w", err)
	}
	if err := parseTimes(st, createdAt, finishedAt); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT logical_name, kind, remote_id, created_at, depends_on, attributes, deleted
		 FROM resources WHERE topology = ? ORDER BY position`, topology)
	if err != nil {
		return nil, fmt.Errorf("failed to load resources: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			res                               ProvisionedResource
			resCreated, dependsOn, attributes string
		)
		if err := rows.Scan(&res.LogicalName, &res.Kind, &res.RemoteID,
			&resCreated, &dependsOn, &attributes, &res.Deleted); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		if res.CreatedAt, err = time.Parse(time.RFC3339Nano, resCreated); err != nil {
			return nil, fmt.Errorf("failed to parse resource timestamp: %w", err)
		}
		if err := json.Unmarshal([]byte(dependsOn), &res.DependsOn); err != nil {
			return nil, fmt.Errorf("failed to parse depends_on: %w", err)
		}
		if err := json.Unmarshal([]byte(attributes), &res.Attributes); err != nil {
			return nil, fmt.Errorf("failed to parse attributes: %w", err)
		}
		st.Resources = append(st.Resources, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate resources: %w", err)
	}
	return st, nil
}

func upsertDeployment(ctx context.Context, tx *sql.Tx, st *DeploymentState) error {
	finishedAt := ""
	if !st.FinishedAt.IsZero() {
		finishedAt = st.FinishedAt.Format(time.RFC3339Nano)
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO deployments (topology, run_id, region, status, error, created_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(topology) DO UPDATE SET
			run_id = excluded.run_id,
			region = excluded.region,
			status = excluded.status,
			error = excluded.error,
			created_at = excluded.created_at,
			finished_at = excluded.finished_at`,
		st.Topology, st.RunID, st.Region, st.Status, st.Error,
		st.CreatedAt.Format(time.RFC3339Nano), finishedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert deployment: %w", err)
	}
	return nil
}

func insertResource(ctx context.Context, tx *sql.Tx, topology string, position int, res ProvisionedResource) error {
	dependsOn, err := json.Marshal(res.DependsOn)
	if err != nil {
		return fmt.Errorf("failed to marshal depends_on: %w", err)
	}
	attributes, err := json.Marshal(res.Attributes)
	if err != nil {
		return fmt.Errorf("failed to marshal attributes: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO resources (topology, position, logical_name, kind, remote_id, created_at, depends_on, attributes, deleted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		topology, position, res.LogicalName, res.Kind, res.RemoteID,
		res.CreatedAt.Format(time.RFC3339Nano), string(dependsOn), string(attributes), res.Deleted)
	if err != nil {
		return fmt.Errorf("failed to insert resource: %w", err)
	}
	return nil
}

func parseTimes(st *DeploymentState, createdAt, finishedAt string) error {
	var err error
	if st.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return fmt.Errorf("failed to parse deployment timestamp: %w", err)
	}
	if finishedAt != "" {
		if st.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
			return fmt.Errorf("failed to parse finished timestamp: %w", err)
		}
	}
	return nil
}
