// Package snapshot caches the last task list fetched from the remote store in
// a local SQLite file, so the chart can be drawn while the store is
// unreachable.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/harrisonrobin/roadmap/pkg/model"
)

const fetchedKey = "fetched_at"

type Cache struct {
	db *sql.DB
}

func Open(dbPath string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	c := &Cache{db: db}
	if err := c.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS tasks (
  position INTEGER PRIMARY KEY,
  task_key TEXT NOT NULL,
  body TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS meta (
  k TEXT PRIMARY KEY,
  v TEXT NOT NULL
);
`
	if _, err := c.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create snapshot tables: %w", err)
	}
	return nil
}

// Store replaces the cached task list.
func (c *Cache) Store(ctx context.Context, tasks []model.Task, fetched time.Time) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return fmt.Errorf("reset snapshot: %w", err)
	}
	for i, t := range tasks {
		body, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode task %q: %w", t.Key(), err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tasks (position, task_key, body) VALUES (?, ?, ?)`,
			i, t.Key(), string(body)); err != nil {
			return fmt.Errorf("insert task %q: %w", t.Key(), err)
		}
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO meta (k, v) VALUES (?, ?)
ON CONFLICT(k) DO UPDATE SET v=excluded.v;
`, fetchedKey, fetched.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("write fetch time: %w", err)
	}
	return tx.Commit()
}

// Load returns the cached tasks and when they were fetched. An empty cache
// returns no tasks and the zero time.
func (c *Cache) Load(ctx context.Context) ([]model.Task, time.Time, error) {
	var fetched time.Time
	var raw string
	err := c.db.QueryRowContext(ctx, `SELECT v FROM meta WHERE k = ?`, fetchedKey).Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
		return nil, time.Time{}, nil
	case err != nil:
		return nil, time.Time{}, fmt.Errorf("read fetch time: %w", err)
	}
	if fetched, err = time.Parse(time.RFC3339Nano, raw); err != nil {
		return nil, time.Time{}, fmt.Errorf("parse fetch time %q: %w", raw, err)
	}

	rows, err := c.db.QueryContext(ctx, `SELECT body FROM tasks ORDER BY position`)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, time.Time{}, fmt.Errorf("scan snapshot: %w", err)
		}
		var t model.Task
		if err := json.Unmarshal([]byte(body), &t); err != nil {
			return nil, time.Time{}, fmt.Errorf("decode snapshot: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("iterate snapshot: %w", err)
	}
	return tasks, fetched, nil
}
