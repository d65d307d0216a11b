package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ninnin76-design/sm-manager/internal/metrics"
	"github.com/ninnin76-design/sm-manager/internal/model"
	"github.com/ninnin76-design/sm-manager/internal/summary"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// LocalStore is a key/value document store in a single SQLite file. Its schedules
// table may still hold days written in the old flat layout (key = bare date, value =
// bare records map); those are upgraded on read and rewritten in place, under the same
// key, on the next save. Entries created under other keys never touch them.
type LocalStore struct {
	db   *sql.DB
	path string
}

var _ Store = (*LocalStore)(nil)

func NewLocalStore(path string) (*LocalStore, error) {
	if path == "" {
		path = "sm-manager.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer at a time; also keeps a :memory: database on a single connection
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS settings (id TEXT PRIMARY KEY, payload BLOB NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS schedules (id TEXT PRIMARY KEY, payload BLOB NOT NULL)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create tables: %w", err)
		}
	}
	return &LocalStore{db: db, path: path}, nil
}

// DB exposes the underlying handle for tests.
func (s *LocalStore) DB() *sql.DB { return s.db }

func (s *LocalStore) Path() string { return s.path }

func (s *LocalStore) GetMembers(ctx context.Context) ([]model.Person, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM settings WHERE id = ?`, membersKey).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		defaults := model.DefaultRoster()
		if err := putMembers(ctx, s.db, defaults); err != nil {
			return defaults, degraded("init_members", err)
		}
		metrics.Store("get_members", nil)
		return defaults, nil
	}
	if err != nil {
		return model.DefaultRoster(), degraded("get_members", err)
	}
	var doc membersDoc
	if err := json.Unmarshal(payload, &doc); err != nil {
		return model.DefaultRoster(), degraded("get_members", err)
	}
	metrics.Store("get_members", nil)
	return doc.Members, nil
}

func (s *LocalStore) SaveMembers(ctx context.Context, members []model.Person) error {
	return writeResult("save_members", "", putMembers(ctx, s.db, members))
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putMembers(ctx context.Context, db execer, members []model.Person) error {
	data, err := json.Marshal(newMembersDoc(members))
	if err != nil {
		return fmt.Errorf("encode members: %w", err)
	}
	_, err = db.ExecContext(ctx, `INSERT INTO settings(id, payload) VALUES(?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload`, membersKey, data)
	return err
}

func (s *LocalStore) SaveScheduleEntry(ctx context.Context, entry model.ScheduleEntry) error {
	return writeResult("save_schedule", entry.ID, s.saveEntry(ctx, normalize(entry)))
}

func (s *LocalStore) saveEntry(ctx context.Context, entry model.ScheduleEntry) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	prev, err := readPayload(ctx, tx, entry.ID)
	if err != nil {
		return err
	}
	if prev != nil {
		if existing, version, err := decodeSchedule(entry.ID, prev); err == nil && version == schemaCurrent {
			entry.CreatedAt = existing.CreatedAt
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schedules(id, payload) VALUES(?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload`, entry.ID, data); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return tx.Commit()
}

func readPayload(ctx context.Context, tx *sql.Tx, key string) ([]byte, error) {
	var payload []byte
	err := tx.QueryRowContext(ctx, `SELECT payload FROM schedules WHERE id = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return payload, nil
}

func (s *LocalStore) LoadScheduleEntry(ctx context.Context, id string) (*model.ScheduleEntry, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM schedules WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.Store("load_schedule", nil)
		return nil, nil
	}
	if err != nil {
		return nil, degraded("load_schedule", err)
	}
	e, _, err := decodeSchedule(id, payload)
	if err != nil {
		// an undecodable payload reads as absent
		degraded("load_schedule", fmt.Errorf("decode %s: %w", id, err))
		return nil, nil
	}
	metrics.Store("load_schedule", nil)
	return &e, nil
}

func (s *LocalStore) DeleteScheduleByKey(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, key)
	return writeResult("delete_schedule", key, err)
}

func (s *LocalStore) ListScheduleSummaries(ctx context.Context) ([]model.ScheduleSummary, error) {
	members, rosterErr := s.GetMembers(ctx)

	rows, err := s.db.QueryContext(ctx, `SELECT id, payload FROM schedules`)
	if err != nil {
		return []model.ScheduleSummary{}, degraded("list_summaries", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.ScheduleSummary{}
	for rows.Next() {
		var key string
		var payload []byte
		if err := rows.Scan(&key, &payload); err != nil {
			return []model.ScheduleSummary{}, degraded("list_summaries", err)
		}
		e, _, err := decodeSchedule(key, payload)
		if err != nil {
			degraded("list_summaries", fmt.Errorf("decode %s: %w", key, err))
			continue
		}
		out = append(out, summary.ForEntry(key, e, members))
	}
	if err := rows.Err(); err != nil {
		return []model.ScheduleSummary{}, degraded("list_summaries", err)
	}
	summary.Sort(out)
	metrics.Store("list_summaries", nil)
	return out, rosterErr
}

func (s *LocalStore) DeleteAllSchedules(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM schedules`)
	return writeResult("delete_all_schedules", "", err)
}

func (s *LocalStore) ResetApplication(ctx context.Context) error {
	return writeResult("reset_application", "", s.reset(ctx))
}

func (s *LocalStore) reset(ctx context.Context) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM schedules`); err != nil {
		return fmt.Errorf("clear schedules: %w", err)
	}
	if err := putMembers(ctx, tx, model.DefaultRoster()); err != nil {
		return fmt.Errorf("reset members: %w", err)
	}
	return tx.Commit()
}

func (s *LocalStore) Close() error { return s.db.Close() }
