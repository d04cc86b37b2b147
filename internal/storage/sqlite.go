package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"habitbot/internal/recurrence"
	logx "habitbot/pkg/logx"
)

//go:embed migrations/*.sql
var migrations embed.FS

// goose keeps its base FS, dialect and logger in package globals.
var gooseMu sync.Mutex

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	db, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db, log); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteStore{db: db, log: log}, nil
}

// OpenDB opens the SQLite file without migrating it.
func OpenDB(cfg Config) (*sql.DB, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite prefers a single writer; one connection also keeps the
	// per-connection pragmas below in effect.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()),
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	return db, nil
}

// Migrate applies every pending embedded migration.
func Migrate(db *sql.DB, log logx.Logger) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{log})
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// SchemaVersion reports the latest applied migration.
func SchemaVersion(db *sql.DB) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := goose.SetDialect("sqlite3"); err != nil {
		return 0, err
	}
	return goose.GetDBVersion(db)
}

// gooseLogger routes goose output through logx. Fatalf logs at error level
// instead of exiting.
type gooseLogger struct{ log logx.Logger }

func (l gooseLogger) Printf(format string, v ...any) { l.log.Printf(format, v...) }
func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) UpsertUser(ctx context.Context, u User) error {
	if u.LastSeen.IsZero() {
		u.LastSeen = time.Now()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = u.LastSeen
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users(id, username, first_name, created_at, last_seen) VALUES(?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET username=excluded.username, first_name=excluded.first_name, last_seen=excluded.last_seen`,
		u.ID, u.Username, u.FirstName, u.CreatedAt.UnixMilli(), u.LastSeen.UnixMilli(),
	)
	return err
}

func (s *sqliteStore) TouchUser(ctx context.Context, userID int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET last_seen = ? WHERE id = ?`, at.UnixMilli(), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *sqliteStore) InactiveUsers(ctx context.Context, before time.Time) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM users WHERE last_seen < ? ORDER BY id`, before.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

const habitColumns = `id, user_id, name, description, kind, interval, remind_hour, remind_minute,
	has_remind_time, reminder_enabled, duration_value, duration_unit, created_at`

func (s *sqliteStore) CreateHabit(ctx context.Context, h Habit) (Habit, error) {
	if err := h.Rule.Validate(); err != nil {
		return Habit{}, err
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO habits(user_id, name, description, kind, interval, remind_hour, remind_minute,
			has_remind_time, reminder_enabled, duration_value, duration_unit, created_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
		h.UserID, h.Name, h.Description, h.Rule.Kind.String(), h.Rule.Interval, h.RemindHour, h.RemindMinute,
		h.HasRemindTime, h.ReminderEnabled, h.DurationValue, h.DurationUnit, h.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return Habit{}, fmt.Errorf("insert habit: %w", err)
	}
	if h.ID, err = res.LastInsertId(); err != nil {
		return Habit{}, err
	}
	return h, nil
}

func (s *sqliteStore) GetHabit(ctx context.Context, userID, habitID int64) (Habit, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = ? AND user_id = ?`, habitID, userID)
	h, err := scanHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Habit{}, ErrNotFound
	}
	return h, err
}

func (s *sqliteStore) ListHabits(ctx context.Context, userID int64) ([]Habit, error) {
	return s.queryHabits(ctx, `SELECT `+habitColumns+` FROM habits WHERE user_id = ? ORDER BY id`, userID)
}

func (s *sqliteStore) ListReminderHabits(ctx context.Context) ([]Habit, error) {
	return s.queryHabits(ctx, `SELECT `+habitColumns+` FROM habits WHERE reminder_enabled = 1 ORDER BY id`)
}

func (s *sqliteStore) queryHabits(ctx context.Context, q string, args ...any) ([]Habit, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

type scanner interface{ Scan(dest ...any) error }

func scanHabit(sc scanner) (Habit, error) {
	var (
		h         Habit
		kind      string
		createdAt int64
	)
	err := sc.Scan(&h.ID, &h.UserID, &h.Name, &h.Description, &kind, &h.Rule.Interval,
		&h.RemindHour, &h.RemindMinute, &h.HasRemindTime, &h.ReminderEnabled,
		&h.DurationValue, &h.DurationUnit, &createdAt)
	if err != nil {
		return Habit{}, err
	}
	if h.Rule.Kind, err = recurrence.ParseKind(kind); err != nil {
		return Habit{}, fmt.Errorf("habit %d: %w", h.ID, err)
	}
	h.CreatedAt = time.UnixMilli(createdAt)
	return h, nil
}

func (s *sqliteStore) DeleteHabit(ctx context.Context, userID, habitID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM habits WHERE id = ? AND user_id = ?`, habitID, userID)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM completions WHERE habit_id = ?`, habitID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) AddCompletion(ctx context.Context, c Completion) (Completion, error) {
	if c.At.IsZero() {
		c.At = time.Now()
	}
	if c.Status == "" {
		c.Status = StatusDone
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO completions(habit_id, at, status) VALUES(?,?,?)`,
		c.HabitID, c.At.UnixMilli(), string(c.Status))
	if err != nil {
		return Completion{}, fmt.Errorf("insert completion: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return Completion{}, err
	}
	return c, nil
}

func (s *sqliteStore) Completions(ctx context.Context, habitID int64) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT at FROM completions WHERE habit_id = ? AND status = ? ORDER BY at, id`, habitID, string(StatusDone))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var ms int64
		if err := rows.Scan(&ms); err != nil {
			return nil, err
		}
		out = append(out, time.UnixMilli(ms))
	}
	return out, rows.Err()
}

func (s *sqliteStore) LastMark(ctx context.Context, habitID int64) (Completion, bool, error) {
	var (
		c      Completion
		ms     int64
		status string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, habit_id, at, status FROM completions WHERE habit_id = ? ORDER BY at DESC, id DESC LIMIT 1`, habitID,
	).Scan(&c.ID, &c.HabitID, &ms, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return Completion{}, false, nil
	}
	if err != nil {
		return Completion{}, false, err
	}
	c.At = time.UnixMilli(ms)
	c.Status = Status(status)
	return c, true, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
