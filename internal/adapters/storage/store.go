// Package storage implements the SQL worker registry.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/okian/workscore/internal/domain/model"
	"github.com/okian/workscore/pkg/logger"
	"github.com/okian/workscore/pkg/metrics"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

//go:embed sql/*
var schemas embed.FS

const (
	insertWorker = `INSERT INTO workers (
			name, email, skill, rating, on_time, completion, experience_years,
			salary, complaints, jobs_completed, active_days, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	selectWorkerColumns = `SELECT id, name, email, skill, rating, on_time, completion,
			experience_years, salary, complaints, jobs_completed, active_days,
			created_at, updated_at
		FROM workers`

	updateWorkerMetrics = `UPDATE workers SET
			skill = ?, rating = ?, on_time = ?, completion = ?, experience_years = ?,
			salary = ?, complaints = ?, jobs_completed = ?, active_days = ?, updated_at = ?
		WHERE id = ?`

	countWorkers = `SELECT COUNT(*) FROM workers`
)

// Store is a worker registry backed by database/sql.
type Store struct {
	db     *sql.DB
	driver string
	now    func() time.Time
	logger logger.Logger
}

// Open connects to the database and creates the schema if needed.
// For sqlite the dsn is a file path or ":memory:".
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("%w: empty dsn", ErrUnsupportedDriver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if driver == DriverSQLite {
		// sqlite serializes writers; a single connection also keeps
		// ":memory:" databases shared across calls.
		db.SetMaxOpenConns(1)
	}

	s := &Store{
		db:     db,
		driver: driver,
		now:    time.Now,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.logger.Info(ctx, "worker registry ready", logger.String("driver", driver))
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	ddl, err := schemas.ReadFile("sql/" + s.driver + ".sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, string(ddl)); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Create registers a worker. Emails are unique case-insensitively.
func (s *Store) Create(ctx context.Context, name, email string, m model.Metrics) (model.Worker, error) {
	defer observe("create", time.Now())

	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return model.Worker{}, fmt.Errorf("%w: name and email are required", ErrInvalidWorker)
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	w := model.Worker{Name: name, Email: email, Metrics: m, CreatedAt: now, UpdatedAt: now}

	err := s.db.QueryRowContext(ctx, s.rebind(insertWorker),
		name, email, m.Skill, m.Rating, m.OnTime, m.Completion, m.ExperienceYears,
		m.Salary, m.Complaints, m.JobsCompleted, m.ActiveDays, now.UnixMilli(), now.UnixMilli(),
	).Scan(&w.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Worker{}, fmt.Errorf("%w: %s", ErrDuplicate, email)
		}
		return model.Worker{}, fmt.Errorf("insert worker: %w", err)
	}
	return w, nil
}

// Get returns the worker with id or ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (model.Worker, error) {
	defer observe("get", time.Now())

	row := s.db.QueryRowContext(ctx, s.rebind(selectWorkerColumns+" WHERE id = ?"), id)
	w, err := scanWorker(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Worker{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return model.Worker{}, fmt.Errorf("get worker %d: %w", id, err)
	}
	return w, nil
}

// List returns workers ordered by id. A limit <= 0 returns every worker.
func (s *Store) List(ctx context.Context, limit, offset int) ([]model.Worker, error) {
	defer observe("list", time.Now())

	query := selectWorkerColumns + " ORDER BY id"
	var args []any
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, max(offset, 0))
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	defer rows.Close()

	workers := []model.Worker{}
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, fmt.Errorf("scan worker: %w", err)
		}
		workers = append(workers, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workers: %w", err)
	}
	return workers, nil
}

// Count returns the number of registered workers.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, countWorkers).Scan(&n); err != nil {
		return 0, fmt.Errorf("count workers: %w", err)
	}
	return n, nil
}

// UpdateMetrics replaces a worker's metrics and returns the updated worker.
func (s *Store) UpdateMetrics(ctx context.Context, id int64, m model.Metrics) (model.Worker, error) {
	defer observe("update", time.Now())

	now := s.now().UTC().Truncate(time.Millisecond)
	res, err := s.db.ExecContext(ctx, s.rebind(updateWorkerMetrics),
		m.Skill, m.Rating, m.OnTime, m.Completion, m.ExperienceYears,
		m.Salary, m.Complaints, m.JobsCompleted, m.ActiveDays, now.UnixMilli(), id,
	)
	if err != nil {
		return model.Worker{}, fmt.Errorf("update worker %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Worker{}, fmt.Errorf("update worker %d: %w", id, err)
	}
	if n == 0 {
		return model.Worker{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return s.Get(ctx, id)
}

// TrainingRecords returns the metrics of every registered worker.
func (s *Store) TrainingRecords(ctx context.Context) ([]model.Metrics, error) {
	workers, err := s.List(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	out := make([]model.Metrics, len(workers))
	for i, w := range workers {
		out[i] = w.Metrics
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWorker(row scanner) (model.Worker, error) {
	var (
		w                model.Worker
		created, updated int64
	)
	err := row.Scan(
		&w.ID, &w.Name, &w.Email, &w.Metrics.Skill,
		&w.Metrics.Rating, &w.Metrics.OnTime, &w.Metrics.Completion,
		&w.Metrics.ExperienceYears, &w.Metrics.Salary,
		&w.Metrics.Complaints, &w.Metrics.JobsCompleted, &w.Metrics.ActiveDays,
		&created, &updated,
	)
	if err != nil {
		return model.Worker{}, err
	}
	w.CreatedAt = time.UnixMilli(created).UTC()
	w.UpdatedAt = time.UnixMilli(updated).UTC()
	return w, nil
}

// rebind rewrites "?" placeholders as "$n" for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func observe(op string, start time.Time) {
	metrics.RecordRepositoryLatency(op, float64(time.Since(start).Microseconds())/1000)
}
