// Package sqlstore keeps scenario snapshots in a SQL database so the
// dashboard can serve datasets maintained outside the binary. MySQL and
// SQLite are supported through the same schema.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"go-incident-analysis-ui/internal/analysis"
	"go-incident-analysis-ui/internal/config"
	"go-incident-analysis-ui/internal/scenario"
)

// Store wraps snapshot reads and writes.
type Store struct {
	db           *sql.DB
	driver       string
	queryTimeout time.Duration
}

// NewStore opens the database configured in cfg and creates the schema
// when missing.
func NewStore(cfg config.Config) (*Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	var dsn string
	switch driver {
	case "mysql":
		dsn = cfg.MySQLDSN()
	case "sqlite":
		dsn = cfg.DBSQLitePath
		if strings.TrimSpace(dsn) == "" {
			return nil, errors.New("sqlite path required (set APP_DB_SQLITE_PATH)")
		}
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DBDriver)
	}
	return Open(driver, dsn, cfg.DBConnTimeout, cfg.DBQueryTimeout)
}

// Open connects with an explicit driver name and DSN.
func Open(driver, dsn string, connTimeout, queryTimeout time.Duration) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetConnMaxLifetime(5 * time.Minute)
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}

	if connTimeout <= 0 {
		connTimeout = 5 * time.Second
	}
	if queryTimeout <= 0 {
		queryTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), connTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, driver: driver, queryTimeout: queryTimeout}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{`
CREATE TABLE IF NOT EXISTS scenarios (
  name VARCHAR(128) NOT NULL PRIMARY KEY,
  title VARCHAR(255) NOT NULL,
  description TEXT NOT NULL,
  alert_level VARCHAR(32) NOT NULL,
  alert_json TEXT NOT NULL,
  kpi_json TEXT NOT NULL
);`, `
CREATE TABLE IF NOT EXISTS series_points (
  scenario VARCHAR(128) NOT NULL,
  seq INTEGER NOT NULL,
  ts_unix BIGINT NOT NULL,
  cnt BIGINT NOT NULL,
  succ DOUBLE NOT NULL,
  resp_time DOUBLE NOT NULL,
  fail BIGINT NOT NULL,
  PRIMARY KEY (scenario, seq)
);`, `
CREATE TABLE IF NOT EXISTS dimension_items (
  scenario VARCHAR(128) NOT NULL,
  dimension VARCHAR(32) NOT NULL,
  seq INTEGER NOT NULL,
  name VARCHAR(255) NOT NULL,
  impact DOUBLE NOT NULL,
  outlierness DOUBLE NULL,
  cnt BIGINT NOT NULL,
  previous_cnt BIGINT NOT NULL,
  succ DOUBLE NOT NULL,
  previous_succ DOUBLE NOT NULL,
  PRIMARY KEY (scenario, dimension, seq)
);`}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Driver names the SQL driver in use.
func (s *Store) Driver() string {
	return s.driver
}

// Ping checks connectivity and returns the round trip in milliseconds.
func (s *Store) Ping(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	start := time.Now()
	if err := s.db.PingContext(ctx); err != nil {
		return 0, err
	}
	return time.Since(start).Milliseconds(), nil
}

// Seed replaces the stored copy of every given snapshot.
func (s *Store) Seed(ctx context.Context, snapshots ...*scenario.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, snap := range snapshots {
		if err := seedOne(ctx, tx, snap); err != nil {
			return fmt.Errorf("seed %s: %w", snap.Name, err)
		}
	}
	return tx.Commit()
}

func seedOne(ctx context.Context, tx *sql.Tx, snap *scenario.Snapshot) error {
	for _, table := range []string{"scenarios", "series_points", "dimension_items"} {
		col := "scenario"
		if table == "scenarios" {
			col = "name"
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE `+col+` = ?;`, snap.Name); err != nil {
			return err
		}
	}

	alertJSON, err := json.Marshal(snap.Alert)
	if err != nil {
		return err
	}
	kpiJSON, err := json.Marshal(snap.KPI)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO scenarios (name, title, description, alert_level, alert_json, kpi_json)
VALUES (?, ?, ?, ?, ?, ?);
`, snap.Name, snap.Title, snap.Description, snap.Alert.Level, string(alertJSON), string(kpiJSON)); err != nil {
		return err
	}

	for i, p := range snap.Series {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO series_points (scenario, seq, ts_unix, cnt, succ, resp_time, fail)
VALUES (?, ?, ?, ?, ?, ?, ?);
`, snap.Name, i, p.Time.Unix(), p.Cnt, p.Succ, p.RespTime, p.Fail); err != nil {
			return err
		}
	}

	for dim, items := range snap.Dimensions {
		for i, it := range items {
			var outlierness sql.NullFloat64
			if it.Outlierness != nil {
				outlierness = sql.NullFloat64{Float64: *it.Outlierness, Valid: true}
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO dimension_items (scenario, dimension, seq, name, impact, outlierness, cnt, previous_cnt, succ, previous_succ)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`, snap.Name, dim, i, it.Name, it.Impact, outlierness, it.Cnt, it.PreviousCnt, it.Succ, it.PreviousSucc); err != nil {
				return err
			}
		}
	}
	return nil
}

// List returns the stored scenarios in the same order as the catalog.
func (s *Store) List(ctx context.Context) ([]scenario.Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
SELECT name, title, description, alert_level
FROM scenarios
ORDER BY name;
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]scenario.Summary, 0)
	for rows.Next() {
		var item scenario.Summary
		if err := rows.Scan(&item.Name, &item.Title, &item.Description, &item.AlertLevel); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return scenario.Less(out[i].Name, out[j].Name) })
	return out, nil
}

// Load reads one snapshot. Unknown names return scenario.ErrUnknownScenario.
func (s *Store) Load(ctx context.Context, name string) (*scenario.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	snap := &scenario.Snapshot{Name: name, Dimensions: map[string][]analysis.Item{}}
	var alertJSON, kpiJSON string
	err := s.db.QueryRowContext(ctx, `
SELECT title, description, alert_json, kpi_json
FROM scenarios
WHERE name = ?;
`, name).Scan(&snap.Title, &snap.Description, &alertJSON, &kpiJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", scenario.ErrUnknownScenario, name)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(alertJSON), &snap.Alert); err != nil {
		return nil, fmt.Errorf("decode alert: %w", err)
	}
	if err := json.Unmarshal([]byte(kpiJSON), &snap.KPI); err != nil {
		return nil, fmt.Errorf("decode kpi: %w", err)
	}

	if snap.Series, err = s.loadSeries(ctx, name); err != nil {
		return nil, err
	}
	if err := s.loadDimensions(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Store) loadSeries(ctx context.Context, name string) ([]scenario.Point, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT ts_unix, cnt, succ, resp_time, fail
FROM series_points
WHERE scenario = ?
ORDER BY seq;
`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]scenario.Point, 0)
	for rows.Next() {
		var p scenario.Point
		var ts int64
		if err := rows.Scan(&ts, &p.Cnt, &p.Succ, &p.RespTime, &p.Fail); err != nil {
			return nil, err
		}
		p.Time = time.Unix(ts, 0).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) loadDimensions(ctx context.Context, snap *scenario.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `
SELECT dimension, name, impact, outlierness, cnt, previous_cnt, succ, previous_succ
FROM dimension_items
WHERE scenario = ?
ORDER BY dimension, seq;
`, snap.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var dim string
		var it analysis.Item
		var outlierness sql.NullFloat64
		if err := rows.Scan(&dim, &it.Name, &it.Impact, &outlierness, &it.Cnt, &it.PreviousCnt, &it.Succ, &it.PreviousSucc); err != nil {
			return err
		}
		if outlierness.Valid {
			v := outlierness.Float64
			it.Outlierness = &v
		}
		snap.Dimensions[dim] = append(snap.Dimensions[dim], it)
	}
	return rows.Err()
}
