package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"SwingScout/internal/logger"
	"SwingScout/internal/model"
)

// SQLiteRecorder persists recommendations and scan history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex // single writer
	log *logger.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log *logger.Logger) (*SQLiteRecorder, error) {
	if log == nil {
		log = logger.Nop()
	}
	if dir := filepath.Dir(dbPath); dir != "." && !strings.HasPrefix(dbPath, ":memory:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := dbPath
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets summary/export readers run while the update pass writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info("sqlite recorder opened", logger.StringField("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS recommendations (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			market             TEXT NOT NULL,
			symbol             TEXT NOT NULL,
			date_added         TEXT NOT NULL,
			entry_price        REAL NOT NULL,
			target_price       REAL NOT NULL,
			stop_loss          REAL NOT NULL,
			target_pct         REAL NOT NULL,
			sl_pct             REAL NOT NULL,
			estimated_days     INTEGER NOT NULL,
			risk_reward        REAL NOT NULL,
			current_price      REAL NOT NULL,
			max_price          REAL NOT NULL,
			min_price          REAL NOT NULL,
			days_elapsed       INTEGER NOT NULL DEFAULT 0,
			current_return_pct REAL NOT NULL DEFAULT 0,
			status             TEXT NOT NULL,
			outcome            TEXT NOT NULL DEFAULT '',
			hit_date           TEXT,
			exit_price         REAL NOT NULL DEFAULT 0,
			selection_reason   TEXT NOT NULL DEFAULT '',
			sector             TEXT NOT NULL DEFAULT '',
			risk_level         TEXT NOT NULL DEFAULT '',
			tech_score         REAL NOT NULL DEFAULT 0,
			volatility_bucket  TEXT NOT NULL DEFAULT '',
			fallback_used      INTEGER NOT NULL DEFAULT 0,
			created_at         INTEGER NOT NULL,
			last_updated       INTEGER NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_rec_active_identity
			ON recommendations(symbol, market, date_added) WHERE status = 'Active'`,
		`CREATE INDEX IF NOT EXISTS idx_rec_status ON recommendations(status, market)`,

		`CREATE TABLE IF NOT EXISTS scan_history (
			id          TEXT PRIMARY KEY,
			market      TEXT NOT NULL,
			started_at  INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			scanned     INTEGER NOT NULL,
			qualified   INTEGER NOT NULL,
			inserted    INTEGER NOT NULL,
			duplicates  INTEGER NOT NULL,
			failures    INTEGER NOT NULL,
			top         TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_started ON scan_history(started_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

const recColumns = `id, market, symbol, date_added, entry_price, target_price, stop_loss,
	target_pct, sl_pct, estimated_days, risk_reward, current_price, max_price, min_price,
	days_elapsed, current_return_pct, status, outcome, hit_date, exit_price,
	selection_reason, sector, risk_level, tech_score, volatility_bucket, fallback_used,
	created_at, last_updated`

func (r *SQLiteRecorder) Insert(ctx context.Context, rec *model.Recommendation) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO recommendations
		(market, symbol, date_added, entry_price, target_price, stop_loss, target_pct, sl_pct,
		 estimated_days, risk_reward, current_price, max_price, min_price, days_elapsed,
		 current_return_pct, status, outcome, hit_date, exit_price, selection_reason, sector,
		 risk_level, tech_score, volatility_bucket, fallback_used, created_at, last_updated)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		string(rec.Market), rec.Symbol, rec.DateAdded.Format(model.DateLayout),
		rec.EntryPrice, rec.TargetPrice, rec.StopLoss, rec.TargetPct, rec.SLPct,
		rec.EstimatedDays, rec.RiskReward, rec.CurrentPrice, rec.MaxPrice, rec.MinPrice,
		rec.DaysElapsed, rec.CurrentReturnPct, string(rec.Status), string(rec.Outcome),
		nullDate(rec.HitDate), rec.ExitPrice, rec.SelectionReason, rec.Sector,
		rec.RiskLevel, rec.TechScore, rec.VolatilityBucket, rec.FallbackUsed,
		rec.CreatedAt.Unix(), rec.LastUpdated.Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", rec.Symbol, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if rec.ID, err = res.LastInsertId(); err != nil {
		return true, err
	}
	return true, nil
}

func (r *SQLiteRecorder) List(ctx context.Context, f Filter) ([]model.Recommendation, error) {
	q := "SELECT " + recColumns + " FROM recommendations WHERE 1=1"
	var args []any
	if f.Status != "" {
		q += " AND status = ?"
		args = append(args, string(f.Status))
	}
	if f.Market != "" {
		q += " AND market = ?"
		args = append(args, string(f.Market))
	}
	q += " ORDER BY date_added DESC, id DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	defer rows.Close()

	var out []model.Recommendation
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRecommendation(rows *sql.Rows) (model.Recommendation, error) {
	var (
		rec                 model.Recommendation
		market, status, out string
		dateAdded           string
		hitDate             sql.NullString
		created, updated    int64
	)
	err := rows.Scan(&rec.ID, &market, &rec.Symbol, &dateAdded, &rec.EntryPrice, &rec.TargetPrice,
		&rec.StopLoss, &rec.TargetPct, &rec.SLPct, &rec.EstimatedDays, &rec.RiskReward,
		&rec.CurrentPrice, &rec.MaxPrice, &rec.MinPrice, &rec.DaysElapsed, &rec.CurrentReturnPct,
		&status, &out, &hitDate, &rec.ExitPrice, &rec.SelectionReason, &rec.Sector,
		&rec.RiskLevel, &rec.TechScore, &rec.VolatilityBucket, &rec.FallbackUsed,
		&created, &updated)
	if err != nil {
		return rec, fmt.Errorf("scan recommendation: %w", err)
	}
	rec.Market = model.Market(market)
	rec.Status = model.Status(status)
	rec.Outcome = model.Status(out)
	if rec.DateAdded, err = time.Parse(model.DateLayout, dateAdded); err != nil {
		return rec, fmt.Errorf("parse date_added %q: %w", dateAdded, err)
	}
	if hitDate.Valid && hitDate.String != "" {
		t, err := time.Parse(model.DateLayout, hitDate.String)
		if err != nil {
			return rec, fmt.Errorf("parse hit_date %q: %w", hitDate.String, err)
		}
		rec.HitDate = &t
	}
	rec.CreatedAt = time.Unix(created, 0)
	rec.LastUpdated = time.Unix(updated, 0)
	return rec, nil
}

// ApplyUpdate writes all tracking fields of one row in a single transaction.
func (r *SQLiteRecorder) ApplyUpdate(ctx context.Context, u PriceUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin update %d: %w", u.ID, err)
	}
	defer tx.Rollback()

	outcome := ""
	if u.Status.Terminal() {
		outcome = string(u.Status)
	}
	res, err := tx.ExecContext(ctx, `UPDATE recommendations SET
		current_price = ?, max_price = ?, min_price = ?, days_elapsed = ?,
		current_return_pct = ?, status = ?, outcome = ?, hit_date = ?, exit_price = ?,
		last_updated = ?
		WHERE id = ? AND status = 'Active'`,
		u.CurrentPrice, u.MaxPrice, u.MinPrice, u.DaysElapsed, u.CurrentReturnPct,
		string(u.Status), outcome, nullDate(u.HitDate), u.ExitPrice, u.At.Unix(), u.ID,
	)
	if err != nil {
		return false, fmt.Errorf("update %d: %w", u.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit update %d: %w", u.ID, err)
	}
	return true, nil
}

func (r *SQLiteRecorder) ArchiveCompleted(ctx context.Context, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx, `UPDATE recommendations
		SET outcome = status, status = 'Archived', last_updated = ?
		WHERE status IN ('Target Hit', 'SL Hit')`, at.Unix())
	if err != nil {
		return 0, fmt.Errorf("archive: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *SQLiteRecorder) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx, `DELETE FROM recommendations
		WHERE status IN ('Archived', 'Target Hit', 'SL Hit') AND date_added < ?`,
		cutoff.Format(model.DateLayout))
	if err != nil {
		return 0, fmt.Errorf("cleanup: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *SQLiteRecorder) RecordScan(ctx context.Context, run *model.ScanRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO scan_history
		(id, market, started_at, duration_ms, scanned, qualified, inserted, duplicates, failures, top)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		run.ID, string(run.Market), run.StartedAt.Unix(), run.Duration.Milliseconds(),
		run.Scanned, run.Qualified, run.Inserted, run.Duplicates, run.Failures, run.Top,
	)
	if err != nil {
		return fmt.Errorf("record scan %s: %w", run.ID, err)
	}
	return nil
}

func (r *SQLiteRecorder) ListScans(ctx context.Context, limit int) ([]model.ScanRun, error) {
	q := `SELECT id, market, started_at, duration_ms, scanned, qualified, inserted, duplicates, failures, top
		FROM scan_history ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	defer rows.Close()

	var out []model.ScanRun
	for rows.Next() {
		var (
			run          model.ScanRun
			market       string
			started, dur int64
		)
		if err := rows.Scan(&run.ID, &market, &started, &dur, &run.Scanned, &run.Qualified,
			&run.Inserted, &run.Duplicates, &run.Failures, &run.Top); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		run.Market = model.Market(market)
		run.StartedAt = time.Unix(started, 0)
		run.Duration = time.Duration(dur) * time.Millisecond
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	if err := r.db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return err
	}
	return nil
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(model.DateLayout), Valid: true}
}
