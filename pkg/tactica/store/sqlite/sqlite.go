package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/tactica/pkg/tactica/internalerr"
	"github.com/cognicore/tactica/pkg/tactica/schema"
	"github.com/cognicore/tactica/pkg/tactica/store"
)

// timeLayout keeps fractional seconds fixed-width so text order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode and foreign keys enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps the per-connection pragmas in force.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS session_plans (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	author TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	difficulty TEXT NOT NULL DEFAULT '',
	desired_outcome TEXT NOT NULL DEFAULT '',
	filename TEXT NOT NULL,
	page_count INTEGER NOT NULL DEFAULT 0,
	extracted_at TEXT NOT NULL,
	raw_json TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_session_plans_extracted ON session_plans(extracted_at);

CREATE TABLE IF NOT EXISTS drill_blocks (
	id TEXT PRIMARY KEY,
	plan_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	image_ref TEXT,
	raw_json TEXT NOT NULL,
	UNIQUE(plan_id, position),
	FOREIGN KEY(plan_id) REFERENCES session_plans(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS tactical_contexts (
	drill_id TEXT PRIMARY KEY,
	methodology TEXT NOT NULL,
	game_element TEXT,
	situation_type TEXT,
	numerical_advantage TEXT,
	lanes TEXT NOT NULL DEFAULT '',
	raw_json TEXT NOT NULL DEFAULT '{}',
	FOREIGN KEY(drill_id) REFERENCES drill_blocks(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_tactical_game_element ON tactical_contexts(game_element);
CREATE INDEX IF NOT EXISTS idx_tactical_situation ON tactical_contexts(situation_type);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return addColumn(ctx, db, "tactical_contexts", "raw_json", `TEXT NOT NULL DEFAULT '{}'`)
}

// addColumn upgrades databases created before a column existed.
func addColumn(ctx context.Context, db *sql.DB, table, column, decl string) error {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	if err != nil || n > 0 {
		return err
	}
	_, err = db.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, decl))
	return err
}

// SaveSessionPlan inserts a new plan and its drills in one transaction.
func (s *sqliteStore) SaveSessionPlan(ctx context.Context, plan schema.SessionPlan) error {
	row, drills, err := store.EncodePlan(plan)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const stmt = `
INSERT INTO session_plans (id, title, author, category, difficulty, desired_outcome, filename, page_count, extracted_at, raw_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, stmt,
		row.ID, row.Title, row.Author, row.Category, row.Difficulty, row.DesiredOutcome,
		row.Filename, row.PageCount, row.ExtractedAt.Format(timeLayout), string(row.RawJSON),
	); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("session plan %s: %w", row.ID, internalerr.ErrConflict)
		}
		return fmt.Errorf("insert session plan: %w", err)
	}
	if err := insertDrills(ctx, tx, drills); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateSessionPlan replaces an existing plan and all of its drills.
func (s *sqliteStore) UpdateSessionPlan(ctx context.Context, plan schema.SessionPlan) error {
	row, drills, err := store.EncodePlan(plan)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const stmt = `
UPDATE session_plans SET
	title=?, author=?, category=?, difficulty=?, desired_outcome=?,
	filename=?, page_count=?, extracted_at=?, raw_json=?
WHERE id=?`
	res, err := tx.ExecContext(ctx, stmt,
		row.Title, row.Author, row.Category, row.Difficulty, row.DesiredOutcome,
		row.Filename, row.PageCount, row.ExtractedAt.Format(timeLayout), string(row.RawJSON),
		row.ID,
	)
	if err != nil {
		return fmt.Errorf("update session plan: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("session plan %s: %w", row.ID, internalerr.ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM drill_blocks WHERE plan_id = ?`, row.ID); err != nil {
		return fmt.Errorf("clear drills: %w", err)
	}
	if err := insertDrills(ctx, tx, drills); err != nil {
		return err
	}
	return tx.Commit()
}

func insertDrills(ctx context.Context, tx *sql.Tx, drills []store.DrillRow) error {
	for _, d := range drills {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO drill_blocks (id, plan_id, position, name, image_ref, raw_json) VALUES (?, ?, ?, ?, ?, ?)`,
			d.ID, d.PlanID, d.Position, d.Name, nullString(d.ImageRef), string(d.RawJSON),
		); err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return fmt.Errorf("insert drill %s: %w: %v", d.ID, internalerr.ErrConflict, err)
			}
			return fmt.Errorf("insert drill %s: %w", d.ID, err)
		}
		if c := d.Context; c != nil {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO tactical_contexts (drill_id, methodology, game_element, situation_type, numerical_advantage, lanes, raw_json) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				d.ID, c.Methodology, nullString(c.GameElement), nullString(c.SituationType), nullString(c.NumericalAdvantage), c.Lanes, string(c.RawJSON),
			); err != nil {
				return fmt.Errorf("insert tactical context %s: %w", d.ID, err)
			}
		}
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// GetSessionPlan loads a plan with its drills in document order.
func (s *sqliteStore) GetSessionPlan(ctx context.Context, id string) (schema.SessionPlan, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT raw_json FROM session_plans WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.SessionPlan{}, fmt.Errorf("session plan %s: %w", id, internalerr.ErrNotFound)
	}
	if err != nil {
		return schema.SessionPlan{}, err
	}
	drills, err := s.drillJSON(ctx, id)
	if err != nil {
		return schema.SessionPlan{}, err
	}
	return store.DecodePlan([]byte(raw), drills)
}

func (s *sqliteStore) drillJSON(ctx context.Context, planID string) ([][]byte, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT raw_json FROM drill_blocks WHERE plan_id = ? ORDER BY position`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out [][]byte
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		out = append(out, []byte(raw))
	}
	return out, rows.Err()
}

// GetTacticalContext reads the stored context record of one drill.
func (s *sqliteStore) GetTacticalContext(ctx context.Context, drillID string) (schema.TacticalContext, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT raw_json FROM tactical_contexts WHERE drill_id = ?`, drillID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.TacticalContext{}, fmt.Errorf("tactical context %s: %w", drillID, internalerr.ErrNotFound)
	}
	if err != nil {
		return schema.TacticalContext{}, err
	}
	return store.DecodeContext([]byte(raw))
}

// ListSessionPlans returns plan summaries, newest first.
func (s *sqliteStore) ListSessionPlans(ctx context.Context, opts store.ListOptions) ([]store.PlanSummary, error) {
	const q = `
SELECT p.id, p.title, p.author, p.category, p.filename, p.page_count, p.extracted_at,
	(SELECT COUNT(*) FROM drill_blocks d WHERE d.plan_id = p.id)
FROM session_plans p
ORDER BY p.extracted_at DESC, p.id DESC
LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, q, store.Limit(opts.Limit), max(opts.Offset, 0))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.PlanSummary
	for rows.Next() {
		var (
			ps store.PlanSummary
			ts string
		)
		if err := rows.Scan(&ps.ID, &ps.Title, &ps.Author, &ps.Category, &ps.Filename, &ps.PageCount, &ts, &ps.DrillCount); err != nil {
			return nil, err
		}
		if t, err := time.Parse(timeLayout, ts); err == nil {
			ps.ExtractedAt = t
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}

// DeleteSessionPlan removes a plan; drills and contexts cascade.
func (s *sqliteStore) DeleteSessionPlan(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM session_plans WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session plan %s: %w", id, internalerr.ErrNotFound)
	}
	return nil
}

// ListDrills returns a plan's drills in document order.
func (s *sqliteStore) ListDrills(ctx context.Context, planID string) ([]schema.DrillBlock, error) {
	raws, err := s.drillJSON(ctx, planID)
	if err != nil {
		return nil, err
	}
	out := make([]schema.DrillBlock, 0, len(raws))
	for _, raw := range raws {
		d, err := store.DecodeDrill(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// FindDrills filters drills on the flattened tactical context columns.
func (s *sqliteStore) FindDrills(ctx context.Context, f store.DrillFilter) ([]store.DrillMatch, error) {
	var (
		where []string
		args  []any
	)
	if f.GameElement != "" {
		where = append(where, "t.game_element = ?")
		args = append(args, string(f.GameElement))
	}
	if f.SituationType != "" {
		where = append(where, "t.situation_type = ?")
		args = append(args, string(f.SituationType))
	}
	if f.Lane != "" {
		where = append(where, "t.lanes LIKE ?")
		args = append(args, store.LanePattern(f.Lane))
	}
	if f.PlanID != "" {
		where = append(where, "d.plan_id = ?")
		args = append(args, f.PlanID)
	}
	join := "LEFT JOIN"
	if !f.Empty() {
		join = "JOIN"
	}
	q := `SELECT d.plan_id, p.title, d.raw_json
FROM drill_blocks d
JOIN session_plans p ON p.id = d.plan_id
` + join + ` tactical_contexts t ON t.drill_id = d.id`
	if len(where) > 0 {
		q += "\nWHERE " + strings.Join(where, " AND ")
	}
	q += "\nORDER BY d.plan_id, d.position\nLIMIT ?"
	args = append(args, store.Limit(f.Limit))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.DrillMatch
	for rows.Next() {
		var (
			m   store.DrillMatch
			raw string
		)
		if err := rows.Scan(&m.PlanID, &m.PlanTitle, &raw); err != nil {
			return nil, err
		}
		if m.Drill, err = store.DecodeDrill([]byte(raw)); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
