// Package postgres stores session plans in PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cognicore/tactica/pkg/tactica/internalerr"
	"github.com/cognicore/tactica/pkg/tactica/schema"
	"github.com/cognicore/tactica/pkg/tactica/store"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS session_plans (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	author TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	difficulty TEXT NOT NULL DEFAULT '',
	desired_outcome TEXT NOT NULL DEFAULT '',
	filename TEXT NOT NULL,
	page_count INTEGER NOT NULL DEFAULT 0,
	extracted_at TIMESTAMPTZ NOT NULL,
	raw_json JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_session_plans_extracted ON session_plans(extracted_at);

CREATE TABLE IF NOT EXISTS drill_blocks (
	id TEXT PRIMARY KEY,
	plan_id TEXT NOT NULL REFERENCES session_plans(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	image_ref TEXT,
	raw_json JSONB NOT NULL,
	UNIQUE(plan_id, position)
);

CREATE TABLE IF NOT EXISTS tactical_contexts (
	drill_id TEXT PRIMARY KEY REFERENCES drill_blocks(id) ON DELETE CASCADE,
	methodology TEXT NOT NULL,
	game_element TEXT,
	situation_type TEXT,
	numerical_advantage TEXT,
	lanes TEXT NOT NULL DEFAULT '',
	raw_json JSONB NOT NULL DEFAULT '{}'
);

ALTER TABLE tactical_contexts ADD COLUMN IF NOT EXISTS raw_json JSONB NOT NULL DEFAULT '{}';

CREATE INDEX IF NOT EXISTS idx_tactical_game_element ON tactical_contexts(game_element);
CREATE INDEX IF NOT EXISTS idx_tactical_situation ON tactical_contexts(situation_type);
`

type pgStore struct {
	pool *pgxpool.Pool
}

// Open connects to dsn, verifies the connection and creates the schema.
func Open(ctx context.Context, dsn string) (store.Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return &pgStore{pool: pool}, nil
}

func (s *pgStore) Close() error {
	s.pool.Close()
	return nil
}

// mapError turns constraint violations into store sentinels.
func mapError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", op, internalerr.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *pgStore) SaveSessionPlan(ctx context.Context, plan schema.SessionPlan) error {
	row, drills, err := store.EncodePlan(plan)
	if err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
INSERT INTO session_plans (id, title, author, category, difficulty, desired_outcome, filename, page_count, extracted_at, raw_json)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			row.ID, row.Title, row.Author, row.Category, row.Difficulty, row.DesiredOutcome,
			row.Filename, row.PageCount, row.ExtractedAt, row.RawJSON,
		); err != nil {
			return mapError("insert session plan "+row.ID, err)
		}
		return insertDrills(ctx, tx, drills)
	})
}

func (s *pgStore) UpdateSessionPlan(ctx context.Context, plan schema.SessionPlan) error {
	row, drills, err := store.EncodePlan(plan)
	if err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
UPDATE session_plans SET
	title=$1, author=$2, category=$3, difficulty=$4, desired_outcome=$5,
	filename=$6, page_count=$7, extracted_at=$8, raw_json=$9
WHERE id=$10`,
			row.Title, row.Author, row.Category, row.Difficulty, row.DesiredOutcome,
			row.Filename, row.PageCount, row.ExtractedAt, row.RawJSON, row.ID,
		)
		if err != nil {
			return mapError("update session plan", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("session plan %s: %w", row.ID, internalerr.ErrNotFound)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM drill_blocks WHERE plan_id = $1`, row.ID); err != nil {
			return fmt.Errorf("clear drills: %w", err)
		}
		return insertDrills(ctx, tx, drills)
	})
}

func insertDrills(ctx context.Context, tx pgx.Tx, drills []store.DrillRow) error {
	batch := &pgx.Batch{}
	for _, d := range drills {
		batch.Queue(`INSERT INTO drill_blocks (id, plan_id, position, name, image_ref, raw_json) VALUES ($1, $2, $3, $4, $5, $6)`,
			d.ID, d.PlanID, d.Position, d.Name, d.ImageRef, d.RawJSON)
		if c := d.Context; c != nil {
			batch.Queue(`INSERT INTO tactical_contexts (drill_id, methodology, game_element, situation_type, numerical_advantage, lanes, raw_json) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				d.ID, c.Methodology, c.GameElement, c.SituationType, c.NumericalAdvantage, c.Lanes, c.RawJSON)
		}
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return mapError("insert drills", err)
	}
	return nil
}

func (s *pgStore) GetSessionPlan(ctx context.Context, id string) (schema.SessionPlan, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT raw_json FROM session_plans WHERE id = $1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return schema.SessionPlan{}, fmt.Errorf("session plan %s: %w", id, internalerr.ErrNotFound)
	}
	if err != nil {
		return schema.SessionPlan{}, err
	}
	drills, err := s.drillJSON(ctx, id)
	if err != nil {
		return schema.SessionPlan{}, err
	}
	return store.DecodePlan(raw, drills)
}

func (s *pgStore) drillJSON(ctx context.Context, planID string) ([][]byte, error) {
	rows, err := s.pool.Query(ctx, `SELECT raw_json FROM drill_blocks WHERE plan_id = $1 ORDER BY position`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out [][]byte
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}

func (s *pgStore) GetTacticalContext(ctx context.Context, drillID string) (schema.TacticalContext, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT raw_json FROM tactical_contexts WHERE drill_id = $1`, drillID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return schema.TacticalContext{}, fmt.Errorf("tactical context %s: %w", drillID, internalerr.ErrNotFound)
	}
	if err != nil {
		return schema.TacticalContext{}, err
	}
	return store.DecodeContext(raw)
}

func (s *pgStore) ListSessionPlans(ctx context.Context, opts store.ListOptions) ([]store.PlanSummary, error) {
	rows, err := s.pool.Query(ctx, `
SELECT p.id, p.title, p.author, p.category, p.filename, p.page_count, p.extracted_at,
	(SELECT COUNT(*) FROM drill_blocks d WHERE d.plan_id = p.id)
FROM session_plans p
ORDER BY p.extracted_at DESC, p.id DESC
LIMIT $1 OFFSET $2`, store.Limit(opts.Limit), max(opts.Offset, 0))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.PlanSummary
	for rows.Next() {
		var (
			ps    store.PlanSummary
			count int64
		)
		if err := rows.Scan(&ps.ID, &ps.Title, &ps.Author, &ps.Category, &ps.Filename, &ps.PageCount, &ps.ExtractedAt, &count); err != nil {
			return nil, err
		}
		ps.DrillCount = int(count)
		ps.ExtractedAt = ps.ExtractedAt.UTC()
		out = append(out, ps)
	}
	return out, rows.Err()
}

func (s *pgStore) DeleteSessionPlan(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM session_plans WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session plan %s: %w", id, internalerr.ErrNotFound)
	}
	return nil
}

func (s *pgStore) ListDrills(ctx context.Context, planID string) ([]schema.DrillBlock, error) {
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

func (s *pgStore) FindDrills(ctx context.Context, f store.DrillFilter) ([]store.DrillMatch, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.GameElement != "" {
		where = append(where, "t.game_element = "+arg(string(f.GameElement)))
	}
	if f.SituationType != "" {
		where = append(where, "t.situation_type = "+arg(string(f.SituationType)))
	}
	if f.Lane != "" {
		where = append(where, "t.lanes LIKE "+arg(store.LanePattern(f.Lane)))
	}
	if f.PlanID != "" {
		where = append(where, "d.plan_id = "+arg(f.PlanID))
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
	q += "\nORDER BY d.plan_id, d.position\nLIMIT " + arg(store.Limit(f.Limit))

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.DrillMatch
	for rows.Next() {
		var (
			m   store.DrillMatch
			raw []byte
		)
		if err := rows.Scan(&m.PlanID, &m.PlanTitle, &raw); err != nil {
			return nil, err
		}
		if m.Drill, err = store.DecodeDrill(raw); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
