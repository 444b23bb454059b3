package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const ruleCols = `entity_id, purpose, freq, start_at, end_at, occurrence_count,
	every_minutes, times, active, not_before`

func (r *repoPG) SaveRule(ctx context.Context, rule *Rule) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO schedule_rule (entity_id, purpose, freq, start_at, end_at, occurrence_count,
			every_minutes, times, active, not_before)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (entity_id) DO UPDATE SET
			purpose = EXCLUDED.purpose, freq = EXCLUDED.freq, start_at = EXCLUDED.start_at,
			end_at = EXCLUDED.end_at, occurrence_count = EXCLUDED.occurrence_count,
			every_minutes = EXCLUDED.every_minutes, times = EXCLUDED.times,
			active = EXCLUDED.active, not_before = EXCLUDED.not_before`,
		rule.EntityID, rule.Purpose, rule.Freq, rule.Start, rule.End, rule.Count,
		rule.EveryMinutes, rule.Times, rule.Active, rule.NotBefore)
	return err
}

func (r *repoPG) scanRule(row pgx.Row) (*Rule, error) {
	var rule Rule
	err := row.Scan(&rule.EntityID, &rule.Purpose, &rule.Freq, &rule.Start, &rule.End,
		&rule.Count, &rule.EveryMinutes, &rule.Times, &rule.Active, &rule.NotBefore)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRuleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *repoPG) GetRule(ctx context.Context, entityID uuid.UUID) (*Rule, error) {
	return r.scanRule(r.conn(ctx).QueryRow(ctx,
		`SELECT `+ruleCols+` FROM schedule_rule WHERE entity_id = $1`, entityID))
}

func (r *repoPG) ListActiveRules(ctx context.Context) ([]*Rule, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+ruleCols+` FROM schedule_rule WHERE active ORDER BY entity_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*Rule
	for rows.Next() {
		rule, err := r.scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *repoPG) SetRuleActive(ctx context.Context, entityID uuid.UUID, active bool, notBefore *time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE schedule_rule SET active = $2, not_before = COALESCE($3, not_before) WHERE entity_id = $1`,
		entityID, active, notBefore)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func (r *repoPG) SaveResolution(ctx context.Context, res *Resolution) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO occurrence_resolution (occurrence_id, entity_id, outcome, actor, reason, resolved_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (occurrence_id) DO NOTHING`,
		res.OccurrenceID, res.EntityID, res.Outcome, res.Actor, res.Reason, res.ResolvedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyResolved
	}
	return nil
}

func (r *repoPG) GetResolution(ctx context.Context, occurrenceID uuid.UUID) (*Resolution, error) {
	var res Resolution
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT occurrence_id, entity_id, outcome, actor, reason, resolved_at
		FROM occurrence_resolution WHERE occurrence_id = $1`, occurrenceID).
		Scan(&res.OccurrenceID, &res.EntityID, &res.Outcome, &res.Actor, &res.Reason, &res.ResolvedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *repoPG) ListResolutionsByEntity(ctx context.Context, entityID uuid.UUID) ([]*Resolution, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT occurrence_id, entity_id, outcome, actor, reason, resolved_at
		FROM occurrence_resolution WHERE entity_id = $1`, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Resolution
	for rows.Next() {
		var res Resolution
		if err := rows.Scan(&res.OccurrenceID, &res.EntityID, &res.Outcome, &res.Actor,
			&res.Reason, &res.ResolvedAt); err != nil {
			return nil, err
		}
		out = append(out, &res)
	}
	return out, rows.Err()
}
