package auditlog

import (
	"context"

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

const eventCols = `id, seq, entity_id, entity_kind, event_type, from_state, to_state,
	actor, reason, occurrence_id, recorded`

func (r *repoPG) Append(ctx context.Context, e *Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	// seq comes from a bigserial so append order is the total order.
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO audit_event (id, entity_id, entity_kind, event_type, from_state, to_state,
			actor, reason, occurrence_id, recorded)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING seq`,
		e.ID, e.EntityID, e.EntityKind, e.EventType, e.FromState, e.ToState,
		e.Actor, e.Reason, e.OccurrenceID, e.Recorded).Scan(&e.Seq)
}

func (r *repoPG) ListByEntity(ctx context.Context, entityID uuid.UUID) ([]*Event, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+eventCols+` FROM audit_event WHERE entity_id = $1 ORDER BY seq ASC`, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Seq, &e.EntityID, &e.EntityKind, &e.EventType,
			&e.FromState, &e.ToState, &e.Actor, &e.Reason, &e.OccurrenceID, &e.Recorded); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
