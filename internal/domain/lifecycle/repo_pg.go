package lifecycle

import (
	"context"
	"errors"
	"fmt"
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

const entityCols = `id, kind, patient_id, title, state, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, e *Entity) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO tracked_entity (id, kind, patient_id, title, state, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.ID, e.Kind, e.PatientID, e.Title, e.State, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func (r *repoPG) Get(ctx context.Context, id uuid.UUID) (*Entity, error) {
	var e Entity
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+entityCols+` FROM tracked_entity WHERE id = $1`, id).
		Scan(&e.ID, &e.Kind, &e.PatientID, &e.Title, &e.State, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return &e, nil
}

func (r *repoPG) UpdateState(ctx context.Context, id uuid.UUID, state State, updatedAt time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE tracked_entity SET state = $2, updated_at = $3 WHERE id = $1`,
		id, state, updatedAt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, filter ListFilter) ([]*Entity, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Kind != "" {
		where += " AND kind = " + arg(filter.Kind)
	}
	if filter.State != "" {
		where += " AND state = " + arg(filter.State)
	}
	if filter.PatientID != uuid.Nil {
		where += " AND patient_id = " + arg(filter.PatientID)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM tracked_entity`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	query := `SELECT ` + entityCols + ` FROM tracked_entity` + where +
		` ORDER BY created_at DESC, id` +
		` LIMIT ` + arg(filter.Limit) + ` OFFSET ` + arg(filter.Offset)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var entities []*Entity
	for rows.Next() {
		var e Entity
		if err := rows.Scan(&e.ID, &e.Kind, &e.PatientID, &e.Title, &e.State, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, 0, err
		}
		entities = append(entities, &e)
	}
	return entities, total, rows.Err()
}
