package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teleclinic/teleclinic/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *repoPG) Insert(ctx context.Context, e *Event) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO audit_events (action, actor_id, resource_type, resource_id, detail)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, recorded`,
		e.Action, e.ActorID, e.ResourceType, e.ResourceID, e.Detail,
	).Scan(&e.ID, &e.Recorded)
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Event, int, error) {
	query := `SELECT id, action, actor_id, resource_type, resource_id, detail, recorded
		FROM audit_events WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM audit_events WHERE 1=1`
	var args []interface{}
	idx := 1

	add := func(clause, val string) {
		c := fmt.Sprintf(clause, idx)
		query += c
		countQuery += c
		args = append(args, val)
		idx++
	}
	if f.Action != "" {
		add(` AND action = $%d`, f.Action)
	}
	if f.ActorID != "" {
		add(` AND actor_id = $%d`, f.ActorID)
	}
	if f.ResourceType != "" {
		add(` AND resource_type = $%d`, f.ResourceType)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY recorded DESC, id DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Action, &e.ActorID, &e.ResourceType,
			&e.ResourceID, &e.Detail, &e.Recorded); err != nil {
			return nil, 0, err
		}
		items = append(items, &e)
	}
	return items, total, rows.Err()
}
