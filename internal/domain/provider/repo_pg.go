package provider

import (
	"context"
	"errors"
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

const cols = `id, name, email, specialty, sub_specialties, verification_status,
	rejection_reason, active, created_at, updated_at`

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Specialty, &p.SubSpecialties,
		&p.VerificationStatus, &p.RejectionReason, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Provider) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO providers (name, email, specialty, sub_specialties, verification_status, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		p.Name, p.Email, p.Specialty, p.SubSpecialties, p.VerificationStatus, p.Active,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Provider, error) {
	return scanProvider(r.conn(ctx).QueryRow(ctx,
		`SELECT `+cols+` FROM providers WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Provider) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE providers
		SET name=$2, email=$3, specialty=$4, sub_specialties=$5,
			verification_status=$6, rejection_reason=$7, active=$8, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Name, p.Email, p.Specialty, p.SubSpecialties,
		p.VerificationStatus, p.RejectionReason, p.Active,
	).Scan(&p.UpdatedAt)
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Provider, int, error) {
	query := `SELECT ` + cols + ` FROM providers WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM providers WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.Specialty != "" {
		clause := fmt.Sprintf(` AND specialty ILIKE $%d`, idx)
		query += clause
		countQuery += clause
		args = append(args, "%"+f.Specialty+"%")
		idx++
	}
	if f.VerificationStatus != "" {
		clause := fmt.Sprintf(` AND verification_status = $%d`, idx)
		query += clause
		countQuery += clause
		args = append(args, f.VerificationStatus)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY id ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) FirstVerifiedBySpecialty(ctx context.Context, hint string) (*Provider, error) {
	p, err := scanProvider(r.conn(ctx).QueryRow(ctx, `
		SELECT `+cols+` FROM providers
		WHERE verification_status = $1 AND active AND specialty ILIKE $2
		ORDER BY id ASC
		LIMIT 1`,
		VerificationVerified, "%"+hint+"%"))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return p, err
}
