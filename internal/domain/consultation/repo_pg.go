package consultation

import (
	"context"
	"errors"

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

const cols = `id, client_id, patient_id, provider_id, scheduled_at, symptoms,
	diagnosis, prescription, notes, status, created_at, updated_at`

func scanConsultation(row pgx.Row) (*Consultation, error) {
	var c Consultation
	err := row.Scan(&c.ID, &c.ClientID, &c.PatientID, &c.ProviderID, &c.ScheduledAt,
		&c.Symptoms, &c.Diagnosis, &c.Prescription, &c.Notes, &c.Status,
		&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &c, err
}

func (r *repoPG) Create(ctx context.Context, c *Consultation) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO consultations (client_id, patient_id, provider_id, scheduled_at,
			symptoms, diagnosis, prescription, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		c.ClientID, c.PatientID, c.ProviderID, c.ScheduledAt,
		c.Symptoms, c.Diagnosis, c.Prescription, c.Notes, c.Status,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Consultation, error) {
	return scanConsultation(r.conn(ctx).QueryRow(ctx,
		`SELECT `+cols+` FROM consultations WHERE id = $1`, id))
}

func (r *repoPG) GetByClientID(ctx context.Context, clientID string) (*Consultation, error) {
	return scanConsultation(r.conn(ctx).QueryRow(ctx,
		`SELECT `+cols+` FROM consultations WHERE client_id = $1`, clientID))
}

func (r *repoPG) UpdateSyncFields(ctx context.Context, c *Consultation) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE consultations
		SET scheduled_at=$2, symptoms=$3, provider_id=$4, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		c.ID, c.ScheduledAt, c.Symptoms, c.ProviderID,
	).Scan(&c.UpdatedAt)
}

func (r *repoPG) UpdateClinical(ctx context.Context, c *Consultation) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE consultations
		SET diagnosis=$2, prescription=$3, notes=$4, status=$5, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		c.ID, c.Diagnosis, c.Prescription, c.Notes, c.Status,
	).Scan(&c.UpdatedAt)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Consultation, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM consultations WHERE patient_id = $1`, patientID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+cols+` FROM consultations
		WHERE patient_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}
