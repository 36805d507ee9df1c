package wellness

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/clinic/internal/platform/db"
)

type subjectiveRepoPG struct{ pool *pgxpool.Pool }

func NewSubjectiveRepoPG(pool *pgxpool.Pool) Repository {
	return &subjectiveRepoPG{pool: pool}
}

func (r *subjectiveRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const entryCols = `id, patient_id, date, metric_name, score, notes, created_at`

func (r *subjectiveRepoPG) scanEntry(row pgx.Row) (*SubjectiveEntry, error) {
	var e SubjectiveEntry
	err := row.Scan(&e.ID, &e.PatientID, &e.Date, &e.MetricName, &e.Score, &e.Notes, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan subjective entry: %w", err)
	}
	return &e, nil
}

func (r *subjectiveRepoPG) Create(ctx context.Context, e *SubjectiveEntry) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO subjective_entries (patient_id, date, metric_name, score, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		e.PatientID, e.Date, e.MetricName, e.Score, e.Notes,
	).Scan(&e.ID, &e.CreatedAt)
}

func (r *subjectiveRepoPG) GetByID(ctx context.Context, id int64) (*SubjectiveEntry, error) {
	return r.scanEntry(r.conn(ctx).QueryRow(ctx, `SELECT `+entryCols+` FROM subjective_entries WHERE id = $1`, id))
}

func (r *subjectiveRepoPG) Update(ctx context.Context, e *SubjectiveEntry) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE subjective_entries SET patient_id = $2, date = $3, metric_name = $4, score = $5, notes = $6
		WHERE id = $1`,
		e.ID, e.PatientID, e.Date, e.MetricName, e.Score, e.Notes)
	if err != nil {
		return fmt.Errorf("update subjective entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *subjectiveRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM subjective_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subjective entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *subjectiveRepoPG) ListByPatient(ctx context.Context, patientID int64, metric string, limit, offset int) ([]*SubjectiveEntry, int, error) {
	where := ` WHERE patient_id = $1`
	args := []interface{}{patientID}
	if metric != "" {
		args = append(args, metric)
		where += fmt.Sprintf(` AND metric_name ILIKE $%d`, len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM subjective_entries`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count subjective entries: %w", err)
	}

	query := `SELECT ` + entryCols + ` FROM subjective_entries` + where +
		fmt.Sprintf(` ORDER BY date DESC, id LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)
	items, err := r.query(ctx, query, args...)
	return items, total, err
}

func (r *subjectiveRepoPG) ListAllByPatient(ctx context.Context, patientID int64) ([]*SubjectiveEntry, error) {
	return r.query(ctx, `SELECT `+entryCols+` FROM subjective_entries WHERE patient_id = $1 ORDER BY date DESC, id`, patientID)
}

func (r *subjectiveRepoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*SubjectiveEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list subjective entries: %w", err)
	}
	defer rows.Close()
	items := []*SubjectiveEntry{}
	for rows.Next() {
		e, err := r.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
