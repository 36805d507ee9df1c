package bodycomp

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/clinic/internal/platform/db"
)

// =========== Bioimpedance Repository ===========

type bioimpedanceRepoPG struct{ pool *pgxpool.Pool }

func NewBioimpedanceRepoPG(pool *pgxpool.Pool) BioimpedanceRepository {
	return &bioimpedanceRepoPG{pool: pool}
}

func (r *bioimpedanceRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const bioCols = `id, patient_id, date, weight_kg, bmi, body_fat_percent, fat_mass_kg, muscle_mass_kg,
	visceral_fat_level, basal_metabolic_rate_kcal, hydration_percent, created_at`

func (r *bioimpedanceRepoPG) scanEntry(row pgx.Row) (*BioimpedanceEntry, error) {
	var e BioimpedanceEntry
	err := row.Scan(&e.ID, &e.PatientID, &e.Date, &e.WeightKG, &e.BMI, &e.BodyFatPercent, &e.FatMassKG,
		&e.MuscleMassKG, &e.VisceralFatLevel, &e.BasalMetabolicRateKcal, &e.HydrationPercent, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBioimpedanceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan bioimpedance entry: %w", err)
	}
	return &e, nil
}

func (r *bioimpedanceRepoPG) Create(ctx context.Context, e *BioimpedanceEntry) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO bioimpedance_entries (patient_id, date, weight_kg, bmi, body_fat_percent, fat_mass_kg,
			muscle_mass_kg, visceral_fat_level, basal_metabolic_rate_kcal, hydration_percent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`,
		e.PatientID, e.Date, e.WeightKG, e.BMI, e.BodyFatPercent, e.FatMassKG,
		e.MuscleMassKG, e.VisceralFatLevel, e.BasalMetabolicRateKcal, e.HydrationPercent,
	).Scan(&e.ID, &e.CreatedAt)
}

func (r *bioimpedanceRepoPG) GetByID(ctx context.Context, id int64) (*BioimpedanceEntry, error) {
	return r.scanEntry(r.conn(ctx).QueryRow(ctx, `SELECT `+bioCols+` FROM bioimpedance_entries WHERE id = $1`, id))
}

func (r *bioimpedanceRepoPG) Update(ctx context.Context, e *BioimpedanceEntry) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE bioimpedance_entries SET patient_id = $2, date = $3, weight_kg = $4, bmi = $5,
			body_fat_percent = $6, fat_mass_kg = $7, muscle_mass_kg = $8, visceral_fat_level = $9,
			basal_metabolic_rate_kcal = $10, hydration_percent = $11
		WHERE id = $1`,
		e.ID, e.PatientID, e.Date, e.WeightKG, e.BMI, e.BodyFatPercent, e.FatMassKG,
		e.MuscleMassKG, e.VisceralFatLevel, e.BasalMetabolicRateKcal, e.HydrationPercent)
	if err != nil {
		return fmt.Errorf("update bioimpedance entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBioimpedanceNotFound
	}
	return nil
}

func (r *bioimpedanceRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM bioimpedance_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete bioimpedance entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBioimpedanceNotFound
	}
	return nil
}

func (r *bioimpedanceRepoPG) ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*BioimpedanceEntry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM bioimpedance_entries WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bioimpedance entries: %w", err)
	}
	items, err := r.query(ctx, `SELECT `+bioCols+` FROM bioimpedance_entries WHERE patient_id = $1
		ORDER BY date DESC, id LIMIT $2 OFFSET $3`, patientID, limit, offset)
	return items, total, err
}

func (r *bioimpedanceRepoPG) ListAllByPatient(ctx context.Context, patientID int64) ([]*BioimpedanceEntry, error) {
	return r.query(ctx, `SELECT `+bioCols+` FROM bioimpedance_entries WHERE patient_id = $1 ORDER BY date DESC, id`, patientID)
}

func (r *bioimpedanceRepoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*BioimpedanceEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list bioimpedance entries: %w", err)
	}
	defer rows.Close()
	items := []*BioimpedanceEntry{}
	for rows.Next() {
		e, err := r.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// =========== Anthropometry Repository ===========

type anthropometryRepoPG struct{ pool *pgxpool.Pool }

func NewAnthropometryRepoPG(pool *pgxpool.Pool) AnthropometryRepository {
	return &anthropometryRepoPG{pool: pool}
}

func (r *anthropometryRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const anthroCols = `id, patient_id, date, waist_cm, abdomen_cm, hips_cm, right_arm_cm, left_arm_cm,
	right_thigh_cm, left_thigh_cm, created_at`

func (r *anthropometryRepoPG) scanEntry(row pgx.Row) (*AnthropometryEntry, error) {
	var e AnthropometryEntry
	err := row.Scan(&e.ID, &e.PatientID, &e.Date, &e.WaistCM, &e.AbdomenCM, &e.HipsCM,
		&e.RightArmCM, &e.LeftArmCM, &e.RightThighCM, &e.LeftThighCM, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAnthropometryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan anthropometry entry: %w", err)
	}
	return &e, nil
}

func (r *anthropometryRepoPG) Create(ctx context.Context, e *AnthropometryEntry) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO anthropometry_entries (patient_id, date, waist_cm, abdomen_cm, hips_cm,
			right_arm_cm, left_arm_cm, right_thigh_cm, left_thigh_cm)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		e.PatientID, e.Date, e.WaistCM, e.AbdomenCM, e.HipsCM,
		e.RightArmCM, e.LeftArmCM, e.RightThighCM, e.LeftThighCM,
	).Scan(&e.ID, &e.CreatedAt)
}

func (r *anthropometryRepoPG) GetByID(ctx context.Context, id int64) (*AnthropometryEntry, error) {
	return r.scanEntry(r.conn(ctx).QueryRow(ctx, `SELECT `+anthroCols+` FROM anthropometry_entries WHERE id = $1`, id))
}

func (r *anthropometryRepoPG) Update(ctx context.Context, e *AnthropometryEntry) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE anthropometry_entries SET patient_id = $2, date = $3, waist_cm = $4, abdomen_cm = $5,
			hips_cm = $6, right_arm_cm = $7, left_arm_cm = $8, right_thigh_cm = $9, left_thigh_cm = $10
		WHERE id = $1`,
		e.ID, e.PatientID, e.Date, e.WaistCM, e.AbdomenCM, e.HipsCM,
		e.RightArmCM, e.LeftArmCM, e.RightThighCM, e.LeftThighCM)
	if err != nil {
		return fmt.Errorf("update anthropometry entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAnthropometryNotFound
	}
	return nil
}

func (r *anthropometryRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM anthropometry_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete anthropometry entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAnthropometryNotFound
	}
	return nil
}

func (r *anthropometryRepoPG) ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*AnthropometryEntry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM anthropometry_entries WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count anthropometry entries: %w", err)
	}
	items, err := r.query(ctx, `SELECT `+anthroCols+` FROM anthropometry_entries WHERE patient_id = $1
		ORDER BY date DESC, id LIMIT $2 OFFSET $3`, patientID, limit, offset)
	return items, total, err
}

func (r *anthropometryRepoPG) ListAllByPatient(ctx context.Context, patientID int64) ([]*AnthropometryEntry, error) {
	return r.query(ctx, `SELECT `+anthroCols+` FROM anthropometry_entries WHERE patient_id = $1 ORDER BY date DESC, id`, patientID)
}

func (r *anthropometryRepoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*AnthropometryEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list anthropometry entries: %w", err)
	}
	defer rows.Close()
	items := []*AnthropometryEntry{}
	for rows.Next() {
		e, err := r.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
