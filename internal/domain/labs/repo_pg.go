package labs

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/clinic/internal/platform/db"
)

// =========== Definition Repository ===========

type definitionRepoPG struct{ pool *pgxpool.Pool }

func NewDefinitionRepoPG(pool *pgxpool.Pool) DefinitionRepository {
	return &definitionRepoPG{pool: pool}
}

func (r *definitionRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const defCols = `id, name, COALESCE(category, ''), COALESCE(unit, ''), ref_min_male, ref_max_male, ref_min_female, ref_max_female`

func (r *definitionRepoPG) scanDef(row pgx.Row) (*LabTestDefinition, error) {
	var d LabTestDefinition
	err := row.Scan(&d.ID, &d.Name, &d.Category, &d.Unit,
		&d.RefMinMale, &d.RefMaxMale, &d.RefMinFemale, &d.RefMaxFemale)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDefinitionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan lab test definition: %w", err)
	}
	return &d, nil
}

func (r *definitionRepoPG) Create(ctx context.Context, d *LabTestDefinition) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO lab_test_definitions (name, category, unit, ref_min_male, ref_max_male, ref_min_female, ref_max_female)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7)
		RETURNING id`,
		d.Name, d.Category, d.Unit, d.RefMinMale, d.RefMaxMale, d.RefMinFemale, d.RefMaxFemale,
	).Scan(&d.ID)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateName
	}
	return err
}

func (r *definitionRepoPG) GetByID(ctx context.Context, id int64) (*LabTestDefinition, error) {
	return r.scanDef(r.conn(ctx).QueryRow(ctx, `SELECT `+defCols+` FROM lab_test_definitions WHERE id = $1`, id))
}

func (r *definitionRepoPG) Update(ctx context.Context, d *LabTestDefinition) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE lab_test_definitions SET name = $2, category = NULLIF($3, ''), unit = NULLIF($4, ''),
			ref_min_male = $5, ref_max_male = $6, ref_min_female = $7, ref_max_female = $8
		WHERE id = $1`,
		d.ID, d.Name, d.Category, d.Unit, d.RefMinMale, d.RefMaxMale, d.RefMinFemale, d.RefMaxFemale)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateName
	}
	if err != nil {
		return fmt.Errorf("update lab test definition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDefinitionNotFound
	}
	return nil
}

func (r *definitionRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM lab_test_definitions WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return ErrDefinitionInUse
	}
	if err != nil {
		return fmt.Errorf("delete lab test definition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDefinitionNotFound
	}
	return nil
}

func (r *definitionRepoPG) List(ctx context.Context, category string, limit, offset int) ([]*LabTestDefinition, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	if category != "" {
		args = append(args, category)
		where += fmt.Sprintf(` AND category ILIKE $%d`, len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM lab_test_definitions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count lab test definitions: %w", err)
	}

	query := `SELECT ` + defCols + ` FROM lab_test_definitions` + where +
		fmt.Sprintf(` ORDER BY name, id LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	items, err := r.query(ctx, query, args...)
	return items, total, err
}

func (r *definitionRepoPG) ListAll(ctx context.Context) ([]*LabTestDefinition, error) {
	return r.query(ctx, `SELECT `+defCols+` FROM lab_test_definitions ORDER BY id`)
}

func (r *definitionRepoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*LabTestDefinition, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list lab test definitions: %w", err)
	}
	defer rows.Close()
	items := []*LabTestDefinition{}
	for rows.Next() {
		d, err := r.scanDef(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *definitionRepoPG) Upsert(ctx context.Context, d *LabTestDefinition) (bool, error) {
	var inserted bool
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO lab_test_definitions (name, category, unit, ref_min_male, ref_max_male, ref_min_female, ref_max_female)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7)
		ON CONFLICT (name) DO UPDATE SET
			category = EXCLUDED.category, unit = EXCLUDED.unit,
			ref_min_male = EXCLUDED.ref_min_male, ref_max_male = EXCLUDED.ref_max_male,
			ref_min_female = EXCLUDED.ref_min_female, ref_max_female = EXCLUDED.ref_max_female
		RETURNING id, (xmax = 0)`,
		d.Name, d.Category, d.Unit, d.RefMinMale, d.RefMaxMale, d.RefMinFemale, d.RefMaxFemale,
	).Scan(&d.ID, &inserted)
	if err != nil {
		return false, fmt.Errorf("upsert lab test definition %q: %w", d.Name, err)
	}
	return inserted, nil
}

// =========== Result Repository ===========

type resultRepoPG struct{ pool *pgxpool.Pool }

func NewResultRepoPG(pool *pgxpool.Pool) ResultRepository {
	return &resultRepoPG{pool: pool}
}

func (r *resultRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const resultCols = `id, patient_id, test_definition_id, collection_date, value, COALESCE(flag, ''), flag_auto, created_at`

func (r *resultRepoPG) scanResult(row pgx.Row) (*LabResult, error) {
	var lr LabResult
	err := row.Scan(&lr.ID, &lr.PatientID, &lr.TestDefinitionID, &lr.CollectionDate,
		&lr.Value, &lr.Flag, &lr.flagAuto, &lr.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan lab result: %w", err)
	}
	return &lr, nil
}

func (r *resultRepoPG) Create(ctx context.Context, lr *LabResult) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO lab_results (patient_id, test_definition_id, collection_date, value, flag, flag_auto)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		RETURNING id, created_at`,
		lr.PatientID, lr.TestDefinitionID, lr.CollectionDate, lr.Value, lr.Flag, lr.flagAuto,
	).Scan(&lr.ID, &lr.CreatedAt)
}

func (r *resultRepoPG) GetByID(ctx context.Context, id int64) (*LabResult, error) {
	return r.scanResult(r.conn(ctx).QueryRow(ctx, `SELECT `+resultCols+` FROM lab_results WHERE id = $1`, id))
}

func (r *resultRepoPG) Update(ctx context.Context, lr *LabResult) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE lab_results SET patient_id = $2, test_definition_id = $3, collection_date = $4,
			value = $5, flag = NULLIF($6, ''), flag_auto = $7
		WHERE id = $1`,
		lr.ID, lr.PatientID, lr.TestDefinitionID, lr.CollectionDate, lr.Value, lr.Flag, lr.flagAuto)
	if err != nil {
		return fmt.Errorf("update lab result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrResultNotFound
	}
	return nil
}

func (r *resultRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM lab_results WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lab result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrResultNotFound
	}
	return nil
}

func (r *resultRepoPG) ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*LabResult, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM lab_results WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count lab results: %w", err)
	}
	items, err := r.query(ctx, `SELECT `+resultCols+` FROM lab_results WHERE patient_id = $1
		ORDER BY collection_date DESC, id LIMIT $2 OFFSET $3`, patientID, limit, offset)
	return items, total, err
}

func (r *resultRepoPG) ListAllByPatient(ctx context.Context, patientID int64) ([]*LabResult, error) {
	return r.query(ctx, `SELECT `+resultCols+` FROM lab_results WHERE patient_id = $1
		ORDER BY collection_date DESC, id`, patientID)
}

func (r *resultRepoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*LabResult, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list lab results: %w", err)
	}
	defer rows.Close()
	items := []*LabResult{}
	for rows.Next() {
		lr, err := r.scanResult(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, lr)
	}
	return items, rows.Err()
}
