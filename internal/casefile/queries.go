package casefile

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// Case is one completed intake: the flat payload plus the headline columns
// pulled out for listing and filtering.
type Case struct {
	ID              uuid.UUID
	Program         string
	Status          string
	BeneficiaryName string
	DateOfBirth     pgtype.Date
	Payload         json.RawMessage
	CreatedBy       pgtype.Text
	CreatedAt       pgtype.Timestamptz
	UpdatedAt       pgtype.Timestamptz
}

const createCase = `
INSERT INTO cases (program, status, beneficiary_name, date_of_birth, payload, created_by)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, program, status, beneficiary_name, date_of_birth, payload, created_by, created_at, updated_at
`

type CreateParams struct {
	Program         string
	Status          string
	BeneficiaryName string
	DateOfBirth     pgtype.Date
	Payload         json.RawMessage
	CreatedBy       pgtype.Text
}

func (q *Queries) Create(ctx context.Context, arg CreateParams) (Case, error) {
	row := q.db.QueryRow(ctx, createCase,
		arg.Program,
		arg.Status,
		arg.BeneficiaryName,
		arg.DateOfBirth,
		arg.Payload,
		arg.CreatedBy,
	)
	var c Case
	err := row.Scan(
		&c.ID,
		&c.Program,
		&c.Status,
		&c.BeneficiaryName,
		&c.DateOfBirth,
		&c.Payload,
		&c.CreatedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

const updateCase = `
UPDATE cases
SET status = $2, beneficiary_name = $3, date_of_birth = $4, payload = $5, updated_at = now()
WHERE id = $1
RETURNING id, program, status, beneficiary_name, date_of_birth, payload, created_by, created_at, updated_at
`

type UpdateParams struct {
	ID              uuid.UUID
	Status          string
	BeneficiaryName string
	DateOfBirth     pgtype.Date
	Payload         json.RawMessage
}

func (q *Queries) Update(ctx context.Context, arg UpdateParams) (Case, error) {
	row := q.db.QueryRow(ctx, updateCase,
		arg.ID,
		arg.Status,
		arg.BeneficiaryName,
		arg.DateOfBirth,
		arg.Payload,
	)
	var c Case
	err := row.Scan(
		&c.ID,
		&c.Program,
		&c.Status,
		&c.BeneficiaryName,
		&c.DateOfBirth,
		&c.Payload,
		&c.CreatedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

const getCaseByID = `
SELECT id, program, status, beneficiary_name, date_of_birth, payload, created_by, created_at, updated_at
FROM cases
WHERE id = $1
`

func (q *Queries) GetByID(ctx context.Context, id uuid.UUID) (Case, error) {
	row := q.db.QueryRow(ctx, getCaseByID, id)
	var c Case
	err := row.Scan(
		&c.ID,
		&c.Program,
		&c.Status,
		&c.BeneficiaryName,
		&c.DateOfBirth,
		&c.Payload,
		&c.CreatedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

const listCases = `
SELECT id, program, status, beneficiary_name, date_of_birth, payload, created_by, created_at, updated_at
FROM cases
WHERE ($1::text = '' OR program = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

type ListParams struct {
	Program string
	Limit   int32
	Offset  int32
}

func (q *Queries) List(ctx context.Context, arg ListParams) ([]Case, error) {
	rows, err := q.db.Query(ctx, listCases, arg.Program, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Case
	for rows.Next() {
		var c Case
		if err := rows.Scan(
			&c.ID,
			&c.Program,
			&c.Status,
			&c.BeneficiaryName,
			&c.DateOfBirth,
			&c.Payload,
			&c.CreatedBy,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const listCasesByProgram = `
SELECT id, program, status, beneficiary_name, date_of_birth, payload, created_by, created_at, updated_at
FROM cases
WHERE program = $1
ORDER BY created_at DESC
`

func (q *Queries) ListByProgram(ctx context.Context, program string) ([]Case, error) {
	rows, err := q.db.Query(ctx, listCasesByProgram, program)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Case
	for rows.Next() {
		var c Case
		if err := rows.Scan(
			&c.ID,
			&c.Program,
			&c.Status,
			&c.BeneficiaryName,
			&c.DateOfBirth,
			&c.Payload,
			&c.CreatedBy,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const deleteCase = `
DELETE FROM cases
WHERE id = $1
`

func (q *Queries) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteCase, id)
	return err
}
