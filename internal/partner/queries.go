package partner

import (
	"context"

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

// Partner is one external organization cases can be referred to.
type Partner struct {
	ID            uuid.UUID
	Name          string
	Category      pgtype.Text
	ContactPerson pgtype.Text
	ContactNumber pgtype.Text
	Address       pgtype.Text
	Active        bool
	CreatedAt     pgtype.Timestamptz
	UpdatedAt     pgtype.Timestamptz
}

const partnerColumns = `id, name, category, contact_person, contact_number, address, active, created_at, updated_at`

const createPartner = `
INSERT INTO partners (name, category, contact_person, contact_number, address)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + partnerColumns

type CreateParams struct {
	Name          string
	Category      pgtype.Text
	ContactPerson pgtype.Text
	ContactNumber pgtype.Text
	Address       pgtype.Text
}

func (q *Queries) Create(ctx context.Context, arg CreateParams) (Partner, error) {
	row := q.db.QueryRow(ctx, createPartner,
		arg.Name,
		arg.Category,
		arg.ContactPerson,
		arg.ContactNumber,
		arg.Address,
	)
	return scanPartner(row)
}

const updatePartner = `
UPDATE partners
SET name = $2, category = $3, contact_person = $4, contact_number = $5, address = $6, active = $7, updated_at = now()
WHERE id = $1
RETURNING ` + partnerColumns

type UpdateParams struct {
	ID            uuid.UUID
	Name          string
	Category      pgtype.Text
	ContactPerson pgtype.Text
	ContactNumber pgtype.Text
	Address       pgtype.Text
	Active        bool
}

func (q *Queries) Update(ctx context.Context, arg UpdateParams) (Partner, error) {
	row := q.db.QueryRow(ctx, updatePartner,
		arg.ID,
		arg.Name,
		arg.Category,
		arg.ContactPerson,
		arg.ContactNumber,
		arg.Address,
		arg.Active,
	)
	return scanPartner(row)
}

const getPartnerByID = `
SELECT ` + partnerColumns + `
FROM partners
WHERE id = $1
`

func (q *Queries) GetByID(ctx context.Context, id uuid.UUID) (Partner, error) {
	return scanPartner(q.db.QueryRow(ctx, getPartnerByID, id))
}

const existsPartnerByName = `
SELECT EXISTS (SELECT 1 FROM partners WHERE name = $1 AND id <> $2)
`

type ExistsByNameParams struct {
	Name      string
	ExcludeID uuid.UUID
}

func (q *Queries) ExistsByName(ctx context.Context, arg ExistsByNameParams) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, existsPartnerByName, arg.Name, arg.ExcludeID).Scan(&exists)
	return exists, err
}

const listPartners = `
SELECT ` + partnerColumns + `
FROM partners
WHERE ($1::boolean = false OR active)
ORDER BY name
`

func (q *Queries) List(ctx context.Context, activeOnly bool) ([]Partner, error) {
	rows, err := q.db.Query(ctx, listPartners, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Partner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const deletePartner = `
DELETE FROM partners
WHERE id = $1
`

func (q *Queries) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deletePartner, id)
	return err
}

func scanPartner(row pgx.Row) (Partner, error) {
	var p Partner
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Category,
		&p.ContactPerson,
		&p.ContactNumber,
		&p.Address,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}
