package user

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

// User is one staff account that operates the intake wizard.
type User struct {
	ID        uuid.UUID
	Username  string
	Name      string
	Role      string
	Active    bool
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

const userColumns = `id, username, name, role, active, created_at, updated_at`

const createUser = `
INSERT INTO users (username, name, role)
VALUES ($1, $2, $3)
RETURNING ` + userColumns

type CreateParams struct {
	Username string
	Name     string
	Role     string
}

func (q *Queries) Create(ctx context.Context, arg CreateParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, createUser, arg.Username, arg.Name, arg.Role))
}

const updateUser = `
UPDATE users
SET name = $2, role = $3, active = $4, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

type UpdateParams struct {
	ID     uuid.UUID
	Name   string
	Role   string
	Active bool
}

func (q *Queries) Update(ctx context.Context, arg UpdateParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, updateUser, arg.ID, arg.Name, arg.Role, arg.Active))
}

const getUserByID = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1
`

func (q *Queries) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

const existsUserByUsername = `
SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)
`

func (q *Queries) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, existsUserByUsername, username).Scan(&exists)
	return exists, err
}

const listUsers = `
SELECT ` + userColumns + `
FROM users
ORDER BY username
`

func (q *Queries) List(ctx context.Context) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}

const deleteUser = `
DELETE FROM users
WHERE id = $1
`

func (q *Queries) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteUser, id)
	return err
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Name, &u.Role, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
