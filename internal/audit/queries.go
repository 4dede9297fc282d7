package audit

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

// Entry is one audit trail row.
type Entry struct {
	ID        uuid.UUID
	Action    string
	Entity    string
	EntityID  string
	Actor     pgtype.Text
	Detail    json.RawMessage
	CreatedAt pgtype.Timestamptz
}

const createEntry = `
INSERT INTO audit_log (action, entity, entity_id, actor, detail)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, action, entity, entity_id, actor, detail, created_at
`

type CreateParams struct {
	Action   string
	Entity   string
	EntityID string
	Actor    pgtype.Text
	Detail   json.RawMessage
}

func (q *Queries) Create(ctx context.Context, arg CreateParams) (Entry, error) {
	row := q.db.QueryRow(ctx, createEntry,
		arg.Action,
		arg.Entity,
		arg.EntityID,
		arg.Actor,
		arg.Detail,
	)
	var e Entry
	err := row.Scan(&e.ID, &e.Action, &e.Entity, &e.EntityID, &e.Actor, &e.Detail, &e.CreatedAt)
	return e, err
}

const listEntries = `
SELECT id, action, entity, entity_id, actor, detail, created_at
FROM audit_log
WHERE ($1::text = '' OR entity = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

type ListParams struct {
	Entity string
	Limit  int32
	Offset int32
}

func (q *Queries) List(ctx context.Context, arg ListParams) ([]Entry, error) {
	rows, err := q.db.Query(ctx, listEntries, arg.Entity, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Action, &e.Entity, &e.EntityID, &e.Actor, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
