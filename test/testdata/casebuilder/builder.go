// Package casebuilder fabricates realistic case rows for tests.
package casebuilder

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Amawers/idmsystem-sub000/internal/casefile"
	"github.com/Amawers/idmsystem-sub000/internal/payload"
	"github.com/Amawers/idmsystem-sub000/internal/wizard"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"
)

// Builder accumulates section values for one fake case.
type Builder struct {
	t        *testing.T
	program  wizard.ProgramDef
	sections map[string]wizard.Section
}

func New(t *testing.T, programKey string) *Builder {
	t.Helper()

	program, err := wizard.LookupProgram(programKey)
	require.NoError(t, err)

	return &Builder{
		t:        t,
		program:  program,
		sections: make(map[string]wizard.Section),
	}
}

// WithField sets one section field.
func (b *Builder) WithField(section, field string, value wizard.Value) *Builder {
	record, ok := b.sections[section]
	if !ok {
		record = make(wizard.Section)
		b.sections[section] = record
	}
	record[field] = value
	return b
}

// WithFakeIdentity fills the program's name and birth date fields with
// generated values.
func (b *Builder) WithFakeIdentity() *Builder {
	born := gofakeit.DateRange(
		time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
	)
	return b.
		WithField("identifying", "name", wizard.TextValue(gofakeit.Name())).
		WithField("identifying", "birthday", wizard.TextValue(born.Format("2006-01-02")))
}

// WithFakeFamily appends n generated family members.
func (b *Builder) WithFakeFamily(n int) *Builder {
	members := make([]wizard.SubRecord, n)
	for i := range members {
		members[i] = wizard.SubRecord{
			"name":         gofakeit.Name(),
			"relationship": gofakeit.RandomString([]string{"spouse", "son", "daughter", "sibling"}),
		}
	}
	return b.WithField("family", "members", wizard.ListValue(members))
}

// Sections returns the accumulated wizard sections.
func (b *Builder) Sections() map[string]wizard.Section {
	return b.sections
}

// BuildCase flattens the accumulated sections into a persisted-shape case row.
func (b *Builder) BuildCase() casefile.Case {
	b.t.Helper()

	flat := payload.Build(b.program, b.sections)
	body, err := json.Marshal(flat)
	require.NoError(b.t, err)

	name, _ := flat[b.program.NameColumn].(string)

	now := time.Now()
	return casefile.Case{
		ID:              uuid.New(),
		Program:         b.program.Key,
		Status:          casefile.StatusOpen,
		BeneficiaryName: name,
		Payload:         body,
		CreatedAt:       pgtype.Timestamptz{Time: now, Valid: true},
		UpdatedAt:       pgtype.Timestamptz{Time: now, Valid: true},
	}
}
