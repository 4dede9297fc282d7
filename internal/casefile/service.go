// Package casefile persists completed intakes and serves the case roster.
package casefile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Amawers/idmsystem-sub000/internal"
	"github.com/Amawers/idmsystem-sub000/internal/payload"
	"github.com/Amawers/idmsystem-sub000/internal/wizard"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// StatusOpen is the status a freshly submitted case starts in.
const StatusOpen = "open"

type Querier interface {
	Create(ctx context.Context, arg CreateParams) (Case, error)
	Update(ctx context.Context, arg UpdateParams) (Case, error)
	GetByID(ctx context.Context, id uuid.UUID) (Case, error)
	List(ctx context.Context, arg ListParams) ([]Case, error)
	ListByProgram(ctx context.Context, program string) ([]Case, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	logger  *zap.Logger
	queries Querier
	tracer  trace.Tracer
}

func NewService(logger *zap.Logger, db DBTX) *Service {
	return &Service{
		logger:  logger,
		queries: New(db),
		tracer:  otel.Tracer("casefile/service"),
	}
}

// Create persists a new case from a flat payload. The headline columns are
// lifted out of the payload using the program definition.
func (s *Service) Create(ctx context.Context, def wizard.ProgramDef, flat map[string]any, createdBy string) (Case, error) {
	traceCtx, span := s.tracer.Start(ctx, "Create")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	body, err := json.Marshal(flat)
	if err != nil {
		span.RecordError(err)
		return Case{}, fmt.Errorf("marshal case payload: %w", err)
	}

	creator := pgtype.Text{}
	if createdBy != "" {
		creator = pgtype.Text{String: createdBy, Valid: true}
	}

	created, err := s.queries.Create(traceCtx, CreateParams{
		Program:         def.Key,
		Status:          StatusOpen,
		BeneficiaryName: headlineName(def, flat),
		DateOfBirth:     headlineBirthDate(def, flat),
		Payload:         body,
		CreatedBy:       creator,
	})
	if err != nil {
		err = databaseutil.WrapDBError(err, logger, "create case")
		span.RecordError(err)
		return Case{}, err
	}

	logger.Info("case created",
		zap.String("case_id", created.ID.String()),
		zap.String("program", created.Program))
	return created, nil
}

// Update overwrites an existing case's payload, refreshing the headline
// columns alongside it.
func (s *Service) Update(ctx context.Context, id uuid.UUID, def wizard.ProgramDef, flat map[string]any) (Case, error) {
	traceCtx, span := s.tracer.Start(ctx, "Update")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	existing, err := s.queries.GetByID(traceCtx, id)
	if err != nil {
		err = databaseutil.WrapDBErrorWithKeyValue(err, "cases", "id", id.String(), logger, "get case by id")
		span.RecordError(err)
		return Case{}, err
	}
	if existing.Program != def.Key {
		return Case{}, internal.ErrCaseProgramMismatch
	}

	body, err := json.Marshal(flat)
	if err != nil {
		span.RecordError(err)
		return Case{}, fmt.Errorf("marshal case payload: %w", err)
	}

	updated, err := s.queries.Update(traceCtx, UpdateParams{
		ID:              id,
		Status:          existing.Status,
		BeneficiaryName: headlineName(def, flat),
		DateOfBirth:     headlineBirthDate(def, flat),
		Payload:         body,
	})
	if err != nil {
		err = databaseutil.WrapDBError(err, logger, "update case")
		span.RecordError(err)
		return Case{}, err
	}

	logger.Info("case updated", zap.String("case_id", id.String()))
	return updated, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (Case, error) {
	traceCtx, span := s.tracer.Start(ctx, "GetByID")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	c, err := s.queries.GetByID(traceCtx, id)
	if err != nil {
		err = databaseutil.WrapDBErrorWithKeyValue(err, "cases", "id", id.String(), logger, "get case by id")
		span.RecordError(err)
		return Case{}, err
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, program string, limit, offset int32) ([]Case, error) {
	traceCtx, span := s.tracer.Start(ctx, "List")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	cases, err := s.queries.List(traceCtx, ListParams{Program: program, Limit: limit, Offset: offset})
	if err != nil {
		err = databaseutil.WrapDBError(err, logger, "list cases")
		span.RecordError(err)
		return nil, err
	}
	return cases, nil
}

// ListByProgram returns every case of one program, newest first. Used by the
// roster export.
func (s *Service) ListByProgram(ctx context.Context, program string) ([]Case, error) {
	traceCtx, span := s.tracer.Start(ctx, "ListByProgram")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	cases, err := s.queries.ListByProgram(traceCtx, program)
	if err != nil {
		err = databaseutil.WrapDBError(err, logger, "list cases by program")
		span.RecordError(err)
		return nil, err
	}
	return cases, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	traceCtx, span := s.tracer.Start(ctx, "Delete")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	if err := s.queries.Delete(traceCtx, id); err != nil {
		err = databaseutil.WrapDBError(err, logger, "delete case")
		span.RecordError(err)
		return err
	}

	logger.Info("case deleted", zap.String("case_id", id.String()))
	return nil
}

// SectionsForCase rebuilds the wizard sections of a stored case so it can be
// reopened for editing.
func (s *Service) SectionsForCase(ctx context.Context, caseID uuid.UUID) (string, map[string]wizard.Section, error) {
	traceCtx, span := s.tracer.Start(ctx, "SectionsForCase")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	c, err := s.queries.GetByID(traceCtx, caseID)
	if err != nil {
		err = databaseutil.WrapDBErrorWithKeyValue(err, "cases", "id", caseID.String(), logger, "get case by id")
		span.RecordError(err)
		return "", nil, err
	}

	def, err := wizard.LookupProgram(c.Program)
	if err != nil {
		span.RecordError(err)
		return "", nil, err
	}

	var flat map[string]any
	if err := json.Unmarshal(c.Payload, &flat); err != nil {
		span.RecordError(err)
		return "", nil, fmt.Errorf("decode case payload: %w", err)
	}

	sections, err := payload.Hydrate(def, flat)
	if err != nil {
		span.RecordError(err)
		return "", nil, err
	}
	return c.Program, sections, nil
}

// headlineName reads the program's name column out of a flat payload.
func headlineName(def wizard.ProgramDef, flat map[string]any) string {
	if v, ok := flat[def.NameColumn].(string); ok {
		return v
	}
	return ""
}

// headlineBirthDate reads the program's birth date column, already normalized
// to YYYY-MM-DD by the payload builder.
func headlineBirthDate(def wizard.ProgramDef, flat map[string]any) pgtype.Date {
	v, ok := flat[def.BirthDateColumn].(string)
	if !ok || v == "" {
		return pgtype.Date{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: t, Valid: true}
}
