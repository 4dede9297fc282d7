// Package intake turns a finished wizard session into a persisted case: it
// checks completeness across all sections, flattens the store into the flat
// case payload, writes the case, and retires the session.
package intake

import (
	"context"

	"github.com/Amawers/idmsystem-sub000/internal"
	"github.com/Amawers/idmsystem-sub000/internal/casefile"
	"github.com/Amawers/idmsystem-sub000/internal/payload"
	"github.com/Amawers/idmsystem-sub000/internal/wizard"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// SessionStore is the slice of the wizard service the gateway needs.
type SessionStore interface {
	Export(ctx context.Context, id uuid.UUID) (map[string]wizard.Section, wizard.ProgramDef, error)
	Discard(ctx context.Context, id uuid.UUID) error
}

// CaseStore persists the flattened payload.
type CaseStore interface {
	Create(ctx context.Context, def wizard.ProgramDef, flat map[string]any, createdBy string) (casefile.Case, error)
	Update(ctx context.Context, id uuid.UUID, def wizard.ProgramDef, flat map[string]any) (casefile.Case, error)
}

// Recorder appends to the audit trail. Submission must not fail when the
// trail write does, so implementations log their own errors.
type Recorder interface {
	Record(ctx context.Context, action, entity, entityID, actor string, detail map[string]any)
}

type Service struct {
	logger   *zap.Logger
	sessions SessionStore
	cases    CaseStore
	recorder Recorder
	tracer   trace.Tracer
}

func NewService(logger *zap.Logger, sessions SessionStore, cases CaseStore, recorder Recorder) *Service {
	return &Service{
		logger:   logger,
		sessions: sessions,
		cases:    cases,
		recorder: recorder,
		tracer:   otel.Tracer("intake/service"),
	}
}

// Submit finalizes a wizard session. When caseID is non-nil the payload
// overwrites that existing case instead of creating a new one. On success the
// session is discarded; on any failure the session and its data survive so
// the operator can correct and retry.
func (s *Service) Submit(ctx context.Context, sessionID uuid.UUID, caseID *uuid.UUID, actor string) (casefile.Case, error) {
	traceCtx, span := s.tracer.Start(ctx, "Submit")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	sections, def, err := s.sessions.Export(traceCtx, sessionID)
	if err != nil {
		span.RecordError(err)
		return casefile.Case{}, err
	}

	if err := checkComplete(def, sections); err != nil {
		span.RecordError(err)
		return casefile.Case{}, err
	}

	flat := payload.Build(def, sections)

	var result casefile.Case
	var action string
	if caseID != nil {
		result, err = s.cases.Update(traceCtx, *caseID, def, flat)
		action = "case.updated"
	} else {
		result, err = s.cases.Create(traceCtx, def, flat, actor)
		action = "case.created"
	}
	if err != nil {
		span.RecordError(err)
		return casefile.Case{}, err
	}

	s.recorder.Record(traceCtx, action, "case", result.ID.String(), actor, map[string]any{
		"program":     def.Key,
		"beneficiary": result.BeneficiaryName,
	})

	if err := s.sessions.Discard(traceCtx, sessionID); err != nil {
		// The case is already persisted; a stale session only lingers until
		// the janitor prunes it.
		logger.Warn("failed to discard session after submit",
			zap.String("session_id", sessionID.String()),
			zap.Error(err))
	}

	logger.Info("intake submitted",
		zap.String("session_id", sessionID.String()),
		zap.String("case_id", result.ID.String()),
		zap.String("program", def.Key))
	return result, nil
}

// checkComplete verifies every required field across all sections of the
// program, not just the sections the operator visited.
func checkComplete(def wizard.ProgramDef, sections map[string]wizard.Section) error {
	var missing []struct {
		Section string
		Field   string
	}

	for _, sectionDef := range def.Sections {
		record := sections[sectionDef.Key]
		for _, fieldDef := range sectionDef.Fields {
			value, present := record[fieldDef.Name]

			switch fieldDef.Kind {
			case wizard.FieldList:
				if fieldDef.MinItems > 0 && len(value.List) < fieldDef.MinItems {
					missing = append(missing, struct {
						Section string
						Field   string
					}{sectionDef.Key, fieldDef.Name})
				}
			case wizard.FieldFlag:
				// A flag reads as false when unset; it is never missing.
			default:
				if fieldDef.Required && (!present || value.Text == "") {
					missing = append(missing, struct {
						Section string
						Field   string
					}{sectionDef.Key, fieldDef.Name})
				}
			}
		}
	}

	if len(missing) > 0 {
		return internal.ErrSubmissionIncomplete{Missing: missing}
	}
	return nil
}
