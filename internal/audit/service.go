// Package audit keeps an append-only trail of who changed what.
package audit

import (
	"context"
	"encoding/json"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Querier interface {
	Create(ctx context.Context, arg CreateParams) (Entry, error)
	List(ctx context.Context, arg ListParams) ([]Entry, error)
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
		tracer:  otel.Tracer("audit/service"),
	}
}

// Record appends one trail entry. Trail writes never fail the operation that
// triggered them; errors are logged and dropped.
func (s *Service) Record(ctx context.Context, action, entity, entityID, actor string, detail map[string]any) {
	traceCtx, span := s.tracer.Start(ctx, "Record")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	body, err := json.Marshal(detail)
	if err != nil {
		logger.Warn("failed to marshal audit detail", zap.Error(err))
		body = []byte("{}")
	}

	actorText := pgtype.Text{}
	if actor != "" {
		actorText = pgtype.Text{String: actor, Valid: true}
	}

	if _, err := s.queries.Create(traceCtx, CreateParams{
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Actor:    actorText,
		Detail:   body,
	}); err != nil {
		span.RecordError(err)
		logger.Warn("failed to write audit entry",
			zap.String("action", action),
			zap.String("entity", entity),
			zap.String("entity_id", entityID),
			zap.Error(err))
	}
}

func (s *Service) List(ctx context.Context, entity string, limit, offset int32) ([]Entry, error) {
	traceCtx, span := s.tracer.Start(ctx, "List")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	entries, err := s.queries.List(traceCtx, ListParams{Entity: entity, Limit: limit, Offset: offset})
	if err != nil {
		err = databaseutil.WrapDBError(err, logger, "list audit entries")
		span.RecordError(err)
		return nil, err
	}
	return entries, nil
}
