// Package partner manages the directory of external organizations that
// assistance cases can be referred to.
package partner

import (
	"context"

	"github.com/Amawers/idmsystem-sub000/internal"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Querier interface {
	Create(ctx context.Context, arg CreateParams) (Partner, error)
	Update(ctx context.Context, arg UpdateParams) (Partner, error)
	GetByID(ctx context.Context, id uuid.UUID) (Partner, error)
	ExistsByName(ctx context.Context, arg ExistsByNameParams) (bool, error)
	List(ctx context.Context, activeOnly bool) ([]Partner, error)
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
		tracer:  otel.Tracer("partner/service"),
	}
}

func (s *Service) Create(ctx context.Context, arg CreateParams) (Partner, error) {
	traceCtx, span := s.tracer.Start(ctx, "Create")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	taken, err := s.queries.ExistsByName(traceCtx, ExistsByNameParams{Name: arg.Name})
	if err != nil {
		err = databaseutil.WrapDBError(err, logger, "check partner name")
		span.RecordError(err)
		return Partner{}, err
	}
	if taken {
		return Partner{}, internal.ErrPartnerNameConflict
	}

	created, err := s.queries.Create(traceCtx, arg)
	if err != nil {
		err = databaseutil.WrapDBError(err, logger, "create partner")
		span.RecordError(err)
		return Partner{}, err
	}

	logger.Info("partner created",
		zap.String("partner_id", created.ID.String()),
		zap.String("name", created.Name))
	return created, nil
}

func (s *Service) Update(ctx context.Context, arg UpdateParams) (Partner, error) {
	traceCtx, span := s.tracer.Start(ctx, "Update")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	taken, err := s.queries.ExistsByName(traceCtx, ExistsByNameParams{Name: arg.Name, ExcludeID: arg.ID})
	if err != nil {
		err = databaseutil.WrapDBError(err, logger, "check partner name")
		span.RecordError(err)
		return Partner{}, err
	}
	if taken {
		return Partner{}, internal.ErrPartnerNameConflict
	}

	updated, err := s.queries.Update(traceCtx, arg)
	if err != nil {
		err = databaseutil.WrapDBErrorWithKeyValue(err, "partners", "id", arg.ID.String(), logger, "update partner")
		span.RecordError(err)
		return Partner{}, err
	}

	logger.Info("partner updated", zap.String("partner_id", arg.ID.String()))
	return updated, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (Partner, error) {
	traceCtx, span := s.tracer.Start(ctx, "GetByID")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	p, err := s.queries.GetByID(traceCtx, id)
	if err != nil {
		err = databaseutil.WrapDBErrorWithKeyValue(err, "partners", "id", id.String(), logger, "get partner by id")
		span.RecordError(err)
		return Partner{}, err
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]Partner, error) {
	traceCtx, span := s.tracer.Start(ctx, "List")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	partners, err := s.queries.List(traceCtx, activeOnly)
	if err != nil {
		err = databaseutil.WrapDBError(err, logger, "list partners")
		span.RecordError(err)
		return nil, err
	}
	return partners, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	traceCtx, span := s.tracer.Start(ctx, "Delete")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	if err := s.queries.Delete(traceCtx, id); err != nil {
		err = databaseutil.WrapDBError(err, logger, "delete partner")
		span.RecordError(err)
		return err
	}

	logger.Info("partner deleted", zap.String("partner_id", id.String()))
	return nil
}

// TextOrEmpty converts an optional request string into a nullable column.
func TextOrEmpty(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
