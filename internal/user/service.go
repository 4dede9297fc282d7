// Package user manages the staff accounts that operate the intake system.
package user

import (
	"context"

	"github.com/Amawers/idmsystem-sub000/internal"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	RoleAdmin        = "admin"
	RoleSocialWorker = "social_worker"
	RoleEncoder      = "encoder"
)

// ValidRole reports whether the given role is one of the known staff roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleSocialWorker, RoleEncoder:
		return true
	}
	return false
}

type Querier interface {
	Create(ctx context.Context, arg CreateParams) (User, error)
	Update(ctx context.Context, arg UpdateParams) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	List(ctx context.Context) ([]User, error)
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
		tracer:  otel.Tracer("user/service"),
	}
}

func (s *Service) Create(ctx context.Context, username, name, role string) (User, error) {
	traceCtx, span := s.tracer.Start(ctx, "Create")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	if !ValidRole(role) {
		return User{}, internal.ErrInvalidRole
	}

	taken, err := s.queries.ExistsByUsername(traceCtx, username)
	if err != nil {
		err = databaseutil.WrapDBError(err, logger, "check username")
		span.RecordError(err)
		return User{}, err
	}
	if taken {
		return User{}, internal.ErrUsernameConflict
	}

	created, err := s.queries.Create(traceCtx, CreateParams{Username: username, Name: name, Role: role})
	if err != nil {
		err = databaseutil.WrapDBError(err, logger, "create user")
		span.RecordError(err)
		return User{}, err
	}

	logger.Info("user created",
		zap.String("user_id", created.ID.String()),
		zap.String("username", created.Username),
		zap.String("role", created.Role))
	return created, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, name, role string, active bool) (User, error) {
	traceCtx, span := s.tracer.Start(ctx, "Update")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	if !ValidRole(role) {
		return User{}, internal.ErrInvalidRole
	}

	updated, err := s.queries.Update(traceCtx, UpdateParams{ID: id, Name: name, Role: role, Active: active})
	if err != nil {
		err = databaseutil.WrapDBErrorWithKeyValue(err, "users", "id", id.String(), logger, "update user")
		span.RecordError(err)
		return User{}, err
	}

	logger.Info("user updated", zap.String("user_id", id.String()))
	return updated, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	traceCtx, span := s.tracer.Start(ctx, "GetByID")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	u, err := s.queries.GetByID(traceCtx, id)
	if err != nil {
		err = databaseutil.WrapDBErrorWithKeyValue(err, "users", "id", id.String(), logger, "get user by id")
		span.RecordError(err)
		return User{}, err
	}
	return u, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	traceCtx, span := s.tracer.Start(ctx, "Delete")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	if err := s.queries.Delete(traceCtx, id); err != nil {
		err = databaseutil.WrapDBError(err, logger, "delete user")
		span.RecordError(err)
		return err
	}

	logger.Info("user deleted", zap.String("user_id", id.String()))
	return nil
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	traceCtx, span := s.tracer.Start(ctx, "List")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	users, err := s.queries.List(traceCtx)
	if err != nil {
		err = databaseutil.WrapDBError(err, logger, "list users")
		span.RecordError(err)
		return nil, err
	}
	return users, nil
}
