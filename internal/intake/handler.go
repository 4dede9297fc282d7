package intake

import (
	"context"
	"errors"
	"net/http"

	"github.com/Amawers/idmsystem-sub000/internal"
	"github.com/Amawers/idmsystem-sub000/internal/casefile"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type SubmitRequest struct {
	CaseID string `json:"caseId" validate:"omitempty,uuid"`
	Actor  string `json:"actor" validate:"omitempty,max=255"`
}

// SubmitError is the validation half of the submit envelope.
type SubmitError struct {
	Message          string                `json:"message"`
	ValidationErrors []internal.FieldError `json:"validationErrors,omitempty"`
}

// SubmitResponse always carries exactly one of ID or Error, so clients
// branch on a single shape for both outcomes.
type SubmitResponse struct {
	ID    *string      `json:"id"`
	Error *SubmitError `json:"error"`
}

// Submitter finalizes a session into a case.
type Submitter interface {
	Submit(ctx context.Context, sessionID uuid.UUID, caseID *uuid.UUID, actor string) (casefile.Case, error)
}

type Handler struct {
	logger        *zap.Logger
	validator     *validator.Validate
	problemWriter *problem.HttpWriter
	submitter     Submitter
	tracer        trace.Tracer
}

func NewHandler(logger *zap.Logger, validator *validator.Validate, problemWriter *problem.HttpWriter, submitter Submitter) *Handler {
	return &Handler{
		logger:        logger,
		validator:     validator,
		problemWriter: problemWriter,
		submitter:     submitter,
		tracer:        otel.Tracer("intake/handler"),
	}
}

// SubmitHandler finalizes a wizard session. Completeness failures come back
// inside the submit envelope with field-level detail; everything else is a
// problem response.
func (h *Handler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "SubmitHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	sessionID, err := handlerutil.ParseUUID(r.PathValue("sessionId"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	var request SubmitRequest
	if r.ContentLength > 0 {
		if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &request); err != nil {
			h.problemWriter.WriteError(traceCtx, w, err, logger)
			return
		}
	}

	var caseID *uuid.UUID
	if request.CaseID != "" {
		parsed, err := handlerutil.ParseUUID(request.CaseID)
		if err != nil {
			h.problemWriter.WriteError(traceCtx, w, err, logger)
			return
		}
		caseID = &parsed
	}

	result, err := h.submitter.Submit(traceCtx, sessionID, caseID, request.Actor)
	if err != nil {
		var incomplete internal.ErrSubmissionIncomplete
		if errors.As(err, &incomplete) {
			fieldErrors := make([]internal.FieldError, len(incomplete.Missing))
			for i, m := range incomplete.Missing {
				fieldErrors[i] = internal.FieldError{
					Field:   m.Section + "." + m.Field,
					Message: "this field is required",
				}
			}
			handlerutil.WriteJSONResponse(w, http.StatusUnprocessableEntity, SubmitResponse{
				Error: &SubmitError{
					Message:          "submission is not complete",
					ValidationErrors: fieldErrors,
				},
			})
			return
		}

		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	id := result.ID.String()
	handlerutil.WriteJSONResponse(w, http.StatusCreated, SubmitResponse{ID: &id})
}
