package casefile

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/Amawers/idmsystem-sub000/internal"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type CaseResponse struct {
	ID              string          `json:"id" validate:"required,uuid"`
	Program         string          `json:"program" validate:"required"`
	Status          string          `json:"status" validate:"required"`
	BeneficiaryName string          `json:"beneficiaryName"`
	DateOfBirth     *string         `json:"dateOfBirth"`
	Payload         json.RawMessage `json:"payload"`
	CreatedBy       string          `json:"createdBy,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type ListResponse struct {
	Cases []CaseResponse `json:"cases"`
}

// Store is the case operation surface the handler depends on.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (Case, error)
	List(ctx context.Context, program string, limit, offset int32) ([]Case, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Handler struct {
	logger        *zap.Logger
	validator     *validator.Validate
	problemWriter *problem.HttpWriter
	store         Store
	tracer        trace.Tracer
}

func NewHandler(logger *zap.Logger, validator *validator.Validate, problemWriter *problem.HttpWriter, store Store) *Handler {
	return &Handler{
		logger:        logger,
		validator:     validator,
		problemWriter: problemWriter,
		store:         store,
		tracer:        otel.Tracer("casefile/handler"),
	}
}

// ListCasesHandler lists cases newest first, optionally filtered by program.
func (h *Handler) ListCasesHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "ListCasesHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	limit, offset, err := parsePagination(r)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	cases, err := h.store.List(traceCtx, r.URL.Query().Get("program"), limit, offset)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	body := ListResponse{Cases: make([]CaseResponse, len(cases))}
	for i, c := range cases {
		body.Cases[i] = toCaseResponse(c)
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, body)
}

// GetCaseHandler reads a single case with its full payload.
func (h *Handler) GetCaseHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "GetCaseHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, err := handlerutil.ParseUUID(r.PathValue("caseId"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	c, err := h.store.GetByID(traceCtx, id)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, toCaseResponse(c))
}

// DeleteCaseHandler removes a case record.
func (h *Handler) DeleteCaseHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "DeleteCaseHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, err := handlerutil.ParseUUID(r.PathValue("caseId"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	if err := h.store.Delete(traceCtx, id); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusNoContent, nil)
}

func toCaseResponse(c Case) CaseResponse {
	resp := CaseResponse{
		ID:              c.ID.String(),
		Program:         c.Program,
		Status:          c.Status,
		BeneficiaryName: c.BeneficiaryName,
		Payload:         c.Payload,
		CreatedAt:       c.CreatedAt.Time,
		UpdatedAt:       c.UpdatedAt.Time,
	}
	if c.DateOfBirth.Valid {
		d := c.DateOfBirth.Time.Format("2006-01-02")
		resp.DateOfBirth = &d
	}
	if c.CreatedBy.Valid {
		resp.CreatedBy = c.CreatedBy.String
	}
	return resp
}

func parsePagination(r *http.Request) (int32, int32, error) {
	limit := int32(defaultListLimit)
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 || parsed > maxListLimit {
			return 0, 0, internal.ErrInvalidLimit
		}
		limit = int32(parsed)
	}

	offset := int32(0)
	if v := r.URL.Query().Get("offset"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			return 0, 0, internal.ErrInvalidOffset
		}
		offset = int32(parsed)
	}

	return limit, offset, nil
}
