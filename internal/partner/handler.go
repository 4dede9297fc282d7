package partner

import (
	"context"
	"net/http"
	"time"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type CreateRequest struct {
	Name          string `json:"name" validate:"required,max=255"`
	Category      string `json:"category" validate:"omitempty,max=100"`
	ContactPerson string `json:"contactPerson" validate:"omitempty,max=255"`
	ContactNumber string `json:"contactNumber" validate:"omitempty,contact_number"`
	Address       string `json:"address" validate:"omitempty,max=500"`
}

type UpdateRequest struct {
	Name          string `json:"name" validate:"required,max=255"`
	Category      string `json:"category" validate:"omitempty,max=100"`
	ContactPerson string `json:"contactPerson" validate:"omitempty,max=255"`
	ContactNumber string `json:"contactNumber" validate:"omitempty,contact_number"`
	Address       string `json:"address" validate:"omitempty,max=500"`
	Active        bool   `json:"active"`
}

type Response struct {
	ID            string    `json:"id" validate:"required,uuid"`
	Name          string    `json:"name" validate:"required"`
	Category      string    `json:"category,omitempty"`
	ContactPerson string    `json:"contactPerson,omitempty"`
	ContactNumber string    `json:"contactNumber,omitempty"`
	Address       string    `json:"address,omitempty"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type ListResponse struct {
	Partners []Response `json:"partners"`
}

// Store is the partner operation surface the handler depends on.
type Store interface {
	Create(ctx context.Context, arg CreateParams) (Partner, error)
	Update(ctx context.Context, arg UpdateParams) (Partner, error)
	GetByID(ctx context.Context, id uuid.UUID) (Partner, error)
	List(ctx context.Context, activeOnly bool) ([]Partner, error)
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
		tracer:        otel.Tracer("partner/handler"),
	}
}

func (h *Handler) CreatePartnerHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "CreatePartnerHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	var request CreateRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &request); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	created, err := h.store.Create(traceCtx, CreateParams{
		Name:          request.Name,
		Category:      TextOrEmpty(request.Category),
		ContactPerson: TextOrEmpty(request.ContactPerson),
		ContactNumber: TextOrEmpty(request.ContactNumber),
		Address:       TextOrEmpty(request.Address),
	})
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusCreated, toResponse(created))
}

func (h *Handler) UpdatePartnerHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "UpdatePartnerHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, err := handlerutil.ParseUUID(r.PathValue("partnerId"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	var request UpdateRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &request); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	updated, err := h.store.Update(traceCtx, UpdateParams{
		ID:            id,
		Name:          request.Name,
		Category:      TextOrEmpty(request.Category),
		ContactPerson: TextOrEmpty(request.ContactPerson),
		ContactNumber: TextOrEmpty(request.ContactNumber),
		Address:       TextOrEmpty(request.Address),
		Active:        request.Active,
	})
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, toResponse(updated))
}

func (h *Handler) GetPartnerHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "GetPartnerHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, err := handlerutil.ParseUUID(r.PathValue("partnerId"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	p, err := h.store.GetByID(traceCtx, id)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, toResponse(p))
}

func (h *Handler) ListPartnersHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "ListPartnersHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	activeOnly := r.URL.Query().Get("active") == "true"

	partners, err := h.store.List(traceCtx, activeOnly)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	body := ListResponse{Partners: make([]Response, len(partners))}
	for i, p := range partners {
		body.Partners[i] = toResponse(p)
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, body)
}

func (h *Handler) DeletePartnerHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "DeletePartnerHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, err := handlerutil.ParseUUID(r.PathValue("partnerId"))
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

func toResponse(p Partner) Response {
	return Response{
		ID:            p.ID.String(),
		Name:          p.Name,
		Category:      p.Category.String,
		ContactPerson: p.ContactPerson.String,
		ContactNumber: p.ContactNumber.String,
		Address:       p.Address.String,
		Active:        p.Active,
		CreatedAt:     p.CreatedAt.Time,
		UpdatedAt:     p.UpdatedAt.Time,
	}
}
