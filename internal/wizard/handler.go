package wizard

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

type UpdateFieldRequest struct {
	Field string          `json:"field" validate:"required"`
	Value json.RawMessage `json:"value" validate:"required"`
}

type SubmitSectionRequest struct {
	Values map[string]json.RawMessage `json:"values" validate:"required"`
}

type ItemRequest struct {
	Item map[string]string `json:"item" validate:"required"`
}

type SessionResponse struct {
	ID        string    `json:"id" validate:"required,uuid"`
	Program   string    `json:"program" validate:"required"`
	CreatedAt time.Time `json:"createdAt"`
}

type SectionResponse struct {
	Key    string  `json:"key" validate:"required"`
	Record Section `json:"record" validate:"required"`
}

type ExportResponse struct {
	ID       string             `json:"id" validate:"required,uuid"`
	Program  string             `json:"program" validate:"required"`
	Sections map[string]Section `json:"sections" validate:"required"`
}

type FieldSummary struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Required bool   `json:"required"`
}

type SectionSummary struct {
	Key    string         `json:"key"`
	Title  string         `json:"title"`
	Fields []FieldSummary `json:"fields"`
}

type ProgramResponse struct {
	Key      string           `json:"key"`
	Title    string           `json:"title"`
	Sections []SectionSummary `json:"sections"`
}

// SessionStore is the session operation surface the handler depends on.
type SessionStore interface {
	Start(ctx context.Context, programKey string) (*Session, error)
	StartFromSections(ctx context.Context, programKey string, sections map[string]Section) (*Session, error)
	GetSection(ctx context.Context, id uuid.UUID, key string) (Section, error)
	SetField(ctx context.Context, id uuid.UUID, key, field string, raw json.RawMessage) error
	SubmitSection(ctx context.Context, id uuid.UUID, key string, values map[string]json.RawMessage) (Section, error)
	AppendItem(ctx context.Context, id uuid.UUID, key string, item SubRecord) (Section, error)
	ReplaceItem(ctx context.Context, id uuid.UUID, key string, index int, item SubRecord) (Section, error)
	RemoveItem(ctx context.Context, id uuid.UUID, key string, index int) (Section, error)
	Export(ctx context.Context, id uuid.UUID) (map[string]Section, ProgramDef, error)
	Discard(ctx context.Context, id uuid.UUID) error
}

// CaseLoader resolves an existing case into section records so a session can
// be pre-populated for editing.
type CaseLoader interface {
	SectionsForCase(ctx context.Context, caseID uuid.UUID) (string, map[string]Section, error)
}

// Recorder appends audit trail entries. Write failures never surface here.
type Recorder interface {
	Record(ctx context.Context, action, entity, entityID, actor string, detail map[string]any)
}

type Handler struct {
	logger        *zap.Logger
	validator     *validator.Validate
	problemWriter *problem.HttpWriter
	store         SessionStore
	caseLoader    CaseLoader
	recorder      Recorder
	tracer        trace.Tracer
}

func NewHandler(logger *zap.Logger, validator *validator.Validate, problemWriter *problem.HttpWriter, store SessionStore, caseLoader CaseLoader, recorder Recorder) *Handler {
	return &Handler{
		logger:        logger,
		validator:     validator,
		problemWriter: problemWriter,
		store:         store,
		caseLoader:    caseLoader,
		recorder:      recorder,
		tracer:        otel.Tracer("wizard/handler"),
	}
}

// ListProgramsHandler lists the registered intake programs and their
// declared sections, so form clients can render steps from the definition.
func (h *Handler) ListProgramsHandler(w http.ResponseWriter, r *http.Request) {
	_, span := h.tracer.Start(r.Context(), "ListProgramsHandler")
	defer span.End()

	list := Programs()
	body := make([]ProgramResponse, len(list))
	for i, p := range list {
		sections := make([]SectionSummary, len(p.Sections))
		for j, s := range p.Sections {
			fields := make([]FieldSummary, len(s.Fields))
			for k, f := range s.Fields {
				fields[k] = FieldSummary{Name: f.Name, Kind: string(f.Kind), Required: f.Required}
			}
			sections[j] = SectionSummary{Key: s.Key, Title: s.Title, Fields: fields}
		}
		body[i] = ProgramResponse{Key: p.Key, Title: p.Title, Sections: sections}
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, body)
}

// CreateSessionHandler starts a wizard session, optionally hydrated from an
// existing case via the caseId query parameter.
func (h *Handler) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "CreateSessionHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	programKey := r.PathValue("program")

	var session *Session
	var err error
	if caseIDStr := r.URL.Query().Get("caseId"); caseIDStr != "" {
		caseID, parseErr := handlerutil.ParseUUID(caseIDStr)
		if parseErr != nil {
			h.problemWriter.WriteError(traceCtx, w, parseErr, logger)
			return
		}

		caseProgram, sections, loadErr := h.caseLoader.SectionsForCase(traceCtx, caseID)
		if loadErr != nil {
			h.problemWriter.WriteError(traceCtx, w, loadErr, logger)
			return
		}
		if caseProgram != programKey {
			h.problemWriter.WriteError(traceCtx, w, internal.ErrCaseProgramMismatch, logger)
			return
		}

		session, err = h.store.StartFromSections(traceCtx, programKey, sections)
	} else {
		session, err = h.store.Start(traceCtx, programKey)
	}
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusCreated, SessionResponse{
		ID:        session.ID.String(),
		Program:   session.Program.Key,
		CreatedAt: session.CreatedAt,
	})
}

// GetSessionHandler exports the full store contents of a session.
func (h *Handler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "GetSessionHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, err := handlerutil.ParseUUID(r.PathValue("sessionId"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	sections, program, err := h.store.Export(traceCtx, id)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, ExportResponse{
		ID:       id.String(),
		Program:  program.Key,
		Sections: sections,
	})
}

// CancelSessionHandler abandons a session, dropping its accumulated state.
func (h *Handler) CancelSessionHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "CancelSessionHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, err := handlerutil.ParseUUID(r.PathValue("sessionId"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	_, program, err := h.store.Export(traceCtx, id)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	if err := h.store.Discard(traceCtx, id); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	h.recorder.Record(traceCtx, "session.cancelled", "session", id.String(), "", map[string]any{
		"program": program.Key,
	})

	handlerutil.WriteJSONResponse(w, http.StatusNoContent, nil)
}

// GetSectionHandler reads one section's current record.
func (h *Handler) GetSectionHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "GetSectionHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, err := handlerutil.ParseUUID(r.PathValue("sessionId"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}
	key := r.PathValue("sectionKey")

	record, err := h.store.GetSection(traceCtx, id, key)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, SectionResponse{Key: key, Record: record})
}

// UpdateFieldHandler performs a live single-field write.
func (h *Handler) UpdateFieldHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "UpdateFieldHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, err := handlerutil.ParseUUID(r.PathValue("sessionId"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}
	key := r.PathValue("sectionKey")

	var request UpdateFieldRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &request); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	if err := h.store.SetField(traceCtx, id, key, request.Field, request.Value); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusNoContent, nil)
}

// SubmitSectionHandler validates and bulk-merges a step's values.
func (h *Handler) SubmitSectionHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "SubmitSectionHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, err := handlerutil.ParseUUID(r.PathValue("sessionId"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}
	key := r.PathValue("sectionKey")

	var request SubmitSectionRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &request); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	record, err := h.store.SubmitSection(traceCtx, id, key, request.Values)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, SectionResponse{Key: key, Record: record})
}

// AddItemHandler appends a sub-record to the section's repeatable list.
func (h *Handler) AddItemHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "AddItemHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, err := handlerutil.ParseUUID(r.PathValue("sessionId"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}
	key := r.PathValue("sectionKey")

	var request ItemRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &request); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	record, err := h.store.AppendItem(traceCtx, id, key, SubRecord(request.Item))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, SectionResponse{Key: key, Record: record})
}

// ReplaceItemHandler replaces the sub-record at a position.
func (h *Handler) ReplaceItemHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "ReplaceItemHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, key, index, err := h.parseItemPath(r)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	var request ItemRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &request); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	record, err := h.store.ReplaceItem(traceCtx, id, key, index, SubRecord(request.Item))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, SectionResponse{Key: key, Record: record})
}

// RemoveItemHandler removes the sub-record at a position.
func (h *Handler) RemoveItemHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "RemoveItemHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	id, key, index, err := h.parseItemPath(r)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	record, err := h.store.RemoveItem(traceCtx, id, key, index)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, SectionResponse{Key: key, Record: record})
}

func (h *Handler) parseItemPath(r *http.Request) (uuid.UUID, string, int, error) {
	id, err := handlerutil.ParseUUID(r.PathValue("sessionId"))
	if err != nil {
		return uuid.Nil, "", 0, err
	}

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		return uuid.Nil, "", 0, internal.ErrInvalidListIndex
	}

	return id, r.PathValue("sectionKey"), index, nil
}
