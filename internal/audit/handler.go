package audit

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
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type EntryResponse struct {
	ID        string          `json:"id" validate:"required,uuid"`
	Action    string          `json:"action" validate:"required"`
	Entity    string          `json:"entity" validate:"required"`
	EntityID  string          `json:"entityId" validate:"required"`
	Actor     string          `json:"actor,omitempty"`
	Detail    json.RawMessage `json:"detail"`
	CreatedAt time.Time       `json:"createdAt"`
}

type ListResponse struct {
	Entries []EntryResponse `json:"entries"`
}

// Store is the audit read surface the handler depends on.
type Store interface {
	List(ctx context.Context, entity string, limit, offset int32) ([]Entry, error)
}

type Handler struct {
	logger        *zap.Logger
	problemWriter *problem.HttpWriter
	store         Store
	tracer        trace.Tracer
}

func NewHandler(logger *zap.Logger, problemWriter *problem.HttpWriter, store Store) *Handler {
	return &Handler{
		logger:        logger,
		problemWriter: problemWriter,
		store:         store,
		tracer:        otel.Tracer("audit/handler"),
	}
}

// ListEntriesHandler lists trail entries newest first, optionally filtered by
// entity kind.
func (h *Handler) ListEntriesHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "ListEntriesHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	limit := int32(50)
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 || parsed > 200 {
			h.problemWriter.WriteError(traceCtx, w, internal.ErrInvalidLimit, logger)
			return
		}
		limit = int32(parsed)
	}

	offset := int32(0)
	if v := r.URL.Query().Get("offset"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			h.problemWriter.WriteError(traceCtx, w, internal.ErrInvalidOffset, logger)
			return
		}
		offset = int32(parsed)
	}

	entries, err := h.store.List(traceCtx, r.URL.Query().Get("entity"), limit, offset)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	body := ListResponse{Entries: make([]EntryResponse, len(entries))}
	for i, e := range entries {
		body.Entries[i] = EntryResponse{
			ID:        e.ID.String(),
			Action:    e.Action,
			Entity:    e.Entity,
			EntityID:  e.EntityID,
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt.Time,
		}
		if e.Actor.Valid {
			body.Entries[i].Actor = e.Actor.String
		}
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, body)
}
