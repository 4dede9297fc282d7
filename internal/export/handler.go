package export

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Exporter renders one program's roster workbook.
type Exporter interface {
	Roster(ctx context.Context, programKey string) (*bytes.Buffer, error)
}

type Handler struct {
	logger        *zap.Logger
	problemWriter *problem.HttpWriter
	exporter      Exporter
	tracer        trace.Tracer
}

func NewHandler(logger *zap.Logger, problemWriter *problem.HttpWriter, exporter Exporter) *Handler {
	return &Handler{
		logger:        logger,
		problemWriter: problemWriter,
		exporter:      exporter,
		tracer:        otel.Tracer("export/handler"),
	}
}

// RosterHandler streams the program roster as an xlsx download.
func (h *Handler) RosterHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "RosterHandler")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	programKey := r.PathValue("program")

	buf, err := h.exporter.Roster(traceCtx, programKey)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", programKey+"_roster.xlsx"))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Warn("failed to stream roster", zap.Error(err))
	}
}
