// Package export renders a program's case roster as an xlsx workbook, one
// row per case with the program's flat columns as headers.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Amawers/idmsystem-sub000/internal/casefile"
	"github.com/Amawers/idmsystem-sub000/internal/wizard"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// CaseSource lists the cases to export.
type CaseSource interface {
	ListByProgram(ctx context.Context, program string) ([]casefile.Case, error)
}

type Service struct {
	logger *zap.Logger
	cases  CaseSource
	tracer trace.Tracer
}

func NewService(logger *zap.Logger, cases CaseSource) *Service {
	return &Service{
		logger: logger,
		cases:  cases,
		tracer: otel.Tracer("export/service"),
	}
}

// Roster builds an xlsx workbook for one program. List columns are rendered
// as the number of entries; scalar columns carry the payload value verbatim.
func (s *Service) Roster(ctx context.Context, programKey string) (*bytes.Buffer, error) {
	traceCtx, span := s.tracer.Start(ctx, "Roster")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	def, err := wizard.LookupProgram(programKey)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	cases, err := s.cases.ListByProgram(traceCtx, programKey)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	columns := def.ColumnFields()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)

	for i, cf := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, cf.Field.Column); err != nil {
			return nil, err
		}
	}

	for rowIdx, c := range cases {
		var flat map[string]any
		if err := json.Unmarshal(c.Payload, &flat); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("decode payload of case %s: %w", c.ID, err)
		}

		for colIdx, cf := range columns {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, cellValue(cf.Field, flat[cf.Field.Column])); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Info("roster exported",
		zap.String("program", programKey),
		zap.Int("cases", len(cases)))
	return &buf, nil
}

// cellValue renders one payload value for a worksheet cell.
func cellValue(field wizard.FieldDef, raw any) any {
	if raw == nil {
		return ""
	}

	switch field.Kind {
	case wizard.FieldList:
		entries, ok := raw.([]any)
		if !ok {
			return ""
		}
		parts := make([]string, 0, len(entries))
		for _, entry := range entries {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			parts = append(parts, summarizeEntry(m))
		}
		return strings.Join(parts, "; ")
	case wizard.FieldFlag:
		if b, ok := raw.(bool); ok {
			return b
		}
		return ""
	default:
		if s, ok := raw.(string); ok {
			return s
		}
		return fmt.Sprint(raw)
	}
}

// summarizeEntry picks the most identifying value of a sub-record: its name
// when present, otherwise the whole record in key=value form.
func summarizeEntry(m map[string]any) string {
	if name, ok := m["name"].(string); ok && name != "" {
		return name
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, m[k]))
	}
	return strings.Join(parts, " ")
}
