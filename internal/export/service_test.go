package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/Amawers/idmsystem-sub000/internal"
	"github.com/Amawers/idmsystem-sub000/internal/casefile"
	"github.com/Amawers/idmsystem-sub000/internal/wizard"
	"github.com/Amawers/idmsystem-sub000/test/testdata/casebuilder"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

type mockCaseSource struct {
	mock.Mock
}

func (m *mockCaseSource) ListByProgram(ctx context.Context, program string) ([]casefile.Case, error) {
	args := m.Called(ctx, program)
	rows, _ := args.Get(0).([]casefile.Case)
	return rows, args.Error(1)
}

func newTestService(t *testing.T) (*Service, *mockCaseSource) {
	t.Helper()

	source := &mockCaseSource{}
	return &Service{
		logger: zap.NewNop(),
		cases:  source,
		tracer: noop.NewTracerProvider().Tracer("test"),
	}, source
}

func TestService_Roster(t *testing.T) {
	t.Parallel()

	service, source := newTestService(t)

	row := casebuilder.New(t, "senior_citizen").
		WithFakeIdentity().
		WithFakeFamily(2).
		WithField("identifying", "oscaId", wizard.TextValue("OSCA-0042")).
		BuildCase()

	source.On("ListByProgram", mock.Anything, "senior_citizen").Return([]casefile.Case{row}, nil)

	buf, err := service.Roster(context.Background(), "senior_citizen")
	require.NoError(t, err)

	workbook, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer func() { _ = workbook.Close() }()

	sheet := workbook.GetSheetName(0)
	rows, err := workbook.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	program, err := wizard.LookupProgram("senior_citizen")
	require.NoError(t, err)
	columns := program.ColumnFields()

	require.Len(t, rows[0], len(columns))
	for i, cf := range columns {
		require.Equal(t, cf.Field.Column, rows[0][i])
	}

	byColumn := make(map[string]string, len(columns))
	for i, cf := range columns {
		if i < len(rows[1]) {
			byColumn[cf.Field.Column] = rows[1][i]
		}
	}
	require.Equal(t, row.BeneficiaryName, byColumn["senior_name"])
	require.Equal(t, "OSCA-0042", byColumn["osca_id"])
	require.NotEmpty(t, byColumn["family_members"])
}

func TestSummarizeEntry(t *testing.T) {
	t.Parallel()

	t.Run("prefers the name key", func(t *testing.T) {
		t.Parallel()

		got := summarizeEntry(map[string]any{"name": "Juan Dela Cruz", "relationship": "son"})
		require.Equal(t, "Juan Dela Cruz", got)
	})

	t.Run("nameless entries render in stable key order", func(t *testing.T) {
		t.Parallel()

		entry := map[string]any{
			"relationship": "daughter",
			"age":          "34",
			"occupation":   "teacher",
		}
		want := "age=34 occupation=teacher relationship=daughter"
		for range 20 {
			require.Equal(t, want, summarizeEntry(entry))
		}
	})
}

func TestService_Roster_UnknownProgram(t *testing.T) {
	t.Parallel()

	service, _ := newTestService(t)

	_, err := service.Roster(context.Background(), "nonexistent")
	require.ErrorIs(t, err, internal.ErrProgramNotFound)
}
