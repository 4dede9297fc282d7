package casefile

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Amawers/idmsystem-sub000/internal"
	"github.com/Amawers/idmsystem-sub000/internal/wizard"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

type mockQuerier struct {
	mock.Mock
}

func (m *mockQuerier) Create(ctx context.Context, arg CreateParams) (Case, error) {
	args := m.Called(ctx, arg)
	c, _ := args.Get(0).(Case)
	return c, args.Error(1)
}

func (m *mockQuerier) Update(ctx context.Context, arg UpdateParams) (Case, error) {
	args := m.Called(ctx, arg)
	c, _ := args.Get(0).(Case)
	return c, args.Error(1)
}

func (m *mockQuerier) GetByID(ctx context.Context, id uuid.UUID) (Case, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(Case)
	return c, args.Error(1)
}

func (m *mockQuerier) List(ctx context.Context, arg ListParams) ([]Case, error) {
	args := m.Called(ctx, arg)
	rows, _ := args.Get(0).([]Case)
	return rows, args.Error(1)
}

func (m *mockQuerier) ListByProgram(ctx context.Context, program string) ([]Case, error) {
	args := m.Called(ctx, program)
	rows, _ := args.Get(0).([]Case)
	return rows, args.Error(1)
}

func (m *mockQuerier) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newTestService(t *testing.T) (*Service, *mockQuerier) {
	t.Helper()

	q := &mockQuerier{}
	return &Service{
		logger:  zap.NewNop(),
		queries: q,
		tracer:  noop.NewTracerProvider().Tracer("test"),
	}, q
}

func TestService_Create_LiftsHeadlineColumns(t *testing.T) {
	t.Parallel()

	service, q := newTestService(t)
	def, err := wizard.LookupProgram("senior_citizen")
	require.NoError(t, err)

	q.On("Create", mock.Anything, mock.MatchedBy(func(arg CreateParams) bool {
		return arg.Program == "senior_citizen" &&
			arg.Status == StatusOpen &&
			arg.BeneficiaryName == "Lola Remedios" &&
			arg.DateOfBirth.Valid &&
			arg.DateOfBirth.Time.Format("2006-01-02") == "1950-07-01"
	})).Return(Case{ID: uuid.New(), Program: "senior_citizen"}, nil)

	flat := map[string]any{
		"senior_name":   "Lola Remedios",
		"date_of_birth": "1950-07-01",
	}

	_, err = service.Create(context.Background(), def, flat, "encoder1")
	require.NoError(t, err)
	q.AssertExpectations(t)
}

func TestService_Create_ToleratesMissingHeadlines(t *testing.T) {
	t.Parallel()

	service, q := newTestService(t)
	def, err := wizard.LookupProgram("senior_citizen")
	require.NoError(t, err)

	q.On("Create", mock.Anything, mock.MatchedBy(func(arg CreateParams) bool {
		return arg.BeneficiaryName == "" && !arg.DateOfBirth.Valid
	})).Return(Case{ID: uuid.New()}, nil)

	flat := map[string]any{
		"senior_name":   nil,
		"date_of_birth": nil,
	}

	_, err = service.Create(context.Background(), def, flat, "")
	require.NoError(t, err)
	q.AssertExpectations(t)
}

func TestService_Update_RejectsProgramMismatch(t *testing.T) {
	t.Parallel()

	service, q := newTestService(t)
	def, err := wizard.LookupProgram("cicl")
	require.NoError(t, err)

	id := uuid.New()
	q.On("GetByID", mock.Anything, id).Return(Case{ID: id, Program: "senior_citizen"}, nil)

	_, err = service.Update(context.Background(), id, def, map[string]any{})
	require.ErrorIs(t, err, internal.ErrCaseProgramMismatch)
	q.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestService_SectionsForCase(t *testing.T) {
	t.Parallel()

	service, q := newTestService(t)
	id := uuid.New()

	payload := map[string]any{
		"senior_name":   "Lola Remedios",
		"date_of_birth": "1950-07-01",
		"family_members": []any{
			map[string]any{"name": "Ana"},
		},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	q.On("GetByID", mock.Anything, id).Return(Case{ID: id, Program: "senior_citizen", Payload: body}, nil)

	program, sections, err := service.SectionsForCase(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "senior_citizen", program)
	require.Equal(t, wizard.TextValue("Lola Remedios"), sections["identifying"]["name"])
	require.Equal(t, wizard.TextValue("1950-07-01"), sections["identifying"]["birthday"])
	require.Len(t, sections["family"]["members"].List, 1)
}
