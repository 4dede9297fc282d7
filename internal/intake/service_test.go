package intake

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Amawers/idmsystem-sub000/internal"
	"github.com/Amawers/idmsystem-sub000/internal/casefile"
	"github.com/Amawers/idmsystem-sub000/internal/wizard"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockCaseStore struct {
	mock.Mock
}

func (m *mockCaseStore) Create(ctx context.Context, def wizard.ProgramDef, flat map[string]any, createdBy string) (casefile.Case, error) {
	args := m.Called(ctx, def, flat, createdBy)
	c, _ := args.Get(0).(casefile.Case)
	return c, args.Error(1)
}

func (m *mockCaseStore) Update(ctx context.Context, id uuid.UUID, def wizard.ProgramDef, flat map[string]any) (casefile.Case, error) {
	args := m.Called(ctx, id, def, flat)
	c, _ := args.Get(0).(casefile.Case)
	return c, args.Error(1)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) Record(ctx context.Context, action, entity, entityID, actor string, detail map[string]any) {
	m.Called(ctx, action, entity, entityID, actor, detail)
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestService_Submit_Incomplete(t *testing.T) {
	t.Parallel()

	wizardService := wizard.NewService(zap.NewNop(), wizard.NewManager())
	caseStore := &mockCaseStore{}
	recorder := &mockRecorder{}
	service := NewService(zap.NewNop(), wizardService, caseStore, recorder)

	session, err := wizardService.Start(context.Background(), "senior_citizen")
	require.NoError(t, err)

	_, err = service.Submit(context.Background(), session.ID, nil, "encoder1")

	var incomplete internal.ErrSubmissionIncomplete
	require.ErrorAs(t, err, &incomplete)

	fields := make(map[string]bool, len(incomplete.Missing))
	for _, m := range incomplete.Missing {
		fields[m.Section+"."+m.Field] = true
	}
	require.True(t, fields["identifying.name"])
	require.True(t, fields["family.members"])

	// The session must survive a failed submit.
	_, _, err = wizardService.Export(context.Background(), session.ID)
	require.NoError(t, err)

	caseStore.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Submit_CreatesCase(t *testing.T) {
	t.Parallel()

	wizardService := wizard.NewService(zap.NewNop(), wizard.NewManager())
	caseStore := &mockCaseStore{}
	recorder := &mockRecorder{}
	service := NewService(zap.NewNop(), wizardService, caseStore, recorder)

	session, err := wizardService.Start(context.Background(), "senior_citizen")
	require.NoError(t, err)

	_, err = wizardService.SubmitSection(context.Background(), session.ID, "identifying", map[string]json.RawMessage{
		"name":     raw(t, "Lola Remedios"),
		"birthday": raw(t, "1950-07-01T18:30:00+08:00"),
	})
	require.NoError(t, err)

	_, err = wizardService.AppendItem(context.Background(), session.ID, "family", wizard.SubRecord{
		"name":         "Ana",
		"relationship": "daughter",
	})
	require.NoError(t, err)

	caseID := uuid.New()
	caseStore.On("Create", mock.Anything, mock.Anything, mock.Anything, "encoder1").
		Return(casefile.Case{ID: caseID, Program: "senior_citizen", BeneficiaryName: "Lola Remedios"}, nil)
	recorder.On("Record", mock.Anything, "case.created", "case", caseID.String(), "encoder1", mock.Anything).Return()

	created, err := service.Submit(context.Background(), session.ID, nil, "encoder1")
	require.NoError(t, err)
	require.Equal(t, caseID, created.ID)

	// Inspect the flat payload handed to the case store.
	flat, ok := caseStore.Calls[0].Arguments.Get(2).(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Lola Remedios", flat["senior_name"])
	require.Equal(t, "1950-07-01", flat["date_of_birth"])
	require.Nil(t, flat["civil_status"])
	require.Equal(t, []wizard.SubRecord{
		{"name": "Ana", "relationship": "daughter"},
	}, flat["family_members"])

	// The session is retired after a successful submit.
	_, _, err = wizardService.Export(context.Background(), session.ID)
	require.ErrorIs(t, err, internal.ErrSessionNotFound)

	recorder.AssertExpectations(t)
	caseStore.AssertExpectations(t)
}

func TestService_Submit_UpdatesExistingCase(t *testing.T) {
	t.Parallel()

	wizardService := wizard.NewService(zap.NewNop(), wizard.NewManager())
	caseStore := &mockCaseStore{}
	recorder := &mockRecorder{}
	service := NewService(zap.NewNop(), wizardService, caseStore, recorder)

	session, err := wizardService.Start(context.Background(), "family_assistance")
	require.NoError(t, err)

	_, err = wizardService.SubmitSection(context.Background(), session.ID, "identifying", map[string]json.RawMessage{
		"name": raw(t, "Pedro Santos"),
	})
	require.NoError(t, err)

	_, err = wizardService.SubmitSection(context.Background(), session.ID, "assistance", map[string]json.RawMessage{
		"assistanceType": raw(t, "burial"),
	})
	require.NoError(t, err)

	_, err = wizardService.AppendItem(context.Background(), session.ID, "family", wizard.SubRecord{"name": "Rosa"})
	require.NoError(t, err)

	caseID := uuid.New()
	caseStore.On("Update", mock.Anything, caseID, mock.Anything, mock.Anything).
		Return(casefile.Case{ID: caseID, Program: "family_assistance"}, nil)
	recorder.On("Record", mock.Anything, "case.updated", "case", caseID.String(), "sw1", mock.Anything).Return()

	updated, err := service.Submit(context.Background(), session.ID, &caseID, "sw1")
	require.NoError(t, err)
	require.Equal(t, caseID, updated.ID)

	caseStore.AssertExpectations(t)
	recorder.AssertExpectations(t)
}

func TestService_Submit_UnknownSession(t *testing.T) {
	t.Parallel()

	wizardService := wizard.NewService(zap.NewNop(), wizard.NewManager())
	service := NewService(zap.NewNop(), wizardService, &mockCaseStore{}, &mockRecorder{})

	_, err := service.Submit(context.Background(), uuid.New(), nil, "")
	require.ErrorIs(t, err, internal.ErrSessionNotFound)
}
