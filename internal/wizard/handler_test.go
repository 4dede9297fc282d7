package wizard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Amawers/idmsystem-sub000/internal"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockCaseLoader struct {
	mock.Mock
}

func (m *mockCaseLoader) SectionsForCase(ctx context.Context, caseID uuid.UUID) (string, map[string]Section, error) {
	args := m.Called(ctx, caseID)
	sections, _ := args.Get(1).(map[string]Section)
	return args.String(0), sections, args.Error(2)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) Record(ctx context.Context, action, entity, entityID, actor string, detail map[string]any) {
	m.Called(ctx, action, entity, entityID, actor, detail)
}

func newTestHandler(t *testing.T) (*Handler, *Service, *mockRecorder) {
	t.Helper()

	service := NewService(zap.NewNop(), NewManager())
	recorder := &mockRecorder{}
	handler := NewHandler(zap.NewNop(), internal.NewValidator(), internal.NewProblemWriter(), service, &mockCaseLoader{}, recorder)
	return handler, service, recorder
}

func TestHandler_SubmitSection_ValidationFailure(t *testing.T) {
	t.Parallel()

	handler, service, _ := newTestHandler(t)
	session, err := service.Start(context.Background(), "cicl")
	require.NoError(t, err)

	body := `{"values":{"address":"Purok 4, Barangay Mabini"}}`
	r := httptest.NewRequest(http.MethodPut, "/api/sessions/"+session.ID.String()+"/sections/identifying", strings.NewReader(body))
	r.SetPathValue("sessionId", session.ID.String())
	r.SetPathValue("sectionKey", "identifying")
	w := httptest.NewRecorder()

	handler.SubmitSectionHandler(w, r)

	require.GreaterOrEqual(t, w.Code, http.StatusBadRequest)
	require.Contains(t, w.Body.String(), "name")

	record, err := service.GetSection(context.Background(), session.ID, "identifying")
	require.NoError(t, err)
	require.Empty(t, record)
}

func TestHandler_SubmitSection_Success(t *testing.T) {
	t.Parallel()

	handler, service, _ := newTestHandler(t)
	session, err := service.Start(context.Background(), "cicl")
	require.NoError(t, err)

	body := `{"values":{"name":"Juan Dela Cruz","address":"Purok 4"}}`
	r := httptest.NewRequest(http.MethodPut, "/api/sessions/"+session.ID.String()+"/sections/identifying", strings.NewReader(body))
	r.SetPathValue("sessionId", session.ID.String())
	r.SetPathValue("sectionKey", "identifying")
	w := httptest.NewRecorder()

	handler.SubmitSectionHandler(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	record, err := service.GetSection(context.Background(), session.ID, "identifying")
	require.NoError(t, err)
	require.Equal(t, "Juan Dela Cruz", record["name"].Text)
}

func TestHandler_CancelSession_RecordsAudit(t *testing.T) {
	t.Parallel()

	handler, service, recorder := newTestHandler(t)
	session, err := service.Start(context.Background(), "cicl")
	require.NoError(t, err)

	recorder.On("Record", mock.Anything, "session.cancelled", "session", session.ID.String(), "",
		map[string]any{"program": "cicl"}).Return()

	r := httptest.NewRequest(http.MethodDelete, "/api/sessions/"+session.ID.String(), nil)
	r.SetPathValue("sessionId", session.ID.String())
	w := httptest.NewRecorder()

	handler.CancelSessionHandler(w, r)

	require.Equal(t, http.StatusNoContent, w.Code)
	recorder.AssertExpectations(t)

	_, _, err = service.Export(context.Background(), session.ID)
	require.ErrorIs(t, err, internal.ErrSessionNotFound)
}

func TestHandler_CancelSession_UnknownSession(t *testing.T) {
	t.Parallel()

	handler, _, recorder := newTestHandler(t)

	id := uuid.NewString()
	r := httptest.NewRequest(http.MethodDelete, "/api/sessions/"+id, nil)
	r.SetPathValue("sessionId", id)
	w := httptest.NewRecorder()

	handler.CancelSessionHandler(w, r)

	require.Equal(t, http.StatusNotFound, w.Code)
	recorder.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
