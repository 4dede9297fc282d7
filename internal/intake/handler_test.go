package intake

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Amawers/idmsystem-sub000/internal"
	"github.com/Amawers/idmsystem-sub000/internal/casefile"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) Submit(ctx context.Context, sessionID uuid.UUID, caseID *uuid.UUID, actor string) (casefile.Case, error) {
	args := m.Called(ctx, sessionID, caseID, actor)
	c, _ := args.Get(0).(casefile.Case)
	return c, args.Error(1)
}

func newTestHandler(t *testing.T) (*Handler, *mockSubmitter) {
	t.Helper()

	submitter := &mockSubmitter{}
	return NewHandler(zap.NewNop(), internal.NewValidator(), internal.NewProblemWriter(), submitter), submitter
}

func submitRequest(t *testing.T, sessionID string, body string) *http.Request {
	t.Helper()

	r := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sessionID+"/submit", strings.NewReader(body))
	r.SetPathValue("sessionId", sessionID)
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	return r
}

func TestHandler_Submit_Success(t *testing.T) {
	t.Parallel()

	handler, submitter := newTestHandler(t)

	sessionID := uuid.New()
	caseID := uuid.New()
	submitter.On("Submit", mock.Anything, sessionID, (*uuid.UUID)(nil), "").
		Return(casefile.Case{ID: caseID}, nil)

	w := httptest.NewRecorder()
	handler.SubmitHandler(w, submitRequest(t, sessionID.String(), ""))

	require.Equal(t, http.StatusCreated, w.Code)

	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.ID)
	require.Equal(t, caseID.String(), *resp.ID)
	require.Nil(t, resp.Error)
}

func TestHandler_Submit_Incomplete(t *testing.T) {
	t.Parallel()

	handler, submitter := newTestHandler(t)

	sessionID := uuid.New()
	submitter.On("Submit", mock.Anything, sessionID, (*uuid.UUID)(nil), "").
		Return(casefile.Case{}, internal.ErrSubmissionIncomplete{
			Missing: []struct {
				Section string
				Field   string
			}{
				{Section: "identifying", Field: "name"},
			},
		})

	w := httptest.NewRecorder()
	handler.SubmitHandler(w, submitRequest(t, sessionID.String(), ""))

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Nil(t, resp.ID)
	require.NotNil(t, resp.Error)
	require.Len(t, resp.Error.ValidationErrors, 1)
	require.Equal(t, "identifying.name", resp.Error.ValidationErrors[0].Field)
}

func TestHandler_Submit_WithCaseID(t *testing.T) {
	t.Parallel()

	handler, submitter := newTestHandler(t)

	sessionID := uuid.New()
	caseID := uuid.New()
	submitter.On("Submit", mock.Anything, sessionID, mock.MatchedBy(func(id *uuid.UUID) bool {
		return id != nil && *id == caseID
	}), "sw1").Return(casefile.Case{ID: caseID}, nil)

	body := `{"caseId":"` + caseID.String() + `","actor":"sw1"}`
	w := httptest.NewRecorder()
	handler.SubmitHandler(w, submitRequest(t, sessionID.String(), body))

	require.Equal(t, http.StatusCreated, w.Code)
	submitter.AssertExpectations(t)
}

func TestHandler_Submit_BadSessionID(t *testing.T) {
	t.Parallel()

	handler, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.SubmitHandler(w, submitRequest(t, "not-a-uuid", ""))

	require.Equal(t, http.StatusBadRequest, w.Code)
}
