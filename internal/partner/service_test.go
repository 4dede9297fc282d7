package partner

import (
	"context"
	"testing"

	"github.com/Amawers/idmsystem-sub000/internal"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

type mockQuerier struct {
	mock.Mock
}

func (m *mockQuerier) Create(ctx context.Context, arg CreateParams) (Partner, error) {
	args := m.Called(ctx, arg)
	p, _ := args.Get(0).(Partner)
	return p, args.Error(1)
}

func (m *mockQuerier) Update(ctx context.Context, arg UpdateParams) (Partner, error) {
	args := m.Called(ctx, arg)
	p, _ := args.Get(0).(Partner)
	return p, args.Error(1)
}

func (m *mockQuerier) GetByID(ctx context.Context, id uuid.UUID) (Partner, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(Partner)
	return p, args.Error(1)
}

func (m *mockQuerier) ExistsByName(ctx context.Context, arg ExistsByNameParams) (bool, error) {
	args := m.Called(ctx, arg)
	return args.Bool(0), args.Error(1)
}

func (m *mockQuerier) List(ctx context.Context, activeOnly bool) ([]Partner, error) {
	args := m.Called(ctx, activeOnly)
	rows, _ := args.Get(0).([]Partner)
	return rows, args.Error(1)
}

func (m *mockQuerier) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// newTestService creates a Service with a mocked query layer.
func newTestService(t *testing.T) (*Service, *mockQuerier) {
	t.Helper()

	q := &mockQuerier{}
	return &Service{
		logger:  zap.NewNop(),
		queries: q,
		tracer:  noop.NewTracerProvider().Tracer("test"),
	}, q
}

func TestService_Create(t *testing.T) {
	t.Parallel()

	t.Run("Should create when the name is free", func(t *testing.T) {
		t.Parallel()

		service, q := newTestService(t)
		arg := CreateParams{Name: "Bahay Kalinga"}

		q.On("ExistsByName", mock.Anything, ExistsByNameParams{Name: "Bahay Kalinga"}).Return(false, nil)
		q.On("Create", mock.Anything, arg).Return(Partner{ID: uuid.New(), Name: "Bahay Kalinga", Active: true}, nil)

		created, err := service.Create(context.Background(), arg)
		require.NoError(t, err)
		require.Equal(t, "Bahay Kalinga", created.Name)
		q.AssertExpectations(t)
	})

	t.Run("Should reject a duplicate name", func(t *testing.T) {
		t.Parallel()

		service, q := newTestService(t)
		q.On("ExistsByName", mock.Anything, mock.Anything).Return(true, nil)

		_, err := service.Create(context.Background(), CreateParams{Name: "Bahay Kalinga"})
		require.ErrorIs(t, err, internal.ErrPartnerNameConflict)
		q.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestService_Update(t *testing.T) {
	t.Parallel()

	t.Run("Should allow keeping the current name", func(t *testing.T) {
		t.Parallel()

		service, q := newTestService(t)
		id := uuid.New()
		arg := UpdateParams{ID: id, Name: "Bahay Kalinga", Active: true}

		q.On("ExistsByName", mock.Anything, ExistsByNameParams{Name: "Bahay Kalinga", ExcludeID: id}).Return(false, nil)
		q.On("Update", mock.Anything, arg).Return(Partner{ID: id, Name: "Bahay Kalinga", Active: true}, nil)

		updated, err := service.Update(context.Background(), arg)
		require.NoError(t, err)
		require.Equal(t, id, updated.ID)
		q.AssertExpectations(t)
	})

	t.Run("Should reject renaming onto another partner", func(t *testing.T) {
		t.Parallel()

		service, q := newTestService(t)
		q.On("ExistsByName", mock.Anything, mock.Anything).Return(true, nil)

		_, err := service.Update(context.Background(), UpdateParams{ID: uuid.New(), Name: "Taken"})
		require.ErrorIs(t, err, internal.ErrPartnerNameConflict)
	})
}
