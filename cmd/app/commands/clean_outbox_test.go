package commands

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCleanupUseCase struct {
	mock.Mock
}

func (m *mockCleanupUseCase) DeleteSentOlderThan(ctx context.Context, days int, dryRun bool) (int64, error) {
	args := m.Called(ctx, days, dryRun)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCleanupUseCase) StartRetention(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestRunCleanOutbox(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	days := 7

	t.Run("text-output", func(t *testing.T) {
		mockUseCase := &mockCleanupUseCase{}
		mockUseCase.On("DeleteSentOlderThan", ctx, days, false).Return(int64(100), nil)

		var out bytes.Buffer
		err := RunCleanOutbox(ctx, mockUseCase, logger, &out, days, false, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "Successfully deleted 100 sent outbox event(s)")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("json-output", func(t *testing.T) {
		mockUseCase := &mockCleanupUseCase{}
		mockUseCase.On("DeleteSentOlderThan", ctx, days, true).Return(int64(50), nil)

		var out bytes.Buffer
		err := RunCleanOutbox(ctx, mockUseCase, logger, &out, days, true, "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"count": 50`)
		require.Contains(t, out.String(), `"dry_run": true`)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("use-case-error", func(t *testing.T) {
		mockUseCase := &mockCleanupUseCase{}
		mockUseCase.On("DeleteSentOlderThan", ctx, days, false).Return(int64(0), errors.New("db down"))

		err := RunCleanOutbox(ctx, mockUseCase, logger, &bytes.Buffer{}, days, false, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to delete outbox events")
	})

	t.Run("invalid-days", func(t *testing.T) {
		mockUseCase := &mockCleanupUseCase{}
		err := RunCleanOutbox(ctx, mockUseCase, logger, &bytes.Buffer{}, -1, false, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "days must be a positive number")
		mockUseCase.AssertNotCalled(t, "DeleteSentOlderThan", mock.Anything, mock.Anything, mock.Anything)
	})
}
