package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/orderbus/internal/errors"
	"github.com/allisson/orderbus/internal/outbox/domain"
)

func sentEvents(n int) []*domain.OutboxEvent {
	rows := make([]*domain.OutboxEvent, n)
	for i := range rows {
		rows[i] = newPendingEvent("order.created", 0)
		rows[i].MarkSent(time.Now())
	}
	return rows
}

func TestCleanupUseCase_DeleteSentOlderThan(t *testing.T) {
	t.Run("Error_NegativeDays", func(t *testing.T) {
		uc := NewCleanupUseCase(RetentionConfig{}, &MockTxManager{}, &MockOutboxEventRepository{}, nil, nil, nil)
		_, err := uc.DeleteSentOlderThan(context.Background(), -1, false)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("DryRun", func(t *testing.T) {
		repo := &MockOutboxEventRepository{}
		uc := NewCleanupUseCase(RetentionConfig{}, &MockTxManager{}, repo, &MockArchiver{}, nil, nil)

		repo.On("DeleteSentOlderThan", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
			return time.Since(cutoff) > 6*24*time.Hour && time.Since(cutoff) < 8*24*time.Hour
		}), true).Return(int64(12), nil)

		count, err := uc.DeleteSentOlderThan(context.Background(), 7, true)
		require.NoError(t, err)
		assert.Equal(t, int64(12), count)
		repo.AssertExpectations(t)
	})

	t.Run("DeleteWithoutArchive", func(t *testing.T) {
		repo := &MockOutboxEventRepository{}
		uc := NewCleanupUseCase(RetentionConfig{}, &MockTxManager{}, repo, nil, nil, nil)

		repo.On("DeleteSentOlderThan", mock.Anything, mock.Anything, false).Return(int64(3), nil)

		count, err := uc.DeleteSentOlderThan(context.Background(), 7, false)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
		repo.AssertExpectations(t)
	})

	t.Run("ArchiveThenDeleteInBatches", func(t *testing.T) {
		txManager := &MockTxManager{}
		repo := &MockOutboxEventRepository{}
		archiver := &MockArchiver{}
		uc := NewCleanupUseCase(RetentionConfig{BatchSize: 2}, txManager, repo, archiver, nil, nil)

		firstBatch := sentEvents(2)
		secondBatch := sentEvents(1)

		txManager.On("WithTx", mock.Anything, mock.Anything).Return(nil)
		repo.On("ListSentOlderThan", mock.Anything, mock.Anything, 2).Return(firstBatch, nil).Once()
		repo.On("ListSentOlderThan", mock.Anything, mock.Anything, 2).Return(secondBatch, nil).Once()
		archiver.On("Write", mock.Anything, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "outbox/") && strings.HasSuffix(key, ".jsonl")
		}), mock.MatchedBy(func(records []any) bool { return len(records) == 2 })).Return(nil).Once()
		archiver.On("Write", mock.Anything, mock.Anything, mock.MatchedBy(func(records []any) bool {
			return len(records) == 1
		})).Return(nil).Once()
		repo.On("DeleteSentByIDs", mock.Anything, []uuid.UUID{firstBatch[0].ID, firstBatch[1].ID}).
			Return(int64(2), nil).Once()
		repo.On("DeleteSentByIDs", mock.Anything, []uuid.UUID{secondBatch[0].ID}).
			Return(int64(1), nil).Once()

		count, err := uc.DeleteSentOlderThan(context.Background(), 30, false)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
		repo.AssertExpectations(t)
		archiver.AssertExpectations(t)
	})

	t.Run("ArchiveFailureKeepsRows", func(t *testing.T) {
		txManager := &MockTxManager{}
		repo := &MockOutboxEventRepository{}
		archiver := &MockArchiver{}
		uc := NewCleanupUseCase(RetentionConfig{BatchSize: 10}, txManager, repo, archiver, nil, nil)

		txManager.On("WithTx", mock.Anything, mock.Anything).Return(nil)
		repo.On("ListSentOlderThan", mock.Anything, mock.Anything, 10).Return(sentEvents(1), nil).Once()
		archiver.On("Write", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("bucket gone"))

		_, err := uc.DeleteSentOlderThan(context.Background(), 30, false)
		assert.ErrorContains(t, err, "bucket gone")
		repo.AssertNotCalled(t, "DeleteSentByIDs", mock.Anything, mock.Anything)
	})
}

func TestCleanupUseCase_StartRetention_ContextCancellation(t *testing.T) {
	uc := NewCleanupUseCase(RetentionConfig{Interval: time.Hour}, &MockTxManager{}, &MockOutboxEventRepository{},
		nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, context.Canceled, uc.StartRetention(ctx))
}

func TestArchiveKey(t *testing.T) {
	id := uuid.Must(uuid.NewV7())
	now := time.Date(2026, 7, 4, 1, 2, 3, 0, time.UTC)

	key := archiveKey(now, id)
	assert.True(t, strings.HasPrefix(key, "outbox/2026/07/04/"))
	assert.True(t, strings.HasSuffix(key, "-"+id.String()+".jsonl"))
}
