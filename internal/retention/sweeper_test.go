package retention

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"chat-relay/internal/mocks"
)

func TestSweepDeletesExpiredMessages(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	sweeper := NewSweeper(repo, 48*time.Hour, 30*time.Minute)

	repo.On("DeleteOlderThan", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		age := time.Since(cutoff)
		return age > 47*time.Hour && age < 49*time.Hour
	})).Return(int64(3), nil).Once()

	sweeper.sweep(context.Background())
	repo.AssertExpectations(t)
}

func TestSweepFailureIsNonFatal(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	sweeper := NewSweeper(repo, 48*time.Hour, 30*time.Minute)

	repo.On("DeleteOlderThan", mock.Anything, mock.Anything).
		Return(int64(0), assert.AnError).Once()

	assert.NotPanics(t, func() {
		sweeper.sweep(context.Background())
	})
	repo.AssertExpectations(t)
}

func TestRunSweepsOnceAtStartupAndStopsOnCancel(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	sweeper := NewSweeper(repo, 48*time.Hour, time.Hour)

	repo.On("DeleteOlderThan", mock.Anything, mock.Anything).Return(int64(0), nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
	repo.AssertExpectations(t)
}
