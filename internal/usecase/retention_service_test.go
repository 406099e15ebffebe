package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	auditmock "github.com/riskibarqy/faultline/internal/mocks/domain/audit"
	"github.com/riskibarqy/faultline/internal/usecase"
	"github.com/stretchr/testify/mock"
)

func TestRetentionService_Prune_DeletesExpiredEvents(t *testing.T) {
	t.Parallel()

	repo := auditmock.NewRepository(t)
	retention := 24 * time.Hour
	svc := usecase.NewRetentionService(repo, retention, "@hourly", nil)

	repo.
		On("DeleteOlderThan", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
			want := time.Now().UTC().Add(-retention)
			diff := cutoff.Sub(want)
			return diff > -5*time.Second && diff < 5*time.Second
		})).
		Return(int64(3), nil).
		Once()

	svc.Prune(context.Background())
}

func TestRetentionService_Prune_SurvivesRepositoryError(t *testing.T) {
	t.Parallel()

	repo := auditmock.NewRepository(t)
	svc := usecase.NewRetentionService(repo, time.Hour, "@hourly", nil)

	repo.On("DeleteOlderThan", mock.Anything, mock.Anything).Return(int64(0), errors.New("db down")).Once()

	svc.Prune(context.Background())
}

func TestRetentionService_StartWithoutRepositoryIsNoop(t *testing.T) {
	t.Parallel()

	svc := usecase.NewRetentionService(nil, 0, "", nil)
	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	svc.Stop(context.Background())
}

func TestRetentionService_Start_RejectsBadSchedule(t *testing.T) {
	t.Parallel()

	repo := auditmock.NewRepository(t)
	svc := usecase.NewRetentionService(repo, time.Hour, "not-a-schedule", nil)

	if err := svc.Start(); err == nil {
		t.Fatal("expected schedule parse error")
	}
}
