package service

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/orinaya/animochi-backend/internal/catalog"
	"github.com/orinaya/animochi-backend/internal/model"
	"github.com/orinaya/animochi-backend/internal/repository"
	"github.com/orinaya/animochi-backend/internal/service/mocks"
)

var testNow = time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)

func newQuestService(repo *mocks.MockQuestRepository) *QuestLifecycleService {
	s := NewQuestLifecycleService(repo, catalog.Default(), rand.New(rand.NewSource(7)))
	return s.WithClock(func() time.Time { return testNow })
}

func TestQuestLifecycleService_AssignDailyQuests(t *testing.T) {
	t.Run("existing instances returned unchanged", func(t *testing.T) {
		mockRepo := &mocks.MockQuestRepository{}
		service := newQuestService(mockRepo)

		existing := []*model.QuestInstance{
			{ID: uuid.New(), UserID: 42, Status: model.QuestInProgress, CurrentCount: 1, TargetCount: 3},
		}
		mockRepo.On("GetDailyQuestInstances", mock.Anything, int64(42), testNow).
			Return(existing, nil)

		got, err := service.AssignDailyQuests(context.Background(), 42)

		require.NoError(t, err)
		assert.Equal(t, existing, got)
		mockRepo.AssertNotCalled(t, "InsertQuestInstances", mock.Anything, mock.Anything)
		mockRepo.AssertExpectations(t)
	})

	t.Run("fresh batch assigned when none exist", func(t *testing.T) {
		mockRepo := &mocks.MockQuestRepository{}
		service := newQuestService(mockRepo)

		mockRepo.On("GetDailyQuestInstances", mock.Anything, int64(42), testNow).
			Return([]*model.QuestInstance{}, nil).Once()

		var inserted []*model.QuestInstance
		mockRepo.On("InsertQuestInstances", mock.Anything, mock.MatchedBy(func(instances []*model.QuestInstance) bool {
			inserted = instances
			return len(instances) == DailyQuestCount
		})).Return(nil)

		mockRepo.On("GetDailyQuestInstances", mock.Anything, int64(42), testNow).
			Return([]*model.QuestInstance{{ID: uuid.New()}}, nil).Once()

		_, err := service.AssignDailyQuests(context.Background(), 42)
		require.NoError(t, err)

		seen := map[uuid.UUID]struct{}{}
		for _, q := range inserted {
			assert.Equal(t, int64(42), q.UserID)
			assert.Equal(t, model.QuestNotStarted, q.Status)
			assert.Equal(t, 0, q.CurrentCount)
			assert.Equal(t, model.EndOfDay(testNow), q.ExpiresAt)
			_, dup := seen[q.QuestID]
			assert.False(t, dup, "duplicate template assigned")
			seen[q.QuestID] = struct{}{}
		}

		mockRepo.AssertExpectations(t)
	})
}

// assignOnceStore reproduces the storage contract for daily batches: the
// insert carries its own existence check inside one critical section, so a
// single batch per user and day lands no matter how callers interleave.
type assignOnceStore struct {
	mu   sync.Mutex
	rows []*model.QuestInstance
}

func (s *assignOnceStore) GetDailyQuestInstances(ctx context.Context, userID int64, day time.Time) ([]*model.QuestInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.QuestInstance, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

func (s *assignOnceStore) InsertQuestInstances(ctx context.Context, instances []*model.QuestInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rows) > 0 {
		return nil
	}
	s.rows = append(s.rows, instances...)
	return nil
}

func (s *assignOnceStore) GetQuestInstance(ctx context.Context, userID int64, instanceID uuid.UUID) (*model.QuestInstance, error) {
	return nil, repository.ErrNotFound
}

func (s *assignOnceStore) TrackQuestProgress(ctx context.Context, userID int64, questType model.QuestType, amount int, now time.Time) (bool, error) {
	return false, nil
}

func (s *assignOnceStore) UpdateQuestProgress(ctx context.Context, userID int64, instanceID uuid.UUID, amount int, now time.Time) (*model.QuestInstance, bool, error) {
	return nil, false, repository.ErrNotFound
}

func (s *assignOnceStore) ExpireQuestInstances(ctx context.Context, userID *int64, now time.Time) (int64, error) {
	return 0, nil
}

func TestQuestLifecycleService_ConcurrentAssignsConvergeOnOneBatch(t *testing.T) {
	store := &assignOnceStore{}

	const callers = 8
	results := make([][]*model.QuestInstance, callers)
	errs := make([]error, callers)

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			svc := NewQuestLifecycleService(store, catalog.Default(), rand.New(rand.NewSource(int64(i)))).
				WithClock(func() time.Time { return testNow })
			<-start
			results[i], errs[i] = svc.AssignDailyQuests(context.Background(), 42)
		}(i)
	}
	close(start)
	wg.Wait()

	require.Len(t, store.rows, DailyQuestCount)

	wantIDs := make(map[uuid.UUID]struct{})
	for _, q := range store.rows {
		wantIDs[q.ID] = struct{}{}
	}

	for i, got := range results {
		require.NoError(t, errs[i], "caller %d", i)
		require.Len(t, got, DailyQuestCount, "caller %d", i)
		for _, q := range got {
			_, ok := wantIDs[q.ID]
			assert.True(t, ok, "caller %d saw instance outside the winning batch", i)
		}
	}
}

func TestQuestLifecycleService_GetDailyQuestsEnrichesDisplayFields(t *testing.T) {
	mockRepo := &mocks.MockQuestRepository{}
	service := newQuestService(mockRepo)

	tpl := catalog.Default().Templates()[0]
	instances := []*model.QuestInstance{
		{
			ID:          uuid.New(),
			UserID:      42,
			QuestID:     tpl.ID,
			QuestType:   tpl.Type,
			TargetCount: tpl.TargetCount,
			Status:      model.QuestNotStarted,
		},
	}
	mockRepo.On("GetDailyQuestInstances", mock.Anything, int64(42), testNow).
		Return(instances, nil)

	got, err := service.GetDailyQuests(context.Background(), 42)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, tpl.Title, got[0].Title)
	assert.Equal(t, tpl.Icon, got[0].Icon)
	mockRepo.AssertExpectations(t)
}

func TestQuestLifecycleService_TrackProgress(t *testing.T) {
	tests := []struct {
		name          string
		amount        int
		mockSetup     func(m *mocks.MockQuestRepository)
		wantCompleted bool
		wantErr       error
	}{
		{
			name:   "newly completed",
			amount: 1,
			mockSetup: func(m *mocks.MockQuestRepository) {
				m.On("TrackQuestProgress", mock.Anything, int64(42), model.QuestFeedCreature, 1, testNow).
					Return(true, nil)
			},
			wantCompleted: true,
		},
		{
			name:   "progress without completion",
			amount: 2,
			mockSetup: func(m *mocks.MockQuestRepository) {
				m.On("TrackQuestProgress", mock.Anything, int64(42), model.QuestFeedCreature, 2, testNow).
					Return(false, nil)
			},
		},
		{
			name:    "zero amount rejected",
			amount:  0,
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative amount rejected",
			amount:  -3,
			wantErr: ErrInvalidAmount,
		},
		{
			name:   "expired instance",
			amount: 1,
			mockSetup: func(m *mocks.MockQuestRepository) {
				m.On("TrackQuestProgress", mock.Anything, int64(42), model.QuestFeedCreature, 1, testNow).
					Return(false, repository.ErrQuestExpired)
			},
			wantErr: ErrQuestExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &mocks.MockQuestRepository{}
			service := newQuestService(mockRepo)
			if tt.mockSetup != nil {
				tt.mockSetup(mockRepo)
			}

			completed, err := service.TrackProgress(context.Background(), 42, model.QuestFeedCreature, tt.amount)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCompleted, completed)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestQuestLifecycleService_UpdateProgress(t *testing.T) {
	instanceID := uuid.New()

	tests := []struct {
		name      string
		mockSetup func(m *mocks.MockQuestRepository)
		wantErr   error
	}{
		{
			name: "not found",
			mockSetup: func(m *mocks.MockQuestRepository) {
				m.On("UpdateQuestProgress", mock.Anything, int64(42), instanceID, 1, testNow).
					Return(nil, false, repository.ErrNotFound)
			},
			wantErr: ErrQuestNotFound,
		},
		{
			name: "expired",
			mockSetup: func(m *mocks.MockQuestRepository) {
				m.On("UpdateQuestProgress", mock.Anything, int64(42), instanceID, 1, testNow).
					Return(nil, false, repository.ErrQuestExpired)
			},
			wantErr: ErrQuestExpired,
		},
		{
			name: "success",
			mockSetup: func(m *mocks.MockQuestRepository) {
				m.On("UpdateQuestProgress", mock.Anything, int64(42), instanceID, 1, testNow).
					Return(&model.QuestInstance{ID: instanceID, CurrentCount: 1}, false, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &mocks.MockQuestRepository{}
			service := newQuestService(mockRepo)
			tt.mockSetup(mockRepo)

			instance, _, err := service.UpdateProgress(context.Background(), 42, instanceID, 1)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, instanceID, instance.ID)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestQuestLifecycleService_ResetDailyQuests(t *testing.T) {
	mockRepo := &mocks.MockQuestRepository{}
	service := newQuestService(mockRepo)

	userID := int64(42)
	mockRepo.On("ExpireQuestInstances", mock.Anything, &userID, testNow).
		Return(int64(2), nil)

	expired, err := service.ResetDailyQuests(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, int64(2), expired)
	mockRepo.AssertExpectations(t)
}

func TestQuestLifecycleService_ResetAllDailyQuests(t *testing.T) {
	mockRepo := &mocks.MockQuestRepository{}
	service := newQuestService(mockRepo)

	mockRepo.On("ExpireQuestInstances", mock.Anything, (*int64)(nil), testNow).
		Return(int64(17), nil)

	expired, err := service.ResetAllDailyQuests(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(17), expired)
	mockRepo.AssertExpectations(t)
}
