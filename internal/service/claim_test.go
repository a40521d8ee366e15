package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/orinaya/animochi-backend/internal/repository"
	"github.com/orinaya/animochi-backend/internal/service/mocks"
)

func TestRewardClaimService_Claim(t *testing.T) {
	instanceID := uuid.New()

	tests := []struct {
		name       string
		mockSetup  func(m *mocks.MockClaimRepository)
		wantResult *ClaimResult
		wantErr    error
	}{
		{
			name: "successful claim credits reward",
			mockSetup: func(m *mocks.MockClaimRepository) {
				m.On("ClaimQuestReward", mock.Anything, int64(42), instanceID).
					Return(50, 3050, nil)
			},
			wantResult: &ClaimResult{Reward: 50, NewBalance: 3050},
		},
		{
			name: "unknown instance",
			mockSetup: func(m *mocks.MockClaimRepository) {
				m.On("ClaimQuestReward", mock.Anything, int64(42), instanceID).
					Return(0, 0, repository.ErrNotFound)
			},
			wantErr: ErrQuestNotFound,
		},
		{
			name: "not yet completed",
			mockSetup: func(m *mocks.MockClaimRepository) {
				m.On("ClaimQuestReward", mock.Anything, int64(42), instanceID).
					Return(0, 0, repository.ErrQuestNotCompleted)
			},
			wantErr: ErrQuestNotCompleted,
		},
		{
			name: "already claimed",
			mockSetup: func(m *mocks.MockClaimRepository) {
				m.On("ClaimQuestReward", mock.Anything, int64(42), instanceID).
					Return(0, 0, repository.ErrQuestAlreadyClaimed)
			},
			wantErr: ErrQuestAlreadyClaimed,
		},
		{
			name: "expired",
			mockSetup: func(m *mocks.MockClaimRepository) {
				m.On("ClaimQuestReward", mock.Anything, int64(42), instanceID).
					Return(0, 0, repository.ErrQuestExpired)
			},
			wantErr: ErrQuestExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &mocks.MockClaimRepository{}
			service := NewRewardClaimService(mockRepo)
			tt.mockSetup(mockRepo)

			result, err := service.Claim(context.Background(), 42, instanceID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantResult, result)
			mockRepo.AssertExpectations(t)
		})
	}
}

// claimOnceRepo behaves like the storage layer's compare-and-swap: the first
// claim wins and credits, every later claim reports already-claimed with no
// side effects.
type claimOnceRepo struct {
	mu      sync.Mutex
	claimed bool
	credits int
	reward  int
	balance int
}

func (r *claimOnceRepo) ClaimQuestReward(_ context.Context, _ int64, _ uuid.UUID) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.claimed {
		return 0, 0, repository.ErrQuestAlreadyClaimed
	}
	r.claimed = true
	r.credits++
	r.balance += r.reward
	return r.reward, r.balance, nil
}

func TestRewardClaimService_ConcurrentClaimsCreditOnce(t *testing.T) {
	repo := &claimOnceRepo{reward: 50, balance: 3000}
	service := NewRewardClaimService(repo)
	instanceID := uuid.New()

	const callers = 16

	var wg sync.WaitGroup
	results := make([]*ClaimResult, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = service.Claim(context.Background(), 42, instanceID)
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := 0; i < callers; i++ {
		if errs[i] == nil {
			winners++
			assert.Equal(t, &ClaimResult{Reward: 50, NewBalance: 3050}, results[i])
		} else {
			assert.ErrorIs(t, errs[i], ErrQuestAlreadyClaimed)
		}
	}

	assert.Equal(t, 1, winners, "exactly one claim must win")
	assert.Equal(t, 1, repo.credits, "exactly one credit transaction")
	assert.Equal(t, 3050, repo.balance)
}
