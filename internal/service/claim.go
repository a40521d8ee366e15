package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/orinaya/animochi-backend/internal/repository"
)

type ClaimResult struct {
	Reward     int
	NewBalance int
}

// RewardClaimService is the only path from COMPLETED to CLAIMED and the only
// caller crediting quest rewards. The repository performs the status swap
// and the credit as one storage transaction, so a retried or concurrent
// claim either wins the swap or observes CLAIMED and credits nothing.
type RewardClaimService struct {
	repo ClaimRepository
}

func NewRewardClaimService(repo ClaimRepository) *RewardClaimService {
	return &RewardClaimService{
		repo: repo,
	}
}

func (s *RewardClaimService) Claim(ctx context.Context, userID int64, instanceID uuid.UUID) (*ClaimResult, error) {
	reward, newBalance, err := s.repo.ClaimQuestReward(ctx, userID, instanceID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrQuestNotFound
		case errors.Is(err, repository.ErrQuestNotCompleted):
			return nil, ErrQuestNotCompleted
		case errors.Is(err, repository.ErrQuestAlreadyClaimed):
			return nil, ErrQuestAlreadyClaimed
		case errors.Is(err, repository.ErrQuestExpired):
			return nil, ErrQuestExpired
		default:
			return nil, fmt.Errorf("failed to claim quest reward: %w", err)
		}
	}

	return &ClaimResult{
		Reward:     reward,
		NewBalance: newBalance,
	}, nil
}
