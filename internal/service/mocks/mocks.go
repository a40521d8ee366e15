package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/orinaya/animochi-backend/internal/model"
)

type MockQuestRepository struct {
	mock.Mock
}

func (m *MockQuestRepository) GetDailyQuestInstances(ctx context.Context, userID int64, day time.Time) ([]*model.QuestInstance, error) {
	args := m.Called(ctx, userID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.QuestInstance), args.Error(1)
}

func (m *MockQuestRepository) InsertQuestInstances(ctx context.Context, instances []*model.QuestInstance) error {
	args := m.Called(ctx, instances)
	return args.Error(0)
}

func (m *MockQuestRepository) GetQuestInstance(ctx context.Context, userID int64, instanceID uuid.UUID) (*model.QuestInstance, error) {
	args := m.Called(ctx, userID, instanceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QuestInstance), args.Error(1)
}

func (m *MockQuestRepository) TrackQuestProgress(ctx context.Context, userID int64, questType model.QuestType, amount int, now time.Time) (bool, error) {
	args := m.Called(ctx, userID, questType, amount, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockQuestRepository) UpdateQuestProgress(ctx context.Context, userID int64, instanceID uuid.UUID, amount int, now time.Time) (*model.QuestInstance, bool, error) {
	args := m.Called(ctx, userID, instanceID, amount, now)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.QuestInstance), args.Bool(1), args.Error(2)
}

func (m *MockQuestRepository) ExpireQuestInstances(ctx context.Context, userID *int64, now time.Time) (int64, error) {
	args := m.Called(ctx, userID, now)
	return args.Get(0).(int64), args.Error(1)
}

type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) GetWallet(ctx context.Context, ownerID int64) (*model.Wallet, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Wallet), args.Error(1)
}

func (m *MockWalletRepository) GetOrCreateWallet(ctx context.Context, ownerID int64) (*model.Wallet, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Wallet), args.Error(1)
}

func (m *MockWalletRepository) CreditWallet(ctx context.Context, ownerID int64, amount int, reason model.TransactionReason, metadata map[string]string) (int, error) {
	args := m.Called(ctx, ownerID, amount, reason, metadata)
	return args.Int(0), args.Error(1)
}

func (m *MockWalletRepository) DebitWallet(ctx context.Context, ownerID int64, amount int, reason model.TransactionReason, metadata map[string]string) (int, error) {
	args := m.Called(ctx, ownerID, amount, reason, metadata)
	return args.Int(0), args.Error(1)
}

func (m *MockWalletRepository) GetWalletTransactions(ctx context.Context, ownerID int64) ([]*model.Transaction, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

type MockClaimRepository struct {
	mock.Mock
}

func (m *MockClaimRepository) ClaimQuestReward(ctx context.Context, userID int64, instanceID uuid.UUID) (int, int, error) {
	args := m.Called(ctx, userID, instanceID)
	return args.Int(0), args.Int(1), args.Error(2)
}
