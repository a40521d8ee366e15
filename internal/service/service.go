package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/orinaya/animochi-backend/internal/model"
)

var (
	ErrInvalidAmount = errors.New("amount must be a positive integer")

	ErrQuestNotFound       = errors.New("quest not found")
	ErrQuestNotCompleted   = errors.New("quest is not completed")
	ErrQuestAlreadyClaimed = errors.New("quest reward already claimed")
	ErrQuestExpired        = errors.New("quest has expired")

	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

type Service struct {
	*QuestLifecycleService
	*WalletLedgerService
	*RewardClaimService
}

func NewService(quests *QuestLifecycleService, wallet *WalletLedgerService, claims *RewardClaimService) *Service {
	return &Service{
		QuestLifecycleService: quests,
		WalletLedgerService:   wallet,
		RewardClaimService:    claims,
	}
}

type QuestLifecycleServiceI interface {
	GetDailyQuests(ctx context.Context, userID int64) ([]*model.QuestInstance, error)
	GetQuest(ctx context.Context, userID int64, instanceID uuid.UUID) (*model.QuestInstance, error)
	TrackProgress(ctx context.Context, userID int64, questType model.QuestType, amount int) (bool, error)
	UpdateProgress(ctx context.Context, userID int64, instanceID uuid.UUID, amount int) (*model.QuestInstance, bool, error)
	ResetDailyQuests(ctx context.Context, userID int64) (int64, error)
	ResetAllDailyQuests(ctx context.Context) (int64, error)
}

type QuestRepository interface {
	GetDailyQuestInstances(ctx context.Context, userID int64, day time.Time) ([]*model.QuestInstance, error)
	InsertQuestInstances(ctx context.Context, instances []*model.QuestInstance) error
	GetQuestInstance(ctx context.Context, userID int64, instanceID uuid.UUID) (*model.QuestInstance, error)
	TrackQuestProgress(ctx context.Context, userID int64, questType model.QuestType, amount int, now time.Time) (bool, error)
	UpdateQuestProgress(ctx context.Context, userID int64, instanceID uuid.UUID, amount int, now time.Time) (*model.QuestInstance, bool, error)
	ExpireQuestInstances(ctx context.Context, userID *int64, now time.Time) (int64, error)
}

type WalletLedgerServiceI interface {
	GetOrCreateWallet(ctx context.Context, userID int64) (*model.Wallet, error)
	Credit(ctx context.Context, userID int64, amount int, reason model.TransactionReason, metadata map[string]string) (int, error)
	Debit(ctx context.Context, userID int64, amount int, reason model.TransactionReason, metadata map[string]string) (int, error)
	Transactions(ctx context.Context, userID int64) ([]*model.Transaction, error)
}

type WalletRepository interface {
	GetWallet(ctx context.Context, ownerID int64) (*model.Wallet, error)
	GetOrCreateWallet(ctx context.Context, ownerID int64) (*model.Wallet, error)
	CreditWallet(ctx context.Context, ownerID int64, amount int, reason model.TransactionReason, metadata map[string]string) (int, error)
	DebitWallet(ctx context.Context, ownerID int64, amount int, reason model.TransactionReason, metadata map[string]string) (int, error)
	GetWalletTransactions(ctx context.Context, ownerID int64) ([]*model.Transaction, error)
}

type RewardClaimServiceI interface {
	Claim(ctx context.Context, userID int64, instanceID uuid.UUID) (*ClaimResult, error)
}

type ClaimRepository interface {
	ClaimQuestReward(ctx context.Context, userID int64, instanceID uuid.UUID) (int, int, error)
}
