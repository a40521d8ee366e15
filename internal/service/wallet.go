package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/orinaya/animochi-backend/internal/model"
	"github.com/orinaya/animochi-backend/internal/repository"
)

type WalletLedgerService struct {
	repo WalletRepository
}

func NewWalletLedgerService(repo WalletRepository) *WalletLedgerService {
	return &WalletLedgerService{
		repo: repo,
	}
}

func (s *WalletLedgerService) GetOrCreateWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	wallet, err := s.repo.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create wallet: %w", err)
	}
	return wallet, nil
}

func (s *WalletLedgerService) Credit(ctx context.Context, userID int64, amount int, reason model.TransactionReason, metadata map[string]string) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	newBalance, err := s.repo.CreditWallet(ctx, userID, amount, reason, metadata)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrWalletNotFound
		}
		return 0, fmt.Errorf("failed to credit wallet: %w", err)
	}

	return newBalance, nil
}

func (s *WalletLedgerService) Debit(ctx context.Context, userID int64, amount int, reason model.TransactionReason, metadata map[string]string) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	newBalance, err := s.repo.DebitWallet(ctx, userID, amount, reason, metadata)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return 0, ErrWalletNotFound
		case errors.Is(err, repository.ErrInsufficientBalance):
			return 0, ErrInsufficientBalance
		default:
			return 0, fmt.Errorf("failed to debit wallet: %w", err)
		}
	}

	return newBalance, nil
}

// Transactions returns the wallet's history, newest first. Reading the
// history never creates a wallet; asking for an owner without one fails.
func (s *WalletLedgerService) Transactions(ctx context.Context, userID int64) ([]*model.Transaction, error) {
	if _, err := s.repo.GetWallet(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	transactions, err := s.repo.GetWalletTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet transactions: %w", err)
	}
	return transactions, nil
}
