package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/orinaya/animochi-backend/internal/model"
	"github.com/orinaya/animochi-backend/internal/repository"
	"github.com/orinaya/animochi-backend/internal/service/mocks"
)

func TestWalletLedgerService_GetOrCreateWallet(t *testing.T) {
	mockRepo := &mocks.MockWalletRepository{}
	service := NewWalletLedgerService(mockRepo)

	mockRepo.On("GetOrCreateWallet", mock.Anything, int64(42)).
		Return(&model.Wallet{OwnerID: 42, Balance: model.WelcomeBalance}, nil)

	wallet, err := service.GetOrCreateWallet(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, model.WelcomeBalance, wallet.Balance)
	mockRepo.AssertExpectations(t)
}

func TestWalletLedgerService_Credit(t *testing.T) {
	tests := []struct {
		name        string
		amount      int
		mockSetup   func(m *mocks.MockWalletRepository)
		wantBalance int
		wantErr     error
	}{
		{
			name:   "successful credit",
			amount: 50,
			mockSetup: func(m *mocks.MockWalletRepository) {
				m.On("CreditWallet", mock.Anything, int64(42), 50, model.ReasonQuestReward, mock.Anything).
					Return(3050, nil)
			},
			wantBalance: 3050,
		},
		{
			name:    "zero amount rejected",
			amount:  0,
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative amount rejected",
			amount:  -50,
			wantErr: ErrInvalidAmount,
		},
		{
			name:   "missing wallet",
			amount: 50,
			mockSetup: func(m *mocks.MockWalletRepository) {
				m.On("CreditWallet", mock.Anything, int64(42), 50, model.ReasonQuestReward, mock.Anything).
					Return(0, repository.ErrNotFound)
			},
			wantErr: ErrWalletNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &mocks.MockWalletRepository{}
			service := NewWalletLedgerService(mockRepo)
			if tt.mockSetup != nil {
				tt.mockSetup(mockRepo)
			}

			balance, err := service.Credit(context.Background(), 42, tt.amount, model.ReasonQuestReward, nil)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				if errors.Is(tt.wantErr, ErrInvalidAmount) {
					// Validation failures never reach the repository.
					mockRepo.AssertNotCalled(t, "CreditWallet", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				}
				mockRepo.AssertExpectations(t)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBalance, balance)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestWalletLedgerService_Debit(t *testing.T) {
	tests := []struct {
		name        string
		amount      int
		mockSetup   func(m *mocks.MockWalletRepository)
		wantBalance int
		wantErr     error
	}{
		{
			name:   "successful debit",
			amount: 500,
			mockSetup: func(m *mocks.MockWalletRepository) {
				m.On("DebitWallet", mock.Anything, int64(42), 500, model.ReasonPurchase, mock.Anything).
					Return(2500, nil)
			},
			wantBalance: 2500,
		},
		{
			name:   "insufficient balance leaves state unchanged",
			amount: 5000,
			mockSetup: func(m *mocks.MockWalletRepository) {
				m.On("DebitWallet", mock.Anything, int64(42), 5000, model.ReasonPurchase, mock.Anything).
					Return(0, repository.ErrInsufficientBalance)
			},
			wantErr: ErrInsufficientBalance,
		},
		{
			name:    "non-positive amount rejected",
			amount:  0,
			wantErr: ErrInvalidAmount,
		},
		{
			name:   "missing wallet",
			amount: 10,
			mockSetup: func(m *mocks.MockWalletRepository) {
				m.On("DebitWallet", mock.Anything, int64(42), 10, model.ReasonPurchase, mock.Anything).
					Return(0, repository.ErrNotFound)
			},
			wantErr: ErrWalletNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &mocks.MockWalletRepository{}
			service := NewWalletLedgerService(mockRepo)
			if tt.mockSetup != nil {
				tt.mockSetup(mockRepo)
			}

			balance, err := service.Debit(context.Background(), 42, tt.amount, model.ReasonPurchase, nil)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBalance, balance)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestWalletLedgerService_Transactions(t *testing.T) {
	mockRepo := &mocks.MockWalletRepository{}
	service := NewWalletLedgerService(mockRepo)

	history := []*model.Transaction{
		{Amount: 50, Kind: model.TransactionCredit, Reason: model.ReasonQuestReward},
		{Amount: -20, Kind: model.TransactionDebit, Reason: model.ReasonPurchase},
	}
	mockRepo.On("GetWallet", mock.Anything, int64(42)).
		Return(&model.Wallet{OwnerID: 42, Balance: model.WelcomeBalance + 30}, nil)
	mockRepo.On("GetWalletTransactions", mock.Anything, int64(42)).
		Return(history, nil)

	got, err := service.Transactions(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, history, got)
	mockRepo.AssertExpectations(t)
}

func TestWalletLedgerService_TransactionsMissingWallet(t *testing.T) {
	mockRepo := &mocks.MockWalletRepository{}
	service := NewWalletLedgerService(mockRepo)

	mockRepo.On("GetWallet", mock.Anything, int64(42)).
		Return(nil, repository.ErrNotFound)

	_, err := service.Transactions(context.Background(), 42)

	assert.ErrorIs(t, err, ErrWalletNotFound)
	mockRepo.AssertNotCalled(t, "GetWalletTransactions", mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}
