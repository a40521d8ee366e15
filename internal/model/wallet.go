package model

import (
	"time"

	"github.com/google/uuid"
)

// WelcomeBalance is the Animoneys balance a wallet is created with. It is
// not recorded as a transaction: for any wallet,
// balance == WelcomeBalance + sum of all its transaction amounts.
const WelcomeBalance = 3000

type Wallet struct {
	ID        uuid.UUID
	OwnerID   int64
	Balance   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type TransactionKind string

const (
	TransactionCredit TransactionKind = "CREDIT"
	TransactionDebit  TransactionKind = "DEBIT"
)

type TransactionReason string

const (
	ReasonDailyReward    TransactionReason = "daily-reward"
	ReasonQuestReward    TransactionReason = "quest-reward"
	ReasonPurchase       TransactionReason = "purchase"
	ReasonLevelUp        TransactionReason = "level-up"
	ReasonManual         TransactionReason = "manual"
	ReasonInitialBalance TransactionReason = "initial-balance"
)

// Transaction is an append-only ledger entry. Amount is signed: positive for
// credits, negative for debits.
type Transaction struct {
	ID        uuid.UUID
	WalletID  uuid.UUID
	Amount    int
	Kind      TransactionKind
	Reason    TransactionReason
	Metadata  map[string]string
	CreatedAt time.Time
}
