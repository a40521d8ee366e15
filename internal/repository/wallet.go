package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/orinaya/animochi-backend/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type walletRow struct {
	ID        uuid.UUID `db:"id"`
	OwnerID   int64     `db:"owner_id"`
	Balance   int       `db:"balance"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (w *walletRow) toModel() *model.Wallet {
	return &model.Wallet{
		ID:        w.ID,
		OwnerID:   w.OwnerID,
		Balance:   w.Balance,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

type transactionRow struct {
	ID        uuid.UUID `db:"id"`
	WalletID  uuid.UUID `db:"wallet_id"`
	Amount    int       `db:"amount"`
	Kind      string    `db:"kind"`
	Reason    string    `db:"reason"`
	Metadata  []byte    `db:"metadata"`
	CreatedAt time.Time `db:"created_at"`
}

func (t *transactionRow) toModel() (*model.Transaction, error) {
	metadata := make(map[string]string)
	if len(t.Metadata) > 0 {
		if err := json.Unmarshal(t.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
		}
	}

	return &model.Transaction{
		ID:        t.ID,
		WalletID:  t.WalletID,
		Amount:    t.Amount,
		Kind:      model.TransactionKind(t.Kind),
		Reason:    model.TransactionReason(t.Reason),
		Metadata:  metadata,
		CreatedAt: t.CreatedAt,
	}, nil
}

func (r *Repository) GetWallet(ctx context.Context, ownerID int64) (*model.Wallet, error) {
	query, args, err := squirrel.
		Select("id", "owner_id", "balance", "created_at", "updated_at").
		From("wallets").
		Where(squirrel.Eq{"owner_id": ownerID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var row walletRow
	err = r.db.GetContext(ctx, &row, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return row.toModel(), nil
}

// GetOrCreateWallet returns the wallet for ownerID, creating it with the
// welcome balance on first access. The insert races on the owner_id
// uniqueness; a losing creator skips its row and reads the winner's wallet.
func (r *Repository) GetOrCreateWallet(ctx context.Context, ownerID int64) (*model.Wallet, error) {
	var wallet *model.Wallet

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := ensureWalletTx(ctx, tx, ownerID, time.Now().UTC()); err != nil {
			return err
		}

		query, args, err := squirrel.
			Select("id", "owner_id", "balance", "created_at", "updated_at").
			From("wallets").
			Where(squirrel.Eq{"owner_id": ownerID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		var row walletRow
		if err := tx.GetContext(ctx, &row, query, args...); err != nil {
			return fmt.Errorf("failed to get wallet: %w", err)
		}

		wallet = row.toModel()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return wallet, nil
}

// CreditWallet appends a CREDIT transaction and increases the balance as one
// unit, returning the new balance.
func (r *Repository) CreditWallet(ctx context.Context, ownerID int64, amount int, reason model.TransactionReason, metadata map[string]string) (int, error) {
	var newBalance int

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		balance, err := creditWalletTx(ctx, tx, ownerID, amount, reason, metadata, time.Now().UTC())
		if err != nil {
			return err
		}
		newBalance = balance
		return nil
	})
	if err != nil {
		return 0, err
	}

	return newBalance, nil
}

// ensureWalletTx creates the wallet with the welcome balance if it does not
// exist yet. Wallets are created lazily on first access.
func ensureWalletTx(ctx context.Context, tx *sqlx.Tx, ownerID int64, now time.Time) error {
	query, args, err := squirrel.
		Insert("wallets").
		SetMap(map[string]interface{}{
			"id":         uuid.New(),
			"owner_id":   ownerID,
			"balance":    model.WelcomeBalance,
			"created_at": now,
			"updated_at": now,
		}).
		Suffix("ON CONFLICT (owner_id) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build wallet insert query: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to ensure wallet: %w", err)
	}

	return nil
}

// creditWalletTx is the shared credit path: the balance UPDATE takes the
// wallet row lock, serializing concurrent credits and debits per wallet.
func creditWalletTx(ctx context.Context, tx *sqlx.Tx, ownerID int64, amount int, reason model.TransactionReason, metadata map[string]string, now time.Time) (int, error) {
	updateQuery, args, err := squirrel.
		Update("wallets").
		Set("balance", squirrel.Expr("balance + ?", amount)).
		Set("updated_at", now).
		Where(squirrel.Eq{"owner_id": ownerID}).
		Suffix("RETURNING id, balance").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build credit query: %w", err)
	}

	var updated struct {
		ID      uuid.UUID `db:"id"`
		Balance int       `db:"balance"`
	}
	err = tx.GetContext(ctx, &updated, updateQuery, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to credit wallet: %w", err)
	}

	err = insertTransactionTx(ctx, tx, updated.ID, amount, model.TransactionCredit, reason, metadata, now)
	if err != nil {
		return 0, err
	}

	return updated.Balance, nil
}

// DebitWallet appends a DEBIT transaction (stored negative) and decreases the
// balance as one unit. A debit exceeding the balance changes nothing.
func (r *Repository) DebitWallet(ctx context.Context, ownerID int64, amount int, reason model.TransactionReason, metadata map[string]string) (int, error) {
	var newBalance int

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()

		updateQuery, args, err := squirrel.
			Update("wallets").
			Set("balance", squirrel.Expr("balance - ?", amount)).
			Set("updated_at", now).
			Where(squirrel.Eq{"owner_id": ownerID}).
			Where(squirrel.GtOrEq{"balance": amount}).
			Suffix("RETURNING id, balance").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build debit query: %w", err)
		}

		var updated struct {
			ID      uuid.UUID `db:"id"`
			Balance int       `db:"balance"`
		}
		err = tx.GetContext(ctx, &updated, updateQuery, args...)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("failed to debit wallet: %w", err)
			}

			// Distinguish a missing wallet from insufficient funds.
			checkQuery, checkArgs, err := squirrel.
				Select("1").
				From("wallets").
				Where(squirrel.Eq{"owner_id": ownerID}).
				PlaceholderFormat(squirrel.Dollar).
				ToSql()
			if err != nil {
				return err
			}

			var exists bool
			err = tx.GetContext(ctx, &exists, checkQuery, checkArgs...)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return ErrNotFound
				}
				return err
			}
			return ErrInsufficientBalance
		}

		err = insertTransactionTx(ctx, tx, updated.ID, -amount, model.TransactionDebit, reason, metadata, now)
		if err != nil {
			return err
		}

		newBalance = updated.Balance
		return nil
	})
	if err != nil {
		return 0, err
	}

	return newBalance, nil
}

func insertTransactionTx(ctx context.Context, tx *sqlx.Tx, walletID uuid.UUID, amount int, kind model.TransactionKind, reason model.TransactionReason, metadata map[string]string, now time.Time) error {
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	query, args, err := squirrel.
		Insert("wallet_transactions").
		SetMap(map[string]interface{}{
			"id":         uuid.New(),
			"wallet_id":  walletID,
			"amount":     amount,
			"kind":       string(kind),
			"reason":     string(reason),
			"metadata":   metadataJSON,
			"created_at": now,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build transaction insert query: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert wallet transaction: %w", err)
	}

	return nil
}

func (r *Repository) GetWalletTransactions(ctx context.Context, ownerID int64) ([]*model.Transaction, error) {
	query, args, err := squirrel.
		Select("t.id", "t.wallet_id", "t.amount", "t.kind", "t.reason", "t.metadata", "t.created_at").
		From("wallet_transactions t").
		Join("wallets w ON w.id = t.wallet_id").
		Where(squirrel.Eq{"w.owner_id": ownerID}).
		OrderBy("t.created_at DESC", "t.id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []*transactionRow
	err = r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet transactions: %w", err)
	}

	transactions := make([]*model.Transaction, len(rows))
	for i, row := range rows {
		transactions[i], err = row.toModel()
		if err != nil {
			return nil, err
		}
	}

	return transactions, nil
}
