package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/orinaya/animochi-backend/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const dayFormat = "2006-01-02"

type questInstanceRow struct {
	ID           uuid.UUID  `db:"id"`
	UserID       int64      `db:"user_id"`
	QuestID      uuid.UUID  `db:"quest_id"`
	QuestType    string     `db:"quest_type"`
	CurrentCount int        `db:"current_count"`
	TargetCount  int        `db:"target_count"`
	Reward       int        `db:"reward"`
	Status       string     `db:"status"`
	AssignedFor  time.Time  `db:"assigned_for"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	CompletedAt  *time.Time `db:"completed_at"`
	ExpiresAt    time.Time  `db:"expires_at"`
}

func (q *questInstanceRow) toModel() *model.QuestInstance {
	return &model.QuestInstance{
		ID:           q.ID,
		UserID:       q.UserID,
		QuestID:      q.QuestID,
		QuestType:    model.QuestType(q.QuestType),
		CurrentCount: q.CurrentCount,
		TargetCount:  q.TargetCount,
		Reward:       q.Reward,
		Status:       model.QuestStatus(q.Status),
		AssignedFor:  q.AssignedFor,
		CreatedAt:    q.CreatedAt,
		UpdatedAt:    q.UpdatedAt,
		CompletedAt:  q.CompletedAt,
		ExpiresAt:    q.ExpiresAt,
	}
}

var questInstanceColumns = []string{
	"id", "user_id", "quest_id", "quest_type", "current_count", "target_count",
	"reward", "status", "assigned_for", "created_at", "updated_at",
	"completed_at", "expires_at",
}

func (r *Repository) GetDailyQuestInstances(ctx context.Context, userID int64, day time.Time) ([]*model.QuestInstance, error) {
	query, args, err := squirrel.
		Select(questInstanceColumns...).
		From("quest_instances").
		Where(squirrel.Eq{
			"user_id":      userID,
			"assigned_for": day.UTC().Format(dayFormat),
		}).
		OrderBy("created_at", "id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []*questInstanceRow
	err = r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily quest instances: %w", err)
	}

	instances := make([]*model.QuestInstance, len(rows))
	for i, row := range rows {
		instances[i] = row.toModel()
	}

	return instances, nil
}

// InsertQuestInstances inserts a daily batch unless the user already has one
// for that day. The per-user advisory lock serializes concurrent first
// assignments: a losing caller blocks until the winner commits, then finds
// the winner's rows and inserts nothing. Callers re-read afterwards.
func (r *Repository) InsertQuestInstances(ctx context.Context, instances []*model.QuestInstance) error {
	if len(instances) == 0 {
		return nil
	}

	userID := instances[0].UserID
	day := instances[0].AssignedFor.UTC().Format(dayFormat)

	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", userID); err != nil {
			return fmt.Errorf("failed to take assignment lock: %w", err)
		}

		existsQuery, existsArgs, err := squirrel.
			Select("1").
			From("quest_instances").
			Where(squirrel.Eq{
				"user_id":      userID,
				"assigned_for": day,
			}).
			Limit(1).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		var exists bool
		err = tx.GetContext(ctx, &exists, existsQuery, existsArgs...)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check daily quest instances: %w", err)
		}

		builder := squirrel.
			Insert("quest_instances").
			Columns(questInstanceColumns...).
			PlaceholderFormat(squirrel.Dollar)

		for _, q := range instances {
			builder = builder.Values(
				q.ID, q.UserID, q.QuestID, string(q.QuestType), q.CurrentCount,
				q.TargetCount, q.Reward, string(q.Status),
				q.AssignedFor.UTC().Format(dayFormat), q.CreatedAt, q.UpdatedAt,
				q.CompletedAt, q.ExpiresAt,
			)
		}

		query, args, err := builder.
			Suffix("ON CONFLICT (user_id, quest_id, assigned_for) DO NOTHING").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build quest instances insert query: %w", err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert quest instances: %w", err)
		}

		return nil
	})
}

func (r *Repository) GetQuestInstance(ctx context.Context, userID int64, instanceID uuid.UUID) (*model.QuestInstance, error) {
	query, args, err := squirrel.
		Select(questInstanceColumns...).
		From("quest_instances").
		Where(squirrel.Eq{
			"id":      instanceID,
			"user_id": userID,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var row questInstanceRow
	err = r.db.GetContext(ctx, &row, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return row.toModel(), nil
}

// TrackQuestProgress advances every trackable instance of the user with the
// given type for the current day. Matching rows are locked for the duration
// of the transaction so concurrent progress calls serialize per instance.
func (r *Repository) TrackQuestProgress(ctx context.Context, userID int64, questType model.QuestType, amount int, now time.Time) (bool, error) {
	newlyCompleted := false

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Select(questInstanceColumns...).
			From("quest_instances").
			Where(squirrel.Eq{
				"user_id":      userID,
				"quest_type":   string(questType),
				"assigned_for": now.UTC().Format(dayFormat),
			}).
			Suffix("FOR UPDATE").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		var rows []*questInstanceRow
		if err := tx.SelectContext(ctx, &rows, query, args...); err != nil {
			return fmt.Errorf("failed to lock quest instances: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}

		// Rows overdue but not yet swept by the reset expire here rather
		// than absorb progress.
		instances := make([]*model.QuestInstance, len(rows))
		trackable := 0
		expired := 0
		for i, row := range rows {
			instance := row.toModel()
			if instance.Expire(now) {
				if err := updateQuestProgressTx(ctx, tx, instance); err != nil {
					return err
				}
			}
			switch instance.Status {
			case model.QuestNotStarted, model.QuestInProgress:
				trackable++
			case model.QuestExpired:
				expired++
			}
			instances[i] = instance
		}
		if trackable == 0 {
			if expired > 0 {
				return ErrQuestExpired
			}
			return nil
		}

		for _, instance := range instances {
			if !instance.Trackable() {
				continue
			}
			if instance.ApplyProgress(amount, now) {
				newlyCompleted = true
			}
			if err := updateQuestProgressTx(ctx, tx, instance); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return false, err
	}

	return newlyCompleted, nil
}

// UpdateQuestProgress advances a single instance addressed by id.
func (r *Repository) UpdateQuestProgress(ctx context.Context, userID int64, instanceID uuid.UUID, amount int, now time.Time) (*model.QuestInstance, bool, error) {
	var (
		instance       *model.QuestInstance
		newlyCompleted bool
	)

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Select(questInstanceColumns...).
			From("quest_instances").
			Where(squirrel.Eq{
				"id":      instanceID,
				"user_id": userID,
			}).
			Suffix("FOR UPDATE").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		var row questInstanceRow
		if err := tx.GetContext(ctx, &row, query, args...); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to lock quest instance: %w", err)
		}

		instance = row.toModel()
		if instance.Expire(now) || instance.Status == model.QuestExpired {
			return ErrQuestExpired
		}
		if !instance.Trackable() {
			// COMPLETED and CLAIMED absorb further progress.
			return nil
		}

		newlyCompleted = instance.ApplyProgress(amount, now)
		return updateQuestProgressTx(ctx, tx, instance)
	})
	if err != nil {
		return nil, false, err
	}

	return instance, newlyCompleted, nil
}

func updateQuestProgressTx(ctx context.Context, tx *sqlx.Tx, q *model.QuestInstance) error {
	query, args, err := squirrel.
		Update("quest_instances").
		SetMap(map[string]interface{}{
			"current_count": q.CurrentCount,
			"status":        string(q.Status),
			"completed_at":  q.CompletedAt,
			"updated_at":    q.UpdatedAt,
		}).
		Where(squirrel.Eq{"id": q.ID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update quest progress: %w", err)
	}

	return nil
}

// ExpireQuestInstances transitions every overdue NOT_STARTED / IN_PROGRESS
// instance to EXPIRED. COMPLETED and CLAIMED rows are never touched, and
// re-running finds nothing left to transition. A nil userID expires across
// all users.
func (r *Repository) ExpireQuestInstances(ctx context.Context, userID *int64, now time.Time) (int64, error) {
	builder := squirrel.
		Update("quest_instances").
		Set("status", string(model.QuestExpired)).
		Set("updated_at", now).
		Where(squirrel.Expr("status = ANY(?)", pq.Array([]string{
			string(model.QuestNotStarted),
			string(model.QuestInProgress),
		}))).
		Where(squirrel.LtOrEq{"expires_at": now}).
		PlaceholderFormat(squirrel.Dollar)

	if userID != nil {
		builder = builder.Where(squirrel.Eq{"user_id": *userID})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to expire quest instances: %w", err)
	}

	return result.RowsAffected()
}

// ClaimQuestReward performs the COMPLETED -> CLAIMED transition and the
// wallet credit as one unit. The transition is a compare-and-swap on the
// current status: of any number of concurrent claims for the same instance,
// exactly one sees a row updated and credits the reward; the rest observe
// the resulting status and report it.
func (r *Repository) ClaimQuestReward(ctx context.Context, userID int64, instanceID uuid.UUID) (int, int, error) {
	var reward, newBalance int

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()

		claimQuery, args, err := squirrel.
			Update("quest_instances").
			Set("status", string(model.QuestClaimed)).
			Set("updated_at", now).
			Where(squirrel.Eq{
				"id":      instanceID,
				"user_id": userID,
				"status":  string(model.QuestCompleted),
			}).
			Suffix("RETURNING reward, quest_id").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build claim query: %w", err)
		}

		var claimed struct {
			Reward  int       `db:"reward"`
			QuestID uuid.UUID `db:"quest_id"`
		}
		err = tx.GetContext(ctx, &claimed, claimQuery, args...)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("failed to claim quest: %w", err)
			}
			// Lost the swap or never eligible: report the actual status.
			return claimStatusErrorTx(ctx, tx, userID, instanceID)
		}

		reward = claimed.Reward

		if err := ensureWalletTx(ctx, tx, userID, now); err != nil {
			return err
		}

		balance, err := creditWalletTx(ctx, tx, userID, reward, model.ReasonQuestReward, map[string]string{
			"quest_id":          claimed.QuestID.String(),
			"quest_instance_id": instanceID.String(),
		}, now)
		if err != nil {
			return err
		}
		newBalance = balance

		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	return reward, newBalance, nil
}

func claimStatusErrorTx(ctx context.Context, tx *sqlx.Tx, userID int64, instanceID uuid.UUID) error {
	query, args, err := squirrel.
		Select("status").
		From("quest_instances").
		Where(squirrel.Eq{
			"id":      instanceID,
			"user_id": userID,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	var status string
	err = tx.GetContext(ctx, &status, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to check quest status: %w", err)
	}

	switch model.QuestStatus(status) {
	case model.QuestClaimed:
		return ErrQuestAlreadyClaimed
	case model.QuestExpired:
		return ErrQuestExpired
	default:
		return ErrQuestNotCompleted
	}
}
