package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/orinaya/animochi-backend/internal/catalog"
	"github.com/orinaya/animochi-backend/internal/model"
	"github.com/orinaya/animochi-backend/internal/repository"
)

// DailyQuestCount is how many templates every user gets assigned per day.
const DailyQuestCount = 3

type QuestLifecycleService struct {
	repo    QuestRepository
	catalog *catalog.Catalog
	rng     *rand.Rand
	now     func() time.Time
}

func NewQuestLifecycleService(repo QuestRepository, c *catalog.Catalog, rng *rand.Rand) *QuestLifecycleService {
	return &QuestLifecycleService{
		repo:    repo,
		catalog: c,
		rng:     rng,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source, for tests.
func (s *QuestLifecycleService) WithClock(now func() time.Time) *QuestLifecycleService {
	s.now = now
	return s
}

// GetDailyQuests returns the user's quests for the current day, assigning a
// fresh batch first if none exist yet. Instances are enriched with the
// catalog's display fields.
func (s *QuestLifecycleService) GetDailyQuests(ctx context.Context, userID int64) ([]*model.QuestInstance, error) {
	instances, err := s.AssignDailyQuests(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, q := range instances {
		tpl, err := s.catalog.Lookup(q.QuestID, q.QuestType, q.TargetCount)
		if err != nil {
			// Display metadata only; a rotated-out template leaves it blank.
			continue
		}
		q.Title = tpl.Title
		q.Description = tpl.Description
		q.Icon = tpl.Icon
	}

	return instances, nil
}

// AssignDailyQuests is idempotent per calendar day: when instances already
// exist for the user's current day they are returned unchanged, otherwise a
// random distinct subset of templates is instantiated. The repository
// serializes concurrent first assignments, so racing callers converge on a
// single batch and both re-read it.
func (s *QuestLifecycleService) AssignDailyQuests(ctx context.Context, userID int64) ([]*model.QuestInstance, error) {
	now := s.now()

	existing, err := s.repo.GetDailyQuestInstances(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily quest instances: %w", err)
	}
	if len(existing) > 0 {
		return existing, nil
	}

	templates := s.catalog.Select(DailyQuestCount, s.rng)
	instances := make([]*model.QuestInstance, len(templates))
	for i, tpl := range templates {
		instances[i] = &model.QuestInstance{
			ID:           uuid.New(),
			UserID:       userID,
			QuestID:      tpl.ID,
			QuestType:    tpl.Type,
			CurrentCount: 0,
			TargetCount:  tpl.TargetCount,
			Reward:       tpl.Reward,
			Status:       model.QuestNotStarted,
			AssignedFor:  now,
			CreatedAt:    now,
			UpdatedAt:    now,
			ExpiresAt:    model.EndOfDay(now),
		}
	}

	if err := s.repo.InsertQuestInstances(ctx, instances); err != nil {
		return nil, fmt.Errorf("failed to insert daily quest instances: %w", err)
	}

	assigned, err := s.repo.GetDailyQuestInstances(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to reload daily quest instances: %w", err)
	}

	return assigned, nil
}

// GetQuest returns a single quest instance with its display fields filled in.
func (s *QuestLifecycleService) GetQuest(ctx context.Context, userID int64, instanceID uuid.UUID) (*model.QuestInstance, error) {
	instance, err := s.repo.GetQuestInstance(ctx, userID, instanceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQuestNotFound
		}
		return nil, fmt.Errorf("failed to get quest instance: %w", err)
	}

	if tpl, err := s.catalog.Lookup(instance.QuestID, instance.QuestType, instance.TargetCount); err == nil {
		instance.Title = tpl.Title
		instance.Description = tpl.Description
		instance.Icon = tpl.Icon
	}

	return instance, nil
}

// TrackProgress advances every in-flight quest of the given type for the
// user and reports whether any instance newly completed on this call. It
// never credits anything; claiming is a separate, explicit act.
func (s *QuestLifecycleService) TrackProgress(ctx context.Context, userID int64, questType model.QuestType, amount int) (bool, error) {
	if amount <= 0 {
		return false, ErrInvalidAmount
	}

	newlyCompleted, err := s.repo.TrackQuestProgress(ctx, userID, questType, amount, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrQuestExpired) {
			return false, ErrQuestExpired
		}
		return false, fmt.Errorf("failed to track quest progress: %w", err)
	}

	return newlyCompleted, nil
}

// UpdateProgress advances one quest instance addressed by id.
func (s *QuestLifecycleService) UpdateProgress(ctx context.Context, userID int64, instanceID uuid.UUID, amount int) (*model.QuestInstance, bool, error) {
	if amount <= 0 {
		return nil, false, ErrInvalidAmount
	}

	instance, newlyCompleted, err := s.repo.UpdateQuestProgress(ctx, userID, instanceID, amount, s.now())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, false, ErrQuestNotFound
		case errors.Is(err, repository.ErrQuestExpired):
			return nil, false, ErrQuestExpired
		default:
			return nil, false, fmt.Errorf("failed to update quest progress: %w", err)
		}
	}

	return instance, newlyCompleted, nil
}

// ResetDailyQuests expires the user's overdue unfinished quests. Safe to run
// repeatedly; a second pass finds nothing left to transition.
func (s *QuestLifecycleService) ResetDailyQuests(ctx context.Context, userID int64) (int64, error) {
	expired, err := s.repo.ExpireQuestInstances(ctx, &userID, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to reset daily quests: %w", err)
	}
	return expired, nil
}

// ResetAllDailyQuests expires overdue unfinished quests across all users.
func (s *QuestLifecycleService) ResetAllDailyQuests(ctx context.Context) (int64, error) {
	expired, err := s.repo.ExpireQuestInstances(ctx, nil, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to reset all daily quests: %w", err)
	}
	return expired, nil
}
