package model

import (
	"time"

	"github.com/google/uuid"
)

type QuestType string

const (
	QuestFeedCreature         QuestType = "feed-creature"
	QuestEvolveCreature       QuestType = "evolve-creature"
	QuestInteractWithMultiple QuestType = "interact-with-multiple"
	QuestBuyAccessory         QuestType = "buy-accessory"
	QuestMakePublic           QuestType = "make-public"
	QuestCustomize            QuestType = "customize"
	QuestVisitGallery         QuestType = "visit-gallery"
	QuestLoginStreak          QuestType = "login-streak"
)

type QuestStatus string

const (
	QuestNotStarted QuestStatus = "NOT_STARTED"
	QuestInProgress QuestStatus = "IN_PROGRESS"
	QuestCompleted  QuestStatus = "COMPLETED"
	QuestClaimed    QuestStatus = "CLAIMED"
	QuestExpired    QuestStatus = "EXPIRED"
)

// QuestTemplate is a catalog entry. Templates are immutable; the core only
// reads them.
type QuestTemplate struct {
	ID          uuid.UUID
	Type        QuestType
	Title       string
	Description string
	Icon        string
	TargetCount int
	Reward      int
}

// QuestInstance is a per-user, per-day assignment of a template.
type QuestInstance struct {
	ID           uuid.UUID
	UserID       int64
	QuestID      uuid.UUID
	QuestType    QuestType
	Title        string
	Description  string
	Icon         string
	CurrentCount int
	TargetCount  int
	Reward       int
	Status       QuestStatus
	AssignedFor  time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
	ExpiresAt    time.Time
}

// ApplyProgress increments CurrentCount by amount, clamped to TargetCount,
// and reports whether the instance newly reached COMPLETED on this call.
// Instances in COMPLETED, CLAIMED or EXPIRED are left untouched.
func (q *QuestInstance) ApplyProgress(amount int, now time.Time) bool {
	if amount <= 0 {
		return false
	}
	if q.Status != QuestNotStarted && q.Status != QuestInProgress {
		return false
	}

	q.CurrentCount += amount
	if q.CurrentCount > q.TargetCount {
		q.CurrentCount = q.TargetCount
	}
	q.UpdatedAt = now

	if q.CurrentCount >= q.TargetCount {
		q.Status = QuestCompleted
		completedAt := now
		q.CompletedAt = &completedAt
		return true
	}

	q.Status = QuestInProgress
	return false
}

// Trackable reports whether progress calls still apply to the instance.
func (q *QuestInstance) Trackable() bool {
	return q.Status == QuestNotStarted || q.Status == QuestInProgress
}

// Expirable reports whether the daily reset may transition the instance to
// EXPIRED. Completed and claimed instances never expire.
func (q *QuestInstance) Expirable(now time.Time) bool {
	if q.Status != QuestNotStarted && q.Status != QuestInProgress {
		return false
	}
	return !q.ExpiresAt.After(now)
}

// Expire transitions an overdue unfinished instance to EXPIRED, reporting
// whether anything changed. Instances that are not Expirable are left alone.
func (q *QuestInstance) Expire(now time.Time) bool {
	if !q.Expirable(now) {
		return false
	}
	q.Status = QuestExpired
	q.UpdatedAt = now
	return true
}

// EndOfDay returns the first instant of the next UTC day, used as the
// expiry of instances assigned on the day containing t.
func EndOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}
