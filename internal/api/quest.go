package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/orinaya/animochi-backend/internal/middleware"
	"github.com/orinaya/animochi-backend/internal/model"
	"github.com/orinaya/animochi-backend/internal/service"
	"github.com/orinaya/animochi-backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type questRoutes struct {
	qs  service.QuestLifecycleServiceI
	cs  service.RewardClaimServiceI
	hub *Hub
}

func NewQuestRoutes(handler *gin.RouterGroup, qs service.QuestLifecycleServiceI, cs service.RewardClaimServiceI, hub *Hub, gate *middleware.OperatorGate) {
	r := &questRoutes{qs: qs, cs: cs, hub: hub}
	h := handler.Group("/quests")
	{
		h.GET("/:user_id", r.GetDailyQuests)
		h.GET("/:user_id/:quest_id", r.GetQuest)
		h.POST("/:user_id/track", r.TrackProgress)
		h.POST("/:user_id/:quest_id/progress", r.UpdateProgress)
		h.POST("/:user_id/:quest_id/claim", r.ClaimReward)
	}

	ops := handler.Group("/quests")
	ops.Use(gate.OperatorOnly())
	{
		ops.POST("/reset", r.ResetAll)
		ops.POST("/:user_id/reset", r.ResetUser)
	}
}

type QuestInstanceResponse struct {
	ID           uuid.UUID  `json:"id"`
	QuestID      uuid.UUID  `json:"quest_id"`
	QuestType    string     `json:"quest_type"`
	Title        string     `json:"title,omitempty"`
	Description  string     `json:"description,omitempty"`
	Icon         string     `json:"icon,omitempty"`
	CurrentCount int        `json:"current_count"`
	TargetCount  int        `json:"target_count"`
	Reward       int        `json:"reward"`
	Status       string     `json:"status"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ExpiresAt    time.Time  `json:"expires_at"`
}

func questInstanceResponse(q *model.QuestInstance) QuestInstanceResponse {
	return QuestInstanceResponse{
		ID:           q.ID,
		QuestID:      q.QuestID,
		QuestType:    string(q.QuestType),
		Title:        q.Title,
		Description:  q.Description,
		Icon:         q.Icon,
		CurrentCount: q.CurrentCount,
		TargetCount:  q.TargetCount,
		Reward:       q.Reward,
		Status:       string(q.Status),
		CompletedAt:  q.CompletedAt,
		ExpiresAt:    q.ExpiresAt,
	}
}

func parseUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return 0, false
	}
	return id, true
}

func parseQuestID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("quest_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quest_id"})
		return uuid.Nil, false
	}
	return id, true
}

func (r *questRoutes) GetDailyQuests(c *gin.Context) {
	log := logger.Logger()

	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	quests, err := r.qs.GetDailyQuests(c.Request.Context(), userID)
	if err != nil {
		log.Error("failed to get daily quests", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get daily quests"})
		return
	}

	out := make([]QuestInstanceResponse, len(quests))
	for i, q := range quests {
		out[i] = questInstanceResponse(q)
	}

	c.JSON(http.StatusOK, gin.H{"quests": out})
}

func (r *questRoutes) GetQuest(c *gin.Context) {
	log := logger.Logger()

	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	questID, ok := parseQuestID(c)
	if !ok {
		return
	}

	instance, err := r.qs.GetQuest(c.Request.Context(), userID, questID)
	if err != nil {
		if errors.Is(err, service.ErrQuestNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "quest not found"})
			return
		}
		log.Error("failed to get quest", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get quest"})
		return
	}

	c.JSON(http.StatusOK, questInstanceResponse(instance))
}

type TrackProgressRequest struct {
	QuestType string `json:"quest_type" binding:"required"`
	Amount    int    `json:"amount"`
}

func (r *questRoutes) TrackProgress(c *gin.Context) {
	log := logger.Logger()

	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	var req TrackProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	newlyCompleted, err := r.qs.TrackProgress(c.Request.Context(), userID, model.QuestType(req.QuestType), req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive integer"})
		case errors.Is(err, service.ErrQuestExpired):
			c.JSON(http.StatusConflict, gin.H{"error": "quest has expired"})
		default:
			log.Error("failed to track quest progress", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to track quest progress"})
		}
		return
	}

	if newlyCompleted {
		r.hub.Notify(userID, Message{
			Type: "quest_completed",
			Payload: map[string]any{
				"quest_type": req.QuestType,
			},
		})
	}

	c.JSON(http.StatusOK, gin.H{"newly_completed": newlyCompleted})
}

type UpdateProgressRequest struct {
	Amount int `json:"amount"`
}

func (r *questRoutes) UpdateProgress(c *gin.Context) {
	log := logger.Logger()

	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	questID, ok := parseQuestID(c)
	if !ok {
		return
	}

	var req UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	instance, newlyCompleted, err := r.qs.UpdateProgress(c.Request.Context(), userID, questID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive integer"})
		case errors.Is(err, service.ErrQuestNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "quest not found"})
		case errors.Is(err, service.ErrQuestExpired):
			c.JSON(http.StatusConflict, gin.H{"error": "quest has expired"})
		default:
			log.Error("failed to update quest progress", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update quest progress"})
		}
		return
	}

	if newlyCompleted {
		r.hub.Notify(userID, Message{
			Type: "quest_completed",
			Payload: map[string]any{
				"quest_instance_id": questID.String(),
			},
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"quest":           questInstanceResponse(instance),
		"newly_completed": newlyCompleted,
	})
}

type ClaimRewardResponse struct {
	Reward     int `json:"reward"`
	NewBalance int `json:"new_balance"`
}

func (r *questRoutes) ClaimReward(c *gin.Context) {
	log := logger.Logger()

	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	questID, ok := parseQuestID(c)
	if !ok {
		return
	}

	result, err := r.cs.Claim(c.Request.Context(), userID, questID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuestNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "quest not found"})
		case errors.Is(err, service.ErrQuestNotCompleted):
			c.JSON(http.StatusConflict, gin.H{"error": "quest is not completed"})
		case errors.Is(err, service.ErrQuestAlreadyClaimed):
			c.JSON(http.StatusConflict, gin.H{"error": "already claimed"})
		case errors.Is(err, service.ErrQuestExpired):
			c.JSON(http.StatusConflict, gin.H{"error": "quest has expired"})
		default:
			log.Error("failed to claim quest reward", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to claim quest reward"})
		}
		return
	}

	r.hub.Notify(userID, Message{
		Type: "reward_claimed",
		Payload: map[string]any{
			"quest_instance_id": questID.String(),
			"reward":            result.Reward,
			"new_balance":       result.NewBalance,
		},
	})

	c.JSON(http.StatusOK, ClaimRewardResponse{
		Reward:     result.Reward,
		NewBalance: result.NewBalance,
	})
}

func (r *questRoutes) ResetUser(c *gin.Context) {
	log := logger.Logger()

	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	expired, err := r.qs.ResetDailyQuests(c.Request.Context(), userID)
	if err != nil {
		log.Error("failed to reset daily quests", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset daily quests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"expired": expired})
}

func (r *questRoutes) ResetAll(c *gin.Context) {
	log := logger.Logger()

	expired, err := r.qs.ResetAllDailyQuests(c.Request.Context())
	if err != nil {
		log.Error("failed to reset all daily quests", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset all daily quests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"expired": expired})
}
