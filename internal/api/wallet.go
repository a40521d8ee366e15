package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/orinaya/animochi-backend/internal/middleware"
	"github.com/orinaya/animochi-backend/internal/model"
	"github.com/orinaya/animochi-backend/internal/service"
	"github.com/orinaya/animochi-backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type walletRoutes struct {
	ws service.WalletLedgerServiceI
}

func NewWalletRoutes(handler *gin.RouterGroup, ws service.WalletLedgerServiceI, gate *middleware.OperatorGate) {
	r := &walletRoutes{ws: ws}
	h := handler.Group("/wallet")
	{
		h.GET("/:user_id", r.GetWallet)
		h.GET("/:user_id/transactions", r.GetTransactions)
		h.POST("/:user_id/purchase", r.Purchase)
	}

	ops := handler.Group("/wallet")
	ops.Use(gate.OperatorOnly())
	{
		ops.POST("/:user_id/topup", r.Topup)
	}
}

type WalletResponse struct {
	OwnerID int64 `json:"owner_id"`
	Balance int   `json:"balance"`
}

type TransactionResponse struct {
	ID        uuid.UUID         `json:"id"`
	Amount    int               `json:"amount"`
	Kind      string            `json:"kind"`
	Reason    string            `json:"reason"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

func (r *walletRoutes) GetWallet(c *gin.Context) {
	log := logger.Logger()

	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	wallet, err := r.ws.GetOrCreateWallet(c.Request.Context(), userID)
	if err != nil {
		log.Error("failed to get wallet", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get wallet"})
		return
	}

	c.JSON(http.StatusOK, WalletResponse{
		OwnerID: wallet.OwnerID,
		Balance: wallet.Balance,
	})
}

func (r *walletRoutes) GetTransactions(c *gin.Context) {
	log := logger.Logger()

	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	transactions, err := r.ws.Transactions(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrWalletNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "wallet not found"})
			return
		}
		log.Error("failed to get wallet transactions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get wallet transactions"})
		return
	}

	out := make([]TransactionResponse, len(transactions))
	for i, t := range transactions {
		out[i] = TransactionResponse{
			ID:        t.ID,
			Amount:    t.Amount,
			Kind:      string(t.Kind),
			Reason:    string(t.Reason),
			Metadata:  t.Metadata,
			CreatedAt: t.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, gin.H{"transactions": out})
}

type PurchaseRequest struct {
	Amount int    `json:"amount"`
	Item   string `json:"item" binding:"required"`
}

func (r *walletRoutes) Purchase(c *gin.Context) {
	log := logger.Logger()

	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	newBalance, err := r.ws.Debit(c.Request.Context(), userID, req.Amount, model.ReasonPurchase, map[string]string{
		"item": req.Item,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive integer"})
		case errors.Is(err, service.ErrWalletNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "wallet not found"})
		case errors.Is(err, service.ErrInsufficientBalance):
			c.JSON(http.StatusConflict, gin.H{"error": "insufficient balance"})
		default:
			log.Error("failed to debit wallet", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to debit wallet"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"new_balance": newBalance})
}

type TopupRequest struct {
	Amount int    `json:"amount"`
	Note   string `json:"note"`
}

func (r *walletRoutes) Topup(c *gin.Context) {
	log := logger.Logger()

	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	var req TopupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	metadata := map[string]string{}
	if req.Note != "" {
		metadata["note"] = req.Note
	}

	newBalance, err := r.ws.Credit(c.Request.Context(), userID, req.Amount, model.ReasonManual, metadata)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive integer"})
		case errors.Is(err, service.ErrWalletNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "wallet not found"})
		default:
			log.Error("failed to credit wallet", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to credit wallet"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"new_balance": newBalance})
}
