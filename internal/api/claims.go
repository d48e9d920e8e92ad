package api

import (
	"net/http"
	"time"

	"funplanet-backend/internal/model"
	"funplanet-backend/internal/service"
	"funplanet-backend/pkg/auth"
	"funplanet-backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type claimRoutes struct {
	cs service.ClaimServiceI
	a  *auth.BearerAuth
}

func NewClaimRoutes(handler *gin.RouterGroup, cs service.ClaimServiceI, a *auth.BearerAuth) {
	r := &claimRoutes{cs: cs, a: a}

	h := handler.Group("/claims")
	h.Use(a.AuthMiddleware())
	{
		h.POST("/camly", r.ClaimCamly)
		h.POST("/direct", r.ClaimDirect)
		h.POST("/arbitrary", r.ClaimArbitrary)
		h.POST("/sign", r.SignClaim)
	}

	p := handler.Group("/parent")
	p.Use(a.AuthMiddleware())
	{
		p.GET("/approvals", r.ListApprovals)
		p.POST("/approvals/:id", r.ApproveClaim)
	}
}

type ClaimCamlyRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
	ClaimType     string `json:"claimType" binding:"required"`
	GameID        string `json:"gameId"`
}

type ClaimResponse struct {
	Success        bool   `json:"success"`
	Status         string `json:"status"`
	TxHash         string `json:"txHash,omitempty"`
	TxURL          string `json:"bscscanUrl,omitempty"`
	Amount         int64  `json:"amount"`
	NewPending     int64  `json:"newPending"`
	DailyRemaining int64  `json:"dailyRemaining"`
}

func claimResponse(result *service.ClaimResult) ClaimResponse {
	return ClaimResponse{
		Success:        true,
		Status:         string(result.Status),
		TxHash:         result.TxHash,
		TxURL:          result.TxURL,
		Amount:         result.Amount,
		NewPending:     result.NewPending,
		DailyRemaining: result.DailyRemaining,
	}
}

func (r *claimRoutes) ClaimCamly(c *gin.Context) {
	log := logger.Logger()

	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req ClaimCamlyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var gameID *uuid.UUID
	if req.GameID != "" {
		id, err := uuid.Parse(req.GameID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid gameId"})
			return
		}
		gameID = &id
	}

	result, err := r.cs.Claim(c.Request.Context(), user.ID, req.WalletAddress, model.ClaimType(req.ClaimType), gameID)
	if err != nil {
		log.Info("claim rejected",
			zap.String("user_id", user.ID.String()),
			zap.String("claim_type", req.ClaimType),
			zap.Error(err))
		claimError(c, err)
		return
	}

	c.JSON(http.StatusOK, claimResponse(result))
}

type ClaimDirectRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
	Amount        int64  `json:"amount" binding:"required"`
}

func (r *claimRoutes) ClaimDirect(c *gin.Context) {
	log := logger.Logger()

	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req ClaimDirectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := r.cs.ClaimDirect(c.Request.Context(), user.ID, req.WalletAddress, req.Amount)
	if err != nil {
		log.Info("direct claim rejected",
			zap.String("user_id", user.ID.String()),
			zap.Int64("amount", req.Amount),
			zap.Error(err))
		claimError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"status":      string(result.Status),
		"tx_hash":     result.TxHash,
		"amount":      result.Amount,
		"bscscan_url": result.TxURL,
	})
}

type ClaimArbitraryRequest struct {
	WalletAddress   string `json:"walletAddress" binding:"required"`
	Amount          int64  `json:"amount" binding:"required"`
	ParentSignature string `json:"parentSignature"`
}

func (r *claimRoutes) ClaimArbitrary(c *gin.Context) {
	log := logger.Logger()

	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req ClaimArbitraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := r.cs.ClaimArbitrary(c.Request.Context(), user.ID, req.WalletAddress, req.Amount, req.ParentSignature)
	if err != nil {
		log.Info("arbitrary claim rejected",
			zap.String("user_id", user.ID.String()),
			zap.Int64("amount", req.Amount),
			zap.Error(err))
		claimError(c, err)
		return
	}

	c.JSON(http.StatusOK, claimResponse(result))
}

type SignClaimRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
	Amount        int64  `json:"amount" binding:"required"`
}

type SignClaimResponse struct {
	Signature       string `json:"signature"`
	Nonce           string `json:"nonce"`
	AmountWei       string `json:"amount_wei"`
	ContractAddress string `json:"contract_address"`
	ChainID         int64  `json:"chain_id"`
}

func (r *claimRoutes) SignClaim(c *gin.Context) {
	log := logger.Logger()

	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req SignClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	voucher, err := r.cs.SignClaim(c.Request.Context(), user.ID, req.WalletAddress, req.Amount)
	if err != nil {
		log.Info("sign claim rejected",
			zap.String("user_id", user.ID.String()),
			zap.Int64("amount", req.Amount),
			zap.Error(err))
		claimError(c, err)
		return
	}

	c.JSON(http.StatusOK, SignClaimResponse{
		Signature:       voucher.Signature,
		Nonce:           voucher.Nonce,
		AmountWei:       voucher.AmountWei,
		ContractAddress: voucher.ContractAddress,
		ChainID:         voucher.ChainID,
	})
}

type PendingApprovalResponse struct {
	ClaimID       string `json:"claim_id"`
	UserID        string `json:"user_id"`
	WalletAddress string `json:"wallet_address"`
	ClaimType     string `json:"claim_type"`
	Amount        int64  `json:"amount"`
	CreatedAt     string `json:"created_at"`
}

func (r *claimRoutes) ListApprovals(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	claims, err := r.cs.ListPendingApprovals(c.Request.Context(), user.ID)
	if err != nil {
		logger.Logger().Error("failed to list pending approvals", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list approvals"})
		return
	}

	response := make([]PendingApprovalResponse, len(claims))
	for i, claim := range claims {
		response[i] = PendingApprovalResponse{
			ClaimID:       claim.ID.String(),
			UserID:        claim.UserID.String(),
			WalletAddress: claim.WalletAddress,
			ClaimType:     string(claim.Type),
			Amount:        claim.Amount,
			CreatedAt:     claim.CreatedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, gin.H{"approvals": response})
}

func (r *claimRoutes) ApproveClaim(c *gin.Context) {
	log := logger.Logger()

	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	claimID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid claim id"})
		return
	}

	result, err := r.cs.ApproveClaim(c.Request.Context(), user.ID, claimID)
	if err != nil {
		log.Info("claim approval rejected",
			zap.String("parent_id", user.ID.String()),
			zap.String("claim_id", claimID.String()),
			zap.Error(err))
		claimError(c, err)
		return
	}

	c.JSON(http.StatusOK, claimResponse(result))
}
