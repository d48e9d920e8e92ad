package api

import (
	"errors"
	"net/http"

	"funplanet-backend/internal/middleware"
	"funplanet-backend/internal/model"
	"funplanet-backend/internal/service"
	"funplanet-backend/pkg/auth"
	"funplanet-backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type userRoutes struct {
	us service.UserServiceI
	a  *auth.BearerAuth
}

func NewUserRoutes(handler *gin.RouterGroup, us service.UserServiceI, a *auth.BearerAuth, authz *middleware.Authorization) {
	r := &userRoutes{us: us, a: a}

	h := handler.Group("/users")
	{
		h.POST("", r.Register)
		h.POST("/login", r.Login)
		h.GET("/leaderboard", r.Leaderboard)
	}

	me := handler.Group("/users/me")
	me.Use(a.AuthMiddleware())
	{
		me.GET("", r.Me)
		me.PATCH("/wallet", r.SetWallet)
		me.GET("/children", r.Children)
	}

	admin := handler.Group("/admin")
	admin.Use(a.AuthMiddleware(), authz.AdminOnly())
	{
		admin.POST("/rewards", r.CreditReward)
	}
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	ParentID string `json:"parent_id"`
}

func (r *userRoutes) Register(c *gin.Context) {
	log := logger.Logger()

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var parentID *uuid.UUID
	if req.ParentID != "" {
		id, err := uuid.Parse(req.ParentID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid parent_id"})
			return
		}
		parentID = &id
	}

	user, token, err := r.us.Register(c.Request.Context(), req.Username, req.Email, parentID)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		log.Error("failed to register user",
			zap.String("username", req.Username),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":  userResponse(user),
		"token": token,
	})
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
}

func (r *userRoutes) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	token, err := r.us.Login(c.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		logger.Logger().Error("failed to log user in", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log in"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

type UserResponse struct {
	ID             string  `json:"id"`
	Username       string  `json:"username"`
	Email          string  `json:"email"`
	WalletAddress  *string `json:"wallet_address,omitempty"`
	PendingBalance int64   `json:"pending_balance"`
	TotalClaimed   int64   `json:"total_claimed"`
	IsChild        bool    `json:"is_child"`
}

func userResponse(user *model.User) UserResponse {
	return UserResponse{
		ID:             user.ID.String(),
		Username:       user.Username,
		Email:          user.Email,
		WalletAddress:  user.WalletAddress,
		PendingBalance: user.PendingBalance,
		TotalClaimed:   user.TotalClaimed,
		IsChild:        user.IsChild(),
	}
}

func (r *userRoutes) Me(c *gin.Context) {
	userData, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := r.us.GetByID(c.Request.Context(), userData.ID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		logger.Logger().Error("failed to get user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get user"})
		return
	}

	c.JSON(http.StatusOK, userResponse(user))
}

func (r *userRoutes) Children(c *gin.Context) {
	userData, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	children, err := r.us.Children(c.Request.Context(), userData.ID)
	if err != nil {
		logger.Logger().Error("failed to list children",
			zap.String("user_id", userData.ID.String()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list children"})
		return
	}

	response := make([]UserResponse, len(children))
	for i, child := range children {
		response[i] = userResponse(child)
	}

	c.JSON(http.StatusOK, gin.H{"children": response})
}

type SetWalletRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
}

func (r *userRoutes) SetWallet(c *gin.Context) {
	log := logger.Logger()

	userData, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req SetWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	firstSet, err := r.us.SetWallet(c.Request.Context(), userData.ID, req.WalletAddress)
	if err != nil {
		log.Info("wallet update rejected",
			zap.String("user_id", userData.ID.String()),
			zap.Error(err))
		claimError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"first_set": firstSet,
	})
}

type CreditRewardRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Amount int64  `json:"amount" binding:"required"`
}

func (r *userRoutes) CreditReward(c *gin.Context) {
	log := logger.Logger()

	var req CreditRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	if err := r.us.CreditReward(c.Request.Context(), userID, req.Amount); err != nil {
		log.Info("reward credit rejected",
			zap.String("user_id", req.UserID),
			zap.Int64("amount", req.Amount),
			zap.Error(err))
		claimError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type LeaderboardEntryResponse struct {
	Username     string `json:"username"`
	TotalClaimed int64  `json:"total_claimed"`
	Pending      int64  `json:"pending"`
}

func (r *userRoutes) Leaderboard(c *gin.Context) {
	entries, err := r.us.Leaderboard(c.Request.Context())
	if err != nil {
		logger.Logger().Error("failed to get leaderboard", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get leaderboard"})
		return
	}

	response := make([]LeaderboardEntryResponse, len(entries))
	for i, entry := range entries {
		response[i] = LeaderboardEntryResponse{
			Username:     entry.Username,
			TotalClaimed: entry.TotalClaimed,
			Pending:      entry.Pending,
		}
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard": response})
}
