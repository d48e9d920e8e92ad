package api

import (
	"net/http"

	"funplanet-backend/internal/middleware"
	"funplanet-backend/internal/service"
	"funplanet-backend/pkg/auth"
	"funplanet-backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type donationRoutes struct {
	ds service.DonationServiceI
	a  *auth.BearerAuth
}

func NewDonationRoutes(handler *gin.RouterGroup, ds service.DonationServiceI, a *auth.BearerAuth, authz *middleware.Authorization) {
	r := &donationRoutes{ds: ds, a: a}

	h := handler.Group("/donations")
	h.Use(a.AuthMiddleware())
	{
		h.POST("", r.Donate)
	}

	admin := handler.Group("/admin/donations")
	admin.Use(a.AuthMiddleware(), authz.AdminOnly())
	{
		admin.POST("/process", r.Process)
	}
}

type DonateRequest struct {
	Amount int64  `json:"amount" binding:"required"`
	Note   string `json:"note"`
}

func (r *donationRoutes) Donate(c *gin.Context) {
	log := logger.Logger()

	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req DonateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	donation, err := r.ds.Donate(c.Request.Context(), user.ID, req.Amount, req.Note)
	if err != nil {
		log.Info("donation rejected",
			zap.String("user_id", user.ID.String()),
			zap.Int64("amount", req.Amount),
			zap.Error(err))
		claimError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"donation_id": donation.ID.String(),
		"status":      string(donation.Status),
	})
}

type ProcessDonationsRequest struct {
	DonationID string `json:"donation_id"`
	ProcessAll bool   `json:"process_all"`
}

type DonationResultResponse struct {
	DonationID string `json:"donation_id"`
	Success    bool   `json:"success"`
	TxHash     string `json:"tx_hash,omitempty"`
	BscscanURL string `json:"bscscan_url,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (r *donationRoutes) Process(c *gin.Context) {
	log := logger.Logger()

	var req ProcessDonationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var donationID *uuid.UUID
	if req.DonationID != "" {
		id, err := uuid.Parse(req.DonationID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid donation_id"})
			return
		}
		donationID = &id
	}

	sweep, err := r.ds.Process(c.Request.Context(), donationID, req.ProcessAll)
	if err != nil {
		log.Warn("donation sweep aborted", zap.Error(err))
		claimError(c, err)
		return
	}

	results := make([]DonationResultResponse, len(sweep.Results))
	for i, item := range sweep.Results {
		results[i] = DonationResultResponse{
			DonationID: item.DonationID.String(),
			Success:    item.Success,
			TxHash:     item.TxHash,
			BscscanURL: item.TxURL,
			Error:      item.Error,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"processed": sweep.Processed,
		"failed":    sweep.Failed,
		"results":   results,
	})
}
