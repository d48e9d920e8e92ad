package api

import (
	"errors"
	"net/http"

	"funplanet-backend/internal/service"

	"github.com/gin-gonic/gin"
)

// claimError maps claim pipeline sentinels to HTTP responses. Everything the
// caller can fix is a 400; identity problems are 403; a transfer that failed
// after the ledger was touched is a 500, compensation already attempted.
func claimError(c *gin.Context, err error) {
	var poolErr *service.InsufficientPoolError
	if errors.As(err, &poolErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     poolErr.Error(),
			"available": poolErr.Available,
			"required":  poolErr.Required,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrClaimNotFound),
		errors.Is(err, service.ErrGameNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrWalletMismatch),
		errors.Is(err, service.ErrNotGameOwner),
		errors.Is(err, service.ErrNotParentOfClaimant):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrParentApprovalRequired):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  err.Error(),
			"status": "pending_approval",
		})
	case errors.Is(err, service.ErrInvalidAddress),
		errors.Is(err, service.ErrWalletNotSet),
		errors.Is(err, service.ErrNonPositiveAmount),
		errors.Is(err, service.ErrUnknownClaimType),
		errors.Is(err, service.ErrGameRequired),
		errors.Is(err, service.ErrAlreadyClaimed),
		errors.Is(err, service.ErrInsufficientBalance),
		errors.Is(err, service.ErrDailyLimitExceeded),
		errors.Is(err, service.ErrInvalidParentSignature),
		errors.Is(err, service.ErrClaimNotApprovable),
		errors.Is(err, service.ErrInsufficientGas),
		errors.Is(err, service.ErrDonationNotPending),
		errors.Is(err, service.ErrNoDonationSelected):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrTransferFailed):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
