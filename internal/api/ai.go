package api

import (
	"errors"
	"net/http"

	"funplanet-backend/internal/gateway"
	"funplanet-backend/internal/service"
	"funplanet-backend/pkg/auth"
	"funplanet-backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type aiRoutes struct {
	gs service.GatewayServiceI
	a  *auth.BearerAuth
}

func NewAIRoutes(handler *gin.RouterGroup, gs service.GatewayServiceI, a *auth.BearerAuth) {
	r := &aiRoutes{gs: gs, a: a}

	h := handler.Group("/ai")
	h.Use(a.AuthMiddleware())
	{
		h.POST("/chat", r.Chat)
		h.POST("/rate-game", r.RateGame)
		h.POST("/generate-image", r.GenerateImage)
	}
}

// gatewayError passes through the gateway's own classification: rate limits
// stay 429, upstream outages become 502.
func gatewayError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gateway.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limited, try again later"})
	case errors.Is(err, gateway.ErrUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "ai gateway unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ai request failed"})
	}
}

type ChatRequest struct {
	Messages []gateway.ChatMessage `json:"messages" binding:"required"`
}

func (r *aiRoutes) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Messages) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "messages are required"})
		return
	}

	reply, err := r.gs.Chat(c.Request.Context(), req.Messages)
	if err != nil {
		logger.Logger().Warn("ai chat failed", zap.Error(err))
		gatewayError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

type RateGameRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

func (r *aiRoutes) RateGame(c *gin.Context) {
	var req RateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	rating, err := r.gs.RateGame(c.Request.Context(), req.Title, req.Description)
	if err != nil {
		logger.Logger().Warn("ai game rating failed", zap.Error(err))
		gatewayError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"score":   rating.Score,
		"verdict": rating.Verdict,
	})
}

type GenerateImageRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

func (r *aiRoutes) GenerateImage(c *gin.Context) {
	var req GenerateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}

	imageURL, err := r.gs.GenerateImage(c.Request.Context(), req.Prompt)
	if err != nil {
		logger.Logger().Warn("ai image generation failed", zap.Error(err))
		gatewayError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"image_url": imageURL})
}
