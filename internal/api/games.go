package api

import (
	"net/http"

	"funplanet-backend/internal/model"
	"funplanet-backend/internal/service"
	"funplanet-backend/pkg/auth"
	"funplanet-backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

const maxBundleSize = 200 << 20 // 200 MiB

type gameRoutes struct {
	gs service.GameServiceI
	a  *auth.BearerAuth
}

func NewGameRoutes(handler *gin.RouterGroup, gs service.GameServiceI, a *auth.BearerAuth) {
	r := &gameRoutes{gs: gs, a: a}

	h := handler.Group("/games")
	{
		h.GET("", r.List)
	}

	authed := handler.Group("/games")
	authed.Use(a.AuthMiddleware())
	{
		authed.POST("", r.Upload)
	}
}

type GameResponse struct {
	ID          string `json:"id"`
	OwnerID     string `json:"owner_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	BundleURL   string `json:"bundle_url"`
	CoverURL    string `json:"cover_url,omitempty"`
}

func gameResponse(game *model.Game) GameResponse {
	return GameResponse{
		ID:          game.ID.String(),
		OwnerID:     game.OwnerID.String(),
		Title:       game.Title,
		Description: game.Description,
		BundleURL:   game.BundleURL,
		CoverURL:    game.CoverURL,
	}
}

func (r *gameRoutes) Upload(c *gin.Context) {
	log := logger.Logger()

	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := c.Request.ParseMultipartForm(maxBundleSize); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}

	title := c.PostForm("title")
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	bundleHeader, err := c.FormFile("bundle")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "game bundle is required"})
		return
	}

	var cover service.Upload
	if coverHeader, err := c.FormFile("cover"); err == nil {
		cover.FileHeader = coverHeader
	}

	game := &model.Game{
		OwnerID:     user.ID,
		Title:       title,
		Description: c.PostForm("description"),
	}

	created, err := r.gs.Upload(c.Request.Context(), game, service.Upload{FileHeader: bundleHeader}, cover)
	if err != nil {
		log.Error("failed to upload game",
			zap.String("user_id", user.ID.String()),
			zap.String("title", title),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upload game"})
		return
	}

	c.JSON(http.StatusCreated, gameResponse(created))
}

func (r *gameRoutes) List(c *gin.Context) {
	games, err := r.gs.List(c.Request.Context())
	if err != nil {
		logger.Logger().Error("failed to list games", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list games"})
		return
	}

	response := make([]GameResponse, len(games))
	for i, game := range games {
		response[i] = gameResponse(game)
	}

	c.JSON(http.StatusOK, gin.H{"games": response})
}
