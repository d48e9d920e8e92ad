package service

import (
	"context"

	"funplanet-backend/internal/gateway"
)

// AIGateway is the outbound surface of the AI proxy endpoints.
type AIGateway interface {
	Chat(ctx context.Context, messages []gateway.ChatMessage) (string, error)
	RateGame(ctx context.Context, title, description string) (*gateway.GameRating, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

type GatewayService struct {
	client AIGateway
}

func NewGatewayService(client AIGateway) *GatewayService {
	return &GatewayService{client: client}
}

func (s *GatewayService) Chat(ctx context.Context, messages []gateway.ChatMessage) (string, error) {
	return s.client.Chat(ctx, messages)
}

func (s *GatewayService) RateGame(ctx context.Context, title, description string) (*gateway.GameRating, error) {
	return s.client.RateGame(ctx, title, description)
}

func (s *GatewayService) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return s.client.GenerateImage(ctx, prompt)
}
