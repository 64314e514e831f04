package llm

import (
	"context"
	"fmt"
	"strings"

	"trustbooks/pkg/config"

	"github.com/Role1776/gigago"
	"go.uber.org/zap"
)

const defaultGigaChatModel = "GigaChat"

type GigaChat struct {
	client *gigago.Client
	model  string
	logger *zap.Logger
}

func NewGigaChat(ctx context.Context, cfg *config.AIConfig, logger *zap.Logger) (*GigaChat, error) {
	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultGigaChatModel
	}
	logger.Info("Using GigaChat model", zap.String("model", model))

	return &GigaChat{client: client, model: model, logger: logger}, nil
}

func (g *GigaChat) Name() string { return "gigachat" }

func (g *GigaChat) Complete(ctx context.Context, system, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SystemInstruction = system
	model.Temperature = 0

	resp, err := model.Generate(ctx, []gigago.Message{
		{Role: gigago.RoleUser, Content: prompt},
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (g *GigaChat) Close() error {
	if g.client != nil {
		g.client.Close()
	}
	return nil
}
